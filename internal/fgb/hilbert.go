package fgb

import "sort"

// hilbertMax is the grid resolution of the curve: box centers are scaled
// onto a 2^16 x 2^16 grid over the dataset extent.
const hilbertMax = (1 << 16) - 1

// hilbertSort orders features and their boxes in place by the Hilbert
// value of each box center over the given extent. The sort is stable so
// ties keep aggregation order and output stays deterministic.
func hilbertSort(features []Feature, boxes []nodeItem, extent nodeItem) {
	values := make([]uint32, len(boxes))
	width := extent.maxX - extent.minX
	height := extent.maxY - extent.minY
	for i := range boxes {
		x := hilbertScale((boxes[i].minX+boxes[i].maxX)/2-extent.minX, width)
		y := hilbertScale((boxes[i].minY+boxes[i].maxY)/2-extent.minY, height)
		values[i] = hilbert(x, y)
	}
	sort.Stable(&hilbertOrder{values: values, features: features, boxes: boxes})
}

type hilbertOrder struct {
	values   []uint32
	features []Feature
	boxes    []nodeItem
}

func (h *hilbertOrder) Len() int           { return len(h.values) }
func (h *hilbertOrder) Less(i, j int) bool { return h.values[i] < h.values[j] }
func (h *hilbertOrder) Swap(i, j int) {
	h.values[i], h.values[j] = h.values[j], h.values[i]
	h.features[i], h.features[j] = h.features[j], h.features[i]
	h.boxes[i], h.boxes[j] = h.boxes[j], h.boxes[i]
}

// hilbertScale maps a relative position to the curve grid, clamping
// degenerate extents and out-of-range values.
func hilbertScale(rel, width float64) uint32 {
	if width <= 0 {
		return 0
	}
	v := hilbertMax * rel / width
	if !(v > 0) {
		return 0
	}
	if v > hilbertMax {
		return hilbertMax
	}
	return uint32(v)
}

// hilbert converts grid coordinates to a distance along the order-16
// Hilbert curve. Public domain bit-twiddling from
// https://github.com/rawrunprotected/hilbert_curves.
func hilbert(x, y uint32) uint32 {
	a := x ^ y
	b := 0xFFFF ^ a
	c := 0xFFFF ^ (x | y)
	d := x & (y ^ 0xFFFF)

	A := a | (b >> 1)
	B := (a >> 1) ^ a
	C := ((c >> 1) ^ (b & (d >> 1))) ^ c
	D := ((a & (c >> 1)) ^ (d >> 1)) ^ d

	a, b, c, d = A, B, C, D
	A = (a & (a >> 2)) ^ (b & (b >> 2))
	B = (a & (b >> 2)) ^ (b & ((a ^ b) >> 2))
	C ^= (a & (c >> 2)) ^ (b & (d >> 2))
	D ^= (b & (c >> 2)) ^ ((a ^ b) & (d >> 2))

	a, b, c, d = A, B, C, D
	A = (a & (a >> 4)) ^ (b & (b >> 4))
	B = (a & (b >> 4)) ^ (b & ((a ^ b) >> 4))
	C ^= (a & (c >> 4)) ^ (b & (d >> 4))
	D ^= (b & (c >> 4)) ^ ((a ^ b) & (d >> 4))

	a, b, c, d = A, B, C, D
	C ^= (a & (c >> 8)) ^ (b & (d >> 8))
	D ^= (b & (c >> 8)) ^ ((a ^ b) & (d >> 8))

	a = C ^ (C >> 1)
	b = D ^ (D >> 1)

	i0 := x ^ y
	i1 := b | (0xFFFF ^ (i0 | a))

	i0 = (i0 | (i0 << 8)) & 0x00FF00FF
	i0 = (i0 | (i0 << 4)) & 0x0F0F0F0F
	i0 = (i0 | (i0 << 2)) & 0x33333333
	i0 = (i0 | (i0 << 1)) & 0x55555555

	i1 = (i1 | (i1 << 8)) & 0x00FF00FF
	i1 = (i1 | (i1 << 4)) & 0x0F0F0F0F
	i1 = (i1 | (i1 << 2)) & 0x33333333
	i1 = (i1 | (i1 << 1)) & 0x55555555

	return (i1 << 1) | i0
}
