package fgb

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// nodeItemSize is the serialized size of one node: four float64 bounds plus
// a uint64 offset, little endian.
const nodeItemSize = 40

// nodeItem is one packed R-tree node. For leaf nodes offset is the byte
// offset of the feature record inside the features section; for internal
// nodes it is the index of the node's first child.
type nodeItem struct {
	minX, minY, maxX, maxY float64
	offset                 uint64
}

// newNodeItem returns a node with an inverted (empty) box so any expand
// sets real bounds.
func newNodeItem(offset uint64) nodeItem {
	return nodeItem{
		minX:   math.Inf(1),
		minY:   math.Inf(1),
		maxX:   math.Inf(-1),
		maxY:   math.Inf(-1),
		offset: offset,
	}
}

func (n *nodeItem) expandXY(x, y float64) {
	if x < n.minX {
		n.minX = x
	}
	if y < n.minY {
		n.minY = y
	}
	if x > n.maxX {
		n.maxX = x
	}
	if y > n.maxY {
		n.maxY = y
	}
}

func (n *nodeItem) expand(o *nodeItem) {
	if o.minX < n.minX {
		n.minX = o.minX
	}
	if o.minY < n.minY {
		n.minY = o.minY
	}
	if o.maxX > n.maxX {
		n.maxX = o.maxX
	}
	if o.maxY > n.maxY {
		n.maxY = o.maxY
	}
}

func (n *nodeItem) intersects(minX, minY, maxX, maxY float64) bool {
	return n.minX <= maxX && n.minY <= maxY && n.maxX >= minX && n.maxY >= minY
}

// levelBounds returns the [start, end) node index range of every tree
// level, leaves first and the root level last, plus the total node count.
// Nodes are laid out root first, so ranges are computed from the back.
func levelBounds(numItems, nodeSize uint64) ([][2]uint64, uint64) {
	n := numItems
	numNodes := n
	levelNumNodes := []uint64{n}
	for n != 1 {
		n = (n + nodeSize - 1) / nodeSize
		numNodes += n
		levelNumNodes = append(levelNumNodes, n)
	}

	bounds := make([][2]uint64, len(levelNumNodes))
	pos := numNodes
	for i, count := range levelNumNodes {
		pos -= count
		bounds[i] = [2]uint64{pos, pos + count}
	}
	return bounds, numNodes
}

// indexSize returns the serialized byte size of a packed tree over numItems
// features.
func indexSize(numItems, nodeSize uint64) uint64 {
	if numItems == 0 {
		return 0
	}
	_, numNodes := levelBounds(numItems, nodeSize)
	return numNodes * nodeItemSize
}

// buildTree packs leaf nodes, already in Hilbert order, into the full node
// array: parents take the union of up to nodeSize children and point at
// their first child.
func buildTree(leaves []nodeItem, nodeSize uint64) []nodeItem {
	bounds, numNodes := levelBounds(uint64(len(leaves)), nodeSize)
	nodes := make([]nodeItem, numNodes)
	copy(nodes[bounds[0][0]:], leaves)

	for level := 0; level < len(bounds)-1; level++ {
		child := bounds[level][0]
		childEnd := bounds[level][1]
		parent := bounds[level+1][0]
		for child < childEnd {
			node := newNodeItem(child)
			for i := uint64(0); i < nodeSize && child < childEnd; i++ {
				node.expand(&nodes[child])
				child++
			}
			nodes[parent] = node
			parent++
		}
	}
	return nodes
}

// writeNodes serializes the node array.
func writeNodes(w io.Writer, nodes []nodeItem) error {
	var buf [nodeItemSize]byte
	for i := range nodes {
		n := &nodes[i]
		binary.LittleEndian.PutUint64(buf[0:], math.Float64bits(n.minX))
		binary.LittleEndian.PutUint64(buf[8:], math.Float64bits(n.minY))
		binary.LittleEndian.PutUint64(buf[16:], math.Float64bits(n.maxX))
		binary.LittleEndian.PutUint64(buf[24:], math.Float64bits(n.maxY))
		binary.LittleEndian.PutUint64(buf[32:], n.offset)
		if _, err := w.Write(buf[:]); err != nil {
			return err
		}
	}
	return nil
}

func decodeNode(buf []byte) nodeItem {
	return nodeItem{
		minX:   math.Float64frombits(binary.LittleEndian.Uint64(buf[0:])),
		minY:   math.Float64frombits(binary.LittleEndian.Uint64(buf[8:])),
		maxX:   math.Float64frombits(binary.LittleEndian.Uint64(buf[16:])),
		maxY:   math.Float64frombits(binary.LittleEndian.Uint64(buf[24:])),
		offset: binary.LittleEndian.Uint64(buf[32:]),
	}
}

// nodeSource supplies runs of nodes by index, either from memory (just
// written) or from the index section of a file.
type nodeSource interface {
	readNodes(start, count uint64) ([]nodeItem, error)
}

type memNodes []nodeItem

func (m memNodes) readNodes(start, count uint64) ([]nodeItem, error) {
	if start+count > uint64(len(m)) {
		return nil, fmt.Errorf("node range %d+%d out of %d", start, count, len(m))
	}
	return m[start : start+count], nil
}

type fileNodes struct {
	r    io.ReadSeeker
	base int64 // file offset of the index section
}

func (f fileNodes) readNodes(start, count uint64) ([]nodeItem, error) {
	if _, err := f.r.Seek(f.base+int64(start*nodeItemSize), io.SeekStart); err != nil {
		return nil, err
	}
	buf := make([]byte, count*nodeItemSize)
	if _, err := io.ReadFull(f.r, buf); err != nil {
		return nil, err
	}
	nodes := make([]nodeItem, count)
	for i := range nodes {
		nodes[i] = decodeNode(buf[i*nodeItemSize:])
	}
	return nodes, nil
}

// searchTree walks the packed tree breadth first and returns the feature
// byte offsets of all leaves intersecting the query box, in file order.
func searchTree(src nodeSource, numItems, nodeSize uint64, minX, minY, maxX, maxY float64) ([]uint64, error) {
	if numItems == 0 {
		return nil, nil
	}
	bounds, _ := levelBounds(numItems, nodeSize)

	type entry struct {
		index uint64
		level int
	}
	queue := []entry{{bounds[len(bounds)-1][0], len(bounds) - 1}}

	var hits []uint64
	for len(queue) > 0 {
		e := queue[0]
		queue = queue[1:]

		end := e.index + nodeSize
		if levelEnd := bounds[e.level][1]; end > levelEnd {
			end = levelEnd
		}
		nodes, err := src.readNodes(e.index, end-e.index)
		if err != nil {
			return nil, err
		}
		for i := range nodes {
			n := &nodes[i]
			if !n.intersects(minX, minY, maxX, maxY) {
				continue
			}
			if e.level == 0 {
				hits = append(hits, n.offset)
			} else {
				queue = append(queue, entry{n.offset, e.level - 1})
			}
		}
	}
	return hits, nil
}
