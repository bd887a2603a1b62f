package fgb

import (
	"bytes"
	"fmt"
	"io"

	flatbuffers "github.com/google/flatbuffers/go"
)

// Write serializes hdr and features as a spatially indexed FlatGeobuf
// stream. Features are reordered in place along a Hilbert curve so the
// packed index stays shallow; output is deterministic for a given input
// order. FeaturesCount and, when unset, Envelope are derived from the
// features. A zero hdr.IndexNodeSize selects DefaultNodeSize; empty
// datasets are written without an index.
func Write(w io.Writer, hdr Header, features []Feature) error {
	nodeSize := uint64(hdr.IndexNodeSize)
	if nodeSize == 0 {
		nodeSize = DefaultNodeSize
	}
	hdr.FeaturesCount = uint64(len(features))

	builder := flatbuffers.NewBuilder(4096)

	if len(features) == 0 {
		hdr.IndexNodeSize = 0
		hdr.Envelope = nil
		if _, err := w.Write(Magic[:]); err != nil {
			return fmt.Errorf("writing magic: %w", err)
		}
		if _, err := w.Write(encodeHeader(builder, &hdr)); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
		return nil
	}

	boxes := make([]nodeItem, len(features))
	extent := newNodeItem(0)
	for i := range features {
		boxes[i] = newNodeItem(0)
		if features[i].Geometry != nil {
			features[i].Geometry.bbox(&boxes[i])
		}
		extent.expand(&boxes[i])
	}

	hilbertSort(features, boxes, extent)

	// The index precedes the feature section but stores byte offsets into
	// it, so features are encoded to memory first.
	var body bytes.Buffer
	for i := range features {
		boxes[i].offset = uint64(body.Len())
		body.Write(encodeFeature(builder, &features[i]))
	}

	if len(hdr.Envelope) == 0 && extent.minX <= extent.maxX {
		hdr.Envelope = []float64{extent.minX, extent.minY, extent.maxX, extent.maxY}
	}
	hdr.IndexNodeSize = uint16(nodeSize)

	if _, err := w.Write(Magic[:]); err != nil {
		return fmt.Errorf("writing magic: %w", err)
	}
	if _, err := w.Write(encodeHeader(builder, &hdr)); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if err := writeNodes(w, buildTree(boxes, nodeSize)); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}
	if _, err := w.Write(body.Bytes()); err != nil {
		return fmt.Errorf("writing features: %w", err)
	}
	return nil
}
