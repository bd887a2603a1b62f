package fgb

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrBadMagic indicates that a stream does not start with the FlatGeobuf
// magic bytes.
var ErrBadMagic = errors.New("not a FlatGeobuf file (bad magic)")

// maxRecordSize caps the size prefix of a single header or feature record
// so a corrupt prefix cannot trigger a huge allocation.
const maxRecordSize = 1 << 30

// Reader decodes a FlatGeobuf stream from a seekable source. Search uses
// the packed index when the file carries one and falls back to a full
// scan otherwise.
type Reader struct {
	src      io.ReadSeeker
	hdr      Header
	numItems uint64
	nodeSize uint64
	indexOff int64
	dataOff  int64
}

// NewReader reads and validates the magic and header. The source must
// remain open for the lifetime of the reader.
func NewReader(src io.ReadSeeker) (*Reader, error) {
	var magic [8]byte
	if _, err := io.ReadFull(src, magic[:]); err != nil {
		return nil, fmt.Errorf("reading magic: %w", err)
	}
	if !bytes.Equal(magic[:], Magic[:]) {
		return nil, ErrBadMagic
	}

	body, err := readRecord(src)
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	r := &Reader{src: src, hdr: decodeHeader(body)}
	r.numItems = r.hdr.FeaturesCount
	r.nodeSize = uint64(r.hdr.IndexNodeSize)
	r.indexOff = int64(len(Magic)) + 4 + int64(len(body))
	var idx uint64
	if r.nodeSize > 0 {
		idx = indexSize(r.numItems, r.nodeSize)
	}
	r.dataOff = r.indexOff + int64(idx)
	return r, nil
}

// Header returns the decoded file header.
func (r *Reader) Header() Header {
	return r.hdr
}

// ForEach decodes every feature in file order, stopping at the first
// error fn returns.
func (r *Reader) ForEach(fn func(*Feature) error) error {
	if _, err := r.src.Seek(r.dataOff, io.SeekStart); err != nil {
		return fmt.Errorf("seeking features: %w", err)
	}
	br := bufio.NewReader(r.src)
	for {
		body, err := readRecord(br)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading feature: %w", err)
		}
		f := decodeFeature(body)
		if err := fn(&f); err != nil {
			return err
		}
	}
}

// Search returns the features whose bounds intersect the query rectangle,
// in file order.
func (r *Reader) Search(minX, minY, maxX, maxY float64) ([]Feature, error) {
	if r.nodeSize == 0 || r.numItems == 0 {
		return r.scan(minX, minY, maxX, maxY)
	}

	offsets, err := searchTree(fileNodes{r: r.src, base: r.indexOff}, r.numItems, r.nodeSize, minX, minY, maxX, maxY)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	features := make([]Feature, 0, len(offsets))
	for _, off := range offsets {
		if _, err := r.src.Seek(r.dataOff+int64(off), io.SeekStart); err != nil {
			return nil, fmt.Errorf("seeking feature: %w", err)
		}
		body, err := readRecord(r.src)
		if err != nil {
			return nil, fmt.Errorf("reading feature: %w", err)
		}
		features = append(features, decodeFeature(body))
	}
	return features, nil
}

func (r *Reader) scan(minX, minY, maxX, maxY float64) ([]Feature, error) {
	var features []Feature
	err := r.ForEach(func(f *Feature) error {
		b := f.Bounds()
		if b[0] > maxX || b[2] < minX || b[1] > maxY || b[3] < minY {
			return nil
		}
		features = append(features, *f)
		return nil
	})
	return features, err
}

// readRecord reads one size-prefixed record. A clean io.EOF on the prefix
// marks the end of the stream.
func readRecord(r io.Reader) ([]byte, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, err
	}
	size := binary.LittleEndian.Uint32(prefix[:])
	if size == 0 || size > maxRecordSize {
		return nil, fmt.Errorf("record size %d out of range", size)
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return body, nil
}
