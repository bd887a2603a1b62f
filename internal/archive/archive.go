// Package archive gives the converter shared read access to one cadastral
// distribution ZIP. Distributions come in two shapes: XML documents stored
// directly in the archive, or one small ZIP per municipality nested inside
// the distribution, each holding its documents. Both shapes are handled
// here so callers only ever see named document cursors.
//
// One Archive is opened per run and its directory is loaded once. Cursors
// are independent of each other: each wraps its own decompressor over a
// positionless section read of the underlying file, so workers can stream
// different entries concurrently without sharing any per-byte lock.
package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// ErrNoDocuments reports a nested municipality archive with no XML inside.
var ErrNoDocuments = errors.New("nested archive contains no XML documents")

// Archive is an opened distribution container.
type Archive struct {
	rc      *zip.ReadCloser
	entries []*Entry
}

// Entry is one unit of work: a distribution entry holding cadastral XML,
// either directly or wrapped in a nested municipality archive.
type Entry struct {
	Name             string
	CompressedSize   uint64
	UncompressedSize uint64
	CRC32            uint32

	zf     *zip.File
	nested bool
}

// Cursor streams one document's decompressed bytes. The ZIP layer verifies
// the entry checksum as the stream drains: a corrupted payload surfaces as
// zip.ErrChecksum from Read once the final byte has been consumed.
type Cursor struct {
	// Name identifies the document for provenance and diagnostics, e.g.
	// "26101.xml" or "kyoto.zip/26101-3424.xml" for nested documents.
	Name string

	rc io.ReadCloser
}

func (c *Cursor) Read(p []byte) (int, error) { return c.rc.Read(p) }

func (c *Cursor) Close() error { return c.rc.Close() }

// Open opens a distribution container and loads its directory. Entries
// that are neither XML documents nor nested archives (manifests, readme
// files, directory markers) are left out of the work list.
func Open(name string) (*Archive, error) {
	rc, err := zip.OpenReader(name)
	if err != nil {
		return nil, fmt.Errorf("opening container %s: %w", name, err)
	}

	a := &Archive{rc: rc}
	for _, zf := range rc.File {
		if zf.FileInfo().IsDir() {
			continue
		}
		nested := hasExt(zf.Name, ".zip")
		if !nested && !hasExt(zf.Name, ".xml") {
			continue
		}
		a.entries = append(a.entries, &Entry{
			Name:             zf.Name,
			CompressedSize:   zf.CompressedSize64,
			UncompressedSize: zf.UncompressedSize64,
			CRC32:            zf.CRC32,
			zf:               zf,
			nested:           nested,
		})
	}
	return a, nil
}

// Entries returns the work units in central-directory order. The order is
// a property of the container, so it is stable across runs. The returned
// slice is shared and must not be mutated.
func (a *Archive) Entries() []*Entry { return a.entries }

func (a *Archive) Close() error { return a.rc.Close() }

// Cursors opens the entry and returns one cursor per XML document in it:
// the entry's own stream for a plain document, or one per document inside
// a nested archive. Nested payloads are decompressed into memory first —
// municipality archives hold a handful of documents at most, and their
// checksum is verified during that read.
func (e *Entry) Cursors() ([]*Cursor, error) {
	rc, err := e.zf.Open()
	if err != nil {
		return nil, fmt.Errorf("entry %s: %w", e.Name, err)
	}

	if !e.nested {
		return []*Cursor{{Name: e.Name, rc: rc}}, nil
	}
	defer rc.Close()

	buf, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("entry %s: %w", e.Name, err)
	}
	inner, err := zip.NewReader(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		return nil, fmt.Errorf("nested archive %s: %w", e.Name, err)
	}

	var cursors []*Cursor
	for _, zf := range inner.File {
		if zf.FileInfo().IsDir() || !hasExt(zf.Name, ".xml") {
			continue
		}
		irc, err := zf.Open()
		if err != nil {
			closeAll(cursors)
			return nil, fmt.Errorf("nested archive %s: %w", e.Name, err)
		}
		cursors = append(cursors, &Cursor{Name: e.Name + "/" + zf.Name, rc: irc})
	}
	if len(cursors) == 0 {
		return nil, fmt.Errorf("nested archive %s: %w", e.Name, ErrNoDocuments)
	}
	return cursors, nil
}

func closeAll(cursors []*Cursor) {
	for _, c := range cursors {
		c.Close()
	}
}

func hasExt(name, ext string) bool {
	return strings.EqualFold(path.Ext(name), ext)
}
