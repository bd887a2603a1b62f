package mojfgb

import (
	"encoding/binary"
	"fmt"

	"github.com/paulmach/orb"

	"github.com/fudemap/mojfgb/internal/fgb"
	"github.com/fudemap/mojfgb/internal/parser"
)

// Feature is one parcel: a polygon in JGD2011 longitude/latitude with its
// cadastral attributes.
type Feature struct {
	id       string
	source   string
	geometry orb.Geometry
	attrs    map[string]string
}

// ID returns the parcel identifier from the source document.
func (f *Feature) ID() string {
	return f.id
}

// Source returns the document name the parcel was read from. Features read
// back from a file have no source.
func (f *Feature) Source() string {
	return f.source
}

// Geometry returns the parcel geometry, an orb.Polygon or orb.MultiPolygon.
func (f *Feature) Geometry() orb.Geometry {
	return f.geometry
}

// Bound returns the parcel's bounding box.
func (f *Feature) Bound() orb.Bound {
	return f.geometry.Bound()
}

// Attributes returns the parcel's attributes keyed by source element name.
// The returned map is shared, not a copy.
func (f *Feature) Attributes() map[string]string {
	return f.attrs
}

// Attribute returns the named attribute value and whether it is present.
func (f *Feature) Attribute(name string) (string, bool) {
	v, ok := f.attrs[name]
	return v, ok
}

// schemaColumns returns the property schema for a feature set: the id column
// first, then the union of attribute names in catalogue order.
func schemaColumns(features []Feature) []string {
	seen := make(map[string]bool)
	var names []string
	for i := range features {
		for name := range features[i].attrs {
			if name == parser.IDColumn || seen[name] {
				continue
			}
			seen[name] = true
			names = append(names, name)
		}
	}
	parser.SortColumns(names)
	return append([]string{parser.IDColumn}, names...)
}

// encodeProperties encodes a feature's properties against the column schema:
// for each present value, a little-endian uint16 column index, a uint32 byte
// length, and the UTF-8 bytes. Absent attributes are omitted; the id column
// is always written.
func encodeProperties(columns []string, f *Feature) []byte {
	var buf []byte
	var scratch [6]byte
	for i, name := range columns {
		var val string
		if name == parser.IDColumn {
			val = f.id
		} else {
			v, ok := f.attrs[name]
			if !ok {
				continue
			}
			val = v
		}
		binary.LittleEndian.PutUint16(scratch[0:2], uint16(i))
		binary.LittleEndian.PutUint32(scratch[2:6], uint32(len(val)))
		buf = append(buf, scratch[:]...)
		buf = append(buf, val...)
	}
	return buf
}

// decodeProperties decodes a property record against the column schema,
// splitting out the id column from the remaining attributes.
func decodeProperties(columns []fgb.Column, blob []byte) (string, map[string]string, error) {
	var id string
	attrs := make(map[string]string)
	pos := 0
	for pos < len(blob) {
		if pos+6 > len(blob) {
			return "", nil, fmt.Errorf("property record truncated at byte %d", pos)
		}
		idx := int(binary.LittleEndian.Uint16(blob[pos : pos+2]))
		n := int(binary.LittleEndian.Uint32(blob[pos+2 : pos+6]))
		pos += 6
		if idx >= len(columns) {
			return "", nil, fmt.Errorf("property column %d out of range", idx)
		}
		col := columns[idx]
		if col.Type != fgb.ColumnString {
			return "", nil, fmt.Errorf("property column %s has unsupported type %d", col.Name, col.Type)
		}
		if pos+n > len(blob) {
			return "", nil, fmt.Errorf("property value for %s truncated", col.Name)
		}
		val := string(blob[pos : pos+n])
		pos += n
		if col.Name == parser.IDColumn {
			id = val
		} else {
			attrs[col.Name] = val
		}
	}
	return id, attrs, nil
}

// geometryRecord converts a parcel geometry to its file representation.
func geometryRecord(g orb.Geometry) *fgb.Geometry {
	switch geom := g.(type) {
	case orb.Polygon:
		return polygonRecord(geom)
	case orb.MultiPolygon:
		rec := &fgb.Geometry{Type: fgb.GeometryMultiPolygon}
		for _, poly := range geom {
			rec.Parts = append(rec.Parts, polygonRecord(poly))
		}
		return rec
	default:
		return nil
	}
}

func polygonRecord(poly orb.Polygon) *fgb.Geometry {
	rec := &fgb.Geometry{Type: fgb.GeometryPolygon}
	var pairs uint32
	for _, ring := range poly {
		for _, pt := range ring {
			rec.XY = append(rec.XY, pt[0], pt[1])
		}
		pairs += uint32(len(ring))
		if len(poly) > 1 {
			rec.Ends = append(rec.Ends, pairs)
		}
	}
	return rec
}

// geometryValue converts a file geometry back to a parcel geometry.
func geometryValue(rec *fgb.Geometry) (orb.Geometry, error) {
	if rec == nil {
		return nil, fmt.Errorf("feature has no geometry")
	}
	switch rec.Type {
	case fgb.GeometryPolygon:
		return polygonValue(rec)
	case fgb.GeometryMultiPolygon:
		var multi orb.MultiPolygon
		for _, part := range rec.Parts {
			poly, err := polygonValue(part)
			if err != nil {
				return nil, err
			}
			multi = append(multi, poly)
		}
		return multi, nil
	default:
		return nil, fmt.Errorf("unsupported geometry type %s", rec.Type)
	}
}

func polygonValue(rec *fgb.Geometry) (orb.Polygon, error) {
	if len(rec.XY)%2 != 0 {
		return nil, fmt.Errorf("geometry has odd coordinate count %d", len(rec.XY))
	}
	pairs := uint32(len(rec.XY) / 2)
	ends := rec.Ends
	if len(ends) == 0 {
		ends = []uint32{pairs}
	}
	var poly orb.Polygon
	var start uint32
	for _, end := range ends {
		if end < start || end > pairs {
			return nil, fmt.Errorf("ring end %d out of range", end)
		}
		ring := make(orb.Ring, 0, end-start)
		for i := start; i < end; i++ {
			ring = append(ring, orb.Point{rec.XY[2*i], rec.XY[2*i+1]})
		}
		poly = append(poly, ring)
		start = end
	}
	return poly, nil
}
