// Package fgb reads and writes FlatGeobuf: magic bytes, a size-prefixed
// FlatBuffers header, an optional packed Hilbert R-tree index, then
// size-prefixed FlatBuffers feature records.
//
// The package builds and walks the FlatBuffers tables directly with the
// runtime Builder/Table API against the published table layouts, so no
// generated bindings are carried.
//
// References:
//   - https://flatgeobuf.org/ - format specification
//   - flatgeobuf header.fbs / feature.fbs - table layouts and defaults
package fgb

// Magic identifies a FlatGeobuf file: "fgb", major version 3, "fgb",
// patch level 0.
var Magic = [8]byte{0x66, 0x67, 0x62, 0x03, 0x66, 0x67, 0x62, 0x00}

// DefaultNodeSize is the packed R-tree branching factor used when writing.
const DefaultNodeSize = 16

// GeometryType is the FlatGeobuf geometry type enum.
type GeometryType uint8

const (
	GeometryUnknown      GeometryType = 0
	GeometryPoint        GeometryType = 1
	GeometryLineString   GeometryType = 2
	GeometryPolygon      GeometryType = 3
	GeometryMultiPoint   GeometryType = 4
	GeometryMultiLine    GeometryType = 5
	GeometryMultiPolygon GeometryType = 6
)

func (t GeometryType) String() string {
	switch t {
	case GeometryUnknown:
		return "Unknown"
	case GeometryPoint:
		return "Point"
	case GeometryLineString:
		return "LineString"
	case GeometryPolygon:
		return "Polygon"
	case GeometryMultiPoint:
		return "MultiPoint"
	case GeometryMultiLine:
		return "MultiLineString"
	case GeometryMultiPolygon:
		return "MultiPolygon"
	}
	return "GeometryType(?)"
}

// ColumnType is the FlatGeobuf column type enum.
type ColumnType uint8

const (
	ColumnByte     ColumnType = 0
	ColumnUByte    ColumnType = 1
	ColumnBool     ColumnType = 2
	ColumnShort    ColumnType = 3
	ColumnUShort   ColumnType = 4
	ColumnInt      ColumnType = 5
	ColumnUInt     ColumnType = 6
	ColumnLong     ColumnType = 7
	ColumnULong    ColumnType = 8
	ColumnFloat    ColumnType = 9
	ColumnDouble   ColumnType = 10
	ColumnString   ColumnType = 11
	ColumnJSON     ColumnType = 12
	ColumnDateTime ColumnType = 13
	ColumnBinary   ColumnType = 14
)

// Column describes one attribute column in the header schema.
type Column struct {
	Name        string
	Type        ColumnType
	Title       string
	Description string
	Width       int32
	Precision   int32
	Scale       int32
	Nullable    bool
	Unique      bool
	PrimaryKey  bool
	Metadata    string
}

// NewColumn returns a column with the schema defaults: unknown width,
// precision, and scale, nullable.
func NewColumn(name string, t ColumnType) Column {
	return Column{
		Name:      name,
		Type:      t,
		Width:     -1,
		Precision: -1,
		Scale:     -1,
		Nullable:  true,
	}
}

// Crs identifies the coordinate reference system of all coordinates in the
// file.
type Crs struct {
	Org         string
	Code        int32
	Name        string
	Description string
	WKT         string
	CodeString  string
}

// Header carries the dataset-level fields of the FlatGeobuf header record.
// Envelope is [minX, minY, maxX, maxY], nil when unset.
type Header struct {
	Name          string
	Envelope      []float64
	GeometryType  GeometryType
	Columns       []Column
	FeaturesCount uint64
	IndexNodeSize uint16
	Crs           *Crs
	Title         string
	Description   string
	Metadata      string
}

// Geometry is one geometry record. XY holds interleaved coordinates; Ends
// holds the cumulative coordinate count at the end of each ring and is
// only present for multi-ring geometries; Parts holds the members of a
// multi-part geometry, each with its own XY.
type Geometry struct {
	Type  GeometryType
	XY    []float64
	Ends  []uint32
	Parts []*Geometry
}

// Feature is one feature record: a geometry plus the property blob encoded
// against the header schema.
type Feature struct {
	Geometry   *Geometry
	Properties []byte
}

// bbox accumulates the bounds of a geometry including nested parts.
func (g *Geometry) bbox(b *nodeItem) {
	if g == nil {
		return
	}
	for i := 0; i+1 < len(g.XY); i += 2 {
		b.expandXY(g.XY[i], g.XY[i+1])
	}
	for _, part := range g.Parts {
		part.bbox(b)
	}
}

// Bounds returns [minX, minY, maxX, maxY] of the feature's geometry.
func (f *Feature) Bounds() [4]float64 {
	b := newNodeItem(0)
	if f.Geometry != nil {
		f.Geometry.bbox(&b)
	}
	return [4]float64{b.minX, b.minY, b.maxX, b.maxY}
}
