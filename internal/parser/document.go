package parser

import "github.com/fudemap/mojfgb/internal/jgd"

// XY represents one surveyed position in projected plane coordinates.
// MOJ 地図XML stores X as northing and Y as easting, in meters from the
// zone origin.
type XY struct {
	X float64 // northing (meters)
	Y float64 // easting (meters)
}

// Curve represents a GM_Curve: an open polyline of two or more positions.
// Point references (GM_PointRef) are resolved to coordinates during parsing,
// so Points holds the final vertex run in document order.
type Curve struct {
	ID     string // XML id attribute
	Points []XY
}

// Surface represents a GM_Surface: one exterior ring and zero or more
// interior rings, each ring an ordered list of curve references
// (GM_CompositeCurve generators). Indices point into Document.Curves.
type Surface struct {
	ID       string  // XML id attribute
	Exterior []int32 // curve indices of the exterior boundary
	Interior [][]int32
}

// Parcel represents a 筆 record: the registered parcel with its shape
// references and thematic attributes. Indices point into Document.Surfaces;
// more than one surface means the parcel maps to a multi-part geometry.
type Parcel struct {
	ID       string  // XML id attribute
	Surfaces []int32 // 形状 references, document order
	Attrs    map[string]string
}

// Document represents one parsed 地図XML document with all cross-references
// resolved to arena indices. Slice order preserves document order, which
// downstream stages rely on for deterministic output.
type Document struct {
	Name     string   // document name inside the archive
	ZoneName string   // raw 座標系 text
	Zone     jgd.Zone // zero when the document uses 任意座標系
	Curves   []Curve
	Surfaces []Surface
	Parcels  []Parcel
}

// Arbitrary reports whether the document declares 任意座標系, the local
// survey grid that cannot be reprojected to geographic coordinates.
func (d *Document) Arbitrary() bool {
	return d.ZoneName == jgd.ArbitraryZoneName
}
