package parser

import (
	"errors"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/fudemap/mojfgb/internal/jgd"
)

// geomDoc builds a zone 9 document around prepared curves and surfaces.
func geomDoc(curves []Curve, surfaces []Surface) *Document {
	return &Document{
		Name:     "geom.xml",
		ZoneName: "公共座標9系",
		Zone:     jgd.Zone(9),
		Curves:   curves,
		Surfaces: surfaces,
	}
}

// closedSquare is a single closed curve around the square with corners at
// (x0,y0) and (x1,y1), counterclockwise in map view.
func closedSquare(id string, x0, y0, x1, y1 float64) Curve {
	return Curve{ID: id, Points: []XY{
		{X: x0, Y: y0}, {X: x0, Y: y1}, {X: x1, Y: y1}, {X: x1, Y: y0}, {X: x0, Y: y0},
	}}
}

// TestBuildGeometrySquare tests the basic case: a square split across two
// curves joined by point references
func TestBuildGeometrySquare(t *testing.T) {
	doc := geomDoc(
		[]Curve{
			{ID: "c1", Points: []XY{{0, 0}, {0, 10}, {10, 10}}},
			{ID: "c2", Points: []XY{{10, 10}, {10, 0}, {0, 0}}},
		},
		[]Surface{{ID: "s1", Exterior: []int32{0, 1}}},
	)
	parcel := &Parcel{ID: "f1", Surfaces: []int32{0}}

	geom, warnings, err := BuildGeometry(doc, parcel)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}

	poly, ok := geom.(orb.Polygon)
	if !ok {
		t.Fatalf("expected Polygon, got %T", geom)
	}
	if len(poly) != 1 {
		t.Fatalf("expected 1 ring, got %d", len(poly))
	}
	ring := poly[0]
	if len(ring) != 5 {
		t.Fatalf("expected 5 vertices, got %d", len(ring))
	}
	if ring[0] != ring[len(ring)-1] {
		t.Error("ring must be exactly closed")
	}
	if ring.Orientation() != orb.CCW {
		t.Error("exterior ring must be counterclockwise")
	}

	// The (0,0) plane corner is the zone 9 origin.
	origin := ring[0]
	if math.Abs(origin[0]-(139+50.0/60)) > 1e-9 || math.Abs(origin[1]-36) > 1e-9 {
		t.Errorf("expected origin corner near (139.8333, 36), got %v", origin)
	}
	for i, p := range ring {
		if math.Abs(p[0]-origin[0]) > 0.001 || math.Abs(p[1]-origin[1]) > 0.001 {
			t.Errorf("vertex %d unreasonably far from origin: %v", i, p)
		}
	}

	// Projecting the ring back onto the plane must recover the square's
	// 100 m² area.
	plane := make(orb.Ring, len(ring))
	for i, p := range ring {
		x, y := jgd.Zone(9).Forward(p[0], p[1])
		plane[i] = orb.Point{y, x}
	}
	if area := math.Abs(planar.Area(plane)); math.Abs(area-100) > 1e-6 {
		t.Errorf("plane area after round trip = %.9f, expected 100", area)
	}
}

// TestBuildGeometryCurveOrientation tests chaining when stored curve
// direction disagrees with ring direction
func TestBuildGeometryCurveOrientation(t *testing.T) {
	tests := []struct {
		name        string
		curves      []Curve
		exterior    []int32
		description string
	}{
		{
			name: "Second curve reversed",
			curves: []Curve{
				{ID: "c1", Points: []XY{{0, 0}, {0, 10}, {10, 10}}},
				{ID: "c2", Points: []XY{{0, 0}, {10, 0}, {10, 10}}},
			},
			exterior:    []int32{0, 1},
			description: "A curve stored end-to-start should chain reversed",
		},
		{
			name: "First segment reversed",
			curves: []Curve{
				{ID: "c1", Points: []XY{{0, 10}, {0, 0}}},
				{ID: "c2", Points: []XY{{0, 10}, {10, 5}}},
				{ID: "c3", Points: []XY{{10, 5}, {0, 0}}},
			},
			exterior:    []int32{0, 1, 2},
			description: "A first curve pointing backwards should chain reversed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := geomDoc(tt.curves, []Surface{{ID: "s1", Exterior: tt.exterior}})
			geom, _, err := BuildGeometry(doc, &Parcel{ID: "f1", Surfaces: []int32{0}})
			if err != nil {
				t.Fatalf("%s: unexpected error: %v", tt.description, err)
			}
			poly, ok := geom.(orb.Polygon)
			if !ok {
				t.Fatalf("%s: expected Polygon, got %T", tt.description, geom)
			}
			ring := poly[0]
			if ring[0] != ring[len(ring)-1] {
				t.Errorf("%s: ring not closed", tt.description)
			}
			if ring.Orientation() != orb.CCW {
				t.Errorf("%s: exterior ring not counterclockwise", tt.description)
			}
		})
	}
}

// TestBuildGeometryChainErrors tests boundary defects that must fail
func TestBuildGeometryChainErrors(t *testing.T) {
	t.Run("Disconnected curves", func(t *testing.T) {
		doc := geomDoc(
			[]Curve{
				{ID: "c1", Points: []XY{{0, 0}, {0, 10}}},
				{ID: "c2", Points: []XY{{50, 50}, {60, 60}}},
			},
			[]Surface{{ID: "s1", Exterior: []int32{0, 1}}},
		)
		_, _, err := BuildGeometry(doc, &Parcel{ID: "f1", Surfaces: []int32{0}})
		var chain *ErrChainBreak
		if !errors.As(err, &chain) {
			t.Fatalf("expected ErrChainBreak, got %v", err)
		}
		if chain.SurfaceID != "s1" || chain.PrevCurve != "c1" || chain.NextCurve != "c2" {
			t.Errorf("expected s1: c1 -> c2, got %+v", chain)
		}
	})

	t.Run("Open ring", func(t *testing.T) {
		doc := geomDoc(
			[]Curve{{ID: "c1", Points: []XY{{0, 0}, {0, 10}, {10, 10}, {10, 0}}}},
			[]Surface{{ID: "s1", Exterior: []int32{0}}},
		)
		_, _, err := BuildGeometry(doc, &Parcel{ID: "f1", Surfaces: []int32{0}})
		var open *ErrOpenRing
		if !errors.As(err, &open) {
			t.Fatalf("expected ErrOpenRing, got %v", err)
		}
		if math.Abs(open.Gap-10) > 1e-9 {
			t.Errorf("expected gap 10m, got %f", open.Gap)
		}
	})

	t.Run("Too few distinct vertices", func(t *testing.T) {
		doc := geomDoc(
			[]Curve{{ID: "c1", Points: []XY{{0, 0}, {0, 10}, {0, 0}}}},
			[]Surface{{ID: "s1", Exterior: []int32{0}}},
		)
		_, _, err := BuildGeometry(doc, &Parcel{ID: "f1", Surfaces: []int32{0}})
		var short *ErrShortRing
		if !errors.As(err, &short) {
			t.Fatalf("expected ErrShortRing, got %v", err)
		}
		if short.Vertices != 2 {
			t.Errorf("expected 2 distinct vertices, got %d", short.Vertices)
		}
	})
}

// TestBuildGeometryClosureSnap tests that a ring closing within tolerance
// snaps to exact closure
func TestBuildGeometryClosureSnap(t *testing.T) {
	doc := geomDoc(
		[]Curve{{ID: "c1", Points: []XY{
			{0, 0}, {0, 10}, {10, 10}, {10, 0}, {1e-8, -1e-8},
		}}},
		[]Surface{{ID: "s1", Exterior: []int32{0}}},
	)
	geom, _, err := BuildGeometry(doc, &Parcel{ID: "f1", Surfaces: []int32{0}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ring := geom.(orb.Polygon)[0]
	if ring[0] != ring[len(ring)-1] {
		t.Errorf("closure vertex not snapped: %v vs %v", ring[0], ring[len(ring)-1])
	}
}

// TestBuildGeometryCollapsedRings tests near-zero-area rings
func TestBuildGeometryCollapsedRings(t *testing.T) {
	t.Run("Collapsed exterior drops surface with warning", func(t *testing.T) {
		doc := geomDoc(
			[]Curve{{ID: "c1", Points: []XY{{0, 0}, {0, 5}, {0, 10}, {0, 0}}}},
			[]Surface{{ID: "s1", Exterior: []int32{0}}},
		)
		geom, warnings, err := BuildGeometry(doc, &Parcel{ID: "f1", Surfaces: []int32{0}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if geom != nil {
			t.Errorf("expected nil geometry, got %T", geom)
		}
		if len(warnings) != 1 {
			t.Fatalf("expected 1 warning, got %v", warnings)
		}
	})

	t.Run("Collapsed interior dropped with warning", func(t *testing.T) {
		doc := geomDoc(
			[]Curve{
				closedSquare("c1", 0, 0, 10, 10),
				{ID: "c2", Points: []XY{{2, 2}, {2, 4}, {2, 6}, {2, 2}}},
			},
			[]Surface{{ID: "s1", Exterior: []int32{0}, Interior: [][]int32{{1}}}},
		)
		geom, warnings, err := BuildGeometry(doc, &Parcel{ID: "f1", Surfaces: []int32{0}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		poly := geom.(orb.Polygon)
		if len(poly) != 1 {
			t.Errorf("expected hole to be dropped, got %d rings", len(poly))
		}
		if len(warnings) != 1 {
			t.Errorf("expected 1 warning, got %v", warnings)
		}
	})
}

// TestBuildGeometryHoles tests interior ring handling
func TestBuildGeometryHoles(t *testing.T) {
	t.Run("Hole inside single shell", func(t *testing.T) {
		doc := geomDoc(
			[]Curve{
				closedSquare("c1", 0, 0, 10, 10),
				closedSquare("c2", 2, 2, 4, 4),
			},
			[]Surface{{ID: "s1", Exterior: []int32{0}, Interior: [][]int32{{1}}}},
		)
		geom, _, err := BuildGeometry(doc, &Parcel{ID: "f1", Surfaces: []int32{0}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		poly := geom.(orb.Polygon)
		if len(poly) != 2 {
			t.Fatalf("expected shell and hole, got %d rings", len(poly))
		}
		if poly[1].Orientation() != orb.CW {
			t.Error("interior ring must be clockwise")
		}
		if !planar.RingContains(poly[0], poly[1][0]) {
			t.Error("hole must lie inside its shell")
		}
	})

	t.Run("Hole outside shell", func(t *testing.T) {
		doc := geomDoc(
			[]Curve{
				closedSquare("c1", 0, 0, 10, 10),
				closedSquare("c2", 20, 20, 22, 22),
			},
			[]Surface{{ID: "s1", Exterior: []int32{0}, Interior: [][]int32{{1}}}},
		)
		_, _, err := BuildGeometry(doc, &Parcel{ID: "f1", Surfaces: []int32{0}})
		var outside *ErrHoleOutside
		if !errors.As(err, &outside) {
			t.Fatalf("expected ErrHoleOutside, got %v", err)
		}
		if outside.ParcelID != "f1" {
			t.Errorf("expected parcel f1, got %s", outside.ParcelID)
		}
	})

	t.Run("Hole assigned across multiple shells", func(t *testing.T) {
		doc := geomDoc(
			[]Curve{
				closedSquare("c1", 0, 0, 10, 10),
				closedSquare("c2", 0, 100, 10, 110),
				closedSquare("c3", 2, 102, 4, 104),
			},
			[]Surface{
				{ID: "s1", Exterior: []int32{0}},
				{ID: "s2", Exterior: []int32{1}, Interior: [][]int32{{2}}},
			},
		)
		geom, _, err := BuildGeometry(doc, &Parcel{ID: "f1", Surfaces: []int32{0, 1}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		mp, ok := geom.(orb.MultiPolygon)
		if !ok {
			t.Fatalf("expected MultiPolygon, got %T", geom)
		}
		if len(mp) != 2 {
			t.Fatalf("expected 2 polygons, got %d", len(mp))
		}
		if len(mp[0]) != 1 {
			t.Errorf("first polygon should have no holes, got %d rings", len(mp[0]))
		}
		if len(mp[1]) != 2 {
			t.Errorf("second polygon should carry the hole, got %d rings", len(mp[1]))
		}
	})

	t.Run("Smallest containing shell wins", func(t *testing.T) {
		doc := geomDoc(
			[]Curve{
				closedSquare("c1", 0, 0, 100, 100),
				closedSquare("c2", 10, 10, 20, 20),
				closedSquare("c3", 12, 12, 14, 14),
			},
			[]Surface{
				{ID: "s1", Exterior: []int32{0}, Interior: [][]int32{{2}}},
				{ID: "s2", Exterior: []int32{1}},
			},
		)
		geom, _, err := BuildGeometry(doc, &Parcel{ID: "f1", Surfaces: []int32{0, 1}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		mp := geom.(orb.MultiPolygon)
		if len(mp[0]) != 1 {
			t.Errorf("outer shell should not receive the hole, got %d rings", len(mp[0]))
		}
		if len(mp[1]) != 2 {
			t.Errorf("inner shell should receive the hole, got %d rings", len(mp[1]))
		}
	})
}

// TestBuildGeometryArbitraryZone tests that unprojectable documents are
// refused
func TestBuildGeometryArbitraryZone(t *testing.T) {
	doc := &Document{
		Name:     "local.xml",
		ZoneName: jgd.ArbitraryZoneName,
		Curves:   []Curve{closedSquare("c1", 0, 0, 10, 10)},
		Surfaces: []Surface{{ID: "s1", Exterior: []int32{0}}},
	}
	_, _, err := BuildGeometry(doc, &Parcel{ID: "f1", Surfaces: []int32{0}})
	if !errors.Is(err, jgd.ErrArbitraryZone) {
		t.Errorf("expected ErrArbitraryZone, got %v", err)
	}
}
