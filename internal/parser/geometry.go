package parser

import (
	"fmt"
	"math"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/fudemap/mojfgb/internal/jgd"
)

const (
	// chainTolerance is the maximum endpoint gap, in meters, at which two
	// curves still count as connected. Registry data is surveyed to the
	// millimeter; anything wider is a broken boundary.
	chainTolerance = 1e-6

	// minRingArea is the area, in square meters, below which a ring is
	// considered collapsed (all vertices on a line or a point) and dropped.
	minRingArea = 1e-6

	// bboxEpsilon pads zero-extent rectangles so the spatial index accepts
	// them.
	bboxEpsilon = 1e-9
)

// shell is one exterior ring with the bookkeeping hole assignment needs.
type shell struct {
	ring  orb.Ring
	area  float64 // absolute area in square meters, computed before projection
	index int
	rect  rtreego.Rect
}

func (s *shell) Bounds() rtreego.Rect { return s.rect }

// BuildGeometry assembles a parcel's polygon from its surfaces: rings are
// chained from curves in plane coordinates, validated, reprojected to
// geographic coordinates, and interior rings are assigned to the exterior
// ring that contains them. Collapsed rings are dropped with a warning; a
// parcel whose every exterior ring collapses returns a nil geometry.
//
// The result is a Polygon for a single-surface parcel and a MultiPolygon
// when the parcel references several surfaces.
func BuildGeometry(doc *Document, parcel *Parcel) (orb.Geometry, []string, error) {
	if !doc.Zone.Valid() {
		return nil, nil, jgd.ErrArbitraryZone
	}

	var warnings []string
	var shells []*shell
	var holes []orb.Ring

	for _, si := range parcel.Surfaces {
		s := &doc.Surfaces[si]

		exterior, err := resolveRing(doc, s.ID, s.Exterior)
		if err != nil {
			return nil, warnings, err
		}
		area := math.Abs(ringArea(exterior))
		if area < minRingArea {
			warnings = append(warnings,
				fmt.Sprintf("parcel %s: collapsed exterior ring in surface %s, surface dropped", parcel.ID, s.ID))
			continue
		}

		ring := projectRing(doc.Zone, exterior)
		if ring.Orientation() != orb.CCW {
			ring.Reverse()
		}
		shells = append(shells, &shell{ring: ring, area: area, index: len(shells)})

		for _, refs := range s.Interior {
			interior, err := resolveRing(doc, s.ID, refs)
			if err != nil {
				return nil, warnings, err
			}
			if math.Abs(ringArea(interior)) < minRingArea {
				warnings = append(warnings,
					fmt.Sprintf("parcel %s: collapsed interior ring in surface %s dropped", parcel.ID, s.ID))
				continue
			}
			hole := projectRing(doc.Zone, interior)
			if hole.Orientation() != orb.CW {
				hole.Reverse()
			}
			holes = append(holes, hole)
		}
	}

	if len(shells) == 0 {
		if len(holes) > 0 {
			return nil, warnings, &ErrHoleOutside{ParcelID: parcel.ID}
		}
		return nil, warnings, nil
	}

	polygons := make([]orb.Polygon, len(shells))
	for i, sh := range shells {
		polygons[i] = orb.Polygon{sh.ring}
	}
	if err := assignHoles(parcel.ID, shells, holes, polygons); err != nil {
		return nil, warnings, err
	}

	if len(polygons) == 1 {
		return polygons[0], warnings, nil
	}
	return orb.MultiPolygon(polygons), warnings, nil
}

// assignHoles places each interior ring into the exterior ring containing
// its first vertex. With several candidates the smallest container wins,
// which handles islands of one surface sitting inside another.
func assignHoles(parcelID string, shells []*shell, holes []orb.Ring, polygons []orb.Polygon) error {
	if len(holes) == 0 {
		return nil
	}

	if len(shells) == 1 {
		for _, hole := range holes {
			if !planar.RingContains(shells[0].ring, hole[0]) {
				return &ErrHoleOutside{ParcelID: parcelID}
			}
			polygons[0] = append(polygons[0], hole)
		}
		return nil
	}

	tree := rtreego.NewTree(2, 2, 8)
	for _, sh := range shells {
		sh.rect = ringRect(sh.ring)
		tree.Insert(sh)
	}

	for _, hole := range holes {
		rep := hole[0]
		query, _ := rtreego.NewRect(rtreego.Point{rep[0], rep[1]}, []float64{bboxEpsilon, bboxEpsilon})

		var best *shell
		for _, hit := range tree.SearchIntersect(query) {
			sh := hit.(*shell)
			if !planar.RingContains(sh.ring, rep) {
				continue
			}
			if best == nil || sh.area < best.area {
				best = sh
			}
		}
		if best == nil {
			return &ErrHoleOutside{ParcelID: parcelID}
		}
		polygons[best.index] = append(polygons[best.index], hole)
	}
	return nil
}

// resolveRing chains the referenced curves into one closed ring in plane
// coordinates. Adjacent curves must share an endpoint within tolerance in
// either orientation; the shared vertex is emitted once.
func resolveRing(doc *Document, sid string, refs []int32) ([]XY, error) {
	first := doc.Curves[refs[0]]

	var ring []XY
	if len(refs) == 1 {
		ring = append(ring, first.Points...)
	} else {
		second := doc.Curves[refs[1]]
		switch {
		case connects(last(first.Points), second.Points):
			ring = append(ring, first.Points...)
		case connects(first.Points[0], second.Points):
			ring = appendReversed(ring, first.Points, len(first.Points))
		default:
			return nil, &ErrChainBreak{SurfaceID: sid, PrevCurve: first.ID, NextCurve: second.ID}
		}

		for i := 1; i < len(refs); i++ {
			c := doc.Curves[refs[i]]
			tail := last(ring)
			switch {
			case near(c.Points[0], tail):
				ring = append(ring, c.Points[1:]...)
			case near(last(c.Points), tail):
				ring = appendReversed(ring, c.Points, len(c.Points)-1)
			default:
				prev := doc.Curves[refs[i-1]]
				return nil, &ErrChainBreak{SurfaceID: sid, PrevCurve: prev.ID, NextCurve: c.ID}
			}
		}
	}

	if !near(ring[0], last(ring)) {
		gap := math.Sqrt(dist2(ring[0], last(ring)))
		return nil, &ErrOpenRing{SurfaceID: sid, Gap: gap}
	}
	// Snap the closure vertex so the ring is exactly closed.
	ring[len(ring)-1] = ring[0]

	if len(ring)-1 < 3 {
		return nil, &ErrShortRing{SurfaceID: sid, Vertices: len(ring) - 1}
	}
	return ring, nil
}

// connects reports whether p matches either endpoint of a curve.
func connects(p XY, curve []XY) bool {
	return near(p, curve[0]) || near(p, curve[len(curve)-1])
}

// appendReversed appends the first n vertices of pts in reverse order, so
// the shared endpoint at pts[n] is not repeated.
func appendReversed(ring []XY, pts []XY, n int) []XY {
	for i := n - 1; i >= 0; i-- {
		ring = append(ring, pts[i])
	}
	return ring
}

func last(pts []XY) XY { return pts[len(pts)-1] }

func near(a, b XY) bool { return dist2(a, b) <= chainTolerance*chainTolerance }

func dist2(a, b XY) float64 {
	dx, dy := a.X-b.X, a.Y-b.Y
	return dx*dx + dy*dy
}

// ringArea is the signed shoelace area of a closed ring in square meters,
// with easting as the horizontal axis. Positive means counterclockwise.
func ringArea(ring []XY) float64 {
	var sum float64
	for i := 0; i+1 < len(ring); i++ {
		sum += ring[i].Y*ring[i+1].X - ring[i+1].Y*ring[i].X
	}
	return sum / 2
}

// projectRing converts plane coordinates to geographic longitude/latitude.
func projectRing(zone jgd.Zone, ring []XY) orb.Ring {
	out := make(orb.Ring, len(ring))
	for i, p := range ring {
		lon, lat := zone.Inverse(p.X, p.Y)
		out[i] = orb.Point{lon, lat}
	}
	return out
}

// ringRect is the bounding rectangle of a ring for the spatial index,
// padded so zero-extent rectangles remain valid.
func ringRect(ring orb.Ring) rtreego.Rect {
	bound := ring.Bound()
	lengths := []float64{
		bound.Max[0] - bound.Min[0],
		bound.Max[1] - bound.Min[1],
	}
	if lengths[0] < bboxEpsilon {
		lengths[0] = bboxEpsilon
	}
	if lengths[1] < bboxEpsilon {
		lengths[1] = bboxEpsilon
	}
	rect, _ := rtreego.NewRect(rtreego.Point{bound.Min[0], bound.Min[1]}, lengths)
	return rect
}
