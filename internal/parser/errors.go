package parser

import (
	"errors"
	"fmt"
)

// ErrMissingZone indicates a document that never declared its coordinate
// system (座標系)
var ErrMissingZone = errors.New("no coordinate system declaration (座標系)")

// ErrSyntax indicates malformed XML or unexpected document structure
type ErrSyntax struct {
	Line   int
	Offset int64
	Msg    string
	Err    error
}

func (e *ErrSyntax) Error() string {
	switch {
	case e.Line > 0:
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	case e.Offset > 0:
		return fmt.Sprintf("offset %d: %s", e.Offset, e.Msg)
	}
	return e.Msg
}

func (e *ErrSyntax) Unwrap() error { return e.Err }

// ErrMissingPoint indicates a curve references a point id not declared in
// the same document
type ErrMissingPoint struct {
	CurveID string
	PointID string
}

func (e *ErrMissingPoint) Error() string {
	return fmt.Sprintf("curve %s references missing point %s", e.CurveID, e.PointID)
}

// ErrMissingCurve indicates a surface ring references a curve id not
// declared in the same document
type ErrMissingCurve struct {
	SurfaceID string
	CurveID   string
}

func (e *ErrMissingCurve) Error() string {
	return fmt.Sprintf("surface %s references missing curve %s", e.SurfaceID, e.CurveID)
}

// ErrMissingSurface indicates a parcel shape (形状) references a surface id
// not declared in the same document
type ErrMissingSurface struct {
	ParcelID  string
	SurfaceID string
}

func (e *ErrMissingSurface) Error() string {
	return fmt.Sprintf("parcel %s references missing surface %s", e.ParcelID, e.SurfaceID)
}

// ErrChainBreak indicates two adjacent curves in a ring boundary share no
// endpoint within tolerance in either orientation
type ErrChainBreak struct {
	SurfaceID string
	PrevCurve string
	NextCurve string
}

func (e *ErrChainBreak) Error() string {
	return fmt.Sprintf("surface %s: curve %s does not connect to curve %s",
		e.SurfaceID, e.PrevCurve, e.NextCurve)
}

// ErrOpenRing indicates a chained ring boundary does not return to its
// starting point
type ErrOpenRing struct {
	SurfaceID string
	Gap       float64
}

func (e *ErrOpenRing) Error() string {
	return fmt.Sprintf("surface %s: ring does not close (gap %.3fm)", e.SurfaceID, e.Gap)
}

// ErrShortRing indicates a closed ring with fewer than three distinct
// vertices
type ErrShortRing struct {
	SurfaceID string
	Vertices  int
}

func (e *ErrShortRing) Error() string {
	return fmt.Sprintf("surface %s: ring has only %d distinct vertices", e.SurfaceID, e.Vertices)
}

// ErrHoleOutside indicates an interior ring that no exterior ring of the
// same parcel contains
type ErrHoleOutside struct {
	ParcelID string
}

func (e *ErrHoleOutside) Error() string {
	return fmt.Sprintf("parcel %s: interior ring outside every exterior ring", e.ParcelID)
}
