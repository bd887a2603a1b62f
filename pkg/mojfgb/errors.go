package mojfgb

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"

	"github.com/fudemap/mojfgb/internal/jgd"
	"github.com/fudemap/mojfgb/internal/parser"
)

// Kind classifies a conversion failure.
type Kind int

const (
	// KindIO covers filesystem and archive access failures.
	KindIO Kind = iota
	// KindParse covers malformed XML.
	KindParse
	// KindData covers structurally valid XML whose content is inconsistent,
	// such as dangling references or corrupt archive payloads.
	KindData
	// KindConfig covers documents the converter cannot handle as configured,
	// such as arbitrary coordinate systems.
	KindConfig
	// KindEncode covers failures while writing the output file.
	KindEncode
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindParse:
		return "parse"
	case KindData:
		return "data"
	case KindConfig:
		return "config"
	case KindEncode:
		return "encode"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is the error type returned by Convert. It carries the failure
// classification and, for entry-level failures, the archive entry name.
type Error struct {
	Kind  Kind
	Entry string
	Err   error
}

func (e *Error) Error() string {
	if e.Entry != "" {
		return fmt.Sprintf("%s: %s", e.Entry, e.Err)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf reports the classification of err. Errors produced by this package
// carry their Kind directly; errors from parsing and geometry resolution are
// mapped by type. Unrecognized errors classify as KindIO.
func KindOf(err error) Kind {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Kind
	}

	var syntax *parser.ErrSyntax
	if errors.As(err, &syntax) {
		return KindParse
	}

	var unknownZone *jgd.UnknownZoneError
	if errors.Is(err, jgd.ErrArbitraryZone) ||
		errors.Is(err, parser.ErrMissingZone) ||
		errors.As(err, &unknownZone) {
		return KindConfig
	}

	var (
		missingPoint   *parser.ErrMissingPoint
		missingCurve   *parser.ErrMissingCurve
		missingSurface *parser.ErrMissingSurface
		chainBreak     *parser.ErrChainBreak
		openRing       *parser.ErrOpenRing
		shortRing      *parser.ErrShortRing
		holeOutside    *parser.ErrHoleOutside
	)
	if errors.Is(err, zip.ErrChecksum) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.As(err, &missingPoint) ||
		errors.As(err, &missingCurve) ||
		errors.As(err, &missingSurface) ||
		errors.As(err, &chainBreak) ||
		errors.As(err, &openRing) ||
		errors.As(err, &shortRing) ||
		errors.As(err, &holeOutside) {
		return KindData
	}

	return KindIO
}
