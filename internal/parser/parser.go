// Package parser reads MOJ 地図XML documents into an in-memory arena of
// curves, surfaces, and parcels with all cross-references resolved to
// indices.
//
// 地図XML is the Ministry of Justice registry-map format: one document per
// map sheet, spatial primitives (GM_Point, GM_Curve, GM_Surface) under
// 空間属性, and thematic records (筆 and survey marks) under 主題属性
// referencing the primitives by idref. References never cross documents.
//
// References:
//   - 法務省 登記所備付地図データ 地図XMLフォーマット: element structure
//   - JIS X 7131 (ISO 19107): the GM_* geometry model the format borrows
package parser

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/japanese"

	"github.com/fudemap/mojfgb/internal/jgd"
)

// ParseOptions configures parsing behavior
type ParseOptions struct {
	// IncludePlaceholders: if true, keep parcels whose 地番 marks a
	// map-sheet placeholder (地区外 or 別図) rather than a real parcel
	// Default: false (placeholder parcels are dropped)
	IncludePlaceholders bool
}

// DefaultParseOptions returns parse options with defaults
func DefaultParseOptions() ParseOptions {
	return ParseOptions{
		IncludePlaceholders: false,
	}
}

// Parse reads one 地図XML document and returns the resolved arena.
// The document name is used only for error context.
func Parse(r io.Reader, name string, opts ParseOptions) (*Document, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charsetReader

	p := &docParser{
		dec:        dec,
		opts:       opts,
		points:     make(map[string]XY),
		curveIdx:   make(map[string]int32),
		surfaceIdx: make(map[string]int32),
	}

	// 1. Decode the XML stream into raw records with unresolved idrefs
	if err := p.parseMap(); err != nil {
		return nil, fmt.Errorf("document %s: %w", name, err)
	}

	// 2. Resolve point, curve, and surface references into arena indices
	doc, err := p.finalize()
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", name, err)
	}
	doc.Name = name
	return doc, nil
}

// control is one GM_Curve control point: either a point reference or an
// inline position
type control struct {
	ref string
	xy  XY
}

type rawCurve struct {
	id       string
	controls []control
}

type rawSurface struct {
	id       string
	exterior []string
	interior [][]string
}

type rawParcel struct {
	id       string
	surfaces []string
	attrs    map[string]string
}

// docParser holds decoder state for one document
type docParser struct {
	dec  *xml.Decoder
	opts ParseOptions

	zoneName string
	zone     jgd.Zone

	points     map[string]XY
	curves     []rawCurve
	curveIdx   map[string]int32
	surfaces   []rawSurface
	surfaceIdx map[string]int32
	parcels    []rawParcel
}

// parseMap consumes the 地図 root element and its children. Metadata
// elements (地図名, 市区町村コード, 図郭, ...) are skipped; only 座標系,
// 空間属性, and 主題属性 carry data this parser needs.
func (p *docParser) parseMap() error {
	root, err := p.nextStart()
	if err != nil {
		return err
	}
	if root.Name.Local != "地図" {
		return p.syntax(fmt.Sprintf("unexpected root element %s (want 地図)", root.Name.Local))
	}

	for {
		tok, err := p.token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "座標系":
				text, err := p.elementText(t.Name.Local)
				if err != nil {
					return err
				}
				p.zoneName = text
				if text != jgd.ArbitraryZoneName {
					zone, err := jgd.ParseZone(text)
					if err != nil {
						return err
					}
					p.zone = zone
				}
			case "空間属性":
				if err := p.parseSpatial(); err != nil {
					return err
				}
			case "主題属性":
				if err := p.parseThematic(); err != nil {
					return err
				}
			default:
				if err := p.skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			// End of 地図
			if p.zoneName == "" {
				return ErrMissingZone
			}
			return nil
		}
	}
}

// parseSpatial consumes 空間属性: the document's geometry primitives.
// Any element other than the three GM_* primitives is a format violation.
func (p *docParser) parseSpatial() error {
	for {
		tok, err := p.token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "GM_Point":
				if err := p.parsePoint(t); err != nil {
					return err
				}
			case "GM_Curve":
				if err := p.parseCurve(t); err != nil {
					return err
				}
			case "GM_Surface":
				if err := p.parseSurface(t); err != nil {
					return err
				}
			default:
				return p.syntax(fmt.Sprintf("unexpected element %s in 空間属性", t.Name.Local))
			}
		case xml.EndElement:
			return nil
		}
	}
}

// parsePoint reads one GM_Point. The position lives in a nested
// DirectPosition element; a point without one is simply never registered,
// and curves referencing it fail resolution later.
func (p *docParser) parsePoint(se xml.StartElement) error {
	id, ok := attr(se, "id")
	if !ok {
		return p.syntax("GM_Point without id")
	}

	var pos *XY
	depth := 1
	for depth > 0 {
		tok, err := p.token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "DirectPosition" {
				xy, err := p.parsePosition(t.Name.Local)
				if err != nil {
					return err
				}
				pos = &xy
			} else {
				depth++
			}
		case xml.EndElement:
			depth--
		}
	}

	if pos != nil {
		p.points[id] = *pos
	}
	return nil
}

// parseCurve reads one GM_Curve, collecting control points in document
// order. Control points are either GM_PointRef.point references or inline
// GM_Position.direct coordinates; wrapper elements between them vary with
// the producing system and are ignored.
func (p *docParser) parseCurve(se xml.StartElement) error {
	id, ok := attr(se, "id")
	if !ok {
		return p.syntax("GM_Curve without id")
	}

	var controls []control
	depth := 1
	for depth > 0 {
		tok, err := p.token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "GM_PointRef.point":
				ref, ok := attr(t, "idref")
				if !ok {
					return p.syntax(fmt.Sprintf("curve %s: GM_PointRef.point without idref", id))
				}
				controls = append(controls, control{ref: ref})
				if err := p.skip(); err != nil {
					return err
				}
			case "GM_Position.direct":
				xy, err := p.parsePosition(t.Name.Local)
				if err != nil {
					return err
				}
				controls = append(controls, control{xy: xy})
			default:
				depth++
			}
		case xml.EndElement:
			depth--
		}
	}

	if len(controls) < 2 {
		return p.syntax(fmt.Sprintf("curve %s has %d control points (want at least 2)", id, len(controls)))
	}
	p.curveIdx[id] = int32(len(p.curves))
	p.curves = append(p.curves, rawCurve{id: id, controls: controls})
	return nil
}

// parseSurface reads one GM_Surface: exactly one exterior boundary and any
// number of interior boundaries, each a list of curve references.
func (p *docParser) parseSurface(se xml.StartElement) error {
	id, ok := attr(se, "id")
	if !ok {
		return p.syntax("GM_Surface without id")
	}

	var exterior []string
	var interior [][]string
	depth := 1
	for depth > 0 {
		tok, err := p.token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "GM_SurfaceBoundary.exterior":
				ring, err := p.parseRing(id)
				if err != nil {
					return err
				}
				if exterior != nil {
					return p.syntax(fmt.Sprintf("surface %s has multiple exterior boundaries", id))
				}
				exterior = ring
			case "GM_SurfaceBoundary.interior":
				ring, err := p.parseRing(id)
				if err != nil {
					return err
				}
				interior = append(interior, ring)
			default:
				depth++
			}
		case xml.EndElement:
			depth--
		}
	}

	if exterior == nil {
		return p.syntax(fmt.Sprintf("surface %s has no exterior boundary", id))
	}
	p.surfaceIdx[id] = int32(len(p.surfaces))
	p.surfaces = append(p.surfaces, rawSurface{id: id, exterior: exterior, interior: interior})
	return nil
}

// parseRing collects the curve references of one boundary ring, reading
// until the enclosing exterior/interior element closes.
func (p *docParser) parseRing(sid string) ([]string, error) {
	var refs []string
	depth := 1
	for depth > 0 {
		tok, err := p.token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "GM_CompositeCurve.generator" {
				ref, ok := attr(t, "idref")
				if !ok {
					return nil, p.syntax(fmt.Sprintf("surface %s: GM_CompositeCurve.generator without idref", sid))
				}
				refs = append(refs, ref)
				if err := p.skip(); err != nil {
					return nil, err
				}
			} else {
				depth++
			}
		case xml.EndElement:
			depth--
		}
	}

	if len(refs) == 0 {
		return nil, p.syntax(fmt.Sprintf("surface %s has an empty boundary ring", sid))
	}
	return refs, nil
}

// parseThematic consumes 主題属性. Survey-mark classes carry no parcel data
// and are skipped; anything else unknown is a format violation.
func (p *docParser) parseThematic() error {
	for {
		tok, err := p.token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "筆":
				if err := p.parseParcel(t); err != nil {
					return err
				}
			case "基準点", "筆界点", "仮行政界線", "筆界線":
				if err := p.skip(); err != nil {
					return err
				}
			default:
				return p.syntax(fmt.Sprintf("unexpected element %s in 主題属性", t.Name.Local))
			}
		case xml.EndElement:
			return nil
		}
	}
}

// parseParcel reads one 筆 record. 形状 children reference the parcel's
// surfaces; 筆界未定構成筆 lists the parcels behind an undetermined
// boundary and carries no geometry; every other child is a simple text
// attribute.
func (p *docParser) parseParcel(se xml.StartElement) error {
	id, ok := attr(se, "id")
	if !ok {
		return p.syntax("筆 without id")
	}

	var surfaces []string
	attrs := make(map[string]string)
	for {
		tok, err := p.token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "形状":
				ref, ok := attr(t, "idref")
				if !ok {
					return p.syntax(fmt.Sprintf("parcel %s: 形状 without idref", id))
				}
				surfaces = append(surfaces, ref)
				if err := p.skip(); err != nil {
					return err
				}
			case "筆界未定構成筆":
				if err := p.skip(); err != nil {
					return err
				}
			default:
				text, err := p.elementText(t.Name.Local)
				if err != nil {
					return err
				}
				attrs[t.Name.Local] = text
			}
		case xml.EndElement:
			if len(surfaces) == 0 {
				return p.syntax(fmt.Sprintf("parcel %s has no 形状 reference", id))
			}
			p.parcels = append(p.parcels, rawParcel{id: id, surfaces: surfaces, attrs: attrs})
			return nil
		}
	}
}

// parsePosition reads the X and Y children of a position element.
// The format stores X as northing and Y as easting.
func (p *docParser) parsePosition(name string) (XY, error) {
	var xy XY
	var hasX, hasY bool
	for {
		tok, err := p.token()
		if err != nil {
			return XY{}, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "X":
				v, err := p.floatText(t.Name.Local)
				if err != nil {
					return XY{}, err
				}
				xy.X, hasX = v, true
			case "Y":
				v, err := p.floatText(t.Name.Local)
				if err != nil {
					return XY{}, err
				}
				xy.Y, hasY = v, true
			default:
				if err := p.skip(); err != nil {
					return XY{}, err
				}
			}
		case xml.EndElement:
			if !hasX || !hasY {
				return XY{}, p.syntax(fmt.Sprintf("%s missing X or Y", name))
			}
			return xy, nil
		}
	}
}

// finalize resolves raw idrefs into arena indices and applies the
// placeholder filter.
func (p *docParser) finalize() (*Document, error) {
	doc := &Document{
		ZoneName: p.zoneName,
		Zone:     p.zone,
		Curves:   make([]Curve, 0, len(p.curves)),
		Surfaces: make([]Surface, 0, len(p.surfaces)),
		Parcels:  make([]Parcel, 0, len(p.parcels)),
	}

	for _, rc := range p.curves {
		pts := make([]XY, 0, len(rc.controls))
		for _, c := range rc.controls {
			if c.ref == "" {
				pts = append(pts, c.xy)
				continue
			}
			xy, ok := p.points[c.ref]
			if !ok {
				return nil, &ErrMissingPoint{CurveID: rc.id, PointID: c.ref}
			}
			pts = append(pts, xy)
		}
		doc.Curves = append(doc.Curves, Curve{ID: rc.id, Points: pts})
	}

	resolveRing := func(sid string, refs []string) ([]int32, error) {
		ring := make([]int32, 0, len(refs))
		for _, ref := range refs {
			idx, ok := p.curveIdx[ref]
			if !ok {
				return nil, &ErrMissingCurve{SurfaceID: sid, CurveID: ref}
			}
			ring = append(ring, idx)
		}
		return ring, nil
	}

	for _, rs := range p.surfaces {
		exterior, err := resolveRing(rs.id, rs.exterior)
		if err != nil {
			return nil, err
		}
		var interior [][]int32
		for _, raw := range rs.interior {
			ring, err := resolveRing(rs.id, raw)
			if err != nil {
				return nil, err
			}
			interior = append(interior, ring)
		}
		doc.Surfaces = append(doc.Surfaces, Surface{ID: rs.id, Exterior: exterior, Interior: interior})
	}

	for _, rp := range p.parcels {
		if !p.opts.IncludePlaceholders && isPlaceholder(rp.attrs["地番"]) {
			continue
		}
		refs := make([]int32, 0, len(rp.surfaces))
		for _, ref := range rp.surfaces {
			idx, ok := p.surfaceIdx[ref]
			if !ok {
				return nil, &ErrMissingSurface{ParcelID: rp.id, SurfaceID: ref}
			}
			refs = append(refs, idx)
		}
		doc.Parcels = append(doc.Parcels, Parcel{ID: rp.id, Surfaces: refs, Attrs: rp.attrs})
	}

	return doc, nil
}

// isPlaceholder reports whether a 地番 marks a map-sheet placeholder
// rather than a registered parcel: 地区外 (outside the district) or 別図
// (drawn on a separate sheet).
func isPlaceholder(chiban string) bool {
	return strings.Contains(chiban, "地区外") || strings.Contains(chiban, "別図")
}

// elementText reads the character content of the element just opened and
// consumes its end tag. Nested elements are a format violation.
func (p *docParser) elementText(name string) (string, error) {
	var sb strings.Builder
	for {
		tok, err := p.token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return "", p.syntax(fmt.Sprintf("unexpected element %s inside %s", t.Name.Local, name))
		case xml.CharData:
			sb.Write(t)
		case xml.EndElement:
			return strings.TrimSpace(sb.String()), nil
		}
	}
}

// floatText reads element text and parses it as a coordinate value.
func (p *docParser) floatText(name string) (float64, error) {
	text, err := p.elementText(name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, &ErrSyntax{
			Offset: p.dec.InputOffset(),
			Msg:    fmt.Sprintf("invalid coordinate %q in %s", text, name),
			Err:    err,
		}
	}
	return v, nil
}

// nextStart advances to the next start element, skipping prolog tokens.
func (p *docParser) nextStart() (xml.StartElement, error) {
	for {
		tok, err := p.token()
		if err != nil {
			return xml.StartElement{}, err
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se, nil
		}
	}
}

// token returns the next XML token, converting decoder failures into
// ErrSyntax. Errors from the underlying reader pass through untouched so
// callers can still recognize them.
func (p *docParser) token() (xml.Token, error) {
	tok, err := p.dec.Token()
	if err == nil {
		return tok, nil
	}
	if err == io.EOF {
		return nil, &ErrSyntax{
			Offset: p.dec.InputOffset(),
			Msg:    "unexpected end of document",
			Err:    io.ErrUnexpectedEOF,
		}
	}
	if se, ok := err.(*xml.SyntaxError); ok {
		return nil, &ErrSyntax{Line: se.Line, Msg: se.Msg, Err: err}
	}
	// The decoder flattens CharsetReader failures into plain errors with an
	// "xml:" prefix; reader errors pass through with their own messages.
	if strings.HasPrefix(err.Error(), "xml:") {
		return nil, &ErrSyntax{Offset: p.dec.InputOffset(), Msg: err.Error(), Err: err}
	}
	return nil, err
}

// skip consumes the remainder of the element just opened.
func (p *docParser) skip() error {
	if err := p.dec.Skip(); err != nil {
		if se, ok := err.(*xml.SyntaxError); ok {
			return &ErrSyntax{Line: se.Line, Msg: se.Msg, Err: err}
		}
		if err == io.EOF {
			return &ErrSyntax{
				Offset: p.dec.InputOffset(),
				Msg:    "unexpected end of document",
				Err:    io.ErrUnexpectedEOF,
			}
		}
		return err
	}
	return nil
}

// syntax builds an ErrSyntax at the decoder's current position.
func (p *docParser) syntax(msg string) error {
	return &ErrSyntax{Offset: p.dec.InputOffset(), Msg: msg}
}

// attr returns the named attribute of a start element.
func attr(se xml.StartElement, name string) (string, bool) {
	for _, a := range se.Attr {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// charsetReader decodes the legacy encodings 地図XML ships in. Most files
// declare Shift_JIS; UTF-8 appears in newer exports.
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(charset) {
	case "shift_jis", "shift-jis", "sjis", "cp932", "ms932", "windows-31j":
		return japanese.ShiftJIS.NewDecoder().Reader(input), nil
	case "euc-jp":
		return japanese.EUCJP.NewDecoder().Reader(input), nil
	case "iso-2022-jp":
		return japanese.ISO2022JP.NewDecoder().Reader(input), nil
	case "", "utf-8", "us-ascii":
		return input, nil
	default:
		return nil, &ErrSyntax{Msg: fmt.Sprintf("unsupported charset %q", charset)}
	}
}
