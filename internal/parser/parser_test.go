package parser

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/text/encoding/japanese"

	"github.com/fudemap/mojfgb/internal/jgd"
)

// mapDoc wraps body in a minimal 地図 document. An empty zone omits the
// 座標系 element entirely.
func mapDoc(zone, body string) string {
	var sb strings.Builder
	sb.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<地図>\n")
	sb.WriteString("<地図名>テスト地図</地図名>\n")
	if zone != "" {
		sb.WriteString("<座標系>" + zone + "</座標系>\n")
	}
	sb.WriteString("<図郭><左下座標><X>0</X><Y>0</Y></左下座標></図郭>\n")
	sb.WriteString(body)
	sb.WriteString("\n</地図>")
	return sb.String()
}

func point(id, x, y string) string {
	return `<GM_Point id="` + id + `"><GM_Point.position><DirectPosition>` +
		`<X>` + x + `</X><Y>` + y + `</Y>` +
		`</DirectPosition></GM_Point.position></GM_Point>`
}

func refCurve(id string, pointIDs ...string) string {
	var sb strings.Builder
	sb.WriteString(`<GM_Curve id="` + id + `"><GM_Curve.segment><GM_LineString><GM_LineString.controlPoint>`)
	for _, pid := range pointIDs {
		sb.WriteString(`<GM_PointArray><GM_PointArray.column><GM_PointRef>` +
			`<GM_PointRef.point idref="` + pid + `"/>` +
			`</GM_PointRef></GM_PointArray.column></GM_PointArray>`)
	}
	sb.WriteString(`</GM_LineString.controlPoint></GM_LineString></GM_Curve.segment></GM_Curve>`)
	return sb.String()
}

func surface(id string, exterior ...string) string {
	var sb strings.Builder
	sb.WriteString(`<GM_Surface id="` + id + `"><GM_Surface.patch><GM_Polygon><GM_Polygon.boundary><GM_SurfaceBoundary>`)
	sb.WriteString(`<GM_SurfaceBoundary.exterior><GM_Ring>`)
	for _, cid := range exterior {
		sb.WriteString(`<GM_CompositeCurve.generator idref="` + cid + `"/>`)
	}
	sb.WriteString(`</GM_Ring></GM_SurfaceBoundary.exterior>`)
	sb.WriteString(`</GM_SurfaceBoundary></GM_Polygon.boundary></GM_Polygon></GM_Surface.patch></GM_Surface>`)
	return sb.String()
}

// squareBody is a complete square parcel: four referenced points, two
// curves covering both control point styles, one surface, one 筆.
const squareBody = `<空間属性>
<GM_Point id="p1"><GM_Point.position><DirectPosition><X>0.0</X><Y>0.0</Y></DirectPosition></GM_Point.position></GM_Point>
<GM_Point id="p2"><GM_Point.position><DirectPosition><X>0.0</X><Y>10.0</Y></DirectPosition></GM_Point.position></GM_Point>
<GM_Point id="p3"><GM_Point.position><DirectPosition><X>10.0</X><Y>10.0</Y></DirectPosition></GM_Point.position></GM_Point>
<GM_Curve id="c1"><GM_Curve.segment><GM_LineString><GM_LineString.controlPoint>
<GM_PointArray><GM_PointArray.column><GM_PointRef><GM_PointRef.point idref="p1"/></GM_PointRef></GM_PointArray.column></GM_PointArray>
<GM_PointArray><GM_PointArray.column><GM_PointRef><GM_PointRef.point idref="p2"/></GM_PointRef></GM_PointArray.column></GM_PointArray>
<GM_PointArray><GM_PointArray.column><GM_PointRef><GM_PointRef.point idref="p3"/></GM_PointRef></GM_PointArray.column></GM_PointArray>
</GM_LineString.controlPoint></GM_LineString></GM_Curve.segment></GM_Curve>
<GM_Curve id="c2"><GM_Curve.segment><GM_LineString><GM_LineString.controlPoint>
<GM_PointArray><GM_PointArray.column><GM_Position.direct><X>10.0</X><Y>10.0</Y></GM_Position.direct></GM_PointArray.column></GM_PointArray>
<GM_PointArray><GM_PointArray.column><GM_Position.direct><X>10.0</X><Y>0.0</Y></GM_Position.direct></GM_PointArray.column></GM_PointArray>
<GM_PointArray><GM_PointArray.column><GM_Position.direct><X>0.0</X><Y>0.0</Y></GM_Position.direct></GM_PointArray.column></GM_PointArray>
</GM_LineString.controlPoint></GM_LineString></GM_Curve.segment></GM_Curve>
<GM_Surface id="s1"><GM_Surface.patch><GM_Polygon><GM_Polygon.boundary><GM_SurfaceBoundary>
<GM_SurfaceBoundary.exterior><GM_Ring>
<GM_CompositeCurve.generator idref="c1"/>
<GM_CompositeCurve.generator idref="c2"/>
</GM_Ring></GM_SurfaceBoundary.exterior>
</GM_SurfaceBoundary></GM_Polygon.boundary></GM_Polygon></GM_Surface.patch></GM_Surface>
</空間属性>
<主題属性>
<基準点 id="k1"><名称>三角点</名称></基準点>
<筆 id="f1">
<大字コード>012</大字コード>
<大字名>東町</大字名>
<地番>5-1</地番>
<形状 idref="s1"/>
</筆>
</主題属性>`

// TestParseDocument tests a complete valid document end to end
func TestParseDocument(t *testing.T) {
	doc, err := Parse(strings.NewReader(mapDoc("公共座標9系", squareBody)), "square.xml", DefaultParseOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.Name != "square.xml" {
		t.Errorf("expected name square.xml, got %s", doc.Name)
	}
	if doc.ZoneName != "公共座標9系" {
		t.Errorf("expected zone name 公共座標9系, got %s", doc.ZoneName)
	}
	if doc.Zone != 9 {
		t.Errorf("expected zone 9, got %d", doc.Zone)
	}
	if doc.Arbitrary() {
		t.Error("document should not be arbitrary")
	}

	if len(doc.Curves) != 2 {
		t.Fatalf("expected 2 curves, got %d", len(doc.Curves))
	}
	c1 := doc.Curves[0]
	if c1.ID != "c1" || len(c1.Points) != 3 {
		t.Fatalf("curve c1: expected 3 points, got id=%s points=%d", c1.ID, len(c1.Points))
	}
	if c1.Points[1] != (XY{X: 0, Y: 10}) {
		t.Errorf("curve c1 point 1: expected {0 10}, got %v", c1.Points[1])
	}
	c2 := doc.Curves[1]
	if len(c2.Points) != 3 || c2.Points[0] != (XY{X: 10, Y: 10}) {
		t.Errorf("curve c2: expected inline positions starting at {10 10}, got %v", c2.Points)
	}

	if len(doc.Surfaces) != 1 {
		t.Fatalf("expected 1 surface, got %d", len(doc.Surfaces))
	}
	s1 := doc.Surfaces[0]
	if s1.ID != "s1" || len(s1.Exterior) != 2 || len(s1.Interior) != 0 {
		t.Errorf("surface s1: expected 2 exterior curves and no interior rings, got %+v", s1)
	}
	if s1.Exterior[0] != 0 || s1.Exterior[1] != 1 {
		t.Errorf("surface s1: expected curve indices [0 1], got %v", s1.Exterior)
	}

	if len(doc.Parcels) != 1 {
		t.Fatalf("expected 1 parcel, got %d", len(doc.Parcels))
	}
	f1 := doc.Parcels[0]
	if f1.ID != "f1" {
		t.Errorf("expected parcel id f1, got %s", f1.ID)
	}
	if len(f1.Surfaces) != 1 || f1.Surfaces[0] != 0 {
		t.Errorf("expected parcel surfaces [0], got %v", f1.Surfaces)
	}
	if f1.Attrs["地番"] != "5-1" || f1.Attrs["大字名"] != "東町" || f1.Attrs["大字コード"] != "012" {
		t.Errorf("unexpected parcel attributes: %v", f1.Attrs)
	}
}

// TestParseStructureErrors tests documents violating the element grammar
func TestParseStructureErrors(t *testing.T) {
	tests := []struct {
		name        string
		xml         string
		description string
	}{
		{
			name:        "Wrong root element",
			xml:         `<?xml version="1.0"?><地形図></地形図>`,
			description: "Root element other than 地図 should be rejected",
		},
		{
			name:        "Unexpected spatial element",
			xml:         mapDoc("公共座標9系", `<空間属性><GM_Solid id="x1"/></空間属性>`),
			description: "Unknown element under 空間属性 should be rejected",
		},
		{
			name:        "Point without id",
			xml:         mapDoc("公共座標9系", `<空間属性><GM_Point><GM_Point.position><DirectPosition><X>1</X><Y>2</Y></DirectPosition></GM_Point.position></GM_Point></空間属性>`),
			description: "GM_Point without id should be rejected",
		},
		{
			name:        "Curve with one control point",
			xml:         mapDoc("公共座標9系", `<空間属性>`+point("p1", "1", "2")+`<GM_Curve id="c1"><GM_PointRef.point idref="p1"/></GM_Curve></空間属性>`),
			description: "A curve needs at least two control points",
		},
		{
			name:        "Surface without exterior",
			xml:         mapDoc("公共座標9系", `<空間属性><GM_Surface id="s1"><GM_Surface.patch/></GM_Surface></空間属性>`),
			description: "A surface needs exactly one exterior boundary",
		},
		{
			name: "Surface with two exteriors",
			xml: mapDoc("公共座標9系", `<空間属性>`+point("p1", "0", "0")+point("p2", "0", "5")+
				refCurve("c1", "p1", "p2")+
				`<GM_Surface id="s1">`+
				`<GM_SurfaceBoundary.exterior><GM_CompositeCurve.generator idref="c1"/></GM_SurfaceBoundary.exterior>`+
				`<GM_SurfaceBoundary.exterior><GM_CompositeCurve.generator idref="c1"/></GM_SurfaceBoundary.exterior>`+
				`</GM_Surface></空間属性>`),
			description: "Two exterior boundaries should be rejected",
		},
		{
			name:        "Empty boundary ring",
			xml:         mapDoc("公共座標9系", `<空間属性><GM_Surface id="s1"><GM_SurfaceBoundary.exterior><GM_Ring></GM_Ring></GM_SurfaceBoundary.exterior></GM_Surface></空間属性>`),
			description: "A boundary ring without generators should be rejected",
		},
		{
			name:        "Unexpected thematic element",
			xml:         mapDoc("公共座標9系", `<主題属性><建物 id="b1"/></主題属性>`),
			description: "Unknown element under 主題属性 should be rejected",
		},
		{
			name:        "Parcel without shape",
			xml:         mapDoc("公共座標9系", `<主題属性><筆 id="f1"><地番>1</地番></筆></主題属性>`),
			description: "A parcel without 形状 should be rejected",
		},
		{
			name:        "Element inside attribute text",
			xml:         mapDoc("公共座標9系", `<主題属性><筆 id="f1"><形状 idref="s1"/><地番><区分>1</区分></地番></筆></主題属性>`),
			description: "Nested elements inside a text attribute should be rejected",
		},
		{
			name:        "Invalid coordinate text",
			xml:         mapDoc("公共座標9系", `<空間属性><GM_Point id="p1"><DirectPosition><X>abc</X><Y>2</Y></DirectPosition></GM_Point></空間属性>`),
			description: "Non-numeric coordinate text should be rejected",
		},
		{
			name:        "Position missing Y",
			xml:         mapDoc("公共座標9系", `<空間属性><GM_Point id="p1"><DirectPosition><X>1.0</X></DirectPosition></GM_Point></空間属性>`),
			description: "A position without both X and Y should be rejected",
		},
		{
			name:        "Truncated document",
			xml:         mapDoc("公共座標9系", squareBody)[:200],
			description: "A document cut off mid-element should be rejected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.xml), "bad.xml", DefaultParseOptions())
			if err == nil {
				t.Fatalf("%s: expected error but got none", tt.description)
			}
			var syntaxErr *ErrSyntax
			if !errors.As(err, &syntaxErr) {
				t.Errorf("%s: expected ErrSyntax, got %T: %v", tt.description, err, err)
			}
			if !strings.Contains(err.Error(), "bad.xml") {
				t.Errorf("%s: error should name the document: %v", tt.description, err)
			}
		})
	}
}

// TestParseMissingReferences tests dangling idrefs
func TestParseMissingReferences(t *testing.T) {
	t.Run("Curve references missing point", func(t *testing.T) {
		body := `<空間属性>` + point("p1", "0", "0") + refCurve("c1", "p1", "p9") + `</空間属性>`
		_, err := Parse(strings.NewReader(mapDoc("公共座標9系", body)), "doc.xml", DefaultParseOptions())
		var missing *ErrMissingPoint
		if !errors.As(err, &missing) {
			t.Fatalf("expected ErrMissingPoint, got %v", err)
		}
		if missing.CurveID != "c1" || missing.PointID != "p9" {
			t.Errorf("expected c1/p9, got %s/%s", missing.CurveID, missing.PointID)
		}
	})

	t.Run("Ring references missing curve", func(t *testing.T) {
		body := `<空間属性>` + surface("s1", "c9") + `</空間属性>`
		_, err := Parse(strings.NewReader(mapDoc("公共座標9系", body)), "doc.xml", DefaultParseOptions())
		var missing *ErrMissingCurve
		if !errors.As(err, &missing) {
			t.Fatalf("expected ErrMissingCurve, got %v", err)
		}
		if missing.SurfaceID != "s1" || missing.CurveID != "c9" {
			t.Errorf("expected s1/c9, got %s/%s", missing.SurfaceID, missing.CurveID)
		}
	})

	t.Run("Parcel references missing surface", func(t *testing.T) {
		body := `<主題属性><筆 id="f1"><地番>1</地番><形状 idref="s9"/></筆></主題属性>`
		_, err := Parse(strings.NewReader(mapDoc("公共座標9系", body)), "doc.xml", DefaultParseOptions())
		var missing *ErrMissingSurface
		if !errors.As(err, &missing) {
			t.Fatalf("expected ErrMissingSurface, got %v", err)
		}
		if missing.ParcelID != "f1" || missing.SurfaceID != "s9" {
			t.Errorf("expected f1/s9, got %s/%s", missing.ParcelID, missing.SurfaceID)
		}
	})
}

// TestParseZoneHandling tests coordinate system declarations
func TestParseZoneHandling(t *testing.T) {
	t.Run("Missing zone declaration", func(t *testing.T) {
		_, err := Parse(strings.NewReader(mapDoc("", "")), "doc.xml", DefaultParseOptions())
		if !errors.Is(err, ErrMissingZone) {
			t.Errorf("expected ErrMissingZone, got %v", err)
		}
	})

	t.Run("Unknown zone number", func(t *testing.T) {
		_, err := Parse(strings.NewReader(mapDoc("公共座標20系", "")), "doc.xml", DefaultParseOptions())
		var unknown *jgd.UnknownZoneError
		if !errors.As(err, &unknown) {
			t.Fatalf("expected UnknownZoneError, got %v", err)
		}
		if unknown.Name != "公共座標20系" {
			t.Errorf("expected zone name preserved, got %s", unknown.Name)
		}
	})

	t.Run("Arbitrary zone parses without error", func(t *testing.T) {
		doc, err := Parse(strings.NewReader(mapDoc("任意座標系", squareBody)), "doc.xml", DefaultParseOptions())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !doc.Arbitrary() {
			t.Error("document should report arbitrary coordinate system")
		}
		if doc.Zone.Valid() {
			t.Errorf("arbitrary document should have no valid zone, got %d", doc.Zone)
		}
	})
}

// TestParsePlaceholderParcels tests 地区外 and 別図 filtering
func TestParsePlaceholderParcels(t *testing.T) {
	body := `<空間属性>` +
		point("p1", "0", "0") + point("p2", "0", "5") +
		refCurve("c1", "p1", "p2") + refCurve("c2", "p2", "p1") +
		surface("s1", "c1", "c2") +
		`</空間属性><主題属性>` +
		`<筆 id="f1"><地番>5-1</地番><形状 idref="s1"/></筆>` +
		`<筆 id="f2"><地番>地区外</地番><形状 idref="s1"/></筆>` +
		`<筆 id="f3"><地番>別図</地番><形状 idref="s1"/></筆>` +
		`</主題属性>`

	t.Run("Dropped by default", func(t *testing.T) {
		doc, err := Parse(strings.NewReader(mapDoc("公共座標9系", body)), "doc.xml", DefaultParseOptions())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(doc.Parcels) != 1 || doc.Parcels[0].ID != "f1" {
			t.Errorf("expected only parcel f1, got %d parcels", len(doc.Parcels))
		}
	})

	t.Run("Kept with IncludePlaceholders", func(t *testing.T) {
		opts := ParseOptions{IncludePlaceholders: true}
		doc, err := Parse(strings.NewReader(mapDoc("公共座標9系", body)), "doc.xml", opts)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(doc.Parcels) != 3 {
			t.Errorf("expected 3 parcels, got %d", len(doc.Parcels))
		}
	})
}

// TestParseMultipleSurfaces tests a parcel referencing several surfaces
func TestParseMultipleSurfaces(t *testing.T) {
	body := `<空間属性>` +
		point("p1", "0", "0") + point("p2", "0", "5") +
		refCurve("c1", "p1", "p2") + refCurve("c2", "p2", "p1") +
		surface("s1", "c1", "c2") + surface("s2", "c1", "c2") +
		`</空間属性><主題属性>` +
		`<筆 id="f1"><地番>7</地番><形状 idref="s1"/><形状 idref="s2"/>` +
		`<筆界未定構成筆><筆参照 idref="f9"/></筆界未定構成筆></筆>` +
		`</主題属性>`

	doc, err := Parse(strings.NewReader(mapDoc("公共座標9系", body)), "doc.xml", DefaultParseOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Parcels) != 1 {
		t.Fatalf("expected 1 parcel, got %d", len(doc.Parcels))
	}
	if len(doc.Parcels[0].Surfaces) != 2 {
		t.Errorf("expected 2 surface references, got %v", doc.Parcels[0].Surfaces)
	}
	if _, ok := doc.Parcels[0].Attrs["筆界未定構成筆"]; ok {
		t.Error("筆界未定構成筆 must not become an attribute")
	}
}

// TestParseShiftJIS tests the legacy encoding most registry files use
func TestParseShiftJIS(t *testing.T) {
	utf8Doc := "<?xml version=\"1.0\" encoding=\"Shift_JIS\"?>\n<地図>\n<座標系>公共座標9系</座標系>\n" +
		`<主題属性><筆 id="f1"><大字名>南魚沼市</大字名><地番>123-4</地番><形状 idref="s1"/></筆></主題属性>` +
		"\n</地図>"
	sjisDoc, err := japanese.ShiftJIS.NewEncoder().String(utf8Doc)
	if err != nil {
		t.Fatalf("encoding fixture: %v", err)
	}

	_, err = Parse(strings.NewReader(sjisDoc), "sjis.xml", DefaultParseOptions())
	var missing *ErrMissingSurface
	if !errors.As(err, &missing) {
		t.Fatalf("expected ErrMissingSurface after decoding, got %v", err)
	}
	if missing.ParcelID != "f1" {
		t.Errorf("expected parcel f1, got %s", missing.ParcelID)
	}

	// With the surface present the attributes must round-trip to UTF-8.
	utf8Full := "<?xml version=\"1.0\" encoding=\"Shift_JIS\"?>\n" +
		strings.TrimPrefix(mapDoc("公共座標9系", squareBody), "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	sjisFull, err := japanese.ShiftJIS.NewEncoder().String(utf8Full)
	if err != nil {
		t.Fatalf("encoding fixture: %v", err)
	}
	doc, err := Parse(strings.NewReader(sjisFull), "sjis.xml", DefaultParseOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Parcels[0].Attrs["大字名"] != "東町" {
		t.Errorf("expected 大字名=東町 after decoding, got %q", doc.Parcels[0].Attrs["大字名"])
	}
}

// TestParseUnsupportedCharset tests that unknown encodings are rejected
func TestParseUnsupportedCharset(t *testing.T) {
	doc := `<?xml version="1.0" encoding="KOI8-R"?><地図><座標系>公共座標9系</座標系></地図>`
	_, err := Parse(strings.NewReader(doc), "doc.xml", DefaultParseOptions())
	if err == nil || !strings.Contains(err.Error(), "charset") {
		t.Errorf("expected unsupported charset error, got %v", err)
	}
}

// TestParseEmptyAttribute tests that empty attribute elements are kept
func TestParseEmptyAttribute(t *testing.T) {
	body := `<空間属性>` +
		point("p1", "0", "0") + point("p2", "0", "5") +
		refCurve("c1", "p1", "p2") + refCurve("c2", "p2", "p1") +
		surface("s1", "c1", "c2") +
		`</空間属性><主題属性>` +
		`<筆 id="f1"><地番>8</地番><小字名></小字名><形状 idref="s1"/></筆>` +
		`</主題属性>`
	doc, err := Parse(strings.NewReader(mapDoc("公共座標9系", body)), "doc.xml", DefaultParseOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, ok := doc.Parcels[0].Attrs["小字名"]
	if !ok || v != "" {
		t.Errorf("expected empty 小字名 attribute to be kept, got %q ok=%v", v, ok)
	}
}

// TestSortColumns tests canonical attribute column ordering
func TestSortColumns(t *testing.T) {
	names := []string{"座標値種別", "地番", "市区町村名", "大字コード", "精度区分", "縮尺"}
	SortColumns(names)
	want := []string{"大字コード", "地番", "精度区分", "座標値種別", "市区町村名", "縮尺"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, names)
		}
	}

	if AttrTitle("地番") != "parcel number" {
		t.Errorf("unexpected title for 地番: %q", AttrTitle("地番"))
	}
	if AttrTitle("市区町村名") != "" {
		t.Errorf("expected empty title for unknown attribute, got %q", AttrTitle("市区町村名"))
	}
}
