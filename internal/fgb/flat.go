package fgb

import (
	flatbuffers "github.com/google/flatbuffers/go"
)

// Vtable slot numbers from the published FlatGeobuf schema. A slot's
// vtable offset is 4 + 2*slot; values equal to the schema default are not
// stored, so decoding applies the same defaults.
const (
	headerNameSlot          = 0
	headerEnvelopeSlot      = 1
	headerGeometryTypeSlot  = 2
	headerColumnsSlot       = 7
	headerFeaturesCountSlot = 8
	headerIndexNodeSizeSlot = 9
	headerCrsSlot           = 10
	headerTitleSlot         = 11
	headerDescriptionSlot   = 12
	headerMetadataSlot      = 13

	columnNameSlot        = 0
	columnTypeSlot        = 1
	columnTitleSlot       = 2
	columnDescriptionSlot = 3
	columnWidthSlot       = 4
	columnPrecisionSlot   = 5
	columnScaleSlot       = 6
	columnNullableSlot    = 7
	columnUniqueSlot      = 8
	columnPrimaryKeySlot  = 9
	columnMetadataSlot    = 10

	crsOrgSlot         = 0
	crsCodeSlot        = 1
	crsNameSlot        = 2
	crsDescriptionSlot = 3
	crsWKTSlot         = 4
	crsCodeStringSlot  = 5

	geometryEndsSlot  = 0
	geometryXYSlot    = 1
	geometryTypeSlot  = 6
	geometryPartsSlot = 7

	featureGeometrySlot   = 0
	featurePropertiesSlot = 1
)

func vt(slot int) flatbuffers.VOffsetT {
	return flatbuffers.VOffsetT(4 + 2*slot)
}

func createString(b *flatbuffers.Builder, s string) flatbuffers.UOffsetT {
	if s == "" {
		return 0
	}
	return b.CreateString(s)
}

// encodeHeader builds one size-prefixed header record.
func encodeHeader(b *flatbuffers.Builder, h *Header) []byte {
	b.Reset()

	nameOff := createString(b, h.Name)
	titleOff := createString(b, h.Title)
	descOff := createString(b, h.Description)
	metaOff := createString(b, h.Metadata)

	var envOff flatbuffers.UOffsetT
	if len(h.Envelope) > 0 {
		b.StartVector(8, len(h.Envelope), 8)
		for i := len(h.Envelope) - 1; i >= 0; i-- {
			b.PrependFloat64(h.Envelope[i])
		}
		envOff = b.EndVector(len(h.Envelope))
	}

	var colsOff flatbuffers.UOffsetT
	if len(h.Columns) > 0 {
		colOffs := make([]flatbuffers.UOffsetT, len(h.Columns))
		for i := range h.Columns {
			colOffs[i] = encodeColumn(b, &h.Columns[i])
		}
		b.StartVector(4, len(colOffs), 4)
		for i := len(colOffs) - 1; i >= 0; i-- {
			b.PrependUOffsetT(colOffs[i])
		}
		colsOff = b.EndVector(len(colOffs))
	}

	var crsOff flatbuffers.UOffsetT
	if h.Crs != nil {
		crsOff = encodeCrs(b, h.Crs)
	}

	b.StartObject(14)
	b.PrependUOffsetTSlot(headerNameSlot, nameOff, 0)
	b.PrependUOffsetTSlot(headerEnvelopeSlot, envOff, 0)
	b.PrependByteSlot(headerGeometryTypeSlot, byte(h.GeometryType), 0)
	b.PrependUOffsetTSlot(headerColumnsSlot, colsOff, 0)
	b.PrependUint64Slot(headerFeaturesCountSlot, h.FeaturesCount, 0)
	b.PrependUint16Slot(headerIndexNodeSizeSlot, h.IndexNodeSize, DefaultNodeSize)
	b.PrependUOffsetTSlot(headerCrsSlot, crsOff, 0)
	b.PrependUOffsetTSlot(headerTitleSlot, titleOff, 0)
	b.PrependUOffsetTSlot(headerDescriptionSlot, descOff, 0)
	b.PrependUOffsetTSlot(headerMetadataSlot, metaOff, 0)
	b.FinishSizePrefixed(b.EndObject())
	return b.FinishedBytes()
}

func encodeColumn(b *flatbuffers.Builder, c *Column) flatbuffers.UOffsetT {
	nameOff := createString(b, c.Name)
	titleOff := createString(b, c.Title)
	descOff := createString(b, c.Description)
	metaOff := createString(b, c.Metadata)

	b.StartObject(11)
	b.PrependUOffsetTSlot(columnNameSlot, nameOff, 0)
	b.PrependByteSlot(columnTypeSlot, byte(c.Type), 0)
	b.PrependUOffsetTSlot(columnTitleSlot, titleOff, 0)
	b.PrependUOffsetTSlot(columnDescriptionSlot, descOff, 0)
	b.PrependInt32Slot(columnWidthSlot, c.Width, -1)
	b.PrependInt32Slot(columnPrecisionSlot, c.Precision, -1)
	b.PrependInt32Slot(columnScaleSlot, c.Scale, -1)
	b.PrependBoolSlot(columnNullableSlot, c.Nullable, true)
	b.PrependBoolSlot(columnUniqueSlot, c.Unique, false)
	b.PrependBoolSlot(columnPrimaryKeySlot, c.PrimaryKey, false)
	b.PrependUOffsetTSlot(columnMetadataSlot, metaOff, 0)
	return b.EndObject()
}

func encodeCrs(b *flatbuffers.Builder, c *Crs) flatbuffers.UOffsetT {
	orgOff := createString(b, c.Org)
	nameOff := createString(b, c.Name)
	descOff := createString(b, c.Description)
	wktOff := createString(b, c.WKT)
	codeStrOff := createString(b, c.CodeString)

	b.StartObject(6)
	b.PrependUOffsetTSlot(crsOrgSlot, orgOff, 0)
	b.PrependInt32Slot(crsCodeSlot, c.Code, 0)
	b.PrependUOffsetTSlot(crsNameSlot, nameOff, 0)
	b.PrependUOffsetTSlot(crsDescriptionSlot, descOff, 0)
	b.PrependUOffsetTSlot(crsWKTSlot, wktOff, 0)
	b.PrependUOffsetTSlot(crsCodeStringSlot, codeStrOff, 0)
	return b.EndObject()
}

// encodeFeature builds one size-prefixed feature record.
func encodeFeature(b *flatbuffers.Builder, f *Feature) []byte {
	b.Reset()

	var geomOff flatbuffers.UOffsetT
	if f.Geometry != nil {
		geomOff = encodeGeometry(b, f.Geometry)
	}
	var propsOff flatbuffers.UOffsetT
	if len(f.Properties) > 0 {
		propsOff = b.CreateByteVector(f.Properties)
	}

	b.StartObject(3)
	b.PrependUOffsetTSlot(featureGeometrySlot, geomOff, 0)
	b.PrependUOffsetTSlot(featurePropertiesSlot, propsOff, 0)
	b.FinishSizePrefixed(b.EndObject())
	return b.FinishedBytes()
}

func encodeGeometry(b *flatbuffers.Builder, g *Geometry) flatbuffers.UOffsetT {
	var partsOff flatbuffers.UOffsetT
	if len(g.Parts) > 0 {
		partOffs := make([]flatbuffers.UOffsetT, len(g.Parts))
		for i, part := range g.Parts {
			partOffs[i] = encodeGeometry(b, part)
		}
		b.StartVector(4, len(partOffs), 4)
		for i := len(partOffs) - 1; i >= 0; i-- {
			b.PrependUOffsetT(partOffs[i])
		}
		partsOff = b.EndVector(len(partOffs))
	}

	var endsOff flatbuffers.UOffsetT
	if len(g.Ends) > 0 {
		b.StartVector(4, len(g.Ends), 4)
		for i := len(g.Ends) - 1; i >= 0; i-- {
			b.PrependUint32(g.Ends[i])
		}
		endsOff = b.EndVector(len(g.Ends))
	}

	var xyOff flatbuffers.UOffsetT
	if len(g.XY) > 0 {
		b.StartVector(8, len(g.XY), 8)
		for i := len(g.XY) - 1; i >= 0; i-- {
			b.PrependFloat64(g.XY[i])
		}
		xyOff = b.EndVector(len(g.XY))
	}

	b.StartObject(8)
	b.PrependUOffsetTSlot(geometryEndsSlot, endsOff, 0)
	b.PrependUOffsetTSlot(geometryXYSlot, xyOff, 0)
	b.PrependByteSlot(geometryTypeSlot, byte(g.Type), 0)
	b.PrependUOffsetTSlot(geometryPartsSlot, partsOff, 0)
	return b.EndObject()
}

// decodeHeader reads one header record body (without the size prefix).
func decodeHeader(body []byte) Header {
	tab := flatbuffers.Table{Bytes: body, Pos: flatbuffers.GetUOffsetT(body)}
	h := Header{IndexNodeSize: DefaultNodeSize}

	if o := tab.Offset(vt(headerNameSlot)); o != 0 {
		h.Name = string(tab.ByteVector(flatbuffers.UOffsetT(o) + tab.Pos))
	}
	if o := tab.Offset(vt(headerEnvelopeSlot)); o != 0 {
		n := tab.VectorLen(flatbuffers.UOffsetT(o))
		vec := tab.Vector(flatbuffers.UOffsetT(o))
		h.Envelope = make([]float64, n)
		for i := 0; i < n; i++ {
			h.Envelope[i] = tab.GetFloat64(vec + flatbuffers.UOffsetT(i*8))
		}
	}
	if o := tab.Offset(vt(headerGeometryTypeSlot)); o != 0 {
		h.GeometryType = GeometryType(tab.GetByte(flatbuffers.UOffsetT(o) + tab.Pos))
	}
	if o := tab.Offset(vt(headerColumnsSlot)); o != 0 {
		n := tab.VectorLen(flatbuffers.UOffsetT(o))
		vec := tab.Vector(flatbuffers.UOffsetT(o))
		h.Columns = make([]Column, n)
		for i := 0; i < n; i++ {
			pos := tab.Indirect(vec + flatbuffers.UOffsetT(i*4))
			h.Columns[i] = decodeColumn(body, pos)
		}
	}
	if o := tab.Offset(vt(headerFeaturesCountSlot)); o != 0 {
		h.FeaturesCount = tab.GetUint64(flatbuffers.UOffsetT(o) + tab.Pos)
	}
	if o := tab.Offset(vt(headerIndexNodeSizeSlot)); o != 0 {
		h.IndexNodeSize = tab.GetUint16(flatbuffers.UOffsetT(o) + tab.Pos)
	}
	if o := tab.Offset(vt(headerCrsSlot)); o != 0 {
		crs := decodeCrs(body, tab.Indirect(flatbuffers.UOffsetT(o)+tab.Pos))
		h.Crs = &crs
	}
	if o := tab.Offset(vt(headerTitleSlot)); o != 0 {
		h.Title = string(tab.ByteVector(flatbuffers.UOffsetT(o) + tab.Pos))
	}
	if o := tab.Offset(vt(headerDescriptionSlot)); o != 0 {
		h.Description = string(tab.ByteVector(flatbuffers.UOffsetT(o) + tab.Pos))
	}
	if o := tab.Offset(vt(headerMetadataSlot)); o != 0 {
		h.Metadata = string(tab.ByteVector(flatbuffers.UOffsetT(o) + tab.Pos))
	}
	return h
}

func decodeColumn(body []byte, pos flatbuffers.UOffsetT) Column {
	tab := flatbuffers.Table{Bytes: body, Pos: pos}
	c := Column{Width: -1, Precision: -1, Scale: -1, Nullable: true}

	if o := tab.Offset(vt(columnNameSlot)); o != 0 {
		c.Name = string(tab.ByteVector(flatbuffers.UOffsetT(o) + tab.Pos))
	}
	if o := tab.Offset(vt(columnTypeSlot)); o != 0 {
		c.Type = ColumnType(tab.GetByte(flatbuffers.UOffsetT(o) + tab.Pos))
	}
	if o := tab.Offset(vt(columnTitleSlot)); o != 0 {
		c.Title = string(tab.ByteVector(flatbuffers.UOffsetT(o) + tab.Pos))
	}
	if o := tab.Offset(vt(columnDescriptionSlot)); o != 0 {
		c.Description = string(tab.ByteVector(flatbuffers.UOffsetT(o) + tab.Pos))
	}
	if o := tab.Offset(vt(columnWidthSlot)); o != 0 {
		c.Width = tab.GetInt32(flatbuffers.UOffsetT(o) + tab.Pos)
	}
	if o := tab.Offset(vt(columnPrecisionSlot)); o != 0 {
		c.Precision = tab.GetInt32(flatbuffers.UOffsetT(o) + tab.Pos)
	}
	if o := tab.Offset(vt(columnScaleSlot)); o != 0 {
		c.Scale = tab.GetInt32(flatbuffers.UOffsetT(o) + tab.Pos)
	}
	if o := tab.Offset(vt(columnNullableSlot)); o != 0 {
		c.Nullable = tab.GetBool(flatbuffers.UOffsetT(o) + tab.Pos)
	}
	if o := tab.Offset(vt(columnUniqueSlot)); o != 0 {
		c.Unique = tab.GetBool(flatbuffers.UOffsetT(o) + tab.Pos)
	}
	if o := tab.Offset(vt(columnPrimaryKeySlot)); o != 0 {
		c.PrimaryKey = tab.GetBool(flatbuffers.UOffsetT(o) + tab.Pos)
	}
	if o := tab.Offset(vt(columnMetadataSlot)); o != 0 {
		c.Metadata = string(tab.ByteVector(flatbuffers.UOffsetT(o) + tab.Pos))
	}
	return c
}

func decodeCrs(body []byte, pos flatbuffers.UOffsetT) Crs {
	tab := flatbuffers.Table{Bytes: body, Pos: pos}
	var c Crs

	if o := tab.Offset(vt(crsOrgSlot)); o != 0 {
		c.Org = string(tab.ByteVector(flatbuffers.UOffsetT(o) + tab.Pos))
	}
	if o := tab.Offset(vt(crsCodeSlot)); o != 0 {
		c.Code = tab.GetInt32(flatbuffers.UOffsetT(o) + tab.Pos)
	}
	if o := tab.Offset(vt(crsNameSlot)); o != 0 {
		c.Name = string(tab.ByteVector(flatbuffers.UOffsetT(o) + tab.Pos))
	}
	if o := tab.Offset(vt(crsDescriptionSlot)); o != 0 {
		c.Description = string(tab.ByteVector(flatbuffers.UOffsetT(o) + tab.Pos))
	}
	if o := tab.Offset(vt(crsWKTSlot)); o != 0 {
		c.WKT = string(tab.ByteVector(flatbuffers.UOffsetT(o) + tab.Pos))
	}
	if o := tab.Offset(vt(crsCodeStringSlot)); o != 0 {
		c.CodeString = string(tab.ByteVector(flatbuffers.UOffsetT(o) + tab.Pos))
	}
	return c
}

// decodeFeature reads one feature record body (without the size prefix).
// The properties slice aliases body.
func decodeFeature(body []byte) Feature {
	tab := flatbuffers.Table{Bytes: body, Pos: flatbuffers.GetUOffsetT(body)}
	var f Feature

	if o := tab.Offset(vt(featureGeometrySlot)); o != 0 {
		f.Geometry = decodeGeometry(body, tab.Indirect(flatbuffers.UOffsetT(o)+tab.Pos))
	}
	if o := tab.Offset(vt(featurePropertiesSlot)); o != 0 {
		f.Properties = tab.ByteVector(flatbuffers.UOffsetT(o) + tab.Pos)
	}
	return f
}

func decodeGeometry(body []byte, pos flatbuffers.UOffsetT) *Geometry {
	tab := flatbuffers.Table{Bytes: body, Pos: pos}
	g := &Geometry{}

	if o := tab.Offset(vt(geometryEndsSlot)); o != 0 {
		n := tab.VectorLen(flatbuffers.UOffsetT(o))
		vec := tab.Vector(flatbuffers.UOffsetT(o))
		g.Ends = make([]uint32, n)
		for i := 0; i < n; i++ {
			g.Ends[i] = tab.GetUint32(vec + flatbuffers.UOffsetT(i*4))
		}
	}
	if o := tab.Offset(vt(geometryXYSlot)); o != 0 {
		n := tab.VectorLen(flatbuffers.UOffsetT(o))
		vec := tab.Vector(flatbuffers.UOffsetT(o))
		g.XY = make([]float64, n)
		for i := 0; i < n; i++ {
			g.XY[i] = tab.GetFloat64(vec + flatbuffers.UOffsetT(i*8))
		}
	}
	if o := tab.Offset(vt(geometryTypeSlot)); o != 0 {
		g.Type = GeometryType(tab.GetByte(flatbuffers.UOffsetT(o) + tab.Pos))
	}
	if o := tab.Offset(vt(geometryPartsSlot)); o != 0 {
		n := tab.VectorLen(flatbuffers.UOffsetT(o))
		vec := tab.Vector(flatbuffers.UOffsetT(o))
		g.Parts = make([]*Geometry, n)
		for i := 0; i < n; i++ {
			g.Parts[i] = decodeGeometry(body, tab.Indirect(vec+flatbuffers.UOffsetT(i*4)))
		}
	}
	return g
}
