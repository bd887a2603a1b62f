package parser

import "sort"

// IDColumn is the synthetic first column carrying the parcel's XML id.
const IDColumn = "id"

// Well-known 筆 attribute catalogue
// Source: MOJ 地図XMLフォーマット, 筆 child elements. Order is the canonical
// column order used in converted output; real-world files occasionally carry
// extra elements, which sort after these.
var wellKnownAttrs = []struct {
	Name  string
	Title string
}{
	{"大字コード", "oaza code"},
	{"丁目コード", "chome code"},
	{"小字コード", "koaza code"},
	{"予備コード", "spare code"},
	{"大字名", "oaza name"},
	{"丁目名", "chome name"},
	{"小字名", "koaza name"},
	{"予備名", "spare name"},
	{"地番", "parcel number"},
	{"精度区分", "accuracy class"},
	{"座標値種別", "coordinate kind"},
}

var attrRanks = func() map[string]int {
	m := make(map[string]int, len(wellKnownAttrs))
	for i, a := range wellKnownAttrs {
		m[a.Name] = i
	}
	return m
}()

// SortColumns orders attribute column names canonically: catalogue
// attributes first in catalogue order, then unknown attributes in lexical
// order. The id column is not an attribute and is handled by the caller.
func SortColumns(names []string) {
	sort.Slice(names, func(i, j int) bool {
		ri, iKnown := attrRanks[names[i]]
		rj, jKnown := attrRanks[names[j]]
		switch {
		case iKnown && jKnown:
			return ri < rj
		case iKnown:
			return true
		case jKnown:
			return false
		default:
			return names[i] < names[j]
		}
	})
}

// AttrTitle returns the English title for a catalogue attribute, or the
// empty string for attributes outside the catalogue.
func AttrTitle(name string) string {
	if i, ok := attrRanks[name]; ok {
		return wellKnownAttrs[i].Title
	}
	return ""
}
