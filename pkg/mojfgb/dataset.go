package mojfgb

import (
	"fmt"
	"os"

	"github.com/paulmach/orb"

	"github.com/fudemap/mojfgb/internal/fgb"
)

// Dataset is an open FlatGeobuf file. It is not safe for concurrent use.
type Dataset struct {
	file *os.File
	r    *fgb.Reader
	hdr  fgb.Header
}

// Open opens a FlatGeobuf file written by Convert.
func Open(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := fgb.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &Dataset{file: f, r: r, hdr: r.Header()}, nil
}

// Close closes the underlying file.
func (d *Dataset) Close() error {
	return d.file.Close()
}

// Name returns the dataset name from the header.
func (d *Dataset) Name() string {
	return d.hdr.Name
}

// Count returns the number of features in the file.
func (d *Dataset) Count() int {
	return int(d.hdr.FeaturesCount)
}

// Columns returns the property column names in schema order.
func (d *Dataset) Columns() []string {
	names := make([]string, len(d.hdr.Columns))
	for i, col := range d.hdr.Columns {
		names[i] = col.Name
	}
	return names
}

// GeometryType returns the header geometry type name.
func (d *Dataset) GeometryType() string {
	return d.hdr.GeometryType.String()
}

// Crs returns the coordinate reference system organization and code.
func (d *Dataset) Crs() (string, int) {
	if d.hdr.Crs == nil {
		return "", 0
	}
	return d.hdr.Crs.Org, int(d.hdr.Crs.Code)
}

// Indexed reports whether the file carries a spatial index.
func (d *Dataset) Indexed() bool {
	return d.hdr.IndexNodeSize > 0 && d.hdr.FeaturesCount > 0
}

// Bounds returns the dataset envelope in longitude/latitude. The zero
// bound is returned when the file has no envelope.
func (d *Dataset) Bounds() orb.Bound {
	if len(d.hdr.Envelope) != 4 {
		return orb.Bound{}
	}
	return orb.Bound{
		Min: orb.Point{d.hdr.Envelope[0], d.hdr.Envelope[1]},
		Max: orb.Point{d.hdr.Envelope[2], d.hdr.Envelope[3]},
	}
}

// Features reads every feature in file order.
func (d *Dataset) Features() ([]Feature, error) {
	var features []Feature
	err := d.r.ForEach(func(rec *fgb.Feature) error {
		f, err := d.decode(rec)
		if err != nil {
			return err
		}
		features = append(features, f)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return features, nil
}

// FeaturesInBounds reads the features whose bounding boxes intersect b,
// using the spatial index when present.
func (d *Dataset) FeaturesInBounds(b orb.Bound) ([]Feature, error) {
	records, err := d.r.Search(b.Min[0], b.Min[1], b.Max[0], b.Max[1])
	if err != nil {
		return nil, err
	}
	features := make([]Feature, 0, len(records))
	for i := range records {
		f, err := d.decode(&records[i])
		if err != nil {
			return nil, err
		}
		features = append(features, f)
	}
	return features, nil
}

func (d *Dataset) decode(rec *fgb.Feature) (Feature, error) {
	geom, err := geometryValue(rec.Geometry)
	if err != nil {
		return Feature{}, err
	}
	id, attrs, err := decodeProperties(d.hdr.Columns, rec.Properties)
	if err != nil {
		return Feature{}, err
	}
	return Feature{id: id, geometry: geom, attrs: attrs}, nil
}
