package mojfgb

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"

	"github.com/fudemap/mojfgb/internal/archive"
	"github.com/fudemap/mojfgb/internal/fgb"
	"github.com/fudemap/mojfgb/internal/parser"
)

// SkippedEntry records one archive entry that failed to convert.
type SkippedEntry struct {
	Entry string
	Kind  Kind
	Err   error
}

// Summary reports the outcome of a conversion.
type Summary struct {
	// Entries is the number of entries in the input archive.
	Entries int

	// Converted is the number of entries converted successfully.
	Converted int

	// Skipped lists the entries that failed, with their classified errors.
	// Always empty when Options.Strict is set.
	Skipped []SkippedEntry

	// Features is the number of parcels written to the output file.
	Features int

	// Warnings lists parcels whose geometry was degraded, such as
	// collapsed rings dropped from their surfaces.
	Warnings []string

	// Bounds is the extent of the written features in longitude/latitude.
	// Only meaningful when Features is positive.
	Bounds orb.Bound
}

// Convert reads MOJ map XML documents from the ZIP archive at input and
// writes their parcels to a FlatGeobuf file at output.
//
// Entries are converted concurrently per Options.Workers. An entry that
// fails is skipped and reported in the Summary unless Options.Strict is
// set, in which case the first failure aborts the conversion and is
// returned as an *Error. The output file appears atomically on success;
// no partial file is left on failure.
func Convert(ctx context.Context, input, output string, opts Options) (*Summary, error) {
	log := opts.logger()

	arc, err := archive.Open(input)
	if err != nil {
		return nil, &Error{Kind: KindIO, Err: err}
	}
	defer arc.Close()

	entries := arc.Entries()
	results := convertEntries(ctx, entries, opts)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if opts.Strict {
		if name, err := firstFailure(entries, results); err != nil {
			return nil, &Error{Kind: KindOf(err), Entry: name, Err: err}
		}
	}

	summary := &Summary{Entries: len(entries)}
	var features []Feature
	for i, res := range results {
		if res.err != nil {
			kind := KindOf(res.err)
			log.Warn("entry skipped",
				"entry", entries[i].Name,
				"kind", kind.String(),
				"err", res.err)
			summary.Skipped = append(summary.Skipped, SkippedEntry{
				Entry: entries[i].Name,
				Kind:  kind,
				Err:   res.err,
			})
			continue
		}
		summary.Converted++
		features = append(features, res.features...)
		summary.Warnings = append(summary.Warnings, res.warnings...)
	}

	summary.Features = len(features)
	for i := range features {
		if i == 0 {
			summary.Bounds = features[i].Bound()
		} else {
			summary.Bounds = summary.Bounds.Union(features[i].Bound())
		}
	}

	if err := writeFile(output, features); err != nil {
		return nil, err
	}

	log.Info("conversion complete",
		"output", output,
		"entries", summary.Entries,
		"converted", summary.Converted,
		"skipped", len(summary.Skipped),
		"features", summary.Features)
	return summary, nil
}

// firstFailure returns the failed entry with the lowest index, preferring
// real failures over entries that were merely cancelled after the first
// failure was seen.
func firstFailure(entries []*archive.Entry, results []entryResult) (string, error) {
	var name string
	var err error
	for i, res := range results {
		if res.err == nil {
			continue
		}
		if err == nil {
			name, err = entries[i].Name, res.err
		}
		if !errors.Is(res.err, context.Canceled) {
			return entries[i].Name, res.err
		}
	}
	return name, err
}

// writeFile writes features to a FlatGeobuf file at output. The file is
// assembled under a temporary name and renamed into place, so a failure
// never leaves a partial output behind.
func writeFile(output string, features []Feature) error {
	columns := schemaColumns(features)
	hdr := fgb.Header{
		Name:         datasetName(output),
		GeometryType: uniformType(features),
		Crs: &fgb.Crs{
			Org:  "EPSG",
			Code: 6668,
			Name: "JGD2011",
		},
	}
	for _, name := range columns {
		col := fgb.NewColumn(name, fgb.ColumnString)
		col.Title = parser.AttrTitle(name)
		hdr.Columns = append(hdr.Columns, col)
	}

	records := make([]fgb.Feature, len(features))
	for i := range features {
		records[i] = fgb.Feature{
			Geometry:   geometryRecord(features[i].geometry),
			Properties: encodeProperties(columns, &features[i]),
		}
	}

	tmp := output + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return &Error{Kind: KindIO, Err: err}
	}
	if err := fgb.Write(f, hdr, records); err != nil {
		f.Close()
		os.Remove(tmp)
		return &Error{Kind: KindEncode, Err: err}
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return &Error{Kind: KindEncode, Err: err}
	}
	if err := os.Rename(tmp, output); err != nil {
		os.Remove(tmp)
		return &Error{Kind: KindIO, Err: err}
	}
	return nil
}

func datasetName(output string) string {
	base := filepath.Base(output)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// uniformType returns the header geometry type: Polygon or MultiPolygon
// when every feature agrees, Unknown otherwise.
func uniformType(features []Feature) fgb.GeometryType {
	t := fgb.GeometryUnknown
	for i := range features {
		var ft fgb.GeometryType
		switch features[i].geometry.(type) {
		case orb.Polygon:
			ft = fgb.GeometryPolygon
		case orb.MultiPolygon:
			ft = fgb.GeometryMultiPolygon
		default:
			return fgb.GeometryUnknown
		}
		if i == 0 {
			t = ft
		} else if ft != t {
			return fgb.GeometryUnknown
		}
	}
	return t
}
