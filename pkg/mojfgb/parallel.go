package mojfgb

import (
	"context"
	"fmt"
	"sync"

	"github.com/fudemap/mojfgb/internal/archive"
	"github.com/fudemap/mojfgb/internal/jgd"
	"github.com/fudemap/mojfgb/internal/parser"
)

type entryResult struct {
	index    int
	features []Feature
	warnings []string
	err      error
}

// convertEntries converts archive entries on a worker pool and returns one
// result per entry, indexed like entries. When opts.Strict is set the first
// failure cancels the remaining work; entries cancelled that way report the
// context error.
func convertEntries(ctx context.Context, entries []*archive.Entry, opts Options) []entryResult {
	results := make([]entryResult, len(entries))
	if len(entries) == 0 {
		return results
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan int, len(entries))
	done := make(chan entryResult, len(entries))

	var wg sync.WaitGroup
	for i := 0; i < opts.workerCount(len(entries)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for index := range jobs {
				if err := ctx.Err(); err != nil {
					done <- entryResult{index: index, err: err}
					continue
				}
				features, warnings, err := convertEntry(entries[index], opts)
				done <- entryResult{
					index:    index,
					features: features,
					warnings: warnings,
					err:      err,
				}
			}
		}()
	}

	for i := range entries {
		jobs <- i
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(done)
	}()

	completed := 0
	for res := range done {
		completed++
		if opts.Progress != nil {
			opts.Progress(completed, len(entries))
		}
		if res.err != nil && opts.Strict {
			cancel()
		}
		results[res.index] = res
	}

	return results
}

// convertEntry converts every document under one archive entry.
func convertEntry(entry *archive.Entry, opts Options) ([]Feature, []string, error) {
	cursors, err := entry.Cursors()
	if err != nil {
		return nil, nil, err
	}

	var features []Feature
	var warnings []string
	for i, cursor := range cursors {
		fs, ws, err := convertDocument(cursor, opts)
		if err != nil {
			for _, rest := range cursors[i+1:] {
				rest.Close()
			}
			return nil, nil, err
		}
		features = append(features, fs...)
		warnings = append(warnings, ws...)
	}
	return features, warnings, nil
}

// convertDocument parses one XML document and resolves its parcels.
func convertDocument(cursor *archive.Cursor, opts Options) ([]Feature, []string, error) {
	defer cursor.Close()

	doc, err := parser.Parse(cursor, cursor.Name, parser.ParseOptions{
		IncludePlaceholders: opts.IncludeChikugai,
	})
	if err != nil {
		return nil, nil, err
	}
	if doc.Arbitrary() {
		return nil, nil, fmt.Errorf("document %s: %w", doc.Name, jgd.ErrArbitraryZone)
	}

	var features []Feature
	var warnings []string
	for i := range doc.Parcels {
		parcel := &doc.Parcels[i]
		geom, ws, err := parser.BuildGeometry(doc, parcel)
		if err != nil {
			return nil, nil, fmt.Errorf("document %s: %w", doc.Name, err)
		}
		for _, w := range ws {
			warnings = append(warnings, fmt.Sprintf("%s: %s", doc.Name, w))
		}
		if geom == nil {
			continue
		}
		features = append(features, Feature{
			id:       parcel.ID,
			source:   doc.Name,
			geometry: geom,
			attrs:    parcel.Attrs,
		})
	}
	return features, warnings, nil
}
