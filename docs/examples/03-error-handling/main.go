package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/fudemap/mojfgb/pkg/mojfgb"
)

// convertStrict fails on the first bad entry and reports what went wrong.
func convertStrict(input, output string) error {
	opts := mojfgb.DefaultOptions()
	opts.Strict = true

	_, err := mojfgb.Convert(context.Background(), input, output, opts)
	if err == nil {
		return nil
	}

	// Conversion errors carry a classification and the failing entry
	var cerr *mojfgb.Error
	if errors.As(err, &cerr) {
		switch cerr.Kind {
		case mojfgb.KindConfig:
			// Arbitrary coordinate systems cannot be georeferenced;
			// rerunning will not help
			return fmt.Errorf("entry %s cannot be converted: %w", cerr.Entry, cerr.Err)
		case mojfgb.KindParse, mojfgb.KindData:
			return fmt.Errorf("entry %s is corrupt: %w", cerr.Entry, cerr.Err)
		default:
			return err
		}
	}
	return err
}

func main() {
	// Strict mode: any bad entry fails the run and leaves no output file
	if err := convertStrict("26101.zip", "26101.fgb"); err != nil {
		log.Printf("strict conversion failed: %v", err)
	}

	// Default mode: bad entries are skipped and classified instead
	summary, err := mojfgb.Convert(context.Background(), "26101.zip", "26101.fgb", mojfgb.Options{})
	if err != nil {
		log.Fatal(err)
	}

	for _, skip := range summary.Skipped {
		switch skip.Kind {
		case mojfgb.KindConfig:
			fmt.Printf("%s: local coordinate system, not georeferenceable\n", skip.Entry)
		case mojfgb.KindParse:
			fmt.Printf("%s: malformed XML: %v\n", skip.Entry, skip.Err)
		case mojfgb.KindData:
			fmt.Printf("%s: inconsistent data: %v\n", skip.Entry, skip.Err)
		default:
			fmt.Printf("%s: %v\n", skip.Entry, skip.Err)
		}
	}

	// Degraded parcels carry warnings rather than failing their entry
	for _, w := range summary.Warnings {
		fmt.Println("warning:", w)
	}

	fmt.Printf("converted %d of %d entries, %d parcels\n",
		summary.Converted, summary.Entries, summary.Features)
}
