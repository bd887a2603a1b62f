package main

import (
	"context"
	"fmt"
	"log"

	"github.com/fudemap/mojfgb/pkg/mojfgb"
)

func main() {
	// Convert a registry distribution ZIP with default options: all CPUs,
	// bad entries skipped, placeholder parcels dropped.
	opts := mojfgb.DefaultOptions()
	opts.Progress = func(done, total int) {
		fmt.Printf("\rconverting %d/%d entries", done, total)
	}

	summary, err := mojfgb.Convert(context.Background(), "26101.zip", "26101.fgb", opts)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println()

	// Print conversion results
	fmt.Printf("Entries: %d converted, %d skipped\n", summary.Converted, len(summary.Skipped))
	fmt.Printf("Parcels: %d\n", summary.Features)
	if summary.Features > 0 {
		b := summary.Bounds
		fmt.Printf("Bounds: [%.4f,%.4f] to [%.4f,%.4f]\n",
			b.Min[0], b.Min[1], b.Max[0], b.Max[1])
	}

	// Entries that failed to convert are reported, not fatal
	for _, skip := range summary.Skipped {
		fmt.Printf("skipped %s (%s): %v\n", skip.Entry, skip.Kind, skip.Err)
	}
}
