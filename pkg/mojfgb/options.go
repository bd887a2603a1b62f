package mojfgb

import (
	"log/slog"
	"runtime"
)

// Options controls conversion behavior.
type Options struct {
	// Workers sets the number of archive entries converted concurrently.
	// Values below 1 select runtime.NumCPU().
	// Default: runtime.NumCPU()
	Workers int

	// Strict makes the first failed entry fail the whole conversion.
	// When false, failed entries are skipped and reported in the Summary.
	// Default: false
	Strict bool

	// IncludeChikugai keeps placeholder parcels whose 地番 marks them as
	// outside the district (地区外) or on a separate sheet (別図). Their
	// shapes outline map sheets rather than surveyed parcels, so they are
	// normally dropped.
	// Default: false
	IncludeChikugai bool

	// Progress, when set, is called after each entry finishes, with the
	// number of completed entries and the total. Calls are serialized.
	// Default: nil
	Progress func(done, total int)

	// Logger receives per-entry skip warnings and a completion summary.
	// Default: nil (discard)
	Logger *slog.Logger
}

// DefaultOptions returns the options used for zero-value fields.
func DefaultOptions() Options {
	return Options{
		Workers: runtime.NumCPU(),
	}
}

func (o Options) workerCount(entries int) int {
	n := o.Workers
	if n < 1 {
		n = runtime.NumCPU()
	}
	if n > entries {
		n = entries
	}
	return n
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.DiscardHandler)
}
