package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fudemap/mojfgb/pkg/mojfgb"
)

var convertCmd = &cobra.Command{
	Use:   "convert <input.zip> <output.fgb>",
	Short: "Convert a 地図XML archive to FlatGeobuf",
	Long: `Convert reads every map XML document in the input archive, including
per-municipality ZIPs nested inside it, and writes one FlatGeobuf file.

Entries that fail to parse are skipped and reported; --strict turns the
first failure into a run failure. Parcels in arbitrary (任意座標系) local
coordinate systems cannot be georeferenced and always fail their entry.`,
	Args: cobra.ExactArgs(2),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().IntP("workers", "j", 0, "concurrent entries (0 selects all CPUs)")
	convertCmd.Flags().Bool("strict", false, "fail on the first bad entry instead of skipping it")
	convertCmd.Flags().Bool("include-chikugai", false, "keep 地区外 and 別図 placeholder parcels")
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	workers, _ := cmd.Flags().GetInt("workers")
	strict, _ := cmd.Flags().GetBool("strict")
	chikugai, _ := cmd.Flags().GetBool("include-chikugai")

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	ctx, cancel := signalContext()
	defer cancel()

	opts := mojfgb.Options{
		Workers:         workers,
		Strict:          strict,
		IncludeChikugai: chikugai,
		Logger:          logger,
		Progress: func(done, total int) {
			fmt.Fprintf(cmd.ErrOrStderr(), "\rconverting %d/%d entries", done, total)
			if done == total {
				fmt.Fprintln(cmd.ErrOrStderr())
			}
		},
	}

	summary, err := mojfgb.Convert(ctx, args[0], args[1], opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	size := int64(0)
	if fi, err := os.Stat(args[1]); err == nil {
		size = fi.Size()
	}
	fmt.Fprintf(out, "wrote %s (%d bytes): %d features from %d of %d entries\n",
		args[1], size, summary.Features, summary.Converted, summary.Entries)
	for _, skip := range summary.Skipped {
		fmt.Fprintf(out, "skipped %s (%s): %v\n", skip.Entry, skip.Kind, skip.Err)
	}
	if len(summary.Warnings) > 0 {
		if verbose {
			for _, w := range summary.Warnings {
				fmt.Fprintln(out, "warning:", w)
			}
		} else {
			fmt.Fprintf(out, "%d parcels degraded, rerun with --verbose for details\n", len(summary.Warnings))
		}
	}
	return nil
}

// signalContext returns a context that is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
	return ctx, cancel
}
