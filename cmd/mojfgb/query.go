package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/spf13/cobra"

	"github.com/fudemap/mojfgb/pkg/mojfgb"
)

var queryCmd = &cobra.Command{
	Use:   "query <dataset.fgb>",
	Short: "List features intersecting a bounding box",
	Long: `Query lists the id and 地番 of every parcel whose bounding box
intersects the given window, using the file's spatial index.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().String("bbox", "", "window as minLon,minLat,maxLon,maxLat (required)")
	queryCmd.MarkFlagRequired("bbox")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	spec, _ := cmd.Flags().GetString("bbox")
	bound, err := parseBound(spec)
	if err != nil {
		return err
	}

	ds, err := mojfgb.Open(args[0])
	if err != nil {
		return err
	}
	defer ds.Close()

	features, err := ds.FeaturesInBounds(bound)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for i := range features {
		f := &features[i]
		if jiban, ok := f.Attribute("地番"); ok {
			fmt.Fprintf(out, "%s\t%s\n", f.ID(), jiban)
		} else {
			fmt.Fprintln(out, f.ID())
		}
	}
	fmt.Fprintf(out, "%d features\n", len(features))
	return nil
}

func parseBound(spec string) (orb.Bound, error) {
	parts := strings.Split(spec, ",")
	if len(parts) != 4 {
		return orb.Bound{}, fmt.Errorf("bbox needs minLon,minLat,maxLon,maxLat, got %q", spec)
	}
	var vals [4]float64
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return orb.Bound{}, fmt.Errorf("bbox value %q: %w", part, err)
		}
		vals[i] = v
	}
	if vals[0] > vals[2] || vals[1] > vals[3] {
		return orb.Bound{}, fmt.Errorf("bbox min exceeds max in %q", spec)
	}
	return orb.Bound{Min: orb.Point{vals[0], vals[1]}, Max: orb.Point{vals[2], vals[3]}}, nil
}
