package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fudemap/mojfgb/pkg/mojfgb"
)

var infoCmd = &cobra.Command{
	Use:   "info <dataset.fgb>",
	Short: "Print dataset metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	ds, err := mojfgb.Open(args[0])
	if err != nil {
		return err
	}
	defer ds.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "name:     %s\n", ds.Name())
	fmt.Fprintf(out, "geometry: %s\n", ds.GeometryType())
	fmt.Fprintf(out, "features: %d\n", ds.Count())
	org, code := ds.Crs()
	fmt.Fprintf(out, "crs:      %s:%d\n", org, code)
	fmt.Fprintf(out, "columns:  %s\n", strings.Join(ds.Columns(), ", "))
	if ds.Indexed() {
		fmt.Fprintln(out, "index:    packed R-tree")
	} else {
		fmt.Fprintln(out, "index:    none")
	}
	if ds.Count() > 0 {
		b := ds.Bounds()
		fmt.Fprintf(out, "bounds:   %.7f,%.7f %.7f,%.7f\n", b.Min[0], b.Min[1], b.Max[0], b.Max[1])
	}
	return nil
}
