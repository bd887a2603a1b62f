// Command mojfgb converts Ministry of Justice cadastral map XML archives
// into FlatGeobuf files and inspects the results.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "mojfgb",
	Short: "Convert MOJ cadastral map XML to FlatGeobuf",
	Long: `mojfgb converts 地図XML archives published through the Ministry of
Justice registry map program into spatially indexed FlatGeobuf files,
and answers metadata and bounding box queries against them.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "mojfgb:", err)
		os.Exit(1)
	}
}
