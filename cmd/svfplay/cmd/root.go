package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "svfplay",
	Short: "SVF file player for JTAG targets",
	Long: `svfplay replays Serial Vector Format (SVF) files against a JTAG target
through a USB debug probe, reporting progress and verification mismatches
as it goes.

Examples:
  svfplay interfaces                          # List attached JTAG probes
  svfplay play firmware.svf                   # Replay a file against the default probe
  svfplay play -v --max-errors 5 firmware.svf  # Verbose, abort on the 5th mismatch`,
	Version: "0.9.0",
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
