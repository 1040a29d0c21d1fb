package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/svftools/svfplay/pkg/jtag"
	"github.com/svftools/svfplay/pkg/svf"
)

var (
	playAdapter   string
	playVID       uint16
	playPID       uint16
	playFrequency float64
	playMaxErrors uint64
)

var playCmd = &cobra.Command{
	Use:   "play <file.svf>",
	Short: "Replay an SVF file against a JTAG target",
	Long: `Parse an SVF file and drive it through a JTAG bridge, reporting
progress and any verification mismatches as it plays.

Examples:
  svfplay play firmware.svf                       # play against a CMSIS-DAP probe
  svfplay play --adapter simulator firmware.svf    # play against the in-memory simulator
  svfplay play --max-errors 0 firmware.svf         # never abort on mismatch`,
	Args: cobra.ExactArgs(1),
	RunE: runPlay,
}

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().StringVarP(&playAdapter, "adapter", "a", "cmsisdap",
		"bridge type (cmsisdap, simulator)")
	playCmd.Flags().Uint16Var(&playVID, "vid", jtag.DefaultCMSISDAPVendorID, "USB vendor ID (cmsisdap)")
	playCmd.Flags().Uint16Var(&playPID, "pid", jtag.DefaultCMSISDAPProductID, "USB product ID (cmsisdap)")
	playCmd.Flags().Float64Var(&playFrequency, "frequency", 1e6, "initial TCK frequency in Hz")
	playCmd.Flags().Uint64Var(&playMaxErrors, "max-errors", 1, "abort after this many errors (0 = unlimited)")
}

func runPlay(cmd *cobra.Command, args []string) error {
	path := args[0]

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if verbose {
		fmt.Printf("Parsing %s (%d bytes)...\n", path, stat.Size())
	}

	parser := svf.NewParser(verbose)
	if err := parser.Parse(f); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	for _, w := range parser.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w.String())
	}
	if verbose {
		fmt.Printf("%d commands, %d warnings\n", len(parser.Commands), len(parser.Warnings))
	}

	bridge, closeFn, err := openBridge()
	if err != nil {
		return fmt.Errorf("open bridge: %w", err)
	}
	defer closeFn()

	ctrl := jtag.NewController(bridge, verbose)
	ctrl.SetMaxErrors(playMaxErrors)
	bridge.SetFrequency(playFrequency)

	ignoredCounts := map[svf.Kind]int{}
	ctrl.SetIgnoredCallback(func(cmd svf.Command) {
		ignoredCounts[cmd.Kind]++
	})

	start := time.Now()
	total := len(parser.Commands)
	ctrl.SetProgressCallback(func(current, total int, errors uint64, aborting bool) {
		if !verbose {
			return
		}
		if aborting {
			fmt.Printf("\naborting after %d/%d commands, %d error(s)\n", current, total, errors)
			return
		}
		if current%500 == 0 || current == total {
			fmt.Printf("\r%d/%d commands, %d error(s)", current, total, errors)
		}
	})

	ok := ctrl.Play(parser.Commands)
	elapsed := time.Since(start)

	bytesPerSec := float64(stat.Size()) / elapsed.Seconds()
	fmt.Printf("\n%d commands in %v (%.1f KB/s), %d error(s)\n",
		total, elapsed.Round(time.Millisecond), bytesPerSec/1024, ctrl.ErrorCount())

	if verbose && len(ignoredCounts) > 0 {
		fmt.Println("ignored commands (no hardware effect):")
		for kind, n := range ignoredCounts {
			fmt.Printf("  %-10s %d\n", kind, n)
		}
	}

	if !ok {
		os.Exit(1)
	}
	return nil
}

// openBridge constructs the Bridge named by --adapter. The simulator is
// useful for dry-running a file without hardware attached.
func openBridge() (jtag.Bridge, func() error, error) {
	switch playAdapter {
	case "simulator", "sim":
		sim := jtag.NewSimBridge(jtag.AdapterInfo{
			Name:         "SVF Simulator",
			MinFrequency: 1,
			MaxFrequency: 100_000_000,
		})
		return sim, func() error { return nil }, nil

	case "cmsisdap", "cmsis", "dap":
		b, err := jtag.NewCMSISDAPBridge(playVID, playPID)
		if err != nil {
			return nil, nil, err
		}
		if verbose {
			info := b.Info()
			fmt.Printf("Connected to: %s %s (serial %s, firmware %s)\n",
				info.Vendor, info.Model, info.SerialNumber, info.Firmware)
		}
		return b, b.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown adapter %q (supported: cmsisdap, simulator)", playAdapter)
	}
}
