package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/fpgaflow/fpgaflow/log"
)

var rootCmd = &cobra.Command{
	Use:   "fpgaflow",
	Short: "FPGA dataflow lowering and report normalization",
	Long: `fpgaflow turns vendor-neutral dataflow design descriptions into
synthesizable HLS sources and project files for the Xilinx and Intel
toolchains, and parses the toolchains' reports back into one normalized
performance/resource model.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.PersistentFlags().BoolVarP(&log.Verbose, "verbose", "v", false, "Print debug output")
	if rootCmd.Execute() != nil {
		os.Exit(1)
	}
}
