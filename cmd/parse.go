package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/fpgaflow/fpgaflow/log"
	"github.com/fpgaflow/fpgaflow/report"
	"github.com/fpgaflow/fpgaflow/target"
)

var parseArgs struct {
	target    string
	synthesis string
	timing    string
	toolLog   string
}

var parseCmd = &cobra.Command{
	Use:   "parse",
	Args:  cobra.NoArgs,
	Short: "Parses vendor toolchain reports into the normalized build report",
	Long: `Parses the report files of one toolchain run and prints the normalized
build report as YAML. Fields that are not present in the reports are omitted
rather than reported as zero.`,
	Run: runParse,
}

func init() {
	parseCmd.Flags().StringVarP(&parseArgs.target, "target", "t", "", "Target toolchain the reports came from (xilinx or intel)")
	parseCmd.Flags().StringVar(&parseArgs.synthesis, "synthesis", "", "Synthesis report file (required)")
	parseCmd.Flags().StringVar(&parseArgs.timing, "timing", "", "Timing report file")
	parseCmd.Flags().StringVar(&parseArgs.toolLog, "log", "", "Tool log file")
	parseCmd.MarkFlagRequired("target")
	parseCmd.MarkFlagRequired("synthesis")
	rootCmd.AddCommand(parseCmd)
}

func openReport(path string) io.Reader {
	if path == "" {
		return nil
	}
	file, err := os.Open(path)
	if err != nil {
		log.Fatal("Failed to open report file: %s.\n", err)
	}
	return file
}

func runParse(cmd *cobra.Command, args []string) {
	tgt, err := target.ParseTarget(parseArgs.target)
	if err != nil {
		log.Fatal("%s.\n", err)
	}

	in := report.Input{
		Synthesis: openReport(parseArgs.synthesis),
		Timing:    openReport(parseArgs.timing),
		Log:       openReport(parseArgs.toolLog),
	}
	result, err := report.Parse(tgt, in)
	if err != nil {
		log.Fatal("Failed to parse %s reports: %s.\n", tgt, err)
	}

	data, err := yaml.Marshal(result)
	if err != nil {
		log.Fatal("Failed to serialize the build report: %s.\n", err)
	}
	fmt.Printf("target: %s\n%s", tgt, data)
}
