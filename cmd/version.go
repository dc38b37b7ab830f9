package cmd

import (
	"github.com/spf13/cobra"

	"github.com/fpgaflow/fpgaflow/log"
)

const version = "0.3.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Args:  cobra.NoArgs,
	Short: "Prints the version of fpgaflow",
	Run: func(cmd *cobra.Command, args []string) {
		log.Log("This is fpgaflow version %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
