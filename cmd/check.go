package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/fpgaflow/fpgaflow/design"
	"github.com/fpgaflow/fpgaflow/graph"
	"github.com/fpgaflow/fpgaflow/log"
	"github.com/fpgaflow/fpgaflow/util"
)

var checkCmd = &cobra.Command{
	Use:   "check <design.yaml>",
	Args:  cobra.ExactArgs(1),
	Short: "Validates a design description",
	Long: `Loads a design description, builds the IR graph and runs all structural
checks. All violations are reported at once.`,
	Run: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) {
	g, err := design.LoadFile(args[0])
	if err != nil {
		log.Fatal("Failed to load design: %s.\n", err)
	}

	violations := g.Validate()
	if len(violations) == 0 {
		log.Success("Design %q is valid (%d nodes, %d edges).\n", g.Name(), g.NumNodes(), len(g.Edges()))
		return
	}
	ordered := util.SliceOrderedBy(violations, func(v *graph.Violation) string {
		return v.String()
	})
	for _, violation := range ordered {
		log.Error("%s\n", violation)
	}
	os.Exit(1)
}
