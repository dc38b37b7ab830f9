package cmd

import (
	"path"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/fpgaflow/fpgaflow/config"
	"github.com/fpgaflow/fpgaflow/design"
	"github.com/fpgaflow/fpgaflow/log"
	"github.com/fpgaflow/fpgaflow/lower"
	"github.com/fpgaflow/fpgaflow/target"
	"github.com/fpgaflow/fpgaflow/util"
)

const projectFileName = "project.yaml"

var lowerArgs struct {
	target    string
	outputDir string
	part      string
}

var lowerCmd = &cobra.Command{
	Use:   "lower <design.yaml>",
	Args:  cobra.ExactArgs(1),
	Short: "Lowers a design description to vendor HLS sources and project files",
	Long: `Loads a design description, validates it and emits the HLS source units
and the project descriptor for the selected target into the output directory.`,
	Run: runLower,
}

func init() {
	lowerCmd.Flags().StringVarP(&lowerArgs.target, "target", "t", "", "Target toolchain (xilinx or intel); defaults to the design's target")
	lowerCmd.Flags().StringVarP(&lowerArgs.outputDir, "output-dir", "o", "OUTPUT", "Directory to write the artifact to")
	lowerCmd.Flags().StringVar(&lowerArgs.part, "part", "", "Target device/part, overriding the configured default")
	rootCmd.AddCommand(lowerCmd)
}

func runLower(cmd *cobra.Command, args []string) {
	g, err := design.LoadFile(args[0])
	if err != nil {
		log.Fatal("Failed to load design: %s.\n", err)
	}

	tgt := g.Vendor()
	if lowerArgs.target != "" {
		tgt, err = target.ParseTarget(lowerArgs.target)
		if err != nil {
			log.Fatal("%s.\n", err)
		}
	}

	part := lowerArgs.part
	if part == "" {
		part = config.GetConfig().DefaultPart[tgt.String()]
	}

	progress := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	progress.Suffix = " Lowering design for " + tgt.String()
	progress.Start()
	artifact, err := lower.Lower(g, tgt, lower.Options{Part: part})
	progress.Stop()

	if err != nil {
		if unvalidated, ok := err.(lower.UnvalidatedGraphError); ok {
			for _, violation := range unvalidated.Violations {
				log.Error("%s\n", violation)
			}
		}
		log.Fatal("Failed to lower design %q: %s.\n", g.Name(), err)
	}

	outDir := path.Join(lowerArgs.outputDir, tgt.String())
	for _, unit := range artifact.Sources {
		filePath := path.Join(outDir, unit.Name)
		if err := util.WriteFile(filePath, []byte(unit.Contents)); err != nil {
			log.Fatal("Failed to write %q: %s.\n", filePath, err)
		}
		log.Log("Wrote %s.\n", filePath)
	}

	// MapSlice keeps the descriptor's key order in the emitted YAML.
	settings := yaml.MapSlice(util.MappedSlice(artifact.Project.Entries(),
		func(entry util.OrderedMapEntry[string, string]) yaml.MapItem {
			return yaml.MapItem{Key: entry.Key, Value: entry.Value}
		}))
	data, err := yaml.Marshal(settings)
	if err != nil {
		log.Fatal("Failed to serialize the project descriptor: %s.\n", err)
	}
	projectPath := path.Join(outDir, projectFileName)
	if err := util.WriteFile(projectPath, data); err != nil {
		log.Fatal("Failed to write %q: %s.\n", projectPath, err)
	}
	log.Success("Lowered %q for %s into %s.\n", g.Name(), tgt, outDir)
}
