package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shulgin/pipevine/internal/config"
	"github.com/shulgin/pipevine/internal/graph"
)

func newValidateCmd(outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "validate PIPELINE_FILE",
		Short: "Compile a pipeline definition without executing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			def, err := config.LoadPipeline(args[0])
			if err != nil {
				return err
			}
			g, err := graph.Compile(def)
			if err != nil {
				return err
			}
			hash, err := graph.Hash(def)
			if err != nil {
				return err
			}

			out.Print(
				[]string{"START_AT", "NODES", "DAG_HASH"},
				[][]string{{g.StartAt, fmt.Sprintf("%d", g.Size()), hash}},
				map[string]any{"start_at": g.StartAt, "nodes": g.Size(), "dag_hash": hash},
			)
			out.Success("pipeline is valid")
			return nil
		},
	}
}
