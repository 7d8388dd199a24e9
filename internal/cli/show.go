package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shulgin/pipevine/internal/config"
	"github.com/shulgin/pipevine/internal/runlog"
)

func newShowCmd(configFn func() string, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Show the run log of a pipeline run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			cfg, err := config.Load(configFn())
			if err != nil {
				return err
			}
			store, err := runlog.NewStore(cmd.Context(), cfg.RunLog)
			if err != nil {
				return err
			}
			log, err := store.GetRunLog(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out.RunLog(log)
			out.Success(fmt.Sprintf("run %s: %s", log.RunID, log.Status))
			return nil
		},
	}
}
