package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd создаёт корневую команду pipevine.
func NewRootCmd(version string) *cobra.Command {
	var configPath string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "pipevine",
		Short:         "pipevine — pipeline execution engine",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to service configuration file")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	configFn := func() string { return configPath }
	outputFn := func() *Output { return NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		newRunCmd(configFn, outputFn),
		newRetryCmd(configFn, outputFn),
		newValidateCmd(outputFn),
		newShowCmd(configFn, outputFn),
		newExecNodeCmd(configFn),
		newExecBranchCmd(configFn),
	)

	return rootCmd
}
