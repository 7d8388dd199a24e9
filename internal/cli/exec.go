package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shulgin/pipevine/internal/config"
	"github.com/shulgin/pipevine/internal/domain"
	"github.com/shulgin/pipevine/internal/graph"
)

// execFlags — флаги скрытых команд exec-node и exec-branch.
type execFlags struct {
	pipelinePath string
	runID        string
	mapVarsJSON  string
}

func (f *execFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.pipelinePath, "file", "", "Pipeline definition file")
	cmd.Flags().StringVar(&f.runID, "run-id", "", "Run the node belongs to")
	cmd.Flags().StringVar(&f.mapVarsJSON, "map-vars", "", `Iteration bindings as JSON, e.g. [{"key":"chunk","value":"a"}]`)
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("run-id")
}

// newExecNodeCmd — скрытая команда для выполнения одного узла
// существующего запуска отдельным процессом.
func newExecNodeCmd(configFn func() string) *cobra.Command {
	var flags execFlags

	cmd := &cobra.Command{
		Use:    "exec-node NODE_PATH",
		Short:  "Execute a single node of an existing run",
		Hidden: true,
		Args:   cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, g, err := buildExecServices(cmd, configFn(), &flags)
			if err != nil {
				return err
			}
			mapVars, err := parseMapVars(flags.mapVarsJSON)
			if err != nil {
				return err
			}

			status, err := svc.engineFor(g).ExecuteSingleNode(cmd.Context(), flags.runID, args[0], mapVars)
			if err != nil {
				return err
			}
			if status != domain.StatusSuccess {
				return fmt.Errorf("node %s finished with status %s", args[0], status)
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

// newExecBranchCmd — скрытая команда для выполнения ветки
// композитного узла существующего запуска.
func newExecBranchCmd(configFn func() string) *cobra.Command {
	var flags execFlags

	cmd := &cobra.Command{
		Use:    "exec-branch BRANCH_PATH",
		Short:  "Execute a composite node branch of an existing run",
		Hidden: true,
		Args:   cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, g, err := buildExecServices(cmd, configFn(), &flags)
			if err != nil {
				return err
			}
			mapVars, err := parseMapVars(flags.mapVarsJSON)
			if err != nil {
				return err
			}
			return svc.engineFor(g).ExecuteBranch(cmd.Context(), flags.runID, args[0], mapVars)
		},
	}
	flags.register(cmd)
	return cmd
}

func buildExecServices(cmd *cobra.Command, configPath string, flags *execFlags) (*services, *graph.Graph, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	def, err := config.LoadPipeline(flags.pipelinePath)
	if err != nil {
		return nil, nil, err
	}
	g, err := graph.Compile(def)
	if err != nil {
		return nil, nil, err
	}
	svc, err := buildServices(cmd.Context(), cfg, slog.Default())
	if err != nil {
		return nil, nil, err
	}
	return svc, g, nil
}

func parseMapVars(raw string) (domain.MapVars, error) {
	if raw == "" {
		return nil, nil
	}
	var vars domain.MapVars
	if err := json.Unmarshal([]byte(raw), &vars); err != nil {
		return nil, fmt.Errorf("parse --map-vars: %w", err)
	}
	return vars, nil
}
