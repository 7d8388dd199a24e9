package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/shulgin/pipevine/internal/config"
	"github.com/shulgin/pipevine/internal/domain"
	"github.com/shulgin/pipevine/internal/engine"
	"github.com/shulgin/pipevine/internal/graph"
)

// runFlags — общие флаги команд run и retry.
type runFlags struct {
	runID       string
	tag         string
	params      []string
	paramsFile  string
	parallel    bool
	metricsAddr string
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.runID, "run-id", "", "Run identifier (generated when empty)")
	cmd.Flags().StringVar(&f.tag, "tag", "", "User-defined run tag")
	cmd.Flags().StringArrayVar(&f.params, "param", nil, "Run parameter KEY=VALUE (VALUE parsed as JSON, raw string otherwise)")
	cmd.Flags().StringVar(&f.paramsFile, "params-file", "", "YAML file with run parameters")
	cmd.Flags().BoolVar(&f.parallel, "parallel", false, "Execute composite node branches concurrently")
	cmd.Flags().StringVar(&f.metricsAddr, "metrics-addr", "", "Expose Prometheus metrics on this address during the run")
}

func newRunCmd(configFn func() string, outputFn func() *Output) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run PIPELINE_FILE",
		Short: "Execute a pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeRun(cmd, args[0], configFn(), outputFn(), &flags, "")
		},
	}
	flags.register(cmd)
	return cmd
}

func newRetryCmd(configFn func() string, outputFn func() *Output) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "retry PREVIOUS_RUN_ID PIPELINE_FILE",
		Short: "Re-run a pipeline, reusing previously successful nodes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeRun(cmd, args[1], configFn(), outputFn(), &flags, args[0])
		},
	}
	flags.register(cmd)
	return cmd
}

// executeRun — общий путь run и retry: конфигурация, компиляция,
// сервисы, движок, exit code по статусу запуска.
func executeRun(cmd *cobra.Command, pipelinePath, configPath string, out *Output, flags *runFlags, rerunOf string) error {
	ctx := cmd.Context()
	logger := slog.Default()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("parallel") {
		cfg.Parallel = flags.parallel
	}

	def, err := config.LoadPipeline(pipelinePath)
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

	params, err := collectParameters(flags)
	if err != nil {
		return err
	}

	svc, err := buildServices(ctx, cfg, logger)
	if err != nil {
		return err
	}

	if flags.metricsAddr != "" {
		stop := serveMetrics(flags.metricsAddr, logger)
		defer stop()
	}

	log, err := svc.engineFor(g).Run(ctx, engine.RunOptions{
		RunID:      flags.runID,
		Tag:        flags.tag,
		DagHash:    hash,
		Parameters: params,
		RerunOf:    rerunOf,
	})
	if err != nil {
		return err
	}

	out.Success(fmt.Sprintf("run %s finished: %s", log.RunID, log.Status))
	if log.Status != domain.StatusSuccess {
		return fmt.Errorf("run %s finished with status %s", log.RunID, log.Status)
	}
	return nil
}

// collectParameters объединяет параметры из файла и флагов;
// флаги сильнее файла.
func collectParameters(flags *runFlags) (domain.Parameters, error) {
	params := make(domain.Parameters)

	if flags.paramsFile != "" {
		raw, err := os.ReadFile(flags.paramsFile)
		if err != nil {
			return nil, fmt.Errorf("read params file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &params); err != nil {
			return nil, fmt.Errorf("parse params file: %w", err)
		}
	}

	for _, pair := range flags.params {
		key, value, err := parseParam(pair)
		if err != nil {
			return nil, err
		}
		params[key] = value
	}
	return params, nil
}

// parseParam разбирает KEY=VALUE; значение читается как JSON,
// нераспознанное значение остаётся строкой.
func parseParam(pair string) (string, any, error) {
	key, raw, ok := strings.Cut(pair, "=")
	if !ok || key == "" {
		return "", nil, fmt.Errorf("bad --param %q: expected KEY=VALUE", pair)
	}
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		value = raw
	}
	return key, value, nil
}

// serveMetrics поднимает /metrics и /healthz на время запуска.
func serveMetrics(addr string, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}
