package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shulgin/pipevine/internal/backend"
	"github.com/shulgin/pipevine/internal/domain"
	"github.com/shulgin/pipevine/internal/graph"
	"github.com/shulgin/pipevine/internal/runlog"
	"github.com/shulgin/pipevine/internal/telemetry"
	"github.com/shulgin/pipevine/internal/tracker"
)

// mockNode переиспользует успешный результат предыдущего запуска:
// step log копируется с флагом mock, узел не выполняется.
func (e *Engine) mockNode(ctx context.Context, st *runState, node *graph.Node, mapVars domain.MapVars) (domain.Status, error) {
	path := node.StepLogPath(mapVars)
	priorStep, err := st.prior.SearchStep(path)
	if err != nil {
		return "", NewInvariantError(path, "skip planned but prior step log not found", ErrPriorStepMissing)
	}
	step, err := priorStep.Clone()
	if err != nil {
		return "", fmt.Errorf("clone prior step log: %w", err)
	}
	step.Mock = true
	step.Message = "reused result of run " + st.prior.RunID
	if err := e.store.AddStepLog(ctx, st.runID, step); err != nil {
		return "", fmt.Errorf("persist step log: %w", err)
	}
	telemetry.WithNodePath(telemetry.FromContext(ctx), path).
		InfoContext(ctx, "node skipped", "original_run_id", st.prior.RunID)
	return step.Status, nil
}

// executeTerminal выполняет success или fail узел: терминальный узел
// выставляет статус своей ветки, а для корневого графа — статус запуска.
func (e *Engine) executeTerminal(ctx context.Context, st *runState, node *graph.Node, mapVars domain.MapVars) (domain.Status, error) {
	path := node.StepLogPath(mapVars)
	step := runlog.NewStepLog(node.Name, path, node.Kind)
	step.StartedAt = time.Now()
	step.Status = domain.StatusSuccess
	step.FinishedAt = time.Now()
	if err := e.store.AddStepLog(ctx, st.runID, step); err != nil {
		return "", fmt.Errorf("persist step log: %w", err)
	}

	branchStatus := domain.StatusSuccess
	if node.Kind == domain.KindFail {
		branchStatus = domain.StatusFail
	}
	branchPath := node.BranchLogPath(mapVars)
	if err := e.store.SetBranchStatus(ctx, st.runID, branchPath, branchStatus); err != nil {
		return "", fmt.Errorf("set branch status: %w", err)
	}
	return branchStatus, nil
}

// executeLeaf выполняет task или as-is узел: синхронизация каталога,
// попытки выполнения команды, разбор эмиссии, запись step log'а.
func (e *Engine) executeLeaf(ctx context.Context, st *runState, node *graph.Node, mapVars domain.MapVars) (domain.Status, error) {
	path := node.StepLogPath(mapVars)
	logger := telemetry.WithNodePath(telemetry.FromContext(ctx), path)

	step := runlog.NewStepLog(node.Name, path, node.Kind)
	step.Status = domain.StatusRunning
	step.StartedAt = time.Now()
	if err := e.store.AddStepLog(ctx, st.runID, step); err != nil {
		return "", fmt.Errorf("persist step log: %w", err)
	}

	computeFolder := e.computeFolder(node)
	if err := e.catalogGet(ctx, st, node, step, computeFolder); err != nil {
		step.Status = domain.StatusFail
		step.Message = err.Error()
		step.FinishedAt = time.Now()
		if serr := e.store.AddStepLog(ctx, st.runID, step); serr != nil {
			logger.ErrorContext(ctx, "failed to persist step log", "error", serr)
		}
		// ошибки каталога — ошибки конфигурации: фатальны для запуска
		return "", err
	}

	status := domain.StatusSuccess
	if node.Kind == domain.KindTask {
		var err error
		status, err = e.runAttempts(ctx, st, node, step, path, mapVars, logger)
		if err != nil {
			return "", err
		}
	}

	if status == domain.StatusSuccess {
		if err := e.catalogPut(ctx, st, node, step, computeFolder, path); err != nil {
			step.Status = domain.StatusFail
			step.Message = err.Error()
			step.FinishedAt = time.Now()
			if serr := e.store.AddStepLog(ctx, st.runID, step); serr != nil {
				logger.ErrorContext(ctx, "failed to persist step log", "error", serr)
			}
			return "", err
		}
	}

	step.Status = status
	step.FinishedAt = time.Now()
	if err := e.store.AddStepLog(ctx, st.runID, step); err != nil {
		return "", fmt.Errorf("persist step log: %w", err)
	}

	telemetry.NodesExecuted.WithLabelValues(string(node.Kind), string(status)).Inc()
	telemetry.NodeDuration.WithLabelValues(string(node.Kind)).
		Observe(step.FinishedAt.Sub(step.StartedAt).Seconds())
	logger.InfoContext(ctx, "node finished", "status", status, "attempts", len(step.Attempts))
	return status, nil
}

// runAttempts выполняет команду узла до первого успеха,
// но не больше max_attempts раз.
func (e *Engine) runAttempts(ctx context.Context, st *runState, node *graph.Node, step *runlog.StepLog, path string, mapVars domain.MapVars, logger *slog.Logger) (domain.Status, error) {
	env, emitPath, err := e.buildEnv(ctx, st, node, path, mapVars)
	if err != nil {
		return "", err
	}

	req := &backend.Request{
		Command:  node.Command,
		WorkDir:  e.cfg.WorkDir,
		Env:      env,
		EmitFile: emitPath,
		Config:   node.BackendConfig,
	}

	status := domain.StatusFail
	for attempt := 1; attempt <= node.MaxAttempts; attempt++ {
		started := time.Now()
		outcome, err := e.backend.Execute(ctx, req)
		record := runlog.Attempt{
			Number:    attempt,
			StartedAt: started,
		}
		if err != nil {
			// инфраструктурная ошибка backend'а считается
			// неуспешной попыткой, а не остановкой движка
			record.Status = domain.StatusFail
			record.ExitCode = -1
			record.Message = err.Error()
		} else {
			record.Status = outcome.Status
			record.ExitCode = outcome.ExitCode
			record.Message = outcome.Message
		}
		record.FinishedAt = time.Now()
		step.Attempts = append(step.Attempts, record)

		if record.Status == domain.StatusSuccess {
			status = domain.StatusSuccess
			break
		}
		logger.WarnContext(ctx, "attempt failed",
			"attempt", attempt,
			"max_attempts", node.MaxAttempts,
			"exit_code", record.ExitCode,
		)
		if ctx.Err() != nil {
			break
		}
	}

	if status == domain.StatusSuccess {
		if err := e.foldEmitted(ctx, st, step, emitPath, env); err != nil {
			return "", err
		}
	}
	return status, nil
}

// buildEnv собирает окружение команды: параметры run'а, привязки
// итераций map-узлов, запрошенные секреты и служебные переменные.
func (e *Engine) buildEnv(ctx context.Context, st *runState, node *graph.Node, path string, mapVars domain.MapVars) (map[string]string, string, error) {
	params, err := e.store.GetParameters(ctx, st.runID)
	if err != nil {
		return nil, "", fmt.Errorf("load run parameters: %w", err)
	}

	env := make(map[string]string, len(params)+len(mapVars)+4)
	for key, value := range params {
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, "", fmt.Errorf("encode parameter %q: %w", key, err)
		}
		env[domain.ParamEnvPrefix+key] = string(raw)
	}
	// привязки итераций видны узлам ветки как обычные параметры
	for _, mv := range mapVars {
		raw, err := json.Marshal(mv.Value)
		if err != nil {
			return nil, "", fmt.Errorf("encode iteration value %q: %w", mv.Key, err)
		}
		env[domain.ParamEnvPrefix+mv.Key] = string(raw)
	}

	// отслеживаемые переменные проходят в окружение узла и после
	// успеха оседают в captured_env его step log'а
	for key, value := range e.cfg.TrackedEnv {
		env[key] = value
	}

	// отсутствие запрошенного секрета — ошибка конфигурации
	for _, name := range node.Secrets {
		value, err := e.secrets.Get(name)
		if err != nil {
			return nil, "", fmt.Errorf("resolve secret for node %s: %w", path, err)
		}
		env[domain.SecretEnvPrefix+name] = value
	}

	emitPath := e.emitFilePath(st.runID, path)
	if err := os.MkdirAll(filepath.Dir(emitPath), 0o755); err != nil {
		return nil, "", fmt.Errorf("create emit folder: %w", err)
	}
	if err := os.Remove(emitPath); err != nil && !os.IsNotExist(err) {
		return nil, "", fmt.Errorf("clear stale emit file: %w", err)
	}

	env[domain.RunIDEnv] = st.runID
	env[domain.StepEnv] = path
	env[domain.EmitFileEnv] = emitPath
	return env, emitPath, nil
}

// emitFilePath возвращает путь emit-файла узла внутри рабочей папки,
// чтобы контейнерный backend видел его через монтирование.
func (e *Engine) emitFilePath(runID, path string) string {
	name := strings.ReplaceAll(path, string(filepath.Separator), "_") + ".jsonl"
	return filepath.Join(e.cfg.WorkDir, ".pipevine", "emit", runID, name)
}

// foldEmitted раскладывает эмиссию узла: параметры уходят в run log
// и трекер, метрики — в step log и трекер, снимок отслеживаемых
// переменных — только в step log.
func (e *Engine) foldEmitted(ctx context.Context, st *runState, step *runlog.StepLog, emitPath string, env map[string]string) error {
	records, err := tracker.ReadEmitFile(emitPath)
	if err != nil {
		return NewInvariantError(step.InternalName, "malformed emit file", err)
	}
	params, metrics := tracker.SplitEmitted(records)

	if len(params) > 0 {
		if err := e.store.SetParameters(ctx, st.runID, params); err != nil {
			return fmt.Errorf("persist emitted parameters: %w", err)
		}
		for key, value := range params {
			if err := e.tracker.LogParameter(ctx, st.runID, key, value); err != nil {
				return fmt.Errorf("track parameter %q: %w", key, err)
			}
		}
	}
	for _, metric := range metrics {
		step.SetMetric(metric)
		if err := e.tracker.LogMetric(ctx, st.runID, metric); err != nil {
			return fmt.Errorf("track metric %q: %w", metric.Key, err)
		}
	}

	if captured := tracker.CaptureTrackedEnv(env); len(captured) > 0 {
		step.CapturedEnv = captured
	}
	return nil
}

// computeFolder возвращает папку данных узла относительно WorkDir.
func (e *Engine) computeFolder(node *graph.Node) string {
	folder := e.cfg.ComputeDataFolder
	if node.Catalog != nil && node.Catalog.ComputeDataFolder != "" {
		folder = node.Catalog.ComputeDataFolder
	}
	return filepath.Join(e.cfg.WorkDir, folder)
}

func (e *Engine) catalogGet(ctx context.Context, st *runState, node *graph.Node, step *runlog.StepLog, computeFolder string) error {
	if node.Catalog == nil || len(node.Catalog.Get) == 0 {
		return nil
	}
	for _, pattern := range node.Catalog.Get {
		refs, err := e.catalog.Get(ctx, st.runID, pattern, computeFolder)
		if err != nil {
			return fmt.Errorf("catalog get %q: %w", pattern, err)
		}
		step.AddArtifacts(refs)
		telemetry.CatalogTransfers.WithLabelValues("get").Add(float64(len(refs)))
	}
	return nil
}

func (e *Engine) catalogPut(ctx context.Context, st *runState, node *graph.Node, step *runlog.StepLog, computeFolder, path string) error {
	if node.Catalog == nil || len(node.Catalog.Put) == 0 {
		return nil
	}
	for _, pattern := range node.Catalog.Put {
		refs, err := e.catalog.Put(ctx, st.runID, pattern, computeFolder, path)
		if err != nil {
			return fmt.Errorf("catalog put %q: %w", pattern, err)
		}
		step.AddArtifacts(refs)
		telemetry.CatalogTransfers.WithLabelValues("put").Add(float64(len(refs)))
	}
	return nil
}
