package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shulgin/pipevine/internal/backend"
	"github.com/shulgin/pipevine/internal/catalog"
	"github.com/shulgin/pipevine/internal/domain"
	"github.com/shulgin/pipevine/internal/graph"
	"github.com/shulgin/pipevine/internal/rerun"
	"github.com/shulgin/pipevine/internal/runlog"
	"github.com/shulgin/pipevine/internal/secrets"
	"github.com/shulgin/pipevine/internal/telemetry"
	"github.com/shulgin/pipevine/internal/tracker"
)

// Config — настройки движка на один запуск.
type Config struct {
	// Parallel — выполнять ветки композитных узлов одновременно.
	// В последовательном режиме ветки выполняются в порядке
	// объявления; семантика статусов идентична в обоих режимах.
	Parallel bool

	// WorkDir — рабочая папка команд task-узлов.
	WorkDir string

	// ComputeDataFolder — папка данных по умолчанию, относительно
	// WorkDir. Узел может переопределить её в своём catalog-блоке.
	ComputeDataFolder string

	// RunConfig — снимок конфигурации сервисов, сохраняемый в run log.
	RunConfig map[string]string

	// TrackedEnv — снимок переменных окружения с префиксом
	// PIPEVINE_TRACK_. Они попадают в окружение каждого узла и после
	// успешного выполнения — в captured_env его step log'а.
	// nil означает снимок окружения процесса на момент создания движка.
	TrackedEnv map[string]string
}

// Deps — внешние зависимости движка.
type Deps struct {
	Store   runlog.Store
	Catalog catalog.Catalog
	Backend backend.Backend
	Tracker tracker.Tracker
	Secrets secrets.Provider
	Logger  *slog.Logger
}

// Engine — конечный автомат обхода DAG.
//
// Engine не хранит состояния между запусками: всё состояние запуска
// живёт в run log'е, поэтому один Engine можно использовать для
// нескольких последовательных запусков одного DAG.
type Engine struct {
	graph   *graph.Graph
	store   runlog.Store
	catalog catalog.Catalog
	backend backend.Backend
	tracker tracker.Tracker
	secrets secrets.Provider
	logger  *slog.Logger
	cfg     Config
}

// New создаёт движок для скомпилированного DAG.
func New(g *graph.Graph, deps Deps, cfg Config) *Engine {
	if cfg.WorkDir == "" {
		cfg.WorkDir = "."
	}
	if cfg.ComputeDataFolder == "" {
		cfg.ComputeDataFolder = catalog.DefaultComputeDataFolder
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	trk := deps.Tracker
	if trk == nil {
		trk = tracker.NoopTracker{}
	}
	sec := deps.Secrets
	if sec == nil {
		sec = secrets.DoNothingProvider{}
	}
	if cfg.TrackedEnv == nil {
		cfg.TrackedEnv = trackedEnvSnapshot(os.Environ())
	}
	return &Engine{
		graph:   g,
		store:   deps.Store,
		catalog: deps.Catalog,
		backend: deps.Backend,
		tracker: trk,
		secrets: sec,
		logger:  logger,
		cfg:     cfg,
	}
}

// RunOptions — параметры одного запуска pipeline.
type RunOptions struct {
	// RunID — идентификатор запуска; пустой генерируется.
	RunID string

	// Tag — пользовательская метка запуска.
	Tag string

	// DagHash — хэш определения pipeline (graph.Hash).
	DagHash string

	// Parameters — начальные параметры run'а.
	Parameters domain.Parameters

	// RerunOf — идентификатор предыдущего запуска для re-run;
	// пустой означает свежий запуск.
	RerunOf string
}

// newRunID генерирует идентификатор запуска: сортируемый по времени
// префикс плюс короткий uuid-суффикс.
func newRunID() string {
	return time.Now().Format("20060102150405") + "-" + uuid.NewString()[:8]
}

// trackedEnvSnapshot отбирает из окружения переменные с отслеживаемым
// префиксом. Снимок делается один раз, чтобы выполнение узлов
// не зависело от мутаций окружения процесса.
func trackedEnvSnapshot(environ []string) map[string]string {
	out := make(map[string]string)
	for _, kv := range environ {
		if !strings.HasPrefix(kv, domain.TrackEnvPrefix) {
			continue
		}
		if key, value, ok := strings.Cut(kv, "="); ok {
			out[key] = value
		}
	}
	return out
}

// runState — состояние одного запуска во время обхода.
type runState struct {
	runID string
	plan  rerun.Plan
	prior *runlog.RunLog
}

// Run выполняет pipeline от start_at до терминального узла корневого
// графа и возвращает итоговый run log.
//
// Ошибки узлов не возвращаются отсюда: они маршрутизируются внутри
// обхода и отражаются в статусе запуска. Возвращаемая ошибка означает
// структурную проблему — недоступное хранилище, ошибку каталога,
// нарушение инварианта.
func (e *Engine) Run(ctx context.Context, opts RunOptions) (*runlog.RunLog, error) {
	st, err := e.prepareRun(ctx, opts)
	if err != nil {
		return nil, err
	}

	logger := telemetry.WithRunID(e.logger, st.runID)
	ctx = telemetry.WithLogger(ctx, logger)
	logger.InfoContext(ctx, "run started",
		"start_at", e.graph.StartAt,
		"nodes", e.graph.Size(),
		"use_cached", st.prior != nil,
	)

	if err := e.executeGraph(ctx, st, e.graph, nil); err != nil {
		// структурная ошибка: фиксируем провал запуска и отдаём её выше
		if serr := e.store.SetBranchStatus(ctx, st.runID, "", domain.StatusFail); serr != nil {
			logger.ErrorContext(ctx, "failed to mark run as failed", "error", serr)
		}
		telemetry.RunsTotal.WithLabelValues(string(domain.StatusFail)).Inc()
		return nil, err
	}

	final, err := e.store.GetRunLog(ctx, st.runID)
	if err != nil {
		return nil, fmt.Errorf("load final run log: %w", err)
	}
	telemetry.RunsTotal.WithLabelValues(string(final.Status)).Inc()
	logger.InfoContext(ctx, "run finished", "status", final.Status)
	return final, nil
}

// prepareRun создаёт run log и, при re-run, план пропусков.
func (e *Engine) prepareRun(ctx context.Context, opts RunOptions) (*runState, error) {
	runID := opts.RunID
	if runID == "" {
		runID = newRunID()
	}
	// повторный идентификатор молча перезаписал бы чужой run log
	if _, err := e.store.GetRunLog(ctx, runID); err == nil {
		return nil, fmt.Errorf("%w: %s", runlog.ErrDuplicateRunID, runID)
	} else if !errors.Is(err, runlog.ErrRunLogNotFound) {
		return nil, err
	}

	log := runlog.New(runID)
	log.DagHash = opts.DagHash
	log.Tag = opts.Tag
	log.RunConfig = e.cfg.RunConfig
	params := opts.Parameters.Clone()

	st := &runState{runID: runID}
	if opts.RerunOf != "" {
		prior, err := e.store.GetRunLog(ctx, opts.RerunOf)
		if err != nil {
			return nil, fmt.Errorf("load previous run log: %w", err)
		}
		if err := rerun.VerifyHash(prior, opts.DagHash); err != nil {
			return nil, err
		}
		plan, err := rerun.BuildPlan(e.graph, prior)
		if err != nil {
			return nil, err
		}
		st.plan, st.prior = plan, prior

		log.UseCached = true
		log.OriginalRunID = prior.RunID
		// параметры прошлого запуска — база, свежие их переопределяют
		merged := prior.Parameters.Clone()
		for k, v := range params {
			merged[k] = v
		}
		params = merged

		if err := e.catalog.SyncBetweenRuns(ctx, prior.RunID, runID); err != nil {
			return nil, fmt.Errorf("sync catalog between runs: %w", err)
		}
	}

	log.Parameters = params
	if err := e.store.PutRunLog(ctx, log); err != nil {
		return nil, fmt.Errorf("persist run log: %w", err)
	}
	return st, nil
}

// executeGraph обходит один граф — корневой или ветку композитного
// узла — от start_at до его терминального узла.
func (e *Engine) executeGraph(ctx context.Context, st *runState, g *graph.Graph, mapVars domain.MapVars) error {
	current := g.StartAt
	previous := ""
	for {
		if current == previous {
			return NewInvariantError(current, "cursor did not advance", ErrTraversalStuck)
		}
		node, err := g.Node(current)
		if err != nil {
			return err
		}
		previous = current

		status, err := e.executeFromGraph(ctx, st, node, mapVars)
		if err != nil {
			return err
		}
		if node.IsTerminal() {
			return nil
		}

		current, err = e.nextNode(g, node, status)
		if err != nil {
			return err
		}
	}
}

// nextNode решает, куда двигаться после узла с данным исходом.
func (e *Engine) nextNode(g *graph.Graph, node *graph.Node, status domain.Status) (string, error) {
	if status == domain.StatusSuccess {
		return node.Next, nil
	}
	if node.OnFailure != "" {
		return node.OnFailure, nil
	}
	fail, err := g.FailNode()
	if err != nil {
		return "", err
	}
	return fail.Name, nil
}

// ExecuteSingleNode выполняет один узел существующего запуска.
//
// Используется скрытой командой exec-node, когда узел выполняется
// отдельным процессом: run log уже создан командой run, узел
// адресуется dot-path'ом с подставленными значениями итераций
// в mapVars.
func (e *Engine) ExecuteSingleNode(ctx context.Context, runID, path string, mapVars domain.MapVars) (domain.Status, error) {
	node, err := e.graph.SearchNodeByPath(path)
	if err != nil {
		return "", err
	}
	ctx = telemetry.WithLogger(ctx, telemetry.WithRunID(e.logger, runID))
	return e.executeFromGraph(ctx, &runState{runID: runID}, node, mapVars)
}

// ExecuteBranch выполняет ветку композитного узла существующего
// запуска до её терминального узла. Используется скрытой командой
// exec-branch.
func (e *Engine) ExecuteBranch(ctx context.Context, runID, branchPath string, mapVars domain.MapVars) error {
	branch, err := e.graph.SearchBranchByPath(branchPath)
	if err != nil {
		return err
	}
	st := &runState{runID: runID}
	ctx = telemetry.WithLogger(ctx, telemetry.WithRunID(e.logger, runID))
	resolved := graph.ResolvePlaceholders(branchPath, mapVars)
	if err := e.store.AddBranchLog(ctx, runID, runlog.NewBranchLog(resolved)); err != nil {
		return fmt.Errorf("persist branch log %s: %w", resolved, err)
	}
	return e.executeGraph(ctx, st, branch, mapVars)
}

// executeFromGraph выполняет один узел согласно его типу и плану re-run.
func (e *Engine) executeFromGraph(ctx context.Context, st *runState, node *graph.Node, mapVars domain.MapVars) (domain.Status, error) {
	if st.plan.ShouldSkip(node.StepLogPath(mapVars)) {
		return e.mockNode(ctx, st, node, mapVars)
	}

	switch {
	case node.IsTerminal():
		return e.executeTerminal(ctx, st, node, mapVars)
	case node.Kind == domain.KindParallel:
		return e.executeParallel(ctx, st, node, mapVars)
	case node.Kind == domain.KindMap:
		return e.executeMap(ctx, st, node, mapVars)
	case node.Kind == domain.KindDag:
		return e.executeDag(ctx, st, node, mapVars)
	default:
		return e.executeLeaf(ctx, st, node, mapVars)
	}
}
