package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shulgin/pipevine/internal/domain"
	"github.com/shulgin/pipevine/internal/graph"
	"github.com/shulgin/pipevine/internal/runlog"
	"github.com/shulgin/pipevine/internal/telemetry"
)

// branchRun — одна ветка композитного узла, готовая к выполнению.
type branchRun struct {
	path  string // dot-path branch log'а с подставленными итерациями
	graph *graph.Graph
	vars  domain.MapVars
}

// executeParallel выполняет ветки parallel-узла и агрегирует их статусы.
//
// Статус узла SUCCESS тогда и только тогда, когда все ветки SUCCESS.
// Провал одной ветки не отменяет уже запущенные соседние: узел ждёт
// терминала каждой ветки и только потом агрегирует.
func (e *Engine) executeParallel(ctx context.Context, st *runState, node *graph.Node, mapVars domain.MapVars) (domain.Status, error) {
	names := make([]string, 0, len(node.Branches))
	for name := range node.Branches {
		names = append(names, name)
	}
	sort.Strings(names)

	runs := make([]branchRun, 0, len(names))
	for _, name := range names {
		runs = append(runs, branchRun{
			path:  graph.ResolvePlaceholders(name, mapVars),
			graph: node.Branches[name],
			vars:  mapVars,
		})
	}
	return e.executeComposite(ctx, st, node, mapVars, runs)
}

// executeMap реплицирует ветку map-узла по элементам итерируемого
// параметра и агрегирует статусы реплик как parallel.
func (e *Engine) executeMap(ctx context.Context, st *runState, node *graph.Node, mapVars domain.MapVars) (domain.Status, error) {
	items, err := e.iterationItems(ctx, st, node, mapVars)
	if err != nil {
		return "", err
	}

	runs := make([]branchRun, 0, len(items))
	for _, item := range items {
		vars := mapVars.With(node.IterateAs, item)
		runs = append(runs, branchRun{
			path:  graph.ResolvePlaceholders(node.Branch.InternalBranchName, vars),
			graph: node.Branch,
			vars:  vars,
		})
	}
	return e.executeComposite(ctx, st, node, mapVars, runs)
}

// executeDag выполняет вложенный DAG как единственную ветку;
// статус проходит насквозь без изменений.
func (e *Engine) executeDag(ctx context.Context, st *runState, node *graph.Node, mapVars domain.MapVars) (domain.Status, error) {
	runs := []branchRun{{
		path:  graph.ResolvePlaceholders(node.Branch.InternalBranchName, mapVars),
		graph: node.Branch,
		vars:  mapVars,
	}}
	return e.executeComposite(ctx, st, node, mapVars, runs)
}

// executeComposite — общий каркас композитных узлов: step log,
// выполнение веток, агрегация статусов.
func (e *Engine) executeComposite(ctx context.Context, st *runState, node *graph.Node, mapVars domain.MapVars, runs []branchRun) (domain.Status, error) {
	path := node.StepLogPath(mapVars)
	step := runlog.NewStepLog(node.Name, path, node.Kind)
	step.Status = domain.StatusRunning
	step.StartedAt = time.Now()
	if err := e.store.AddStepLog(ctx, st.runID, step); err != nil {
		return "", fmt.Errorf("persist step log: %w", err)
	}

	if err := e.runBranches(ctx, st, runs); err != nil {
		return "", err
	}

	status := domain.StatusSuccess
	for _, br := range runs {
		branchStatus, err := e.store.GetBranchStatus(ctx, st.runID, br.path)
		if err != nil {
			return "", fmt.Errorf("branch %s: %w", br.path, err)
		}
		if branchStatus != domain.StatusSuccess {
			status = domain.StatusFail
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
	return status, nil
}

// runBranches выполняет ветки: одновременно в параллельном режиме,
// в порядке объявления — в последовательном. Возвращаемая ошибка
// означает структурную проблему, а не провал ветки.
func (e *Engine) runBranches(ctx context.Context, st *runState, runs []branchRun) error {
	for _, br := range runs {
		if err := e.store.AddBranchLog(ctx, st.runID, runlog.NewBranchLog(br.path)); err != nil {
			return fmt.Errorf("persist branch log %s: %w", br.path, err)
		}
	}

	if !e.cfg.Parallel {
		for _, br := range runs {
			if err := e.executeGraph(ctx, st, br.graph, br.vars); err != nil {
				return err
			}
		}
		return nil
	}

	var wg sync.WaitGroup
	errs := make([]error, len(runs))
	for i, br := range runs {
		wg.Add(1)
		go func(i int, br branchRun) {
			defer wg.Done()
			errs[i] = e.executeGraph(ctx, st, br.graph, br.vars)
		}(i, br)
	}
	wg.Wait()
	return errors.Join(errs...)
}

// iterationItems разрешает список итераций map-узла из параметров run'а.
func (e *Engine) iterationItems(ctx context.Context, st *runState, node *graph.Node, mapVars domain.MapVars) ([]any, error) {
	params, err := e.store.GetParameters(ctx, st.runID)
	if err != nil {
		return nil, fmt.Errorf("load run parameters: %w", err)
	}

	path := node.StepLogPath(mapVars)
	raw, ok := params[node.IterateOn]
	if !ok {
		return nil, NewInvariantError(path, fmt.Sprintf("parameter %q is not set", node.IterateOn), ErrIterateNotFound)
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, NewInvariantError(path, fmt.Sprintf("parameter %q is %T, expected a list", node.IterateOn, raw), ErrIterateNotList)
	}
	return items, nil
}
