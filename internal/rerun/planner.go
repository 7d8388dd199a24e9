package rerun

import (
	"errors"
	"fmt"

	"github.com/shulgin/pipevine/internal/domain"
	"github.com/shulgin/pipevine/internal/graph"
	"github.com/shulgin/pipevine/internal/runlog"
)

var (
	// ErrDagHashMismatch — определение pipeline изменилось
	// с момента предыдущего запуска.
	ErrDagHashMismatch = errors.New("pipeline definition changed since original run")

	// ErrPriorLogMismatch — предыдущий run log ссылается на узлы,
	// которых нет в DAG.
	ErrPriorLogMismatch = errors.New("previous run log does not match the pipeline")
)

// Action — решение плана по узлу.
type Action int

const (
	// ActionExecute — выполнить узел заново.
	ActionExecute Action = iota

	// ActionSkip — переиспользовать успешный результат
	// предыдущего запуска.
	ActionSkip
)

// Plan — решения по dot-path'ам узлов корневой цепочки.
// Отсутствующий путь означает выполнение.
type Plan map[string]Action

// ShouldSkip возвращает true, если узел можно не выполнять.
func (p Plan) ShouldSkip(path string) bool {
	return p != nil && p[path] == ActionSkip
}

// VerifyHash сверяет хэш определения pipeline с хэшом,
// записанным в предыдущем run log'е.
func VerifyHash(prior *runlog.RunLog, dagHash string) error {
	if prior.DagHash == "" || dagHash == "" {
		return nil
	}
	if prior.DagHash != dagHash {
		return fmt.Errorf("%w: run %s", ErrDagHashMismatch, prior.RunID)
	}
	return nil
}

// BuildPlan строит план повторного запуска по предыдущему run log'у.
//
// Обход идёт по цепочке next от start_at. Пока кэширование активно,
// узлы с прошлым статусом SUCCESS пропускаются; первый же узел
// в любом другом состоянии выключает кэширование, и весь хвост
// цепочки выполняется заново. Композитный узел пропускается или
// выполняется целиком: частичный re-run веток не поддерживается.
func BuildPlan(g *graph.Graph, prior *runlog.RunLog) (Plan, error) {
	for _, step := range prior.Steps {
		if _, err := g.SearchNodeByPath(step.InternalName); err != nil {
			return nil, fmt.Errorf("%w: unknown step %q", ErrPriorLogMismatch, step.InternalName)
		}
	}

	plan := make(Plan)
	caching := true
	cur := g.StartAt
	for {
		node, err := g.Node(cur)
		if err != nil {
			return nil, err
		}
		if node.IsTerminal() {
			break
		}

		priorStep := findStep(prior.Steps, node.InternalName)
		if caching && priorStep != nil && priorStep.Status == domain.StatusSuccess {
			plan[node.InternalName] = ActionSkip
		} else {
			caching = false
			plan[node.InternalName] = ActionExecute
		}

		if node.Next == "" {
			break
		}
		cur = node.Next
	}
	return plan, nil
}

func findStep(steps []*runlog.StepLog, internalName string) *runlog.StepLog {
	for _, s := range steps {
		if s.InternalName == internalName {
			return s
		}
	}
	return nil
}
