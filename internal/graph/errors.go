package graph

import "errors"

// Ошибки компиляции pipeline.
var (
	// ErrEmptyNodes — pipeline не содержит узлов.
	ErrEmptyNodes = errors.New("pipeline has no nodes")

	// ErrNoStartAt — не задан start_at.
	ErrNoStartAt = errors.New("pipeline has no start_at")

	// ErrStartNodeMissing — узел start_at не определён.
	ErrStartNodeMissing = errors.New("start_at node is not defined")

	// ErrUnknownNodeKind — неизвестный тип узла.
	ErrUnknownNodeKind = errors.New("unknown node kind")

	// ErrBadNodeName — имя узла содержит запрещённые символы.
	ErrBadNodeName = errors.New("node name contains forbidden characters")

	// ErrMissingTerminal — в графе нет ровно одного success и одного fail узла.
	ErrMissingTerminal = errors.New("graph must have exactly one success and one fail node")

	// ErrMissingNext — нетерминальный узел не имеет next-ребра.
	ErrMissingNext = errors.New("non-terminal node has no next edge")

	// ErrMissingEdgeTarget — ребро ссылается на несуществующий узел.
	ErrMissingEdgeTarget = errors.New("edge points to unknown node")

	// ErrCyclicGraph — обнаружен цикл.
	ErrCyclicGraph = errors.New("cycle detected in graph")

	// ErrMissingBranches — parallel-узел без веток.
	ErrMissingBranches = errors.New("parallel node has no branches")

	// ErrMissingBranch — map или dag узел без ветки.
	ErrMissingBranch = errors.New("composite node has no branch")

	// ErrMissingIterate — map-узел без iterate_on или iterate_as.
	ErrMissingIterate = errors.New("map node requires iterate_on and iterate_as")

	// ErrMissingCommand — task-узел без команды.
	ErrMissingCommand = errors.New("task node has no command")
)

// Ошибки навигации по графу.
var (
	// ErrNodeNotFound — узел не найден.
	ErrNodeNotFound = errors.New("node not found")

	// ErrBranchNotFound — ветка не найдена.
	ErrBranchNotFound = errors.New("branch not found")
)

// CompileError — ошибка компиляции с контекстом узла.
type CompileError struct {
	Node    string // имя узла, где произошла ошибка
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *CompileError) Error() string {
	if e.Node != "" {
		return "node " + e.Node + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *CompileError) Unwrap() error {
	return e.Err
}

func newCompileError(node, message string, err error) *CompileError {
	return &CompileError{Node: node, Message: message, Err: err}
}
