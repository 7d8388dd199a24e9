package engine

import "errors"

// Ошибки обхода DAG.
var (
	// ErrTraversalStuck — обход не продвигается: курсор остался
	// на том же узле после выполнения.
	ErrTraversalStuck = errors.New("traversal is stuck")

	// ErrIterateNotFound — map-узел ссылается на отсутствующий
	// параметр итерации.
	ErrIterateNotFound = errors.New("iterate parameter not found")

	// ErrIterateNotList — параметр итерации map-узла не является списком.
	ErrIterateNotList = errors.New("iterate parameter is not a list")

	// ErrPriorStepMissing — план re-run пропускает узел, для которого
	// в предыдущем run log'е нет step log'а.
	ErrPriorStepMissing = errors.New("prior step log missing for skipped node")
)

// InvariantError — нарушение инварианта движка.
//
// Сигнализирует о несоответствии между DAG, run log'ом и планом
// выполнения; всегда фатальна для запуска.
type InvariantError struct {
	Path    string // dot-path узла, где нарушен инвариант
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *InvariantError) Error() string {
	if e.Path != "" {
		return "node " + e.Path + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *InvariantError) Unwrap() error {
	return e.Err
}

// NewInvariantError создаёт новую ошибку инварианта.
func NewInvariantError(path, message string, err error) *InvariantError {
	return &InvariantError{Path: path, Message: message, Err: err}
}
