package runlog

import "errors"

// Ошибки хранилища run log'ов.
var (
	// ErrRunLogNotFound — run log не найден в хранилище.
	ErrRunLogNotFound = errors.New("run log not found")

	// ErrStepLogNotFound — step log по указанному dot-path не найден.
	ErrStepLogNotFound = errors.New("step log not found")

	// ErrBranchLogNotFound — branch log по указанному dot-path не найден.
	ErrBranchLogNotFound = errors.New("branch log not found")

	// ErrDuplicateRunID — run log с таким идентификатором уже существует.
	ErrDuplicateRunID = errors.New("run log already exists")

	// ErrUnknownStoreKind — неизвестный тип хранилища в конфигурации.
	ErrUnknownStoreKind = errors.New("unknown run log store kind")
)
