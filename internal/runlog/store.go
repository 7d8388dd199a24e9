package runlog

import (
	"context"
	"fmt"

	"github.com/shulgin/pipevine/internal/domain"
)

// Store — интерфейс хранилища run log'ов.
//
// Все операции адресуются dot-path'ами узлов. Записи разных веток
// могут перемежаться во времени, но последовательность статусов
// каждого отдельного dot-path строго упорядочена — ключи записи
// уникальны, поэтому конкурирующие ветки не конфликтуют.
//
// Пустой branch path везде означает сам run log: корневой граф
// не имеет собственного branch log'а, его статус — статус запуска.
type Store interface {
	// PutRunLog сохраняет run log целиком.
	PutRunLog(ctx context.Context, log *RunLog) error

	// GetRunLog возвращает run log по идентификатору запуска.
	GetRunLog(ctx context.Context, runID string) (*RunLog, error)

	// AddStepLog добавляет или заменяет step log по его dot-path.
	AddStepLog(ctx context.Context, runID string, step *StepLog) error

	// GetStepLog возвращает step log по dot-path.
	GetStepLog(ctx context.Context, runID, path string) (*StepLog, error)

	// AddBranchLog добавляет или заменяет branch log по его dot-path.
	AddBranchLog(ctx context.Context, runID string, branch *BranchLog) error

	// GetBranchStatus возвращает статус ветки, или статус запуска
	// при пустом path.
	GetBranchStatus(ctx context.Context, runID, path string) (domain.Status, error)

	// SetBranchStatus выставляет статус ветки, или статус запуска
	// при пустом path.
	SetBranchStatus(ctx context.Context, runID, path string, status domain.Status) error

	// GetParameters возвращает параметры запуска.
	GetParameters(ctx context.Context, runID string) (domain.Parameters, error)

	// SetParameters добавляет параметры к запуску (merge по ключам).
	SetParameters(ctx context.Context, runID string, params domain.Parameters) error
}

// Виды хранилищ.
const (
	KindMemory   = "memory"
	KindFile     = "file"
	KindPostgres = "postgres"
)

// Config — конфигурация хранилища run log'ов.
type Config struct {
	// Kind — memory, file или postgres.
	Kind string `yaml:"kind" env:"RUNLOG_KIND"`

	// LogDir — папка JSON-документов для file-хранилища.
	LogDir string `yaml:"log_dir" env:"RUNLOG_DIR"`

	// DatabaseURL — DSN для postgres-хранилища.
	DatabaseURL string `yaml:"database_url" env:"RUNLOG_DB_URL"`
}

// NewStore создаёт хранилище по конфигурации.
// Пустой Kind трактуется как file с папкой по умолчанию.
func NewStore(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Kind {
	case KindMemory:
		return NewMemoryStore(), nil
	case KindFile, "":
		dir := cfg.LogDir
		if dir == "" {
			dir = ".pipevine/run_logs"
		}
		return NewFileStore(dir), nil
	case KindPostgres:
		return NewPostgresStore(ctx, cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownStoreKind, cfg.Kind)
	}
}
