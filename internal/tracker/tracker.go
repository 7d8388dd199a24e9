package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shulgin/pipevine/internal/domain"
)

// ErrUnknownTrackerKind — неизвестный тип трекера в конфигурации.
var ErrUnknownTrackerKind = errors.New("unknown tracker kind")

// Виды трекеров.
const (
	KindConsole = "console"
	KindNoop    = "do-nothing"
)

// Tracker отправляет значения во внешнюю систему трекинга.
//
// Снимок PIPEVINE_TRACK_-переменных в трекер не попадает:
// он хранится только в step log.
type Tracker interface {
	LogParameter(ctx context.Context, runID, key string, value any) error
	LogMetric(ctx context.Context, runID string, metric domain.MetricEntry) error
}

// Config — настройки трекинга.
type Config struct {
	// Kind — console или do-nothing.
	Kind string `yaml:"kind" env:"TRACKER_KIND"`
}

// New создаёт трекер по конфигурации; по умолчанию do-nothing.
func New(cfg Config) (Tracker, error) {
	switch cfg.Kind {
	case KindConsole:
		return NewConsoleTracker(slog.Default()), nil
	case KindNoop, "":
		return NoopTracker{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTrackerKind, cfg.Kind)
	}
}

// ConsoleTracker пишет значения в структурированный лог.
type ConsoleTracker struct {
	logger *slog.Logger
}

// NewConsoleTracker создаёт консольный трекер.
func NewConsoleTracker(logger *slog.Logger) *ConsoleTracker {
	return &ConsoleTracker{logger: logger}
}

func (t *ConsoleTracker) LogParameter(ctx context.Context, runID, key string, value any) error {
	t.logger.InfoContext(ctx, "tracked parameter",
		"run_id", runID,
		"key", key,
		"value", value,
	)
	return nil
}

func (t *ConsoleTracker) LogMetric(ctx context.Context, runID string, metric domain.MetricEntry) error {
	t.logger.InfoContext(ctx, "tracked metric",
		"run_id", runID,
		"key", metric.Key,
		"value", metric.Value,
		"step", metric.Step,
	)
	return nil
}

// NoopTracker молча отбрасывает значения.
type NoopTracker struct{}

func (NoopTracker) LogParameter(context.Context, string, string, any) error { return nil }
func (NoopTracker) LogMetric(context.Context, string, domain.MetricEntry) error { return nil }
