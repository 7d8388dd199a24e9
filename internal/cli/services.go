package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shulgin/pipevine/internal/backend"
	"github.com/shulgin/pipevine/internal/catalog"
	"github.com/shulgin/pipevine/internal/config"
	"github.com/shulgin/pipevine/internal/engine"
	"github.com/shulgin/pipevine/internal/graph"
	"github.com/shulgin/pipevine/internal/runlog"
	"github.com/shulgin/pipevine/internal/secrets"
	"github.com/shulgin/pipevine/internal/tracker"
)

// services — собранные по конфигурации зависимости движка.
type services struct {
	cfg     *config.Config
	store   runlog.Store
	catalog catalog.Catalog
	backend backend.Backend
	tracker tracker.Tracker
	secrets secrets.Provider
	logger  *slog.Logger
}

// buildServices конструирует сервисы по конфигурации.
func buildServices(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*services, error) {
	store, err := runlog.NewStore(ctx, cfg.RunLog)
	if err != nil {
		return nil, fmt.Errorf("run log store: %w", err)
	}
	cat, err := catalog.New(cfg.Catalog)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	be, err := backend.NewRegistry(cfg.Backend).Get(cfg.Backend.Kind)
	if err != nil {
		return nil, fmt.Errorf("backend: %w", err)
	}
	trk, err := tracker.New(cfg.Tracker)
	if err != nil {
		return nil, fmt.Errorf("tracker: %w", err)
	}
	sec, err := secrets.New(cfg.Secrets)
	if err != nil {
		return nil, fmt.Errorf("secrets: %w", err)
	}
	return &services{
		cfg:     cfg,
		store:   store,
		catalog: cat,
		backend: be,
		tracker: trk,
		secrets: sec,
		logger:  logger,
	}, nil
}

// engineFor создаёт движок для скомпилированного DAG.
func (s *services) engineFor(g *graph.Graph) *engine.Engine {
	return engine.New(g, engine.Deps{
		Store:   s.store,
		Catalog: s.catalog,
		Backend: s.backend,
		Tracker: s.tracker,
		Secrets: s.secrets,
		Logger:  s.logger,
	}, engine.Config{
		Parallel:          s.cfg.Parallel,
		WorkDir:           s.cfg.WorkDir,
		ComputeDataFolder: s.cfg.ComputeDataFolder,
		RunConfig:         s.cfg.Snapshot(),
	})
}
