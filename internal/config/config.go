package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"

	"github.com/shulgin/pipevine/internal/backend"
	"github.com/shulgin/pipevine/internal/catalog"
	"github.com/shulgin/pipevine/internal/runlog"
	"github.com/shulgin/pipevine/internal/secrets"
	"github.com/shulgin/pipevine/internal/tracker"
)

// EnvPrefix — префикс переменных окружения конфигурации сервисов.
const EnvPrefix = "PIPEVINE_"

// Config — конфигурация всех сервисов движка.
type Config struct {
	// WorkDir — рабочая папка команд task-узлов.
	WorkDir string `yaml:"work_dir" env:"WORK_DIR"`

	// ComputeDataFolder — папка данных по умолчанию, относительно WorkDir.
	ComputeDataFolder string `yaml:"compute_data_folder" env:"COMPUTE_DATA_FOLDER"`

	// Parallel — выполнять ветки композитных узлов одновременно.
	Parallel bool `yaml:"parallel" env:"PARALLEL"`

	// Backend — настройки выполнения команд.
	Backend backend.Config `yaml:"backend"`

	// RunLog — настройки хранилища run log'ов.
	RunLog runlog.Config `yaml:"run_log"`

	// Catalog — настройки каталога артефактов.
	Catalog catalog.Config `yaml:"catalog"`

	// Tracker — настройки трекинга экспериментов.
	Tracker tracker.Config `yaml:"tracker"`

	// Secrets — настройки провайдера секретов.
	Secrets secrets.Config `yaml:"secrets"`
}

// Default возвращает конфигурацию по умолчанию: всё локально,
// без внешних сервисов.
func Default() *Config {
	return &Config{
		WorkDir:           ".",
		ComputeDataFolder: catalog.DefaultComputeDataFolder,
		Backend:           backend.Config{Kind: backend.KindLocal},
		RunLog:            runlog.Config{Kind: runlog.KindFile},
		Catalog:           catalog.Config{Kind: catalog.KindFile},
		Tracker:           tracker.Config{Kind: tracker.KindNoop},
		Secrets:           secrets.Config{Kind: secrets.KindDoNothing},
	}
}

// Load собирает конфигурацию: значения по умолчанию, затем YAML-файл
// (если путь не пуст), затем переменные окружения.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse config environment: %w", err)
	}
	return cfg, nil
}

// Snapshot возвращает срез конфигурации для записи в run log:
// только то, что влияет на воспроизводимость запуска.
func (c *Config) Snapshot() map[string]string {
	return map[string]string{
		"backend":             c.Backend.Kind,
		"run_log":             c.RunLog.Kind,
		"catalog":             c.Catalog.Kind,
		"tracker":             c.Tracker.Kind,
		"secrets":             c.Secrets.Kind,
		"compute_data_folder": c.ComputeDataFolder,
		"parallel":            fmt.Sprintf("%t", c.Parallel),
	}
}
