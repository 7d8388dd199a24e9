package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shulgin/pipevine/internal/domain"
	"github.com/shulgin/pipevine/internal/runlog"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backend.Kind != "local" || cfg.RunLog.Kind != "file" || cfg.Catalog.Kind != "file" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.WorkDir != "." || cfg.ComputeDataFolder != "data" {
		t.Errorf("unexpected path defaults: %+v", cfg)
	}
}

func TestLoadYAMLThenEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
work_dir: /srv/pipelines
run_log:
  kind: memory
catalog:
  kind: file
  dir: /srv/catalog
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	// окружение сильнее файла
	t.Setenv("PIPEVINE_RUNLOG_KIND", string(runlog.KindFile))
	t.Setenv("PIPEVINE_PARALLEL", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.WorkDir != "/srv/pipelines" {
		t.Errorf("work_dir = %q", cfg.WorkDir)
	}
	if cfg.Catalog.Dir != "/srv/catalog" {
		t.Errorf("catalog dir = %q", cfg.Catalog.Dir)
	}
	if cfg.RunLog.Kind != runlog.KindFile {
		t.Errorf("run log kind = %q, env override lost", cfg.RunLog.Kind)
	}
	if !cfg.Parallel {
		t.Error("parallel env override lost")
	}
}

func TestParsePipeline(t *testing.T) {
	raw := []byte(`
dag:
  description: три шага с веткой отказа
  start_at: fetch
  nodes:
    fetch:
      kind: task
      command: python fetch.py
      next: train
      on_failure: notify
      max_attempts: 3
      catalog:
        put:
          - "raw/*.csv"
    train:
      kind: task
      command: python train.py
      next: done
      catalog:
        get:
          - "raw/*.csv"
    notify:
      kind: task
      command: python notify.py
      next: broken
    done:
      kind: success
    broken:
      kind: fail
`)
	def, err := ParsePipeline(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if def.StartAt != "fetch" {
		t.Errorf("start_at = %q", def.StartAt)
	}
	fetch, ok := def.Nodes["fetch"]
	if !ok {
		t.Fatal("fetch node missing")
	}
	if fetch.Kind != domain.KindTask || fetch.OnFailure != "notify" || fetch.MaxAttempts != 3 {
		t.Errorf("fetch = %+v", fetch)
	}
	if fetch.Catalog == nil || len(fetch.Catalog.Put) != 1 {
		t.Errorf("fetch catalog = %+v", fetch.Catalog)
	}
}

func TestParsePipelineNoDagBlock(t *testing.T) {
	_, err := ParsePipeline([]byte("nodes: {}"))
	if !errors.Is(err, ErrNoDagBlock) {
		t.Errorf("expected ErrNoDagBlock, got %v", err)
	}
}
