package backend

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shulgin/pipevine/internal/domain"
)

func TestLocalBackendSuccess(t *testing.T) {
	b := NewLocalBackend()
	out, err := b.Execute(context.Background(), &Request{
		Command: "true",
		WorkDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out.Status != domain.StatusSuccess || out.ExitCode != 0 {
		t.Errorf("unexpected outcome: %+v", out)
	}
}

func TestLocalBackendFailure(t *testing.T) {
	b := NewLocalBackend()
	out, err := b.Execute(context.Background(), &Request{
		Command: "false",
		WorkDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out.Status != domain.StatusFail {
		t.Errorf("status = %s, want FAIL", out.Status)
	}
	if out.ExitCode == 0 {
		t.Error("exit code should be non-zero")
	}
}

func TestLocalBackendEnvAndWorkDir(t *testing.T) {
	dir := t.TempDir()
	b := NewLocalBackend()

	// команда пишет значение переменной в файл в рабочей папке
	script := `printf '%s' "$PIPEVINE_PRM_NAME" > probe.out`
	if err := os.WriteFile(filepath.Join(dir, "probe.sh"), []byte(script), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	out, err := b.Execute(context.Background(), &Request{
		Command: "sh probe.sh",
		WorkDir: dir,
		Env:     map[string]string{"PIPEVINE_PRM_NAME": `"world"`},
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out.Status != domain.StatusSuccess {
		t.Fatalf("status = %s, message: %s", out.Status, out.Message)
	}
	data, err := os.ReadFile(filepath.Join(dir, "probe.out"))
	if err != nil {
		t.Fatalf("read probe output: %v", err)
	}
	if string(data) != `"world"` {
		t.Errorf("env not passed through: %q", data)
	}
}

func TestLocalBackendEmptyCommand(t *testing.T) {
	b := NewLocalBackend()
	_, err := b.Execute(context.Background(), &Request{Command: "   "})
	if !errors.Is(err, ErrEmptyCommand) {
		t.Errorf("expected ErrEmptyCommand, got %v", err)
	}
}

func TestRegistryGet(t *testing.T) {
	r := NewRegistry(Config{Kind: KindLocal})

	if _, err := r.Get(""); err != nil {
		t.Errorf("empty kind should resolve to local: %v", err)
	}
	if _, err := r.Get(KindLocalContainer); err != nil {
		t.Errorf("local-container should be registered: %v", err)
	}
	_, err := r.Get("kubernetes")
	if !errors.Is(err, ErrUnknownBackendKind) {
		t.Errorf("expected ErrUnknownBackendKind, got %v", err)
	}
}

func TestMergeEnvOverridesBase(t *testing.T) {
	env := mergeEnv([]string{"A=1", "B=2"}, map[string]string{"B": "override"})
	joined := strings.Join(env, "\n")
	if strings.Contains(joined, "B=2") {
		t.Error("base value of B should be replaced")
	}
	if !strings.Contains(joined, "B=override") || !strings.Contains(joined, "A=1") {
		t.Errorf("unexpected env: %v", env)
	}
}
