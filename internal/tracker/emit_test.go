package tracker

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shulgin/pipevine/internal/domain"
)

func TestReadEmitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emit.jsonl")
	content := strings.Join([]string{
		`{"kind":"parameter","key":"threshold","value":0.5}`,
		``,
		`{"kind":"metric","key":"loss","value":0.12,"step":3}`,
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write emit file: %v", err)
	}

	records, err := ReadEmitFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Kind != domain.EmitParameter || records[0].Key != "threshold" {
		t.Errorf("unexpected first record: %+v", records[0])
	}
	if records[1].Kind != domain.EmitMetric || records[1].Step != 3 {
		t.Errorf("unexpected second record: %+v", records[1])
	}
}

func TestReadEmitFileMissing(t *testing.T) {
	records, err := ReadEmitFile(filepath.Join(t.TempDir(), "absent.jsonl"))
	if err != nil {
		t.Fatalf("missing file is not an error: %v", err)
	}
	if records != nil {
		t.Errorf("expected nil records, got %v", records)
	}
}

func TestReadEmitFileBadKind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emit.jsonl")
	if err := os.WriteFile(path, []byte(`{"kind":"artifact","key":"x"}`), 0o644); err != nil {
		t.Fatalf("write emit file: %v", err)
	}
	if _, err := ReadEmitFile(path); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestSplitEmitted(t *testing.T) {
	records := []domain.EmitRecord{
		{Kind: domain.EmitParameter, Key: "lr", Value: 0.01},
		{Kind: domain.EmitMetric, Key: "loss", Value: 1.0, Step: 1},
		{Kind: domain.EmitMetric, Key: "loss", Value: 0.5, Step: 2},
		// перезапись той же пары (key, step)
		{Kind: domain.EmitMetric, Key: "loss", Value: 0.4, Step: 2},
		{Kind: domain.EmitParameter, Key: "lr", Value: 0.02},
	}

	params, metrics := SplitEmitted(records)
	if params["lr"] != 0.02 {
		t.Errorf("parameter overwrite failed: %v", params["lr"])
	}
	if len(metrics) != 2 {
		t.Fatalf("expected 2 metrics, got %d", len(metrics))
	}
	if metrics[1].Value != 0.4 {
		t.Errorf("metric overwrite failed: %+v", metrics[1])
	}
	if metrics[0].StorageKey() != "loss_1" || metrics[1].StorageKey() != "loss_2" {
		t.Errorf("unexpected storage keys: %s, %s", metrics[0].StorageKey(), metrics[1].StorageKey())
	}
}

func TestCaptureTrackedEnv(t *testing.T) {
	env := map[string]string{
		"PIPEVINE_TRACK_GIT_SHA": "abc123",
		"PIPEVINE_PRM_X":         "1",
		"PATH":                   "/usr/bin",
	}
	captured := CaptureTrackedEnv(env)
	if len(captured) != 1 {
		t.Fatalf("expected 1 captured var, got %d", len(captured))
	}
	if captured["GIT_SHA"] != "abc123" {
		t.Errorf("unexpected capture: %v", captured)
	}
}
