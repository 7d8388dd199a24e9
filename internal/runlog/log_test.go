package runlog

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/shulgin/pipevine/internal/domain"
)

// run log с parallel-узлом и двумя ветками, в каждой по одному шагу
func nestedRunLog() *RunLog {
	log := New("run-1")

	split := NewStepLog("split", "split", domain.KindParallel)
	log.Steps = append(log.Steps, split)

	for _, name := range []string{"alpha", "beta"} {
		branch := NewBranchLog("split." + name)
		work := NewStepLog("work", "split."+name+".work", domain.KindTask)
		branch.Steps = append(branch.Steps, work)
		if split.Branches == nil {
			split.Branches = make(map[string]*BranchLog)
		}
		split.Branches[branch.InternalName] = branch
	}
	return log
}

func TestSearchStep(t *testing.T) {
	log := nestedRunLog()

	step, err := log.SearchStep("split")
	if err != nil {
		t.Fatalf("SearchStep(split): %v", err)
	}
	if step.Kind != domain.KindParallel {
		t.Errorf("kind = %q, want parallel", step.Kind)
	}

	step, err = log.SearchStep("split.alpha.work")
	if err != nil {
		t.Fatalf("SearchStep(split.alpha.work): %v", err)
	}
	if step.InternalName != "split.alpha.work" {
		t.Errorf("InternalName = %q", step.InternalName)
	}

	if _, err := log.SearchStep(""); !errors.Is(err, ErrStepLogNotFound) {
		t.Errorf("empty path: err = %v, want %v", err, ErrStepLogNotFound)
	}
	if _, err := log.SearchStep("ghost"); !errors.Is(err, ErrStepLogNotFound) {
		t.Errorf("unknown step: err = %v, want %v", err, ErrStepLogNotFound)
	}
	if _, err := log.SearchStep("split.gamma.work"); !errors.Is(err, ErrStepLogNotFound) {
		t.Errorf("unknown branch: err = %v, want %v", err, ErrStepLogNotFound)
	}
	// Путь, обрывающийся на ветке, не адресует шаг.
	if _, err := log.SearchStep("split.alpha"); !errors.Is(err, ErrStepLogNotFound) {
		t.Errorf("branch path: err = %v, want %v", err, ErrStepLogNotFound)
	}
}

func TestSearchBranch(t *testing.T) {
	log := nestedRunLog()

	branch, err := log.SearchBranch("split.alpha")
	if err != nil {
		t.Fatalf("SearchBranch(split.alpha): %v", err)
	}
	if branch.Status != domain.StatusRunning {
		t.Errorf("status = %q, want RUNNING", branch.Status)
	}

	if _, err := log.SearchBranch(""); !errors.Is(err, ErrBranchLogNotFound) {
		t.Errorf("empty path: err = %v, want %v", err, ErrBranchLogNotFound)
	}
	if _, err := log.SearchBranch("split.gamma"); !errors.Is(err, ErrBranchLogNotFound) {
		t.Errorf("unknown branch: err = %v, want %v", err, ErrBranchLogNotFound)
	}
}

func TestUpsertStepReplaces(t *testing.T) {
	log := nestedRunLog()

	updated := NewStepLog("work", "split.alpha.work", domain.KindTask)
	updated.Status = domain.StatusSuccess
	if err := log.upsertStep(updated); err != nil {
		t.Fatalf("upsertStep: %v", err)
	}

	branch, err := log.SearchBranch("split.alpha")
	if err != nil {
		t.Fatalf("SearchBranch: %v", err)
	}
	if len(branch.Steps) != 1 {
		t.Fatalf("len(Steps) = %d, want 1 after replace", len(branch.Steps))
	}
	if branch.Steps[0].Status != domain.StatusSuccess {
		t.Errorf("status = %q, want SUCCESS", branch.Steps[0].Status)
	}

	// Новый dot-path добавляется, не заменяя существующие.
	another := NewStepLog("next", "split.alpha.next", domain.KindTask)
	if err := log.upsertStep(another); err != nil {
		t.Fatalf("upsertStep: %v", err)
	}
	if len(branch.Steps) != 2 {
		t.Errorf("len(Steps) = %d, want 2 after append", len(branch.Steps))
	}
}

func TestUpsertBranchRequiresParent(t *testing.T) {
	log := nestedRunLog()

	if err := log.upsertBranch(NewBranchLog("orphan")); !errors.Is(err, ErrBranchLogNotFound) {
		t.Errorf("root-level branch: err = %v, want %v", err, ErrBranchLogNotFound)
	}
	if err := log.upsertBranch(NewBranchLog("ghost.alpha")); !errors.Is(err, ErrStepLogNotFound) {
		t.Errorf("unknown parent: err = %v, want %v", err, ErrStepLogNotFound)
	}

	// Замена существующей ветки.
	replacement := NewBranchLog("split.alpha")
	replacement.Status = domain.StatusFail
	if err := log.upsertBranch(replacement); err != nil {
		t.Fatalf("upsertBranch: %v", err)
	}
	branch, err := log.SearchBranch("split.alpha")
	if err != nil {
		t.Fatalf("SearchBranch: %v", err)
	}
	if branch.Status != domain.StatusFail {
		t.Errorf("status = %q, want FAIL", branch.Status)
	}
}

func TestSetMetricStorageKeys(t *testing.T) {
	step := NewStepLog("train", "train", domain.KindTask)

	step.SetMetric(domain.MetricEntry{Key: "loss", Value: 0.9})
	step.SetMetric(domain.MetricEntry{Key: "loss", Value: 0.5, Step: 1})
	step.SetMetric(domain.MetricEntry{Key: "loss", Value: 0.3, Step: 1}) // перезапись

	want := map[string]any{
		"loss":   0.9,
		"loss_1": 0.3,
	}
	if !reflect.DeepEqual(step.UserDefinedMetrics, want) {
		t.Errorf("metrics = %v, want %v", step.UserDefinedMetrics, want)
	}
}

func TestRunLogJSONRoundTrip(t *testing.T) {
	log := nestedRunLog()
	log.DagHash = "abc123"
	log.Tag = "nightly"
	log.Parameters = domain.Parameters{"lr": "0.1"}
	log.RunConfig = map[string]string{"backend.kind": "local"}

	step, err := log.SearchStep("split.alpha.work")
	if err != nil {
		t.Fatalf("SearchStep: %v", err)
	}
	step.Status = domain.StatusSuccess
	step.Attempts = []Attempt{{
		Number:     1,
		Status:     domain.StatusSuccess,
		StartedAt:  time.Now().UTC().Truncate(time.Second),
		FinishedAt: time.Now().UTC().Truncate(time.Second),
	}}
	step.SetMetric(domain.MetricEntry{Key: "rows", Value: "100"})
	step.AddArtifacts([]domain.ArtifactRef{{
		Name:  "model.bin",
		Stage: "put",
	}})

	raw, err := json.Marshal(log)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var restored RunLog
	if err := json.Unmarshal(raw, &restored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	got, err := restored.SearchStep("split.alpha.work")
	if err != nil {
		t.Fatalf("SearchStep after round-trip: %v", err)
	}
	if got.Status != domain.StatusSuccess {
		t.Errorf("status = %q, want SUCCESS", got.Status)
	}
	if len(got.Attempts) != 1 || got.Attempts[0].Status != domain.StatusSuccess {
		t.Errorf("attempts lost in round-trip: %+v", got.Attempts)
	}
	if got.UserDefinedMetrics["rows"] != "100" {
		t.Errorf("metrics lost in round-trip: %v", got.UserDefinedMetrics)
	}
	if len(got.DataCatalog) != 1 || got.DataCatalog[0].Name != "model.bin" {
		t.Errorf("data catalog lost in round-trip: %v", got.DataCatalog)
	}
	if restored.DagHash != "abc123" || restored.Tag != "nightly" {
		t.Errorf("run fields lost: hash=%q tag=%q", restored.DagHash, restored.Tag)
	}
}

func TestCloneIsDeep(t *testing.T) {
	log := nestedRunLog()
	copied, err := log.clone()
	if err != nil {
		t.Fatalf("clone: %v", err)
	}

	step, err := copied.SearchStep("split.alpha.work")
	if err != nil {
		t.Fatalf("SearchStep: %v", err)
	}
	step.Status = domain.StatusFail

	original, err := log.SearchStep("split.alpha.work")
	if err != nil {
		t.Fatalf("SearchStep: %v", err)
	}
	if original.Status == domain.StatusFail {
		t.Error("mutating the clone leaked into the original")
	}
}
