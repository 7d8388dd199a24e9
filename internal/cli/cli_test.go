package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shulgin/pipevine/internal/domain"
	"github.com/shulgin/pipevine/internal/runlog"
)

func TestParseParam(t *testing.T) {
	cases := []struct {
		pair string
		key  string
		want any
	}{
		{"lr=0.01", "lr", 0.01},
		{"epochs=10", "epochs", float64(10)},
		{"debug=true", "debug", true},
		{"name=alice", "name", "alice"},
		{`chunks=["a","b"]`, "chunks", []any{"a", "b"}},
	}
	for _, tc := range cases {
		key, value, err := parseParam(tc.pair)
		if err != nil {
			t.Errorf("%s: %v", tc.pair, err)
			continue
		}
		if key != tc.key {
			t.Errorf("%s: key = %q", tc.pair, key)
		}
		switch want := tc.want.(type) {
		case []any:
			got, ok := value.([]any)
			if !ok || len(got) != len(want) {
				t.Errorf("%s: value = %v", tc.pair, value)
			}
		default:
			if value != tc.want {
				t.Errorf("%s: value = %v (%T)", tc.pair, value, value)
			}
		}
	}
}

func TestParseParamBadPair(t *testing.T) {
	if _, _, err := parseParam("no-equals"); err == nil {
		t.Error("expected error for pair without '='")
	}
	if _, _, err := parseParam("=value"); err == nil {
		t.Error("expected error for empty key")
	}
}

func TestCollectParametersFileAndFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.yaml")
	content := "lr: 0.1\nmodel: baseline\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write params: %v", err)
	}

	params, err := collectParameters(&runFlags{
		paramsFile: path,
		params:     []string{"lr=0.5"},
	})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	// флаг сильнее файла
	if params["lr"] != 0.5 {
		t.Errorf("lr = %v", params["lr"])
	}
	if params["model"] != "baseline" {
		t.Errorf("model = %v", params["model"])
	}
}

func TestParseMapVars(t *testing.T) {
	vars, err := parseMapVars(`[{"key":"chunk","value":"a"},{"key":"part","value":3}]`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(vars) != 2 || vars[0].Key != "chunk" || vars[1].PathValue() != "3" {
		t.Errorf("vars = %+v", vars)
	}

	empty, err := parseMapVars("")
	if err != nil || empty != nil {
		t.Errorf("empty input: %v, %v", empty, err)
	}
}

func TestRunLogOutputRows(t *testing.T) {
	log := runlog.New("run-1")

	split := runlog.NewStepLog("split", "split", domain.KindParallel)
	split.Status = domain.StatusSuccess
	split.Branches = map[string]*runlog.BranchLog{}
	branch := runlog.NewBranchLog("split.alpha")
	work := runlog.NewStepLog("work", "split.alpha.work", domain.KindTask)
	work.Status = domain.StatusSuccess
	work.Mock = true
	branch.Steps = append(branch.Steps, work)
	split.Branches["split.alpha"] = branch
	log.Steps = append(log.Steps, split)

	var rows [][]string
	appendStepRows(log.Steps, &rows)

	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2 (composite plus branch step)", len(rows))
	}
	if rows[0][0] != "split" || rows[1][0] != "split.alpha.work" {
		t.Errorf("row paths = %q, %q", rows[0][0], rows[1][0])
	}
	if rows[1][4] != "true" {
		t.Errorf("mock column = %q, want true", rows[1][4])
	}
	// незавершённый шаг не имеет длительности
	if rows[0][5] != "" {
		t.Errorf("duration of running step = %q, want empty", rows[0][5])
	}

	var buf bytes.Buffer
	out := &Output{w: &buf, errW: &buf}
	out.RunLog(log)
	if !strings.Contains(buf.String(), "split.alpha.work") {
		t.Errorf("table output misses branch step:\n%s", buf.String())
	}

	buf.Reset()
	jsonOut := &Output{jsonMode: true, w: &buf, errW: &buf}
	jsonOut.RunLog(log)
	if !strings.Contains(buf.String(), `"run_id": "run-1"`) {
		t.Errorf("json output misses run document:\n%s", buf.String())
	}
}
