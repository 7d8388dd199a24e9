package graph

import (
	"errors"
	"testing"

	"github.com/shulgin/pipevine/internal/domain"
)

// минимальный корректный pipeline: task -> success, плюс fail
func linearDef() *domain.PipelineDef {
	return &domain.PipelineDef{
		StartAt: "work",
		Nodes: map[string]domain.NodeDef{
			"work":   {Kind: domain.KindTask, Command: "run work", Next: "done"},
			"done":   {Kind: domain.KindSuccess},
			"broken": {Kind: domain.KindFail},
		},
	}
}

func TestCompileLinear(t *testing.T) {
	g, err := Compile(linearDef())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if g.StartAt != "work" {
		t.Errorf("StartAt = %q, want work", g.StartAt)
	}
	if g.Size() != 3 {
		t.Errorf("Size = %d, want 3", g.Size())
	}

	node, err := g.Node("work")
	if err != nil {
		t.Fatalf("Node(work): %v", err)
	}
	if node.InternalName != "work" {
		t.Errorf("InternalName = %q, want work", node.InternalName)
	}
	if node.InternalBranchName != "" {
		t.Errorf("InternalBranchName = %q, want empty", node.InternalBranchName)
	}
	if node.MaxAttempts != 1 {
		t.Errorf("MaxAttempts = %d, want 1 by default", node.MaxAttempts)
	}

	success, err := g.SuccessNode()
	if err != nil {
		t.Fatalf("SuccessNode: %v", err)
	}
	if success.Name != "done" {
		t.Errorf("success node = %q, want done", success.Name)
	}
	fail, err := g.FailNode()
	if err != nil {
		t.Fatalf("FailNode: %v", err)
	}
	if fail.Name != "broken" {
		t.Errorf("fail node = %q, want broken", fail.Name)
	}
}

func TestCompileErrors(t *testing.T) {
	cases := []struct {
		name string
		def  *domain.PipelineDef
		want error
	}{
		{
			name: "nil def",
			def:  nil,
			want: ErrEmptyNodes,
		},
		{
			name: "no start_at",
			def: &domain.PipelineDef{
				Nodes: map[string]domain.NodeDef{
					"done": {Kind: domain.KindSuccess},
				},
			},
			want: ErrNoStartAt,
		},
		{
			name: "start_at points nowhere",
			def: &domain.PipelineDef{
				StartAt: "missing",
				Nodes: map[string]domain.NodeDef{
					"done":   {Kind: domain.KindSuccess},
					"broken": {Kind: domain.KindFail},
				},
			},
			want: ErrStartNodeMissing,
		},
		{
			name: "unknown kind",
			def: &domain.PipelineDef{
				StartAt: "work",
				Nodes: map[string]domain.NodeDef{
					"work":   {Kind: "teleport", Next: "done"},
					"done":   {Kind: domain.KindSuccess},
					"broken": {Kind: domain.KindFail},
				},
			},
			want: ErrUnknownNodeKind,
		},
		{
			name: "dot in node name",
			def: &domain.PipelineDef{
				StartAt: "a.b",
				Nodes: map[string]domain.NodeDef{
					"a.b":    {Kind: domain.KindTask, Command: "x", Next: "done"},
					"done":   {Kind: domain.KindSuccess},
					"broken": {Kind: domain.KindFail},
				},
			},
			want: ErrBadNodeName,
		},
		{
			name: "percent in node name",
			def: &domain.PipelineDef{
				StartAt: "a%b",
				Nodes: map[string]domain.NodeDef{
					"a%b":    {Kind: domain.KindTask, Command: "x", Next: "done"},
					"done":   {Kind: domain.KindSuccess},
					"broken": {Kind: domain.KindFail},
				},
			},
			want: ErrBadNodeName,
		},
		{
			name: "task without command",
			def: &domain.PipelineDef{
				StartAt: "work",
				Nodes: map[string]domain.NodeDef{
					"work":   {Kind: domain.KindTask, Next: "done"},
					"done":   {Kind: domain.KindSuccess},
					"broken": {Kind: domain.KindFail},
				},
			},
			want: ErrMissingCommand,
		},
		{
			name: "non-terminal without next",
			def: &domain.PipelineDef{
				StartAt: "work",
				Nodes: map[string]domain.NodeDef{
					"work":   {Kind: domain.KindTask, Command: "x"},
					"done":   {Kind: domain.KindSuccess},
					"broken": {Kind: domain.KindFail},
				},
			},
			want: ErrMissingNext,
		},
		{
			name: "edge to unknown node",
			def: &domain.PipelineDef{
				StartAt: "work",
				Nodes: map[string]domain.NodeDef{
					"work":   {Kind: domain.KindTask, Command: "x", Next: "ghost"},
					"done":   {Kind: domain.KindSuccess},
					"broken": {Kind: domain.KindFail},
				},
			},
			want: ErrMissingEdgeTarget,
		},
		{
			name: "no success node",
			def: &domain.PipelineDef{
				StartAt: "work",
				Nodes: map[string]domain.NodeDef{
					"work":   {Kind: domain.KindTask, Command: "x", Next: "broken"},
					"broken": {Kind: domain.KindFail},
				},
			},
			want: ErrMissingTerminal,
		},
		{
			name: "two success nodes",
			def: &domain.PipelineDef{
				StartAt: "work",
				Nodes: map[string]domain.NodeDef{
					"work":   {Kind: domain.KindTask, Command: "x", Next: "done"},
					"done":   {Kind: domain.KindSuccess},
					"also":   {Kind: domain.KindSuccess},
					"broken": {Kind: domain.KindFail},
				},
			},
			want: ErrMissingTerminal,
		},
		{
			name: "cycle via next",
			def: &domain.PipelineDef{
				StartAt: "a",
				Nodes: map[string]domain.NodeDef{
					"a":      {Kind: domain.KindTask, Command: "x", Next: "b"},
					"b":      {Kind: domain.KindTask, Command: "x", Next: "a"},
					"done":   {Kind: domain.KindSuccess},
					"broken": {Kind: domain.KindFail},
				},
			},
			want: ErrCyclicGraph,
		},
		{
			name: "cycle via on_failure",
			def: &domain.PipelineDef{
				StartAt: "a",
				Nodes: map[string]domain.NodeDef{
					"a":      {Kind: domain.KindTask, Command: "x", Next: "b", OnFailure: "b"},
					"b":      {Kind: domain.KindTask, Command: "x", Next: "done", OnFailure: "a"},
					"done":   {Kind: domain.KindSuccess},
					"broken": {Kind: domain.KindFail},
				},
			},
			want: ErrCyclicGraph,
		},
		{
			name: "parallel without branches",
			def: &domain.PipelineDef{
				StartAt: "split",
				Nodes: map[string]domain.NodeDef{
					"split":  {Kind: domain.KindParallel, Next: "done"},
					"done":   {Kind: domain.KindSuccess},
					"broken": {Kind: domain.KindFail},
				},
			},
			want: ErrMissingBranches,
		},
		{
			name: "map without iterate",
			def: &domain.PipelineDef{
				StartAt: "fanout",
				Nodes: map[string]domain.NodeDef{
					"fanout": {Kind: domain.KindMap, Next: "done", Branch: linearDef()},
					"done":   {Kind: domain.KindSuccess},
					"broken": {Kind: domain.KindFail},
				},
			},
			want: ErrMissingIterate,
		},
		{
			name: "map without branch",
			def: &domain.PipelineDef{
				StartAt: "fanout",
				Nodes: map[string]domain.NodeDef{
					"fanout": {Kind: domain.KindMap, Next: "done", IterateOn: "chunks", IterateAs: "chunk"},
					"done":   {Kind: domain.KindSuccess},
					"broken": {Kind: domain.KindFail},
				},
			},
			want: ErrMissingBranch,
		},
		{
			name: "dag without branch",
			def: &domain.PipelineDef{
				StartAt: "inner",
				Nodes: map[string]domain.NodeDef{
					"inner":  {Kind: domain.KindDag, Next: "done"},
					"done":   {Kind: domain.KindSuccess},
					"broken": {Kind: domain.KindFail},
				},
			},
			want: ErrMissingBranch,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Compile(tc.def)
			if err == nil {
				t.Fatal("expected compile error, got nil")
			}
			if !errors.Is(err, tc.want) {
				t.Errorf("error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestCompileBranchValidation(t *testing.T) {
	// Ошибка внутри ветки parallel должна всплывать с контекстом ветки.
	def := &domain.PipelineDef{
		StartAt: "split",
		Nodes: map[string]domain.NodeDef{
			"split": {
				Kind: domain.KindParallel,
				Next: "done",
				Branches: map[string]domain.PipelineDef{
					"alpha": {
						StartAt: "work",
						Nodes: map[string]domain.NodeDef{
							"work": {Kind: domain.KindTask, Next: "done"}, // нет command
							"done": {Kind: domain.KindSuccess},
							"bad":  {Kind: domain.KindFail},
						},
					},
				},
			},
			"done":   {Kind: domain.KindSuccess},
			"broken": {Kind: domain.KindFail},
		},
	}
	_, err := Compile(def)
	if !errors.Is(err, ErrMissingCommand) {
		t.Errorf("error = %v, want %v", err, ErrMissingCommand)
	}

	var cerr *CompileError
	if !errors.As(err, &cerr) {
		t.Fatalf("error %v is not a CompileError", err)
	}
	if cerr.Node != "work" {
		t.Errorf("CompileError.Node = %q, want work", cerr.Node)
	}
}

func TestCompileInternalNames(t *testing.T) {
	branch := func(nodeName string) domain.PipelineDef {
		return domain.PipelineDef{
			StartAt: nodeName,
			Nodes: map[string]domain.NodeDef{
				nodeName: {Kind: domain.KindTask, Command: "run", Next: "done"},
				"done":   {Kind: domain.KindSuccess},
				"bad":    {Kind: domain.KindFail},
			},
		}
	}
	alpha := branch("work")
	inner := branch("step")

	def := &domain.PipelineDef{
		StartAt: "split",
		Nodes: map[string]domain.NodeDef{
			"split": {
				Kind: domain.KindParallel,
				Next: "fanout",
				Branches: map[string]domain.PipelineDef{
					"alpha": alpha,
					"beta":  branch("work"),
				},
			},
			"fanout": {
				Kind:      domain.KindMap,
				Next:      "nested",
				IterateOn: "chunks",
				IterateAs: "chunk",
				Branch:    &alpha,
			},
			"nested": {Kind: domain.KindDag, Next: "done", Branch: &inner},
			"done":   {Kind: domain.KindSuccess},
			"broken": {Kind: domain.KindFail},
		},
	}
	g, err := Compile(def)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	split := g.Nodes["split"]
	alphaGraph, ok := split.Branches["split.alpha"]
	if !ok {
		t.Fatalf("branches = %v, want key split.alpha", split.Branches)
	}
	if got := alphaGraph.Nodes["work"].InternalName; got != "split.alpha.work" {
		t.Errorf("parallel branch node path = %q, want split.alpha.work", got)
	}

	fanout := g.Nodes["fanout"]
	if got := fanout.Branch.InternalBranchName; got != "fanout."+MapPlaceholder {
		t.Errorf("map branch path = %q, want fanout.%%", got)
	}
	if got := fanout.Branch.Nodes["work"].InternalName; got != "fanout.%.work" {
		t.Errorf("map branch node path = %q, want fanout.%%.work", got)
	}

	nested := g.Nodes["nested"]
	if got := nested.Branch.InternalBranchName; got != "nested."+DagBranchName {
		t.Errorf("dag branch path = %q, want nested.dag", got)
	}
	if got := nested.Branch.Nodes["step"].InternalName; got != "nested.dag.step" {
		t.Errorf("dag branch node path = %q, want nested.dag.step", got)
	}
}

func TestHashStability(t *testing.T) {
	h1, err := Hash(linearDef())
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	h2, err := Hash(linearDef())
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if h1 != h2 {
		t.Errorf("hash is not deterministic: %s != %s", h1, h2)
	}

	changed := linearDef()
	node := changed.Nodes["work"]
	node.Command = "run something-else"
	changed.Nodes["work"] = node
	h3, err := Hash(changed)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if h3 == h1 {
		t.Error("hash did not change after definition change")
	}
}
