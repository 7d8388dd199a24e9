package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/shulgin/pipevine/internal/domain"
)

// Compile строит Graph из декларативного определения и валидирует его.
//
// Проверяется:
//   - уникальность и корректность имён узлов
//   - наличие start_at и ровно одного success и одного fail узла
//   - наличие next у всех нетерминальных узлов
//   - существование целей всех рёбер
//   - отсутствие циклов
//   - рекурсивная корректность веток parallel, map и dag
func Compile(def *domain.PipelineDef) (*Graph, error) {
	return compile(def, "")
}

func compile(def *domain.PipelineDef, internalBranchName string) (*Graph, error) {
	if def == nil || len(def.Nodes) == 0 {
		return nil, newCompileError("", "pipeline has no nodes", ErrEmptyNodes)
	}
	if def.StartAt == "" {
		return nil, newCompileError("", "pipeline has no start_at", ErrNoStartAt)
	}

	g := &Graph{
		StartAt:            def.StartAt,
		InternalBranchName: internalBranchName,
		Nodes:              make(map[string]*Node, len(def.Nodes)),
	}

	// Детерминированный порядок объявления: YAML-маппинг в Go не упорядочен,
	// поэтому фиксируем сортировку по имени.
	names := make([]string, 0, len(def.Nodes))
	for name := range def.Nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	g.Order = names

	for _, name := range names {
		nodeDef := def.Nodes[name]
		node, err := buildNode(name, nodeDef, internalBranchName)
		if err != nil {
			return nil, err
		}
		g.Nodes[name] = node
	}

	if err := validate(g); err != nil {
		return nil, err
	}
	return g, nil
}

func buildNode(name string, def domain.NodeDef, internalBranchName string) (*Node, error) {
	if strings.ContainsAny(name, ".%") {
		return nil, newCompileError(name, "node names cannot contain '.' or '%'", ErrBadNodeName)
	}

	internalName := name
	if internalBranchName != "" {
		internalName = internalBranchName + "." + name
	}

	node := &Node{
		Name:               name,
		InternalName:       internalName,
		InternalBranchName: internalBranchName,
		Kind:               def.Kind,
		Command:            def.Command,
		Next:               def.Next,
		OnFailure:          def.OnFailure,
		MaxAttempts:        def.MaxAttempts,
		Catalog:            def.Catalog,
		Secrets:            def.Secrets,
		IterateOn:          def.IterateOn,
		IterateAs:          def.IterateAs,
		BackendConfig:      def.BackendConfig,
	}
	if node.MaxAttempts < 1 {
		node.MaxAttempts = 1
	}

	switch def.Kind {
	case domain.KindTask:
		if def.Command == "" {
			return nil, newCompileError(name, "task node requires a command", ErrMissingCommand)
		}

	case domain.KindAsIs, domain.KindSuccess, domain.KindFail:
		// Нет обязательных полей.

	case domain.KindParallel:
		if len(def.Branches) == 0 {
			return nil, newCompileError(name, "parallel node requires branches", ErrMissingBranches)
		}
		node.Branches = make(map[string]*Graph, len(def.Branches))
		branchNames := make([]string, 0, len(def.Branches))
		for branchName := range def.Branches {
			branchNames = append(branchNames, branchName)
		}
		sort.Strings(branchNames)
		for _, branchName := range branchNames {
			branchDef := def.Branches[branchName]
			branchPath := internalName + "." + branchName
			branch, err := compile(&branchDef, branchPath)
			if err != nil {
				return nil, fmt.Errorf("branch %s: %w", branchPath, err)
			}
			node.Branches[branchPath] = branch
		}

	case domain.KindMap:
		if def.IterateOn == "" || def.IterateAs == "" {
			return nil, newCompileError(name, "map node requires iterate_on and iterate_as", ErrMissingIterate)
		}
		if def.Branch == nil {
			return nil, newCompileError(name, "map node requires a branch", ErrMissingBranch)
		}
		branch, err := compile(def.Branch, internalName+"."+MapPlaceholder)
		if err != nil {
			return nil, fmt.Errorf("map branch of %s: %w", internalName, err)
		}
		node.Branch = branch

	case domain.KindDag:
		if def.Branch == nil {
			return nil, newCompileError(name, "dag node requires a branch", ErrMissingBranch)
		}
		branch, err := compile(def.Branch, internalName+"."+DagBranchName)
		if err != nil {
			return nil, fmt.Errorf("sub-dag of %s: %w", internalName, err)
		}
		node.Branch = branch

	default:
		return nil, newCompileError(name, fmt.Sprintf("unknown node kind %q", def.Kind), ErrUnknownNodeKind)
	}

	return node, nil
}

func validate(g *Graph) error {
	if _, ok := g.Nodes[g.StartAt]; !ok {
		return newCompileError(g.StartAt, "start_at node is not defined", ErrStartNodeMissing)
	}

	var successCount, failCount int
	for _, name := range g.Order {
		node := g.Nodes[name]

		switch node.Kind {
		case domain.KindSuccess:
			successCount++
		case domain.KindFail:
			failCount++
		default:
			if node.Next == "" {
				return newCompileError(name, "non-terminal node has no next edge", ErrMissingNext)
			}
		}

		for _, target := range neighbours(node) {
			if _, ok := g.Nodes[target]; !ok {
				return newCompileError(name,
					fmt.Sprintf("edge points to unknown node %q", target), ErrMissingEdgeTarget)
			}
		}
	}

	if successCount != 1 || failCount != 1 {
		return newCompileError("",
			fmt.Sprintf("graph must have exactly one success and one fail node, got %d/%d",
				successCount, failCount),
			ErrMissingTerminal)
	}

	return checkAcyclic(g)
}

func neighbours(n *Node) []string {
	var out []string
	if n.Next != "" {
		out = append(out, n.Next)
	}
	if n.OnFailure != "" {
		out = append(out, n.OnFailure)
	}
	return out
}

// checkAcyclic обходит граф в глубину по рёбрам next и on_failure.
// Серый узел, встреченный повторно, означает цикл.
func checkAcyclic(g *Graph) error {
	const (
		white = iota // не посещён
		grey         // в текущем пути
		black        // обработан
	)
	colors := make(map[string]int, len(g.Nodes))

	var visit func(name string) error
	visit = func(name string) error {
		colors[name] = grey
		for _, target := range neighbours(g.Nodes[name]) {
			switch colors[target] {
			case grey:
				return newCompileError(name,
					fmt.Sprintf("cycle through edge to %q", target), ErrCyclicGraph)
			case white:
				if err := visit(target); err != nil {
					return err
				}
			}
		}
		colors[name] = black
		return nil
	}

	for _, name := range g.Order {
		if colors[name] == white {
			if err := visit(name); err != nil {
				return err
			}
		}
	}
	return nil
}

// Hash возвращает стабильный хэш определения pipeline.
//
// Используется для защиты re-run: повторный запуск против run log'а,
// построенного другим DAG, отклоняется без --force.
func Hash(def *domain.PipelineDef) (string, error) {
	// json.Marshal сортирует ключи map, поэтому результат детерминирован.
	raw, err := json.Marshal(def)
	if err != nil {
		return "", fmt.Errorf("marshal pipeline def: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
