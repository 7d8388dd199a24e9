package graph

import (
	"fmt"
	"strings"

	"github.com/shulgin/pipevine/internal/domain"
)

// MapPlaceholder — плейсхолдер значения итерации в dot-path узлов map-ветки.
//
// Внутреннее имя узла внутри map-ветки содержит "%" вместо значения
// итерации; значение подставляется во время выполнения.
const MapPlaceholder = "%"

// DagBranchName — имя единственной ветки dag-узла в dot-path.
const DagBranchName = "dag"

// Node — узел DAG.
//
// Имя узла (Name) относительно своего графа; внутреннее имя
// (InternalName) — абсолютный dot-path от корня pipeline'а.
type Node struct {
	// Name — имя узла в рамках графа.
	Name string

	// InternalName — абсолютный dot-path узла.
	InternalName string

	// InternalBranchName — dot-path ветки, которой принадлежит узел.
	// Пустая строка для узлов корневого графа.
	InternalBranchName string

	// Kind — тип узла.
	Kind domain.NodeKind

	// Command — команда task-узла.
	Command string

	// Next — имя следующего узла при успехе (относительно графа).
	Next string

	// OnFailure — имя узла при ошибке, или пустая строка.
	OnFailure string

	// MaxAttempts — максимум попыток выполнения, не меньше 1.
	MaxAttempts int

	// Catalog — настройки синхронизации каталога или nil.
	Catalog *domain.CatalogDef

	// Secrets — имена секретов, нужных команде узла.
	Secrets []string

	// Branches — ветки parallel-узла, ключ — полный dot-path ветки.
	Branches map[string]*Graph

	// Branch — ветка map-узла или тело dag-узла.
	Branch *Graph

	// IterateOn — имя параметра со списком итераций (map).
	IterateOn string

	// IterateAs — имя переменной итерации (map).
	IterateAs string

	// BackendConfig — переопределения настроек backend'а для узла.
	BackendConfig map[string]string
}

// IsTerminal возвращает true для success и fail узлов.
func (n *Node) IsTerminal() bool {
	return n.Kind.IsTerminal()
}

// StepLogPath возвращает dot-path step log'а узла с подставленными
// значениями итераций map-узлов.
func (n *Node) StepLogPath(mapVars domain.MapVars) string {
	return ResolvePlaceholders(n.InternalName, mapVars)
}

// BranchLogPath возвращает dot-path branch log'а ветки,
// которой принадлежит узел, с подставленными значениями итераций.
func (n *Node) BranchLogPath(mapVars domain.MapVars) string {
	return ResolvePlaceholders(n.InternalBranchName, mapVars)
}

// ResolvePlaceholders подставляет значения итераций вместо плейсхолдеров.
// Каждая привязка заменяет одно вхождение, во внешнем порядке объявления.
func ResolvePlaceholders(name string, mapVars domain.MapVars) string {
	if name == "" || len(mapVars) == 0 {
		return name
	}
	for _, v := range mapVars {
		name = strings.Replace(name, MapPlaceholder, v.PathValue(), 1)
	}
	return name
}

// Graph — направленный ациклический граф узлов pipeline.
//
// Graph неизменяем после компиляции. Тела композитных узлов —
// тоже Graph, поэтому навигация по вложенной структуре рекурсивна.
type Graph struct {
	// StartAt — имя узла, с которого начинается обход.
	StartAt string

	// InternalBranchName — dot-path ветки, которой является граф.
	// Пустая строка для корневого графа.
	InternalBranchName string

	// Nodes — узлы по имени.
	Nodes map[string]*Node

	// Order — имена узлов в порядке объявления.
	Order []string
}

// Node возвращает узел по имени или ошибку ErrNodeNotFound.
func (g *Graph) Node(name string) (*Node, error) {
	node, ok := g.Nodes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, name)
	}
	return node, nil
}

// SuccessNode возвращает терминальный success-узел графа.
func (g *Graph) SuccessNode() (*Node, error) {
	return g.singleNodeOfKind(domain.KindSuccess)
}

// FailNode возвращает терминальный fail-узел графа.
func (g *Graph) FailNode() (*Node, error) {
	return g.singleNodeOfKind(domain.KindFail)
}

func (g *Graph) singleNodeOfKind(kind domain.NodeKind) (*Node, error) {
	for _, name := range g.Order {
		if g.Nodes[name].Kind == kind {
			return g.Nodes[name], nil
		}
	}
	return nil, fmt.Errorf("%w: no %s node in graph", ErrMissingTerminal, kind)
}

// Size возвращает количество узлов графа без учёта вложенных.
func (g *Graph) Size() int {
	return len(g.Nodes)
}

// SearchNodeByPath ищет узел по абсолютному dot-path, рекурсивно
// спускаясь в композитные узлы. Плейсхолдеры map-веток сопоставляются
// с любым значением сегмента.
func (g *Graph) SearchNodeByPath(path string) (*Node, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrNodeNotFound)
	}
	segments := strings.Split(path, ".")
	return g.searchSegments(segments)
}

func (g *Graph) searchSegments(segments []string) (*Node, error) {
	node, ok := g.Nodes[segments[0]]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, strings.Join(segments, "."))
	}
	if len(segments) == 1 {
		return node, nil
	}

	// Следующий сегмент — имя ветки (или значение итерации map-узла),
	// за ним продолжение пути внутри ветки.
	switch node.Kind {
	case domain.KindParallel:
		branchPath := node.InternalName + "." + segments[1]
		branch, ok := node.Branches[branchPath]
		if !ok {
			return nil, fmt.Errorf("%w: branch %s", ErrBranchNotFound, branchPath)
		}
		return branch.searchSegments(segments[2:])
	case domain.KindMap, domain.KindDag:
		if len(segments) < 3 {
			return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, strings.Join(segments, "."))
		}
		return node.Branch.searchSegments(segments[2:])
	default:
		return nil, fmt.Errorf("%w: %s is not composite", ErrBranchNotFound, node.InternalName)
	}
}

// SearchBranchByPath ищет ветку по абсолютному dot-path.
// Для map-узлов сегмент значения итерации сопоставляется с единственной веткой.
func (g *Graph) SearchBranchByPath(path string) (*Graph, error) {
	segments := strings.Split(path, ".")
	if len(segments) < 2 {
		return nil, fmt.Errorf("%w: %s", ErrBranchNotFound, path)
	}
	node, ok := g.Nodes[segments[0]]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBranchNotFound, path)
	}

	switch node.Kind {
	case domain.KindParallel:
		branchPath := node.InternalName + "." + segments[1]
		branch, ok := node.Branches[branchPath]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrBranchNotFound, branchPath)
		}
		if len(segments) == 2 {
			return branch, nil
		}
		return branch.SearchBranchByPath(strings.Join(segments[2:], "."))
	case domain.KindMap, domain.KindDag:
		if len(segments) == 2 {
			return node.Branch, nil
		}
		return node.Branch.SearchBranchByPath(strings.Join(segments[2:], "."))
	default:
		return nil, fmt.Errorf("%w: %s is not composite", ErrBranchNotFound, node.InternalName)
	}
}
