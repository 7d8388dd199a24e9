// Package graph содержит модель DAG pipeline'а.
//
// Включает:
//   - graph.go   — Graph и Node, навигация по dot-path
//   - compile.go — компиляция PipelineDef в Graph с валидацией
//   - errors.go  — ошибки компиляции
//
// Композитные узлы (parallel, map, dag) структурно тоже узлы,
// но их тело — сам Graph, что даёт единый рекурсивный обход.
package graph
