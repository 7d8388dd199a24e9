// Package domain содержит общие типы предметной области.
//
// Включает:
//   - status.go   — статусы выполнения узлов, веток и run'ов
//   - pipeline.go — декларативное определение pipeline (узлы, рёбра, каталог)
//   - values.go   — параметры, метрики, ссылки на артефакты
//
// Пакет не имеет зависимостей от других пакетов проекта —
// все остальные слои (graph, engine, runlog, catalog) строятся поверх него.
package domain
