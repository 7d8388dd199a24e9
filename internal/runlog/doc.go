// Package runlog содержит журналы выполнения pipeline.
//
// Включает:
//   - log.go      — RunLog, StepLog, BranchLog, Attempt и навигация по dot-path
//   - store.go    — интерфейс Store и выбор реализации
//   - memory.go   — хранилище в памяти (тесты, значение по умолчанию)
//   - file.go     — один JSON-документ на run в папке логов
//   - postgres.go — JSONB-документ на run в PostgreSQL
//
// RunLog — вложенная структура: step log композитного узла содержит
// branch log'и своих веток, а те — step log'и вложенных узлов.
// Документ сериализуется в JSON без потерь, что и делает возможным re-run.
package runlog
