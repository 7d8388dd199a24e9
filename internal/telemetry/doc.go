// Package telemetry обеспечивает наблюдаемость движка.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики
//
// Формат логов управляется переменными LOG_LEVEL и LOG_FORMAT;
// метрики экспортируются на /metrics endpoint при запуске
// с флагом --metrics-addr.
package telemetry
