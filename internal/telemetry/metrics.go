package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики движка. Экспортируются на /metrics endpoint,
// который команда run поднимает при флаге --metrics-addr.
var (
	// NodesExecuted — количество выполненных узлов по типу и статусу.
	NodesExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pipevine_nodes_executed_total",
		Help: "Total DAG nodes executed, by node kind and terminal status",
	}, []string{"kind", "status"})

	// NodeDuration — длительность выполнения узлов по типу.
	NodeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pipevine_node_duration_seconds",
		Help:    "Wall-clock duration of node execution, by node kind",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
	}, []string{"kind"})

	// RunsTotal — количество завершённых запусков по статусу.
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pipevine_runs_total",
		Help: "Total pipeline runs, by terminal status",
	}, []string{"status"})

	// CatalogTransfers — количество артефактов, прошедших через каталог.
	CatalogTransfers = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pipevine_catalog_transfers_total",
		Help: "Total artifacts moved through the catalog, by stage (get/put)",
	}, []string{"stage"})
)
