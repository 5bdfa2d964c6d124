// Package metrics exposes Prometheus collectors for the harvest pipeline.
package metrics

import (
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PipelineMetrics counts pipeline outcomes per stage.
type PipelineMetrics struct {
	LinksClassified  *prometheus.CounterVec
	PagesFetched     *prometheus.CounterVec
	Extractions      *prometheus.CounterVec
	Verdicts         *prometheus.CounterVec
	ImagesStored     prometheus.Counter
	SummariesWritten *prometheus.CounterVec
	FetchDuration    prometheus.Histogram
	SummaryDuration  prometheus.Histogram
}

// NewPipelineMetrics registers pipeline collectors under the given
// namespace on the default registry.
func NewPipelineMetrics(namespace string) *PipelineMetrics {
	return &PipelineMetrics{
		LinksClassified: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_classified_total",
			Help:      "Link classifier decisions by outcome.",
		}, []string{"outcome"}),
		PagesFetched: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_fetched_total",
			Help:      "Page fetch attempts by result.",
		}, []string{"result"}),
		Extractions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractions_total",
			Help:      "Content extractions by winning strategy.",
		}, []string{"strategy"}),
		Verdicts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "article_verdicts_total",
			Help:      "Authenticity verdicts by decision.",
		}, []string{"decision"}),
		ImagesStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_stored_total",
			Help:      "Article images normalized and stored.",
		}),
		SummariesWritten: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_written_total",
			Help:      "Summary documents written by type.",
		}, []string{"type"}),
		FetchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "page_fetch_duration_seconds",
			Help:      "Page fetch latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		SummaryDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "summary_duration_seconds",
			Help:      "Batch summarization run duration.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
	}
}

// DatabaseMetrics exposes sql.DBStats gauges.
type DatabaseMetrics struct {
	openConnections prometheus.Gauge
	inUse           prometheus.Gauge
	idle            prometheus.Gauge
	waitCount       prometheus.Gauge
}

// NewDatabaseMetrics registers connection pool gauges under the namespace.
func NewDatabaseMetrics(namespace string) *DatabaseMetrics {
	return &DatabaseMetrics{
		openConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_open_connections",
			Help:      "Open database connections.",
		}),
		inUse: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_in_use",
			Help:      "Database connections currently in use.",
		}),
		idle: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_idle",
			Help:      "Idle database connections.",
		}),
		waitCount: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_wait_count",
			Help:      "Total connections waited for.",
		}),
	}
}

// UpdateDBStats refreshes the pool gauges from the live connection.
func (m *DatabaseMetrics) UpdateDBStats(db *sql.DB) {
	stats := db.Stats()
	m.openConnections.Set(float64(stats.OpenConnections))
	m.inUse.Set(float64(stats.InUse))
	m.idle.Set(float64(stats.Idle))
	m.waitCount.Set(float64(stats.WaitCount))
}
