// Package metrics defines the Prometheus collectors shared by the Trackside
// services and exposes them over HTTP.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector used by the API and ingest binaries. Unused
// collectors cost nothing, so both binaries share one definition.
type Metrics struct {
	reg *prometheus.Registry

	// Query service.
	Queries       *prometheus.CounterVec
	QuerySoftFail *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec
	PointsAdded   prometheus.Counter

	// Embedding.
	EmbedDuration  prometheus.Histogram
	ImagesFetched  prometheus.Counter
	ImageFailures  prometheus.Counter
	FusionRequests prometheus.Counter

	// Ingestion.
	RowsLoaded    prometheus.Counter
	RowsSkipped   prometheus.Counter
	PointsBuilt   prometheus.Counter
	BatchesWritten prometheus.Counter
	IngestDuration prometheus.Histogram
}

// New creates a Metrics set on a fresh registry with Go runtime collectors.
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		reg: reg,
		Queries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "queries_total",
			Help: "Queries handled, by endpoint.",
		}, []string{"endpoint"}),
		QuerySoftFail: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "query_softfail_total",
			Help: "Queries that soft-failed to an empty result set, by reason.",
		}, []string{"reason"}),
		QueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "query_duration_seconds",
			Help:    "End-to-end query handling time.",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		PointsAdded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "points_added_total",
			Help: "Points appended by the live service.",
		}),
		EmbedDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "embed_duration_seconds",
			Help:    "Embedding provider call time.",
			Buckets: prometheus.DefBuckets,
		}),
		ImagesFetched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "images_fetched_total",
			Help: "Images fetched and embedded for fusion.",
		}),
		ImageFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "image_failures_total",
			Help: "Per-image fetch or embed failures (recoverable).",
		}),
		FusionRequests: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "fusion_requests_total",
			Help: "Multimodal fusion invocations.",
		}),
		RowsLoaded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "ingest_rows_loaded_total",
			Help: "Rows loaded from the tabular source.",
		}),
		RowsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "ingest_rows_skipped_total",
			Help: "Rows skipped by per-row errors.",
		}),
		PointsBuilt: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "ingest_points_built_total",
			Help: "Knowledge points built.",
		}),
		BatchesWritten: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "ingest_batches_written_total",
			Help: "Upsert batches written to the collection.",
		}),
		IngestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "ingest_run_duration_seconds",
			Help:    "Whole ingestion run time.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
	}
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }
