// Package metrics exposes Prometheus instrumentation for the ingestion and
// correlation pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IngestionCycles counts completed ingestion cycles.
	IngestionCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "threatiq_ingestion_cycles_total",
		Help: "Number of completed ingestion cycles.",
	})

	// IngestionDuration observes wall-clock time per ingestion cycle.
	IngestionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "threatiq_ingestion_duration_seconds",
		Help:    "Duration of ingestion cycles.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	// FeedFetchErrors counts failed feed fetches per source.
	FeedFetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threatiq_feed_fetch_errors_total",
		Help: "Number of failed feed fetches by source.",
	}, []string{"source"})

	// ThreatsUpserted counts threat items written to the store.
	ThreatsUpserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "threatiq_threats_upserted_total",
		Help: "Number of threat items upserted.",
	})

	// RecordsSkipped counts malformed feed records dropped during transform.
	RecordsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "threatiq_records_skipped_total",
		Help: "Number of malformed feed records skipped.",
	})

	// CorrelationsWritten counts correlation records upserted.
	CorrelationsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "threatiq_correlations_written_total",
		Help: "Number of correlation records upserted.",
	})

	// TenantCorrelationErrors counts per-tenant correlation failures.
	TenantCorrelationErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "threatiq_tenant_correlation_errors_total",
		Help: "Number of per-tenant correlation failures.",
	})
)
