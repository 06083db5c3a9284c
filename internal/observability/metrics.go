// Package observability exposes Prometheus metrics for the extraction
// pipeline.
package observability

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricelist_pages_total",
			Help: "Pages processed, labeled by winning strategy and outcome",
		},
		[]string{"strategy", "status"},
	)
	RowsExtractedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pricelist_rows_extracted_total",
			Help: "Canonical rows emitted by the orchestrator",
		},
	)
	RecordsMergedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricelist_records_merged_total",
			Help: "Records written to the master dataset, labeled by merge mode",
		},
		[]string{"mode"},
	)
	RetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricelist_retries_total",
			Help: "Remote call retries, labeled by operation",
		},
		[]string{"op"},
	)
	PageDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pricelist_page_duration_seconds",
			Help:    "Wall time per page across all strategy attempts",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)
)

// Start registers the collectors and serves /metrics on the given port.
func Start(port string) {
	prometheus.MustRegister(PagesTotal, RowsExtractedTotal, RecordsMergedTotal, RetriesTotal, PageDuration)
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(":"+port, nil); err != nil {
			slog.Error("metrics server stopped", "error", err)
		}
	}()
}
