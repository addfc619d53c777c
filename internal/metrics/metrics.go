// Package metrics implements Prometheus metrics and the HTTP API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PipelineFramesTotal counts frames handed to a hook, by direction.
	PipelineFramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "peeracct_pipeline_frames_total",
			Help: "Total number of captured frames passed to the path hooks",
		},
		[]string{"source", "direction"},
	)

	// PipelineReadErrorsTotal counts capture read failures.
	PipelineReadErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "peeracct_pipeline_read_errors_total",
			Help: "Total number of capture read errors",
		},
		[]string{"source"},
	)

	// ExportRunsTotal counts flush attempts per sink.
	ExportRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "peeracct_export_runs_total",
			Help: "Total number of export flushes per sink",
		},
		[]string{"sink"},
	)

	// ExportErrorsTotal counts failed flushes per sink.
	ExportErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "peeracct_export_errors_total",
			Help: "Total number of failed export flushes per sink",
		},
		[]string{"sink"},
	)

	// ExportRecordsTotal counts peer delta records written per sink.
	ExportRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "peeracct_export_records_total",
			Help: "Total number of peer records exported per sink",
		},
		[]string{"sink"},
	)

	// ExportDurationSeconds measures one flush across all sinks.
	ExportDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "peeracct_export_duration_seconds",
			Help:    "Duration of export flushes in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		},
	)

	// ResolverLookupsTotal counts PTR lookups by outcome (hit, miss, error).
	ResolverLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "peeracct_resolver_lookups_total",
			Help: "Total number of reverse DNS lookups by result",
		},
		[]string{"result"},
	)
)
