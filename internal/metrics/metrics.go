// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics defines the Prometheus collectors for the aggregation
// pipeline. A nil *Collectors is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors groups every metric the pipeline reports.
type Collectors struct {
	SourceRequests    *prometheus.CounterVec
	SourceDuration    *prometheus.HistogramVec
	EnrichmentLookups *prometheus.CounterVec
	MergedClusters    prometheus.Counter
	Aggregations      *prometheus.CounterVec
}

// New registers the collectors with reg. Passing prometheus.NewRegistry()
// keeps tests isolated from the default registry.
func New(reg prometheus.Registerer) *Collectors {
	f := promauto.With(reg)
	return &Collectors{
		SourceRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_source_requests_total",
				Help: "Catalog source calls by source and outcome status",
			},
			[]string{"source", "status"},
		),
		SourceDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "catalog_source_duration_seconds",
				Help:    "Wall time of catalog source calls",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"source"},
		),
		EnrichmentLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_enrichment_lookups_total",
				Help: "Enrichment lookups by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		MergedClusters: f.NewCounter(
			prometheus.CounterOpts{
				Name: "catalog_merged_clusters_total",
				Help: "Duplicate clusters folded into a single merged record",
			},
		),
		Aggregations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_aggregations_total",
				Help: "Aggregation calls by result",
			},
			[]string{"result"},
		),
	}
}

// ObserveSource records one source call.
func (c *Collectors) ObserveSource(source, status string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.SourceRequests.WithLabelValues(source, status).Inc()
	c.SourceDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

// ObserveEnrichment records one provider lookup outcome
// ("ok", "miss", "error", "late").
func (c *Collectors) ObserveEnrichment(provider, outcome string) {
	if c == nil {
		return
	}
	c.EnrichmentLookups.WithLabelValues(provider, outcome).Inc()
}

// AddMergedClusters adds n folded clusters.
func (c *Collectors) AddMergedClusters(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.MergedClusters.Add(float64(n))
}

// ObserveAggregation records the result of one aggregation call.
func (c *Collectors) ObserveAggregation(result string) {
	if c == nil {
		return
	}
	c.Aggregations.WithLabelValues(result).Inc()
}
