// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package aggregate runs one federated search end to end: fan-out,
// normalization, scoring and merging, optional enrichment and report
// assembly. Source and provider failures become status entries; only a
// nil or empty query, or an empty registry, is returned as an error.
package aggregate

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/pdiddy/catalog-aggregator/internal/dedup"
	"github.com/pdiddy/catalog-aggregator/internal/enrich"
	"github.com/pdiddy/catalog-aggregator/internal/fanout"
	"github.com/pdiddy/catalog-aggregator/internal/metrics"
	"github.com/pdiddy/catalog-aggregator/internal/normalize"
	"github.com/pdiddy/catalog-aggregator/internal/registry"
	"github.com/pdiddy/catalog-aggregator/internal/report"
	"github.com/pdiddy/catalog-aggregator/internal/score"
	"github.com/pdiddy/catalog-aggregator/internal/sources"
	"github.com/pdiddy/catalog-aggregator/pkg/types"
)

var (
	// ErrNilQuery is returned when Aggregate is called without a query.
	ErrNilQuery = errors.New("query is nil")

	// ErrEmptyQuery is returned for a query with no searchable terms.
	ErrEmptyQuery = types.ErrEmptyQuery

	// ErrNoSources is returned when the registry has no enabled source.
	ErrNoSources = errors.New("no enabled sources registered")
)

// Pipeline is safe for concurrent use; each call works on its own
// registry snapshot and holds its adapters open until it returns.
type Pipeline struct {
	registry    *registry.Registry
	coordinator *fanout.Coordinator
	scorer      *score.Scorer
	overlay     *enrich.Overlay
	builder     report.Builder
	cfg         types.AggregatorConfig
	logger      *zap.Logger
	metrics     *metrics.Collectors
	tracer      trace.Tracer
}

// New wires a pipeline. overlay may be nil to disable enrichment.
func New(cfg types.AggregatorConfig, reg *registry.Registry, overlay *enrich.Overlay, logger *zap.Logger, m *metrics.Collectors) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		registry: reg,
		coordinator: &fanout.Coordinator{
			Logger:  logger.Named("fanout"),
			Metrics: m,
			Options: sources.Options{MaxResults: cfg.Search.MaxResults, UserAgent: cfg.HTTP.UserAgent},
		},
		scorer:  score.New(cfg.Scoring),
		overlay: overlay,
		builder: report.Builder{MaxResults: cfg.Search.MaxResults},
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		tracer:  otel.Tracer("catalog-aggregator/aggregate"),
	}
}

// SetClock replaces the report clock and request id generator.
func (p *Pipeline) SetClock(now func() time.Time, newID func() string) {
	p.builder.Now = now
	p.builder.NewID = newID
}

// Aggregate runs one search. The query is copied before dispatch. Every
// dispatched source gets a status entry, and a result is produced even
// when every source fails.
func (p *Pipeline) Aggregate(ctx context.Context, query *types.Query) (types.AggregationResult, error) {
	if query == nil {
		return types.AggregationResult{}, ErrNilQuery
	}
	q := *query
	if err := q.Validate(); err != nil {
		return types.AggregationResult{}, err
	}

	start := time.Now()
	snapshot, release := p.registry.Acquire()
	defer release()
	if len(snapshot) == 0 {
		return types.AggregationResult{}, ErrNoSources
	}

	ctx, span := p.tracer.Start(ctx, "aggregate", trace.WithAttributes(
		attribute.String("query.text", q.Text),
		attribute.String("query.type", string(q.EffectiveType())),
		attribute.Int("sources", len(snapshot)),
	))
	defer span.End()

	raw := p.coordinator.Dispatch(ctx, q, snapshot, p.cfg.Search.DefaultSourceTimeout)

	descs := make([]types.SourceDescriptor, len(snapshot))
	priority := make(map[string]int, len(snapshot))
	for i, e := range snapshot {
		descs[i] = e.Descriptor
		priority[e.Descriptor.ID] = e.Descriptor.Priority
	}
	norm := normalize.New(descs)

	var records []types.BibliographicRecord
	statuses := make([]types.SourceStatus, len(raw))
	failed := 0
	for i, r := range raw {
		recs, errs := norm.Normalize(r, r.SourceID)
		for _, e := range errs {
			p.logger.Warn("skipping malformed record",
				zap.String("kind", string(e.Kind())),
				zap.String("source", e.SourceID),
				zap.Int("index", e.Index),
				zap.String("reason", e.Reason),
			)
		}
		statuses[i] = report.Status(r, len(recs), len(errs))
		if r.Status != types.StatusOK {
			failed++
		}
		records = append(records, recs...)
	}

	merger := dedup.New(p.cfg.Merge, p.scorer, priority, p.logger.Named("dedup"))
	merged, stats := merger.MergeWithStats(records, q)
	p.metrics.AddMergedClusters(stats.Clusters)

	// Cap before enriching so providers are only asked about records that
	// will be returned.
	report.SortRecords(merged)
	if n := p.cfg.Search.MaxResults; n > 0 && len(merged) > n {
		merged = merged[:n]
	}
	if p.overlay != nil && p.cfg.Enrichment.Enabled {
		merged = p.overlay.Enrich(ctx, merged, p.cfg.Enrichment.Budget)
	}

	res := p.builder.Build(q, merged, statuses, start)

	outcome := "ok"
	switch {
	case failed == len(raw):
		outcome = "failed"
	case failed > 0:
		outcome = "partial"
	}
	p.metrics.ObserveAggregation(outcome)
	span.SetAttributes(
		attribute.String("aggregate.outcome", outcome),
		attribute.Int("aggregate.records", len(res.Records)),
	)
	p.logger.Info("aggregation complete",
		zap.String("request_id", res.RequestID),
		zap.String("outcome", outcome),
		zap.Int("sources", len(raw)),
		zap.Int("failed_sources", failed),
		zap.Int("normalized", len(records)),
		zap.Int("records", len(res.Records)),
		zap.Int("duplicates_merged", res.DuplicatesMerged),
		zap.Int("ambiguities", len(stats.Ambiguities)),
		zap.Int64("elapsed_ms", res.TotalElapsedMs),
	)
	return res, nil
}
