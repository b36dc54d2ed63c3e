// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package enrich annotates merged records with citation counts and
// candidate PDF links from secondary providers. Lookups run concurrently
// under a global budget, each provider is spaced by its own rate limiter,
// and every failure is swallowed: enrichment only ever adds CitationInfo
// and PDFAccess.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/pdiddy/catalog-aggregator/internal/metrics"
	"github.com/pdiddy/catalog-aggregator/pkg/types"
)

// ErrNoLookupKey means the record carries no identifier the provider
// understands (usually no DOI).
var ErrNoLookupKey = errors.New("no lookup key")

// ErrNotFound means the provider has no entry for the record.
var ErrNotFound = errors.New("not found")

// Metadata is what one provider knows about one record.
type Metadata struct {
	// CitationCount is nil when the provider reported none.
	CitationCount *int
	PDFLinks      []types.PDFLink
}

// Provider looks up secondary metadata for a record.
type Provider interface {
	Name() string
	Lookup(ctx context.Context, rec types.BibliographicRecord) (Metadata, error)
}

// Keyer is implemented by providers that can tell without I/O whether a
// record carries their lookup key. Records without a key are skipped
// before they take a rate-limiter slot.
type Keyer interface {
	Key(rec types.BibliographicRecord) (string, error)
}

// Overlay runs providers over a record list.
type Overlay struct {
	providers []Provider
	limiters  []*rate.Limiter
	cfg       types.EnrichmentConfig
	logger    *zap.Logger
	metrics   *metrics.Collectors
	tracer    trace.Tracer
}

// New creates an overlay. Zero config fields take the defaults.
func New(providers []Provider, cfg types.EnrichmentConfig, logger *zap.Logger, m *metrics.Collectors) *Overlay {
	def := types.DefaultAggregatorConfig().Enrichment
	if cfg.Budget <= 0 {
		cfg.Budget = def.Budget
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = def.ProviderTimeout
	}
	if cfg.MinSpacing <= 0 {
		cfg.MinSpacing = def.MinSpacing
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = def.MaxConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	limiters := make([]*rate.Limiter, len(providers))
	for i := range providers {
		// Burst 1 so consecutive requests to one provider are at least
		// MinSpacing apart, across all records.
		limiters[i] = rate.NewLimiter(rate.Every(cfg.MinSpacing), 1)
	}
	return &Overlay{
		providers: providers,
		limiters:  limiters,
		cfg:       cfg,
		logger:    logger,
		metrics:   m,
		tracer:    otel.Tracer("catalog-aggregator/enrich"),
	}
}

// Providers returns the provider names in lookup order.
func (o *Overlay) Providers() []string {
	names := make([]string, len(o.providers))
	for i, p := range o.providers {
		names[i] = p.Name()
	}
	return names
}

type slot struct {
	meta Metadata
	ok   bool
}

// Enrich returns records with annotations attached, same length and
// order. It returns when every lookup has finished or the budget (the
// configured one when budget is zero) has elapsed; results arriving later
// are discarded. The input slice is not modified.
func (o *Overlay) Enrich(ctx context.Context, records []types.MergedRecord, budget time.Duration) []types.MergedRecord {
	out := make([]types.MergedRecord, len(records))
	copy(out, records)
	if len(records) == 0 || len(o.providers) == 0 {
		return out
	}
	if budget <= 0 {
		budget = o.cfg.Budget
	}

	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()
	ctx, span := o.tracer.Start(ctx, "enrich", trace.WithAttributes(
		attribute.Int("enrich.records", len(records)),
		attribute.Int("enrich.providers", len(o.providers)),
	))
	defer span.End()

	slots := make([][]slot, len(records))
	for i := range slots {
		slots[i] = make([]slot, len(o.providers))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.MaxConcurrency)
schedule:
	for i := range records {
		for p := range o.providers {
			if gctx.Err() != nil {
				break schedule
			}
			if !o.hasKey(p, records[i].BibliographicRecord) {
				continue
			}
			g.Go(func() error {
				slots[i][p] = o.lookup(gctx, p, records[i].BibliographicRecord)
				return nil
			})
		}
	}
	_ = g.Wait()

	for i := range out {
		attach(&out[i], o.providers, slots[i])
	}
	return out
}

// hasKey reports whether provider p can look rec up. A miss is counted
// for records it cannot.
func (o *Overlay) hasKey(p int, rec types.BibliographicRecord) bool {
	k, ok := o.providers[p].(Keyer)
	if !ok {
		return true
	}
	if _, err := k.Key(rec); err != nil {
		o.metrics.ObserveEnrichment(o.providers[p].Name(), "miss")
		return false
	}
	return true
}

// lookup runs one provider call under the provider timeout. A provider
// that ignores its context is abandoned when the deadline passes.
func (o *Overlay) lookup(ctx context.Context, p int, rec types.BibliographicRecord) slot {
	prov := o.providers[p]
	name := prov.Name()

	if err := o.limiters[p].Wait(ctx); err != nil {
		o.metrics.ObserveEnrichment(name, "late")
		return slot{}
	}

	lctx, cancel := context.WithTimeout(ctx, o.cfg.ProviderTimeout)
	defer cancel()

	type result struct {
		meta Metadata
		err  error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("provider panic: %v", r)}
			}
		}()
		m, err := prov.Lookup(lctx, rec)
		done <- result{meta: m, err: err}
	}()

	var res result
	select {
	case res = <-done:
	case <-lctx.Done():
		res = result{err: lctx.Err()}
	}

	switch {
	case res.err == nil:
		o.metrics.ObserveEnrichment(name, "ok")
		return slot{meta: res.meta, ok: true}
	case errors.Is(res.err, ErrNoLookupKey), errors.Is(res.err, ErrNotFound):
		o.metrics.ObserveEnrichment(name, "miss")
		o.logger.Debug("enrichment miss",
			zap.String("provider", name),
			zap.String("record", rec.ID),
			zap.Error(res.err),
		)
	case errors.Is(res.err, context.DeadlineExceeded), errors.Is(res.err, context.Canceled):
		o.metrics.ObserveEnrichment(name, "late")
		o.logger.Debug("enrichment timed out",
			zap.String("kind", string(types.ErrorEnrichmentFailure)),
			zap.String("provider", name),
			zap.String("record", rec.ID),
		)
	default:
		o.metrics.ObserveEnrichment(name, "error")
		o.logger.Warn("enrichment failed",
			zap.String("kind", string(types.ErrorEnrichmentFailure)),
			zap.String("provider", name),
			zap.String("record", rec.ID),
			zap.Error(res.err),
		)
	}
	return slot{}
}

// attach adds provider results without touching fields that are already
// set: existing per-provider counts and known PDF URLs are kept.
func attach(rec *types.MergedRecord, providers []Provider, slots []slot) {
	var counts map[string]int
	var links []types.PDFLink
	for p, s := range slots {
		if !s.ok {
			continue
		}
		if s.meta.CitationCount != nil {
			if counts == nil {
				counts = make(map[string]int)
			}
			counts[providers[p].Name()] = *s.meta.CitationCount
		}
		links = append(links, s.meta.PDFLinks...)
	}

	if len(counts) > 0 {
		info := &types.CitationInfo{Counts: make(map[string]int)}
		if rec.CitationInfo != nil {
			for k, v := range rec.CitationInfo.Counts {
				info.Counts[k] = v
			}
			info.Count = rec.CitationInfo.Count
		}
		for k, v := range counts {
			if _, exists := info.Counts[k]; !exists {
				info.Counts[k] = v
			}
		}
		for _, v := range info.Counts {
			if v > info.Count {
				info.Count = v
			}
		}
		rec.CitationInfo = info
	}

	if len(links) > 0 {
		access := &types.PDFAccess{}
		seen := make(map[string]bool)
		if rec.PDFAccess != nil {
			for _, l := range rec.PDFAccess.Links {
				access.Links = append(access.Links, l)
				seen[l.URL] = true
			}
		}
		added := 0
		for _, l := range links {
			if l.URL == "" || seen[l.URL] {
				continue
			}
			seen[l.URL] = true
			access.Links = append(access.Links, l)
			added++
		}
		if added > 0 {
			// Open-access links first.
			sort.SliceStable(access.Links, func(i, j int) bool {
				return access.Links[i].OpenAccess && !access.Links[j].OpenAccess
			})
			rec.PDFAccess = access
		}
	}
}
