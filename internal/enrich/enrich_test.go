// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pdiddy/catalog-aggregator/internal/metrics"
	"github.com/pdiddy/catalog-aggregator/pkg/types"
)

type fakeProvider struct {
	name string
	fn   func(ctx context.Context, rec types.BibliographicRecord) (Metadata, error)

	mu    sync.Mutex
	calls []time.Time
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Lookup(ctx context.Context, rec types.BibliographicRecord) (Metadata, error) {
	f.mu.Lock()
	f.calls = append(f.calls, time.Now())
	f.mu.Unlock()
	return f.fn(ctx, rec)
}

func count(n int) *int { return &n }

func merged(id, title, doi string) types.MergedRecord {
	return types.MergedRecord{
		BibliographicRecord: types.BibliographicRecord{
			ID:      id,
			Title:   title,
			Authors: []string{"Austen, Jane"},
			ISBN:    "9780141439518",
			Year:    1813,
			DOI:     doi,
		},
		ContributingSourceIDs: []string{"loc"},
	}
}

func fastConfig() types.EnrichmentConfig {
	return types.EnrichmentConfig{
		Budget:          2 * time.Second,
		ProviderTimeout: time.Second,
		MinSpacing:      time.Millisecond,
		MaxConcurrency:  4,
	}
}

func TestEnrichIsAdditive(t *testing.T) {
	citations := &fakeProvider{name: "cites", fn: func(context.Context, types.BibliographicRecord) (Metadata, error) {
		return Metadata{CitationCount: count(42)}, nil
	}}
	pdfs := &fakeProvider{name: "pdfs", fn: func(context.Context, types.BibliographicRecord) (Metadata, error) {
		return Metadata{
			CitationCount: count(40),
			PDFLinks: []types.PDFLink{
				{URL: "https://publisher.example/p.pdf", Provider: "pdfs"},
				{URL: "https://repo.example/p.pdf", Provider: "pdfs", OpenAccess: true},
			},
		}, nil
	}}

	o := New([]Provider{citations, pdfs}, fastConfig(), nil, nil)
	in := []types.MergedRecord{merged("a", "Pride and Prejudice", "10.1000/pp"), merged("b", "Emma", "")}
	snapshot := append([]types.MergedRecord(nil), in...)

	out := o.Enrich(context.Background(), in, 0)
	require.Len(t, out, 2)

	for i := range out {
		assert.Equal(t, in[i].ID, out[i].ID, "order preserved")
		assert.Equal(t, in[i].Title, out[i].Title)
		assert.Equal(t, in[i].Authors, out[i].Authors)
		assert.Equal(t, in[i].Year, out[i].Year)
		assert.Equal(t, in[i].ISBN, out[i].ISBN)
	}
	assert.Equal(t, snapshot, in, "input slice untouched")

	require.NotNil(t, out[0].CitationInfo)
	assert.Equal(t, 42, out[0].CitationInfo.Count)
	assert.Equal(t, map[string]int{"cites": 42, "pdfs": 40}, out[0].CitationInfo.Counts)
	require.NotNil(t, out[0].PDFAccess)
	require.Len(t, out[0].PDFAccess.Links, 2)
	assert.True(t, out[0].PDFAccess.Links[0].OpenAccess, "open-access links first")
}

func TestEnrichKeepsExistingAnnotations(t *testing.T) {
	p := &fakeProvider{name: "cites", fn: func(context.Context, types.BibliographicRecord) (Metadata, error) {
		return Metadata{CitationCount: count(1), PDFLinks: []types.PDFLink{{URL: "https://x/a.pdf"}}}, nil
	}}
	rec := merged("a", "T", "10.1/x")
	rec.CitationInfo = &types.CitationInfo{Count: 9, Counts: map[string]int{"cites": 9}}
	rec.PDFAccess = &types.PDFAccess{Links: []types.PDFLink{{URL: "https://x/a.pdf", Provider: "earlier"}}}

	out := New([]Provider{p}, fastConfig(), nil, nil).Enrich(context.Background(), []types.MergedRecord{rec}, 0)
	assert.Equal(t, 9, out[0].CitationInfo.Count)
	assert.Equal(t, "earlier", out[0].PDFAccess.Links[0].Provider)
	assert.Len(t, out[0].PDFAccess.Links, 1)
}

func TestEnrichSwallowsFailures(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	failing := &fakeProvider{name: "failing", fn: func(context.Context, types.BibliographicRecord) (Metadata, error) {
		return Metadata{}, errors.New("HTTP 500")
	}}
	hanging := &fakeProvider{name: "hanging", fn: func(context.Context, types.BibliographicRecord) (Metadata, error) {
		time.Sleep(5 * time.Second)
		return Metadata{CitationCount: count(1)}, nil
	}}
	missing := &fakeProvider{name: "missing", fn: func(context.Context, types.BibliographicRecord) (Metadata, error) {
		return Metadata{}, ErrNoLookupKey
	}}
	panicking := &fakeProvider{name: "panicking", fn: func(context.Context, types.BibliographicRecord) (Metadata, error) {
		panic("boom")
	}}

	cfg := fastConfig()
	cfg.ProviderTimeout = 20 * time.Millisecond
	o := New([]Provider{failing, hanging, missing, panicking}, cfg, zap.New(core), m)

	start := time.Now()
	out := o.Enrich(context.Background(), []types.MergedRecord{merged("a", "T", "10.1/x")}, 0)
	assert.Less(t, time.Since(start), time.Second)

	require.Len(t, out, 1)
	assert.Nil(t, out[0].CitationInfo)
	assert.Nil(t, out[0].PDFAccess)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.EnrichmentLookups.WithLabelValues("failing", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EnrichmentLookups.WithLabelValues("hanging", "late")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EnrichmentLookups.WithLabelValues("missing", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EnrichmentLookups.WithLabelValues("panicking", "error")))

	warns := logs.FilterMessage("enrichment failed").All()
	require.Len(t, warns, 2)
	assert.Equal(t, string(types.ErrorEnrichmentFailure), warns[0].ContextMap()["kind"])
}

func TestEnrichBudgetBoundsWallTime(t *testing.T) {
	slow := &fakeProvider{name: "slow", fn: func(ctx context.Context, _ types.BibliographicRecord) (Metadata, error) {
		<-ctx.Done()
		return Metadata{}, ctx.Err()
	}}
	o := New([]Provider{slow}, fastConfig(), nil, nil)

	recs := []types.MergedRecord{merged("a", "A", "10.1/a"), merged("b", "B", "10.1/b")}
	start := time.Now()
	out := o.Enrich(context.Background(), recs, 50*time.Millisecond)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Len(t, out, 2)
}

func TestEnrichSpacesRequestsPerProvider(t *testing.T) {
	p := &fakeProvider{name: "spaced", fn: func(context.Context, types.BibliographicRecord) (Metadata, error) {
		return Metadata{}, nil
	}}
	cfg := fastConfig()
	cfg.MinSpacing = 30 * time.Millisecond
	o := New([]Provider{p}, cfg, nil, nil)

	recs := []types.MergedRecord{merged("a", "A", "10.1/a"), merged("b", "B", "10.1/b"), merged("c", "C", "10.1/c")}
	o.Enrich(context.Background(), recs, 0)

	require.Len(t, p.calls, 3)
	first, last := p.calls[0], p.calls[0]
	for _, c := range p.calls {
		if c.Before(first) {
			first = c
		}
		if c.After(last) {
			last = c
		}
	}
	assert.GreaterOrEqual(t, last.Sub(first), 50*time.Millisecond, "three calls need two spacing intervals")
}

func TestEnrichNoProviders(t *testing.T) {
	o := New(nil, types.EnrichmentConfig{}, nil, nil)
	in := []types.MergedRecord{merged("a", "A", "")}
	assert.Equal(t, in, o.Enrich(context.Background(), in, 0))
	assert.Empty(t, o.Providers())
}

// doiProvider only understands records with a DOI.
type doiProvider struct {
	*fakeProvider
}

func (doiProvider) Key(rec types.BibliographicRecord) (string, error) { return doiKey(rec) }

func TestEnrichSkipsRecordsWithoutKeyBeforeRateLimiting(t *testing.T) {
	prov := doiProvider{&fakeProvider{name: "cites", fn: func(context.Context, types.BibliographicRecord) (Metadata, error) {
		return Metadata{CitationCount: count(3)}, nil
	}}}
	cfg := fastConfig()
	cfg.MinSpacing = 100 * time.Millisecond
	cfg.Budget = 2 * time.Second
	m := metrics.New(prometheus.NewRegistry())
	o := New([]Provider{prov}, cfg, nil, m)

	var in []types.MergedRecord
	for i := 0; i < 30; i++ {
		in = append(in, merged(string(rune('a'+i)), "Catalog book", ""))
	}
	in = append(in, merged("doi", "Indexed article", "https://doi.org/10.1038/nature14539"))

	start := time.Now()
	out := o.Enrich(context.Background(), in, 0)
	elapsed := time.Since(start)

	require.Len(t, out, 31)
	require.NotNil(t, out[30].CitationInfo)
	assert.Equal(t, 3, out[30].CitationInfo.Count)
	for _, r := range out[:30] {
		assert.Nil(t, r.CitationInfo)
	}
	assert.Len(t, prov.calls, 1)
	assert.Less(t, elapsed, time.Second)
	assert.Equal(t, 30.0, testutil.ToFloat64(m.EnrichmentLookups.WithLabelValues("cites", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EnrichmentLookups.WithLabelValues("cites", "ok")))
}
