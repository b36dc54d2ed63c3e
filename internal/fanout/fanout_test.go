// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fanout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pdiddy/catalog-aggregator/internal/metrics"
	"github.com/pdiddy/catalog-aggregator/internal/registry"
	"github.com/pdiddy/catalog-aggregator/internal/sources"
	"github.com/pdiddy/catalog-aggregator/pkg/types"
)

func entry(id string, timeout time.Duration, fn sources.AdapterFunc) registry.Entry {
	return registry.Entry{
		Descriptor: types.SourceDescriptor{ID: id, Timeout: timeout},
		Adapter:    fn,
		Enabled:    true,
	}
}

func returning(recs ...types.RawRecord) sources.AdapterFunc {
	return func(context.Context, types.Query, sources.Options) ([]types.RawRecord, error) {
		return recs, nil
	}
}

func sleeping(d time.Duration) sources.AdapterFunc {
	return func(ctx context.Context, _ types.Query, _ sources.Options) ([]types.RawRecord, error) {
		select {
		case <-time.After(d):
			return []types.RawRecord{types.ScrapedRecord{Text: "late"}}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// ignoring never looks at ctx, like a misbehaving adapter.
func ignoring(d time.Duration) sources.AdapterFunc {
	return func(context.Context, types.Query, sources.Options) ([]types.RawRecord, error) {
		time.Sleep(d)
		return []types.RawRecord{types.ScrapedRecord{Text: "late"}}, nil
	}
}

func TestDispatchMixedOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := &Coordinator{Logger: zaptest.NewLogger(t), Metrics: metrics.New(reg)}

	entries := []registry.Entry{
		entry("ok", 0, returning(types.CatalogDocument{"title": "A"}, types.CatalogDocument{"title": "B"})),
		entry("slow", time.Millisecond, ignoring(5*time.Second)),
		entry("broken", 0, func(context.Context, types.Query, sources.Options) ([]types.RawRecord, error) {
			return nil, errors.New("HTTP 500")
		}),
		entry("panics", 0, func(context.Context, types.Query, sources.Options) ([]types.RawRecord, error) {
			panic("nil map")
		}),
	}

	start := time.Now()
	results := c.Dispatch(context.Background(), types.Query{Text: "x"}, entries, time.Second)
	assert.Less(t, time.Since(start), 2*time.Second, "dispatch must not wait for abandoned adapters")

	require.Len(t, results, 4)
	assert.Equal(t, "ok", results[0].SourceID)
	assert.Equal(t, types.StatusOK, results[0].Status)
	assert.Len(t, results[0].Records, 2)

	assert.Equal(t, types.StatusTimeout, results[1].Status)
	assert.Equal(t, types.ErrorSourceTimeout, results[1].ErrorKind)
	assert.Empty(t, results[1].Records)

	assert.Equal(t, types.StatusError, results[2].Status)
	assert.Equal(t, types.ErrorSource, results[2].ErrorKind)
	assert.Equal(t, "HTTP 500", results[2].ErrorDetail)

	assert.Equal(t, types.StatusError, results[3].Status)
	assert.Contains(t, results[3].ErrorDetail, "panic")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.Metrics.SourceRequests.WithLabelValues("slow", "timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Metrics.SourceRequests.WithLabelValues("ok", "ok")))
}

func TestDispatchIsConcurrent(t *testing.T) {
	var entries []registry.Entry
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		entries = append(entries, entry(id, 0, sleeping(100*time.Millisecond)))
	}
	c := &Coordinator{}

	start := time.Now()
	results := c.Dispatch(context.Background(), types.Query{Text: "x"}, entries, time.Second)
	elapsed := time.Since(start)

	for _, r := range results {
		assert.Equal(t, types.StatusOK, r.Status, r.SourceID)
	}
	assert.Less(t, elapsed, 400*time.Millisecond, "wall time is bounded by the slowest source, not the sum")
}

func TestDispatchDefaultTimeout(t *testing.T) {
	c := &Coordinator{}
	results := c.Dispatch(context.Background(), types.Query{Text: "x"},
		[]registry.Entry{entry("slow", 0, sleeping(time.Second))}, 20*time.Millisecond)
	require.Len(t, results, 1)
	assert.Equal(t, types.StatusTimeout, results[0].Status)
	assert.Less(t, results[0].Elapsed, 500*time.Millisecond)
}

func TestDispatchParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := &Coordinator{}
	results := c.Dispatch(ctx, types.Query{Text: "x"},
		[]registry.Entry{entry("a", 0, sleeping(time.Second))}, time.Second)
	require.Len(t, results, 1)
	assert.Equal(t, types.StatusError, results[0].Status)
}

func TestDispatchPassesOptions(t *testing.T) {
	var got sources.Options
	c := &Coordinator{Options: sources.Options{MaxResults: 7, UserAgent: "ua"}}
	c.Dispatch(context.Background(), types.Query{Text: "x"}, []registry.Entry{
		entry("a", 0, func(_ context.Context, _ types.Query, o sources.Options) ([]types.RawRecord, error) {
			got = o
			return nil, nil
		}),
	}, time.Second)
	assert.Equal(t, 7, got.MaxResults)
	assert.Equal(t, "ua", got.UserAgent)
}

func TestDispatchEmpty(t *testing.T) {
	c := &Coordinator{}
	assert.Empty(t, c.Dispatch(context.Background(), types.Query{Text: "x"}, nil, 0))
}
