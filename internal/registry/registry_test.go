// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package registry

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pdiddy/catalog-aggregator/internal/sources"
	"github.com/pdiddy/catalog-aggregator/pkg/types"
)

var noop = sources.AdapterFunc(func(context.Context, types.Query, sources.Options) ([]types.RawRecord, error) {
	return nil, nil
})

type closingAdapter struct {
	sources.AdapterFunc
	closed bool
}

func (c *closingAdapter) Close() error {
	c.closed = true
	return nil
}

func ids(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Descriptor.ID)
	}
	return out
}

func TestRegisterOrdersByPriority(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(types.SourceDescriptor{ID: "c", Priority: 5}, noop))
	require.NoError(t, r.Register(types.SourceDescriptor{ID: "a", Priority: 1}, noop))
	require.NoError(t, r.Register(types.SourceDescriptor{ID: "b", Priority: 5}, noop))

	assert.Equal(t, []string{"a", "c", "b"}, ids(r.Snapshot()))
	assert.Equal(t, 3, r.Len())
}

func TestRegisterRejects(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(types.SourceDescriptor{ID: "a"}, noop))
	assert.Error(t, r.Register(types.SourceDescriptor{ID: "a"}, noop), "duplicate id")
	assert.Error(t, r.Register(types.SourceDescriptor{}, noop), "empty id")
	assert.Error(t, r.Register(types.SourceDescriptor{ID: "b"}, nil), "nil adapter")
}

func TestSnapshotIsFrozen(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(types.SourceDescriptor{ID: "a"}, noop))
	snap := r.Snapshot()

	require.NoError(t, r.Register(types.SourceDescriptor{ID: "b"}, noop))
	require.NoError(t, r.SetEnabled("a", false))

	assert.Equal(t, []string{"a"}, ids(snap))
	assert.True(t, snap[0].Enabled)
	assert.Equal(t, []string{"b"}, ids(r.Snapshot()))
}

func TestSetEnabledAndGet(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(types.SourceDescriptor{ID: "a"}, noop))
	require.NoError(t, r.SetEnabled("a", false))

	e, ok := r.Get("a")
	require.True(t, ok)
	assert.False(t, e.Enabled)
	assert.Empty(t, r.Snapshot())
	assert.Len(t, r.List(), 1)

	assert.ErrorIs(t, r.SetEnabled("missing", true), ErrNotFound)
	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestUnregisterClosesAdapter(t *testing.T) {
	r := New()
	c := &closingAdapter{AdapterFunc: noop}
	require.NoError(t, r.Register(types.SourceDescriptor{ID: "db"}, c))
	require.NoError(t, r.Unregister("db"))
	assert.True(t, c.closed)
	assert.Equal(t, 0, r.Len())
	assert.ErrorIs(t, r.Unregister("db"), ErrNotFound)
}

func TestUnregisterWaitsForAcquiredSnapshot(t *testing.T) {
	r := New()
	c := &closingAdapter{AdapterFunc: noop}
	require.NoError(t, r.Register(types.SourceDescriptor{ID: "db"}, c))

	entries, release := r.Acquire()
	require.Len(t, entries, 1)

	require.NoError(t, r.Unregister("db"))
	assert.False(t, c.closed, "adapter closed while an aggregation still holds it")
	assert.Equal(t, 0, r.Len())

	later, releaseLater := r.Acquire()
	assert.Empty(t, later)
	releaseLater()

	release()
	assert.True(t, c.closed)
	release()
}

func TestAcquireSkipsRetiredEntries(t *testing.T) {
	r := New()
	c := &closingAdapter{AdapterFunc: noop}
	require.NoError(t, r.Register(types.SourceDescriptor{ID: "db"}, c))
	require.NoError(t, r.Register(types.SourceDescriptor{ID: "api", Priority: 1}, noop))

	stale := r.Snapshot()
	require.NoError(t, r.Unregister("db"))
	require.True(t, c.closed)

	// An entry retired after its snapshot was loaded is not handed out.
	assert.False(t, stale[0].lease.acquire())
	entries, release := r.Acquire()
	defer release()
	assert.Equal(t, []string{"api"}, ids(entries))
}

func TestCloseDefersAcquiredAdapters(t *testing.T) {
	r := New()
	c := &closingAdapter{AdapterFunc: noop}
	require.NoError(t, r.Register(types.SourceDescriptor{ID: "db"}, c))

	_, release := r.Acquire()
	require.NoError(t, r.Close())
	assert.False(t, c.closed)
	release()
	assert.True(t, c.closed)
}

func TestConcurrentRegisterAndSnapshot(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = r.Register(types.SourceDescriptor{ID: string(rune('A' + i)), Priority: i % 3}, noop)
		}(i)
		go func() {
			defer wg.Done()
			snap := r.Snapshot()
			for j := 1; j < len(snap); j++ {
				assert.LessOrEqual(t, snap[j-1].Descriptor.Priority, snap[j].Descriptor.Priority)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, r.Len())
}

const sampleSourcesFile = `sources:
  - id: loc
    display_name: Library of Congress
    country: US
    city: Washington
    kind: sru
    endpoint: https://lx2.loc.gov/sru/voyager
    timeout: 8s
    priority: 1
  - id: openlibrary
    kind: openlibrary
    priority: 2
  - id: milli
    display_name: Milli Kütüphane
    country: TR
    kind: opac
    endpoint: https://katalog.mkutup.gov.tr/search
    enabled: false
    options:
      item_class: kayit
`

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleSourcesFile), 0o644))

	r := New()
	require.NoError(t, LoadFile(r, path, sources.Deps{}, zaptest.NewLogger(t)))

	assert.Equal(t, 3, r.Len())
	assert.Equal(t, []string{"loc", "openlibrary"}, ids(r.Snapshot()))

	loc, ok := r.Get("loc")
	require.True(t, ok)
	assert.Equal(t, "Library of Congress", loc.Descriptor.DisplayName)
	assert.Equal(t, types.FamilyMARC21, loc.Descriptor.Family)
	assert.Equal(t, "8s", loc.Descriptor.Timeout.String())

	milli, ok := r.Get("milli")
	require.True(t, ok)
	assert.False(t, milli.Enabled)
	assert.Equal(t, types.FamilyHTMLScrape, milli.Descriptor.Family)

	descs := r.Descriptors()
	assert.Equal(t, "TR", descs["milli"].Country)
}

func TestLoadRejectsBadEntry(t *testing.T) {
	r := New()
	err := Load(r, []types.SourceConfig{{ID: "x", Kind: "gopher"}}, sources.Deps{}, nil)
	assert.Error(t, err)
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
