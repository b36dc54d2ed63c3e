// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package registry holds the set of catalogs an aggregator dispatches to.
// Writers copy the entry list and publish it atomically, so a snapshot
// taken at dispatch time never observes later registrations. Adapters
// removed while an aggregation holds them are closed when it releases
// its snapshot.
package registry

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/pdiddy/catalog-aggregator/internal/sources"
	"github.com/pdiddy/catalog-aggregator/pkg/types"
)

// ErrNotFound is returned for an unknown source id.
var ErrNotFound = errors.New("source not registered")

// Entry pairs a descriptor with its adapter.
type Entry struct {
	Descriptor types.SourceDescriptor
	Adapter    sources.Adapter
	Enabled    bool

	lease *lease
}

// lease counts the aggregations using an adapter so that Unregister can
// postpone closing it until the last one releases.
type lease struct {
	mu      sync.Mutex
	refs    int
	retired bool
	closer  io.Closer
}

func newLease(adapter sources.Adapter) *lease {
	c, _ := adapter.(io.Closer)
	return &lease{closer: c}
}

// acquire fails once the adapter has been unregistered.
func (l *lease) acquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.retired {
		return false
	}
	l.refs++
	return true
}

func (l *lease) release() error {
	l.mu.Lock()
	l.refs--
	closeNow := l.retired && l.refs == 0
	l.mu.Unlock()
	if closeNow {
		return l.close()
	}
	return nil
}

// retire closes the adapter now when nobody holds it, or marks it to be
// closed by the last release.
func (l *lease) retire() error {
	l.mu.Lock()
	l.retired = true
	closeNow := l.refs == 0
	l.mu.Unlock()
	if closeNow {
		return l.close()
	}
	return nil
}

func (l *lease) close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// Registry is safe for concurrent use.
type Registry struct {
	mu      sync.Mutex // serializes writers
	entries atomic.Pointer[[]Entry]
}

// New creates an empty registry.
func New() *Registry {
	r := &Registry{}
	r.entries.Store(&[]Entry{})
	return r
}

func (r *Registry) load() []Entry {
	return *r.entries.Load()
}

// Register adds an enabled source. Ids must be unique.
func (r *Registry) Register(desc types.SourceDescriptor, adapter sources.Adapter) error {
	if desc.ID == "" {
		return errors.New("source id is required")
	}
	if adapter == nil {
		return fmt.Errorf("source %s: adapter is nil", desc.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.load()
	for _, e := range cur {
		if e.Descriptor.ID == desc.ID {
			return fmt.Errorf("source %s already registered", desc.ID)
		}
	}
	next := make([]Entry, len(cur), len(cur)+1)
	copy(next, cur)
	next = append(next, Entry{Descriptor: desc, Adapter: adapter, Enabled: true, lease: newLease(adapter)})
	sortEntries(next)
	r.entries.Store(&next)
	return nil
}

// Unregister removes a source and closes its adapter when it holds
// resources. If an aggregation acquired the source, closing waits until
// that aggregation releases its snapshot.
func (r *Registry) Unregister(id string) error {
	r.mu.Lock()
	cur := r.load()
	idx := indexOf(cur, id)
	if idx < 0 {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	removed := cur[idx]
	next := make([]Entry, 0, len(cur)-1)
	next = append(next, cur[:idx]...)
	next = append(next, cur[idx+1:]...)
	r.entries.Store(&next)
	r.mu.Unlock()

	if removed.lease == nil {
		return nil
	}
	return removed.lease.retire()
}

// SetEnabled toggles whether a source takes part in new aggregations.
func (r *Registry) SetEnabled(id string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.load()
	idx := indexOf(cur, id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	next := make([]Entry, len(cur))
	copy(next, cur)
	next[idx].Enabled = enabled
	r.entries.Store(&next)
	return nil
}

// Snapshot returns the enabled entries in dispatch order (priority, then
// registration order). The slice is owned by the caller.
func (r *Registry) Snapshot() []Entry {
	cur := r.load()
	out := make([]Entry, 0, len(cur))
	for _, e := range cur {
		if e.Enabled {
			out = append(out, e)
		}
	}
	return out
}

// Acquire returns the enabled entries like Snapshot and keeps their
// adapters open until release is called, even if they are unregistered in
// the meantime. Sources unregistered between the load and the acquire are
// left out. release is safe to call more than once.
func (r *Registry) Acquire() (entries []Entry, release func()) {
	snap := r.Snapshot()
	held := make([]*lease, 0, len(snap))
	entries = snap[:0]
	for _, e := range snap {
		if e.lease != nil {
			if !e.lease.acquire() {
				continue
			}
			held = append(held, e.lease)
		}
		entries = append(entries, e)
	}
	var once sync.Once
	return entries, func() {
		once.Do(func() {
			for _, l := range held {
				_ = l.release()
			}
		})
	}
}

// Get returns the entry for id, enabled or not.
func (r *Registry) Get(id string) (Entry, bool) {
	cur := r.load()
	if idx := indexOf(cur, id); idx >= 0 {
		return cur[idx], true
	}
	return Entry{}, false
}

// List returns every entry, including disabled ones.
func (r *Registry) List() []Entry {
	cur := r.load()
	out := make([]Entry, len(cur))
	copy(out, cur)
	return out
}

// Descriptors maps source id to descriptor for every entry.
func (r *Registry) Descriptors() map[string]types.SourceDescriptor {
	cur := r.load()
	out := make(map[string]types.SourceDescriptor, len(cur))
	for _, e := range cur {
		out[e.Descriptor.ID] = e.Descriptor
	}
	return out
}

// Len returns the number of registered sources.
func (r *Registry) Len() int {
	return len(r.load())
}

// Close unregisters every source, closing adapters that hold resources.
// Adapters still acquired are closed on release.
func (r *Registry) Close() error {
	var errs []error
	for _, e := range r.List() {
		if err := r.Unregister(e.Descriptor.ID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func indexOf(entries []Entry, id string) int {
	for i, e := range entries {
		if e.Descriptor.ID == id {
			return i
		}
	}
	return -1
}

// sortEntries orders by priority; the stable sort keeps registration order
// among equal priorities.
func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Descriptor.Priority < entries[j].Descriptor.Priority
	})
}
