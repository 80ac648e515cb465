package redirect

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gubarz/shortlinks/internal/logging"
	"github.com/gubarz/shortlinks/internal/registry"
	"github.com/gubarz/shortlinks/internal/source"
)

// snapshot is an immutable view of the registry.
type snapshot struct {
	lookup   registry.Lookup
	loadedAt time.Time
}

// Store serves Lookups from the most recent snapshot and refreshes it once
// it is older than the TTL. A snapshot is never changed after it is
// published; a refresh builds a new one and swaps the pointer.
type Store struct {
	loader  source.Loader
	ttl     time.Duration
	now     func() time.Time
	metrics *storeMetrics

	current atomic.Pointer[snapshot]
	mu      sync.Mutex // serializes refreshes
}

// NewStore creates a Store. A zero ttl reloads on every request. The load
// metrics are registered on reg, which may be nil.
func NewStore(loader source.Loader, ttl time.Duration, reg prometheus.Registerer) *Store {
	return &Store{
		loader:  loader,
		ttl:     ttl,
		now:     time.Now,
		metrics: newStoreMetrics(reg),
	}
}

// Lookup returns a fresh Lookup, loading the registry when needed. On a
// failed refresh the error is returned and the previous snapshot is kept
// for the next attempt.
func (s *Store) Lookup(ctx context.Context) (registry.Lookup, error) {
	if snap := s.fresh(); snap != nil {
		return snap.lookup, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another request may have refreshed while we waited
	if snap := s.fresh(); snap != nil {
		return snap.lookup, nil
	}

	start := s.now()
	text, err := s.loader.Load(ctx)
	s.metrics.loadSeconds.Observe(s.now().Sub(start).Seconds())
	if err != nil {
		s.metrics.loadErrors.Inc()
		return registry.Lookup{}, err
	}

	snap := &snapshot{lookup: registry.NewLookup(text), loadedAt: s.now()}
	s.current.Store(snap)
	s.metrics.entries.Set(float64(snap.lookup.Len()))

	logger := logging.GetLogger("redirect")
	logger.Debug().
		Int("entries", snap.lookup.Len()).
		Str("source", source.Describe(s.loader)).
		Msg("Registry snapshot refreshed")
	return snap.lookup, nil
}

// Invalidate drops the current snapshot so the next Lookup reloads.
func (s *Store) Invalidate() {
	s.current.Store(nil)
}

func (s *Store) fresh() *snapshot {
	snap := s.current.Load()
	if snap == nil || s.now().Sub(snap.loadedAt) >= s.ttl {
		return nil
	}
	return snap
}
