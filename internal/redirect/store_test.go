package redirect

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingLoader struct {
	mu    sync.Mutex
	text  string
	err   error
	calls atomic.Int32
}

func (l *countingLoader) Load(context.Context) (string, error) {
	l.calls.Add(1)
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.text, l.err
}

func (l *countingLoader) set(text string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.text, l.err = text, err
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(loader *countingLoader, ttl time.Duration) (*Store, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewStore(loader, ttl, nil)
	s.now = clock.Now
	return s, clock
}

func TestStore_CachesWithinTTL(t *testing.T) {
	loader := &countingLoader{text: "/a https://a.example"}
	s, clock := newTestStore(loader, time.Minute)
	ctx := context.Background()

	l, err := s.Lookup(ctx)
	require.NoError(t, err)
	url, ok := l.Resolve("/a")
	assert.True(t, ok)
	assert.Equal(t, "https://a.example", url)

	loader.set("/a https://changed.example", nil)
	clock.Advance(59 * time.Second)
	l, err = s.Lookup(ctx)
	require.NoError(t, err)
	url, _ = l.Resolve("/a")
	assert.Equal(t, "https://a.example", url)
	assert.Equal(t, int32(1), loader.calls.Load())

	clock.Advance(time.Second)
	l, err = s.Lookup(ctx)
	require.NoError(t, err)
	url, _ = l.Resolve("/a")
	assert.Equal(t, "https://changed.example", url)
	assert.Equal(t, int32(2), loader.calls.Load())
}

func TestStore_FailedRefreshKeepsNothingStale(t *testing.T) {
	loader := &countingLoader{text: "/a https://a.example"}
	s, clock := newTestStore(loader, time.Minute)
	ctx := context.Background()

	_, err := s.Lookup(ctx)
	require.NoError(t, err)

	loader.set("", stderrors.New("fetch failed"))
	clock.Advance(2 * time.Minute)
	_, err = s.Lookup(ctx)
	assert.Error(t, err)

	loader.set("/b https://b.example", nil)
	l, err := s.Lookup(ctx)
	require.NoError(t, err)
	_, ok := l.Resolve("/b")
	assert.True(t, ok)
}

func TestStore_Invalidate(t *testing.T) {
	loader := &countingLoader{text: "/a x"}
	s, _ := newTestStore(loader, time.Hour)
	ctx := context.Background()

	_, _ = s.Lookup(ctx)
	s.Invalidate()
	_, _ = s.Lookup(ctx)
	assert.Equal(t, int32(2), loader.calls.Load())
}

func TestStore_ConcurrentLookupsShareOneLoad(t *testing.T) {
	loader := &countingLoader{text: "/a x"}
	s, _ := newTestStore(loader, time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l, err := s.Lookup(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, 1, l.Len())
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), loader.calls.Load())
}

// slowLoader moves the fake clock forward while loading.
type slowLoader struct {
	clock *fakeClock
	took  time.Duration
	text  string
}

func (l *slowLoader) Load(context.Context) (string, error) {
	l.clock.Advance(l.took)
	return l.text, nil
}

func TestStore_LoadSecondsUsesStoreClock(t *testing.T) {
	reg := prometheus.NewRegistry()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewStore(&slowLoader{clock: clock, took: 2 * time.Second, text: "/a https://a.example"}, time.Minute, reg)
	s.now = clock.Now

	_, err := s.Lookup(context.Background())
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	var sum float64
	var found bool
	for _, mf := range families {
		if mf.GetName() == "shortlinks_registry_load_seconds" {
			found = true
			sum = mf.GetMetric()[0].GetHistogram().GetSampleSum()
		}
	}
	require.True(t, found)
	assert.Equal(t, 2.0, sum)
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.entries))
}
