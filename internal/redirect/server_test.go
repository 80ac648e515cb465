package redirect

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRegistry = `# Social
/gh      https://github.com/someone
/foo     https://example.com/foo

# Misc
/a%20b https://spaced.example
`

func newTestServer(t *testing.T, loader *countingLoader) (*Server, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	srv := NewServer(NewStore(loader, time.Minute, reg), Config{
		HomeURL:  "https://spiess.dev",
		Registry: reg,
	})
	return srv, reg
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_Redirect(t *testing.T) {
	srv, _ := newTestServer(t, &countingLoader{text: testRegistry})

	rec := do(t, srv.Handler(), http.MethodGet, "/foo")

	assert.Equal(t, http.StatusPermanentRedirect, rec.Code)
	assert.Equal(t, "https://example.com/foo", rec.Header().Get("Location"))
	assert.Equal(t, "public, max-age=604800", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "Redirecting to https://example.com/foo", rec.Body.String())
}

func TestServer_EscapedPath(t *testing.T) {
	srv, _ := newTestServer(t, &countingLoader{text: testRegistry})

	rec := do(t, srv.Handler(), http.MethodGet, "/a%20b")
	assert.Equal(t, http.StatusPermanentRedirect, rec.Code)
	assert.Equal(t, "https://spaced.example", rec.Header().Get("Location"))
}

func TestServer_NotFound(t *testing.T) {
	srv, _ := newTestServer(t, &countingLoader{text: testRegistry})

	for _, path := range []string{"/missing", "/foo/", "/", "/FOO"} {
		t.Run(path, func(t *testing.T) {
			rec := do(t, srv.Handler(), http.MethodGet, path)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Body.String(), "Not found")
			assert.Contains(t, rec.Body.String(), `<a href="https://spiess.dev">spiess.dev</a>`)
			assert.Empty(t, rec.Header().Get("Location"))
		})
	}
}

func TestServer_QueryIgnored(t *testing.T) {
	srv, _ := newTestServer(t, &countingLoader{text: testRegistry})

	rec := do(t, srv.Handler(), http.MethodGet, "/foo?utm=x")
	assert.Equal(t, http.StatusPermanentRedirect, rec.Code)
	assert.Equal(t, "https://example.com/foo", rec.Header().Get("Location"))
}

func TestServer_LoadFailure(t *testing.T) {
	srv, _ := newTestServer(t, &countingLoader{err: stderrors.New("upstream said 503 with secret detail")})

	rec := do(t, srv.Handler(), http.MethodGet, "/foo")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", strings.TrimSpace(rec.Body.String()))
	assert.NotContains(t, rec.Body.String(), "secret")
}

func TestServer_OnlyGet(t *testing.T) {
	srv, _ := newTestServer(t, &countingLoader{text: testRegistry})

	rec := do(t, srv.Handler(), http.MethodPost, "/foo")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Empty(t, rec.Header().Get("Location"))
}

func TestServer_Metrics(t *testing.T) {
	loader := &countingLoader{text: testRegistry}
	srv, reg := newTestServer(t, loader)

	do(t, srv.Handler(), http.MethodGet, "/foo")
	do(t, srv.Handler(), http.MethodGet, "/gh")
	do(t, srv.Handler(), http.MethodGet, "/nope")

	assert.Equal(t, 2.0, testutil.ToFloat64(srv.metrics.redirects.WithLabelValues(outcomeHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(srv.metrics.redirects.WithLabelValues(outcomeMiss)))
	assert.Equal(t, 0.0, testutil.ToFloat64(srv.metrics.redirects.WithLabelValues(outcomeError)))
	assert.Equal(t, 3.0, testutil.ToFloat64(srv.store.metrics.entries))

	count, err := testutil.GatherAndCount(reg, "shortlinks_redirects_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	rec := do(t, srv.MetricsHandler(), http.MethodGet, "/metrics")
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `shortlinks_redirects_total{outcome="hit"} 2`)
}

func TestServer_SharedStoreKeepsOwnCounters(t *testing.T) {
	loader := &countingLoader{text: testRegistry}
	store := NewStore(loader, time.Minute, nil)
	first := NewServer(store, Config{Registry: prometheus.NewRegistry()})
	second := NewServer(store, Config{Registry: prometheus.NewRegistry()})

	do(t, first.Handler(), http.MethodGet, "/foo")
	do(t, first.Handler(), http.MethodGet, "/gh")
	do(t, second.Handler(), http.MethodGet, "/foo")

	assert.Equal(t, 2.0, testutil.ToFloat64(first.metrics.redirects.WithLabelValues(outcomeHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(second.metrics.redirects.WithLabelValues(outcomeHit)))
	assert.Equal(t, int32(1), loader.calls.Load())
	assert.Equal(t, 3.0, testutil.ToFloat64(store.metrics.entries))
}

func TestServer_ListenAndServe(t *testing.T) {
	srv := NewServer(NewStore(&countingLoader{text: testRegistry}, time.Minute, nil), Config{Listen: "127.0.0.1:0"})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestNotFoundPage(t *testing.T) {
	assert.Equal(t, "<h1>Not found 😭</h1>", notFoundPage(""))
	assert.Equal(t, `<h1>Not found 😭</h1><a href="https://x.example/a?b=1&amp;c=2">x.example</a>`,
		notFoundPage("https://x.example/a?b=1&c=2"))
}
