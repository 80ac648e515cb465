// Package redirect serves HTTP redirects from the link registry.
package redirect

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/gubarz/shortlinks/internal/logging"
)

// CacheControl is sent with every redirect.
const CacheControl = "public, max-age=604800"

// Config configures a Server.
type Config struct {
	Listen      string
	MetricsAddr string // empty disables the metrics listener
	HomeURL     string // linked from the not-found page

	// Registry receives the request metrics and is what MetricsHandler
	// exports. Pass the same registry to NewStore to export the load metrics
	// too. Nil uses a fresh private registry.
	Registry *prometheus.Registry
}

// Server answers GET <path> with a redirect, a not-found page, or a 500.
type Server struct {
	store    *Store
	cfg      Config
	registry *prometheus.Registry
	metrics  *serverMetrics
	router   chi.Router
	logger   zerolog.Logger
}

// NewServer creates a Server reading from store.
func NewServer(store *Store, cfg Config) *Server {
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	s := &Server{
		store:    store,
		cfg:      cfg,
		registry: reg,
		metrics:  newServerMetrics(reg),
		logger:   logging.GetLogger("redirect"),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Get("/*", s.handleRedirect)
	s.router = r

	return s
}

// Handler returns the redirect handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// MetricsHandler returns the Prometheus handler for this server's metrics.
func (s *Server) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

func (s *Server) handleRedirect(w http.ResponseWriter, r *http.Request) {
	lookup, err := s.store.Lookup(r.Context())
	if err != nil {
		s.metrics.redirects.WithLabelValues(outcomeError).Inc()
		s.logger.Error().Err(err).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("Failed to load registry")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	target, ok := lookup.Resolve(r.URL.EscapedPath())
	if !ok {
		s.metrics.redirects.WithLabelValues(outcomeMiss).Inc()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, notFoundPage(s.cfg.HomeURL))
		return
	}

	s.metrics.redirects.WithLabelValues(outcomeHit).Inc()
	w.Header().Set("Location", target)
	w.Header().Set("Cache-Control", CacheControl)
	w.WriteHeader(http.StatusPermanentRedirect)
	fmt.Fprintf(w, "Redirecting to %s", target)
}

func notFoundPage(home string) string {
	page := "<h1>Not found 😭</h1>"
	if home == "" {
		return page
	}
	label := home
	if u, err := url.Parse(home); err == nil && u.Host != "" {
		label = u.Host
	}
	return page + fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(home), html.EscapeString(label))
}

// logRequests logs every request through zerolog.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.EscapedPath()).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("Request")
	})
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	servers := []*http.Server{{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}}
	if s.cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", s.MetricsHandler())
		servers = append(servers, &http.Server{
			Addr:              s.cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		})
	}

	errc := make(chan error, len(servers))
	for _, srv := range servers {
		ln, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			shutdown(servers)
			return fmt.Errorf("listen %s: %w", srv.Addr, err)
		}
		s.logger.Info().Str("addr", ln.Addr().String()).Msg("Listening")
		go func(srv *http.Server, ln net.Listener) {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- err
			}
		}(srv, ln)
	}

	select {
	case <-ctx.Done():
		s.logger.Info().Msg("Shutting down")
		return shutdown(servers)
	case err := <-errc:
		shutdown(servers)
		return err
	}
}

func shutdown(servers []*http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	for _, srv := range servers {
		if err := srv.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
