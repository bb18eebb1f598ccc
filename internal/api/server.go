package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/skytrack/skytrack/internal/auth"
	"github.com/skytrack/skytrack/internal/cache"
	"github.com/skytrack/skytrack/internal/elements"
	"github.com/skytrack/skytrack/internal/health"
	"github.com/skytrack/skytrack/internal/httputil"
	"github.com/skytrack/skytrack/internal/metrics"
	"github.com/skytrack/skytrack/internal/propagation"
	"github.com/skytrack/skytrack/internal/stream"
)

// ElementsConfig holds element ingestion configuration.
type ElementsConfig struct {
	EnableFetch bool
	SourceURL   string
	CacheDir    string
	MaxFiles    int
	MaxAge      time.Duration
	TrustProxy  bool
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger

	store      *elements.Store
	elemCfg    ElementsConfig
	fetcher    *elements.Fetcher
	diskCache  *elements.Cache
	tracker    *propagation.Tracker
	derived    *cache.DerivedCache
	streamHdlr *stream.Handler
}

// NewServer creates a configured HTTP server.
func NewServer(addr string, logger *slog.Logger, authCfg auth.Config, store *elements.Store, elemCfg ElementsConfig, tracker *propagation.Tracker, derived *cache.DerivedCache, streamHdlr *stream.Handler) *Server {
	s := &Server{
		logger:     logger,
		store:      store,
		elemCfg:    elemCfg,
		fetcher:    elements.NewFetcher(elemCfg.SourceURL),
		diskCache:  elements.NewCache(elemCfg.CacheDir, elemCfg.MaxFiles),
		tracker:    tracker,
		derived:    derived,
		streamHdlr: streamHdlr,
	}

	mux := http.NewServeMux()

	// Register routes.
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz(store))
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /api/v1/elements/metadata", s.handleElementsMetadata)
	mux.HandleFunc("POST /api/v1/elements/refresh", s.handleElementsRefresh)
	mux.HandleFunc("GET /api/v1/satellites", s.handleSatellites)
	mux.HandleFunc("GET /api/v1/positions", s.handlePositions)
	mux.HandleFunc("GET /api/v1/orbit/{catnr}", s.handleOrbit)
	mux.HandleFunc("GET /api/v1/compare", s.handleCompare)
	mux.HandleFunc("GET /api/v1/passes", s.handlePasses)
	mux.HandleFunc("GET /api/v1/stream/positions", streamHdlr.HandlePositions)

	// Build middleware chain: metrics -> logging -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(authCfg)(handler)
	handler = loggingMiddleware(logger, elemCfg.TrustProxy)(handler)
	handler = metrics.Middleware(handler)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(logger *slog.Logger, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", httputil.ClientIP(r, trustProxy),
			)
		})
	}
}
