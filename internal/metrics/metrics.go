package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skytrack_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skytrack_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	passSearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "skytrack_pass_search_duration_seconds",
			Help:    "Duration of a single-satellite pass search.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		},
	)

	passesFoundTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "skytrack_passes_found_total",
			Help: "Total number of passes found across all searches.",
		},
	)

	propagationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skytrack_propagations_total",
			Help: "Total number of SGP4 state evaluations by outcome.",
		},
		[]string{"outcome"},
	)

	derivedCacheOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skytrack_derived_cache_ops_total",
			Help: "Derived-parameter cache lookups by outcome (hit/miss).",
		},
		[]string{"outcome"},
	)

	elementsCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "skytrack_elements_count",
			Help: "Number of element sets in the current dataset.",
		},
	)

	elementsAgeSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "skytrack_elements_age_seconds",
			Help: "Age of the current element dataset in seconds.",
		},
	)

	streamsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "skytrack_streams_active",
			Help: "Number of active SSE position streams.",
		},
	)

	streamMessagesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "skytrack_stream_messages_total",
			Help: "Total SSE messages sent.",
		},
	)

	streamBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "skytrack_stream_bytes_total",
			Help: "Total SSE bytes sent.",
		},
	)

	streamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skytrack_stream_errors_total",
			Help: "SSE stream errors by reason.",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		passSearchDuration,
		passesFoundTotal,
		propagationsTotal,
		derivedCacheOps,
		elementsCount,
		elementsAgeSeconds,
		streamsActive,
		streamMessagesTotal,
		streamBytesTotal,
		streamErrorsTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordPassSearch records the duration of one pass search and how many
// passes it found.
func RecordPassSearch(d time.Duration, found int) {
	passSearchDuration.Observe(d.Seconds())
	passesFoundTotal.Add(float64(found))
}

// RecordPropagations adds propagation outcome counts.
func RecordPropagations(success, failed int) {
	propagationsTotal.WithLabelValues("success").Add(float64(success))
	propagationsTotal.WithLabelValues("error").Add(float64(failed))
}

// IncDerivedCacheHit records a derived-parameter cache hit.
func IncDerivedCacheHit() { derivedCacheOps.WithLabelValues("hit").Inc() }

// IncDerivedCacheMiss records a derived-parameter cache miss.
func IncDerivedCacheMiss() { derivedCacheOps.WithLabelValues("miss").Inc() }

// SetElementsCount sets the element dataset size gauge.
func SetElementsCount(n int) { elementsCount.Set(float64(n)) }

// SetElementsAge sets the element dataset age gauge.
func SetElementsAge(seconds float64) { elementsAgeSeconds.Set(seconds) }

// IncStreamsActive increments the active stream gauge.
func IncStreamsActive() { streamsActive.Inc() }

// DecStreamsActive decrements the active stream gauge.
func DecStreamsActive() { streamsActive.Dec() }

// IncStreamMessages counts one SSE message.
func IncStreamMessages() { streamMessagesTotal.Inc() }

// AddStreamBytes counts SSE payload bytes.
func AddStreamBytes(n int64) { streamBytesTotal.Add(float64(n)) }

// IncStreamErrors counts an SSE error by reason.
func IncStreamErrors(reason string) { streamErrorsTotal.WithLabelValues(reason).Inc() }

// knownRoutes is the closed set of path labels. Anything else collapses to
// "other" so scanners and bots cannot inflate label cardinality.
var knownRoutes = map[string]bool{
	"/":                        true,
	"/healthz":                 true,
	"/readyz":                  true,
	"/metrics":                 true,
	"/api/v1/elements/metadata": true,
	"/api/v1/elements/refresh":  true,
	"/api/v1/satellites":        true,
	"/api/v1/positions":         true,
	"/api/v1/compare":           true,
	"/api/v1/passes":            true,
	"/api/v1/stream/positions":  true,
}

// normalizeRoute maps a request path to a bounded metric label.
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	if strings.HasPrefix(path, "/api/v1/orbit/") {
		return "/api/v1/orbit/{catnr}"
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)

		route := normalizeRoute(r.URL.Path)
		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
