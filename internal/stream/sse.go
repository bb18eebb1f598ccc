// Package stream implements Server-Sent Events (SSE) streaming of live
// satellite states. Clients connect via GET /api/v1/stream/positions and
// receive a fresh sub-point snapshot for the whole catalog at a fixed
// interval.
//
// SSE message format:
//
//	data: {"type":"snapshot","timestamp":"...","satellites":[...]}\n\n
//
// The first message is always metadata:
//
//	data: {"type":"metadata","dataset_source":"...","elements_age_seconds":1800}\n\n
//
// Keep-alive comments (:\n\n) are sent every KeepaliveInterval to prevent
// idle timeouts.
package stream

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/skytrack/skytrack/internal/elements"
	"github.com/skytrack/skytrack/internal/httputil"
	"github.com/skytrack/skytrack/internal/metrics"
	"github.com/skytrack/skytrack/internal/propagation"
)

// Config holds streaming configuration loaded from environment variables.
type Config struct {
	MaxConcurrentPerIP int           // Max concurrent streams per IP (default: 10).
	KeepaliveInterval  time.Duration // Keep-alive ping interval (default: 30s).
	TrustProxy         bool          // Trust X-Forwarded-For for client IPs.
}

// Handler manages SSE streaming connections.
type Handler struct {
	tracker *propagation.Tracker
	store   *elements.Store
	config  Config
	limiter *streamLimiter
	logger  *slog.Logger
}

// NewHandler creates a new streaming handler.
func NewHandler(tracker *propagation.Tracker, store *elements.Store, config Config, logger *slog.Logger) *Handler {
	return &Handler{
		tracker: tracker,
		store:   store,
		config:  config,
		limiter: newStreamLimiter(config.MaxConcurrentPerIP),
		logger:  logger,
	}
}

type metadataMsg struct {
	Type              string  `json:"type"`
	DatasetSource     string  `json:"dataset_source"`
	SatelliteCount    int     `json:"satellite_count"`
	ElementsAgeSecond float64 `json:"elements_age_seconds"`
}

type snapshotMsg struct {
	Type string `json:"type"`
	*propagation.Snapshot
}

// HandlePositions serves the SSE position stream.
// GET /api/v1/stream/positions?interval=5
func (h *Handler) HandlePositions(w http.ResponseWriter, r *http.Request) {
	interval := 5
	if v := r.URL.Query().Get("interval"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 60 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid interval parameter, must be 1-60"})
			return
		}
		interval = n
	}

	ds := h.store.Get()
	if ds == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"error": "no element dataset loaded"})
		return
	}

	// Rate limiting: enforce concurrent stream limit per IP.
	ip := httputil.ClientIP(r, h.config.TrustProxy)
	if !h.limiter.acquire(ip) {
		metrics.IncStreamErrors("rate_limit")
		h.logger.Warn("stream rate limit exceeded",
			"remote_ip", ip,
			"current_count", h.limiter.count(ip),
		)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"error": "too many concurrent streams"})
		return
	}
	defer h.limiter.release(ip)

	flusher, ok := w.(http.Flusher)
	if !ok {
		metrics.IncStreamErrors("no_flusher")
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	metrics.IncStreamsActive()
	defer metrics.DecStreamsActive()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	c := &client{
		w:       w,
		flusher: flusher,
		rc:      http.NewResponseController(w),
		ip:      ip,
		logger:  h.logger,
	}

	startTime := time.Now()
	h.logger.Info("stream connected", "remote_ip", ip, "interval_seconds", interval)

	// Metadata first so reconnecting clients can resynchronize.
	meta := metadataMsg{
		Type:              "metadata",
		DatasetSource:     ds.Source,
		SatelliteCount:    len(ds.Satellites),
		ElementsAgeSecond: h.store.AgeSeconds(),
	}
	if err := c.send("metadata", meta); err != nil {
		h.logger.Debug("stream metadata write failed", "remote_ip", ip, "error", err)
		return
	}

	ticker := time.NewTicker(time.Duration(interval) * time.Second)
	defer ticker.Stop()
	keepalive := time.NewTicker(h.config.KeepaliveInterval)
	defer keepalive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("stream disconnected",
				"remote_ip", ip,
				"duration_seconds", time.Since(startTime).Seconds(),
				"messages_sent", c.messagesSent,
				"bytes_sent", c.bytesSent,
			)
			return

		case <-keepalive.C:
			if err := c.sendKeepalive(); err != nil {
				metrics.IncStreamErrors("write")
				return
			}

		case now := <-ticker.C:
			snap, err := h.tracker.SnapshotAt(ctx, now.UTC())
			if err != nil {
				metrics.IncStreamErrors("snapshot")
				h.logger.Warn("stream snapshot failed", "remote_ip", ip, "error", err)
				continue
			}
			if err := c.send("snapshot", snapshotMsg{Type: "snapshot", Snapshot: snap}); err != nil {
				metrics.IncStreamErrors("write")
				return
			}
		}
	}
}
