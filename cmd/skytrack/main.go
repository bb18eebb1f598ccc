package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/skytrack/skytrack/internal/api"
	"github.com/skytrack/skytrack/internal/auth"
	"github.com/skytrack/skytrack/internal/cache"
	"github.com/skytrack/skytrack/internal/elements"
	"github.com/skytrack/skytrack/internal/metrics"
	"github.com/skytrack/skytrack/internal/propagation"
	"github.com/skytrack/skytrack/internal/stream"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	addr := os.Getenv("SKYTRACK_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	authCfg, err := loadAuthConfig(logger)
	if err != nil {
		logger.Error("invalid auth configuration", "error", err)
		os.Exit(1)
	}

	elemCfg := loadElementsConfig(logger)
	store := elements.NewStore()
	diskCache := elements.NewCache(elemCfg.CacheDir, elemCfg.MaxFiles)

	// Attempt to load cached element data on startup.
	data, ts, err := diskCache.LoadLatest()
	if err != nil {
		logger.Info("no element cache found, starting without element data", "error", err)
	} else {
		sets, err := elements.Parse(bytes.NewReader(data), logger)
		if err != nil {
			logger.Warn("failed to parse cached element data", "error", err)
		} else if len(sets) > 0 {
			store.Set(elements.NewDataset("cache", ts, sets))
			metrics.SetElementsCount(len(sets))
			logger.Info("loaded element data from cache", "count", len(sets), "cached_at", ts.Format(time.RFC3339))
		}
	}

	propCfg := loadPropConfig(logger)
	tracker := propagation.NewTracker(store, propCfg, logger)

	minElevation := loadCoverageMinElevation(logger)
	derived := cache.New(minElevation, logger)

	streamCfg := loadStreamConfig(logger, elemCfg.TrustProxy)
	streamHandler := stream.NewHandler(tracker, store, streamCfg, logger)

	srv := api.NewServer(addr, logger, authCfg, store, elemCfg, tracker, derived, streamHandler)

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Background goroutine to update the element dataset age gauge.
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				age := store.AgeSeconds()
				if age >= 0 {
					metrics.SetElementsAge(age)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		logger.Info("starting server", "addr", addr, "auth_enabled", authCfg.Enabled, "element_fetch_enabled", elemCfg.EnableFetch)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func loadAuthConfig(logger *slog.Logger) (auth.Config, error) {
	cfg := auth.Config{}

	enabledStr := os.Getenv("SKYTRACK_AUTH_ENABLED")
	if enabledStr != "" {
		enabled, err := strconv.ParseBool(enabledStr)
		if err != nil {
			return cfg, errors.New("SKYTRACK_AUTH_ENABLED must be a boolean value (true/false/1/0)")
		}
		cfg.Enabled = enabled
	}

	if cfg.Enabled {
		cfg.Token = os.Getenv("SKYTRACK_AUTH_TOKEN")
		if cfg.Token == "" {
			return cfg, errors.New("SKYTRACK_AUTH_TOKEN is required when auth is enabled")
		}
		logger.Info("auth enabled")
	}

	return cfg, nil
}

func loadElementsConfig(logger *slog.Logger) api.ElementsConfig {
	cfg := api.ElementsConfig{
		EnableFetch: true,
		CacheDir:    "/tmp/skytrack/elements",
		MaxFiles:    5,
		MaxAge:      24 * time.Hour,
	}

	if v := os.Getenv("SKYTRACK_ENABLE_ELEMENT_FETCH"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid SKYTRACK_ENABLE_ELEMENT_FETCH value, defaulting to false", "value", v)
		} else {
			cfg.EnableFetch = enabled
		}
	}

	if v := os.Getenv("SKYTRACK_ELEMENT_SOURCE_URL"); v != "" {
		cfg.SourceURL = v
	}

	if v := os.Getenv("SKYTRACK_ELEMENT_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}

	if v := os.Getenv("SKYTRACK_ELEMENT_MAX_AGE"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			logger.Warn("invalid SKYTRACK_ELEMENT_MAX_AGE value, defaulting to 86400", "value", v)
		} else {
			cfg.MaxAge = time.Duration(seconds) * time.Second
		}
	}

	if v := os.Getenv("SKYTRACK_TRUST_PROXY"); v != "" {
		trust, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid SKYTRACK_TRUST_PROXY value, defaulting to false", "value", v)
		} else {
			cfg.TrustProxy = trust
		}
	}

	logger.Info("elements config",
		"source_url", cfg.SourceURL,
		"cache_dir", cfg.CacheDir,
		"fetch_enabled", cfg.EnableFetch,
	)

	return cfg
}

func loadPropConfig(logger *slog.Logger) propagation.Config {
	cfg := propagation.Config{
		Workers: runtime.NumCPU(),
	}

	if v := os.Getenv("SKYTRACK_PROP_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid SKYTRACK_PROP_WORKERS value, using default", "value", v, "default", cfg.Workers)
		} else {
			cfg.Workers = n
		}
	}

	logger.Info("propagation config", "workers", cfg.Workers)

	return cfg
}

func loadCoverageMinElevation(logger *slog.Logger) float64 {
	minElevation := 0.0

	if v := os.Getenv("SKYTRACK_COVERAGE_MIN_ELEVATION"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f >= 90 {
			logger.Warn("invalid SKYTRACK_COVERAGE_MIN_ELEVATION value, using default", "value", v, "default", 0)
		} else {
			minElevation = f
		}
	}

	return minElevation
}

func loadStreamConfig(logger *slog.Logger, trustProxy bool) stream.Config {
	cfg := stream.Config{
		MaxConcurrentPerIP: 10,
		KeepaliveInterval:  30 * time.Second,
		TrustProxy:         trustProxy,
	}

	if v := os.Getenv("SKYTRACK_STREAM_MAX_CONCURRENT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid SKYTRACK_STREAM_MAX_CONCURRENT value, using default", "value", v, "default", 10)
		} else {
			cfg.MaxConcurrentPerIP = n
		}
	}

	if v := os.Getenv("SKYTRACK_STREAM_KEEPALIVE_INTERVAL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid SKYTRACK_STREAM_KEEPALIVE_INTERVAL value, using default", "value", v, "default", 30)
		} else {
			cfg.KeepaliveInterval = time.Duration(n) * time.Second
		}
	}

	logger.Info("stream config",
		"max_concurrent_per_ip", cfg.MaxConcurrentPerIP,
		"keepalive_interval_seconds", cfg.KeepaliveInterval.Seconds(),
	)

	return cfg
}
