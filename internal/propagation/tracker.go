package propagation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/skytrack/skytrack/internal/elements"
	"github.com/skytrack/skytrack/internal/metrics"
)

// sgp4Cache holds preinitialized SGP4 propagators for a specific dataset.
// Immutable after construction; safe for concurrent reads.
type sgp4Cache struct {
	props     map[int]*SGP4Propagator
	fetchedAt time.Time
}

// Tracker orchestrates state generation for whole element catalogs and hands
// out per-object providers to the pass search.
type Tracker struct {
	store  *elements.Store
	pool   *WorkerPool
	config Config
	logger *slog.Logger
	sgp4   atomic.Pointer[sgp4Cache]
	sgp4Mu sync.Mutex // serializes cache rebuilds
}

// NewTracker creates a tracking orchestrator over the element store.
func NewTracker(store *elements.Store, config Config, logger *slog.Logger) *Tracker {
	return &Tracker{
		store:  store,
		pool:   NewWorkerPool(config.Workers, logger),
		config: config,
		logger: logger,
	}
}

// cachedProps returns preinitialized SGP4 propagators for the given dataset.
// Rebuilds the cache if the dataset has changed (double-checked locking).
func (tr *Tracker) cachedProps(ds *elements.Dataset) map[int]*SGP4Propagator {
	if c := tr.sgp4.Load(); c != nil && c.fetchedAt.Equal(ds.FetchedAt) {
		return c.props
	}

	tr.sgp4Mu.Lock()
	defer tr.sgp4Mu.Unlock()

	if c := tr.sgp4.Load(); c != nil && c.fetchedAt.Equal(ds.FetchedAt) {
		return c.props
	}

	props := make(map[int]*SGP4Propagator, len(ds.Satellites))
	var skipped int
	for _, set := range ds.Satellites {
		if _, ok := props[set.CatalogID]; ok {
			continue
		}
		sp, err := NewSGP4Propagator(set)
		if err != nil {
			tr.logger.Warn("sgp4 cache init failed", "catalog_id", set.CatalogID, "error", err)
			skipped++
			continue
		}
		props[set.CatalogID] = sp
	}

	tr.logger.Info("sgp4 propagator cache rebuilt",
		"cached", len(props),
		"skipped", skipped,
		"dataset_fetched_at", ds.FetchedAt.UTC().Format(time.RFC3339),
	)
	tr.sgp4.Store(&sgp4Cache{props: props, fetchedAt: ds.FetchedAt})
	return props
}

// ProviderFor returns a state provider for the given catalog ID, backed by
// the current dataset's cached SGP4 model.
func (tr *Tracker) ProviderFor(catalogID int) (Provider, error) {
	ds := tr.store.Get()
	if ds == nil {
		return nil, fmt.Errorf("no element dataset loaded")
	}

	if sp, ok := tr.cachedProps(ds)[catalogID]; ok {
		return NewProvider(sp), nil
	}

	set, ok := tr.store.Find(catalogID)
	if !ok {
		return nil, fmt.Errorf("catalog %d not in dataset", catalogID)
	}
	sp, err := NewSGP4Propagator(set)
	if err != nil {
		return nil, err
	}
	return NewProvider(sp), nil
}

// SnapshotAt generates the states of all catalog objects at the target time.
func (tr *Tracker) SnapshotAt(ctx context.Context, targetTime time.Time) (*Snapshot, error) {
	ds := tr.store.Get()
	if ds == nil {
		return nil, fmt.Errorf("no element dataset loaded")
	}

	props := tr.cachedProps(ds)

	tr.logger.Debug("generating snapshot",
		"satellite_count", len(ds.Satellites),
		"target_time", targetTime.UTC().Format(time.RFC3339),
		"workers", tr.config.Workers,
	)

	start := time.Now()
	states, successCount, errorCount := tr.pool.StateBatch(ctx, ds.Satellites, targetTime, props)
	duration := time.Since(start)

	metrics.RecordPropagations(successCount, errorCount)

	tr.logger.Debug("snapshot complete",
		"success", successCount,
		"errors", errorCount,
		"duration_ms", duration.Milliseconds(),
	)

	return &Snapshot{
		Timestamp:  targetTime,
		Satellites: states,
	}, nil
}
