package propagation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/skytrack/skytrack/internal/elements"
)

// stateJob is a unit of work for the worker pool.
type stateJob struct {
	set        elements.ElementSet
	prop       *SGP4Propagator // preinitialized model, nil if cache missed
	targetTime time.Time
}

// stateResult is the output of a single object's state evaluation.
type stateResult struct {
	state     StateVector
	err       error
	catalogID int
}

// WorkerPool manages a fixed number of goroutines for parallel SGP4 evaluation.
type WorkerPool struct {
	workers int
	logger  *slog.Logger
}

// NewWorkerPool creates a worker pool with the given number of workers.
func NewWorkerPool(workers int, logger *slog.Logger) *WorkerPool {
	return &WorkerPool{
		workers: workers,
		logger:  logger,
	}
}

// StateBatch evaluates all objects at the target time using the worker pool.
// Returns states for all objects that succeeded. Failed objects are logged
// and skipped.
func (wp *WorkerPool) StateBatch(ctx context.Context, sets []elements.ElementSet, targetTime time.Time, props map[int]*SGP4Propagator) ([]StateVector, int, int) {
	if len(sets) == 0 {
		return nil, 0, 0
	}

	jobs := make(chan stateJob, wp.workers*2)
	results := make(chan stateResult, wp.workers*2)

	// Start workers.
	var wg sync.WaitGroup
	for i := 0; i < wp.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				result := evaluateSingle(job)
				select {
				case results <- result:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	// Feed jobs in a goroutine.
	go func() {
		defer close(jobs)
		for _, set := range sets {
			job := stateJob{
				set:        set,
				prop:       props[set.CatalogID],
				targetTime: targetTime,
			}
			select {
			case jobs <- job:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Close results when all workers are done.
	go func() {
		wg.Wait()
		close(results)
	}()

	// Collect results.
	states := make([]StateVector, 0, len(sets))
	var successCount, errorCount int

	for result := range results {
		if result.err != nil {
			errorCount++
			wp.logger.Warn("state evaluation failed",
				"catalog_id", result.catalogID,
				"error", result.err,
			)
			continue
		}
		successCount++
		states = append(states, result.state)
	}

	return states, successCount, errorCount
}

// evaluateSingle performs SGP4 propagation and sub-point conversion for one object.
func evaluateSingle(job stateJob) stateResult {
	prop := job.prop
	if prop == nil {
		var err error
		prop, err = NewSGP4Propagator(job.set)
		if err != nil {
			return stateResult{catalogID: job.set.CatalogID, err: err}
		}
	}

	teme, err := prop.Propagate(job.targetTime)
	if err != nil {
		return stateResult{catalogID: job.set.CatalogID, err: err}
	}

	return stateResult{
		catalogID: job.set.CatalogID,
		state:     stateFromTEME(job.set.CatalogID, teme, job.targetTime),
	}
}
