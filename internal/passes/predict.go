package passes

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/skytrack/skytrack/internal/elements"
	"github.com/skytrack/skytrack/internal/metrics"
	"github.com/skytrack/skytrack/internal/propagation"
	"github.com/skytrack/skytrack/internal/transform"
)

// defaultStep is used when a request leaves Step zero.
const defaultStep = 30 * time.Second

// Request holds the parameters for a multi-satellite pass prediction.
type Request struct {
	Observer     transform.ObserverPosition
	Sets         []elements.ElementSet
	Start        time.Time
	End          time.Time
	Step         time.Duration // sampling step; 0 means defaultStep
	MinElevation float64       // degrees
	MaxPasses    int           // per satellite; 0 means unlimited
}

// Result holds the predicted passes for one satellite.
type Result struct {
	CatalogID int    `json:"catalog_id"`
	Name      string `json:"name"`
	Passes    []Pass `json:"passes"`
	Error     string `json:"error,omitempty"`
}

// Predict computes passes for every satellite in the request.
// Each satellite is processed in its own goroutine, bounded by a semaphore.
// Per-satellite scans remain sequential so edge detection sees samples in
// time order.
func Predict(ctx context.Context, req Request) []Result {
	step := req.Step
	if step == 0 {
		step = defaultStep
	}

	results := make([]Result, len(req.Sets))
	sem := make(chan struct{}, runtime.NumCPU())
	var wg sync.WaitGroup

	for i, set := range req.Sets {
		wg.Add(1)
		go func(idx int, set elements.ElementSet) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[idx] = Result{
					CatalogID: set.CatalogID,
					Name:      set.Name,
					Error:     "cancelled",
				}
				return
			}

			found, err := predictSatellite(req, set, step)
			if err != nil {
				results[idx] = Result{
					CatalogID: set.CatalogID,
					Name:      set.Name,
					Error:     err.Error(),
				}
				return
			}
			results[idx] = Result{
				CatalogID: set.CatalogID,
				Name:      set.Name,
				Passes:    found,
			}
		}(i, set)
	}

	wg.Wait()
	return results
}

// predictSatellite runs the sequential search for a single satellite.
func predictSatellite(req Request, set elements.ElementSet, step time.Duration) ([]Pass, error) {
	prop, err := propagation.NewSGP4Propagator(set)
	if err != nil {
		return nil, err
	}

	begin := time.Now()
	found, err := FindPasses(propagation.NewProvider(prop), req.Observer, req.Start, req.End, step, req.MinElevation)
	if err != nil {
		return nil, err
	}
	metrics.RecordPassSearch(time.Since(begin), len(found))

	if req.MaxPasses > 0 && len(found) > req.MaxPasses {
		found = found[:req.MaxPasses]
	}
	return found, nil
}
