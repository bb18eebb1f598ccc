// Package passes implements visibility pass search: given a position
// provider, an observer, and a time window, it finds the intervals during
// which the object is above a minimum elevation.
//
// The search samples elevation at a fixed step, detects threshold crossings,
// and refines rise/set times by bisection and the culmination by a bounded
// ternary search. Passes already in progress at the window start, or still
// in progress at the window end, are emitted clipped to the window edge and
// marked Partial. Passes shorter than the sampling step can fall between two
// samples and are silently missed; choosing the step is the caller's
// precision/cost trade-off.
package passes

import (
	"errors"
	"fmt"
	"time"

	"github.com/skytrack/skytrack/internal/propagation"
	"github.com/skytrack/skytrack/internal/transform"
)

// Search parameter validation errors.
var (
	ErrInvalidWindow = errors.New("window start must precede end")
	ErrInvalidStep   = errors.New("step must be positive")
)

// Pass describes a single visibility window.
//
// For full passes AOS < Culmination < LOS holds strictly. For Partial
// passes the culmination may coincide with the clipped window edge.
type Pass struct {
	AOS                time.Time `json:"aos"`
	AOSAzimuth         float64   `json:"aos_azimuth"`
	LOS                time.Time `json:"los"`
	LOSAzimuth         float64   `json:"los_azimuth"`
	Culmination        time.Time `json:"culmination"`
	CulminationAzimuth float64   `json:"culmination_azimuth"`
	MaxElevation       float64   `json:"max_elevation"`
	DurationSeconds    float64   `json:"duration_seconds"`
	Partial            bool      `json:"partial,omitempty"`
}

// sample is one elevation evaluation.
type sample struct {
	t  time.Time
	el float64
	az float64
}

// FindPasses searches [start, end] for visibility passes of the object
// described by provider, as seen from obs, sampling at step and requiring
// elevation >= minElevation (degrees).
//
// The result is ordered by AOS ascending and is a pure function of the
// inputs: repeating the call yields an identical sequence. Provider errors
// abort the search and are returned unmodified (wrapped with the sample
// time); the engine never retries.
func FindPasses(provider propagation.Provider, obs transform.ObserverPosition, start, end time.Time, step time.Duration, minElevation float64) ([]Pass, error) {
	if !start.Before(end) {
		return nil, fmt.Errorf("%w: start=%s end=%s", ErrInvalidWindow, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	if step <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStep, step)
	}

	eval := func(t time.Time) (sample, error) {
		state, err := provider.StateAt(t)
		if err != nil {
			return sample{}, fmt.Errorf("position at %s: %w", t.UTC().Format(time.RFC3339), err)
		}
		la, err := transform.SubPointLookAngles(obs, state.LatitudeDeg, state.LongitudeDeg, state.AltitudeKm)
		if err != nil {
			return sample{}, err
		}
		return sample{t: t, el: la.ElevationDeg, az: la.AzimuthDeg}, nil
	}

	var (
		passes   []Pass
		prev     sample
		havePrev bool

		inPass    bool
		aos       sample
		partial   bool
		inWindow  []sample // samples inside the current pass
		exhausted bool
	)

	closePass := func(los sample, clipped bool) error {
		p, err := buildPass(eval, aos, los, inWindow, partial, clipped)
		if err != nil {
			return err
		}
		passes = append(passes, p)
		inPass = false
		partial = false
		inWindow = nil
		return nil
	}

	for t := start; !exhausted; t = t.Add(step) {
		if !t.Before(end) {
			// Clamp the final sample to the window edge so boundary
			// behavior does not depend on step divisibility.
			t = end
			exhausted = true
		}

		cur, err := eval(t)
		if err != nil {
			return nil, err
		}
		above := cur.el >= minElevation

		switch {
		case above && !inPass:
			if !havePrev {
				// Already visible at window start: clip.
				aos = cur
				partial = true
			} else if prev.el < minElevation {
				refined, err := refineCrossing(eval, prev.t, cur.t, minElevation, true)
				if err != nil {
					return nil, err
				}
				aos = refined
			} else {
				// prev was above but we were not in a pass; can only
				// happen right after closing one on this same sample.
				aos = cur
			}
			inPass = true
			inWindow = append(inWindow, cur)

		case above && inPass:
			inWindow = append(inWindow, cur)

		case !above && inPass:
			los, err := refineCrossing(eval, prev.t, cur.t, minElevation, false)
			if err != nil {
				return nil, err
			}
			if err := closePass(los, false); err != nil {
				return nil, err
			}
		}

		prev = cur
		havePrev = true
	}

	// Still visible at window end: clip.
	if inPass {
		if err := closePass(prev, true); err != nil {
			return nil, err
		}
	}

	return passes, nil
}

// buildPass assembles a Pass from its refined endpoints and in-window samples.
func buildPass(eval evalFunc, aos, los sample, inWindow []sample, clippedStart, clippedEnd bool) (Pass, error) {
	// Best sampled elevation; strict > keeps the earlier timestamp on ties.
	best := aos
	bestIdx := -1
	for i, s := range inWindow {
		if s.el > best.el {
			best = s
			bestIdx = i
		}
	}
	if los.el > best.el {
		best = los
		bestIdx = len(inWindow)
	}

	// Refine the peak between the neighbors of the best sample.
	lo, hi := aos.t, los.t
	if bestIdx > 0 {
		lo = inWindow[bestIdx-1].t
	}
	if bestIdx >= 0 && bestIdx < len(inWindow)-1 {
		hi = inWindow[bestIdx+1].t
	}
	peak, err := refinePeak(eval, lo, hi)
	if err != nil {
		return Pass{}, err
	}
	// Prefer the refined peak only when it is strictly higher, or equal
	// but earlier.
	if peak.el > best.el || (peak.el == best.el && peak.t.Before(best.t)) {
		best = peak
	}

	return Pass{
		AOS:                aos.t,
		AOSAzimuth:         aos.az,
		LOS:                los.t,
		LOSAzimuth:         los.az,
		Culmination:        best.t,
		CulminationAzimuth: best.az,
		MaxElevation:       best.el,
		DurationSeconds:    los.t.Sub(aos.t).Seconds(),
		Partial:            clippedStart || clippedEnd,
	}, nil
}
