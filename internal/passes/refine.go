package passes

import "time"

// Refinement is bounded both by a time tolerance and an iteration cap so it
// terminates even for a position function with discontinuities.
const (
	refineTolerance = time.Second
	maxRefineIter   = 32
)

type evalFunc func(time.Time) (sample, error)

// refineCrossing bisects (t1, t2) for the instant elevation crosses the
// threshold. For rising=true, t1 is below and t2 at-or-above the threshold;
// for rising=false the bracket is reversed. The returned sample is on the
// above-threshold side of the bracket, so the reported AOS/LOS elevation is
// within tolerance of the threshold.
func refineCrossing(eval evalFunc, t1, t2 time.Time, threshold float64, rising bool) (sample, error) {
	lo, hi := t1, t2
	for i := 0; i < maxRefineIter && hi.Sub(lo) > refineTolerance; i++ {
		mid := lo.Add(hi.Sub(lo) / 2)
		s, err := eval(mid)
		if err != nil {
			return sample{}, err
		}

		above := s.el >= threshold
		if above == rising {
			hi = mid
		} else {
			lo = mid
		}
	}

	// For a rise report the first known-above instant; for a set the last.
	at := hi
	if !rising {
		at = lo
	}
	return eval(at)
}

// refinePeak locates the elevation maximum inside [lo, hi] with a ternary
// search. Requires the elevation to be unimodal over the bracket, which
// holds for the one-sample neighborhood of the best coarse sample. On equal
// probes the earlier side is kept.
func refinePeak(eval evalFunc, lo, hi time.Time) (sample, error) {
	for i := 0; i < maxRefineIter && hi.Sub(lo) > refineTolerance; i++ {
		third := hi.Sub(lo) / 3
		m1 := lo.Add(third)
		m2 := hi.Add(-third)

		s1, err := eval(m1)
		if err != nil {
			return sample{}, err
		}
		s2, err := eval(m2)
		if err != nil {
			return sample{}, err
		}

		if s1.el >= s2.el {
			hi = m2
		} else {
			lo = m1
		}
	}

	return eval(lo.Add(hi.Sub(lo) / 2))
}
