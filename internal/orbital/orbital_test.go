package orbital

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/gonum/floats"

	"github.com/skytrack/skytrack/internal/elements"
)

func issElements() elements.ElementSet {
	return elements.ElementSet{
		CatalogID:      25544,
		Name:           "ISS (ZARYA)",
		Epoch:          time.Date(2008, 9, 20, 12, 25, 40, 0, time.UTC),
		InclinationDeg: 51.6416,
		RAANDeg:        247.4627,
		Eccentricity:   0.0006703,
		ArgPerigeeDeg:  130.5360,
		MeanAnomalyDeg: 325.0288,
		MeanMotion:     15.72125391,
	}
}

func TestDerive_ISS(t *testing.T) {
	params, err := Derive(issElements(), 0)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}

	// Period 1440/15.72125391 is about 91.6 minutes.
	if params.PeriodMinutes < 91.0 || params.PeriodMinutes > 92.2 {
		t.Errorf("period = %.3f min, want ~91.6", params.PeriodMinutes)
	}

	// Kepler's third law puts the semi-major axis near 6725 km.
	if params.SemiMajorAxisKm < 6700 || params.SemiMajorAxisKm > 6760 {
		t.Errorf("semi-major axis = %.1f km, want ~6725", params.SemiMajorAxisKm)
	}

	// Near-circular orbit: apogee and perigee close together, both ~350 km.
	if params.ApogeeKm < params.PerigeeKm {
		t.Errorf("apogee %.1f below perigee %.1f", params.ApogeeKm, params.PerigeeKm)
	}
	if params.PerigeeKm < 300 || params.ApogeeKm > 420 {
		t.Errorf("altitudes = [%.1f, %.1f] km, want roughly 340-360", params.PerigeeKm, params.ApogeeKm)
	}
	if params.ApogeeKm-params.PerigeeKm > 20 {
		t.Errorf("apogee-perigee spread = %.1f km, want < 20 for e=0.00067", params.ApogeeKm-params.PerigeeKm)
	}

	// Circular velocity sqrt(mu/a) is about 7.70 km/s.
	if !floats.EqualWithinAbs(params.MeanVelocityKmS, 7.70, 0.05) {
		t.Errorf("mean velocity = %.3f km/s, want ~7.70", params.MeanVelocityKmS)
	}

	if params.Class != ClassLEO {
		t.Errorf("class = %s, want LEO", params.Class)
	}

	// LEO at ~52 degrees inclination spends roughly a third of each orbit in shadow.
	if params.EclipseFraction < 0 || params.EclipseFraction > 0.5 {
		t.Errorf("eclipse fraction = %.3f, want within [0, 0.5]", params.EclipseFraction)
	}
}

func TestDerive_GEO(t *testing.T) {
	set := issElements()
	set.MeanMotion = 1.0027       // one revolution per sidereal day
	set.Eccentricity = 0.0001
	set.InclinationDeg = 0.05

	params, err := Derive(set, 0)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}

	if !floats.EqualWithinAbs(params.SemiMajorAxisKm, 42164, 50) {
		t.Errorf("GEO semi-major axis = %.0f km, want ~42164", params.SemiMajorAxisKm)
	}
	if params.Class != ClassGEO {
		t.Errorf("class = %s, want GEO", params.Class)
	}

	// A GEO ground track barely drifts per revolution.
	shift := GroundTraceShiftDeg(params.PeriodMinutes)
	if !floats.EqualWithinAbs(shift, 360.0, 1.0) {
		t.Errorf("GEO ground trace shift = %.2f deg per orbit, want ~360", shift)
	}
}

func TestDerive_InvalidElements(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*elements.ElementSet)
		field  string
	}{
		{"zero mean motion", func(s *elements.ElementSet) { s.MeanMotion = 0 }, "mean_motion"},
		{"negative mean motion", func(s *elements.ElementSet) { s.MeanMotion = -1 }, "mean_motion"},
		{"eccentricity one", func(s *elements.ElementSet) { s.Eccentricity = 1.0 }, "eccentricity"},
		{"negative eccentricity", func(s *elements.ElementSet) { s.Eccentricity = -0.1 }, "eccentricity"},
		{"suborbital perigee", func(s *elements.ElementSet) { s.MeanMotion = 16.5; s.Eccentricity = 0.05 }, "perigee_km"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			set := issElements()
			tc.mutate(&set)

			_, err := Derive(set, 0)
			var invalid *InvalidElementError
			if !errors.As(err, &invalid) {
				t.Fatalf("Derive error = %v, want *InvalidElementError", err)
			}
			if invalid.Field != tc.field {
				t.Errorf("field = %q, want %q", invalid.Field, tc.field)
			}
		})
	}
}

func TestCoverageRadius(t *testing.T) {
	// Geometric horizon coverage at 400 km is roughly 2200 km.
	r0 := CoverageRadiusKm(400, 0)
	if r0 < 2000 || r0 > 2400 {
		t.Errorf("coverage at 400 km / 0 deg = %.0f km, want ~2200", r0)
	}

	// Raising the elevation threshold shrinks the footprint.
	prev := r0
	for _, el := range []float64{5, 10, 20, 45, 80} {
		r := CoverageRadiusKm(400, el)
		if r >= prev {
			t.Errorf("coverage at elevation %.0f = %.0f km, not smaller than %.0f", el, r, prev)
		}
		prev = r
	}

	// Degenerate inputs collapse to zero.
	if CoverageRadiusKm(0, 0) != 0 {
		t.Error("zero altitude should give zero coverage")
	}
	if CoverageRadiusKm(-100, 0) != 0 {
		t.Error("negative altitude should give zero coverage")
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		alt  float64
		want Class
	}{
		{400, ClassLEO},
		{1999, ClassLEO},
		{2000, ClassMEO},
		{20200, ClassMEO},
		{35786, ClassGEO},
		{36500, ClassGEO},
		{36501, ClassHEO},
		{200000, ClassHEO},
	}
	for _, tc := range cases {
		if got := Classify(tc.alt); got != tc.want {
			t.Errorf("Classify(%.0f) = %s, want %s", tc.alt, got, tc.want)
		}
	}
}

func TestEclipseFraction_Bounds(t *testing.T) {
	// Sweep RAAN through a full turn: the fraction stays in [0, 0.5] and
	// hits zero only when the beta angle clears the shadow cylinder.
	set := issElements()
	a := SemiMajorAxisKm(1440.0 / set.MeanMotion)

	for raan := 0.0; raan < 360.0; raan += 15.0 {
		set.RAANDeg = raan
		f := EclipseFraction(set, a)
		if f < 0 || f > 0.5 {
			t.Errorf("eclipse fraction at RAAN %.0f = %.4f, want within [0, 0.5]", raan, f)
		}
	}

	// GEO spends far less of its period shadowed than LEO near beta zero.
	leoMax, geoMax := 0.0, 0.0
	geo := issElements()
	geo.InclinationDeg = 0
	aGeo := 42164.0
	for raan := 0.0; raan < 360.0; raan += 15.0 {
		set.RAANDeg = raan
		geo.RAANDeg = raan
		leoMax = math.Max(leoMax, EclipseFraction(set, a))
		geoMax = math.Max(geoMax, EclipseFraction(geo, aGeo))
	}
	if leoMax <= geoMax {
		t.Errorf("LEO max eclipse %.4f should exceed GEO max %.4f", leoMax, geoMax)
	}
	if leoMax < 0.3 {
		t.Errorf("LEO max eclipse fraction = %.4f, want > 0.3", leoMax)
	}
}
