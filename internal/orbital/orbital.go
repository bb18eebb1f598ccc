// Package orbital derives classical orbit properties from an element set
// using closed-form Kepler relations. All functions are pure; nothing is
// cached between calls.
package orbital

import (
	"fmt"
	"math"

	"github.com/skytrack/skytrack/internal/elements"
)

// Earth constants (km, km³/s²).
const (
	EarthMu            = 398600.4418 // standard gravitational parameter
	EarthRadiusKm      = 6378.137    // mean equatorial radius
	siderealDayMinutes = 1436.07
)

// Class buckets an orbit by its mean altitude.
type Class string

const (
	ClassLEO Class = "LEO"
	ClassMEO Class = "MEO"
	ClassGEO Class = "GEO"
	ClassHEO Class = "HEO"
)

// Parameters holds the derived scalar properties of one orbit.
type Parameters struct {
	PeriodMinutes    float64 `json:"period_minutes"`
	SemiMajorAxisKm  float64 `json:"semi_major_axis_km"`
	ApogeeKm         float64 `json:"apogee_km"`  // altitude above the ellipsoid
	PerigeeKm        float64 `json:"perigee_km"` // altitude above the ellipsoid
	MeanVelocityKmS  float64 `json:"mean_velocity_km_s"`
	CoverageRadiusKm float64 `json:"coverage_radius_km"`
	EclipseFraction  float64 `json:"eclipse_fraction"` // 0..1
	Class            Class   `json:"class"`
}

// InvalidElementError reports a non-physical orbital element.
type InvalidElementError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *InvalidElementError) Error() string {
	return fmt.Sprintf("invalid orbital element %s=%.6f: %s", e.Field, e.Value, e.Reason)
}

// Derive computes all orbit properties from an element set. The minimum
// elevation threshold (degrees) shapes the ground coverage radius; 0 means
// coverage out to the geometric horizon.
//
// Fails with *InvalidElementError when the elements describe a non-physical
// orbit (non-positive mean motion, eccentricity outside [0,1), or negative perigee
// altitude). No defaults are substituted.
func Derive(set elements.ElementSet, minElevationDeg float64) (Parameters, error) {
	if set.MeanMotion <= 0 {
		return Parameters{}, &InvalidElementError{Field: "mean_motion", Value: set.MeanMotion, Reason: "must be positive"}
	}
	if set.Eccentricity < 0 || set.Eccentricity >= 1 {
		return Parameters{}, &InvalidElementError{Field: "eccentricity", Value: set.Eccentricity, Reason: "must be in [0, 1)"}
	}

	period := 1440.0 / set.MeanMotion
	a := SemiMajorAxisKm(period)

	apogee := a*(1+set.Eccentricity) - EarthRadiusKm
	perigee := a*(1-set.Eccentricity) - EarthRadiusKm
	if perigee < 0 {
		return Parameters{}, &InvalidElementError{Field: "perigee_km", Value: perigee, Reason: "orbit intersects the Earth"}
	}

	meanAlt := (apogee + perigee) / 2.0

	return Parameters{
		PeriodMinutes:    period,
		SemiMajorAxisKm:  a,
		ApogeeKm:         apogee,
		PerigeeKm:        perigee,
		MeanVelocityKmS:  math.Sqrt(EarthMu / a),
		CoverageRadiusKm: CoverageRadiusKm(meanAlt, minElevationDeg),
		EclipseFraction:  EclipseFraction(set, a),
		Class:            Classify(meanAlt),
	}, nil
}

// SemiMajorAxisKm computes the semi-major axis from the orbital period
// (minutes) via Kepler's third law: a = (μ·T²/4π²)^(1/3).
func SemiMajorAxisKm(periodMinutes float64) float64 {
	T := periodMinutes * 60.0
	return math.Cbrt(EarthMu * T * T / (4 * math.Pi * math.Pi))
}

// CoverageRadiusKm computes the radius of the ground footprint visible from
// altitude altKm at or above the given elevation threshold (degrees).
//
// Spherical triangle between satellite, ground point, and Earth's center:
// the Earth-central angle to the elevation-limited edge is
// λ = acos(R/(R+h)·cos ε) − ε, and the surface radius is R·λ.
func CoverageRadiusKm(altKm, minElevationDeg float64) float64 {
	if altKm <= 0 {
		return 0
	}
	eps := minElevationDeg * math.Pi / 180.0
	ratio := EarthRadiusKm / (EarthRadiusKm + altKm) * math.Cos(eps)
	if ratio >= 1.0 {
		return 0
	}
	lambda := math.Acos(ratio) - eps
	if lambda <= 0 {
		return 0
	}
	return EarthRadiusKm * lambda
}

// GroundTraceShiftDeg returns how far west the ground track shifts per
// orbit: Earth rotates 360° per sidereal day under the orbit plane.
func GroundTraceShiftDeg(periodMinutes float64) float64 {
	return 360.0 * periodMinutes / siderealDayMinutes
}

// Classify buckets an orbit by mean altitude (km).
// LEO < 2000, MEO up to the GEO belt, GEO within ~35000-36500, HEO above.
func Classify(meanAltKm float64) Class {
	switch {
	case meanAltKm < 2000:
		return ClassLEO
	case meanAltKm < 35000:
		return ClassMEO
	case meanAltKm <= 36500:
		return ClassGEO
	default:
		return ClassHEO
	}
}
