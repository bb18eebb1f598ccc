package orbital

import (
	"math"

	"github.com/skytrack/skytrack/internal/elements"
	"github.com/skytrack/skytrack/internal/transform"
)

// EclipseFraction estimates the fraction of the orbital period spent in
// Earth's shadow, using a cylindrical shadow model and a circular orbit at
// the semi-major axis.
//
// The solar beta angle β (angle between the Sun vector and the orbit plane)
// is computed from the orbit's inclination and RAAN against the Sun's
// ecliptic longitude at the element epoch. With h* = √(a²−R²) the horizon
// distance, the shadowed arc is
//
//	f = acos(h* / (a·cos β)) / π
//
// and f = 0 when the orbit never crosses the shadow cylinder (|β| above the
// critical angle). Result is in [0, 0.5].
func EclipseFraction(set elements.ElementSet, semiMajorAxisKm float64) float64 {
	a := semiMajorAxisKm
	if a <= EarthRadiusKm {
		return 1.0
	}

	beta := betaAngle(set)
	horizon := math.Sqrt(a*a - EarthRadiusKm*EarthRadiusKm)

	denom := a * math.Cos(beta)
	if denom <= horizon {
		return 0 // shadow cylinder never intersected
	}

	return math.Acos(horizon/denom) / math.Pi
}

// betaAngle computes the solar beta angle (radians) from the element set's
// inclination, RAAN, and the Sun's ecliptic longitude at epoch.
//
// sin β = cos λs·sin Ω·sin i − sin λs·cos ε·cos Ω·sin i + sin λs·sin ε·cos i
func betaAngle(set elements.ElementSet) float64 {
	const deg2rad = math.Pi / 180.0

	lambdaS, eps := transform.SolarLongitude(set.Epoch)
	i := set.InclinationDeg * deg2rad
	raan := set.RAANDeg * deg2rad

	sinBeta := math.Cos(lambdaS)*math.Sin(raan)*math.Sin(i) -
		math.Sin(lambdaS)*math.Cos(eps)*math.Cos(raan)*math.Sin(i) +
		math.Sin(lambdaS)*math.Sin(eps)*math.Cos(i)

	// Clamp against rounding before Asin.
	sinBeta = math.Max(-1, math.Min(1, sinBeta))
	return math.Asin(sinBeta)
}
