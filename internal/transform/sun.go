package transform

import (
	"math"
	"time"
)

// SolarLongitude returns the Sun's true ecliptic longitude and the mean
// obliquity of the ecliptic (both radians) for the given time.
//
// Low-accuracy solar theory per Meeus "Astronomical Algorithms" Ch. 25,
// good to ~0.01 degrees, more than enough for shadow geometry.
func SolarLongitude(t time.Time) (lambda, obliquity float64) {
	const deg2rad = math.Pi / 180.0

	T := (JulianDate(t) - j2000) / 36525.0

	// Geometric mean longitude and mean anomaly of the Sun (degrees).
	L0 := 280.46646 + 36000.76983*T + 0.0003032*T*T
	M := (357.52911 + 35999.05029*T - 0.0001537*T*T) * deg2rad

	// Equation of center (degrees).
	C := (1.914602-0.004817*T-0.000014*T*T)*math.Sin(M) +
		(0.019993-0.000101*T)*math.Sin(2*M) +
		0.000289*math.Sin(3*M)

	lambda = math.Mod((L0+C)*deg2rad, 2*math.Pi)
	if lambda < 0 {
		lambda += 2 * math.Pi
	}

	obliquity = (23.439291 - 0.0130042*T) * deg2rad
	return lambda, obliquity
}

// SunVectorECI returns a unit vector from Earth's center toward the Sun in
// the equatorial inertial frame (≈ TEME for shadow purposes).
func SunVectorECI(t time.Time) (x, y, z float64) {
	lambda, eps := SolarLongitude(t)
	sinL, cosL := math.Sincos(lambda)
	return cosL, math.Cos(eps) * sinL, math.Sin(eps) * sinL
}

// InEarthShadow reports whether a satellite at ECI position (km) is inside
// Earth's shadow under a cylindrical shadow model: the satellite is shadowed
// when it is on the anti-solar side and within one Earth radius of the
// shadow cylinder axis.
func InEarthShadow(satX, satY, satZ float64, t time.Time) bool {
	sx, sy, sz := SunVectorECI(t)

	// Projection of the satellite position onto the Sun direction.
	along := satX*sx + satY*sy + satZ*sz
	if along >= 0 {
		return false // sunward side, always lit
	}

	// Perpendicular distance from the shadow cylinder axis.
	px := satX - along*sx
	py := satY - along*sy
	pz := satZ - along*sz
	perp := math.Sqrt(px*px + py*py + pz*pz)

	return perp < wgs84A
}
