// Package transform provides coordinate frame and time transformations for
// satellite geometry.
//
// The frame chain is TEME (True Equator Mean Equinox, the SGP4 output frame)
// to ECEF (Earth-Centered Earth-Fixed), then ECEF to geodetic sub-points and
// SEZ topocentric look angles.
//
// The TEME to ECEF step is a simplified Vallado-style rotation through GMST
// only. It ignores polar motion and the equation of the equinoxes, which
// introduces at most ~50m of error, acceptable for visibility prediction.
//
// Reference: Vallado, "Fundamentals of Astrodynamics and Applications", Ch. 3.
package transform

import (
	"math"
	"time"
)

// PositionTEME represents a satellite position and velocity in the TEME frame (km, km/s).
type PositionTEME struct {
	X, Y, Z    float64 // km
	VX, VY, VZ float64 // km/s
}

// PositionECEF represents a satellite position and velocity in the ECEF frame (km, km/s).
type PositionECEF struct {
	X, Y, Z    float64 // km
	VX, VY, VZ float64 // km/s
}

// TEMEToECEF transforms a TEME position/velocity to ECEF at the given UTC time.
func TEMEToECEF(teme PositionTEME, t time.Time) PositionECEF {
	gmst := GMST(t)
	return TEMEToECEFWithGMST(teme, gmst)
}

// TEMEToECEFWithGMST transforms TEME to ECEF using a precomputed GMST angle (radians).
// Useful when propagating multiple satellites to the same time (compute GMST once).
//
// Position transform: r_ECEF = R3(θ) * r_TEME
// Velocity transform: v_ECEF = R3(θ) * v_TEME - ω × r_ECEF
//
// where R3(θ) is a rotation about the Z-axis by angle θ (GMST),
// and ω = [0, 0, ω_earth] is Earth's angular velocity vector.
func TEMEToECEFWithGMST(teme PositionTEME, gmst float64) PositionECEF {
	cosG := math.Cos(gmst)
	sinG := math.Sin(gmst)

	// Position: R3(GMST) rotation.
	xECEF := teme.X*cosG + teme.Y*sinG
	yECEF := -teme.X*sinG + teme.Y*cosG
	zECEF := teme.Z

	// Velocity: R3(GMST) rotation, then subtract Earth rotation effect.
	// ω × r_ECEF = [-ω*y_ECEF, ω*x_ECEF, 0]
	vxRot := teme.VX*cosG + teme.VY*sinG
	vyRot := -teme.VX*sinG + teme.VY*cosG

	return PositionECEF{
		X:  xECEF,
		Y:  yECEF,
		Z:  zECEF,
		VX: vxRot + OmegaEarth*yECEF,
		VY: vyRot - OmegaEarth*xECEF,
		VZ: teme.VZ,
	}
}

// ValidateECEF checks that an ECEF position is physically reasonable for an
// Earth-orbiting satellite. Returns true if valid.
// Expected: magnitude between Earth radius (~6378km) and ~50000km (high orbit).
func ValidateECEF(pos PositionECEF) bool {
	if math.IsNaN(pos.X) || math.IsNaN(pos.Y) || math.IsNaN(pos.Z) {
		return false
	}
	if math.IsInf(pos.X, 0) || math.IsInf(pos.Y, 0) || math.IsInf(pos.Z, 0) {
		return false
	}

	mag := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y + pos.Z*pos.Z)

	// LEO starts around 6500km radius, GEO is ~42164km. Allow a generous band.
	return mag >= 6200.0 && mag <= 50000.0
}
