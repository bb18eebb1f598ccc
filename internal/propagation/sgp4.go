package propagation

import (
	"fmt"
	"math"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
	"github.com/skytrack/skytrack/internal/elements"
	"github.com/skytrack/skytrack/internal/transform"
)

// SGP4 library choice: github.com/joshuaferrara/go-satellite
//
// Selected for: most community adoption, pure Go (no CGO), battle-tested
// since 2016, explicit TEME output.
//
// Note: Propagate() takes Satellite by value so SGP4 error codes are not visible
// to the caller. We detect propagation failures by checking output for NaN/Inf
// and unreasonable position magnitudes.

// SGP4Propagator wraps the go-satellite library for a single object.
type SGP4Propagator struct {
	sat       satellite.Satellite
	catalogID int
}

// NewSGP4Propagator creates an SGP4 propagator from an element set's raw
// TLE lines. Returns an error if the lines are malformed or the SGP4 model
// fails to initialize.
//
// Pre-validates TLE format before passing to the library, because go-satellite
// calls log.Fatal on malformed input (which would kill the process).
func NewSGP4Propagator(set elements.ElementSet) (*SGP4Propagator, error) {
	if err := validateTLELines(set.Line1, set.Line2); err != nil {
		return nil, fmt.Errorf("invalid TLE for catalog %d: %w", set.CatalogID, err)
	}

	sat := satellite.TLEToSat(set.Line1, set.Line2, satellite.GravityWGS84)
	if sat.Error != 0 {
		return nil, fmt.Errorf("sgp4 init failed for catalog %d: code=%d %s", set.CatalogID, sat.Error, sat.ErrorStr)
	}
	return &SGP4Propagator{sat: sat, catalogID: set.CatalogID}, nil
}

// validateTLELines performs basic format validation on TLE lines.
func validateTLELines(line1, line2 string) error {
	line1 = strings.TrimSpace(line1)
	line2 = strings.TrimSpace(line2)

	if len(line1) != 69 {
		return fmt.Errorf("line1 length %d, expected 69", len(line1))
	}
	if len(line2) != 69 {
		return fmt.Errorf("line2 length %d, expected 69", len(line2))
	}
	if line1[0] != '1' {
		return fmt.Errorf("line1 must start with '1', got '%c'", line1[0])
	}
	if line2[0] != '2' {
		return fmt.Errorf("line2 must start with '2', got '%c'", line2[0])
	}
	return nil
}

// Propagate computes the object's position and velocity in the TEME frame
// (km, km/s) at the given UTC time.
func (p *SGP4Propagator) Propagate(t time.Time) (transform.PositionTEME, error) {
	u := t.UTC()
	pos, vel := satellite.Propagate(p.sat, u.Year(), int(u.Month()), u.Day(), u.Hour(), u.Minute(), u.Second())

	// Detect propagation failures via NaN/Inf check.
	if math.IsNaN(pos.X) || math.IsNaN(pos.Y) || math.IsNaN(pos.Z) ||
		math.IsInf(pos.X, 0) || math.IsInf(pos.Y, 0) || math.IsInf(pos.Z, 0) {
		return transform.PositionTEME{}, fmt.Errorf("sgp4 propagation failed for catalog %d: output is NaN/Inf", p.catalogID)
	}

	// Sanity check: position magnitude should be between ~6200km and ~50000km.
	mag := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y + pos.Z*pos.Z)
	if mag < 6200.0 || mag > 50000.0 {
		return transform.PositionTEME{}, fmt.Errorf("sgp4 propagation failed for catalog %d: unreasonable position magnitude %.1f km", p.catalogID, mag)
	}

	return transform.PositionTEME{
		X:  pos.X,
		Y:  pos.Y,
		Z:  pos.Z,
		VX: vel.X,
		VY: vel.Y,
		VZ: vel.Z,
	}, nil
}
