package propagation

import (
	"fmt"
	"math"
	"time"

	"github.com/skytrack/skytrack/internal/transform"
)

// Provider yields the state of one object at an arbitrary time. It is the
// capability boundary between visibility search and orbital dynamics:
// consumers treat it as a synchronous black box and surface its errors
// without retrying.
type Provider interface {
	StateAt(t time.Time) (StateVector, error)
}

// SGP4Provider implements Provider on top of an initialized SGP4 model.
type SGP4Provider struct {
	prop *SGP4Propagator
}

// NewProvider wraps an SGP4 propagator as a state provider.
func NewProvider(prop *SGP4Propagator) *SGP4Provider {
	return &SGP4Provider{prop: prop}
}

// StateAt propagates to t and converts the TEME state to a geodetic
// sub-point, speed, and sunlit flag.
func (p *SGP4Provider) StateAt(t time.Time) (StateVector, error) {
	teme, err := p.prop.Propagate(t)
	if err != nil {
		return StateVector{}, fmt.Errorf("propagation at %s: %w", t.UTC().Format(time.RFC3339), err)
	}
	return stateFromTEME(p.prop.catalogID, teme, t), nil
}

// stateFromTEME converts a TEME position/velocity into a StateVector.
func stateFromTEME(catalogID int, teme transform.PositionTEME, t time.Time) StateVector {
	ecef := transform.TEMEToECEF(teme, t)
	geo := transform.ECEFToGeodetic(ecef.X, ecef.Y, ecef.Z)

	speed := math.Sqrt(teme.VX*teme.VX + teme.VY*teme.VY + teme.VZ*teme.VZ)

	return StateVector{
		CatalogID:    catalogID,
		LatitudeDeg:  geo.LatDeg,
		LongitudeDeg: geo.LonDeg,
		AltitudeKm:   geo.AltKm,
		VelocityKmS:  speed,
		Sunlit:       !transform.InEarthShadow(teme.X, teme.Y, teme.Z, t),
		Timestamp:    t,
	}
}
