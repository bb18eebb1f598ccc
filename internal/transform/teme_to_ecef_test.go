package transform

import (
	"math"
	"testing"
	"time"
)

func TestTEMEToECEF_PreservesMagnitude(t *testing.T) {
	// The GMST rotation is about the Z axis, so position magnitude is unchanged.
	teme := PositionTEME{X: 6778, Y: 1234, Z: -2100}
	ecef := TEMEToECEF(teme, time.Date(2026, 3, 1, 18, 30, 0, 0, time.UTC))

	magIn := math.Sqrt(teme.X*teme.X + teme.Y*teme.Y + teme.Z*teme.Z)
	magOut := math.Sqrt(ecef.X*ecef.X + ecef.Y*ecef.Y + ecef.Z*ecef.Z)
	if math.Abs(magIn-magOut) > 1e-6 {
		t.Errorf("rotation changed magnitude: %.9f -> %.9f", magIn, magOut)
	}

	// Z component is unchanged by a rotation about Z.
	if math.Abs(ecef.Z-teme.Z) > 1e-9 {
		t.Errorf("Z changed: %.9f -> %.9f", teme.Z, ecef.Z)
	}
}

func TestTEMEToECEF_ZeroGMSTIsIdentity(t *testing.T) {
	teme := PositionTEME{X: 7000, Y: 0, Z: 0, VX: 0, VY: 7.5, VZ: 0}
	ecef := TEMEToECEFWithGMST(teme, 0)

	if math.Abs(ecef.X-7000) > 1e-9 || math.Abs(ecef.Y) > 1e-9 {
		t.Errorf("zero GMST should be identity for position, got (%.6f, %.6f)", ecef.X, ecef.Y)
	}
}

func TestValidateECEF(t *testing.T) {
	good := PositionECEF{X: 6778, Y: 0, Z: 0}
	if !ValidateECEF(good) {
		t.Error("LEO position rejected")
	}

	if ValidateECEF(PositionECEF{X: math.NaN()}) {
		t.Error("NaN position accepted")
	}
	if ValidateECEF(PositionECEF{X: 100, Y: 0, Z: 0}) {
		t.Error("subsurface position accepted")
	}
}
