package transform

import (
	"fmt"
	"math"
)

// WGS-84 ellipsoid parameters (kilometers).
const (
	wgs84A  = 6378.137              // semi-major axis (km)
	wgs84F  = 1.0 / 298.257223563   // flattening
	wgs84E2 = wgs84F * (2 - wgs84F) // first eccentricity squared
)

// Geodetic input validation errors. Callers receive these wrapped with the
// offending value.
var (
	ErrLatitudeRange  = fmt.Errorf("latitude out of range [-90, 90]")
	ErrLongitudeRange = fmt.Errorf("longitude out of range [-180, 180]")
)

// ObserverPosition holds a ground observer's location in both geodetic and ECEF frames.
// ECEF coordinates are precomputed once so they can be reused across many satellite lookups.
type ObserverPosition struct {
	LatRad, LonRad, AltKm float64 // geodetic (radians, km above ellipsoid)
	ECEFx, ECEFy, ECEFz   float64 // precomputed ECEF (km)
}

// LookAngles holds azimuth, elevation, and range from observer to satellite.
type LookAngles struct {
	AzimuthDeg   float64 // 0 = North, clockwise
	ElevationDeg float64 // 0 = horizon, 90 = zenith
	RangeKm      float64
}

// NewObserverPosition creates an ObserverPosition from geodetic coordinates.
// Latitude and longitude are in degrees, altitude in km above the WGS-84
// ellipsoid. Rejects coordinates outside geodetic range.
func NewObserverPosition(latDeg, lonDeg, altKm float64) (ObserverPosition, error) {
	if err := validateGeodetic(latDeg, lonDeg); err != nil {
		return ObserverPosition{}, err
	}

	lat := latDeg * math.Pi / 180.0
	lon := lonDeg * math.Pi / 180.0
	x, y, z := GeodeticToECEF(latDeg, lonDeg, altKm)

	return ObserverPosition{
		LatRad: lat,
		LonRad: lon,
		AltKm:  altKm,
		ECEFx:  x,
		ECEFy:  y,
		ECEFz:  z,
	}, nil
}

func validateGeodetic(latDeg, lonDeg float64) error {
	if math.IsNaN(latDeg) || latDeg < -90 || latDeg > 90 {
		return fmt.Errorf("%w: %.4f", ErrLatitudeRange, latDeg)
	}
	if math.IsNaN(lonDeg) || lonDeg < -180 || lonDeg > 180 {
		return fmt.Errorf("%w: %.4f", ErrLongitudeRange, lonDeg)
	}
	return nil
}

// GeodeticToECEF converts geodetic coordinates (degrees, km) to ECEF (km).
func GeodeticToECEF(latDeg, lonDeg, altKm float64) (x, y, z float64) {
	lat := latDeg * math.Pi / 180.0
	lon := lonDeg * math.Pi / 180.0

	sinLat := math.Sin(lat)
	cosLat := math.Cos(lat)

	// Radius of curvature in the prime vertical.
	N := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	x = (N + altKm) * cosLat * math.Cos(lon)
	y = (N + altKm) * cosLat * math.Sin(lon)
	z = (N*(1-wgs84E2) + altKm) * sinLat
	return x, y, z
}

// GeodeticPoint holds a geodetic position (latitude/longitude in degrees, altitude in km).
type GeodeticPoint struct {
	LatDeg, LonDeg, AltKm float64
}

// ECEFToGeodetic converts ECEF coordinates (km) to geodetic coordinates
// using the iterative Bowring method. Converges in 2-3 iterations for Earth orbits.
func ECEFToGeodetic(x, y, z float64) GeodeticPoint {
	lon := math.Atan2(y, x)

	p := math.Sqrt(x*x + y*y)

	// Initial estimate using Bowring's method.
	lat := math.Atan2(z, p*(1-wgs84E2))

	for i := 0; i < 5; i++ {
		sinLat := math.Sin(lat)
		N := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)
		lat = math.Atan2(z+wgs84E2*N*sinLat, p)
	}

	sinLat := math.Sin(lat)
	cosLat := math.Cos(lat)
	N := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	var alt float64
	if math.Abs(cosLat) > 1e-10 {
		alt = p/cosLat - N
	} else {
		alt = math.Abs(z)/math.Abs(sinLat) - N*(1-wgs84E2)
	}

	return GeodeticPoint{
		LatDeg: lat * 180.0 / math.Pi,
		LonDeg: lon * 180.0 / math.Pi,
		AltKm:  alt,
	}
}

// ECEFToLookAngles computes azimuth, elevation, and range from an observer
// to a satellite given in ECEF km.
//
// Uses the SEZ (South-East-Zenith) topocentric rotation per Vallado Section 4.4.
// Azimuth: 0 = North, measured clockwise. Elevation: 0 = horizon, 90 = zenith.
func ECEFToLookAngles(obs ObserverPosition, satX, satY, satZ float64) LookAngles {
	// Range vector in ECEF.
	rx := satX - obs.ECEFx
	ry := satY - obs.ECEFy
	rz := satZ - obs.ECEFz

	sinLat := math.Sin(obs.LatRad)
	cosLat := math.Cos(obs.LatRad)
	sinLon := math.Sin(obs.LonRad)
	cosLon := math.Cos(obs.LonRad)

	// Rotate ECEF range vector to SEZ (South, East, Zenith).
	south := sinLat*cosLon*rx + sinLat*sinLon*ry - cosLat*rz
	east := -sinLon*rx + cosLon*ry
	zenith := cosLat*cosLon*rx + cosLat*sinLon*ry + sinLat*rz

	rangeMag := math.Sqrt(south*south + east*east + zenith*zenith)

	// Elevation: angle above horizon.
	el := math.Asin(zenith / rangeMag)

	// Azimuth: measured clockwise from North.
	// In SEZ, North = -South direction, so az = atan2(east, -south).
	az := math.Atan2(east, -south)
	if az < 0 {
		az += 2 * math.Pi
	}

	return LookAngles{
		AzimuthDeg:   az * 180.0 / math.Pi,
		ElevationDeg: el * 180.0 / math.Pi,
		RangeKm:      rangeMag,
	}
}

// SubPointLookAngles computes look angles from an observer to a satellite
// described by its ground sub-point and altitude above the ellipsoid.
// The sub-point latitude/longitude are validated before conversion.
func SubPointLookAngles(obs ObserverPosition, subLatDeg, subLonDeg, altKm float64) (LookAngles, error) {
	if err := validateGeodetic(subLatDeg, subLonDeg); err != nil {
		return LookAngles{}, fmt.Errorf("sub-point: %w", err)
	}
	x, y, z := GeodeticToECEF(subLatDeg, subLonDeg, altKm)
	return ECEFToLookAngles(obs, x, y, z), nil
}
