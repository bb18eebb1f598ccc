package propagation

import "time"

// StateVector is the instantaneous state of one object: geodetic sub-point,
// altitude, speed, and illumination. Produced on demand, never mutated.
type StateVector struct {
	CatalogID    int       `json:"catalog_id"`
	LatitudeDeg  float64   `json:"latitude"`
	LongitudeDeg float64   `json:"longitude"`
	AltitudeKm   float64   `json:"altitude_km"`
	VelocityKmS  float64   `json:"velocity_km_s"`
	Sunlit       bool      `json:"sunlit"`
	Timestamp    time.Time `json:"timestamp"`
}

// Snapshot holds the states of all catalog objects at a single instant.
type Snapshot struct {
	Timestamp  time.Time     `json:"timestamp"`
	Satellites []StateVector `json:"satellites"`
}

// Config holds propagation configuration loaded from environment variables.
type Config struct {
	Workers int // Worker pool size (default: runtime.NumCPU())
}
