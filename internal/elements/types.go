package elements

import "time"

// ElementSet holds one object's orbital elements at a reference epoch.
// Immutable once constructed.
type ElementSet struct {
	CatalogID int
	Name      string
	Epoch     time.Time

	InclinationDeg float64 // 0-180
	RAANDeg        float64 // right ascension of ascending node, 0-360
	Eccentricity   float64 // 0 <= e < 1
	ArgPerigeeDeg  float64 // 0-360
	MeanAnomalyDeg float64 // 0-360
	MeanMotion     float64 // revolutions/day, > 0

	// Raw TLE lines, retained for SGP4 initialization.
	Line1, Line2 string
}

// EpochRange represents the minimum and maximum epoch times in a dataset.
type EpochRange struct {
	Min time.Time
	Max time.Time
}

// Dataset represents a complete catalog of element sets from a source.
type Dataset struct {
	Source     string
	FetchedAt  time.Time
	EpochRange EpochRange
	Satellites []ElementSet
}

// NewDataset builds a Dataset, computing the epoch range from the entries.
func NewDataset(source string, fetchedAt time.Time, sats []ElementSet) *Dataset {
	ds := &Dataset{
		Source:     source,
		FetchedAt:  fetchedAt,
		Satellites: sats,
	}
	if len(sats) == 0 {
		return ds
	}
	ds.EpochRange = EpochRange{Min: sats[0].Epoch, Max: sats[0].Epoch}
	for _, s := range sats[1:] {
		if s.Epoch.Before(ds.EpochRange.Min) {
			ds.EpochRange.Min = s.Epoch
		}
		if s.Epoch.After(ds.EpochRange.Max) {
			ds.EpochRange.Max = s.Epoch
		}
	}
	return ds
}
