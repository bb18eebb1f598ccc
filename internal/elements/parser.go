package elements

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// Parse reads 3-line NORAD TLE format from r and returns parsed element sets.
// Malformed entries are skipped with a warning log; entries with non-physical
// eccentricity or mean motion are rejected here so downstream consumers only
// see validated elements.
func Parse(r io.Reader, logger *slog.Logger) ([]ElementSet, error) {
	scanner := bufio.NewScanner(r)
	var lines []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading TLE data: %w", err)
	}

	var sets []ElementSet
	for i := 0; i+2 < len(lines); {
		name := lines[i]
		line1 := lines[i+1]
		line2 := lines[i+2]

		// Validate line prefixes.
		if !strings.HasPrefix(line1, "1 ") || !strings.HasPrefix(line2, "2 ") {
			// Try to find next valid triplet.
			logger.Warn("skipping malformed TLE entry", "line_index", i, "name", name)
			i++
			continue
		}

		set, err := parseEntry(strings.TrimSpace(name), line1, line2)
		if err != nil {
			logger.Warn("skipping TLE entry", "name", name, "error", err)
			i += 3
			continue
		}

		sets = append(sets, set)
		i += 3
	}

	return sets, nil
}

// parseEntry extracts the full element set from one name/line1/line2 triplet.
// TLE column layout per the NORAD format description (0-indexed slices).
func parseEntry(name, line1, line2 string) (ElementSet, error) {
	if len(line1) < 32 || len(line2) < 63 {
		return ElementSet{}, fmt.Errorf("line too short (line1=%d line2=%d)", len(line1), len(line2))
	}

	catalogID, err := strconv.Atoi(strings.TrimSpace(line1[2:7]))
	if err != nil {
		return ElementSet{}, fmt.Errorf("invalid catalog number %q: %w", line1[2:7], err)
	}

	epoch, err := parseEpoch(strings.TrimSpace(line1[18:32]))
	if err != nil {
		return ElementSet{}, fmt.Errorf("invalid epoch: %w", err)
	}

	incl, err := field(line2, 8, 16, "inclination")
	if err != nil {
		return ElementSet{}, err
	}
	raan, err := field(line2, 17, 25, "raan")
	if err != nil {
		return ElementSet{}, err
	}
	// Eccentricity has an implied leading decimal point.
	ecc, err := strconv.ParseFloat("0."+strings.TrimSpace(line2[26:33]), 64)
	if err != nil {
		return ElementSet{}, fmt.Errorf("invalid eccentricity %q: %w", line2[26:33], err)
	}
	argp, err := field(line2, 34, 42, "argument of perigee")
	if err != nil {
		return ElementSet{}, err
	}
	ma, err := field(line2, 43, 51, "mean anomaly")
	if err != nil {
		return ElementSet{}, err
	}
	mm, err := field(line2, 52, 63, "mean motion")
	if err != nil {
		return ElementSet{}, err
	}

	if ecc < 0 || ecc >= 1 {
		return ElementSet{}, fmt.Errorf("eccentricity %.7f outside [0, 1)", ecc)
	}
	if mm <= 0 {
		return ElementSet{}, fmt.Errorf("mean motion %.8f must be positive", mm)
	}
	if incl < 0 || incl > 180 {
		return ElementSet{}, fmt.Errorf("inclination %.4f outside [0, 180]", incl)
	}

	return ElementSet{
		CatalogID:      catalogID,
		Name:           name,
		Epoch:          epoch,
		InclinationDeg: incl,
		RAANDeg:        raan,
		Eccentricity:   ecc,
		ArgPerigeeDeg:  argp,
		MeanAnomalyDeg: ma,
		MeanMotion:     mm,
		Line1:          line1,
		Line2:          line2,
	}, nil
}

func field(line string, lo, hi int, what string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(line[lo:hi]), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", what, line[lo:hi], err)
	}
	return v, nil
}

// parseEpoch converts a TLE epoch string in YYDDD.DDDDDDDD format to time.Time.
// Years 00-56 map to the 2000s, 57-99 to the 1900s.
func parseEpoch(s string) (time.Time, error) {
	if len(s) < 5 {
		return time.Time{}, fmt.Errorf("epoch string too short: %q", s)
	}

	year, err := strconv.Atoi(s[:2])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch year %q: %w", s[:2], err)
	}
	if year >= 57 {
		year += 1900
	} else {
		year += 2000
	}

	dayOfYear, err := strconv.ParseFloat(s[2:], 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch day %q: %w", s[2:], err)
	}

	// dayOfYear is 1-based: day 1 = Jan 1.
	t := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	return t.Add(time.Duration((dayOfYear - 1) * float64(24*time.Hour))), nil
}
