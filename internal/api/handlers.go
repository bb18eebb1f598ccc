package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/skytrack/skytrack/internal/elements"
	"github.com/skytrack/skytrack/internal/metrics"
	"github.com/skytrack/skytrack/internal/orbital"
	"github.com/skytrack/skytrack/internal/passes"
	"github.com/skytrack/skytrack/internal/transform"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// handleElementsMetadata reports the current dataset's provenance.
// GET /api/v1/elements/metadata
func (s *Server) handleElementsMetadata(w http.ResponseWriter, r *http.Request) {
	ds := s.store.Get()
	if ds == nil {
		writeError(w, http.StatusNotFound, "no element dataset loaded")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"source":      ds.Source,
		"fetched_at":  ds.FetchedAt.UTC().Format(time.RFC3339),
		"epoch_min":   ds.EpochRange.Min.UTC().Format(time.RFC3339),
		"epoch_max":   ds.EpochRange.Max.UTC().Format(time.RFC3339),
		"count":       len(ds.Satellites),
		"age_seconds": s.store.AgeSeconds(),
	})
}

// handleElementsRefresh fetches a fresh catalog from the configured source.
// POST /api/v1/elements/refresh
func (s *Server) handleElementsRefresh(w http.ResponseWriter, r *http.Request) {
	if !s.elemCfg.EnableFetch {
		writeError(w, http.StatusForbidden, "element fetching is disabled")
		return
	}

	// One fetch at a time.
	s.store.Lock()
	defer s.store.Unlock()

	data, err := s.fetcher.Fetch(r.Context())
	if err != nil {
		s.logger.Error("element fetch failed", "source", s.fetcher.SourceURL(), "error", err)
		writeError(w, http.StatusBadGateway, "fetch failed: "+err.Error())
		return
	}

	sets, err := elements.Parse(bytes.NewReader(data), s.logger)
	if err != nil {
		writeError(w, http.StatusBadGateway, "parse failed: "+err.Error())
		return
	}
	if len(sets) == 0 {
		writeError(w, http.StatusBadGateway, "source returned no element sets")
		return
	}

	now := time.Now().UTC()
	ds := elements.NewDataset(s.fetcher.SourceURL(), now, sets)
	s.store.Set(ds)
	s.derived.Retain(ds)
	metrics.SetElementsCount(len(sets))

	if err := s.diskCache.Write(data, now); err != nil {
		s.logger.Warn("element disk cache write failed", "error", err)
	}

	s.logger.Info("element dataset refreshed", "count", len(sets), "source", s.fetcher.SourceURL())
	writeJSON(w, http.StatusOK, map[string]any{"count": len(sets), "fetched_at": now.Format(time.RFC3339)})
}

// handleSatellites lists the current catalog.
// GET /api/v1/satellites
func (s *Server) handleSatellites(w http.ResponseWriter, r *http.Request) {
	ds := s.store.Get()
	if ds == nil {
		writeError(w, http.StatusNotFound, "no element dataset loaded")
		return
	}

	type entry struct {
		CatalogID int    `json:"catalog_id"`
		Name      string `json:"name"`
		Epoch     string `json:"epoch"`
	}
	out := make([]entry, 0, len(ds.Satellites))
	for _, set := range ds.Satellites {
		out = append(out, entry{CatalogID: set.CatalogID, Name: set.Name, Epoch: set.Epoch.UTC().Format(time.RFC3339)})
	}
	writeJSON(w, http.StatusOK, out)
}

// handlePositions returns a sub-point snapshot for the whole catalog.
// GET /api/v1/positions?at=2026-03-01T12:00:00Z
func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	at := time.Now().UTC()
	if v := r.URL.Query().Get("at"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid at parameter, want RFC3339")
			return
		}
		at = t.UTC()
	}

	snap, err := s.tracker.SnapshotAt(r.Context(), at)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type orbitResponse struct {
	CatalogID int    `json:"catalog_id"`
	Name      string `json:"name"`
	Epoch     string `json:"epoch"`
	orbital.Parameters
	GroundTraceShiftDeg float64 `json:"ground_trace_shift_deg"`
	Error               string  `json:"error,omitempty"`
}

func (s *Server) deriveFor(set elements.ElementSet, minElevation float64, useCache bool) (orbitResponse, error) {
	resp := orbitResponse{
		CatalogID: set.CatalogID,
		Name:      set.Name,
		Epoch:     set.Epoch.UTC().Format(time.RFC3339),
	}

	var params orbital.Parameters
	var err error
	if useCache {
		params, err = s.derived.Get(set)
	} else {
		params, err = orbital.Derive(set, minElevation)
	}
	if err != nil {
		resp.Error = err.Error()
		return resp, err
	}

	resp.Parameters = params
	resp.GroundTraceShiftDeg = orbital.GroundTraceShiftDeg(params.PeriodMinutes)
	return resp, nil
}

// handleOrbit returns the derived orbital parameters for one object.
// GET /api/v1/orbit/{catnr}?min_elevation=10
func (s *Server) handleOrbit(w http.ResponseWriter, r *http.Request) {
	catnr, err := strconv.Atoi(r.PathValue("catnr"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid catalog number")
		return
	}

	set, ok := s.store.Find(catnr)
	if !ok {
		writeError(w, http.StatusNotFound, "catalog number not in dataset")
		return
	}

	// A custom elevation threshold changes the coverage radius, so it
	// bypasses the fixed-threshold cache.
	minElevation := 0.0
	useCache := true
	if v := r.URL.Query().Get("min_elevation"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f >= 90 {
			writeError(w, http.StatusBadRequest, "invalid min_elevation, want [0, 90)")
			return
		}
		minElevation = f
		useCache = false
	}

	resp, err := s.deriveFor(set, minElevation, useCache)
	if err != nil {
		var invalid *orbital.InvalidElementError
		if errors.As(err, &invalid) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleCompare returns derived parameters for several objects side by side.
// GET /api/v1/compare?ids=25544,20580
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	idsParam := r.URL.Query().Get("ids")
	if idsParam == "" {
		writeError(w, http.StatusBadRequest, "missing ids parameter")
		return
	}

	var out []orbitResponse
	for _, part := range splitCSV(idsParam) {
		id, err := strconv.Atoi(part)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid catalog number: "+part)
			return
		}
		set, ok := s.store.Find(id)
		if !ok {
			out = append(out, orbitResponse{CatalogID: id, Error: "not in dataset"})
			continue
		}
		resp, _ := s.deriveFor(set, 0, true)
		out = append(out, resp)
	}
	writeJSON(w, http.StatusOK, out)
}

// handlePasses predicts visibility passes for one or more objects.
// GET /api/v1/passes?catnr=25544&lat=41.0&lon=29.0&hours=24&min_elevation=10
func (s *Server) handlePasses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing or invalid lat parameter")
		return
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing or invalid lon parameter")
		return
	}
	altKm := 0.0
	if v := q.Get("alt_km"); v != "" {
		altKm, err = strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid alt_km parameter")
			return
		}
	}

	obs, err := transform.NewObserverPosition(lat, lon, altKm)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	start := time.Now().UTC()
	if v := q.Get("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start parameter, want RFC3339")
			return
		}
		start = t.UTC()
	}

	hours := 24.0
	if v := q.Get("hours"); v != "" {
		hours, err = strconv.ParseFloat(v, 64)
		if err != nil || hours <= 0 || hours > 168 {
			writeError(w, http.StatusBadRequest, "invalid hours parameter, want (0, 168]")
			return
		}
	}

	step := 30 * time.Second
	if v := q.Get("step_s"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 600 {
			writeError(w, http.StatusBadRequest, "invalid step_s parameter, want 1-600")
			return
		}
		step = time.Duration(n) * time.Second
	}

	minElevation := 0.0
	if v := q.Get("min_elevation"); v != "" {
		minElevation, err = strconv.ParseFloat(v, 64)
		if err != nil || minElevation < 0 || minElevation >= 90 {
			writeError(w, http.StatusBadRequest, "invalid min_elevation, want [0, 90)")
			return
		}
	}

	maxPasses := 10
	if v := q.Get("max_passes"); v != "" {
		maxPasses, err = strconv.Atoi(v)
		if err != nil || maxPasses < 1 || maxPasses > 100 {
			writeError(w, http.StatusBadRequest, "invalid max_passes, want 1-100")
			return
		}
	}

	catnrs := q["catnr"]
	if len(catnrs) == 0 {
		writeError(w, http.StatusBadRequest, "missing catnr parameter")
		return
	}

	var sets []elements.ElementSet
	var missing []passes.Result
	for _, v := range catnrs {
		id, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid catnr: "+v)
			return
		}
		set, ok := s.store.Find(id)
		if !ok {
			missing = append(missing, passes.Result{CatalogID: id, Error: "not in dataset"})
			continue
		}
		sets = append(sets, set)
	}

	results := passes.Predict(r.Context(), passes.Request{
		Observer:     obs,
		Sets:         sets,
		Start:        start,
		End:          start.Add(time.Duration(hours * float64(time.Hour))),
		Step:         step,
		MinElevation: minElevation,
		MaxPasses:    maxPasses,
	})
	results = append(results, missing...)

	writeJSON(w, http.StatusOK, results)
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		p := strings.TrimSpace(part)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
