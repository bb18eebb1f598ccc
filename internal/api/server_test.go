package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/skytrack/skytrack/internal/auth"
	"github.com/skytrack/skytrack/internal/cache"
	"github.com/skytrack/skytrack/internal/elements"
	"github.com/skytrack/skytrack/internal/propagation"
	"github.com/skytrack/skytrack/internal/stream"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

var issEpoch = time.Date(2008, 9, 20, 12, 25, 40, 0, time.UTC)

func issEntry() elements.ElementSet {
	return elements.ElementSet{
		CatalogID:      25544,
		Name:           "ISS (ZARYA)",
		Epoch:          issEpoch,
		InclinationDeg: 51.6416,
		RAANDeg:        247.4627,
		Eccentricity:   0.0006703,
		ArgPerigeeDeg:  130.5360,
		MeanAnomalyDeg: 325.0288,
		MeanMotion:     15.72125391,
		Line1:          "1 25544U 98067A   08264.51782528 -.00002182  00000-0 -11606-4 0  2927",
		Line2:          "2 25544  51.6416 247.4627 0006703 130.5360 325.0288 15.72125391563537",
	}
}

// decayedEntry describes an orbit that intersects the Earth, which the
// calculator rejects.
func decayedEntry() elements.ElementSet {
	set := issEntry()
	set.CatalogID = 90001
	set.Name = "DECAYED"
	set.MeanMotion = 16.5
	set.Eccentricity = 0.05
	return set
}

func newTestServer(t *testing.T, authCfg auth.Config, sets ...elements.ElementSet) (*Server, *elements.Store) {
	t.Helper()
	logger := testLogger()
	store := elements.NewStore()
	if len(sets) > 0 {
		store.Set(elements.NewDataset("test", time.Now(), sets))
	}

	tracker := propagation.NewTracker(store, propagation.Config{Workers: 2}, logger)
	derived := cache.New(0, logger)
	streamHdlr := stream.NewHandler(tracker, store, stream.Config{
		MaxConcurrentPerIP: 2,
		KeepaliveInterval:  30 * time.Second,
	}, logger)

	elemCfg := ElementsConfig{
		EnableFetch: false,
		CacheDir:    t.TempDir(),
		MaxFiles:    2,
	}
	return NewServer(":0", logger, authCfg, store, elemCfg, tracker, derived, streamHdlr), store
}

func do(t *testing.T, srv *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	srv.HTTPServer().Handler.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoints(t *testing.T) {
	srv, store := newTestServer(t, auth.Config{})

	if w := do(t, srv, "GET", "/healthz"); w.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", w.Code)
	}

	// Not ready until a dataset is loaded.
	if w := do(t, srv, "GET", "/readyz"); w.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz without data status = %d, want 503", w.Code)
	}

	store.Set(elements.NewDataset("test", time.Now(), []elements.ElementSet{issEntry()}))
	if w := do(t, srv, "GET", "/readyz"); w.Code != http.StatusOK {
		t.Errorf("readyz with data status = %d, want 200", w.Code)
	}
}

func TestElementsMetadata(t *testing.T) {
	srv, _ := newTestServer(t, auth.Config{})
	if w := do(t, srv, "GET", "/api/v1/elements/metadata"); w.Code != http.StatusNotFound {
		t.Errorf("metadata without data status = %d, want 404", w.Code)
	}

	srv, _ = newTestServer(t, auth.Config{}, issEntry())
	w := do(t, srv, "GET", "/api/v1/elements/metadata")
	if w.Code != http.StatusOK {
		t.Fatalf("metadata status = %d, want 200", w.Code)
	}

	var resp map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["source"] != "test" {
		t.Errorf("source = %v, want test", resp["source"])
	}
	if resp["count"] != float64(1) {
		t.Errorf("count = %v, want 1", resp["count"])
	}
}

func TestSatellitesList(t *testing.T) {
	srv, _ := newTestServer(t, auth.Config{}, issEntry(), decayedEntry())

	w := do(t, srv, "GET", "/api/v1/satellites")
	if w.Code != http.StatusOK {
		t.Fatalf("satellites status = %d, want 200", w.Code)
	}

	var list []map[string]any
	if err := json.NewDecoder(w.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d satellites, want 2", len(list))
	}
	if list[0]["catalog_id"] != float64(25544) {
		t.Errorf("catalog_id = %v, want 25544", list[0]["catalog_id"])
	}
}

func TestOrbitEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, auth.Config{}, issEntry(), decayedEntry())

	w := do(t, srv, "GET", "/api/v1/orbit/25544")
	if w.Code != http.StatusOK {
		t.Fatalf("orbit status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var resp map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	period, _ := resp["period_minutes"].(float64)
	if period < 91 || period > 93 {
		t.Errorf("period_minutes = %v, want ~91.6", resp["period_minutes"])
	}
	if resp["class"] != "LEO" {
		t.Errorf("class = %v, want LEO", resp["class"])
	}
	if _, ok := resp["ground_trace_shift_deg"]; !ok {
		t.Error("missing ground_trace_shift_deg")
	}

	cases := []struct {
		target     string
		wantStatus int
	}{
		{"/api/v1/orbit/99999", http.StatusNotFound},
		{"/api/v1/orbit/abc", http.StatusBadRequest},
		{"/api/v1/orbit/25544?min_elevation=95", http.StatusBadRequest},
		{"/api/v1/orbit/90001", http.StatusUnprocessableEntity},
		{"/api/v1/orbit/25544?min_elevation=10", http.StatusOK},
	}
	for _, tc := range cases {
		if w := do(t, srv, "GET", tc.target); w.Code != tc.wantStatus {
			t.Errorf("GET %s status = %d, want %d", tc.target, w.Code, tc.wantStatus)
		}
	}
}

func TestCompareEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, auth.Config{}, issEntry())

	if w := do(t, srv, "GET", "/api/v1/compare"); w.Code != http.StatusBadRequest {
		t.Errorf("compare without ids status = %d, want 400", w.Code)
	}

	w := do(t, srv, "GET", "/api/v1/compare?ids=25544,424242")
	if w.Code != http.StatusOK {
		t.Fatalf("compare status = %d, want 200", w.Code)
	}

	var list []map[string]any
	if err := json.NewDecoder(w.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d entries, want 2", len(list))
	}
	if list[0]["error"] != nil {
		t.Errorf("known satellite has error: %v", list[0]["error"])
	}
	if list[1]["error"] == nil {
		t.Error("unknown satellite should carry an error entry")
	}
}

func TestPositionsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, auth.Config{}, issEntry())

	// Near the element epoch so SGP4 stays accurate.
	w := do(t, srv, "GET", "/api/v1/positions?at=2008-09-20T13:00:00Z")
	if w.Code != http.StatusOK {
		t.Fatalf("positions status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var snap propagation.Snapshot
	if err := json.NewDecoder(w.Body).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(snap.Satellites) != 1 {
		t.Fatalf("got %d satellites, want 1", len(snap.Satellites))
	}
	sv := snap.Satellites[0]
	if sv.AltitudeKm < 300 || sv.AltitudeKm > 450 {
		t.Errorf("altitude = %.1f km, want LEO range", sv.AltitudeKm)
	}

	if w := do(t, srv, "GET", "/api/v1/positions?at=notatime"); w.Code != http.StatusBadRequest {
		t.Errorf("bad at parameter status = %d, want 400", w.Code)
	}
}

func TestPassesEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, auth.Config{}, issEntry())

	cases := []struct {
		name       string
		query      string
		wantStatus int
	}{
		{"missing lat", "?catnr=25544&lon=29.0", http.StatusBadRequest},
		{"missing catnr", "?lat=41.0&lon=29.0", http.StatusBadRequest},
		{"bad lat", "?catnr=25544&lat=99&lon=29.0", http.StatusBadRequest},
		{"bad hours", "?catnr=25544&lat=41.0&lon=29.0&hours=9000", http.StatusBadRequest},
		{"bad step", "?catnr=25544&lat=41.0&lon=29.0&step_s=0", http.StatusBadRequest},
		{"valid", "?catnr=25544&lat=41.0&lon=29.0&start=2008-09-20T12:30:00Z&hours=24&min_elevation=5", http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, srv, "GET", "/api/v1/passes"+tc.query)
			if w.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d: %s", w.Code, tc.wantStatus, w.Body.String())
			}
		})
	}

	w := do(t, srv, "GET", "/api/v1/passes?catnr=25544&catnr=424242&lat=41.0&lon=29.0&start=2008-09-20T12:30:00Z&hours=24&min_elevation=5")
	if w.Code != http.StatusOK {
		t.Fatalf("passes status = %d: %s", w.Code, w.Body.String())
	}
	var results []map[string]any
	if err := json.NewDecoder(w.Body).Decode(&results); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	// Satellites not in the dataset are reported per-result, not as a
	// request failure.
	var foundMissing bool
	for _, res := range results {
		if res["catalog_id"] == float64(424242) && res["error"] != nil {
			foundMissing = true
		}
	}
	if !foundMissing {
		t.Error("missing satellite not reported in results")
	}
}

func TestRefreshDisabled(t *testing.T) {
	srv, _ := newTestServer(t, auth.Config{}, issEntry())
	if w := do(t, srv, "POST", "/api/v1/elements/refresh"); w.Code != http.StatusForbidden {
		t.Errorf("refresh while disabled status = %d, want 403", w.Code)
	}
}

func TestRefreshFromSource(t *testing.T) {
	const body = `ISS (ZARYA)
1 25544U 98067A   08264.51782528 -.00002182  00000-0 -11606-4 0  2927
2 25544  51.6416 247.4627 0006703 130.5360 325.0288 15.72125391563537
`
	source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, body)
	}))
	defer source.Close()

	logger := testLogger()
	store := elements.NewStore()
	tracker := propagation.NewTracker(store, propagation.Config{Workers: 2}, logger)
	derived := cache.New(0, logger)
	streamHdlr := stream.NewHandler(tracker, store, stream.Config{MaxConcurrentPerIP: 2, KeepaliveInterval: 30 * time.Second}, logger)

	srv := NewServer(":0", logger, auth.Config{}, store, ElementsConfig{
		EnableFetch: true,
		SourceURL:   source.URL,
		CacheDir:    t.TempDir(),
		MaxFiles:    2,
	}, tracker, derived, streamHdlr)

	w := do(t, srv, "POST", "/api/v1/elements/refresh")
	if w.Code != http.StatusOK {
		t.Fatalf("refresh status = %d: %s", w.Code, w.Body.String())
	}

	ds := store.Get()
	if ds == nil || len(ds.Satellites) != 1 {
		t.Fatal("dataset not installed after refresh")
	}
	if ds.Source != source.URL {
		t.Errorf("dataset source = %q, want %q", ds.Source, source.URL)
	}
}

func TestAuthMiddleware(t *testing.T) {
	srv, _ := newTestServer(t, auth.Config{Enabled: true, Token: "secret"}, issEntry())

	// Probes stay reachable without a token.
	if w := do(t, srv, "GET", "/healthz"); w.Code != http.StatusOK {
		t.Errorf("healthz with auth enabled status = %d, want 200", w.Code)
	}

	if w := do(t, srv, "GET", "/api/v1/satellites"); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated request status = %d, want 401", w.Code)
	}

	req := httptest.NewRequest("GET", "/api/v1/satellites", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w := httptest.NewRecorder()
	srv.HTTPServer().Handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("authenticated request status = %d, want 200", w.Code)
	}
}
