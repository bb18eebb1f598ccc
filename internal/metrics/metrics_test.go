package metrics

import "testing"

func TestNormalizeRoute(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		// Known exact routes.
		{"/healthz", "/healthz"},
		{"/readyz", "/readyz"},
		{"/metrics", "/metrics"},
		{"/", "/"},
		{"/api/v1/elements/metadata", "/api/v1/elements/metadata"},
		{"/api/v1/elements/refresh", "/api/v1/elements/refresh"},
		{"/api/v1/satellites", "/api/v1/satellites"},
		{"/api/v1/positions", "/api/v1/positions"},
		{"/api/v1/compare", "/api/v1/compare"},
		{"/api/v1/passes", "/api/v1/passes"},
		{"/api/v1/stream/positions", "/api/v1/stream/positions"},

		// Parameterized orbit routes collapse to one label.
		{"/api/v1/orbit/25544", "/api/v1/orbit/{catnr}"},
		{"/api/v1/orbit/44713", "/api/v1/orbit/{catnr}"},
		{"/api/v1/orbit/1", "/api/v1/orbit/{catnr}"},

		// Unknown/bot paths collapse to "other".
		{"/wp-admin", "other"},
		{"/robots.txt", "other"},
		{"/.env", "other"},
		{"/api/v2/something", "other"},
		{"/favicon.ico", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := normalizeRoute(tt.path)
			if got != tt.want {
				t.Errorf("normalizeRoute(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

// TestMetricsCardinality verifies that many distinct catalog numbers produce
// exactly one path label.
func TestMetricsCardinality(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		label := normalizeRoute("/api/v1/orbit/" + string(rune('0'+i%10)) + string(rune('0'+i/10)))
		seen[label] = true
	}
	if len(seen) != 1 {
		t.Errorf("expected 1 unique label for parameterized paths, got %d: %v", len(seen), seen)
	}
}
