package http

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestParseRangeExplicitWindow(t *testing.T) {
	r := httptest.NewRequest("GET", "/dashboard/metrics?start=2024-03-01&end=2024-03-31", nil)

	rng, err := parseRange(r)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if rng.Start != time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) {
		t.Errorf("start = %v", rng.Start)
	}
	// End covers the whole last day.
	if !rng.Contains(time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC)) {
		t.Error("window must include the end of the last day")
	}
	if rng.Contains(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Error("window must exclude the next day")
	}
}

func TestParseRangeDefaultsToCurrentMonth(t *testing.T) {
	r := httptest.NewRequest("GET", "/dashboard/metrics", nil)

	rng, err := parseRange(r)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	now := time.Now().UTC()
	if rng.Start.Month() != now.Month() || rng.Start.Day() != 1 {
		t.Errorf("default start = %v, want first of current month", rng.Start)
	}
	if !rng.Contains(now) {
		t.Error("default window must contain now")
	}
}

func TestParseRangeErrors(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"missing end", "?start=2024-03-01"},
		{"malformed start", "?start=03/01/2024&end=2024-03-31"},
		{"reversed", "?start=2024-04-01&end=2024-03-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/dashboard/metrics"+tt.query, nil)
			if _, err := parseRange(r); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
