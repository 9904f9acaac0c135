package http

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"chitbook/internal/core"
)

type contextKey string

const requestIDKey contextKey = "request_id"

const dateLayout = "2006-01-02"

// parseRange extracts an inclusive date window from start/end query
// parameters. Defaults to the current calendar month when absent.
func parseRange(r *http.Request) (core.PeriodRange, error) {
	startStr := strings.TrimSpace(r.URL.Query().Get("start"))
	endStr := strings.TrimSpace(r.URL.Query().Get("end"))

	if startStr == "" && endStr == "" {
		now := time.Now().UTC()
		return core.MonthRange(now.Year(), now.Month()), nil
	}

	start, err := time.Parse(dateLayout, startStr)
	if err != nil {
		return core.PeriodRange{}, fmt.Errorf("invalid start date %q: want YYYY-MM-DD", startStr)
	}
	end, err := time.Parse(dateLayout, endStr)
	if err != nil {
		return core.PeriodRange{}, fmt.Errorf("invalid end date %q: want YYYY-MM-DD", endStr)
	}

	// End is inclusive through the whole day.
	end = end.Add(24*time.Hour - time.Nanosecond)
	return core.NewPeriodRange(start, end)
}

// parseDate parses a date string in YYYY-MM-DD format.
func parseDate(dateStr string) (time.Time, error) {
	return time.Parse(dateLayout, strings.TrimSpace(dateStr))
}

// pathUUID parses the {id} path segment.
func pathUUID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id %q: %w", r.PathValue("id"), err)
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}
