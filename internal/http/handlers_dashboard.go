package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// handleDashboardMetrics returns aggregated metrics for a date window.
// Windows are cached briefly, any mutation drops the whole cache.
func (s *Server) handleDashboardMetrics(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := rng.Start.Format(dateLayout) + "|" + rng.End.Format(dateLayout)
	if metrics, ok := s.metricsCache.Get(key); ok {
		writeJSON(w, http.StatusOK, map[string]any{
			"start":   rng.Start,
			"end":     rng.End,
			"metrics": metrics,
			"cached":  true,
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	report, err := s.reports.BuildReport(ctx, rng)
	if err != nil {
		slog.ErrorContext(ctx, "Dashboard aggregation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to aggregate period")
		return
	}

	s.metricsCache.Set(key, report.Metrics)
	writeJSON(w, http.StatusOK, map[string]any{
		"start":   rng.Start,
		"end":     rng.End,
		"metrics": report.Metrics,
		"cached":  false,
	})
}

// handleRequestReport queues an asynchronous period report export.
func (s *Server) handleRequestReport(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.reports.RequestReport(r.Context(), rng.Start, rng.End); err != nil {
		slog.ErrorContext(r.Context(), "Report request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to request report")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"start": rng.Start,
		"end":   rng.End,
	})
}
