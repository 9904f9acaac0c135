package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"chitbook/internal/amqp"
	"chitbook/internal/core"
	"chitbook/internal/services"
)

// ReportWorker turns report requests into exported spreadsheet rows and
// publishes a month-to-date report on a fixed interval.
type ReportWorker struct {
	reports *services.ReportService
}

func NewReportWorker(reports *services.ReportService) *ReportWorker {
	return &ReportWorker{reports: reports}
}

// HandleReportRequest processes a single on-demand report request from AMQP.
func (w *ReportWorker) HandleReportRequest(ctx context.Context, msg *amqp.ReportRequestMessage) error {
	rng, err := core.NewPeriodRange(msg.Start, msg.End)
	if err != nil {
		return fmt.Errorf("report request window: %w", err)
	}

	if _, err := w.reports.ExportReport(ctx, rng); err != nil {
		return fmt.Errorf("export requested report: %w", err)
	}
	return nil
}

// ExportCurrentMonth exports a report covering the calendar month of now.
func (w *ReportWorker) ExportCurrentMonth(ctx context.Context, now time.Time) error {
	rng := core.MonthRange(now.Year(), now.Month())
	if _, err := w.reports.ExportReport(ctx, rng); err != nil {
		return fmt.Errorf("export monthly report: %w", err)
	}
	return nil
}

// RunPeriodic exports the current month's report on every tick until the
// context is cancelled.
func (w *ReportWorker) RunPeriodic(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping periodic report export", "reason", ctx.Err())
			return
		case <-ticker.C:
			if err := w.ExportCurrentMonth(ctx, time.Now().UTC()); err != nil {
				slog.ErrorContext(ctx, "Periodic report export failed", "error", err)
			}
		}
	}
}
