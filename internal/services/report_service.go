package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"chitbook/internal/core"
	"chitbook/internal/finance"
	"chitbook/internal/sheets"
)

// AccountSource loads every loan and chit fund with their transaction facts.
type AccountSource interface {
	LoanAccounts(ctx context.Context) ([]finance.LoanAccount, error)
	ChitFundAccounts(ctx context.Context) ([]finance.ChitFundAccount, error)
}

// ReportPublisher queues a report request for asynchronous processing.
type ReportPublisher interface {
	PublishReportRequest(ctx context.Context, start, end time.Time) error
}

// ReportService builds period reports from stored facts and exports finished
// reports through a sheet writer.
type ReportService struct {
	source    AccountSource
	writer    sheets.ReportWriter
	publisher ReportPublisher
}

func NewReportService(source AccountSource, writer sheets.ReportWriter, publisher ReportPublisher) *ReportService {
	return &ReportService{
		source:    source,
		writer:    writer,
		publisher: publisher,
	}
}

// BuildReport aggregates every product's transactions inside the window.
func (s *ReportService) BuildReport(ctx context.Context, rng core.PeriodRange) (core.PeriodReport, error) {
	var (
		loans []finance.LoanAccount
		funds []finance.ChitFundAccount
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		loans, err = s.source.LoanAccounts(gctx)
		if err != nil {
			return fmt.Errorf("load loan accounts: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		funds, err = s.source.ChitFundAccounts(gctx)
		if err != nil {
			return fmt.Errorf("load chit fund accounts: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return core.PeriodReport{}, err
	}

	metrics, err := finance.Aggregate(loans, funds, rng)
	if err != nil {
		return core.PeriodReport{}, fmt.Errorf("aggregate period: %w", err)
	}

	return core.PeriodReport{
		Range:       rng,
		Metrics:     metrics,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// ExportReport builds the report and appends it through the sheet writer.
func (s *ReportService) ExportReport(ctx context.Context, rng core.PeriodRange) (core.PeriodReport, error) {
	report, err := s.BuildReport(ctx, rng)
	if err != nil {
		return core.PeriodReport{}, err
	}

	rowRef, err := s.writer.AppendReport(ctx, report)
	if err != nil {
		return core.PeriodReport{}, fmt.Errorf("export report: %w", err)
	}

	slog.InfoContext(ctx, "Period report exported",
		"start", rng.Start,
		"end", rng.End,
		"row", rowRef,
		"total_profit", report.Metrics.TotalProfit)
	return report, nil
}

// RequestReport queues an asynchronous report for the window. Falls back to
// synchronous export when no publisher is configured.
func (s *ReportService) RequestReport(ctx context.Context, start, end time.Time) error {
	rng, err := core.NewPeriodRange(start, end)
	if err != nil {
		return fmt.Errorf("report window: %w", err)
	}

	if s.publisher == nil {
		slog.WarnContext(ctx, "Report publisher not available, exporting synchronously")
		_, err := s.ExportReport(ctx, rng)
		return err
	}
	return s.publisher.PublishReportRequest(ctx, rng.Start, rng.End)
}
