package worker

import (
	"context"
	"fmt"
	"log/slog"

	"chitbook/internal/amqp"
	"chitbook/internal/core"
	"chitbook/internal/storage"
)

// RecomputeWorker keeps loan derived fields fresh. It consumes recompute
// messages and periodically sweeps every open loan as a backup in case
// messages are lost.
type RecomputeWorker struct {
	storage   *storage.SQLiteRepository
	batchSize int
}

func NewRecomputeWorker(storage *storage.SQLiteRepository, batchSize int) *RecomputeWorker {
	return &RecomputeWorker{
		storage:   storage,
		batchSize: batchSize,
	}
}

// HandleRecomputeMessage processes a single loan recompute message from AMQP.
func (w *RecomputeWorker) HandleRecomputeMessage(ctx context.Context, msg *amqp.LoanRecomputeMessage) error {
	slog.InfoContext(ctx, "Processing recompute message",
		"loan_id", msg.LoanID,
		"version", msg.Version)

	loan, err := w.storage.RecomputeLoan(ctx, msg.LoanID)
	if err != nil {
		return fmt.Errorf("recompute loan %s: %w", msg.LoanID, err)
	}

	slog.InfoContext(ctx, "Loan recomputed",
		"loan_id", loan.ID,
		"status", loan.Status,
		"overdue", loan.OverdueAmount,
		"missed_periods", loan.MissedPeriods)
	return nil
}

// SweepOpenLoans recomputes every loan that is not completed. Elapsed-period
// counts move with the clock, so overdue state drifts even without new
// repayments.
func (w *RecomputeWorker) SweepOpenLoans(ctx context.Context) error {
	loans, err := w.storage.ListLoans(ctx)
	if err != nil {
		return fmt.Errorf("list loans for sweep: %w", err)
	}

	swept := 0
	errored := 0
	for _, loan := range loans {
		if loan.Status == core.LoanCompleted {
			continue
		}
		if w.batchSize > 0 && swept >= w.batchSize {
			break
		}
		if _, err := w.storage.RecomputeLoan(ctx, loan.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to recompute loan during sweep",
				"loan_id", loan.ID, "error", err)
			errored++
			continue
		}
		swept++
	}

	if swept > 0 || errored > 0 {
		slog.InfoContext(ctx, "Loan sweep completed",
			"recomputed", swept,
			"errors", errored)
	}
	return nil
}

// StartupCheck recomputes all open loans once at worker startup to recover
// from downtime or missed messages.
func (w *RecomputeWorker) StartupCheck(ctx context.Context) error {
	slog.InfoContext(ctx, "Performing startup loan recompute check")
	return w.SweepOpenLoans(ctx)
}
