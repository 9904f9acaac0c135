package worker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"chitbook/internal/amqp"
	"chitbook/internal/core"
	"chitbook/internal/storage"
)

func newTestRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "chitbook.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedLoan(t *testing.T, repo *storage.SQLiteRepository, monthsAgo int) core.Loan {
	t.Helper()
	loan := core.Loan{
		ID:               uuid.New(),
		Amount:           decimal.NewFromInt(100000),
		InterestRate:     decimal.NewFromInt(1000),
		DocumentCharge:   decimal.NewFromInt(500),
		RepaymentType:    core.CadenceMonthly,
		DisbursementDate: time.Now().UTC().AddDate(0, -monthsAgo, 0),
		Duration:         10,
		RemainingAmount:  decimal.NewFromInt(100000),
		Status:           core.LoanActive,
	}
	if err := repo.CreateLoan(context.Background(), loan); err != nil {
		t.Fatalf("create loan: %v", err)
	}
	return loan
}

func TestHandleRecomputeMessage(t *testing.T) {
	repo := newTestRepo(t)
	w := NewRecomputeWorker(repo, 10)
	ctx := context.Background()

	loan := seedLoan(t, repo, 2)

	msg := amqp.NewLoanRecomputeMessage(loan.ID, 1)
	if err := w.HandleRecomputeMessage(ctx, msg); err != nil {
		t.Fatalf("handle recompute: %v", err)
	}

	got, err := repo.GetLoan(ctx, loan.ID)
	if err != nil {
		t.Fatalf("get loan: %v", err)
	}
	if got.MissedPeriods != 2 {
		t.Fatalf("missed periods = %d, want 2 after two unpaid months", got.MissedPeriods)
	}
	if want := decimal.NewFromInt(22000); !got.OverdueAmount.Equal(want) {
		t.Fatalf("overdue = %s, want %s", got.OverdueAmount, want)
	}
}

func TestHandleRecomputeMessageUnknownLoan(t *testing.T) {
	repo := newTestRepo(t)
	w := NewRecomputeWorker(repo, 10)

	msg := amqp.NewLoanRecomputeMessage(uuid.New(), 1)
	if err := w.HandleRecomputeMessage(context.Background(), msg); err == nil {
		t.Fatal("expected error for unknown loan")
	}
}

func TestSweepOpenLoans(t *testing.T) {
	repo := newTestRepo(t)
	w := NewRecomputeWorker(repo, 10)
	ctx := context.Background()

	first := seedLoan(t, repo, 1)
	second := seedLoan(t, repo, 3)

	if err := w.SweepOpenLoans(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	got, err := repo.GetLoan(ctx, first.ID)
	if err != nil {
		t.Fatalf("get loan: %v", err)
	}
	if got.MissedPeriods != 1 {
		t.Fatalf("first loan missed periods = %d, want 1", got.MissedPeriods)
	}

	got, err = repo.GetLoan(ctx, second.ID)
	if err != nil {
		t.Fatalf("get loan: %v", err)
	}
	if got.MissedPeriods != 3 {
		t.Fatalf("second loan missed periods = %d, want 3", got.MissedPeriods)
	}
}
