package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"chitbook/internal/core"
	"chitbook/internal/storage"
)

func newLoanService(t *testing.T) *LoanService {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "chitbook.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	// No broker in tests, publishing degrades to a logged warning.
	svc := NewLoanService(repo, nil)
	t.Cleanup(func() { svc.Close() })
	return svc
}

func TestLoanServiceLifecycle(t *testing.T) {
	svc := newLoanService(t)
	ctx := context.Background()

	loan := core.Loan{
		ID:               uuid.New(),
		Amount:           decimal.NewFromInt(100000),
		InterestRate:     decimal.NewFromInt(1000),
		DocumentCharge:   decimal.NewFromInt(500),
		RepaymentType:    core.CadenceMonthly,
		DisbursementDate: time.Now().UTC().AddDate(0, -2, 0),
		Duration:         10,
		RemainingAmount:  decimal.NewFromInt(100000),
		Status:           core.LoanPending,
	}

	created, err := svc.CreateLoan(ctx, loan)
	if err != nil {
		t.Fatalf("create loan: %v", err)
	}
	if created.MissedPeriods != 2 {
		t.Fatalf("missed periods = %d, want 2 after two unpaid months", created.MissedPeriods)
	}

	rep := core.Repayment{
		ID:          uuid.New(),
		LoanID:      loan.ID,
		Amount:      decimal.NewFromInt(11000),
		PaidDate:    time.Now().UTC().AddDate(0, -1, 0),
		PaymentType: core.PaymentFull,
		Period:      1,
	}
	updated, err := svc.RecordRepayment(ctx, rep)
	if err != nil {
		t.Fatalf("record repayment: %v", err)
	}
	if updated.MissedPeriods != 1 {
		t.Fatalf("missed periods = %d, want 1 after paying period 1", updated.MissedPeriods)
	}
	if want := decimal.NewFromInt(90000); !updated.RemainingAmount.Equal(want) {
		t.Fatalf("remaining = %s, want %s", updated.RemainingAmount, want)
	}

	reverted, err := svc.DeleteRepayment(ctx, rep.ID)
	if err != nil {
		t.Fatalf("delete repayment: %v", err)
	}
	if reverted.MissedPeriods != created.MissedPeriods {
		t.Fatalf("missed periods = %d, want %d after delete", reverted.MissedPeriods, created.MissedPeriods)
	}

	reps, err := svc.ListRepayments(ctx, loan.ID)
	if err != nil {
		t.Fatalf("list repayments: %v", err)
	}
	if len(reps) != 0 {
		t.Fatalf("repayments = %d, want 0 after delete", len(reps))
	}
}

func TestLoanServiceRejectsInvalidLoan(t *testing.T) {
	svc := newLoanService(t)

	loan := core.Loan{
		ID:               uuid.New(),
		Amount:           decimal.NewFromInt(-5),
		RepaymentType:    core.CadenceMonthly,
		DisbursementDate: time.Now().UTC(),
		Duration:         10,
	}
	if _, err := svc.CreateLoan(context.Background(), loan); err == nil {
		t.Fatal("expected validation error for negative amount")
	}
}
