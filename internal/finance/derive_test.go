package finance

import (
	"testing"
	"time"

	"chitbook/internal/core"
)

func TestRefreshDerived(t *testing.T) {
	loan := monthlyLoan()
	loan.Status = core.LoanPending
	now := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	reps := []core.Repayment{
		fullRepayment(loan, 1, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), 11000),
	}

	got, err := RefreshDerived(loan, reps, now)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if got.Status != core.LoanActive {
		t.Fatalf("status = %s, want active after first repayment", got.Status)
	}
	if got.MissedPeriods != 2 {
		t.Fatalf("missed periods = %d, want 2", got.MissedPeriods)
	}
	if got.RemainingAmount.String() != "90000" {
		t.Fatalf("remaining = %s, want 90000", got.RemainingAmount)
	}
	if got.NextPaymentDate == nil || !got.NextPaymentDate.Equal(now.AddDate(0, 1, 0)) {
		t.Fatalf("next payment date = %v, want one month from now", got.NextPaymentDate)
	}
}

func TestRefreshDerivedCompletesLoan(t *testing.T) {
	loan := monthlyLoan()
	now := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	var reps []core.Repayment
	for p := 1; p <= loan.Duration; p++ {
		reps = append(reps, fullRepayment(loan, p, loan.DisbursementDate.AddDate(0, p, 0), 11000))
	}

	got, err := RefreshDerived(loan, reps, now)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if got.Status != core.LoanCompleted {
		t.Fatalf("status = %s, want completed at zero balance", got.Status)
	}
	if !got.RemainingAmount.IsZero() {
		t.Fatalf("remaining = %s, want 0", got.RemainingAmount)
	}
	if got.NextPaymentDate != nil {
		t.Fatalf("next payment date = %v, want nil once settled", got.NextPaymentDate)
	}
}
