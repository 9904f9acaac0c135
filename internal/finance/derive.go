package finance

import (
	"time"

	"github.com/shopspring/decimal"

	"chitbook/internal/core"
)

// RefreshDerived returns a copy of the loan with every derived field
// recomputed from the current repayment set: overdue amount, missed periods,
// remaining principal, lifecycle status and the next payment date. The
// persistence layer calls this inside the same transaction as any repayment
// mutation so the stored fields never drift from the underlying facts.
func RefreshDerived(loan core.Loan, repayments []core.Repayment, now time.Time) (core.Loan, error) {
	schedule, err := ComputeOverdue(loan, repayments, now)
	if err != nil {
		return loan, err
	}
	loan.OverdueAmount = schedule.OverdueAmount
	loan.MissedPeriods = schedule.MissedPeriods

	loan.RemainingAmount = RemainingPrincipal(loan, repayments)
	switch {
	case !loan.RemainingAmount.IsPositive():
		loan.RemainingAmount = decimal.Zero
		loan.Status = core.LoanCompleted
	case loan.Status == core.LoanPending && len(repayments) > 0:
		loan.Status = core.LoanActive
	}

	next, err := NextPaymentDate(loan, now)
	if err != nil {
		return loan, err
	}
	loan.NextPaymentDate = next
	loan.UpdatedAt = now
	return loan, nil
}
