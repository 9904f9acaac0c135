// Package finance implements the computation core: the repayment schedule
// tracker, the loan and chit-fund profit calculators and the period
// aggregator. Every function here is pure: it reads its arguments, allocates
// a fresh result and performs no I/O, so concurrent callers need no locking.
// Callers that mutate repayment, contribution or auction records
// must re-invoke the tracker in the same unit of work and persist the derived
// loan fields themselves.
package finance

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"chitbook/internal/core"
)

// ScheduleStatus is the schedule tracker's verdict for one loan at one
// evaluation instant.
type ScheduleStatus struct {
	OverdueAmount decimal.Decimal
	MissedPeriods int
}

// ComputeOverdue walks the loan's elapsed periods and accumulates what should
// have been paid but was not. A full repayment satisfies its period, an
// interest-only repayment leaves the principal portion outstanding, and a
// period with no repayment at all is overdue for one whole instalment.
// Completed loans and loans with no elapsed periods report zero.
func ComputeOverdue(loan core.Loan, repayments []core.Repayment, asOf time.Time) (ScheduleStatus, error) {
	zero := ScheduleStatus{OverdueAmount: decimal.Zero}
	if !loan.RepaymentType.Valid() {
		return zero, fmt.Errorf("compute overdue: %w: %q", core.ErrUnknownCadence, loan.RepaymentType)
	}
	if loan.Status == core.LoanCompleted {
		return zero, nil
	}

	expected := elapsedPeriods(loan.RepaymentType, loan.DisbursementDate, asOf)
	if expected > loan.Duration {
		// No overdue accrues beyond the contracted duration.
		expected = loan.Duration
	}
	if expected <= 0 {
		return zero, nil
	}

	paid := dedupeByPeriod(loan, repayments)
	principal := principalPerPeriod(loan)
	instalment := instalmentAmount(loan)

	status := zero
	for period := 1; period <= expected; period++ {
		rep, ok := paid[period]
		switch {
		case !ok:
			status.OverdueAmount = status.OverdueAmount.Add(instalment)
			status.MissedPeriods++
		case rep.PaymentType == core.PaymentInterestOnly:
			status.OverdueAmount = status.OverdueAmount.Add(principal)
			status.MissedPeriods++
		}
	}
	return status, nil
}

// NextPaymentDate returns a forward-looking placeholder due date: one cadence
// unit after now while the loan still carries a balance, nil once the balance
// reaches zero.
func NextPaymentDate(loan core.Loan, now time.Time) (*time.Time, error) {
	if !loan.RepaymentType.Valid() {
		return nil, fmt.Errorf("next payment date: %w: %q", core.ErrUnknownCadence, loan.RepaymentType)
	}
	if !loan.RemainingAmount.IsPositive() {
		return nil, nil
	}
	var next time.Time
	if loan.RepaymentType == core.CadenceWeekly {
		next = now.AddDate(0, 0, 7)
	} else {
		next = now.AddDate(0, 1, 0)
	}
	return &next, nil
}

// RemainingPrincipal derives the outstanding principal from the repayment
// set: each period settled by a full repayment retires one principal slice,
// interest-only payments retire nothing. The result never goes below zero.
// Recomputing this after a repayment is deleted restores consistency of the
// loan's persisted balance.
func RemainingPrincipal(loan core.Loan, repayments []core.Repayment) decimal.Decimal {
	slice := principalPerPeriod(loan)
	retired := decimal.Zero
	for _, rep := range dedupeByPeriod(loan, repayments) {
		if rep.PaymentType == core.PaymentFull {
			retired = retired.Add(slice)
		}
	}
	remaining := loan.Amount.Sub(retired)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// elapsedPeriods counts whole periods between disbursement and asOf. Monthly
// periods are reached once the calendar day-of-month recurs; weekly periods
// are plain 7-day buckets.
func elapsedPeriods(cadence core.RepaymentCadence, disbursed, asOf time.Time) int {
	if !asOf.After(disbursed) {
		return 0
	}
	if cadence == core.CadenceWeekly {
		return int(asOf.Sub(disbursed).Hours() / (24 * 7))
	}
	months := (asOf.Year()-disbursed.Year())*12 + int(asOf.Month()) - int(disbursed.Month())
	if asOf.Day() < disbursed.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

// principalPerPeriod is the principal slice owed each period. Weekly loans
// spread principal over duration-1 periods because the first period is
// interest-only by convention.
func principalPerPeriod(loan core.Loan) decimal.Decimal {
	parts := int64(loan.Duration)
	if loan.RepaymentType == core.CadenceWeekly {
		parts = int64(loan.Duration - 1)
	}
	if parts <= 0 {
		return decimal.Zero
	}
	return loan.Amount.Div(decimal.NewFromInt(parts))
}

// instalmentAmount is the full amount expected for one period.
func instalmentAmount(loan core.Loan) decimal.Decimal {
	principal := principalPerPeriod(loan)
	if loan.RepaymentType == core.CadenceMonthly {
		return principal.Add(loan.InterestRate)
	}
	return principal
}

// dedupeByPeriod keeps the most recently paid repayment per period
// (last-write-wins by paid instant). Weekly repayments recorded without an
// explicit period get one derived from whole weeks elapsed since
// disbursement.
func dedupeByPeriod(loan core.Loan, repayments []core.Repayment) map[int]core.Repayment {
	out := make(map[int]core.Repayment, len(repayments))
	for _, rep := range repayments {
		period := rep.Period
		if period <= 0 {
			if loan.RepaymentType != core.CadenceWeekly {
				continue
			}
			period = weeklyPeriodOf(loan, rep.PaidDate)
		}
		existing, ok := out[period]
		if !ok || !rep.PaidDate.Before(existing.PaidDate) {
			rep.Period = period
			out[period] = rep
		}
	}
	return out
}

// weeklyPeriodOf maps a paid instant onto its 1-based weekly instalment.
func weeklyPeriodOf(loan core.Loan, paid time.Time) int {
	if paid.Before(loan.DisbursementDate) {
		return 1
	}
	return int(paid.Sub(loan.DisbursementDate).Hours()/(24*7)) + 1
}
