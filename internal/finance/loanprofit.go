package finance

import (
	"fmt"

	"github.com/shopspring/decimal"

	"chitbook/internal/core"
)

// LoanProfitBreakdown splits accrued loan profit into its interest and
// one-time document-charge portions.
type LoanProfitBreakdown struct {
	Total          decimal.Decimal
	Interest       decimal.Decimal
	DocumentCharge decimal.Decimal
}

// LoanProfit computes profit accrued on a loan, lifetime when rng is nil or
// restricted to repayments paid inside rng otherwise.
//
// Monthly loans earn the flat per-period interest once per repayment,
// whether full or interest-only. Weekly loans carry no separate rate: their
// profit is the excess of total repayments over principal, floored at zero.
// The document charge is attributed to the disbursement instant, so a
// period-scoped result includes it only when disbursement falls inside the
// window.
func LoanProfit(loan core.Loan, repayments []core.Repayment, rng *core.PeriodRange) (LoanProfitBreakdown, error) {
	breakdown := LoanProfitBreakdown{
		Total:          decimal.Zero,
		Interest:       decimal.Zero,
		DocumentCharge: decimal.Zero,
	}
	if !loan.RepaymentType.Valid() {
		return breakdown, fmt.Errorf("loan profit: %w: %q", core.ErrUnknownCadence, loan.RepaymentType)
	}

	if rng == nil || rng.Contains(loan.DisbursementDate) {
		breakdown.DocumentCharge = loan.DocumentCharge
	}

	switch loan.RepaymentType {
	case core.CadenceMonthly:
		count := 0
		for _, rep := range repayments {
			if rng != nil && !rng.Contains(rep.PaidDate) {
				continue
			}
			count++
		}
		breakdown.Interest = loan.InterestRate.Mul(decimal.NewFromInt(int64(count)))
	case core.CadenceWeekly:
		totalPaid := decimal.Zero
		for _, rep := range repayments {
			if rng != nil && !rng.Contains(rep.PaidDate) {
				continue
			}
			totalPaid = totalPaid.Add(rep.Amount)
		}
		if excess := totalPaid.Sub(loan.Amount); excess.IsPositive() {
			breakdown.Interest = excess
		}
	}

	breakdown.Total = breakdown.Interest.Add(breakdown.DocumentCharge)
	return breakdown, nil
}
