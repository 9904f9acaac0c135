package finance

import (
	"github.com/shopspring/decimal"

	"chitbook/internal/core"
)

// LoanAccount bundles a loan with its already-fetched repayment facts. The
// aggregator has zero knowledge of how the records were obtained.
type LoanAccount struct {
	Loan       core.Loan
	Repayments []core.Repayment
}

// ChitFundAccount bundles a chit fund with its contributions and auctions.
type ChitFundAccount struct {
	Fund          core.ChitFund
	Contributions []core.Contribution
	Auctions      []core.Auction
}

// Aggregate produces one consolidated FinancialMetrics snapshot for the
// given window. Cash inflow sums repayments and contributions paid inside
// the range, cash outflow sums loan disbursements and auction payouts dated
// inside it, and the outside amount is the unmatched outflow computed per
// product; loan exposure and chit-fund exposure are never netted against
// each other.
func Aggregate(loans []LoanAccount, funds []ChitFundAccount, rng core.PeriodRange) (core.FinancialMetrics, error) {
	metrics := core.FinancialMetrics{
		CashInflow:     decimal.Zero,
		CashOutflow:    decimal.Zero,
		NetFlow:        decimal.Zero,
		LoanProfit:     decimal.Zero,
		ChitFundProfit: decimal.Zero,
		TotalProfit:    decimal.Zero,
		OutsideAmount:  decimal.Zero,
	}

	repaymentIn := decimal.Zero
	loanOut := decimal.Zero
	contributionIn := decimal.Zero
	auctionOut := decimal.Zero

	for _, acct := range loans {
		for _, rep := range acct.Repayments {
			if !rng.Contains(rep.PaidDate) {
				continue
			}
			repaymentIn = repaymentIn.Add(rep.Amount)
			metrics.Counts.Repayments++
		}
		if rng.Contains(acct.Loan.DisbursementDate) {
			loanOut = loanOut.Add(acct.Loan.Amount)
			metrics.Counts.Disbursements++
		}
		profit, err := LoanProfit(acct.Loan, acct.Repayments, &rng)
		if err != nil {
			return metrics, err
		}
		metrics.LoanProfit = metrics.LoanProfit.Add(profit.Total)
	}

	for _, acct := range funds {
		for _, c := range acct.Contributions {
			if !rng.Contains(c.PaidDate) {
				continue
			}
			contributionIn = contributionIn.Add(c.Amount)
			metrics.Counts.Contributions++
		}
		for _, a := range acct.Auctions {
			if !rng.Contains(a.Date) {
				continue
			}
			auctionOut = auctionOut.Add(a.Amount)
			metrics.Counts.Auctions++
		}
		profit, err := ChitFundProfit(acct.Fund, acct.Contributions, acct.Auctions, &rng, acct.Fund.CurrentPeriod)
		if err != nil {
			return metrics, err
		}
		metrics.ChitFundProfit = metrics.ChitFundProfit.Add(profit)
	}

	metrics.CashInflow = repaymentIn.Add(contributionIn)
	metrics.CashOutflow = loanOut.Add(auctionOut)
	metrics.NetFlow = metrics.CashInflow.Sub(metrics.CashOutflow)
	metrics.TotalProfit = metrics.LoanProfit.Add(metrics.ChitFundProfit)
	metrics.OutsideAmount = positiveOrZero(loanOut.Sub(repaymentIn)).
		Add(positiveOrZero(auctionOut.Sub(contributionIn)))
	metrics.Counts.Total = metrics.Counts.Repayments + metrics.Counts.Contributions +
		metrics.Counts.Disbursements + metrics.Counts.Auctions

	return metrics, nil
}

func positiveOrZero(d decimal.Decimal) decimal.Decimal {
	if d.IsPositive() {
		return d
	}
	return decimal.Zero
}
