package finance

import (
	"fmt"

	"github.com/shopspring/decimal"

	"chitbook/internal/core"
)

// ChitFundProfit computes the profit accrued by one chit fund, optionally
// restricted to auctions and contributions dated inside rng. asOfPeriod
// bounds the fixed variant's distributed profit; when it is zero or negative
// the fund's current period is used.
//
// Auction variant: each auction contributes the positive margin between the
// collected pot (monthly contribution × member count) and its payout. Funds
// administered without per-auction margins fall back to the positive net of
// contributions over auction payouts in the same window.
//
// Fixed variant: each auction's margin is computed with the first period
// sized at firstMonthContribution + monthly×(members−1), distributed evenly
// across the fund duration and reported up to asOfPeriod, floored at zero.
func ChitFundProfit(fund core.ChitFund, contributions []core.Contribution, auctions []core.Auction, rng *core.PeriodRange, asOfPeriod int) (decimal.Decimal, error) {
	switch fund.ChitFundType {
	case core.VariantAuction:
		return auctionVariantProfit(fund, contributions, auctions, rng), nil
	case core.VariantFixed:
		return fixedVariantProfit(fund, auctions, rng, asOfPeriod), nil
	default:
		return decimal.Zero, fmt.Errorf("chit fund profit: %w: %q", core.ErrUnknownFundVariant, fund.ChitFundType)
	}
}

// ChitFundProfitToDate restricts both record sets to periods at or before
// the fund's current period before computing profit.
func ChitFundProfitToDate(fund core.ChitFund, contributions []core.Contribution, auctions []core.Auction) (decimal.Decimal, error) {
	upTo := fund.CurrentPeriod
	cs := make([]core.Contribution, 0, len(contributions))
	for _, c := range contributions {
		if c.Period <= upTo {
			cs = append(cs, c)
		}
	}
	as := make([]core.Auction, 0, len(auctions))
	for _, a := range auctions {
		if a.Period <= upTo {
			as = append(as, a)
		}
	}
	return ChitFundProfit(fund, cs, as, nil, upTo)
}

func auctionVariantProfit(fund core.ChitFund, contributions []core.Contribution, auctions []core.Auction, rng *core.PeriodRange) decimal.Decimal {
	members := decimal.NewFromInt(int64(fund.MemberCount))
	pot := fund.MonthlyContribution.Mul(members)

	profit := decimal.Zero
	for _, a := range auctions {
		if rng != nil && !rng.Contains(a.Date) {
			continue
		}
		if margin := pot.Sub(a.Amount); margin.IsPositive() {
			profit = profit.Add(margin)
		}
	}
	if !profit.IsZero() {
		return profit
	}

	// No formal per-auction margin recorded: fall back to net collections.
	collected := decimal.Zero
	for _, c := range contributions {
		if rng != nil && !rng.Contains(c.PaidDate) {
			continue
		}
		collected = collected.Add(c.Amount)
	}
	paidOut := decimal.Zero
	for _, a := range auctions {
		if rng != nil && !rng.Contains(a.Date) {
			continue
		}
		paidOut = paidOut.Add(a.Amount)
	}
	if net := collected.Sub(paidOut); net.IsPositive() {
		return net
	}
	return decimal.Zero
}

func fixedVariantProfit(fund core.ChitFund, auctions []core.Auction, rng *core.PeriodRange, asOfPeriod int) decimal.Decimal {
	// The fixed formula is undefined without a first-month contribution or a
	// duration; degrade to zero rather than failing the whole computation.
	if !fund.FirstMonthContribution.IsPositive() || fund.Duration <= 0 {
		return decimal.Zero
	}
	if asOfPeriod <= 0 {
		asOfPeriod = fund.CurrentPeriod
	}
	if asOfPeriod <= 0 {
		return decimal.Zero
	}

	members := decimal.NewFromInt(int64(fund.MemberCount))
	duration := decimal.NewFromInt(int64(fund.Duration))
	reported := decimal.NewFromInt(int64(asOfPeriod))

	total := decimal.Zero
	for _, a := range auctions {
		if rng != nil && !rng.Contains(a.Date) {
			continue
		}
		var collected decimal.Decimal
		if a.Period == 1 {
			collected = fund.FirstMonthContribution.Add(
				fund.MonthlyContribution.Mul(members.Sub(decimal.NewFromInt(1))))
		} else {
			collected = fund.MonthlyContribution.Mul(members)
		}
		periodProfit := collected.Sub(a.Amount)
		distributedPerPeriod := periodProfit.Div(duration)
		total = total.Add(distributedPerPeriod.Mul(reported))
	}
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}
