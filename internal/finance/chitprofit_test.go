package finance

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"chitbook/internal/core"
)

func auctionFund() core.ChitFund {
	return core.ChitFund{
		ID:                  uuid.New(),
		TotalAmount:         decimal.NewFromInt(100000),
		MonthlyContribution: decimal.NewFromInt(1000),
		MemberCount:         10,
		Duration:            10,
		ChitFundType:        core.VariantAuction,
		CurrentPeriod:       3,
		StartDate:           time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func fixedFund() core.ChitFund {
	return core.ChitFund{
		ID:                     uuid.New(),
		TotalAmount:            decimal.NewFromInt(50000),
		MonthlyContribution:    decimal.NewFromInt(4800),
		FirstMonthContribution: decimal.NewFromInt(5000),
		MemberCount:            10,
		Duration:               10,
		ChitFundType:           core.VariantFixed,
		CurrentPeriod:          3,
		StartDate:              time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestChitFundProfitAuctionMargins(t *testing.T) {
	fund := auctionFund() // pot = 1000 * 10 = 10000
	auctions := []core.Auction{
		{ChitFundID: fund.ID, Amount: decimal.NewFromInt(9000), Date: time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC), Period: 1},
		{ChitFundID: fund.ID, Amount: decimal.NewFromInt(8500), Date: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), Period: 2},
		// A payout above the pot contributes nothing, never a negative.
		{ChitFundID: fund.ID, Amount: decimal.NewFromInt(12000), Date: time.Date(2024, 4, 5, 0, 0, 0, 0, time.UTC), Period: 3},
	}

	got, err := ChitFundProfit(fund, nil, auctions, nil, fund.CurrentPeriod)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if want := decimal.NewFromInt(2500); !got.Equal(want) {
		t.Fatalf("profit = %s, want %s", got, want)
	}
}

func TestChitFundProfitAuctionFallback(t *testing.T) {
	// Every auction pays out the whole pot, so no per-auction margin exists;
	// profit falls back to contributions minus payouts.
	fund := auctionFund()
	fund.MonthlyContribution = decimal.NewFromInt(100) // pot = 1000
	auctions := []core.Auction{
		{ChitFundID: fund.ID, Amount: decimal.NewFromInt(1000), Date: time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC), Period: 1},
	}
	contributions := []core.Contribution{
		{ChitFundID: fund.ID, Amount: decimal.NewFromInt(700), PaidDate: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Period: 1},
		{ChitFundID: fund.ID, Amount: decimal.NewFromInt(500), PaidDate: time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC), Period: 1},
	}

	got, err := ChitFundProfit(fund, contributions, auctions, nil, fund.CurrentPeriod)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	// contributions 1200 - auctions 1000 = 200
	if want := decimal.NewFromInt(200); !got.Equal(want) {
		t.Fatalf("profit = %s, want %s", got, want)
	}
}

func TestChitFundProfitAuctionFallbackNeverNegative(t *testing.T) {
	fund := auctionFund()
	fund.MonthlyContribution = decimal.NewFromInt(100)
	auctions := []core.Auction{
		{ChitFundID: fund.ID, Amount: decimal.NewFromInt(1000), Date: time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC), Period: 1},
	}
	contributions := []core.Contribution{
		{ChitFundID: fund.ID, Amount: decimal.NewFromInt(400), PaidDate: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Period: 1},
	}

	got, err := ChitFundProfit(fund, contributions, auctions, nil, fund.CurrentPeriod)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if !got.IsZero() {
		t.Fatalf("profit = %s, want 0 when collections trail payouts", got)
	}
}

func TestChitFundProfitFixedWorkedExample(t *testing.T) {
	// totalAmount=50000, firstMonth=5000, monthly=4800, members=10,
	// duration=10, month-1 auction payout=40000:
	// collected = 5000 + 4800*9 = 48200, profit = 8200,
	// distributed/period = 820, at period 3 -> 2460.
	fund := fixedFund()
	auctions := []core.Auction{
		{ChitFundID: fund.ID, Amount: decimal.NewFromInt(40000), Date: time.Date(2024, 1, 25, 0, 0, 0, 0, time.UTC), Period: 1},
	}

	got, err := ChitFundProfit(fund, nil, auctions, nil, 3)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if want := decimal.NewFromInt(2460); !got.Equal(want) {
		t.Fatalf("profit = %s, want %s", got, want)
	}
}

func TestChitFundProfitFixedLaterPeriodSizing(t *testing.T) {
	fund := fixedFund()
	auctions := []core.Auction{
		// Period 2 collects monthly*members = 48000; payout 43000 -> 5000
		// distributed as 500/period, reported up to period 4 -> 2000.
		{ChitFundID: fund.ID, Amount: decimal.NewFromInt(43000), Date: time.Date(2024, 2, 25, 0, 0, 0, 0, time.UTC), Period: 2},
	}

	got, err := ChitFundProfit(fund, nil, auctions, nil, 4)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if want := decimal.NewFromInt(2000); !got.Equal(want) {
		t.Fatalf("profit = %s, want %s", got, want)
	}
}

func TestChitFundProfitFixedFlooredAtZero(t *testing.T) {
	fund := fixedFund()
	auctions := []core.Auction{
		// Payout above the collected pot drives the distributed total negative.
		{ChitFundID: fund.ID, Amount: decimal.NewFromInt(60000), Date: time.Date(2024, 1, 25, 0, 0, 0, 0, time.UTC), Period: 1},
	}

	got, err := ChitFundProfit(fund, nil, auctions, nil, 3)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if !got.IsZero() {
		t.Fatalf("profit = %s, want 0", got)
	}
}

func TestChitFundProfitFixedMissingFirstMonth(t *testing.T) {
	fund := fixedFund()
	fund.FirstMonthContribution = decimal.Zero
	auctions := []core.Auction{
		{ChitFundID: fund.ID, Amount: decimal.NewFromInt(40000), Date: time.Date(2024, 1, 25, 0, 0, 0, 0, time.UTC), Period: 1},
	}

	got, err := ChitFundProfit(fund, nil, auctions, nil, 3)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if !got.IsZero() {
		t.Fatalf("profit = %s, want 0 when first month contribution is absent", got)
	}
}

func TestChitFundProfitToDateRestrictsPeriods(t *testing.T) {
	fund := auctionFund()
	fund.CurrentPeriod = 1
	auctions := []core.Auction{
		{ChitFundID: fund.ID, Amount: decimal.NewFromInt(9000), Date: time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC), Period: 1},
		// Future-period auction must be ignored.
		{ChitFundID: fund.ID, Amount: decimal.NewFromInt(8000), Date: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), Period: 2},
	}

	got, err := ChitFundProfitToDate(fund, nil, auctions)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if want := decimal.NewFromInt(1000); !got.Equal(want) {
		t.Fatalf("profit = %s, want %s", got, want)
	}
}

func TestChitFundProfitUnknownVariant(t *testing.T) {
	fund := auctionFund()
	fund.ChitFundType = "lottery"
	if _, err := ChitFundProfit(fund, nil, nil, nil, 1); !errors.Is(err, core.ErrUnknownFundVariant) {
		t.Fatalf("expected ErrUnknownFundVariant, got %v", err)
	}
}
