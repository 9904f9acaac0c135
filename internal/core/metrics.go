package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionCounts holds per-category record counts inside one aggregated
// window.
type TransactionCounts struct {
	Repayments    int
	Contributions int
	Disbursements int
	Auctions      int
	Total         int
}

// FinancialMetrics is the consolidated snapshot produced by the period
// aggregator. It is a pure output value: the core never persists it.
type FinancialMetrics struct {
	CashInflow     decimal.Decimal
	CashOutflow    decimal.Decimal
	NetFlow        decimal.Decimal
	LoanProfit     decimal.Decimal
	ChitFundProfit decimal.Decimal
	TotalProfit    decimal.Decimal
	OutsideAmount  decimal.Decimal
	Counts         TransactionCounts
}

// Add combines two snapshots elementwise. Aggregating two disjoint
// contiguous ranges and adding the results must equal aggregating the union
// range directly.
func (m FinancialMetrics) Add(o FinancialMetrics) FinancialMetrics {
	return FinancialMetrics{
		CashInflow:     m.CashInflow.Add(o.CashInflow),
		CashOutflow:    m.CashOutflow.Add(o.CashOutflow),
		NetFlow:        m.NetFlow.Add(o.NetFlow),
		LoanProfit:     m.LoanProfit.Add(o.LoanProfit),
		ChitFundProfit: m.ChitFundProfit.Add(o.ChitFundProfit),
		TotalProfit:    m.TotalProfit.Add(o.TotalProfit),
		OutsideAmount:  m.OutsideAmount.Add(o.OutsideAmount),
		Counts: TransactionCounts{
			Repayments:    m.Counts.Repayments + o.Counts.Repayments,
			Contributions: m.Counts.Contributions + o.Counts.Contributions,
			Disbursements: m.Counts.Disbursements + o.Counts.Disbursements,
			Auctions:      m.Counts.Auctions + o.Counts.Auctions,
			Total:         m.Counts.Total + o.Counts.Total,
		},
	}
}

// PeriodReport pairs a metrics snapshot with the window it covers; this is
// what the export and scheduled-report collaborators consume.
type PeriodReport struct {
	Range       PeriodRange
	Metrics     FinancialMetrics
	GeneratedAt time.Time
}
