package sheets

import (
	"context"
	"time"

	"chitbook/internal/core"
)

// Ports for outbound adapters.
type (
	// ReportWriter appends a finished period report as one spreadsheet row.
	ReportWriter interface {
		AppendReport(ctx context.Context, report core.PeriodReport) (rowRef string, err error)
	}
)

// ReportHeader is the column layout every adapter writes reports under.
var ReportHeader = []any{
	"Period Start", "Period End", "Cash Inflow", "Cash Outflow", "Net Flow",
	"Loan Profit", "Chit Fund Profit", "Total Profit", "Outside Amount",
	"Transactions", "Generated At",
}

// ReportRow renders a report into the ReportHeader column order.
func ReportRow(report core.PeriodReport) []any {
	m := report.Metrics
	return []any{
		report.Range.Start.Format("2006-01-02"),
		report.Range.End.Format("2006-01-02"),
		m.CashInflow.String(),
		m.CashOutflow.String(),
		m.NetFlow.String(),
		m.LoanProfit.String(),
		m.ChitFundProfit.String(),
		m.TotalProfit.String(),
		m.OutsideAmount.String(),
		m.Counts.Total,
		report.GeneratedAt.Format(time.RFC3339),
	}
}
