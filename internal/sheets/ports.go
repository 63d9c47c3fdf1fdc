// Package sheets holds the outbound ports for spreadsheet mirrors of the
// monthly summaries.
package sheets

import (
	"context"

	"drivertrack/internal/core"
)

// Ports for outbound adapters.
type (
	// SummaryWriter mirrors one month's summary into a yearly sheet. Writing
	// the same month again replaces its row.
	SummaryWriter interface {
		WriteMonth(ctx context.Context, year, month int, label string, s core.MonthSummary) (rowRef string, err error)
	}

	// SummaryReader reads a mirrored row back. ok is false when the month has
	// never been written.
	SummaryReader interface {
		ReadMonth(ctx context.Context, year, month int) (s core.MonthSummary, ok bool, err error)
	}
)

// Columns is the header row of a yearly summary sheet.
var Columns = []string{
	"Month", "Hours", "Orders", "Revenue", "Tips", "Gross",
	"Weekly expenses", "Monthly expenses", "Business 6%", "SVS",
	"Net before tax", "Taxable", "Tax", "Savings before tax", "Savings after tax",
}

// Row lays out a summary in Columns order.
func Row(label string, s core.MonthSummary) []any {
	return []any{
		label, s.TotalHours, s.TotalOrders, s.Revenue, s.Tips, s.Gross,
		s.WeeklyExpensesTotal, s.MonthlyExpensesTotal, s.BusinessExpense6, s.SVS,
		s.NetBeforeTax, s.TaxableAmount, s.Tax, s.SavingsBeforeTax, s.SavingsAfterTax,
	}
}

// RowNumber is the 1-based sheet row of a 0-based month. Row 1 is the header.
func RowNumber(month int) int {
	return month + 2
}
