package tracker

import (
	"context"

	"drivertrack/internal/core"
)

// MonthRow is one line of the yearly report.
type MonthRow struct {
	Month   int              `json:"month"` // 0-based
	Label   string           `json:"label"`
	Summary core.MonthSummary `json:"summary"`
}

// YearReport is the twelve month rows of a year and their column totals.
type YearReport struct {
	Year   int             `json:"year"`
	Months []MonthRow      `json:"months"`
	Totals core.YearTotals `json:"totals"`
}

// YearReport reads the Store once and derives every month of year from
// that single snapshot.
func (e *Engine) YearReport(ctx context.Context, year int) YearReport {
	return e.YearReportFrom(e.GetStore(ctx), year)
}

// YearReportFrom derives the report from snapshot without touching the
// back end. snapshot is not modified.
func (e *Engine) YearReportFrom(snapshot core.Store, year int) YearReport {
	if snapshot == nil {
		snapshot = core.Store{}
	}
	// One clone for the whole year; each month is ensured inside it.
	s := snapshot.Clone()
	return e.buildReport(year, func(m int) core.MonthSummary {
		doc := EnsureMonth(s, year, m)[year][m]
		return core.DeriveSummary(monthTotals(doc, year, m), doc.MonthlyExpenses)
	})
}

// ReportFromSummaries assembles a report from already derived month
// summaries, such as the worker's stored snapshots. Missing months are
// zero rows.
func (e *Engine) ReportFromSummaries(year int, sums map[int]core.MonthSummary) YearReport {
	return e.buildReport(year, func(m int) core.MonthSummary { return sums[m] })
}

func (e *Engine) buildReport(year int, summary func(month int) core.MonthSummary) YearReport {
	rep := YearReport{Year: year, Months: make([]MonthRow, 0, 12)}
	for m := 0; m < 12; m++ {
		sum := summary(m)
		rep.Months = append(rep.Months, MonthRow{
			Month:   m,
			Label:   e.cal.MonthAbbrev(m),
			Summary: sum,
		})
		rep.Totals = rep.Totals.Add(sum)
	}
	return rep
}
