package tracker

import (
	"context"

	"drivertrack/internal/calendar"
	"drivertrack/internal/core"
)

// legacyWeeks is how many week slots the fallback aggregation reads. Slot 6
// is never summed.
const legacyWeeks = 5

// snapshotOrLoad returns an independent copy of snapshot, or the persisted
// Store when snapshot is nil. Nothing is written back either way.
func (e *Engine) snapshotOrLoad(ctx context.Context, snapshot core.Store, year, month int) *core.MonthDocument {
	var s core.Store
	if snapshot != nil {
		s = snapshot.Clone()
	} else {
		s = e.GetStore(ctx)
	}
	return EnsureMonth(s, year, month)[year][month]
}

// ComputeWeekFromDays sums the day records inside the week's range. The
// comment comes from the legacy week slot of the same index.
func (e *Engine) ComputeWeekFromDays(ctx context.Context, year, month, week int, snapshot core.Store) core.WeekRecord {
	doc := e.snapshotOrLoad(ctx, snapshot, year, month)
	return weekFromDays(doc, e.cal.WeekDayRange(year, month, week), week)
}

func weekFromDays(doc *core.MonthDocument, r calendar.WeekRange, week int) core.WeekRecord {
	var out core.WeekRecord
	for d := r.Start; d <= r.End; d++ {
		day, ok := doc.Days[d]
		if !ok {
			continue
		}
		out.Performance.Performance = out.Performance.Performance.Add(day.Performance)
		out.Expenses = out.Expenses.Add(day.Expenses)
	}
	out.Performance.Comment = doc.Weeks[week].Performance.Comment
	return out
}

// ComputeMonthSummary derives the month's figures. Day records are the
// source when any exist; otherwise the legacy week slots 1..5 are summed.
func (e *Engine) ComputeMonthSummary(ctx context.Context, year, month int, snapshot core.Store) core.MonthSummary {
	doc := e.snapshotOrLoad(ctx, snapshot, year, month)
	return core.DeriveSummary(monthTotals(doc, year, month), doc.MonthlyExpenses)
}

func monthTotals(doc *core.MonthDocument, year, month int) core.MonthTotals {
	var t core.MonthTotals
	if doc.HasDays() {
		last := calendar.DaysInMonth(year, month)
		for d := 1; d <= last; d++ {
			if day, ok := doc.Days[d]; ok {
				t = t.Add(day.Performance, day.Expenses)
			}
		}
		return t
	}
	for w := 1; w <= legacyWeeks; w++ {
		if wk, ok := doc.Weeks[w]; ok {
			t = t.Add(wk.Performance.Performance, wk.Expenses)
		}
	}
	return t
}

// WeekView is one week as shown in the weekly view: its range, the totals
// rolled up from days and the derived rates.
type WeekView struct {
	Range          calendar.WeekRange `json:"range"`
	Week           core.WeekRecord    `json:"week"`
	ExpensesTotal  float64            `json:"expensesTotal"`
	RevenuePerHour float64            `json:"revenuePerHour"`
	OrdersPerHour  float64            `json:"ordersPerHour"`
}

// Week returns the view for one week index. An index outside the partition
// resolves to the first range, as WeekDayRange does.
func (e *Engine) Week(ctx context.Context, year, month, week int, snapshot core.Store) WeekView {
	doc := e.snapshotOrLoad(ctx, snapshot, year, month)
	r := e.cal.WeekDayRange(year, month, week)
	w := weekFromDays(doc, r, week)
	return WeekView{
		Range:          r,
		Week:           w,
		ExpensesTotal:  w.Expenses.Total(),
		RevenuePerHour: w.RevenuePerHour(),
		OrdersPerHour:  w.OrdersPerHour(),
	}
}
