package core

import "github.com/shopspring/decimal"

// Domain constants of the targeted jurisdiction. They are not configurable.
var (
	businessExpenseRate = decimal.RequireFromString("0.06")
	taxFreeAllowance    = decimal.NewFromInt(1050)
	taxRate             = decimal.RequireFromString("0.20")
)

// MonthTotals are a month's aggregated inputs to the derivation.
type MonthTotals struct {
	TotalHours          float64 `json:"totalHours"`
	TotalOrders         float64 `json:"totalOrders"`
	Revenue             float64 `json:"revenue"`
	Tips                float64 `json:"tips"`
	WeeklyExpensesTotal float64 `json:"weeklyExpensesTotal"` // six variable categories
}

// Add folds one record's performance and expenses into the totals.
func (t MonthTotals) Add(p Performance, e Expenses) MonthTotals {
	return MonthTotals{
		TotalHours:          sum(t.TotalHours, p.HoursWorked),
		TotalOrders:         sum(t.TotalOrders, p.OrdersDelivered),
		Revenue:             sum(t.Revenue, p.Revenue),
		Tips:                sum(t.Tips, p.Tips),
		WeeklyExpensesTotal: sum(t.WeeklyExpensesTotal, e.Total()),
	}
}

// MonthSummary is the full income, tax and savings figure set for a month.
type MonthSummary struct {
	TotalHours           float64 `json:"totalHours"`
	TotalOrders          float64 `json:"totalOrders"`
	Revenue              float64 `json:"revenue"`
	Tips                 float64 `json:"tips"`
	Gross                float64 `json:"gross"`
	WeeklyExpensesTotal  float64 `json:"weeklyExpensesTotal"`
	MonthlyExpensesTotal float64 `json:"monthlyExpensesTotal"`
	BusinessExpense6     float64 `json:"businessExpense6"`
	SVS                  float64 `json:"svs"`
	NetBeforeTax         float64 `json:"netBeforeTax"`
	TaxableAmount        float64 `json:"taxableAmount"` // excess over the allowance
	Tax                  float64 `json:"tax"`
	AllExpensesExclSVS   float64 `json:"allExpensesExclSVS"`
	SavingsBeforeTax     float64 `json:"savingsBeforeTax"`
	SavingsAfterTax      float64 `json:"savingsAfterTax"`
}

// DeriveSummary runs the fixed formula chain over a month's totals.
//
// SVS is subtracted once on the way to netBeforeTax and therefore left out
// of allExpensesExclSVS.
func DeriveSummary(t MonthTotals, me MonthlyExpenses) MonthSummary {
	revenue, tips := dec(t.Revenue), dec(t.Tips)
	weekly := dec(t.WeeklyExpensesTotal)
	monthly := dec(me.Rent).Add(dec(me.Phone)).Add(dec(me.SVS)).Add(dec(me.Others))
	svs := dec(me.SVS)

	gross := revenue.Add(tips)
	business := gross.Mul(businessExpenseRate)
	net := gross.Sub(business).Sub(svs)
	taxable := decimal.Max(decimal.Zero, net.Sub(taxFreeAllowance))
	tax := taxable.Mul(taxRate)
	allExcl := monthly.Sub(svs).Add(weekly)
	savingsBefore := net.Sub(allExcl)
	savingsAfter := savingsBefore.Sub(tax)

	return MonthSummary{
		TotalHours:           t.TotalHours,
		TotalOrders:          t.TotalOrders,
		Revenue:              t.Revenue,
		Tips:                 t.Tips,
		Gross:                gross.InexactFloat64(),
		WeeklyExpensesTotal:  t.WeeklyExpensesTotal,
		MonthlyExpensesTotal: monthly.InexactFloat64(),
		BusinessExpense6:     business.InexactFloat64(),
		SVS:                  svs.InexactFloat64(),
		NetBeforeTax:         net.InexactFloat64(),
		TaxableAmount:        taxable.InexactFloat64(),
		Tax:                  tax.InexactFloat64(),
		AllExpensesExclSVS:   allExcl.InexactFloat64(),
		SavingsBeforeTax:     savingsBefore.InexactFloat64(),
		SavingsAfterTax:      savingsAfter.InexactFloat64(),
	}
}

// YearTotals are the column sums shown under a yearly report. Net before tax
// is a per-month figure and is not totalled.
type YearTotals struct {
	Gross                float64 `json:"gross"`
	WeeklyExpensesTotal  float64 `json:"weeklyExpensesTotal"`
	MonthlyExpensesTotal float64 `json:"monthlyExpensesTotal"`
	Tax                  float64 `json:"tax"`
	SavingsAfterTax      float64 `json:"savingsAfterTax"`
}

func (y YearTotals) Add(s MonthSummary) YearTotals {
	return YearTotals{
		Gross:                sum(y.Gross, s.Gross),
		WeeklyExpensesTotal:  sum(y.WeeklyExpensesTotal, s.WeeklyExpensesTotal),
		MonthlyExpensesTotal: sum(y.MonthlyExpensesTotal, s.MonthlyExpensesTotal),
		Tax:                  sum(y.Tax, s.Tax),
		SavingsAfterTax:      sum(y.SavingsAfterTax, s.SavingsAfterTax),
	}
}
