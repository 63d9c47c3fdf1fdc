package core

// Patches carry optional fields: a nil pointer preserves the stored value,
// a non-nil pointer overrides it. Each record type has exactly one merge
// function below.
type (
	PerformancePatch struct {
		HoursWorked     *Amount `json:"hoursWorked,omitempty"`
		Revenue         *Amount `json:"revenue,omitempty"`
		Tips            *Amount `json:"tips,omitempty"`
		OrdersDelivered *Amount `json:"ordersDelivered,omitempty"`
	}

	WeekPerformancePatch struct {
		PerformancePatch
		Comment *string `json:"comment,omitempty"`
	}

	ExpensesPatch struct {
		Food          *Amount `json:"food,omitempty"`
		NonFood       *Amount `json:"nonFood,omitempty"`
		Transport     *Amount `json:"transport,omitempty"`
		DiningOut     *Amount `json:"diningOut,omitempty"`
		Entertainment *Amount `json:"entertainment,omitempty"`
		Others        *Amount `json:"others,omitempty"`
	}

	MonthlyExpensesPatch struct {
		Rent   *Amount `json:"rent,omitempty"`
		Phone  *Amount `json:"phone,omitempty"`
		SVS    *Amount `json:"svs,omitempty"`
		Others *Amount `json:"others,omitempty"`
	}

	DayPatch struct {
		Performance *PerformancePatch `json:"performance,omitempty"`
		Expenses    *ExpensesPatch    `json:"expenses,omitempty"`
	}

	WeekPatch struct {
		Performance *WeekPerformancePatch `json:"performance,omitempty"`
		Expenses    *ExpensesPatch        `json:"expenses,omitempty"`
	}
)

func pick(cur float64, v *Amount) float64 {
	if v == nil {
		return cur
	}
	return v.Float()
}

// Merge applies p to the receiver field by field.
func (cur Performance) Merge(p *PerformancePatch) Performance {
	if p == nil {
		return cur
	}
	return Performance{
		HoursWorked:     pick(cur.HoursWorked, p.HoursWorked),
		Revenue:         pick(cur.Revenue, p.Revenue),
		Tips:            pick(cur.Tips, p.Tips),
		OrdersDelivered: pick(cur.OrdersDelivered, p.OrdersDelivered),
	}
}

func (cur WeekPerformance) Merge(p *WeekPerformancePatch) WeekPerformance {
	if p == nil {
		return cur
	}
	out := WeekPerformance{
		Performance: cur.Performance.Merge(&p.PerformancePatch),
		Comment:     cur.Comment,
	}
	if p.Comment != nil {
		out.Comment = *p.Comment
	}
	return out
}

func (cur Expenses) Merge(p *ExpensesPatch) Expenses {
	if p == nil {
		return cur
	}
	return Expenses{
		Food:          pick(cur.Food, p.Food),
		NonFood:       pick(cur.NonFood, p.NonFood),
		Transport:     pick(cur.Transport, p.Transport),
		DiningOut:     pick(cur.DiningOut, p.DiningOut),
		Entertainment: pick(cur.Entertainment, p.Entertainment),
		Others:        pick(cur.Others, p.Others),
	}
}

func (cur MonthlyExpenses) Merge(p MonthlyExpensesPatch) MonthlyExpenses {
	return MonthlyExpenses{
		Rent:   pick(cur.Rent, p.Rent),
		Phone:  pick(cur.Phone, p.Phone),
		SVS:    pick(cur.SVS, p.SVS),
		Others: pick(cur.Others, p.Others),
	}
}

func (cur DayRecord) Merge(p DayPatch) DayRecord {
	return DayRecord{
		Performance: cur.Performance.Merge(p.Performance),
		Expenses:    cur.Expenses.Merge(p.Expenses),
	}
}

func (cur WeekRecord) Merge(p WeekPatch) WeekRecord {
	return WeekRecord{
		Performance: cur.Performance.Merge(p.Performance),
		Expenses:    cur.Expenses.Merge(p.Expenses),
	}
}
