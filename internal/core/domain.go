package core

import (
	"errors"
)

type (
	// Performance is the work output logged for a day (or rolled up for a week).
	Performance struct {
		HoursWorked     float64 `json:"hoursWorked"`
		Revenue         float64 `json:"revenue"` // base pay excluding tips
		Tips            float64 `json:"tips"`
		OrdersDelivered float64 `json:"ordersDelivered"`
	}

	// WeekPerformance is Performance plus the free-text weekly comment.
	WeekPerformance struct {
		Performance
		Comment string `json:"comment"`
	}

	// Expenses are the six variable spending categories tracked per day.
	Expenses struct {
		Food          float64 `json:"food"`
		NonFood       float64 `json:"nonFood"`
		Transport     float64 `json:"transport"`
		DiningOut     float64 `json:"diningOut"`
		Entertainment float64 `json:"entertainment"`
		Others        float64 `json:"others"`
	}

	// MonthlyExpenses are the fixed costs booked once per month.
	MonthlyExpenses struct {
		Rent   float64 `json:"rent"`
		Phone  float64 `json:"phone"`
		SVS    float64 `json:"svs"` // social-security contribution
		Others float64 `json:"others"`
	}

	DayRecord struct {
		Performance Performance `json:"performance"`
		Expenses    Expenses    `json:"expenses"`
	}

	// WeekRecord is the legacy weekly slot. Totals are derived from days now;
	// the slot stays writable for the comment and for un-migrated data.
	WeekRecord struct {
		Performance WeekPerformance `json:"performance"`
		Expenses    Expenses        `json:"expenses"`
	}

	// MonthDocument is the aggregate root for one (year, month) pair.
	MonthDocument struct {
		Weeks           map[int]WeekRecord `json:"weeks"`
		Days            map[int]DayRecord  `json:"days"`
		MonthlyExpenses MonthlyExpenses    `json:"monthlyExpenses"`
	}

	// Store maps year -> month index (0-11) -> document.
	Store map[int]map[int]*MonthDocument
)

// WeekSlots is the number of legacy week slots every month carries.
const WeekSlots = 6

var (
	ErrInvalidYear  = errors.New("invalid year")
	ErrInvalidMonth = errors.New("invalid month")
	ErrInvalidDay   = errors.New("invalid day")
	ErrInvalidWeek  = errors.New("invalid week")
)

// ValidateMonth reports whether month is a 0-based month index.
func ValidateMonth(month int) error {
	if month < 0 || month > 11 {
		return ErrInvalidMonth
	}
	return nil
}

// ValidateYear rejects years the calendar cannot sensibly address.
func ValidateYear(year int) error {
	if year < 1 || year > 9999 {
		return ErrInvalidYear
	}
	return nil
}

// ValidateDay checks day against the widest month; callers that know the
// month should compare with calendar.DaysInMonth instead.
func ValidateDay(day int) error {
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	return nil
}

func ValidateWeek(week int) error {
	if week < 1 || week > WeekSlots {
		return ErrInvalidWeek
	}
	return nil
}

// Total sums the six categories.
func (e Expenses) Total() float64 {
	return sum(e.Food, e.NonFood, e.Transport, e.DiningOut, e.Entertainment, e.Others)
}

// Add returns the field-wise sum of e and o.
func (e Expenses) Add(o Expenses) Expenses {
	return Expenses{
		Food:          sum(e.Food, o.Food),
		NonFood:       sum(e.NonFood, o.NonFood),
		Transport:     sum(e.Transport, o.Transport),
		DiningOut:     sum(e.DiningOut, o.DiningOut),
		Entertainment: sum(e.Entertainment, o.Entertainment),
		Others:        sum(e.Others, o.Others),
	}
}

// Add returns the field-wise sum of p and o.
func (p Performance) Add(o Performance) Performance {
	return Performance{
		HoursWorked:     sum(p.HoursWorked, o.HoursWorked),
		Revenue:         sum(p.Revenue, o.Revenue),
		Tips:            sum(p.Tips, o.Tips),
		OrdersDelivered: sum(p.OrdersDelivered, o.OrdersDelivered),
	}
}

// Gross is revenue plus tips.
func (p Performance) Gross() float64 {
	return sum(p.Revenue, p.Tips)
}

func (m MonthlyExpenses) Total() float64 {
	return sum(m.Rent, m.Phone, m.SVS, m.Others)
}

// RevenuePerHour is gross per hour worked; zero hours count as one.
func (w WeekRecord) RevenuePerHour() float64 {
	return perHour(w.Performance.Gross(), w.Performance.HoursWorked)
}

// OrdersPerHour is orders delivered per hour worked; zero hours count as one.
func (w WeekRecord) OrdersPerHour() float64 {
	return perHour(w.Performance.OrdersDelivered, w.Performance.HoursWorked)
}

// EmptyWeek returns a zero-valued legacy week slot.
func EmptyWeek() WeekRecord {
	return WeekRecord{}
}

// EmptyWeeks returns the full set of zero-valued slots 1..WeekSlots.
func EmptyWeeks() map[int]WeekRecord {
	weeks := make(map[int]WeekRecord, WeekSlots)
	for w := 1; w <= WeekSlots; w++ {
		weeks[w] = EmptyWeek()
	}
	return weeks
}

// NewMonthDocument returns a fully shaped, empty document.
func NewMonthDocument() *MonthDocument {
	return &MonthDocument{
		Weeks: EmptyWeeks(),
		Days:  map[int]DayRecord{},
	}
}

// Normalize back-fills any missing structure in place. It is idempotent.
func (m *MonthDocument) Normalize() {
	if m.Weeks == nil {
		m.Weeks = make(map[int]WeekRecord, WeekSlots)
	}
	for w := 1; w <= WeekSlots; w++ {
		if _, ok := m.Weeks[w]; !ok {
			m.Weeks[w] = EmptyWeek()
		}
	}
	if m.Days == nil {
		m.Days = map[int]DayRecord{}
	}
}

// HasDays reports whether any day entry exists, the switch between the
// day-based and the legacy week-based aggregation.
func (m *MonthDocument) HasDays() bool {
	return m != nil && len(m.Days) > 0
}

// Clone returns an independent copy of the document.
func (m *MonthDocument) Clone() *MonthDocument {
	if m == nil {
		return nil
	}
	out := &MonthDocument{MonthlyExpenses: m.MonthlyExpenses}
	if m.Weeks != nil {
		out.Weeks = make(map[int]WeekRecord, len(m.Weeks))
		for k, v := range m.Weeks {
			out.Weeks[k] = v
		}
	}
	if m.Days != nil {
		out.Days = make(map[int]DayRecord, len(m.Days))
		for k, v := range m.Days {
			out.Days[k] = v
		}
	}
	return out
}

// Clone deep-copies the store; records are plain values so copying the maps
// is enough to make the result independent.
func (s Store) Clone() Store {
	if s == nil {
		return nil
	}
	out := make(Store, len(s))
	for year, months := range s {
		if months == nil {
			out[year] = nil
			continue
		}
		cp := make(map[int]*MonthDocument, len(months))
		for month, doc := range months {
			cp[month] = doc.Clone()
		}
		out[year] = cp
	}
	return out
}

func perHour(v, hours float64) float64 {
	if hours == 0 {
		hours = 1
	}
	return dec(v).Div(dec(hours)).InexactFloat64()
}
