package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
)

// Stored documents decode leniently: a field of the wrong JSON type reads
// as its zero value, and an entry under a non-numeric key is skipped, so
// one bad field never costs the rest of the document. Only a top level
// that is not an object is an error.

// ErrNotObject is returned when a stored document has no year map at all.
var ErrNotObject = errors.New("store document is not a JSON object")

// fields splits a JSON object into its members; anything else yields nil.
func fields(data []byte) map[string]json.RawMessage {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}

func amountField(m map[string]json.RawMessage, name string) float64 {
	raw, ok := m[name]
	if !ok {
		return 0
	}
	var a Amount
	_ = a.UnmarshalJSON(raw)
	return a.Float()
}

func (p *Performance) UnmarshalJSON(data []byte) error {
	m := fields(data)
	*p = Performance{
		HoursWorked:     amountField(m, "hoursWorked"),
		Revenue:         amountField(m, "revenue"),
		Tips:            amountField(m, "tips"),
		OrdersDelivered: amountField(m, "ordersDelivered"),
	}
	return nil
}

// UnmarshalJSON shadows the promoted Performance method so the comment is
// kept. A non-string comment reads as "".
func (w *WeekPerformance) UnmarshalJSON(data []byte) error {
	_ = w.Performance.UnmarshalJSON(data)
	w.Comment = ""
	if raw, ok := fields(data)["comment"]; ok {
		var c string
		if json.Unmarshal(raw, &c) == nil {
			w.Comment = c
		}
	}
	return nil
}

func (e *Expenses) UnmarshalJSON(data []byte) error {
	m := fields(data)
	*e = Expenses{
		Food:          amountField(m, "food"),
		NonFood:       amountField(m, "nonFood"),
		Transport:     amountField(m, "transport"),
		DiningOut:     amountField(m, "diningOut"),
		Entertainment: amountField(m, "entertainment"),
		Others:        amountField(m, "others"),
	}
	return nil
}

func (me *MonthlyExpenses) UnmarshalJSON(data []byte) error {
	m := fields(data)
	*me = MonthlyExpenses{
		Rent:   amountField(m, "rent"),
		Phone:  amountField(m, "phone"),
		SVS:    amountField(m, "svs"),
		Others: amountField(m, "others"),
	}
	return nil
}

func (d *DayRecord) UnmarshalJSON(data []byte) error {
	m := fields(data)
	*d = DayRecord{}
	_ = d.Performance.UnmarshalJSON(m["performance"])
	_ = d.Expenses.UnmarshalJSON(m["expenses"])
	return nil
}

func (w *WeekRecord) UnmarshalJSON(data []byte) error {
	m := fields(data)
	*w = WeekRecord{}
	_ = w.Performance.UnmarshalJSON(m["performance"])
	_ = w.Expenses.UnmarshalJSON(m["expenses"])
	return nil
}

// intKeyed decodes an object keyed by integers, skipping other keys.
func intKeyed[V any](data []byte) map[int]V {
	m := fields(data)
	if m == nil {
		return nil
	}
	out := make(map[int]V, len(m))
	for k, raw := range m {
		n, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		var v V
		if err := json.Unmarshal(raw, &v); err != nil {
			continue
		}
		out[n] = v
	}
	return out
}

func (m *MonthDocument) UnmarshalJSON(data []byte) error {
	f := fields(data)
	*m = MonthDocument{
		Weeks: intKeyed[WeekRecord](f["weeks"]),
		Days:  intKeyed[DayRecord](f["days"]),
	}
	_ = m.MonthlyExpenses.UnmarshalJSON(f["monthlyExpenses"])
	return nil
}

func (s *Store) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = nil
		return nil
	}
	years := fields(data)
	if years == nil {
		return ErrNotObject
	}
	out := make(Store, len(years))
	for k, raw := range years {
		year, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		months := intKeyed[*MonthDocument](raw)
		for month, doc := range months {
			if doc == nil {
				delete(months, month)
			}
		}
		if months != nil {
			out[year] = months
		}
	}
	*s = out
	return nil
}
