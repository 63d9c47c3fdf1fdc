// Package core provides amount parsing and handling utilities.
//
// This file contains the lenient number coercion used by every write path:
// input that does not parse to a finite real number becomes 0 instead of
// failing the write.
package core

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a patch value. It decodes from a JSON number or a numeric
// string; anything else (null, garbage, NaN) decodes as 0.
type Amount float64

// Num returns a pointer to an Amount, for building patches in code.
func Num(v float64) *Amount {
	a := Amount(Coerce(v))
	return &a
}

// Float returns the amount as a finite float64.
func (a Amount) Float() float64 {
	return Coerce(float64(a))
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*a = 0
			return nil
		}
		*a = Amount(ParseAmount(s))
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		*a = 0
		return nil
	}
	*a = Amount(Coerce(f))
	return nil
}

// ParseAmount converts user input to a number.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Blank,
// unparsable or non-finite input yields 0; the value is never rejected.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34
//	ParseAmount("12,34") -> 12.34
//	ParseAmount("")      -> 0
//	ParseAmount("abc")   -> 0
func ParseAmount(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return Coerce(f)
}

// Coerce maps NaN and ±Inf to 0 and leaves every other value untouched.
func Coerce(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func dec(v float64) decimal.Decimal {
	return decimal.NewFromFloat(Coerce(v))
}

// sum adds in decimal so repeated roll-ups do not accumulate binary drift.
func sum(vals ...float64) float64 {
	total := decimal.Zero
	for _, v := range vals {
		total = total.Add(dec(v))
	}
	return total.InexactFloat64()
}
