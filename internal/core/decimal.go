// Package core provides the recruitment domain model and the aggregation
// pipeline that turns a record collection into dashboard statistics.
//
// This file contains the one-decimal numeric type used for every
// percentage and day average the dashboard reports.
package core

import (
	"math"
	"strconv"
)

// Decimal is a value rounded to one decimal place. It always renders with
// exactly one fractional digit, so 19 is written as 19.0.
type Decimal float64

// Round1 rounds half away from zero to one decimal place.
//
// Examples:
//
//	Round1(33.333) -> 33.3
//	Round1(0.05)   -> 0.1
//	Round1(-0.05)  -> -0.1
func Round1(v float64) Decimal {
	return Decimal(math.Round(v*10) / 10)
}

// Percent returns num/den*100 rounded to one decimal, or 0 when den is 0.
func Percent(num, den int) Decimal {
	if den == 0 {
		return 0
	}
	return Round1(float64(num) / float64(den) * 100)
}

// Float returns the plain float64 value.
func (d Decimal) Float() float64 {
	return float64(d)
}

// String formats the value with one decimal digit.
func (d Decimal) String() string {
	return strconv.FormatFloat(float64(d), 'f', 1, 64)
}

func (d Decimal) MarshalJSON() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Decimal) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*d = Round1(v)
	return nil
}

func decimalPtr(d Decimal) *Decimal {
	return &d
}
