// Package premium converts resolved raw rate values into final
// monetary amounts.
package premium

import (
	"github.com/shopspring/decimal"
)

// Compute applies the schedule's magnitude convention to a raw rate
// value: below 1.0 the value is a fraction of the trip price, from 1.0
// upward it is a flat amount. Exactly 1.0 is flat, not 100%. The
// result is rounded to two decimal places.
//
// The schedules carry no explicit percentage/flat tag; the cutoff is
// the convention the rate tables are authored against and must not be
// "fixed" here.
func Compute(rawValue, tripPrice float64) float64 {
	raw := decimal.NewFromFloat(rawValue)
	if raw.LessThan(decimal.New(1, 0)) {
		price := decimal.NewFromFloat(tripPrice)
		f, _ := raw.Mul(price).Round(2).Float64()
		return f
	}
	f, _ := raw.Round(2).Float64()
	return f
}

// ComputePerDiem prices a per-diem product: the daily rate times the
// travel days, rounded to two places, then passed through the same
// magnitude rule against the trip price. The double application is how
// the schedules are authored; a per-diem total below 1.00 therefore
// still scales by the trip price.
func ComputePerDiem(dailyRate float64, durationDays int, tripPrice float64) float64 {
	total, _ := decimal.NewFromFloat(dailyRate).
		Mul(decimal.NewFromInt(int64(durationDays))).
		Round(2).
		Float64()
	return Compute(total, tripPrice)
}
