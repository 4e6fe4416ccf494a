// Package resolver selects the single applicable rate-schedule row
// for each product variant.
package resolver

import (
	"github.com/reisewerk/tariffkit/internal/domain"
	"github.com/reisewerk/tariffkit/internal/ratetable"
)

// conditions describes which filters participate in a product's
// predicate. All participating filters are conjunctive.
type conditions struct {
	price     bool // price ceiling must cover the trip price
	age       bool // age bracket must match
	household bool // household type must match
	zone      bool // destination zone must match
	perDiem   bool // rate comes from the daily-rate column
}

// policy is the fixed condition set per product variant. Changing a
// line here changes which tariff a customer is quoted; the table
// mirrors the underwriter's schedule design exactly.
var policy = map[domain.ProductKey]conditions{
	domain.CancellationSingleWith:     {price: true},
	domain.CancellationSingleWithout:  {price: true, age: true},
	domain.CancellationAnnualWith:     {price: true, age: true, household: true},
	domain.CancellationAnnualWithout:  {price: true, age: true, household: true},
	domain.CancellationEconomyWith:    {price: true, age: true, household: true},
	domain.CancellationEconomyWithout: {price: true, age: true, household: true},
	domain.MedicalSingleWith:          {age: true, household: true, zone: true, perDiem: true},
	domain.MedicalSingleWithout:       {age: true, household: true, zone: true, perDiem: true},
	domain.MedicalAnnualWith:          {age: true, household: true},
	domain.MedicalAnnualWithout:       {age: true, household: true},
	domain.AllInclusiveSingleWith:     {price: true, zone: true},
	domain.AllInclusiveSingleWithout:  {price: true, age: true, zone: true},
	domain.AllInclusiveAnnualWith:     {price: true, age: true, household: true},
	domain.AllInclusiveAnnualWithout:  {price: true, age: true, household: true},
}

// IsPerDiem reports whether a product is priced per travel day.
func IsPerDiem(key domain.ProductKey) bool {
	return policy[key].perDiem
}

// Resolve applies the product's predicate against its rate table and
// returns the single winning row's rate, or false when no row
// qualifies. A missing table, a missing column, or an empty result all
// degrade to no-match; none of them is an error and none affects any
// other product's resolution.
func Resolve(tables domain.RateTableSet, key domain.ProductKey, cats domain.RatingCategories, trip domain.Trip) (domain.ResolvedRate, bool) {
	cond, ok := policy[key]
	if !ok {
		return domain.ResolvedRate{}, false
	}

	view := ratetable.NewView(tables.Table(key))
	if cond.price {
		view = view.WhereCeilingAtLeast(trip.Price)
	}
	if cond.age {
		view = view.WhereEq(domain.ColAgeBracket, string(cats.AgeBracket))
	}
	if cond.household {
		view = view.WhereEq(domain.ColHouseholdType, string(cats.HouseholdType))
	}
	if cond.zone {
		if cats.Zone == domain.ZoneUnknown {
			return domain.ResolvedRate{}, false
		}
		view = view.WhereEq(domain.ColZone, string(cats.Zone))
	}

	row, ok := view.FirstHit()
	if !ok {
		return domain.ResolvedRate{}, false
	}

	var raw *float64
	if cond.perDiem {
		raw = row.DailyRate
	} else {
		raw = row.Rate
	}
	if raw == nil {
		return domain.ResolvedRate{}, false
	}

	code := ""
	if row.TariffCode != nil {
		code = *row.TariffCode
	}
	return domain.ResolvedRate{RawValue: *raw, TariffCode: code}, true
}
