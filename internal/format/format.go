// Package format renders premiums and quote results for display and
// for offer-document substitution.
package format

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/reisewerk/tariffkit/internal/domain"
)

// Amount renders a monetary amount with two decimals and a comma
// decimal separator, e.g. 50 -> "50,00".
func Amount(amount float64) string {
	return strings.Replace(decimal.NewFromFloat(amount).StringFixed(2), ".", ",", 1)
}

// Premium renders the canonical display string for one resolved
// premium: "50,00 € (ABC123)".
func Premium(amount float64, tariffCode string) string {
	return fmt.Sprintf("%s € (%s)", Amount(amount), tariffCode)
}

// Result renders a premium result, falling back to the no-rate
// sentinel for misses.
func Result(r domain.PremiumResult) string {
	if !r.Matched {
		return domain.SentinelNoRate
	}
	return Premium(r.Amount, r.TariffCode)
}

// TableRow is one line of the grouped tariff comparison.
type TableRow struct {
	Group          string `json:"group"`
	Term           string `json:"term"`
	WithDeductible string `json:"withDeductible"`
	NoDeductible   string `json:"noDeductible"`
}

// tableLayout fixes the 7-row presentation order: cancellation
// (single, annual, economy), medical (single, annual), all-inclusive
// (single, annual).
var tableLayout = []struct {
	group      domain.ProductGroup
	term       domain.Term
	with, none domain.ProductKey
}{
	{domain.GroupCancellation, domain.TermSingle, domain.CancellationSingleWith, domain.CancellationSingleWithout},
	{domain.GroupCancellation, domain.TermAnnual, domain.CancellationAnnualWith, domain.CancellationAnnualWithout},
	{domain.GroupCancellation, domain.TermAnnualEconomy, domain.CancellationEconomyWith, domain.CancellationEconomyWithout},
	{domain.GroupMedical, domain.TermSingle, domain.MedicalSingleWith, domain.MedicalSingleWithout},
	{domain.GroupMedical, domain.TermAnnual, domain.MedicalAnnualWith, domain.MedicalAnnualWithout},
	{domain.GroupAllInclusive, domain.TermSingle, domain.AllInclusiveSingleWith, domain.AllInclusiveSingleWithout},
	{domain.GroupAllInclusive, domain.TermAnnual, domain.AllInclusiveAnnualWith, domain.AllInclusiveAnnualWithout},
}

// GroupedTable arranges the fourteen premium strings into the fixed
// 7x2 comparison table. The group label appears only on its first row,
// matching the printed layout agents are used to.
func GroupedTable(results map[domain.ProductKey]domain.PremiumResult) []TableRow {
	rows := make([]TableRow, 0, len(tableLayout))
	var lastGroup domain.ProductGroup
	for _, l := range tableLayout {
		label := string(l.group)
		if l.group == lastGroup {
			label = ""
		}
		lastGroup = l.group
		rows = append(rows, TableRow{
			Group:          label,
			Term:           string(l.term),
			WithDeductible: Result(results[l.with]),
			NoDeductible:   Result(results[l.none]),
		})
	}
	return rows
}

// TripPrice renders a trip price in German notation with thousands
// separators, e.g. 2000 -> "2.000,00 €".
func TripPrice(price float64) string {
	fixed := decimal.NewFromFloat(price).StringFixed(2)
	parts := strings.SplitN(fixed, ".", 2)
	whole, frac := parts[0], parts[1]

	neg := strings.HasPrefix(whole, "-")
	whole = strings.TrimPrefix(whole, "-")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	out := b.String()
	if neg {
		out = "-" + out
	}
	return out + "," + frac + " €"
}

// DateRange renders the travel window, e.g. "01.06.2026 – 10.06.2026".
func DateRange(trip domain.Trip) string {
	return trip.Start.Format("02.01.2006") + " – " + trip.End.Format("02.01.2006")
}

// DocumentData builds the placeholder map for the offer template: one
// key per product premium plus the trip metadata keys. Premium values
// keep their tariff codes here; docgen strips them before
// substitution.
func DocumentData(q *domain.Quote) map[string]string {
	ages := make([]string, len(q.Ages))
	for i, a := range q.Ages {
		ages[i] = fmt.Sprintf("%d", a)
	}

	data := map[string]string{
		"Kundenname": q.CustomerName,
		"Reisedatum": DateRange(q.Trip),
		"Reisepreis": TripPrice(q.Trip.Price),
		"Anzahl":     fmt.Sprintf("%d", len(q.Ages)),
		"Alter":      strings.Join(ages, ", "),
		"Reiseziel":  string(q.Trip.Zone),
	}
	for _, p := range domain.Products() {
		data[p.Placeholder] = Result(q.Results[p.Key])
	}
	return data
}

// CleanForExport reduces formatted premium strings to bare amounts for
// the offer document: "50,00 € (ABC123)" -> "50,00 €". Values that are
// not premium strings pass through unchanged, the sentinel included.
func CleanForExport(data map[string]string) map[string]string {
	out := make(map[string]string, len(data))
	for key, value := range data {
		if strings.Contains(value, "€") && strings.Contains(value, "(") && strings.Contains(value, ")") {
			amount := strings.TrimSpace(strings.SplitN(value, "€", 2)[0])
			out[key] = amount + " €"
			continue
		}
		out[key] = value
	}
	return out
}
