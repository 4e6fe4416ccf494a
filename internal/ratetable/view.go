// Package ratetable provides a read-only, filterable view over one
// product's rate schedule.
package ratetable

import (
	"sort"
	"strings"

	"github.com/reisewerk/tariffkit/internal/domain"
)

// View is an immutable selection of rows from one rate table. Filters
// return new views and never touch the underlying table; an empty view
// is a valid, non-error outcome.
type View struct {
	table *domain.RateTable
	rows  []domain.Row
}

// NewView wraps a rate table. A nil table yields an empty view, so a
// product whose schedule was never loaded resolves to no-match.
func NewView(table *domain.RateTable) View {
	if table == nil {
		return View{}
	}
	return View{table: table, rows: table.Rows}
}

// Len returns the number of rows surviving the filters so far.
func (v View) Len() int {
	return len(v.rows)
}

// Empty reports whether no rows survive.
func (v View) Empty() bool {
	return len(v.rows) == 0
}

// Rows returns a copy of the surviving rows.
func (v View) Rows() []domain.Row {
	out := make([]domain.Row, len(v.rows))
	copy(out, v.rows)
	return out
}

// hasColumn guards every filter: a predicate over a column the table
// does not carry is unsatisfiable, not a crash.
func (v View) hasColumn(c domain.Column) bool {
	return v.table != nil && v.table.HasColumn(c)
}

// norm is the string match rule for schedule values: trimmed and
// case-insensitive.
func norm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (v View) filter(keep func(domain.Row) bool) View {
	kept := make([]domain.Row, 0, len(v.rows))
	for _, row := range v.rows {
		if keep(row) {
			kept = append(kept, row)
		}
	}
	return View{table: v.table, rows: kept}
}

// WhereEq keeps rows whose string column equals value, trimmed and
// case-insensitive. Rows with a nil field never match.
func (v View) WhereEq(col domain.Column, value string) View {
	if !v.hasColumn(col) {
		return View{table: v.table}
	}
	want := norm(value)
	return v.filter(func(r domain.Row) bool {
		got := stringField(r, col)
		return got != nil && norm(*got) == want
	})
}

// WhereCeilingAtLeast keeps rows whose price ceiling covers the trip
// price (ceiling >= price; the ceiling is an inclusive upper bound).
func (v View) WhereCeilingAtLeast(price float64) View {
	if !v.hasColumn(domain.ColPriceCeiling) {
		return View{table: v.table}
	}
	return v.filter(func(r domain.Row) bool {
		return r.PriceCeiling != nil && *r.PriceCeiling >= price
	})
}

// WhereNumericAtMost keeps rows whose numeric column is <= value.
func (v View) WhereNumericAtMost(col domain.Column, value float64) View {
	if !v.hasColumn(col) {
		return View{table: v.table}
	}
	return v.filter(func(r domain.Row) bool {
		got := numericField(r, col)
		return got != nil && *got <= value
	})
}

// FirstHit picks the deterministic winner among surviving rows: sorted
// ascending by price ceiling when the table carries that column (the
// tightest qualifying band wins), natural load order otherwise.
func (v View) FirstHit() (domain.Row, bool) {
	if len(v.rows) == 0 {
		return domain.Row{}, false
	}
	if !v.hasColumn(domain.ColPriceCeiling) {
		return v.rows[0], true
	}

	sorted := make([]domain.Row, len(v.rows))
	copy(sorted, v.rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].PriceCeiling, sorted[j].PriceCeiling
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return *a < *b
	})
	return sorted[0], true
}

func stringField(r domain.Row, col domain.Column) *string {
	switch col {
	case domain.ColAgeBracket:
		return r.AgeBracket
	case domain.ColHouseholdType:
		return r.HouseholdType
	case domain.ColZone:
		return r.Zone
	case domain.ColTariffCode:
		return r.TariffCode
	default:
		return nil
	}
}

func numericField(r domain.Row, col domain.Column) *float64 {
	switch col {
	case domain.ColPriceCeiling:
		return r.PriceCeiling
	case domain.ColRate:
		return r.Rate
	case domain.ColDailyRate:
		return r.DailyRate
	default:
		return nil
	}
}
