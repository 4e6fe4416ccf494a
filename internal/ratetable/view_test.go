package ratetable

import (
	"testing"

	"github.com/reisewerk/tariffkit/internal/domain"
)

func fp(v float64) *float64 { return &v }
func sp(v string) *string   { return &v }

func testTable() *domain.RateTable {
	return &domain.RateTable{
		Product: domain.CancellationAnnualWith,
		Columns: []domain.Column{
			domain.ColPriceCeiling, domain.ColAgeBracket,
			domain.ColHouseholdType, domain.ColRate, domain.ColTariffCode,
		},
		Rows: []domain.Row{
			{PriceCeiling: fp(800), AgeBracket: sp("bis 40 Jahre"), HouseholdType: sp("Paar"), Rate: fp(48), TariffCode: sp("A800")},
			{PriceCeiling: fp(500), AgeBracket: sp("bis 40 Jahre"), HouseholdType: sp("Paar"), Rate: fp(35), TariffCode: sp("A500")},
			{PriceCeiling: fp(1500), AgeBracket: sp("41–64 Jahre"), HouseholdType: sp("Paar"), Rate: fp(70), TariffCode: sp("B1500")},
			{PriceCeiling: fp(1500), AgeBracket: sp("bis 40 Jahre"), HouseholdType: sp("Familie"), Rate: fp(85), TariffCode: sp("C1500")},
		},
	}
}

func TestNewView(t *testing.T) {
	t.Run("NilTableIsEmpty", func(t *testing.T) {
		v := NewView(nil)
		if !v.Empty() {
			t.Error("expected empty view for nil table")
		}
		if _, ok := v.FirstHit(); ok {
			t.Error("expected no hit on nil table")
		}
	})

	t.Run("WrapsAllRows", func(t *testing.T) {
		v := NewView(testTable())
		if v.Len() != 4 {
			t.Errorf("expected 4 rows, got %d", v.Len())
		}
	})
}

func TestWhereEq(t *testing.T) {
	table := testTable()

	t.Run("FiltersMatches", func(t *testing.T) {
		v := NewView(table).WhereEq(domain.ColAgeBracket, "bis 40 Jahre")
		if v.Len() != 3 {
			t.Errorf("expected 3 rows, got %d", v.Len())
		}
	})

	t.Run("TrimmedCaseInsensitive", func(t *testing.T) {
		v := NewView(table).WhereEq(domain.ColHouseholdType, "  PAAR ")
		if v.Len() != 3 {
			t.Errorf("expected 3 rows, got %d", v.Len())
		}
	})

	t.Run("MissingColumnMatchesNothing", func(t *testing.T) {
		v := NewView(table).WhereEq(domain.ColZone, "Europa")
		if !v.Empty() {
			t.Errorf("expected empty view for absent column, got %d rows", v.Len())
		}
	})

	t.Run("Conjunction", func(t *testing.T) {
		v := NewView(table).
			WhereEq(domain.ColAgeBracket, "bis 40 Jahre").
			WhereEq(domain.ColHouseholdType, "Paar")
		if v.Len() != 2 {
			t.Errorf("expected 2 rows, got %d", v.Len())
		}
	})
}

func TestWhereCeilingAtLeast(t *testing.T) {
	table := testTable()

	t.Run("CeilingIsInclusive", func(t *testing.T) {
		v := NewView(table).WhereCeilingAtLeast(800)
		if v.Len() != 3 {
			t.Errorf("expected 3 rows at price 800, got %d", v.Len())
		}
	})

	t.Run("AbovePricedBands", func(t *testing.T) {
		v := NewView(table).WhereCeilingAtLeast(2000)
		if !v.Empty() {
			t.Errorf("expected no rows above all ceilings, got %d", v.Len())
		}
	})
}

func TestFirstHit(t *testing.T) {
	t.Run("TightestCeilingWins", func(t *testing.T) {
		// Rows are stored 800 before 500; the sort must pick 500 anyway
		v := NewView(testTable()).
			WhereEq(domain.ColAgeBracket, "bis 40 Jahre").
			WhereEq(domain.ColHouseholdType, "Paar").
			WhereCeilingAtLeast(450)

		row, ok := v.FirstHit()
		if !ok {
			t.Fatal("expected a hit")
		}
		if *row.TariffCode != "A500" {
			t.Errorf("expected A500 to win, got %s", *row.TariffCode)
		}
	})

	t.Run("LoadOrderWithoutCeilingColumn", func(t *testing.T) {
		table := &domain.RateTable{
			Product: domain.MedicalAnnualWith,
			Columns: []domain.Column{domain.ColAgeBracket, domain.ColRate},
			Rows: []domain.Row{
				{AgeBracket: sp("bis 40 Jahre"), Rate: fp(10)},
				{AgeBracket: sp("bis 40 Jahre"), Rate: fp(20)},
			},
		}

		row, ok := NewView(table).FirstHit()
		if !ok {
			t.Fatal("expected a hit")
		}
		if *row.Rate != 10 {
			t.Errorf("expected first loaded row, got rate %v", *row.Rate)
		}
	})

	t.Run("SortDoesNotMutateTable", func(t *testing.T) {
		table := testTable()
		v := NewView(table).WhereCeilingAtLeast(0)
		v.FirstHit()

		if *table.Rows[0].PriceCeiling != 800 {
			t.Errorf("table row order changed: first ceiling is %v", *table.Rows[0].PriceCeiling)
		}
	})
}

func TestWhereNumericAtMost(t *testing.T) {
	v := NewView(testTable()).WhereNumericAtMost(domain.ColRate, 48)
	if v.Len() != 2 {
		t.Errorf("expected 2 rows with rate <= 48, got %d", v.Len())
	}
}

func TestRowsReturnsCopy(t *testing.T) {
	v := NewView(testTable())
	rows := v.Rows()
	rows[0] = domain.Row{}

	again := v.Rows()
	if again[0].PriceCeiling == nil {
		t.Error("mutating the returned slice leaked into the view")
	}
}
