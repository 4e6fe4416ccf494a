package classify

import (
	"testing"
	"time"

	"github.com/reisewerk/tariffkit/internal/domain"
)

func group(t *testing.T, ages ...int) domain.TravelerGroup {
	t.Helper()
	g, err := domain.NewTravelerGroup(ages)
	if err != nil {
		t.Fatalf("failed to build traveler group: %v", err)
	}
	return g
}

func TestAgeBracket(t *testing.T) {
	tests := []struct {
		age      int
		expected domain.AgeBracket
	}{
		{1, domain.AgeBracketTo40},
		{39, domain.AgeBracketTo40},
		{40, domain.AgeBracketTo40},
		{41, domain.AgeBracket41To64},
		{64, domain.AgeBracket41To64},
		{65, domain.AgeBracketFrom65},
		{99, domain.AgeBracketFrom65},
	}

	for _, tt := range tests {
		if got := AgeBracket(tt.age); got != tt.expected {
			t.Errorf("AgeBracket(%d) = %q, want %q", tt.age, got, tt.expected)
		}
	}
}

func TestHouseholdType(t *testing.T) {
	tests := []struct {
		name     string
		ages     []int
		expected domain.HouseholdType
	}{
		{"Single", []int{30}, domain.HouseholdSingle},
		{"Couple", []int{30, 32}, domain.HouseholdCouple},
		{"TwoUnrelatedAdults", []int{30, 70}, domain.HouseholdCouple},
		{"Family", []int{40, 38, 10}, domain.HouseholdFamily},
		{"LargeFamily", []int{40, 38, 10, 8, 5}, domain.HouseholdFamily},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HouseholdType(group(t, tt.ages...)); got != tt.expected {
				t.Errorf("HouseholdType(%v) = %q, want %q", tt.ages, got, tt.expected)
			}
		})
	}
}

func TestZoneFromSelection(t *testing.T) {
	tests := []struct {
		input    string
		expected domain.Zone
	}{
		{"Europa", domain.ZoneEurope},
		{"europa", domain.ZoneEurope},
		{" Europe ", domain.ZoneEurope},
		{"Welt", domain.ZoneWorld},
		{"world", domain.ZoneWorld},
		{"", domain.ZoneUnknown},
		{"Mars", domain.ZoneUnknown},
	}

	for _, tt := range tests {
		if got := ZoneFromSelection(tt.input); got != tt.expected {
			t.Errorf("ZoneFromSelection(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestZoneFromAirport(t *testing.T) {
	tests := []struct {
		code     string
		expected domain.Zone
	}{
		{"PMI", domain.ZoneEurope},
		{"pmi", domain.ZoneEurope},
		{"BKK", domain.ZoneWorld},
		{"XYZ", domain.ZoneUnknown},
		{"", domain.ZoneUnknown},
	}

	for _, tt := range tests {
		if got := ZoneFromAirport(tt.code); got != tt.expected {
			t.Errorf("ZoneFromAirport(%q) = %q, want %q", tt.code, got, tt.expected)
		}
	}
}

func TestCategories(t *testing.T) {
	trip := domain.Trip{
		Start: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 7, 14, 0, 0, 0, 0, time.UTC),
		Price: 1200,
		Zone:  domain.ZoneEurope,
	}

	// The oldest traveler drives the bracket for the whole group
	cats := Categories(group(t, 35, 67), trip)

	if cats.AgeBracket != domain.AgeBracketFrom65 {
		t.Errorf("expected %q, got %q", domain.AgeBracketFrom65, cats.AgeBracket)
	}
	if cats.HouseholdType != domain.HouseholdCouple {
		t.Errorf("expected %q, got %q", domain.HouseholdCouple, cats.HouseholdType)
	}
	if cats.Zone != domain.ZoneEurope {
		t.Errorf("expected %q, got %q", domain.ZoneEurope, cats.Zone)
	}
}
