// Package classify maps raw traveler and trip attributes to the
// rating categories used by the rate schedules.
package classify

import (
	"strings"

	"github.com/reisewerk/tariffkit/internal/domain"
)

// AgeBracket returns the rating age band for the oldest traveler.
// The breakpoints 40 and 64 are inclusive upper bounds.
func AgeBracket(maxAge int) domain.AgeBracket {
	switch {
	case maxAge <= 40:
		return domain.AgeBracketTo40
	case maxAge <= 64:
		return domain.AgeBracket41To64
	default:
		return domain.AgeBracketFrom65
	}
}

// HouseholdType returns the rating group for a traveler group.
// The rule is headcount only: two travelers rate as Paar whether or
// not they are a couple.
func HouseholdType(group domain.TravelerGroup) domain.HouseholdType {
	switch group.Headcount() {
	case 1:
		return domain.HouseholdSingle
	case 2:
		return domain.HouseholdCouple
	default:
		return domain.HouseholdFamily
	}
}

// ZoneFromSelection maps an explicit zone choice from the fixed
// two-option set to the rating zone. Unrecognized input yields
// ZoneUnknown, which no schedule row matches.
func ZoneFromSelection(selection string) domain.Zone {
	switch strings.ToLower(strings.TrimSpace(selection)) {
	case "europa", "europe":
		return domain.ZoneEurope
	case "welt", "world":
		return domain.ZoneWorld
	default:
		return domain.ZoneUnknown
	}
}

// Airport code sets for callers that only know the destination
// airport. Deliberately small: the schedule only distinguishes
// Europe from World, so only common charter destinations are listed.
var (
	europeAirports = map[string]struct{}{
		"PMI": {}, "LPA": {}, "TFS": {}, "FUE": {}, "ACE": {},
		"AGP": {}, "ALC": {}, "BCN": {}, "FAO": {}, "LIS": {},
		"HER": {}, "RHO": {}, "KGS": {}, "CFU": {}, "ATH": {},
		"AYT": {}, "IST": {}, "ADB": {}, "FCO": {}, "VCE": {},
		"NAP": {}, "OLB": {}, "CAG": {}, "SPU": {}, "DBV": {},
	}
	worldAirports = map[string]struct{}{
		"BKK": {}, "HKT": {}, "DPS": {}, "MLE": {}, "CMB": {},
		"PUJ": {}, "CUN": {}, "MBJ": {}, "VRA": {}, "HAV": {},
		"DXB": {}, "AUH": {}, "CPT": {}, "MRU": {}, "SEZ": {},
		"JFK": {}, "MIA": {}, "LAX": {}, "SYD": {}, "NRT": {},
	}
)

// ZoneFromAirport maps an IATA airport code to the rating zone, with
// ZoneUnknown as fallback for codes in neither set.
func ZoneFromAirport(code string) domain.Zone {
	c := strings.ToUpper(strings.TrimSpace(code))
	if _, ok := europeAirports[c]; ok {
		return domain.ZoneEurope
	}
	if _, ok := worldAirports[c]; ok {
		return domain.ZoneWorld
	}
	return domain.ZoneUnknown
}

// Categories derives all rating categories for one request.
func Categories(group domain.TravelerGroup, trip domain.Trip) domain.RatingCategories {
	return domain.RatingCategories{
		AgeBracket:    AgeBracket(group.MaxAge()),
		HouseholdType: HouseholdType(group),
		Zone:          trip.Zone,
	}
}
