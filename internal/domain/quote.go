package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidInput marks malformed quote input (empty age list, bad
// dates, negative price). It is the only failure the quote pipeline
// surfaces loudly; everything downstream degrades to the no-rate
// sentinel instead.
var ErrInvalidInput = errors.New("invalid input")

// AgeBracket is the rating age band, derived from the oldest traveler.
// Values match the rate-schedule strings.
type AgeBracket string

const (
	AgeBracketTo40   AgeBracket = "bis 40 Jahre"
	AgeBracket41To64 AgeBracket = "41–64 Jahre"
	AgeBracketFrom65 AgeBracket = "ab 65 Jahre"
)

// HouseholdType is the rating group size band. Two travelers rate as
// Paar regardless of their relationship; this is a headcount rule.
type HouseholdType string

const (
	HouseholdSingle HouseholdType = "Einzelperson"
	HouseholdCouple HouseholdType = "Paar"
	HouseholdFamily HouseholdType = "Familie"
)

// Zone is the destination rating zone.
type Zone string

const (
	ZoneEurope  Zone = "Europa"
	ZoneWorld   Zone = "Welt"
	ZoneUnknown Zone = ""
)

// TravelerGroup is the age composition of one quote request,
// immutable once constructed.
type TravelerGroup struct {
	ages []int
}

// NewTravelerGroup validates and builds a traveler group. At least one
// age is required and every age must be positive.
func NewTravelerGroup(ages []int) (TravelerGroup, error) {
	if len(ages) == 0 {
		return TravelerGroup{}, fmt.Errorf("%w: at least one traveler age is required", ErrInvalidInput)
	}
	for _, a := range ages {
		if a <= 0 {
			return TravelerGroup{}, fmt.Errorf("%w: age %d is not positive", ErrInvalidInput, a)
		}
	}
	copied := make([]int, len(ages))
	copy(copied, ages)
	return TravelerGroup{ages: copied}, nil
}

// Ages returns a copy of the traveler ages in input order.
func (g TravelerGroup) Ages() []int {
	out := make([]int, len(g.ages))
	copy(out, g.ages)
	return out
}

// MaxAge returns the oldest traveler's age.
func (g TravelerGroup) MaxAge() int {
	max := 0
	for _, a := range g.ages {
		if a > max {
			max = a
		}
	}
	return max
}

// Headcount returns the number of travelers.
func (g TravelerGroup) Headcount() int {
	return len(g.ages)
}

// Trip holds the travel attributes of a quote request.
type Trip struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Price float64   `json:"price"`
	Zone  Zone      `json:"zone"`
}

// Validate checks the trip invariants: end not before start, price not
// negative.
func (t Trip) Validate() error {
	if t.Start.IsZero() || t.End.IsZero() {
		return fmt.Errorf("%w: travel dates are required", ErrInvalidInput)
	}
	if t.End.Before(t.Start) {
		return fmt.Errorf("%w: trip ends before it starts", ErrInvalidInput)
	}
	if t.Price < 0 {
		return fmt.Errorf("%w: trip price must not be negative", ErrInvalidInput)
	}
	return nil
}

// DurationDays is the inclusive day count of the trip, never below 1:
// a same-day trip is one travel day.
func (t Trip) DurationDays() int {
	days := int(t.End.Sub(t.Start).Hours()/24) + 1
	if days < 1 {
		days = 1
	}
	return days
}

// RatingCategories are the classifier outputs for one request. They
// are derived, never stored on their own.
type RatingCategories struct {
	AgeBracket    AgeBracket    `json:"ageBracket"`
	HouseholdType HouseholdType `json:"householdType"`
	Zone          Zone          `json:"zone"`
}

// QuoteRequest is the validated input for one tariff comparison.
type QuoteRequest struct {
	AgencyID     string        `json:"agencyId"`
	CustomerName string        `json:"customerName"`
	Travelers    TravelerGroup `json:"-"`
	Trip         Trip          `json:"trip"`
}

// PremiumResult is the outcome for one product variant. Matched false
// means the schedule had no qualifying row; Display then carries the
// sentinel.
type PremiumResult struct {
	Product    ProductKey `json:"product"`
	Matched    bool       `json:"matched"`
	Amount     float64    `json:"amount,omitempty"`
	TariffCode string     `json:"tariffCode,omitempty"`
	Display    string     `json:"display"`
}

// Quote is the complete result of one quotation run: fourteen
// independently resolved premiums plus the request context.
type Quote struct {
	ID           string           `json:"id"`
	AgencyID     string           `json:"agencyId"`
	CustomerName string           `json:"customerName"`
	Ages         []int            `json:"ages"`
	Trip         Trip             `json:"trip"`
	Categories   RatingCategories `json:"categories"`

	// Results keyed by product, one entry per catalog variant
	Results map[ProductKey]PremiumResult `json:"results"`

	CreatedAt time.Time     `json:"createdAt"`
	Metadata  QuoteMetadata `json:"metadata"`
}

// QuoteMetadata carries processing information.
type QuoteMetadata struct {
	TraceID       string `json:"traceId"`
	TotalMs       int64  `json:"totalMs"`
	Resolved      int    `json:"resolved"`
	Missed        int    `json:"missed"`
	EngineVersion string `json:"engineVersion"`
}
