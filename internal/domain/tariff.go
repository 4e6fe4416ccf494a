package domain

// Column names a rate-schedule column. The canonical names mirror the
// headers of the production rate workbook; matching against row values
// is always trimmed and case-insensitive.
type Column string

const (
	ColPriceCeiling  Column = "Reisepreis bis"
	ColAgeBracket    Column = "Altersgruppe"
	ColHouseholdType Column = "Personengruppe"
	ColZone          Column = "Zielgebiet"
	ColRate          Column = "Prämie"
	ColDailyRate     Column = "Tagesprämie"
	ColTariffCode    Column = "Tarifcode"
)

// Row is one line of a rate schedule. Fields are pointers because not
// every table carries every column; an absent column stays nil and any
// predicate over it is unsatisfiable rather than a crash.
type Row struct {
	PriceCeiling  *float64 `json:"priceCeiling,omitempty"`
	AgeBracket    *string  `json:"ageBracket,omitempty"`
	HouseholdType *string  `json:"householdType,omitempty"`
	Zone          *string  `json:"zone,omitempty"`
	Rate          *float64 `json:"rate,omitempty"`
	DailyRate     *float64 `json:"dailyRate,omitempty"`
	TariffCode    *string  `json:"tariffCode,omitempty"`
}

// RateTable is the immutable rate schedule for one product variant.
// Tables are loaded once and shared read-only across quote requests;
// nothing mutates a table after load.
type RateTable struct {
	Product ProductKey `json:"product"`
	Columns []Column   `json:"columns"`
	Rows    []Row      `json:"rows"`
}

// HasColumn reports whether the schedule carries the named column.
func (t *RateTable) HasColumn(c Column) bool {
	for _, col := range t.Columns {
		if col == c {
			return true
		}
	}
	return false
}

// RateTableSet holds the full schedule, one table per product variant.
// It is passed explicitly into the resolver; there is no ambient
// global table state.
type RateTableSet map[ProductKey]*RateTable

// Table returns the schedule for a product, or nil if it was never
// loaded. A missing table resolves every lookup to no-match.
func (s RateTableSet) Table(p ProductKey) *RateTable {
	return s[p]
}

// ResolvedRate is the transient outcome of one successful lookup.
// RawValue below 1.0 is a fraction of the trip price; 1.0 and above is
// a flat amount. The magnitude is the only type tag the schedule has.
type ResolvedRate struct {
	RawValue   float64 `json:"rawValue"`
	TariffCode string  `json:"tariffCode"`
}

// SentinelNoRate is the display value for a lookup that matched no
// row. It is a normal outcome, never an error.
const SentinelNoRate = "–"

// ProductGroup is the insurance line.
type ProductGroup string

const (
	GroupCancellation ProductGroup = "Reiserücktritt"
	GroupMedical      ProductGroup = "Reisekranken"
	GroupAllInclusive ProductGroup = "RundumSorglos"
)

// Term is the contract length variant.
type Term string

const (
	TermSingle        Term = "Einmal"
	TermAnnual        Term = "Jahres"
	TermAnnualEconomy Term = "Sparfuchs"
)

// ProductKey identifies one of the fourteen rate tables. The values
// are the sheet codes of the production workbook.
type ProductKey string

const (
	CancellationSingleWith     ProductKey = "rrv-ev-mit"
	CancellationSingleWithout  ProductKey = "rrv-ev-ohne"
	CancellationAnnualWith     ProductKey = "rrv-jv-mit"
	CancellationAnnualWithout  ProductKey = "rrv-jv-ohne"
	CancellationEconomyWith    ProductKey = "rrv-jv-spf-mit"
	CancellationEconomyWithout ProductKey = "rrv-jv-spf-ohne"
	MedicalSingleWith          ProductKey = "kv-ev-mit"
	MedicalSingleWithout       ProductKey = "kv-ev-ohne"
	MedicalAnnualWith          ProductKey = "kv-jv-mit"
	MedicalAnnualWithout       ProductKey = "kv-jv-ohne"
	AllInclusiveSingleWith     ProductKey = "rus-ev-mit"
	AllInclusiveSingleWithout  ProductKey = "rus-ev-ohne"
	AllInclusiveAnnualWith     ProductKey = "rus-jv-mit"
	AllInclusiveAnnualWithout  ProductKey = "rus-jv-ohne"
)

// ProductSpec describes one product variant.
type ProductSpec struct {
	Key        ProductKey   `json:"key"`
	Group      ProductGroup `json:"group"`
	Term       Term         `json:"term"`
	Deductible bool         `json:"deductible"` // with deductible (mit SB)

	// Placeholder is the offer-template key this variant's premium is
	// substituted into.
	Placeholder string `json:"placeholder"`
}

// products is the fixed catalog in presentation order: cancellation
// (single, annual, economy), medical (single, annual), all-inclusive
// (single, annual), each with/without deductible.
var products = []ProductSpec{
	{CancellationSingleWith, GroupCancellation, TermSingle, true, "Reiseruecktritt_Einmal_mit_SB"},
	{CancellationSingleWithout, GroupCancellation, TermSingle, false, "Reiseruecktritt_Einmal_ohne_SB"},
	{CancellationAnnualWith, GroupCancellation, TermAnnual, true, "Reiseruecktritt_Jahres_mit_SB"},
	{CancellationAnnualWithout, GroupCancellation, TermAnnual, false, "Reiseruecktritt_Jahres_ohne_SB"},
	{CancellationEconomyWith, GroupCancellation, TermAnnualEconomy, true, "Reiseruecktritt_Jahres_Sparfuchs_mit_SB"},
	{CancellationEconomyWithout, GroupCancellation, TermAnnualEconomy, false, "Reiseruecktritt_Jahres_Sparfuchs_ohne_SB"},
	{MedicalSingleWith, GroupMedical, TermSingle, true, "Reisekranken_Einmal_mit_SB"},
	{MedicalSingleWithout, GroupMedical, TermSingle, false, "Reisekranken_Einmal_ohne_SB"},
	{MedicalAnnualWith, GroupMedical, TermAnnual, true, "Reisekranken_Jahres_mit_SB"},
	{MedicalAnnualWithout, GroupMedical, TermAnnual, false, "Reisekranken_Jahres_ohne_SB"},
	{AllInclusiveSingleWith, GroupAllInclusive, TermSingle, true, "RundumSorglos_Einmal_mit_SB"},
	{AllInclusiveSingleWithout, GroupAllInclusive, TermSingle, false, "RundumSorglos_Einmal_ohne_SB"},
	{AllInclusiveAnnualWith, GroupAllInclusive, TermAnnual, true, "RundumSorglos_Jahres_mit_SB"},
	{AllInclusiveAnnualWithout, GroupAllInclusive, TermAnnual, false, "RundumSorglos_Jahres_ohne_SB"},
}

// Products returns the fourteen product variants in fixed order.
func Products() []ProductSpec {
	out := make([]ProductSpec, len(products))
	copy(out, products)
	return out
}

// ProductByKey looks up a product spec.
func ProductByKey(key ProductKey) (ProductSpec, bool) {
	for _, p := range products {
		if p.Key == key {
			return p, true
		}
	}
	return ProductSpec{}, false
}

// TariffQuery is a saved back-office CEL expression evaluated against
// the rows of one product table.
type TariffQuery struct {
	ID          string     `json:"id"`
	AgencyID    string     `json:"agencyId"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Product     ProductKey `json:"product"`

	// CEL expression over row columns; must return bool
	Expression string `json:"expression"`

	Enabled bool `json:"enabled"`
}
