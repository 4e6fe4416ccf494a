//go:build integration
// +build integration

// Package integration provides end-to-end tests for the tariffkit
// quotation engine.
//
// These tests verify the COMPLETE quotation pipeline:
//
//	Booking input → Classification → Rate resolution → Premium → Display
//
// Run with: go test -tags=integration -v ./tests/integration/...
//
// UNDERSTANDING THE DOMAIN:
//
// 1. BOOKING: Traveler ages, travel dates, trip price and destination
//    zone, entered in the shorthand travel agents use ("45 48", "0107").
//
// 2. CLASSIFICATION: The oldest traveler picks the age bracket
//    (bis 40 / 41-64 / ab 65), the headcount picks the household type
//    (1 = Einzelperson, 2 = Paar, 3+ = Familie).
//
// 3. RESOLUTION: Each of the 14 product variants filters its own rate
//    table by the conditions that variant rates on. Among qualifying
//    price bands the tightest ceiling wins.
//
// 4. PREMIUM: A raw rate below 1.0 is a fraction of the trip price,
//    1.0 and above is a flat amount. Per-diem medical variants price
//    daily rate times travel days first.
//
// 5. DISPLAY: "60,00 € (RRV10)" per resolved premium; "–" for a
//    variant whose schedule had no qualifying row. A miss is a normal
//    outcome, never an error.
//
// REQUIRED SCHEDULE (must be ingested before running tests):
//
// Run tariffkit with the test workbook (TARIFFKIT_WORKBOOK), which
// carries at least the rrv-ev-mit sheet:
//
// | Reisepreis bis | Prämie | Tarifcode |
// |----------------|--------|-----------|
// |            500 |     30 | RRV05     |
// |           1000 |     60 | RRV10     |
//
// NOTE: The schedule is database-driven after the first ingest. No
// built-in tariffs exist.
package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"testing"
	"time"
)

// TestConfig holds test environment configuration
type TestConfig struct {
	BaseURL  string
	AgencyID string
}

func getTestConfig() TestConfig {
	baseURL := os.Getenv("TARIFFKIT_TEST_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return TestConfig{
		BaseURL:  baseURL,
		AgencyID: "test-agency",
	}
}

// ============================================================================
// API Request/Response Types (matching tariffkit's API contract)
// ============================================================================

// QuoteSubmission is the booking sent to POST /quote
type QuoteSubmission struct {
	CustomerName string `json:"customerName,omitempty"`
	Ages         string `json:"ages"`
	Start        string `json:"start"`
	End          string `json:"end"`
	Price        string `json:"price"`
	Zone         string `json:"zone,omitempty"`
}

// QuoteResponse is what POST /quote returns
type QuoteResponse struct {
	Quote struct {
		ID         string `json:"id"`
		AgencyID   string `json:"agencyId"`
		Ages       []int  `json:"ages"`
		Categories struct {
			AgeBracket    string `json:"ageBracket"`
			HouseholdType string `json:"householdType"`
			Zone          string `json:"zone"`
		} `json:"categories"`
		Results  map[string]PremiumResult `json:"results"`
		Metadata ResponseMetadata         `json:"metadata"`
	} `json:"quote"`
	Table []TableRow `json:"table"`
}

type PremiumResult struct {
	Product    string  `json:"product"`
	Matched    bool    `json:"matched"`
	Amount     float64 `json:"amount"`
	TariffCode string  `json:"tariffCode"`
	Display    string  `json:"display"`
}

type TableRow struct {
	Group          string `json:"group"`
	Term           string `json:"term"`
	WithDeductible string `json:"withDeductible"`
	NoDeductible   string `json:"noDeductible"`
}

type ResponseMetadata struct {
	TraceID       string `json:"traceId"`
	TotalMs       int64  `json:"totalMs"`
	Resolved      int    `json:"resolved"`
	Missed        int    `json:"missed"`
	EngineVersion string `json:"engineVersion"`
}

const sentinel = "–"

// ============================================================================
// Test Helper Functions
// ============================================================================

func quote(t *testing.T, config TestConfig, req QuoteSubmission) QuoteResponse {
	t.Helper()

	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}

	httpReq, err := http.NewRequest("POST", config.BaseURL+"/quote", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Agency-ID", config.AgencyID)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(httpReq)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.StatusCode, string(respBody))
	}

	var result QuoteResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		t.Fatalf("Failed to unmarshal response: %v (body: %s)", err, string(respBody))
	}

	return result
}

func postQuote(t *testing.T, config TestConfig, req QuoteSubmission, withAgency bool) *http.Response {
	t.Helper()

	body, _ := json.Marshal(req)
	httpReq, _ := http.NewRequest("POST", config.BaseURL+"/quote", bytes.NewReader(body))
	httpReq.Header.Set("Content-Type", "application/json")
	if withAgency {
		httpReq.Header.Set("X-Agency-ID", config.AgencyID)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(httpReq)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	return resp
}

// ============================================================================
// SCENARIO 1: Known Booking (Reference Premium)
// ============================================================================

func TestKnownBooking_ReferencePremium(t *testing.T) {
	/*
	   SCENARIO: A couple (45, 48), two weeks in July, 800 € trip, Europa

	   EXPECTED BEHAVIOR:
	   - Age bracket: oldest is 48 → "41–64 Jahre"
	   - Household: 2 travelers → "Paar"
	   - rrv-ev-mit rates on the price ceiling only: 800 ≤ 1000 → the
	     1000 band wins (500 is too tight), raw value 60 is ≥ 1.0 so flat

	   FINAL PREMIUM: "60,00 € (RRV10)"
	*/
	config := getTestConfig()

	req := QuoteSubmission{
		CustomerName: "Integration Mustermann",
		Ages:         "45 48",
		Start:        "01.07.2026",
		End:          "14.07.2026",
		Price:        "800",
		Zone:         "Europa",
	}

	result := quote(t, config, req)

	// ASSERTIONS
	if result.Quote.Categories.AgeBracket != "41–64 Jahre" {
		t.Errorf("Expected bracket 41–64 Jahre, got %q", result.Quote.Categories.AgeBracket)
	}
	if result.Quote.Categories.HouseholdType != "Paar" {
		t.Errorf("Expected Paar, got %q", result.Quote.Categories.HouseholdType)
	}

	rrv := result.Quote.Results["rrv-ev-mit"]
	if !rrv.Matched {
		t.Fatalf("Expected rrv-ev-mit to resolve, got %+v", rrv)
	}
	if rrv.Display != "60,00 € (RRV10)" {
		t.Errorf("Expected 60,00 € (RRV10), got %q", rrv.Display)
	}

	t.Logf("✓ Known booking quoted: %s", rrv.Display)
}

// ============================================================================
// SCENARIO 2: Full Comparison Shape
// ============================================================================

func TestFullComparison_FourteenResults(t *testing.T) {
	/*
	   SCENARIO: Any valid booking returns the complete comparison

	   EXPECTED BEHAVIOR:
	   - Exactly 14 results, one per product variant
	   - resolved + missed == 14
	   - The grouped table has exactly 7 rows (one per group/term pair)
	   - Every cell is a premium string or the "–" sentinel; a variant
	     with no qualifying row is a value, not an error
	*/
	config := getTestConfig()

	result := quote(t, config, QuoteSubmission{
		Ages:  "30",
		Start: "01.07.2026",
		End:   "08.07.2026",
		Price: "450",
		Zone:  "Europa",
	})

	if len(result.Quote.Results) != 14 {
		t.Errorf("Expected 14 results, got %d", len(result.Quote.Results))
	}
	if got := result.Quote.Metadata.Resolved + result.Quote.Metadata.Missed; got != 14 {
		t.Errorf("Expected resolved+missed == 14, got %d", got)
	}
	if len(result.Table) != 7 {
		t.Errorf("Expected 7 table rows, got %d", len(result.Table))
	}

	for key, res := range result.Quote.Results {
		if !res.Matched && res.Display != sentinel {
			t.Errorf("%s: miss must display the sentinel, got %q", key, res.Display)
		}
		if res.Matched && res.Display == sentinel {
			t.Errorf("%s: hit must not display the sentinel", key)
		}
	}

	t.Logf("✓ Comparison complete: %d resolved, %d missed",
		result.Quote.Metadata.Resolved, result.Quote.Metadata.Missed)
}

// ============================================================================
// SCENARIO 3: Shorthand Input Equivalence
// ============================================================================

func TestShorthandDates_SamePremiums(t *testing.T) {
	/*
	   SCENARIO: The booking mask accepts "01072026" for "01.07.2026"

	   EXPECTED BEHAVIOR: Identical premiums for both notations, and
	   "800" versus the German "800,00" parse to the same price.
	*/
	config := getTestConfig()

	dotted := quote(t, config, QuoteSubmission{
		Ages: "45 48", Start: "01.07.2026", End: "14.07.2026", Price: "800", Zone: "Europa",
	})
	digits := quote(t, config, QuoteSubmission{
		Ages: "45,48", Start: "01072026", End: "14072026", Price: "800,00", Zone: "Europa",
	})

	for key, want := range dotted.Quote.Results {
		got := digits.Quote.Results[key]
		if got.Display != want.Display {
			t.Errorf("%s: dotted %q != digits %q", key, want.Display, got.Display)
		}
	}

	t.Logf("✓ Shorthand notations quote identically")
}

// ============================================================================
// SCENARIO 4: Price Above Every Ceiling
// ============================================================================

func TestPriceAboveCeilings_Sentinel(t *testing.T) {
	/*
	   SCENARIO: A trip price above the highest schedule band

	   EXPECTED BEHAVIOR:
	   - Every price-conditioned variant misses and shows "–"
	   - The request still succeeds with HTTP 200; an uncovered price
	     is an underwriting gap, not an input error
	*/
	config := getTestConfig()

	result := quote(t, config, QuoteSubmission{
		Ages:  "30",
		Start: "01.07.2026",
		End:   "08.07.2026",
		Price: "999999",
		Zone:  "Europa",
	})

	rrv := result.Quote.Results["rrv-ev-mit"]
	if rrv.Matched || rrv.Display != sentinel {
		t.Errorf("Expected sentinel above all ceilings, got %+v", rrv)
	}

	t.Logf("✓ Uncovered price degraded to sentinel: resolved=%d", result.Quote.Metadata.Resolved)
}

// ============================================================================
// SCENARIO 5: Unknown Destination Zone
// ============================================================================

func TestUnknownZone_ZonedVariantsMiss(t *testing.T) {
	/*
	   SCENARIO: Booking without a destination zone

	   EXPECTED BEHAVIOR:
	   - Variants that rate on the zone (single-trip medical and
	     all-inclusive) can never match
	   - Variants that do not rate on the zone are unaffected
	*/
	config := getTestConfig()

	result := quote(t, config, QuoteSubmission{
		Ages:  "30",
		Start: "01.07.2026",
		End:   "08.07.2026",
		Price: "450",
		// No zone
	})

	for _, key := range []string{"kv-ev-mit", "kv-ev-ohne", "rus-ev-mit", "rus-ev-ohne"} {
		if res := result.Quote.Results[key]; res.Matched {
			t.Errorf("%s: expected miss without a zone, got %q", key, res.Display)
		}
	}

	t.Logf("✓ Zoned variants miss without a destination")
}

// ============================================================================
// SCENARIO 6: Quote Persistence and Agency Isolation
// ============================================================================

func TestQuotePersistence(t *testing.T) {
	/*
	   SCENARIO: A computed quote is retrievable by ID, but only within
	   the agency that requested it.
	*/
	config := getTestConfig()

	created := quote(t, config, QuoteSubmission{
		Ages: "30", Start: "01.07.2026", End: "08.07.2026", Price: "450", Zone: "Europa",
	})
	if created.Quote.ID == "" {
		t.Fatal("Missing quote id")
	}

	client := &http.Client{Timeout: 10 * time.Second}

	t.Run("SameAgency", func(t *testing.T) {
		httpReq, _ := http.NewRequest("GET", config.BaseURL+"/quotes/"+created.Quote.ID, nil)
		httpReq.Header.Set("X-Agency-ID", config.AgencyID)

		resp, err := client.Do(httpReq)
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("Expected 200, got %d", resp.StatusCode)
		}
	})

	t.Run("OtherAgency", func(t *testing.T) {
		httpReq, _ := http.NewRequest("GET", config.BaseURL+"/quotes/"+created.Quote.ID, nil)
		httpReq.Header.Set("X-Agency-ID", "some-other-agency")

		resp, err := client.Do(httpReq)
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("Expected 404 across agencies, got %d", resp.StatusCode)
		}
	})

	t.Logf("✓ Quote %s persisted with agency isolation", created.Quote.ID[:8])
}

// ============================================================================
// SCENARIO 7: Input Validation
// ============================================================================

func TestInvalidAges_Error(t *testing.T) {
	/*
	   SCENARIO: Non-numeric age input

	   EXPECTED: HTTP 400 Bad Request
	*/
	config := getTestConfig()

	resp := postQuote(t, config, QuoteSubmission{
		Ages: "abc", Start: "01.07.2026", End: "08.07.2026", Price: "450",
	}, true)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid ages, got %d", resp.StatusCode)
	}

	t.Logf("✓ Validation test passed: invalid ages → HTTP %d", resp.StatusCode)
}

func TestEndBeforeStart_Error(t *testing.T) {
	/*
	   SCENARIO: Return date before departure

	   EXPECTED: HTTP 400 Bad Request
	*/
	config := getTestConfig()

	resp := postQuote(t, config, QuoteSubmission{
		Ages: "30", Start: "14.07.2026", End: "01.07.2026", Price: "450",
	}, true)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for reversed dates, got %d", resp.StatusCode)
	}

	t.Logf("✓ Validation test passed: reversed dates → HTTP %d", resp.StatusCode)
}

func TestMissingAgencyHeader_Error(t *testing.T) {
	/*
	   SCENARIO: Request without X-Agency-ID header

	   EXPECTED: HTTP 400 Bad Request (agency is a required field, not auth)
	*/
	config := getTestConfig()

	resp := postQuote(t, config, QuoteSubmission{
		Ages: "30", Start: "01.07.2026", End: "08.07.2026", Price: "450",
	}, false)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing agency, got %d", resp.StatusCode)
	}

	t.Logf("✓ Validation test passed: missing agency → HTTP %d", resp.StatusCode)
}

// ============================================================================
// SCENARIO 8: Response Metadata Verification
// ============================================================================

func TestResponseMetadata(t *testing.T) {
	/*
	   SCENARIO: Verify response includes all required metadata

	   This ensures the API contract is stable for clients.
	*/
	config := getTestConfig()

	result := quote(t, config, QuoteSubmission{
		Ages: "30", Start: "01.07.2026", End: "08.07.2026", Price: "450", Zone: "Europa",
	})

	if result.Quote.ID == "" {
		t.Error("Missing quote id")
	}
	if result.Quote.AgencyID != config.AgencyID {
		t.Errorf("Unexpected agencyId: %s", result.Quote.AgencyID)
	}
	if result.Quote.Metadata.TraceID == "" {
		t.Error("Missing metadata.traceId")
	}
	if result.Quote.Metadata.EngineVersion == "" {
		t.Error("Missing metadata.engineVersion")
	}

	// Note: TotalMs can be 0 for very fast operations (sub-millisecond)
	if result.Quote.Metadata.TotalMs < 0 {
		t.Error("Invalid metadata.totalMs (negative)")
	}

	t.Logf("✓ Metadata complete: quoteId=%s, traceId=%s, totalMs=%d",
		result.Quote.ID[:8], result.Quote.Metadata.TraceID[:8], result.Quote.Metadata.TotalMs)
}
