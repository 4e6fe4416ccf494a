// Benchmark tool for testing tariffkit against reference bookings.
//
// Usage:
//   go run cmd/benchmark/main.go -csv /path/to/bookings.csv -url http://localhost:8080
//
// This tool:
//  1. Reads historical booking data with known premiums
//  2. Sends each booking to tariffkit for quotation
//  3. Compares the computed premium with the reference premium
//  4. Reports match rate, mismatches, latency and throughput
//
// The CSV needs a header with the columns: ages, start, end, price,
// zone, product, expected. "product" is the variant key (e.g.
// rrv-ev-mit) and "expected" the reference display value, either a
// premium like "60,00 € (RRV10)" or "–" for a known no-rate case.
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// ReferenceBooking represents a row from the reference dataset
type ReferenceBooking struct {
	Ages     string
	Start    string
	End      string
	Price    string
	Zone     string
	Product  string
	Expected string
}

// QuoteSubmission is the tariffkit API request format
type QuoteSubmission struct {
	Ages  string `json:"ages"`
	Start string `json:"start"`
	End   string `json:"end"`
	Price string `json:"price"`
	Zone  string `json:"zone,omitempty"`
}

// QuoteResult is the slice of the tariffkit API response we compare
type QuoteResult struct {
	Quote struct {
		ID      string `json:"id"`
		Results map[string]struct {
			Matched bool   `json:"matched"`
			Display string `json:"display"`
		} `json:"results"`
	} `json:"quote"`
}

// Metrics tracks benchmark results
type Metrics struct {
	Matches    int64 // Computed display equals the reference
	Mismatches int64 // Computed display differs
	NoProduct  int64 // Response carried no result for the product

	TotalProcessed int64
	TotalErrors    int64

	ProcessingTimeMs int64
}

type mismatch struct {
	booking  ReferenceBooking
	computed string
}

func main() {
	// Parse flags
	csvPath := flag.String("csv", "", "Path to reference bookings CSV file")
	baseURL := flag.String("url", "http://localhost:8080", "Tariffkit base URL")
	agencyID := flag.String("agency", "benchmark-test", "Agency ID for requests")
	limit := flag.Int("limit", 10000, "Maximum bookings to process (0 = all)")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	verbose := flag.Bool("verbose", false, "Print each booking result")
	flag.Parse()

	if *csvPath == "" {
		fmt.Println("Usage: benchmark -csv /path/to/bookings.csv [-url http://localhost:8080]")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║        TARIFFKIT BENCHMARK - Reference Booking Replay         ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nCSV File:      %s\n", *csvPath)
	fmt.Printf("Tariffkit URL: %s\n", *baseURL)
	fmt.Printf("Agency ID:     %s\n", *agencyID)
	fmt.Printf("Workers:       %d\n", *workers)
	fmt.Printf("Limit:         %d\n", *limit)
	fmt.Println()

	// Check tariffkit is running
	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: tariffkit not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure tariffkit is running:")
		fmt.Println("  cd tariffkit && go run cmd/tariffkit/main.go")
		os.Exit(1)
	}
	fmt.Println("✓ tariffkit is healthy")

	// Read reference data
	fmt.Printf("\nReading reference bookings from %s...\n", *csvPath)
	bookings, err := readBookingsCSV(*csvPath, *limit)
	if err != nil {
		fmt.Printf("ERROR: Failed to read CSV: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Loaded %d bookings\n", len(bookings))

	// Run benchmark
	fmt.Printf("\nRunning benchmark with %d workers...\n", *workers)
	startTime := time.Now()
	metrics, mismatches := runBenchmark(bookings, *baseURL, *agencyID, *workers, *verbose)
	duration := time.Since(startTime)

	// Print results
	printResults(metrics, mismatches, duration)
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func readBookingsCSV(path string, limit int) ([]ReferenceBooking, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)

	// Read header
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	// Map column indices
	colIndex := make(map[string]int)
	for i, col := range header {
		colIndex[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for _, required := range []string{"ages", "start", "end", "price", "product", "expected"} {
		if _, ok := colIndex[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	field := func(record []string, name string) string {
		if i, ok := colIndex[name]; ok && i < len(record) {
			return strings.TrimSpace(record[i])
		}
		return ""
	}

	var bookings []ReferenceBooking
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // Skip malformed rows
		}

		bookings = append(bookings, ReferenceBooking{
			Ages:     field(record, "ages"),
			Start:    field(record, "start"),
			End:      field(record, "end"),
			Price:    field(record, "price"),
			Zone:     field(record, "zone"),
			Product:  field(record, "product"),
			Expected: field(record, "expected"),
		})

		if limit > 0 && len(bookings) >= limit {
			break
		}
	}

	return bookings, nil
}

func runBenchmark(bookings []ReferenceBooking, baseURL, agencyID string, numWorkers int, verbose bool) (*Metrics, []mismatch) {
	metrics := &Metrics{}

	var mu sync.Mutex
	var mismatches []mismatch

	// Create work channel
	work := make(chan ReferenceBooking, 100)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 10 * time.Second}

			for booking := range work {
				start := time.Now()
				result, err := requestQuote(client, baseURL, agencyID, booking)
				elapsed := time.Since(start).Milliseconds()

				atomic.AddInt64(&metrics.ProcessingTimeMs, elapsed)
				atomic.AddInt64(&metrics.TotalProcessed, 1)

				if err != nil {
					atomic.AddInt64(&metrics.TotalErrors, 1)
					if verbose {
						fmt.Printf("ERROR: %s %s-%s -> %v\n", booking.Ages, booking.Start, booking.End, err)
					}
					continue
				}

				res, ok := result.Quote.Results[booking.Product]
				if !ok {
					atomic.AddInt64(&metrics.NoProduct, 1)
					continue
				}

				matched := res.Display == booking.Expected
				if matched {
					atomic.AddInt64(&metrics.Matches, 1)
				} else {
					atomic.AddInt64(&metrics.Mismatches, 1)
					mu.Lock()
					if len(mismatches) < 20 {
						mismatches = append(mismatches, mismatch{booking: booking, computed: res.Display})
					}
					mu.Unlock()
				}

				if verbose {
					status := "✓"
					if !matched {
						status = "✗"
					}
					fmt.Printf("%s %-14s | %s - %s | %10s | %-14s | expected %-20s | got %s\n",
						status,
						booking.Ages,
						booking.Start,
						booking.End,
						booking.Price,
						booking.Product,
						booking.Expected,
						res.Display,
					)
				}
			}
		}()
	}

	// Send work
	for _, booking := range bookings {
		work <- booking
	}
	close(work)

	// Wait for completion
	wg.Wait()

	return metrics, mismatches
}

func requestQuote(client *http.Client, baseURL, agencyID string, booking ReferenceBooking) (*QuoteResult, error) {
	req := QuoteSubmission{
		Ages:  booking.Ages,
		Start: booking.Start,
		End:   booking.End,
		Price: booking.Price,
		Zone:  booking.Zone,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequest(http.MethodPost, baseURL+"/quote", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Agency-ID", agencyID)

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var result QuoteResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return &result, nil
}

func printResults(m *Metrics, mismatches []mismatch, duration time.Duration) {
	fmt.Println("\n╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                      BENCHMARK RESULTS                        ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")

	fmt.Printf("\n📊 DATASET STATISTICS\n")
	fmt.Printf("   Total Processed:  %d\n", m.TotalProcessed)
	fmt.Printf("   Matches:          %d\n", m.Matches)
	fmt.Printf("   Mismatches:       %d\n", m.Mismatches)
	fmt.Printf("   Unknown Product:  %d\n", m.NoProduct)
	fmt.Printf("   Errors:           %d\n", m.TotalErrors)

	compared := m.Matches + m.Mismatches
	if compared > 0 {
		matchRate := float64(m.Matches) / float64(compared) * 100
		fmt.Printf("\n🎯 CORRECTNESS\n")
		fmt.Printf("   Match Rate:  %.2f%%  (%d / %d compared)\n", matchRate, m.Matches, compared)
	}

	if len(mismatches) > 0 {
		fmt.Printf("\n🔍 FIRST MISMATCHES\n")
		for _, mm := range mismatches {
			fmt.Printf("   %s | %s - %s | %s | %s: expected %q, got %q\n",
				mm.booking.Ages, mm.booking.Start, mm.booking.End, mm.booking.Price,
				mm.booking.Product, mm.booking.Expected, mm.computed)
		}
	}

	fmt.Printf("\n⏱️  PERFORMANCE\n")
	fmt.Printf("   Total Duration:   %v\n", duration.Round(time.Millisecond))
	if m.TotalProcessed > 0 {
		avgMs := float64(m.ProcessingTimeMs) / float64(m.TotalProcessed)
		qps := float64(m.TotalProcessed) / duration.Seconds()
		fmt.Printf("   Avg Latency:      %.2f ms\n", avgMs)
		fmt.Printf("   Throughput:       %.2f quotes/sec\n", qps)
	}

	// Interpretation
	if compared > 0 {
		matchRate := float64(m.Matches) / float64(compared)
		fmt.Printf("\n💡 INTERPRETATION\n")
		if matchRate >= 0.999 {
			fmt.Println("   ✅ Computed premiums match the reference bookings")
		} else if matchRate >= 0.95 {
			fmt.Println("   ⚠️  Small drift against the reference - check the mismatches above")
		} else {
			fmt.Println("   ❌ Significant drift - the loaded rate schedule likely differs")
		}
	}

	fmt.Println()
}
