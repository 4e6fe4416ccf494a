package worker

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/reisewerk/tariffkit/internal/bus"
	"github.com/reisewerk/tariffkit/internal/domain"
	"github.com/reisewerk/tariffkit/internal/quote"
)

func testTables() domain.RateTableSet {
	ceiling := 1000.0
	rate := 60.0
	code := "RRV10"

	return domain.RateTableSet{
		domain.CancellationSingleWith: {
			Product: domain.CancellationSingleWith,
			Columns: []domain.Column{domain.ColPriceCeiling, domain.ColRate, domain.ColTariffCode},
			Rows: []domain.Row{
				{PriceCeiling: &ceiling, Rate: &rate, TariffCode: &code},
			},
		},
	}
}

func TestWorker(t *testing.T) {
	eventBus := bus.NewChannelBus(100)
	defer eventBus.Close()

	service := quote.NewService(testTables(), nil, nil, eventBus, "test")

	worker := NewWorker(eventBus, service)

	t.Run("StartAndStop", func(t *testing.T) {
		cfg := Config{
			AgencyIDs:   []string{"agency-001"},
			WorkerCount: 1,
		}

		err := worker.Start(cfg)
		if err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		stats := worker.GetStats()
		if stats.SubscriptionCount != 1 {
			t.Errorf("expected 1 subscription, got %d", stats.SubscriptionCount)
		}

		err = worker.Stop()
		if err != nil {
			t.Errorf("Stop failed: %v", err)
		}

		stats = worker.GetStats()
		if stats.SubscriptionCount != 0 {
			t.Errorf("expected 0 subscriptions after stop, got %d", stats.SubscriptionCount)
		}
	})

	t.Run("ProcessQuoteRequest", func(t *testing.T) {
		w := NewWorker(eventBus, service)

		cfg := Config{
			AgencyIDs: []string{"agency-test"},
		}
		w.Start(cfg)
		defer w.Stop()

		// Track completed quotes
		var completedReceived atomic.Bool
		var completedPayload []byte

		eventBus.Subscribe(context.Background(), "agency-test", domain.TopicQuoteCompleted, func(ctx context.Context, msg *domain.Message) error {
			completedPayload = msg.Payload
			completedReceived.Store(true)
			return nil
		})

		// Allow subscriptions to be active
		time.Sleep(50 * time.Millisecond)

		qMsg := QuoteMessage{
			AgencyID:     "agency-test",
			TraceID:      "trace-001",
			CustomerName: "Mustermann",
			Ages:         []int{30},
			Start:        "2026-07-01",
			End:          "2026-07-08",
			Price:        800,
			Zone:         "Europa",
		}

		payload, _ := json.Marshal(qMsg)
		err := eventBus.Publish(context.Background(), "agency-test", domain.TopicQuoteRequested, payload)
		if err != nil {
			t.Fatalf("Publish failed: %v", err)
		}

		// Wait for processing
		time.Sleep(100 * time.Millisecond)

		if !completedReceived.Load() {
			t.Fatal("expected completed quote to be published")
		}

		var q domain.Quote
		if err := json.Unmarshal(completedPayload, &q); err != nil {
			t.Fatalf("failed to parse completed quote: %v", err)
		}

		if q.AgencyID != "agency-test" {
			t.Errorf("expected agencyID 'agency-test', got '%s'", q.AgencyID)
		}
		if q.Metadata.TraceID != "trace-001" {
			t.Errorf("expected traceID 'trace-001', got '%s'", q.Metadata.TraceID)
		}
		result := q.Results[domain.CancellationSingleWith]
		if !result.Matched {
			t.Error("expected rrv-ev-mit to match")
		}
		if result.Display != "60,00 € (RRV10)" {
			t.Errorf("unexpected display: %s", result.Display)
		}
	})

	t.Run("InvalidMessageDoesNotPublish", func(t *testing.T) {
		w := NewWorker(eventBus, service)

		cfg := Config{
			AgencyIDs: []string{"agency-bad"},
		}
		w.Start(cfg)
		defer w.Stop()

		var completedReceived atomic.Bool
		eventBus.Subscribe(context.Background(), "agency-bad", domain.TopicQuoteCompleted, func(ctx context.Context, msg *domain.Message) error {
			completedReceived.Store(true)
			return nil
		})

		time.Sleep(50 * time.Millisecond)

		// Empty age list fails validation
		qMsg := QuoteMessage{
			AgencyID: "agency-bad",
			Start:    "2026-07-01",
			End:      "2026-07-08",
			Price:    800,
		}
		payload, _ := json.Marshal(qMsg)
		eventBus.Publish(context.Background(), "agency-bad", domain.TopicQuoteRequested, payload)

		time.Sleep(100 * time.Millisecond)

		if completedReceived.Load() {
			t.Error("expected no completed event for invalid request")
		}
	})

	t.Run("MultiAgency", func(t *testing.T) {
		w := NewWorker(eventBus, service)

		cfg := Config{
			AgencyIDs: []string{"agency-a", "agency-b"},
		}
		w.Start(cfg)
		defer w.Stop()

		stats := w.GetStats()
		if stats.SubscriptionCount != 2 {
			t.Errorf("expected 2 subscriptions for 2 agencies, got %d", stats.SubscriptionCount)
		}
	})
}

func TestBuildRequest(t *testing.T) {
	msg := QuoteMessage{
		CustomerName: "Musterfrau",
		Ages:         []int{45, 48},
		Start:        "2026-07-01",
		End:          "2026-07-14",
		Price:        2000,
		Zone:         "Welt",
	}

	req, err := buildRequest("agency-001", msg)
	if err != nil {
		t.Fatalf("buildRequest failed: %v", err)
	}

	if req.AgencyID != "agency-001" {
		t.Errorf("expected agencyID 'agency-001', got '%s'", req.AgencyID)
	}
	if req.Travelers.Headcount() != 2 {
		t.Errorf("expected 2 travelers, got %d", req.Travelers.Headcount())
	}
	if req.Trip.Zone != domain.ZoneWorld {
		t.Errorf("expected zone Welt, got '%s'", req.Trip.Zone)
	}
	if req.Trip.DurationDays() != 14 {
		t.Errorf("expected 14 travel days, got %d", req.Trip.DurationDays())
	}

	if _, err := buildRequest("agency-001", QuoteMessage{Ages: []int{30}, Start: "bad", End: "2026-07-14"}); err == nil {
		t.Error("expected error for malformed start date")
	}
}
