// Package worker provides async quote processing for the Pro tier.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/reisewerk/tariffkit/internal/domain"
	"github.com/reisewerk/tariffkit/internal/quote"
)

// Worker computes quotes asynchronously from the EventBus. It takes
// quote requests off the request path so a slow downstream (database,
// document generation) never blocks the submitting client.
type Worker struct {
	bus     domain.EventBus
	service *quote.Service

	subscriptions []domain.Subscription
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// Config holds worker configuration.
type Config struct {
	// AgencyIDs is the list of agencies to process (empty = all via the global subject)
	AgencyIDs []string

	// WorkerCount is the number of concurrent workers per agency
	WorkerCount int
}

// NewWorker creates a new async worker.
func NewWorker(bus domain.EventBus, service *quote.Service) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:     bus,
		service: service,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start begins processing quote requests for the given agencies.
func (w *Worker) Start(cfg Config) error {
	if len(cfg.AgencyIDs) == 0 {
		return w.startGlobalWorker()
	}

	for _, agencyID := range cfg.AgencyIDs {
		if err := w.startAgencyWorker(agencyID); err != nil {
			slog.Error("failed to start worker for agency",
				"agency_id", agencyID,
				"error", err,
			)
			continue
		}
	}

	slog.Info("workers started",
		"agency_count", len(cfg.AgencyIDs),
	)

	return nil
}

// startGlobalWorker starts a worker that processes all agencies (for testing/dev).
func (w *Worker) startGlobalWorker() error {
	sub, err := w.bus.Subscribe(w.ctx, "_global", domain.TopicQuoteRequested, w.handleMessage)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("global worker started")
	return nil
}

// startAgencyWorker starts workers for a specific agency.
func (w *Worker) startAgencyWorker(agencyID string) error {
	sub, err := w.bus.Subscribe(w.ctx, agencyID, domain.TopicQuoteRequested, func(ctx context.Context, msg *domain.Message) error {
		return w.processQuoteRequest(ctx, agencyID, msg)
	})
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("agency worker started",
		"agency_id", agencyID,
		"topic", domain.TopicQuoteRequested,
	)

	return nil
}

// handleMessage handles messages from the global subscription.
func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	return w.processQuoteRequest(ctx, msg.AgencyID, msg)
}

// QuoteMessage is the message payload for async quote processing.
type QuoteMessage struct {
	AgencyID     string  `json:"agencyId"`
	TraceID      string  `json:"traceId"`
	CustomerName string  `json:"customerName,omitempty"`
	Ages         []int   `json:"ages"`
	Start        string  `json:"start"` // 2006-01-02
	End          string  `json:"end"`
	Price        float64 `json:"price"`
	Zone         string  `json:"zone"`
}

// processQuoteRequest runs one full tariff comparison for a queued
// request. The quote service handles persistence, caching and the
// completed event; the worker only feeds it.
func (w *Worker) processQuoteRequest(ctx context.Context, agencyID string, msg *domain.Message) error {
	start := time.Now()

	var qMsg QuoteMessage
	if err := json.Unmarshal(msg.Payload, &qMsg); err != nil {
		slog.Error("failed to parse quote message",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	// Use message agency if provided
	if qMsg.AgencyID != "" {
		agencyID = qMsg.AgencyID
	}

	traceID := qMsg.TraceID
	if traceID == "" {
		traceID = msg.ID
	}

	slog.Debug("processing quote request",
		"agency_id", agencyID,
		"trace_id", traceID,
	)

	req, err := buildRequest(agencyID, qMsg)
	if err != nil {
		slog.Error("invalid quote message",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	q, err := w.service.Quote(ctx, req, traceID)
	if err != nil {
		slog.Error("quote computation failed",
			"agency_id", agencyID,
			"trace_id", traceID,
			"error", err,
		)
		return err
	}

	slog.Info("quote request processed",
		"quote_id", q.ID,
		"agency_id", agencyID,
		"resolved", q.Metadata.Resolved,
		"missed", q.Metadata.Missed,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// buildRequest validates a queued message into a quote request.
func buildRequest(agencyID string, msg QuoteMessage) (domain.QuoteRequest, error) {
	travelers, err := domain.NewTravelerGroup(msg.Ages)
	if err != nil {
		return domain.QuoteRequest{}, err
	}

	startDate, err := time.Parse("2006-01-02", msg.Start)
	if err != nil {
		return domain.QuoteRequest{}, err
	}
	endDate, err := time.Parse("2006-01-02", msg.End)
	if err != nil {
		return domain.QuoteRequest{}, err
	}

	return domain.QuoteRequest{
		AgencyID:     agencyID,
		CustomerName: msg.CustomerName,
		Travelers:    travelers,
		Trip: domain.Trip{
			Start: startDate,
			End:   endDate,
			Price: msg.Price,
			Zone:  domain.Zone(msg.Zone),
		},
	}, nil
}

// Stop gracefully stops all workers.
func (w *Worker) Stop() error {
	w.cancel()

	// Unsubscribe all
	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	w.wg.Wait()

	slog.Info("workers stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
