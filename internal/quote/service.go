// Package quote orchestrates the full tariff comparison: classify the
// travelers, resolve all fourteen product variants, price and format
// each result.
package quote

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/reisewerk/tariffkit/internal/classify"
	"github.com/reisewerk/tariffkit/internal/domain"
	"github.com/reisewerk/tariffkit/internal/format"
	"github.com/reisewerk/tariffkit/internal/premium"
	"github.com/reisewerk/tariffkit/internal/resolver"
)

// cacheTTL bounds how long a computed quote is served from cache. Rate
// schedules change rarely; a reload invalidates by version bump below.
const cacheTTL = 15 * time.Minute

// Service computes quotes against a shared, read-only rate table set.
type Service struct {
	mu     sync.RWMutex
	tables domain.RateTableSet

	repo    domain.Repository
	cache   domain.Cache
	bus     domain.EventBus
	version string
}

// NewService creates a quote service. repo, cache and bus are
// optional; without them the service still computes quotes, it just
// skips persistence, caching and events.
func NewService(tables domain.RateTableSet, repo domain.Repository, cache domain.Cache, bus domain.EventBus, version string) *Service {
	if tables == nil {
		tables = domain.RateTableSet{}
	}
	return &Service{
		tables:  tables,
		repo:    repo,
		cache:   cache,
		bus:     bus,
		version: version,
	}
}

// Tables returns the current rate table set.
func (s *Service) Tables() domain.RateTableSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tables
}

// ReloadTables swaps in a freshly loaded schedule from the repository.
func (s *Service) ReloadTables(ctx context.Context) error {
	if s.repo == nil {
		return fmt.Errorf("no repository configured")
	}
	tables, err := s.repo.ListRateTables(ctx)
	if err != nil {
		return fmt.Errorf("failed to reload rate tables: %w", err)
	}

	s.mu.Lock()
	s.tables = tables
	s.mu.Unlock()

	slog.Info("rate tables reloaded", "count", len(tables))
	return nil
}

// Quote runs one full tariff comparison. Input validation fails fast;
// after that every product variant resolves independently and a miss
// on one never affects the other thirteen.
func (s *Service) Quote(ctx context.Context, req domain.QuoteRequest, traceID string) (*domain.Quote, error) {
	start := time.Now()

	if req.Travelers.Headcount() == 0 {
		return nil, fmt.Errorf("%w: traveler group is empty", domain.ErrInvalidInput)
	}
	if err := req.Trip.Validate(); err != nil {
		return nil, err
	}

	fingerprint := s.fingerprint(req)
	if s.cache != nil && req.AgencyID != "" {
		if cached, err := s.cache.GetQuote(ctx, req.AgencyID, fingerprint); err == nil && cached != nil {
			slog.Debug("quote served from cache", "agency_id", req.AgencyID, "quote_id", cached.ID)
			return cached, nil
		}
	}

	cats := classify.Categories(req.Travelers, req.Trip)
	tables := s.Tables()

	results := make(map[domain.ProductKey]domain.PremiumResult, len(domain.Products()))
	resolved, missed := 0, 0
	for _, product := range domain.Products() {
		res := s.resolveOne(tables, product.Key, cats, req.Trip)
		results[product.Key] = res
		if res.Matched {
			resolved++
		} else {
			missed++
		}
	}

	q := &domain.Quote{
		ID:           uuid.New().String(),
		AgencyID:     req.AgencyID,
		CustomerName: req.CustomerName,
		Ages:         req.Travelers.Ages(),
		Trip:         req.Trip,
		Categories:   cats,
		Results:      results,
		CreatedAt:    time.Now().UTC(),
		Metadata: domain.QuoteMetadata{
			TraceID:       traceID,
			TotalMs:       time.Since(start).Milliseconds(),
			Resolved:      resolved,
			Missed:        missed,
			EngineVersion: s.version,
		},
	}

	if s.repo != nil && req.AgencyID != "" {
		if err := s.repo.SaveQuote(ctx, req.AgencyID, q); err != nil {
			slog.Error("failed to save quote", "quote_id", q.ID, "error", err)
		}
	}
	if s.cache != nil && req.AgencyID != "" {
		if err := s.cache.SetQuote(ctx, req.AgencyID, fingerprint, q, cacheTTL); err != nil {
			slog.Warn("failed to cache quote", "quote_id", q.ID, "error", err)
		}
	}
	s.publishCompleted(ctx, q)

	return q, nil
}

// resolveOne prices a single product variant. No-match is a value, not
// an error.
func (s *Service) resolveOne(tables domain.RateTableSet, key domain.ProductKey, cats domain.RatingCategories, trip domain.Trip) domain.PremiumResult {
	rate, ok := resolver.Resolve(tables, key, cats, trip)
	if !ok {
		return domain.PremiumResult{Product: key, Display: domain.SentinelNoRate}
	}

	var amount float64
	if resolver.IsPerDiem(key) {
		amount = premium.ComputePerDiem(rate.RawValue, trip.DurationDays(), trip.Price)
	} else {
		amount = premium.Compute(rate.RawValue, trip.Price)
	}

	return domain.PremiumResult{
		Product:    key,
		Matched:    true,
		Amount:     amount,
		TariffCode: rate.TariffCode,
		Display:    format.Premium(amount, rate.TariffCode),
	}
}

// fingerprint derives the cache key for a request from everything that
// influences the result, plus the engine version so a deploy never
// serves stale prices.
func (s *Service) fingerprint(req domain.QuoteRequest) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%v|%s|%s|%.2f|%s|%s",
		req.AgencyID,
		req.Travelers.Ages(),
		req.Trip.Start.Format("2006-01-02"),
		req.Trip.End.Format("2006-01-02"),
		req.Trip.Price,
		req.Trip.Zone,
		s.version,
	)
	return hex.EncodeToString(h.Sum(nil))
}

func (s *Service) publishCompleted(ctx context.Context, q *domain.Quote) {
	if s.bus == nil || q.AgencyID == "" {
		return
	}
	payload, err := json.Marshal(q)
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, q.AgencyID, domain.TopicQuoteCompleted, payload); err != nil {
		slog.Warn("failed to publish quote event", "quote_id", q.ID, "error", err)
	}
}
