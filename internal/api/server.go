package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/reisewerk/tariffkit/internal/advisor"
	"github.com/reisewerk/tariffkit/internal/docgen"
	"github.com/reisewerk/tariffkit/internal/domain"
	"github.com/reisewerk/tariffkit/internal/quote"
	"github.com/reisewerk/tariffkit/internal/tariffquery"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, repo domain.Repository, cache domain.Cache, bus domain.EventBus, service *quote.Service, queryEngine *tariffquery.Engine, adv *advisor.Advisor, docs *docgen.Generator, version string) *Server {
	handler := NewHandler(repo, cache, bus, service, queryEngine, adv, docs, version)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)         // CORS for browser clients
	router.Use(RecoverMiddleware)      // Recover from panics
	router.Use(TracingMiddleware)      // OpenTelemetry tracing
	router.Use(LoggingMiddleware)      // Request logging
	router.Use(middleware.RealIP)      // Extract real IP
	router.Use(middleware.Compress(5)) // Gzip compression

	// Health endpoints (no agency required)
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	// API routes (agency required)
	router.Route("/", func(r chi.Router) {
		r.Use(AgencyMiddleware)
		r.Use(RateLimitMiddleware(cache, cfg.RateLimit))

		// Quotation
		r.Post("/quote", handler.Quote)
		r.Get("/quotes/{id}", handler.GetQuote)
		r.Post("/quotes/{id}/document", handler.GenerateDocument)

		// Rate schedule
		r.Get("/tables", handler.ListTables)
		r.Post("/tables/reload", handler.ReloadTables)

		// Back-office tariff queries
		r.Post("/tariffs/query", handler.RunTariffQuery)
		r.Get("/tariffs/queries", handler.ListTariffQueries)
		r.Post("/tariffs/queries", handler.CreateTariffQuery)
		r.Post("/tariffs/queries/reload", handler.ReloadTariffQueries)

		// Advisor
		r.Post("/advice", handler.Advice)
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
