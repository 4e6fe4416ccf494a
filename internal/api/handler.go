package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/reisewerk/tariffkit/internal/advisor"
	"github.com/reisewerk/tariffkit/internal/classify"
	"github.com/reisewerk/tariffkit/internal/docgen"
	"github.com/reisewerk/tariffkit/internal/domain"
	"github.com/reisewerk/tariffkit/internal/format"
	"github.com/reisewerk/tariffkit/internal/quote"
	"github.com/reisewerk/tariffkit/internal/tariffquery"
	"github.com/reisewerk/tariffkit/internal/worker"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	repo        domain.Repository
	cache       domain.Cache
	bus         domain.EventBus
	service     *quote.Service
	queryEngine *tariffquery.Engine
	advisor     *advisor.Advisor
	docs        *docgen.Generator
	version     string
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, bus domain.EventBus, service *quote.Service, queryEngine *tariffquery.Engine, adv *advisor.Advisor, docs *docgen.Generator, version string) *Handler {
	return &Handler{
		repo:        repo,
		cache:       cache,
		bus:         bus,
		service:     service,
		queryEngine: queryEngine,
		advisor:     adv,
		docs:        docs,
		version:     version,
	}
}

// QuoteSubmission is the request body for POST /quote. Fields accept
// the shorthand the booking mask uses: ages as "45 48", dates in
// TTMM / TTMMJJJJ / TT.MM.JJJJ notation, price with either decimal
// separator.
type QuoteSubmission struct {
	CustomerName string          `json:"customerName,omitempty"`
	Ages         string          `json:"ages"`
	Start        string          `json:"start"`
	End          string          `json:"end"`
	Price        json.RawMessage `json:"price"`
	Zone         string          `json:"zone,omitempty"`

	// Async queues the request on the bus instead of computing inline.
	Async bool `json:"async,omitempty"`
}

// QuoteResponse is the response for POST /quote.
type QuoteResponse struct {
	Quote *domain.Quote     `json:"quote"`
	Table []format.TableRow `json:"table"`
}

// Quote handles POST /quote requests.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	agencyID := GetAgencyID(ctx)
	traceID := GetTraceID(ctx)

	var sub QuoteSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	ages, err := ParseAges(sub.Ages)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "ages: " + err.Error(),
		})
		return
	}

	now := time.Now()
	start, err := ParseDate(sub.Start, now)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "start: " + err.Error(),
		})
		return
	}
	end, err := ParseDate(sub.End, now)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "end: " + err.Error(),
		})
		return
	}

	price, err := parsePriceField(sub.Price)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
		return
	}

	zone := classify.ZoneFromSelection(sub.Zone)

	if sub.Async {
		h.enqueueQuote(w, r, agencyID, traceID, sub, ages, start, end, price, zone)
		return
	}

	travelers, err := domain.NewTravelerGroup(ages)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
		return
	}

	req := domain.QuoteRequest{
		AgencyID:     agencyID,
		CustomerName: sub.CustomerName,
		Travelers:    travelers,
		Trip: domain.Trip{
			Start: start,
			End:   end,
			Price: price,
			Zone:  zone,
		},
	}

	q, err := h.service.Quote(ctx, req, traceID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, QuoteResponse{
		Quote: q,
		Table: format.GroupedTable(q.Results),
	})
}

// enqueueQuote publishes the request for async processing by a worker.
func (h *Handler) enqueueQuote(w http.ResponseWriter, r *http.Request, agencyID, traceID string, sub QuoteSubmission, ages []int, start, end time.Time, price float64, zone domain.Zone) {
	if h.bus == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "async processing not available",
		})
		return
	}

	msg := worker.QuoteMessage{
		AgencyID:     agencyID,
		TraceID:      traceID,
		CustomerName: sub.CustomerName,
		Ages:         ages,
		Start:        start.Format("2006-01-02"),
		End:          end.Format("2006-01-02"),
		Price:        price,
		Zone:         string(zone),
	}

	payload, _ := json.Marshal(msg)
	if err := h.bus.Publish(r.Context(), agencyID, domain.TopicQuoteRequested, payload); err != nil {
		slog.Error("failed to enqueue quote request", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to enqueue quote request",
		})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  "queued",
		"traceId": traceID,
	})
}

func parsePriceField(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 {
		return 0, nil
	}

	var asNumber float64
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return asNumber, nil
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err != nil {
		return 0, strconv.ErrSyntax
	}
	if asString == "" {
		return 0, nil
	}
	return ParsePrice(asString)
}

// GetQuote retrieves a quote by ID.
func (h *Handler) GetQuote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	agencyID := GetAgencyID(ctx)
	quoteID := chi.URLParam(r, "id")

	if quoteID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "quote id is required",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	q, err := h.repo.GetQuote(ctx, agencyID, quoteID)
	if err != nil {
		slog.Error("failed to get quote", "id", quoteID, "error", err)
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "quote not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, QuoteResponse{
		Quote: q,
		Table: format.GroupedTable(q.Results),
	})
}

// GenerateDocument creates the offer document for a stored quote.
func (h *Handler) GenerateDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	agencyID := GetAgencyID(ctx)
	quoteID := chi.URLParam(r, "id")

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}
	if h.docs == nil || !h.docs.Available() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "offer template not available",
		})
		return
	}

	q, err := h.repo.GetQuote(ctx, agencyID, quoteID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "quote not found",
		})
		return
	}

	path, err := h.docs.Generate(q)
	if err != nil {
		slog.Error("failed to generate offer document", "quote_id", quoteID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to generate offer document",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"quoteId": quoteID,
		"path":    path,
	})
}

// TableInfo summarizes one loaded rate table.
type TableInfo struct {
	Product  domain.ProductKey `json:"product"`
	Columns  []domain.Column   `json:"columns"`
	RowCount int               `json:"rowCount"`
}

// ListTables returns the loaded rate schedule summary.
func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	tables := h.service.Tables()

	infos := make([]TableInfo, 0, len(tables))
	for _, spec := range domain.Products() {
		t := tables.Table(spec.Key)
		if t == nil {
			continue
		}
		infos = append(infos, TableInfo{
			Product:  t.Product,
			Columns:  t.Columns,
			RowCount: len(t.Rows),
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tables": infos,
		"count":  len(infos),
	})
}

// ReloadTables reloads the rate schedule from the database and
// announces the swap on the bus.
func (h *Handler) ReloadTables(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	agencyID := GetAgencyID(ctx)

	if err := h.service.ReloadTables(ctx); err != nil {
		slog.Error("failed to reload rate tables", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to reload rate tables",
		})
		return
	}

	if h.bus != nil {
		if err := h.bus.Publish(ctx, agencyID, domain.TopicTablesReloaded, nil); err != nil {
			slog.Warn("failed to publish reload event", "error", err)
		}
	}

	count := len(h.service.Tables())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "rate tables reloaded successfully",
		"count":   count,
	})
}

// TariffQueryRequest is the request body for POST /tariffs/query.
// Either a saved queryId or an ad-hoc expression must be given.
type TariffQueryRequest struct {
	Product    domain.ProductKey `json:"product"`
	QueryID    string            `json:"queryId,omitempty"`
	Expression string            `json:"expression,omitempty"`
}

// RunTariffQuery evaluates a CEL expression over one product table.
func (h *Handler) RunTariffQuery(w http.ResponseWriter, r *http.Request) {
	var req TariffQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.Product == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "product is required",
		})
		return
	}
	if req.QueryID == "" && req.Expression == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "queryId or expression is required",
		})
		return
	}

	table := h.service.Tables().Table(req.Product)
	if table == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "no rate table loaded for product " + string(req.Product),
		})
		return
	}

	var rows []domain.Row
	var err error
	if req.QueryID != "" {
		rows, err = h.queryEngine.Run(req.QueryID, table)
	} else {
		rows, err = h.queryEngine.RunExpression(req.Expression, table)
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"product": req.Product,
		"rows":    rows,
		"count":   len(rows),
	})
}

// ListTariffQueries returns all loaded saved queries.
func (h *Handler) ListTariffQueries(w http.ResponseWriter, r *http.Request) {
	queries := h.queryEngine.GetLoadedQueries()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"queries": queries,
		"count":   len(queries),
		"source":  "database",
	})
}

// CreateTariffQueryRequest is the request body for creating a saved query.
type CreateTariffQueryRequest struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Product     domain.ProductKey `json:"product"`
	Expression  string            `json:"expression"`
	Enabled     bool              `json:"enabled"`
}

// CreateTariffQuery validates, saves and loads a back-office query.
func (h *Handler) CreateTariffQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	agencyID := GetAgencyID(ctx)

	var req CreateTariffQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.ID == "" || req.Name == "" || req.Expression == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "id, name, and expression are required",
		})
		return
	}
	if _, ok := domain.ProductByKey(req.Product); !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "unknown product " + string(req.Product),
		})
		return
	}

	cfg := &domain.TariffQuery{
		ID:          req.ID,
		AgencyID:    agencyID,
		Name:        req.Name,
		Description: req.Description,
		Product:     req.Product,
		Expression:  req.Expression,
		Enabled:     req.Enabled,
	}

	// Validate the CEL expression by attempting to load
	if err := h.queryEngine.LoadQuery(cfg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid CEL expression: " + err.Error(),
		})
		return
	}

	if h.repo != nil {
		if err := h.repo.SaveTariffQuery(ctx, agencyID, cfg); err != nil {
			slog.Error("failed to save tariff query", "id", cfg.ID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to save query",
			})
			return
		}
	}

	slog.Info("tariff query created", "id", cfg.ID, "name", cfg.Name)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"query": cfg,
	})
}

// ReloadTariffQueries reloads saved queries from the database.
func (h *Handler) ReloadTariffQueries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	agencyID := GetAgencyID(ctx)

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	queries, err := h.repo.ListTariffQueries(ctx, agencyID)
	if err != nil {
		slog.Error("failed to list tariff queries", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load queries from database",
		})
		return
	}

	if err := h.queryEngine.ReloadQueries(queries); err != nil {
		slog.Error("failed to reload tariff queries", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to reload queries: " + err.Error(),
		})
		return
	}

	slog.Info("tariff queries reloaded", "count", len(queries))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "queries reloaded successfully",
		"count":   len(queries),
	})
}

// AdviceRequest is the request body for POST /advice.
type AdviceRequest struct {
	Question string `json:"question"`
}

// Advice answers a product question from the tariff reference text.
func (h *Handler) Advice(w http.ResponseWriter, r *http.Request) {
	if h.advisor == nil || !h.advisor.Enabled() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "advisor not configured",
		})
		return
	}

	var req AdviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.Question == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "question is required",
		})
		return
	}

	answer, err := h.advisor.Answer(r.Context(), req.Question)
	if err != nil {
		slog.Error("advisor request failed", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"error": "advisor request failed",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"question": req.Question,
		"answer":   answer,
	})
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	// Check repository health
	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	// Check cache health
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic. The
// server is ready once at least one rate table is loaded.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if len(h.service.Tables()) == 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"ready": "false",
			"error": "no rate tables loaded",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
