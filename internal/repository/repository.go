// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/reisewerk/tariffkit/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveRateTable stores one product's rate schedule, replacing any
// previous version. Rate tables are shared data, not agency-scoped.
func (r *SQLRepository) SaveRateTable(ctx context.Context, table *domain.RateTable) error {
	if table == nil || table.Product == "" {
		return fmt.Errorf("%w: rate table with product key is required", ErrInvalidInput)
	}

	columns, err := json.Marshal(table.Columns)
	if err != nil {
		return err
	}
	rows, err := json.Marshal(table.Rows)
	if err != nil {
		return err
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO rate_tables (product, columns, rows, row_count, loaded_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(product) DO UPDATE SET
			columns = excluded.columns,
			rows = excluded.rows,
			row_count = excluded.row_count,
			loaded_at = excluded.loaded_at
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		string(table.Product), string(columns), string(rows), len(table.Rows), now,
	)
	return err
}

// GetRateTable retrieves one product's rate schedule.
func (r *SQLRepository) GetRateTable(ctx context.Context, product domain.ProductKey) (*domain.RateTable, error) {
	if product == "" {
		return nil, fmt.Errorf("%w: product key is required", ErrInvalidInput)
	}

	query := `
		SELECT product, columns, rows
		FROM rate_tables
		WHERE product = ?
	`

	var key string
	var columns, rows string

	err := r.db.QueryRowContext(ctx, r.rebind(query), string(product)).Scan(&key, &columns, &rows)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	table := &domain.RateTable{Product: domain.ProductKey(key)}
	if err := json.Unmarshal([]byte(columns), &table.Columns); err != nil {
		return nil, fmt.Errorf("failed to parse columns for %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(rows), &table.Rows); err != nil {
		return nil, fmt.Errorf("failed to parse rows for %s: %w", key, err)
	}

	return table, nil
}

// ListRateTables retrieves the full schedule, one table per product.
func (r *SQLRepository) ListRateTables(ctx context.Context) (domain.RateTableSet, error) {
	query := `
		SELECT product, columns, rows
		FROM rate_tables
		ORDER BY product
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	set := make(domain.RateTableSet)
	for rows.Next() {
		var key string
		var columns, tableRows string

		if err := rows.Scan(&key, &columns, &tableRows); err != nil {
			return nil, err
		}

		table := &domain.RateTable{Product: domain.ProductKey(key)}
		if err := json.Unmarshal([]byte(columns), &table.Columns); err != nil {
			return nil, fmt.Errorf("failed to parse columns for %s: %w", key, err)
		}
		if err := json.Unmarshal([]byte(tableRows), &table.Rows); err != nil {
			return nil, fmt.Errorf("failed to parse rows for %s: %w", key, err)
		}
		set[table.Product] = table
	}

	return set, rows.Err()
}

// SaveQuote stores a computed quote with agency isolation.
func (r *SQLRepository) SaveQuote(ctx context.Context, agencyID string, quote *domain.Quote) error {
	if agencyID == "" {
		return fmt.Errorf("%w: agencyID is required", ErrInvalidInput)
	}

	ages, _ := json.Marshal(quote.Ages)
	trip, _ := json.Marshal(quote.Trip)
	categories, _ := json.Marshal(quote.Categories)
	results, _ := json.Marshal(quote.Results)
	metadata, _ := json.Marshal(quote.Metadata)

	query := `
		INSERT INTO quotes (
			id, agency_id, customer_name, ages, trip, categories,
			results, created_at, metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		quote.ID, agencyID, quote.CustomerName,
		string(ages), string(trip), string(categories),
		string(results), quote.CreatedAt, string(metadata),
	)
	return err
}

// GetQuote retrieves a quote by ID with agency isolation.
func (r *SQLRepository) GetQuote(ctx context.Context, agencyID string, quoteID string) (*domain.Quote, error) {
	if agencyID == "" {
		return nil, fmt.Errorf("%w: agencyID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, agency_id, customer_name, ages, trip, categories,
			   results, created_at, metadata
		FROM quotes
		WHERE agency_id = ? AND id = ?
	`

	var q domain.Quote
	var ages, trip, categories, results, metadata string

	err := r.db.QueryRowContext(ctx, r.rebind(query), agencyID, quoteID).Scan(
		&q.ID, &q.AgencyID, &q.CustomerName,
		&ages, &trip, &categories,
		&results, &q.CreatedAt, &metadata,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	json.Unmarshal([]byte(ages), &q.Ages)
	json.Unmarshal([]byte(trip), &q.Trip)
	json.Unmarshal([]byte(categories), &q.Categories)
	json.Unmarshal([]byte(results), &q.Results)
	json.Unmarshal([]byte(metadata), &q.Metadata)

	return &q, nil
}

// SaveTariffQuery stores a saved back-office query with agency isolation.
func (r *SQLRepository) SaveTariffQuery(ctx context.Context, agencyID string, tq *domain.TariffQuery) error {
	if agencyID == "" {
		return fmt.Errorf("%w: agencyID is required", ErrInvalidInput)
	}

	enabled := 0
	if tq.Enabled {
		enabled = 1
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO tariff_queries (
			id, agency_id, name, description, product, expression, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, agency_id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			product = excluded.product,
			expression = excluded.expression,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		tq.ID, agencyID, tq.Name, tq.Description,
		string(tq.Product), tq.Expression, enabled,
		now, now,
	)
	return err
}

// GetTariffQuery retrieves a saved query with agency isolation.
func (r *SQLRepository) GetTariffQuery(ctx context.Context, agencyID string, queryID string) (*domain.TariffQuery, error) {
	if agencyID == "" {
		return nil, fmt.Errorf("%w: agencyID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, agency_id, name, description, product, expression, enabled
		FROM tariff_queries
		WHERE agency_id = ? AND id = ? AND enabled = 1
	`

	var tq domain.TariffQuery
	var product string
	var enabled int

	err := r.db.QueryRowContext(ctx, r.rebind(query), agencyID, queryID).Scan(
		&tq.ID, &tq.AgencyID, &tq.Name, &tq.Description,
		&product, &tq.Expression, &enabled,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	tq.Product = domain.ProductKey(product)
	tq.Enabled = enabled == 1

	return &tq, nil
}

// ListTariffQueries retrieves all active saved queries for an agency.
func (r *SQLRepository) ListTariffQueries(ctx context.Context, agencyID string) ([]*domain.TariffQuery, error) {
	if agencyID == "" {
		return nil, fmt.Errorf("%w: agencyID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, agency_id, name, description, product, expression, enabled
		FROM tariff_queries
		WHERE agency_id = ? AND enabled = 1
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), agencyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var queries []*domain.TariffQuery
	for rows.Next() {
		var tq domain.TariffQuery
		var product string
		var enabled int

		if err := rows.Scan(
			&tq.ID, &tq.AgencyID, &tq.Name, &tq.Description,
			&product, &tq.Expression, &enabled,
		); err != nil {
			return nil, err
		}

		tq.Product = domain.ProductKey(product)
		tq.Enabled = enabled == 1
		queries = append(queries, &tq)
	}

	return queries, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
