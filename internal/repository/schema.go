package repository

// Schema definitions for the tariffkit database.
// Compatible with both SQLite and PostgreSQL.

const schemaRateTables = `
CREATE TABLE IF NOT EXISTS rate_tables (
    product TEXT PRIMARY KEY,
    columns TEXT NOT NULL,
    rows TEXT NOT NULL,
    row_count INTEGER NOT NULL DEFAULT 0,
    loaded_at TIMESTAMP NOT NULL
);
`

const schemaQuotes = `
CREATE TABLE IF NOT EXISTS quotes (
    id TEXT PRIMARY KEY,
    agency_id TEXT NOT NULL,
    customer_name TEXT,
    ages TEXT NOT NULL,
    trip TEXT NOT NULL,
    categories TEXT NOT NULL,
    results TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    metadata TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_quotes_agency ON quotes(agency_id);
CREATE INDEX IF NOT EXISTS idx_quotes_created ON quotes(agency_id, created_at);
`

const schemaTariffQueries = `
CREATE TABLE IF NOT EXISTS tariff_queries (
    id TEXT NOT NULL,
    agency_id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    product TEXT NOT NULL,
    expression TEXT NOT NULL,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id, agency_id)
);

CREATE INDEX IF NOT EXISTS idx_tariff_queries_agency ON tariff_queries(agency_id);
CREATE INDEX IF NOT EXISTS idx_tariff_queries_enabled ON tariff_queries(agency_id, enabled);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaRateTables,
		schemaQuotes,
		schemaTariffQueries,
	}
}
