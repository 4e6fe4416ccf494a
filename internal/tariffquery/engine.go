// Package tariffquery provides the CEL-Go based ad-hoc query engine
// for inspecting rate schedules.
package tariffquery

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/reisewerk/tariffkit/internal/domain"
)

// Engine compiles and runs boolean CEL expressions over rate-schedule
// rows. It serves the back office: "show me every annual tariff above
// 100 € for couples" without touching the quoting policy, which stays
// hard-coded in the resolver.
type Engine struct {
	mu       sync.RWMutex
	env      *cel.Env
	compiled map[string]*CompiledQuery
}

// CompiledQuery holds a pre-compiled CEL program.
type CompiledQuery struct {
	Config  *domain.TariffQuery
	Program cel.Program
}

// NewEngine creates a new query engine. Each schedule column is a CEL
// variable; a column the table does not carry surfaces as its zero
// value.
func NewEngine() (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("price_ceiling", cel.DoubleType),
		cel.Variable("age_bracket", cel.StringType),
		cel.Variable("household", cel.StringType),
		cel.Variable("zone", cel.StringType),
		cel.Variable("rate", cel.DoubleType),
		cel.Variable("daily_rate", cel.DoubleType),
		cel.Variable("tariff_code", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{
		env:      env,
		compiled: make(map[string]*CompiledQuery),
	}, nil
}

// ValidateQuery compiles a query without loading it.
func (e *Engine) ValidateQuery(cfg *domain.TariffQuery) error {
	if cfg == nil {
		return fmt.Errorf("query config is required")
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	_, err := e.compileQuery(cfg)
	return err
}

// LoadQuery compiles and loads a saved query into the engine.
func (e *Engine) LoadQuery(cfg *domain.TariffQuery) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	compiled, err := e.compileQuery(cfg)
	if err != nil {
		return err
	}

	e.compiled[cfg.ID] = compiled
	return nil
}

// LoadQueries compiles and loads multiple saved queries.
func (e *Engine) LoadQueries(configs []*domain.TariffQuery) error {
	for _, cfg := range configs {
		if cfg.Enabled {
			if err := e.LoadQuery(cfg); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReloadQueries clears all loaded queries and loads new ones, enabling
// hot-reload from the database.
func (e *Engine) ReloadQueries(configs []*domain.TariffQuery) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	fresh := make(map[string]*CompiledQuery)
	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}
		compiled, err := e.compileQuery(cfg)
		if err != nil {
			return err
		}
		fresh[cfg.ID] = compiled
	}

	e.compiled = fresh
	return nil
}

// QueryCount returns the number of loaded queries.
func (e *Engine) QueryCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiled)
}

// GetLoadedQueries returns the currently loaded query configurations.
func (e *Engine) GetLoadedQueries() []*domain.TariffQuery {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]*domain.TariffQuery, 0, len(e.compiled))
	for _, c := range e.compiled {
		out = append(out, c.Config)
	}
	return out
}

// Run executes a loaded query against a table and returns the
// matching rows.
func (e *Engine) Run(queryID string, table *domain.RateTable) ([]domain.Row, error) {
	e.mu.RLock()
	compiled, ok := e.compiled[queryID]
	e.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("query %s is not loaded", queryID)
	}
	return e.run(compiled.Program, table)
}

// RunExpression compiles and executes a one-off expression against a
// table.
func (e *Engine) RunExpression(expression string, table *domain.RateTable) ([]domain.Row, error) {
	program, err := e.compile(expression)
	if err != nil {
		return nil, err
	}
	return e.run(program, table)
}

func (e *Engine) run(program cel.Program, table *domain.RateTable) ([]domain.Row, error) {
	if table == nil {
		return nil, nil
	}

	var matched []domain.Row
	for _, row := range table.Rows {
		out, _, err := program.Eval(activation(row))
		if err != nil {
			return nil, fmt.Errorf("query evaluation failed: %w", err)
		}
		if b, ok := out.(types.Bool); ok && bool(b) {
			matched = append(matched, row)
		}
	}
	return matched, nil
}

// activation maps one row to CEL variables. Nil fields become zero
// values so queries stay total over sparse tables.
func activation(row domain.Row) map[string]any {
	vars := map[string]any{
		"price_ceiling": 0.0,
		"age_bracket":   "",
		"household":     "",
		"zone":          "",
		"rate":          0.0,
		"daily_rate":    0.0,
		"tariff_code":   "",
	}
	if row.PriceCeiling != nil {
		vars["price_ceiling"] = *row.PriceCeiling
	}
	if row.AgeBracket != nil {
		vars["age_bracket"] = *row.AgeBracket
	}
	if row.HouseholdType != nil {
		vars["household"] = *row.HouseholdType
	}
	if row.Zone != nil {
		vars["zone"] = *row.Zone
	}
	if row.Rate != nil {
		vars["rate"] = *row.Rate
	}
	if row.DailyRate != nil {
		vars["daily_rate"] = *row.DailyRate
	}
	if row.TariffCode != nil {
		vars["tariff_code"] = *row.TariffCode
	}
	return vars
}

func (e *Engine) compileQuery(cfg *domain.TariffQuery) (*CompiledQuery, error) {
	program, err := e.compile(cfg.Expression)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", cfg.ID, err)
	}
	return &CompiledQuery{Config: cfg, Program: program}, nil
}

func (e *Engine) compile(expression string) (cel.Program, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile expression: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("expression must return bool, got %s", ast.OutputType())
	}

	return e.env.Program(ast)
}

// Close cleans up the engine.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.compiled = make(map[string]*CompiledQuery)
	return nil
}
