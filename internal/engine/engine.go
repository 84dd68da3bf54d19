// Package engine ties the calculator, the history ledger, the trend
// aggregator, the climate provider and the advisory generator together.
// The CLI and the HTTP API both drive it.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rshade/carbonfocus/internal/advisor"
	"github.com/rshade/carbonfocus/internal/climate"
	"github.com/rshade/carbonfocus/internal/emissions"
	"github.com/rshade/carbonfocus/internal/footprint"
	"github.com/rshade/carbonfocus/internal/greenops"
	"github.com/rshade/carbonfocus/internal/history"
	"github.com/rshade/carbonfocus/internal/logging"
	"github.com/rshade/carbonfocus/internal/trend"
)

// Engine errors.
var (
	// ErrNoStore is returned by ledger operations when no store is configured.
	ErrNoStore = fmt.Errorf("%w: no history store configured", history.ErrStorageUnavailable)
	// ErrNoData is returned when an operation needs history and the window is empty.
	ErrNoData = errors.New("no footprint history in window")
)

// DefaultTrendDays is the trend window used when a request leaves it unset.
const DefaultTrendDays = 30

// Engine orchestrates one user interaction at a time.
type Engine struct {
	table   *emissions.Table
	store   history.Store
	climate climate.Provider
	advisor *advisor.Generator
	now     func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithStore sets the history ledger.
func WithStore(s history.Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithClimate sets the climate provider.
func WithClimate(p climate.Provider) Option {
	return func(e *Engine) { e.climate = p }
}

// WithAdvisor sets the advisory generator.
func WithAdvisor(g *advisor.Generator) Option {
	return func(e *Engine) { e.advisor = g }
}

// WithClock overrides the time source. Useful in tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an Engine over table. A nil table uses the built-in factors and
// a missing climate provider behaves like a permanent outage.
func New(table *emissions.Table, opts ...Option) *Engine {
	if table == nil {
		table = emissions.Default()
	}
	e := &Engine{table: table, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	if e.climate == nil {
		e.climate = climate.StaticProvider{Now: e.now}
	}
	return e
}

// Table returns the emission factor table.
func (e *Engine) Table() *emissions.Table {
	return e.table
}

// Store returns the history ledger, or nil.
func (e *Engine) Store() history.Store {
	return e.store
}

// HasAdvisor reports whether an advisory generator is configured.
func (e *Engine) HasAdvisor() bool {
	return e.advisor != nil
}

// Climate fetches the current climate snapshot. It never fails.
func (e *Engine) Climate(ctx context.Context) climate.Snapshot {
	return e.climate.Fetch(ctx)
}

// CalculateRequest is one calculator submission.
type CalculateRequest struct {
	Input footprint.ActivityInput `json:"input"`
	Notes string                  `json:"notes,omitempty"`
	Save  bool                    `json:"save"`
}

// Calculation is a computed footprint with its context.
type Calculation struct {
	Result        footprint.Result           `json:"result"`
	Record        *history.Record            `json:"record,omitempty"`
	Comparison    greenops.Comparison        `json:"comparison"`
	Equivalencies greenops.EquivalencyOutput `json:"equivalencies"`
	Climate       climate.Snapshot           `json:"climate"`
}

// Calculate computes a footprint and, when asked, appends it to the ledger.
//
// A failed save returns the computed Calculation alongside the storage
// error so the caller can show the result and offer a retry.
func (e *Engine) Calculate(ctx context.Context, req CalculateRequest) (Calculation, error) {
	log := logging.FromContext(ctx)
	start := e.now()

	snapshot := e.climate.Fetch(ctx)
	result, err := footprint.ComputeAt(req.Input, e.table, &snapshot, start)
	if err != nil {
		log.Debug().Ctx(ctx).
			Str("component", "engine").
			Str("operation", "calculate").
			Err(err).
			Msg("calculation rejected")
		return Calculation{}, err
	}
	if req.Notes != "" {
		result = result.WithNotes(req.Notes)
	}

	calc := Calculation{Result: result, Climate: snapshot}
	if cmp, cmpErr := greenops.Compare(result.Total); cmpErr == nil {
		calc.Comparison = cmp
	}
	if eq, eqErr := greenops.ForKg(result.Total); eqErr == nil {
		calc.Equivalencies = eq
	}

	log.Info().Ctx(ctx).
		Str("component", "engine").
		Str("operation", "calculate").
		Float64("total_kg", result.Total).
		Str("region", result.RegionUsed).
		Str("electricity_source", string(result.DataSources.Electricity)).
		Msg("footprint calculated")

	if !req.Save {
		return calc, nil
	}

	rec, err := e.Save(ctx, result)
	if err != nil {
		return calc, err
	}
	calc.Record = &rec
	return calc, nil
}

// Save appends result to the ledger.
func (e *Engine) Save(ctx context.Context, result footprint.Result) (history.Record, error) {
	if e.store == nil {
		return history.Record{}, ErrNoStore
	}
	rec, err := e.store.Append(ctx, result)
	if err != nil {
		logging.FromContext(ctx).Warn().Ctx(ctx).
			Str("component", "engine").
			Str("operation", "save").
			Err(err).
			Msg("saving footprint failed")
		return history.Record{}, err
	}
	return rec, nil
}

// History returns the records inside r in ascending order.
func (e *Engine) History(ctx context.Context, r history.DateRange) ([]history.Record, error) {
	if e.store == nil {
		return nil, ErrNoStore
	}
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", footprint.ErrInvalidInput, err)
	}
	return e.store.Query(ctx, r)
}

// Latest returns up to n records, newest first.
func (e *Engine) Latest(ctx context.Context, n int) ([]history.Record, error) {
	if e.store == nil {
		return nil, ErrNoStore
	}
	return e.store.Latest(ctx, n)
}

// Window resolves a request window: an explicit range wins, otherwise the
// last days days (DefaultTrendDays when days <= 0).
func (e *Engine) Window(days int, r history.DateRange) history.DateRange {
	if !r.From.IsZero() || !r.To.IsZero() {
		return r
	}
	if days <= 0 {
		days = DefaultTrendDays
	}
	return trend.LastDays(e.now(), days)
}
