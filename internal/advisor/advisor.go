// Package advisor turns a footprint into natural-language sustainability
// advice. It builds a prompt from the footprint, its trend and the climate
// context, and hands it to a language model backend (a local Ollama server
// or Gemini).
//
// Advice is optional. Any backend failure is reported as
// ErrAdvisoryUnavailable and never mixed into a successful result, so callers
// can always keep the footprint they already computed.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rshade/carbonfocus/internal/climate"
	"github.com/rshade/carbonfocus/internal/footprint"
	"github.com/rshade/carbonfocus/internal/logging"
	"github.com/rshade/carbonfocus/internal/trend"
)

var (
	// ErrAdvisoryUnavailable is returned when the backend fails, times out or
	// returns nothing.
	ErrAdvisoryUnavailable = errors.New("advisory unavailable")

	// ErrInvalidRequest is returned when a request is missing data its mode needs.
	ErrInvalidRequest = errors.New("invalid advisory request")
)

// DefaultTimeout bounds a single advisory call.
const DefaultTimeout = 180 * time.Second

// Mode selects the kind of advice.
type Mode string

// Advisory modes.
const (
	ModeComprehensive Mode = "comprehensive"
	ModeQuickTips     Mode = "quick_tips"
	ModeCompare       Mode = "compare"
	ModeActionPlan    Mode = "action_plan"
)

// Modes returns every supported mode.
func Modes() []Mode {
	return []Mode{ModeComprehensive, ModeQuickTips, ModeCompare, ModeActionPlan}
}

// ParseMode accepts a mode name, with dashes or underscores. An empty name
// is ModeComprehensive.
func ParseMode(s string) (Mode, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	if normalized == "" {
		return ModeComprehensive, nil
	}
	for _, m := range Modes() {
		if string(m) == normalized {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, s)
}

// Request is everything a prompt may draw on. Only Footprint is required,
// except that compare needs Reference.
type Request struct {
	Footprint footprint.Result
	Mode      Mode

	Trend     *trend.Summary
	Reference *footprint.Result
	Climate   *climate.Snapshot
	Activity  *footprint.ActivityInput

	Location string
	Guidance string

	// CurrentAverage and TargetDaily drive the action plan. Zero values fall
	// back to the trend average (or the footprint total) and the Paris target.
	CurrentAverage float64
	TargetDaily    float64
}

// Advice is a generated advisory text.
type Advice struct {
	Text        string    `json:"text"`
	Mode        Mode      `json:"mode"`
	Model       string    `json:"model"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Backend completes a prompt with a language model.
type Backend interface {
	Name() string
	Model() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// Pinger is implemented by backends that can check their availability
// without generating text.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Option configures a Generator.
type Option func(*Generator)

// WithTimeout sets the per-call timeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(g *Generator) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithClock sets the clock used for prompts and Advice.GeneratedAt.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// Generator produces advice through a Backend.
type Generator struct {
	backend Backend
	timeout time.Duration
	now     func() time.Time
}

// NewGenerator returns a Generator using backend.
func NewGenerator(backend Backend, opts ...Option) *Generator {
	g := &Generator{
		backend: backend,
		timeout: DefaultTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Backend returns the configured backend.
func (g *Generator) Backend() Backend {
	return g.backend
}

// Generate builds the prompt for req and completes it. It blocks for at
// most the configured timeout.
func (g *Generator) Generate(ctx context.Context, req Request) (Advice, error) {
	if req.Mode == "" {
		req.Mode = ModeComprehensive
	}
	logger := logging.FromContext(ctx).With().
		Str("component", "advisor").
		Str("operation", "Generate").
		Str("mode", string(req.Mode)).
		Logger()

	if g == nil || g.backend == nil {
		return Advice{}, fmt.Errorf("%w: no backend configured", ErrAdvisoryUnavailable)
	}

	prompt, err := BuildPrompt(req, g.now())
	if err != nil {
		return Advice{}, err
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := g.now()
	logger.Debug().Ctx(ctx).
		Str("backend", g.backend.Name()).
		Str("model", g.backend.Model()).
		Int("prompt_bytes", len(prompt)).
		Msg("requesting advice")

	text, err := g.backend.Complete(callCtx, prompt)
	if err != nil {
		logger.Warn().Ctx(ctx).Err(err).
			Str("backend", g.backend.Name()).
			Dur("timeout", g.timeout).
			Msg("advisory backend failed")
		if errors.Is(err, ErrAdvisoryUnavailable) {
			return Advice{}, err
		}
		return Advice{}, fmt.Errorf("%w: %s: %w", ErrAdvisoryUnavailable, g.backend.Name(), err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return Advice{}, fmt.Errorf("%w: %s returned an empty response", ErrAdvisoryUnavailable, g.backend.Name())
	}

	logger.Info().Ctx(ctx).
		Str("model", g.backend.Model()).
		Dur("elapsed", g.now().Sub(start)).
		Msg("advice generated")

	return Advice{
		Text:        text,
		Mode:        req.Mode,
		Model:       g.backend.Model(),
		GeneratedAt: g.now().UTC(),
	}, nil
}
