package engine_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/carbonfocus/internal/advisor"
	"github.com/rshade/carbonfocus/internal/climate"
	"github.com/rshade/carbonfocus/internal/engine"
	"github.com/rshade/carbonfocus/internal/footprint"
	"github.com/rshade/carbonfocus/internal/history"
	"github.com/rshade/carbonfocus/internal/trend"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

type stubBackend struct {
	text    string
	err     error
	prompts []string
}

func (s *stubBackend) Name() string  { return "stub" }
func (s *stubBackend) Model() string { return "stub-1" }

func (s *stubBackend) Complete(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.text, s.err
}

// brokenStore fails every read, as a locked or unreadable ledger would.
type brokenStore struct {
	history.Store
}

func (brokenStore) Latest(context.Context, int) ([]history.Record, error) {
	return nil, history.ErrStorageUnavailable
}

func (brokenStore) Query(context.Context, history.DateRange) ([]history.Record, error) {
	return nil, history.ErrStorageUnavailable
}

func commute() footprint.ActivityInput {
	return footprint.ActivityInput{
		TransportMode: "bus",
		DistanceKm:    10,
		DietType:      "vegetarian",
	}
}

func newEngine(t *testing.T, opts ...engine.Option) (*engine.Engine, *clock) {
	t.Helper()
	store, err := history.Open(history.BackendFile, filepath.Join(t.TempDir(), "history.json"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	c := &clock{t: time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)}
	base := []engine.Option{engine.WithStore(store), engine.WithClock(c.now)}
	return engine.New(nil, append(base, opts...)...), c
}

func TestCalculate(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	calc, err := e.Calculate(ctx, engine.CalculateRequest{Input: commute(), Notes: "office day"})
	require.NoError(t, err)

	assert.InDelta(t, 3.55, calc.Result.Total, 1e-9)
	assert.Equal(t, "office day", calc.Result.Notes)
	assert.Nil(t, calc.Record)
	assert.InDelta(t, 3.55, calc.Comparison.DailyKg, 1e-9)
	assert.Equal(t, climate.SourceCached, calc.Result.DataSources.Electricity)
	assert.False(t, calc.Equivalencies.IsEmpty)

	records, err := e.History(ctx, history.DateRange{})
	require.NoError(t, err)
	assert.Empty(t, records, "unsaved results never reach the ledger")
}

func TestCalculateSave(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	calc, err := e.Calculate(ctx, engine.CalculateRequest{Input: commute(), Save: true})
	require.NoError(t, err)
	require.NotNil(t, calc.Record)

	records, err := e.History(ctx, history.DateRange{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, calc.Record.ID, records[0].ID)
	assert.InDelta(t, calc.Result.Total, records[0].Total, 1e-12)
}

func TestCalculateErrors(t *testing.T) {
	t.Run("invalid input", func(t *testing.T) {
		e, _ := newEngine(t)
		in := commute()
		in.DistanceKm = -1
		_, err := e.Calculate(context.Background(), engine.CalculateRequest{Input: in, Save: true})
		require.ErrorIs(t, err, footprint.ErrInvalidInput)
	})

	t.Run("save without store keeps the result", func(t *testing.T) {
		e := engine.New(nil)
		calc, err := e.Calculate(context.Background(), engine.CalculateRequest{Input: commute(), Save: true})
		require.ErrorIs(t, err, history.ErrStorageUnavailable)
		assert.InDelta(t, 3.55, calc.Result.Total, 1e-9)
		assert.Nil(t, calc.Record)
	})

	t.Run("inverted range", func(t *testing.T) {
		e, c := newEngine(t)
		_, err := e.History(context.Background(), history.DateRange{From: c.now(), To: c.now().Add(-time.Hour)})
		require.ErrorIs(t, err, footprint.ErrInvalidInput)
	})
}

func TestTrend(t *testing.T) {
	e, c := newEngine(t)
	ctx := context.Background()

	empty, err := e.Trend(ctx, engine.TrendRequest{Days: 7})
	require.NoError(t, err)
	assert.True(t, empty.Summary.NoData)
	assert.Equal(t, trend.DirectionUnknown, empty.Direction)
	assert.Nil(t, empty.Comparison)
	assert.Nil(t, empty.Latest)

	heavy := commute()
	heavy.DistanceKm = 30
	for _, in := range []footprint.ActivityInput{heavy, commute()} {
		_, err = e.Calculate(ctx, engine.CalculateRequest{Input: in, Save: true})
		require.NoError(t, err)
		c.advance(24 * time.Hour)
	}

	report, err := e.Trend(ctx, engine.TrendRequest{Days: 7, Rolling: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Summary.Count)
	require.NotNil(t, report.Latest)
	assert.InDelta(t, 3.55, report.Latest.Total, 1e-9)
	assert.Equal(t, trend.DirectionImproving, report.Direction)
	require.NotNil(t, report.ChangeVsPrevious)
	assert.InDelta(t, (3.55-5.65)/5.65, *report.ChangeVsPrevious, 1e-9)
	require.Len(t, report.Rolling, 2)
	assert.InDelta(t, 4.6, report.Rolling[1].Value, 1e-9)
	require.NotNil(t, report.Comparison)
	assert.InDelta(t, 4.6, report.Comparison.DailyKg, 1e-9)
}

func TestGoal(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	_, err := e.Goal(ctx, 20, 30)
	require.ErrorIs(t, err, engine.ErrNoData)

	_, err = e.Calculate(ctx, engine.CalculateRequest{Input: commute(), Save: true})
	require.NoError(t, err)

	report, err := e.Goal(ctx, 20, 30)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Records)
	assert.InDelta(t, 3.55*0.8, report.Assessment.TargetDailyKg, 1e-9)
	assert.True(t, report.Assessment.MeetsParis)

	_, err = e.Goal(ctx, 0, 30)
	require.Error(t, err)
}

func TestAdvise(t *testing.T) {
	ctx := context.Background()

	t.Run("no history and no input", func(t *testing.T) {
		backend := &stubBackend{text: "ok"}
		e, _ := newEngine(t, engine.WithAdvisor(advisor.NewGenerator(backend)))
		_, err := e.Advise(ctx, engine.AdviseRequest{})
		require.ErrorIs(t, err, engine.ErrNoData)
		assert.Empty(t, backend.prompts)
	})

	t.Run("latest record with saved insight", func(t *testing.T) {
		backend := &stubBackend{text: "Take the train."}
		e, c := newEngine(t, engine.WithAdvisor(advisor.NewGenerator(backend)))
		calc, err := e.Calculate(ctx, engine.CalculateRequest{Input: commute(), Save: true})
		require.NoError(t, err)
		c.advance(time.Minute)

		report, err := e.Advise(ctx, engine.AdviseRequest{Mode: advisor.ModeQuickTips, SaveInsight: true})
		require.NoError(t, err)
		require.NotNil(t, report.Advice)
		assert.Equal(t, "Take the train.", report.Advice.Text)
		assert.Equal(t, calc.Record.ID, report.RecordID)
		require.NotNil(t, report.Insight)
		assert.Equal(t, calc.Record.ID, report.Insight.RecordID)

		insights, err := e.Insights(ctx, calc.Record.ID)
		require.NoError(t, err)
		require.Len(t, insights, 1)
		assert.Equal(t, "quick_tips", insights[0].Mode)
		require.Len(t, backend.prompts, 1)
		assert.Contains(t, backend.prompts[0], "kg CO₂/day footprint")
	})

	t.Run("fresh input compared with the latest record", func(t *testing.T) {
		backend := &stubBackend{text: "Better than before."}
		e, c := newEngine(t, engine.WithAdvisor(advisor.NewGenerator(backend)))
		heavy := commute()
		heavy.DistanceKm = 30
		_, err := e.Calculate(ctx, engine.CalculateRequest{Input: heavy, Save: true})
		require.NoError(t, err)
		c.advance(time.Hour)

		in := commute()
		report, err := e.Advise(ctx, engine.AdviseRequest{Mode: advisor.ModeCompare, Input: &in})
		require.NoError(t, err)
		assert.Empty(t, report.RecordID)
		assert.InDelta(t, 3.55, report.Footprint.Total, 1e-9)
	})

	t.Run("unavailable advisor keeps the footprint", func(t *testing.T) {
		backend := &stubBackend{err: errors.New("connection refused")}
		e, _ := newEngine(t, engine.WithAdvisor(advisor.NewGenerator(backend)))
		in := commute()
		report, err := e.Advise(ctx, engine.AdviseRequest{Input: &in})
		require.ErrorIs(t, err, advisor.ErrAdvisoryUnavailable)
		assert.InDelta(t, 3.55, report.Footprint.Total, 1e-9)
		assert.Nil(t, report.Advice)
	})

	t.Run("fresh input survives unreadable history", func(t *testing.T) {
		backend := &stubBackend{text: "Cycle more."}
		e := engine.New(nil,
			engine.WithStore(brokenStore{}),
			engine.WithAdvisor(advisor.NewGenerator(backend)))
		in := commute()
		report, err := e.Advise(ctx, engine.AdviseRequest{Input: &in})
		require.NoError(t, err)
		require.NotNil(t, report.Advice)
		assert.Equal(t, "Cycle more.", report.Advice.Text)
		assert.InDelta(t, 3.55, report.Footprint.Total, 1e-9)
		require.Len(t, backend.prompts, 1)
	})

	t.Run("latest record needs readable history", func(t *testing.T) {
		backend := &stubBackend{text: "unused"}
		e := engine.New(nil,
			engine.WithStore(brokenStore{}),
			engine.WithAdvisor(advisor.NewGenerator(backend)))
		_, err := e.Advise(ctx, engine.AdviseRequest{})
		require.ErrorIs(t, err, history.ErrStorageUnavailable)
		assert.Empty(t, backend.prompts)
	})

	t.Run("no advisor configured", func(t *testing.T) {
		e, _ := newEngine(t)
		in := commute()
		_, err := e.Advise(ctx, engine.AdviseRequest{Input: &in})
		require.ErrorIs(t, err, advisor.ErrAdvisoryUnavailable)
		assert.False(t, e.HasAdvisor())
	})

	t.Run("action plan uses the goal", func(t *testing.T) {
		backend := &stubBackend{text: "Plan."}
		e, _ := newEngine(t, engine.WithAdvisor(advisor.NewGenerator(backend)))
		_, err := e.Calculate(ctx, engine.CalculateRequest{Input: commute(), Save: true})
		require.NoError(t, err)

		_, err = e.Advise(ctx, engine.AdviseRequest{Mode: advisor.ModeActionPlan, ReductionPercent: 50})
		require.NoError(t, err)
		require.Len(t, backend.prompts, 1)
		assert.True(t, strings.Contains(backend.prompts[0], "Target: 1.7"), "half the average is the plan target")
	})
}

func TestWindow(t *testing.T) {
	e, c := newEngine(t)
	w := e.Window(0, history.DateRange{})
	assert.Equal(t, c.now().AddDate(0, 0, -engine.DefaultTrendDays), w.From)

	explicit := history.DateRange{From: c.now().AddDate(0, -1, 0)}
	assert.Equal(t, explicit, e.Window(7, explicit))
}
