package engine

import (
	"context"
	"errors"

	"github.com/rshade/carbonfocus/internal/greenops"
	"github.com/rshade/carbonfocus/internal/history"
	"github.com/rshade/carbonfocus/internal/logging"
	"github.com/rshade/carbonfocus/internal/trend"
)

// TrendRequest selects the window to aggregate.
type TrendRequest struct {
	Days    int
	Range   history.DateRange
	Rolling int
}

// TrendReport is a window summary plus what the presentation layer shows
// next to it.
type TrendReport struct {
	Summary trend.Summary `json:"summary"`
	Rolling []trend.Point `json:"rolling,omitempty"`
	// Latest is the newest record in the window, if any.
	Latest    *history.Record `json:"latest,omitempty"`
	Direction trend.Direction `json:"direction"`
	// ChangeVsPrevious is the fractional change of Latest against the record
	// before it. Nil when undefined.
	ChangeVsPrevious *float64 `json:"change_vs_previous,omitempty"`
	// Comparison places the window average against the benchmarks.
	Comparison *greenops.Comparison `json:"comparison,omitempty"`
}

// Trend aggregates the ledger over the requested window.
func (e *Engine) Trend(ctx context.Context, req TrendRequest) (TrendReport, error) {
	window := e.Window(req.Days, req.Range)
	records, err := e.History(ctx, window)
	if err != nil {
		return TrendReport{}, err
	}

	report := TrendReport{
		Summary:   trend.Summarize(records, window),
		Rolling:   trend.RollingAverage(records, req.Rolling),
		Direction: trend.DirectionUnknown,
	}
	if n := len(records); n > 0 {
		latest := records[n-1]
		report.Latest = &latest
		report.Direction = trend.DirectionOf(latest.Total, report.Summary)
		if n > 1 {
			change, changeErr := trend.PercentChange(latest.Result, records[n-2].Result)
			if changeErr == nil {
				report.ChangeVsPrevious = &change
			} else if !errors.Is(changeErr, trend.ErrUndefinedChange) {
				return TrendReport{}, changeErr
			}
		}
	}
	if avg, ok := report.Summary.Average(); ok {
		if cmp, cmpErr := greenops.Compare(avg); cmpErr == nil {
			report.Comparison = &cmp
		}
	}

	logging.FromContext(ctx).Debug().Ctx(ctx).
		Str("component", "engine").
		Str("operation", "trend").
		Int("record_count", report.Summary.Count).
		Bool("no_data", report.Summary.NoData).
		Msg("trend summarized")

	return report, nil
}

// GoalReport is a reduction goal assessed against the window average.
type GoalReport struct {
	Window     history.DateRange       `json:"window"`
	Records    int                     `json:"records"`
	Assessment greenops.GoalAssessment `json:"assessment"`
}

// Goal assesses a pct reduction of the average over the last days days.
// It returns ErrNoData when the window holds no records.
func (e *Engine) Goal(ctx context.Context, pct float64, days int) (GoalReport, error) {
	window := e.Window(days, history.DateRange{})
	records, err := e.History(ctx, window)
	if err != nil {
		return GoalReport{}, err
	}

	summary := trend.Summarize(records, window)
	avg, ok := summary.Average()
	if !ok {
		return GoalReport{}, ErrNoData
	}

	assessment, err := greenops.AssessGoal(avg, pct)
	if err != nil {
		return GoalReport{}, err
	}
	return GoalReport{Window: window, Records: summary.Count, Assessment: assessment}, nil
}
