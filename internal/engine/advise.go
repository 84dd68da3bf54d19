package engine

import (
	"context"
	"fmt"

	"github.com/rshade/carbonfocus/internal/advisor"
	"github.com/rshade/carbonfocus/internal/footprint"
	"github.com/rshade/carbonfocus/internal/greenops"
	"github.com/rshade/carbonfocus/internal/history"
	"github.com/rshade/carbonfocus/internal/logging"
	"github.com/rshade/carbonfocus/internal/trend"
)

// AdviseRequest asks for advice on a fresh input or on the newest saved
// record when Input is nil.
type AdviseRequest struct {
	Mode     advisor.Mode             `json:"mode"`
	Input    *footprint.ActivityInput `json:"input,omitempty"`
	Guidance string                   `json:"guidance,omitempty"`
	Location string                   `json:"location,omitempty"`
	// TrendDays is the history window given as context (DefaultTrendDays when zero).
	TrendDays int `json:"trend_days,omitempty"`
	// ReductionPercent sets the action-plan target. Zero targets Paris.
	ReductionPercent float64 `json:"reduction_percent,omitempty"`
	// SaveInsight stores the advice, linked to the advised record when there is one.
	SaveInsight bool `json:"save_insight,omitempty"`
}

// AdviceReport carries the footprint that was advised on, so it survives an
// advisory failure.
type AdviceReport struct {
	Footprint footprint.Result `json:"footprint"`
	RecordID  string           `json:"record_id,omitempty"`
	Advice    *advisor.Advice  `json:"advice,omitempty"`
	Insight   *history.Insight `json:"insight,omitempty"`
}

// Advise produces advice for the request. On advisory failure the report
// still holds the footprint and the error wraps advisor.ErrAdvisoryUnavailable.
func (e *Engine) Advise(ctx context.Context, req AdviseRequest) (AdviceReport, error) {
	log := logging.FromContext(ctx)
	mode := req.Mode
	if mode == "" {
		mode = advisor.ModeComprehensive
	}

	snapshot := e.climate.Fetch(ctx)
	areq := advisor.Request{
		Mode:     mode,
		Activity: req.Input,
		Location: req.Location,
		Guidance: req.Guidance,
		Climate:  &snapshot,
	}

	var report AdviceReport
	var recent []history.Record
	// History is context for fresh input, so a storage failure only drops it.
	useHistory := e.store != nil
	if useHistory {
		var err error
		recent, err = e.store.Latest(ctx, 2) //nolint:mnd // Current and previous.
		if err != nil {
			if req.Input == nil {
				return AdviceReport{}, err
			}
			log.Warn().Ctx(ctx).
				Str("component", "engine").
				Str("operation", "advise").
				Err(err).
				Msg("history unavailable, advising without trend context")
			recent = nil
			useHistory = false
		}
	}

	if req.Input != nil {
		result, err := footprint.ComputeAt(*req.Input, e.table, &snapshot, e.now())
		if err != nil {
			return AdviceReport{}, err
		}
		report.Footprint = result
		if len(recent) > 0 {
			ref := recent[0].Result
			areq.Reference = &ref
		}
	} else {
		if len(recent) == 0 {
			return AdviceReport{}, ErrNoData
		}
		report.Footprint = recent[0].Result
		report.RecordID = recent[0].ID
		if len(recent) > 1 {
			ref := recent[1].Result
			areq.Reference = &ref
		}
	}
	areq.Footprint = report.Footprint

	if useHistory {
		window := e.Window(req.TrendDays, history.DateRange{})
		records, err := e.store.Query(ctx, window)
		switch {
		case err != nil && req.Input == nil:
			return report, err
		case err != nil:
			log.Warn().Ctx(ctx).
				Str("component", "engine").
				Str("operation", "advise").
				Err(err).
				Msg("history unavailable, advising without trend context")
		default:
			summary := trend.Summarize(records, window)
			areq.Trend = &summary
			if avg, ok := summary.Average(); ok && req.ReductionPercent > 0 {
				goal, goalErr := greenops.AssessGoal(avg, req.ReductionPercent)
				if goalErr != nil {
					return report, fmt.Errorf("%w: %w", advisor.ErrInvalidRequest, goalErr)
				}
				areq.CurrentAverage = goal.CurrentAverageKg
				areq.TargetDaily = goal.TargetDailyKg
			}
		}
	}

	advice, err := e.advisor.Generate(ctx, areq)
	if err != nil {
		return report, err
	}
	report.Advice = &advice

	if req.SaveInsight {
		if e.store == nil {
			return report, ErrNoStore
		}
		insight, saveErr := e.store.AppendInsight(ctx, history.Insight{
			RecordID: report.RecordID,
			Mode:     string(advice.Mode),
			Model:    advice.Model,
			Text:     advice.Text,
		})
		if saveErr != nil {
			return report, saveErr
		}
		report.Insight = &insight
	}

	log.Info().Ctx(ctx).
		Str("component", "engine").
		Str("operation", "advise").
		Str("mode", string(mode)).
		Bool("saved", report.Insight != nil).
		Msg("advice ready")

	return report, nil
}

// Insights lists saved advice, optionally for one record.
func (e *Engine) Insights(ctx context.Context, recordID string) ([]history.Insight, error) {
	if e.store == nil {
		return nil, ErrNoStore
	}
	return e.store.Insights(ctx, recordID)
}
