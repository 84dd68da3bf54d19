// Package trend derives summaries from saved footprint records: averages,
// best and worst days, per-category series and shares, percent change and
// rolling averages. Summaries are computed on demand and never persisted.
package trend

import (
	"errors"
	"sort"
	"time"

	"github.com/rshade/carbonfocus/internal/emissions"
	"github.com/rshade/carbonfocus/internal/footprint"
	"github.com/rshade/carbonfocus/internal/history"
)

// ErrUndefinedChange is returned by PercentChange when the reference total is zero.
var ErrUndefinedChange = errors.New("percent change undefined for a zero reference")

// Direction labels whether the current footprint is below the window average.
type Direction string

// Directions.
const (
	DirectionImproving      Direction = "improving"
	DirectionNeedsAttention Direction = "needs_attention"
	DirectionUnknown        Direction = "unknown"
)

// CategoryPoint is one record's per-category breakdown in a series.
type CategoryPoint struct {
	RecordID    string                         `json:"record_id"`
	Timestamp   time.Time                      `json:"timestamp"`
	PerCategory map[emissions.Category]float64 `json:"per_category"`
	Total       float64                        `json:"total"`
}

// Extreme identifies the best or worst record of a window.
type Extreme struct {
	RecordID  string    `json:"record_id"`
	Timestamp time.Time `json:"timestamp"`
	Total     float64   `json:"total"`
}

// Summary aggregates the records inside a window.
type Summary struct {
	Window           history.DateRange              `json:"window"`
	Count            int                            `json:"count"`
	NoData           bool                           `json:"no_data"`
	AverageTotal     *float64                       `json:"average_total"`
	SumTotal         float64                        `json:"sum_total"`
	BestDay          *Extreme                       `json:"best_day,omitempty"`
	WorstDay         *Extreme                       `json:"worst_day,omitempty"`
	CategoryTrend    []CategoryPoint                `json:"category_trend"`
	CategoryAverages map[emissions.Category]float64 `json:"category_averages,omitempty"`
	CategoryShare    map[emissions.Category]float64 `json:"category_share,omitempty"`
}

// Average returns the window average and whether one exists.
func (s Summary) Average() (float64, bool) {
	if s.AverageTotal == nil {
		return 0, false
	}
	return *s.AverageTotal, true
}

// Point is one value of a rolling series.
type Point struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Summarize aggregates the records that fall inside window. The input may be
// in any order; it is not modified. An empty window yields NoData with a nil
// average.
func Summarize(records []history.Record, window history.DateRange) Summary {
	inWindow := make([]history.Record, 0, len(records))
	for _, r := range records {
		if window.Contains(r.Timestamp) {
			inWindow = append(inWindow, r)
		}
	}
	sortRecords(inWindow)

	s := Summary{
		Window:        window,
		Count:         len(inWindow),
		CategoryTrend: make([]CategoryPoint, 0, len(inWindow)),
	}
	if len(inWindow) == 0 {
		s.NoData = true
		return s
	}

	catSums := make(map[emissions.Category]float64, len(emissions.Categories()))
	best, worst := inWindow[0], inWindow[0]
	for _, r := range inWindow {
		s.SumTotal += r.Total
		for _, c := range emissions.Categories() {
			catSums[c] += r.PerCategory[c]
		}
		// Strict comparisons keep the earliest record on ties, since
		// inWindow is ordered by timestamp then ID.
		if r.Total < best.Total {
			best = r
		}
		if r.Total > worst.Total {
			worst = r
		}
		s.CategoryTrend = append(s.CategoryTrend, CategoryPoint{
			RecordID:    r.ID,
			Timestamp:   r.Timestamp,
			PerCategory: copyCategories(r.PerCategory),
			Total:       r.Total,
		})
	}

	n := float64(len(inWindow))
	avg := s.SumTotal / n
	s.AverageTotal = &avg
	s.BestDay = extreme(best)
	s.WorstDay = extreme(worst)

	s.CategoryAverages = make(map[emissions.Category]float64, len(catSums))
	catTotal := 0.0
	for _, c := range emissions.Categories() {
		s.CategoryAverages[c] = catSums[c] / n
		catTotal += catSums[c]
	}
	if catTotal > 0 {
		s.CategoryShare = make(map[emissions.Category]float64, len(catSums))
		for _, c := range emissions.Categories() {
			s.CategoryShare[c] = catSums[c] / catTotal
		}
	}
	return s
}

// PercentChange returns (current - reference) / reference as a fraction.
func PercentChange(current, reference footprint.Result) (float64, error) {
	return Change(current.Total, reference.Total)
}

// Change is PercentChange on raw totals.
func Change(current, reference float64) (float64, error) {
	if reference == 0 {
		return 0, ErrUndefinedChange
	}
	return (current - reference) / reference, nil
}

// RollingAverage returns the trailing mean of Total over up to n records,
// one point per record in timestamp order. n <= 0 returns nil.
func RollingAverage(records []history.Record, n int) []Point {
	if n <= 0 || len(records) == 0 {
		return nil
	}
	sorted := append([]history.Record(nil), records...)
	sortRecords(sorted)

	out := make([]Point, 0, len(sorted))
	sum := 0.0
	for i, r := range sorted {
		sum += r.Total
		if i >= n {
			sum -= sorted[i-n].Total
		}
		width := min(i+1, n)
		out = append(out, Point{Timestamp: r.Timestamp, Value: sum / float64(width)})
	}
	return out
}

// DirectionOf compares current with the window average. Below average is
// improving; no average is unknown.
func DirectionOf(current float64, summary Summary) Direction {
	avg, ok := summary.Average()
	if !ok {
		return DirectionUnknown
	}
	if current < avg {
		return DirectionImproving
	}
	return DirectionNeedsAttention
}

// LastDays returns the window of the n days up to and including now.
func LastDays(now time.Time, n int) history.DateRange {
	if n <= 0 {
		return history.DateRange{}
	}
	return history.DateRange{
		From: now.AddDate(0, 0, -n),
		To:   now.Add(time.Nanosecond),
	}
}

func extreme(r history.Record) *Extreme {
	return &Extreme{RecordID: r.ID, Timestamp: r.Timestamp, Total: r.Total}
}

func copyCategories(in map[emissions.Category]float64) map[emissions.Category]float64 {
	out := make(map[emissions.Category]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func sortRecords(records []history.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.ID < b.ID
	})
}
