package trend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/rshade/carbonfocus/internal/emissions"
	"github.com/rshade/carbonfocus/internal/footprint"
	"github.com/rshade/carbonfocus/internal/history"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func at(d int) time.Time {
	return time.Date(2026, 4, d, 9, 0, 0, 0, time.UTC)
}

func rec(id string, ts time.Time, transport, diet float64) history.Record {
	per := map[emissions.Category]float64{
		emissions.CategoryTransport: transport,
		emissions.CategoryDiet:      diet,
	}
	return history.Record{
		ID:     id,
		Result: footprint.Result{Timestamp: ts, PerCategory: per, Total: footprint.Sum(per)},
	}
}

func TestSummarize(t *testing.T) {
	records := []history.Record{
		rec("04", at(4), 6, 2),   // 8
		rec("01", at(1), 2, 2),   // 4
		rec("02", at(2), 8, 4),   // 12
		rec("03", at(3), 4, 4),   // 8
		rec("09", at(20), 50, 0), // outside window
	}

	s := Summarize(records, history.DateRange{From: at(1), To: at(10)})

	require.False(t, s.NoData)
	assert.Equal(t, 4, s.Count)
	avg, ok := s.Average()
	require.True(t, ok)
	assert.InDelta(t, 8.0, avg, 1e-12)
	assert.InDelta(t, 32.0, s.SumTotal, 1e-12)

	require.NotNil(t, s.BestDay)
	assert.Equal(t, "01", s.BestDay.RecordID)
	require.NotNil(t, s.WorstDay)
	assert.Equal(t, "02", s.WorstDay.RecordID)

	require.Len(t, s.CategoryTrend, 4)
	for i, want := range []string{"01", "02", "03", "04"} {
		assert.Equal(t, want, s.CategoryTrend[i].RecordID)
	}

	assert.InDelta(t, 5.0, s.CategoryAverages[emissions.CategoryTransport], 1e-12)
	assert.InDelta(t, 3.0, s.CategoryAverages[emissions.CategoryDiet], 1e-12)
	assert.InDelta(t, 0.0, s.CategoryAverages[emissions.CategoryHeating], 1e-12)
	assert.InDelta(t, 20.0/32.0, s.CategoryShare[emissions.CategoryTransport], 1e-12)
	assert.InDelta(t, 12.0/32.0, s.CategoryShare[emissions.CategoryDiet], 1e-12)
}

func TestSummarizeTiesGoToEarliest(t *testing.T) {
	records := []history.Record{
		rec("0B", at(2), 5, 0),
		rec("0A", at(2), 5, 0),
		rec("0C", at(1), 5, 0),
		rec("0D", at(3), 5, 0),
	}

	s := Summarize(records, history.DateRange{})
	assert.Equal(t, "0C", s.BestDay.RecordID)
	assert.Equal(t, "0C", s.WorstDay.RecordID)

	same := Summarize(records[:2], history.DateRange{})
	assert.Equal(t, "0A", same.BestDay.RecordID, "equal timestamps fall back to the lowest ID")
	assert.Equal(t, "0A", same.WorstDay.RecordID)
}

func TestSummarizeEmptyWindow(t *testing.T) {
	s := Summarize([]history.Record{rec("01", at(1), 1, 1)}, history.DateRange{From: at(5)})

	assert.True(t, s.NoData)
	assert.Nil(t, s.AverageTotal)
	assert.Zero(t, s.Count)
	assert.Nil(t, s.BestDay)
	assert.Nil(t, s.WorstDay)
	assert.Empty(t, s.CategoryTrend)
	assert.Nil(t, s.CategoryShare)

	_, ok := s.Average()
	assert.False(t, ok)

	assert.True(t, Summarize(nil, history.DateRange{}).NoData)
}

func TestSummarizeZeroTotalHasNoShare(t *testing.T) {
	s := Summarize([]history.Record{rec("01", at(1), 0, 0)}, history.DateRange{})
	require.NotNil(t, s.AverageTotal)
	assert.Zero(t, *s.AverageTotal)
	assert.Nil(t, s.CategoryShare)
}

func TestSummarizeDoesNotMutateInput(t *testing.T) {
	records := []history.Record{rec("02", at(2), 1, 1), rec("01", at(1), 1, 1)}
	_ = Summarize(records, history.DateRange{})
	assert.Equal(t, "02", records[0].ID)

	s := Summarize(records, history.DateRange{})
	s.CategoryTrend[0].PerCategory[emissions.CategoryDiet] = 99
	assert.InDelta(t, 1.0, records[1].PerCategory[emissions.CategoryDiet], 1e-12)
}

func TestPercentChange(t *testing.T) {
	tests := []struct {
		name    string
		cur     float64
		ref     float64
		want    float64
		wantErr error
	}{
		{"reduction", 8, 10, -0.2, nil},
		{"increase", 15, 10, 0.5, nil},
		{"unchanged", 10, 10, 0, nil},
		{"from zero", 5, 0, 0, ErrUndefinedChange},
		{"zero to zero", 0, 0, 0, ErrUndefinedChange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PercentChange(footprint.Result{Total: tt.cur}, footprint.Result{Total: tt.ref})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestRollingAverage(t *testing.T) {
	records := []history.Record{
		rec("03", at(3), 6, 0),
		rec("01", at(1), 2, 0),
		rec("02", at(2), 4, 0),
		rec("04", at(4), 8, 0),
	}

	got := RollingAverage(records, 2)
	require.Len(t, got, 4)
	want := []float64{2, 3, 5, 7}
	for i, p := range got {
		assert.InDelta(t, want[i], p.Value, 1e-12)
	}
	assert.True(t, got[0].Timestamp.Equal(at(1)))

	assert.Nil(t, RollingAverage(records, 0))
	assert.Nil(t, RollingAverage(nil, 3))
}

func TestDirectionOf(t *testing.T) {
	s := Summarize([]history.Record{rec("01", at(1), 5, 5)}, history.DateRange{})
	assert.Equal(t, DirectionImproving, DirectionOf(8, s))
	assert.Equal(t, DirectionNeedsAttention, DirectionOf(10, s))
	assert.Equal(t, DirectionNeedsAttention, DirectionOf(12, s))
	assert.Equal(t, DirectionUnknown, DirectionOf(1, Summary{NoData: true}))
}

func TestLastDays(t *testing.T) {
	now := at(30)
	r := LastDays(now, 7)
	assert.True(t, r.Contains(now))
	assert.True(t, r.Contains(at(23)))
	assert.False(t, r.Contains(at(22)))
	assert.Equal(t, history.DateRange{}, LastDays(now, 0))
}
