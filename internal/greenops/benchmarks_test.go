package greenops

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/carbonfocus/internal/emissions"
)

func TestCompare(t *testing.T) {
	c, err := Compare(8.63)
	require.NoError(t, err)

	assert.InDelta(t, 3149.95, c.AnnualKg, 1e-6)
	assert.InDelta(t, 3.14995, c.AnnualTonnes, 1e-9)
	assert.InDelta(t, 2.63, c.VsParis.Kg, 1e-9)
	assert.InDelta(t, 2.63/6*100, c.VsParis.Percent, 1e-9)
	assert.InDelta(t, -3.37, c.VsWorld.Kg, 1e-9)
	assert.Equal(t, []string{
		emissions.BenchmarkWorld,
		emissions.BenchmarkEU,
		emissions.BenchmarkUS,
	}, c.Below)
}

func TestCompareBoundaryCountsAsBelow(t *testing.T) {
	c, err := Compare(emissions.ParisDailyKg)
	require.NoError(t, err)
	assert.Contains(t, c.Below, emissions.BenchmarkParis)
	assert.Zero(t, c.VsParis.Kg)
}

func TestCompareInvalid(t *testing.T) {
	_, err := Compare(-1)
	require.ErrorIs(t, err, ErrNegativeValue)
	_, err = Compare(math.NaN())
	require.ErrorIs(t, err, ErrCalculationOverflow)
}

func TestAssessGoal(t *testing.T) {
	tests := []struct {
		name       string
		avg        float64
		pct        float64
		wantTarget float64
		wantParis  bool
		wantErr    error
	}{
		{"twenty percent of ten", 10, 20, 8, false, nil},
		{"half reaches paris", 10, 50, 5, true, nil},
		{"exactly paris is not below", 12, 50, 6, false, nil},
		{"full reduction", 10, 100, 0, true, nil},
		{"zero percent", 10, 0, 0, false, ErrInvalidReduction},
		{"over one hundred", 10, 101, 0, false, ErrInvalidReduction},
		{"negative average", -1, 10, 0, false, ErrNegativeValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := AssessGoal(tt.avg, tt.pct)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.wantTarget, g.TargetDailyKg, 1e-9)
			assert.Equal(t, tt.wantParis, g.MeetsParis)
			assert.InDelta(t, tt.avg-tt.wantTarget, g.DailySavingKg, 1e-9)
			assert.InDelta(t, (tt.avg-tt.wantTarget)*DaysPerYear, g.AnnualSavingKg, 1e-6)
			assert.InDelta(t, tt.wantTarget-emissions.ParisDailyKg, g.GapToParisKg, 1e-9)
		})
	}
}
