package greenops

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculate(t *testing.T) {
	tests := []struct {
		name        string
		input       CarbonInput
		wantMiles   float64
		wantPhones  float64
		wantIsEmpty bool
		wantErr     error
	}{
		{
			name:       "one day of a typical footprint",
			input:      CarbonInput{Value: 8.63, Unit: "kg"},
			wantMiles:  8.63 / 0.192,
			wantPhones: 8.63 / 0.00822,
		},
		{
			name:       "grams normalized",
			input:      CarbonInput{Value: 150000, Unit: "g"},
			wantMiles:  781.25,
			wantPhones: 150 / 0.00822,
		},
		{
			name:       "tonnes normalized",
			input:      CarbonInput{Value: 3.15, Unit: "t"},
			wantMiles:  3150 / 0.192,
			wantPhones: 3150 / 0.00822,
		},
		{
			name:        "below threshold is empty",
			input:       CarbonInput{Value: 0.5, Unit: "kg"},
			wantIsEmpty: true,
		},
		{
			name:        "negative value",
			input:       CarbonInput{Value: -1, Unit: "kg"},
			wantIsEmpty: true,
			wantErr:     ErrNegativeValue,
		},
		{
			name:        "unknown unit",
			input:       CarbonInput{Value: 10, Unit: "stone"},
			wantIsEmpty: true,
			wantErr:     ErrInvalidUnit,
		},
		{
			name:        "infinite value",
			input:       CarbonInput{Value: math.Inf(1), Unit: "kg"},
			wantIsEmpty: true,
			wantErr:     ErrCalculationOverflow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Calculate(tt.input)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.True(t, out.IsEmpty)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantIsEmpty, out.IsEmpty)
			if tt.wantIsEmpty {
				assert.Empty(t, out.Results)
				return
			}

			require.Len(t, out.Results, 4)
			miles, ok := out.Result(EquivalencyMilesDriven)
			require.True(t, ok)
			assert.InEpsilon(t, tt.wantMiles, miles.Value, 0.01)
			phones, ok := out.Result(EquivalencySmartphonesCharged)
			require.True(t, ok)
			assert.InEpsilon(t, tt.wantPhones, phones.Value, 0.01)
			assert.Contains(t, out.DisplayText, "driving")
			assert.Contains(t, out.CompactText, "phones")
		})
	}
}

func TestCalculateFormatsLargeValues(t *testing.T) {
	out, err := ForKg(20_000)
	require.NoError(t, err)

	phones, ok := out.Result(EquivalencySmartphonesCharged)
	require.True(t, ok)
	assert.Equal(t, "~2.4 million", phones.FormattedValue)

	miles, ok := out.Result(EquivalencyMilesDriven)
	require.True(t, ok)
	assert.Equal(t, "104,167", miles.FormattedValue)
}

func TestEquivalencyTypeString(t *testing.T) {
	assert.Equal(t, "MilesDriven", EquivalencyMilesDriven.String())
	assert.Equal(t, "HomeDays", EquivalencyHomeDays.String())
	assert.Equal(t, "EquivalencyType(9)", EquivalencyType(9).String())
}

func TestResultMissing(t *testing.T) {
	_, ok := EquivalencyOutput{}.Result(EquivalencyTreeSeedlings)
	assert.False(t, ok)
}
