package footprint

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/rshade/carbonfocus/internal/climate"
	"github.com/rshade/carbonfocus/internal/emissions"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scenarioTable mirrors the worked example: car 0.17, average diet 2.5,
// gas 0.2 and default grid 0.233.
func scenarioTable(t *testing.T) *emissions.Table {
	t.Helper()
	table, err := emissions.New("scenario", []emissions.EmissionFactor{
		{Category: emissions.CategoryTransport, Key: "car", Coefficient: 0.17},
		{Category: emissions.CategoryDiet, Key: "average", Coefficient: 2.5},
		{Category: emissions.CategoryHeating, Key: "gas", Coefficient: 0.2},
		{Category: emissions.CategoryElectricity, Key: emissions.DefaultRegion, Coefficient: 0.233},
		{Category: emissions.CategoryElectricity, Key: "uk", Coefficient: 0.233},
		{Category: emissions.CategoryConsumption, Key: "streaming_hours_daily", Coefficient: 0.055},
	})
	require.NoError(t, err)
	return table
}

func ptr(v float64) *float64 { return &v }

func TestComputeScenario(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	input := ActivityInput{
		TransportMode:  "car",
		DistanceKm:     20,
		DietType:       "average",
		HeatingMethod:  "gas",
		HeatingHours:   2,
		ElectricityKWh: 10,
		Region:         "default",
	}

	got, err := ComputeAt(input, scenarioTable(t), nil, now)
	require.NoError(t, err)

	assert.InDelta(t, 3.4, got.Category(emissions.CategoryTransport), 1e-9)
	assert.InDelta(t, 2.5, got.Category(emissions.CategoryDiet), 1e-9)
	assert.InDelta(t, 0.4, got.Category(emissions.CategoryHeating), 1e-9)
	assert.InDelta(t, 2.33, got.Category(emissions.CategoryElectricity), 1e-9)
	assert.InDelta(t, 0.0, got.Category(emissions.CategoryConsumption), 1e-12)
	assert.InDelta(t, 8.63, got.Total, 1e-9)
	assert.Equal(t, Sum(got.PerCategory), got.Total, "total must equal the exact category sum")

	assert.Equal(t, emissions.DefaultRegion, got.RegionUsed)
	assert.Equal(t, climate.SourceCached, got.DataSources.Electricity)
	assert.Equal(t, climate.SourceCached, got.DataSources.AtmosphericCO2)
	assert.InDelta(t, climate.DefaultCO2PPM, got.AtmosphericCO2PPM, 1e-12)
	assert.True(t, got.Timestamp.Equal(now))
}

func TestComputeTotalInvariant(t *testing.T) {
	table := emissions.Default()
	inputs := []ActivityInput{
		{TransportMode: "car_petrol", DistanceKm: 37.3, DietType: "omnivore", HeatingMethod: "natural_gas",
			HeatingHours: 5.5, ElectricityKWh: 11.1, Region: "poland"},
		{TransportMode: "train", DistanceKm: 120, DietType: "vegetarian", ElectricityKWh: 3},
		{DietType: "pescatarian", Consumption: []ConsumptionItem{
			{Key: emissions.ConsumptionStreaming, Quantity: 3},
			{Key: emissions.ConsumptionNewClothes, Quantity: 1},
		}},
		{},
	}

	for _, in := range inputs {
		got, err := Compute(in, table, nil)
		require.NoError(t, err)
		assert.Equal(t, Sum(got.PerCategory), got.Total)
		assert.Len(t, got.PerCategory, len(emissions.Categories()))
	}
}

func TestComputeZeroInputIsDietOnly(t *testing.T) {
	table := emissions.Default()
	input := ActivityInput{
		TransportMode: "car_petrol",
		DietType:      emissions.MinimumImpactDiet,
		HeatingMethod: "oil",
	}

	got, err := Compute(input, table, nil)
	require.NoError(t, err)

	diet, err := table.Lookup(emissions.CategoryDiet, emissions.MinimumImpactDiet)
	require.NoError(t, err)
	assert.Equal(t, diet, got.Total)
	assert.Zero(t, got.Category(emissions.CategoryTransport))
	assert.Zero(t, got.Category(emissions.CategoryHeating))
	assert.Zero(t, got.Category(emissions.CategoryElectricity))
}

func TestComputeConsumption(t *testing.T) {
	input := ActivityInput{
		Consumption: []ConsumptionItem{{Key: "streaming_hours_daily", Quantity: 4}},
	}
	got, err := Compute(input, scenarioTable(t), nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.22, got.Category(emissions.CategoryConsumption), 1e-12)
	assert.Equal(t, got.Category(emissions.CategoryConsumption), got.Total)
}

func TestComputeAmortizesPeriodicConsumption(t *testing.T) {
	table := emissions.Default()
	tests := []struct {
		name string
		item ConsumptionItem
		want float64
	}{
		{"new clothes this month", ConsumptionItem{Key: emissions.ConsumptionNewClothes, Quantity: 1}, 8.0 / 30},
		{"two electronics this year", ConsumptionItem{Key: "electronics_yearly", Quantity: 2}, 2 * 2.0 / 365},
		{"secondhand is per item", ConsumptionItem{Key: "secondhand_clothes", Quantity: 1}, 0.5},
		{"streaming is per hour", ConsumptionItem{Key: emissions.ConsumptionStreaming, Quantity: 3}, 3 * 0.055},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compute(ActivityInput{Consumption: []ConsumptionItem{tt.item}}, table, nil)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got.Category(emissions.CategoryConsumption), 1e-12)
		})
	}
}

func TestComputeInvalidInput(t *testing.T) {
	table := emissions.Default()
	tests := []struct {
		name  string
		input ActivityInput
	}{
		{"negative distance", ActivityInput{TransportMode: "bus", DistanceKm: -1}},
		{"negative heating", ActivityInput{HeatingMethod: "oil", HeatingHours: -0.5}},
		{"negative electricity", ActivityInput{ElectricityKWh: -3}},
		{"nan electricity", ActivityInput{ElectricityKWh: math.NaN()}},
		{"infinite distance", ActivityInput{TransportMode: "bus", DistanceKm: math.Inf(1)}},
		{"distance without mode", ActivityInput{DistanceKm: 5}},
		{"hours without method", ActivityInput{HeatingHours: 1}},
		{"more than a day of heating", ActivityInput{HeatingMethod: "oil", HeatingHours: 25}},
		{"negative consumption", ActivityInput{Consumption: []ConsumptionItem{{Key: "secondhand_clothes", Quantity: -1}}}},
		{"consumption without key", ActivityInput{Consumption: []ConsumptionItem{{Quantity: 1}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compute(tt.input, table, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestComputeUnknownKey(t *testing.T) {
	table := emissions.Default()
	tests := []struct {
		name  string
		input ActivityInput
	}{
		{"transport", ActivityInput{TransportMode: "teleport", DistanceKm: 1}},
		{"diet", ActivityInput{DietType: "carnivore_supreme"}},
		{"heating", ActivityInput{HeatingMethod: "dragon", HeatingHours: 1}},
		{"region", ActivityInput{ElectricityKWh: 1, Region: "atlantis"}},
		{"consumption", ActivityInput{Consumption: []ConsumptionItem{{Key: "yachts", Quantity: 1}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compute(tt.input, table, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, emissions.ErrUnknownKey)
			assert.NotErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestComputeLiveGridIntensity(t *testing.T) {
	table := scenarioTable(t)
	snapshot := &climate.Snapshot{
		GridIntensityGPerKWh: ptr(150),
		GridRegion:           climate.GridRegionUK,
		GridSource:           climate.SourceLive,
		AtmosphericCO2PPM:    ptr(427.1),
		CO2Source:            climate.SourceLive,
		Source:               climate.SourceLive,
	}

	t.Run("matching region uses live reading", func(t *testing.T) {
		got, err := Compute(ActivityInput{ElectricityKWh: 10, Region: "GB"}, table, snapshot)
		require.NoError(t, err)
		assert.InDelta(t, 1.5, got.Category(emissions.CategoryElectricity), 1e-12)
		assert.InDelta(t, 0.15, got.GridIntensityKgPerKWh, 1e-12)
		assert.Equal(t, climate.SourceLive, got.DataSources.Electricity)
		assert.Equal(t, climate.SourceLive, got.DataSources.AtmosphericCO2)
		assert.InDelta(t, 427.1, got.AtmosphericCO2PPM, 1e-12)
		assert.Equal(t, "uk", got.RegionUsed)
	})

	t.Run("other region falls back to static factor", func(t *testing.T) {
		got, err := Compute(ActivityInput{ElectricityKWh: 10}, table, snapshot)
		require.NoError(t, err)
		assert.InDelta(t, 2.33, got.Category(emissions.CategoryElectricity), 1e-12)
		assert.Equal(t, climate.SourceCached, got.DataSources.Electricity)
	})
}

func TestComputeProviderOutage(t *testing.T) {
	outage := climate.FallbackSnapshot(time.Now())

	got, err := Compute(ActivityInput{ElectricityKWh: 10, Region: "uk"}, scenarioTable(t), &outage)
	require.NoError(t, err)
	assert.Equal(t, climate.SourceCached, got.DataSources.Electricity)
	assert.InDelta(t, 2.33, got.Category(emissions.CategoryElectricity), 1e-12)
}

func TestComputeNilTable(t *testing.T) {
	_, err := Compute(ActivityInput{}, nil, nil)
	require.Error(t, err)
}

func TestResultHelpers(t *testing.T) {
	r := Result{PerCategory: map[emissions.Category]float64{
		emissions.CategoryDiet:    2.5,
		emissions.CategoryHeating: 2.5,
	}}
	assert.Equal(t, emissions.CategoryDiet, r.Largest(), "ties go to the earlier canonical category")
	assert.Equal(t, emissions.Category(""), Result{}.Largest())

	c := r.WithNotes("holiday")
	c.PerCategory[emissions.CategoryDiet] = 100
	assert.InDelta(t, 2.5, r.PerCategory[emissions.CategoryDiet], 1e-12, "clone must not share the map")
	assert.Equal(t, "holiday", c.Notes)
	assert.Empty(t, r.Notes)
}
