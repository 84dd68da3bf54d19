package footprint

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rshade/carbonfocus/internal/climate"
	"github.com/rshade/carbonfocus/internal/emissions"
)

// ErrInvalidInput indicates negative, non-finite or inconsistent user input.
// The calculation is rejected before any coefficient is looked up.
var ErrInvalidInput = errors.New("invalid activity input")

// Compute calculates the footprint for input using the current time.
// See ComputeAt.
func Compute(input ActivityInput, table *emissions.Table, snapshot *climate.Snapshot) (Result, error) {
	return ComputeAt(input, table, snapshot, time.Now())
}

// ComputeAt calculates the footprint for input, stamping the result with now.
//
// Per category:
//   - transport = DistanceKm × factor(transport, TransportMode)
//   - diet = factor(diet, DietType)
//   - heating = HeatingHours × factor(heating, HeatingMethod)
//   - electricity = ElectricityKWh × grid intensity, where the live snapshot
//     reading is used when it covers the input region and the static regional
//     factor otherwise
//   - consumption = Σ Quantity × factor(consumption, Key) / AmortizationDays(Key),
//     so one "_monthly" item bought this month counts 1/30 of its factor per day
//
// Missing optional inputs contribute zero. A nil snapshot is treated the same
// as a provider outage. Returns ErrInvalidInput or emissions.ErrUnknownKey.
func ComputeAt(input ActivityInput, table *emissions.Table, snapshot *climate.Snapshot, now time.Time) (Result, error) {
	if table == nil {
		return Result{}, errors.New("emission factor table cannot be nil")
	}
	if err := Validate(input); err != nil {
		return Result{}, err
	}

	region := emissions.ResolveRegion(input.Region)
	per := make(map[emissions.Category]float64, len(emissions.Categories()))

	transport, err := scaled(table, emissions.CategoryTransport, input.TransportMode, input.DistanceKm)
	if err != nil {
		return Result{}, err
	}
	per[emissions.CategoryTransport] = transport

	diet := 0.0
	if strings.TrimSpace(input.DietType) != "" {
		diet, err = table.Lookup(emissions.CategoryDiet, input.DietType)
		if err != nil {
			return Result{}, err
		}
	}
	per[emissions.CategoryDiet] = diet

	heating, err := scaled(table, emissions.CategoryHeating, input.HeatingMethod, input.HeatingHours)
	if err != nil {
		return Result{}, err
	}
	per[emissions.CategoryHeating] = heating

	gridKg, gridSource, err := gridIntensity(table, region, snapshot)
	if err != nil {
		return Result{}, err
	}
	per[emissions.CategoryElectricity] = input.ElectricityKWh * gridKg

	consumption := 0.0
	for _, item := range input.Consumption {
		coef, lookupErr := table.Lookup(emissions.CategoryConsumption, item.Key)
		if lookupErr != nil {
			return Result{}, lookupErr
		}
		consumption += item.Quantity * coef / emissions.AmortizationDays(item.Key)
	}
	per[emissions.CategoryConsumption] = consumption

	ppm, co2Source := snapshot.CO2PPM()

	return Result{
		Timestamp:   now.UTC(),
		PerCategory: per,
		Total:       Sum(per),
		RegionUsed:  region,
		DataSources: DataSources{
			Electricity:    gridSource,
			AtmosphericCO2: co2Source,
		},
		GridIntensityKgPerKWh: gridKg,
		AtmosphericCO2PPM:     ppm,
	}, nil
}

// Validate rejects negative or non-finite quantities and quantities without a
// matching category key.
func Validate(input ActivityInput) error {
	quantities := []struct {
		name  string
		value float64
	}{
		{"distance_km", input.DistanceKm},
		{"heating_hours", input.HeatingHours},
		{"electricity_kwh", input.ElectricityKWh},
	}
	for _, q := range quantities {
		if err := checkQuantity(q.name, q.value); err != nil {
			return err
		}
	}

	if input.DistanceKm > 0 && strings.TrimSpace(input.TransportMode) == "" {
		return fmt.Errorf("%w: distance_km set without transport_mode", ErrInvalidInput)
	}
	if input.HeatingHours > 0 && strings.TrimSpace(input.HeatingMethod) == "" {
		return fmt.Errorf("%w: heating_hours set without heating_method", ErrInvalidInput)
	}
	const hoursPerDay = 24
	if input.HeatingHours > hoursPerDay {
		return fmt.Errorf("%w: heating_hours must be at most %d, got %v", ErrInvalidInput, hoursPerDay, input.HeatingHours)
	}

	for i, item := range input.Consumption {
		if strings.TrimSpace(item.Key) == "" {
			return fmt.Errorf("%w: consumption[%d] has no key", ErrInvalidInput, i)
		}
		if err := checkQuantity(fmt.Sprintf("consumption[%s]", item.Key), item.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func checkQuantity(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s must be a finite number", ErrInvalidInput, name)
	}
	if v < 0 {
		return fmt.Errorf("%w: %s must be non-negative, got %v", ErrInvalidInput, name, v)
	}
	return nil
}

// scaled returns quantity × factor(category, key), or zero when key is empty.
func scaled(table *emissions.Table, category emissions.Category, key string, quantity float64) (float64, error) {
	if strings.TrimSpace(key) == "" {
		return 0, nil
	}
	coef, err := table.Lookup(category, key)
	if err != nil {
		return 0, err
	}
	return quantity * coef, nil
}

// gridIntensity picks the live reading when it covers region, else the static factor.
func gridIntensity(table *emissions.Table, region string, snapshot *climate.Snapshot) (float64, climate.Source, error) {
	if snapshot.AppliesTo(region) {
		if kg, ok := snapshot.GridIntensityKgPerKWh(); ok {
			source := snapshot.GridSource
			if source == "" {
				source = climate.SourceCached
			}
			return kg, source, nil
		}
	}
	kg, err := table.GridIntensity(region)
	if err != nil {
		return 0, "", err
	}
	return kg, climate.SourceCached, nil
}
