package greenops

import (
	"fmt"
	"math"
)

// Calculate converts input to kilograms and computes its equivalencies.
//
// Inputs below MinEquivalencyThresholdKg return an empty output with InputKg
// set and no error. Invalid units, negative values and non-finite results
// return an empty output with ErrInvalidUnit, ErrNegativeValue or
// ErrCalculationOverflow.
func Calculate(input CarbonInput) (EquivalencyOutput, error) {
	kg, err := NormalizeToKg(input.Value, input.Unit)
	if err != nil {
		return EquivalencyOutput{IsEmpty: true}, err
	}
	if kg < MinEquivalencyThresholdKg {
		return EquivalencyOutput{InputKg: kg, IsEmpty: true}, nil
	}

	specs := []struct {
		typ    EquivalencyType
		factor float64
		label  string
	}{
		{EquivalencyMilesDriven, EPAMilesDrivenFactor, "miles driven"},
		{EquivalencySmartphonesCharged, EPASmartphoneChargeFactor, "smartphones charged"},
		{EquivalencyTreeSeedlings, EPATreeSeedlingFactor, "tree seedlings grown for 10 years"},
		{EquivalencyHomeDays, EPAHomeDayFactor, "days of home electricity"},
	}

	results := make([]EquivalencyResult, 0, len(specs))
	for _, s := range specs {
		v := kg / s.factor
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return EquivalencyOutput{IsEmpty: true}, ErrCalculationOverflow
		}
		results = append(results, EquivalencyResult{
			Type:           s.typ,
			Value:          v,
			FormattedValue: formatEquivalencyValue(v),
			Label:          s.label,
		})
	}

	miles, phones := results[0].FormattedValue, results[1].FormattedValue
	return EquivalencyOutput{
		InputKg:     kg,
		Results:     results,
		DisplayText: fmt.Sprintf("Equivalent to driving ~%s miles or charging ~%s smartphones", miles, phones),
		CompactText: fmt.Sprintf("(≈ %s mi, %s phones)", miles, phones),
	}, nil
}

// ForKg is Calculate for a kilogram amount.
func ForKg(kg float64) (EquivalencyOutput, error) {
	return Calculate(CarbonInput{Value: kg, Unit: "kg"})
}

// Result returns the equivalency of type typ, if present.
func (o EquivalencyOutput) Result(typ EquivalencyType) (EquivalencyResult, bool) {
	for _, r := range o.Results {
		if r.Type == typ {
			return r, true
		}
	}
	return EquivalencyResult{}, false
}

func formatEquivalencyValue(v float64) string {
	if v >= LargeNumberThreshold {
		return FormatLarge(v)
	}
	return FormatNumber(int64(math.Round(v)))
}
