// Package greenops puts a carbon footprint in context: relatable
// equivalencies (miles driven, smartphones charged, tree seedlings, home
// electricity days), comparisons with daily benchmarks such as the Paris
// target, reduction goals, and unit conversion for display.
package greenops

import "fmt"

// EquivalencyType represents a category of carbon emission equivalency.
type EquivalencyType int

const (
	// EquivalencyMilesDriven converts CO2e to miles driven in an average passenger vehicle.
	EquivalencyMilesDriven EquivalencyType = iota

	// EquivalencySmartphonesCharged converts CO2e to smartphone full charges.
	EquivalencySmartphonesCharged

	// EquivalencyTreeSeedlings converts CO2e to tree seedlings grown for 10 years.
	EquivalencyTreeSeedlings

	// EquivalencyHomeDays converts CO2e to days of average US home electricity use.
	EquivalencyHomeDays
)

// String returns the equivalency name.
func (e EquivalencyType) String() string {
	switch e {
	case EquivalencyMilesDriven:
		return "MilesDriven"
	case EquivalencySmartphonesCharged:
		return "SmartphonesCharged"
	case EquivalencyTreeSeedlings:
		return "TreeSeedlings"
	case EquivalencyHomeDays:
		return "HomeDays"
	default:
		return fmt.Sprintf("EquivalencyType(%d)", e)
	}
}

// CarbonInput is a carbon amount with its unit (g, kg, t, lb or the CO2e variants).
type CarbonInput struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// EquivalencyResult is a single calculated equivalency.
type EquivalencyResult struct {
	Type           EquivalencyType `json:"type"`
	Value          float64         `json:"value"`
	FormattedValue string          `json:"formatted_value"`
	Label          string          `json:"label"`
}

// EquivalencyOutput holds every equivalency for one carbon amount.
type EquivalencyOutput struct {
	InputKg float64             `json:"input_kg"`
	Results []EquivalencyResult `json:"results"`

	// DisplayText is the prose form, e.g.
	// "Equivalent to driving ~45 miles or charging ~1,050 smartphones".
	DisplayText string `json:"display_text"`

	// CompactText is the short form, e.g. "(≈ 45 mi, 1,050 phones)".
	CompactText string `json:"compact_text"`

	IsEmpty bool `json:"is_empty"`
}

// Delta is the difference between a footprint and a benchmark.
type Delta struct {
	BenchmarkKg float64 `json:"benchmark_kg"`
	Kg          float64 `json:"kg"`
	// Percent is Kg relative to the benchmark, in percent.
	Percent float64 `json:"percent"`
}

// Comparison places a daily footprint against annual scale and benchmarks.
type Comparison struct {
	DailyKg      float64 `json:"daily_kg"`
	AnnualKg     float64 `json:"annual_kg"`
	AnnualTonnes float64 `json:"annual_tonnes"`
	VsParis      Delta   `json:"vs_paris"`
	VsWorld      Delta   `json:"vs_world"`
	// Below lists the benchmark keys the footprint is at or under.
	Below []string `json:"below"`
}

// GoalAssessment describes a reduction goal against a current average.
type GoalAssessment struct {
	CurrentAverageKg float64 `json:"current_average_kg"`
	ReductionPercent float64 `json:"reduction_percent"`
	TargetDailyKg    float64 `json:"target_daily_kg"`
	DailySavingKg    float64 `json:"daily_saving_kg"`
	AnnualSavingKg   float64 `json:"annual_saving_kg"`
	MeetsParis       bool    `json:"meets_paris"`
	// GapToParisKg is TargetDailyKg minus the Paris benchmark; negative is under it.
	GapToParisKg float64 `json:"gap_to_paris_kg"`
}
