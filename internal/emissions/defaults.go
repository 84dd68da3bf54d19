package emissions

import "strings"

// BuiltinSource is the Source of the table returned by Default.
const BuiltinSource = "builtin"

// defaultFactors are the built-in coefficients.
//
//nolint:gochecknoglobals // Read-only reference data, copied into each Table.
var defaultFactors = map[Category]map[string]float64{
	// kg CO2e per km
	CategoryTransport: {
		"car_petrol":       0.192,
		"car_diesel":       0.171,
		"car_hybrid":       0.109,
		"car_electric":     0.053,
		"bus":              0.105,
		"train":            0.041,
		"metro":            0.033,
		"bike":             0.0,
		"walk":             0.0,
		"motorcycle":       0.103,
		"scooter_electric": 0.025,
	},
	// kg CO2e per day
	CategoryDiet: {
		"vegan":              1.5,
		"vegetarian":         2.5,
		"pescatarian":        3.2,
		"omnivore_low_meat":  4.0,
		"omnivore":           5.0,
		"omnivore_high_meat": 6.5,
	},
	// kg CO2e per hour
	CategoryHeating: {
		"natural_gas":  2.0,
		"oil":          2.5,
		"electric":     0.4,
		"heat_pump":    0.2,
		"solar":        0.0,
		"wood_pellets": 0.39,
	},
	// kg CO2e per kWh, static regional fallbacks for live grid data
	CategoryElectricity: {
		DefaultRegion: 0.233,
		"france":      0.056,
		"germany":     0.338,
		"uk":          0.233,
		"us":          0.417,
		"china":       0.555,
		"india":       0.708,
		"norway":      0.013,
		"poland":      0.766,
	},
	// kg CO2e per unit
	CategoryConsumption: {
		"new_clothes_monthly":   8.0,
		"secondhand_clothes":    0.5,
		"electronics_yearly":    2.0,
		"streaming_hours_daily": 0.055,
	},
}

// Consumption keys with dedicated CLI flags.
const (
	ConsumptionNewClothes = "new_clothes_monthly"
	ConsumptionStreaming  = "streaming_hours_daily"
)

// Amortization periods for consumption items bought once per month or year.
const (
	DaysPerMonth = 30
	DaysPerYear  = 365

	monthlySuffix = "_monthly"
	yearlySuffix  = "_yearly"
)

// AmortizationDays returns the number of days a consumption item's
// coefficient is spread over: DaysPerMonth for "_monthly" keys, DaysPerYear
// for "_yearly" keys and 1 otherwise.
func AmortizationDays(key string) float64 {
	key = normalizeKey(key)
	switch {
	case strings.HasSuffix(key, monthlySuffix):
		return DaysPerMonth
	case strings.HasSuffix(key, yearlySuffix):
		return DaysPerYear
	default:
		return 1
	}
}

// MinimumImpactDiet is the diet key with the lowest built-in coefficient.
const MinimumImpactDiet = "vegan"

// Default returns the built-in emission factor table.
func Default() *Table {
	t := &Table{
		factors: make(map[Category]map[string]float64, len(defaultFactors)),
		source:  BuiltinSource,
	}
	for c, byKey := range defaultFactors {
		cp := make(map[string]float64, len(byKey))
		for k, v := range byKey {
			cp[k] = v
		}
		t.factors[c] = cp
	}
	return t
}
