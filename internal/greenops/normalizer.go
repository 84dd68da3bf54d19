package greenops

import (
	"math"
	"strings"
)

// getUnitFactor returns the kilograms per unit, matching case-insensitively.
func getUnitFactor(unit string) (float64, bool) {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "g", "gco2e":
		return GramsToKg, true
	case "kg", "kgco2e", "":
		return KgToKg, true
	case "t", "tco2e", "tonnes":
		return TonsToKg, true
	case "lb", "lbco2e", "lbs":
		return PoundsToKg, true
	default:
		return 0, false
	}
}

// NormalizeToKg converts value in unit to kilograms. An empty unit means kg.
// Returns ErrNegativeValue, ErrInvalidUnit or ErrCalculationOverflow.
func NormalizeToKg(value float64, unit string) (float64, error) {
	if math.IsInf(value, 0) || math.IsNaN(value) {
		return 0, ErrCalculationOverflow
	}
	if value < 0 {
		return 0, ErrNegativeValue
	}
	factor, ok := getUnitFactor(unit)
	if !ok {
		return 0, ErrInvalidUnit
	}
	result := value * factor
	if math.IsInf(result, 0) {
		return 0, ErrCalculationOverflow
	}
	return result, nil
}

// ConvertFromKg converts kilograms to unit. Negative values are allowed so
// that deltas can be displayed.
func ConvertFromKg(kg float64, unit string) (float64, error) {
	if math.IsInf(kg, 0) || math.IsNaN(kg) {
		return 0, ErrCalculationOverflow
	}
	factor, ok := getUnitFactor(unit)
	if !ok {
		return 0, ErrInvalidUnit
	}
	return kg / factor, nil
}

// UnitSymbol returns the display symbol for unit ("kg", "g", "t" or "lb").
func UnitSymbol(unit string) string {
	switch factor, _ := getUnitFactor(unit); factor {
	case GramsToKg:
		return "g"
	case TonsToKg:
		return "t"
	case PoundsToKg:
		return "lb"
	default:
		return "kg"
	}
}

// IsRecognizedUnit reports whether unit is a supported carbon unit.
func IsRecognizedUnit(unit string) bool {
	_, ok := getUnitFactor(unit)
	return ok
}
