package greenops

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// printer formats numbers with English thousand separators.
//
//nolint:gochecknoglobals // Global printer is idiomatic for x/text/message usage.
var printer = message.NewPrinter(language.English)

// FormatNumber formats an integer with thousand separators: 18248 is "18,248".
func FormatNumber(n int64) string {
	return printer.Sprintf("%d", n)
}

// FormatFloat rounds f to precision decimals and adds thousand separators:
// FormatFloat(1234.567, 2) is "1,234.57".
func FormatFloat(f float64, precision int) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	if precision <= 0 {
		return FormatNumber(int64(math.Round(f)))
	}

	formatted := strconv.FormatFloat(f, 'f', precision, 64)
	intPart, frac, _ := strings.Cut(formatted, ".")
	n, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return formatted
	}
	grouped := FormatNumber(n)
	// "-0.25" parses to 0 and would lose its sign.
	if n == 0 && strings.HasPrefix(intPart, "-") {
		grouped = "-" + grouped
	}
	return grouped + "." + frac
}

// FormatSigned is FormatFloat with an explicit "+" for positive values.
func FormatSigned(f float64, precision int) string {
	s := FormatFloat(f, precision)
	if f > 0 && !strings.HasPrefix(s, "+") {
		return "+" + s
	}
	return s
}

// FormatLarge abbreviates values of a million or more ("~1.5 billion") and
// formats smaller values with separators.
func FormatLarge(n float64) string {
	if n >= BillionThreshold {
		return fmt.Sprintf("~%.1f billion", n/BillionThreshold)
	}
	if n >= LargeNumberThreshold {
		return fmt.Sprintf("~%.1f million", n/LargeNumberThreshold)
	}
	return FormatNumber(int64(math.Round(n)))
}

// FormatCarbon renders a kilogram amount in unit, e.g. "8.63 kg CO₂e" or
// "3.15 t CO₂e". An unrecognized unit falls back to kilograms.
func FormatCarbon(kg float64, unit string, precision int) string {
	v, err := ConvertFromKg(kg, unit)
	if err != nil {
		return FormatFloat(kg, precision) + " kg CO₂e"
	}
	return FormatFloat(v, precision) + " " + UnitSymbol(unit) + " CO₂e"
}
