package emissions

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Category identifies a group of emission factors.
type Category string

// Factor categories, in canonical order.
const (
	CategoryTransport   Category = "transport"
	CategoryDiet        Category = "diet"
	CategoryHeating     Category = "heating"
	CategoryElectricity Category = "electricity"
	CategoryConsumption Category = "consumption"
)

// DefaultRegion is the electricity key used when no region is given.
const DefaultRegion = "default"

// Categories returns all categories in canonical order.
func Categories() []Category {
	return []Category{
		CategoryTransport,
		CategoryDiet,
		CategoryHeating,
		CategoryElectricity,
		CategoryConsumption,
	}
}

// IsValid reports whether c is one of the known categories.
func (c Category) IsValid() bool {
	switch c {
	case CategoryTransport, CategoryDiet, CategoryHeating, CategoryElectricity, CategoryConsumption:
		return true
	default:
		return false
	}
}

// String returns the category name.
func (c Category) String() string {
	return string(c)
}

// Label returns the display label for the category (e.g. "Transport").
func (c Category) Label() string {
	if c == "" {
		return ""
	}
	s := string(c)
	return strings.ToUpper(s[:1]) + s[1:]
}

// EmissionFactor is a single coefficient in the table.
type EmissionFactor struct {
	Category    Category `json:"category"    yaml:"category"`
	Key         string   `json:"key"         yaml:"key"`
	Coefficient float64  `json:"coefficient" yaml:"coefficient"`
}

// Table is an immutable emission factor lookup table.
// The zero value is an empty table; use Default or New.
type Table struct {
	factors map[Category]map[string]float64
	source  string
}

// New builds a table from the given factors. Keys are normalized to lower case.
// It returns an error for unknown categories, empty keys, or coefficients that
// are negative or not finite.
func New(source string, factors []EmissionFactor) (*Table, error) {
	t := &Table{
		factors: make(map[Category]map[string]float64),
		source:  source,
	}
	for _, f := range factors {
		if err := t.set(f); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Table) set(f EmissionFactor) error {
	if !f.Category.IsValid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidFactorsFile, f.Category)
	}
	key := normalizeKey(f.Key)
	if key == "" {
		return fmt.Errorf("%w: empty key in category %q", ErrInvalidFactorsFile, f.Category)
	}
	if math.IsNaN(f.Coefficient) || math.IsInf(f.Coefficient, 0) || f.Coefficient < 0 {
		return fmt.Errorf("%w: coefficient for %s/%s must be a non-negative number, got %v",
			ErrInvalidFactorsFile, f.Category, key, f.Coefficient)
	}
	if t.factors[f.Category] == nil {
		t.factors[f.Category] = make(map[string]float64)
	}
	t.factors[f.Category][key] = f.Coefficient
	return nil
}

// Lookup returns the coefficient for (category, key).
// Returns ErrUnknownKey if the pair is absent.
func (t *Table) Lookup(category Category, key string) (float64, error) {
	if t == nil {
		return 0, fmt.Errorf("%w: %s/%s (empty table)", ErrUnknownKey, category, key)
	}
	byKey, ok := t.factors[category]
	if !ok {
		return 0, fmt.Errorf("%w: category %q", ErrUnknownKey, category)
	}
	coef, ok := byKey[normalizeKey(key)]
	if !ok {
		return 0, fmt.Errorf("%w: %s/%s", ErrUnknownKey, category, key)
	}
	return coef, nil
}

// Has reports whether (category, key) is present.
func (t *Table) Has(category Category, key string) bool {
	_, err := t.Lookup(category, key)
	return err == nil
}

// GridIntensity returns the static grid intensity for a region in kg CO2e per kWh.
// An empty region resolves to DefaultRegion.
func (t *Table) GridIntensity(region string) (float64, error) {
	return t.Lookup(CategoryElectricity, ResolveRegion(region))
}

// Keys returns the sorted keys of a category. Unknown categories return nil.
func (t *Table) Keys(category Category) []string {
	if t == nil {
		return nil
	}
	byKey := t.factors[category]
	if len(byKey) == 0 {
		return nil
	}
	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Factors returns a copy of every factor in canonical category order, sorted by key.
func (t *Table) Factors() []EmissionFactor {
	var out []EmissionFactor
	for _, c := range Categories() {
		for _, k := range t.Keys(c) {
			out = append(out, EmissionFactor{Category: c, Key: k, Coefficient: t.factors[c][k]})
		}
	}
	return out
}

// Source describes where the table came from ("builtin" or a file path).
func (t *Table) Source() string {
	if t == nil {
		return ""
	}
	return t.source
}

// Len returns the number of factors in the table.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	n := 0
	for _, byKey := range t.factors {
		n += len(byKey)
	}
	return n
}

// ResolveRegion normalizes a region name, folds aliases ("gb" is "uk") and
// maps the empty string to DefaultRegion.
func ResolveRegion(region string) string {
	r := normalizeKey(region)
	switch r {
	case "":
		return DefaultRegion
	case "gb", "united_kingdom", "great_britain":
		return "uk"
	default:
		return r
	}
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
