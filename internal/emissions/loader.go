package emissions

import (
	"fmt"
	"os"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

// SupportedFactorsVersion is the semver constraint accepted for factors files.
const SupportedFactorsVersion = "^1"

// factorsFile is the on-disk YAML form of a factors override.
//
//	version: "1.0.0"
//	factors:
//	  transport:
//	    car_petrol: 0.18
//	  electricity:
//	    default: 0.25
type factorsFile struct {
	Version string                        `yaml:"version"`
	Factors map[string]map[string]float64 `yaml:"factors"`
}

// LoadFile reads a YAML factors file and overlays its coefficients on the
// built-in table. Keys absent from the file keep their built-in values.
// An empty path returns Default().
func LoadFile(path string) (*Table, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading factors file %s: %w", path, err)
	}

	return Parse(path, data)
}

// Parse overlays the YAML factors document in data on the built-in table.
// source is recorded as the table's Source.
func Parse(source string, data []byte) (*Table, error) {
	var doc factorsFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %w", ErrInvalidFactorsFile, source, err)
	}

	if err := checkVersion(doc.Version); err != nil {
		return nil, err
	}

	table := Default()
	table.source = source
	for category, byKey := range doc.Factors {
		for key, coef := range byKey {
			f := EmissionFactor{Category: Category(normalizeKey(category)), Key: key, Coefficient: coef}
			if err := table.set(f); err != nil {
				return nil, err
			}
		}
	}

	return table, nil
}

func checkVersion(raw string) error {
	if raw == "" {
		return fmt.Errorf("%w: missing version", ErrInvalidFactorsFile)
	}
	v, err := semver.NewVersion(raw)
	if err != nil {
		return fmt.Errorf("%w: version %q: %w", ErrInvalidFactorsFile, raw, err)
	}
	constraint, err := semver.NewConstraint(SupportedFactorsVersion)
	if err != nil {
		return fmt.Errorf("parsing supported version constraint: %w", err)
	}
	if !constraint.Check(v) {
		return fmt.Errorf("%w: version %s does not satisfy %s",
			ErrInvalidFactorsFile, v.String(), SupportedFactorsVersion)
	}
	return nil
}
