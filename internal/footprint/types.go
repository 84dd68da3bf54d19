// Package footprint computes a daily carbon footprint from activity inputs
// and an emission factor table.
package footprint

import (
	"time"

	"github.com/rshade/carbonfocus/internal/climate"
	"github.com/rshade/carbonfocus/internal/emissions"
)

// ConsumptionItem is an optional tracked consumption quantity. For "_monthly"
// and "_yearly" keys Quantity counts items bought in that period.
type ConsumptionItem struct {
	Key      string  `json:"key"`
	Quantity float64 `json:"quantity"`
}

// ActivityInput is one day of user activity. It is transient and never
// persisted directly.
type ActivityInput struct {
	TransportMode  string            `json:"transport_mode,omitempty"`
	DistanceKm     float64           `json:"distance_km"`
	DietType       string            `json:"diet_type,omitempty"`
	HeatingMethod  string            `json:"heating_method,omitempty"`
	HeatingHours   float64           `json:"heating_hours"`
	ElectricityKWh float64           `json:"electricity_kwh"`
	Region         string            `json:"region,omitempty"`
	Consumption    []ConsumptionItem `json:"consumption,omitempty"`
}

// DataSources records which external inputs were live and which fell back.
type DataSources struct {
	Electricity    climate.Source `json:"electricity"`
	AtmosphericCO2 climate.Source `json:"atmospheric_co2"`
}

// Result is a computed footprint. It is immutable once produced; persistence
// is a separate, explicit step.
type Result struct {
	Timestamp             time.Time                      `json:"timestamp"`
	PerCategory           map[emissions.Category]float64 `json:"per_category"`
	Total                 float64                        `json:"total"`
	RegionUsed            string                         `json:"region_used"`
	DataSources           DataSources                    `json:"data_source_flags"`
	GridIntensityKgPerKWh float64                        `json:"grid_intensity_kg_per_kwh"`
	AtmosphericCO2PPM     float64                        `json:"atmospheric_co2_ppm"`
	Notes                 string                         `json:"notes,omitempty"`
}

// Sum adds per-category values in canonical category order so that the result
// is deterministic regardless of map iteration order.
func Sum(perCategory map[emissions.Category]float64) float64 {
	total := 0.0
	for _, c := range emissions.Categories() {
		total += perCategory[c]
	}
	return total
}

// Category returns the value for c (zero if absent).
func (r Result) Category(c emissions.Category) float64 {
	return r.PerCategory[c]
}

// Largest returns the category with the largest contribution. Ties go to the
// earlier category in canonical order. Returns "" for an all-zero result.
func (r Result) Largest() emissions.Category {
	var best emissions.Category
	bestVal := 0.0
	for _, c := range emissions.Categories() {
		if v := r.PerCategory[c]; v > bestVal {
			best, bestVal = c, v
		}
	}
	return best
}

// Clone returns a deep copy of r.
func (r Result) Clone() Result {
	c := r
	if r.PerCategory != nil {
		c.PerCategory = make(map[emissions.Category]float64, len(r.PerCategory))
		for k, v := range r.PerCategory {
			c.PerCategory[k] = v
		}
	}
	return c
}

// WithNotes returns a copy of r with Notes set.
func (r Result) WithNotes(notes string) Result {
	c := r.Clone()
	c.Notes = notes
	return c
}
