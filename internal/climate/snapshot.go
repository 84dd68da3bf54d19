// Package climate provides live climate context for footprint calculations:
// regional grid carbon intensity, atmospheric CO2 concentration and a
// climate news headline.
//
// Every fetch degrades instead of failing. When a live source is unreachable
// the provider serves the last cached reading, or documented defaults, and
// marks the value as cached.
package climate

import (
	"time"

	"github.com/rshade/carbonfocus/internal/emissions"
)

// Source records whether a value came from a live fetch or a fallback.
type Source string

const (
	// SourceLive marks a value fetched from the upstream API during this run.
	SourceLive Source = "live"
	// SourceCached marks a cached reading or a static default.
	SourceCached Source = "cached"
)

// DefaultCO2PPM is the fallback atmospheric CO2 concentration.
const DefaultCO2PPM = 425.0

// DefaultHeadline is shown when no news feed can be reached.
const DefaultHeadline = "Climate action remains critical for limiting global warming to 1.5°C"

// GridRegionUK is the region covered by the carbon intensity API.
const GridRegionUK = "uk"

// Snapshot is a point-in-time set of external climate values.
// Pointer fields are nil when the value is absent.
type Snapshot struct {
	GridIntensityGPerKWh *float64  `json:"grid_intensity_g_per_kwh,omitempty"`
	GridIndex            string    `json:"grid_index,omitempty"`
	GridRegion           string    `json:"grid_region,omitempty"`
	GridSource           Source    `json:"grid_source"`
	AtmosphericCO2PPM    *float64  `json:"atmospheric_co2_ppm,omitempty"`
	CO2Source            Source    `json:"co2_source"`
	Headline             string    `json:"headline,omitempty"`
	FetchedAt            time.Time `json:"fetched_at"`
	Source               Source    `json:"source"`
}

// FallbackSnapshot returns the snapshot used when nothing could be fetched or
// recovered from cache: no grid intensity and the default CO2 concentration.
func FallbackSnapshot(now time.Time) Snapshot {
	ppm := DefaultCO2PPM
	return Snapshot{
		GridSource:        SourceCached,
		AtmosphericCO2PPM: &ppm,
		CO2Source:         SourceCached,
		Headline:          DefaultHeadline,
		FetchedAt:         now,
		Source:            SourceCached,
	}
}

// GridIntensityKgPerKWh returns the grid intensity converted to kg per kWh.
// The boolean is false when no grid reading is present.
func (s *Snapshot) GridIntensityKgPerKWh() (float64, bool) {
	if s == nil || s.GridIntensityGPerKWh == nil {
		return 0, false
	}
	return *s.GridIntensityGPerKWh / 1000.0, true
}

// CO2PPM returns the atmospheric CO2 value, or DefaultCO2PPM when absent.
func (s *Snapshot) CO2PPM() (float64, Source) {
	if s == nil || s.AtmosphericCO2PPM == nil {
		return DefaultCO2PPM, SourceCached
	}
	return *s.AtmosphericCO2PPM, s.CO2Source
}

// AppliesTo reports whether the snapshot's grid reading covers region.
func (s *Snapshot) AppliesTo(region string) bool {
	if s == nil || s.GridIntensityGPerKWh == nil || s.GridRegion == "" {
		return false
	}
	return CanonicalRegion(region) == CanonicalRegion(s.GridRegion)
}

// CanonicalRegion folds region aliases onto a single name.
func CanonicalRegion(region string) string {
	return emissions.ResolveRegion(region)
}

// summarizeSource returns live if any value is live.
func summarizeSource(sources ...Source) Source {
	for _, s := range sources {
		if s == SourceLive {
			return SourceLive
		}
	}
	return SourceCached
}
