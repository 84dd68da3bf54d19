package emissions

// Benchmark is a reference daily footprint in kg CO2e per person per day.
type Benchmark struct {
	Key     string  `json:"key"`
	Label   string  `json:"label"`
	DailyKg float64 `json:"daily_kg"`
}

// Benchmark keys.
const (
	BenchmarkParis      = "paris_agreement_daily"
	BenchmarkWorld      = "world_average_daily"
	BenchmarkUS         = "us_average_daily"
	BenchmarkEU         = "eu_average_daily"
	BenchmarkDeveloping = "developing_average_daily"
)

// ParisDailyKg is the per-person daily budget compatible with the 1.5°C target.
const ParisDailyKg = 6.0

// WorldAverageDailyKg is the world average daily footprint.
const WorldAverageDailyKg = 12.0

// Targets returns the daily benchmarks, lowest budget first.
func Targets() []Benchmark {
	return []Benchmark{
		{Key: BenchmarkDeveloping, Label: "Developing avg", DailyKg: 4.0},
		{Key: BenchmarkParis, Label: "Paris target", DailyKg: ParisDailyKg},
		{Key: BenchmarkWorld, Label: "World avg", DailyKg: WorldAverageDailyKg},
		{Key: BenchmarkEU, Label: "EU avg", DailyKg: 20.0},
		{Key: BenchmarkUS, Label: "US avg", DailyKg: 44.0},
	}
}

// TargetByKey returns the benchmark with the given key.
func TargetByKey(key string) (Benchmark, bool) {
	for _, b := range Targets() {
		if b.Key == key {
			return b, true
		}
	}
	return Benchmark{}, false
}
