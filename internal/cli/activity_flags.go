package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rshade/carbonfocus/internal/emissions"
	"github.com/rshade/carbonfocus/internal/footprint"
)

// activityFlags binds one day of activity to command flags.
type activityFlags struct {
	transport    string
	distance     float64
	diet         string
	heating      string
	heatingHours float64
	electricity  float64
	region       string
	newClothes   bool
	streaming    float64
	consume      []string
}

var activityFlagNames = []string{ //nolint:gochecknoglobals // Read-only flag list.
	"transport", "distance", "diet", "heating", "heating-hours", "electricity", "region",
	"new-clothes", "streaming-hours", "consume",
}

func (f *activityFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.transport, "transport", "", "transport mode, e.g. car_petrol, bus, train, bike")
	cmd.Flags().Float64Var(&f.distance, "distance", 0, "distance travelled today in km")
	cmd.Flags().StringVar(&f.diet, "diet", "", "diet type, e.g. vegan, vegetarian, omnivore")
	cmd.Flags().StringVar(&f.heating, "heating", "", "heating method, e.g. natural_gas, heat_pump")
	cmd.Flags().Float64Var(&f.heatingHours, "heating-hours", 0, "hours of heating today")
	cmd.Flags().Float64Var(&f.electricity, "electricity", 0, "electricity used today in kWh")
	cmd.Flags().StringVar(&f.region, "region", "", "electricity grid region, e.g. uk, france, us")
	cmd.Flags().BoolVar(&f.newClothes, "new-clothes", false, "bought new clothes this month (spread over 30 days)")
	cmd.Flags().Float64Var(&f.streaming, "streaming-hours", 0, "hours of streaming or screen time today")
	cmd.Flags().StringArrayVar(&f.consume, "consume", nil,
		"consumption item as key=quantity, repeatable; _monthly and _yearly keys count items bought in that period")
}

// set reports whether any activity flag was given.
func (f *activityFlags) set(cmd *cobra.Command) bool {
	for _, name := range activityFlagNames {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

// input builds the ActivityInput. Range checks are left to the calculator.
func (f *activityFlags) input() (footprint.ActivityInput, error) {
	in := footprint.ActivityInput{
		TransportMode:  f.transport,
		DistanceKm:     f.distance,
		DietType:       f.diet,
		HeatingMethod:  f.heating,
		HeatingHours:   f.heatingHours,
		ElectricityKWh: f.electricity,
		Region:         f.region,
	}

	if f.newClothes {
		in.Consumption = append(in.Consumption,
			footprint.ConsumptionItem{Key: emissions.ConsumptionNewClothes, Quantity: 1})
	}
	if f.streaming != 0 {
		in.Consumption = append(in.Consumption,
			footprint.ConsumptionItem{Key: emissions.ConsumptionStreaming, Quantity: f.streaming})
	}

	for _, raw := range f.consume {
		key, qty, ok := strings.Cut(raw, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return in, fmt.Errorf("%w: --consume %q must be key=quantity", footprint.ErrInvalidInput, raw)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(qty), 64)
		if err != nil {
			return in, fmt.Errorf("%w: --consume %q: quantity is not a number", footprint.ErrInvalidInput, raw)
		}
		in.Consumption = append(in.Consumption, footprint.ConsumptionItem{Key: strings.TrimSpace(key), Quantity: v})
	}
	return in, nil
}
