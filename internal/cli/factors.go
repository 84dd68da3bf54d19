package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rshade/carbonfocus/internal/emissions"
	"github.com/rshade/carbonfocus/internal/footprint"
)

// factorUnits is the quantity each category's coefficient applies to.
var factorUnits = map[emissions.Category]string{ //nolint:gochecknoglobals // Read-only lookup table.
	emissions.CategoryTransport:   "kg CO₂e/km",
	emissions.CategoryDiet:        "kg CO₂e/day",
	emissions.CategoryHeating:     "kg CO₂e/hour",
	emissions.CategoryElectricity: "kg CO₂e/kWh",
	emissions.CategoryConsumption: "kg CO₂e/unit",
}

func newFactorsCmd() *cobra.Command {
	var (
		output   string
		category string
	)

	cmd := &cobra.Command{
		Use:   "factors",
		Short: "List the emission factors in use",
		Long: `Lists the emission factor table: the built-in coefficients, overlaid by
data.factors_file when one is configured.`,
		Example: `  carbonfocus factors
  carbonfocus factors --category transport --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			format, err := resolveOutput(output)
			if err != nil {
				return err
			}
			if category != "" && !emissions.Category(category).IsValid() {
				return fmt.Errorf("%w: unknown category %q", footprint.ErrInvalidInput, category)
			}

			eng, cleanup, err := buildEngine(ctx, engineNeeds{})
			if err != nil {
				return err
			}
			defer cleanup()

			table := eng.Table()
			var factors []emissions.EmissionFactor
			for _, f := range table.Factors() {
				if category == "" || string(f.Category) == category {
					factors = append(factors, f)
				}
			}

			out := cmd.OutOrStdout()
			if format == outputJSON {
				return renderJSON(out, map[string]any{"source": table.Source(), "factors": factors})
			}

			tw := tabwriter.NewWriter(out, 0, 0, tabPadding, ' ', 0)
			fmt.Fprintln(tw, "CATEGORY\tKEY\tCOEFFICIENT\tUNIT")
			for _, f := range factors {
				fmt.Fprintf(tw, "%s\t%s\t%.3f\t%s\n", f.Category.Label(), f.Key, f.Coefficient, factorUnits[f.Category])
			}
			_ = tw.Flush()
			fmt.Fprintf(out, "\nSource: %s\n", table.Source())
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "only list one category: transport, diet, heating, electricity, consumption")
	addOutputFlag(cmd, &output)
	return cmd
}
