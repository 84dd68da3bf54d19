package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rshade/carbonfocus/internal/config"
	"github.com/rshade/carbonfocus/internal/engine"
	"github.com/rshade/carbonfocus/internal/logging"
	"github.com/rshade/carbonfocus/internal/tui"
)

type calcParams struct {
	activity activityFlags
	save     bool
	note     string
	output   string
}

func newCalcCmd() *cobra.Command {
	var params calcParams

	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Calculate a daily carbon footprint",
		Long: `Calculates the footprint of one day of activity: transport, diet,
heating, electricity and optional consumption items.

Electricity uses the live UK grid intensity when the region is uk and the
carbon intensity API is reachable, and the regional table value otherwise.
Nothing is stored unless --save is given.`,
		Example: `  # Bus commute and a vegetarian diet
  carbonfocus calc --transport bus --distance 10 --diet vegetarian

  # A full day, saved to history
  carbonfocus calc --transport car_petrol --distance 30 --diet omnivore \
    --heating natural_gas --heating-hours 4 --electricity 8 --region uk --save

  # With consumption items, as JSON
  carbonfocus calc --diet vegan --new-clothes --streaming-hours 3 --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCalc(cmd, &params)
		},
	}

	params.activity.register(cmd)
	cmd.Flags().BoolVar(&params.save, "save", false, "append the result to history")
	cmd.Flags().StringVar(&params.note, "note", "", "free-text note stored with the result")
	addOutputFlag(cmd, &params.output)

	return cmd
}

func runCalc(cmd *cobra.Command, params *calcParams) error {
	ctx := cmd.Context()
	log := logging.FromContext(ctx)

	format, err := resolveOutput(params.output)
	if err != nil {
		return err
	}
	input, err := params.activity.input()
	if err != nil {
		return err
	}

	eng, cleanup, err := buildEngine(ctx, engineNeeds{store: params.save})
	if err != nil {
		return err
	}
	defer cleanup()

	calc, calcErr := eng.Calculate(ctx, engine.CalculateRequest{
		Input: input,
		Notes: params.note,
		Save:  params.save,
	})
	if calcErr != nil && calc.Result.Timestamp.IsZero() {
		return calcErr
	}

	if err = renderCalculation(cmd.OutOrStdout(), format, calc); err != nil {
		return err
	}

	if calcErr != nil {
		log.Error().Ctx(ctx).Err(calcErr).Msg("saving footprint failed")
		return fmt.Errorf("the result above was not saved, retry with --save: %w", calcErr)
	}
	return nil
}

func renderCalculation(w io.Writer, format string, calc engine.Calculation) error {
	if format == outputJSON {
		return renderJSON(w, calc)
	}

	unit := config.GetOutputUnit()
	fmt.Fprint(w, tui.RenderBreakdown(calc.Result, terminalWidth(), unit))
	fmt.Fprintln(w)

	if !calc.Equivalencies.IsEmpty {
		fmt.Fprintln(w, calc.Equivalencies.DisplayText)
	}
	cmp := calc.Comparison
	fmt.Fprintf(w, "Annual equivalent: %s (%s t/year)\n",
		formatKg(cmp.AnnualKg), formatDecimal(cmp.AnnualTonnes))
	fmt.Fprintf(w, "vs Paris target: %s (%s)   vs world average: %s (%s)\n",
		formatKgSigned(cmp.VsParis.Kg), formatPercent(cmp.VsParis.Percent/100),
		formatKgSigned(cmp.VsWorld.Kg), formatPercent(cmp.VsWorld.Percent/100))
	printDataSources(w, calc.Result)

	if calc.Record != nil {
		fmt.Fprintf(w, "Saved as %s\n", calc.Record.ID)
	}
	return nil
}
