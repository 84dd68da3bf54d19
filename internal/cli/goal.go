package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rshade/carbonfocus/internal/advisor"
	"github.com/rshade/carbonfocus/internal/config"
	"github.com/rshade/carbonfocus/internal/engine"
	"github.com/rshade/carbonfocus/internal/footprint"
	"github.com/rshade/carbonfocus/internal/tui"
)

type goalParams struct {
	reduction   float64
	days        int
	plan        bool
	saveInsight bool
	output      string
}

func newGoalCmd() *cobra.Command {
	var params goalParams

	cmd := &cobra.Command{
		Use:   "goal",
		Short: "Set a reduction goal against your recent average",
		Long: `Computes a daily target as your recent average reduced by a percentage and
shows how far you are from it and from the Paris-aligned 6 kg/day.

With --plan the advisor turns the goal into a three-month action plan.`,
		Example: `  # The configured goal over the configured window
  carbonfocus goal

  # A 30% cut of the last two weeks, with an action plan
  carbonfocus goal --reduction 30 --days 14 --plan`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGoal(cmd, &params)
		},
	}

	cmd.Flags().Float64VarP(&params.reduction, "reduction", "r", 0, "reduction in percent, in (0, 100] (default from config)")
	cmd.Flags().IntVar(&params.days, "days", 0, "averaging window in days (default from config)")
	cmd.Flags().BoolVar(&params.plan, "plan", false, "ask the advisor for an action plan toward the goal")
	cmd.Flags().BoolVar(&params.saveInsight, "save-insight", false, "store the action plan with the latest record")
	addOutputFlag(cmd, &params.output)

	return cmd
}

func runGoal(cmd *cobra.Command, params *goalParams) error {
	ctx := cmd.Context()
	cfg := config.GetGlobalConfig()

	format, err := resolveOutput(params.output)
	if err != nil {
		return err
	}
	pct := params.reduction
	if !cmd.Flags().Changed("reduction") {
		pct = cfg.Goals.ReductionPercent
	}
	days := params.days
	if days == 0 {
		days = cfg.Goals.TrendDays
	}
	if days < 0 {
		return fmt.Errorf("%w: --days must be positive", footprint.ErrInvalidInput)
	}

	eng, cleanup, err := buildEngine(ctx, engineNeeds{store: true, advisor: params.plan})
	if err != nil {
		return err
	}
	defer cleanup()

	report, err := eng.Goal(ctx, pct, days)
	if err != nil {
		return err
	}

	var plan *engine.AdviceReport
	if params.plan {
		adviceReport, adviseErr := adviseWithProgress(ctx, cmd, eng, engine.AdviseRequest{
			Mode:             advisor.ModeActionPlan,
			TrendDays:        days,
			ReductionPercent: pct,
			SaveInsight:      params.saveInsight,
		})
		if adviseErr != nil {
			// Show the goal before reporting the advisory failure.
			_ = renderGoal(cmd.OutOrStdout(), format, report, nil)
			return adviseErr
		}
		plan = &adviceReport
	}

	return renderGoal(cmd.OutOrStdout(), format, report, plan)
}

func renderGoal(w io.Writer, format string, report engine.GoalReport, plan *engine.AdviceReport) error {
	if format == outputJSON {
		payload := map[string]any{"goal": report}
		if plan != nil {
			payload["plan"] = plan
		}
		return renderJSON(w, payload)
	}

	a := report.Assessment
	tw := tabwriter.NewWriter(w, 0, 0, tabPadding, ' ', 0)
	fmt.Fprintf(tw, "Current average:\t%s/day\t(%d record(s))\n", formatKg(a.CurrentAverageKg), report.Records)
	fmt.Fprintf(tw, "Reduction goal:\t%s%%\n", formatDecimal(a.ReductionPercent))
	fmt.Fprintf(tw, "Daily target:\t%s/day\n", formatKg(a.TargetDailyKg))
	fmt.Fprintf(tw, "Saving:\t%s/day\t%s/year\n", formatKg(a.DailySavingKg), formatKg(a.AnnualSavingKg))
	_ = tw.Flush()

	if a.MeetsParis {
		fmt.Fprintf(w, "The target meets the Paris-aligned budget (%s under).\n", formatKg(-a.GapToParisKg))
	} else {
		fmt.Fprintf(w, "The target is still %s above the Paris-aligned budget.\n", formatKg(a.GapToParisKg))
	}
	fmt.Fprintln(w)
	fmt.Fprint(w, tui.RenderGauge(a.CurrentAverageKg, a.TargetDailyKg, terminalWidth(), config.GetOutputUnit()))

	if plan != nil {
		fmt.Fprintln(w)
		return renderAdvice(w, *plan)
	}
	return nil
}
