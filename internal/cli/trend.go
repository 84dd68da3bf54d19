package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rshade/carbonfocus/internal/config"
	"github.com/rshade/carbonfocus/internal/emissions"
	"github.com/rshade/carbonfocus/internal/engine"
	"github.com/rshade/carbonfocus/internal/footprint"
	"github.com/rshade/carbonfocus/internal/tui"
)

type trendParams struct {
	window  windowFlags
	rolling int
	output  string
}

func newTrendCmd() *cobra.Command {
	var params trendParams

	cmd := &cobra.Command{
		Use:   "trend",
		Short: "Summarize footprint history over a window",
		Long: `Summarizes saved footprints over a window: average, best and worst day,
per-category share, and a chart of each day against the Paris target.`,
		Example: `  # The last 30 days
  carbonfocus trend

  # Two weeks with a 3-record rolling average
  carbonfocus trend --days 14 --rolling 3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTrend(cmd, &params)
		},
	}

	params.window.register(cmd)
	cmd.Flags().IntVar(&params.rolling, "rolling", 0, "also show an N-record rolling average")
	addOutputFlag(cmd, &params.output)

	return cmd
}

func runTrend(cmd *cobra.Command, params *trendParams) error {
	ctx := cmd.Context()

	format, err := resolveOutput(params.output)
	if err != nil {
		return err
	}
	if params.rolling < 0 {
		return fmt.Errorf("%w: --rolling must not be negative", footprint.ErrInvalidInput)
	}
	r, days, err := params.window.window()
	if err != nil {
		return err
	}

	eng, cleanup, err := buildEngine(ctx, engineNeeds{store: true})
	if err != nil {
		return err
	}
	defer cleanup()

	report, err := eng.Trend(ctx, engine.TrendRequest{Days: days, Range: r, Rolling: params.rolling})
	if err != nil {
		return err
	}

	if format == outputJSON {
		return renderJSON(cmd.OutOrStdout(), report)
	}
	renderTrendReport(cmd.OutOrStdout(), report, params.rolling)
	return nil
}

func renderTrendReport(w io.Writer, report engine.TrendReport, rolling int) {
	s := report.Summary
	fmt.Fprintf(w, "Window: %s to %s\n", formatTime(s.Window.From), formatTime(s.Window.To))

	avg, ok := s.Average()
	if !ok {
		fmt.Fprintln(w, "No saved footprints in this window. Use 'carbonfocus calc --save' to record one.")
		return
	}

	width := terminalWidth()
	unit := config.GetOutputUnit()

	tw := tabwriter.NewWriter(w, 0, 0, tabPadding, ' ', 0)
	fmt.Fprintf(tw, "Records:\t%d\n", s.Count)
	fmt.Fprintf(tw, "Average:\t%s/day\n", formatKg(avg))
	if s.BestDay != nil {
		fmt.Fprintf(tw, "Best day:\t%s\t%s\n", formatTime(s.BestDay.Timestamp), formatKg(s.BestDay.Total))
	}
	if s.WorstDay != nil {
		fmt.Fprintf(tw, "Worst day:\t%s\t%s\n", formatTime(s.WorstDay.Timestamp), formatKg(s.WorstDay.Total))
	}
	fmt.Fprintf(tw, "Direction:\t%s\n", report.Direction)
	if report.ChangeVsPrevious != nil {
		fmt.Fprintf(tw, "Latest vs previous:\t%s\n", formatPercent(*report.ChangeVsPrevious))
	}
	_ = tw.Flush()
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Category share:")
	tw = tabwriter.NewWriter(w, 0, 0, tabPadding, ' ', 0)
	for _, c := range emissions.Categories() {
		fmt.Fprintf(tw, "  %s\t%s/day\t%.1f%%\n", c.Label(), formatKg(s.CategoryAverages[c]), s.CategoryShare[c]*100)
	}
	_ = tw.Flush()
	fmt.Fprintln(w)

	fmt.Fprint(w, tui.RenderTrend(s.CategoryTrend, emissions.ParisDailyKg, width, unit))
	if rolling > 0 && len(report.Rolling) > 0 {
		fmt.Fprintln(w)
		fmt.Fprint(w, tui.RenderRolling(report.Rolling, rolling, width, unit))
	}
	if report.Latest != nil && len(s.CategoryAverages) > 0 {
		fmt.Fprintln(w)
		fmt.Fprint(w, tui.RenderCategoryComparison(report.Latest.Result, s.CategoryAverages, width, unit))
	}
	fmt.Fprintln(w)
	fmt.Fprint(w, tui.RenderComparison(avg, width, unit))
}
