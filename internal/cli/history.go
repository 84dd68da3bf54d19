package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/rshade/carbonfocus/internal/config"
	"github.com/rshade/carbonfocus/internal/emissions"
	"github.com/rshade/carbonfocus/internal/footprint"
	"github.com/rshade/carbonfocus/internal/history"
	"github.com/rshade/carbonfocus/internal/tui"
)

const dateLayout = "2006-01-02"

// windowFlags select a history window by days or explicit dates.
type windowFlags struct {
	days int
	from string
	to   string
}

func (f *windowFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.days, "days", 0, "window of the last N days (default from config goals.trend_days)")
	cmd.Flags().StringVar(&f.from, "from", "", "window start date (YYYY-MM-DD or RFC3339)")
	cmd.Flags().StringVar(&f.to, "to", "", "window end date, inclusive for a plain date (YYYY-MM-DD or RFC3339)")
}

// window parses the flags. A plain --to date covers that whole day.
func (f *windowFlags) window() (history.DateRange, int, error) {
	var r history.DateRange
	if f.days < 0 {
		return r, 0, fmt.Errorf("%w: --days must not be negative", footprint.ErrInvalidInput)
	}
	if f.from != "" {
		t, _, err := parseDate(f.from)
		if err != nil {
			return r, 0, err
		}
		r.From = t
	}
	if f.to != "" {
		t, dateOnly, err := parseDate(f.to)
		if err != nil {
			return r, 0, err
		}
		if dateOnly {
			t = t.AddDate(0, 0, 1)
		}
		r.To = t
	}

	days := f.days
	if days == 0 {
		days = config.GetGlobalConfig().Goals.TrendDays
	}
	return r, days, nil
}

func parseDate(raw string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, false, nil
	}
	t, err := time.ParseInLocation(dateLayout, raw, time.Local)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%w: invalid date %q, expected YYYY-MM-DD or RFC3339",
			footprint.ErrInvalidInput, raw)
	}
	return t, true, nil
}

type historyParams struct {
	window      windowFlags
	latest      int
	output      string
	interactive bool
}

func newHistoryCmd() *cobra.Command {
	var params historyParams

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List saved footprints",
		Long: `Lists saved footprints in chronological order. The window defaults to
the last goals.trend_days days; --from and --to select explicit dates and
--latest shows the newest N records regardless of date.`,
		Example: `  # The last week
  carbonfocus history --days 7

  # A calendar month
  carbonfocus history --from 2026-05-01 --to 2026-05-31

  # The five newest records, as JSON
  carbonfocus history --latest 5 --output json

  # Browse interactively
  carbonfocus history --interactive`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, &params)
		},
	}

	params.window.register(cmd)
	cmd.Flags().IntVar(&params.latest, "latest", 0, "show the newest N records")
	cmd.Flags().BoolVarP(&params.interactive, "interactive", "i", false, "browse records in an interactive table")
	addOutputFlag(cmd, &params.output)
	cmd.MarkFlagsMutuallyExclusive("latest", "days")
	cmd.MarkFlagsMutuallyExclusive("latest", "from")
	cmd.MarkFlagsMutuallyExclusive("latest", "to")
	cmd.MarkFlagsMutuallyExclusive("interactive", "output")

	return cmd
}

func runHistory(cmd *cobra.Command, params *historyParams) error {
	ctx := cmd.Context()

	format, err := resolveOutput(params.output)
	if err != nil {
		return err
	}
	if params.latest < 0 {
		return fmt.Errorf("%w: --latest must be positive", footprint.ErrInvalidInput)
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

	var records []history.Record
	if params.latest > 0 {
		records, err = eng.Latest(ctx, params.latest)
		// Latest is newest first; the listing is chronological.
		for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
			records[i], records[j] = records[j], records[i]
		}
	} else {
		records, err = eng.History(ctx, eng.Window(days, r))
	}
	if err != nil {
		return err
	}

	if params.interactive {
		return runInteractiveHistory(records)
	}
	if format == outputJSON {
		return renderJSON(cmd.OutOrStdout(), map[string]any{"count": len(records), "records": records})
	}
	renderHistoryTable(cmd.OutOrStdout(), records)
	return nil
}

func runInteractiveHistory(records []history.Record) error {
	p := tea.NewProgram(tui.NewHistoryModel(records, config.GetOutputUnit()))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run interactive TUI: %w", err)
	}
	return nil
}

func renderHistoryTable(w io.Writer, records []history.Record) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No saved footprints in this window. Use 'carbonfocus calc --save' to record one.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, tabPadding, ' ', 0)
	fmt.Fprint(tw, "DATE\tTOTAL")
	for _, c := range emissions.Categories() {
		fmt.Fprintf(tw, "\t%s", c.Label())
	}
	fmt.Fprintln(tw, "\tREGION\tID")

	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s", formatTime(r.Timestamp), formatKg(r.Total))
		for _, c := range emissions.Categories() {
			fmt.Fprintf(tw, "\t%s", formatKg(r.Category(c)))
		}
		fmt.Fprintf(tw, "\t%s\t%s\n", r.RegionUsed, r.ID)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "\n%d record(s)\n", len(records))
}
