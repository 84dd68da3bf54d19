package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/rshade/carbonfocus/internal/advisor"
	"github.com/rshade/carbonfocus/internal/config"
	"github.com/rshade/carbonfocus/internal/engine"
	"github.com/rshade/carbonfocus/internal/logging"
	"github.com/rshade/carbonfocus/internal/tui"
)

// progressDelay is how long a request may run before the spinner appears.
const progressDelay = 500 * time.Millisecond

// markdownMaxWidth caps the advice word wrap on wide terminals.
const markdownMaxWidth = 100

type adviseParams struct {
	activity    activityFlags
	mode        string
	guidance    string
	location    string
	saveInsight bool
	reduction   float64
	days        int
	output      string
}

func newAdviseCmd() *cobra.Command {
	var params adviseParams

	modes := make([]string, 0, len(advisor.Modes()))
	for _, m := range advisor.Modes() {
		modes = append(modes, string(m))
	}

	cmd := &cobra.Command{
		Use:   "advise",
		Short: "Ask the language model advisor how to reduce your footprint",
		Long: `Generates personalized reduction advice with the configured language model
(a local Ollama server by default, or Gemini).

Without activity flags the newest saved footprint is used and compared with
your history. With activity flags a fresh footprint is calculated and
compared with the newest saved one.

Modes: ` + strings.Join(modes, ", "),
		Example: `  # Quick tips on the latest saved day
  carbonfocus advise --mode quick-tips

  # A three-month plan for a 30% cut, saved alongside the record
  carbonfocus advise --mode action-plan --reduction 30 --save-insight

  # Compare a hypothetical day with the latest saved one
  carbonfocus advise --mode compare --transport train --distance 40 --diet vegetarian`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAdvise(cmd, &params)
		},
	}

	params.activity.register(cmd)
	cmd.Flags().StringVarP(&params.mode, "mode", "m", string(advisor.ModeComprehensive), "advice mode: "+strings.Join(modes, ", "))
	cmd.Flags().StringVar(&params.guidance, "guidance", "", "extra guidance for the advisor, e.g. \"I work from home on Fridays\"")
	cmd.Flags().StringVar(&params.location, "location", "", "where you live, for locally relevant advice")
	cmd.Flags().BoolVar(&params.saveInsight, "save-insight", false, "store the advice with the advised record")
	cmd.Flags().Float64Var(&params.reduction, "reduction", 0, "reduction goal in percent for the action plan (default from config)")
	cmd.Flags().IntVar(&params.days, "days", 0, "history window given to the advisor (default from config)")
	addOutputFlag(cmd, &params.output)

	return cmd
}

func runAdvise(cmd *cobra.Command, params *adviseParams) error {
	ctx := cmd.Context()
	cfg := config.GetGlobalConfig()

	format, err := resolveOutput(params.output)
	if err != nil {
		return err
	}
	mode, err := advisor.ParseMode(params.mode)
	if err != nil {
		return err
	}

	req := engine.AdviseRequest{
		Mode:             mode,
		Guidance:         params.guidance,
		Location:         params.location,
		TrendDays:        params.days,
		ReductionPercent: params.reduction,
		SaveInsight:      params.saveInsight,
	}
	if req.TrendDays == 0 {
		req.TrendDays = cfg.Goals.TrendDays
	}
	if req.ReductionPercent == 0 && mode == advisor.ModeActionPlan {
		req.ReductionPercent = cfg.Goals.ReductionPercent
	}
	if params.activity.set(cmd) {
		input, inputErr := params.activity.input()
		if inputErr != nil {
			return inputErr
		}
		req.Input = &input
	}

	// Fresh input only uses history as context unless the insight is saved.
	eng, cleanup, err := buildEngine(ctx, engineNeeds{
		store:         true,
		storeOptional: req.Input != nil && !req.SaveInsight,
		advisor:       true,
	})
	if err != nil {
		return err
	}
	defer cleanup()

	report, err := adviseWithProgress(ctx, cmd, eng, req)
	if err != nil {
		if errors.Is(err, advisor.ErrAdvisoryUnavailable) && !report.Footprint.Timestamp.IsZero() {
			// The footprint is still worth showing without the advice.
			if format == outputJSON {
				_ = renderJSON(cmd.OutOrStdout(), report)
			} else {
				fmt.Fprint(cmd.OutOrStdout(), tui.RenderBreakdown(report.Footprint, terminalWidth(), config.GetOutputUnit()))
			}
		}
		return err
	}

	if format == outputJSON {
		return renderJSON(cmd.OutOrStdout(), report)
	}
	return renderAdvice(cmd.OutOrStdout(), report)
}

// adviseWithProgress runs the request with a spinner on stderr when stderr
// is a terminal.
func adviseWithProgress(
	ctx context.Context,
	cmd *cobra.Command,
	eng *engine.Engine,
	req engine.AdviseRequest,
) (engine.AdviceReport, error) {
	log := logging.FromContext(ctx)

	if !isTerminal(os.Stderr) {
		return eng.Advise(ctx, req)
	}

	progressCtx, cancelProgress := context.WithCancel(ctx)
	var spinnerWg sync.WaitGroup
	spinnerWg.Add(1)
	go func() {
		defer spinnerWg.Done()
		tui.ShowProgress(progressCtx, cmd.ErrOrStderr(), "Asking the advisor...", progressDelay)
	}()

	report, err := eng.Advise(ctx, req)

	cancelProgress()
	spinnerWg.Wait()

	if err != nil {
		log.Error().Ctx(ctx).Err(err).Str("mode", string(req.Mode)).Msg("advice generation failed")
	}
	return report, err
}

func renderAdvice(w io.Writer, report engine.AdviceReport) error {
	if report.Advice == nil {
		return nil
	}

	fmt.Fprintf(w, "Footprint: %s/day\n\n", formatKg(report.Footprint.Total))
	fmt.Fprint(w, renderMarkdown(report.Advice.Text))
	fmt.Fprintf(w, "\n%s · %s\n", report.Advice.Model, report.Advice.Mode)
	if report.Insight != nil {
		fmt.Fprintf(w, "Insight saved as %s\n", report.Insight.ID)
	}
	return nil
}

// renderMarkdown renders advice for the terminal. Output that is not a
// terminal gets the raw markdown.
func renderMarkdown(text string) string {
	if !isTerminal(os.Stdout) {
		return strings.TrimRight(text, "\n") + "\n"
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(min(terminalWidth(), markdownMaxWidth)),
	)
	if err != nil {
		return text + "\n"
	}
	out, err := renderer.Render(text)
	if err != nil {
		return text + "\n"
	}
	return out
}
