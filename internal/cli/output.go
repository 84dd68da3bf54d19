package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rshade/carbonfocus/internal/config"
	"github.com/rshade/carbonfocus/internal/footprint"
	"github.com/rshade/carbonfocus/internal/greenops"
	"github.com/rshade/carbonfocus/internal/tui"
)

// Output formats accepted by --output.
const (
	outputTable = "table"
	outputJSON  = "json"
)

// tabPadding is the column gap for tabwriter tables.
const tabPadding = 2

const dateTimeLayout = "2006-01-02 15:04"

// addOutputFlag registers --output defaulting to the configured format.
func addOutputFlag(cmd *cobra.Command, dst *string) {
	cmd.Flags().StringVarP(dst, "output", "o", "", "output format: table or json (default from config)")
}

// resolveOutput validates the --output value, falling back to the
// configured default.
func resolveOutput(format string) (string, error) {
	if format == "" {
		format = config.GetDefaultOutputFormat()
	}
	switch strings.ToLower(format) {
	case outputTable:
		return outputTable, nil
	case outputJSON:
		return outputJSON, nil
	default:
		return "", &ExitError{
			Code: ExitInvalidInput,
			Err:  fmt.Errorf("unsupported output format %q: use table or json", format),
		}
	}
}

// renderJSON writes v as indented JSON.
func renderJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}

// terminalWidth returns the stdout width, or the chart default when stdout
// is not a terminal.
func terminalWidth() int {
	if !isTerminal(os.Stdout) {
		return tui.DefaultWidth
	}
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return tui.DefaultWidth
	}
	return w
}

// formatKg renders a kg amount in the configured display unit and precision.
func formatKg(kg float64) string {
	return greenops.FormatCarbon(kg, config.GetOutputUnit(), config.GetOutputPrecision())
}

// formatPercent renders a fraction such as 0.25 as a signed percentage.
func formatPercent(fraction float64) string {
	return greenops.FormatSigned(fraction*100, 1) + "%"
}

func formatTime(t time.Time) string {
	return t.Local().Format(dateTimeLayout)
}

// printDataSources prints where the external inputs of a result came from.
func printDataSources(w io.Writer, r footprint.Result) {
	fmt.Fprintf(w, "Data sources: electricity %s, atmospheric CO2 %s (%.1f ppm)\n",
		r.DataSources.Electricity, r.DataSources.AtmosphericCO2, r.AtmosphericCO2PPM)
}

// formatKgSigned is formatKg with an explicit "+" for increases.
func formatKgSigned(kg float64) string {
	s := formatKg(kg)
	if kg > 0 {
		return "+" + s
	}
	return s
}

// formatDecimal renders v with two decimals and thousand separators.
func formatDecimal(v float64) string {
	return greenops.FormatFloat(v, 2)
}
