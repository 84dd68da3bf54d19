package tui

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rshade/carbonfocus/internal/climate"
	"github.com/rshade/carbonfocus/internal/emissions"
	"github.com/rshade/carbonfocus/internal/footprint"
	"github.com/rshade/carbonfocus/internal/greenops"
	"github.com/rshade/carbonfocus/internal/trend"
)

// Layout constants.
const (
	DefaultWidth = 80

	barFull    = "█"
	barEmpty   = "░"
	barMarker  = "┃"
	labelWidth = 16
	// valueColumns is the room kept right of a bar for the value and share.
	valueColumns = 28
	minBarWidth  = 10
	headroom     = 1.15
	// borderPadding is the width taken by a box border on one side.
	borderPadding = 2

	// SafeCO2PPM is the concentration commonly cited as the safe upper limit.
	SafeCO2PPM = 350.0
	// PreindustrialCO2PPM is the pre-industrial baseline.
	PreindustrialCO2PPM = 280.0
)

func barWidth(width int) int {
	if width <= 0 {
		width = DefaultWidth
	}
	if w := width - labelWidth - valueColumns; w > minBarWidth {
		return w
	}
	return minBarWidth
}

// cells returns how many of w cells represent v on a 0..limit scale.
func cells(v, limit float64, w int) int {
	if limit <= 0 || v <= 0 || math.IsNaN(v) {
		return 0
	}
	n := int(math.Round(v / limit * float64(w)))
	return max(0, min(n, w))
}

func label(s string) string {
	return LabelStyle.Render(fmt.Sprintf("%-*s", labelWidth, truncate(s, labelWidth-1)))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

// bar renders w cells with the first filled cells in fill and an optional
// marker column (marker < 0 disables it).
func bar(filled, w, marker int, fill lipgloss.Style) string {
	var sb strings.Builder
	for i := 0; i < w; {
		if i == marker {
			sb.WriteString(TargetStyle.Render(barMarker))
			i++
			continue
		}
		end := w
		if marker > i {
			end = min(end, marker)
		}
		if i < filled {
			end = min(end, filled)
			sb.WriteString(fill.Render(strings.Repeat(barFull, end-i)))
		} else {
			sb.WriteString(MutedStyle.Render(strings.Repeat(barEmpty, end-i)))
		}
		i = end
	}
	return sb.String()
}

// RenderBreakdown draws one bar per category, scaled to the largest
// category, with its amount in unit and its share of the total.
func RenderBreakdown(r footprint.Result, width int, unit string) string {
	var sb strings.Builder
	sb.WriteString(HeaderStyle.Render("Emissions breakdown"))
	sb.WriteString("\n")

	w := barWidth(width)
	largest := 0.0
	for _, c := range emissions.Categories() {
		largest = math.Max(largest, r.Category(c))
	}

	for _, c := range emissions.Categories() {
		v := r.Category(c)
		share := 0.0
		if r.Total > 0 {
			share = v / r.Total * 100
		}
		fmt.Fprintf(&sb, "%s %s %s %s\n",
			label(c.Label()),
			bar(cells(v, largest, w), w, -1, CategoryStyle(c)),
			ValueStyle.Render(fmt.Sprintf("%14s", greenops.FormatCarbon(v, unit, 2))),
			MutedStyle.Render(fmt.Sprintf("%5.1f%%", share)))
	}

	fmt.Fprintf(&sb, "%s %s\n", label("Total"), ValueStyle.Render(greenops.FormatCarbon(r.Total, unit, 2)))
	return sb.String()
}

// RenderTrend draws one bar per record with a marker at target. Bars at or
// under target are green, the rest amber.
func RenderTrend(points []trend.CategoryPoint, target float64, width int, unit string) string {
	var sb strings.Builder
	sb.WriteString(HeaderStyle.Render("Daily footprint"))
	sb.WriteString("\n")

	if len(points) == 0 {
		sb.WriteString(MutedStyle.Render("No records in this window."))
		sb.WriteString("\n")
		return sb.String()
	}

	w := barWidth(width)
	limit := target
	for _, p := range points {
		limit = math.Max(limit, p.Total)
	}
	limit *= headroom
	marker := min(cells(target, limit, w), w-1)

	for _, p := range points {
		fill := OKStyle
		if p.Total > target {
			fill = WarningStyle
		}
		fmt.Fprintf(&sb, "%s %s %s\n",
			label(p.Timestamp.Local().Format("Jan 02 15:04")),
			bar(cells(p.Total, limit, w), w, marker, fill),
			ValueStyle.Render(greenops.FormatCarbon(p.Total, unit, 2)))
	}

	fmt.Fprintf(&sb, "%s %s\n", strings.Repeat(" ", labelWidth),
		TargetStyle.Render(fmt.Sprintf("%s target %s/day", barMarker, greenops.FormatCarbon(target, unit, 1))))
	return sb.String()
}

// RenderRolling draws a compact series of rolling averages.
func RenderRolling(points []trend.Point, window int, width int, unit string) string {
	series := make([]trend.CategoryPoint, len(points))
	for i, p := range points {
		series[i] = trend.CategoryPoint{Timestamp: p.Timestamp, Total: p.Value}
	}
	out := RenderTrend(series, emissions.ParisDailyKg, width, unit)
	return strings.Replace(out, "Daily footprint", fmt.Sprintf("%d-record rolling average", window), 1)
}

// RenderGauge shows current against target on a shared scale, followed by
// the gap.
func RenderGauge(current, target float64, width int, unit string) string {
	w := barWidth(width) + valueColumns - labelWidth
	limit := math.Max(current, target) * headroom
	marker := min(cells(target, limit, w), w-1)

	fill := OKStyle
	status := OKStyle.Render(fmt.Sprintf("%s %s under target", IconCheck, greenops.FormatCarbon(target-current, unit, 2)))
	if current > target {
		fill = WarningStyle
		status = WarningStyle.Render(fmt.Sprintf("%s %s over target", IconCross, greenops.FormatCarbon(current-target, unit, 2)))
	}

	var sb strings.Builder
	sb.WriteString(HeaderStyle.Render("Progress to target"))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "%s %s\n", label("Current"), bar(cells(current, limit, w), w, marker, fill))
	fmt.Fprintf(&sb, "%s %s / %s  %s\n", label(""),
		ValueStyle.Render(greenops.FormatCarbon(current, unit, 2)),
		TargetStyle.Render(greenops.FormatCarbon(target, unit, 2)),
		status)
	return sb.String()
}

// RenderComparison ranks the user's daily average among the benchmarks.
func RenderComparison(userDailyKg float64, width int, unit string) string {
	type row struct {
		name  string
		value float64
		user  bool
	}
	rows := []row{{name: "You", value: userDailyKg, user: true}}
	for _, b := range emissions.Targets() {
		rows = append(rows, row{name: b.Label, value: b.DailyKg})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].value < rows[j].value })

	limit := 0.0
	for _, r := range rows {
		limit = math.Max(limit, r.value)
	}

	w := barWidth(width)
	var sb strings.Builder
	sb.WriteString(HeaderStyle.Render("How you compare (per day)"))
	sb.WriteString("\n")
	for _, r := range rows {
		fill := MutedStyle
		name := label(r.name)
		if r.user {
			fill = WarningStyle
			if r.value <= emissions.ParisDailyKg {
				fill = OKStyle
			}
			name = HeaderStyle.Render(fmt.Sprintf("%-*s", labelWidth, r.name))
		}
		fmt.Fprintf(&sb, "%s %s %s\n", name, bar(cells(r.value, limit, w), w, -1, fill),
			ValueStyle.Render(greenops.FormatCarbon(r.value, unit, 1)))
	}
	return sb.String()
}

// RenderCategoryComparison shows each category of current next to the
// window average.
func RenderCategoryComparison(current footprint.Result, averages map[emissions.Category]float64, width int, unit string) string {
	w := barWidth(width)
	limit := 0.0
	for _, c := range emissions.Categories() {
		limit = math.Max(limit, math.Max(current.Category(c), averages[c]))
	}

	var sb strings.Builder
	sb.WriteString(HeaderStyle.Render("Today vs average"))
	sb.WriteString("\n")
	for _, c := range emissions.Categories() {
		cur, avg := current.Category(c), averages[c]
		fmt.Fprintf(&sb, "%s %s %s\n", label(c.Label()),
			bar(cells(cur, limit, w), w, -1, CategoryStyle(c)),
			ValueStyle.Render(greenops.FormatCarbon(cur, unit, 2)))
		fmt.Fprintf(&sb, "%s %s %s %s\n", label("  avg"),
			bar(cells(avg, limit, w), w, -1, MutedStyle),
			MutedStyle.Render(greenops.FormatCarbon(avg, unit, 2)),
			RenderDelta(cur-avg, unit))
	}
	return sb.String()
}

// RenderDelta renders a signed change with a directional arrow. Increases
// are warnings, decreases are good.
func RenderDelta(deltaKg float64, unit string) string {
	rounded := math.Round(deltaKg*100) / 100
	switch {
	case rounded > 0:
		return WarningStyle.Render(fmt.Sprintf("+%s %s", greenops.FormatCarbon(rounded, unit, 2), IconArrowUp))
	case rounded < 0:
		return OKStyle.Render(fmt.Sprintf("%s %s", greenops.FormatCarbon(rounded, unit, 2), IconArrowDown))
	default:
		return MutedStyle.Render(fmt.Sprintf("%s %s", greenops.FormatCarbon(0, unit, 2), IconArrowRight))
	}
}

// RenderClimate summarizes a climate snapshot.
func RenderClimate(s *climate.Snapshot) string {
	var sb strings.Builder
	sb.WriteString(HeaderStyle.Render("Climate context"))
	sb.WriteString("\n")

	ppm, ppmSource := s.CO2PPM()
	level := OKStyle
	if ppm > SafeCO2PPM {
		level = CriticalStyle
	}
	fmt.Fprintf(&sb, "%s %s %s\n", label("CO₂"),
		level.Render(fmt.Sprintf("%.1f ppm", ppm)),
		MutedStyle.Render(fmt.Sprintf("(%s, %+.1f vs %.0f safe, %+.1f vs %.0f pre-industrial)",
			ppmSource, ppm-SafeCO2PPM, SafeCO2PPM, ppm-PreindustrialCO2PPM, PreindustrialCO2PPM)))

	if g, ok := s.GridIntensityKgPerKWh(); ok {
		index := s.GridIndex
		if index == "" {
			index = "unknown"
		}
		fmt.Fprintf(&sb, "%s %s %s\n", label("Grid ("+strings.ToUpper(s.GridRegion)+")"),
			ValueStyle.Render(fmt.Sprintf("%.0f gCO₂/kWh", g*1000)),
			MutedStyle.Render(fmt.Sprintf("(%s, %s)", index, s.GridSource)))
	} else {
		fmt.Fprintf(&sb, "%s %s\n", label("Grid"), MutedStyle.Render("no live reading, regional defaults apply"))
	}

	headline := climate.DefaultHeadline
	if s != nil && s.Headline != "" {
		headline = s.Headline
	}
	fmt.Fprintf(&sb, "%s %s\n", label("News"), headline)
	return sb.String()
}
