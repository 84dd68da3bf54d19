// Package tui renders carbonfocus results in the terminal: footprint
// breakdown bars, trend bars against the Paris target, progress gauges and
// benchmark comparisons, plus an interactive history browser.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/rshade/carbonfocus/internal/emissions"
)

// Palette.
const (
	ColorOK        = lipgloss.Color("42")
	ColorWarning   = lipgloss.Color("214")
	ColorCritical  = lipgloss.Color("196")
	ColorMuted     = lipgloss.Color("245")
	ColorHeader    = lipgloss.Color("39")
	ColorBorder    = lipgloss.Color("240")
	ColorLabel     = lipgloss.Color("250")
	ColorValue     = lipgloss.Color("255")
	ColorHighlight = lipgloss.Color("212")
	ColorTarget    = lipgloss.Color("160")
)

// Icons.
const (
	IconArrowUp    = "↑"
	IconArrowDown  = "↓"
	IconArrowRight = "→"
	IconCheck      = "✓"
	IconCross      = "✗"
)

// Shared styles.
//
//nolint:gochecknoglobals // lipgloss styles are immutable values shared across views.
var (
	HeaderStyle   = lipgloss.NewStyle().Bold(true).Foreground(ColorHeader)
	LabelStyle    = lipgloss.NewStyle().Foreground(ColorLabel)
	ValueStyle    = lipgloss.NewStyle().Foreground(ColorValue).Bold(true)
	MutedStyle    = lipgloss.NewStyle().Foreground(ColorMuted)
	OKStyle       = lipgloss.NewStyle().Foreground(ColorOK).Bold(true)
	WarningStyle  = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	CriticalStyle = lipgloss.NewStyle().Foreground(ColorCritical).Bold(true)
	TargetStyle   = lipgloss.NewStyle().Foreground(ColorTarget).Bold(true)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ColorHeader).
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(ColorBorder).
				BorderBottom(true)

	TableSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("229")).
				Background(lipgloss.Color("57")).
				Bold(false)
)

// categoryColors follows the category order of emissions.Categories.
//
//nolint:gochecknoglobals // Compile-time constant lookup table.
var categoryColors = map[emissions.Category]lipgloss.Color{
	emissions.CategoryTransport:   lipgloss.Color("203"),
	emissions.CategoryDiet:        lipgloss.Color("78"),
	emissions.CategoryHeating:     lipgloss.Color("215"),
	emissions.CategoryElectricity: lipgloss.Color("75"),
	emissions.CategoryConsumption: lipgloss.Color("141"),
}

// CategoryStyle returns the bar style for a category.
func CategoryStyle(c emissions.Category) lipgloss.Style {
	color, ok := categoryColors[c]
	if !ok {
		color = ColorMuted
	}
	return lipgloss.NewStyle().Foreground(color)
}
