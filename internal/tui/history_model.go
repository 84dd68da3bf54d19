package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rshade/carbonfocus/internal/emissions"
	"github.com/rshade/carbonfocus/internal/greenops"
	"github.com/rshade/carbonfocus/internal/history"
)

// ViewState is the browser's current screen.
type ViewState int

// View states.
const (
	ViewStateList ViewState = iota
	ViewStateDetail
)

const (
	defaultHeight = 24
	// chromeRows is the space taken by the header and help lines.
	chromeRows = 6
)

// HistoryModel is an interactive table of history records. Enter opens the
// breakdown of the selected record; esc returns; q quits.
type HistoryModel struct {
	records []history.Record
	table   table.Model
	state   ViewState
	width   int
	height  int
	unit    string
}

// NewHistoryModel builds the browser. Records are shown in the order given.
func NewHistoryModel(records []history.Record, unit string) HistoryModel {
	m := HistoryModel{
		records: records,
		width:   DefaultWidth,
		height:  defaultHeight,
		unit:    unit,
	}
	m.table = NewHistoryTable(records, m.height-chromeRows, unit)
	return m
}

// NewHistoryTable creates the table used by the browser.
func NewHistoryTable(records []history.Record, height int, unit string) table.Model {
	columns := []table.Column{
		{Title: "Recorded", Width: 17}, //nolint:mnd // Column width.
		{Title: "Total", Width: 16},    //nolint:mnd // Column width.
		{Title: "Largest", Width: 12},  //nolint:mnd // Column width.
		{Title: "Region", Width: 8},    //nolint:mnd // Column width.
		{Title: "Grid", Width: 7},      //nolint:mnd // Column width.
		{Title: "Notes", Width: 24},    //nolint:mnd // Column width.
	}

	rows := make([]table.Row, len(records))
	for i, r := range records {
		largest := "-"
		if c := r.Largest(); c != "" {
			largest = c.Label()
		}
		rows[i] = table.Row{
			r.Timestamp.Local().Format("2006-01-02 15:04"),
			greenops.FormatCarbon(r.Total, unit, 2),
			largest,
			r.RegionUsed,
			string(r.DataSources.Electricity),
			truncate(r.Notes, 24), //nolint:mnd // Matches the column width.
		}
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(max(height, 1)),
	)

	s := table.DefaultStyles()
	s.Header = TableHeaderStyle
	s.Selected = TableSelectedStyle
	t.SetStyles(s)

	return t
}

// Init implements tea.Model.
func (m HistoryModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m HistoryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.table.SetHeight(max(m.height-chromeRows, 1))
		return m, nil
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m HistoryModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "enter":
		if m.state == ViewStateList && len(m.records) > 0 {
			m.state = ViewStateDetail
		}
		return m, nil
	case "esc", "backspace":
		m.state = ViewStateList
		return m, nil
	}

	if m.state == ViewStateDetail {
		return m, nil
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// State returns the current view state.
func (m HistoryModel) State() ViewState {
	return m.state
}

// Selected returns the highlighted record.
func (m HistoryModel) Selected() (history.Record, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.records) {
		return history.Record{}, false
	}
	return m.records[i], true
}

// View implements tea.Model.
func (m HistoryModel) View() string {
	if len(m.records) == 0 {
		return MutedStyle.Render("No history records yet. Save one with `carbonfocus calc --save`.") + "\n"
	}
	if m.state == ViewStateDetail {
		return m.detailView()
	}

	var sb strings.Builder
	sb.WriteString(HeaderStyle.Render(fmt.Sprintf("Footprint history (%d records)", len(m.records))))
	sb.WriteString("\n\n")
	sb.WriteString(m.table.View())
	sb.WriteString("\n\n")
	sb.WriteString(MutedStyle.Render("↑/↓ move • enter details • q quit"))
	sb.WriteString("\n")
	return sb.String()
}

func (m HistoryModel) detailView() string {
	r, ok := m.Selected()
	if !ok {
		return ""
	}

	var content strings.Builder
	content.WriteString(HeaderStyle.Render("Record " + r.ID))
	content.WriteString("\n")
	fmt.Fprintf(&content, "%s %s\n", label("Recorded"), r.Timestamp.Local().Format("Mon Jan 02 2006 15:04"))
	fmt.Fprintf(&content, "%s %s\n", label("Region"), r.RegionUsed)
	fmt.Fprintf(&content, "%s electricity %s, CO₂ %s\n", label("Sources"),
		r.DataSources.Electricity, r.DataSources.AtmosphericCO2)
	if r.Notes != "" {
		fmt.Fprintf(&content, "%s %s\n", label("Notes"), r.Notes)
	}
	content.WriteString("\n")
	content.WriteString(RenderBreakdown(r.Result, m.width-borderPadding*2, m.unit))
	content.WriteString("\n")

	cmp, err := greenops.Compare(r.Total)
	if err == nil {
		status := WarningStyle.Render(fmt.Sprintf("%+.1f%% vs Paris target", cmp.VsParis.Percent))
		if r.Total <= emissions.ParisDailyKg {
			status = OKStyle.Render("within the Paris target")
		}
		fmt.Fprintf(&content, "%s %s a year, %s\n", label("Annualized"),
			ValueStyle.Render(fmt.Sprintf("%.2f t", cmp.AnnualTonnes)), status)
	}

	help := MutedStyle.Render("esc back • q quit")
	return lipgloss.JoinVertical(lipgloss.Left,
		BoxStyle.Width(max(m.width-borderPadding, minBarWidth)).Render(content.String()),
		help,
	) + "\n"
}
