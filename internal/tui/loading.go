package tui

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// LoadingState is a spinner with a message, embedded by models that load
// data asynchronously.
type LoadingState struct {
	spinner spinner.Model
	message string
}

// NewLoadingState returns a loading state showing message.
func NewLoadingState(message string) *LoadingState {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = HeaderStyle
	return &LoadingState{spinner: s, message: message}
}

// Init starts the spinner.
func (l *LoadingState) Init() tea.Cmd {
	return l.spinner.Tick
}

// Update advances the spinner on tick messages.
func (l *LoadingState) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	l.spinner, cmd = l.spinner.Update(msg)
	return cmd
}

// View renders the spinner line.
func (l *LoadingState) View() string {
	return RenderLoading(l)
}

// RenderLoading returns the loading line, or plain "Loading..." for nil.
func RenderLoading(loading *LoadingState) string {
	if loading == nil {
		return "Loading..."
	}
	return fmt.Sprintf("%s %s", loading.spinner.View(), loading.message)
}

// ShowProgress writes a spinner line to w until ctx is done, then clears
// it. Nothing is written if ctx ends within delay. Callers only use it when
// w is a terminal.
func ShowProgress(ctx context.Context, w io.Writer, message string, delay time.Duration) {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	frames := spinner.MiniDot.Frames
	ticker := time.NewTicker(spinner.MiniDot.FPS)
	defer ticker.Stop()

	start := time.Now()
	for i := 0; ; i++ {
		fmt.Fprintf(w, "\r\033[K%s %s (%s)", frames[i%len(frames)], message, time.Since(start).Truncate(time.Second))
		select {
		case <-ctx.Done():
			fmt.Fprint(w, "\r\033[K")
			return
		case <-ticker.C:
		}
	}
}
