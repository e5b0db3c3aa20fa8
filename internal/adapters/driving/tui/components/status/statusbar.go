// Package status provides the footer bar of the progress view.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/bidscribe/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/bidscribe/internal/adapters/driving/tui/styles"
)

// State represents the run state shown in the bar.
type State string

const (
	StateRunning   State = "running"
	StateDone      State = "done"
	StateCancelled State = "cancelled"
	StateFailed    State = "failed"
)

// Bar displays chapter counts and keybinding hints.
type Bar struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	state     State
	message   string
	accepted  int
	exhausted int
	total     int
	width     int
}

// NewBar creates a new status bar component.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &Bar{
		styles: s,
		keymap: km,
		state:  StateRunning,
		width:  80,
	}
}

// View renders the status bar.
func (s *Bar) View() string {
	left := s.renderLeft()
	right := s.renderRight()

	padding := s.width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		padding = 1
	}

	return s.styles.StatusBar.Width(s.width).Render(
		left + strings.Repeat(" ", padding) + right,
	)
}

func (s *Bar) renderLeft() string {
	counts := fmt.Sprintf("%d accepted, %d exhausted, %d chapters", s.accepted, s.exhausted, s.total)

	switch s.state {
	case StateFailed:
		if s.message != "" {
			return s.styles.Error.Render(fmt.Sprintf("Error: %s", s.message))
		}
		return s.styles.Error.Render("Error")
	case StateCancelled:
		return s.styles.Warning.Render("Cancelled") + " " + s.styles.Muted.Render(counts)
	case StateDone:
		if s.exhausted > 0 {
			return s.styles.Warning.Render(counts)
		}
		return s.styles.Success.Render(counts)
	}
	return s.styles.Muted.Render(counts)
}

// renderRight renders keybinding hints while the run is active.
func (s *Bar) renderRight() string {
	if s.state != StateRunning {
		return ""
	}

	bindings := s.keymap.ShortHelp()
	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return s.styles.Help.Render(strings.Join(hints, " | "))
}

// SetState sets the current state.
func (s *Bar) SetState(state State) {
	s.state = state
}

// State returns the current state.
func (s *Bar) State() State {
	return s.state
}

// SetMessage sets the message shown when the run failed.
func (s *Bar) SetMessage(message string) {
	s.message = message
}

// Message returns the current message.
func (s *Bar) Message() string {
	return s.message
}

// SetCounts sets the chapter tallies.
func (s *Bar) SetCounts(accepted, exhausted, total int) {
	s.accepted = accepted
	s.exhausted = exhausted
	s.total = total
}

// SetWidth sets the status bar width.
func (s *Bar) SetWidth(width int) {
	if width > 0 {
		s.width = width
	}
}

// Width returns the current width.
func (s *Bar) Width() int {
	return s.width
}
