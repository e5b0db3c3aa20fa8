// Package progress renders live chapter generation state in the terminal.
package progress

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/bidscribe/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/bidscribe/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/bidscribe/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/bidscribe/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/bidscribe/internal/core/domain"
)

// chapterLine is the rendered state of one chapter.
type chapterLine struct {
	title   string
	state   domain.ChapterState
	attempt int
	err     error
}

// Model is the bubbletea model of the progress view.
type Model struct {
	chapters    []chapterLine
	spinner     spinner.Model
	bar         *status.Bar
	styles      *styles.Styles
	keys        *keymap.KeyMap
	showDetails bool
	finished    bool
	cancelled   bool
	err         error
}

// New creates an empty progress model. Chapters appear as their first
// event arrives.
func New(s *styles.Styles) Model {
	if s == nil {
		s = styles.DefaultStyles()
	}
	keys := keymap.DefaultKeyMap()
	return Model{
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(s.Active),
		),
		bar:    status.NewBar(s, keys),
		styles: s,
		keys:   keys,
	}
}

// Init starts the spinner.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update applies chapter events, key presses and spinner ticks.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case messages.ChapterUpdated:
		m.apply(msg.Event)
		return m, nil

	case messages.RunFinished:
		m.finished = true
		m.err = msg.Err
		if msg.Err != nil {
			m.bar.SetState(status.StateFailed)
			m.bar.SetMessage(msg.Err.Error())
		} else {
			m.bar.SetState(status.StateDone)
		}
		return m, tea.Quit

	case tea.WindowSizeMsg:
		m.bar.SetWidth(msg.Width)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.cancelled = true
			m.bar.SetState(status.StateCancelled)
			return m, tea.Quit
		case key.Matches(msg, m.keys.Details):
			m.showDetails = !m.showDetails
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) apply(ev domain.ChapterEvent) {
	if ev.Index < 0 {
		return
	}
	for len(m.chapters) <= ev.Index {
		m.chapters = append(m.chapters, chapterLine{state: domain.ChapterPending})
	}
	line := &m.chapters[ev.Index]
	if ev.Title != "" {
		line.title = ev.Title
	}
	line.state = ev.State
	if ev.Attempt > 0 {
		line.attempt = ev.Attempt
	}
	if ev.Err != nil {
		line.err = ev.Err
	}

	accepted, exhausted := m.Counts()
	m.bar.SetCounts(accepted, exhausted, len(m.chapters))
}

// View renders one line per chapter.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Generating outline"))
	b.WriteString("\n\n")

	for i, line := range m.chapters {
		b.WriteString(m.icon(line.state))
		b.WriteString(" ")
		b.WriteString(m.styles.Normal.Render(fmt.Sprintf("%d. %s", i+1, line.title)))
		b.WriteString(" ")
		b.WriteString(m.styles.ForState(line.state).Render(stateLabel(line)))
		b.WriteString("\n")
		if m.showDetails && line.err != nil {
			b.WriteString("     ")
			b.WriteString(m.styles.Muted.Render(line.err.Error()))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(m.bar.View())
	b.WriteString("\n")
	return b.String()
}

func (m Model) icon(state domain.ChapterState) string {
	switch state {
	case domain.ChapterAccepted:
		return m.styles.Success.Render("✓")
	case domain.ChapterExhausted:
		return m.styles.Error.Render("✗")
	case domain.ChapterPending:
		return m.styles.Muted.Render("·")
	default:
		return m.spinner.View()
	}
}

func stateLabel(line chapterLine) string {
	if line.attempt > 0 && !line.state.IsTerminal() {
		return fmt.Sprintf("%s (attempt %d)", line.state, line.attempt)
	}
	if line.attempt > 0 {
		return fmt.Sprintf("%s after %d attempt(s)", line.state, line.attempt)
	}
	return line.state.String()
}

// Counts returns the number of accepted and exhausted chapters.
func (m Model) Counts() (accepted, exhausted int) {
	for _, line := range m.chapters {
		switch line.state {
		case domain.ChapterAccepted:
			accepted++
		case domain.ChapterExhausted:
			exhausted++
		}
	}
	return accepted, exhausted
}

// Cancelled reports whether the user quit before the run finished.
func (m Model) Cancelled() bool {
	return m.cancelled && !m.finished
}

// Err returns the error the run finished with.
func (m Model) Err() error {
	return m.err
}
