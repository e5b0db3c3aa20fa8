package progress

import (
	"bytes"
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bidscribe/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/bidscribe/internal/core/domain"
)

func send(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	require.True(t, ok)
	return model, cmd
}

func event(index int, title string, state domain.ChapterState, attempt int) messages.ChapterUpdated {
	return messages.ChapterUpdated{Event: domain.ChapterEvent{Index: index, Title: title, State: state, Attempt: attempt}}
}

func TestModel_Init(t *testing.T) {
	assert.NotNil(t, New(nil).Init())
}

func TestModel_ChapterEventsGrowLines(t *testing.T) {
	m := New(nil)

	m, _ = send(t, m, event(1, "Safety plan", domain.ChapterDrafting, 1))

	require.Len(t, m.chapters, 2)
	assert.Equal(t, domain.ChapterPending, m.chapters[0].state)
	assert.Equal(t, "Safety plan", m.chapters[1].title)
	assert.Equal(t, domain.ChapterDrafting, m.chapters[1].state)
}

func TestModel_TracksStateAndCounts(t *testing.T) {
	m := New(nil)

	m, _ = send(t, m, event(0, "Technical approach", domain.ChapterDrafting, 1))
	m, _ = send(t, m, event(1, "Schedule", domain.ChapterDrafting, 1))
	m, _ = send(t, m, event(0, "", domain.ChapterAccepted, 1))
	m, _ = send(t, m, messages.ChapterUpdated{Event: domain.ChapterEvent{
		Index: 1, State: domain.ChapterExhausted, Attempt: 4, Err: errors.New("structure mismatch"),
	}})

	accepted, exhausted := m.Counts()
	assert.Equal(t, 1, accepted)
	assert.Equal(t, 1, exhausted)
	assert.Equal(t, "Technical approach", m.chapters[0].title)
	assert.Equal(t, 4, m.chapters[1].attempt)

	view := m.View()
	assert.Contains(t, view, "1. Technical approach")
	assert.Contains(t, view, "exhausted after 4 attempt(s)")
	assert.Contains(t, view, "1 accepted, 1 exhausted, 2 chapters")
	assert.NotContains(t, view, "structure mismatch")
}

func TestModel_DetailsToggleShowsErrors(t *testing.T) {
	m := New(nil)
	m, _ = send(t, m, messages.ChapterUpdated{Event: domain.ChapterEvent{
		Index: 0, Title: "Staffing", State: domain.ChapterRetrying, Attempt: 2, Err: errors.New("leaf count 2, want 3"),
	}})

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})

	view := m.View()
	assert.Contains(t, view, "retrying (attempt 2)")
	assert.Contains(t, view, "leaf count 2, want 3")
}

func TestModel_IgnoresNegativeIndex(t *testing.T) {
	m := New(nil)

	m, _ = send(t, m, event(-1, "titles", domain.ChapterDrafting, 1))

	assert.Empty(t, m.chapters)
}

func TestModel_RunFinishedQuits(t *testing.T) {
	m := New(nil)
	failure := errors.New("provider down")

	m, cmd := send(t, m, messages.RunFinished{Err: failure})

	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.ErrorIs(t, m.Err(), failure)
	assert.False(t, m.Cancelled())
	assert.NotContains(t, m.View(), "cancel")
}

func TestModel_QuitKeyCancels(t *testing.T) {
	m := New(nil)

	m, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})

	require.NotNil(t, cmd)
	assert.True(t, m.Cancelled())
	assert.Contains(t, m.View(), "Cancelled")
}

func TestModel_FailedRunShowsError(t *testing.T) {
	m := New(nil)

	m, _ = send(t, m, messages.RunFinished{Err: errors.New("provider down")})

	assert.Contains(t, m.View(), "Error: provider down")
}

func TestModel_WindowSizeResizesFooter(t *testing.T) {
	m := New(nil)

	m, _ = send(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

	assert.Equal(t, 120, m.bar.Width())
}

func TestRun_ReturnsWorkResult(t *testing.T) {
	var out bytes.Buffer
	failure := errors.New("chapter 2 failed")

	err := Run(context.Background(), &bytes.Buffer{}, &out, func(_ context.Context, observe func(domain.ChapterEvent)) error {
		observe(domain.ChapterEvent{Index: 0, Title: "Approach", State: domain.ChapterAccepted, Attempt: 1})
		return failure
	})

	assert.ErrorIs(t, err, failure)
}

func TestRun_Success(t *testing.T) {
	var out bytes.Buffer

	err := Run(context.Background(), &bytes.Buffer{}, &out, func(_ context.Context, observe func(domain.ChapterEvent)) error {
		observe(domain.ChapterEvent{Index: 0, Title: "Approach", State: domain.ChapterDrafting, Attempt: 1})
		observe(domain.ChapterEvent{Index: 0, State: domain.ChapterAccepted, Attempt: 1})
		return nil
	})

	assert.NoError(t, err)
}
