package progress

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/bidscribe/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/bidscribe/internal/core/domain"
)

// WorkFunc is a generation run that reports chapter events to observe.
type WorkFunc func(ctx context.Context, observe func(domain.ChapterEvent)) error

// Run executes work while rendering its chapter events to out. Quitting
// the view cancels the context passed to work.
func Run(ctx context.Context, in io.Reader, out io.Writer, work WorkFunc) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts := []tea.ProgramOption{tea.WithOutput(out)}
	if in != nil {
		opts = append(opts, tea.WithInput(in))
	}
	p := tea.NewProgram(New(nil), opts...)

	done := make(chan error, 1)
	go func() {
		err := work(ctx, func(ev domain.ChapterEvent) {
			p.Send(messages.ChapterUpdated{Event: ev})
		})
		done <- err
		p.Send(messages.RunFinished{Err: err})
	}()

	final, err := p.Run()
	if err != nil {
		cancel()
		<-done
		return fmt.Errorf("progress view: %w", err)
	}

	if m, ok := final.(Model); ok && m.Cancelled() {
		cancel()
		<-done
		return context.Canceled
	}
	return <-done
}
