package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/conclave-ai/conclave/internal/events"
)

// Run starts the monitor in the alternate screen and blocks until the user
// quits or ctx is cancelled.
func Run(ctx context.Context, bus *events.Bus) error {
	m := NewWithBus(bus)
	p := tea.NewProgram(m, tea.WithAltScreen())

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			p.Quit()
		case <-done:
		}
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("monitor: %w", err)
	}
	return nil
}
