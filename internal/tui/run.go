package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Host runs a Model in a BubbleTea program and exposes a Remote for
// goroutines outside the loop.
type Host struct {
	model  Model
	remote *Remote
}

// NewHost creates a host. opts.Inbox is created when nil so the model and
// the remote share it.
func NewHost(opts Options) *Host {
	if opts.Inbox == nil {
		opts.Inbox = make(chan tea.Msg, inboxSize)
	}
	return &Host{
		model:  New(opts),
		remote: NewRemote(opts.Inbox, 0),
	}
}

// Remote returns the cross-goroutine handle to the model.
func (h *Host) Remote() *Remote { return h.remote }

// Run blocks until the user quits or ctx is cancelled.
func (h *Host) Run(ctx context.Context) error {
	p := tea.NewProgram(h.model,
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
