package tui

import (
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jmylchreest/popctl/internal/config"
	"github.com/jmylchreest/popctl/internal/popup"
)

// ErrLoopTimeout is returned when the UI loop does not answer in time.
var ErrLoopTimeout = errors.New("ui loop did not respond")

type commandMsg struct {
	id     string
	action popup.Action
	reply  chan error
}

type stateMsg struct {
	id    string
	reply chan stateReply
}

type stateReply struct {
	state   popup.State
	changed time.Time
	err     error
}

type listMsg struct {
	reply chan []string
}

type reloadMsg struct {
	cfg *config.Config
}

func (m *Model) command(id string, action popup.Action) error {
	e := m.entry(id)
	if e == nil {
		return fmt.Errorf("%w: %q", config.ErrUnknownPopup, id)
	}
	e.ctrl.Do(action)
	m.status = fmt.Sprintf("%s %s", action, id)
	return nil
}

func (m *Model) query(id string) stateReply {
	e := m.entry(id)
	if e == nil {
		return stateReply{err: fmt.Errorf("%w: %q", config.ErrUnknownPopup, id)}
	}
	return stateReply{state: e.ctrl.State(), changed: e.ctrl.ChangedAt()}
}

// Remote lets other goroutines drive the model. Every call is marshalled
// onto the UI loop through the inbox and waits for the loop's answer.
type Remote struct {
	inbox   chan<- tea.Msg
	timeout time.Duration
}

// NewRemote creates a remote posting into inbox.
func NewRemote(inbox chan<- tea.Msg, timeout time.Duration) *Remote {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Remote{inbox: inbox, timeout: timeout}
}

func (r *Remote) post(msg tea.Msg) error {
	select {
	case r.inbox <- msg:
		return nil
	case <-time.After(r.timeout):
		return ErrLoopTimeout
	}
}

func await[T any](ch <-chan T, timeout time.Duration) (T, error) {
	select {
	case v := <-ch:
		return v, nil
	case <-time.After(timeout):
		var zero T
		return zero, ErrLoopTimeout
	}
}

// Do runs action on the popup with the given id.
func (r *Remote) Do(id string, action popup.Action) error {
	reply := make(chan error, 1)
	if err := r.post(commandMsg{id: id, action: action, reply: reply}); err != nil {
		return err
	}
	err, waitErr := await(reply, r.timeout)
	if waitErr != nil {
		return waitErr
	}
	return err
}

// State returns the popup's state and when it last changed.
func (r *Remote) State(id string) (popup.State, time.Time, error) {
	reply := make(chan stateReply, 1)
	if err := r.post(stateMsg{id: id, reply: reply}); err != nil {
		return popup.StateIdle, time.Time{}, err
	}
	res, err := await(reply, r.timeout)
	if err != nil {
		return popup.StateIdle, time.Time{}, err
	}
	return res.state, res.changed, res.err
}

// List returns the configured popup ids.
func (r *Remote) List() ([]string, error) {
	reply := make(chan []string, 1)
	if err := r.post(listMsg{reply: reply}); err != nil {
		return nil, err
	}
	return await(reply, r.timeout)
}

// Reload swaps in a new configuration. Existing popups are disposed.
func (r *Remote) Reload(cfg *config.Config) error {
	return r.post(reloadMsg{cfg: cfg})
}
