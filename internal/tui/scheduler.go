package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jmylchreest/popctl/internal/popup"
)

// Scheduler implements popup.Scheduler for the BubbleTea loop. Timers run on
// their own goroutines but only post a message; the callback itself runs in
// Update, alongside every other UI event.
type Scheduler struct {
	inbox chan<- tea.Msg
}

// NewScheduler creates a scheduler that posts into inbox.
func NewScheduler(inbox chan<- tea.Msg) *Scheduler {
	return &Scheduler{inbox: inbox}
}

// timerMsg carries an expired timer back onto the loop.
type timerMsg struct {
	timer *loopTimer
}

type loopTimer struct {
	fn    func()
	timer *time.Timer

	// Only touched on the loop.
	stopped bool
	fired   bool
}

// AfterFunc implements popup.Scheduler.
func (s *Scheduler) AfterFunc(d time.Duration, fn func()) popup.Timer {
	if d < 0 {
		d = 0
	}
	t := &loopTimer{fn: fn}
	t.timer = time.AfterFunc(d, func() {
		s.inbox <- timerMsg{timer: t}
	})
	return t
}

// Stop implements popup.Timer. A timer whose message is already queued is
// still suppressed because fire checks the stopped flag.
func (t *loopTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	t.timer.Stop()
	return true
}

func (t *loopTimer) fire() {
	if t.stopped || t.fired {
		return
	}
	t.fired = true
	t.fn()
}

// waitForMsg blocks on the inbox and hands the next message to Update.
// Update re-issues it after handling each inbox message.
func waitForMsg(inbox <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-inbox
		if !ok {
			return nil
		}
		return msg
	}
}
