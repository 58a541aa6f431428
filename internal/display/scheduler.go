package display

import (
	"time"

	coreglib "github.com/diamondburned/gotk4/pkg/core/glib"

	"github.com/jmylchreest/popctl/internal/popup"
)

// Scheduler runs popup timers as GLib timeout sources, so callbacks always
// run on the GTK main loop.
type Scheduler struct {
	after func()
}

// NewScheduler creates a scheduler. after, if set, runs on the main loop
// after every fired callback.
func NewScheduler(after func()) *Scheduler {
	return &Scheduler{after: after}
}

// AfterFunc implements popup.Scheduler.
func (s *Scheduler) AfterFunc(d time.Duration, fn func()) popup.Timer {
	t := &sourceTimer{}
	ms := max(d.Milliseconds(), 0)
	t.handle = coreglib.TimeoutAdd(uint(ms), func() bool {
		if t.done {
			return false
		}
		t.done = true
		fn()
		if s.after != nil {
			s.after()
		}
		return false
	})
	return t
}

// sourceTimer is only touched on the main loop.
type sourceTimer struct {
	handle coreglib.SourceHandle
	done   bool
}

func (t *sourceTimer) Stop() bool {
	if t.done {
		return false
	}
	t.done = true
	coreglib.SourceRemove(t.handle)
	return true
}
