package popup_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/popctl/internal/popup"
	"github.com/jmylchreest/popctl/internal/popup/popuptest"
)

func newController(t *testing.T, cfg popup.Config) (*popup.Controller, *popuptest.Harness) {
	t.Helper()
	h := popuptest.NewHarness()
	c := h.New(cfg, popup.WithID("test"))
	require.NotNil(t, c)
	return c, h
}

func TestNew_AttachesDetached(t *testing.T) {
	c, h := newController(t, popup.Config{Delay: 100 * time.Millisecond})

	assert.Equal(t, "test", c.ID())
	assert.Equal(t, popup.StateIdle, c.State())
	assert.Equal(t, []string{"attach", "detach"}, h.Attacher.Calls)
	assert.True(t, h.Attacher.InApp(h.Surface))
	assert.False(t, h.Attacher.InBody(h.Surface))
	assert.False(t, c.IsOpen())
}

func TestNew_GeneratesID(t *testing.T) {
	h := popuptest.NewHarness()
	a := h.New(popup.Config{})
	b := popuptest.NewHarness().New(popup.Config{})

	assert.Len(t, a.ID(), 26)
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestOpen_Debounce(t *testing.T) {
	c, h := newController(t, popup.Config{Delay: 100 * time.Millisecond, Template: "tip"})

	c.Open()
	assert.Equal(t, popup.StatePending, c.State())
	h.Scheduler.Advance(60 * time.Millisecond)
	c.Open()
	h.Scheduler.Advance(60 * time.Millisecond)
	c.Open()
	h.Scheduler.Advance(99 * time.Millisecond)

	assert.Equal(t, 0, h.Surface.OpenCalls, "no open before the last call's delay elapses")
	assert.Equal(t, popup.StatePending, c.State())

	h.Scheduler.Advance(time.Millisecond)
	assert.Equal(t, 1, h.Surface.OpenCalls)
	assert.Equal(t, popup.StateOpen, c.State())
	assert.Equal(t, 0, h.Scheduler.Live())

	h.Scheduler.Advance(time.Second)
	assert.Equal(t, 1, h.Surface.OpenCalls)
}

func TestOpen_ZeroDelayIsAsync(t *testing.T) {
	c, h := newController(t, popup.Config{})

	c.Open()
	assert.Equal(t, 0, h.Surface.OpenCalls)
	assert.Equal(t, popup.StatePending, c.State())

	h.Scheduler.Flush()
	assert.Equal(t, 1, h.Surface.OpenCalls)
	assert.Equal(t, popup.StateOpen, c.State())
}

func TestOpen_NegativeDelay(t *testing.T) {
	c, h := newController(t, popup.Config{Delay: -5 * time.Second})

	c.Open()
	h.Scheduler.Flush()
	assert.Equal(t, 1, h.Surface.OpenCalls)
}

func TestClose_CancelsPendingOpen(t *testing.T) {
	c, h := newController(t, popup.Config{Delay: 100 * time.Millisecond})

	c.Open()
	h.Scheduler.Advance(50 * time.Millisecond)
	c.Close()

	assert.Equal(t, popup.StateIdle, c.State())
	assert.False(t, c.HasPendingOpen())

	h.Scheduler.Advance(time.Second)
	assert.Equal(t, 0, h.Surface.OpenCalls)
	assert.Equal(t, popup.StateIdle, c.State())
}

func TestClose_Idle(t *testing.T) {
	c, h := newController(t, popup.Config{})

	c.Close()
	assert.Equal(t, popup.StateIdle, c.State())
	assert.Equal(t, 1, h.Surface.CloseCalls, "close is forwarded to the surface in every state")
}

func TestClose_DetachesOnCompletion(t *testing.T) {
	c, h := newController(t, popup.Config{Template: "tip"})

	var closed int
	c.OnClose(func() { closed++ })

	c.Open()
	h.Scheduler.Flush()
	h.Surface.CompleteOpen()
	require.True(t, h.Attacher.InBody(h.Surface))

	c.Close()
	assert.Equal(t, popup.StateClosing, c.State())
	assert.True(t, h.Attacher.InBody(h.Surface), "still attached while closing")

	h.Surface.CompleteClose()
	assert.Equal(t, popup.StateIdle, c.State())
	assert.False(t, h.Attacher.InBody(h.Surface))
	assert.Equal(t, 1, closed)
}

func TestAttachedOnlyWhileOpenOrClosing(t *testing.T) {
	c, h := newController(t, popup.Config{Delay: 10 * time.Millisecond, Template: "tip"})

	check := func() {
		t.Helper()
		assert.Equal(t, c.State().Attached(), h.Attacher.InBody(h.Surface), "state %s", c.State())
	}

	check()
	c.Open()
	check()
	h.Scheduler.Advance(10 * time.Millisecond)
	check()
	h.Surface.CompleteOpen()
	check()
	c.Close()
	check()
	c.Open()
	check()
	h.Surface.CompleteClose()
	check()
	assert.Equal(t, popup.StatePending, c.State())
	h.Scheduler.Advance(10 * time.Millisecond)
	check()
	assert.Equal(t, popup.StateOpen, c.State())
}

func TestContentClearedEachCycle(t *testing.T) {
	c, h := newController(t, popup.Config{Template: "tip"})
	h.Surface.Instant = true

	for i := 0; i < 3; i++ {
		c.Open()
		h.Scheduler.Flush()
		assert.Equal(t, []string{"template:tip"}, h.Surface.Content())
		c.Close()
	}
	assert.Equal(t, 3, h.Injector.Clears)
	require.Len(t, h.Injector.Templates, 3)
	assert.Same(t, h.Surface, h.Injector.Templates[0].Implicit)
	assert.Equal(t, "test", h.Injector.Templates[0].ID)
}

func TestTemplateTakesPrecedence(t *testing.T) {
	c, h := newController(t, popup.Config{Template: "tip", Component: "card"})

	c.Open()
	h.Scheduler.Flush()
	assert.Equal(t, []string{"template:tip"}, h.Surface.Content())
	assert.Empty(t, h.Injector.Components)
}

func TestComponentInjection(t *testing.T) {
	c, h := newController(t, popup.Config{Component: "card"})

	c.Open()
	h.Scheduler.Flush()
	assert.Equal(t, []string{"component:card"}, h.Surface.Content())
	assert.Equal(t, []string{"card"}, h.Injector.Components)
}

func TestNoContentStillOpens(t *testing.T) {
	c, h := newController(t, popup.Config{})

	c.Open()
	h.Scheduler.Flush()
	assert.Equal(t, 1, h.Surface.OpenCalls)
	assert.Equal(t, 1, h.Injector.Clears)
	assert.Empty(t, h.Surface.Content())
}

func TestToggle(t *testing.T) {
	c, h := newController(t, popup.Config{})

	c.Toggle()
	assert.Equal(t, popup.StatePending, c.State(), "toggle on a never-opened popup opens")
	h.Scheduler.Flush()
	assert.True(t, c.IsOpen())

	c.Toggle()
	assert.Equal(t, popup.StateClosing, c.State())
	h.Surface.CompleteClose()
	assert.Equal(t, popup.StateIdle, c.State())

	c.Toggle()
	assert.Equal(t, popup.StatePending, c.State())
}

func TestReopenWhileClosing(t *testing.T) {
	c, h := newController(t, popup.Config{Delay: 50 * time.Millisecond})

	var opened int
	c.OnOpen(func() { opened++ })

	c.Open()
	h.Scheduler.Advance(50 * time.Millisecond)
	h.Surface.CompleteOpen()
	require.Equal(t, 1, opened)

	c.Close()
	c.Open()
	assert.Equal(t, popup.StateClosing, c.State())
	h.Scheduler.Advance(50 * time.Millisecond)
	assert.Equal(t, popup.StateOpen, c.State())
	assert.False(t, h.Surface.Closing(), "open reverses the close transition")

	// A late completion from the reversed close must not detach.
	h.Surface.EmitCloseComplete()
	assert.Equal(t, popup.StateOpen, c.State())
	assert.True(t, h.Attacher.InBody(h.Surface))
}

func TestDispose(t *testing.T) {
	c, h := newController(t, popup.Config{Delay: 10 * time.Millisecond})

	var closed int
	c.OnClose(func() { closed++ })

	c.Open()
	h.Scheduler.Advance(10 * time.Millisecond)
	c.Dispose()
	c.Dispose()
	assert.Equal(t, popup.StateClosing, c.State())

	h.Surface.CompleteClose()
	assert.Equal(t, popup.StateIdle, c.State())
	assert.False(t, h.Attacher.InBody(h.Surface))
	assert.Equal(t, 0, closed, "listeners are dropped on dispose")

	c.Open()
	h.Scheduler.Advance(time.Second)
	assert.Equal(t, 1, h.Surface.OpenCalls)
	assert.Equal(t, popup.StateIdle, c.State())
}

func TestHoverScenario(t *testing.T) {
	c, h := newController(t, popup.Config{Trigger: popup.TriggerHover, Delay: 200 * time.Millisecond})

	assert.Equal(t, popup.ActionOpen, c.Handle(popup.Event{Kind: popup.EventPointerEnter}))
	h.Scheduler.Advance(50 * time.Millisecond)
	assert.Equal(t, popup.ActionClose, c.Handle(popup.Event{Kind: popup.EventPointerLeave}))

	h.Scheduler.Advance(time.Second)
	assert.Equal(t, 0, h.Surface.OpenCalls)
	assert.Equal(t, popup.StateIdle, c.State())
}

func TestOutsideClickScenario(t *testing.T) {
	c, h := newController(t, popup.Config{Trigger: popup.TriggerOutsideClick})

	c.Handle(popup.Event{Kind: popup.EventAnchorClick})
	h.Scheduler.Flush()
	h.Surface.CompleteOpen()
	require.Equal(t, popup.StateOpen, c.State())

	inside := h.Anchor.Child("label").Child("icon")
	assert.Equal(t, popup.ActionNone, c.Handle(popup.Event{Kind: popup.EventDocumentClick, Target: inside}))
	assert.Equal(t, popup.StateOpen, c.State())

	outside := (&popuptest.Node{Name: "body"}).Child("other")
	assert.Equal(t, popup.ActionClose, c.Handle(popup.Event{Kind: popup.EventDocumentClick, Target: outside}))
	assert.Equal(t, popup.StateClosing, c.State())
}

func TestClickScenario(t *testing.T) {
	c, h := newController(t, popup.Config{Trigger: popup.TriggerClick, Delay: 100 * time.Millisecond})
	click := popup.Event{Kind: popup.EventAnchorClick}

	assert.Equal(t, popup.ActionToggle, c.Handle(click))
	assert.Equal(t, popup.StatePending, c.State())

	h.Scheduler.Advance(70 * time.Millisecond)
	c.Handle(click)
	assert.Equal(t, popup.StatePending, c.State())

	h.Scheduler.Advance(70 * time.Millisecond)
	assert.Equal(t, 0, h.Surface.OpenCalls, "second click restarted the timer")
	h.Scheduler.Advance(30 * time.Millisecond)
	assert.Equal(t, 1, h.Surface.OpenCalls)
	h.Surface.CompleteOpen()

	c.Handle(click)
	assert.Equal(t, popup.StateClosing, c.State())
	h.Scheduler.Advance(time.Second)
	assert.Equal(t, 1, h.Surface.OpenCalls)
}

func TestDocumentClickIgnoredForOtherTriggers(t *testing.T) {
	c, h := newController(t, popup.Config{Trigger: popup.TriggerClick})

	c.Open()
	h.Scheduler.Flush()
	assert.Equal(t, popup.ActionNone, c.Handle(popup.Event{Kind: popup.EventDocumentClick, Target: &popuptest.Node{}}))
	assert.Equal(t, popup.StateOpen, c.State())
}

func TestFocusTrigger(t *testing.T) {
	c, h := newController(t, popup.Config{Trigger: popup.TriggerFocus, Delay: 20 * time.Millisecond})

	c.Handle(popup.Event{Kind: popup.EventFocus})
	h.Scheduler.Advance(20 * time.Millisecond)
	assert.Equal(t, popup.StateOpen, c.State())

	c.Handle(popup.Event{Kind: popup.EventFocusOut})
	assert.Equal(t, popup.StateClosing, c.State())
}

func TestTriggerNoneIgnoresEvents(t *testing.T) {
	c, h := newController(t, popup.Config{Trigger: popup.TriggerNone})

	for _, kind := range []popup.EventKind{
		popup.EventPointerEnter, popup.EventAnchorClick, popup.EventFocus,
	} {
		assert.Equal(t, popup.ActionNone, c.Handle(popup.Event{Kind: kind}))
	}
	h.Scheduler.Advance(time.Second)
	assert.Equal(t, popup.StateIdle, c.State())

	c.Do(popup.ActionOpen)
	h.Scheduler.Flush()
	assert.Equal(t, popup.StateOpen, c.State(), "programmatic open still works")
}
