package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/popctl/internal/config"
	"github.com/jmylchreest/popctl/internal/popup"
	"github.com/jmylchreest/popctl/internal/popup/popuptest"
)

// testConfig lays out four anchors: tip at x=1, menu at x=7, out at x=14,
// foc at x=20, all on the toolbar row.
func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Animation.Duration = 0
	cfg.Popups = []config.Popup{
		{ID: "tip", Trigger: "hover", Delay: config.Duration(100 * time.Millisecond), Template: "hi {{.ID}}"},
		{ID: "menu", Trigger: "click", Component: "keys"},
		{ID: "out", Trigger: "outside-click", Template: "outside"},
		{ID: "foc", Trigger: "focus", Template: "focused"},
	}
	return cfg
}

type harness struct {
	t       *testing.T
	m       Model
	sched   *popuptest.Scheduler
	changes []string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{t: t, sched: popuptest.NewScheduler()}
	h.m = New(Options{
		Config:    testConfig(),
		Scheduler: h.sched,
		OnStateChange: func(id string, s popup.State) {
			h.changes = append(h.changes, id+":"+s.String())
		},
	})
	h.update(tea.WindowSizeMsg{Width: 80, Height: 20})
	return h
}

func (h *harness) update(msg tea.Msg) tea.Cmd {
	h.t.Helper()
	next, cmd := h.m.Update(msg)
	m, ok := next.(Model)
	require.True(h.t, ok)
	h.m = m
	return cmd
}

func (h *harness) motion(x, y int) {
	h.update(tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionMotion})
}

func (h *harness) press(x, y int) {
	h.update(tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
}

func (h *harness) key(k tea.KeyType) {
	h.update(tea.KeyMsg{Type: k})
}

// advance moves the clock and lets the model observe the result.
func (h *harness) advance(d time.Duration) {
	h.sched.Advance(d)
	h.update(struct{}{})
}

func (h *harness) state(id string) popup.State {
	h.t.Helper()
	e := h.m.entry(id)
	require.NotNil(h.t, e, id)
	return e.ctrl.State()
}

func TestModel_Layout(t *testing.T) {
	h := newHarness(t)

	want := []Rect{
		{X: 1, Y: 1, W: 5, H: 1},
		{X: 7, Y: 1, W: 6, H: 1},
		{X: 14, Y: 1, W: 5, H: 1},
		{X: 20, Y: 1, W: 5, H: 1},
	}
	require.Len(t, h.m.entries, len(want))
	for i, e := range h.m.entries {
		assert.Equal(t, want[i], e.anchor.Rect, e.popup.ID)
		assert.True(t, e.anchor.Contains(e.label))
	}
	assert.Equal(t, []string{"tip", "menu", "out", "foc"}, h.m.cfg.IDs())
}

func TestModel_HoverOpensAfterDelay(t *testing.T) {
	h := newHarness(t)

	h.motion(3, 1)
	assert.Equal(t, popup.StatePending, h.state("tip"))

	h.advance(99 * time.Millisecond)
	assert.Equal(t, popup.StatePending, h.state("tip"))
	h.advance(time.Millisecond)
	assert.Equal(t, popup.StateOpen, h.state("tip"))
	assert.Contains(t, h.m.View(), "hi tip")

	h.motion(60, 10)
	assert.Equal(t, popup.StateIdle, h.state("tip"))
	assert.Equal(t, []string{"tip:pending", "tip:open", "tip:idle"}, h.changes)
}

func TestModel_HoverLeaveCancels(t *testing.T) {
	h := newHarness(t)

	h.motion(2, 1)
	h.advance(50 * time.Millisecond)
	h.motion(60, 10)
	h.advance(time.Second)

	assert.Equal(t, popup.StateIdle, h.state("tip"))
	assert.Empty(t, h.m.layers.Body())
}

func TestModel_ClickToggles(t *testing.T) {
	h := newHarness(t)

	h.press(9, 1)
	h.advance(0)
	assert.Equal(t, popup.StateOpen, h.state("menu"))
	assert.Contains(t, h.m.View(), "focus next", "keys component renders the key map")

	h.press(9, 1)
	assert.Equal(t, popup.StateIdle, h.state("menu"))
}

func TestModel_OutsideClick(t *testing.T) {
	h := newHarness(t)

	h.press(15, 1)
	h.advance(0)
	require.Equal(t, popup.StateOpen, h.state("out"))

	// Clicking another anchor is outside "out".
	h.press(9, 1)
	assert.Equal(t, popup.StateIdle, h.state("out"))
	h.advance(0)
	assert.Equal(t, popup.StateOpen, h.state("menu"))

	h.press(15, 1)
	h.advance(0)
	require.Equal(t, popup.StateOpen, h.state("out"))

	// Clicking inside the popup body is outside the anchor too.
	h.press(15, 3)
	assert.Equal(t, popup.StateIdle, h.state("out"))
	assert.Equal(t, popup.StateOpen, h.state("menu"), "click popups ignore document clicks")
}

func TestModel_FocusKeys(t *testing.T) {
	h := newHarness(t)

	for i := 0; i < 4; i++ {
		h.key(tea.KeyTab)
	}
	assert.Equal(t, 3, h.m.focused)
	h.advance(0)
	assert.Equal(t, popup.StateOpen, h.state("foc"))

	h.key(tea.KeyTab)
	assert.Equal(t, 0, h.m.focused)
	assert.Equal(t, popup.StateIdle, h.state("foc"))

	h.key(tea.KeyShiftTab)
	assert.Equal(t, 3, h.m.focused)
}

func TestModel_EnterClicksFocused(t *testing.T) {
	h := newHarness(t)

	h.key(tea.KeyTab)
	h.key(tea.KeyTab)
	h.key(tea.KeyEnter)
	h.advance(0)
	assert.Equal(t, popup.StateOpen, h.state("menu"))

	h.key(tea.KeyEsc)
	assert.Equal(t, popup.StateIdle, h.state("menu"))
}

func TestModel_RemoteMessages(t *testing.T) {
	h := newHarness(t)

	reply := make(chan error, 1)
	h.update(commandMsg{id: "out", action: popup.ActionToggle, reply: reply})
	require.NoError(t, <-reply)
	assert.Equal(t, popup.StatePending, h.state("out"))

	h.update(commandMsg{id: "nope", action: popup.ActionOpen, reply: reply})
	assert.ErrorIs(t, <-reply, config.ErrUnknownPopup)

	states := make(chan stateReply, 1)
	h.update(stateMsg{id: "out", reply: states})
	res := <-states
	require.NoError(t, res.err)
	assert.Equal(t, popup.StatePending, res.state)
	assert.False(t, res.changed.IsZero())

	ids := make(chan []string, 1)
	h.update(listMsg{reply: ids})
	assert.Equal(t, []string{"tip", "menu", "out", "foc"}, <-ids)
}

func TestModel_Reload(t *testing.T) {
	h := newHarness(t)

	h.press(15, 1)
	h.advance(0)
	require.Equal(t, popup.StateOpen, h.state("out"))

	cfg := testConfig()
	cfg.Popups = cfg.Popups[:1]
	h.update(reloadMsg{cfg: cfg})

	assert.Len(t, h.m.entries, 1)
	assert.Nil(t, h.m.entry("out"))
	assert.Empty(t, h.m.layers.Body())
	assert.Contains(t, h.changes, "out:idle")
	assert.Equal(t, "config reloaded", h.m.status)
}

func TestModel_QuitDisposes(t *testing.T) {
	h := newHarness(t)

	h.motion(2, 1)
	cmd := h.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Empty(t, h.m.entries)

	h.advance(time.Second)
	assert.Empty(t, h.m.layers.Body())
}
