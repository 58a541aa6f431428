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

// runLoop stands in for the BubbleTea program: it feeds inbox messages to
// the model on a single goroutine.
func runLoop(t *testing.T, m Model, inbox chan tea.Msg) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range inbox {
			next, _ := m.Update(msg)
			m = next.(Model)
		}
	}()
	t.Cleanup(func() {
		close(inbox)
		<-done
	})
}

func TestRemote(t *testing.T) {
	inbox := make(chan tea.Msg, 8)
	m := New(Options{
		Config:    testConfig(),
		Scheduler: popuptest.NewScheduler(),
		Inbox:     inbox,
	})
	runLoop(t, m, inbox)

	r := NewRemote(inbox, time.Second)

	ids, err := r.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"tip", "menu", "out", "foc"}, ids)

	require.NoError(t, r.Do("menu", popup.ActionOpen))
	state, changed, err := r.State("menu")
	require.NoError(t, err)
	assert.Equal(t, popup.StatePending, state)
	assert.WithinDuration(t, time.Now(), changed, time.Minute)

	require.NoError(t, r.Do("menu", popup.ActionClose))
	state, _, err = r.State("menu")
	require.NoError(t, err)
	assert.Equal(t, popup.StateIdle, state)

	assert.ErrorIs(t, r.Do("missing", popup.ActionToggle), config.ErrUnknownPopup)
	_, _, err = r.State("missing")
	assert.ErrorIs(t, err, config.ErrUnknownPopup)

	cfg := testConfig()
	cfg.Popups = cfg.Popups[2:]
	require.NoError(t, r.Reload(cfg))
	ids, err = r.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"out", "foc"}, ids)
}

func TestRemote_Timeout(t *testing.T) {
	r := NewRemote(make(chan tea.Msg), 10*time.Millisecond)

	assert.ErrorIs(t, r.Do("x", popup.ActionOpen), ErrLoopTimeout)
	_, err := r.List()
	assert.ErrorIs(t, err, ErrLoopTimeout)
}
