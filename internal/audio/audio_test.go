package audio

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/popctl/internal/config"
)

type fakeSink struct {
	mu          sync.Mutex
	played      []string
	preloaded   []string
	invalidated []string
	closed      bool
}

func (f *fakeSink) Play(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.played = append(f.played, path)
	return nil
}

func (f *fakeSink) Preload(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.preloaded = append(f.preloaded, path)
	return nil
}

func (f *fakeSink) Invalidate(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, path)
}

func (f *fakeSink) Close() { f.closed = true }

func (f *fakeSink) playedPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.played...)
}

func audioConfig(dir string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Audio.Enabled = true
	cfg.Audio.OpenSound = filepath.Join(dir, "open.wav")
	cfg.Audio.CloseSound = filepath.Join(dir, "close.wav")
	cfg.Popups = []config.Popup{
		{ID: "plain", Trigger: "click"},
		{ID: "loud", Trigger: "click", Sound: filepath.Join(dir, "loud.wav")},
	}
	return cfg
}

func writeWAV(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	format := beep.Format{SampleRate: 8000, NumChannels: 1, Precision: 2}
	require.NoError(t, wav.Encode(f, beep.Silence(800), format))
}

func TestManager_SoundFor(t *testing.T) {
	dir := t.TempDir()
	cfg := audioConfig(dir)
	m := NewManagerWithSink(cfg, &fakeSink{}, nil)

	plain, loud := cfg.Popups[0], cfg.Popups[1]
	assert.Equal(t, cfg.Audio.OpenSound, m.SoundFor(CueOpen, plain))
	assert.Equal(t, loud.Sound, m.SoundFor(CueOpen, loud), "popup sound overrides the open cue")
	assert.Equal(t, cfg.Audio.CloseSound, m.SoundFor(CueClose, loud))

	cfg.Audio.Enabled = false
	m.UpdateConfig(cfg)
	assert.Empty(t, m.SoundFor(CueOpen, plain))
}

func TestManager_PlayHooks(t *testing.T) {
	dir := t.TempDir()
	cfg := audioConfig(dir)
	sink := &fakeSink{}
	m := NewManagerWithSink(cfg, sink, nil)

	m.OnOpened(cfg.Popups[1])
	m.OnClosed(cfg.Popups[0])

	require.Eventually(t, func() bool { return len(sink.playedPaths()) == 2 }, time.Second, 5*time.Millisecond)
	assert.ElementsMatch(t, []string{cfg.Popups[1].Sound, cfg.Audio.CloseSound}, sink.playedPaths())
}

func TestManager_StartPreloads(t *testing.T) {
	dir := t.TempDir()
	cfg := audioConfig(dir)
	sink := &fakeSink{}
	m := NewManagerWithSink(cfg, sink, nil)

	require.NoError(t, m.Start(context.Background()))
	t.Cleanup(m.Stop)
	assert.ElementsMatch(t, []string{cfg.Audio.OpenSound, cfg.Audio.CloseSound, cfg.Popups[1].Sound}, sink.preloaded)

	m.UpdateConfig(cfg)
	assert.Len(t, sink.invalidated, 3)
}

func TestManager_DisabledStartsNothing(t *testing.T) {
	cfg := config.DefaultConfig()
	sink := &fakeSink{}
	m := NewManagerWithSink(cfg, sink, nil)

	require.NoError(t, m.Start(context.Background()))
	assert.Empty(t, sink.preloaded)
	m.Stop()
	assert.True(t, sink.closed)
}

func TestPlayer_PreloadAndInvalidate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tone.wav")
	writeWAV(t, path)

	p := NewPlayer(nil)
	require.NoError(t, p.Preload(path))
	assert.True(t, p.Cached(path))

	p.Invalidate(path)
	assert.False(t, p.Cached(path))

	assert.NoError(t, p.Preload(""))
	assert.Error(t, p.Preload(filepath.Join(dir, "missing.wav")))

	bad := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(bad, []byte("x"), 0644))
	assert.ErrorContains(t, p.Preload(bad), "unsupported audio format")
}

func TestPlayer_Volume(t *testing.T) {
	p := NewPlayer(nil)
	p.SetVolume(1.5)
	assert.Equal(t, 1.0, p.Volume())
	p.SetVolume(-1)
	assert.Equal(t, 0.0, p.Volume())

	assert.InDelta(t, 0, volumeToExponent(1), 1e-9)
	assert.InDelta(t, -1, volumeToExponent(0.1), 1e-9)
	assert.Equal(t, -10.0, volumeToExponent(0))
}

func TestWatcher_ReportsRewrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "open.wav")
	writeWAV(t, path)

	var (
		mu      sync.Mutex
		changed []string
	)
	w := NewWatcher(func(p string) {
		mu.Lock()
		changed = append(changed, p)
		mu.Unlock()
	}, nil)
	require.NoError(t, w.Watch(path))
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(w.Stop)

	// Unwatched siblings are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.wav"), []byte("x"), 0644))
	writeWAV(t, path)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(changed) > 0
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for _, p := range changed {
		assert.Equal(t, path, p)
	}
}
