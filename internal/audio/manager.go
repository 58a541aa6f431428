package audio

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jmylchreest/popctl/internal/config"
)

// Cue identifies the moment a sound is played.
type Cue int

const (
	// CueOpen plays when a popup finishes opening.
	CueOpen Cue = iota
	// CueClose plays when a popup finishes closing.
	CueClose
)

// Sink plays sound files. *Player is the real implementation.
type Sink interface {
	Play(path string) error
	Preload(path string) error
	Invalidate(path string)
	Close()
}

// Manager picks the sound for each popup cue and plays it in the
// background.
type Manager struct {
	mu      sync.RWMutex
	logger  *slog.Logger
	sink    Sink
	watcher *Watcher
	cfg     config.AudioConfig
	sounds  map[string]string // popup id -> sound override
}

// NewManager creates a manager playing through a new Player.
func NewManager(cfg *config.Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	p := NewPlayer(logger)
	return NewManagerWithSink(cfg, p, logger)
}

// NewManagerWithSink creates a manager playing through sink.
func NewManagerWithSink(cfg *config.Config, sink Sink, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{logger: logger, sink: sink}
	m.watcher = NewWatcher(sink.Invalidate, logger)
	m.apply(cfg)
	return m
}

// apply copies the audio settings and per-popup overrides from cfg.
func (m *Manager) apply(cfg *config.Config) {
	sounds := make(map[string]string, len(cfg.Popups))
	for _, p := range cfg.Popups {
		if p.Sound != "" {
			sounds[p.ID] = p.SoundPath()
		}
	}

	m.mu.Lock()
	m.cfg = cfg.Audio
	m.sounds = sounds
	m.mu.Unlock()

	if p, ok := m.sink.(*Player); ok {
		p.SetVolume(float64(cfg.Audio.Volume) / 100)
	}
}

// Paths returns every sound file the current config can play.
func (m *Manager) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	var paths []string
	add := func(p string) {
		if p != "" && !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}
	add(config.ExpandPath(m.cfg.OpenSound))
	add(config.ExpandPath(m.cfg.CloseSound))
	for _, p := range m.sounds {
		add(p)
	}
	return paths
}

// Start preloads the configured sounds and watches them for changes.
func (m *Manager) Start(ctx context.Context) error {
	if !m.Enabled() {
		m.logger.Debug("audio disabled")
		return nil
	}
	paths := m.Paths()
	for _, p := range paths {
		if err := m.sink.Preload(p); err != nil {
			m.logger.Warn("failed to preload sound", "path", p, "error", err)
		}
		if err := m.watcher.Watch(p); err != nil {
			m.logger.Debug("failed to watch sound", "path", p, "error", err)
		}
	}
	if err := m.watcher.Start(ctx); err != nil {
		return err
	}
	m.logger.Info("audio manager started", "sounds", len(paths))
	return nil
}

// Stop halts the watcher and the player.
func (m *Manager) Stop() {
	m.watcher.Stop()
	m.sink.Close()
}

// Enabled reports whether sounds are played at all.
func (m *Manager) Enabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.Enabled
}

// SoundFor returns the file to play for a cue, or "" for silence. A popup's
// own sound replaces the open cue only.
func (m *Manager) SoundFor(cue Cue, p config.Popup) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.cfg.Enabled {
		return ""
	}
	switch cue {
	case CueOpen:
		if s, ok := m.sounds[p.ID]; ok {
			return s
		}
		return config.ExpandPath(m.cfg.OpenSound)
	case CueClose:
		return config.ExpandPath(m.cfg.CloseSound)
	}
	return ""
}

// Play plays the cue's sound in the background.
func (m *Manager) Play(cue Cue, p config.Popup) {
	path := m.SoundFor(cue, p)
	if path == "" {
		return
	}
	go func() {
		if err := m.sink.Play(path); err != nil {
			m.logger.Debug("failed to play popup sound", "popup_id", p.ID, "path", path, "error", err)
		}
	}()
}

// OnOpened is a host hook playing the open cue.
func (m *Manager) OnOpened(p config.Popup) { m.Play(CueOpen, p) }

// OnClosed is a host hook playing the close cue.
func (m *Manager) OnClosed(p config.Popup) { m.Play(CueClose, p) }

// UpdateConfig swaps in a reloaded config and drops cached sounds.
func (m *Manager) UpdateConfig(cfg *config.Config) {
	for _, p := range m.Paths() {
		m.sink.Invalidate(p)
	}
	m.apply(cfg)
	if !m.Enabled() {
		return
	}
	for _, p := range m.Paths() {
		if err := m.watcher.Watch(p); err != nil {
			m.logger.Debug("failed to watch sound", "path", p, "error", err)
		}
	}
	m.logger.Debug("audio manager config updated")
}
