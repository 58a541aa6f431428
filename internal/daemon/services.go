package daemon

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jmylchreest/popctl/internal/audio"
	"github.com/jmylchreest/popctl/internal/config"
	"github.com/jmylchreest/popctl/internal/dbus"
	"github.com/jmylchreest/popctl/internal/metrics"
	"github.com/jmylchreest/popctl/internal/popup"
)

// Host is a running popup bar that can be driven remotely and reloaded.
type Host interface {
	dbus.Backend
	Reload(cfg *config.Config) error
}

// Emitter publishes popup state changes. *dbus.ControlServer implements it.
type Emitter interface {
	EmitStateChanged(id string, state popup.State) error
}

// Options configures Services.
type Options struct {
	Config     *config.Config
	ConfigPath string
	Logger     *slog.Logger

	// Audio plays open and close cues. Nil disables sounds.
	Audio *audio.Manager
	// Metrics records transitions and reloads. Nil disables recording; the
	// endpoint is served only when the config enables it.
	Metrics *metrics.Metrics
	// NoBus skips the session bus entirely.
	NoBus bool
	// NoWatch disables config hot-reload.
	NoWatch bool
	// OnReload runs after the host accepted a reloaded config.
	OnReload func(cfg *config.Config)
}

// Services runs the control server, the config watcher and audio around a
// host. Create it before the host so its hooks can be passed in, then
// Start it once the host exists.
type Services struct {
	opts   Options
	logger *slog.Logger

	mu      sync.Mutex
	host    Host
	server  *dbus.ControlServer
	emitter Emitter
	watcher *ConfigWatcher
}

// NewServices creates the service set.
func NewServices(opts Options) *Services {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Services{opts: opts, logger: logger}
}

// OnStateChange is the host hook forwarding state changes to the bus.
func (s *Services) OnStateChange(id string, state popup.State) {
	s.opts.Metrics.RecordState(id, state)

	s.mu.Lock()
	emitter := s.emitter
	s.mu.Unlock()
	if emitter == nil {
		return
	}
	if err := emitter.EmitStateChanged(id, state); err != nil {
		s.logger.Debug("failed to emit state change", "popup_id", id, "error", err)
	}
}

// OnOpened is the host hook for a finished open transition.
func (s *Services) OnOpened(p config.Popup) {
	s.logger.Debug("popup opened", "popup_id", p.ID)
	if s.opts.Audio != nil {
		s.opts.Audio.OnOpened(p)
	}
}

// OnClosed is the host hook for a finished close transition.
func (s *Services) OnClosed(p config.Popup) {
	s.logger.Debug("popup closed", "popup_id", p.ID)
	if s.opts.Audio != nil {
		s.opts.Audio.OnClosed(p)
	}
}

// Start brings up every enabled service for host. A missing session bus,
// an unwatchable config directory or a busy metrics address is logged and
// skipped.
func (s *Services) Start(ctx context.Context, host Host) error {
	s.mu.Lock()
	s.host = host
	s.mu.Unlock()

	if s.opts.Audio != nil {
		if err := s.opts.Audio.Start(ctx); err != nil {
			s.logger.Warn("failed to start audio", "error", err)
		}
	}

	if s.opts.Metrics != nil && s.opts.Config != nil && s.opts.Config.Metrics.Enabled {
		if err := s.opts.Metrics.Serve(ctx, s.opts.Config.Metrics, s.logger); err != nil {
			s.logger.Warn("metrics endpoint unavailable", "error", err)
		}
	}

	if !s.opts.NoBus {
		server := dbus.NewControlServer(host, s.logger)
		if err := server.Start(); err != nil {
			s.logger.Warn("D-Bus control unavailable", "error", err)
		} else {
			s.mu.Lock()
			s.server = server
			s.emitter = server
			s.mu.Unlock()
		}
	}

	if !s.opts.NoWatch {
		w := NewConfigWatcher(s.opts.ConfigPath, s.logger)
		w.SetReloadCallback(s.reload)
		w.SetErrorCallback(func(err error) {
			s.opts.Metrics.RecordReload(err)
			s.logger.Error("config reload rejected, keeping current config", "error", err)
		})
		if err := w.Start(ctx, s.opts.Config); err != nil {
			s.logger.Warn("config hot-reload unavailable", "error", err)
		} else {
			s.mu.Lock()
			s.watcher = w
			s.mu.Unlock()
		}
	}
	return nil
}

// SetEmitter overrides where state changes are published.
func (s *Services) SetEmitter(e Emitter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emitter = e
}

// Config returns the config currently in effect.
func (s *Services) Config() *config.Config {
	s.mu.Lock()
	w := s.watcher
	s.mu.Unlock()
	if w != nil {
		if cfg := w.GetCurrentConfig(); cfg != nil {
			return cfg
		}
	}
	return s.opts.Config
}

// reload hands a validated config to the host and then to audio.
func (s *Services) reload(cfg *config.Config) {
	s.mu.Lock()
	host := s.host
	s.mu.Unlock()
	if host == nil {
		return
	}
	if err := host.Reload(cfg); err != nil {
		s.opts.Metrics.RecordReload(err)
		s.logger.Error("host rejected reloaded config", "error", err)
		return
	}
	s.opts.Metrics.RecordReload(nil)
	if s.opts.Audio != nil {
		s.opts.Audio.UpdateConfig(cfg)
	}
	if s.opts.OnReload != nil {
		s.opts.OnReload(cfg)
	}
}

// Stop shuts every service down. It is safe to call more than once.
func (s *Services) Stop() {
	s.mu.Lock()
	server, watcher := s.server, s.watcher
	s.server, s.watcher, s.emitter = nil, nil, nil
	s.mu.Unlock()

	if watcher != nil {
		watcher.Stop()
	}
	if server != nil {
		if err := server.Stop(); err != nil {
			s.logger.Debug("failed to stop control server", "error", err)
		}
	}
	if s.opts.Audio != nil {
		s.opts.Audio.Stop()
	}
}
