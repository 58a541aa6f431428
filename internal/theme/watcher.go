package theme

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultPollInterval is how often a theme file is checked for changes.
const DefaultPollInterval = time.Second

// Watcher polls a theme file and reports new CSS. Imported partials are
// only picked up when the main file changes too.
type Watcher struct {
	mu       sync.Mutex
	logger   *slog.Logger
	theme    *Theme
	interval time.Duration
	onChange func(css string)

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewWatcher creates a watcher for t.
func NewWatcher(t *Theme, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{logger: logger, theme: t, interval: DefaultPollInterval}
}

// SetPollInterval changes the polling interval. Call before Start.
func (w *Watcher) SetPollInterval(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.interval = d
}

// SetChangeCallback sets the function receiving reloaded CSS. It is called
// from the watcher goroutine.
func (w *Watcher) SetChangeCallback(fn func(css string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// Start begins polling until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopCh != nil || w.theme.Bundled() {
		return
	}
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	go w.loop(ctx, w.interval, w.stopCh, w.doneCh)
	w.logger.Debug("theme watcher started", "path", w.theme.Path, "interval", w.interval)
}

// Stop halts polling and waits for the goroutine to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	stopCh, doneCh := w.stopCh, w.doneCh
	w.stopCh, w.doneCh = nil, nil
	w.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-doneCh
}

func (w *Watcher) loop(ctx context.Context, interval time.Duration, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			w.check()
		}
	}
}

func (w *Watcher) check() {
	w.mu.Lock()
	t, fn := w.theme, w.onChange
	w.mu.Unlock()

	changed, err := t.Reload()
	if err != nil {
		w.logger.Debug("failed to reload theme", "path", t.Path, "error", err)
		return
	}
	if changed {
		w.logger.Info("theme file changed, reloading", "path", t.Path)
		if fn != nil {
			fn(t.CSS)
		}
	}
}
