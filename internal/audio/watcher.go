package audio

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports when a watched sound file is rewritten so cached audio
// can be dropped.
type Watcher struct {
	mu       sync.Mutex
	logger   *slog.Logger
	onChange func(path string)

	fs    *fsnotify.Watcher
	dirs  map[string]bool
	files map[string]bool
	done  chan struct{}
}

// NewWatcher creates a watcher calling onChange with the changed path.
func NewWatcher(onChange func(path string), logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		logger:   logger,
		onChange: onChange,
		dirs:     make(map[string]bool),
		files:    make(map[string]bool),
	}
}

// Watch adds path. Its directory is watched rather than the file, so
// editors that replace files are still seen.
func (w *Watcher) Watch(path string) error {
	if path == "" {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.ensureLocked(); err != nil {
		return err
	}
	path = filepath.Clean(path)
	w.files[path] = true

	dir := filepath.Dir(path)
	if w.dirs[dir] {
		return nil
	}
	if err := w.fs.Add(dir); err != nil {
		return err
	}
	w.dirs[dir] = true
	return nil
}

func (w *Watcher) ensureLocked() error {
	if w.fs != nil {
		return nil
	}
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.fs = fs
	return nil
}

// Start delivers change events until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done != nil {
		return nil
	}
	if err := w.ensureLocked(); err != nil {
		return err
	}
	w.done = make(chan struct{})
	go w.loop(ctx, w.fs, w.done)
	w.logger.Debug("audio watcher started", "dirs", len(w.dirs))
	return nil
}

// Stop closes the underlying watcher and waits for the loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	fs, done := w.fs, w.done
	w.fs, w.done = nil, nil
	w.dirs = make(map[string]bool)
	w.mu.Unlock()

	if fs != nil {
		_ = fs.Close()
	}
	if done != nil {
		<-done
	}
}

func (w *Watcher) loop(ctx context.Context, fs *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fs.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			path := filepath.Clean(event.Name)
			w.mu.Lock()
			watched := w.files[path]
			w.mu.Unlock()
			if watched {
				w.logger.Debug("sound file changed, invalidating cache", "path", path)
				w.onChange(path)
			}
		case err, ok := <-fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("audio watcher error", "error", err)
		}
	}
}
