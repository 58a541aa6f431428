package theme

import (
	"context"
	"log/slog"
	"sync"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"
)

// Loader owns the CSS provider installed on the GTK display. All methods
// except Stop must be called on the GTK main loop.
type Loader struct {
	mu       sync.Mutex
	logger   *slog.Logger
	provider *gtk.CSSProvider
	dir      string
	theme    *Theme
	watcher  *Watcher
}

// NewLoader creates a loader reading user themes from Dir().
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	dir, err := Dir()
	if err != nil {
		logger.Warn("failed to get themes directory", "error", err)
	}
	return &Loader{
		logger:   logger,
		provider: gtk.NewCSSProvider(),
		dir:      dir,
	}
}

// Load resolves name and loads it into the provider. Unknown themes fall
// back to the default one.
func (l *Loader) Load(name string) error {
	t, err := Resolve(name, l.dir)
	if err != nil {
		l.logger.Warn("theme not found, using default", "theme", name)
		if t, err = Resolve(DefaultName, ""); err != nil {
			return err
		}
	}

	l.mu.Lock()
	l.theme = t
	l.mu.Unlock()

	l.provider.LoadFromString(t.CSS)
	l.logger.Info("loaded theme", "name", t.Name, "bundled", t.Bundled())
	return nil
}

// Apply installs the provider on display, or the default display if nil.
func (l *Loader) Apply(display *gdk.Display) {
	if display == nil {
		display = gdk.DisplayGetDefault()
	}
	if display == nil {
		l.logger.Warn("no display available, cannot apply theme")
		return
	}
	gtk.StyleContextAddProviderForDisplay(display, l.provider, gtk.STYLE_PROVIDER_PRIORITY_APPLICATION)
}

// SetColorScheme forces libadwaita's light or dark variant. Anything other
// than "light" or "dark" follows the system.
func (l *Loader) SetColorScheme(scheme string) {
	sm := adw.StyleManagerGetDefault()
	switch scheme {
	case "light":
		sm.SetColorScheme(adw.ColorSchemeForceLight)
	case "dark":
		sm.SetColorScheme(adw.ColorSchemeForceDark)
	default:
		sm.SetColorScheme(adw.ColorSchemeDefault)
	}
}

// SchemeClass returns the CSS class matching the active variant.
func SchemeClass() string {
	if adw.StyleManagerGetDefault().Dark() {
		return "dark"
	}
	return "light"
}

// Current returns the loaded theme.
func (l *Loader) Current() *Theme {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.theme
}

// Watch hot-reloads the current theme when its file changes. Bundled
// themes are not watched.
func (l *Loader) Watch(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.watcher != nil {
		l.watcher.Stop()
		l.watcher = nil
	}
	if l.theme == nil || l.theme.Bundled() {
		return
	}

	l.watcher = NewWatcher(l.theme, l.logger)
	l.watcher.SetChangeCallback(func(css string) {
		glib.IdleAdd(func() {
			l.provider.LoadFromString(css)
		})
	})
	l.watcher.Start(ctx)
}

// Stop ends hot-reload.
func (l *Loader) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.watcher != nil {
		l.watcher.Stop()
		l.watcher = nil
	}
}
