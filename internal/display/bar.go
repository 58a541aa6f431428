package display

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	coreglib "github.com/diamondburned/gotk4/pkg/core/glib"
	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/popctl/internal/config"
	"github.com/jmylchreest/popctl/internal/content"
	"github.com/jmylchreest/popctl/internal/popup"
	"github.com/jmylchreest/popctl/internal/theme"
)

// ErrMainLoopTimeout is returned when the GTK main loop does not run a
// queued call in time.
var ErrMainLoopTimeout = errors.New("gtk main loop did not respond")

// callTimeout bounds how long Backend calls wait for the main loop.
const callTimeout = 2 * time.Second

// Options configures a Bar.
type Options struct {
	App      *gtk.Application
	Config   *config.Config
	Logger   *slog.Logger
	Registry *content.Registry

	// OnStateChange is called on the main loop whenever a popup changes state.
	OnStateChange func(id string, state popup.State)
	// OnOpened and OnClosed fire when a popup finishes its transition.
	OnOpened func(p config.Popup)
	OnClosed func(p config.Popup)
}

type entry struct {
	popup   config.Popup
	ctrl    *popup.Controller
	surface *Surface
	button  *gtk.Button
	last    popup.State
}

// Bar is a layer-shell panel holding one anchor button per popup. It is
// the GTK host for popup controllers. Methods without a Backend role must
// be called on the GTK main loop.
type Bar struct {
	opts     Options
	cfg      *config.Config
	logger   *slog.Logger
	registry *content.Registry

	window    *gtk.Window
	row       *gtk.Box
	placement *Placement
	sched     *Scheduler
	attacher  *Attacher
	entries   []*entry
}

// NewBar creates a bar. Call Start on the main loop once the application
// is activated.
func NewBar(opts Options) *Bar {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Config == nil {
		opts.Config = config.DefaultConfig()
	}
	if opts.Registry == nil {
		opts.Registry = content.NewRegistry()
	}
	b := &Bar{
		opts:     opts,
		cfg:      opts.Config,
		logger:   opts.Logger,
		registry: opts.Registry,
		attacher: NewAttacher(opts.App),
	}
	b.sched = NewScheduler(b.publishStates)
	b.registry.Register("keys", func(popup.Surface) content.Component {
		return content.ComponentFunc(func(int) string { return b.describePopups() })
	})
	return b
}

// Start builds and shows the bar.
func (b *Bar) Start() error {
	if gdk.DisplayGetDefault() == nil {
		return &DisplayError{Message: "no display available"}
	}

	b.window = gtk.NewWindow()
	b.window.SetApplication(b.opts.App)
	b.window.SetDecorated(false)
	b.window.SetResizable(false)
	b.window.AddCSSClass("popctl-window")

	b.row = gtk.NewBox(gtk.OrientationHorizontal, 4)
	b.row.AddCSSClass("popctl-bar")
	b.window.SetChild(b.row)
	b.watchDocument(b.window)

	b.build(b.cfg)
	b.placement.PlaceBar(b.window)
	b.window.Present()

	b.logger.Info("bar started", "popups", len(b.entries), "position", b.cfg.Display.BarPosition)
	return nil
}

// Stop disposes every popup and closes the bar.
func (b *Bar) Stop() {
	b.teardown()
	if b.window != nil {
		b.window.Destroy()
		b.window = nil
	}
	b.logger.Info("bar stopped")
}

// build creates a button and controller for every configured popup.
func (b *Bar) build(cfg *config.Config) {
	b.cfg = cfg
	b.placement = NewPlacement(cfg.Display, b.logger)

	renderer := content.NewRenderer(content.RendererOptions{
		MarkdownStyle: cfg.Theme.MarkdownStyle,
		Logger:        b.logger,
	})
	injector := NewInjector(renderer, b.registry, b.logger)

	b.entries = make([]*entry, 0, len(cfg.Popups))
	for _, p := range cfg.Popups {
		pc, err := p.PopupConfig()
		if err != nil {
			b.logger.Warn("skipping popup", "popup_id", p.ID, "error", err)
			continue
		}

		e := &entry{popup: p, button: gtk.NewButtonWithLabel(p.DisplayLabel())}
		e.button.AddCSSClass("popctl-anchor")
		e.button.SetTooltipText(p.ID)
		b.row.Append(e.button)

		env := popup.Env{
			NewSurface: func() popup.Surface {
				e.surface = NewSurface(b.placement, b.sched, SurfaceOptions{
					Title:      p.DisplayLabel(),
					Width:      cfg.Display.Width,
					Transition: cfg.Animation.Transition,
					Duration:   cfg.Animation.Duration.Duration(),
					Position:   func() int { return b.anchorX(e.button) },
				})
				b.watchDocument(e.surface.window)
				return e.surface
			},
			Injector:  injector,
			Attacher:  b.attacher,
			Scheduler: b.sched,
		}
		e.ctrl = popup.New(anchorOf(e.button), pc, env, popup.WithID(p.ID), popup.WithLogger(b.logger))

		popupCfg := p
		e.ctrl.OnOpen(func() {
			if b.opts.OnOpened != nil {
				b.opts.OnOpened(popupCfg)
			}
			b.publishStates()
		})
		e.ctrl.OnClose(func() {
			if b.opts.OnClosed != nil {
				b.opts.OnClosed(popupCfg)
			}
			b.publishStates()
		})

		b.connectAnchor(e)
		b.entries = append(b.entries, e)
	}
}

// connectAnchor forwards the button's pointer, click and focus events.
func (b *Bar) connectAnchor(e *entry) {
	motion := gtk.NewEventControllerMotion()
	motion.ConnectEnter(func(x, y float64) {
		b.handle(e, popup.Event{Kind: popup.EventPointerEnter})
	})
	motion.ConnectLeave(func() {
		b.handle(e, popup.Event{Kind: popup.EventPointerLeave})
	})
	e.button.AddController(motion)

	focus := gtk.NewEventControllerFocus()
	focus.ConnectEnter(func() {
		b.handle(e, popup.Event{Kind: popup.EventFocus})
	})
	focus.ConnectLeave(func() {
		b.handle(e, popup.Event{Kind: popup.EventFocusOut})
	})
	e.button.AddController(focus)

	e.button.ConnectClicked(func() {
		b.handle(e, popup.Event{Kind: popup.EventAnchorClick})
	})
}

// watchDocument reports every press inside window as a document click.
// The capture phase sees the press before any button does.
func (b *Bar) watchDocument(window *gtk.Window) {
	click := gtk.NewGestureClick()
	click.SetButton(0) // All buttons
	click.SetPropagationPhase(gtk.PhaseCapture)
	click.ConnectPressed(func(nPress int, x, y float64) {
		target := window.Pick(x, y, gtk.PickDefault)
		for _, e := range b.entries {
			e.ctrl.Handle(popup.Event{Kind: popup.EventDocumentClick, Target: target})
		}
		b.publishStates()
	})
	window.AddController(click)
}

func (b *Bar) handle(e *entry, ev popup.Event) {
	e.ctrl.Handle(ev)
	b.publishStates()
}

// anchorOf reports whether a picked widget is the button or inside it.
func anchorOf(button *gtk.Button) popup.Anchor {
	return popup.AnchorFunc(func(target any) bool {
		w, ok := target.(gtk.Widgetter)
		if !ok || w == nil {
			return false
		}
		if coreglib.InternObject(w).Native() == coreglib.InternObject(button).Native() {
			return true
		}
		return gtk.BaseWidget(w).IsAncestor(button)
	})
}

// anchorX is the button's left edge in bar coordinates.
func (b *Bar) anchorX(button *gtk.Button) int {
	x, _, ok := button.TranslateCoordinates(b.window, 0, 0)
	if !ok {
		return 0
	}
	return int(x)
}

// teardown disposes controllers and removes their widgets.
func (b *Bar) teardown() {
	for _, e := range b.entries {
		e.ctrl.Dispose()
		if e.surface != nil {
			e.surface.destroy()
		}
		if b.row != nil {
			b.row.Remove(e.button)
		}
		if b.opts.OnStateChange != nil && e.last != popup.StateIdle {
			b.opts.OnStateChange(e.popup.ID, popup.StateIdle)
		}
	}
	b.entries = nil
}

// publishStates reports state changes and keeps the anchors' open class in
// sync.
func (b *Bar) publishStates() {
	for _, e := range b.entries {
		state := e.ctrl.State()
		if state == e.last {
			continue
		}
		e.last = state
		if state.Attached() {
			e.button.AddCSSClass("open")
		} else {
			e.button.RemoveCSSClass("open")
		}
		if b.opts.OnStateChange != nil {
			b.opts.OnStateChange(e.popup.ID, state)
		}
	}
}

func (b *Bar) entry(id string) *entry {
	for _, e := range b.entries {
		if e.popup.ID == id {
			return e
		}
	}
	return nil
}

// describePopups backs the "keys" component: one line per popup trigger.
func (b *Bar) describePopups() string {
	var sb strings.Builder
	for i, e := range b.entries {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%-10s %-13s %s", e.popup.DisplayLabel(), e.popup.Trigger, e.ctrl.Config().EffectiveDelay())
	}
	return sb.String()
}

// onMainLoop runs fn on the GTK main loop and waits for it.
func onMainLoop(fn func()) error {
	done := make(chan struct{})
	glib.IdleAdd(func() {
		fn()
		close(done)
	})
	select {
	case <-done:
		return nil
	case <-time.After(callTimeout):
		return ErrMainLoopTimeout
	}
}

// Do runs an action on a popup. Safe to call from any goroutine.
func (b *Bar) Do(id string, action popup.Action) error {
	var err error
	if lerr := onMainLoop(func() {
		e := b.entry(id)
		if e == nil {
			err = fmt.Errorf("%w: %q", config.ErrUnknownPopup, id)
			return
		}
		e.ctrl.Do(action)
		b.publishStates()
	}); lerr != nil {
		return lerr
	}
	return err
}

// State reports a popup's state. Safe to call from any goroutine.
func (b *Bar) State(id string) (popup.State, time.Time, error) {
	var (
		state   popup.State
		changed time.Time
		err     error
	)
	if lerr := onMainLoop(func() {
		e := b.entry(id)
		if e == nil {
			err = fmt.Errorf("%w: %q", config.ErrUnknownPopup, id)
			return
		}
		state, changed = e.ctrl.State(), e.ctrl.ChangedAt()
	}); lerr != nil {
		return state, changed, lerr
	}
	return state, changed, err
}

// List returns the configured popup ids. Safe to call from any goroutine.
func (b *Bar) List() ([]string, error) {
	var ids []string
	err := onMainLoop(func() { ids = b.cfg.IDs() })
	return ids, err
}

// Reload rebuilds every popup from cfg. Safe to call from any goroutine.
func (b *Bar) Reload(cfg *config.Config) error {
	return onMainLoop(func() {
		if b.row == nil {
			b.cfg = cfg
			return
		}
		// The bar window keeps its layer-shell placement until restart.
		b.teardown()
		b.build(cfg)
		b.logger.Info("config reloaded", "popups", len(b.entries))
	})
}

// ApplyTheme loads cfg's theme and color scheme into loader.
func ApplyTheme(loader *theme.Loader, cfg config.ThemeConfig) error {
	loader.SetColorScheme(cfg.ColorScheme)
	if err := loader.Load(cfg.Name); err != nil {
		return &DisplayError{Message: "failed to load theme", Cause: err}
	}
	loader.Apply(nil)
	return nil
}
