package popup

import (
	"crypto/rand"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
)

// Controller owns the lifecycle of a single popup surface and maps trigger
// events on its anchor to open, close and toggle requests.
//
// A Controller is not safe for concurrent use. Every method, and every timer
// callback delivered by the Scheduler, must run on the host's UI loop.
type Controller struct {
	id       string
	anchor   Anchor
	config   Config
	surface  Surface
	injector ContentInjector
	attacher Attacher
	sched    Scheduler
	logger   *slog.Logger

	state     State
	pending   Timer
	changedAt time.Time
	disposed  bool

	onOpen  []func()
	onClose []func()
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithID sets the controller's identifier. The default is a fresh ULID.
func WithID(id string) Option {
	return func(c *Controller) {
		if id != "" {
			c.id = id
		}
	}
}

// New creates a controller for anchor. The surface is created immediately,
// attached to the application root and kept out of the visible document
// until the first open.
func New(anchor Anchor, cfg Config, env Env, opts ...Option) *Controller {
	c := &Controller{
		anchor:    anchor,
		config:    cfg,
		injector:  env.Injector,
		attacher:  env.Attacher,
		sched:     env.Scheduler,
		logger:    slog.Default(),
		changedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.id == "" {
		c.id = newID()
	}
	if c.injector == nil {
		c.injector = NopInjector{}
	}
	c.logger = c.logger.With("popup_id", c.id)

	c.surface = env.NewSurface()
	c.attacher.AttachToApplicationRoot(c.surface)
	c.attacher.DetachFromDocument(c.surface)

	c.surface.OnOpenComplete(c.handleOpenComplete)
	c.surface.OnCloseComplete(c.handleCloseComplete)

	return c
}

func newID() string {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return ulid.Make().String()
	}
	return id.String()
}

// ID returns the controller's identifier.
func (c *Controller) ID() string { return c.id }

// Config returns the controller's configuration.
func (c *Controller) Config() Config { return c.config }

// Surface returns the owned surface. Callers must not transition it directly.
func (c *Controller) Surface() Surface { return c.surface }

// State returns the current lifecycle state.
func (c *Controller) State() State { return c.state }

// ChangedAt returns when the state last changed.
func (c *Controller) ChangedAt() time.Time { return c.changedAt }

// IsOpen reports whether the surface is open. It is derived from the surface
// rather than tracked by the controller.
func (c *Controller) IsOpen() bool {
	return c.surface != nil && c.surface.IsOpen()
}

// HasPendingOpen reports whether a delayed open is scheduled.
func (c *Controller) HasPendingOpen() bool { return c.pending != nil }

// OnOpen registers a callback fired when the surface finishes opening.
func (c *Controller) OnOpen(fn func()) {
	c.onOpen = append(c.onOpen, fn)
}

// OnClose registers a callback fired when the surface finishes closing.
func (c *Controller) OnClose(fn func()) {
	c.onClose = append(c.onClose, fn)
}

// Open requests the popup to open after the configured delay. Calling Open
// again before the delay elapses restarts the delay.
func (c *Controller) Open() {
	if c.disposed {
		return
	}
	c.cancelPending()

	delay := c.config.EffectiveDelay()
	var timer Timer
	timer = c.sched.AfterFunc(delay, func() {
		// A stopped timer whose callback was already queued must not open.
		if c.pending != timer {
			return
		}
		c.pending = nil
		c.show()
	})
	c.pending = timer

	if c.state == StateIdle {
		c.setState(StatePending)
	}
	c.logger.Debug("popup open scheduled", "delay_ms", delay.Milliseconds(), "state", c.state)
}

// show injects fresh content, moves the surface into the document and
// starts the open transition.
func (c *Controller) show() {
	slot := c.surface.Slot()
	c.injector.Clear(slot)
	switch {
	case c.config.Template != "":
		c.injector.InjectTemplate(slot, c.config.Template, TemplateContext{
			Implicit: c.surface,
			ID:       c.id,
			Config:   c.config,
		})
	case c.config.Component != "":
		c.injector.InjectComponent(slot, c.config.Component, c.surface)
	}

	c.attacher.MoveToDocumentBody(c.surface)
	c.setState(StateOpen)
	c.surface.Open()
	c.logger.Debug("popup opening")
}

// Close cancels any pending open and starts the close transition. It is safe
// to call in any state.
func (c *Controller) Close() {
	c.cancelPending()

	switch c.state {
	case StatePending:
		c.setState(StateIdle)
	case StateOpen:
		c.setState(StateClosing)
	}
	if c.surface != nil {
		c.surface.Close()
	}
}

// Toggle opens the popup unless the surface is currently open, in which
// case it closes it.
func (c *Controller) Toggle() {
	if c.surface == nil || !c.surface.IsOpen() {
		c.Open()
		return
	}
	c.Close()
}

// Do runs an action.
func (c *Controller) Do(action Action) {
	switch action {
	case ActionOpen:
		c.Open()
	case ActionClose:
		c.Close()
	case ActionToggle:
		c.Toggle()
	}
}

// Handle maps a UI event to an action and runs it.
func (c *Controller) Handle(ev Event) Action {
	inAnchor := false
	if ev.Kind == EventDocumentClick && c.anchor != nil {
		inAnchor = c.anchor.Contains(ev.Target)
	}
	action := Resolve(ev.Kind, c.config.Trigger, c.surface != nil, inAnchor)
	if action != ActionNone {
		c.logger.Debug("popup event", "event", ev.Kind, "action", action)
	}
	c.Do(action)
	return action
}

// Dispose cancels pending work, closes the surface and stops forwarding
// notifications. The surface is detached once its close transition
// completes.
func (c *Controller) Dispose() {
	if c.disposed {
		return
	}
	c.Close()
	c.disposed = true
	c.onOpen = nil
	c.onClose = nil
}

func (c *Controller) handleOpenComplete() {
	for _, fn := range c.onOpen {
		fn()
	}
}

func (c *Controller) handleCloseComplete() {
	if c.state != StateClosing {
		// Stale completion from a close that a re-open reversed.
		c.logger.Debug("ignoring close completion", "state", c.state)
		return
	}
	c.attacher.DetachFromDocument(c.surface)
	if c.pending != nil {
		c.setState(StatePending)
	} else {
		c.setState(StateIdle)
	}
	c.logger.Debug("popup closed")

	for _, fn := range c.onClose {
		fn()
	}
}

func (c *Controller) cancelPending() {
	if c.pending == nil {
		return
	}
	c.pending.Stop()
	c.pending = nil
}

func (c *Controller) setState(s State) {
	if c.state == s {
		return
	}
	c.state = s
	c.changedAt = time.Now()
}
