package popup

import "time"

// Surface is the floating element a controller manages. A controller owns
// exactly one surface for its whole lifetime.
type Surface interface {
	// Open begins the opening transition and must eventually fire the
	// open-complete callbacks.
	Open()
	// Close begins the closing transition and must eventually fire the
	// close-complete callbacks. Calling Close on a closed surface is a no-op.
	Close()
	// IsOpen is true from the start of the open transition until a close
	// transition starts.
	IsOpen() bool
	// OnOpenComplete registers a callback for open-transition completion.
	OnOpenComplete(fn func())
	// OnCloseComplete registers a callback for close-transition completion.
	OnCloseComplete(fn func())
	// Slot returns the content region that is cleared and refilled before
	// every open.
	Slot() Slot
}

// Slot is the mutable content region of a surface.
type Slot interface {
	// Len reports how many content nodes are currently injected.
	Len() int
}

// TemplateContext is handed to template instantiation. Implicit is the
// surface itself.
type TemplateContext struct {
	Implicit Surface
	ID       string
	Config   Config
}

// ContentInjector instantiates template or component content into a slot.
type ContentInjector interface {
	Clear(slot Slot)
	InjectTemplate(slot Slot, template string, ctx TemplateContext)
	InjectComponent(slot Slot, component string, target Surface)
}

// Attacher moves a surface between the application tree and the visible
// document.
type Attacher interface {
	// AttachToApplicationRoot makes the surface part of the application
	// without making it visible.
	AttachToApplicationRoot(s Surface)
	// DetachFromDocument removes the surface from the visible document.
	DetachFromDocument(s Surface)
	// MoveToDocumentBody inserts the surface into the visible document.
	MoveToDocumentBody(s Surface)
}

// Anchor is the element a popup is attached to. It is borrowed from the
// host and only used for containment checks.
type Anchor interface {
	Contains(target any) bool
}

// AnchorFunc adapts a function to the Anchor interface.
type AnchorFunc func(target any) bool

// Contains calls f(target).
func (f AnchorFunc) Contains(target any) bool { return f(target) }

// Timer is a cancellable scheduled callback.
type Timer interface {
	// Stop prevents the callback from running. It returns false if the
	// callback already ran or the timer was already stopped.
	Stop() bool
}

// Scheduler runs callbacks after a delay on the host's UI loop.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// Env bundles the collaborators a controller needs.
type Env struct {
	// NewSurface is called exactly once, during construction.
	NewSurface func() Surface
	// Injector may be nil, in which case surfaces stay empty.
	Injector  ContentInjector
	Attacher  Attacher
	Scheduler Scheduler
}

// NopInjector leaves slots untouched.
type NopInjector struct{}

func (NopInjector) Clear(Slot)                                  {}
func (NopInjector) InjectTemplate(Slot, string, TemplateContext) {}
func (NopInjector) InjectComponent(Slot, string, Surface)        {}
