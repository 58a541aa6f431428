package display

import (
	"time"

	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/popctl/internal/content"
	"github.com/jmylchreest/popctl/internal/popup"
	"github.com/jmylchreest/popctl/internal/theme"
)

// refreshInterval is how often live components are redrawn while open.
const refreshInterval = time.Second

// transitions maps config names to revealer transitions.
var transitions = map[string]gtk.RevealerTransitionType{
	"none":       gtk.RevealerTransitionTypeNone,
	"crossfade":  gtk.RevealerTransitionTypeCrossfade,
	"slide-down": gtk.RevealerTransitionTypeSlideDown,
	"slide-up":   gtk.RevealerTransitionTypeSlideUp,
}

// Slot is a vertical box of labels, one per injected node.
type Slot struct {
	box   *gtk.Box
	width int
	nodes []slotNode
}

type slotNode struct {
	label     *gtk.Label
	component content.Component
}

func newSlot(width int) *Slot {
	box := gtk.NewBox(gtk.OrientationVertical, 4)
	box.AddCSSClass("popctl-body")
	return &Slot{box: box, width: width}
}

// Len implements popup.Slot.
func (s *Slot) Len() int { return len(s.nodes) }

func (s *Slot) append(c content.Component) {
	label := gtk.NewLabel(c.View(s.width))
	label.SetXAlign(0)
	label.SetWrap(true)
	label.SetWrapMode(2) // PANGO_WRAP_WORD_CHAR
	label.SetMaxWidthChars(s.width)
	s.box.Append(label)
	s.nodes = append(s.nodes, slotNode{label: label, component: c})
}

func (s *Slot) clear() {
	for _, n := range s.nodes {
		s.box.Remove(n.label)
	}
	s.nodes = nil
}

func (s *Slot) refresh() {
	for _, n := range s.nodes {
		n.label.SetText(n.component.View(s.width))
	}
}

// SurfaceOptions configures a Surface.
type SurfaceOptions struct {
	Title      string
	Width      int // pixels
	Transition string
	Duration   time.Duration
	// Position returns the left offset in pixels, read on every open.
	Position func() int
}

// Surface is a layer-shell window whose content is wrapped in a revealer.
// The open and close transitions are the revealer's animation.
type Surface struct {
	window    *gtk.Window
	revealer  *gtk.Revealer
	box       *gtk.Box
	slot      *Slot
	placement *Placement
	sched     popup.Scheduler
	opts      SurfaceOptions

	refresh popup.Timer
	// revealed is the last transition end reported to callbacks.
	revealed bool

	onOpen  []func()
	onClose []func()
}

// NewSurface builds the popup window. It is not shown until attached to the
// document.
func NewSurface(placement *Placement, sched popup.Scheduler, opts SurfaceOptions) *Surface {
	s := &Surface{
		window:    gtk.NewWindow(),
		revealer:  gtk.NewRevealer(),
		box:       gtk.NewBox(gtk.OrientationVertical, 6),
		slot:      newSlot(max(opts.Width/8, 10)),
		placement: placement,
		sched:     sched,
		opts:      opts,
	}

	s.window.SetDecorated(false)
	s.window.SetResizable(false)
	s.window.SetDefaultSize(opts.Width, -1)
	s.window.AddCSSClass("popctl-window")
	placement.PlacePopup(s.window)

	s.box.AddCSSClass("popctl-popup")
	s.box.AddCSSClass(theme.SchemeClass())
	if opts.Title != "" {
		title := gtk.NewLabel(opts.Title)
		title.AddCSSClass("popctl-title")
		title.SetXAlign(0)
		s.box.Append(title)
	}
	s.box.Append(s.slot.box)

	tt, ok := transitions[opts.Transition]
	if !ok {
		tt = gtk.RevealerTransitionTypeSlideDown
	}
	s.revealer.SetTransitionType(tt)
	s.revealer.SetTransitionDuration(uint(max(opts.Duration.Milliseconds(), 0)))
	s.revealer.SetChild(s.box)
	s.window.SetChild(s.revealer)

	s.revealer.NotifyProperty("child-revealed", s.handleRevealed)
	return s
}

// Open implements popup.Surface.
func (s *Surface) Open() {
	if s.revealer.RevealChild() {
		return
	}
	if s.opts.Position != nil {
		s.placement.MovePopup(s.window, s.opts.Position())
	}
	s.startRefresh()
	s.revealer.SetRevealChild(true)
	if s.revealer.ChildRevealed() {
		// The revealer skips the animation when unmapped or instant.
		s.handleRevealed()
	}
}

// Close implements popup.Surface.
func (s *Surface) Close() {
	if !s.revealer.RevealChild() {
		return
	}
	s.stopRefresh()
	s.revealer.SetRevealChild(false)
	if !s.revealer.ChildRevealed() {
		s.handleRevealed()
	}
}

// IsOpen implements popup.Surface.
func (s *Surface) IsOpen() bool { return s.revealer.RevealChild() }

// OnOpenComplete implements popup.Surface.
func (s *Surface) OnOpenComplete(fn func()) { s.onOpen = append(s.onOpen, fn) }

// OnCloseComplete implements popup.Surface.
func (s *Surface) OnCloseComplete(fn func()) { s.onClose = append(s.onClose, fn) }

// Slot implements popup.Surface.
func (s *Surface) Slot() popup.Slot { return s.slot }

// Window returns the underlying GTK window.
func (s *Surface) Window() *gtk.Window { return s.window }

// handleRevealed fires once per finished transition. Both the notify
// signal and the synchronous check in Open/Close can reach it, so it only
// reports when the revealed state matches the requested one and has not
// been reported yet.
func (s *Surface) handleRevealed() {
	want := s.revealer.RevealChild()
	if s.revealer.ChildRevealed() != want {
		return
	}
	if want == s.revealed {
		return
	}
	s.revealed = want
	callbacks := s.onClose
	if want {
		callbacks = s.onOpen
	}
	for _, fn := range callbacks {
		fn()
	}
}

// startRefresh redraws component content every second while open.
func (s *Surface) startRefresh() {
	s.stopRefresh()
	var tick func()
	tick = func() {
		s.slot.refresh()
		s.refresh = s.sched.AfterFunc(refreshInterval, tick)
	}
	s.refresh = s.sched.AfterFunc(refreshInterval, tick)
}

func (s *Surface) stopRefresh() {
	if s.refresh != nil {
		s.refresh.Stop()
		s.refresh = nil
	}
}

// destroy stops timers and releases the window.
func (s *Surface) destroy() {
	s.stopRefresh()
	s.window.Destroy()
}
