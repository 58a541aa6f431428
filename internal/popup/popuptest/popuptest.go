// Package popuptest provides in-memory collaborators for exercising popup
// controllers without a UI toolkit.
package popuptest

import (
	"sort"
	"time"

	"github.com/jmylchreest/popctl/internal/popup"
)

// Scheduler is a manually advanced clock. Callbacks only run inside Advance,
// which keeps them on the test goroutine like a real UI loop would.
type Scheduler struct {
	now    time.Duration
	seq    int
	timers []*Timer
}

// Timer is a timer created by Scheduler.
type Timer struct {
	sched   *Scheduler
	at      time.Duration
	seq     int
	fn      func()
	stopped bool
	fired   bool
}

// NewScheduler returns a scheduler at time zero.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// AfterFunc implements popup.Scheduler.
func (s *Scheduler) AfterFunc(d time.Duration, fn func()) popup.Timer {
	if d < 0 {
		d = 0
	}
	s.seq++
	t := &Timer{sched: s, at: s.now + d, seq: s.seq, fn: fn}
	s.timers = append(s.timers, t)
	return t
}

// Stop implements popup.Timer.
func (t *Timer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Now returns the elapsed virtual time.
func (s *Scheduler) Now() time.Duration { return s.now }

// Advance moves the clock forward by d, running due callbacks in order.
// Callbacks scheduled while advancing run too if they fall inside the window.
func (s *Scheduler) Advance(d time.Duration) {
	target := s.now + d
	for {
		next := s.nextDue(target)
		if next == nil {
			break
		}
		s.now = next.at
		next.fired = true
		next.fn()
	}
	s.now = target
	s.compact()
}

// Flush runs everything that is due right now.
func (s *Scheduler) Flush() { s.Advance(0) }

// Live returns the number of timers that are neither stopped nor fired.
func (s *Scheduler) Live() int {
	n := 0
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func (s *Scheduler) nextDue(limit time.Duration) *Timer {
	var due []*Timer
	for _, t := range s.timers {
		if !t.stopped && !t.fired && t.at <= limit {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].at == due[j].at {
			return due[i].seq < due[j].seq
		}
		return due[i].at < due[j].at
	})
	return due[0]
}

func (s *Scheduler) compact() {
	kept := s.timers[:0]
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			kept = append(kept, t)
		}
	}
	s.timers = kept
}

// Slot records injected content.
type Slot struct {
	Nodes []string
}

// Len implements popup.Slot.
func (s *Slot) Len() int { return len(s.Nodes) }

// Surface is a surface whose transitions complete when the test says so,
// or immediately when Instant is set.
type Surface struct {
	Instant bool

	slot    Slot
	open    bool
	closing bool

	OpenCalls  int
	CloseCalls int

	onOpen  []func()
	onClose []func()
}

// NewSurface returns a surface that needs CompleteOpen/CompleteClose calls.
func NewSurface() *Surface { return &Surface{} }

// Open implements popup.Surface.
func (s *Surface) Open() {
	s.OpenCalls++
	s.closing = false
	if s.open {
		return
	}
	s.open = true
	if s.Instant {
		s.CompleteOpen()
	}
}

// Close implements popup.Surface.
func (s *Surface) Close() {
	s.CloseCalls++
	if !s.open || s.closing {
		return
	}
	s.closing = true
	if s.Instant {
		s.CompleteClose()
	}
}

// IsOpen implements popup.Surface. A closing surface no longer reports open.
func (s *Surface) IsOpen() bool { return s.open && !s.closing }

// Closing reports whether a close transition is running.
func (s *Surface) Closing() bool { return s.closing }

// OnOpenComplete implements popup.Surface.
func (s *Surface) OnOpenComplete(fn func()) { s.onOpen = append(s.onOpen, fn) }

// OnCloseComplete implements popup.Surface.
func (s *Surface) OnCloseComplete(fn func()) { s.onClose = append(s.onClose, fn) }

// Slot implements popup.Surface.
func (s *Surface) Slot() popup.Slot { return &s.slot }

// Content returns the injected nodes.
func (s *Surface) Content() []string { return s.slot.Nodes }

// CompleteOpen finishes the open transition.
func (s *Surface) CompleteOpen() {
	if !s.open || s.closing {
		return
	}
	for _, fn := range s.onOpen {
		fn()
	}
}

// CompleteClose finishes the close transition.
func (s *Surface) CompleteClose() {
	if !s.closing {
		return
	}
	s.closing = false
	s.open = false
	for _, fn := range s.onClose {
		fn()
	}
}

// EmitCloseComplete fires close-complete listeners without touching the
// surface state, simulating a completion that arrives late.
func (s *Surface) EmitCloseComplete() {
	for _, fn := range s.onClose {
		fn()
	}
}

// Injector writes template and component names into a Slot.
type Injector struct {
	Clears     int
	Templates  []popup.TemplateContext
	Components []string
}

// Clear implements popup.ContentInjector.
func (i *Injector) Clear(slot popup.Slot) {
	i.Clears++
	if s, ok := slot.(*Slot); ok {
		s.Nodes = nil
	}
}

// InjectTemplate implements popup.ContentInjector.
func (i *Injector) InjectTemplate(slot popup.Slot, template string, ctx popup.TemplateContext) {
	i.Templates = append(i.Templates, ctx)
	if s, ok := slot.(*Slot); ok {
		s.Nodes = append(s.Nodes, "template:"+template)
	}
}

// InjectComponent implements popup.ContentInjector.
func (i *Injector) InjectComponent(slot popup.Slot, component string, target popup.Surface) {
	i.Components = append(i.Components, component)
	if s, ok := slot.(*Slot); ok {
		s.Nodes = append(s.Nodes, "component:"+component)
	}
}

// Attacher tracks where each surface lives and records every call.
type Attacher struct {
	Calls []string

	inApp  map[popup.Surface]bool
	inBody map[popup.Surface]bool
}

// NewAttacher returns an empty attacher.
func NewAttacher() *Attacher {
	return &Attacher{
		inApp:  make(map[popup.Surface]bool),
		inBody: make(map[popup.Surface]bool),
	}
}

// AttachToApplicationRoot implements popup.Attacher.
func (a *Attacher) AttachToApplicationRoot(s popup.Surface) {
	a.Calls = append(a.Calls, "attach")
	a.inApp[s] = true
}

// DetachFromDocument implements popup.Attacher.
func (a *Attacher) DetachFromDocument(s popup.Surface) {
	a.Calls = append(a.Calls, "detach")
	delete(a.inBody, s)
}

// MoveToDocumentBody implements popup.Attacher.
func (a *Attacher) MoveToDocumentBody(s popup.Surface) {
	a.Calls = append(a.Calls, "move")
	a.inBody[s] = true
}

// InBody reports whether s is in the visible document.
func (a *Attacher) InBody(s popup.Surface) bool { return a.inBody[s] }

// InApp reports whether s was attached to the application root.
func (a *Attacher) InApp(s popup.Surface) bool { return a.inApp[s] }

// Node is an element in a test document tree.
type Node struct {
	Name   string
	Parent *Node
}

// Child creates a child node.
func (n *Node) Child(name string) *Node {
	return &Node{Name: name, Parent: n}
}

// Contains reports whether target is n or a descendant of n.
func (n *Node) Contains(target any) bool {
	t, ok := target.(*Node)
	if !ok {
		return false
	}
	for ; t != nil; t = t.Parent {
		if t == n {
			return true
		}
	}
	return false
}

// Harness wires a controller to the fakes.
type Harness struct {
	Scheduler *Scheduler
	Surface   *Surface
	Injector  *Injector
	Attacher  *Attacher
	Anchor    *Node
	Env       popup.Env
}

// NewHarness returns fresh fakes and an Env that hands out Surface.
func NewHarness() *Harness {
	h := &Harness{
		Scheduler: NewScheduler(),
		Surface:   NewSurface(),
		Injector:  &Injector{},
		Attacher:  NewAttacher(),
		Anchor:    &Node{Name: "anchor"},
	}
	h.Env = popup.Env{
		NewSurface: func() popup.Surface { return h.Surface },
		Injector:   h.Injector,
		Attacher:   h.Attacher,
		Scheduler:  h.Scheduler,
	}
	return h
}

// New builds a controller over the harness.
func (h *Harness) New(cfg popup.Config, opts ...popup.Option) *popup.Controller {
	return popup.New(h.Anchor, cfg, h.Env, opts...)
}
