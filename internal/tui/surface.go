package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jmylchreest/popctl/internal/content"
	"github.com/jmylchreest/popctl/internal/popup"
)

// AnimationStatus is the state of a surface's reveal animation.
//
//	            Open()
//	Dismissed ────────► Forward ────► Completed
//	    ▲                                │
//	    │                  Close()       │
//	    └──────── Reverse ◄──────────────┘
type AnimationStatus int

const (
	AnimationDismissed AnimationStatus = iota
	AnimationForward
	AnimationReverse
	AnimationCompleted
)

func (s AnimationStatus) String() string {
	switch s {
	case AnimationDismissed:
		return "dismissed"
	case AnimationForward:
		return "forward"
	case AnimationReverse:
		return "reverse"
	case AnimationCompleted:
		return "completed"
	default:
		return fmt.Sprintf("AnimationStatus(%d)", int(s))
	}
}

// Slot holds the components injected into a surface.
type Slot struct {
	nodes []content.Component
}

// Len implements popup.Slot.
func (s *Slot) Len() int { return len(s.nodes) }

func (s *Slot) clear() { s.nodes = nil }

func (s *Slot) append(c content.Component) { s.nodes = append(s.nodes, c) }

// SurfaceOptions configures a Surface.
type SurfaceOptions struct {
	Title    string
	Width    int
	Duration time.Duration
	Frame    time.Duration
	// Position returns the top-left cell the surface is drawn at.
	Position func() (x, y int)
}

// Surface is a terminal popup box that slides open line by line.
type Surface struct {
	sched    popup.Scheduler
	title    string
	width    int
	duration time.Duration
	frame    time.Duration
	position func() (int, int)

	slot     Slot
	status   AnimationStatus
	progress float64
	ticker   popup.Timer

	onOpen  []func()
	onClose []func()
}

// NewSurface creates a surface whose frames are driven by sched.
func NewSurface(sched popup.Scheduler, opts SurfaceOptions) *Surface {
	s := &Surface{
		sched:    sched,
		title:    opts.Title,
		width:    opts.Width,
		duration: opts.Duration,
		frame:    opts.Frame,
		position: opts.Position,
	}
	if s.frame <= 0 {
		s.frame = 16 * time.Millisecond
	}
	if s.width <= 0 {
		s.width = 40
	}
	if s.position == nil {
		s.position = func() (int, int) { return 0, 0 }
	}
	return s
}

// Open implements popup.Surface.
func (s *Surface) Open() {
	if s.status == AnimationForward || s.status == AnimationCompleted {
		return
	}
	s.animate(AnimationForward)
}

// Close implements popup.Surface.
func (s *Surface) Close() {
	if s.status == AnimationDismissed || s.status == AnimationReverse {
		return
	}
	s.animate(AnimationReverse)
}

// IsOpen implements popup.Surface.
func (s *Surface) IsOpen() bool {
	return s.status == AnimationForward || s.status == AnimationCompleted
}

// Visible reports whether any part of the surface is drawn.
func (s *Surface) Visible() bool {
	return s.status != AnimationDismissed
}

// Status returns the animation status.
func (s *Surface) Status() AnimationStatus { return s.status }

// Progress returns the reveal fraction in [0, 1].
func (s *Surface) Progress() float64 { return s.progress }

// OnOpenComplete implements popup.Surface.
func (s *Surface) OnOpenComplete(fn func()) { s.onOpen = append(s.onOpen, fn) }

// OnCloseComplete implements popup.Surface.
func (s *Surface) OnCloseComplete(fn func()) { s.onClose = append(s.onClose, fn) }

// Slot implements popup.Surface.
func (s *Surface) Slot() popup.Slot { return &s.slot }

// Position returns where the surface is drawn.
func (s *Surface) Position() (int, int) { return s.position() }

func (s *Surface) animate(direction AnimationStatus) {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
	s.status = direction
	if s.duration <= 0 {
		s.finish()
		return
	}
	s.schedule()
}

func (s *Surface) schedule() {
	s.ticker = s.sched.AfterFunc(s.frame, s.tick)
}

func (s *Surface) tick() {
	s.ticker = nil
	step := float64(s.frame) / float64(s.duration)
	switch s.status {
	case AnimationForward:
		s.progress = math.Min(1, s.progress+step)
		if s.progress >= 1 {
			s.finish()
			return
		}
	case AnimationReverse:
		s.progress = math.Max(0, s.progress-step)
		if s.progress <= 0 {
			s.finish()
			return
		}
	default:
		return
	}
	s.schedule()
}

func (s *Surface) finish() {
	switch s.status {
	case AnimationForward:
		s.progress = 1
		s.status = AnimationCompleted
		for _, fn := range s.onOpen {
			fn()
		}
	case AnimationReverse:
		s.progress = 0
		s.status = AnimationDismissed
		for _, fn := range s.onClose {
			fn()
		}
	}
}

var (
	surfaceStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("12")).
			Padding(0, 1)

	surfaceTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("12"))
)

// innerWidth is the content width inside border and padding.
func (s *Surface) innerWidth() int {
	return max(1, s.width-surfaceStyle.GetHorizontalFrameSize())
}

// Lines renders the full box, ignoring animation progress.
func (s *Surface) Lines() []string {
	w := s.innerWidth()
	var parts []string
	if s.title != "" {
		parts = append(parts, surfaceTitleStyle.Render(s.title))
	}
	for _, node := range s.slot.nodes {
		parts = append(parts, node.View(w))
	}
	body := strings.Join(parts, "\n")
	box := surfaceStyle.Width(w + surfaceStyle.GetHorizontalPadding()).Render(body)
	return strings.Split(box, "\n")
}

// View renders the revealed part of the box. The bottom border stays in
// place as the content slides in.
func (s *Surface) View() string {
	if !s.Visible() {
		return ""
	}
	lines := s.Lines()
	shown := int(math.Ceil(s.progress * float64(len(lines))))
	if shown >= len(lines) {
		return strings.Join(lines, "\n")
	}
	if shown < 1 {
		shown = 1
	}
	out := make([]string, 0, shown)
	out = append(out, lines[:shown-1]...)
	out = append(out, lines[len(lines)-1])
	return strings.Join(out, "\n")
}
