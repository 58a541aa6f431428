package tui

import (
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/jmylchreest/popctl/internal/popup"
)

// Layers is the TUI attacher. Surfaces attached to the application are known
// to it; only surfaces in the body are composited over the base view, in the
// order they were moved there.
type Layers struct {
	app  map[*Surface]bool
	body []*Surface
}

// NewLayers creates an empty layer stack.
func NewLayers() *Layers {
	return &Layers{app: make(map[*Surface]bool)}
}

func asSurface(s popup.Surface) *Surface {
	ts, _ := s.(*Surface)
	return ts
}

// AttachToApplicationRoot implements popup.Attacher.
func (l *Layers) AttachToApplicationRoot(s popup.Surface) {
	if ts := asSurface(s); ts != nil {
		l.app[ts] = true
	}
}

// DetachFromDocument implements popup.Attacher.
func (l *Layers) DetachFromDocument(s popup.Surface) {
	ts := asSurface(s)
	for i, b := range l.body {
		if b == ts {
			l.body = append(l.body[:i], l.body[i+1:]...)
			return
		}
	}
}

// MoveToDocumentBody implements popup.Attacher. Moving a surface that is
// already in the body raises it to the top.
func (l *Layers) MoveToDocumentBody(s popup.Surface) {
	ts := asSurface(s)
	if ts == nil || !l.app[ts] {
		return
	}
	l.DetachFromDocument(s)
	l.body = append(l.body, ts)
}

// Remove forgets a surface entirely.
func (l *Layers) Remove(s *Surface) {
	l.DetachFromDocument(s)
	delete(l.app, s)
}

// InBody reports whether s is in the body.
func (l *Layers) InBody(s *Surface) bool {
	for _, b := range l.body {
		if b == s {
			return true
		}
	}
	return false
}

// Body returns the surfaces in the body, bottom first.
func (l *Layers) Body() []*Surface {
	return l.body
}

// Render draws every visible body surface over base.
func (l *Layers) Render(base string) string {
	lines := strings.Split(base, "\n")
	for _, s := range l.body {
		view := s.View()
		if view == "" {
			continue
		}
		x, y := s.Position()
		lines = overlay(lines, strings.Split(view, "\n"), x, y)
	}
	return strings.Join(lines, "\n")
}

// overlay writes top over base with its top-left cell at (x, y). Styled
// base content left and right of the overlay is preserved.
func overlay(base, top []string, x, y int) []string {
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	for len(base) < y+len(top) {
		base = append(base, "")
	}
	for i, line := range top {
		row := base[y+i]
		w := ansi.StringWidth(line)

		left := ansi.Truncate(row, x, "")
		if pad := x - ansi.StringWidth(left); pad > 0 {
			left += strings.Repeat(" ", pad)
		}
		right := ""
		if ansi.StringWidth(row) > x+w {
			right = ansi.TruncateLeft(row, x+w, "")
		}
		base[y+i] = left + line + right
	}
	return base
}
