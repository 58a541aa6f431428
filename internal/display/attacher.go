package display

import (
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/popctl/internal/popup"
)

// Attacher maps the attach checkpoints onto GTK windows: the application
// root is the gtk.Application, the document body is the set of visible
// windows.
type Attacher struct {
	app *gtk.Application
}

// NewAttacher creates an attacher for app.
func NewAttacher(app *gtk.Application) *Attacher {
	return &Attacher{app: app}
}

// AttachToApplicationRoot implements popup.Attacher.
func (a *Attacher) AttachToApplicationRoot(s popup.Surface) {
	if w := window(s); w != nil {
		w.SetApplication(a.app)
		w.SetVisible(false)
	}
}

// DetachFromDocument implements popup.Attacher.
func (a *Attacher) DetachFromDocument(s popup.Surface) {
	if w := window(s); w != nil {
		w.SetVisible(false)
	}
}

// MoveToDocumentBody implements popup.Attacher.
func (a *Attacher) MoveToDocumentBody(s popup.Surface) {
	if w := window(s); w != nil {
		w.Present()
	}
}

func window(s popup.Surface) *gtk.Window {
	if gs, ok := s.(*Surface); ok {
		return gs.window
	}
	return nil
}
