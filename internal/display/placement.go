package display

import (
	"log/slog"
	"unsafe"

	layershell "github.com/diamondburned/gotk4-layer-shell/pkg/gtk4layershell"
	coreglib "github.com/diamondburned/gotk4/pkg/core/glib"
	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/popctl/internal/config"
)

// Placement positions the bar and popup windows with layer-shell.
type Placement struct {
	config  config.DisplayConfig
	display *gdk.Display
	logger  *slog.Logger
}

// NewPlacement creates a placement for the default display.
func NewPlacement(cfg config.DisplayConfig, logger *slog.Logger) *Placement {
	if logger == nil {
		logger = slog.Default()
	}
	return &Placement{config: cfg, display: gdk.DisplayGetDefault(), logger: logger}
}

func (p *Placement) bottom() bool { return p.config.BarPosition == "bottom" }

// edge is the screen edge the bar is attached to.
func (p *Placement) edge() layershell.LayerShellEdge {
	if p.bottom() {
		return layershell.LayerShellEdgeBottom
	}
	return layershell.LayerShellEdgeTop
}

// initLayer turns window into a top-layer surface that never takes space.
func (p *Placement) initLayer(window *gtk.Window, namespace string) {
	layershell.InitForWindow(window)
	layershell.SetLayer(window, layershell.LayerShellLayerTop)
	layershell.SetNamespace(window, namespace)
	if m := p.monitor(); m != nil {
		layershell.SetMonitor(window, m)
	}
}

// PlaceBar stretches the bar across its edge and reserves its height.
func (p *Placement) PlaceBar(window *gtk.Window) {
	p.initLayer(window, "popctl-bar")
	layershell.SetKeyboardMode(window, layershell.LayerShellKeyboardModeOnDemand)
	layershell.SetAnchor(window, p.edge(), true)
	layershell.SetAnchor(window, layershell.LayerShellEdgeLeft, true)
	layershell.SetAnchor(window, layershell.LayerShellEdgeRight, true)
	layershell.AutoExclusiveZoneEnable(window)
}

// PlacePopup prepares a popup window. Its horizontal position is set by
// MovePopup each time it opens.
func (p *Placement) PlacePopup(window *gtk.Window) {
	p.initLayer(window, "popctl-popup")
	layershell.SetExclusiveZone(window, 0)
	layershell.SetKeyboardMode(window, layershell.LayerShellKeyboardModeNone)
	layershell.SetAnchor(window, p.edge(), true)
	layershell.SetAnchor(window, layershell.LayerShellEdgeLeft, true)
}

// MovePopup puts the popup x pixels from the left, just past the bar.
// Layer-shell margins are measured from the exclusive zone, so only the
// configured gap is added.
func (p *Placement) MovePopup(window *gtk.Window, x int) {
	layershell.SetMargin(window, layershell.LayerShellEdgeLeft, max(x, 0))
	layershell.SetMargin(window, p.edge(), p.config.OffsetY)
}

// monitor returns the configured monitor (1-indexed), the first one if the
// index is out of range, or nil for the compositor's choice.
func (p *Placement) monitor() *gdk.Monitor {
	if p.display == nil || p.config.Monitor == 0 {
		return nil
	}
	monitors := p.display.Monitors()
	if monitors == nil || monitors.NItems() == 0 {
		return nil
	}

	index := uint(p.config.Monitor - 1)
	if index >= monitors.NItems() {
		p.logger.Warn("configured monitor not available, using first",
			"configured", p.config.Monitor,
			"available", monitors.NItems(),
		)
		index = 0
	}
	return wrapMonitor(monitors.Item(index))
}

// wrapMonitor converts a list item to a gdk.Monitor. gotk4 does not export
// its own wrapper, but gdk.Monitor only embeds the object pointer.
func wrapMonitor(obj *coreglib.Object) *gdk.Monitor {
	if obj == nil {
		return nil
	}
	type monitor struct {
		_ [0]func()
		*coreglib.Object
	}
	return (*gdk.Monitor)(unsafe.Pointer(&monitor{Object: obj}))
}
