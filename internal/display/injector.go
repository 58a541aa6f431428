package display

import (
	"log/slog"

	"github.com/jmylchreest/popctl/internal/content"
	"github.com/jmylchreest/popctl/internal/popup"
)

// Injector renders templates and components into GTK labels.
type Injector struct {
	renderer *content.Renderer
	registry *content.Registry
	logger   *slog.Logger
}

// NewInjector creates an injector. The renderer should not emit ANSI
// markdown; labels show plain text.
func NewInjector(renderer *content.Renderer, registry *content.Registry, logger *slog.Logger) *Injector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Injector{renderer: renderer, registry: registry, logger: logger}
}

// Clear implements popup.ContentInjector.
func (i *Injector) Clear(slot popup.Slot) {
	if s, ok := slot.(*Slot); ok {
		s.clear()
	}
}

// InjectTemplate implements popup.ContentInjector.
func (i *Injector) InjectTemplate(slot popup.Slot, tmpl string, ctx popup.TemplateContext) {
	s, ok := slot.(*Slot)
	if !ok {
		return
	}
	text := i.renderer.Render(tmpl, ctx, s.width)
	s.append(content.ComponentFunc(func(int) string { return text }))
}

// InjectComponent implements popup.ContentInjector.
func (i *Injector) InjectComponent(slot popup.Slot, name string, target popup.Surface) {
	s, ok := slot.(*Slot)
	if !ok {
		return
	}
	c, ok := i.registry.Build(name, target)
	if !ok {
		i.logger.Warn("unknown popup component", "component", name)
		return
	}
	s.append(c)
}
