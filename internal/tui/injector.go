package tui

import (
	"log/slog"

	"github.com/jmylchreest/popctl/internal/content"
	"github.com/jmylchreest/popctl/internal/popup"
)

// Injector fills TUI slots from templates and registered components.
type Injector struct {
	renderer *content.Renderer
	registry *content.Registry
	width    int
	logger   *slog.Logger
}

// NewInjector creates an injector rendering templates at width columns.
func NewInjector(renderer *content.Renderer, registry *content.Registry, width int, logger *slog.Logger) *Injector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Injector{renderer: renderer, registry: registry, width: width, logger: logger}
}

// Clear implements popup.ContentInjector.
func (i *Injector) Clear(slot popup.Slot) {
	if s, ok := slot.(*Slot); ok {
		s.clear()
	}
}

// InjectTemplate implements popup.ContentInjector. The template is rendered
// once per open so values like {{now}} reflect the moment the popup opened.
func (i *Injector) InjectTemplate(slot popup.Slot, tmpl string, ctx popup.TemplateContext) {
	s, ok := slot.(*Slot)
	if !ok {
		return
	}
	text := i.renderer.Render(tmpl, ctx, i.width)
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
