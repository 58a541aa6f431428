package content

import (
	"sort"
	"sync"
	"time"

	"github.com/jmylchreest/popctl/internal/popup"
)

// Component is an instantiated popup component.
type Component interface {
	// View renders the component at the given width in columns.
	View(width int) string
}

// Factory creates a component for the surface it will live in.
type Factory func(target popup.Surface) Component

// ComponentFunc adapts a function to Component.
type ComponentFunc func(width int) string

// View implements Component.
func (f ComponentFunc) View(width int) string { return f(width) }

// Registry maps component names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns a registry holding the built-in components.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register("clock", func(popup.Surface) Component { return Clock{Now: time.Now} })
	return r
}

// Register adds or replaces a factory.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Build instantiates the named component.
func (r *Registry) Build(name string, target popup.Surface) (Component, bool) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return f(target), true
}

// Names returns the registered component names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clock shows the local time.
type Clock struct {
	Now func() time.Time
}

// View implements Component.
func (c Clock) View(int) string {
	now := c.Now()
	return now.Format("Mon 2 Jan") + "\n" + now.Format("15:04:05")
}
