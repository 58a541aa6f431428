// Package content turns popup content descriptors into text: templates are
// rendered with text/template (optionally through glamour for markdown) and
// components are looked up in a Registry.
package content

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/popctl/internal/popup"
)

// RendererOptions configures a Renderer.
type RendererOptions struct {
	// MarkdownStyle is a glamour standard style name ("dark", "light", "notty", ...).
	MarkdownStyle string
	// Markdown reports whether the popup with the given id renders markdown.
	Markdown func(id string) bool
	Logger   *slog.Logger
	// Now overrides the clock used by the now and ago funcs.
	Now func() time.Time
}

// Renderer renders template descriptors.
type Renderer struct {
	style    string
	markdown func(id string) bool
	logger   *slog.Logger
	now      func() time.Time

	mu        sync.Mutex
	templates map[string]*template.Template
	glamours  map[int]*glamour.TermRenderer
}

// NewRenderer creates a renderer.
func NewRenderer(opts RendererOptions) *Renderer {
	r := &Renderer{
		style:     opts.MarkdownStyle,
		markdown:  opts.Markdown,
		logger:    opts.Logger,
		now:       opts.Now,
		templates: make(map[string]*template.Template),
		glamours:  make(map[int]*glamour.TermRenderer),
	}
	if r.style == "" {
		r.style = "dark"
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

func (r *Renderer) funcs() template.FuncMap {
	return template.FuncMap{
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
		"now":   r.now,
		"ago": func(t time.Time) string {
			return humanize.RelTime(t, r.now(), "ago", "from now")
		},
	}
}

// Render renders tmpl against ctx and wraps it to width columns. Errors are
// returned inline so a broken template still produces a visible popup.
func (r *Renderer) Render(tmpl string, ctx popup.TemplateContext, width int) string {
	out, err := r.render(tmpl, ctx, width)
	if err != nil {
		r.logger.Warn("failed to render popup content", "popup_id", ctx.ID, "error", err)
		return fmt.Sprintf("render error: %v", err)
	}
	return out
}

func (r *Renderer) render(tmpl string, ctx popup.TemplateContext, width int) (string, error) {
	t, err := r.parse(tmpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, ctx); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	if r.markdown == nil || !r.markdown(ctx.ID) {
		return buf.String(), nil
	}

	md, err := r.markdownRenderer(width)
	if err != nil {
		return "", err
	}
	out, err := md.Render(buf.String())
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return strings.Trim(out, "\n"), nil
}

func (r *Renderer) parse(tmpl string) (*template.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.templates[tmpl]; ok {
		return t, nil
	}
	t, err := template.New("popup").Funcs(r.funcs()).Parse(tmpl)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	r.templates[tmpl] = t
	return t, nil
}

func (r *Renderer) markdownRenderer(width int) (*glamour.TermRenderer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if md, ok := r.glamours[width]; ok {
		return md, nil
	}
	md, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(r.style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	r.glamours[width] = md
	return md, nil
}
