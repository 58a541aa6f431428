// Package tui provides the BubbleTea-based terminal host for popups: a
// toolbar of anchors whose popups are composited over the view.
package tui

import (
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jmylchreest/popctl/internal/config"
	"github.com/jmylchreest/popctl/internal/content"
	"github.com/jmylchreest/popctl/internal/popup"
)

// toolbarRow is the screen row the anchors are drawn on.
const toolbarRow = 1

// inboxSize bounds how many timer and remote messages can queue up.
const inboxSize = 256

// Options configures a Model.
type Options struct {
	Config   *config.Config
	Logger   *slog.Logger
	Registry *content.Registry
	// Scheduler overrides the loop scheduler. Tests use a manual clock.
	Scheduler popup.Scheduler
	// Inbox receives timer, remote and reload messages. Created if nil.
	Inbox chan tea.Msg

	// OnStateChange is called on the loop whenever a popup changes state.
	OnStateChange func(id string, state popup.State)
	// OnOpened and OnClosed fire when a popup finishes its transition.
	OnOpened func(p config.Popup)
	OnClosed func(p config.Popup)
}

// entry binds one configured popup to its anchor and controller.
type entry struct {
	popup   config.Popup
	ctrl    *popup.Controller
	surface *Surface
	anchor  *Node
	label   *Node
	body    *Node
	last    popup.State
}

// Model is the main TUI model.
type Model struct {
	// Configuration
	cfg    *config.Config
	logger *slog.Logger
	opts   Options

	// Components
	help help.Model
	keys KeyMap

	// Popup plumbing
	inbox    chan tea.Msg
	sched    popup.Scheduler
	registry *content.Registry
	layers   *Layers
	document *Node
	entries  []*entry

	// State
	hovered  int
	focused  int
	showHelp bool
	width    int
	height   int
	status   string
}

// New creates a new TUI model.
func New(opts Options) Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	inbox := opts.Inbox
	if inbox == nil {
		inbox = make(chan tea.Msg, inboxSize)
	}
	var sched popup.Scheduler = NewScheduler(inbox)
	if opts.Scheduler != nil {
		sched = opts.Scheduler
	}
	registry := opts.Registry
	if registry == nil {
		registry = content.NewRegistry()
	}

	m := Model{
		cfg:      cfg,
		logger:   logger,
		opts:     opts,
		help:     help.New(),
		keys:     DefaultKeyMap(),
		inbox:    inbox,
		sched:    sched,
		registry: registry,
		layers:   NewLayers(),
		document: &Node{ID: "document"},
		hovered:  -1,
		focused:  -1,
		showHelp: cfg.TUI.ShowHelp,
	}

	keys := m.keys
	registry.Register("keys", func(popup.Surface) content.Component {
		return content.ComponentFunc(func(width int) string {
			h := help.New()
			h.Width = width
			return h.FullHelpView(keys.FullHelp())
		})
	})

	m.build(cfg)
	return m
}

// build creates anchors and controllers for every configured popup.
func (m *Model) build(cfg *config.Config) {
	m.cfg = cfg
	markdown := make(map[string]bool, len(cfg.Popups))
	for _, p := range cfg.Popups {
		markdown[p.ID] = p.Markdown
	}
	renderer := content.NewRenderer(content.RendererOptions{
		MarkdownStyle: cfg.Theme.MarkdownStyle,
		Markdown:      func(id string) bool { return markdown[id] },
		Logger:        m.logger,
	})
	width := cfg.TUI.Width
	injector := NewInjector(renderer, m.registry, width-surfaceStyle.GetHorizontalFrameSize(), m.logger)

	sched, opts := m.sched, m.opts
	toolbar := NewNode("toolbar", m.document)
	m.entries = make([]*entry, 0, len(cfg.Popups))
	for _, p := range cfg.Popups {
		pc, err := p.PopupConfig()
		if err != nil {
			// Validated configs never get here.
			m.logger.Warn("skipping popup", "popup_id", p.ID, "error", err)
			continue
		}

		e := &entry{popup: p}
		e.anchor = NewNode(p.ID, toolbar)
		e.label = NewNode(p.ID+".label", e.anchor)
		e.body = NewNode(p.ID+".popup", m.document)

		env := popup.Env{
			NewSurface: func() popup.Surface {
				e.surface = NewSurface(sched, SurfaceOptions{
					Title:    p.DisplayLabel(),
					Width:    width,
					Duration: cfg.Animation.Duration.Duration(),
					Frame:    cfg.Animation.Frame.Duration(),
					Position: func() (int, int) {
						return e.anchor.Rect.X, e.anchor.Rect.Y + e.anchor.Rect.H
					},
				})
				return e.surface
			},
			Injector:  injector,
			Attacher:  m.layers,
			Scheduler: sched,
		}
		e.ctrl = popup.New(e.anchor, pc, env, popup.WithID(p.ID), popup.WithLogger(m.logger))

		popupCfg := p
		e.ctrl.OnOpen(func() {
			if opts.OnOpened != nil {
				opts.OnOpened(popupCfg)
			}
		})
		e.ctrl.OnClose(func() {
			if opts.OnClosed != nil {
				opts.OnClosed(popupCfg)
			}
		})
		m.entries = append(m.entries, e)
	}
	m.layoutAnchors()
}

// teardown disposes every controller and forgets their surfaces.
func (m *Model) teardown() {
	for _, e := range m.entries {
		e.ctrl.Dispose()
		m.layers.Remove(e.surface)
		if m.opts.OnStateChange != nil && e.last != popup.StateIdle {
			m.opts.OnStateChange(e.popup.ID, popup.StateIdle)
		}
	}
	m.entries = nil
	m.hovered = -1
	m.focused = -1
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

	anchorStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("7")).
			Background(lipgloss.Color("0"))

	anchorHoverStyle = anchorStyle.
				Underline(true)

	anchorFocusStyle = anchorStyle.
				Bold(true).
				Background(lipgloss.Color("8"))

	anchorOpenStyle = anchorStyle.
			Foreground(lipgloss.Color("10"))
)

// layoutAnchors assigns toolbar rectangles. Each label sits inside its
// anchor's padding so it is a descendant in both the tree and the hit map.
func (m *Model) layoutAnchors() {
	x := 1
	for _, e := range m.entries {
		w := lipgloss.Width(anchorStyle.Render(e.popup.DisplayLabel()))
		e.anchor.Rect = Rect{X: x, Y: toolbarRow, W: w, H: 1}
		e.label.Rect = Rect{X: x + 1, Y: toolbarRow, W: max(0, w-2), H: 1}
		x += w + 1
	}
}

// Init initializes the TUI.
func (m Model) Init() tea.Cmd {
	return waitForMsg(m.inbox)
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		cmd = m.handleKey(msg)

	case tea.MouseMsg:
		m.handleMouse(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case timerMsg:
		msg.timer.fire()
		cmd = waitForMsg(m.inbox)

	case commandMsg:
		msg.reply <- m.command(msg.id, msg.action)
		cmd = waitForMsg(m.inbox)

	case stateMsg:
		msg.reply <- m.query(msg.id)
		cmd = waitForMsg(m.inbox)

	case listMsg:
		msg.reply <- m.cfg.IDs()
		cmd = waitForMsg(m.inbox)

	case reloadMsg:
		m.teardown()
		m.build(msg.cfg)
		m.status = "config reloaded"
		m.logger.Info("config reloaded", "popups", len(m.entries))
		cmd = waitForMsg(m.inbox)
	}

	m.publishStates()
	return m, cmd
}

// handleKey handles key presses.
func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.teardown()
		return tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
	case key.Matches(msg, m.keys.Next):
		if n := len(m.entries); n > 0 {
			m.setFocus((m.focused + 1) % n)
		}
	case key.Matches(msg, m.keys.Prev):
		if n := len(m.entries); n > 0 {
			if m.focused < 0 {
				m.setFocus(n - 1)
			} else {
				m.setFocus((m.focused - 1 + n) % n)
			}
		}
	case key.Matches(msg, m.keys.Activate):
		if m.focused >= 0 {
			m.click(m.entries[m.focused].anchor)
		}
	case key.Matches(msg, m.keys.CloseAll):
		for _, e := range m.entries {
			e.ctrl.Close()
		}
	}
	return nil
}

// handleMouse turns terminal mouse events into anchor and document events.
func (m *Model) handleMouse(msg tea.MouseMsg) {
	switch msg.Action {
	case tea.MouseActionMotion:
		m.setHover(m.anchorIndex(m.hitTest(msg.X, msg.Y)))
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return
		}
		target := m.hitTest(msg.X, msg.Y)
		m.setFocus(m.anchorIndex(target))
		m.click(target)
	}
}

// click delivers a click on target: first to the anchor that contains it,
// then to every popup as a document click.
func (m *Model) click(target *Node) {
	if target == nil {
		target = m.document
	}
	if i := m.anchorIndex(target); i >= 0 {
		m.entries[i].ctrl.Handle(popup.Event{Kind: popup.EventAnchorClick})
	}
	for _, e := range m.entries {
		e.ctrl.Handle(popup.Event{Kind: popup.EventDocumentClick, Target: target})
	}
}

func (m *Model) setHover(i int) {
	if i == m.hovered {
		return
	}
	if m.hovered >= 0 {
		m.entries[m.hovered].ctrl.Handle(popup.Event{Kind: popup.EventPointerLeave})
	}
	m.hovered = i
	if i >= 0 {
		m.entries[i].ctrl.Handle(popup.Event{Kind: popup.EventPointerEnter})
	}
}

func (m *Model) setFocus(i int) {
	if i == m.focused {
		return
	}
	if m.focused >= 0 {
		m.entries[m.focused].ctrl.Handle(popup.Event{Kind: popup.EventFocusOut})
	}
	m.focused = i
	if i >= 0 {
		m.entries[i].ctrl.Handle(popup.Event{Kind: popup.EventFocus})
	}
}

// hitTest returns the topmost node at (x, y). Popups in the body sit above
// the toolbar.
func (m *Model) hitTest(x, y int) *Node {
	var hits hitMap
	for _, e := range m.entries {
		hits.add(e.anchor)
		hits.add(e.label)
	}
	for _, s := range m.layers.Body() {
		e := m.entryFor(s)
		if e == nil {
			continue
		}
		view := s.View()
		if view == "" {
			continue
		}
		px, py := s.Position()
		e.body.Rect = Rect{X: px, Y: py, W: lipgloss.Width(view), H: lipgloss.Height(view)}
		hits.add(e.body)
	}
	return hits.test(x, y)
}

// anchorIndex returns the entry whose anchor contains n, or -1.
func (m *Model) anchorIndex(n *Node) int {
	if n == nil {
		return -1
	}
	for i, e := range m.entries {
		if e.anchor.Contains(n) {
			return i
		}
	}
	return -1
}

func (m *Model) entryFor(s *Surface) *entry {
	for _, e := range m.entries {
		if e.surface == s {
			return e
		}
	}
	return nil
}

func (m *Model) entry(id string) *entry {
	for _, e := range m.entries {
		if e.popup.ID == id {
			return e
		}
	}
	return nil
}

// publishStates reports state changes since the last update.
func (m *Model) publishStates() {
	for _, e := range m.entries {
		state := e.ctrl.State()
		if state == e.last {
			continue
		}
		e.last = state
		if m.opts.OnStateChange != nil {
			m.opts.OnStateChange(e.popup.ID, state)
		}
	}
}

// View renders the toolbar and composites open popups over it.
func (m Model) View() string {
	rows := make([]string, 0, max(m.height, 4))
	title := titleStyle.Render("popctl")
	if m.status != "" {
		title += " " + statusStyle.Render(m.status)
	}
	rows = append(rows, title, m.renderToolbar())

	footer := m.help.ShortHelpView(m.keys.ShortHelp())
	if m.showHelp {
		footer = m.help.FullHelpView(m.keys.FullHelp())
	}
	footerLines := strings.Split(footer, "\n")
	for len(rows) < m.height-len(footerLines) {
		rows = append(rows, "")
	}
	rows = append(rows, footerLines...)

	return m.layers.Render(strings.Join(rows, "\n"))
}

func (m Model) renderToolbar() string {
	var b strings.Builder
	x := 0
	for i, e := range m.entries {
		if pad := e.anchor.Rect.X - x; pad > 0 {
			b.WriteString(strings.Repeat(" ", pad))
			x += pad
		}
		style := anchorStyle
		switch {
		case i == m.focused:
			style = anchorFocusStyle
		case i == m.hovered:
			style = anchorHoverStyle
		}
		if e.ctrl.State().Attached() {
			style = style.Foreground(anchorOpenStyle.GetForeground())
		}
		btn := style.Render(e.popup.DisplayLabel())
		b.WriteString(btn)
		x += lipgloss.Width(btn)
	}
	return b.String()
}
