package dbus

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/jmylchreest/popctl/internal/popup"
)

// ControlServer exports a Backend on the session bus.
type ControlServer struct {
	backend Backend
	logger  *slog.Logger

	mu      sync.Mutex
	conn    *dbus.Conn
	running bool
}

// NewControlServer creates a server for backend.
func NewControlServer(backend Backend, logger *slog.Logger) *ControlServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ControlServer{backend: backend, logger: logger}
}

// Start connects to the session bus and claims BusName.
func (s *ControlServer) Start() error {
	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return s.StartOn(conn)
}

// StartOn exports the server on an existing connection.
func (s *ControlServer) StartOn(conn *dbus.Conn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("server already running")
	}

	if err := conn.ExportMethodTable(s.methods(), Path, Interface); err != nil {
		return fmt.Errorf("failed to export object: %w", err)
	}

	node := &introspect.Node{
		Name: string(Path),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    Interface,
				Methods: controlMethods(),
				Signals: controlSignals(),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), Path,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	reply, err := conn.RequestName(BusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken", BusName)
	}

	s.conn = conn
	s.running = true
	s.logger.Info("D-Bus control server started", "interface", Interface, "path", Path)
	return nil
}

// Stop releases the bus name. The shared session connection stays open.
func (s *ControlServer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false

	if _, err := s.conn.ReleaseName(BusName); err != nil {
		s.logger.Warn("failed to release bus name", "error", err)
	}
	_ = s.conn.Export(nil, Path, Interface)
	s.logger.Info("D-Bus control server stopped")
	return nil
}

// methods is the exported method table. A table keeps the Go method set
// free of D-Bus-only names like Close.
func (s *ControlServer) methods() map[string]any {
	return map[string]any{
		"Open":   func(id string) *dbus.Error { return s.do(id, popup.ActionOpen) },
		"Close":  func(id string) *dbus.Error { return s.do(id, popup.ActionClose) },
		"Toggle": func(id string) *dbus.Error { return s.do(id, popup.ActionToggle) },
		"State":  s.State,
		"List":   s.List,
	}
}

func (s *ControlServer) do(id string, action popup.Action) *dbus.Error {
	s.logger.Debug("control call", "method", action, "popup_id", id)
	return toDBusError(s.backend.Do(id, action))
}

// State returns the popup's state name and the unix time in milliseconds
// of its last change, or 0 if it never changed.
// D-Bus method: State(s) -> (s, x)
func (s *ControlServer) State(id string) (string, int64, *dbus.Error) {
	state, changed, err := s.backend.State(id)
	if err != nil {
		return "", 0, toDBusError(err)
	}
	if changed.IsZero() {
		return state.String(), 0, nil
	}
	return state.String(), changed.UnixMilli(), nil
}

// List returns the configured popup ids.
// D-Bus method: List() -> as
func (s *ControlServer) List() ([]string, *dbus.Error) {
	ids, err := s.backend.List()
	if err != nil {
		return nil, toDBusError(err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// EmitStateChanged broadcasts a StateChanged signal. It is a no-op before
// Start.
func (s *ControlServer) EmitStateChanged(id string, state popup.State) error {
	s.mu.Lock()
	conn, running := s.conn, s.running
	s.mu.Unlock()
	if !running {
		return nil
	}
	if err := conn.Emit(Path, SignalStateChanged, id, state.String()); err != nil {
		return fmt.Errorf("failed to emit StateChanged signal: %w", err)
	}
	return nil
}

func controlMethods() []introspect.Method {
	idArg := introspect.Arg{Name: "id", Type: "s", Direction: "in"}
	return []introspect.Method{
		{Name: "Open", Args: []introspect.Arg{idArg}},
		{Name: "Close", Args: []introspect.Arg{idArg}},
		{Name: "Toggle", Args: []introspect.Arg{idArg}},
		{
			Name: "State",
			Args: []introspect.Arg{
				idArg,
				{Name: "state", Type: "s", Direction: "out"},
				{Name: "changed_ms", Type: "x", Direction: "out"},
			},
		},
		{
			Name: "List",
			Args: []introspect.Arg{
				{Name: "ids", Type: "as", Direction: "out"},
			},
		},
	}
}

func controlSignals() []introspect.Signal {
	return []introspect.Signal{
		{
			Name: "StateChanged",
			Args: []introspect.Arg{
				{Name: "id", Type: "s"},
				{Name: "state", Type: "s"},
			},
		},
	}
}
