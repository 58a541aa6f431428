package dbus

import (
	"context"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/popctl/internal/popup"
)

// Client calls a running popup host over the session bus.
type Client struct {
	conn *dbus.Conn
	obj  dbus.BusObject
}

// Connect opens the session bus. It does not check that a host is running.
func Connect() (*Client, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return NewClient(conn), nil
}

// NewClient wraps an existing connection.
func NewClient(conn *dbus.Conn) *Client {
	return &Client{conn: conn, obj: conn.Object(BusName, Path)}
}

func (c *Client) call(ctx context.Context, method string, args ...any) *dbus.Call {
	return c.obj.CallWithContext(ctx, Interface+"."+method, 0, args...)
}

// Do runs an action on the popup with the given id.
func (c *Client) Do(ctx context.Context, id string, action popup.Action) error {
	var method string
	switch action {
	case popup.ActionOpen:
		method = "Open"
	case popup.ActionClose:
		method = "Close"
	case popup.ActionToggle:
		method = "Toggle"
	default:
		return fmt.Errorf("unsupported action %s", action)
	}
	if err := c.call(ctx, method, id).Err; err != nil {
		return fromDBusError(err)
	}
	return nil
}

// State returns the popup's state and when it last changed.
func (c *Client) State(ctx context.Context, id string) (popup.State, time.Time, error) {
	var (
		name string
		ms   int64
	)
	if err := c.call(ctx, "State", id).Store(&name, &ms); err != nil {
		return popup.StateIdle, time.Time{}, fromDBusError(err)
	}
	state, ok := popup.ParseState(name)
	if !ok {
		return popup.StateIdle, time.Time{}, fmt.Errorf("host returned unknown state %q", name)
	}
	if ms == 0 {
		return state, time.Time{}, nil
	}
	return state, time.UnixMilli(ms), nil
}

// List returns the host's popup ids in configuration order.
func (c *Client) List(ctx context.Context) ([]string, error) {
	var ids []string
	if err := c.call(ctx, "List").Store(&ids); err != nil {
		return nil, fromDBusError(err)
	}
	return ids, nil
}

// Watch delivers StateChanged signals until ctx is done.
func (c *Client) Watch(ctx context.Context) (<-chan StateChange, error) {
	opts := []dbus.MatchOption{
		dbus.WithMatchObjectPath(Path),
		dbus.WithMatchInterface(Interface),
		dbus.WithMatchMember("StateChanged"),
	}
	if err := c.conn.AddMatchSignalContext(ctx, opts...); err != nil {
		return nil, fmt.Errorf("failed to add signal match: %w", err)
	}

	raw := make(chan *dbus.Signal, 16)
	c.conn.Signal(raw)

	out := make(chan StateChange, 16)
	go func() {
		defer close(out)
		defer func() {
			c.conn.RemoveSignal(raw)
			_ = c.conn.RemoveMatchSignal(opts...)
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case sig, ok := <-raw:
				if !ok {
					return
				}
				change, ok := decodeStateChanged(sig)
				if !ok {
					continue
				}
				select {
				case out <- change:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func decodeStateChanged(sig *dbus.Signal) (StateChange, bool) {
	if sig.Name != SignalStateChanged || sig.Path != Path || len(sig.Body) != 2 {
		return StateChange{}, false
	}
	id, ok := sig.Body[0].(string)
	if !ok {
		return StateChange{}, false
	}
	name, ok := sig.Body[1].(string)
	if !ok {
		return StateChange{}, false
	}
	state, ok := popup.ParseState(name)
	if !ok {
		return StateChange{}, false
	}
	return StateChange{ID: id, State: state}, true
}
