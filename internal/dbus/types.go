package dbus

import (
	"errors"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/popctl/internal/config"
	"github.com/jmylchreest/popctl/internal/popup"
)

const (
	// BusName is the well-known name claimed by the popup host.
	BusName = "io.github.jmylchreest.popctl"
	// Path is the control object path.
	Path = dbus.ObjectPath("/io/github/jmylchreest/popctl")
	// Interface is the control interface name.
	Interface = "io.github.jmylchreest.popctl1"

	// ErrorUnknownPopup is the D-Bus error name for an unknown popup id.
	ErrorUnknownPopup = Interface + ".Error.UnknownPopup"
	// ErrorFailed is the D-Bus error name for any other failure.
	ErrorFailed = Interface + ".Error.Failed"

	// SignalStateChanged carries (id, state) whenever a popup changes state.
	SignalStateChanged = Interface + ".StateChanged"
)

// Backend is the popup host that the server drives. Implementations must
// be safe for use from the bus goroutine.
type Backend interface {
	Do(id string, action popup.Action) error
	State(id string) (popup.State, time.Time, error)
	List() ([]string, error)
}

// StateChange is a decoded StateChanged signal.
type StateChange struct {
	ID    string
	State popup.State
}

// toDBusError maps backend errors onto named D-Bus errors.
func toDBusError(err error) *dbus.Error {
	if err == nil {
		return nil
	}
	name := ErrorFailed
	if errors.Is(err, config.ErrUnknownPopup) {
		name = ErrorUnknownPopup
	}
	return dbus.NewError(name, []any{err.Error()})
}

// fromDBusError restores sentinel errors from a method call reply.
func fromDBusError(err error) error {
	var derr dbus.Error
	if errors.As(err, &derr) && derr.Name == ErrorUnknownPopup {
		return &remoteError{msg: derr.Error(), sentinel: config.ErrUnknownPopup}
	}
	return err
}

type remoteError struct {
	msg      string
	sentinel error
}

func (e *remoteError) Error() string { return e.msg }
func (e *remoteError) Unwrap() error { return e.sentinel }
