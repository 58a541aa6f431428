package popup

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTrigger is returned when a trigger name is not recognised.
var ErrInvalidTrigger = errors.New("invalid trigger")

// Trigger is the interaction mode that decides which UI events open or
// close a popup.
type Trigger int

const (
	TriggerNone Trigger = iota
	TriggerHover
	TriggerClick
	TriggerOutsideClick
	TriggerFocus
)

var triggerNames = map[Trigger]string{
	TriggerNone:         "none",
	TriggerHover:        "hover",
	TriggerClick:        "click",
	TriggerOutsideClick: "outside-click",
	TriggerFocus:        "focus",
}

// ValidTriggers returns all trigger values in declaration order.
func ValidTriggers() []Trigger {
	return []Trigger{TriggerNone, TriggerHover, TriggerClick, TriggerOutsideClick, TriggerFocus}
}

// String returns the config-file name of the trigger.
func (t Trigger) String() string {
	if name, ok := triggerNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Trigger(%d)", int(t))
}

// ParseTrigger converts a config-file name into a Trigger.
// The empty string is accepted as TriggerNone.
func ParseTrigger(s string) (Trigger, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return TriggerNone, nil
	}
	// Accept "outside_click" and "outsideclick" as well.
	switch s {
	case "outside_click", "outsideclick":
		return TriggerOutsideClick, nil
	}
	for t, name := range triggerNames {
		if name == s {
			return t, nil
		}
	}
	return TriggerNone, fmt.Errorf("%w %q, must be one of: %v", ErrInvalidTrigger, s, ValidTriggers())
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Trigger) UnmarshalText(text []byte) error {
	parsed, err := ParseTrigger(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (t Trigger) MarshalText() ([]byte, error) {
	if _, ok := triggerNames[t]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTrigger, int(t))
	}
	return []byte(t.String()), nil
}
