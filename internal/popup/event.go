package popup

import "fmt"

// EventKind identifies a raw UI event delivered to a controller.
type EventKind int

const (
	// EventPointerEnter is the pointer entering the anchor.
	EventPointerEnter EventKind = iota
	// EventPointerLeave is the pointer leaving the anchor.
	EventPointerLeave
	// EventAnchorClick is a click on the anchor itself.
	EventAnchorClick
	// EventDocumentClick is a click anywhere in the document.
	EventDocumentClick
	// EventFocus is the anchor gaining focus.
	EventFocus
	// EventFocusOut is the anchor losing focus.
	EventFocusOut
)

func (k EventKind) String() string {
	switch k {
	case EventPointerEnter:
		return "pointer-enter"
	case EventPointerLeave:
		return "pointer-leave"
	case EventAnchorClick:
		return "anchor-click"
	case EventDocumentClick:
		return "document-click"
	case EventFocus:
		return "focus"
	case EventFocusOut:
		return "focus-out"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is a UI event. Target is the node that received a document click
// and is only consulted for EventDocumentClick.
type Event struct {
	Kind   EventKind
	Target any
}

// Action is what a controller does in response to an event.
type Action int

const (
	ActionNone Action = iota
	ActionOpen
	ActionClose
	ActionToggle
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionOpen:
		return "open"
	case ActionClose:
		return "close"
	case ActionToggle:
		return "toggle"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// ParseAction converts "open", "close" or "toggle" into an Action.
func ParseAction(s string) (Action, bool) {
	switch s {
	case "open":
		return ActionOpen, true
	case "close":
		return ActionClose, true
	case "toggle":
		return ActionToggle, true
	default:
		return ActionNone, false
	}
}

// Resolve maps an event to an action for the given trigger. It does not look
// at the controller state: surfaceExists gates document clicks and
// targetInAnchor reports whether a document click landed inside the anchor.
func Resolve(kind EventKind, trigger Trigger, surfaceExists, targetInAnchor bool) Action {
	switch kind {
	case EventPointerEnter:
		if trigger == TriggerHover {
			return ActionOpen
		}
	case EventPointerLeave:
		if trigger == TriggerHover {
			return ActionClose
		}
	case EventAnchorClick:
		// Repeated clicks toggle rather than re-open.
		if trigger == TriggerClick || trigger == TriggerOutsideClick {
			return ActionToggle
		}
	case EventDocumentClick:
		if trigger == TriggerOutsideClick && surfaceExists && !targetInAnchor {
			return ActionClose
		}
	case EventFocus:
		if trigger == TriggerFocus {
			return ActionOpen
		}
	case EventFocusOut:
		if trigger == TriggerFocus {
			return ActionClose
		}
	}
	return ActionNone
}
