package engine

import "github.com/svcdeck/svcdeck/internal/svc"

// Action is a user-triggerable control operation.
type Action uint8

const (
	ActionStart Action = 1 << iota
	ActionStop
	ActionRestart
	ActionUninstall
)

func (a Action) String() string {
	switch a {
	case ActionStart:
		return "start"
	case ActionStop:
		return "stop"
	case ActionRestart:
		return "restart"
	case ActionUninstall:
		return "uninstall"
	}
	return "unknown"
}

// ParseAction maps an action name to its Action; ok is false for
// unrecognized input.
func ParseAction(s string) (Action, bool) {
	switch s {
	case "start":
		return ActionStart, true
	case "stop":
		return ActionStop, true
	case "restart":
		return ActionRestart, true
	case "uninstall":
		return ActionUninstall, true
	}
	return 0, false
}

// Actions is a set of Action values.
type Actions uint8

func (a Actions) Has(act Action) bool { return Actions(act)&a != 0 }

// List returns the contained actions in display order.
func (a Actions) List() []Action {
	out := make([]Action, 0, 4)
	for _, act := range []Action{ActionStart, ActionStop, ActionRestart, ActionUninstall} {
		if a.Has(act) {
			out = append(out, act)
		}
	}
	return out
}

// ActionsFor derives the valid controls for a service in the given
// state. Uninstall is always offered; start only from Stopped, stop and
// restart only from Running. Pending and unknown states leave only
// uninstall until the next settled observation.
func ActionsFor(st svc.State) Actions {
	switch st {
	case svc.StateStopped:
		return Actions(ActionStart | ActionUninstall)
	case svc.StateRunning:
		return Actions(ActionStop | ActionRestart | ActionUninstall)
	default:
		return Actions(ActionUninstall)
	}
}
