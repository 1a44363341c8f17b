package svc

import "encoding/json"

// State is the lifecycle state of a host service as last observed.
type State int

const (
	StateUnknown State = iota
	StateNotFound
	StateStopped
	StateStartPending
	StateStopPending
	StateRunning
	StateContinuePending
	StatePausePending
	StatePaused
)

var stateNames = map[State]string{
	StateUnknown:         "unknown",
	StateNotFound:        "not-found",
	StateStopped:         "stopped",
	StateStartPending:    "start-pending",
	StateStopPending:     "stop-pending",
	StateRunning:         "running",
	StateContinuePending: "continue-pending",
	StatePausePending:    "pause-pending",
	StatePaused:          "paused",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}

// Pending reports whether the state is a mid-transition value that is
// expected to settle into Running, Stopped or Paused.
func (s State) Pending() bool {
	switch s {
	case StateStartPending, StateStopPending, StateContinuePending, StatePausePending:
		return true
	}
	return false
}

// MarshalJSON encodes the state as its textual name.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *State) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	*s = ParseState(name)
	return nil
}

// ParseState maps a textual state back to a State. Unrecognized input
// yields StateUnknown.
func ParseState(s string) State {
	for st, n := range stateNames {
		if n == s {
			return st
		}
	}
	return StateUnknown
}
