package engine

import "github.com/svcdeck/svcdeck/internal/svc"

// EventKind discriminates engine events.
type EventKind int

const (
	// EventRowUpdate reports a single row's state write.
	EventRowUpdate EventKind = iota
	// EventTableReload reports a wholesale table or view rebuild.
	EventTableReload
	// EventNotice carries a user-visible notification (control-call
	// failure or transition timeout).
	EventNotice
)

// Event is the engine-to-surface message. Workers never touch the
// rendering surface; they publish here and the single consumer reads
// current state back through the Engine's accessors.
type Event struct {
	Kind      EventKind
	Name      string
	State     svc.State
	Tentative bool
	// Row is the filtered-view position of the updated row, or -1 when
	// the row is not currently visible. Valid only until the next
	// rebuild.
	Row      int
	Selected bool
	Notice   string
}

// Events returns the channel the surface consumes. Events may be
// dropped under backpressure; consumers should re-read engine state on
// every event rather than replaying event contents.
func (e *Engine) Events() <-chan Event {
	return e.events
}

func (e *Engine) emit(ev Event) {
	select {
	case e.events <- ev:
	default:
		e.logger.Debug("event dropped", "kind", ev.Kind, "service", ev.Name)
	}
}

// notify publishes a user-visible notice and logs it.
func (e *Engine) notify(msg string) {
	e.logger.Warn(msg)
	e.emit(Event{Kind: EventNotice, Row: -1, Notice: msg})
}
