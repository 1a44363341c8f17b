package engine

import (
	"fmt"
	"time"

	"github.com/svcdeck/svcdeck/internal/history"
	"github.com/svcdeck/svcdeck/internal/metrics"
	"github.com/svcdeck/svcdeck/internal/svc"
)

// Outcome is the terminal result of a drive operation.
type Outcome int

const (
	// OutcomeReached: the target state was observed within the bound.
	OutcomeReached Outcome = iota
	// OutcomeTimedOut: the poll bound was exhausted first.
	OutcomeTimedOut
	// OutcomeFailed: the control request itself failed.
	OutcomeFailed
	// OutcomeVanished: the service disappeared before or during the
	// drive. Not a fault; the row settles to not-found.
	OutcomeVanished
)

func (o Outcome) String() string {
	switch o {
	case OutcomeReached:
		return "reached"
	case OutcomeTimedOut:
		return "timeout"
	case OutcomeFailed:
		return "failed"
	case OutcomeVanished:
		return "vanished"
	}
	return "unknown"
}

// Drive issues the requested action against one service and polls its
// state until the action's target is observed or the iteration bound is
// exhausted. It blocks for up to bound*interval and must run on its own
// worker goroutine, never on the rendering surface. A drive is not
// cancellable once started; it runs to a terminal outcome.
//
// Restart is not a primitive: unless the service is already stopped it
// is composed as stop-to-Stopped (intermediate) followed by
// start-to-Running (final).
func (e *Engine) Drive(name string, action Action) Outcome {
	switch action {
	case ActionStart:
		return e.drive(name, action, svc.Handle.Start, svc.StateRunning, true)
	case ActionStop:
		return e.drive(name, action, svc.Handle.Stop, svc.StateStopped, true)
	case ActionRestart:
		if st, ok := e.stateOf(name); !ok || st != svc.StateStopped {
			if out := e.drive(name, ActionStop, svc.Handle.Stop, svc.StateStopped, false); out != OutcomeReached {
				return out
			}
		}
		return e.drive(name, ActionStart, svc.Handle.Start, svc.StateRunning, true)
	case ActionUninstall:
		return e.uninstall(name)
	}
	return OutcomeFailed
}

// drive is one leg of a drive operation: issue the non-blocking control
// request, then poll at the fixed interval. Every observation short of
// the target is written back tentatively; the terminal observation is
// written settled. Reaching the target on a non-final leg (restart's
// stop) stays tentative because the composite operation continues.
func (e *Engine) drive(name string, action Action, issue func(svc.Handle) error, target svc.State, final bool) Outcome {
	h, found, err := e.lookup(name, false)
	if !found {
		if err != nil {
			e.logger.Debug("drive lookup failed", "service", name, "error", err)
		}
		return OutcomeVanished
	}
	display := h.DisplayName()
	verb := action.String()
	metrics.IncDriveStarted(verb)

	if err := issue(h); err != nil {
		e.notify(fmt.Sprintf("%s: %s request failed: %v", display, verb, err))
		// One settled re-read so the row reflects reality even after
		// the failed attempt.
		if h2, ok, _ := e.lookup(name, true); ok {
			e.updateRow(name, h2.State(), false)
		}
		metrics.IncDriveFailure(verb)
		e.record(verb, name, display, target, h.State(), history.OutcomeFailed)
		return OutcomeFailed
	}

	last := svc.StateUnknown
	for i := 0; i < e.pollBound; i++ {
		h2, found, err := e.lookup(name, true)
		if !found {
			e.updateRow(name, svc.StateNotFound, false)
			e.record(verb, name, display, target, svc.StateNotFound, history.OutcomeVanished)
			return OutcomeVanished
		}
		if err != nil {
			e.logger.Debug("poll refresh failed", "service", name, "error", err)
		}
		st := h2.State()
		last = st
		if st == target {
			e.updateRow(name, st, !final)
			metrics.IncDriveReached(verb)
			if final {
				e.record(verb, name, display, target, st, history.OutcomeReached)
			}
			return OutcomeReached
		}
		e.updateRow(name, st, true)
		time.Sleep(e.pollInterval)
	}

	e.updateRow(name, last, false)
	e.notify(fmt.Sprintf("%s did not respond: still %s after %s", display, last, time.Duration(e.pollBound)*e.pollInterval))
	metrics.IncDriveTimeout(verb)
	e.record(verb, name, display, target, last, history.OutcomeTimedOut)
	return OutcomeTimedOut
}

// uninstall requests removal and polls until the host reports the
// service gone. The row settles to not-found; the next full reload
// drops it from the table.
func (e *Engine) uninstall(name string) Outcome {
	h, found, err := e.lookup(name, false)
	if !found {
		if err != nil {
			e.logger.Debug("drive lookup failed", "service", name, "error", err)
		}
		return OutcomeVanished
	}
	display := h.DisplayName()
	metrics.IncDriveStarted("uninstall")

	if err := h.Uninstall(); err != nil {
		e.notify(fmt.Sprintf("%s: uninstall request failed: %v", display, err))
		if h2, ok, _ := e.lookup(name, true); ok {
			e.updateRow(name, h2.State(), false)
		}
		metrics.IncDriveFailure("uninstall")
		e.record("uninstall", name, display, svc.StateNotFound, h.State(), history.OutcomeFailed)
		return OutcomeFailed
	}

	last := h.State()
	for i := 0; i < e.pollBound; i++ {
		h2, found, err := e.lookup(name, true)
		if !found {
			e.updateRow(name, svc.StateNotFound, false)
			metrics.IncDriveReached("uninstall")
			e.record("uninstall", name, display, svc.StateNotFound, svc.StateNotFound, history.OutcomeReached)
			return OutcomeReached
		}
		if err != nil {
			e.logger.Debug("poll refresh failed", "service", name, "error", err)
		}
		last = h2.State()
		e.updateRow(name, last, true)
		time.Sleep(e.pollInterval)
	}

	e.updateRow(name, last, false)
	e.notify(fmt.Sprintf("%s did not respond: still %s after %s", display, last, time.Duration(e.pollBound)*e.pollInterval))
	metrics.IncDriveTimeout("uninstall")
	e.record("uninstall", name, display, svc.StateNotFound, last, history.OutcomeTimedOut)
	return OutcomeTimedOut
}

// BatchDrive launches one drive worker per eligible row of the current
// filtered view and returns how many were launched. It refuses to act
// on an unfiltered view (empty query). Per-service no-op skips: start
// skips rows already running or start-pending, stop skips rows already
// stopped, restart applies to every row. Only start, stop and restart
// are valid in batch.
func (e *Engine) BatchDrive(action Action) int {
	if action != ActionStart && action != ActionStop && action != ActionRestart {
		return 0
	}
	type target struct {
		name  string
		state svc.State
	}
	e.mu.Lock()
	if len(queryTokens(e.query)) == 0 {
		e.mu.Unlock()
		return 0
	}
	targets := make([]target, 0, len(e.filtered))
	for _, rec := range e.filtered {
		targets = append(targets, target{rec.Name, rec.State})
	}
	e.mu.Unlock()

	n := 0
	for _, t := range targets {
		switch action {
		case ActionStart:
			if t.state == svc.StateRunning || t.state == svc.StateStartPending {
				continue
			}
		case ActionStop:
			if t.state == svc.StateStopped {
				continue
			}
		}
		go e.Drive(t.name, action)
		n++
	}
	return n
}
