package engine

import (
	"sync"
	"time"

	"github.com/svcdeck/svcdeck/internal/metrics"
	"github.com/svcdeck/svcdeck/internal/svc"
)

// StartRefresher begins the background loop that re-polls every known
// service once per refresh interval and writes settled observations
// through the same row-update path as drive polling. A tick is skipped
// entirely while the user is actively typing in the filter (the
// deadline pushed by SetQuery has not passed). Only one loop runs at a
// time; starting stops any existing loop first.
func (e *Engine) StartRefresher() {
	e.StopRefresher()
	e.refreshMu.Lock()
	stop := make(chan struct{})
	e.refreshStop = stop
	e.refreshMu.Unlock()
	go func() {
		t := time.NewTicker(e.refreshEvery)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				if e.typingActive() {
					continue
				}
				e.refreshAll(stop)
			case <-stop:
				return
			}
		}
	}()
}

// StopRefresher stops the background loop if running. Idempotent; safe
// to call from teardown or before a subsequent StartRefresher.
func (e *Engine) StopRefresher() {
	e.refreshMu.Lock()
	ch := e.refreshStop
	e.refreshStop = nil
	e.refreshMu.Unlock()
	if ch != nil {
		close(ch)
	}
}

func (e *Engine) typingActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return time.Now().Before(e.typingUntil)
}

// refreshAll re-polls all known identities concurrently. A failure
// refreshing one service is logged and never aborts the sweep or
// affects siblings; a vanished service settles its row to not-found.
// Cancellation is checked between per-service launches.
func (e *Engine) refreshAll(stop <-chan struct{}) {
	e.mu.Lock()
	names := make([]string, 0, len(e.table))
	for _, rec := range e.table {
		names = append(names, rec.Name)
	}
	e.mu.Unlock()

	var wg sync.WaitGroup
	for _, name := range names {
		select {
		case <-stop:
			wg.Wait()
			return
		default:
		}
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			h, found, err := e.lookup(name, true)
			if err != nil {
				e.logger.Warn("background refresh failed", "service", name, "error", err)
				return
			}
			if !found {
				e.updateRow(name, svc.StateNotFound, false)
				return
			}
			e.updateRow(name, h.State(), false)
		}(name)
	}
	wg.Wait()
	metrics.IncRefreshSweep()
}
