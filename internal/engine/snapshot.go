package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/svcdeck/svcdeck/internal/metrics"
	"github.com/svcdeck/svcdeck/internal/svc"
)

// snapshotParallelism bounds concurrent handle open/refresh calls
// during a full snapshot. The host call is the bottleneck; a small
// fan-out is enough to hide its latency.
const snapshotParallelism = 8

// Reload rebuilds the full table from a fresh enumeration of the
// directory: every identity is opened (or found in the cache) and
// refreshed concurrently, identities that vanished between enumeration
// and open are dropped, and the result replaces the table wholesale,
// sorted by display name with identity as tie-break. The filtered view
// is re-derived from the new table under the same exclusive region.
func (e *Engine) Reload(ctx context.Context) error {
	start := time.Now()
	names, err := e.dir.ListAll(ctx)
	if err != nil {
		return err
	}

	var mu sync.Mutex
	rows := make([]*Record, 0, len(names))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(snapshotParallelism)
	for _, name := range names {
		g.Go(func() error {
			h, found, err := e.lookup(name, true)
			if !found {
				if err != nil {
					e.logger.Debug("open during snapshot failed", "service", name, "error", err)
				}
				return nil
			}
			if err != nil {
				// Keep the row with its last readable state.
				e.logger.Debug("refresh during snapshot failed", "service", name, "error", err)
			}
			rec := &Record{Name: name, Display: h.DisplayName(), State: h.State()}
			mu.Lock()
			rows = append(rows, rec)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Display != rows[j].Display {
			return rows[i].Display < rows[j].Display
		}
		return rows[i].Name < rows[j].Name
	})

	e.mu.Lock()
	e.table = rows
	e.rows = make(map[string]int, len(rows))
	for i, r := range rows {
		e.rows[r.Name] = i
	}
	e.rebuildFilteredLocked()
	e.mu.Unlock()

	metrics.ObserveSnapshot(time.Since(start).Seconds(), len(rows))
	e.emit(Event{Kind: EventTableReload, Row: -1})
	return nil
}

// stateOf reads a record's current state from the full table.
func (e *Engine) stateOf(name string) (svc.State, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	i, ok := e.rows[name]
	if !ok {
		return svc.StateUnknown, false
	}
	return e.table[i].State, true
}
