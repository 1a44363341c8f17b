// Package engine implements the service monitoring and control core: a
// concurrently built full snapshot table, a filtered view derived from a
// free-text query, bounded transition polling that drives services
// toward a target state, and a debounced background refresher. All
// visible state is owned by one Engine instance; workers marshal their
// results to the single consumer through the Events channel.
package engine

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/svcdeck/svcdeck/internal/history"
	"github.com/svcdeck/svcdeck/internal/svc"
)

const (
	defaultPollInterval = 100 * time.Millisecond
	defaultPollBound    = 120
	defaultRefreshEvery = 5 * time.Second
)

// Record is one row of the snapshot table. State and Tentative are
// mutated in place by pollers; everything else is fixed at snapshot
// time. Seq increments on every state write so concurrent writers are
// observable in tests.
type Record struct {
	Name      string    `json:"name"`
	Display   string    `json:"display"`
	State     svc.State `json:"state"`
	Tentative bool      `json:"tentative"`
	Seq       uint64    `json:"-"`
}

// Engine owns the full table, the filtered view and their row-index
// maps, plus the process-lifetime handle cache. A single mutex guards
// the table/view/maps triple; it is never held across a host call.
type Engine struct {
	dir    svc.Directory
	logger *slog.Logger

	pollInterval time.Duration
	pollBound    int
	refreshEvery time.Duration

	mu           sync.Mutex
	table        []*Record
	filtered     []*Record
	rows         map[string]int
	filteredRows map[string]int
	query        string
	selected     int
	typingUntil  time.Time

	cacheMu sync.Mutex
	handles map[string]svc.Handle

	histMu sync.Mutex
	sink   history.Sink

	refreshMu   sync.Mutex
	refreshStop chan struct{}

	events chan Event
}

// New builds an Engine over the given service directory. All state is
// instance-owned; independent engines never share caches or tables.
func New(dir svc.Directory) *Engine {
	return &Engine{
		dir:          dir,
		logger:       slog.Default(),
		pollInterval: defaultPollInterval,
		pollBound:    defaultPollBound,
		refreshEvery: defaultRefreshEvery,
		rows:         make(map[string]int),
		filteredRows: make(map[string]int),
		selected:     -1,
		handles:      make(map[string]svc.Handle),
		events:       make(chan Event, 256),
	}
}

// SetLogger replaces the engine's logger. Must be called before Reload.
func (e *Engine) SetLogger(l *slog.Logger) {
	if l != nil {
		e.logger = l
	}
}

// SetHistorySink configures an audit sink for drive outcomes. Passing
// nil clears it.
func (e *Engine) SetHistorySink(s history.Sink) {
	e.histMu.Lock()
	e.sink = s
	e.histMu.Unlock()
}

// SetPollParams overrides the transition poll interval and iteration
// bound. Non-positive values keep the current setting.
func (e *Engine) SetPollParams(interval time.Duration, bound int) {
	if interval > 0 {
		e.pollInterval = interval
	}
	if bound > 0 {
		e.pollBound = bound
	}
}

// SetRefreshInterval overrides the background refresher period.
func (e *Engine) SetRefreshInterval(d time.Duration) {
	if d > 0 {
		e.refreshEvery = d
	}
}

// Rows returns a copy of the filtered view in display order.
func (e *Engine) Rows() []Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Record, len(e.filtered))
	for i, r := range e.filtered {
		out[i] = *r
	}
	return out
}

// AllRows returns a copy of the full table in display order.
func (e *Engine) AllRows() []Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Record, len(e.table))
	for i, r := range e.table {
		out[i] = *r
	}
	return out
}

// Query returns the active filter query.
func (e *Engine) Query() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.query
}

// Selected returns the selected row position in the filtered view, or
// -1 when the view is empty.
func (e *Engine) Selected() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selected
}

// Select moves the selection to row i of the filtered view, clamped to
// the view's bounds.
func (e *Engine) Select(i int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.filtered) == 0 {
		e.selected = -1
		return
	}
	if i < 0 {
		i = 0
	}
	if i >= len(e.filtered) {
		i = len(e.filtered) - 1
	}
	e.selected = i
}

// SelectedRecord returns the currently selected row, if any.
func (e *Engine) SelectedRecord() (Record, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.selected < 0 || e.selected >= len(e.filtered) {
		return Record{}, false
	}
	return *e.filtered[e.selected], true
}

// SelectedActions derives the valid actions for the selected row.
func (e *Engine) SelectedActions() Actions {
	rec, ok := e.SelectedRecord()
	if !ok {
		return 0
	}
	return ActionsFor(rec.State)
}

// BatchEligible reports whether batch actions are offered: only when a
// non-empty query narrows the view, as a guard against operating on the
// entire unfiltered service set by accident.
func (e *Engine) BatchEligible() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return strings.TrimSpace(e.query) != ""
}

// Close stops the background refresher and releases the events channel.
func (e *Engine) Close() {
	e.StopRefresher()
}

// updateRow writes a state observation into the canonical row and, via
// the shared pointer, the filtered row. Unknown identities are ignored:
// the row set may have been rebuilt underneath a poller.
func (e *Engine) updateRow(name string, st svc.State, tentative bool) {
	e.mu.Lock()
	i, ok := e.rows[name]
	if !ok {
		e.mu.Unlock()
		return
	}
	rec := e.table[i]
	rec.State = st
	rec.Tentative = tentative
	rec.Seq++
	frow := -1
	if j, ok := e.filteredRows[name]; ok {
		frow = j
	}
	selected := frow >= 0 && frow == e.selected
	e.mu.Unlock()
	e.emit(Event{Kind: EventRowUpdate, Name: name, State: st, Tentative: tentative, Row: frow, Selected: selected})
}

// record sends a drive audit event to the configured sink, if any.
// Sink errors are logged and otherwise ignored.
func (e *Engine) record(action, name, display string, target, observed svc.State, outcome history.Outcome) {
	e.histMu.Lock()
	sink := e.sink
	e.histMu.Unlock()
	if sink == nil {
		return
	}
	evt := history.Event{
		Action:     action,
		Service:    name,
		Display:    display,
		Target:     target.String(),
		Observed:   observed.String(),
		Outcome:    outcome,
		OccurredAt: time.Now().UTC(),
	}
	if err := sink.Send(context.Background(), evt); err != nil {
		e.logger.Debug("history sink send failed", "service", name, "error", err)
	}
}
