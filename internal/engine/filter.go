package engine

import (
	"strings"
	"time"
)

// typingGrace is how far the background refresher's deadline is pushed
// on every query mutation, so sweeps don't fight visible re-renders
// while the user is typing.
const typingGrace = time.Second

// Match reports whether a record matches a free-text query: every
// whitespace-separated token must be a case-insensitive substring of
// the row's combined identity, display name and state text. An empty
// query matches everything. Pure; used by the HTTP API as well as the
// engine's own view.
func Match(query string, r Record) bool {
	return matchTokens(queryTokens(query), r)
}

func queryTokens(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

func matchTokens(tokens []string, r Record) bool {
	if len(tokens) == 0 {
		return true
	}
	hay := strings.ToLower(r.Name + " " + r.Display + " " + r.State.String())
	for _, tok := range tokens {
		if !strings.Contains(hay, tok) {
			return false
		}
	}
	return true
}

// SetQuery replaces the filter query and rebuilds the filtered view.
// The full table is never touched. Every call pushes the refresher's
// typing deadline forward.
func (e *Engine) SetQuery(query string) {
	e.mu.Lock()
	e.query = query
	e.typingUntil = time.Now().Add(typingGrace)
	e.rebuildFilteredLocked()
	e.mu.Unlock()
	e.emit(Event{Kind: EventTableReload, Row: -1})
}

// rebuildFilteredLocked clears and repopulates the filtered view and
// its row map from the current table, preserving table order. Caller
// holds e.mu; the whole clear-and-repopulate sequence is one exclusive
// region so a racing state write lands in either the old or the new
// row set, never in a half-built one.
func (e *Engine) rebuildFilteredLocked() {
	tokens := queryTokens(e.query)
	e.filtered = make([]*Record, 0, len(e.table))
	e.filteredRows = make(map[string]int, len(e.table))
	for _, rec := range e.table {
		if !matchTokens(tokens, *rec) {
			continue
		}
		e.filteredRows[rec.Name] = len(e.filtered)
		e.filtered = append(e.filtered, rec)
	}
	switch {
	case len(e.filtered) == 0:
		e.selected = -1
	case e.selected < 0 || e.selected >= len(e.filtered):
		e.selected = 0
	}
}
