package engine

import (
	"errors"

	"github.com/svcdeck/svcdeck/internal/svc"
)

// lookup returns the memoized control handle for name, opening one on
// first use. The second result is false when the directory reports the
// service gone: callers treat that as ordinary absence, not a fault.
// When refresh is true the handle re-reads its state from the host
// before being returned; a refresh that fails with anything other than
// "gone" returns the handle along with the error, leaving the last
// known state readable.
//
// The cache grows for the process lifetime and never evicts; it is
// bounded by the number of distinct services the host ever reports.
func (e *Engine) lookup(name string, refresh bool) (svc.Handle, bool, error) {
	e.cacheMu.Lock()
	h, ok := e.handles[name]
	e.cacheMu.Unlock()
	if !ok {
		// Open outside the lock: directory calls can be slow and must
		// not serialize concurrent snapshot workers.
		opened, err := e.dir.Open(name)
		if errors.Is(err, svc.ErrNotFound) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, err
		}
		e.cacheMu.Lock()
		if existing, dup := e.handles[name]; dup {
			h = existing
		} else {
			e.handles[name] = opened
			h = opened
		}
		e.cacheMu.Unlock()
	}
	if refresh {
		if err := h.Refresh(); err != nil {
			if errors.Is(err, svc.ErrNotFound) {
				return nil, false, nil
			}
			return h, true, err
		}
	}
	return h, true, nil
}

// cachedHandles returns how many handles are memoized.
func (e *Engine) cachedHandles() int {
	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()
	return len(e.handles)
}
