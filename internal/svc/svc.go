// Package svc defines the boundary to the host's service control
// facility: enumerating installed services, reading their state, and
// issuing non-blocking start/stop/uninstall requests. Implementations
// live in the svc/systemd and svc/scm subpackages; tests use svc/svctest.
package svc

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Directory.Open and Handle.Refresh when the
// service no longer exists on the host. Callers treat it as ordinary
// absence, not a fault.
var ErrNotFound = errors.New("service not found")

// Directory enumerates installed services and opens control handles.
type Directory interface {
	// ListAll returns the identities of all installed services.
	// Order is unspecified; callers sort.
	ListAll(ctx context.Context) ([]string, error)
	// Open returns a control handle for the named service, or
	// ErrNotFound if it does not exist.
	Open(name string) (Handle, error)
}

// Handle is a control capability bound to one service identity.
// State returns the last value read by Refresh; it never touches the
// host on its own. Start and Stop are fire-and-forget requests whose
// completion is observed only through subsequent Refresh calls.
type Handle interface {
	Name() string
	DisplayName() string
	State() State
	Refresh() error
	Start() error
	Stop() error
	Uninstall() error
}
