//go:build !windows

package scm

import (
	"context"
	"errors"

	"github.com/svcdeck/svcdeck/internal/svc"
)

var errUnsupported = errors.New("service control manager is only available on windows")

// Directory is only available on Windows; this stub satisfies
// svc.Directory so callers can select an adapter at runtime.
type Directory struct{}

func New() (*Directory, error) {
	return nil, errUnsupported
}

func (d *Directory) Close() error { return errUnsupported }

func (d *Directory) ListAll(_ context.Context) ([]string, error) {
	return nil, errUnsupported
}

func (d *Directory) Open(_ string) (svc.Handle, error) {
	return nil, errUnsupported
}
