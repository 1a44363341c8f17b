// Package svctest provides scriptable in-memory implementations of
// svc.Directory and svc.Handle for tests.
package svctest

import (
	"context"
	"sync"

	"github.com/svcdeck/svcdeck/internal/svc"
)

// Service is a fake host service. Each Refresh consumes the next state
// from its script; once the script is exhausted, the last state sticks.
// Service itself implements svc.Handle.
type Service struct {
	mu         sync.Mutex
	name       string
	display    string
	script     []svc.State
	idx        int
	state      svc.State
	gone       bool
	refreshErr error
	startErr   error
	stopErr    error
	uninstErr  error
	calls      []string
	refreshes  int
}

// NewService builds a fake service whose Refresh calls play back the
// given states in order. At least one state should be provided.
func NewService(name, display string, states ...svc.State) *Service {
	s := &Service{name: name, display: display, script: states}
	if len(states) > 0 {
		s.state = states[0]
	}
	return s
}

func (s *Service) Name() string { return s.name }

func (s *Service) DisplayName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.display
}

func (s *Service) State() svc.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Service) Refresh() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshes++
	if s.gone {
		return svc.ErrNotFound
	}
	if s.refreshErr != nil {
		return s.refreshErr
	}
	if s.idx < len(s.script) {
		s.state = s.script[s.idx]
		s.idx++
	}
	return nil
}

func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "start")
	return s.startErr
}

func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "stop")
	return s.stopErr
}

func (s *Service) Uninstall() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "uninstall")
	if s.uninstErr != nil {
		return s.uninstErr
	}
	s.gone = true
	return nil
}

// SetScript replaces the remaining playback script. The current state is
// kept until the next Refresh.
func (s *Service) SetScript(states ...svc.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.script = states
	s.idx = 0
}

// SetGone marks the service as vanished: Refresh (and Directory.Open)
// report svc.ErrNotFound from now on.
func (s *Service) SetGone(gone bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gone = gone
}

// FailRefresh makes every subsequent Refresh return err (nil clears).
func (s *Service) FailRefresh(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshErr = err
}

// FailStart makes Start return err. FailStop and FailUninstall are the
// stop/uninstall equivalents.
func (s *Service) FailStart(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startErr = err
}

func (s *Service) FailStop(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopErr = err
}

func (s *Service) FailUninstall(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uninstErr = err
}

// Calls returns the control requests issued so far ("start", "stop",
// "uninstall") in order.
func (s *Service) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// Refreshes returns how many times Refresh has been called.
func (s *Service) Refreshes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshes
}

// Directory is a fake svc.Directory over a fixed set of Services.
type Directory struct {
	mu       sync.Mutex
	services map[string]*Service
	listErr  error
	opens    map[string]int
}

func NewDirectory(services ...*Service) *Directory {
	d := &Directory{
		services: make(map[string]*Service, len(services)),
		opens:    make(map[string]int),
	}
	for _, s := range services {
		d.services[s.name] = s
	}
	return d
}

func (d *Directory) ListAll(_ context.Context) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.listErr != nil {
		return nil, d.listErr
	}
	names := make([]string, 0, len(d.services))
	for name := range d.services {
		names = append(names, name)
	}
	return names, nil
}

func (d *Directory) Open(name string) (svc.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opens[name]++
	s, ok := d.services[name]
	if !ok {
		return nil, svc.ErrNotFound
	}
	s.mu.Lock()
	gone := s.gone
	s.mu.Unlock()
	if gone {
		return nil, svc.ErrNotFound
	}
	return s, nil
}

// Add registers (or replaces) a service.
func (d *Directory) Add(s *Service) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.services[s.name] = s
}

// Remove deletes a service so that further Opens report ErrNotFound.
func (d *Directory) Remove(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.services, name)
}

// FailList makes ListAll return err (nil clears).
func (d *Directory) FailList(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listErr = err
}

// Opens returns how many times Open was called for name.
func (d *Directory) Opens(name string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opens[name]
}
