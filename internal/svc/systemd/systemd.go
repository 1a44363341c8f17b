// Package systemd adapts the svc boundary to a systemd host by
// shelling out to systemctl. Start and stop use --no-block so the
// requests are fire-and-forget; completion is observed via Refresh.
package systemd

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/svcdeck/svcdeck/internal/svc"
)

const commandTimeout = 10 * time.Second

// Directory enumerates systemd service units.
type Directory struct{}

func New() *Directory { return &Directory{} }

func (d *Directory) ListAll(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, "systemctl",
		"list-unit-files", "--type=service", "--no-legend", "--no-pager", "--plain").Output()
	if err != nil {
		return nil, fmt.Errorf("systemctl list-unit-files failed: %w", err)
	}
	return parseUnitList(string(out)), nil
}

func (d *Directory) Open(name string) (svc.Handle, error) {
	h := &Handle{name: name, unit: name + ".service"}
	if err := h.Refresh(); err != nil {
		return nil, err
	}
	return h, nil
}

// parseUnitList extracts unit names from systemctl list-unit-files
// output, dropping the .service suffix and masked units (masked is this
// adapter's "uninstalled").
func parseUnitList(output string) []string {
	var names []string
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) < 2 {
			continue
		}
		unit := fields[0]
		if !strings.HasSuffix(unit, ".service") {
			continue
		}
		if strings.ToLower(fields[1]) == "masked" {
			continue
		}
		names = append(names, strings.TrimSuffix(unit, ".service"))
	}
	return names
}

// Handle controls one systemd service unit.
type Handle struct {
	name string
	unit string

	mu      sync.Mutex
	display string
	state   svc.State
}

func (h *Handle) Name() string { return h.name }

func (h *Handle) DisplayName() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.display == "" {
		return h.name
	}
	return h.display
}

func (h *Handle) State() svc.State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

func (h *Handle) Refresh() error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, "systemctl", "show", h.unit,
		"--property=LoadState,ActiveState,SubState,Description", "--no-pager").Output()
	if err != nil {
		return fmt.Errorf("systemctl show %s failed: %w", h.unit, err)
	}
	props := parseShow(string(out))
	switch props["LoadState"] {
	case "not-found", "masked":
		return svc.ErrNotFound
	}
	h.mu.Lock()
	if desc := props["Description"]; desc != "" {
		h.display = desc
	}
	h.state = mapActiveState(props["ActiveState"], props["SubState"])
	h.mu.Unlock()
	return nil
}

func (h *Handle) Start() error {
	return runSystemctl("start", "--no-block", h.unit)
}

func (h *Handle) Stop() error {
	return runSystemctl("stop", "--no-block", h.unit)
}

// Uninstall disables, stops and masks the unit. A masked unit is
// reported gone by Refresh and skipped by ListAll, which is as close to
// removal as an adapter should get without deleting unit files.
func (h *Handle) Uninstall() error {
	if err := runSystemctl("disable", "--now", h.unit); err != nil {
		return err
	}
	return runSystemctl("mask", h.unit)
}

func runSystemctl(args ...string) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, "systemctl", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("systemctl %s failed: %s: %w", strings.Join(args, " "), strings.TrimSpace(string(out)), err)
	}
	return nil
}

// parseShow parses systemctl show key=value output.
func parseShow(output string) map[string]string {
	props := make(map[string]string)
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if i := strings.IndexByte(line, '='); i > 0 {
			props[line[:i]] = line[i+1:]
		}
	}
	return props
}

func mapActiveState(active, sub string) svc.State {
	switch strings.ToLower(active) {
	case "active":
		return svc.StateRunning
	case "activating":
		return svc.StateStartPending
	case "deactivating":
		return svc.StateStopPending
	case "reloading":
		return svc.StateContinuePending
	case "inactive", "failed":
		return svc.StateStopped
	}
	// systemd has no paused notion; dead sub-state while active is rare
	// enough to fold into unknown.
	_ = sub
	return svc.StateUnknown
}
