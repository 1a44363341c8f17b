package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svcdeck/svcdeck/internal/svc"
	"github.com/svcdeck/svcdeck/internal/svc/svctest"
)

// drainEvents empties the engine's event channel.
func drainEvents(e *Engine) []Event {
	var out []Event
	for {
		select {
		case ev := <-e.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func rowUpdatesFor(events []Event, name string) []Event {
	var out []Event
	for _, ev := range events {
		if ev.Kind == EventRowUpdate && ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

func notices(events []Event) []Event {
	var out []Event
	for _, ev := range events {
		if ev.Kind == EventNotice {
			out = append(out, ev)
		}
	}
	return out
}

func TestDriveReachesTarget(t *testing.T) {
	s := svctest.NewService("svcA", "Alpha", svc.StateStopped)
	e, _ := newLoadedEngine(t, s)
	e.SetPollParams(time.Millisecond, 120)
	drainEvents(e)

	// Stopped for three polls, then Running.
	s.SetScript(svc.StateStopped, svc.StateStopped, svc.StateStopped, svc.StateRunning)

	out := e.Drive("svcA", ActionStart)
	assert.Equal(t, OutcomeReached, out)
	assert.Equal(t, []string{"start"}, s.Calls())

	events := drainEvents(e)
	updates := rowUpdatesFor(events, "svcA")
	require.Len(t, updates, 4)
	for i := 0; i < 3; i++ {
		assert.Equal(t, svc.StateStopped, updates[i].State)
		assert.True(t, updates[i].Tentative, "write %d should be tentative", i)
	}
	assert.Equal(t, svc.StateRunning, updates[3].State)
	assert.False(t, updates[3].Tentative)
	assert.Empty(t, notices(events))

	rows := e.Rows()
	assert.Equal(t, svc.StateRunning, rows[0].State)
	assert.False(t, rows[0].Tentative)
}

func TestDriveTimesOut(t *testing.T) {
	s := svctest.NewService("svcA", "Alpha", svc.StateStopped)
	e, _ := newLoadedEngine(t, s)
	e.SetPollParams(time.Millisecond, 3)
	drainEvents(e)

	out := e.Drive("svcA", ActionStart)
	assert.Equal(t, OutcomeTimedOut, out)

	events := drainEvents(e)
	updates := rowUpdatesFor(events, "svcA")
	// Three tentative polls plus one settled write of the last observed state.
	require.Len(t, updates, 4)
	for i := 0; i < 3; i++ {
		assert.True(t, updates[i].Tentative)
	}
	last := updates[3]
	assert.False(t, last.Tentative)
	assert.Equal(t, svc.StateStopped, last.State)

	ns := notices(events)
	require.Len(t, ns, 1)
	assert.Contains(t, ns[0].Notice, "Alpha")
	assert.Contains(t, ns[0].Notice, "did not respond")
}

func TestDriveControlFailure(t *testing.T) {
	s := svctest.NewService("svcA", "Alpha", svc.StateStopped)
	e, _ := newLoadedEngine(t, s)
	e.SetPollParams(time.Millisecond, 5)
	drainEvents(e)

	s.FailStart(errors.New("access denied"))
	out := e.Drive("svcA", ActionStart)
	assert.Equal(t, OutcomeFailed, out)

	events := drainEvents(e)
	ns := notices(events)
	require.Len(t, ns, 1)
	assert.Contains(t, ns[0].Notice, "access denied")

	// One settled re-read so the row reflects reality.
	updates := rowUpdatesFor(events, "svcA")
	require.Len(t, updates, 1)
	assert.False(t, updates[0].Tentative)
}

func TestDriveVanishedMidPoll(t *testing.T) {
	s := svctest.NewService("svcA", "Alpha", svc.StateStopped)
	e, _ := newLoadedEngine(t, s)
	e.SetPollParams(time.Millisecond, 120)
	drainEvents(e)

	s.SetGone(true)
	out := e.Drive("svcA", ActionStart)
	assert.Equal(t, OutcomeVanished, out)

	events := drainEvents(e)
	// Vanishing is silent by design: no notice, row settles to not-found.
	assert.Empty(t, notices(events))
	rows := e.AllRows()
	assert.Equal(t, svc.StateNotFound, rows[0].State)
}

func TestRestartComposition(t *testing.T) {
	s := svctest.NewService("svcA", "Alpha", svc.StateRunning)
	e, _ := newLoadedEngine(t, s)
	e.SetPollParams(time.Millisecond, 120)
	drainEvents(e)

	s.SetScript(
		svc.StateStopPending, svc.StateStopped, // stop leg
		svc.StateStartPending, svc.StateRunning, // start leg
	)
	out := e.Drive("svcA", ActionRestart)
	assert.Equal(t, OutcomeReached, out)
	assert.Equal(t, []string{"stop", "start"}, s.Calls())

	events := drainEvents(e)
	updates := rowUpdatesFor(events, "svcA")
	require.Len(t, updates, 4)
	// Reaching Stopped on the intermediate leg stays tentative; only the
	// final Running write settles.
	assert.Equal(t, svc.StateStopped, updates[1].State)
	assert.True(t, updates[1].Tentative)
	assert.Equal(t, svc.StateRunning, updates[3].State)
	assert.False(t, updates[3].Tentative)
}

func TestRestartSkipsStopWhenAlreadyStopped(t *testing.T) {
	s := svctest.NewService("svcA", "Alpha", svc.StateStopped)
	e, _ := newLoadedEngine(t, s)
	e.SetPollParams(time.Millisecond, 120)

	s.SetScript(svc.StateRunning)
	out := e.Drive("svcA", ActionRestart)
	assert.Equal(t, OutcomeReached, out)
	assert.Equal(t, []string{"start"}, s.Calls())
}

func TestUninstallPollsToGone(t *testing.T) {
	s := svctest.NewService("svcA", "Alpha", svc.StateStopped)
	e, _ := newLoadedEngine(t, s)
	e.SetPollParams(time.Millisecond, 120)
	drainEvents(e)

	out := e.Drive("svcA", ActionUninstall)
	assert.Equal(t, OutcomeReached, out)
	assert.Equal(t, []string{"uninstall"}, s.Calls())

	rows := e.AllRows()
	assert.Equal(t, svc.StateNotFound, rows[0].State)
	assert.False(t, rows[0].Tentative)
}

func TestBatchStartSkipsRunning(t *testing.T) {
	running := svctest.NewService("svcA", "Web Alpha", svc.StateRunning)
	stopped := svctest.NewService("svcB", "Web Beta", svc.StateStopped)
	e, _ := newLoadedEngine(t, running, stopped)
	e.SetPollParams(time.Millisecond, 5)
	e.SetQuery("web")

	stopped.SetScript(svc.StateRunning)
	n := e.BatchDrive(ActionStart)
	assert.Equal(t, 1, n)

	waitFor(t, func() bool { return len(stopped.Calls()) == 1 })
	assert.Equal(t, []string{"start"}, stopped.Calls())
	assert.Empty(t, running.Calls())
}

func TestBatchStopSkipsStopped(t *testing.T) {
	running := svctest.NewService("svcA", "Web Alpha", svc.StateRunning)
	stopped := svctest.NewService("svcB", "Web Beta", svc.StateStopped)
	e, _ := newLoadedEngine(t, running, stopped)
	e.SetPollParams(time.Millisecond, 5)
	e.SetQuery("web")

	running.SetScript(svc.StateStopped)
	n := e.BatchDrive(ActionStop)
	assert.Equal(t, 1, n)

	waitFor(t, func() bool { return len(running.Calls()) == 1 })
	assert.Equal(t, []string{"stop"}, running.Calls())
	assert.Empty(t, stopped.Calls())
}

func TestBatchRestartAppliesToAll(t *testing.T) {
	a := svctest.NewService("svcA", "Web Alpha", svc.StateRunning)
	b := svctest.NewService("svcB", "Web Beta", svc.StateStopped)
	e, _ := newLoadedEngine(t, a, b)
	e.SetPollParams(time.Millisecond, 5)
	e.SetQuery("web")

	a.SetScript(svc.StateStopped, svc.StateRunning)
	b.SetScript(svc.StateRunning)
	n := e.BatchDrive(ActionRestart)
	assert.Equal(t, 2, n)

	waitFor(t, func() bool { return len(a.Calls()) >= 2 && len(b.Calls()) >= 1 })
}

func TestBatchRefusesEmptyQuery(t *testing.T) {
	e, _ := newLoadedEngine(t, svctest.NewService("svcA", "Alpha", svc.StateStopped))
	assert.Equal(t, 0, e.BatchDrive(ActionStart))
	e.SetQuery("   ")
	assert.Equal(t, 0, e.BatchDrive(ActionStop))
}

func TestBatchRejectsUninstall(t *testing.T) {
	e, _ := newLoadedEngine(t, svctest.NewService("svcA", "Alpha", svc.StateStopped))
	e.SetQuery("alpha")
	assert.Equal(t, 0, e.BatchDrive(ActionUninstall))
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}
