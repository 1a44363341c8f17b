package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svcdeck/svcdeck/internal/svc"
	"github.com/svcdeck/svcdeck/internal/svc/svctest"
)

func TestReloadSortsByDisplayThenName(t *testing.T) {
	e, _ := newLoadedEngine(t,
		svctest.NewService("svc2", "Web", svc.StateRunning),
		svctest.NewService("svc1", "Web", svc.StateStopped),
		svctest.NewService("svc3", "Alpha", svc.StateStopped),
	)
	rows := e.AllRows()
	require.Len(t, rows, 3)
	assert.Equal(t, "svc3", rows[0].Name) // Alpha first
	assert.Equal(t, "svc1", rows[1].Name) // Web tie broken by identity
	assert.Equal(t, "svc2", rows[2].Name)
}

func TestReloadDropsVanishedServices(t *testing.T) {
	alive := svctest.NewService("svcA", "Alpha", svc.StateRunning)
	gone := svctest.NewService("svcB", "Beta", svc.StateRunning)
	gone.SetGone(true)
	e, _ := newLoadedEngine(t, alive, gone)

	rows := e.AllRows()
	require.Len(t, rows, 1)
	assert.Equal(t, "svcA", rows[0].Name)
}

func TestReloadListError(t *testing.T) {
	dir := svctest.NewDirectory()
	dir.FailList(errors.New("scm unavailable"))
	e := New(dir)
	assert.Error(t, e.Reload(context.Background()))
}

func TestReloadReplacesTableWholesale(t *testing.T) {
	s := svctest.NewService("svcA", "Alpha", svc.StateStopped, svc.StateRunning)
	e, dir := newLoadedEngine(t, s)
	require.Equal(t, svc.StateStopped, e.AllRows()[0].State)

	dir.Add(svctest.NewService("svcB", "Beta", svc.StateRunning))
	require.NoError(t, e.Reload(context.Background()))

	rows := e.AllRows()
	require.Len(t, rows, 2)
	// Second reload refreshed svcA again and consumed the next state.
	assert.Equal(t, svc.StateRunning, rows[0].State)
}

func TestReloadReappliesFilter(t *testing.T) {
	e, dir := newLoadedEngine(t, svctest.NewService("svcA", "Alpha", svc.StateStopped))
	e.SetQuery("beta")
	assert.Empty(t, e.Rows())

	dir.Add(svctest.NewService("svcB", "Beta", svc.StateRunning))
	require.NoError(t, e.Reload(context.Background()))

	rows := e.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "svcB", rows[0].Name)
}

// Concurrent state writes racing a rebuild may land in the old or new
// row set, but cardinality and positions must stay consistent.
func TestConcurrentWritesDoNotCorruptMaps(t *testing.T) {
	services := []*svctest.Service{
		svctest.NewService("svcA", "Alpha", svc.StateStopped),
		svctest.NewService("svcB", "Beta", svc.StateRunning),
		svctest.NewService("svcC", "Gamma", svc.StateRunning),
	}
	e, _ := newLoadedEngine(t, services...)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				e.updateRow("svcB", svc.StateStopPending, true)
				e.updateRow("svcB", svc.StateStopped, false)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 100; j++ {
			e.SetQuery("a")
			e.SetQuery("")
		}
	}()
	wg.Wait()

	e.mu.Lock()
	defer e.mu.Unlock()
	require.Len(t, e.rows, len(e.table))
	for i, rec := range e.table {
		assert.Equal(t, i, e.rows[rec.Name])
	}
	require.Len(t, e.filteredRows, len(e.filtered))
	for i, rec := range e.filtered {
		assert.Equal(t, i, e.filteredRows[rec.Name])
	}
}
