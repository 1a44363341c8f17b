package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/svcdeck/svcdeck/internal/svc"
	"github.com/svcdeck/svcdeck/internal/svc/svctest"
)

// Concurrent writers to the same row follow last-write-wins; the
// per-record sequence number makes the interleaving observable without
// changing outcomes.
func TestRowWritesBumpSequence(t *testing.T) {
	e, _ := newLoadedEngine(t, svctest.NewService("svcA", "Alpha", svc.StateStopped))

	var wg sync.WaitGroup
	const writers, writes = 4, 50
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < writes; j++ {
				e.updateRow("svcA", svc.StateRunning, false)
			}
		}()
	}
	wg.Wait()

	rows := e.AllRows()
	assert.Equal(t, uint64(writers*writes), rows[0].Seq)
	assert.Equal(t, svc.StateRunning, rows[0].State)
}

func TestUpdateRowIgnoresUnknownIdentity(t *testing.T) {
	e, _ := newLoadedEngine(t, svctest.NewService("svcA", "Alpha", svc.StateStopped))
	e.updateRow("ghost", svc.StateRunning, false)
	rows := e.AllRows()
	assert.Len(t, rows, 1)
	assert.Equal(t, svc.StateStopped, rows[0].State)
}

func TestEventsDroppedUnderBackpressureNotBlocking(t *testing.T) {
	e, _ := newLoadedEngine(t, svctest.NewService("svcA", "Alpha", svc.StateStopped))
	// Nobody consumes; far more writes than the channel buffers. The
	// writer must never block.
	for i := 0; i < 1000; i++ {
		e.updateRow("svcA", svc.StateRunning, false)
	}
	assert.Equal(t, svc.StateRunning, e.AllRows()[0].State)
}
