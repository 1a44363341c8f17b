package client

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svcdeck/svcdeck/internal/engine"
	"github.com/svcdeck/svcdeck/internal/logger"
	"github.com/svcdeck/svcdeck/internal/server"
	"github.com/svcdeck/svcdeck/internal/svc"
	"github.com/svcdeck/svcdeck/internal/svc/svctest"
)

func init() { gin.SetMode(gin.TestMode) }

func newTestServer(t *testing.T, services ...*svctest.Service) (*Client, *engine.Engine, *svctest.Directory) {
	t.Helper()
	dir := svctest.NewDirectory(services...)
	eng := engine.New(dir)
	eng.SetLogger(logger.Discard())
	eng.SetPollParams(time.Millisecond, 50)
	require.NoError(t, eng.Reload(context.Background()))
	t.Cleanup(eng.Close)

	srv := httptest.NewServer(server.NewRouter(eng, "/api").Handler())
	t.Cleanup(srv.Close)

	return New(Config{BaseURL: srv.URL + "/api", Logger: logger.Discard()}), eng, dir
}

func TestServices(t *testing.T) {
	c, _, _ := newTestServer(t,
		svctest.NewService("alpha", "Alpha Service", svc.StateRunning),
		svctest.NewService("beta", "Beta Service", svc.StateStopped),
	)

	rows, err := c.Services(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "alpha", rows[0].Name)
	assert.Equal(t, "running", rows[0].State)
	assert.Equal(t, "stopped", rows[1].State)
}

func TestServicesFiltered(t *testing.T) {
	c, _, _ := newTestServer(t,
		svctest.NewService("alpha", "Alpha Service", svc.StateRunning),
		svctest.NewService("beta", "Beta Service", svc.StateStopped),
	)

	rows, err := c.Services(context.Background(), "alp")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "alpha", rows[0].Name)
}

func TestDriveWait(t *testing.T) {
	alpha := svctest.NewService("alpha", "Alpha Service", svc.StateRunning)
	c, _, _ := newTestServer(t, alpha)
	alpha.SetScript(svc.StateStopPending, svc.StateStopped)

	out, err := c.Drive(context.Background(), "alpha", "stop", true)
	require.NoError(t, err)
	assert.Equal(t, "alpha", out.Service)
	assert.Equal(t, "stop", out.Action)
	assert.Equal(t, "reached", out.Outcome)
}

func TestDriveAsync(t *testing.T) {
	alpha := svctest.NewService("alpha", "Alpha Service", svc.StateRunning)
	c, eng, _ := newTestServer(t, alpha)
	alpha.SetScript(svc.StateStopped)

	out, err := c.Drive(context.Background(), "alpha", "stop", false)
	require.NoError(t, err)
	assert.Empty(t, out.Outcome)

	require.Eventually(t, func() bool {
		for _, r := range eng.AllRows() {
			if r.Name == "alpha" && r.State == svc.StateStopped && !r.Tentative {
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)
}

func TestDriveUnknownService(t *testing.T) {
	c, _, _ := newTestServer(t,
		svctest.NewService("alpha", "Alpha Service", svc.StateRunning))

	_, err := c.Drive(context.Background(), "ghost", "start", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown service")
}

func TestReload(t *testing.T) {
	c, eng, dir := newTestServer(t,
		svctest.NewService("alpha", "Alpha Service", svc.StateRunning))

	dir.Add(svctest.NewService("beta", "Beta Service", svc.StateStopped))
	require.NoError(t, c.Reload(context.Background()))
	assert.Len(t, eng.AllRows(), 2)
}

func TestServerUnreachable(t *testing.T) {
	c := New(Config{BaseURL: "http://127.0.0.1:1/api", Timeout: 200 * time.Millisecond})
	_, err := c.Services(context.Background(), "")
	require.Error(t, err)
}
