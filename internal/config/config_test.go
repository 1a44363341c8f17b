package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "svcdeck.toml")
	content := `
poll_interval = "50ms"
poll_bound = 10
listen = "0.0.0.0:9000"

[theme]
running = "2"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 50*time.Millisecond, c.PollInterval)
	assert.Equal(t, 10, c.PollBound)
	assert.Equal(t, "0.0.0.0:9000", c.Listen)
	assert.Equal(t, "2", c.Theme.Running)
	// Untouched keys keep their defaults.
	assert.Equal(t, 5*time.Second, c.RefreshInterval)
	assert.Equal(t, Default().Theme.Stopped, c.Theme.Stopped)
}

func TestWriteThenLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "svcdeck.toml")
	c := Default()
	c.PollBound = 42
	c.HistoryDSN = "sqlite://:memory:"
	require.NoError(t, c.Write(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 42, got.PollBound)
	assert.Equal(t, "sqlite://:memory:", got.HistoryDSN)
}

func TestWriteIntroducesNewKeys(t *testing.T) {
	// A file from an older release that predates the theme table.
	path := filepath.Join(t.TempDir(), "svcdeck.toml")
	require.NoError(t, os.WriteFile(path, []byte("poll_bound = 7\n"), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, c.Write(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "theme")
	assert.Contains(t, string(data), "poll_bound = 7")
}

func TestLoadBadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "svcdeck.toml")
	require.NoError(t, os.WriteFile(path, []byte("= broken ="), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}
