package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Theme lists display colors per state category.
type Theme struct {
	Running  string `toml:"running" mapstructure:"running"`
	Stopped  string `toml:"stopped" mapstructure:"stopped"`
	Pending  string `toml:"pending" mapstructure:"pending"`
	Unknown  string `toml:"unknown" mapstructure:"unknown"`
	Selected string `toml:"selected" mapstructure:"selected"`
}

// Config is the on-disk TOML preferences file.
type Config struct {
	PollInterval    time.Duration `toml:"poll_interval" mapstructure:"poll_interval"`
	PollBound       int           `toml:"poll_bound" mapstructure:"poll_bound"`
	RefreshInterval time.Duration `toml:"refresh_interval" mapstructure:"refresh_interval"`
	HistoryDSN      string        `toml:"history_dsn" mapstructure:"history_dsn"`
	Listen          string        `toml:"listen" mapstructure:"listen"`
	LogFile         string        `toml:"log_file" mapstructure:"log_file"`
	LogLevel        string        `toml:"log_level" mapstructure:"log_level"`
	Theme           Theme         `toml:"theme" mapstructure:"theme"`
}

func Default() Config {
	return Config{
		PollInterval:    100 * time.Millisecond,
		PollBound:       120,
		RefreshInterval: 5 * time.Second,
		Listen:          "127.0.0.1:8440",
		LogLevel:        "info",
		Theme: Theme{
			Running:  "10", // bright green
			Stopped:  "9",  // bright red
			Pending:  "11", // bright yellow
			Unknown:  "8",  // grey
			Selected: "57",
		},
	}
}

// Load reads the preferences file, filling unset keys with defaults.
// A missing file yields the defaults without error.
func Load(path string) (Config, error) {
	c := Default()
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	setDefaults(v, c)
	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return c, err
		}
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, nil
}

// Write rewrites the preferences file from the current config. Done on
// every startup so files written by older releases pick up newly
// introduced settings.
func (c Config) Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	setDefaults(v, c)
	return v.WriteConfigAs(path)
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("poll_interval", c.PollInterval.String())
	v.SetDefault("poll_bound", c.PollBound)
	v.SetDefault("refresh_interval", c.RefreshInterval.String())
	v.SetDefault("history_dsn", c.HistoryDSN)
	v.SetDefault("listen", c.Listen)
	v.SetDefault("log_file", c.LogFile)
	v.SetDefault("log_level", c.LogLevel)
	v.SetDefault("theme.running", c.Theme.Running)
	v.SetDefault("theme.stopped", c.Theme.Stopped)
	v.SetDefault("theme.pending", c.Theme.Pending)
	v.SetDefault("theme.unknown", c.Theme.Unknown)
	v.SetDefault("theme.selected", c.Theme.Selected)
}

// DefaultPath returns the per-user preferences location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "svcdeck.toml"
	}
	return filepath.Join(dir, "svcdeck", "svcdeck.toml")
}
