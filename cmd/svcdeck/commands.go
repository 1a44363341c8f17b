package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/svcdeck/svcdeck/internal/config"
	"github.com/svcdeck/svcdeck/internal/engine"
	"github.com/svcdeck/svcdeck/internal/history/factory"
	"github.com/svcdeck/svcdeck/internal/logger"
	"github.com/svcdeck/svcdeck/internal/metrics"
	"github.com/svcdeck/svcdeck/internal/server"
	"github.com/svcdeck/svcdeck/internal/svc"
	"github.com/svcdeck/svcdeck/internal/svc/scm"
	"github.com/svcdeck/svcdeck/internal/svc/systemd"
	"github.com/svcdeck/svcdeck/internal/tui"
	"github.com/svcdeck/svcdeck/pkg/client"
)

type command struct {
	global *GlobalFlags
}

// loadConfig reads the preferences file and rewrites it so files from
// older releases pick up newly introduced settings.
func (c *command) loadConfig() (config.Config, error) {
	path := c.global.ConfigPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := cfg.Write(path); err != nil {
		return cfg, fmt.Errorf("rewrite config %s: %w", path, err)
	}
	return cfg, nil
}

// newDirectory opens the platform service directory.
func newDirectory() (svc.Directory, error) {
	if runtime.GOOS == "windows" {
		return scm.New()
	}
	return systemd.New(), nil
}

// newEngine builds a loaded engine from the config: platform directory,
// logger, poll parameters and, when configured, the history sink.
func (c *command) newEngine(cfg config.Config, log *slog.Logger) (*engine.Engine, error) {
	dir, err := newDirectory()
	if err != nil {
		return nil, err
	}
	eng := engine.New(dir)
	eng.SetLogger(log)
	eng.SetPollParams(cfg.PollInterval, cfg.PollBound)
	eng.SetRefreshInterval(cfg.RefreshInterval)
	if cfg.HistoryDSN != "" {
		sink, err := factory.NewSinkFromDSN(cfg.HistoryDSN)
		if err != nil {
			return nil, fmt.Errorf("history sink: %w", err)
		}
		eng.SetHistorySink(sink)
	}
	if err := eng.Reload(context.Background()); err != nil {
		eng.Close()
		return nil, fmt.Errorf("initial snapshot: %w", err)
	}
	return eng, nil
}

func (c *command) newLogger(cfg config.Config, forceFile bool) *slog.Logger {
	file := cfg.LogFile
	if file == "" && forceFile {
		// The TUI owns the terminal; route logs away from it.
		file = os.DevNull
	}
	return logger.New(logger.Config{File: file, Level: parseLevel(cfg.LogLevel)})
}

func parseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Watch runs the interactive table on a local engine.
func (c *command) Watch() error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	log := c.newLogger(cfg, true)
	eng, err := c.newEngine(cfg, log)
	if err != nil {
		return err
	}
	defer eng.Close()
	eng.StartRefresher()
	return tui.Run(eng, cfg.Theme)
}

// List prints the service table as JSON, via the daemon when an API URL
// is given, otherwise from a one-shot local snapshot.
func (c *command) List(f ListFlags) error {
	if f.APIUrl != "" {
		api := client.New(client.Config{BaseURL: f.APIUrl, Timeout: f.APITimeout})
		rows, err := api.Services(context.Background(), f.Query)
		if err != nil {
			return err
		}
		printJSON(rows)
		return nil
	}

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	eng, err := c.newEngine(cfg, logger.Discard())
	if err != nil {
		return err
	}
	defer eng.Close()
	if f.Query != "" {
		eng.SetQuery(f.Query)
	}
	printJSON(eng.Rows())
	return nil
}

// Drive runs one action against one service and waits for its terminal
// outcome, via the daemon when an API URL is given.
func (c *command) Drive(action string, name string, f DriveFlags) error {
	act, ok := engine.ParseAction(action)
	if !ok {
		return fmt.Errorf("unknown action: %s", action)
	}

	if f.APIUrl != "" {
		api := client.New(client.Config{BaseURL: f.APIUrl, Timeout: f.APITimeout})
		out, err := api.Drive(context.Background(), name, action, !f.NoWait)
		if err != nil {
			return err
		}
		printJSON(out)
		return nil
	}

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	eng, err := c.newEngine(cfg, c.newLogger(cfg, false))
	if err != nil {
		return err
	}
	defer eng.Close()

	found := false
	for _, r := range eng.AllRows() {
		if r.Name == name {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("unknown service: %s", name)
	}

	out := eng.Drive(name, act)
	printJSON(map[string]string{"service": name, "action": action, "outcome": out.String()})
	if out != engine.OutcomeReached {
		return fmt.Errorf("%s %s: %s", action, name, out)
	}
	return nil
}

// Serve runs the daemon: engine, background refresher, HTTP API and
// metrics until SIGINT/SIGTERM.
func (c *command) Serve(f ServeFlags) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	log := c.newLogger(cfg, false)
	eng, err := c.newEngine(cfg, log)
	if err != nil {
		return err
	}
	defer eng.Close()

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		log.Warn("metrics registration failed", "error", err)
	}
	eng.StartRefresher()

	// Drain events: the daemon has no interactive surface, updates are
	// served from engine state on request.
	go func() {
		for range eng.Events() {
		}
	}()

	listen := f.Listen
	if listen == "" {
		listen = cfg.Listen
	}
	srv := server.NewServer(listen, "/api", eng)
	log.Info("daemon listening", "addr", listen)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
