package svcdeck

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	cfg "github.com/svcdeck/svcdeck/internal/config"
	"github.com/svcdeck/svcdeck/internal/engine"
	"github.com/svcdeck/svcdeck/internal/history"
	"github.com/svcdeck/svcdeck/internal/history/factory"
	"github.com/svcdeck/svcdeck/internal/metrics"
	iapi "github.com/svcdeck/svcdeck/internal/server"
	"github.com/svcdeck/svcdeck/internal/svc"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type State = svc.State

type Record = engine.Record

type Action = engine.Action

type Actions = engine.Actions

type Outcome = engine.Outcome

type Event = engine.Event

type EventKind = engine.EventKind

type Directory = svc.Directory

type Handle = svc.Handle

type HistorySink = history.Sink

type Config = cfg.Config

const (
	StateUnknown  = svc.StateUnknown
	StateNotFound = svc.StateNotFound
	StateStopped  = svc.StateStopped
	StateRunning  = svc.StateRunning

	ActionStart     = engine.ActionStart
	ActionStop      = engine.ActionStop
	ActionRestart   = engine.ActionRestart
	ActionUninstall = engine.ActionUninstall

	OutcomeReached  = engine.OutcomeReached
	OutcomeTimedOut = engine.OutcomeTimedOut
	OutcomeFailed   = engine.OutcomeFailed
	OutcomeVanished = engine.OutcomeVanished

	EventRowUpdate   = engine.EventRowUpdate
	EventTableReload = engine.EventTableReload
	EventNotice      = engine.EventNotice
)

// ErrNotFound is returned by Directory implementations for services
// that do not exist on the host.
var ErrNotFound = svc.ErrNotFound

// Deck is a thin facade over internal/engine.Engine.
// It provides a stable public API for embedding.

type Deck struct{ inner *engine.Engine }

func New(dir Directory) *Deck { return &Deck{inner: engine.New(dir)} }

func (d *Deck) SetLogger(l *slog.Logger)             { d.inner.SetLogger(l) }
func (d *Deck) SetHistorySink(s HistorySink)         { d.inner.SetHistorySink(s) }
func (d *Deck) SetPollParams(i time.Duration, n int) { d.inner.SetPollParams(i, n) }
func (d *Deck) SetRefreshInterval(i time.Duration)   { d.inner.SetRefreshInterval(i) }

func (d *Deck) Reload(ctx context.Context) error { return d.inner.Reload(ctx) }
func (d *Deck) Rows() []Record                   { return d.inner.Rows() }
func (d *Deck) AllRows() []Record                { return d.inner.AllRows() }
func (d *Deck) SetQuery(q string)                { d.inner.SetQuery(q) }
func (d *Deck) Query() string                    { return d.inner.Query() }
func (d *Deck) Select(i int)                     { d.inner.Select(i) }
func (d *Deck) Selected() int                    { return d.inner.Selected() }
func (d *Deck) SelectedRecord() (Record, bool)   { return d.inner.SelectedRecord() }
func (d *Deck) SelectedActions() Actions         { return d.inner.SelectedActions() }
func (d *Deck) BatchEligible() bool              { return d.inner.BatchEligible() }

func (d *Deck) Drive(name string, action Action) Outcome { return d.inner.Drive(name, action) }
func (d *Deck) BatchDrive(action Action) int             { return d.inner.BatchDrive(action) }

func (d *Deck) StartRefresher()      { d.inner.StartRefresher() }
func (d *Deck) StopRefresher()       { d.inner.StopRefresher() }
func (d *Deck) Events() <-chan Event { return d.inner.Events() }
func (d *Deck) Close()               { d.inner.Close() }

func LoadConfig(path string) (Config, error) { return cfg.Load(path) }

// NewHistorySink builds an audit sink from a DSN
// (sqlite path, postgres:// or clickhouse://).
func NewHistorySink(dsn string) (HistorySink, error) { return factory.NewSinkFromDSN(dsn) }

// NewHTTPServer starts an HTTP server exposing the control API using the given deck.
func NewHTTPServer(addr, basePath string, d *Deck) *http.Server {
	return iapi.NewServer(addr, basePath, d.inner)
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }

// ServeMetrics starts an HTTP server on addr exposing /metrics using the
// default registry. It blocks in the caller goroutine.
func ServeMetrics(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}
