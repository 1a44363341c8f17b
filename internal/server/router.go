// Package server exposes the engine over HTTP for remote inspection
// and control.
//
// Endpoints:
//
//	GET  {basePath}/services          query: q=... (optional free-text filter)
//	POST {basePath}/start             query: name=...&wait=1 (wait optional)
//	POST {basePath}/stop              query: name=...&wait=1
//	POST {basePath}/restart           query: name=...&wait=1
//	POST {basePath}/uninstall         query: name=...&wait=1
//	POST {basePath}/reload
//	GET  {basePath}/metrics
//
// Control endpoints launch the drive on a worker and return 202 unless
// wait=1, in which case they block until the drive's terminal outcome.
package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/svcdeck/svcdeck/internal/engine"
	"github.com/svcdeck/svcdeck/internal/metrics"
)

type Router struct {
	eng      *engine.Engine
	basePath string
}

// NewRouter constructs a Router with configurable basePath.
// Example basePath: "/api" results in /api/services, /api/start, ...
func NewRouter(eng *engine.Engine, basePath string) *Router {
	return &Router{eng: eng, basePath: sanitizeBase(basePath)}
}

// Handler returns an http.Handler powered by gin that can be mounted in any server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.GET("/services", r.handleServices)
	group.POST("/start", r.handleAction(engine.ActionStart))
	group.POST("/stop", r.handleAction(engine.ActionStop))
	group.POST("/restart", r.handleAction(engine.ActionRestart))
	group.POST("/uninstall", r.handleAction(engine.ActionUninstall))
	group.POST("/reload", r.handleReload)
	group.GET("/metrics", gin.WrapH(metrics.Handler()))
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
func NewServer(addr, basePath string, eng *engine.Engine) *http.Server {
	r := NewRouter(eng, basePath)
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server
}

type errorResp struct {
	Error string `json:"error"`
}

type acceptedResp struct {
	OK      bool   `json:"ok"`
	Service string `json:"service"`
	Action  string `json:"action"`
}

type outcomeResp struct {
	Service string `json:"service"`
	Action  string `json:"action"`
	Outcome string `json:"outcome"`
}

func (r *Router) handleServices(c *gin.Context) {
	rows := r.eng.AllRows()
	q := c.Query("q")
	out := make([]engine.Record, 0, len(rows))
	for _, row := range rows {
		if engine.Match(q, row) {
			out = append(out, row)
		}
	}
	c.JSON(http.StatusOK, out)
}

func (r *Router) handleAction(action engine.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Query("name")
		if name == "" {
			c.JSON(http.StatusBadRequest, errorResp{Error: "name required"})
			return
		}
		if !r.knows(name) {
			c.JSON(http.StatusNotFound, errorResp{Error: "unknown service: " + name})
			return
		}
		if c.Query("wait") == "1" {
			out := r.eng.Drive(name, action)
			c.JSON(http.StatusOK, outcomeResp{Service: name, Action: action.String(), Outcome: out.String()})
			return
		}
		go r.eng.Drive(name, action)
		c.JSON(http.StatusAccepted, acceptedResp{OK: true, Service: name, Action: action.String()})
	}
}

func (r *Router) handleReload(c *gin.Context) {
	if err := r.eng.Reload(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, acceptedResp{OK: true, Action: "reload"})
}

func (r *Router) knows(name string) bool {
	for _, row := range r.eng.AllRows() {
		if row.Name == name {
			return true
		}
	}
	return false
}

func sanitizeBase(basePath string) string {
	bp := strings.TrimSpace(basePath)
	if bp == "" {
		return ""
	}
	if !strings.HasPrefix(bp, "/") {
		bp = "/" + bp
	}
	return strings.TrimSuffix(bp, "/")
}
