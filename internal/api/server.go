// Package api provides the HTTP server for the event pipeline: the ingest
// write endpoint, recent-event queries, destructive clear, the websocket
// live stream, and Prometheus metrics.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/jparkerweb/claude-code-multi-agent-watcher/internal/broadcast"
	"github.com/jparkerweb/claude-code-multi-agent-watcher/internal/config"
	apperrors "github.com/jparkerweb/claude-code-multi-agent-watcher/internal/errors"
	"github.com/jparkerweb/claude-code-multi-agent-watcher/internal/event"
	"github.com/jparkerweb/claude-code-multi-agent-watcher/internal/ingest"
	"github.com/jparkerweb/claude-code-multi-agent-watcher/internal/logging"
)

// pongWait is how long a subscriber may stay silent before its connection is
// considered dead. It must exceed the hub's ping period.
const pongWait = 60 * time.Second

// Server represents the HTTP API server.
type Server struct {
	engine *gin.Engine
	server *http.Server
	svc    *ingest.Service
	hub    *broadcast.Hub
	cfg    *config.Config

	upgrader websocket.Upgrader
}

// NewServer creates and initializes an API server instance. It sets up the
// Gin engine, middleware, and routes.
func NewServer(cfg *config.Config, svc *ingest.Service, hub *broadcast.Hub) *Server {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(logging.GinLogrusLogger())
	engine.Use(logging.GinLogrusRecovery())
	engine.Use(corsMiddleware())

	s := &Server{
		engine: engine,
		svc:    svc,
		hub:    hub,
		cfg:    cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The dashboard is served from a different origin in
			// development; events carry no credentials.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		server: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.engine.POST("/events", s.handleSubmit)
	s.engine.GET("/events/recent", s.handleRecent)
	s.engine.GET("/events/filter-options", s.handleFilterOptions)
	s.engine.DELETE("/events", s.handleClear)
	s.engine.GET("/stream", s.handleStream)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// Handler exposes the underlying HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start begins listening. It blocks until the server stops.
func (s *Server) Start() error {
	log.Infof("event server listening on %s", s.server.Addr)
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the HTTP server and closes the stream hub.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.server.Shutdown(ctx)
	s.hub.Close()
	return err
}

// handleSubmit accepts one event submission.
// POST /events
func (s *Server) handleSubmit(c *gin.Context) {
	var raw event.HookEvent
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	// Identity and enrichment are server-assigned; ignore whatever the
	// producer sent.
	raw.ID = 0
	raw.Summary = ""

	stored, err := s.svc.Submit(c.Request.Context(), raw)
	if err != nil {
		s.writeError(c, err, "failed to ingest event")
		return
	}
	c.JSON(http.StatusOK, stored)
}

// handleRecent returns recent events, oldest first.
// GET /events/recent?limit=N
func (s *Server) handleRecent(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}
	events, err := s.svc.Query(c.Request.Context(), limit)
	if err != nil {
		s.writeError(c, err, "failed to query events")
		return
	}
	if events == nil {
		events = []event.HookEvent{}
	}
	c.JSON(http.StatusOK, events)
}

// handleFilterOptions returns the distinct filterable values.
// GET /events/filter-options
func (s *Server) handleFilterOptions(c *gin.Context) {
	opts, err := s.svc.FilterOptions(c.Request.Context())
	if err != nil {
		s.writeError(c, err, "failed to query filter options")
		return
	}
	c.JSON(http.StatusOK, opts)
}

// handleClear destructively empties history and notifies all subscribers.
// DELETE /events
func (s *Server) handleClear(c *gin.Context) {
	if err := s.svc.ClearAll(c.Request.Context()); err != nil {
		s.writeError(c, err, "failed to clear events")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "events cleared"})
}

// handleStream upgrades the connection and registers it with the hub. The
// handler owns the read side: it discards inbound frames, refreshes the read
// deadline on pongs, and unsubscribes on any read error.
// GET /stream
func (s *Server) handleStream(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	sub := s.hub.Subscribe(conn)
	if sub == nil {
		return
	}

	conn.SetReadLimit(1024)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err = conn.ReadMessage(); err != nil {
			break
		}
	}
	s.hub.Unsubscribe(sub)
}

func (s *Server) writeError(c *gin.Context, err error, fallback string) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.HTTPStatusCode >= http.StatusInternalServerError {
			log.WithError(err).Error(fallback)
		}
		c.JSON(appErr.HTTPStatusCode, appErr)
		return
	}
	log.WithError(err).Error(fallback)
	c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
}

// corsMiddleware allows the dashboard, served from another origin during
// development, to call the API.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
