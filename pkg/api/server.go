// Package api exposes the HTTP surface: one-shot queries, incident-bound
// queries with case memory, the audit trail, exports, and health. The
// pipeline result is already terminal by the time it reaches a handler, so
// handlers only shape envelopes; 4xx covers request validation, 5xx covers
// faults inside this package.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lankalegal/neethi/pkg/audit"
	"github.com/lankalegal/neethi/pkg/models"
	"github.com/lankalegal/neethi/pkg/pipeline"
	"github.com/lankalegal/neethi/pkg/retrieval"
)

// readHeaderTimeout bounds how long a client may dribble request headers.
const readHeaderTimeout = 10 * time.Second

// Pipeline runs one query to a terminal output. Satisfied by
// *pipeline.Orchestrator; tests substitute a scripted fake.
type Pipeline interface {
	Execute(ctx context.Context, query models.UserQuery, session pipeline.Session) *pipeline.Result
}

// Server is the HTTP server over the reasoning pipeline.
type Server struct {
	pipeline Pipeline
	audit    *audit.Logger
	gateway  retrieval.Gateway

	engine     *gin.Engine
	httpServer *http.Server
}

// NewServer wires the handlers and middleware onto a fresh gin engine.
func NewServer(p Pipeline, auditLogger *audit.Logger, gateway retrieval.Gateway) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(requestID(), requestLogger(), recovery())

	s := &Server{
		pipeline: p,
		audit:    auditLogger,
		gateway:  gateway,
		engine:   engine,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.engine.POST("/query", s.queryHandler)
	s.engine.POST("/incidents/:id/agent", s.incidentHandler)
	s.engine.GET("/audit/:session_id", s.auditHandler)
	s.engine.GET("/export/:session_id", s.exportHandler)
	s.engine.GET("/health", s.healthHandler)
}

// Handler returns the routed engine for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves on addr until Shutdown or a listener error. Blocking.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
