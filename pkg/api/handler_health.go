package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// healthHandler handles GET /health: liveness plus corpus readiness. The
// service stays up with a degraded retrieval backend, so readiness is a 503,
// not a crash.
func (s *Server) healthHandler(c *gin.Context) {
	available := s.gateway != nil && s.gateway.Healthy()

	status := "ok"
	code := http.StatusOK
	if !available {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, HealthResponse{
		Status:       status,
		MCPAvailable: available,
		Timestamp:    time.Now().UTC(),
	})
}
