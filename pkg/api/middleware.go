package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const headerRequestID = "X-Request-ID"

// Gin context keys shared across middleware and handlers.
const (
	ctxKeyRequestID = "request_id"
	ctxKeySessionID = "session_id"
)

// requestID tags every request with an id, honoring one supplied by the
// caller, and echoes it on the response.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(ctxKeyRequestID, id)
		c.Writer.Header().Set(headerRequestID, id)
		c.Next()
	}
}

// requestLogger emits one structured line per request after it completes.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		slog.Info("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", c.GetString(ctxKeyRequestID))
	}
}

// recovery converts handler panics into the stable 500 shape. Handlers stash
// the session id in the gin context as soon as one exists so the shape can
// carry it even on a panic.
func recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Handler panic",
					"panic", r,
					"path", c.Request.URL.Path,
					"request_id", c.GetString(ctxKeyRequestID))
				writeError(c, http.StatusInternalServerError, "internal server error",
					c.GetString(ctxKeySessionID))
			}
		}()
		c.Next()
	}
}
