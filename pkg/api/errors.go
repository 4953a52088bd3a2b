package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lankalegal/neethi/pkg/audit"
)

// writeError emits the stable error shape. sessionID may be empty when the
// failure happened before a session existed.
func writeError(c *gin.Context, status int, message, sessionID string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:     message,
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
	})
}

// mapAuditError maps audit-store errors onto HTTP statuses: a malformed id
// is the client's fault, an unknown session is absent, anything else is ours.
func mapAuditError(c *gin.Context, sessionID string, err error) {
	switch {
	case errors.Is(err, audit.ErrBadSessionID):
		writeError(c, http.StatusBadRequest, "invalid session id", sessionID)
	case errors.Is(err, audit.ErrNoSession):
		writeError(c, http.StatusNotFound, "no audit records for session", sessionID)
	default:
		slog.Error("Audit store error", "session_id", sessionID, "error", err)
		writeError(c, http.StatusInternalServerError, "internal server error", sessionID)
	}
}
