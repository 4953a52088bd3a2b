package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// auditHandler handles GET /audit/:session_id.
func (s *Server) auditHandler(c *gin.Context) {
	sessionID := c.Param("session_id")

	records, err := s.audit.Records(sessionID)
	if err != nil {
		mapAuditError(c, sessionID, err)
		return
	}

	c.JSON(http.StatusOK, AuditResponse{
		SessionID: sessionID,
		LogCount:  len(records),
		Logs:      records,
	})
}

// exportHandler handles GET /export/:session_id?format=json|markdown.
func (s *Server) exportHandler(c *gin.Context) {
	sessionID := c.Param("session_id")
	format := c.DefaultQuery("format", "json")

	var (
		file string
		err  error
	)
	switch format {
	case "json":
		file, err = s.audit.ExportJSON(sessionID)
	case "markdown":
		file, err = s.audit.ExportMarkdown(sessionID)
	default:
		writeError(c, http.StatusBadRequest, "format must be json or markdown", sessionID)
		return
	}
	if err != nil {
		mapAuditError(c, sessionID, err)
		return
	}

	c.JSON(http.StatusOK, ExportResponse{
		SessionID: sessionID,
		Format:    format,
		File:      file,
	})
}
