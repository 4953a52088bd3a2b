package api

import (
	"time"

	"github.com/lankalegal/neethi/pkg/models"
)

// Query envelope statuses. A refusal is a valid terminal outcome, so both
// serialize with HTTP 200.
const (
	StatusSuccess = "success"
	StatusRefused = "refused"
)

// QueryResponse is returned by POST /query. Data holds *models.Synthesized
// on success and *models.Refusal on refusal.
type QueryResponse struct {
	Status    string    `json:"status"`
	Data      any       `json:"data"`
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
}

// IncidentResponse is returned by POST /incidents/:id/agent.
type IncidentResponse struct {
	Response        string `json:"response"`
	UserContextUsed bool   `json:"user_context_used"`
	SessionID       string `json:"session_id"`
}

// AuditResponse is returned by GET /audit/:session_id.
type AuditResponse struct {
	SessionID string               `json:"session_id"`
	LogCount  int                  `json:"log_count"`
	Logs      []models.AuditRecord `json:"logs"`
}

// ExportResponse is returned by GET /export/:session_id. File is the path of
// the artifact written next to the session log.
type ExportResponse struct {
	SessionID string `json:"session_id"`
	Format    string `json:"format"`
	File      string `json:"file"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status       string    `json:"status"`
	MCPAvailable bool      `json:"mcp_available"`
	Timestamp    time.Time `json:"timestamp"`
}

// ErrorResponse is the stable error shape for every non-2xx body. No stack
// traces, no internal detail beyond Error.
type ErrorResponse struct {
	Error     string    `json:"error"`
	SessionID string    `json:"session_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// queryEnvelope shapes the terminal output into the /query envelope.
func queryEnvelope(output *models.Output, sessionID string) QueryResponse {
	resp := QueryResponse{
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
	}
	if output.IsRefusal() {
		resp.Status = StatusRefused
		resp.Data = output.Refused
		return resp
	}
	resp.Status = StatusSuccess
	resp.Data = output.Synthesized
	return resp
}
