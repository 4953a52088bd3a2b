package models

import "time"

// Agent names as they appear in audit records, in pipeline order.
const (
	AgentPlanner   = "planner"
	AgentRetriever = "retriever"
	AgentReasoner  = "reasoner"
	AgentValidator = "validator"
	AgentFormatter = "formatter"
)

// AuditRecord captures one agent step for forensic review.
// Records are append-only and write-once; Timestamp is UTC.
type AuditRecord struct {
	Timestamp      time.Time      `json:"timestamp"`
	SessionID      string         `json:"session_id"`
	AgentName      string         `json:"agent_name"`
	InputSnapshot  map[string]any `json:"input_snapshot"`
	OutputSnapshot map[string]any `json:"output_snapshot"`
	DurationMs     int64          `json:"duration_ms"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}
