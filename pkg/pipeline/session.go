package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lankalegal/neethi/pkg/models"
)

// Session scopes one pipeline invocation. It is the unit of audit
// aggregation: every record the run emits carries the session id.
type Session struct {
	ID         string
	IncidentID string
	UserID     string
	StartedAt  time.Time
}

// NewSession mints a session for one standalone query.
func NewSession() Session {
	return Session{
		ID:        uuid.New().String(),
		StartedAt: time.Now().UTC(),
	}
}

// NewIncidentSession mints a session bound to an incident's case memory.
func NewIncidentSession(incidentID, userID string) Session {
	s := NewSession()
	s.IncidentID = incidentID
	s.UserID = userID
	return s
}

// memoryContext is the case history loaded for one run. prompt is threaded
// into the processed query so follow-up retrieval sees the conversation.
type memoryContext struct {
	prompt        string
	incidentTurns int
	globalTurns   int
}

// userContextUsed reports whether cross-incident history entered the run.
func (m memoryContext) userContextUsed() bool {
	return m.globalTurns > 0
}

// formatMemoryPrompt renders prior turns for the processed query. Incident
// turns carry the running conversation inside this case; global turns are
// the same user's exchanges from other cases.
func formatMemoryPrompt(incident, global []models.CaseMessage) string {
	var sb strings.Builder
	writeTurns(&sb, "Earlier in this case:", incident)
	if len(global) > 0 {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		writeTurns(&sb, "From the user's other cases:", global)
	}
	return sb.String()
}

func writeTurns(sb *strings.Builder, heading string, turns []models.CaseMessage) {
	if len(turns) == 0 {
		return
	}
	sb.WriteString(heading)
	for _, m := range turns {
		fmt.Fprintf(sb, "\n%s: %s", m.Role, m.Content)
	}
}
