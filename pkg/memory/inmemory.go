package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lankalegal/neethi/pkg/models"
)

// InMemoryBinder keeps case memory in process memory. It backs development
// runs without a database; a restart forgets every turn.
type InMemoryBinder struct {
	mu       sync.RWMutex
	messages []models.CaseMessage
}

// NewInMemoryBinder creates an empty in-process binder.
func NewInMemoryBinder() *InMemoryBinder {
	return &InMemoryBinder{}
}

// LoadContext filters the stored messages the same way the PostgreSQL store
// queries them: the incident's thread, then the user's turns from other
// incidents, both in insertion order.
func (b *InMemoryBinder) LoadContext(_ context.Context, incidentID, userID string) ([]models.CaseMessage, []models.CaseMessage, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var incident, global []models.CaseMessage
	for _, m := range b.messages {
		switch {
		case m.IncidentID == incidentID:
			incident = append(incident, m)
		case m.UserID == userID:
			global = append(global, m)
		}
	}
	return incident, global, nil
}

// PersistTurn appends the user and assistant messages atomically under the
// binder's lock.
func (b *InMemoryBinder) PersistTurn(_ context.Context, incidentID, userID, userMsg, assistantMsg string) error {
	now := time.Now().UTC()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages,
		models.CaseMessage{
			ID:         uuid.New().String(),
			IncidentID: incidentID,
			UserID:     userID,
			Role:       models.RoleUser,
			Content:    userMsg,
			CreatedAt:  now,
		},
		models.CaseMessage{
			ID:         uuid.New().String(),
			IncidentID: incidentID,
			UserID:     userID,
			Role:       models.RoleAssistant,
			Content:    assistantMsg,
			CreatedAt:  now.Add(time.Microsecond),
		})
	return nil
}

// Close is a no-op; there is nothing to release.
func (b *InMemoryBinder) Close() {}
