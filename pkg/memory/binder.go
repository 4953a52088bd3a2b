// Package memory persists per-incident conversation turns so follow-up
// questions can reuse earlier context. Histories come back in ascending
// creation order; the binder never deletes.
package memory

import (
	"context"
	"log/slog"

	"github.com/lankalegal/neethi/pkg/config"
	"github.com/lankalegal/neethi/pkg/models"
)

// Binder stitches case memory around a pipeline run. Incident history is the
// conversation inside one incident; global history is the same user's turns
// from other incidents.
type Binder interface {
	LoadContext(ctx context.Context, incidentID, userID string) (incident, global []models.CaseMessage, err error)
	// PersistTurn stores one user/assistant exchange. Both rows commit or
	// neither does.
	PersistTurn(ctx context.Context, incidentID, userID, userMsg, assistantMsg string) error
	Close()
}

// NewBinder selects the binder implementation from config: the PostgreSQL
// store when DATABASE_URL is set, otherwise an in-process binder that
// forgets everything on restart.
func NewBinder(ctx context.Context, cfg *config.Config) (Binder, error) {
	if cfg.DatabaseURL == "" {
		slog.Warn("DATABASE_URL is not set; case memory will not survive restarts")
		return NewInMemoryBinder(), nil
	}
	return NewStore(ctx, cfg.DatabaseURL)
}
