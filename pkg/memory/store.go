package memory

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lankalegal/neethi/pkg/models"
)

const (
	selectIncidentHistorySQL = `
		SELECT id, incident_id, user_id, role, content, created_at
		FROM case_messages
		WHERE incident_id = $1
		ORDER BY created_at ASC, seq ASC`

	selectGlobalHistorySQL = `
		SELECT id, incident_id, user_id, role, content, created_at
		FROM case_messages
		WHERE user_id = $1 AND incident_id <> $2
		ORDER BY created_at ASC, seq ASC`

	insertMessageSQL = `
		INSERT INTO case_messages (id, incident_id, user_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	upsertChatSessionSQL = `
		INSERT INTO chat_sessions (incident_id, user_id, message_count, last_active_at)
		VALUES ($1, $2, 2, $3)
		ON CONFLICT (incident_id, user_id)
		DO UPDATE SET message_count = chat_sessions.message_count + 2,
		              last_active_at = EXCLUDED.last_active_at`
)

// Store is the PostgreSQL case memory binder. Migrations are applied before
// the pool opens.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore applies pending migrations and opens the connection pool.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}

	if err := runMigrations(databaseURL, poolCfg.ConnConfig.Database); err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("opening connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logger := slog.Default()
	logger.Info("Case memory store ready", "database", poolCfg.ConnConfig.Database)
	return &Store{pool: pool, logger: logger}, nil
}

// LoadContext returns the incident's conversation and the user's turns from
// other incidents, each ascending by creation time.
func (s *Store) LoadContext(ctx context.Context, incidentID, userID string) ([]models.CaseMessage, []models.CaseMessage, error) {
	incident, err := s.queryMessages(ctx, selectIncidentHistorySQL, incidentID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading incident history: %w", err)
	}

	global, err := s.queryMessages(ctx, selectGlobalHistorySQL, userID, incidentID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading global history: %w", err)
	}

	return incident, global, nil
}

// PersistTurn writes the user message, the assistant message, and the
// chat-session upsert in one transaction.
func (s *Store) PersistTurn(ctx context.Context, incidentID, userID, userMsg, assistantMsg string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning turn transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// The assistant row sits a microsecond after the user row so ascending
	// created_at keeps the exchange in speaking order.
	now := time.Now().UTC()
	if err := insertMessage(ctx, tx, incidentID, userID, models.RoleUser, userMsg, now); err != nil {
		return err
	}
	if err := insertMessage(ctx, tx, incidentID, userID, models.RoleAssistant, assistantMsg, now.Add(time.Microsecond)); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, upsertChatSessionSQL, incidentID, userID, now); err != nil {
		return fmt.Errorf("upserting chat session: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing turn: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) queryMessages(ctx context.Context, query string, args ...any) ([]models.CaseMessage, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.CaseMessage
	for rows.Next() {
		var (
			m    models.CaseMessage
			role string
		)
		if err := rows.Scan(&m.ID, &m.IncidentID, &m.UserID, &role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Role = models.Role(role)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func insertMessage(ctx context.Context, tx pgx.Tx, incidentID, userID string, role models.Role, content string, at time.Time) error {
	_, err := tx.Exec(ctx, insertMessageSQL,
		uuid.New().String(), incidentID, userID, string(role), content, at)
	if err != nil {
		return fmt.Errorf("inserting %s message: %w", role, err)
	}
	return nil
}
