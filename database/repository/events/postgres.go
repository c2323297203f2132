package events

import (
	"context"
	"fmt"

	"faredown/models"

	"github.com/jmoiron/sqlx"
)

// PostgresEventRepo implements Repository over the bargain_events_raw table.
type PostgresEventRepo struct {
	db *sqlx.DB
}

func NewPostgresEventRepo(db *sqlx.DB) *PostgresEventRepo {
	return &PostgresEventRepo{db: db}
}

func (r *PostgresEventRepo) Insert(ctx context.Context, event *models.BargainEvent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO bargain_events_raw (session_id, name, payload)
		 VALUES ($1, $2, $3)`,
		event.SessionID, event.Name, event.Payload)
	if err != nil {
		return fmt.Errorf("failed to insert bargain event: %w", err)
	}
	return nil
}

func (r *PostgresEventRepo) ListBySession(ctx context.Context, sessionID string) ([]models.BargainEvent, error) {
	var out []models.BargainEvent
	err := r.db.SelectContext(ctx, &out,
		`SELECT id, session_id, name, payload, created_at
		 FROM bargain_events_raw
		 WHERE session_id = $1
		 ORDER BY created_at`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bargain events: %w", err)
	}
	return out, nil
}
