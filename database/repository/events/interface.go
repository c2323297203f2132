package events

import (
	"context"

	"faredown/models"
)

// Repository persists raw bargain analytics events.
type Repository interface {
	Insert(ctx context.Context, event *models.BargainEvent) error
	ListBySession(ctx context.Context, sessionID string) ([]models.BargainEvent, error)
}
