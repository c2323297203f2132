package analytics

import (
	"context"
	"encoding/json"

	eventsRepo "faredown/database/repository/events"
	"faredown/models"

	"go.uber.org/zap"
)

// Recorder captures bargain lifecycle events. Recording is best-effort:
// a failed write must never fail the negotiation that triggered it.
type Recorder interface {
	Record(ctx context.Context, sessionID, name string, payload map[string]any)
}

// LedgerRecorder writes events to the raw Postgres ledger.
type LedgerRecorder struct {
	Repo   eventsRepo.Repository
	Logger *zap.Logger
}

func NewLedgerRecorder(repo eventsRepo.Repository, logger *zap.Logger) *LedgerRecorder {
	return &LedgerRecorder{Repo: repo, Logger: logger}
}

func (r *LedgerRecorder) Record(ctx context.Context, sessionID, name string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		r.Logger.Warn("failed to encode bargain event payload",
			zap.String("event", name), zap.Error(err))
		return
	}
	event := &models.BargainEvent{
		SessionID: sessionID,
		Name:      name,
		Payload:   data,
	}
	if err := r.Repo.Insert(ctx, event); err != nil {
		r.Logger.Warn("failed to persist bargain event",
			zap.String("event", name), zap.String("sessionId", sessionID), zap.Error(err))
	}
}

// MultiRecorder fans one event out to several recorders.
type MultiRecorder []Recorder

func (m MultiRecorder) Record(ctx context.Context, sessionID, name string, payload map[string]any) {
	for _, r := range m {
		r.Record(ctx, sessionID, name, payload)
	}
}

// NopRecorder discards everything. Used in tests.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, string, string, map[string]any) {}
