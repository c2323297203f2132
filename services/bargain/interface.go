package bargain

import (
	"context"
	"sync"
	"time"

	settingsRepo "faredown/database/repository/settings"
	"faredown/models"
	"faredown/services/analytics"
	"faredown/services/pricing"

	"go.uber.org/zap"
)

// SessionService drives one bargain session from pricing init to a
// terminal outcome.
type SessionService interface {
	InitiateSession(ctx context.Context, item models.ItemContext) (*models.BargainSession, error)
	GetSession(ctx context.Context, sessionID string) (*models.BargainSession, error)
	EvaluateOffer(ctx context.Context, sessionID string, offer float64) (*models.BargainSession, *models.CounterOfferResponse, error)
	AcceptCounterOffer(ctx context.Context, sessionID string) (*models.BargainSession, error)
	RejectCounterOffer(ctx context.Context, sessionID string) (*models.BargainSession, error)
	CreateHold(ctx context.Context, sessionID string) (*models.PriceHold, error)
	AbandonSession(ctx context.Context, sessionID string, reason string) error
}

// ExpiryScheduler enqueues deferred expiry checks for counter-offers
// and price holds. Failures are logged, never surfaced to the user.
type ExpiryScheduler interface {
	ScheduleCounterExpiry(ctx context.Context, sessionID string, at time.Time) error
	ScheduleHoldExpiry(ctx context.Context, sessionID, holdToken string, at time.Time) error
}

// DefaultBargainService implements SessionService.
type DefaultBargainService struct {
	Pricing   pricing.Service
	Settings  settingsRepo.Repository
	Sessions  SessionStore
	Holds     HoldStore
	Analytics analytics.Recorder
	Scheduler ExpiryScheduler
	Logger    *zap.Logger

	HoldTTL time.Duration

	// Now is swapped out in tests; defaults to time.Now.
	Now func() time.Time

	// Per-session locks so offers are evaluated strictly in submission
	// order. The session blob itself lives in Redis.
	locks sync.Map
}

func (s *DefaultBargainService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// lockSession serializes operations on one session. Returns the unlock func.
func (s *DefaultBargainService) lockSession(sessionID string) func() {
	v, _ := s.locks.LoadOrStore(sessionID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
