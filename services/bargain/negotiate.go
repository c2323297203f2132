package bargain

import (
	"context"
	"fmt"
	"math"
	"time"

	"faredown/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EvaluateOffer applies the decision policy to one user offer:
//
//  1. Offers inside [minimumAcceptable, finalPrice] are accepted at the
//     offered price.
//  2. Once the attempt cap is reached the session is terminally rejected.
//  3. Otherwise the pricing collaborator produces a counter-offer, which
//     is clamped so counters never rise across rounds and never drop
//     below minimumAcceptable.
//
// The attempt counter is not incremented when counter-offer processing
// fails; the user may retry the same offer.
func (s *DefaultBargainService) EvaluateOffer(ctx context.Context, sessionID string, offer float64) (*models.BargainSession, *models.CounterOfferResponse, error) {
	if offer <= 0 || math.IsNaN(offer) || math.IsInf(offer, 0) {
		return nil, nil, NewBargainError(CodeInvalidOffer, "offer must be a finite positive number")
	}

	unlock := s.lockSession(sessionID)
	defer unlock()

	session, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if session == nil {
		return nil, nil, NewBargainError(CodeSessionNotFound, "bargain session %s not found or expired", sessionID)
	}
	if session.State != models.SessionInitial && session.State != models.SessionNegotiating {
		return nil, nil, NewBargainError(CodeStateViolation,
			"cannot evaluate an offer in state %q", session.State)
	}

	now := s.now()
	attempts := session.AttemptCount + 1
	bounds := session.Pricing.BargainRange

	// Accept window: at or above the minimum, never above the displayed price.
	if offer >= bounds.MinimumAcceptable && offer <= session.Pricing.FinalPrice {
		savings := session.Pricing.FinalPrice - offer
		response := &models.CounterOfferResponse{
			Accepted:          true,
			FinalPrice:        offer,
			SavingsAmount:     savings,
			SavingsPercentage: savings / session.Pricing.FinalPrice * 100,
			Reasoning: fmt.Sprintf("Your price is matched! %.0f is within our acceptable bargain range.",
				offer),
			NextRecommendation: "Proceed to booking confirmation at your desired price.",
		}
		session.AttemptCount = attempts
		session.LastUserOffer = offer
		session.LastResponse = response
		session.CounterExpiresAt = nil
		session.State = models.SessionSuccess
		session.AgreedPrice = offer
		session.UpdatedAt = now

		if err := s.Sessions.Save(ctx, session); err != nil {
			return nil, nil, err
		}
		s.recordOffer(ctx, session, offer)
		s.Analytics.Record(ctx, sessionID, models.EventOfferAccepted, map[string]any{
			"agreedPrice": offer,
			"attempts":    attempts,
		})
		return session, response, nil
	}

	// Attempt cap reached: terminal rejection, no further counter.
	if attempts >= session.MaxAttempts {
		response := &models.CounterOfferResponse{
			Accepted: false,
			Reasoning: fmt.Sprintf("We couldn't agree on a price after %d attempts. The bargaining session has ended.",
				attempts),
			NextRecommendation: fmt.Sprintf("You can still book at the listed price of %.0f.",
				session.Pricing.FinalPrice),
		}
		session.AttemptCount = attempts
		session.LastUserOffer = offer
		session.LastResponse = response
		session.CounterExpiresAt = nil
		session.State = models.SessionRejected
		session.UpdatedAt = now

		if err := s.Sessions.Save(ctx, session); err != nil {
			return nil, nil, err
		}
		s.recordOffer(ctx, session, offer)
		s.Analytics.Record(ctx, sessionID, models.EventSessionClosed, map[string]any{
			"lastOffer": offer,
			"attempts":  attempts,
		})
		return session, response, nil
	}

	response, err := s.Pricing.ProcessCounterOffer(ctx, &models.CounterOfferRequest{
		SessionID:            sessionID,
		OriginalPrice:        session.Pricing.OriginalPrice,
		UserOfferPrice:       offer,
		CurrentMarkedUpPrice: session.Pricing.FinalPrice,
		MarkupDetails:        session.Pricing.MarkupDetails,
		PromoDetails:         session.Pricing.PromoDetails,
		BargainRange:         bounds,
		PreviousCounterOffer: session.LastCounterOffer,
	})
	if err != nil {
		// Session untouched: the user retries the same offer and the
		// attempt is not consumed.
		return nil, nil, NewBargainError(CodeCounterProcessingError,
			"failed to process counter-offer: %v", err)
	}

	if response.Accepted {
		agreed := response.FinalPrice
		if agreed <= 0 {
			agreed = offer
		}
		session.AttemptCount = attempts
		session.LastUserOffer = offer
		session.LastResponse = response
		session.CounterExpiresAt = nil
		session.State = models.SessionSuccess
		session.AgreedPrice = agreed
		session.UpdatedAt = now

		if err := s.Sessions.Save(ctx, session); err != nil {
			return nil, nil, err
		}
		s.recordOffer(ctx, session, offer)
		s.Analytics.Record(ctx, sessionID, models.EventOfferAccepted, map[string]any{
			"agreedPrice": agreed,
			"attempts":    attempts,
		})
		return session, response, nil
	}

	counter := s.clampCounter(session, response.CounterOffer)
	if counter != response.CounterOffer {
		s.Logger.Warn("counter-offer clamped to session bounds",
			zap.String("sessionId", sessionID),
			zap.Float64("proposed", response.CounterOffer),
			zap.Float64("clamped", counter))
		response.CounterOffer = counter
	}

	expiry := now.Add(s.counterValidity(session, attempts))
	session.AttemptCount = attempts
	session.LastUserOffer = offer
	session.LastResponse = response
	session.LastCounterOffer = counter
	session.CounterExpiresAt = &expiry
	session.State = models.SessionNegotiating
	session.UpdatedAt = now

	if err := s.Sessions.Save(ctx, session); err != nil {
		return nil, nil, err
	}
	s.recordOffer(ctx, session, offer)
	s.Analytics.Record(ctx, sessionID, models.EventCounterShown, map[string]any{
		"counterOffer": counter,
		"attempts":     attempts,
		"expiresAt":    expiry,
	})
	if s.Scheduler != nil {
		if err := s.Scheduler.ScheduleCounterExpiry(ctx, sessionID, expiry); err != nil {
			s.Logger.Warn("failed to schedule counter expiry check",
				zap.String("sessionId", sessionID), zap.Error(err))
		}
	}
	return session, response, nil
}

// AcceptCounterOffer locks in the standing counter-offer as the agreed price.
func (s *DefaultBargainService) AcceptCounterOffer(ctx context.Context, sessionID string) (*models.BargainSession, error) {
	unlock := s.lockSession(sessionID)
	defer unlock()

	session, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, NewBargainError(CodeSessionNotFound, "bargain session %s not found or expired", sessionID)
	}
	if session.State != models.SessionNegotiating || session.LastCounterOffer <= 0 {
		return nil, NewBargainError(CodeStateViolation,
			"no counter-offer to accept in state %q", session.State)
	}

	now := s.now()
	if !session.CounterStanding(now) {
		return nil, NewBargainError(CodeCounterOfferExpired,
			"the counter-offer of %.0f has expired", session.LastCounterOffer)
	}

	session.State = models.SessionSuccess
	session.AgreedPrice = session.LastCounterOffer
	session.CounterExpiresAt = nil
	session.UpdatedAt = now

	if err := s.Sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	s.Analytics.Record(ctx, sessionID, models.EventOfferAccepted, map[string]any{
		"agreedPrice": session.AgreedPrice,
		"attempts":    session.AttemptCount,
		"viaCounter":  true,
	})
	return session, nil
}

// RejectCounterOffer declines the standing counter. With attempts left the
// session waits for a new user offer; otherwise it ends terminally.
func (s *DefaultBargainService) RejectCounterOffer(ctx context.Context, sessionID string) (*models.BargainSession, error) {
	unlock := s.lockSession(sessionID)
	defer unlock()

	session, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, NewBargainError(CodeSessionNotFound, "bargain session %s not found or expired", sessionID)
	}
	if session.State != models.SessionNegotiating {
		return nil, NewBargainError(CodeStateViolation,
			"no counter-offer to reject in state %q", session.State)
	}

	now := s.now()
	session.CounterExpiresAt = nil
	session.UpdatedAt = now

	if session.AttemptCount >= session.MaxAttempts {
		session.State = models.SessionRejected
		if err := s.Sessions.Save(ctx, session); err != nil {
			return nil, err
		}
		s.Analytics.Record(ctx, sessionID, models.EventSessionClosed, map[string]any{
			"attempts": session.AttemptCount,
		})
		return session, nil
	}

	if err := s.Sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	s.Analytics.Record(ctx, sessionID, models.EventCounterDecline, map[string]any{
		"declined": session.LastCounterOffer,
		"attempts": session.AttemptCount,
	})
	return session, nil
}

// CreateHold reserves the agreed price for the configured hold window.
// Valid only after a successful negotiation.
func (s *DefaultBargainService) CreateHold(ctx context.Context, sessionID string) (*models.PriceHold, error) {
	unlock := s.lockSession(sessionID)
	defer unlock()

	session, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, NewBargainError(CodeSessionNotFound, "bargain session %s not found or expired", sessionID)
	}
	if session.State != models.SessionSuccess || session.AgreedPrice <= 0 {
		return nil, NewBargainError(CodeStateViolation,
			"price holds require a successful negotiation, session is %q", session.State)
	}

	now := s.now()
	hold := &models.PriceHold{
		HoldToken: "HOLD_" + uuid.New().String(),
		SessionID: sessionID,
		ItemID:    session.Item.ItemID,
		Module:    session.Item.Type,
		Price:     session.AgreedPrice,
		ExpiresAt: now.Add(s.HoldTTL),
		CreatedAt: now,
	}
	if err := s.Holds.Save(ctx, hold); err != nil {
		return nil, err
	}

	s.Analytics.Record(ctx, sessionID, models.EventHoldCreated, map[string]any{
		"holdToken": hold.HoldToken,
		"price":     hold.Price,
		"expiresAt": hold.ExpiresAt,
	})
	if s.Scheduler != nil {
		if err := s.Scheduler.ScheduleHoldExpiry(ctx, sessionID, hold.HoldToken, hold.ExpiresAt); err != nil {
			s.Logger.Warn("failed to schedule hold expiry check",
				zap.String("sessionId", sessionID), zap.Error(err))
		}
	}
	return hold, nil
}

// clampCounter enforces the monotonicity contract on collaborator output:
// a counter never exceeds the previous one and never undercuts the minimum.
func (s *DefaultBargainService) clampCounter(session *models.BargainSession, counter float64) float64 {
	bounds := session.Pricing.BargainRange
	ceiling := bounds.MaximumCounterOffer
	if session.LastCounterOffer > 0 && session.LastCounterOffer < ceiling {
		ceiling = session.LastCounterOffer
	}
	if counter > ceiling {
		counter = ceiling
	}
	if counter < bounds.MinimumAcceptable {
		counter = bounds.MinimumAcceptable
	}
	return counter
}

func (s *DefaultBargainService) counterValidity(session *models.BargainSession, attempt int) time.Duration {
	sec := session.Round1TimerSec
	if attempt > 1 {
		sec = session.Round2TimerSec
	}
	if sec <= 0 {
		sec = 30
	}
	return time.Duration(sec) * time.Second
}

func (s *DefaultBargainService) recordOffer(ctx context.Context, session *models.BargainSession, offer float64) {
	s.Analytics.Record(ctx, session.SessionID, models.EventOfferSubmitted, map[string]any{
		"offer":   offer,
		"attempt": session.AttemptCount,
	})
}
