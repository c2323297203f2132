package bargain

import (
	"context"

	"faredown/models"
	"faredown/services/pricing"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InitiateSession fetches the pricing snapshot for the item, validates the
// returned bounds, and stores a fresh session in the initial state.
func (s *DefaultBargainService) InitiateSession(ctx context.Context, item models.ItemContext) (*models.BargainSession, error) {
	if item.BasePrice <= 0 {
		return nil, NewBargainError(CodeInvalidRequest, "base price must be positive, got %.2f", item.BasePrice)
	}
	if !pricing.SupportedModule(item.Type) {
		return nil, NewBargainError(CodeInvalidRequest, "unsupported product type %q", item.Type)
	}

	settings, err := s.Settings.GetSettings(ctx, item.Type, item.CountryCode, item.City)
	if err != nil {
		return nil, NewBargainError(CodePricingFetchFailed, "failed to resolve bargain settings: %v", err)
	}
	if !settings.Enabled {
		return nil, NewBargainError(CodeInvalidRequest, "bargaining is disabled for module %q", item.Type)
	}

	result, err := s.Pricing.CalculateInitialPricing(ctx, &models.BargainPricingRequest{
		Type:         item.Type,
		ItemID:       item.ItemID,
		BasePrice:    item.BasePrice,
		UserType:     item.UserType,
		Airline:      item.Airline,
		RouteFrom:    item.RouteFrom,
		RouteTo:      item.RouteTo,
		CabinClass:   item.CabinClass,
		City:         item.City,
		HotelName:    item.HotelName,
		StarRating:   item.StarRating,
		RoomCategory: item.RoomCategory,
		Location:     item.Location,
		Category:     item.Category,
		ActivityName: item.ActivityName,
		PromoCode:    item.PromoCode,
		CountryCode:  item.CountryCode,
		UserLocation: item.UserLocation,
		DeviceType:   item.DeviceType,
	})
	if err != nil {
		return nil, NewBargainError(CodePricingFetchFailed, "failed to fetch pricing: %v", err)
	}

	// Bounds from the collaborator must be internally consistent; a session
	// cannot be negotiated against a broken envelope.
	if result.FinalPrice <= 0 || !result.BargainRange.Consistent(result.FinalPrice) {
		s.Logger.Error("pricing collaborator returned inconsistent bounds",
			zap.String("itemId", item.ItemID),
			zap.Float64("minimumAcceptable", result.BargainRange.MinimumAcceptable),
			zap.Float64("recommendedTarget", result.BargainRange.RecommendedTarget),
			zap.Float64("maximumCounterOffer", result.BargainRange.MaximumCounterOffer),
			zap.Float64("finalPrice", result.FinalPrice))
		return nil, NewBargainError(CodePricingInconsistency,
			"pricing bounds violate minimumAcceptable <= recommendedTarget <= maximumCounterOffer <= finalPrice")
	}

	now := s.now()
	session := &models.BargainSession{
		SessionID:      uuid.New().String(),
		Item:           item,
		Pricing:        *result,
		AttemptCount:   0,
		MaxAttempts:    settings.Attempts,
		State:          models.SessionInitial,
		Round1TimerSec: settings.Round1TimerSec,
		Round2TimerSec: settings.Round2TimerSec,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.Sessions.Save(ctx, session); err != nil {
		return nil, NewBargainError(CodePricingFetchFailed, "failed to store session: %v", err)
	}

	s.Analytics.Record(ctx, session.SessionID, models.EventSessionOpened, map[string]any{
		"module":     item.Type,
		"itemId":     item.ItemID,
		"basePrice":  item.BasePrice,
		"finalPrice": result.FinalPrice,
		"promoCode":  item.PromoCode,
	})
	s.Logger.Info("bargain session opened",
		zap.String("sessionId", session.SessionID),
		zap.String("module", item.Type),
		zap.Float64("finalPrice", result.FinalPrice))

	return session, nil
}

// GetSession returns the live session or a sessionNotFound error.
func (s *DefaultBargainService) GetSession(ctx context.Context, sessionID string) (*models.BargainSession, error) {
	session, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, NewBargainError(CodeSessionNotFound, "bargain session %s not found or expired", sessionID)
	}
	return session, nil
}

// AbandonSession discards the session without committing anything. Safe to
// call at any point before a terminal state.
func (s *DefaultBargainService) AbandonSession(ctx context.Context, sessionID string, reason string) error {
	unlock := s.lockSession(sessionID)
	defer unlock()

	session, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if session == nil {
		return NewBargainError(CodeSessionNotFound, "bargain session %s not found or expired", sessionID)
	}

	if err := s.Sessions.Delete(ctx, sessionID); err != nil {
		return err
	}

	s.Analytics.Record(ctx, sessionID, models.EventAbandoned, map[string]any{
		"reason":   reason,
		"state":    string(session.State),
		"attempts": session.AttemptCount,
	})
	return nil
}
