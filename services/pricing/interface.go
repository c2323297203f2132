package pricing

import (
	"context"

	"faredown/models"
)

// Service is the pricing collaborator contract. The negotiation engine
// calls CalculateInitialPricing exactly once per session; ProcessCounterOffer
// is consulted for offers that fall outside the acceptance window.
type Service interface {
	CalculateInitialPricing(ctx context.Context, req *models.BargainPricingRequest) (*models.BargainPricingResult, error)
	ProcessCounterOffer(ctx context.Context, req *models.CounterOfferRequest) (*models.CounterOfferResponse, error)
}

// SupportedModule reports whether bargaining exists for a product type.
func SupportedModule(module string) bool {
	switch module {
	case "flight", "hotel", "sightseeing", "transfer":
		return true
	}
	return false
}
