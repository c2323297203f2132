package settings

import (
	"context"

	"faredown/models"
)

// Repository resolves bargain settings and promo codes.
type Repository interface {
	// GetSettings returns the effective settings for a module, with any
	// country/city market rule already merged in.
	GetSettings(ctx context.Context, module, countryCode, city string) (*models.ModuleSettings, error)
	// GetPromoCode returns an active promo code, or nil if none matches.
	GetPromoCode(ctx context.Context, code, module string) (*models.PromoCode, error)
}
