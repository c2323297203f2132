package pricing

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	settingsRepo "faredown/database/repository/settings"
	"faredown/models"
)

// LocalEngine computes bargain pricing in-process from the per-module
// settings stored in Postgres. It is the authority when no remote pricing
// service is configured, and the fallback when the remote one fails.
type LocalEngine struct {
	Settings settingsRepo.Repository

	mu  sync.Mutex
	rng *rand.Rand
}

func NewLocalEngine(repo settingsRepo.Repository) *LocalEngine {
	return &LocalEngine{
		Settings: repo,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewLocalEngineWithSeed pins the markup randomization for reproducible runs.
func NewLocalEngineWithSeed(repo settingsRepo.Repository, seed int64) *LocalEngine {
	return &LocalEngine{
		Settings: repo,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// CalculateInitialPricing applies a randomized markup within the module's
// current-fare band, applies any promo code after markup (never dropping
// below the minimum bargain threshold), and derives the bargain range.
func (e *LocalEngine) CalculateInitialPricing(ctx context.Context, req *models.BargainPricingRequest) (*models.BargainPricingResult, error) {
	if req.BasePrice <= 0 {
		return nil, fmt.Errorf("base price must be positive, got %.2f", req.BasePrice)
	}
	if !SupportedModule(req.Type) {
		return nil, fmt.Errorf("unsupported product type %q", req.Type)
	}

	settings, err := e.Settings.GetSettings(ctx, req.Type, req.CountryCode, req.City)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve bargain settings: %w", err)
	}
	if !settings.Enabled {
		return nil, fmt.Errorf("bargaining is disabled for module %q", req.Type)
	}

	markupPct := e.randomizeMarkupInRange(settings.CurrentFareMinPct, settings.CurrentFareMaxPct)
	markupAmount := round2(req.BasePrice * markupPct / 100)
	markedUp := round2(req.BasePrice + markupAmount)

	// The final price never drops below the minimum bargain threshold,
	// promo or not.
	minimumPrice := round2(req.BasePrice * (1 + settings.BargainFareMinPct/100))

	finalPrice := markedUp
	var promo *models.PromoDetails
	if req.PromoCode != "" {
		promo, finalPrice, err = e.applyPromo(ctx, req, markedUp, minimumPrice)
		if err != nil {
			return nil, err
		}
	}

	discount := 0.0
	if promo != nil {
		discount = promo.DiscountAmount
	}

	return &models.BargainPricingResult{
		OriginalPrice: req.BasePrice,
		MarkedUpPrice: markedUp,
		FinalPrice:    finalPrice,
		MarkupDetails: models.MarkupDetails{
			MarkupPercentage: markupPct,
			MarkupAmount:     markupAmount,
			MarkupRange: models.MarkupRange{
				Min: settings.CurrentFareMinPct,
				Max: settings.CurrentFareMaxPct,
			},
		},
		PromoDetails: promo,
		BargainRange: bargainRange(req.BasePrice, settings.BargainFareMinPct, settings.BargainFareMaxPct, discount, finalPrice),
	}, nil
}

// ProcessCounterOffer accepts any offer inside the bargain window and
// otherwise counters halfway between the offer and the current ceiling.
// The ceiling is the previous counter when one exists, so counters can
// only move toward the user across rounds.
func (e *LocalEngine) ProcessCounterOffer(ctx context.Context, req *models.CounterOfferRequest) (*models.CounterOfferResponse, error) {
	if req.UserOfferPrice <= 0 || math.IsNaN(req.UserOfferPrice) || math.IsInf(req.UserOfferPrice, 0) {
		return nil, fmt.Errorf("user offer must be a finite positive number")
	}

	floor := req.BargainRange.MinimumAcceptable
	ceiling := req.BargainRange.MaximumCounterOffer
	if req.PreviousCounterOffer > 0 && req.PreviousCounterOffer < ceiling {
		ceiling = req.PreviousCounterOffer
	}
	if ceiling < floor {
		ceiling = floor
	}

	displayed := req.CurrentMarkedUpPrice
	if req.UserOfferPrice >= floor && req.UserOfferPrice <= displayed {
		savings := round2(displayed - req.UserOfferPrice)
		return &models.CounterOfferResponse{
			Accepted:          true,
			FinalPrice:        req.UserOfferPrice,
			SavingsAmount:     savings,
			SavingsPercentage: round2(savings / displayed * 100),
			Reasoning: fmt.Sprintf("Your price is matched! %.0f is within our acceptable bargain range.",
				req.UserOfferPrice),
			NextRecommendation: "Proceed to booking confirmation at your desired price.",
		}, nil
	}

	anchor := req.UserOfferPrice
	if anchor < floor {
		anchor = floor
	}
	counter := round2((anchor + ceiling) / 2)
	if counter > ceiling {
		counter = ceiling
	}
	if counter < floor {
		counter = floor
	}

	savings := round2(displayed - counter)
	return &models.CounterOfferResponse{
		Accepted:          false,
		CounterOffer:      counter,
		SavingsAmount:     savings,
		SavingsPercentage: round2(savings / displayed * 100),
		Reasoning: fmt.Sprintf("We hear you! How about %.0f? This offer is valid for a limited time.",
			counter),
		NextRecommendation: fmt.Sprintf("Save %.0f with our counter-offer.", savings),
	}, nil
}

// randomizeMarkupInRange draws a markup percentage inside [min, max] with a
// mild bias toward the upper middle of the band, rounded to 2 decimals.
func (e *LocalEngine) randomizeMarkupInRange(minPct, maxPct float64) float64 {
	e.mu.Lock()
	r := e.rng.Float64()
	e.mu.Unlock()

	biased := math.Pow(r, 0.8)
	return round2(minPct + (maxPct-minPct)*biased)
}

func (e *LocalEngine) applyPromo(ctx context.Context, req *models.BargainPricingRequest, markedUp, minimumPrice float64) (*models.PromoDetails, float64, error) {
	promo, err := e.Settings.GetPromoCode(ctx, req.PromoCode, req.Type)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to validate promo code: %w", err)
	}
	if promo == nil {
		// Unknown or inactive code: price stands, no promo recorded.
		return nil, markedUp, nil
	}

	discount := promo.DiscountAmount
	if discount <= 0 && promo.DiscountPercent > 0 {
		discount = markedUp * promo.DiscountPercent / 100
	}
	// Clamp so the discounted price respects the minimum threshold.
	if markedUp-discount < minimumPrice {
		discount = markedUp - minimumPrice
	}
	if discount <= 0 {
		return nil, markedUp, nil
	}
	discount = round2(discount)

	return &models.PromoDetails{
		Code:               promo.Code,
		DiscountAmount:     discount,
		DiscountPercentage: round2(discount / markedUp * 100),
		AppliedAfterMarkup: true,
	}, round2(markedUp - discount), nil
}

// bargainRange derives the negotiation envelope from the bargain-fare band.
// Bounds are constructed so that minimumAcceptable <= recommendedTarget <=
// maximumCounterOffer <= finalPrice always holds.
func bargainRange(basePrice, minPct, maxPct, promoDiscount, finalPrice float64) models.BargainRange {
	minimum := round2(basePrice*(1+minPct/100) - promoDiscount)
	maximum := round2(basePrice*(1+maxPct/100) - promoDiscount)
	if maximum > finalPrice {
		maximum = finalPrice
	}
	if minimum > maximum {
		minimum = maximum
	}

	// Recommended target sits slightly above the minimum for better margins.
	recommended := round2(minimum + (maximum-minimum)*0.3)
	if recommended < minimum {
		recommended = minimum
	}
	if recommended > maximum {
		recommended = maximum
	}

	return models.BargainRange{
		MinimumAcceptable:   minimum,
		MaximumCounterOffer: maximum,
		RecommendedTarget:   recommended,
		SavingsOpportunity:  round2(maximum - minimum),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
