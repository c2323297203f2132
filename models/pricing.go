package models

// BargainPricingRequest is the input to the pricing collaborator when a
// session starts.
type BargainPricingRequest struct {
	Type      string  `json:"type"`
	ItemID    string  `json:"itemId"`
	BasePrice float64 `json:"basePrice"`
	UserType  string  `json:"userType"`

	Airline      string `json:"airline,omitempty"`
	RouteFrom    string `json:"routeFrom,omitempty"`
	RouteTo      string `json:"routeTo,omitempty"`
	CabinClass   string `json:"cabinClass,omitempty"`
	City         string `json:"city,omitempty"`
	HotelName    string `json:"hotelName,omitempty"`
	StarRating   string `json:"starRating,omitempty"`
	RoomCategory string `json:"roomCategory,omitempty"`
	Location     string `json:"location,omitempty"`
	Category     string `json:"category,omitempty"`
	ActivityName string `json:"activityName,omitempty"`

	PromoCode    string `json:"promoCode,omitempty"`
	CountryCode  string `json:"countryCode,omitempty"`
	UserLocation string `json:"userLocation,omitempty"`
	DeviceType   string `json:"deviceType,omitempty"`
}

// MarkupRange is a percentage band applied over the supplier net fare.
type MarkupRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// MarkupDetails records how the displayed price was derived from the net fare.
type MarkupDetails struct {
	MarkupPercentage float64     `json:"markupPercentage"`
	MarkupAmount     float64     `json:"markupAmount"`
	MarkupRange      MarkupRange `json:"markupRange"`
}

// PromoDetails is present only when a promo code survived validation.
type PromoDetails struct {
	Code               string  `json:"code"`
	DiscountAmount     float64 `json:"discountAmount"`
	DiscountPercentage float64 `json:"discountPercentage"`
	AppliedAfterMarkup bool    `json:"appliedAfterMarkup"`
}

// BargainRange is the negotiation envelope for one session.
type BargainRange struct {
	MinimumAcceptable   float64 `json:"minimumAcceptable"`
	MaximumCounterOffer float64 `json:"maximumCounterOffer"`
	RecommendedTarget   float64 `json:"recommendedTarget"`
	SavingsOpportunity  float64 `json:"savingsOpportunity"`
}

// Consistent verifies the bound ordering the negotiation engine relies on.
func (r BargainRange) Consistent(finalPrice float64) bool {
	return r.MinimumAcceptable <= r.RecommendedTarget &&
		r.RecommendedTarget <= r.MaximumCounterOffer &&
		r.MaximumCounterOffer <= finalPrice
}

// BargainPricingResult is the pricing snapshot computed once at session
// init. Immutable for the lifetime of the session.
type BargainPricingResult struct {
	OriginalPrice float64       `json:"originalPrice"`
	MarkedUpPrice float64       `json:"markedUpPrice"`
	FinalPrice    float64       `json:"finalPrice"`
	MarkupDetails MarkupDetails `json:"markupDetails"`
	PromoDetails  *PromoDetails `json:"promoDetails,omitempty"`
	BargainRange  BargainRange  `json:"bargainRange"`
}

// CounterOfferRequest asks the pricing collaborator to respond to a user
// offer that fell outside the acceptance window.
type CounterOfferRequest struct {
	SessionID            string        `json:"sessionId"`
	OriginalPrice        float64       `json:"originalPrice"`
	UserOfferPrice       float64       `json:"userOfferPrice"`
	CurrentMarkedUpPrice float64       `json:"currentMarkedUpPrice"`
	MarkupDetails        MarkupDetails `json:"markupDetails"`
	PromoDetails         *PromoDetails `json:"promoDetails,omitempty"`
	BargainRange         BargainRange  `json:"bargainRange"`
	// PreviousCounterOffer caps the next counter so the system never
	// re-raises within a session. Zero on the first round.
	PreviousCounterOffer float64 `json:"previousCounterOffer,omitempty"`
}

// CounterOfferResponse is the collaborator's decision on a user offer.
type CounterOfferResponse struct {
	Accepted           bool    `json:"accepted"`
	CounterOffer       float64 `json:"counterOffer,omitempty"`
	FinalPrice         float64 `json:"finalPrice,omitempty"`
	Reasoning          string  `json:"reasoning"`
	SavingsAmount      float64 `json:"savingsAmount,omitempty"`
	SavingsPercentage  float64 `json:"savingsPercentage,omitempty"`
	NextRecommendation string  `json:"nextRecommendation,omitempty"`
}
