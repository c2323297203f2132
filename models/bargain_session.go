package models

import "time"

// SessionState tracks where a bargain session sits in its lifecycle.
type SessionState string

const (
	SessionLoading     SessionState = "loading"
	SessionInitial     SessionState = "initial"
	SessionNegotiating SessionState = "negotiating"
	SessionSuccess     SessionState = "success"
	SessionRejected    SessionState = "rejected"
)

// Terminal reports whether no further transitions are allowed.
func (s SessionState) Terminal() bool {
	return s == SessionSuccess || s == SessionRejected
}

// ItemContext identifies the product being bargained for. Immutable once
// the session starts.
type ItemContext struct {
	Type      string  `json:"type"` // flight | hotel | sightseeing | transfer
	ItemID    string  `json:"itemId"`
	BasePrice float64 `json:"basePrice"`
	UserType  string  `json:"userType"` // b2c | b2b

	// Flight specific.
	Airline    string `json:"airline,omitempty"`
	RouteFrom  string `json:"routeFrom,omitempty"`
	RouteTo    string `json:"routeTo,omitempty"`
	CabinClass string `json:"cabinClass,omitempty"`

	// Hotel specific.
	City         string `json:"city,omitempty"`
	HotelName    string `json:"hotelName,omitempty"`
	StarRating   string `json:"starRating,omitempty"`
	RoomCategory string `json:"roomCategory,omitempty"`

	// Sightseeing specific.
	Location     string `json:"location,omitempty"`
	Category     string `json:"category,omitempty"`
	ActivityName string `json:"activityName,omitempty"`

	// User context.
	PromoCode    string `json:"promoCode,omitempty"`
	CountryCode  string `json:"countryCode,omitempty"`
	UserLocation string `json:"userLocation,omitempty"`
	DeviceType   string `json:"deviceType,omitempty"` // mobile | desktop
}

// BargainSession holds all negotiation state for one item between session
// start and a terminal outcome. Stored as a JSON blob in Redis.
type BargainSession struct {
	SessionID string               `json:"sessionId"`
	Item      ItemContext          `json:"item"`
	Pricing   BargainPricingResult `json:"pricing"`

	AttemptCount int          `json:"attemptCount"`
	MaxAttempts  int          `json:"maxAttempts"`
	State        SessionState `json:"state"`

	// Counter-offer validity windows captured from module settings at init.
	Round1TimerSec int `json:"r1TimerSec"`
	Round2TimerSec int `json:"r2TimerSec"`

	LastUserOffer    float64               `json:"lastUserOffer,omitempty"`
	LastResponse     *CounterOfferResponse `json:"lastResponse,omitempty"`
	LastCounterOffer float64               `json:"lastCounterOffer,omitempty"`
	CounterExpiresAt *time.Time            `json:"counterExpiresAt,omitempty"`

	// AgreedPrice is set when the session reaches the success state.
	AgreedPrice float64 `json:"agreedPrice,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CounterStanding reports whether an unexpired counter-offer is awaiting a
// user decision.
func (s *BargainSession) CounterStanding(now time.Time) bool {
	if s.State != SessionNegotiating || s.LastResponse == nil || s.LastResponse.CounterOffer <= 0 {
		return false
	}
	if s.CounterExpiresAt != nil && now.After(*s.CounterExpiresAt) {
		return false
	}
	return true
}
