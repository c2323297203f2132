package models

import "time"

// ModuleSettings are the per-product-type bargain knobs, resolved from the
// base row plus any matching market rule.
type ModuleSettings struct {
	Module  string `db:"module" json:"module"`
	Enabled bool   `db:"enabled" json:"enabled"`

	// Attempts is the maximum number of user offers per session.
	Attempts int `db:"attempts" json:"attempts"`

	// Counter-offer validity windows, in seconds, per round.
	Round1TimerSec int `db:"r1_timer_sec" json:"r1TimerSec"`
	Round2TimerSec int `db:"r2_timer_sec" json:"r2TimerSec"`

	// CurrentFare is the user-visible markup band; the displayed price is
	// randomized inside it.
	CurrentFareMinPct float64 `db:"current_fare_min_pct" json:"currentFareMinPct"`
	CurrentFareMaxPct float64 `db:"current_fare_max_pct" json:"currentFareMaxPct"`

	// BargainFare is the band offers are negotiated inside.
	BargainFareMinPct float64 `db:"bargain_fare_min_pct" json:"bargainFareMinPct"`
	BargainFareMaxPct float64 `db:"bargain_fare_max_pct" json:"bargainFareMaxPct"`

	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// MarketRule overrides base settings for a country and/or city. Nil fields
// inherit the base value. City rules beat country rules.
type MarketRule struct {
	Module      string  `db:"module"`
	CountryCode *string `db:"country_code"`
	City        *string `db:"city"`

	Attempts          *int     `db:"attempts"`
	Round1TimerSec    *int     `db:"r1_timer_sec"`
	Round2TimerSec    *int     `db:"r2_timer_sec"`
	CurrentFareMinPct *float64 `db:"current_fare_min_pct"`
	CurrentFareMaxPct *float64 `db:"current_fare_max_pct"`
	BargainFareMinPct *float64 `db:"bargain_fare_min_pct"`
	BargainFareMaxPct *float64 `db:"bargain_fare_max_pct"`
}

// PromoCode is a discount applied after markup, never below the minimum
// markup threshold.
type PromoCode struct {
	Code            string  `db:"code" json:"code"`
	DiscountAmount  float64 `db:"discount_amount" json:"discountAmount"`
	DiscountPercent float64 `db:"discount_percent" json:"discountPercent"`
	Module          string  `db:"module" json:"module"` // empty = any
	Active          bool    `db:"active" json:"active"`
}
