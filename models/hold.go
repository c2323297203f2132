package models

import "time"

// PriceHold reserves a successfully negotiated price while the user
// completes booking. Stored in Redis and expires on its own.
type PriceHold struct {
	HoldToken string    `json:"holdToken"`
	SessionID string    `json:"sessionId"`
	ItemID    string    `json:"itemId"`
	Module    string    `json:"module"`
	Price     float64   `json:"price"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}
