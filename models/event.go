package models

import "time"

// Bargain analytics event names, one per lifecycle transition.
const (
	EventSessionOpened  = "bargain_opened"
	EventOfferSubmitted = "bargain_offer_submitted"
	EventCounterShown   = "bargain_counter_shown"
	EventOfferAccepted  = "bargain_accepted"
	EventCounterDecline = "bargain_counter_rejected"
	EventSessionClosed  = "bargain_rejected"
	EventAbandoned      = "bargain_abandoned"
	EventHoldCreated    = "bargain_hold_created"
	EventCounterExpired = "bargain_counter_expired"
	EventHoldExpired    = "bargain_hold_expired"
)

// BargainEvent is one row of the raw analytics ledger.
type BargainEvent struct {
	ID        int64     `db:"id"`
	SessionID string    `db:"session_id"`
	Name      string    `db:"name"`
	Payload   []byte    `db:"payload"` // JSON
	CreatedAt time.Time `db:"created_at"`
}
