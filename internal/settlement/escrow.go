// Package settlement creates and releases deposit escrows.
//
// The orchestrator sizes deposits by trust score, opens checkout sessions
// across payment channels with automatic fallback, and gates release on the
// verification engine's decision. Escrow amounts are fixed at creation time;
// only the status ever changes afterwards.
package settlement

import (
	"errors"
	"time"
)

// Status is the lifecycle state of an escrow.
//
//	pending → funded → released | partial_released | refunded
//
// An escrow only exists once a payment channel has produced a session; when
// every channel is down no record is written at all, so there is no failed
// state.
type Status string

const (
	StatusPending         Status = "pending"
	StatusFunded          Status = "funded"
	StatusReleased        Status = "released"
	StatusPartialReleased Status = "partial_released"
	StatusRefunded        Status = "refunded"
)

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusReleased, StatusPartialReleased, StatusRefunded:
		return true
	}
	return false
}

// Record is a held deposit awaiting a release or refund decision. Amount is
// computed once at creation (post trust multiplier) and never changes.
type Record struct {
	ID            string    `json:"id"`
	ListingID     string    `json:"listing_id"`
	TenantEmail   string    `json:"tenant_email"`
	LandlordEmail string    `json:"landlord_email"`
	Channel       string    `json:"channel"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	Status        Status    `json:"status"`
	SessionID     string    `json:"session_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

var (
	// ErrEscrowNotFound is returned when operating on an unknown escrow id.
	ErrEscrowNotFound = errors.New("escrow not found")

	// ErrEscrowSettled is returned when a transition is attempted on an
	// escrow already in a terminal state. It is always surfaced, never
	// silently ignored.
	ErrEscrowSettled = errors.New("escrow already settled")

	// ErrInvalidTransition is returned for non-terminal transitions the
	// state machine does not allow.
	ErrInvalidTransition = errors.New("invalid escrow transition")

	// ErrNoChannelAvailable is returned when every payment channel fails.
	// Unlike a single channel failure this is a configuration error, not a
	// recoverable one.
	ErrNoChannelAvailable = errors.New("no payment channel available")
)
