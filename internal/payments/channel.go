// Package payments provides the uniform payment-channel abstraction used by
// the settlement orchestrator.
//
// Both channels — Locus and Stripe — expose deposit checkout sessions behind
// the Channel interface. The orchestrator only inspects success or failure;
// a channel error is recoverable via fallback to the other channel.
package payments

import (
	"context"
	"errors"
	"time"
)

// Channel names as stored on escrow records.
const (
	ChannelLocus  = "locus"
	ChannelStripe = "stripe"
)

// ErrChannelUnavailable wraps every channel-level failure so callers can
// classify them without knowing the channel.
var ErrChannelUnavailable = errors.New("payment channel unavailable")

// SessionRequest describes the deposit a checkout session is created for.
type SessionRequest struct {
	ListingID  string
	Amount     float64
	Currency   string
	TenantID   string
	LandlordID string
}

// Session is a created checkout session on some channel.
type Session struct {
	SessionID   string    `json:"session_id"`
	CheckoutURL string    `json:"checkout_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Channel is a payment provider able to open deposit checkout sessions.
type Channel interface {
	Name() string
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
}
