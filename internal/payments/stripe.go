package payments

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"go.uber.org/zap"
)

// StripeChannel opens Stripe Checkout sessions for deposit payments. It is
// the secondary channel behind Locus.
type StripeChannel struct {
	baseURL string // host application base URL for success/cancel redirects
	enabled bool
	logger  *zap.Logger
}

// NewStripeChannel creates a StripeChannel. An empty secret key leaves the
// channel configured but unavailable; every CreateSession then fails with
// ErrChannelUnavailable so the orchestrator can surface a configuration
// error when no other channel succeeds.
func NewStripeChannel(secretKey, baseURL string, logger *zap.Logger) *StripeChannel {
	if secretKey != "" {
		stripe.Key = secretKey
	}
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &StripeChannel{
		baseURL: baseURL,
		enabled: secretKey != "",
		logger:  logger,
	}
}

// Name implements Channel.
func (c *StripeChannel) Name() string { return ChannelStripe }

// CreateSession implements Channel.
func (c *StripeChannel) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	if !c.enabled {
		return nil, fmt.Errorf("%w: stripe: no secret key configured", ErrChannelUnavailable)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(strings.ToLower(req.Currency)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String("Rental deposit for listing " + req.ListingID),
				},
				// Stripe amounts are in the currency's minor unit.
				UnitAmount: stripe.Int64(int64(math.Round(req.Amount * 100))),
			},
			Quantity: stripe.Int64(1),
		}},
		CustomerEmail: stripe.String(req.TenantID),
		SuccessURL:    stripe.String(c.baseURL + "/deposit/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:     stripe.String(c.baseURL + "/deposit/cancel"),
	}
	params.Context = ctx

	s, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("%w: stripe: %v", ErrChannelUnavailable, err)
	}

	c.logger.Info("stripe checkout session created",
		zap.String("session_id", s.ID),
		zap.String("listing_id", req.ListingID),
	)

	out := &Session{
		SessionID:   s.ID,
		CheckoutURL: s.URL,
	}
	if s.ExpiresAt > 0 {
		out.ExpiresAt = time.Unix(s.ExpiresAt, 0).UTC()
	}
	return out, nil
}
