package payments

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// DefaultLocusURL is the production Locus API endpoint.
const DefaultLocusURL = "https://api.paywithlocus.com"

// LocusChannel talks to the Locus deposit API over HTTP with a bounded
// timeout. Without an API key it runs in simulated mode and fabricates
// sessions locally, which keeps development and demo environments working
// offline.
type LocusChannel struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

// NewLocusChannel creates a LocusChannel. baseURL falls back to
// DefaultLocusURL; an empty apiKey enables simulated mode.
func NewLocusChannel(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *LocusChannel {
	if baseURL == "" {
		baseURL = DefaultLocusURL
	}
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &LocusChannel{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Name implements Channel.
func (c *LocusChannel) Name() string { return ChannelLocus }

type locusSessionRequest struct {
	ListingID  string  `json:"listing_id"`
	Amount     float64 `json:"amount"`
	Currency   string  `json:"currency"`
	TenantID   string  `json:"tenant_id"`
	LandlordID string  `json:"landlord_id"`
}

type locusSessionResponse struct {
	SessionID   string    `json:"session_id"`
	CheckoutURL string    `json:"checkout_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// CreateSession implements Channel. A request that neither succeeds nor
// fails within the client timeout counts as failed.
func (c *LocusChannel) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	if c.apiKey == "" {
		return c.simulatedSession(req), nil
	}

	body, err := json.Marshal(locusSessionRequest{
		ListingID:  req.ListingID,
		Amount:     req.Amount,
		Currency:   req.Currency,
		TenantID:   req.TenantID,
		LandlordID: req.LandlordID,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: locus: marshal request: %v", ErrChannelUnavailable, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/deposit-sessions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: locus: build request: %v", ErrChannelUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: locus: %v", ErrChannelUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("%w: locus: unexpected status %d", ErrChannelUnavailable, resp.StatusCode)
	}

	var out locusSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: locus: decode response: %v", ErrChannelUnavailable, err)
	}

	return &Session{
		SessionID:   out.SessionID,
		CheckoutURL: out.CheckoutURL,
		ExpiresAt:   out.ExpiresAt,
	}, nil
}

// simulatedSession fabricates a checkout session with the same shape the
// live API returns.
func (c *LocusChannel) simulatedSession(req SessionRequest) *Session {
	buf := make([]byte, 6)
	_, _ = rand.Read(buf)
	sessionID := fmt.Sprintf("loc_sess_%d_%s", time.Now().UnixMilli(), hex.EncodeToString(buf))

	c.logger.Info("locus simulated session",
		zap.String("listing_id", req.ListingID),
		zap.Float64("amount", req.Amount),
		zap.String("currency", req.Currency),
	)

	return &Session{
		SessionID:   sessionID,
		CheckoutURL: "https://paywithlocus.com/checkout/" + sessionID,
		ExpiresAt:   time.Now().UTC().Add(24 * time.Hour),
	}
}
