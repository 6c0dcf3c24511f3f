// Package client provides a Go SDK for the settlement engine's HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// APIError is returned when the server answers with a non-2xx status.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// TrustProfile is a per-identity trust record.
type TrustProfile struct {
	Email            string       `json:"email"`
	Score            int          `json:"score"`
	VerifiedIdentity bool         `json:"verified_identity"`
	VerifiedPhone    bool         `json:"verified_phone"`
	VerifiedEmail    bool         `json:"verified_email"`
	Events           []TrustEvent `json:"events"`
	LastUpdated      time.Time    `json:"last_updated"`
}

// TrustEvent is one entry in a profile's append-only event log.
type TrustEvent struct {
	Type      string    `json:"type"`
	Delta     int       `json:"delta"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// Multiplier holds a deposit multiplier lookup result.
type Multiplier struct {
	Email      string  `json:"email"`
	Score      int     `json:"score"`
	Multiplier float64 `json:"multiplier"`
}

// PenaltyEvent is an applied behavioral penalty.
type PenaltyEvent struct {
	ID            string    `json:"id"`
	EventType     string    `json:"event_type"`
	FromEmail     string    `json:"from_email"`
	ToEmail       string    `json:"to_email"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	Reason        string    `json:"reason,omitempty"`
	Status        string    `json:"status"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// Escrow is a held deposit.
type Escrow struct {
	ID            string    `json:"id"`
	ListingID     string    `json:"listing_id"`
	TenantEmail   string    `json:"tenant_email"`
	LandlordEmail string    `json:"landlord_email"`
	Channel       string    `json:"channel"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	Status        string    `json:"status"`
	SessionID     string    `json:"session_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Upload is a piece of move-in evidence.
type Upload struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	UploadedBy string    `json:"uploaded_by"`
	URL        string    `json:"url,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Decision is the outcome of evaluating a verification case.
type Decision struct {
	Decision        string  `json:"decision"`
	Reason          string  `json:"reason"`
	PartialFraction float64 `json:"partial_fraction,omitempty"`
	Confidence      float64 `json:"confidence"`
}

// VerificationCase is the evidence bundle behind an escrow release.
type VerificationCase struct {
	EscrowID        string    `json:"escrow_id"`
	ListingID       string    `json:"listing_id"`
	TenantEmail     string    `json:"tenant_email"`
	LandlordEmail   string    `json:"landlord_email"`
	TenantUploads   []Upload  `json:"tenant_uploads"`
	LandlordUploads []Upload  `json:"landlord_uploads"`
	HasDispute      bool      `json:"has_dispute"`
	Status          string    `json:"status"`
	Decision        *Decision `json:"decision,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Listing is the subset of a listing record the match scorer reads.
type Listing struct {
	ID            string     `json:"id"`
	Title         string     `json:"title,omitempty"`
	Price         float64    `json:"price"`
	City          string     `json:"city"`
	Bedrooms      int        `json:"bedrooms,omitempty"`
	AvailableFrom *time.Time `json:"available_from,omitempty"`
}

// TenantSearch holds the tenant preferences submitted for match scoring.
type TenantSearch struct {
	Email           string     `json:"email"`
	BudgetMin       float64    `json:"budget_min"`
	BudgetMax       float64    `json:"budget_max"`
	PreferredCities []string   `json:"preferred_cities"`
	Bedrooms        int        `json:"bedrooms,omitempty"`
	MoveInDate      *time.Time `json:"move_in_date,omitempty"`
}

// MatchResult pairs a listing with its score and reasons.
type MatchResult struct {
	Listing Listing  `json:"listing"`
	Score   int      `json:"score"`
	Reasons []string `json:"reasons"`
}

// Client is the SDK entry point.
type Client struct {
	base        string
	httpClient  *http.Client
	bearerToken string
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBearerToken attaches a bearer token to every request.
func WithBearerToken(token string) Option {
	return func(c *Client) { c.bearerToken = token }
}

// New creates a Client for the given server base URL.
func New(base string, opts ...Option) (*Client, error) {
	base = strings.TrimRight(base, "/")
	if base == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	c := &Client{
		base:       base,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// do issues a request with an optional JSON body and decodes the response
// into out (which may be nil).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+"/api/v1"+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errBody struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(data, &errBody) != nil || errBody.Error == "" {
			errBody.Error = strings.TrimSpace(string(data))
		}
		return &APIError{Status: resp.StatusCode, Message: errBody.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// TrustProfile fetches (lazily creating) the trust profile for an identity.
func (c *Client) TrustProfile(ctx context.Context, email string) (*TrustProfile, error) {
	var resp struct {
		Profile *TrustProfile `json:"profile"`
	}
	if err := c.do(ctx, http.MethodGet, "/trust/profiles/"+url.PathEscape(email), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Profile, nil
}

// RecordTrustEvent appends a trust event and returns the updated profile.
func (c *Client) RecordTrustEvent(ctx context.Context, email, eventType, reason string) (*TrustProfile, error) {
	req := map[string]string{"email": email, "event_type": eventType, "reason": reason}
	var resp struct {
		Profile *TrustProfile `json:"profile"`
	}
	if err := c.do(ctx, http.MethodPost, "/trust/events", req, &resp); err != nil {
		return nil, err
	}
	return resp.Profile, nil
}

// DepositMultiplier fetches the trust-derived deposit multiplier.
func (c *Client) DepositMultiplier(ctx context.Context, email string) (*Multiplier, error) {
	var resp Multiplier
	if err := c.do(ctx, http.MethodGet, "/trust/profiles/"+url.PathEscape(email)+"/multiplier", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ApplyPenaltyRequest is the payload for ApplyPenalty. Amount 0 uses the
// server-side default for the event type.
type ApplyPenaltyRequest struct {
	EventType string  `json:"event_type"`
	FromEmail string  `json:"from_email"`
	ToEmail   string  `json:"to_email"`
	Reason    string  `json:"reason,omitempty"`
	Amount    float64 `json:"amount,omitempty"`
}

// ApplyPenalty applies a capped behavioral penalty.
func (c *Client) ApplyPenalty(ctx context.Context, req ApplyPenaltyRequest) (*PenaltyEvent, error) {
	var resp struct {
		Penalty *PenaltyEvent `json:"penalty"`
	}
	if err := c.do(ctx, http.MethodPost, "/penalties", req, &resp); err != nil {
		return nil, err
	}
	return resp.Penalty, nil
}

// Penalties lists penalty events involving an identity; empty email lists all.
func (c *Client) Penalties(ctx context.Context, email string) ([]*PenaltyEvent, error) {
	path := "/penalties"
	if email != "" {
		path += "?email=" + url.QueryEscape(email)
	}
	var resp struct {
		Penalties []*PenaltyEvent `json:"penalties"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Penalties, nil
}

// CreateDepositRequest is the payload for CreateDeposit.
type CreateDepositRequest struct {
	ListingID        string  `json:"listing_id"`
	TenantEmail      string  `json:"tenant_email"`
	LandlordEmail    string  `json:"landlord_email,omitempty"`
	BaseAmount       float64 `json:"base_amount"`
	Currency         string  `json:"currency,omitempty"`
	PreferredChannel string  `json:"preferred_channel,omitempty"`
}

// DepositResult pairs the created escrow with its checkout URL.
type DepositResult struct {
	Escrow     *Escrow `json:"escrow"`
	PaymentURL string  `json:"payment_url"`
}

// CreateDeposit opens a trust-adjusted escrow deposit.
func (c *Client) CreateDeposit(ctx context.Context, req CreateDepositRequest) (*DepositResult, error) {
	var resp DepositResult
	if err := c.do(ctx, http.MethodPost, "/deposits", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Deposit fetches a single escrow by id.
func (c *Client) Deposit(ctx context.Context, id string) (*Escrow, error) {
	var resp struct {
		Escrow *Escrow `json:"escrow"`
	}
	if err := c.do(ctx, http.MethodGet, "/deposits/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Escrow, nil
}

// Deposits lists escrows, optionally filtered by tenant.
func (c *Client) Deposits(ctx context.Context, tenantEmail string) ([]*Escrow, error) {
	path := "/deposits"
	if tenantEmail != "" {
		path += "?tenant=" + url.QueryEscape(tenantEmail)
	}
	var resp struct {
		Escrows []*Escrow `json:"escrows"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Escrows, nil
}

// ReleaseResult pairs the settled escrow with the verification decision, if
// one was applied.
type ReleaseResult struct {
	Escrow   *Escrow   `json:"escrow"`
	Decision *Decision `json:"decision,omitempty"`
}

// ReleaseDeposit settles an escrow according to its verification decision.
func (c *Client) ReleaseDeposit(ctx context.Context, id string) (*ReleaseResult, error) {
	var resp ReleaseResult
	if err := c.do(ctx, http.MethodPost, "/deposits/"+url.PathEscape(id)+"/release", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FundDeposit records payment confirmation for a pending escrow.
func (c *Client) FundDeposit(ctx context.Context, id string) (*Escrow, error) {
	var resp struct {
		Escrow *Escrow `json:"escrow"`
	}
	if err := c.do(ctx, http.MethodPost, "/deposits/"+url.PathEscape(id)+"/fund", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Escrow, nil
}

// VerificationCase fetches the evidence case for an escrow.
func (c *Client) VerificationCase(ctx context.Context, escrowID string) (*VerificationCase, error) {
	var resp struct {
		Case *VerificationCase `json:"case"`
	}
	if err := c.do(ctx, http.MethodGet, "/verification/"+url.PathEscape(escrowID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Case, nil
}

// AddUpload appends move-in evidence to an escrow's case.
func (c *Client) AddUpload(ctx context.Context, escrowID, uploadType, uploadedBy, uploadURL string) (*VerificationCase, error) {
	req := map[string]string{"type": uploadType, "uploaded_by": uploadedBy, "url": uploadURL}
	var resp struct {
		Case *VerificationCase `json:"case"`
	}
	if err := c.do(ctx, http.MethodPost, "/verification/"+url.PathEscape(escrowID)+"/uploads", req, &resp); err != nil {
		return nil, err
	}
	return resp.Case, nil
}

// FlagDispute marks an escrow's verification case as disputed.
func (c *Client) FlagDispute(ctx context.Context, escrowID string) (*VerificationCase, error) {
	var resp struct {
		Case *VerificationCase `json:"case"`
	}
	if err := c.do(ctx, http.MethodPost, "/verification/"+url.PathEscape(escrowID)+"/dispute", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Case, nil
}

// Match ranks listings against a tenant's search preferences.
func (c *Client) Match(ctx context.Context, tenant TenantSearch, listings []Listing) ([]MatchResult, error) {
	req := map[string]any{"tenant": tenant, "listings": listings}
	var resp struct {
		Matches []MatchResult `json:"matches"`
	}
	if err := c.do(ctx, http.MethodPost, "/match", req, &resp); err != nil {
		return nil, err
	}
	return resp.Matches, nil
}
