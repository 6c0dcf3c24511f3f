package settlement

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/livva-hq/settlement/internal/keylock"
	"github.com/livva-hq/settlement/internal/payments"
	"github.com/livva-hq/settlement/internal/trust"
	"github.com/livva-hq/settlement/internal/verification"
	"go.uber.org/zap"
)

// TrustSource sizes deposits and receives settlement outcomes.
// *trust.Ledger satisfies this interface.
type TrustSource interface {
	DepositMultiplier(ctx context.Context, email string) (float64, error)
	RecordEvent(ctx context.Context, email, eventType, reason string) (*trust.Profile, error)
}

// Verifier manages move-in verification cases and decides releases.
// *verification.Engine satisfies this interface.
type Verifier interface {
	CreateCase(ctx context.Context, escrowID, listingID, tenantEmail, landlordEmail string) (*verification.Case, error)
	Case(ctx context.Context, escrowID string) (*verification.Case, error)
	Evaluate(ctx context.Context, escrowID string) (*verification.Decision, error)
}

// Orchestrator owns the escrow state machine. Status transitions for the
// same escrow id are serialized through a per-key lock.
type Orchestrator struct {
	store    Store
	trust    TrustSource
	verifier Verifier
	primary  payments.Channel
	fallback payments.Channel
	locks    *keylock.Table
	logger   *zap.Logger
}

// NewOrchestrator wires the orchestrator to its collaborators. primary is
// attempted first for every deposit unless the request prefers otherwise.
func NewOrchestrator(store Store, ts TrustSource, v Verifier, primary, fallback payments.Channel, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		store:    store,
		trust:    ts,
		verifier: v,
		primary:  primary,
		fallback: fallback,
		locks:    keylock.New(),
		logger:   logger,
	}
}

// CreateDepositRequest is the input to CreateDeposit. Currency defaults to
// "usd"; PreferredChannel defaults to the orchestrator's primary.
type CreateDepositRequest struct {
	ListingID        string
	TenantEmail      string
	LandlordEmail    string
	BaseAmount       float64
	Currency         string
	PreferredChannel string
}

// DepositResult is the outcome of a successful deposit creation.
type DepositResult struct {
	Escrow     *Record `json:"escrow"`
	PaymentURL string  `json:"payment_url,omitempty"`
}

// CreateDeposit sizes the deposit by the tenant's trust multiplier, opens a
// checkout session (falling back to the secondary channel on error), persists
// the escrow, and opens its verification case. The adjusted amount is fixed
// for the life of the escrow.
func (o *Orchestrator) CreateDeposit(ctx context.Context, req CreateDepositRequest) (*DepositResult, error) {
	if req.ListingID == "" {
		return nil, &ErrValidation{Msg: "listing id is required"}
	}
	if req.TenantEmail == "" {
		return nil, &ErrValidation{Msg: "tenant email is required"}
	}
	if req.BaseAmount <= 0 {
		return nil, &ErrValidation{Msg: "base amount must be positive"}
	}
	currency := req.Currency
	if currency == "" {
		currency = "usd"
	}

	multiplier, err := o.trust.DepositMultiplier(ctx, req.TenantEmail)
	if err != nil {
		return nil, fmt.Errorf("deposit multiplier: %w", err)
	}
	adjusted := math.Round(req.BaseAmount * multiplier)

	sessReq := payments.SessionRequest{
		ListingID:  req.ListingID,
		Amount:     adjusted,
		Currency:   currency,
		TenantID:   req.TenantEmail,
		LandlordID: req.LandlordEmail,
	}

	channel, sess, err := o.openSession(ctx, req.PreferredChannel, sessReq)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	escrow := &Record{
		ID:            "esc_" + uuid.NewString(),
		ListingID:     req.ListingID,
		TenantEmail:   req.TenantEmail,
		LandlordEmail: req.LandlordEmail,
		Channel:       channel,
		Amount:        adjusted,
		Currency:      currency,
		Status:        StatusPending,
		SessionID:     sess.SessionID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := o.store.Put(ctx, escrow); err != nil {
		return nil, fmt.Errorf("persist escrow: %w", err)
	}

	// The verification case is a side channel: failing to open it must not
	// block the deposit that was already taken.
	if _, err := o.verifier.CreateCase(ctx, escrow.ID, req.ListingID, req.TenantEmail, req.LandlordEmail); err != nil {
		o.logger.Error("open verification case failed (non-fatal)",
			zap.String("escrow_id", escrow.ID),
			zap.Error(err),
		)
	}

	o.logger.Info("deposit created",
		zap.String("escrow_id", escrow.ID),
		zap.String("channel", channel),
		zap.Float64("base_amount", req.BaseAmount),
		zap.Float64("multiplier", multiplier),
		zap.Float64("amount", adjusted),
	)
	return &DepositResult{Escrow: escrow, PaymentURL: sess.CheckoutURL}, nil
}

// openSession tries the preferred channel, then the other. A channel that
// errors (or times out) is treated as failed; only total unavailability of
// both channels is surfaced, as a configuration error.
func (o *Orchestrator) openSession(ctx context.Context, preferred string, req payments.SessionRequest) (string, *payments.Session, error) {
	first, second := o.primary, o.fallback
	if preferred != "" && preferred == o.fallback.Name() {
		first, second = o.fallback, o.primary
	}

	sess, firstErr := first.CreateSession(ctx, req)
	if firstErr == nil {
		return first.Name(), sess, nil
	}
	o.logger.Warn("payment channel failed, falling back",
		zap.String("channel", first.Name()),
		zap.String("fallback", second.Name()),
		zap.Error(firstErr),
	)

	sess, secondErr := second.CreateSession(ctx, req)
	if secondErr == nil {
		return second.Name(), sess, nil
	}

	return "", nil, fmt.Errorf("%w: %s: %v; %s: %v",
		ErrNoChannelAvailable, first.Name(), firstErr, second.Name(), secondErr)
}

// ReleaseResult is the outcome of a release call. Decision is nil when the
// escrow was released without a verification case.
type ReleaseResult struct {
	Escrow   *Record                `json:"escrow"`
	Decision *verification.Decision `json:"decision,omitempty"`
}

// Release settles an escrow according to its verification decision:
// approve_full → released, approve_partial → partial_released, reject →
// refunded. The matching trust event is forwarded exactly once; a second
// release call on the same escrow fails with ErrEscrowSettled.
//
// A missing verification case releases unconditionally with a warning. This
// is deliberate leniency: money movement must not be blocked on a missing
// side-channel record.
func (o *Orchestrator) Release(ctx context.Context, escrowID string) (*ReleaseResult, error) {
	o.locks.Lock(escrowID)
	defer o.locks.Unlock(escrowID)

	escrow, err := o.store.Get(ctx, escrowID)
	if err != nil {
		return nil, err
	}
	if escrow.Status.Terminal() {
		return nil, fmt.Errorf("escrow %s is %s: %w", escrowID, escrow.Status, ErrEscrowSettled)
	}

	if _, err := o.verifier.Case(ctx, escrowID); errors.Is(err, verification.ErrCaseNotFound) {
		o.logger.Warn("releasing escrow without verification case",
			zap.String("escrow_id", escrowID),
		)
		if err := o.transition(ctx, escrow, StatusReleased); err != nil {
			return nil, err
		}
		return &ReleaseResult{Escrow: escrow}, nil
	} else if err != nil {
		return nil, fmt.Errorf("load verification case: %w", err)
	}

	decision, err := o.verifier.Evaluate(ctx, escrowID)
	if err != nil {
		return nil, fmt.Errorf("evaluate verification case: %w", err)
	}

	var next Status
	var trustEvent string
	switch decision.Decision {
	case verification.DecideApproveFull:
		next, trustEvent = StatusReleased, trust.EventCleanMoveIn
	case verification.DecideApprovePartial:
		next, trustEvent = StatusPartialReleased, trust.EventPaymentOnTime
	case verification.DecideReject:
		next, trustEvent = StatusRefunded, trust.EventDisputeLost
	default:
		return nil, fmt.Errorf("unknown verification decision %q", decision.Decision)
	}

	if err := o.transition(ctx, escrow, next); err != nil {
		return nil, err
	}

	// Forward the outcome to the trust ledger in a non-fatal manner. The
	// terminal-state check above guarantees this runs at most once per escrow.
	if _, err := o.trust.RecordEvent(ctx, escrow.TenantEmail, trustEvent,
		fmt.Sprintf("Deposit %s for listing %s: %s", escrow.ID, escrow.ListingID, decision.Decision)); err != nil {
		o.logger.Error("trust event forward failed (non-fatal)",
			zap.String("escrow_id", escrow.ID),
			zap.String("type", trustEvent),
			zap.Error(err),
		)
	}

	o.logger.Info("escrow released",
		zap.String("escrow_id", escrow.ID),
		zap.String("decision", string(decision.Decision)),
		zap.String("status", string(escrow.Status)),
	)
	return &ReleaseResult{Escrow: escrow, Decision: decision}, nil
}

// MarkFunded records payment confirmation for a pending escrow, typically
// driven by the payment channel's webhook.
func (o *Orchestrator) MarkFunded(ctx context.Context, escrowID string) (*Record, error) {
	o.locks.Lock(escrowID)
	defer o.locks.Unlock(escrowID)

	escrow, err := o.store.Get(ctx, escrowID)
	if err != nil {
		return nil, err
	}
	if escrow.Status.Terminal() {
		return nil, fmt.Errorf("escrow %s is %s: %w", escrowID, escrow.Status, ErrEscrowSettled)
	}
	if escrow.Status != StatusPending {
		return nil, fmt.Errorf("cannot fund escrow in status %s: %w", escrow.Status, ErrInvalidTransition)
	}
	if err := o.transition(ctx, escrow, StatusFunded); err != nil {
		return nil, err
	}
	return escrow, nil
}

// Escrow returns the escrow with the given id.
func (o *Orchestrator) Escrow(ctx context.Context, escrowID string) (*Record, error) {
	return o.store.Get(ctx, escrowID)
}

// ListByTenant returns all escrows for a tenant in creation order.
func (o *Orchestrator) ListByTenant(ctx context.Context, tenantEmail string) ([]*Record, error) {
	return o.store.ListByTenant(ctx, tenantEmail)
}

// ListEscrows returns every escrow in creation order.
func (o *Orchestrator) ListEscrows(ctx context.Context) ([]*Record, error) {
	return o.store.List(ctx)
}

// transition mutates the status and persists the record. Must be called
// with the escrow's lock held.
func (o *Orchestrator) transition(ctx context.Context, escrow *Record, next Status) error {
	escrow.Status = next
	escrow.UpdatedAt = time.Now().UTC()
	if err := o.store.Put(ctx, escrow); err != nil {
		return fmt.Errorf("persist escrow transition: %w", err)
	}
	return nil
}

// ErrValidation is returned when a caller supplies invalid or missing input.
type ErrValidation struct{ Msg string }

func (e *ErrValidation) Error() string { return e.Msg }
