package verification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/livva-hq/settlement/internal/keylock"
	"go.uber.org/zap"
)

// Store is the persistence capability behind the engine.
type Store interface {
	// Get returns the case for an escrow id, or ErrCaseNotFound.
	Get(ctx context.Context, escrowID string) (*Case, error)
	Put(ctx context.Context, c *Case) error
	List(ctx context.Context) ([]*Case, error)
}

// Engine manages verification cases and evaluates them into release
// decisions. Mutations for the same escrow id are serialized.
type Engine struct {
	store  Store
	locks  *keylock.Table
	logger *zap.Logger
}

// NewEngine creates an Engine backed by the given store.
func NewEngine(store Store, logger *zap.Logger) *Engine {
	return &Engine{
		store:  store,
		locks:  keylock.New(),
		logger: logger,
	}
}

// CreateCase initializes an empty pending case for an escrow. Creating a
// case that already exists returns the existing case unchanged, so retried
// deposit creation never wipes accumulated evidence.
func (e *Engine) CreateCase(ctx context.Context, escrowID, listingID, tenantEmail, landlordEmail string) (*Case, error) {
	e.locks.Lock(escrowID)
	defer e.locks.Unlock(escrowID)

	if existing, err := e.store.Get(ctx, escrowID); err == nil {
		return existing, nil
	}

	c := &Case{
		EscrowID:        escrowID,
		ListingID:       listingID,
		TenantEmail:     tenantEmail,
		LandlordEmail:   landlordEmail,
		TenantUploads:   []Upload{},
		LandlordUploads: []Upload{},
		Status:          CasePending,
		CreatedAt:       time.Now().UTC(),
	}
	if err := e.store.Put(ctx, c); err != nil {
		return nil, fmt.Errorf("store verification case: %w", err)
	}

	e.logger.Info("verification case opened",
		zap.String("escrow_id", escrowID),
		zap.String("listing_id", listingID),
	)
	return c, nil
}

// AddUpload appends evidence to the submitting party's list. Uploads are
// never removed. Returns ErrCaseNotFound when no case exists for the escrow.
func (e *Engine) AddUpload(ctx context.Context, escrowID string, up Upload) (*Case, error) {
	if up.UploadedBy != RoleTenant && up.UploadedBy != RoleLandlord {
		return nil, &ErrValidation{Msg: fmt.Sprintf("uploaded_by must be tenant or landlord, got %q", up.UploadedBy)}
	}
	if up.Type != UploadPhoto && up.Type != UploadDocument && up.Type != UploadMeterReading {
		return nil, &ErrValidation{Msg: fmt.Sprintf("unknown upload type %q", up.Type)}
	}

	e.locks.Lock(escrowID)
	defer e.locks.Unlock(escrowID)

	c, err := e.store.Get(ctx, escrowID)
	if err != nil {
		return nil, err
	}

	if up.ID == "" {
		up.ID = "up_" + uuid.NewString()
	}
	if up.Timestamp.IsZero() {
		up.Timestamp = time.Now().UTC()
	}

	if up.UploadedBy == RoleTenant {
		c.TenantUploads = append(c.TenantUploads, up)
	} else {
		c.LandlordUploads = append(c.LandlordUploads, up)
	}
	if err := e.store.Put(ctx, c); err != nil {
		return nil, fmt.Errorf("store verification case: %w", err)
	}
	return c, nil
}

// FlagDispute marks the case disputed. The flag is sticky: evidence can
// still be uploaded but every later evaluation sees the dispute.
func (e *Engine) FlagDispute(ctx context.Context, escrowID string) (*Case, error) {
	e.locks.Lock(escrowID)
	defer e.locks.Unlock(escrowID)

	c, err := e.store.Get(ctx, escrowID)
	if err != nil {
		return nil, err
	}
	c.HasDispute = true
	if err := e.store.Put(ctx, c); err != nil {
		return nil, fmt.Errorf("store verification case: %w", err)
	}

	e.logger.Warn("verification case disputed", zap.String("escrow_id", escrowID))
	return c, nil
}

// Evaluate runs the decision ladder over the case's current evidence,
// records the decision, and moves the case out of pending. Re-evaluating
// with unchanged evidence yields the identical decision.
func (e *Engine) Evaluate(ctx context.Context, escrowID string) (*Decision, error) {
	e.locks.Lock(escrowID)
	defer e.locks.Unlock(escrowID)

	c, err := e.store.Get(ctx, escrowID)
	if err != nil {
		return nil, err
	}

	d := Decide(CaseInput{
		TenantUploads:   c.TenantUploads,
		LandlordUploads: c.LandlordUploads,
		HasDispute:      c.HasDispute,
	})

	c.Decision = &d
	if d.Decision == DecideReject {
		c.Status = CaseRejected
	} else {
		c.Status = CaseApproved
	}
	if err := e.store.Put(ctx, c); err != nil {
		return nil, fmt.Errorf("store verification case: %w", err)
	}

	e.logger.Info("verification case evaluated",
		zap.String("escrow_id", escrowID),
		zap.String("decision", string(d.Decision)),
		zap.Float64("confidence", d.Confidence),
	)
	return &d, nil
}

// ErrValidation is returned when a caller supplies invalid or missing input.
type ErrValidation struct{ Msg string }

func (e *ErrValidation) Error() string { return e.Msg }

// Case returns the case for an escrow id, or ErrCaseNotFound.
func (e *Engine) Case(ctx context.Context, escrowID string) (*Case, error) {
	return e.store.Get(ctx, escrowID)
}

// ListCases returns every known case.
func (e *Engine) ListCases(ctx context.Context) ([]*Case, error) {
	return e.store.List(ctx)
}
