package penalty

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/livva-hq/settlement/internal/keylock"
	"github.com/livva-hq/settlement/internal/trust"
	"go.uber.org/zap"
)

// Store is the persistence capability behind the penalty ledger.
type Store interface {
	Insert(ctx context.Context, ev *Event) error
	UpdateStatus(ctx context.Context, id string, status Status, transactionID string) error
	// List returns events where email matches either party; empty email
	// returns everything.
	List(ctx context.Context, email string) ([]*Event, error)
	Totals(ctx context.Context, email string) (Totals, error)
	AddTotals(ctx context.Context, email string, amount float64) error
	ResetDaily(ctx context.Context) error
	ResetWeekly(ctx context.Context) error
}

// TrustRecorder receives the behavioral event forwarded for every applied
// penalty. *trust.Ledger satisfies this interface.
type TrustRecorder interface {
	RecordEvent(ctx context.Context, email, eventType, reason string) (*trust.Profile, error)
}

// Settler moves the penalty amount between the parties. Nil disables real
// money movement; the charge is then recorded with a synthetic transaction
// reference.
type Settler interface {
	Charge(ctx context.Context, ev *Event) (transactionID string, err error)
}

// Ledger applies capped penalties. Cap-check-then-increment is serialized
// per violator identity.
type Ledger struct {
	store   Store
	trust   TrustRecorder // nil = no trust forwarding
	settler Settler       // nil = synthetic settlement
	locks   *keylock.Table
	logger  *zap.Logger
}

// NewLedger creates a penalty Ledger. trust and settler may each be nil.
func NewLedger(store Store, trust TrustRecorder, settler Settler, logger *zap.Logger) *Ledger {
	return &Ledger{
		store:   store,
		trust:   trust,
		settler: settler,
		locks:   keylock.New(),
		logger:  logger,
	}
}

// ApplyRequest is the input to Apply. Amount 0 means "use the default for
// the event type".
type ApplyRequest struct {
	EventType string
	FromEmail string
	ToEmail   string
	Reason    string
	Amount    float64
}

// Apply records a penalty against the violator (FromEmail) in favour of
// ToEmail. It rejects with ErrCapExceeded before any mutation when the new
// amount would push a rolling total past its cap.
func (l *Ledger) Apply(ctx context.Context, req ApplyRequest) (*Event, error) {
	if req.EventType == "" {
		return nil, &ErrValidation{Msg: "event type is required"}
	}
	if req.FromEmail == "" || req.ToEmail == "" {
		return nil, &ErrValidation{Msg: "from and to emails are required"}
	}
	if req.Amount < 0 {
		return nil, &ErrValidation{Msg: "amount must not be negative"}
	}

	amount := req.Amount
	if amount == 0 {
		amount = DefaultAmount(req.EventType)
	}

	l.locks.Lock(req.FromEmail)
	defer l.locks.Unlock(req.FromEmail)

	totals, err := l.store.Totals(ctx, req.FromEmail)
	if err != nil {
		return nil, fmt.Errorf("read penalty totals: %w", err)
	}
	if totals.Daily+amount > DailyCap {
		return nil, fmt.Errorf("daily total %.0f + %.0f exceeds cap %d for %s: %w",
			totals.Daily, amount, DailyCap, req.FromEmail, ErrCapExceeded)
	}
	if totals.Weekly+amount > WeeklyCap {
		return nil, fmt.Errorf("weekly total %.0f + %.0f exceeds cap %d for %s: %w",
			totals.Weekly, amount, WeeklyCap, req.FromEmail, ErrCapExceeded)
	}

	ev := &Event{
		ID:        "pen_" + uuid.NewString(),
		EventType: req.EventType,
		FromEmail: req.FromEmail,
		ToEmail:   req.ToEmail,
		Amount:    amount,
		Currency:  Currency,
		Reason:    req.Reason,
		Status:    StatusPending,
		Timestamp: time.Now().UTC(),
	}

	if err := l.store.Insert(ctx, ev); err != nil {
		return nil, fmt.Errorf("insert penalty: %w", err)
	}
	if err := l.store.AddTotals(ctx, req.FromEmail, amount); err != nil {
		return nil, fmt.Errorf("update penalty totals: %w", err)
	}

	l.forwardTrustEvent(ctx, req)

	// Settlement is a separate concern from the penalty decision: failures
	// flip the status but never remove the record or unwind the totals.
	txID, settleErr := l.settle(ctx, ev)
	if settleErr != nil {
		ev.Status = StatusFailed
		l.logger.Error("penalty settlement failed",
			zap.String("id", ev.ID),
			zap.String("from", ev.FromEmail),
			zap.Error(settleErr),
		)
	} else {
		ev.Status = StatusCompleted
		ev.TransactionID = txID
	}
	if err := l.store.UpdateStatus(ctx, ev.ID, ev.Status, ev.TransactionID); err != nil {
		return nil, fmt.Errorf("update penalty status: %w", err)
	}

	l.logger.Info("penalty applied",
		zap.String("id", ev.ID),
		zap.String("type", ev.EventType),
		zap.String("from", ev.FromEmail),
		zap.String("to", ev.ToEmail),
		zap.Float64("amount", ev.Amount),
		zap.String("status", string(ev.Status)),
	)
	return ev, nil
}

// forwardTrustEvent writes the penalty into the trust ledger in a non-fatal
// manner. Landlord-prefixed event types are remapped to their tenant-prefixed
// equivalent so a single trust vocabulary serves both roles.
func (l *Ledger) forwardTrustEvent(ctx context.Context, req ApplyRequest) {
	if l.trust == nil {
		return
	}
	trustType := req.EventType
	if !strings.Contains(trustType, "TENANT") {
		trustType = strings.ReplaceAll(trustType, "LANDLORD", "TENANT")
	}
	if _, err := l.trust.RecordEvent(ctx, req.FromEmail, trustType, req.Reason); err != nil {
		l.logger.Error("trust event forward failed (non-fatal)",
			zap.String("from", req.FromEmail),
			zap.String("type", trustType),
			zap.Error(err),
		)
	}
}

func (l *Ledger) settle(ctx context.Context, ev *Event) (string, error) {
	if l.settler == nil {
		return fmt.Sprintf("tx_%d", time.Now().UnixMilli()), nil
	}
	return l.settler.Charge(ctx, ev)
}

// Events returns penalty events where the given identity is either party.
// An empty email returns all events.
func (l *Ledger) Events(ctx context.Context, email string) ([]*Event, error) {
	return l.store.List(ctx, email)
}

// TotalsFor returns the violator's current rolling totals.
func (l *Ledger) TotalsFor(ctx context.Context, email string) (Totals, error) {
	return l.store.Totals(ctx, email)
}

// ResetDaily zeroes every identity's daily total. Weekly totals are kept.
func (l *Ledger) ResetDaily(ctx context.Context) error {
	return l.store.ResetDaily(ctx)
}

// ResetWeekly zeroes all rolling totals.
func (l *Ledger) ResetWeekly(ctx context.Context) error {
	return l.store.ResetWeekly(ctx)
}

// ErrValidation is returned when a caller supplies invalid or missing input.
type ErrValidation struct{ Msg string }

func (e *ErrValidation) Error() string { return e.Msg }
