// Package trust maintains per-identity trust profiles driven by an
// append-only behavioral event log.
//
// Every profile starts at DefaultScore and moves through a fixed table of
// signed deltas as events are recorded. The event log is the source of
// truth; the stored score is a derived projection and replaying the log
// must reproduce it deterministically.
//
// Two implementations of the Store interface are provided:
//   - MemoryStore: in-process, for testing and single-node deployments.
//   - PostgresStore: durable, for production use.
package trust

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/livva-hq/settlement/internal/keylock"
	"go.uber.org/zap"
)

// ErrProfileNotFound is returned by Store.Get when no profile exists for an
// identity. Callers outside the package rarely see it: the ledger creates
// profiles lazily.
var ErrProfileNotFound = errors.New("trust profile not found")

// Store is the persistence capability behind the ledger.
type Store interface {
	// Get returns the profile for an identity, or ErrProfileNotFound.
	Get(ctx context.Context, email string) (*Profile, error)

	// Create persists a brand-new profile.
	Create(ctx context.Context, p *Profile) error

	// Append persists a newly appended event together with the updated
	// projection (score, flags, timestamp) of its profile.
	Append(ctx context.Context, ev Event, p *Profile) error

	// List returns all known profiles.
	List(ctx context.Context) ([]*Profile, error)
}

// Ledger records behavioral events and serves trust reads. Mutations for the
// same identity are serialized through a per-key lock; different identities
// proceed independently.
type Ledger struct {
	store  Store
	locks  *keylock.Table
	logger *zap.Logger
}

// NewLedger creates a Ledger backed by the given store.
func NewLedger(store Store, logger *zap.Logger) *Ledger {
	return &Ledger{
		store:  store,
		locks:  keylock.New(),
		logger: logger,
	}
}

// RecordEvent appends a behavioral event to an identity's log and updates
// the score projection. The profile is created lazily on first event.
// Unknown event types apply a zero delta.
func (l *Ledger) RecordEvent(ctx context.Context, email, eventType, reason string) (*Profile, error) {
	if email == "" {
		return nil, &ErrValidation{Msg: "email is required"}
	}
	if eventType == "" {
		return nil, &ErrValidation{Msg: "event type is required"}
	}
	if reason == "" {
		reason = "Event: " + eventType
	}

	l.locks.Lock(email)
	defer l.locks.Unlock(email)

	p, err := l.getOrCreate(ctx, email)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	ev := Event{
		Email:     email,
		Type:      eventType,
		Delta:     Delta(eventType),
		Reason:    reason,
		Timestamp: now,
	}

	p.Events = append(p.Events, ev)
	p.Score = clampScore(p.Score + ev.Delta)
	p.LastUpdated = now

	switch eventType {
	case EventVerifiedIdentity:
		p.VerifiedIdentity = true
	case EventVerifiedPhone:
		p.VerifiedPhone = true
	case EventVerifiedEmail:
		p.VerifiedEmail = true
	}

	if err := l.store.Append(ctx, ev, p); err != nil {
		return nil, fmt.Errorf("append trust event: %w", err)
	}

	l.logger.Info("trust event recorded",
		zap.String("email", email),
		zap.String("type", eventType),
		zap.Int("delta", ev.Delta),
		zap.Int("score", p.Score),
	)
	return p, nil
}

// Score returns the current trust score for an identity. Identities with no
// profile report DefaultScore without creating one.
func (l *Ledger) Score(ctx context.Context, email string) (int, error) {
	p, err := l.store.Get(ctx, email)
	if errors.Is(err, ErrProfileNotFound) {
		return DefaultScore, nil
	}
	if err != nil {
		return 0, err
	}
	return p.Score, nil
}

// Profile returns the profile for an identity, lazily creating it.
func (l *Ledger) Profile(ctx context.Context, email string) (*Profile, error) {
	if email == "" {
		return nil, &ErrValidation{Msg: "email is required"}
	}

	l.locks.Lock(email)
	defer l.locks.Unlock(email)

	return l.getOrCreate(ctx, email)
}

// ListProfiles returns every known trust profile.
func (l *Ledger) ListProfiles(ctx context.Context) ([]*Profile, error) {
	return l.store.List(ctx)
}

// DepositMultiplier maps an identity's current score into a deposit
// adjustment tier.
func (l *Ledger) DepositMultiplier(ctx context.Context, email string) (float64, error) {
	score, err := l.Score(ctx, email)
	if err != nil {
		return 0, err
	}
	return MultiplierForScore(score), nil
}

// getOrCreate must be called with the identity's lock held.
func (l *Ledger) getOrCreate(ctx context.Context, email string) (*Profile, error) {
	p, err := l.store.Get(ctx, email)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrProfileNotFound) {
		return nil, fmt.Errorf("get trust profile: %w", err)
	}

	p = &Profile{
		Email:       email,
		Score:       DefaultScore,
		Events:      []Event{},
		LastUpdated: time.Now().UTC(),
	}
	if err := l.store.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create trust profile: %w", err)
	}
	return p, nil
}

// ErrValidation is returned when a caller supplies invalid or missing input.
type ErrValidation struct{ Msg string }

func (e *ErrValidation) Error() string { return e.Msg }
