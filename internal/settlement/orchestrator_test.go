package settlement_test

import (
	"context"
	"errors"
	"testing"

	"github.com/livva-hq/settlement/internal/payments"
	"github.com/livva-hq/settlement/internal/settlement"
	"github.com/livva-hq/settlement/internal/trust"
	"github.com/livva-hq/settlement/internal/verification"
	"go.uber.org/zap"
)

var ctx = context.Background()

// stubChannel is a scriptable payment channel.
type stubChannel struct {
	name  string
	err   error
	calls int
}

func (s *stubChannel) Name() string { return s.name }

func (s *stubChannel) CreateSession(_ context.Context, _ payments.SessionRequest) (*payments.Session, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &payments.Session{
		SessionID:   s.name + "_sess_1",
		CheckoutURL: "https://pay.example.com/" + s.name + "_sess_1",
	}, nil
}

type fixture struct {
	trust    *trust.Ledger
	verifier *verification.Engine
	locus    *stubChannel
	stripe   *stubChannel
	orch     *settlement.Orchestrator
	store    *settlement.MemoryStore
}

func newFixture() *fixture {
	f := &fixture{
		trust:    trust.NewLedger(trust.NewMemoryStore(), zap.NewNop()),
		verifier: verification.NewEngine(verification.NewMemoryStore(), zap.NewNop()),
		locus:    &stubChannel{name: payments.ChannelLocus},
		stripe:   &stubChannel{name: payments.ChannelStripe},
		store:    settlement.NewMemoryStore(),
	}
	f.orch = settlement.NewOrchestrator(f.store, f.trust, f.verifier, f.locus, f.stripe, zap.NewNop())
	return f
}

// raiseScore drives an identity's trust score to at least target.
func (f *fixture) raiseScore(t *testing.T, email string, target int) {
	t.Helper()
	for {
		score, err := f.trust.Score(ctx, email)
		if err != nil {
			t.Fatal(err)
		}
		if score >= target {
			return
		}
		if _, err := f.trust.RecordEvent(ctx, email, trust.EventVerifiedIdentity, ""); err != nil {
			t.Fatal(err)
		}
	}
}

func (f *fixture) createDeposit(t *testing.T, base float64) *settlement.DepositResult {
	t.Helper()
	res, err := f.orch.CreateDeposit(ctx, settlement.CreateDepositRequest{
		ListingID:     "listing_1",
		TenantEmail:   "tenant@example.com",
		LandlordEmail: "landlord@example.com",
		BaseAmount:    base,
	})
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func TestCreateDeposit_trustAdjustedAmount(t *testing.T) {
	f := newFixture()
	f.raiseScore(t, "tenant@example.com", 85)

	res := f.createDeposit(t, 1000)
	if res.Escrow.Amount != 800 {
		t.Errorf("adjusted amount: got %v, want 800 (multiplier 0.8)", res.Escrow.Amount)
	}
	if res.Escrow.Status != settlement.StatusPending {
		t.Errorf("status: got %q, want pending", res.Escrow.Status)
	}
	if res.Escrow.Channel != payments.ChannelLocus {
		t.Errorf("channel: got %q, want locus", res.Escrow.Channel)
	}
	if res.PaymentURL == "" {
		t.Error("no payment url returned")
	}
}

func TestCreateDeposit_defaultMultiplierForUnknownTenant(t *testing.T) {
	f := newFixture()

	// Unknown tenant scores DefaultScore (50) → tier 1.2.
	res := f.createDeposit(t, 1000)
	if res.Escrow.Amount != 1200 {
		t.Errorf("adjusted amount: got %v, want 1200", res.Escrow.Amount)
	}
}

func TestCreateDeposit_fallbackToStripe(t *testing.T) {
	f := newFixture()
	f.locus.err = errors.New("locus is down")

	res := f.createDeposit(t, 500)
	if res.Escrow.Channel != payments.ChannelStripe {
		t.Errorf("channel: got %q, want stripe after fallback", res.Escrow.Channel)
	}
	if f.locus.calls != 1 || f.stripe.calls != 1 {
		t.Errorf("channel calls: locus=%d stripe=%d, want 1/1", f.locus.calls, f.stripe.calls)
	}
	if res.Escrow.SessionID != "stripe_sess_1" {
		t.Errorf("session id: got %q", res.Escrow.SessionID)
	}
}

func TestCreateDeposit_bothChannelsDown(t *testing.T) {
	f := newFixture()
	f.locus.err = errors.New("locus is down")
	f.stripe.err = errors.New("stripe is down")

	_, err := f.orch.CreateDeposit(ctx, settlement.CreateDepositRequest{
		ListingID:   "listing_1",
		TenantEmail: "tenant@example.com",
		BaseAmount:  500,
	})
	if !errors.Is(err, settlement.ErrNoChannelAvailable) {
		t.Fatalf("got %v, want ErrNoChannelAvailable", err)
	}

	// Nothing was persisted.
	escrows, _ := f.orch.ListEscrows(ctx)
	if len(escrows) != 0 {
		t.Errorf("escrows after total failure: got %d, want 0", len(escrows))
	}
}

func TestCreateDeposit_preferredChannel(t *testing.T) {
	f := newFixture()

	res, err := f.orch.CreateDeposit(ctx, settlement.CreateDepositRequest{
		ListingID:        "listing_1",
		TenantEmail:      "tenant@example.com",
		BaseAmount:       500,
		PreferredChannel: payments.ChannelStripe,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Escrow.Channel != payments.ChannelStripe {
		t.Errorf("channel: got %q, want stripe", res.Escrow.Channel)
	}
	if f.locus.calls != 0 {
		t.Errorf("locus was called %d times despite stripe preference", f.locus.calls)
	}
}

func TestCreateDeposit_opensVerificationCase(t *testing.T) {
	f := newFixture()
	res := f.createDeposit(t, 500)

	c, err := f.verifier.Case(ctx, res.Escrow.ID)
	if err != nil {
		t.Fatalf("verification case not opened: %v", err)
	}
	if c.ListingID != "listing_1" || c.TenantEmail != "tenant@example.com" {
		t.Errorf("case fields: %+v", c)
	}
}

func TestRelease_fullApproval(t *testing.T) {
	f := newFixture()
	res := f.createDeposit(t, 500)
	id := res.Escrow.ID

	// Evidence for approve_full: 3 tenant uploads incl. photo, 2 landlord
	// uploads incl. document.
	addUpload := func(role verification.Role, typ verification.UploadType) {
		t.Helper()
		if _, err := f.verifier.AddUpload(ctx, id, verification.Upload{Type: typ, UploadedBy: role}); err != nil {
			t.Fatal(err)
		}
	}
	addUpload(verification.RoleTenant, verification.UploadPhoto)
	addUpload(verification.RoleTenant, verification.UploadMeterReading)
	addUpload(verification.RoleTenant, verification.UploadMeterReading)
	addUpload(verification.RoleLandlord, verification.UploadDocument)
	addUpload(verification.RoleLandlord, verification.UploadPhoto)

	rel, err := f.orch.Release(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if rel.Escrow.Status != settlement.StatusReleased {
		t.Errorf("status: got %q, want released", rel.Escrow.Status)
	}
	if rel.Decision == nil || rel.Decision.Decision != verification.DecideApproveFull {
		t.Errorf("decision: %+v", rel.Decision)
	}
	if rel.Escrow.Amount != res.Escrow.Amount {
		t.Errorf("amount changed on release: %v → %v", res.Escrow.Amount, rel.Escrow.Amount)
	}

	// Clean move-in credited to the tenant exactly once.
	p, err := f.trust.Profile(ctx, "tenant@example.com")
	if err != nil {
		t.Fatal(err)
	}
	var cleanMoveIns int
	for _, ev := range p.Events {
		if ev.Type == trust.EventCleanMoveIn {
			cleanMoveIns++
		}
	}
	if cleanMoveIns != 1 {
		t.Errorf("clean move-in events: got %d, want 1", cleanMoveIns)
	}
}

func TestRelease_partialApproval(t *testing.T) {
	f := newFixture()
	res := f.createDeposit(t, 500)
	id := res.Escrow.ID

	// Two tenant uploads, one a photo: score 60 → approve_partial.
	for _, typ := range []verification.UploadType{verification.UploadPhoto, verification.UploadMeterReading} {
		if _, err := f.verifier.AddUpload(ctx, id, verification.Upload{Type: typ, UploadedBy: verification.RoleTenant}); err != nil {
			t.Fatal(err)
		}
	}

	rel, err := f.orch.Release(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if rel.Escrow.Status != settlement.StatusPartialReleased {
		t.Errorf("status: got %q, want partial_released", rel.Escrow.Status)
	}
	if rel.Decision.PartialFraction != 0.8 {
		t.Errorf("partial fraction: got %v, want 0.8", rel.Decision.PartialFraction)
	}
}

func TestRelease_rejectRefunds(t *testing.T) {
	f := newFixture()
	res := f.createDeposit(t, 500)

	// No evidence at all: reject → refunded, dispute-lost debit.
	rel, err := f.orch.Release(ctx, res.Escrow.ID)
	if err != nil {
		t.Fatal(err)
	}
	if rel.Escrow.Status != settlement.StatusRefunded {
		t.Errorf("status: got %q, want refunded", rel.Escrow.Status)
	}

	p, _ := f.trust.Profile(ctx, "tenant@example.com")
	if len(p.Events) != 1 || p.Events[0].Type != trust.EventDisputeLost {
		t.Errorf("trust events: %+v", p.Events)
	}
}

func TestRelease_secondCallRejected(t *testing.T) {
	f := newFixture()
	res := f.createDeposit(t, 500)

	if _, err := f.orch.Release(ctx, res.Escrow.ID); err != nil {
		t.Fatal(err)
	}
	_, err := f.orch.Release(ctx, res.Escrow.ID)
	if !errors.Is(err, settlement.ErrEscrowSettled) {
		t.Fatalf("second release: got %v, want ErrEscrowSettled", err)
	}

	// The trust side effect did not reapply.
	p, _ := f.trust.Profile(ctx, "tenant@example.com")
	if len(p.Events) != 1 {
		t.Errorf("trust events after double release: got %d, want 1", len(p.Events))
	}
}

func TestRelease_missingCaseReleasesWithWarning(t *testing.T) {
	f := newFixture()

	// Escrow persisted without a verification case (side channel lost).
	orphan := &settlement.Record{
		ID:          "esc_orphan",
		ListingID:   "listing_1",
		TenantEmail: "tenant@example.com",
		Channel:     payments.ChannelLocus,
		Amount:      500,
		Currency:    "usd",
		Status:      settlement.StatusPending,
	}
	if err := f.store.Put(ctx, orphan); err != nil {
		t.Fatal(err)
	}

	rel, err := f.orch.Release(ctx, "esc_orphan")
	if err != nil {
		t.Fatalf("missing case must not block release: %v", err)
	}
	if rel.Escrow.Status != settlement.StatusReleased {
		t.Errorf("status: got %q, want released", rel.Escrow.Status)
	}
	if rel.Decision != nil {
		t.Errorf("decision without case: got %+v, want nil", rel.Decision)
	}
}

func TestRelease_unknownEscrow(t *testing.T) {
	f := newFixture()
	_, err := f.orch.Release(ctx, "esc_missing")
	if !errors.Is(err, settlement.ErrEscrowNotFound) {
		t.Errorf("got %v, want ErrEscrowNotFound", err)
	}
}

func TestMarkFunded_transitions(t *testing.T) {
	f := newFixture()
	res := f.createDeposit(t, 500)

	escrow, err := f.orch.MarkFunded(ctx, res.Escrow.ID)
	if err != nil {
		t.Fatal(err)
	}
	if escrow.Status != settlement.StatusFunded {
		t.Errorf("status: got %q, want funded", escrow.Status)
	}

	// Funding twice is an invalid transition.
	_, err = f.orch.MarkFunded(ctx, res.Escrow.ID)
	if !errors.Is(err, settlement.ErrInvalidTransition) {
		t.Errorf("double fund: got %v, want ErrInvalidTransition", err)
	}

	// A funded escrow can still be released.
	if _, err := f.orch.Release(ctx, res.Escrow.ID); err != nil {
		t.Errorf("release after funding: %v", err)
	}
}

func TestListByTenant(t *testing.T) {
	f := newFixture()
	f.createDeposit(t, 500)
	f.createDeposit(t, 700)

	if _, err := f.orch.CreateDeposit(ctx, settlement.CreateDepositRequest{
		ListingID:   "listing_2",
		TenantEmail: "other@example.com",
		BaseAmount:  300,
	}); err != nil {
		t.Fatal(err)
	}

	mine, err := f.orch.ListByTenant(ctx, "tenant@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 2 {
		t.Errorf("escrows for tenant: got %d, want 2", len(mine))
	}
}
