package trust_test

import (
	"context"
	"sync"
	"testing"

	"github.com/livva-hq/settlement/internal/trust"
	"go.uber.org/zap"
)

var ctx = context.Background()

func newLedger() *trust.Ledger {
	return trust.NewLedger(trust.NewMemoryStore(), zap.NewNop())
}

func TestRecordEvent_lazyCreation(t *testing.T) {
	l := newLedger()

	p, err := l.RecordEvent(ctx, "tenant@example.com", trust.EventFastReply, "replied quickly")
	if err != nil {
		t.Fatal(err)
	}
	if p.Score != 52 {
		t.Errorf("score: got %d, want 52", p.Score)
	}
	if len(p.Events) != 1 {
		t.Errorf("events: got %d, want 1", len(p.Events))
	}
}

func TestRecordEvent_unknownTypeIsZeroDelta(t *testing.T) {
	l := newLedger()

	p, err := l.RecordEvent(ctx, "tenant@example.com", "BRAND_NEW_EVENT", "")
	if err != nil {
		t.Fatal(err)
	}
	if p.Score != trust.DefaultScore {
		t.Errorf("score after unknown event: got %d, want %d", p.Score, trust.DefaultScore)
	}
	if p.Events[0].Delta != 0 {
		t.Errorf("delta: got %d, want 0", p.Events[0].Delta)
	}
}

func TestRecordEvent_clampsAtBounds(t *testing.T) {
	l := newLedger()

	// Drive the score to the floor.
	for i := 0; i < 10; i++ {
		if _, err := l.RecordEvent(ctx, "bad@example.com", trust.EventNoShow, ""); err != nil {
			t.Fatal(err)
		}
	}
	score, err := l.Score(ctx, "bad@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if score != 0 {
		t.Errorf("floored score: got %d, want 0", score)
	}

	// Drive another identity to the ceiling.
	for i := 0; i < 10; i++ {
		if _, err := l.RecordEvent(ctx, "good@example.com", trust.EventVerifiedIdentity, ""); err != nil {
			t.Fatal(err)
		}
	}
	score, err = l.Score(ctx, "good@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if score != 100 {
		t.Errorf("ceiling score: got %d, want 100", score)
	}
}

func TestRecordEvent_verificationFlags(t *testing.T) {
	l := newLedger()

	p, err := l.RecordEvent(ctx, "tenant@example.com", trust.EventVerifiedPhone, "SMS code confirmed")
	if err != nil {
		t.Fatal(err)
	}
	if !p.VerifiedPhone {
		t.Error("VerifiedPhone not set after VERIFIED_PHONE event")
	}
	if p.VerifiedIdentity || p.VerifiedEmail {
		t.Error("unrelated verification flags were set")
	}

	// A later negative event must not clear the flag.
	p, err = l.RecordEvent(ctx, "tenant@example.com", trust.EventNoShow, "")
	if err != nil {
		t.Fatal(err)
	}
	if !p.VerifiedPhone {
		t.Error("VerifiedPhone cleared by unrelated event")
	}
}

func TestReplay_reproducesStoredScore(t *testing.T) {
	l := newLedger()

	sequence := []string{
		trust.EventVerifiedEmail,
		trust.EventNoShow,
		trust.EventOnTimeRent,
		"UNKNOWN_EVENT",
		trust.EventGhost,
		trust.EventCleanMoveIn,
		trust.EventNoShow,
		trust.EventNoShow,
		trust.EventNoShow, // clamps at 0 along the way
		trust.EventVerifiedIdentity,
	}

	var last *trust.Profile
	for _, typ := range sequence {
		p, err := l.RecordEvent(ctx, "replay@example.com", typ, "")
		if err != nil {
			t.Fatal(err)
		}
		last = p
	}

	if got := trust.Replay(last.Events); got != last.Score {
		t.Errorf("Replay(events) = %d, stored score = %d", got, last.Score)
	}
}

func TestScore_missingProfileIsDefault(t *testing.T) {
	l := newLedger()

	score, err := l.Score(ctx, "nobody@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if score != trust.DefaultScore {
		t.Errorf("score: got %d, want %d", score, trust.DefaultScore)
	}

	// Score must not create a profile as a side effect.
	profiles, err := l.ListProfiles(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(profiles) != 0 {
		t.Errorf("profiles created by read: got %d, want 0", len(profiles))
	}
}

func TestDepositMultiplier_tiers(t *testing.T) {
	cases := []struct {
		score int
		want  float64
	}{
		{100, 0.8}, {80, 0.8},
		{79, 1.0}, {60, 1.0},
		{59, 1.2}, {40, 1.2},
		{39, 1.5}, {20, 1.5},
		{19, 1.8}, {0, 1.8},
	}
	for _, c := range cases {
		if got := trust.MultiplierForScore(c.score); got != c.want {
			t.Errorf("MultiplierForScore(%d): got %v, want %v", c.score, got, c.want)
		}
	}
}

func TestDepositMultiplier_monotone(t *testing.T) {
	prev := trust.MultiplierForScore(0)
	for score := 1; score <= 100; score++ {
		m := trust.MultiplierForScore(score)
		if m > prev {
			t.Fatalf("multiplier increased from %v to %v at score %d", prev, m, score)
		}
		prev = m
	}
}

func TestRecordEvent_concurrentSameIdentity(t *testing.T) {
	l := newLedger()

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if _, err := l.RecordEvent(ctx, "hot@example.com", trust.EventFastReply, ""); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	p, err := l.Profile(ctx, "hot@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Events) != n {
		t.Errorf("events after concurrent appends: got %d, want %d", len(p.Events), n)
	}
	// 50 + 50*2 clamps at 100.
	if p.Score != 100 {
		t.Errorf("score: got %d, want 100", p.Score)
	}
	if got := trust.Replay(p.Events); got != p.Score {
		t.Errorf("Replay(events) = %d, stored score = %d", got, p.Score)
	}
}
