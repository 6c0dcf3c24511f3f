package trust

import "time"

// Event types recognised by the ledger. Types not listed here resolve to a
// zero delta rather than an error, so new behavioral vocabulary can be
// introduced upstream without breaking the pipeline.
const (
	EventFastReply        = "FAST_REPLY"
	EventCleanMoveIn      = "CLEAN_MOVE_IN"
	EventVerifiedIdentity = "VERIFIED_IDENTITY"
	EventPaymentOnTime    = "PAYMENT_ON_TIME"
	EventOnTimeRent       = "on_time_rent_payment"
	EventPositiveReview   = "POSITIVE_REVIEW"
	EventLateCancel       = "LATE_CANCEL"
	EventNoShow           = "NO_SHOW"
	EventDisputeLost      = "DISPUTE_LOST"
	EventPaymentLate      = "PAYMENT_LATE"
	EventNegativeReview   = "NEGATIVE_REVIEW"
	EventGhost            = "GHOST"
	EventVerifiedPhone    = "VERIFIED_PHONE"
	EventVerifiedEmail    = "VERIFIED_EMAIL"
)

// eventDeltas maps an event type to its signed score delta.
var eventDeltas = map[string]int{
	EventFastReply:        2,
	EventCleanMoveIn:      5,
	EventVerifiedIdentity: 10,
	EventPaymentOnTime:    3,
	EventOnTimeRent:       10,
	EventPositiveReview:   4,
	EventLateCancel:       -8,
	EventNoShow:           -15,
	EventDisputeLost:      -10,
	EventPaymentLate:      -5,
	EventNegativeReview:   -6,
	EventGhost:            -12,
	EventVerifiedPhone:    3,
	EventVerifiedEmail:    2,
}

// DefaultScore is the score assigned to a freshly created profile, and the
// score reported for identities that have no profile yet.
const DefaultScore = 50

// Event is a single behavioral record in a profile's append-only log.
type Event struct {
	Email     string    `json:"email"`
	Type      string    `json:"type"`
	Delta     int       `json:"delta"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// Profile is the trust state for one identity. Score is a projection of the
// event log: replaying Events from DefaultScore reproduces it exactly.
type Profile struct {
	Email            string    `json:"email"`
	Score            int       `json:"score"`
	Events           []Event   `json:"events"`
	VerifiedIdentity bool      `json:"verified_identity"`
	VerifiedPhone    bool      `json:"verified_phone"`
	VerifiedEmail    bool      `json:"verified_email"`
	LastUpdated      time.Time `json:"last_updated"`
}

// Delta resolves an event type to its signed score delta.
// Unknown types yield 0.
func Delta(eventType string) int {
	return eventDeltas[eventType]
}

// Replay recomputes a score by applying events in order starting from
// DefaultScore, clamping after every step.
func Replay(events []Event) int {
	score := DefaultScore
	for _, ev := range events {
		score = clampScore(score + ev.Delta)
	}
	return score
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

// MultiplierForScore maps a trust score to a deposit price adjustment tier.
// It is monotonically non-increasing in score: a lower-trust identity never
// gets a cheaper deposit than a higher-trust one.
func MultiplierForScore(score int) float64 {
	switch {
	case score >= 80:
		return 0.8
	case score >= 60:
		return 1.0
	case score >= 40:
		return 1.2
	case score >= 20:
		return 1.5
	default:
		return 1.8
	}
}
