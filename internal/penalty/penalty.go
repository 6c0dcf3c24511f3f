// Package penalty applies capped behavioral penalties between marketplace
// identities.
//
// Each penalty debits the violator against rolling daily and weekly caps and
// forwards a behavioral event to the trust ledger. The penalty decision and
// the downstream money movement are separate concerns: a failed settlement
// call flips the record's status to failed but never removes the record.
package penalty

import (
	"errors"
	"time"
)

// Event types recognised by the ledger, with their default charge amounts.
const (
	EventTenantLateCancel        = "TENANT_LATE_CANCEL"
	EventTenantNoShow            = "TENANT_NO_SHOW"
	EventLandlordGhost           = "LANDLORD_GHOST"
	EventLandlordLastMinCancel   = "LANDLORD_LAST_MINUTE_CANCEL"
	EventTenantDamage            = "TENANT_DAMAGE"
	EventLandlordMisrepresent    = "LANDLORD_MISREPRESENT"
	EventTenantLatePayment       = "TENANT_LATE_PAYMENT"
	EventLandlordNoShow          = "LANDLORD_NO_SHOW"
)

// defaultAmounts maps an event type to its charge when the caller does not
// supply one. Unlisted types charge the fallback amount.
var defaultAmounts = map[string]float64{
	EventTenantLateCancel:      10,
	EventTenantNoShow:          15,
	EventLandlordGhost:         12,
	EventLandlordLastMinCancel: 15,
	EventTenantDamage:          25,
	EventLandlordMisrepresent:  20,
	EventTenantLatePayment:     8,
	EventLandlordNoShow:        15,
}

const fallbackAmount = 5

// Rolling penalty ceilings per violator, in Currency units. Daily and weekly
// totals reset via explicit ResetDaily/ResetWeekly calls (cron-triggered by
// the host application).
const (
	DailyCap  = 50
	WeeklyCap = 150
)

// Currency is the ledger's settlement currency.
const Currency = "USDC"

// Status is the lifecycle state of a penalty event.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Event is a single applied penalty.
type Event struct {
	ID            string    `json:"id"`
	EventType     string    `json:"event_type"`
	FromEmail     string    `json:"from_email"`
	ToEmail       string    `json:"to_email"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	Reason        string    `json:"reason"`
	Status        Status    `json:"status"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// Totals holds a violator's rolling accumulated penalty amounts.
type Totals struct {
	Daily  float64 `json:"daily"`
	Weekly float64 `json:"weekly"`
}

// ErrCapExceeded is returned when applying a penalty would push the
// violator's rolling daily or weekly total past its cap. No state is
// mutated when this is returned.
var ErrCapExceeded = errors.New("penalty cap reached")

// DefaultAmount resolves an event type to its default charge.
func DefaultAmount(eventType string) float64 {
	if amt, ok := defaultAmounts[eventType]; ok {
		return amt
	}
	return fallbackAmount
}
