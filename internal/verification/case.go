// Package verification scores move-in evidence into a deposit release
// decision.
//
// A case is keyed 1:1 by escrow id and accumulates append-only upload lists
// from both parties plus a dispute flag. The decision ladder in Decide is a
// pure function of that state: identical inputs always yield identical
// decisions.
package verification

import (
	"errors"
	"time"
)

// UploadType classifies a piece of move-in evidence.
type UploadType string

const (
	UploadPhoto        UploadType = "photo"
	UploadDocument     UploadType = "document"
	UploadMeterReading UploadType = "meter_reading"
)

// Role identifies which party submitted an upload.
type Role string

const (
	RoleTenant   Role = "tenant"
	RoleLandlord Role = "landlord"
)

// Upload is a single piece of evidence attached to a case.
type Upload struct {
	ID          string     `json:"id"`
	Type        UploadType `json:"type"`
	URL         string     `json:"url"`
	UploadedBy  Role       `json:"uploaded_by"`
	Description string     `json:"description,omitempty"`
	Timestamp   time.Time  `json:"timestamp"`
}

// DecisionKind is the outcome of an evaluation.
type DecisionKind string

const (
	DecideApproveFull    DecisionKind = "approve_full"
	DecideApprovePartial DecisionKind = "approve_partial"
	DecideReject         DecisionKind = "reject"
)

// Decision is the evaluated outcome for a case. PartialFraction is the share
// of the deposit to release and is set only for approve_partial.
type Decision struct {
	Decision        DecisionKind `json:"decision"`
	Reason          string       `json:"reason"`
	PartialFraction float64      `json:"partial_fraction,omitempty"`
	Confidence      float64      `json:"confidence"`
}

// CaseStatus is the lifecycle state of a verification case.
type CaseStatus string

const (
	CasePending  CaseStatus = "pending"
	CaseApproved CaseStatus = "approved"
	CaseRejected CaseStatus = "rejected"
)

// Case is the evidence bundle for one escrow.
type Case struct {
	EscrowID        string     `json:"escrow_id"`
	ListingID       string     `json:"listing_id"`
	TenantEmail     string     `json:"tenant_email"`
	LandlordEmail   string     `json:"landlord_email"`
	TenantUploads   []Upload   `json:"tenant_uploads"`
	LandlordUploads []Upload   `json:"landlord_uploads"`
	HasDispute      bool       `json:"has_dispute"`
	Status          CaseStatus `json:"status"`
	Decision        *Decision  `json:"decision,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// ErrCaseNotFound is returned when operating on an escrow id with no case.
var ErrCaseNotFound = errors.New("verification case not found")
