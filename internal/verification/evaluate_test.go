package verification_test

import (
	"testing"

	"github.com/livva-hq/settlement/internal/verification"
)

func uploads(n int, t verification.UploadType, role verification.Role) []verification.Upload {
	out := make([]verification.Upload, n)
	for i := range out {
		out[i] = verification.Upload{Type: t, UploadedBy: role, URL: "https://cdn.example.com/x"}
	}
	return out
}

func TestDecide_insufficientEvidenceFloor(t *testing.T) {
	// Zero uploads, no dispute: always reject with confidence 0.9.
	d := verification.Decide(verification.CaseInput{})
	if d.Decision != verification.DecideReject {
		t.Errorf("decision: got %q, want reject", d.Decision)
	}
	if d.Confidence != 0.9 {
		t.Errorf("confidence: got %v, want 0.9", d.Confidence)
	}

	// One upload total still trips the floor, even a strong one.
	d = verification.Decide(verification.CaseInput{
		TenantUploads: uploads(1, verification.UploadPhoto, verification.RoleTenant),
	})
	if d.Decision != verification.DecideReject || d.Confidence != 0.9 {
		t.Errorf("single upload: got %q/%v, want reject/0.9", d.Decision, d.Confidence)
	}
}

func TestDecide_fullApproval(t *testing.T) {
	// 3 tenant uploads incl. a photo, 2 landlord uploads incl. a document:
	// 50+15+15+10+10 = 100.
	in := verification.CaseInput{
		TenantUploads: append(
			uploads(2, verification.UploadMeterReading, verification.RoleTenant),
			uploads(1, verification.UploadPhoto, verification.RoleTenant)...,
		),
		LandlordUploads: append(
			uploads(1, verification.UploadDocument, verification.RoleLandlord),
			uploads(1, verification.UploadPhoto, verification.RoleLandlord)...,
		),
	}
	d := verification.Decide(in)
	if d.Decision != verification.DecideApproveFull {
		t.Fatalf("decision: got %q, want approve_full", d.Decision)
	}
	if d.Confidence != 1.0 {
		t.Errorf("confidence: got %v, want 1.0", d.Confidence)
	}
}

func TestDecide_partialApprovalFraction(t *testing.T) {
	// 2 tenant uploads (one photo), no landlord uploads: 50+10 = 60.
	in := verification.CaseInput{
		TenantUploads: append(
			uploads(1, verification.UploadPhoto, verification.RoleTenant),
			uploads(1, verification.UploadMeterReading, verification.RoleTenant)...,
		),
	}
	d := verification.Decide(in)
	if d.Decision != verification.DecideApprovePartial {
		t.Fatalf("decision: got %q, want approve_partial", d.Decision)
	}
	// fraction = 0.7 + (60-50)/100 = 0.8
	if d.PartialFraction != 0.8 {
		t.Errorf("partial fraction: got %v, want 0.8", d.PartialFraction)
	}
	if d.Confidence != 0.6 {
		t.Errorf("confidence: got %v, want 0.6", d.Confidence)
	}
}

func TestDecide_scoreExactly50IsPartial(t *testing.T) {
	// 2 meter readings from the tenant: no bonuses, score stays 50.
	in := verification.CaseInput{
		TenantUploads: uploads(2, verification.UploadMeterReading, verification.RoleTenant),
	}
	d := verification.Decide(in)
	if d.Decision != verification.DecideApprovePartial {
		t.Fatalf("boundary 50: got %q, want approve_partial", d.Decision)
	}
	if d.PartialFraction != 0.7 {
		t.Errorf("partial fraction at 50: got %v, want 0.7", d.PartialFraction)
	}
}

func TestDecide_scoreExactly70IsFull(t *testing.T) {
	// Tenant 3 uploads incl. photo (+15+10), landlord 2 documents (+15+10),
	// dispute (-30): score lands exactly on 70 and must take the full branch.
	in := verification.CaseInput{
		TenantUploads: append(
			uploads(2, verification.UploadMeterReading, verification.RoleTenant),
			uploads(1, verification.UploadPhoto, verification.RoleTenant)...,
		),
		LandlordUploads: uploads(2, verification.UploadDocument, verification.RoleLandlord),
		HasDispute:      true,
	}
	d := verification.Decide(in)
	if d.Decision != verification.DecideApproveFull {
		t.Fatalf("boundary 70: got %q, want approve_full", d.Decision)
	}
	if d.Confidence != 0.7 {
		t.Errorf("confidence: got %v, want 0.7", d.Confidence)
	}
}

func TestDecide_disputeGate(t *testing.T) {
	// 2 uploads, dispute: 50−30 = 20 < 40 → dispute-gate reject at 0.85.
	in := verification.CaseInput{
		TenantUploads: uploads(2, verification.UploadMeterReading, verification.RoleTenant),
		HasDispute:    true,
	}
	d := verification.Decide(in)
	if d.Decision != verification.DecideReject {
		t.Fatalf("decision: got %q, want reject", d.Decision)
	}
	if d.Confidence != 0.85 {
		t.Errorf("confidence: got %v, want 0.85 (dispute gate, not floor)", d.Confidence)
	}
}

func TestDecide_lowScoreReject(t *testing.T) {
	// Tenant 3 uploads incl. photo (+15+10), dispute (-30): score 45 clears
	// the dispute gate (needs < 40) but misses both approval bands, so it
	// falls through to the final reject branch.
	in := verification.CaseInput{
		TenantUploads: append(
			uploads(2, verification.UploadMeterReading, verification.RoleTenant),
			uploads(1, verification.UploadPhoto, verification.RoleTenant)...,
		),
		HasDispute: true,
	}
	d := verification.Decide(in)
	if d.Decision != verification.DecideReject {
		t.Fatalf("decision: got %q, want reject", d.Decision)
	}
	if d.Confidence != 0.75 {
		t.Errorf("confidence: got %v, want 0.75 (final branch)", d.Confidence)
	}
}

func TestDecide_deterministic(t *testing.T) {
	in := verification.CaseInput{
		TenantUploads:   uploads(3, verification.UploadPhoto, verification.RoleTenant),
		LandlordUploads: uploads(2, verification.UploadDocument, verification.RoleLandlord),
		HasDispute:      true,
	}
	first := verification.Decide(in)
	for i := 0; i < 5; i++ {
		if got := verification.Decide(in); got != first {
			t.Fatalf("Decide not deterministic: %+v vs %+v", got, first)
		}
	}
}
