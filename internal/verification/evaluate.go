package verification

// CaseInput is the evidence state a decision is computed from.
type CaseInput struct {
	TenantUploads   []Upload
	LandlordUploads []Upload
	HasDispute      bool
}

// Decide scores move-in evidence into a release decision.
//
// The branches are ordered: the insufficient-evidence floor is checked
// before the dispute gate, which is checked before the score bands, and a
// score on a band boundary takes the earlier branch.
func Decide(in CaseInput) Decision {
	score := 50

	if len(in.TenantUploads) >= 3 {
		score += 15
	}
	if len(in.LandlordUploads) >= 2 {
		score += 15
	}
	if hasUploadType(in.TenantUploads, UploadPhoto) {
		score += 10
	}
	if hasUploadType(in.LandlordUploads, UploadDocument) {
		score += 10
	}
	if in.HasDispute {
		score -= 30
	}

	if len(in.TenantUploads)+len(in.LandlordUploads) < 2 {
		return Decision{
			Decision:   DecideReject,
			Reason:     "Insufficient documentation provided by both parties. Need at least 2 uploads total.",
			Confidence: 0.9,
		}
	}

	if in.HasDispute && score < 40 {
		return Decision{
			Decision:   DecideReject,
			Reason:     "Active dispute with insufficient supporting documentation to resolve.",
			Confidence: 0.85,
		}
	}

	if score >= 70 {
		return Decision{
			Decision:   DecideApproveFull,
			Reason:     "Complete documentation provided. Move-in condition verified by both parties.",
			Confidence: float64(score) / 100,
		}
	}

	if score >= 50 {
		return Decision{
			Decision:        DecideApprovePartial,
			Reason:          "Documentation partially complete. Releasing majority of deposit with holdback for verification.",
			PartialFraction: 0.7 + float64(score-50)/100,
			Confidence:      float64(score) / 100,
		}
	}

	return Decision{
		Decision:   DecideReject,
		Reason:     "Documentation quality insufficient for deposit release. Please provide additional evidence.",
		Confidence: 0.75,
	}
}

func hasUploadType(uploads []Upload, t UploadType) bool {
	for _, u := range uploads {
		if u.Type == t {
			return true
		}
	}
	return false
}
