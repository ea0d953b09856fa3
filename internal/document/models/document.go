package models

import (
	"time"

	"paygate/pkg/domain"
	dErrors "paygate/pkg/domain-errors"
)

// ComplianceDocument is one compliance artifact: an insurance certificate or
// a trade certification uploaded for a contractor.
//
// Invariants:
//   - ExpiryDate is always set; uploads without one are rejected at validation
//   - At most one document per (contractor, type) has ReplacedBy == nil; the
//     store enforces this through the current-pointer index, updated in the
//     same transaction that inserts a replacement
//   - A superseded document is immutable except for audit fields
//   - Status and VerificationScore are written only by classification or an
//     explicit review override
type ComplianceDocument struct {
	ID           domain.DocumentID
	ContractorID domain.ContractorID
	Type         domain.DocumentType
	ProviderName string
	PolicyNumber string
	// CoverageAmount is in minor currency units (pence). Nil when the
	// document carries no coverage figure, e.g. trade certifications.
	CoverageAmount *int64
	StartDate      *time.Time
	ExpiryDate     time.Time
	FileHash       string

	Status            ComplianceStatus
	VerificationScore int
	Analysis          *AIAnalysis
	RejectionReason   string

	Version    int
	ReplacedBy *domain.DocumentID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsCurrent reports whether this document is the live version for its
// (contractor, type) pair.
func (d *ComplianceDocument) IsCurrent() bool { return d.ReplacedBy == nil }

// Accepted reports whether the document counts toward compliance.
func (d *ComplianceDocument) Accepted() bool {
	return d.Status == StatusValid || d.Status == StatusExpiringSoon
}

// ApplyClassification records a classification outcome. Reasons are joined
// for persistence; the ordered list travels in the classification result.
func (d *ComplianceDocument) ApplyClassification(status ComplianceStatus, score int, reason string, now time.Time) {
	d.Status = status
	d.VerificationScore = score
	d.RejectionReason = reason
	d.UpdatedAt = now
}

// CanReview checks that a manual review decision is permitted. Only documents
// waiting on a human may be overridden; date-driven states are recomputed by
// the sweep and would silently revert an override.
func (d *ComplianceDocument) CanReview() error {
	if !d.IsCurrent() {
		return dErrors.New(dErrors.CodeInvariantViolation, "document has been superseded")
	}
	switch d.Status {
	case StatusPendingReview, StatusFraudSuspected, StatusRejected:
		return nil
	default:
		return dErrors.Newf(dErrors.CodeConflict, "document in status %s is not reviewable", d.Status)
	}
}

// ApplySupersession points this document at its replacement. The caller is
// responsible for doing this inside the same transaction that creates the
// replacement.
func (d *ComplianceDocument) ApplySupersession(by domain.DocumentID, now time.Time) {
	d.ReplacedBy = &by
	d.UpdatedAt = now
}
