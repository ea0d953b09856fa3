package models

import dErrors "paygate/pkg/domain-errors"

// ComplianceStatus is the closed lifecycle state set for a document.
type ComplianceStatus string

const (
	StatusPendingReview  ComplianceStatus = "pending_review"
	StatusValid          ComplianceStatus = "valid"
	StatusExpiringSoon   ComplianceStatus = "expiring_soon"
	StatusExpired        ComplianceStatus = "expired"
	StatusRejected       ComplianceStatus = "rejected"
	StatusFraudSuspected ComplianceStatus = "fraud_suspected"
)

// ParseComplianceStatus validates a raw status string, e.g. from a database
// row or a review request.
func ParseComplianceStatus(s string) (ComplianceStatus, error) {
	switch cs := ComplianceStatus(s); cs {
	case StatusPendingReview, StatusValid, StatusExpiringSoon,
		StatusExpired, StatusRejected, StatusFraudSuspected:
		return cs, nil
	default:
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown compliance status %q", s)
	}
}

func (s ComplianceStatus) String() string { return string(s) }

// DateDriven reports whether the daily sweep may move the document between
// date-based states. Fraud and rejection outcomes stay put until a human
// overrides them; re-running AI analysis daily is out of scope.
func (s ComplianceStatus) DateDriven() bool {
	switch s {
	case StatusValid, StatusExpiringSoon, StatusExpired:
		return true
	default:
		return false
	}
}
