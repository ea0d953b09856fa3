// Package classify implements the document lifecycle state machine.
//
// Classification happens in full at upload time, when a fresh AI analysis is
// available. The daily sweep only moves already-accepted documents between
// the date-driven states; fraud and score rules are not re-run because the
// analysis is not re-run.
package classify

import (
	"time"

	"paygate/internal/document/models"
	"paygate/internal/document/scoring"
)

// Params configures the classifier. Zero values fall back to the defaults
// used at upload time.
type Params struct {
	// AcceptanceThreshold is the minimum verification score for a document
	// to be accepted without manual review. Default 50.
	AcceptanceThreshold int
	// ExpiringSoonDays is the width of the expiring_soon window. Default 30.
	ExpiringSoonDays int
}

func (p Params) threshold() int {
	if p.AcceptanceThreshold <= 0 {
		return 50
	}
	return p.AcceptanceThreshold
}

func (p Params) window() int {
	if p.ExpiringSoonDays <= 0 {
		return 30
	}
	return p.ExpiringSoonDays
}

// AtUpload assigns the initial status for a freshly scored document.
// Precedence order, first match wins:
//  1. critical fraud -> fraud_suspected
//  2. any rejection reason -> rejected
//  3. expiry on or before today -> expired
//  4. score below threshold -> pending_review
//  5. otherwise the date check: expiring_soon within the window, else valid
func AtUpload(p Params, result scoring.Result, expiry, today time.Time) models.ComplianceStatus {
	switch {
	case result.CriticalFraud:
		return models.StatusFraudSuspected
	case result.Rejected():
		return models.StatusRejected
	case !expiry.After(today):
		return models.StatusExpired
	case result.Score < p.threshold():
		return models.StatusPendingReview
	default:
		return dateStatus(p, expiry, today)
	}
}

// NoAnalysis is the status for uploads whose AI analysis failed or has not
// arrived. The artifact is stored and waits for a human.
func NoAnalysis() models.ComplianceStatus { return models.StatusPendingReview }

// Redate re-evaluates a document on the date rules alone. Statuses that are
// not date-driven are returned unchanged.
//
// The expiry-day boundary is inclusive: a document whose expiry date equals
// today is expired, not expiring_soon.
func Redate(p Params, status models.ComplianceStatus, expiry, today time.Time) models.ComplianceStatus {
	if !status.DateDriven() {
		return status
	}
	if !expiry.After(today) {
		return models.StatusExpired
	}
	return dateStatus(p, expiry, today)
}

func dateStatus(p Params, expiry, today time.Time) models.ComplianceStatus {
	if !expiry.After(today.AddDate(0, 0, p.window())) {
		return models.StatusExpiringSoon
	}
	return models.StatusValid
}
