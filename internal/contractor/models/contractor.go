package models

import (
	"time"

	"paygate/pkg/domain"
	dErrors "paygate/pkg/domain-errors"
)

// VerificationStatus is the derived compliance state of a contractor.
type VerificationStatus string

const (
	VerificationVerified          VerificationStatus = "verified"
	VerificationPartiallyVerified VerificationStatus = "partially_verified"
	VerificationUnverified        VerificationStatus = "unverified"
	VerificationSuspended         VerificationStatus = "suspended"
	VerificationBlocked           VerificationStatus = "blocked"
)

// PaymentStatus gates outgoing payments for a contractor.
type PaymentStatus string

const (
	PaymentAllowed       PaymentStatus = "allowed"
	PaymentBlocked       PaymentStatus = "blocked"
	PaymentOnHold        PaymentStatus = "on_hold"
	PaymentPendingReview PaymentStatus = "pending_review"
)

// StatusOverride is an administrative suspend or block. While set it takes
// precedence over the computed verification status.
type StatusOverride struct {
	Status VerificationStatus `json:"status"`
	Reason string             `json:"reason"`
	SetBy  string             `json:"set_by"`
	SetAt  time.Time          `json:"set_at"`
}

// Contractor is a sub-contractor company working for the principal.
//
// Invariants:
//   - VerificationStatus, PaymentStatus and RiskScore are derived by the
//     aggregator; nothing else writes them except an administrative override
//   - Derivation is idempotent: the same document set always produces the
//     same statuses
type Contractor struct {
	ID            domain.ContractorID
	CompanyName   string
	CompanyNumber string
	ContactName   string
	ContactEmail  string
	ContactPhone  string
	HasEmployees  bool

	VerificationStatus VerificationStatus
	PaymentStatus      PaymentStatus
	RiskScore          int
	LastVerifiedAt     *time.Time
	Override           *StatusOverride

	Active    bool
	DeletedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewContractor constructs a contractor in its onboarding state. Statuses
// start unverified/blocked; the first document upload recomputes them.
func NewContractor(id domain.ContractorID, companyName, companyNumber, contactName, contactEmail, contactPhone string, hasEmployees bool, now time.Time) (*Contractor, error) {
	if companyName == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "company name is required")
	}
	if contactEmail == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "contact email is required")
	}
	return &Contractor{
		ID:                 id,
		CompanyName:        companyName,
		CompanyNumber:      companyNumber,
		ContactName:        contactName,
		ContactEmail:       contactEmail,
		ContactPhone:       contactPhone,
		HasEmployees:       hasEmployees,
		VerificationStatus: VerificationUnverified,
		PaymentStatus:      PaymentBlocked,
		Active:             true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// CanSuspend checks that an administrative override may be applied.
func (c *Contractor) CanSuspend() error {
	if !c.Active || c.DeletedAt != nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "contractor is not active")
	}
	if c.Override != nil {
		return dErrors.New(dErrors.CodeConflict, "contractor already has an active override")
	}
	return nil
}

// ApplySuspension forces the contractor into an overridden status. The
// status must be suspended or blocked; anything else is a caller bug.
func (c *Contractor) ApplySuspension(status VerificationStatus, reason, actor string, now time.Time) {
	c.Override = &StatusOverride{Status: status, Reason: reason, SetBy: actor, SetAt: now}
	c.VerificationStatus = status
	c.PaymentStatus = PaymentBlocked
	c.UpdatedAt = now
}

// CanReinstate checks that an override exists to clear.
func (c *Contractor) CanReinstate() error {
	if c.Override == nil {
		return dErrors.New(dErrors.CodeConflict, "contractor has no active override")
	}
	return nil
}

// ApplyReinstatement clears the override. The caller must recompute the
// aggregate immediately afterwards so derived statuses reflect documents
// again rather than the override.
func (c *Contractor) ApplyReinstatement(now time.Time) {
	c.Override = nil
	c.UpdatedAt = now
}

// ApplyAggregate records a derivation result on the contractor.
func (c *Contractor) ApplyAggregate(verification VerificationStatus, payment PaymentStatus, riskScore int, now time.Time) {
	changed := c.VerificationStatus != verification || c.PaymentStatus != payment
	c.VerificationStatus = verification
	c.PaymentStatus = payment
	c.RiskScore = riskScore
	if verification == VerificationVerified && changed {
		t := now
		c.LastVerifiedAt = &t
	}
	c.UpdatedAt = now
}

// SoftDelete marks the contractor deleted without destroying history.
func (c *Contractor) SoftDelete(now time.Time) {
	c.Active = false
	t := now
	c.DeletedAt = &t
	c.UpdatedAt = now
}
