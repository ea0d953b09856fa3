// Package models defines the invoice entity. Amounts are decimals, never
// floats; gating state transitions live here so the service stays thin.
package models

import (
	"time"

	"github.com/shopspring/decimal"

	"paygate/pkg/domain"
	dErrors "paygate/pkg/domain-errors"
)

// InvoiceStatus is the payment lifecycle state of an invoice.
type InvoiceStatus string

const (
	StatusPending   InvoiceStatus = "pending"
	StatusApproved  InvoiceStatus = "approved"
	StatusBlocked   InvoiceStatus = "blocked"
	StatusPaid      InvoiceStatus = "paid"
	StatusCancelled InvoiceStatus = "cancelled"
)

// ParseInvoiceStatus validates a raw status string.
func ParseInvoiceStatus(s string) (InvoiceStatus, error) {
	switch InvoiceStatus(s) {
	case StatusPending, StatusApproved, StatusBlocked, StatusPaid, StatusCancelled:
		return InvoiceStatus(s), nil
	default:
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown invoice status %q", s)
	}
}

func (s InvoiceStatus) String() string { return string(s) }

// Terminal reports whether the status admits no further transitions.
func (s InvoiceStatus) Terminal() bool {
	return s == StatusPaid || s == StatusCancelled
}

// Gateable reports whether the payment-run sweep may move this invoice.
// Blocking is not sticky: a blocked invoice re-enters the gate on every
// sweep until it resolves or reaches a terminal state.
func (s InvoiceStatus) Gateable() bool {
	return s == StatusPending || s == StatusBlocked
}

// Invoice is a payable owed to a contractor.
//
// Invariants:
//   - an invoice transitions to paid only while the owning contractor's
//     payment status is allowed, checked at the moment of transition
//   - paid and cancelled are terminal
type Invoice struct {
	ID           domain.InvoiceID
	ContractorID domain.ContractorID
	Amount       decimal.Decimal
	DueDate      time.Time
	Status       InvoiceStatus
	BlockReason  string
	// ComplianceCheckedAt records when the gate last looked at this invoice.
	ComplianceCheckedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewInvoice constructs a pending invoice.
func NewInvoice(id domain.InvoiceID, contractorID domain.ContractorID, amount decimal.Decimal, dueDate time.Time, now time.Time) (*Invoice, error) {
	if !amount.IsPositive() {
		return nil, dErrors.New(dErrors.CodeValidation, "amount must be positive")
	}
	if dueDate.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "due date is required")
	}
	return &Invoice{
		ID:           id,
		ContractorID: contractorID,
		Amount:       amount,
		DueDate:      dueDate,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ApplyGate records a sweep decision. Allowed moves pending/blocked to
// approved and clears the block reason; denied moves them to blocked.
func (inv *Invoice) ApplyGate(canPay bool, blockReason string, now time.Time) {
	if canPay {
		inv.Status = StatusApproved
		inv.BlockReason = ""
	} else {
		inv.Status = StatusBlocked
		inv.BlockReason = blockReason
	}
	t := now
	inv.ComplianceCheckedAt = &t
	inv.UpdatedAt = now
}

// StampGateCheck records the initial gate consultation at creation time
// without leaving pending; only the sweep moves the status.
func (inv *Invoice) StampGateCheck(canPay bool, blockReason string, now time.Time) {
	if !canPay {
		inv.BlockReason = blockReason
	}
	t := now
	inv.ComplianceCheckedAt = &t
	inv.UpdatedAt = now
}

// CanMarkPaid checks the invoice side of the paid transition. The caller
// checks the contractor side.
func (inv *Invoice) CanMarkPaid() error {
	switch inv.Status {
	case StatusApproved, StatusPending:
		return nil
	case StatusBlocked:
		return dErrors.New(dErrors.CodeInvariantViolation, "invoice is blocked by compliance")
	default:
		return dErrors.Newf(dErrors.CodeConflict, "invoice in status %s cannot be paid", inv.Status)
	}
}

// MarkPaid transitions to the terminal paid state.
func (inv *Invoice) MarkPaid(now time.Time) {
	inv.Status = StatusPaid
	inv.UpdatedAt = now
}

// CanCancel checks that the invoice is not already settled.
func (inv *Invoice) CanCancel() error {
	if inv.Status.Terminal() {
		return dErrors.Newf(dErrors.CodeConflict, "invoice in status %s cannot be cancelled", inv.Status)
	}
	return nil
}

// Cancel transitions to the terminal cancelled state.
func (inv *Invoice) Cancel(now time.Time) {
	inv.Status = StatusCancelled
	inv.UpdatedAt = now
}
