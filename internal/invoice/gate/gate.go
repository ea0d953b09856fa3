// Package gate is the payment gate: the binary decision of whether an
// invoice may proceed toward payment. The decision is a pure function of
// the contractor's persisted payment status and the defects explaining it.
package gate

import (
	"strings"

	cmodels "paygate/internal/contractor/models"
)

// Decision is the gate outcome for one contractor at one instant.
type Decision struct {
	CanPay bool
	// BlockReason cites the compliance defect in contractor-facing terms.
	// Empty when CanPay is true.
	BlockReason string
}

// Decide evaluates the gate. Defects come from the same aggregation run
// that produced the payment status so the reason matches the decision.
func Decide(payment cmodels.PaymentStatus, defects []string) Decision {
	if payment == cmodels.PaymentAllowed {
		return Decision{CanPay: true}
	}
	reason := strings.Join(defects, "; ")
	if reason == "" {
		reason = "contractor is not payment-eligible"
	}
	return Decision{CanPay: false, BlockReason: reason}
}
