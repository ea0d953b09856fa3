package audit

import (
	"time"

	"paygate/pkg/domain"
)

// Action names the compliance decision an event records.
type Action string

const (
	ActionDocumentUploaded   Action = "document.uploaded"
	ActionDocumentClassified Action = "document.classified"
	ActionDocumentReviewed   Action = "document.reviewed"
	ActionDocumentSuperseded Action = "document.superseded"
	ActionComplianceChanged  Action = "compliance.changed"
	ActionPaymentGated       Action = "payment.gated"
	ActionInvoiceBlocked     Action = "invoice.blocked"
	ActionInvoiceReleased    Action = "invoice.released"
	ActionOverrideSet        Action = "override.set"
	ActionOverrideCleared    Action = "override.cleared"
	ActionSweepCompleted     Action = "sweep.completed"
)

// Event is emitted from domain logic to capture key compliance decisions.
// Keep it transport-agnostic so sinks can fan out.
type Event struct {
	Timestamp    time.Time           `json:"timestamp"`
	Action       Action              `json:"action"`
	ContractorID domain.ContractorID `json:"contractor_id"`
	DocumentID   *domain.DocumentID  `json:"document_id,omitempty"`
	InvoiceID    *domain.InvoiceID   `json:"invoice_id,omitempty"`
	Actor        string              `json:"actor,omitempty"`
	Detail       string              `json:"detail,omitempty"`
}
