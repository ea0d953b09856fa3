package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"paygate/internal/invoice/gate"
	"paygate/internal/invoice/models"
)

// InvoiceResponse is the wire form of an invoice.
type InvoiceResponse struct {
	ID                  string          `json:"id"`
	ContractorID        string          `json:"contractor_id"`
	Amount              decimal.Decimal `json:"amount"`
	DueDate             time.Time       `json:"due_date"`
	Status              string          `json:"status"`
	BlockReason         string          `json:"block_reason,omitempty"`
	ComplianceCheckedAt *time.Time      `json:"compliance_checked_at,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

func FromInvoice(inv *models.Invoice) *InvoiceResponse {
	return &InvoiceResponse{
		ID:                  inv.ID.String(),
		ContractorID:        inv.ContractorID.String(),
		Amount:              inv.Amount,
		DueDate:             inv.DueDate,
		Status:              inv.Status.String(),
		BlockReason:         inv.BlockReason,
		ComplianceCheckedAt: inv.ComplianceCheckedAt,
		CreatedAt:           inv.CreatedAt,
		UpdatedAt:           inv.UpdatedAt,
	}
}

func FromInvoices(list []models.Invoice) []InvoiceResponse {
	out := make([]InvoiceResponse, 0, len(list))
	for i := range list {
		out = append(out, *FromInvoice(&list[i]))
	}
	return out
}

// InvoiceListResponse wraps a contractor's invoices.
type InvoiceListResponse struct {
	Invoices []InvoiceResponse `json:"invoices"`
}

// GateResponse is the non-persisting gate evaluation for one invoice.
type GateResponse struct {
	CanPay      bool   `json:"can_pay"`
	BlockReason string `json:"block_reason,omitempty"`
}

func FromDecision(d gate.Decision) *GateResponse {
	return &GateResponse{CanPay: d.CanPay, BlockReason: d.BlockReason}
}
