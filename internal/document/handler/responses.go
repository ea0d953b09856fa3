package handler

import (
	"time"

	"paygate/internal/document/models"
)

// DocumentResponse is the HTTP representation of a compliance document.
// The status, score and rejection reason together form the classification
// result the upload caller acts on.
type DocumentResponse struct {
	ID                string     `json:"id"`
	ContractorID      string     `json:"contractor_id"`
	DocumentType      string     `json:"document_type"`
	ProviderName      string     `json:"provider_name"`
	PolicyNumber      string     `json:"policy_number,omitempty"`
	CoverageAmount    *int64     `json:"coverage_amount,omitempty"`
	StartDate         *time.Time `json:"start_date,omitempty"`
	ExpiryDate        time.Time  `json:"expiry_date"`
	Status            string     `json:"status"`
	VerificationScore int        `json:"verification_score"`
	RejectionReason   string     `json:"rejection_reason,omitempty"`
	Version           int        `json:"version"`
	ReplacedBy        string     `json:"replaced_by,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// ReviewQueueResponse wraps the manual review queue.
type ReviewQueueResponse struct {
	Documents []DocumentResponse `json:"documents"`
}

// FromDocument converts a domain document to an HTTP response.
func FromDocument(d *models.ComplianceDocument) *DocumentResponse {
	resp := &DocumentResponse{
		ID:                d.ID.String(),
		ContractorID:      d.ContractorID.String(),
		DocumentType:      d.Type.String(),
		ProviderName:      d.ProviderName,
		PolicyNumber:      d.PolicyNumber,
		CoverageAmount:    d.CoverageAmount,
		StartDate:         d.StartDate,
		ExpiryDate:        d.ExpiryDate,
		Status:            d.Status.String(),
		VerificationScore: d.VerificationScore,
		RejectionReason:   d.RejectionReason,
		Version:           d.Version,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
	if d.ReplacedBy != nil {
		resp.ReplacedBy = d.ReplacedBy.String()
	}
	return resp
}

// FromDocuments converts a list of documents.
func FromDocuments(docs []models.ComplianceDocument) []DocumentResponse {
	out := make([]DocumentResponse, 0, len(docs))
	for i := range docs {
		out = append(out, *FromDocument(&docs[i]))
	}
	return out
}
