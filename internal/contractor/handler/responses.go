package handler

import (
	"time"

	"paygate/internal/contractor/models"
	"paygate/internal/contractor/service"
)

// ContractorResponse is the HTTP representation of a contractor.
type ContractorResponse struct {
	ID                 string            `json:"id"`
	CompanyName        string            `json:"company_name"`
	CompanyNumber      string            `json:"company_number,omitempty"`
	ContactName        string            `json:"contact_name,omitempty"`
	ContactEmail       string            `json:"contact_email"`
	ContactPhone       string            `json:"contact_phone,omitempty"`
	HasEmployees       bool              `json:"has_employees"`
	VerificationStatus string            `json:"verification_status"`
	PaymentStatus      string            `json:"payment_status"`
	RiskScore          int               `json:"risk_score"`
	LastVerifiedAt     *time.Time        `json:"last_verified_at,omitempty"`
	Override           *OverrideResponse `json:"override,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// OverrideResponse is the active administrative override, if any.
type OverrideResponse struct {
	Status string    `json:"status"`
	Reason string    `json:"reason"`
	SetBy  string    `json:"set_by"`
	SetAt  time.Time `json:"set_at"`
}

// ContractorDetailResponse is the contractor plus its compliance summary.
type ContractorDetailResponse struct {
	ContractorResponse
	Compliance *service.ComplianceSummary `json:"compliance"`
}

// FromContractor converts a domain contractor to an HTTP response.
func FromContractor(c *models.Contractor) *ContractorResponse {
	resp := &ContractorResponse{
		ID:                 c.ID.String(),
		CompanyName:        c.CompanyName,
		CompanyNumber:      c.CompanyNumber,
		ContactName:        c.ContactName,
		ContactEmail:       c.ContactEmail,
		ContactPhone:       c.ContactPhone,
		HasEmployees:       c.HasEmployees,
		VerificationStatus: string(c.VerificationStatus),
		PaymentStatus:      string(c.PaymentStatus),
		RiskScore:          c.RiskScore,
		LastVerifiedAt:     c.LastVerifiedAt,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}
	if c.Override != nil {
		resp.Override = &OverrideResponse{
			Status: string(c.Override.Status),
			Reason: c.Override.Reason,
			SetBy:  c.Override.SetBy,
			SetAt:  c.Override.SetAt,
		}
	}
	return resp
}
