package handler

import (
	"strings"

	"paygate/internal/contractor/models"
	dErrors "paygate/pkg/domain-errors"
)

// OnboardRequest is the HTTP request body for POST /contractors.
type OnboardRequest struct {
	CompanyName   string `json:"company_name"`
	CompanyNumber string `json:"company_number"`
	ContactName   string `json:"contact_name"`
	ContactEmail  string `json:"contact_email"`
	ContactPhone  string `json:"contact_phone"`
	HasEmployees  bool   `json:"has_employees"`
}

// Validate validates and normalizes the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *OnboardRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.CompanyName = strings.TrimSpace(r.CompanyName)
	if r.CompanyName == "" {
		return dErrors.New(dErrors.CodeValidation, "company_name is required")
	}
	if len(r.CompanyName) > 200 {
		return dErrors.New(dErrors.CodeValidation, "company_name must be at most 200 characters")
	}

	r.ContactEmail = strings.TrimSpace(r.ContactEmail)
	if r.ContactEmail == "" {
		return dErrors.New(dErrors.CodeValidation, "contact_email is required")
	}
	if !strings.Contains(r.ContactEmail, "@") {
		return dErrors.New(dErrors.CodeValidation, "contact_email is not a valid email address")
	}

	r.CompanyNumber = strings.TrimSpace(r.CompanyNumber)
	r.ContactName = strings.TrimSpace(r.ContactName)
	r.ContactPhone = strings.TrimSpace(r.ContactPhone)
	return nil
}

// SuspendRequest is the HTTP request body for POST /contractors/{id}/suspend.
type SuspendRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`

	parsedStatus models.VerificationStatus
}

// Validate validates and parses the request.
func (r *SuspendRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	switch models.VerificationStatus(r.Status) {
	case models.VerificationSuspended, models.VerificationBlocked:
		r.parsedStatus = models.VerificationStatus(r.Status)
	default:
		return dErrors.New(dErrors.CodeValidation, "status must be suspended or blocked")
	}

	r.Reason = strings.TrimSpace(r.Reason)
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	return nil
}

// ParsedStatus returns the validated override status.
func (r *SuspendRequest) ParsedStatus() models.VerificationStatus {
	return r.parsedStatus
}
