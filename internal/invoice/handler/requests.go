package handler

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"paygate/pkg/domain"
	dErrors "paygate/pkg/domain-errors"
)

// CreateRequest is the invoice creation payload.
type CreateRequest struct {
	ContractorID string          `json:"contractor_id"`
	Amount       decimal.Decimal `json:"amount"`
	DueDate      *time.Time      `json:"due_date"`

	parsedContractorID domain.ContractorID
}

func (r *CreateRequest) Validate() error {
	r.ContractorID = strings.TrimSpace(r.ContractorID)

	contractorID, err := domain.ParseContractorID(r.ContractorID)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "contractor_id must be a valid UUID")
	}
	r.parsedContractorID = contractorID

	if !r.Amount.IsPositive() {
		return dErrors.New(dErrors.CodeValidation, "amount must be positive")
	}
	if r.DueDate == nil {
		return dErrors.New(dErrors.CodeValidation, "due_date is required")
	}
	return nil
}

func (r *CreateRequest) ParsedContractorID() domain.ContractorID { return r.parsedContractorID }
