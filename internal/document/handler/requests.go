package handler

import (
	"strings"
	"time"

	"paygate/internal/document/models"
	"paygate/pkg/domain"
	dErrors "paygate/pkg/domain-errors"
)

// UploadRequest is the HTTP request body for POST /documents. The analysis
// block is optional; when the upstream extraction pipeline already ran, its
// result rides along with the upload event.
type UploadRequest struct {
	ContractorID   string           `json:"contractor_id"`
	DocumentType   string           `json:"document_type"`
	ProviderName   string           `json:"provider_name"`
	PolicyNumber   string           `json:"policy_number"`
	CoverageAmount *int64           `json:"coverage_amount"`
	StartDate      *time.Time       `json:"start_date"`
	ExpiryDate     *time.Time       `json:"expiry_date"`
	FileHash       string           `json:"file_hash"`
	Analysis       *AnalysisRequest `json:"ai_analysis"`

	// Parsed values (populated by Validate)
	parsedContractorID domain.ContractorID
	parsedType         domain.DocumentType
}

// AnalysisRequest is the AI analysis result shape.
type AnalysisRequest struct {
	QualityScore    int                     `json:"quality_score"`
	Extracted       ExtractedDataRequest    `json:"extracted_data"`
	FraudIndicators []FraudIndicatorRequest `json:"fraud_indicators"`
}

// ExtractedDataRequest mirrors the nullable extracted fields.
type ExtractedDataRequest struct {
	PolicyNumber   *string    `json:"policy_number"`
	ProviderName   *string    `json:"provider_name"`
	CoverageAmount *int64     `json:"coverage_amount"`
	StartDate      *time.Time `json:"start_date"`
	ExpiryDate     *time.Time `json:"expiry_date"`
}

// FraudIndicatorRequest is one fraud signal from the analysis.
type FraudIndicatorRequest struct {
	Type       string  `json:"type"`
	Severity   string  `json:"severity"`
	Confidence float64 `json:"confidence"`
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *UploadRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	contractorID, err := domain.ParseContractorID(strings.TrimSpace(r.ContractorID))
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "contractor_id is not a valid id")
	}
	r.parsedContractorID = contractorID

	docType, err := domain.ParseDocumentType(strings.TrimSpace(r.DocumentType))
	if err != nil {
		return err
	}
	r.parsedType = docType

	r.ProviderName = strings.TrimSpace(r.ProviderName)
	if r.ProviderName == "" {
		return dErrors.New(dErrors.CodeValidation, "provider_name is required")
	}

	if r.ExpiryDate == nil {
		return dErrors.New(dErrors.CodeValidation, "expiry_date is required")
	}

	r.FileHash = strings.TrimSpace(r.FileHash)
	if r.FileHash == "" {
		return dErrors.New(dErrors.CodeValidation, "file_hash is required")
	}

	if r.CoverageAmount != nil && *r.CoverageAmount < 0 {
		return dErrors.New(dErrors.CodeValidation, "coverage_amount must not be negative")
	}

	if r.Analysis != nil {
		if r.Analysis.QualityScore < 0 || r.Analysis.QualityScore > 100 {
			return dErrors.New(dErrors.CodeValidation, "ai_analysis.quality_score must be between 0 and 100")
		}
		for _, ind := range r.Analysis.FraudIndicators {
			if _, err := models.ParseFraudSeverity(ind.Severity); err != nil {
				return err
			}
			if ind.Confidence < 0 || ind.Confidence > 1 {
				return dErrors.New(dErrors.CodeValidation, "fraud indicator confidence must be between 0 and 1")
			}
		}
	}
	return nil
}

// ParsedContractorID returns the validated contractor id.
func (r *UploadRequest) ParsedContractorID() domain.ContractorID { return r.parsedContractorID }

// ParsedType returns the validated document type.
func (r *UploadRequest) ParsedType() domain.DocumentType { return r.parsedType }

// ParsedAnalysis converts the analysis block to the domain shape.
func (r *UploadRequest) ParsedAnalysis() *models.AIAnalysis {
	if r.Analysis == nil {
		return nil
	}
	analysis := &models.AIAnalysis{
		QualityScore: r.Analysis.QualityScore,
		Extracted: models.ExtractedData{
			PolicyNumber:   r.Analysis.Extracted.PolicyNumber,
			ProviderName:   r.Analysis.Extracted.ProviderName,
			CoverageAmount: r.Analysis.Extracted.CoverageAmount,
			StartDate:      r.Analysis.Extracted.StartDate,
			ExpiryDate:     r.Analysis.Extracted.ExpiryDate,
		},
	}
	for _, ind := range r.Analysis.FraudIndicators {
		severity, _ := models.ParseFraudSeverity(ind.Severity)
		analysis.FraudIndicators = append(analysis.FraudIndicators, models.FraudIndicator{
			Type:       ind.Type,
			Severity:   severity,
			Confidence: ind.Confidence,
		})
	}
	return analysis
}

// ReviewRequest is the HTTP request body for POST /documents/{id}/review.
type ReviewRequest struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason"`
}

// Validate validates the request.
func (r *ReviewRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	switch r.Decision {
	case "approve", "reject":
	default:
		return dErrors.New(dErrors.CodeValidation, "decision must be approve or reject")
	}
	r.Reason = strings.TrimSpace(r.Reason)
	if r.Decision == "reject" && r.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required when rejecting")
	}
	return nil
}

// Approved reports whether the decision is an approval.
func (r *ReviewRequest) Approved() bool { return r.Decision == "approve" }
