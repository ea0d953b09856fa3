package models

import (
	"time"

	dErrors "paygate/pkg/domain-errors"
)

// FraudSeverity grades a single fraud indicator.
type FraudSeverity string

const (
	SeverityLow      FraudSeverity = "low"
	SeverityMedium   FraudSeverity = "medium"
	SeverityHigh     FraudSeverity = "high"
	SeverityCritical FraudSeverity = "critical"
)

// ParseFraudSeverity validates a severity coming in over the wire.
func ParseFraudSeverity(s string) (FraudSeverity, error) {
	switch FraudSeverity(s) {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return FraudSeverity(s), nil
	default:
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown fraud severity %q", s)
	}
}

// Weight returns the scoring penalty weight for the severity. Unknown
// severities weigh as low so a misbehaving extractor cannot zero a score.
func (s FraudSeverity) Weight() float64 {
	switch s {
	case SeverityCritical:
		return 25
	case SeverityHigh:
		return 15
	case SeverityMedium:
		return 8
	default:
		return 3
	}
}

// Blocking reports whether the severity forces the document into manual
// fraud review regardless of its numeric score.
func (s FraudSeverity) Blocking() bool {
	return s == SeverityHigh || s == SeverityCritical
}

// FraudIndicator is one signal reported by the analysis backend.
type FraudIndicator struct {
	Type       string        `json:"type"`
	Severity   FraudSeverity `json:"severity"`
	Confidence float64       `json:"confidence"`
}

// ExtractedData holds the fields the analysis backend managed to read from
// the document image. Every field is optional; absence is meaningful and is
// penalized by the scorer rather than defaulted.
type ExtractedData struct {
	PolicyNumber   *string    `json:"policy_number"`
	ProviderName   *string    `json:"provider_name"`
	CoverageAmount *int64     `json:"coverage_amount"`
	ExpiryDate     *time.Time `json:"expiry_date"`
	StartDate      *time.Time `json:"start_date"`
}

// AIAnalysis is the output of the external document-content extraction.
// The engine consumes it; it never invokes the vision model itself.
type AIAnalysis struct {
	QualityScore    int              `json:"quality_score"`
	Extracted       ExtractedData    `json:"extracted_data"`
	FraudIndicators []FraudIndicator `json:"fraud_indicators"`
}
