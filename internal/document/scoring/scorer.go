// Package scoring turns an AI analysis into a verification score and a list
// of contractor-facing rejection reasons.
//
// Score is a pure function: same analysis, policy and reference date always
// produce the same result. The reference date is a parameter so tests pin it.
package scoring

import (
	"fmt"
	"math"
	"time"

	"paygate/internal/document/models"
	"paygate/pkg/domain"
)

// Policy holds the per-type minimum coverage table in minor currency units.
// A type absent from the table has no coverage requirement.
type Policy struct {
	MinimumCoverage map[domain.DocumentType]int64
}

// Result is the scorer output consumed by the lifecycle classifier.
type Result struct {
	// Score is the final verification score, clamped to [0,100].
	Score int
	// RejectionReasons are contractor-facing and ordered: expiry problems
	// first, then coverage, then the generic fraud-review reason.
	RejectionReasons []string
	// CriticalFraud is set when any indicator is high or critical severity.
	// The classifier sends such documents to fraud review irrespective of
	// the numeric score.
	CriticalFraud bool
}

// Rejected reports whether the document collected any rejection reason.
func (r Result) Rejected() bool { return len(r.RejectionReasons) > 0 }

// Reason joins the rejection reasons for persistence in the document row.
func (r Result) Reason() string {
	if len(r.RejectionReasons) == 0 {
		return ""
	}
	joined := r.RejectionReasons[0]
	for _, reason := range r.RejectionReasons[1:] {
		joined += "; " + reason
	}
	return joined
}

const (
	qualityPenaltyFactor = 0.2
	missingFieldPenalty  = 10
	perReasonPenalty     = 10
)

// Score evaluates an AI analysis for a declared document type against the
// policy, relative to today (a UTC calendar date).
func Score(p Policy, docType domain.DocumentType, analysis models.AIAnalysis, today time.Time) Result {
	score := 100.0

	// Poor image quality erodes confidence in every extracted field.
	score -= math.Max(0, float64(100-analysis.QualityScore)*qualityPenaltyFactor)

	ex := analysis.Extracted
	for _, missing := range []bool{
		ex.PolicyNumber == nil,
		ex.ExpiryDate == nil,
		ex.ProviderName == nil,
	} {
		if missing {
			score -= missingFieldPenalty
		}
	}

	critical := false
	for _, ind := range analysis.FraudIndicators {
		score -= ind.Confidence * ind.Severity.Weight()
		if ind.Severity.Blocking() {
			critical = true
		}
	}

	score = clamp(score)

	reasons := rejectionReasons(p, docType, analysis, critical, today)
	score = clamp(score - float64(len(reasons)*perReasonPenalty))

	return Result{
		Score:            int(math.Round(score)),
		RejectionReasons: reasons,
		CriticalFraud:    critical,
	}
}

func rejectionReasons(p Policy, docType domain.DocumentType, analysis models.AIAnalysis, critical bool, today time.Time) []string {
	var reasons []string
	ex := analysis.Extracted

	switch {
	case ex.ExpiryDate == nil:
		reasons = append(reasons, "expiry date could not be read from the document")
	case !ex.ExpiryDate.After(today):
		reasons = append(reasons, "document has already expired")
	}

	if minimum, required := p.MinimumCoverage[docType]; required {
		switch {
		case ex.CoverageAmount == nil:
			reasons = append(reasons, fmt.Sprintf("coverage amount missing; %s requires at least %s", docType, formatMinorUnits(minimum)))
		case *ex.CoverageAmount < minimum:
			reasons = append(reasons, fmt.Sprintf("coverage below minimum; %s requires at least %s", docType, formatMinorUnits(minimum)))
		}
	}

	// Deliberately generic: enumerating indicator details would coach forgers.
	if critical {
		reasons = append(reasons, "document requires additional review before acceptance")
	}

	return reasons
}

func clamp(score float64) float64 {
	return math.Min(100, math.Max(0, score))
}

func formatMinorUnits(amount int64) string {
	return fmt.Sprintf("£%d.%02d", amount/100, amount%100)
}
