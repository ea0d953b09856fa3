// Package aggregate folds a contractor's current documents into derived
// verification and payment statuses.
//
// Compute is a total, pure function over the closed status enums: the same
// contractor and document set always produce the same result, regardless of
// evaluation order across contractors.
package aggregate

import (
	"paygate/internal/contractor/models"
	docmodels "paygate/internal/document/models"
	"paygate/pkg/domain"
)

// Policy declares which document types a contractor must keep valid.
type Policy struct {
	// MandatoryTypes applies to every contractor. Default: public liability.
	MandatoryTypes []domain.DocumentType
	// EmployersLiabilityWhenStaffed adds employers_liability to the
	// mandatory set for contractors that declare employees.
	EmployersLiabilityWhenStaffed bool
}

// DefaultPolicy mirrors the production configuration.
func DefaultPolicy() Policy {
	return Policy{
		MandatoryTypes:                []domain.DocumentType{domain.DocTypePublicLiability},
		EmployersLiabilityWhenStaffed: true,
	}
}

// MandatoryFor resolves the mandatory type set for one contractor.
func (p Policy) MandatoryFor(c *models.Contractor) []domain.DocumentType {
	mandatory := make([]domain.DocumentType, len(p.MandatoryTypes))
	copy(mandatory, p.MandatoryTypes)
	if p.EmployersLiabilityWhenStaffed && c.HasEmployees && !contains(mandatory, domain.DocTypeEmployersLiability) {
		mandatory = append(mandatory, domain.DocTypeEmployersLiability)
	}
	return mandatory
}

// Result is the derived contractor state plus the defect list the payment
// gate uses for block reasons.
type Result struct {
	VerificationStatus models.VerificationStatus
	PaymentStatus      models.PaymentStatus
	RiskScore          int
	// Defects name the unmet mandatory requirements in contractor-facing
	// terms, e.g. "public_liability insurance expired".
	Defects []string
}

const (
	baseRisk             = 50
	verifiedBonus        = 30
	extraCoverageBonus   = 10
	expiredMandatoryRisk = 15
	noCompanyNumberRisk  = 10
)

// Compute derives the contractor's statuses from its current documents.
// Only current (non-superseded) documents may be passed; superseded versions
// are excluded upstream regardless of their own status.
//
// An administrative override takes precedence over the computed verification
// status until cleared, but the risk score is always the computed one.
func Compute(p Policy, c *models.Contractor, docs []docmodels.ComplianceDocument) Result {
	mandatory := p.MandatoryFor(c)

	byType := make(map[domain.DocumentType]docmodels.ComplianceDocument, len(docs))
	for _, d := range docs {
		byType[d.Type] = d
	}

	satisfied := 0
	var defects []string
	for _, mt := range mandatory {
		doc, ok := byType[mt]
		switch {
		case !ok:
			defects = append(defects, string(mt)+" document missing")
		case doc.Accepted():
			satisfied++
		case doc.Status == docmodels.StatusExpired:
			defects = append(defects, string(mt)+" expired")
		default:
			defects = append(defects, string(mt)+" not accepted")
		}
	}

	anyValid := false
	for _, d := range docs {
		if d.Status == docmodels.StatusValid {
			anyValid = true
			break
		}
	}

	var verification models.VerificationStatus
	switch {
	case satisfied == len(mandatory):
		verification = models.VerificationVerified
	case satisfied >= 1 && anyValid:
		verification = models.VerificationPartiallyVerified
	default:
		verification = models.VerificationUnverified
	}

	risk := riskScore(c, verification, mandatory, byType)

	if c.Override != nil {
		return Result{
			VerificationStatus: c.Override.Status,
			PaymentStatus:      models.PaymentBlocked,
			RiskScore:          risk,
			Defects:            []string{c.Override.Reason},
		}
	}

	// The payment gate is intentionally binary: partially_verified does not
	// unlock any subset of payments.
	payment := models.PaymentBlocked
	if verification == models.VerificationVerified {
		payment = models.PaymentAllowed
	}

	return Result{
		VerificationStatus: verification,
		PaymentStatus:      payment,
		RiskScore:          risk,
		Defects:            defects,
	}
}

func riskScore(c *models.Contractor, verification models.VerificationStatus, mandatory []domain.DocumentType, byType map[domain.DocumentType]docmodels.ComplianceDocument) int {
	risk := baseRisk

	if verification == models.VerificationVerified {
		risk -= verifiedBonus
	}

	// One bonus at most: extra coverage shows diligence but must not mask a
	// lapsed mandatory policy.
	for t, d := range byType {
		if d.Status == docmodels.StatusValid && !contains(mandatory, t) {
			risk -= extraCoverageBonus
			break
		}
	}

	for _, mt := range mandatory {
		if d, ok := byType[mt]; ok && d.Status == docmodels.StatusExpired {
			risk += expiredMandatoryRisk
		}
	}

	if c.CompanyNumber == "" {
		risk += noCompanyNumberRisk
	}

	if risk < 0 {
		risk = 0
	}
	if risk > 100 {
		risk = 100
	}
	return risk
}

func contains(types []domain.DocumentType, t domain.DocumentType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}
