package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"paygate/internal/contractor/models"
	docmodels "paygate/internal/document/models"
	"paygate/pkg/domain"
)

func testContractor(hasEmployees bool) *models.Contractor {
	c, _ := models.NewContractor(
		domain.NewContractorID(),
		"Hargreaves Plumbing Ltd",
		"09218814",
		"D Hargreaves",
		"office@hargreavesplumbing.co.uk",
		"07700900123",
		hasEmployees,
		time.Date(2026, time.January, 5, 9, 0, 0, 0, time.UTC),
	)
	return c
}

func doc(t domain.DocumentType, status docmodels.ComplianceStatus) docmodels.ComplianceDocument {
	return docmodels.ComplianceDocument{
		ID:           domain.NewDocumentID(),
		Type:         t,
		Status:       status,
		ExpiryDate:   time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC),
		Version:      1,
	}
}

func TestComputeVerificationStatus(t *testing.T) {
	t.Run("all mandatory accepted is verified", func(t *testing.T) {
		res := Compute(DefaultPolicy(), testContractor(false), []docmodels.ComplianceDocument{
			doc(domain.DocTypePublicLiability, docmodels.StatusValid),
		})
		assert.Equal(t, models.VerificationVerified, res.VerificationStatus)
		assert.Equal(t, models.PaymentAllowed, res.PaymentStatus)
		assert.Empty(t, res.Defects)
	})

	t.Run("expiring soon still satisfies a mandatory type", func(t *testing.T) {
		res := Compute(DefaultPolicy(), testContractor(false), []docmodels.ComplianceDocument{
			doc(domain.DocTypePublicLiability, docmodels.StatusExpiringSoon),
		})
		assert.Equal(t, models.VerificationVerified, res.VerificationStatus)
		assert.Equal(t, models.PaymentAllowed, res.PaymentStatus)
	})

	t.Run("employers liability becomes mandatory with staff", func(t *testing.T) {
		res := Compute(DefaultPolicy(), testContractor(true), []docmodels.ComplianceDocument{
			doc(domain.DocTypePublicLiability, docmodels.StatusValid),
		})
		assert.Equal(t, models.VerificationPartiallyVerified, res.VerificationStatus)
		assert.Equal(t, models.PaymentBlocked, res.PaymentStatus)
		assert.Contains(t, res.Defects, "employers_liability document missing")
	})

	t.Run("no documents is unverified", func(t *testing.T) {
		res := Compute(DefaultPolicy(), testContractor(false), nil)
		assert.Equal(t, models.VerificationUnverified, res.VerificationStatus)
		assert.Equal(t, models.PaymentBlocked, res.PaymentStatus)
		assert.Contains(t, res.Defects, "public_liability document missing")
	})

	t.Run("expired mandatory document is unverified", func(t *testing.T) {
		res := Compute(DefaultPolicy(), testContractor(false), []docmodels.ComplianceDocument{
			doc(domain.DocTypePublicLiability, docmodels.StatusExpired),
		})
		assert.Equal(t, models.VerificationUnverified, res.VerificationStatus)
		assert.Contains(t, res.Defects, "public_liability expired")
	})

	t.Run("partial needs a satisfied mandatory type and a valid document", func(t *testing.T) {
		// Mandatory PL satisfied but EL missing, with a valid extra doc.
		res := Compute(DefaultPolicy(), testContractor(true), []docmodels.ComplianceDocument{
			doc(domain.DocTypePublicLiability, docmodels.StatusValid),
			doc(domain.DocTypeGasSafe, docmodels.StatusValid),
		})
		assert.Equal(t, models.VerificationPartiallyVerified, res.VerificationStatus)
	})
}

func TestPaymentGateIsBinary(t *testing.T) {
	// allowed iff verified; partially_verified must not leak through.
	for _, tc := range []struct {
		docs []docmodels.ComplianceDocument
		want models.PaymentStatus
	}{
		{[]docmodels.ComplianceDocument{doc(domain.DocTypePublicLiability, docmodels.StatusValid)}, models.PaymentAllowed},
		{[]docmodels.ComplianceDocument{doc(domain.DocTypePublicLiability, docmodels.StatusPendingReview)}, models.PaymentBlocked},
		{nil, models.PaymentBlocked},
	} {
		res := Compute(DefaultPolicy(), testContractor(false), tc.docs)
		assert.Equal(t, tc.want, res.PaymentStatus)
		assert.Equal(t, tc.want == models.PaymentAllowed, res.VerificationStatus == models.VerificationVerified)
	}
}

func TestComputeRiskScore(t *testing.T) {
	t.Run("verified with extra coverage", func(t *testing.T) {
		// 50 - 30 (verified) - 10 (extra valid type) = 10
		res := Compute(DefaultPolicy(), testContractor(false), []docmodels.ComplianceDocument{
			doc(domain.DocTypePublicLiability, docmodels.StatusValid),
			doc(domain.DocTypeProfessionalIndemnity, docmodels.StatusValid),
		})
		assert.Equal(t, 10, res.RiskScore)
	})

	t.Run("extra coverage bonus is capped at one", func(t *testing.T) {
		res := Compute(DefaultPolicy(), testContractor(false), []docmodels.ComplianceDocument{
			doc(domain.DocTypePublicLiability, docmodels.StatusValid),
			doc(domain.DocTypeProfessionalIndemnity, docmodels.StatusValid),
			doc(domain.DocTypeGasSafe, docmodels.StatusValid),
			doc(domain.DocTypeNICEIC, docmodels.StatusValid),
		})
		assert.Equal(t, 10, res.RiskScore)
	})

	t.Run("expired mandatory adds risk", func(t *testing.T) {
		// 50 + 15 (expired mandatory) = 65
		res := Compute(DefaultPolicy(), testContractor(false), []docmodels.ComplianceDocument{
			doc(domain.DocTypePublicLiability, docmodels.StatusExpired),
		})
		assert.Equal(t, 65, res.RiskScore)
	})

	t.Run("missing company number adds risk", func(t *testing.T) {
		c := testContractor(false)
		c.CompanyNumber = ""
		res := Compute(DefaultPolicy(), c, nil)
		assert.Equal(t, 60, res.RiskScore)
	})

	t.Run("score clamps to range", func(t *testing.T) {
		c := testContractor(true)
		c.CompanyNumber = ""
		res := Compute(DefaultPolicy(), c, []docmodels.ComplianceDocument{
			doc(domain.DocTypePublicLiability, docmodels.StatusExpired),
			doc(domain.DocTypeEmployersLiability, docmodels.StatusExpired),
		})
		// 50 + 15 + 15 + 10 = 90, within range but asserts the arithmetic.
		assert.Equal(t, 90, res.RiskScore)
		assert.GreaterOrEqual(t, res.RiskScore, 0)
		assert.LessOrEqual(t, res.RiskScore, 100)
	})
}

func TestComputeOverridePrecedence(t *testing.T) {
	c := testContractor(false)
	c.ApplySuspension(models.VerificationSuspended, "payment dispute under investigation", "ops@principal.example", time.Now())

	res := Compute(DefaultPolicy(), c, []docmodels.ComplianceDocument{
		doc(domain.DocTypePublicLiability, docmodels.StatusValid),
	})
	assert.Equal(t, models.VerificationSuspended, res.VerificationStatus)
	assert.Equal(t, models.PaymentBlocked, res.PaymentStatus)
	assert.Equal(t, []string{"payment dispute under investigation"}, res.Defects)
}

func TestComputeIsIdempotent(t *testing.T) {
	c := testContractor(true)
	docs := []docmodels.ComplianceDocument{
		doc(domain.DocTypePublicLiability, docmodels.StatusValid),
		doc(domain.DocTypeEmployersLiability, docmodels.StatusExpiringSoon),
		doc(domain.DocTypeGasSafe, docmodels.StatusExpired),
	}

	first := Compute(DefaultPolicy(), c, docs)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Compute(DefaultPolicy(), c, docs))
	}
}
