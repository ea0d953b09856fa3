//go:build integration

package store

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	cmodels "paygate/internal/contractor/models"
	contractorstore "paygate/internal/contractor/store"
	"paygate/internal/document/models"
	"paygate/pkg/domain"
	"paygate/pkg/platform/sentinel"
	"paygate/pkg/testutil/containers"
)

type DocumentPostgresSuite struct {
	suite.Suite
	postgres    *containers.PostgresContainer
	store       *Postgres
	contractors *contractorstore.Postgres
	ctx         context.Context
	now         time.Time
}

func TestDocumentPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(DocumentPostgresSuite))
}

func (s *DocumentPostgresSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = NewPostgres(s.postgres.DB)
	s.contractors = contractorstore.NewPostgres(s.postgres.DB)
	s.ctx = context.Background()
	s.now = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
}

func (s *DocumentPostgresSuite) SetupTest() {
	s.Require().NoError(s.postgres.Truncate(s.ctx))
}

func (s *DocumentPostgresSuite) seedContractor() domain.ContractorID {
	c, err := cmodels.NewContractor(
		domain.NewContractorID(), "acme", "12345678", "Sam Leach",
		"ops@acme.example", "", false, s.now,
	)
	s.Require().NoError(err)
	s.Require().NoError(s.contractors.Create(s.ctx, c))
	return c.ID
}

func (s *DocumentPostgresSuite) newDocument(contractorID domain.ContractorID, docType domain.DocumentType, hash string) *models.ComplianceDocument {
	return &models.ComplianceDocument{
		ID:           domain.NewDocumentID(),
		ContractorID: contractorID,
		Type:         docType,
		ProviderName: "Aviva",
		ExpiryDate:   s.now.AddDate(1, 0, 0),
		FileHash:     hash,
		Status:       models.StatusValid,
		CreatedAt:    s.now,
		UpdatedAt:    s.now,
	}
}

func (s *DocumentPostgresSuite) TestSupersessionChain() {
	contractorID := s.seedContractor()

	first := s.newDocument(contractorID, domain.DocTypePublicLiability, "hash-1")
	superseded, err := s.store.CreateAndSupersede(s.ctx, first)
	s.Require().NoError(err)
	s.Nil(superseded)
	s.Equal(1, first.Version)

	second := s.newDocument(contractorID, domain.DocTypePublicLiability, "hash-2")
	superseded, err = s.store.CreateAndSupersede(s.ctx, second)
	s.Require().NoError(err)
	s.Require().NotNil(superseded)
	s.Equal(first.ID, *superseded)
	s.Equal(2, second.Version)

	third := s.newDocument(contractorID, domain.DocTypePublicLiability, "hash-3")
	superseded, err = s.store.CreateAndSupersede(s.ctx, third)
	s.Require().NoError(err)
	s.Require().NotNil(superseded)
	s.Equal(second.ID, *superseded)
	s.Equal(3, third.Version)

	s.Run("replaced-by pointers form a chain", func() {
		old, err := s.store.FindByID(s.ctx, first.ID)
		s.Require().NoError(err)
		s.Require().NotNil(old.ReplacedBy)
		s.Equal(second.ID, *old.ReplacedBy)

		mid, err := s.store.FindByID(s.ctx, second.ID)
		s.Require().NoError(err)
		s.Require().NotNil(mid.ReplacedBy)
		s.Equal(third.ID, *mid.ReplacedBy)
	})

	s.Run("exactly one current document per type", func() {
		current, err := s.store.CurrentForContractor(s.ctx, contractorID)
		s.Require().NoError(err)
		s.Require().Len(current, 1)
		s.Equal(third.ID, current[0].ID)
	})
}

func (s *DocumentPostgresSuite) TestAnalysisRoundTrip() {
	contractorID := s.seedContractor()

	policy := "PL-998877"
	coverage := int64(200_000_000)
	expiry := s.now.AddDate(1, 0, 0)
	doc := s.newDocument(contractorID, domain.DocTypePublicLiability, "hash-1")
	doc.CoverageAmount = &coverage
	doc.PolicyNumber = policy
	doc.Analysis = &models.AIAnalysis{
		QualityScore: 92,
		Extracted: models.ExtractedData{
			PolicyNumber:   &policy,
			CoverageAmount: &coverage,
			ExpiryDate:     &expiry,
		},
		FraudIndicators: []models.FraudIndicator{
			{Type: "font_inconsistency", Severity: models.SeverityLow, Confidence: 0.4},
		},
	}

	_, err := s.store.CreateAndSupersede(s.ctx, doc)
	s.Require().NoError(err)

	found, err := s.store.FindByID(s.ctx, doc.ID)
	s.Require().NoError(err)
	s.Require().NotNil(found.CoverageAmount)
	s.Equal(coverage, *found.CoverageAmount)
	s.Require().NotNil(found.Analysis)
	s.Equal(92, found.Analysis.QualityScore)
	s.Require().NotNil(found.Analysis.Extracted.PolicyNumber)
	s.Equal(policy, *found.Analysis.Extracted.PolicyNumber)
	s.Require().Len(found.Analysis.FraudIndicators, 1)
	s.Equal(models.SeverityLow, found.Analysis.FraudIndicators[0].Severity)
}

func (s *DocumentPostgresSuite) TestFindByHash() {
	contractorID := s.seedContractor()
	doc := s.newDocument(contractorID, domain.DocTypePublicLiability, "hash-dup")
	_, err := s.store.CreateAndSupersede(s.ctx, doc)
	s.Require().NoError(err)

	found, err := s.store.FindByHash(s.ctx, contractorID, "hash-dup")
	s.Require().NoError(err)
	s.Equal(doc.ID, found.ID)

	s.Run("hash lookup is scoped per contractor", func() {
		_, err := s.store.FindByHash(s.ctx, s.seedContractor(), "hash-dup")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestCurrentExpiringOnMatchesCalendarDate verifies the lookup compares
// calendar dates, not timestamps.
func (s *DocumentPostgresSuite) TestCurrentExpiringOnMatchesCalendarDate() {
	contractorID := s.seedContractor()
	doc := s.newDocument(contractorID, domain.DocTypePublicLiability, "hash-1")
	doc.ExpiryDate = time.Date(2026, time.April, 9, 23, 30, 0, 0, time.UTC)
	_, err := s.store.CreateAndSupersede(s.ctx, doc)
	s.Require().NoError(err)

	expiring, err := s.store.CurrentExpiringOn(s.ctx, time.Date(2026, time.April, 9, 0, 0, 0, 0, time.UTC))
	s.Require().NoError(err)
	s.Require().Len(expiring, 1)
	s.Equal(doc.ID, expiring[0].ID)

	s.Run("adjacent dates do not match", func() {
		expiring, err := s.store.CurrentExpiringOn(s.ctx, time.Date(2026, time.April, 10, 0, 0, 0, 0, time.UTC))
		s.Require().NoError(err)
		s.Empty(expiring)
	})
}

func (s *DocumentPostgresSuite) TestListForReview() {
	contractorID := s.seedContractor()

	pending := s.newDocument(contractorID, domain.DocTypePublicLiability, "hash-1")
	pending.Status = models.StatusPendingReview
	_, err := s.store.CreateAndSupersede(s.ctx, pending)
	s.Require().NoError(err)

	fraud := s.newDocument(contractorID, domain.DocTypeGasSafe, "hash-2")
	fraud.Status = models.StatusFraudSuspected
	_, err = s.store.CreateAndSupersede(s.ctx, fraud)
	s.Require().NoError(err)

	valid := s.newDocument(contractorID, domain.DocTypeCSCSCard, "hash-3")
	_, err = s.store.CreateAndSupersede(s.ctx, valid)
	s.Require().NoError(err)

	review, err := s.store.ListForReview(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(review, 2)
}

func (s *DocumentPostgresSuite) TestExecuteRollsBackOnValidateFailure() {
	contractorID := s.seedContractor()
	doc := s.newDocument(contractorID, domain.DocTypePublicLiability, "hash-1")
	doc.Status = models.StatusPendingReview
	_, err := s.store.CreateAndSupersede(s.ctx, doc)
	s.Require().NoError(err)

	_, err = s.store.Execute(s.ctx, doc.ID,
		func(d *models.ComplianceDocument) error { return sentinel.ErrInvalidState },
		func(d *models.ComplianceDocument) { d.Status = models.StatusValid },
	)
	s.Require().ErrorIs(err, sentinel.ErrInvalidState)

	found, err := s.store.FindByID(s.ctx, doc.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPendingReview, found.Status)
}

// TestConcurrentReplacementsSerialize verifies that concurrent uploads of the
// same document type serialize on the current-pointer lock, so every version
// number is assigned exactly once and one document ends up current.
func (s *DocumentPostgresSuite) TestConcurrentReplacementsSerialize() {
	contractorID := s.seedContractor()
	first := s.newDocument(contractorID, domain.DocTypePublicLiability, "hash-seed")
	_, err := s.store.CreateAndSupersede(s.ctx, first)
	s.Require().NoError(err)

	const goroutines = 10
	var wg sync.WaitGroup
	var failures atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			doc := s.newDocument(contractorID, domain.DocTypePublicLiability, "hash-"+domain.NewDocumentID().String())
			if _, err := s.store.CreateAndSupersede(s.ctx, doc); err != nil {
				failures.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(0), failures.Load())

	current, err := s.store.CurrentForContractor(s.ctx, contractorID)
	s.Require().NoError(err)
	s.Require().Len(current, 1)
	s.Equal(1+goroutines, current[0].Version)
}
