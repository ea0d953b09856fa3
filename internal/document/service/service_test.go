package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"paygate/internal/audit"
	cmodels "paygate/internal/contractor/models"
	"paygate/internal/document/classify"
	"paygate/internal/document/models"
	"paygate/internal/document/scoring"
	"paygate/internal/document/store"
	"paygate/pkg/domain"
	dErrors "paygate/pkg/domain-errors"
	"paygate/pkg/requestcontext"
	"paygate/pkg/testutil"
)

type stubContractors struct {
	contractors map[domain.ContractorID]*cmodels.Contractor
}

func (s *stubContractors) Get(_ context.Context, id domain.ContractorID) (*cmodels.Contractor, error) {
	c, ok := s.contractors[id]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "contractor not found")
	}
	return c, nil
}

type stubAnalyzer struct {
	analysis *models.AIAnalysis
	err      error
	calls    int
}

func (a *stubAnalyzer) Analyze(context.Context, UploadInput) (*models.AIAnalysis, error) {
	a.calls++
	return a.analysis, a.err
}

type DocumentServiceSuite struct {
	suite.Suite
	svc         *Service
	store       *store.InMemory
	contractors *stubContractors
	analyzer    *stubAnalyzer
	sink        *audit.Memory
	recomputed  []domain.ContractorID
	ctx         context.Context
	now         time.Time
}

func TestDocumentServiceSuite(t *testing.T) {
	suite.Run(t, new(DocumentServiceSuite))
}

func (s *DocumentServiceSuite) SetupTest() {
	s.now = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.store = store.NewInMemory()
	s.contractors = &stubContractors{contractors: make(map[domain.ContractorID]*cmodels.Contractor)}
	s.analyzer = &stubAnalyzer{analysis: cleanAnalysis()}
	s.sink = audit.NewMemory()
	s.recomputed = nil
	s.svc = New(
		s.store,
		s.contractors,
		s.analyzer,
		RecomputeFunc(func(_ context.Context, id domain.ContractorID) error {
			s.recomputed = append(s.recomputed, id)
			return nil
		}),
		scoring.Policy{MinimumCoverage: map[domain.DocumentType]int64{
			domain.DocTypePublicLiability: 100_000_000,
		}},
		classify.Params{},
		audit.NewPublisher(s.sink),
		nil,
		testutil.DiscardLogger(),
	)
}

func cleanAnalysis() *models.AIAnalysis {
	policy := "PL-123456"
	provider := "Aviva"
	expiry := time.Date(2027, time.March, 10, 0, 0, 0, 0, time.UTC)
	return &models.AIAnalysis{
		QualityScore: 100,
		Extracted: models.ExtractedData{
			PolicyNumber: &policy,
			ProviderName: &provider,
			ExpiryDate:   &expiry,
		},
	}
}

func (s *DocumentServiceSuite) newContractor() domain.ContractorID {
	id := domain.NewContractorID()
	s.contractors.contractors[id] = &cmodels.Contractor{ID: id, CompanyName: "Acme", Active: true}
	return id
}

func (s *DocumentServiceSuite) upload(contractorID domain.ContractorID, in UploadInput) *models.ComplianceDocument {
	doc, err := s.svc.Upload(s.ctx, in)
	s.Require().NoError(err)
	return doc
}

func (s *DocumentServiceSuite) baseInput(contractorID domain.ContractorID) UploadInput {
	coverage := int64(200_000_000)
	return UploadInput{
		ContractorID:   contractorID,
		Type:           domain.DocTypePublicLiability,
		ProviderName:   "Aviva",
		PolicyNumber:   "PL-123456",
		CoverageAmount: &coverage,
		ExpiryDate:     time.Date(2027, time.March, 10, 0, 0, 0, 0, time.UTC),
		FileHash:       "hash-1",
		Analysis:       cleanAnalysis(),
	}
}

func (s *DocumentServiceSuite) TestUploadCleanDocument() {
	contractorID := s.newContractor()
	doc := s.upload(contractorID, s.baseInput(contractorID))

	s.Equal(models.StatusValid, doc.Status)
	s.Equal(100, doc.VerificationScore)
	s.Empty(doc.RejectionReason)
	s.Equal(1, doc.Version)

	s.Run("aggregate recompute was triggered", func() {
		s.Require().Len(s.recomputed, 1)
		s.Equal(contractorID, s.recomputed[0])
	})

	s.Run("upload and classification are audited", func() {
		s.Len(s.sink.ByAction(audit.ActionDocumentUploaded), 1)
		s.Len(s.sink.ByAction(audit.ActionDocumentClassified), 1)
	})

	s.Run("provided analysis bypasses the analyzer", func() {
		s.Equal(0, s.analyzer.calls)
	})
}

func (s *DocumentServiceSuite) TestUploadCallsAnalyzerWhenAnalysisMissing() {
	contractorID := s.newContractor()
	in := s.baseInput(contractorID)
	in.Analysis = nil

	doc := s.upload(contractorID, in)
	s.Equal(1, s.analyzer.calls)
	s.Equal(models.StatusValid, doc.Status)
	s.Require().NotNil(doc.Analysis)
}

func (s *DocumentServiceSuite) TestAnalyzerFailureLeavesPendingReview() {
	contractorID := s.newContractor()
	s.analyzer.err = errors.New("vision backend down")
	in := s.baseInput(contractorID)
	in.Analysis = nil

	doc := s.upload(contractorID, in)
	s.Equal(models.StatusPendingReview, doc.Status)
	s.Equal(0, doc.VerificationScore)
	s.Nil(doc.Analysis)

	s.Run("artifact is stored despite the outage", func() {
		found, err := s.svc.Get(s.ctx, doc.ID)
		s.Require().NoError(err)
		s.Equal(doc.ID, found.ID)
	})
}

func (s *DocumentServiceSuite) TestUploadExpiredDocumentIsRejected() {
	contractorID := s.newContractor()
	in := s.baseInput(contractorID)
	in.ExpiryDate = s.now.AddDate(0, 0, -1)

	doc := s.upload(contractorID, in)
	s.Equal(models.StatusRejected, doc.Status)
	s.Contains(doc.RejectionReason, "expired")
}

func (s *DocumentServiceSuite) TestUploadSupersedesPrevious() {
	contractorID := s.newContractor()
	first := s.upload(contractorID, s.baseInput(contractorID))

	in := s.baseInput(contractorID)
	in.FileHash = "hash-2"
	second := s.upload(contractorID, in)

	s.Equal(2, second.Version)
	old, err := s.svc.Get(s.ctx, first.ID)
	s.Require().NoError(err)
	s.Require().NotNil(old.ReplacedBy)
	s.Equal(second.ID, *old.ReplacedBy)

	s.Run("supersession is audited", func() {
		s.Len(s.sink.ByAction(audit.ActionDocumentSuperseded), 1)
	})
}

func (s *DocumentServiceSuite) TestUploadDuplicateHashConflicts() {
	contractorID := s.newContractor()
	s.upload(contractorID, s.baseInput(contractorID))

	_, err := s.svc.Upload(s.ctx, s.baseInput(contractorID))
	s.Require().True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *DocumentServiceSuite) TestUploadUnknownContractor() {
	in := s.baseInput(domain.NewContractorID())
	_, err := s.svc.Upload(s.ctx, in)
	s.Require().True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *DocumentServiceSuite) TestUploadInactiveContractor() {
	contractorID := s.newContractor()
	s.contractors.contractors[contractorID].Active = false

	_, err := s.svc.Upload(s.ctx, s.baseInput(contractorID))
	s.Require().True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func (s *DocumentServiceSuite) TestReview() {
	contractorID := s.newContractor()
	s.analyzer.err = errors.New("down")
	in := s.baseInput(contractorID)
	in.Analysis = nil
	doc := s.upload(contractorID, in)
	s.Require().Equal(models.StatusPendingReview, doc.Status)

	s.Run("approval re-enters the date rules", func() {
		reviewed, err := s.svc.Review(s.ctx, doc.ID, true, "")
		s.Require().NoError(err)
		s.Equal(models.StatusValid, reviewed.Status)
		s.Len(s.sink.ByAction(audit.ActionDocumentReviewed), 1)
	})

	s.Run("a settled document is no longer reviewable", func() {
		_, err := s.svc.Review(s.ctx, doc.ID, true, "")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *DocumentServiceSuite) TestReviewReject() {
	contractorID := s.newContractor()
	s.analyzer.err = errors.New("down")
	in := s.baseInput(contractorID)
	in.Analysis = nil
	doc := s.upload(contractorID, in)

	s.Run("rejection requires a reason", func() {
		_, err := s.svc.Review(s.ctx, doc.ID, false, "")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	reviewed, err := s.svc.Review(s.ctx, doc.ID, false, "certificate is illegible")
	s.Require().NoError(err)
	s.Equal(models.StatusRejected, reviewed.Status)
	s.Equal("certificate is illegible", reviewed.RejectionReason)
}

func (s *DocumentServiceSuite) TestReviewQueue() {
	contractorID := s.newContractor()
	s.analyzer.err = errors.New("down")
	in := s.baseInput(contractorID)
	in.Analysis = nil
	doc := s.upload(contractorID, in)

	queue, err := s.svc.ReviewQueue(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(queue, 1)
	s.Equal(doc.ID, queue[0].ID)
}

func (s *DocumentServiceSuite) TestReclassifyForContractor() {
	contractorID := s.newContractor()
	in := s.baseInput(contractorID)
	in.ExpiryDate = s.now.AddDate(0, 0, 5)
	expiry := in.ExpiryDate
	in.Analysis.Extracted.ExpiryDate = &expiry
	doc := s.upload(contractorID, in)
	s.Require().Equal(models.StatusExpiringSoon, doc.Status)

	s.Run("advancing past expiry moves the document to expired", func() {
		later := requestcontext.WithTime(context.Background(), s.now.AddDate(0, 0, 5))
		changed, err := s.svc.ReclassifyForContractor(later, contractorID)
		s.Require().NoError(err)
		s.True(changed)

		found, err := s.svc.Get(s.ctx, doc.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusExpired, found.Status)
	})

	s.Run("a second pass on the same day changes nothing", func() {
		later := requestcontext.WithTime(context.Background(), s.now.AddDate(0, 0, 5))
		changed, err := s.svc.ReclassifyForContractor(later, contractorID)
		s.Require().NoError(err)
		s.False(changed)
	})

	s.Run("non date-driven statuses are untouched", func() {
		s.analyzer.err = errors.New("down")
		other := s.baseInput(contractorID)
		other.Type = domain.DocTypeGasSafe
		other.FileHash = "hash-gas"
		other.Analysis = nil
		pending := s.upload(contractorID, other)
		s.Require().Equal(models.StatusPendingReview, pending.Status)

		later := requestcontext.WithTime(context.Background(), s.now.AddDate(0, 0, 6))
		_, err := s.svc.ReclassifyForContractor(later, contractorID)
		s.Require().NoError(err)

		found, err := s.svc.Get(s.ctx, pending.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusPendingReview, found.Status)
	})
}
