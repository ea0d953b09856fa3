package sweep_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"paygate/internal/audit"
	"paygate/internal/contractor/aggregate"
	cmodels "paygate/internal/contractor/models"
	contractorservice "paygate/internal/contractor/service"
	contractorstore "paygate/internal/contractor/store"
	"paygate/internal/document/classify"
	dmodels "paygate/internal/document/models"
	"paygate/internal/document/scoring"
	docservice "paygate/internal/document/service"
	docstore "paygate/internal/document/store"
	invoicemodels "paygate/internal/invoice/models"
	invoiceservice "paygate/internal/invoice/service"
	invoicestore "paygate/internal/invoice/store"
	"paygate/internal/notify/dispatch"
	notifymodels "paygate/internal/notify/models"
	notifyservice "paygate/internal/notify/service"
	notifystore "paygate/internal/notify/store"
	"paygate/internal/platform/lock"
	"paygate/internal/sweep"
	"paygate/pkg/domain"
	"paygate/pkg/requestcontext"
	"paygate/pkg/testutil"
)

// SweepSuite wires the real services over in-memory stores and drives full
// daily passes, day by day.
type SweepSuite struct {
	suite.Suite

	today time.Time

	docs       *docstore.InMemory
	notesStore *notifystore.InMemory
	dispatcher *dispatch.Memory
	sink       *audit.Memory

	contractors *contractorservice.Service
	documents   *docservice.Service
	invoices    *invoiceservice.Service
	runner      *sweep.Runner
}

func TestSweepSuite(t *testing.T) {
	suite.Run(t, new(SweepSuite))
}

func (s *SweepSuite) SetupTest() {
	s.today = time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)

	s.docs = docstore.NewInMemory()
	s.notesStore = notifystore.NewInMemory()
	s.dispatcher = dispatch.NewMemory()
	s.sink = audit.NewMemory()
	auditor := audit.NewPublisher(s.sink)

	s.contractors = contractorservice.New(
		contractorstore.NewInMemory(),
		s.docs,
		aggregate.DefaultPolicy(),
		nil,
		auditor,
		nil,
		testutil.DiscardLogger(),
	)
	s.documents = docservice.New(
		s.docs,
		s.contractors,
		nil,
		docservice.RecomputeFunc(func(ctx context.Context, id domain.ContractorID) error {
			_, err := s.contractors.Recompute(ctx, id)
			return err
		}),
		scoring.Policy{MinimumCoverage: map[domain.DocumentType]int64{
			domain.DocTypePublicLiability: 100_000_000,
		}},
		classify.Params{},
		auditor,
		nil,
		testutil.DiscardLogger(),
	)
	s.invoices = invoiceservice.New(
		invoicestore.NewInMemory(),
		s.contractors,
		auditor,
		nil,
		testutil.DiscardLogger(),
	)
	scheduler := notifyservice.NewScheduler(
		s.notesStore, s.docs, s.contractors, s.dispatcher, nil, testutil.DiscardLogger(),
	)
	s.runner = sweep.NewRunner(
		s.contractors, s.documents, s.contractors, s.invoices, scheduler,
		lock.NewInProcessLocker(), auditor, nil, testutil.DiscardLogger(),
		4, time.Minute,
	)
}

func (s *SweepSuite) ctxAt(day time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), day)
}

func (s *SweepSuite) onboard() domain.ContractorID {
	c, err := s.contractors.Onboard(s.ctxAt(s.today), contractorservice.OnboardInput{
		CompanyName:   "Acme Electrical",
		CompanyNumber: "12345678",
		ContactEmail:  "ops@acme.example",
	})
	s.Require().NoError(err)
	return c.ID
}

func (s *SweepSuite) upload(contractorID domain.ContractorID, expiry time.Time, hash string) *dmodels.ComplianceDocument {
	coverage := int64(150_000_000)
	analysis := &dmodels.AIAnalysis{
		QualityScore: 95,
		Extracted: dmodels.ExtractedData{
			PolicyNumber:   ptr("PL-123456"),
			ProviderName:   ptr("Aviva"),
			CoverageAmount: &coverage,
			ExpiryDate:     &expiry,
		},
	}
	doc, err := s.documents.Upload(s.ctxAt(s.today), docservice.UploadInput{
		ContractorID:   contractorID,
		Type:           domain.DocTypePublicLiability,
		ProviderName:   "Aviva",
		PolicyNumber:   "PL-123456",
		CoverageAmount: &coverage,
		ExpiryDate:     expiry,
		FileHash:       hash,
		Analysis:       analysis,
	})
	s.Require().NoError(err)
	return doc
}

func (s *SweepSuite) invoiceFor(contractorID domain.ContractorID) domain.InvoiceID {
	inv, err := s.invoices.Create(s.ctxAt(s.today), invoiceservice.CreateInput{
		ContractorID: contractorID,
		Amount:       decimal.NewFromInt(5000),
		DueDate:      s.today.AddDate(0, 1, 0),
	})
	s.Require().NoError(err)
	return inv.ID
}

func ptr[T any](v T) *T { return &v }

func (s *SweepSuite) TestExpiryDayLapseBlocksPayments() {
	contractorID := s.onboard()
	expiry := s.today.AddDate(0, 0, 5)
	doc := s.upload(contractorID, expiry, "hash-lapsing")
	invoiceID := s.invoiceFor(contractorID)
	s.Require().Equal(dmodels.StatusExpiringSoon, doc.Status)

	report, err := s.runner.Run(s.ctxAt(expiry))
	s.Require().NoError(err)
	s.Equal(1, report.Contractors)
	s.Equal(1, report.Reclassified)
	s.Equal(1, report.InvoicesBlocked)

	got, err := s.documents.Get(s.ctxAt(expiry), doc.ID)
	s.Require().NoError(err)
	s.Equal(dmodels.StatusExpired, got.Status)

	contractor, err := s.contractors.Get(s.ctxAt(expiry), contractorID)
	s.Require().NoError(err)
	s.Equal(cmodels.VerificationUnverified, contractor.VerificationStatus)
	s.Equal(cmodels.PaymentBlocked, contractor.PaymentStatus)

	inv, err := s.invoices.Get(s.ctxAt(expiry), invoiceID)
	s.Require().NoError(err)
	s.Equal(invoicemodels.StatusBlocked, inv.Status)
	s.Contains(inv.BlockReason, "public_liability")

	s.Run("expiry-day reminder fired", func() {
		record, err := s.notesStore.FindByPair(s.ctxAt(expiry), doc.ID, 0)
		s.Require().NoError(err)
		s.Equal(notifymodels.StatusSent, record.Status)
		s.Equal(notifymodels.TemplateUrgent, record.TemplateID)
	})
}

func (s *SweepSuite) TestReuploadReleasesBlockedInvoice() {
	contractorID := s.onboard()
	old := s.upload(contractorID, s.today.AddDate(0, 0, 1), "hash-lapsing")
	invoiceID := s.invoiceFor(contractorID)

	nextDay := s.today.AddDate(0, 0, 1)
	_, err := s.runner.Run(s.ctxAt(nextDay))
	s.Require().NoError(err)

	inv, err := s.invoices.Get(s.ctxAt(nextDay), invoiceID)
	s.Require().NoError(err)
	s.Require().Equal(invoicemodels.StatusBlocked, inv.Status)

	// Clean replacement upload supersedes the lapsed document and flips the
	// aggregate straight away.
	fresh := s.upload(contractorID, s.today.AddDate(1, 0, 0), "hash-replacement")
	s.Equal(dmodels.StatusValid, fresh.Status)

	oldDoc, err := s.documents.Get(s.ctxAt(nextDay), old.ID)
	s.Require().NoError(err)
	s.Require().NotNil(oldDoc.ReplacedBy)
	s.Equal(fresh.ID, *oldDoc.ReplacedBy)

	contractor, err := s.contractors.Get(s.ctxAt(nextDay), contractorID)
	s.Require().NoError(err)
	s.Equal(cmodels.VerificationVerified, contractor.VerificationStatus)
	s.Equal(cmodels.PaymentAllowed, contractor.PaymentStatus)

	report, err := s.runner.Run(s.ctxAt(nextDay))
	s.Require().NoError(err)
	s.Equal(1, report.InvoicesApproved)

	inv, err = s.invoices.Get(s.ctxAt(nextDay), invoiceID)
	s.Require().NoError(err)
	s.Equal(invoicemodels.StatusApproved, inv.Status)
	s.Empty(inv.BlockReason)
}

func (s *SweepSuite) TestDoubleSweepIsIdempotent() {
	contractorID := s.onboard()
	s.upload(contractorID, s.today.AddDate(0, 0, 14), "hash-fortnight")
	s.invoiceFor(contractorID)

	first, err := s.runner.Run(s.ctxAt(s.today))
	s.Require().NoError(err)
	s.Equal(1, first.InvoicesApproved)
	s.Equal(1, first.RemindersSent)

	second, err := s.runner.Run(s.ctxAt(s.today))
	s.Require().NoError(err)
	s.Zero(second.Reclassified)
	s.Zero(second.InvoicesApproved)
	s.Zero(second.InvoicesBlocked)
	s.Zero(second.RemindersSent)
	s.Len(s.dispatcher.Requests(), 1)
}

func (s *SweepSuite) TestHorizonsFireOnceEachAsDaysPass() {
	contractorID := s.onboard()
	doc := s.upload(contractorID, s.today.AddDate(0, 0, 5), "hash-five-days")
	s.Require().Equal(dmodels.StatusExpiringSoon, doc.Status)

	contractor, err := s.contractors.Get(s.ctxAt(s.today), contractorID)
	s.Require().NoError(err)
	s.Require().Equal(cmodels.VerificationVerified, contractor.VerificationStatus)

	var sent int
	for day := 0; day <= 5; day++ {
		date := s.today.AddDate(0, 0, day)
		report, err := s.runner.Run(s.ctxAt(date))
		s.Require().NoError(err)
		sent += report.RemindersSent
	}

	// Horizons 3, 1 and 0 land inside the window; 5 is not a horizon.
	s.Equal(3, sent)
	s.Len(s.dispatcher.Requests(), 3)
	for _, horizon := range []int{3, 1, 0} {
		record, err := s.notesStore.FindByPair(s.ctxAt(s.today), doc.ID, horizon)
		s.Require().NoError(err)
		s.Equal(notifymodels.StatusSent, record.Status)
		s.Equal(1, record.Attempts)
	}

	s.Run("still verified while expiring soon, unverified once lapsed", func() {
		contractor, err := s.contractors.Get(s.ctxAt(s.today), contractorID)
		s.Require().NoError(err)
		s.Equal(cmodels.VerificationUnverified, contractor.VerificationStatus)

		lapsed, err := s.documents.Get(s.ctxAt(s.today), doc.ID)
		s.Require().NoError(err)
		s.Equal(dmodels.StatusExpired, lapsed.Status)
	})
}

func (s *SweepSuite) TestSweepAuditsCompletion() {
	s.onboard()
	_, err := s.runner.Run(s.ctxAt(s.today))
	s.Require().NoError(err)
	s.Len(s.sink.ByAction(audit.ActionSweepCompleted), 1)
}
