// Package service orchestrates the document lifecycle: upload, scoring,
// classification, supersession, manual review, and the daily date-based
// reclassification.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"paygate/internal/audit"
	cmodels "paygate/internal/contractor/models"
	"paygate/internal/document/classify"
	"paygate/internal/document/metrics"
	"paygate/internal/document/models"
	"paygate/internal/document/scoring"
	"paygate/pkg/domain"
	dErrors "paygate/pkg/domain-errors"
	"paygate/pkg/platform/sentinel"
	"paygate/pkg/requestcontext"
)

// Store persists compliance documents.
type Store interface {
	CreateAndSupersede(ctx context.Context, doc *models.ComplianceDocument) (*domain.DocumentID, error)
	FindByID(ctx context.Context, id domain.DocumentID) (*models.ComplianceDocument, error)
	FindByHash(ctx context.Context, contractorID domain.ContractorID, hash string) (*models.ComplianceDocument, error)
	CurrentForContractor(ctx context.Context, contractorID domain.ContractorID) ([]models.ComplianceDocument, error)
	ListForReview(ctx context.Context) ([]models.ComplianceDocument, error)
	Execute(ctx context.Context, id domain.DocumentID, validate func(*models.ComplianceDocument) error, mutate func(*models.ComplianceDocument)) (*models.ComplianceDocument, error)
}

// Analyzer is the seam to the external document extraction backend. An
// error means the backend is unavailable; the upload still succeeds and the
// document waits for a human in pending_review.
type Analyzer interface {
	Analyze(ctx context.Context, in UploadInput) (*models.AIAnalysis, error)
}

// ContractorSource confirms the owning contractor exists and is active.
type ContractorSource interface {
	Get(ctx context.Context, id domain.ContractorID) (*cmodels.Contractor, error)
}

// Recomputer folds a contractor's documents back into derived statuses.
// Implemented by the contractor service.
type Recomputer interface {
	RecomputeFor(ctx context.Context, contractorID domain.ContractorID) error
}

// RecomputeFunc adapts a plain function to the Recomputer interface.
type RecomputeFunc func(ctx context.Context, contractorID domain.ContractorID) error

func (f RecomputeFunc) RecomputeFor(ctx context.Context, contractorID domain.ContractorID) error {
	return f(ctx, contractorID)
}

// Service runs the upload pipeline and review operations.
type Service struct {
	store       Store
	contractors ContractorSource
	analyzer    Analyzer
	recomputer  Recomputer
	scoring     scoring.Policy
	classify    classify.Params
	auditor     *audit.Publisher
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

func New(store Store, contractors ContractorSource, analyzer Analyzer, recomputer Recomputer, scoringPolicy scoring.Policy, classifyParams classify.Params, auditor *audit.Publisher, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		store:       store,
		contractors: contractors,
		analyzer:    analyzer,
		recomputer:  recomputer,
		scoring:     scoringPolicy,
		classify:    classifyParams,
		auditor:     auditor,
		metrics:     m,
		logger:      logger,
	}
}

// UploadInput is the document upload event.
type UploadInput struct {
	ContractorID   domain.ContractorID
	Type           domain.DocumentType
	ProviderName   string
	PolicyNumber   string
	CoverageAmount *int64
	StartDate      *time.Time
	ExpiryDate     time.Time
	FileHash       string
	// Analysis carries a pre-computed AI result when the upstream pipeline
	// already ran extraction. Nil means the service asks the analyzer.
	Analysis *models.AIAnalysis
}

// Upload validates, scores, classifies and stores a document, superseding
// the contractor's previous current document of the same type, then triggers
// an aggregate recomputation.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*models.ComplianceDocument, error) {
	now := requestcontext.Now(ctx)
	today := requestcontext.Today(ctx)

	c, err := s.contractors.Get(ctx, in.ContractorID)
	if err != nil {
		return nil, err
	}
	if !c.Active {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "contractor is not active")
	}

	if existing, err := s.store.FindByHash(ctx, in.ContractorID, in.FileHash); err == nil && existing.IsCurrent() {
		return nil, dErrors.New(dErrors.CodeConflict, "identical document already uploaded")
	} else if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "duplicate check")
	}

	analysis := in.Analysis
	if analysis == nil && s.analyzer != nil {
		analysis, err = s.analyzer.Analyze(ctx, in)
		if err != nil {
			s.logger.WarnContext(ctx, "document analysis unavailable",
				slog.String("contractor_id", in.ContractorID.String()),
				slog.String("document_type", in.Type.String()),
				slog.String("error", err.Error()),
			)
			s.metrics.IncrementAnalyzerFailure()
			analysis = nil
		}
	}

	doc := &models.ComplianceDocument{
		ID:             domain.NewDocumentID(),
		ContractorID:   in.ContractorID,
		Type:           in.Type,
		ProviderName:   in.ProviderName,
		PolicyNumber:   in.PolicyNumber,
		CoverageAmount: in.CoverageAmount,
		StartDate:      in.StartDate,
		ExpiryDate:     in.ExpiryDate,
		FileHash:       in.FileHash,
		Analysis:       analysis,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if analysis != nil {
		result := scoring.Score(s.scoring, in.Type, *analysis, today)
		status := classify.AtUpload(s.classify, result, in.ExpiryDate, today)
		doc.ApplyClassification(status, result.Score, result.Reason(), now)
	} else {
		doc.ApplyClassification(classify.NoAnalysis(), 0, "", now)
	}

	superseded, err := s.store.CreateAndSupersede(ctx, doc)
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "concurrent upload for this document type, retry")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "store document")
	}

	s.metrics.IncrementClassified(doc.Status.String())
	s.auditor.Emit(ctx, audit.Event{
		Action:       audit.ActionDocumentUploaded,
		ContractorID: in.ContractorID,
		DocumentID:   &doc.ID,
		Detail:       in.Type.String(),
	})
	s.auditor.Emit(ctx, audit.Event{
		Action:       audit.ActionDocumentClassified,
		ContractorID: in.ContractorID,
		DocumentID:   &doc.ID,
		Detail:       doc.Status.String(),
	})
	if superseded != nil {
		s.auditor.Emit(ctx, audit.Event{
			Action:       audit.ActionDocumentSuperseded,
			ContractorID: in.ContractorID,
			DocumentID:   superseded,
			Detail:       "replaced by " + doc.ID.String(),
		})
	}

	s.logger.InfoContext(ctx, "document classified",
		slog.String("contractor_id", in.ContractorID.String()),
		slog.String("document_id", doc.ID.String()),
		slog.String("document_type", in.Type.String()),
		slog.String("status", doc.Status.String()),
		slog.Int("score", doc.VerificationScore),
	)

	s.recompute(ctx, in.ContractorID)
	return doc, nil
}

// Get returns one document.
func (s *Service) Get(ctx context.Context, id domain.DocumentID) (*models.ComplianceDocument, error) {
	doc, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "document not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find document")
	}
	return doc, nil
}

// ReviewQueue lists current documents waiting on a manual decision.
func (s *Service) ReviewQueue(ctx context.Context) ([]models.ComplianceDocument, error) {
	docs, err := s.store.ListForReview(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list review queue")
	}
	return docs, nil
}

// Review applies a manual decision to a document waiting in the queue.
// Approval re-enters the date rules, so an approved document lands on
// valid, expiring_soon or expired depending on its expiry date. Rejection
// requires a contractor-facing reason.
func (s *Service) Review(ctx context.Context, id domain.DocumentID, approve bool, reason string) (*models.ComplianceDocument, error) {
	if !approve && reason == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "rejection reason is required")
	}

	now := requestcontext.Now(ctx)
	today := requestcontext.Today(ctx)

	doc, err := s.store.Execute(ctx, id,
		func(d *models.ComplianceDocument) error { return d.CanReview() },
		func(d *models.ComplianceDocument) {
			if approve {
				status := classify.Redate(s.classify, models.StatusValid, d.ExpiryDate, today)
				d.ApplyClassification(status, d.VerificationScore, "", now)
			} else {
				d.ApplyClassification(models.StatusRejected, d.VerificationScore, reason, now)
			}
		},
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "document not found")
		}
		return nil, err
	}

	decision := "rejected"
	if approve {
		decision = "approved as " + doc.Status.String()
	}
	s.auditor.Emit(ctx, audit.Event{
		Action:       audit.ActionDocumentReviewed,
		ContractorID: doc.ContractorID,
		DocumentID:   &doc.ID,
		Detail:       decision,
	})

	s.recompute(ctx, doc.ContractorID)
	return doc, nil
}

// ReclassifyForContractor reruns the date rules over the contractor's
// current documents. It returns true when any status changed. The daily
// sweep calls this before recomputing the aggregate.
func (s *Service) ReclassifyForContractor(ctx context.Context, contractorID domain.ContractorID) (bool, error) {
	now := requestcontext.Now(ctx)
	today := requestcontext.Today(ctx)

	docs, err := s.store.CurrentForContractor(ctx, contractorID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "load current documents")
	}

	changed := false
	for _, doc := range docs {
		next := classify.Redate(s.classify, doc.Status, doc.ExpiryDate, today)
		if next == doc.Status {
			continue
		}
		prev := doc.Status
		_, err := s.store.Execute(ctx, doc.ID,
			func(d *models.ComplianceDocument) error {
				// Another writer may have moved the document meanwhile.
				if d.Status != prev {
					return sentinel.ErrInvalidState
				}
				return nil
			},
			func(d *models.ComplianceDocument) {
				d.ApplyClassification(next, d.VerificationScore, d.RejectionReason, now)
			},
		)
		if errors.Is(err, sentinel.ErrInvalidState) {
			continue
		}
		if err != nil {
			return changed, dErrors.Wrap(err, dErrors.CodeInternal, "reclassify document")
		}
		changed = true
		s.metrics.IncrementReclassified(next.String())
		s.auditor.Emit(ctx, audit.Event{
			Action:       audit.ActionDocumentClassified,
			ContractorID: contractorID,
			DocumentID:   &doc.ID,
			Detail:       string(prev) + " -> " + string(next),
		})
	}
	return changed, nil
}

// recompute triggers the aggregate derivation. A failure here is logged
// loudly but does not unwind the document write: the daily sweep reconciles
// the aggregate on its next run.
func (s *Service) recompute(ctx context.Context, contractorID domain.ContractorID) {
	if s.recomputer == nil {
		return
	}
	if err := s.recomputer.RecomputeFor(ctx, contractorID); err != nil {
		s.logger.ErrorContext(ctx, "compliance recompute failed",
			slog.String("contractor_id", contractorID.String()),
			slog.String("error", err.Error()),
		)
	}
}
