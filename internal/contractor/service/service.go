// Package service orchestrates contractor lifecycle and compliance
// derivation. It keeps orchestration out of handlers and domain logic thin.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"paygate/internal/audit"
	"paygate/internal/contractor/aggregate"
	"paygate/internal/contractor/metrics"
	"paygate/internal/contractor/models"
	docmodels "paygate/internal/document/models"
	"paygate/pkg/domain"
	dErrors "paygate/pkg/domain-errors"
	"paygate/pkg/platform/sentinel"
	"paygate/pkg/requestcontext"
)

// Store persists contractors.
type Store interface {
	Create(ctx context.Context, c *models.Contractor) error
	FindByID(ctx context.Context, id domain.ContractorID) (*models.Contractor, error)
	ListActive(ctx context.Context) ([]models.Contractor, error)
	Execute(ctx context.Context, id domain.ContractorID, validate func(context.Context, *models.Contractor) error, mutate func(context.Context, *models.Contractor)) (*models.Contractor, error)
}

// DocumentSource reads the current document set the aggregator folds.
type DocumentSource interface {
	CurrentForContractor(ctx context.Context, contractorID domain.ContractorID) ([]docmodels.ComplianceDocument, error)
}

// SummaryCache caches compliance summaries. A nil summary with nil error is
// a miss. Implementations must tolerate being skipped entirely; the service
// treats every cache failure as a miss.
type SummaryCache interface {
	Get(ctx context.Context, id domain.ContractorID) (*ComplianceSummary, error)
	Set(ctx context.Context, id domain.ContractorID, summary *ComplianceSummary) error
	Invalidate(ctx context.Context, id domain.ContractorID) error
}

// Service derives and persists contractor compliance state.
type Service struct {
	store     Store
	documents DocumentSource
	policy    aggregate.Policy
	cache     SummaryCache
	auditor   *audit.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func New(store Store, documents DocumentSource, policy aggregate.Policy, cache SummaryCache, auditor *audit.Publisher, metrics *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		documents: documents,
		policy:    policy,
		cache:     cache,
		auditor:   auditor,
		metrics:   metrics,
		logger:    logger,
	}
}

// OnboardInput carries the fields needed to register a contractor.
type OnboardInput struct {
	CompanyName   string
	CompanyNumber string
	ContactName   string
	ContactEmail  string
	ContactPhone  string
	HasEmployees  bool
}

// Onboard registers a contractor. It starts unverified with payments
// blocked; the first document upload triggers derivation.
func (s *Service) Onboard(ctx context.Context, in OnboardInput) (*models.Contractor, error) {
	now := requestcontext.Now(ctx)
	c, err := models.NewContractor(domain.NewContractorID(), in.CompanyName, in.CompanyNumber,
		in.ContactName, in.ContactEmail, in.ContactPhone, in.HasEmployees, now)
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, c); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyExists) {
			return nil, dErrors.New(dErrors.CodeConflict, "contractor already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create contractor")
	}

	s.logger.InfoContext(ctx, "contractor onboarded",
		slog.String("contractor_id", c.ID.String()),
		slog.String("company_name", c.CompanyName),
	)
	return c, nil
}

// Get returns one contractor.
func (s *Service) Get(ctx context.Context, id domain.ContractorID) (*models.Contractor, error) {
	c, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "contractor not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find contractor")
	}
	return c, nil
}

// ListActive returns all active contractors.
func (s *Service) ListActive(ctx context.Context) ([]models.Contractor, error) {
	list, err := s.store.ListActive(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list contractors")
	}
	return list, nil
}

// Recompute folds the contractor's current documents into derived statuses
// and persists the result. It is idempotent; repeated calls with an
// unchanged document set are no-ops apart from the updated timestamp.
func (s *Service) Recompute(ctx context.Context, id domain.ContractorID) (aggregate.Result, error) {
	started := time.Now()
	now := requestcontext.Now(ctx)

	var (
		docs        []docmodels.ComplianceDocument
		result      aggregate.Result
		prevStatus  models.VerificationStatus
		prevPayment models.PaymentStatus
	)
	// The document snapshot is read inside Execute, after the contractor
	// lock is held. Two concurrent recomputes therefore serialize, and the
	// later one always folds the document set the earlier one left behind.
	_, err := s.store.Execute(ctx, id,
		func(txCtx context.Context, c *models.Contractor) error {
			if !c.Active {
				return dErrors.New(dErrors.CodeInvariantViolation, "contractor is not active")
			}
			var err error
			docs, err = s.documents.CurrentForContractor(txCtx, id)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "load current documents")
			}
			return nil
		},
		func(_ context.Context, c *models.Contractor) {
			prevStatus = c.VerificationStatus
			prevPayment = c.PaymentStatus
			result = aggregate.Compute(s.policy, c, docs)
			c.ApplyAggregate(result.VerificationStatus, result.PaymentStatus, result.RiskScore, now)
		},
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return aggregate.Result{}, dErrors.New(dErrors.CodeNotFound, "contractor not found")
		}
		return aggregate.Result{}, err
	}

	s.invalidate(ctx, id)
	s.metrics.ObserveRecompute(string(result.VerificationStatus), time.Since(started))

	if prevStatus != result.VerificationStatus {
		s.auditor.Emit(ctx, audit.Event{
			Action:       audit.ActionComplianceChanged,
			ContractorID: id,
			Detail:       string(prevStatus) + " -> " + string(result.VerificationStatus),
		})
	}
	if prevPayment != result.PaymentStatus {
		s.metrics.IncrementGateTransition(string(result.PaymentStatus))
		s.auditor.Emit(ctx, audit.Event{
			Action:       audit.ActionPaymentGated,
			ContractorID: id,
			Detail:       string(prevPayment) + " -> " + string(result.PaymentStatus),
		})
		s.logger.InfoContext(ctx, "payment gate changed",
			slog.String("contractor_id", id.String()),
			slog.String("from", string(prevPayment)),
			slog.String("to", string(result.PaymentStatus)),
		)
	}

	return result, nil
}

// Suspend applies an administrative override. Payments are blocked for the
// duration of the override regardless of document state.
func (s *Service) Suspend(ctx context.Context, id domain.ContractorID, status models.VerificationStatus, reason string) (*models.Contractor, error) {
	if status != models.VerificationSuspended && status != models.VerificationBlocked {
		return nil, dErrors.New(dErrors.CodeValidation, "override status must be suspended or blocked")
	}
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "override reason is required")
	}

	now := requestcontext.Now(ctx)
	actor := requestcontext.Actor(ctx)
	c, err := s.store.Execute(ctx, id,
		func(_ context.Context, c *models.Contractor) error { return c.CanSuspend() },
		func(_ context.Context, c *models.Contractor) { c.ApplySuspension(status, reason, actor, now) },
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "contractor not found")
		}
		return nil, err
	}

	s.invalidate(ctx, id)
	s.metrics.IncrementGateTransition(string(models.PaymentBlocked))
	s.auditor.Emit(ctx, audit.Event{
		Action:       audit.ActionOverrideSet,
		ContractorID: id,
		Detail:       string(status) + ": " + reason,
	})
	return c, nil
}

// Reinstate clears the override and recomputes so derived statuses reflect
// documents again.
func (s *Service) Reinstate(ctx context.Context, id domain.ContractorID) (*models.Contractor, error) {
	now := requestcontext.Now(ctx)
	_, err := s.store.Execute(ctx, id,
		func(_ context.Context, c *models.Contractor) error { return c.CanReinstate() },
		func(_ context.Context, c *models.Contractor) { c.ApplyReinstatement(now) },
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "contractor not found")
		}
		return nil, err
	}

	s.auditor.Emit(ctx, audit.Event{
		Action:       audit.ActionOverrideCleared,
		ContractorID: id,
	})

	if _, err := s.Recompute(ctx, id); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete soft-deletes the contractor. History, documents and invoices are
// kept; the contractor drops out of sweeps and listings.
func (s *Service) Delete(ctx context.Context, id domain.ContractorID) error {
	now := requestcontext.Now(ctx)
	_, err := s.store.Execute(ctx, id,
		func(_ context.Context, c *models.Contractor) error {
			if !c.Active {
				return dErrors.New(dErrors.CodeConflict, "contractor already deleted")
			}
			return nil
		},
		func(_ context.Context, c *models.Contractor) { c.SoftDelete(now) },
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "contractor not found")
		}
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *Service) invalidate(ctx context.Context, id domain.ContractorID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "summary cache invalidation failed",
			slog.String("contractor_id", id.String()),
			slog.String("error", err.Error()),
		)
	}
}
