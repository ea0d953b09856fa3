// Package service orchestrates invoice creation, the payment-run sweep,
// and the guarded terminal transitions.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"paygate/internal/audit"
	cmodels "paygate/internal/contractor/models"
	"paygate/internal/invoice/gate"
	"paygate/internal/invoice/metrics"
	"paygate/internal/invoice/models"
	"paygate/pkg/domain"
	dErrors "paygate/pkg/domain-errors"
	"paygate/pkg/platform/sentinel"
	"paygate/pkg/requestcontext"
)

// Store persists invoices.
type Store interface {
	Create(ctx context.Context, inv *models.Invoice) error
	FindByID(ctx context.Context, id domain.InvoiceID) (*models.Invoice, error)
	ListForContractor(ctx context.Context, contractorID domain.ContractorID) ([]models.Invoice, error)
	ListGateable(ctx context.Context, contractorID domain.ContractorID) ([]models.Invoice, error)
	Execute(ctx context.Context, id domain.InvoiceID, validate func(*models.Invoice) error, mutate func(*models.Invoice)) (*models.Invoice, error)
}

// ComplianceSource reports a contractor's payment gate and the defects
// behind it. Implemented by the contractor service.
type ComplianceSource interface {
	PaymentState(ctx context.Context, id domain.ContractorID) (cmodels.PaymentStatus, []string, error)
}

// Service runs the payment gate over invoices.
type Service struct {
	store      Store
	compliance ComplianceSource
	auditor    *audit.Publisher
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func New(store Store, compliance ComplianceSource, auditor *audit.Publisher, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		store:      store,
		compliance: compliance,
		auditor:    auditor,
		metrics:    m,
		logger:     logger,
	}
}

// CreateInput is the invoice creation event.
type CreateInput struct {
	ContractorID domain.ContractorID
	Amount       decimal.Decimal
	DueDate      time.Time
}

// Create stores a pending invoice with the gate consulted and stamped. The
// invoice stays pending either way; only the sweep moves the status.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Invoice, error) {
	now := requestcontext.Now(ctx)

	payment, defects, err := s.compliance.PaymentState(ctx, in.ContractorID)
	if err != nil {
		return nil, err
	}
	decision := gate.Decide(payment, defects)

	inv, err := models.NewInvoice(domain.NewInvoiceID(), in.ContractorID, in.Amount, in.DueDate, now)
	if err != nil {
		return nil, err
	}
	inv.StampGateCheck(decision.CanPay, decision.BlockReason, now)

	if err := s.store.Create(ctx, inv); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyExists) {
			return nil, dErrors.New(dErrors.CodeConflict, "invoice already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create invoice")
	}

	s.logger.InfoContext(ctx, "invoice created",
		slog.String("invoice_id", inv.ID.String()),
		slog.String("contractor_id", in.ContractorID.String()),
		slog.String("amount", in.Amount.String()),
		slog.Bool("can_pay", decision.CanPay),
	)
	return inv, nil
}

// Get returns one invoice.
func (s *Service) Get(ctx context.Context, id domain.InvoiceID) (*models.Invoice, error) {
	inv, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "invoice not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find invoice")
	}
	return inv, nil
}

// ListForContractor returns a contractor's invoices.
func (s *Service) ListForContractor(ctx context.Context, contractorID domain.ContractorID) ([]models.Invoice, error) {
	list, err := s.store.ListForContractor(ctx, contractorID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list invoices")
	}
	return list, nil
}

// GateDecision evaluates the gate for one invoice without persisting
// anything. Consumed by the payment-run report.
func (s *Service) GateDecision(ctx context.Context, id domain.InvoiceID) (gate.Decision, error) {
	inv, err := s.Get(ctx, id)
	if err != nil {
		return gate.Decision{}, err
	}
	payment, defects, err := s.compliance.PaymentState(ctx, inv.ContractorID)
	if err != nil {
		return gate.Decision{}, err
	}
	return gate.Decide(payment, defects), nil
}

// MarkPaid transitions an invoice to paid. The contractor's gate is checked
// at the moment of transition; a blocked contractor's invoice cannot be
// paid no matter what state the invoice itself is in.
func (s *Service) MarkPaid(ctx context.Context, id domain.InvoiceID) (*models.Invoice, error) {
	now := requestcontext.Now(ctx)

	inv, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	payment, _, err := s.compliance.PaymentState(ctx, inv.ContractorID)
	if err != nil {
		return nil, err
	}
	if payment != cmodels.PaymentAllowed {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "contractor is not payment-eligible")
	}

	inv, err = s.store.Execute(ctx, id,
		func(i *models.Invoice) error { return i.CanMarkPaid() },
		func(i *models.Invoice) { i.MarkPaid(now) },
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "invoice not found")
		}
		return nil, err
	}

	s.metrics.IncrementPaid()
	s.logger.InfoContext(ctx, "invoice paid",
		slog.String("invoice_id", id.String()),
		slog.String("contractor_id", inv.ContractorID.String()),
	)
	return inv, nil
}

// Cancel transitions an invoice to cancelled.
func (s *Service) Cancel(ctx context.Context, id domain.InvoiceID) (*models.Invoice, error) {
	now := requestcontext.Now(ctx)
	inv, err := s.store.Execute(ctx, id,
		func(i *models.Invoice) error { return i.CanCancel() },
		func(i *models.Invoice) { i.Cancel(now) },
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "invoice not found")
		}
		return nil, err
	}
	return inv, nil
}

// SweepResult summarizes one contractor's payment-run sweep.
type SweepResult struct {
	Approved int
	Blocked  int
}

// SweepContractor re-gates every pending and blocked invoice for the
// contractor. Each invoice's decision and write are atomic; blocking is not
// sticky, so a previously blocked invoice is approved as soon as the
// contractor's gate reopens.
func (s *Service) SweepContractor(ctx context.Context, contractorID domain.ContractorID) (SweepResult, error) {
	now := requestcontext.Now(ctx)

	payment, defects, err := s.compliance.PaymentState(ctx, contractorID)
	if err != nil {
		return SweepResult{}, err
	}
	decision := gate.Decide(payment, defects)

	invoices, err := s.store.ListGateable(ctx, contractorID)
	if err != nil {
		return SweepResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "list gateable invoices")
	}

	var result SweepResult
	for _, inv := range invoices {
		prev := inv.Status
		updated, err := s.store.Execute(ctx, inv.ID,
			func(i *models.Invoice) error {
				// The sweep only moves invoices still in a gateable state;
				// a concurrent paid or cancelled transition wins.
				if !i.Status.Gateable() {
					return sentinel.ErrInvalidState
				}
				return nil
			},
			func(i *models.Invoice) { i.ApplyGate(decision.CanPay, decision.BlockReason, now) },
		)
		if errors.Is(err, sentinel.ErrInvalidState) {
			continue
		}
		if err != nil {
			return result, dErrors.Wrap(err, dErrors.CodeInternal, "gate invoice")
		}

		if updated.Status == prev {
			continue
		}
		switch updated.Status {
		case models.StatusApproved:
			result.Approved++
			s.metrics.IncrementGated("approved")
			s.auditor.Emit(ctx, audit.Event{
				Action:       audit.ActionInvoiceReleased,
				ContractorID: contractorID,
				InvoiceID:    &updated.ID,
			})
		case models.StatusBlocked:
			result.Blocked++
			s.metrics.IncrementGated("blocked")
			s.auditor.Emit(ctx, audit.Event{
				Action:       audit.ActionInvoiceBlocked,
				ContractorID: contractorID,
				InvoiceID:    &updated.ID,
				Detail:       updated.BlockReason,
			})
		}
	}
	return result, nil
}
