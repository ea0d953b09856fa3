package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"paygate/internal/contractor/aggregate"
	"paygate/internal/contractor/models"
	"paygate/pkg/domain"
	dErrors "paygate/pkg/domain-errors"
	"paygate/pkg/platform/sentinel"
	"paygate/pkg/requestcontext"
)

// ComplianceSummary is the read model behind the compliance endpoint. It is
// computed from the persisted contractor plus its current documents and
// cached until the next recomputation invalidates it.
type ComplianceSummary struct {
	ContractorID       domain.ContractorID `json:"contractor_id"`
	CompanyName        string              `json:"company_name"`
	VerificationStatus string              `json:"verification_status"`
	PaymentStatus      string              `json:"payment_status"`
	RiskScore          int                 `json:"risk_score"`
	Defects            []string            `json:"defects,omitempty"`
	Documents          []DocumentSummary   `json:"documents"`
	LastVerifiedAt     *time.Time          `json:"last_verified_at,omitempty"`
	ComputedAt         time.Time           `json:"computed_at"`
}

// DocumentSummary is one current document in the summary.
type DocumentSummary struct {
	DocumentID domain.DocumentID   `json:"document_id"`
	Type       domain.DocumentType `json:"type"`
	Status     string              `json:"status"`
	Score      int                 `json:"score"`
	ExpiryDate time.Time           `json:"expiry_date"`
}

// PaymentState reports the persisted payment gate for a contractor together
// with the defect list explaining it. The invoice gate consumes this; the
// persisted status is authoritative because it already reflects overrides.
func (s *Service) PaymentState(ctx context.Context, id domain.ContractorID) (models.PaymentStatus, []string, error) {
	c, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", nil, dErrors.New(dErrors.CodeNotFound, "contractor not found")
		}
		return "", nil, dErrors.Wrap(err, dErrors.CodeInternal, "find contractor")
	}

	docs, err := s.documents.CurrentForContractor(ctx, id)
	if err != nil {
		return "", nil, dErrors.Wrap(err, dErrors.CodeInternal, "load current documents")
	}
	folded := aggregate.Compute(s.policy, c, docs)
	return c.PaymentStatus, folded.Defects, nil
}

// ComplianceSummary assembles the summary, serving from cache when possible.
// Defects come from a fresh fold over the current documents so the endpoint
// explains the persisted statuses rather than recomputing them blind.
func (s *Service) ComplianceSummary(ctx context.Context, id domain.ContractorID) (*ComplianceSummary, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, id)
		if err != nil {
			s.logger.WarnContext(ctx, "summary cache read failed",
				slog.String("contractor_id", id.String()),
				slog.String("error", err.Error()),
			)
		} else if cached != nil {
			return cached, nil
		}
	}

	c, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "contractor not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find contractor")
	}

	docs, err := s.documents.CurrentForContractor(ctx, id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load current documents")
	}

	folded := aggregate.Compute(s.policy, c, docs)

	summary := &ComplianceSummary{
		ContractorID:       c.ID,
		CompanyName:        c.CompanyName,
		VerificationStatus: string(c.VerificationStatus),
		PaymentStatus:      string(c.PaymentStatus),
		RiskScore:          c.RiskScore,
		Defects:            folded.Defects,
		Documents:          make([]DocumentSummary, 0, len(docs)),
		LastVerifiedAt:     c.LastVerifiedAt,
		ComputedAt:         requestcontext.Now(ctx),
	}
	for _, d := range docs {
		summary.Documents = append(summary.Documents, DocumentSummary{
			DocumentID: d.ID,
			Type:       d.Type,
			Status:     d.Status.String(),
			Score:      d.VerificationScore,
			ExpiryDate: d.ExpiryDate,
		})
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, id, summary); err != nil {
			s.logger.WarnContext(ctx, "summary cache write failed",
				slog.String("contractor_id", id.String()),
				slog.String("error", err.Error()),
			)
		}
	}
	return summary, nil
}
