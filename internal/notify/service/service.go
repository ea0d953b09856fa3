// Package service schedules expiry reminders over the fixed horizon set.
// One run walks every horizon for a reference date; the (document, horizon)
// record is the idempotency guard, so re-running a day is a no-op.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	cmodels "paygate/internal/contractor/models"
	dmodels "paygate/internal/document/models"
	"paygate/internal/notify/metrics"
	"paygate/internal/notify/models"
	"paygate/pkg/domain"
	dErrors "paygate/pkg/domain-errors"
	"paygate/pkg/platform/sentinel"
	"paygate/pkg/requestcontext"
)

// Store persists notification records.
type Store interface {
	Create(ctx context.Context, n *models.Notification) error
	FindByPair(ctx context.Context, documentID domain.DocumentID, horizonDays int) (*models.Notification, error)
	ListForContractor(ctx context.Context, contractorID domain.ContractorID) ([]models.Notification, error)
	ListRetryable(ctx context.Context) ([]models.Notification, error)
	Execute(ctx context.Context, id domain.NotificationID, validate func(*models.Notification) error, mutate func(*models.Notification)) (*models.Notification, error)
}

// DocumentSource yields the current documents expiring on a given date.
type DocumentSource interface {
	CurrentExpiringOn(ctx context.Context, date time.Time) ([]dmodels.ComplianceDocument, error)
	FindByID(ctx context.Context, id domain.DocumentID) (*dmodels.ComplianceDocument, error)
}

// ContractorSource resolves the reminder recipient.
type ContractorSource interface {
	Get(ctx context.Context, id domain.ContractorID) (*cmodels.Contractor, error)
}

// DispatchRequest is handed to the transport collaborator. The scheduler
// does not know channel specifics beyond the channel name.
type DispatchRequest struct {
	Channel         string `json:"channel"`
	Recipient       string `json:"recipient"`
	TemplateID      string `json:"template_id"`
	RenderedMessage string `json:"rendered_message"`
}

// Dispatcher sends one rendered reminder.
type Dispatcher interface {
	Dispatch(ctx context.Context, req DispatchRequest) error
}

// ChannelEmail is the only dispatch channel currently wired.
const ChannelEmail = "email"

// Scheduler emits expiry reminders.
type Scheduler struct {
	store       Store
	documents   DocumentSource
	contractors ContractorSource
	dispatcher  Dispatcher
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

func NewScheduler(store Store, documents DocumentSource, contractors ContractorSource, dispatcher Dispatcher, m *metrics.Metrics, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		store:       store,
		documents:   documents,
		contractors: contractors,
		dispatcher:  dispatcher,
		metrics:     m,
		logger:      logger,
	}
}

// RunReport summarizes one scheduler run.
type RunReport struct {
	Sent    int
	Failed  int
	Skipped int
}

// RunForDate walks every horizon for the given reference date and reminds
// each current document expiring exactly at that horizon. A horizon already
// covered by a sent or exhausted record is skipped.
func (s *Scheduler) RunForDate(ctx context.Context, today time.Time) (RunReport, error) {
	var report RunReport
	for _, horizon := range models.Horizons {
		docs, err := s.documents.CurrentExpiringOn(ctx, today.AddDate(0, 0, horizon))
		if err != nil {
			return report, dErrors.Wrap(err, dErrors.CodeInternal, "list expiring documents")
		}
		for i := range docs {
			outcome, err := s.remind(ctx, &docs[i], horizon, today)
			if err != nil {
				// One broken document must not stall the rest of the run.
				s.logger.ErrorContext(ctx, "reminder failed",
					slog.String("document_id", docs[i].ID.String()),
					slog.Int("horizon_days", horizon),
					slog.Any("error", err),
				)
				report.Failed++
				continue
			}
			switch outcome {
			case outcomeSent:
				report.Sent++
			case outcomeFailed:
				report.Failed++
			case outcomeSkipped:
				report.Skipped++
			}
		}
	}
	return report, nil
}

// RetryFailed replays failed records still under the retry ceiling,
// resending the same horizon's message.
func (s *Scheduler) RetryFailed(ctx context.Context) (RunReport, error) {
	var report RunReport
	records, err := s.store.ListRetryable(ctx)
	if err != nil {
		return report, dErrors.Wrap(err, dErrors.CodeInternal, "list retryable notifications")
	}
	for i := range records {
		record := &records[i]
		doc, err := s.documents.FindByID(ctx, record.DocumentID)
		if err != nil {
			s.logger.ErrorContext(ctx, "reminder retry failed",
				slog.String("notification_id", record.ID.String()),
				slog.Any("error", err),
			)
			report.Failed++
			continue
		}
		if s.send(ctx, record, renderMessage(doc, record.HorizonDays)) {
			report.Sent++
		} else {
			report.Failed++
		}
	}
	return report, nil
}

// ListForContractor returns a contractor's reminder history.
func (s *Scheduler) ListForContractor(ctx context.Context, contractorID domain.ContractorID) ([]models.Notification, error) {
	list, err := s.store.ListForContractor(ctx, contractorID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list notifications")
	}
	return list, nil
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeSent
	outcomeFailed
)

func (s *Scheduler) remind(ctx context.Context, doc *dmodels.ComplianceDocument, horizon int, now time.Time) (outcome, error) {
	existing, err := s.store.FindByPair(ctx, doc.ID, horizon)
	switch {
	case err == nil:
		if !existing.Retryable() {
			s.metrics.IncrementSkipped()
			return outcomeSkipped, nil
		}
		if s.send(ctx, existing, renderMessage(doc, horizon)) {
			return outcomeSent, nil
		}
		return outcomeFailed, nil
	case errors.Is(err, sentinel.ErrNotFound):
		// fall through to create
	default:
		return outcomeSkipped, dErrors.Wrap(err, dErrors.CodeInternal, "find notification")
	}

	contractor, err := s.contractors.Get(ctx, doc.ContractorID)
	if err != nil {
		return outcomeSkipped, err
	}

	record := models.NewNotification(doc.ContractorID, doc.ID, horizon, ChannelEmail, contractor.ContactEmail, now)
	if err := s.store.Create(ctx, record); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyExists) {
			// A concurrent sweep won the insert race.
			s.metrics.IncrementSkipped()
			return outcomeSkipped, nil
		}
		return outcomeSkipped, dErrors.Wrap(err, dErrors.CodeInternal, "create notification")
	}

	if s.send(ctx, record, renderMessage(doc, horizon)) {
		return outcomeSent, nil
	}
	return outcomeFailed, nil
}

// send dispatches and records the result against the existing record. The
// record survives a transport failure, so a later run never re-sends a
// horizon that already succeeded and only retries under the ceiling.
func (s *Scheduler) send(ctx context.Context, record *models.Notification, message string) bool {
	dispatchErr := s.dispatcher.Dispatch(ctx, DispatchRequest{
		Channel:         record.Channel,
		Recipient:       record.Recipient,
		TemplateID:      record.TemplateID,
		RenderedMessage: message,
	})

	now := requestcontext.Now(ctx)
	updated, err := s.store.Execute(ctx, record.ID, nil, func(n *models.Notification) {
		if dispatchErr != nil {
			n.MarkFailed(dispatchErr.Error(), now)
		} else {
			n.MarkSent(now)
		}
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "notification record update failed",
			slog.String("notification_id", record.ID.String()),
			slog.Any("error", err),
		)
		return false
	}

	if dispatchErr != nil {
		s.metrics.IncrementDispatched("failed")
		s.logger.WarnContext(ctx, "reminder dispatch failed",
			slog.String("notification_id", updated.ID.String()),
			slog.String("recipient", updated.Recipient),
			slog.Int("attempts", updated.Attempts),
			slog.Any("error", dispatchErr),
		)
		return false
	}

	s.metrics.IncrementDispatched("sent")
	s.logger.InfoContext(ctx, "reminder sent",
		slog.String("notification_id", updated.ID.String()),
		slog.String("template_id", updated.TemplateID),
		slog.Int("horizon_days", updated.HorizonDays),
	)
	return true
}
