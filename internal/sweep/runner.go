// Package sweep runs the daily compliance pass. Per contractor the order is
// fixed: lifecycle reclassification, aggregate recomputation, invoice
// gating. Reminders run after the contractor pass. Later stages read the
// output of earlier ones, so the order is not negotiable.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"paygate/internal/audit"
	"paygate/internal/contractor/aggregate"
	cmodels "paygate/internal/contractor/models"
	invoiceservice "paygate/internal/invoice/service"
	notifyservice "paygate/internal/notify/service"
	"paygate/internal/platform/lock"
	"paygate/internal/sweep/metrics"
	"paygate/pkg/domain"
	"paygate/pkg/requestcontext"
)

// ContractorLister yields the contractors the sweep must visit.
type ContractorLister interface {
	ListActive(ctx context.Context) ([]cmodels.Contractor, error)
}

// Reclassifier re-runs the date-based lifecycle rules for one contractor's
// current documents.
type Reclassifier interface {
	ReclassifyForContractor(ctx context.Context, contractorID domain.ContractorID) (bool, error)
}

// Recomputer re-derives one contractor's aggregate compliance.
type Recomputer interface {
	Recompute(ctx context.Context, id domain.ContractorID) (aggregate.Result, error)
}

// InvoiceSweeper re-gates one contractor's open invoices.
type InvoiceSweeper interface {
	SweepContractor(ctx context.Context, contractorID domain.ContractorID) (invoiceservice.SweepResult, error)
}

// ReminderScheduler emits expiry reminders for a reference date and replays
// failed sends under the retry ceiling.
type ReminderScheduler interface {
	RunForDate(ctx context.Context, today time.Time) (notifyservice.RunReport, error)
	RetryFailed(ctx context.Context) (notifyservice.RunReport, error)
}

// Runner drives the sweep.
type Runner struct {
	contractors ContractorLister
	documents   Reclassifier
	aggregates  Recomputer
	invoices    InvoiceSweeper
	reminders   ReminderScheduler
	locker      lock.Locker
	auditor     *audit.Publisher
	metrics     *metrics.Metrics
	logger      *slog.Logger

	concurrency int
	lockTTL     time.Duration
}

func NewRunner(
	contractors ContractorLister,
	documents Reclassifier,
	aggregates Recomputer,
	invoices InvoiceSweeper,
	reminders ReminderScheduler,
	locker lock.Locker,
	auditor *audit.Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
	concurrency int,
	lockTTL time.Duration,
) *Runner {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Runner{
		contractors: contractors,
		documents:   documents,
		aggregates:  aggregates,
		invoices:    invoices,
		reminders:   reminders,
		locker:      locker,
		auditor:     auditor,
		metrics:     m,
		logger:      logger,
		concurrency: concurrency,
		lockTTL:     lockTTL,
	}
}

// Report summarizes one sweep run.
type Report struct {
	Contractors      int `json:"contractors"`
	Skipped          int `json:"skipped"`
	Failed           int `json:"failed"`
	Reclassified     int `json:"reclassified"`
	InvoicesApproved int `json:"invoices_approved"`
	InvoicesBlocked  int `json:"invoices_blocked"`
	RemindersSent    int `json:"reminders_sent"`
	RemindersFailed  int `json:"reminders_failed"`
}

// Run executes one full sweep. Contractor failures are logged and counted,
// never fatal: a crashed partial sweep is recovered by simply running
// again, because every unit of work is idempotent.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	started := time.Now()
	today := requestcontext.Today(ctx)

	contractors, err := r.contractors.ListActive(ctx)
	if err != nil {
		r.metrics.ObserveRun("error", time.Since(started))
		return Report{}, fmt.Errorf("list active contractors: %w", err)
	}

	var (
		mu     sync.Mutex
		report Report
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.concurrency)
	for i := range contractors {
		contractor := &contractors[i]
		group.Go(func() error {
			outcome := r.sweepContractor(groupCtx, contractor.ID, &mu, &report)
			r.metrics.IncrementContractor(outcome)
			return nil
		})
	}
	// Workers never return errors; Wait only propagates context cancellation.
	if err := group.Wait(); err != nil {
		r.metrics.ObserveRun("error", time.Since(started))
		return report, err
	}

	reminderReport, err := r.reminders.RunForDate(ctx, today)
	if err != nil {
		r.logger.ErrorContext(ctx, "reminder pass failed", slog.Any("error", err))
		report.Failed++
	}
	retryReport, err := r.reminders.RetryFailed(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "reminder retry pass failed", slog.Any("error", err))
		report.Failed++
	}
	report.RemindersSent = reminderReport.Sent + retryReport.Sent
	report.RemindersFailed = reminderReport.Failed + retryReport.Failed

	elapsed := time.Since(started)
	r.metrics.ObserveRun("ok", elapsed)
	r.auditor.Emit(ctx, audit.Event{
		Action: audit.ActionSweepCompleted,
		Detail: fmt.Sprintf("contractors=%d skipped=%d failed=%d approved=%d blocked=%d reminders=%d",
			report.Contractors, report.Skipped, report.Failed,
			report.InvoicesApproved, report.InvoicesBlocked, report.RemindersSent),
	})
	r.logger.InfoContext(ctx, "sweep completed",
		slog.Duration("elapsed", elapsed),
		slog.Int("contractors", report.Contractors),
		slog.Int("skipped", report.Skipped),
		slog.Int("failed", report.Failed),
		slog.Int("invoices_approved", report.InvoicesApproved),
		slog.Int("invoices_blocked", report.InvoicesBlocked),
		slog.Int("reminders_sent", report.RemindersSent),
	)
	return report, nil
}

// sweepContractor processes one contractor under its advisory lock. Another
// instance holding the lock means the contractor is already being swept, so
// skipping is correct, not an error.
func (r *Runner) sweepContractor(ctx context.Context, id domain.ContractorID, mu *sync.Mutex, report *Report) string {
	lease, err := r.locker.Obtain(ctx, "paygate:sweep:"+id.String(), r.lockTTL)
	if errors.Is(err, lock.ErrNotObtained) {
		mu.Lock()
		report.Skipped++
		mu.Unlock()
		return "skipped"
	}
	if err != nil {
		r.logger.ErrorContext(ctx, "sweep lock failed",
			slog.String("contractor_id", id.String()),
			slog.Any("error", err),
		)
		mu.Lock()
		report.Failed++
		mu.Unlock()
		return "error"
	}
	defer func() {
		if err := lease.Release(ctx); err != nil {
			r.logger.WarnContext(ctx, "sweep lock release failed",
				slog.String("contractor_id", id.String()),
				slog.Any("error", err),
			)
		}
	}()

	changed, err := r.documents.ReclassifyForContractor(ctx, id)
	if err != nil {
		return r.failContractor(ctx, id, "reclassify", err, mu, report)
	}

	if _, err := r.aggregates.Recompute(ctx, id); err != nil {
		return r.failContractor(ctx, id, "recompute", err, mu, report)
	}

	invoices, err := r.invoices.SweepContractor(ctx, id)
	if err != nil {
		return r.failContractor(ctx, id, "gate invoices", err, mu, report)
	}

	mu.Lock()
	report.Contractors++
	if changed {
		report.Reclassified++
	}
	report.InvoicesApproved += invoices.Approved
	report.InvoicesBlocked += invoices.Blocked
	mu.Unlock()
	return "ok"
}

func (r *Runner) failContractor(ctx context.Context, id domain.ContractorID, stage string, err error, mu *sync.Mutex, report *Report) string {
	r.logger.ErrorContext(ctx, "contractor sweep failed",
		slog.String("contractor_id", id.String()),
		slog.String("stage", stage),
		slog.Any("error", err),
	)
	mu.Lock()
	report.Failed++
	mu.Unlock()
	return "error"
}
