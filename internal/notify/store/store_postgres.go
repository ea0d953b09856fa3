package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"paygate/internal/notify/models"
	"paygate/pkg/domain"
	"paygate/pkg/platform/sentinel"
	"paygate/pkg/platform/tx"
)

// Postgres persists notification records. The UNIQUE (document_id,
// horizon_days) constraint carries the de-duplication guard.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed notification store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const notificationColumns = `
	id, contractor_id, document_id, horizon_days, channel, recipient,
	template_id, status, attempts, last_error, sent_at, created_at, updated_at
`

func (s *Postgres) Create(ctx context.Context, n *models.Notification) error {
	q := tx.QuerierFrom(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		n.ID.String(), n.ContractorID.String(), n.DocumentID.String(),
		n.HorizonDays, n.Channel, n.Recipient, n.TemplateID,
		n.Status.String(), n.Attempts, nullString(n.LastError),
		n.SentAt, n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyExists
		}
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// FindByPair returns the record guarding one (document, horizon) pair.
func (s *Postgres) FindByPair(ctx context.Context, documentID domain.DocumentID, horizonDays int) (*models.Notification, error) {
	q := tx.QuerierFrom(ctx, s.db)
	n, err := scanNotification(q.QueryRowContext(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE document_id = $1 AND horizon_days = $2
	`, documentID.String(), horizonDays))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find notification: %w", err)
	}
	return n, nil
}

// ListForContractor returns a contractor's records, oldest first.
func (s *Postgres) ListForContractor(ctx context.Context, contractorID domain.ContractorID) ([]models.Notification, error) {
	return s.list(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE contractor_id = $1
		ORDER BY created_at
	`, contractorID.String())
}

// ListRetryable returns failed records below the retry ceiling.
func (s *Postgres) ListRetryable(ctx context.Context) ([]models.Notification, error) {
	return s.list(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE status = 'failed' AND attempts < $1
		ORDER BY created_at
	`, models.MaxAttempts)
}

func (s *Postgres) list(ctx context.Context, query string, arg any) ([]models.Notification, error) {
	q := tx.QuerierFrom(ctx, s.db)
	rows, err := q.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

// Execute atomically validates and mutates a record under FOR UPDATE.
func (s *Postgres) Execute(ctx context.Context, id domain.NotificationID, validate func(*models.Notification) error, mutate func(*models.Notification)) (*models.Notification, error) {
	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin notification update: %w", err)
	}
	defer func() {
		_ = dbtx.Rollback()
	}()

	n, err := scanNotification(dbtx.QueryRowContext(ctx, `
		SELECT `+notificationColumns+` FROM notifications WHERE id = $1 FOR UPDATE
	`, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("lock notification: %w", err)
	}

	if validate != nil {
		if err := validate(n); err != nil {
			return nil, err
		}
	}
	mutate(n)

	if _, err = dbtx.ExecContext(ctx, `
		UPDATE notifications
		SET status = $2, attempts = $3, last_error = $4, sent_at = $5, updated_at = $6
		WHERE id = $1
	`, n.ID.String(), n.Status.String(), n.Attempts, nullString(n.LastError),
		n.SentAt, n.UpdatedAt); err != nil {
		return nil, fmt.Errorf("update notification: %w", err)
	}

	if err = dbtx.Commit(); err != nil {
		return nil, fmt.Errorf("commit notification update: %w", err)
	}
	return n, nil
}

func scanNotification(row rowScanner) (*models.Notification, error) {
	var (
		n          models.Notification
		idStr      string
		contractor string
		document   string
		statusStr  string
		lastError  sql.NullString
		sentAt     sql.NullTime
	)
	if err := row.Scan(
		&idStr, &contractor, &document, &n.HorizonDays, &n.Channel,
		&n.Recipient, &n.TemplateID, &statusStr, &n.Attempts, &lastError,
		&sentAt, &n.CreatedAt, &n.UpdatedAt,
	); err != nil {
		return nil, err
	}

	var err error
	if n.ID, err = domain.ParseNotificationID(idStr); err != nil {
		return nil, err
	}
	if n.ContractorID, err = domain.ParseContractorID(contractor); err != nil {
		return nil, err
	}
	if n.DocumentID, err = domain.ParseDocumentID(document); err != nil {
		return nil, err
	}
	if n.Status, err = models.ParseNotificationStatus(statusStr); err != nil {
		return nil, err
	}
	n.LastError = lastError.String
	if sentAt.Valid {
		t := sentAt.Time
		n.SentAt = &t
	}
	return &n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
