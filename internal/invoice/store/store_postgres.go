package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"paygate/internal/invoice/models"
	"paygate/pkg/domain"
	"paygate/pkg/platform/sentinel"
	"paygate/pkg/platform/tx"
)

// Postgres persists invoices.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed invoice store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const invoiceColumns = `
	id, contractor_id, amount, due_date, status, block_reason,
	compliance_checked_at, created_at, updated_at
`

func (s *Postgres) Create(ctx context.Context, inv *models.Invoice) error {
	q := tx.QuerierFrom(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO invoices (`+invoiceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		inv.ID.String(), inv.ContractorID.String(), inv.Amount, inv.DueDate,
		inv.Status.String(), nullString(inv.BlockReason),
		inv.ComplianceCheckedAt, inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyExists
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id domain.InvoiceID) (*models.Invoice, error) {
	q := tx.QuerierFrom(ctx, s.db)
	inv, err := scanInvoice(q.QueryRowContext(ctx, `
		SELECT `+invoiceColumns+` FROM invoices WHERE id = $1
	`, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find invoice: %w", err)
	}
	return inv, nil
}

// ListForContractor returns the contractor's invoices, oldest first.
func (s *Postgres) ListForContractor(ctx context.Context, contractorID domain.ContractorID) ([]models.Invoice, error) {
	return s.list(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE contractor_id = $1
		ORDER BY created_at
	`, contractorID)
}

// ListGateable returns the contractor's pending and blocked invoices, the
// set the payment-run sweep re-evaluates.
func (s *Postgres) ListGateable(ctx context.Context, contractorID domain.ContractorID) ([]models.Invoice, error) {
	return s.list(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE contractor_id = $1 AND status IN ('pending', 'blocked')
		ORDER BY created_at
	`, contractorID)
}

func (s *Postgres) list(ctx context.Context, query string, contractorID domain.ContractorID) ([]models.Invoice, error) {
	q := tx.QuerierFrom(ctx, s.db)
	rows, err := q.QueryContext(ctx, query, contractorID.String())
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var out []models.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		out = append(out, *inv)
	}
	return out, rows.Err()
}

// Execute atomically validates and mutates an invoice under FOR UPDATE, so
// a gate decision and its state write cannot interleave with a concurrent
// transition for the same invoice.
func (s *Postgres) Execute(ctx context.Context, id domain.InvoiceID, validate func(*models.Invoice) error, mutate func(*models.Invoice)) (*models.Invoice, error) {
	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin invoice update: %w", err)
	}
	defer func() {
		_ = dbtx.Rollback()
	}()

	inv, err := scanInvoice(dbtx.QueryRowContext(ctx, `
		SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 FOR UPDATE
	`, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("lock invoice: %w", err)
	}

	if validate != nil {
		if err := validate(inv); err != nil {
			return nil, err
		}
	}
	mutate(inv)

	if _, err = dbtx.ExecContext(ctx, `
		UPDATE invoices
		SET status = $2, block_reason = $3, compliance_checked_at = $4, updated_at = $5
		WHERE id = $1
	`, inv.ID.String(), inv.Status.String(), nullString(inv.BlockReason),
		inv.ComplianceCheckedAt, inv.UpdatedAt); err != nil {
		return nil, fmt.Errorf("update invoice: %w", err)
	}

	if err = dbtx.Commit(); err != nil {
		return nil, fmt.Errorf("commit invoice update: %w", err)
	}
	return inv, nil
}

func scanInvoice(row rowScanner) (*models.Invoice, error) {
	var (
		inv         models.Invoice
		idStr       string
		contractor  string
		statusStr   string
		blockReason sql.NullString
		checkedAt   sql.NullTime
	)
	if err := row.Scan(
		&idStr, &contractor, &inv.Amount, &inv.DueDate, &statusStr,
		&blockReason, &checkedAt, &inv.CreatedAt, &inv.UpdatedAt,
	); err != nil {
		return nil, err
	}

	var err error
	if inv.ID, err = domain.ParseInvoiceID(idStr); err != nil {
		return nil, err
	}
	if inv.ContractorID, err = domain.ParseContractorID(contractor); err != nil {
		return nil, err
	}
	if inv.Status, err = models.ParseInvoiceStatus(statusStr); err != nil {
		return nil, err
	}
	inv.BlockReason = blockReason.String
	if checkedAt.Valid {
		t := checkedAt.Time
		inv.ComplianceCheckedAt = &t
	}
	return &inv, nil
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
