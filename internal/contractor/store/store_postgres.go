package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"paygate/internal/contractor/models"
	"paygate/pkg/domain"
	"paygate/pkg/platform/sentinel"
	"paygate/pkg/platform/tx"
)

// Postgres persists contractors. Derivation rules live in the services; the
// store only reads and writes rows.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed contractor store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const contractorColumns = `
	id, company_name, company_number, contact_name, contact_email, contact_phone,
	has_employees, verification_status, payment_status, risk_score,
	last_verified_at, override_status, override_reason, override_set_by,
	override_set_at, active, deleted_at, created_at, updated_at
`

func (s *Postgres) Create(ctx context.Context, c *models.Contractor) error {
	q := tx.QuerierFrom(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO contractors (`+contractorColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`,
		c.ID.String(), c.CompanyName, nullString(c.CompanyNumber),
		nullString(c.ContactName), c.ContactEmail, nullString(c.ContactPhone),
		c.HasEmployees, string(c.VerificationStatus), string(c.PaymentStatus),
		c.RiskScore, c.LastVerifiedAt,
		overrideStatus(c), overrideReason(c), overrideSetBy(c), overrideSetAt(c),
		c.Active, c.DeletedAt, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyExists
		}
		return fmt.Errorf("insert contractor: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id domain.ContractorID) (*models.Contractor, error) {
	q := tx.QuerierFrom(ctx, s.db)
	c, err := scanContractor(q.QueryRowContext(ctx, `
		SELECT `+contractorColumns+` FROM contractors WHERE id = $1
	`, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find contractor: %w", err)
	}
	return c, nil
}

// ListActive returns every active contractor, ordered by company name. The
// daily sweep iterates this list.
func (s *Postgres) ListActive(ctx context.Context) ([]models.Contractor, error) {
	q := tx.QuerierFrom(ctx, s.db)
	rows, err := q.QueryContext(ctx, `
		SELECT `+contractorColumns+`
		FROM contractors
		WHERE active
		ORDER BY company_name
	`)
	if err != nil {
		return nil, fmt.Errorf("list contractors: %w", err)
	}
	defer rows.Close()

	var out []models.Contractor
	for rows.Next() {
		c, err := scanContractor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contractor: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// Execute atomically validates and mutates a contractor under FOR UPDATE.
// The callbacks receive a context carrying the open transaction, so any
// store reads they make through QuerierFrom see the same snapshot that the
// row lock protects.
func (s *Postgres) Execute(ctx context.Context, id domain.ContractorID, validate func(context.Context, *models.Contractor) error, mutate func(context.Context, *models.Contractor)) (*models.Contractor, error) {
	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin contractor update: %w", err)
	}
	defer func() {
		_ = dbtx.Rollback()
	}()

	c, err := scanContractor(dbtx.QueryRowContext(ctx, `
		SELECT `+contractorColumns+` FROM contractors WHERE id = $1 FOR UPDATE
	`, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("lock contractor: %w", err)
	}

	txCtx := tx.WithTx(ctx, dbtx)
	if validate != nil {
		if err := validate(txCtx, c); err != nil {
			return nil, err
		}
	}
	mutate(txCtx, c)

	if _, err = dbtx.ExecContext(ctx, `
		UPDATE contractors
		SET company_name = $2, company_number = $3, contact_name = $4,
		    contact_email = $5, contact_phone = $6, has_employees = $7,
		    verification_status = $8, payment_status = $9, risk_score = $10,
		    last_verified_at = $11, override_status = $12, override_reason = $13,
		    override_set_by = $14, override_set_at = $15, active = $16,
		    deleted_at = $17, updated_at = $18
		WHERE id = $1
	`,
		c.ID.String(), c.CompanyName, nullString(c.CompanyNumber),
		nullString(c.ContactName), c.ContactEmail, nullString(c.ContactPhone),
		c.HasEmployees, string(c.VerificationStatus), string(c.PaymentStatus),
		c.RiskScore, c.LastVerifiedAt,
		overrideStatus(c), overrideReason(c), overrideSetBy(c), overrideSetAt(c),
		c.Active, c.DeletedAt, c.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("update contractor: %w", err)
	}

	if err = dbtx.Commit(); err != nil {
		return nil, fmt.Errorf("commit contractor update: %w", err)
	}
	return c, nil
}

func scanContractor(row rowScanner) (*models.Contractor, error) {
	var (
		c              models.Contractor
		idStr          string
		companyNumber  sql.NullString
		contactName    sql.NullString
		contactPhone   sql.NullString
		verification   string
		payment        string
		ovStatus       sql.NullString
		ovReason       sql.NullString
		ovSetBy        sql.NullString
		ovSetAt        sql.NullTime
		lastVerifiedAt sql.NullTime
		deletedAt      sql.NullTime
	)
	if err := row.Scan(
		&idStr, &c.CompanyName, &companyNumber, &contactName, &c.ContactEmail,
		&contactPhone, &c.HasEmployees, &verification, &payment, &c.RiskScore,
		&lastVerifiedAt, &ovStatus, &ovReason, &ovSetBy, &ovSetAt,
		&c.Active, &deletedAt, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}

	var err error
	if c.ID, err = domain.ParseContractorID(idStr); err != nil {
		return nil, err
	}
	c.CompanyNumber = companyNumber.String
	c.ContactName = contactName.String
	c.ContactPhone = contactPhone.String
	c.VerificationStatus = models.VerificationStatus(verification)
	c.PaymentStatus = models.PaymentStatus(payment)
	if lastVerifiedAt.Valid {
		t := lastVerifiedAt.Time
		c.LastVerifiedAt = &t
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		c.DeletedAt = &t
	}
	if ovStatus.Valid {
		c.Override = &models.StatusOverride{
			Status: models.VerificationStatus(ovStatus.String),
			Reason: ovReason.String,
			SetBy:  ovSetBy.String,
			SetAt:  ovSetAt.Time,
		}
	}
	return &c, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func overrideStatus(c *models.Contractor) sql.NullString {
	if c.Override == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(c.Override.Status), Valid: true}
}

func overrideReason(c *models.Contractor) sql.NullString {
	if c.Override == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: c.Override.Reason, Valid: true}
}

func overrideSetBy(c *models.Contractor) sql.NullString {
	if c.Override == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: c.Override.SetBy, Valid: true}
}

func overrideSetAt(c *models.Contractor) sql.NullTime {
	if c.Override == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: c.Override.SetAt, Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
