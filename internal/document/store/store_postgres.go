package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"paygate/internal/document/models"
	"paygate/pkg/domain"
	"paygate/pkg/platform/sentinel"
	"paygate/pkg/platform/tx"
)

// Postgres persists compliance documents. This store is pure I/O; scoring
// and classification rules live in the services.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed document store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const documentColumns = `
	id, contractor_id, document_type, provider_name, policy_number,
	coverage_amount, start_date, expiry_date, file_hash,
	status, verification_score, analysis, rejection_reason,
	version, replaced_by, created_at, updated_at
`

// CreateAndSupersede inserts doc and supersedes the contractor's existing
// current document of the same type inside a single transaction, so there is
// no window in which two documents of one type are both current.
func (s *Postgres) CreateAndSupersede(ctx context.Context, doc *models.ComplianceDocument) (superseded *domain.DocumentID, err error) {
	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create document: %w", err)
	}
	defer func() {
		_ = dbtx.Rollback()
	}()

	// Lock the current pointer row for this (contractor, type) so concurrent
	// uploads of the same type serialize here.
	var oldID domain.DocumentID
	var oldVersion int
	hasCurrent := true
	row := dbtx.QueryRowContext(ctx, `
		SELECT d.id, d.version
		FROM document_current c
		JOIN compliance_documents d ON d.id = c.document_id
		WHERE c.contractor_id = $1 AND c.document_type = $2
		FOR UPDATE OF c
	`, doc.ContractorID.String(), doc.Type.String())
	var oldIDStr string
	if scanErr := row.Scan(&oldIDStr, &oldVersion); scanErr != nil {
		if !errors.Is(scanErr, sql.ErrNoRows) {
			return nil, fmt.Errorf("lock current document: %w", scanErr)
		}
		hasCurrent = false
	} else {
		oldID, err = domain.ParseDocumentID(oldIDStr)
		if err != nil {
			return nil, fmt.Errorf("corrupt current pointer: %w", err)
		}
	}

	doc.Version = 1
	if hasCurrent {
		doc.Version = oldVersion + 1
	}

	var analysisJSON []byte
	if doc.Analysis != nil {
		analysisJSON, err = json.Marshal(doc.Analysis)
		if err != nil {
			return nil, fmt.Errorf("marshal analysis: %w", err)
		}
	}

	_, err = dbtx.ExecContext(ctx, `
		INSERT INTO compliance_documents (`+documentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NULL, $15, $16)
	`,
		doc.ID.String(), doc.ContractorID.String(), doc.Type.String(),
		doc.ProviderName, nullString(doc.PolicyNumber),
		doc.CoverageAmount, doc.StartDate, doc.ExpiryDate, doc.FileHash,
		doc.Status.String(), doc.VerificationScore, analysisJSON,
		nullString(doc.RejectionReason), doc.Version,
		doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, sentinel.ErrConflict
		}
		return nil, fmt.Errorf("insert document: %w", err)
	}

	if hasCurrent {
		if _, err = dbtx.ExecContext(ctx, `
			UPDATE compliance_documents
			SET replaced_by = $2, updated_at = $3
			WHERE id = $1 AND replaced_by IS NULL
		`, oldID.String(), doc.ID.String(), doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("supersede document: %w", err)
		}
		if _, err = dbtx.ExecContext(ctx, `
			UPDATE document_current
			SET document_id = $3
			WHERE contractor_id = $1 AND document_type = $2
		`, doc.ContractorID.String(), doc.Type.String(), doc.ID.String()); err != nil {
			return nil, fmt.Errorf("advance current pointer: %w", err)
		}
		superseded = &oldID
	} else {
		if _, err = dbtx.ExecContext(ctx, `
			INSERT INTO document_current (contractor_id, document_type, document_id)
			VALUES ($1, $2, $3)
		`, doc.ContractorID.String(), doc.Type.String(), doc.ID.String()); err != nil {
			if isUniqueViolation(err) {
				// Concurrent first upload for the same type won the race.
				return nil, sentinel.ErrConflict
			}
			return nil, fmt.Errorf("set current pointer: %w", err)
		}
	}

	if err = dbtx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create document: %w", err)
	}
	return superseded, nil
}

// FindByID returns the document with the given ID.
func (s *Postgres) FindByID(ctx context.Context, id domain.DocumentID) (*models.ComplianceDocument, error) {
	q := tx.QuerierFrom(ctx, s.db)
	doc, err := scanDocument(q.QueryRowContext(ctx, `
		SELECT `+documentColumns+` FROM compliance_documents WHERE id = $1
	`, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find document: %w", err)
	}
	return doc, nil
}

// FindByHash looks up a contractor's document by content hash.
func (s *Postgres) FindByHash(ctx context.Context, contractorID domain.ContractorID, hash string) (*models.ComplianceDocument, error) {
	q := tx.QuerierFrom(ctx, s.db)
	doc, err := scanDocument(q.QueryRowContext(ctx, `
		SELECT `+documentColumns+`
		FROM compliance_documents
		WHERE contractor_id = $1 AND file_hash = $2
		ORDER BY created_at DESC
		LIMIT 1
	`, contractorID.String(), hash))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find document by hash: %w", err)
	}
	return doc, nil
}

// CurrentForContractor returns every current document for the contractor.
func (s *Postgres) CurrentForContractor(ctx context.Context, contractorID domain.ContractorID) ([]models.ComplianceDocument, error) {
	q := tx.QuerierFrom(ctx, s.db)
	rows, err := q.QueryContext(ctx, `
		SELECT `+prefixedDocumentColumns("d")+`
		FROM document_current c
		JOIN compliance_documents d ON d.id = c.document_id
		WHERE c.contractor_id = $1
	`, contractorID.String())
	if err != nil {
		return nil, fmt.Errorf("list current documents: %w", err)
	}
	return collectDocuments(rows)
}

// CurrentExpiringOn returns current documents expiring on the given date.
func (s *Postgres) CurrentExpiringOn(ctx context.Context, date time.Time) ([]models.ComplianceDocument, error) {
	q := tx.QuerierFrom(ctx, s.db)
	rows, err := q.QueryContext(ctx, `
		SELECT `+prefixedDocumentColumns("d")+`
		FROM document_current c
		JOIN compliance_documents d ON d.id = c.document_id
		WHERE d.expiry_date::date = $1::date
	`, date)
	if err != nil {
		return nil, fmt.Errorf("list expiring documents: %w", err)
	}
	return collectDocuments(rows)
}

// ListForReview returns current documents waiting on a manual decision.
func (s *Postgres) ListForReview(ctx context.Context) ([]models.ComplianceDocument, error) {
	q := tx.QuerierFrom(ctx, s.db)
	rows, err := q.QueryContext(ctx, `
		SELECT `+prefixedDocumentColumns("d")+`
		FROM document_current c
		JOIN compliance_documents d ON d.id = c.document_id
		WHERE d.status IN ('pending_review', 'fraud_suspected')
		ORDER BY d.created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("list review documents: %w", err)
	}
	return collectDocuments(rows)
}

// Execute atomically validates and mutates a document under FOR UPDATE.
func (s *Postgres) Execute(ctx context.Context, id domain.DocumentID, validate func(*models.ComplianceDocument) error, mutate func(*models.ComplianceDocument)) (*models.ComplianceDocument, error) {
	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin document update: %w", err)
	}
	defer func() {
		_ = dbtx.Rollback()
	}()

	doc, err := scanDocument(dbtx.QueryRowContext(ctx, `
		SELECT `+documentColumns+` FROM compliance_documents WHERE id = $1 FOR UPDATE
	`, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("lock document: %w", err)
	}

	if err := validate(doc); err != nil {
		return nil, err
	}
	mutate(doc)

	var analysisJSON []byte
	if doc.Analysis != nil {
		if analysisJSON, err = json.Marshal(doc.Analysis); err != nil {
			return nil, fmt.Errorf("marshal analysis: %w", err)
		}
	}
	var replacedBy any
	if doc.ReplacedBy != nil {
		replacedBy = doc.ReplacedBy.String()
	}

	if _, err = dbtx.ExecContext(ctx, `
		UPDATE compliance_documents
		SET status = $2, verification_score = $3, analysis = $4,
		    rejection_reason = $5, replaced_by = $6, updated_at = $7
		WHERE id = $1
	`, doc.ID.String(), doc.Status.String(), doc.VerificationScore, analysisJSON,
		nullString(doc.RejectionReason), replacedBy, doc.UpdatedAt); err != nil {
		return nil, fmt.Errorf("update document: %w", err)
	}

	if err = dbtx.Commit(); err != nil {
		return nil, fmt.Errorf("commit document update: %w", err)
	}
	return doc, nil
}

func prefixedDocumentColumns(alias string) string {
	return alias + `.id, ` + alias + `.contractor_id, ` + alias + `.document_type, ` +
		alias + `.provider_name, ` + alias + `.policy_number, ` + alias + `.coverage_amount, ` +
		alias + `.start_date, ` + alias + `.expiry_date, ` + alias + `.file_hash, ` +
		alias + `.status, ` + alias + `.verification_score, ` + alias + `.analysis, ` +
		alias + `.rejection_reason, ` + alias + `.version, ` + alias + `.replaced_by, ` +
		alias + `.created_at, ` + alias + `.updated_at`
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*models.ComplianceDocument, error) {
	var (
		doc             models.ComplianceDocument
		idStr           string
		contractorStr   string
		typeStr         string
		policyNumber    sql.NullString
		rejectionReason sql.NullString
		statusStr       string
		analysisJSON    []byte
		replacedByStr   sql.NullString
	)
	if err := row.Scan(
		&idStr, &contractorStr, &typeStr, &doc.ProviderName, &policyNumber,
		&doc.CoverageAmount, &doc.StartDate, &doc.ExpiryDate, &doc.FileHash,
		&statusStr, &doc.VerificationScore, &analysisJSON, &rejectionReason,
		&doc.Version, &replacedByStr, &doc.CreatedAt, &doc.UpdatedAt,
	); err != nil {
		return nil, err
	}

	var err error
	if doc.ID, err = domain.ParseDocumentID(idStr); err != nil {
		return nil, err
	}
	if doc.ContractorID, err = domain.ParseContractorID(contractorStr); err != nil {
		return nil, err
	}
	if doc.Type, err = domain.ParseDocumentType(typeStr); err != nil {
		return nil, err
	}
	if doc.Status, err = models.ParseComplianceStatus(statusStr); err != nil {
		return nil, err
	}
	doc.PolicyNumber = policyNumber.String
	doc.RejectionReason = rejectionReason.String
	if len(analysisJSON) > 0 {
		doc.Analysis = &models.AIAnalysis{}
		if err := json.Unmarshal(analysisJSON, doc.Analysis); err != nil {
			return nil, fmt.Errorf("decode analysis: %w", err)
		}
	}
	if replacedByStr.Valid {
		replacedBy, err := domain.ParseDocumentID(replacedByStr.String)
		if err != nil {
			return nil, err
		}
		doc.ReplacedBy = &replacedBy
	}
	return &doc, nil
}

func collectDocuments(rows *sql.Rows) ([]models.ComplianceDocument, error) {
	defer rows.Close()

	var docs []models.ComplianceDocument
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
