package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema is the full DDL. Statements are idempotent so EnsureSchema can run
// at every startup and in integration test setup.
//
// Note the two constraints the engine's invariants lean on:
//   - document_current primary key (contractor_id, document_type): at most
//     one current document per pair, enforced by the database, not by code
//   - notifications unique (document_id, horizon_days): the notification
//     de-duplication guard under concurrent sweeps
const Schema = `
CREATE TABLE IF NOT EXISTS contractors (
	id UUID PRIMARY KEY,
	company_name TEXT NOT NULL,
	company_number TEXT,
	contact_name TEXT,
	contact_email TEXT NOT NULL,
	contact_phone TEXT,
	has_employees BOOLEAN NOT NULL DEFAULT FALSE,
	verification_status TEXT NOT NULL,
	payment_status TEXT NOT NULL,
	risk_score INTEGER NOT NULL DEFAULT 50,
	last_verified_at TIMESTAMPTZ,
	override_status TEXT,
	override_reason TEXT,
	override_set_by TEXT,
	override_set_at TIMESTAMPTZ,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	deleted_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS compliance_documents (
	id UUID PRIMARY KEY,
	contractor_id UUID NOT NULL REFERENCES contractors (id),
	document_type TEXT NOT NULL,
	provider_name TEXT NOT NULL,
	policy_number TEXT,
	coverage_amount BIGINT,
	start_date TIMESTAMPTZ,
	expiry_date TIMESTAMPTZ NOT NULL,
	file_hash TEXT NOT NULL,
	status TEXT NOT NULL,
	verification_score INTEGER NOT NULL DEFAULT 0,
	analysis JSONB,
	rejection_reason TEXT,
	version INTEGER NOT NULL DEFAULT 1,
	replaced_by UUID REFERENCES compliance_documents (id),
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_contractor ON compliance_documents (contractor_id);
CREATE INDEX IF NOT EXISTS idx_documents_hash ON compliance_documents (contractor_id, file_hash);
CREATE INDEX IF NOT EXISTS idx_documents_expiry ON compliance_documents (expiry_date);

CREATE TABLE IF NOT EXISTS document_current (
	contractor_id UUID NOT NULL REFERENCES contractors (id),
	document_type TEXT NOT NULL,
	document_id UUID NOT NULL REFERENCES compliance_documents (id),
	PRIMARY KEY (contractor_id, document_type)
);

CREATE TABLE IF NOT EXISTS invoices (
	id UUID PRIMARY KEY,
	contractor_id UUID NOT NULL REFERENCES contractors (id),
	amount NUMERIC(14, 2) NOT NULL,
	due_date TIMESTAMPTZ NOT NULL,
	status TEXT NOT NULL,
	block_reason TEXT,
	compliance_checked_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_invoices_contractor_status ON invoices (contractor_id, status);

CREATE TABLE IF NOT EXISTS notifications (
	id UUID PRIMARY KEY,
	contractor_id UUID NOT NULL REFERENCES contractors (id),
	document_id UUID NOT NULL REFERENCES compliance_documents (id),
	horizon_days INTEGER NOT NULL,
	channel TEXT NOT NULL,
	recipient TEXT NOT NULL,
	template_id TEXT NOT NULL,
	status TEXT NOT NULL,
	attempts INTEGER NOT NULL DEFAULT 0,
	last_error TEXT,
	sent_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	UNIQUE (document_id, horizon_days)
);
`

// EnsureSchema applies the DDL.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
