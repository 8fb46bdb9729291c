package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate applies the schema. Every statement is idempotent so the function
// is safe to run on every startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("running database migrations")

	for _, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("platform/db: migration failed: %w", err)
		}
	}

	slog.Info("database migrations complete")
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		id UUID PRIMARY KEY,
		owner_id BIGINT NOT NULL DEFAULT 0,
		file_name TEXT NOT NULL,
		file_size BIGINT NOT NULL,
		mime_type TEXT NOT NULL,
		storage_path TEXT NOT NULL,
		checksum TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'processing'
			CHECK (status IN ('processing','completed','failed')),
		extracted_data JSONB NOT NULL DEFAULT '{}'::jsonb,
		processing_summary JSONB,
		error_message TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		processed_at TIMESTAMPTZ
	)`,

	`CREATE TABLE IF NOT EXISTS processing_queue (
		id BIGSERIAL PRIMARY KEY,
		document_id UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		stage TEXT NOT NULL
			CHECK (stage IN ('conversion','ocr_extraction','categorization')),
		status TEXT NOT NULL DEFAULT 'queued'
			CHECK (status IN ('queued','processing','completed','failed','dead')),
		priority INT NOT NULL DEFAULT 5,
		attempts INT NOT NULL DEFAULT 0,
		result JSONB,
		error_message TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		started_at TIMESTAMPTZ,
		completed_at TIMESTAMPTZ
	)`,
	// One live item per (document, stage). Terminal items do not block re-queues.
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_processing_queue_live
		ON processing_queue (document_id, stage)
		WHERE status IN ('queued','processing')`,
	`CREATE INDEX IF NOT EXISTS ix_processing_queue_claim
		ON processing_queue (stage, priority, created_at)
		WHERE status = 'queued'`,

	`CREATE TABLE IF NOT EXISTS accounts (
		id BIGSERIAL PRIMARY KEY,
		account_name TEXT NOT NULL,
		account_type TEXT NOT NULL
			CHECK (account_type IN ('asset','liability','equity','income','expense')),
		opening_balance NUMERIC(18,2) NOT NULL DEFAULT 0,
		current_balance NUMERIC(18,2) NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS journal_entries (
		id BIGSERIAL PRIMARY KEY,
		entry_number TEXT NOT NULL,
		entry_date DATE NOT NULL,
		description TEXT NOT NULL,
		total_debit NUMERIC(18,2) NOT NULL DEFAULT 0,
		total_credit NUMERIC(18,2) NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'draft'
			CHECK (status IN ('draft','posted','cancelled')),
		source_document UUID,
		posted_by BIGINT,
		posted_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_journal_entries_number
		ON journal_entries (entry_number)`,

	`CREATE TABLE IF NOT EXISTS journal_entry_lines (
		id BIGSERIAL PRIMARY KEY,
		journal_entry_id BIGINT NOT NULL REFERENCES journal_entries(id) ON DELETE CASCADE,
		account_id BIGINT NOT NULL REFERENCES accounts(id),
		description TEXT,
		debit_amount NUMERIC(18,2) NOT NULL DEFAULT 0,
		credit_amount NUMERIC(18,2) NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	// Append-only audit ledger. Rows are never updated or deleted.
	`CREATE TABLE IF NOT EXISTS day_book_entries (
		id BIGSERIAL PRIMARY KEY,
		journal_entry_id BIGINT NOT NULL REFERENCES journal_entries(id),
		account_id BIGINT NOT NULL REFERENCES accounts(id),
		entry_date DATE NOT NULL,
		description TEXT,
		debit_amount NUMERIC(18,2) NOT NULL DEFAULT 0,
		credit_amount NUMERIC(18,2) NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS ix_day_book_entries_date
		ON day_book_entries (entry_date)`,

	`CREATE TABLE IF NOT EXISTS customers (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		phone TEXT,
		billing_address TEXT,
		is_placeholder BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS ix_customers_name_ci ON customers (lower(name))`,

	`CREATE TABLE IF NOT EXISTS invoices (
		id BIGSERIAL PRIMARY KEY,
		invoice_number TEXT NOT NULL,
		customer_id BIGINT NOT NULL REFERENCES customers(id),
		invoice_date DATE NOT NULL,
		due_date DATE,
		subtotal NUMERIC(18,2) NOT NULL DEFAULT 0,
		tax_amount NUMERIC(18,2) NOT NULL DEFAULT 0,
		total_amount NUMERIC(18,2) NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'draft'
			CHECK (status IN ('draft','sent','paid','cancelled')),
		notes TEXT,
		source_document UUID,
		source_quotation BIGINT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_invoices_number ON invoices (invoice_number)`,

	`CREATE TABLE IF NOT EXISTS quotations (
		id BIGSERIAL PRIMARY KEY,
		quotation_number TEXT NOT NULL,
		customer_id BIGINT NOT NULL REFERENCES customers(id),
		quote_date DATE NOT NULL,
		valid_until DATE,
		total_amount NUMERIC(18,2) NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'draft'
			CHECK (status IN ('draft','sent','accepted','converted','expired')),
		converted_invoice_id BIGINT,
		notes TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_quotations_number ON quotations (quotation_number)`,

	`CREATE TABLE IF NOT EXISTS bank_transactions (
		id BIGSERIAL PRIMARY KEY,
		transaction_date DATE NOT NULL,
		description TEXT NOT NULL,
		amount NUMERIC(18,2) NOT NULL,
		transaction_type TEXT NOT NULL CHECK (transaction_type IN ('credit','debit')),
		category TEXT,
		ai_category_confidence DOUBLE PRECISION,
		status TEXT NOT NULL DEFAULT 'uncategorized'
			CHECK (status IN ('pending','uncategorized','categorized','posted')),
		journal_entry_id BIGINT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS ix_bank_transactions_status ON bank_transactions (status)`,
}
