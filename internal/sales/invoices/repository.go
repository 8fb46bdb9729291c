package invoices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SarathManas/Finbuddy-Main-sub001/internal/platform/db"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/platform/httpx"
)

// ErrNotFound indicates a missing invoice.
var ErrNotFound = fmt.Errorf("invoice %w", httpx.ErrNotFound)

// Repository encapsulates invoice persistence.
type Repository interface {
	Create(ctx context.Context, invoice Invoice) (Invoice, error)
	Get(ctx context.Context, id int64) (Invoice, error)
	List(ctx context.Context, status InvoiceStatus, limit int) ([]Invoice, error)
	UpdateStatus(ctx context.Context, id int64, from, to InvoiceStatus) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the pgx-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

const invoiceColumns = `id, invoice_number, customer_id, invoice_date, due_date, subtotal, tax_amount, total_amount, status, notes, source_document, source_quotation, created_at, updated_at`

// nextInvoiceNumber derives the day-scoped sequential number inside the
// creating transaction. The unique index catches concurrent duplicates.
func nextInvoiceNumber(ctx context.Context, tx pgx.Tx, date time.Time) (string, error) {
	prefix := "INV" + date.Format("20060102")
	var seq int
	err := tx.QueryRow(ctx, `SELECT COALESCE(MAX(SUBSTRING(invoice_number FROM 12)::int), 0) + 1
FROM invoices WHERE invoice_number LIKE $1 || '%'`, prefix).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("invoices: next invoice number: %w", err)
	}
	return fmt.Sprintf("%s%03d", prefix, seq), nil
}

// IsNumberConflict reports whether err is the unique violation raised when
// two concurrent creations picked the same invoice number.
func IsNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "uq_invoices_number"
	}
	return false
}

func (r *repository) Create(ctx context.Context, invoice Invoice) (Invoice, error) {
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		number, err := nextInvoiceNumber(ctx, tx, invoice.InvoiceDate)
		if err != nil {
			return err
		}
		invoice.InvoiceNumber = number
		return tx.QueryRow(ctx, `INSERT INTO invoices
(invoice_number, customer_id, invoice_date, due_date, subtotal, tax_amount, total_amount, status, notes, source_document, source_quotation)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
RETURNING id, created_at, updated_at`,
			number, invoice.CustomerID, invoice.InvoiceDate, invoice.DueDate,
			invoice.Subtotal, invoice.TaxAmount, invoice.TotalAmount, invoice.Status,
			invoice.Notes, invoice.SourceDocument, invoice.SourceQuotation).
			Scan(&invoice.ID, &invoice.CreatedAt, &invoice.UpdatedAt)
	})
	if err != nil {
		return Invoice{}, err
	}
	return invoice, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Invoice, error) {
	var inv Invoice
	err := scanInvoice(r.db.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id=$1`, id), &inv)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, ErrNotFound
		}
		return Invoice{}, err
	}
	return inv, nil
}

func (r *repository) List(ctx context.Context, status InvoiceStatus, limit int) ([]Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices`
	var args []any
	if status != "" {
		args = append(args, status)
		query += ` WHERE status=$1`
	}
	query += ` ORDER BY invoice_date DESC, id DESC`
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		var inv Invoice
		if err := scanInvoice(rows, &inv); err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, from, to InvoiceStatus) error {
	cmd, err := r.db.Exec(ctx, `UPDATE invoices SET status=$3, updated_at=now()
WHERE id=$1 AND status=$2`, id, from, to)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		var current InvoiceStatus
		err := r.db.QueryRow(ctx, `SELECT status FROM invoices WHERE id=$1`, id).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: invoice is %s, expected %s", httpx.ErrConflict, current, from)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row rowScanner, inv *Invoice) error {
	return row.Scan(&inv.ID, &inv.InvoiceNumber, &inv.CustomerID, &inv.InvoiceDate, &inv.DueDate,
		&inv.Subtotal, &inv.TaxAmount, &inv.TotalAmount, &inv.Status, &inv.Notes,
		&inv.SourceDocument, &inv.SourceQuotation, &inv.CreatedAt, &inv.UpdatedAt)
}
