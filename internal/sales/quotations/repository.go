package quotations

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

// ErrNotFound indicates a missing quotation.
var ErrNotFound = fmt.Errorf("quotation %w", httpx.ErrNotFound)

// Repository encapsulates quotation persistence.
type Repository interface {
	Create(ctx context.Context, q Quotation) (Quotation, error)
	Get(ctx context.Context, id int64) (Quotation, error)
	List(ctx context.Context, status QuotationStatus, limit int) ([]Quotation, error)
	UpdateStatus(ctx context.Context, id int64, from, to QuotationStatus) error
	MarkConverted(ctx context.Context, id, invoiceID int64) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the pgx-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

const quotationColumns = `id, quotation_number, customer_id, quote_date, valid_until, total_amount, status, converted_invoice_id, notes, created_at, updated_at`

func nextQuotationNumber(ctx context.Context, tx pgx.Tx, date time.Time) (string, error) {
	prefix := "QUO" + date.Format("20060102")
	var seq int
	err := tx.QueryRow(ctx, `SELECT COALESCE(MAX(SUBSTRING(quotation_number FROM 12)::int), 0) + 1
FROM quotations WHERE quotation_number LIKE $1 || '%'`, prefix).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("quotations: next quotation number: %w", err)
	}
	return fmt.Sprintf("%s%03d", prefix, seq), nil
}

// IsNumberConflict reports whether err is the unique violation raised when
// two concurrent creations picked the same quotation number.
func IsNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "uq_quotations_number"
	}
	return false
}

func (r *repository) Create(ctx context.Context, q Quotation) (Quotation, error) {
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		number, err := nextQuotationNumber(ctx, tx, q.QuoteDate)
		if err != nil {
			return err
		}
		q.QuotationNumber = number
		return tx.QueryRow(ctx, `INSERT INTO quotations
(quotation_number, customer_id, quote_date, valid_until, total_amount, status, notes)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id, created_at, updated_at`,
			number, q.CustomerID, q.QuoteDate, q.ValidUntil, q.TotalAmount, q.Status, q.Notes).
			Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
	})
	if err != nil {
		return Quotation{}, err
	}
	return q, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Quotation, error) {
	var q Quotation
	err := scanQuotation(r.db.QueryRow(ctx, `SELECT `+quotationColumns+` FROM quotations WHERE id=$1`, id), &q)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Quotation{}, ErrNotFound
		}
		return Quotation{}, err
	}
	return q, nil
}

func (r *repository) List(ctx context.Context, status QuotationStatus, limit int) ([]Quotation, error) {
	query := `SELECT ` + quotationColumns + ` FROM quotations`
	var args []any
	if status != "" {
		args = append(args, status)
		query += ` WHERE status=$1`
	}
	query += ` ORDER BY quote_date DESC, id DESC`
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

	var out []Quotation
	for rows.Next() {
		var q Quotation
		if err := scanQuotation(rows, &q); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, from, to QuotationStatus) error {
	cmd, err := r.db.Exec(ctx, `UPDATE quotations SET status=$3, updated_at=now()
WHERE id=$1 AND status=$2`, id, from, to)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		var current QuotationStatus
		err := r.db.QueryRow(ctx, `SELECT status FROM quotations WHERE id=$1`, id).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: quotation is %s, expected %s", httpx.ErrConflict, current, from)
	}
	return nil
}

// MarkConverted flips the quotation into its terminal state. The conditional
// status check makes conversion one-time even under concurrent callers.
func (r *repository) MarkConverted(ctx context.Context, id, invoiceID int64) error {
	cmd, err := r.db.Exec(ctx, `UPDATE quotations
SET status='converted', converted_invoice_id=$2, updated_at=now()
WHERE id=$1 AND status NOT IN ('converted','expired')`, id, invoiceID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		var current QuotationStatus
		err := r.db.QueryRow(ctx, `SELECT status FROM quotations WHERE id=$1`, id).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: quotation is %s and cannot be converted", httpx.ErrConflict, current)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuotation(row rowScanner, q *Quotation) error {
	return row.Scan(&q.ID, &q.QuotationNumber, &q.CustomerID, &q.QuoteDate, &q.ValidUntil,
		&q.TotalAmount, &q.Status, &q.ConvertedInvoiceID, &q.Notes, &q.CreatedAt, &q.UpdatedAt)
}
