package banking

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SarathManas/Finbuddy-Main-sub001/internal/platform/httpx"
)

// ErrNotFound indicates a missing bank transaction.
var ErrNotFound = fmt.Errorf("bank transaction %w", httpx.ErrNotFound)

// ErrPosted indicates an attempt to mutate a posted transaction.
var ErrPosted = fmt.Errorf("%w: bank transaction already posted", httpx.ErrConflict)

// Repository encapsulates bank transaction persistence.
type Repository interface {
	InsertBatch(ctx context.Context, txns []BankTransaction) (int, error)
	Get(ctx context.Context, id int64) (BankTransaction, error)
	List(ctx context.Context, status TransactionStatus, limit int) ([]BankTransaction, error)
	GetMany(ctx context.Context, ids []int64) ([]BankTransaction, error)
	Categorize(ctx context.Context, id int64, category string, confidence *float64) error
	ClearCategory(ctx context.Context, id int64) error
	MarkPosted(ctx context.Context, tx pgx.Tx, ids []int64, journalEntryID int64) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the pgx-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

const txnColumns = `id, transaction_date, description, amount, transaction_type, category, ai_category_confidence, status, journal_entry_id, created_at, updated_at`

func (r *repository) InsertBatch(ctx context.Context, txns []BankTransaction) (int, error) {
	batch := &pgx.Batch{}
	for _, t := range txns {
		batch.Queue(`INSERT INTO bank_transactions
(transaction_date, description, amount, transaction_type, status)
VALUES ($1,$2,$3,$4,'uncategorized')`,
			t.TransactionDate, t.Description, t.Amount, t.Type)
	}
	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	inserted := 0
	for range txns {
		if _, err := results.Exec(); err != nil {
			return inserted, fmt.Errorf("banking: insert transaction: %w", err)
		}
		inserted++
	}
	return inserted, nil
}

func (r *repository) Get(ctx context.Context, id int64) (BankTransaction, error) {
	var t BankTransaction
	err := scanTxn(r.db.QueryRow(ctx, `SELECT `+txnColumns+` FROM bank_transactions WHERE id=$1`, id), &t)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BankTransaction{}, ErrNotFound
		}
		return BankTransaction{}, err
	}
	return t, nil
}

func (r *repository) List(ctx context.Context, status TransactionStatus, limit int) ([]BankTransaction, error) {
	query := `SELECT ` + txnColumns + ` FROM bank_transactions`
	var args []any
	if status != "" {
		args = append(args, status)
		query += ` WHERE status=$1`
	}
	query += ` ORDER BY transaction_date DESC, id DESC`
	if limit <= 0 || limit > 1000 {
		limit = 200
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

func (r *repository) GetMany(ctx context.Context, ids []int64) ([]BankTransaction, error) {
	rows, err := r.db.Query(ctx, `SELECT `+txnColumns+` FROM bank_transactions WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

// Categorize sets category and status together so the uncategorized/null
// pairing can never drift. Posted rows are refused.
func (r *repository) Categorize(ctx context.Context, id int64, category string, confidence *float64) error {
	cmd, err := r.db.Exec(ctx, `UPDATE bank_transactions
SET category=$2, ai_category_confidence=$3, status='categorized', updated_at=now()
WHERE id=$1 AND status <> 'posted'`, id, category, confidence)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return r.notUpdatable(ctx, id)
	}
	return nil
}

// ClearCategory reverts a transaction to uncategorized, nulling the category
// in the same statement.
func (r *repository) ClearCategory(ctx context.Context, id int64) error {
	cmd, err := r.db.Exec(ctx, `UPDATE bank_transactions
SET category=NULL, ai_category_confidence=NULL, status='uncategorized', updated_at=now()
WHERE id=$1 AND status <> 'posted'`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return r.notUpdatable(ctx, id)
	}
	return nil
}

// MarkPosted stamps the journal reference on categorized rows only, inside
// the transaction that creates the journal entry. A count mismatch means
// some row was concurrently posted or never categorized and rolls the
// entry back with it.
func (r *repository) MarkPosted(ctx context.Context, tx pgx.Tx, ids []int64, journalEntryID int64) error {
	cmd, err := tx.Exec(ctx, `UPDATE bank_transactions
SET status='posted', journal_entry_id=$2, updated_at=now()
WHERE id = ANY($1) AND status='categorized'`, ids, journalEntryID)
	if err != nil {
		return err
	}
	if int(cmd.RowsAffected()) != len(ids) {
		return fmt.Errorf("%w: %d of %d transactions were not in categorized state",
			httpx.ErrConflict, len(ids)-int(cmd.RowsAffected()), len(ids))
	}
	return nil
}

func (r *repository) notUpdatable(ctx context.Context, id int64) error {
	var status TransactionStatus
	err := r.db.QueryRow(ctx, `SELECT status FROM bank_transactions WHERE id=$1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if status == StatusPosted {
		return ErrPosted
	}
	return fmt.Errorf("%w: bank transaction is %s", httpx.ErrConflict, status)
}

func collect(rows pgx.Rows) ([]BankTransaction, error) {
	var out []BankTransaction
	for rows.Next() {
		var t BankTransaction
		if err := scanTxn(rows, &t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTxn(row rowScanner, t *BankTransaction) error {
	return row.Scan(&t.ID, &t.TransactionDate, &t.Description, &t.Amount, &t.Type,
		&t.Category, &t.AIConfidence, &t.Status, &t.JournalEntryID, &t.CreatedAt, &t.UpdatedAt)
}
