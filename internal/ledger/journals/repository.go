package journals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SarathManas/Finbuddy-Main-sub001/internal/ledger/shared"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/platform/db"
)

// Filter narrows List results.
type Filter struct {
	Status   EntryStatus
	DateFrom *time.Time
	DateTo   *time.Time
	Limit    int
}

// FollowUp runs inside the transaction that persists an entry, after its
// lines and ledger effects are written. A non-nil error rolls the entry
// back, so caller-side bookkeeping commits exactly with the entry.
type FollowUp func(ctx context.Context, tx pgx.Tx, entry JournalEntry) error

// Repository encapsulates journal entry persistence. Create and Post each
// run inside a single transaction so the header, lines, balance deltas and
// day-book rows commit or roll back together.
type Repository interface {
	Create(ctx context.Context, in CreateInput, status EntryStatus, postedBy *int64, follow FollowUp) (JournalEntry, error)
	Get(ctx context.Context, id int64) (JournalEntry, error)
	List(ctx context.Context, filter Filter) ([]JournalEntry, error)
	Post(ctx context.Context, id int64, postedBy *int64) (JournalEntry, error)
	DeleteDraft(ctx context.Context, id int64) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the pgx-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

const entryColumns = `id, entry_number, entry_date, description, total_debit, total_credit, status, source_document, posted_by, posted_at, created_at, updated_at`

// nextEntryNumber derives the day-scoped sequential number. The unique index
// on entry_number catches the race where two transactions read the same
// maximum; callers retry on that conflict.
func nextEntryNumber(ctx context.Context, tx pgx.Tx, date time.Time) (string, error) {
	prefix := "JE" + date.Format("20060102")
	var seq int
	err := tx.QueryRow(ctx, `SELECT COALESCE(MAX(SUBSTRING(entry_number FROM 11)::int), 0) + 1
FROM journal_entries WHERE entry_number LIKE $1 || '%'`, prefix).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("journals: next entry number: %w", err)
	}
	return fmt.Sprintf("%s%03d", prefix, seq), nil
}

// IsEntryNumberConflict reports whether err is the unique violation raised
// when two concurrent creations picked the same entry number.
func IsEntryNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "uq_journal_entries_number"
	}
	return false
}

func (r *repository) Create(ctx context.Context, in CreateInput, status EntryStatus, postedBy *int64, follow FollowUp) (JournalEntry, error) {
	var entry JournalEntry
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		number, err := nextEntryNumber(ctx, tx, in.EntryDate)
		if err != nil {
			return err
		}
		debit, credit := in.Totals()

		entry = JournalEntry{
			EntryNumber:    number,
			EntryDate:      in.EntryDate,
			Description:    in.Description,
			TotalDebit:     debit,
			TotalCredit:    credit,
			Status:         status,
			SourceDocument: in.SourceDocument,
		}
		var postedAt any
		if status == StatusPosted {
			entry.PostedBy = postedBy
			postedAt = time.Now().UTC()
		}
		err = tx.QueryRow(ctx, `INSERT INTO journal_entries
(entry_number, entry_date, description, total_debit, total_credit, status, source_document, posted_by, posted_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
RETURNING id, posted_at, created_at, updated_at`,
			number, in.EntryDate, in.Description, debit, credit, status, in.SourceDocument, entry.PostedBy, postedAt).
			Scan(&entry.ID, &entry.PostedAt, &entry.CreatedAt, &entry.UpdatedAt)
		if err != nil {
			return err
		}

		for _, line := range in.Lines {
			var l Line
			err := tx.QueryRow(ctx, `INSERT INTO journal_entry_lines
(journal_entry_id, account_id, description, debit_amount, credit_amount)
VALUES ($1,$2,$3,$4,$5) RETURNING id`,
				entry.ID, line.AccountID, line.Description, line.DebitAmount, line.CreditAmount).
				Scan(&l.ID)
			if err != nil {
				return fmt.Errorf("journals: insert line: %w", err)
			}
			l.JournalEntryID = entry.ID
			l.AccountID = line.AccountID
			l.Description = line.Description
			l.DebitAmount = line.DebitAmount
			l.CreditAmount = line.CreditAmount
			entry.Lines = append(entry.Lines, l)
		}

		// Entries created directly in posted state take effect immediately.
		if status == StatusPosted {
			if err := applyPosting(ctx, tx, entry); err != nil {
				return err
			}
		}
		if follow != nil {
			return follow(ctx, tx, entry)
		}
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

// applyPosting moves account balances and writes the immutable day-book
// trail for every line of a posted entry. Must run inside the same
// transaction that flips the status.
func applyPosting(ctx context.Context, tx pgx.Tx, entry JournalEntry) error {
	for _, line := range entry.Lines {
		delta := line.DebitAmount - line.CreditAmount
		cmd, err := tx.Exec(ctx, `UPDATE accounts
SET current_balance = current_balance + $2, updated_at = now()
WHERE id = $1`, line.AccountID, delta)
		if err != nil {
			return fmt.Errorf("journals: apply balance delta: %w", err)
		}
		if cmd.RowsAffected() == 0 {
			return shared.ErrAccountNotFound
		}

		description := entry.Description
		if line.Description != nil && *line.Description != "" {
			description = *line.Description
		}
		_, err = tx.Exec(ctx, `INSERT INTO day_book_entries
(journal_entry_id, account_id, entry_date, description, debit_amount, credit_amount)
VALUES ($1,$2,$3,$4,$5,$6)`,
			entry.ID, line.AccountID, entry.EntryDate, description, line.DebitAmount, line.CreditAmount)
		if err != nil {
			return fmt.Errorf("journals: insert day book row: %w", err)
		}
	}
	return nil
}

func (r *repository) Post(ctx context.Context, id int64, postedBy *int64) (JournalEntry, error) {
	var entry JournalEntry
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE id=$1 FOR UPDATE`, id).
			Scan(&entry.ID, &entry.EntryNumber, &entry.EntryDate, &entry.Description,
				&entry.TotalDebit, &entry.TotalCredit, &entry.Status, &entry.SourceDocument,
				&entry.PostedBy, &entry.PostedAt, &entry.CreatedAt, &entry.UpdatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return shared.ErrJournalNotFound
			}
			return err
		}
		if entry.Status != StatusDraft {
			return fmt.Errorf("%w: only draft entries can be posted (current %s)", shared.ErrInvalidStatus, entry.Status)
		}

		entry.Lines, err = loadLines(ctx, tx, id)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		_, err = tx.Exec(ctx, `UPDATE journal_entries
SET status='posted', posted_by=$2, posted_at=$3, updated_at=now()
WHERE id=$1 AND status='draft'`, id, postedBy, now)
		if err != nil {
			return err
		}
		entry.Status = StatusPosted
		entry.PostedBy = postedBy
		entry.PostedAt = &now

		return applyPosting(ctx, tx, entry)
	})
	if err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

func (r *repository) DeleteDraft(ctx context.Context, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM journal_entries WHERE id=$1 AND status='draft'`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		// Distinguish a posted entry from a missing one.
		var status EntryStatus
		err := r.db.QueryRow(ctx, `SELECT status FROM journal_entries WHERE id=$1`, id).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return shared.ErrJournalNotFound
		}
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: only draft entries can be deleted (current %s)", shared.ErrInvalidStatus, status)
	}
	return nil
}

func (r *repository) Get(ctx context.Context, id int64) (JournalEntry, error) {
	var entry JournalEntry
	err := r.db.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE id=$1`, id).
		Scan(&entry.ID, &entry.EntryNumber, &entry.EntryDate, &entry.Description,
			&entry.TotalDebit, &entry.TotalCredit, &entry.Status, &entry.SourceDocument,
			&entry.PostedBy, &entry.PostedAt, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, shared.ErrJournalNotFound
		}
		return JournalEntry{}, err
	}
	entry.Lines, err = loadLines(ctx, r.db, id)
	if err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

func (r *repository) List(ctx context.Context, filter Filter) ([]JournalEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM journal_entries WHERE 1=1`
	args := []any{}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status=$%d", len(args))
	}
	if filter.DateFrom != nil {
		args = append(args, *filter.DateFrom)
		query += fmt.Sprintf(" AND entry_date >= $%d", len(args))
	}
	if filter.DateTo != nil {
		args = append(args, *filter.DateTo)
		query += fmt.Sprintf(" AND entry_date <= $%d", len(args))
	}
	query += ` ORDER BY entry_date DESC, id DESC`
	limit := filter.Limit
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

	var out []JournalEntry
	for rows.Next() {
		var entry JournalEntry
		if err := rows.Scan(&entry.ID, &entry.EntryNumber, &entry.EntryDate, &entry.Description,
			&entry.TotalDebit, &entry.TotalCredit, &entry.Status, &entry.SourceDocument,
			&entry.PostedBy, &entry.PostedAt, &entry.CreatedAt, &entry.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadLines(ctx context.Context, q queryer, entryID int64) ([]Line, error) {
	rows, err := q.Query(ctx, `SELECT id, journal_entry_id, account_id, description, debit_amount, credit_amount
FROM journal_entry_lines WHERE journal_entry_id=$1 ORDER BY id`, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.JournalEntryID, &l.AccountID, &l.Description, &l.DebitAmount, &l.CreditAmount); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
