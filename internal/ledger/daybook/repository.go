package daybook

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Filter narrows day-book queries.
type Filter struct {
	From      *time.Time
	To        *time.Time
	AccountID *int64
	Limit     int
}

// Repository reads day-book rows.
type Repository interface {
	List(ctx context.Context, filter Filter) ([]Entry, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the pgx-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

func (r *repository) List(ctx context.Context, filter Filter) ([]Entry, error) {
	query := `SELECT d.id, d.journal_entry_id, d.account_id, a.account_name,
	d.entry_date, d.description, d.debit_amount, d.credit_amount, d.created_at
FROM day_book_entries d
JOIN accounts a ON a.id = d.account_id
WHERE 1=1`
	args := []any{}
	if filter.From != nil {
		args = append(args, *filter.From)
		query += fmt.Sprintf(" AND d.entry_date >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		query += fmt.Sprintf(" AND d.entry_date <= $%d", len(args))
	}
	if filter.AccountID != nil {
		args = append(args, *filter.AccountID)
		query += fmt.Sprintf(" AND d.account_id = $%d", len(args))
	}
	query += ` ORDER BY d.entry_date, d.id`
	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 500
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.JournalEntryID, &e.AccountID, &e.AccountName,
			&e.EntryDate, &e.Description, &e.DebitAmount, &e.CreditAmount, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
