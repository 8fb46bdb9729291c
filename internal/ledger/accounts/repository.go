package accounts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SarathManas/Finbuddy-Main-sub001/internal/ledger/shared"
)

// Repository encapsulates DB operations for the chart of accounts. Balance
// deltas during posting run inside the journal transaction, not here.
type Repository interface {
	List(ctx context.Context, activeOnly bool) ([]Account, error)
	Get(ctx context.Context, id int64) (Account, error)
	Create(ctx context.Context, account Account) (Account, error)
	SetOpeningBalance(ctx context.Context, id int64, balance float64) error
	SetActive(ctx context.Context, id int64, active bool) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const accountColumns = `id, account_name, account_type, opening_balance, current_balance, is_active, created_at, updated_at`

func (r *repository) List(ctx context.Context, activeOnly bool) ([]Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY account_type, account_name`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Name, &a.Type, &a.OpeningBalance, &a.CurrentBalance, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Account, error) {
	var a Account
	err := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1`, id).
		Scan(&a.ID, &a.Name, &a.Type, &a.OpeningBalance, &a.CurrentBalance, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

func (r *repository) Create(ctx context.Context, account Account) (Account, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO accounts (account_name, account_type, opening_balance, current_balance, is_active)
VALUES ($1,$2,$3,$3,$4) RETURNING id, created_at, updated_at`,
		account.Name, account.Type, account.OpeningBalance, account.IsActive).
		Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return Account{}, err
	}
	account.CurrentBalance = account.OpeningBalance
	return account, nil
}

// SetOpeningBalance shifts both opening and current balance by the same
// correction so posted activity is preserved.
func (r *repository) SetOpeningBalance(ctx context.Context, id int64, balance float64) error {
	cmd, err := r.db.Exec(ctx, `UPDATE accounts
SET current_balance = current_balance + ($2 - opening_balance),
    opening_balance = $2,
    updated_at = now()
WHERE id=$1`, id, balance)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrAccountNotFound
	}
	return nil
}

func (r *repository) SetActive(ctx context.Context, id int64, active bool) error {
	cmd, err := r.db.Exec(ctx, `UPDATE accounts SET is_active=$2, updated_at=now() WHERE id=$1`, id, active)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrAccountNotFound
	}
	return nil
}
