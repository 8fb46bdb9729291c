package customers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SarathManas/Finbuddy-Main-sub001/internal/platform/httpx"
)

// ErrNotFound indicates a missing customer.
var ErrNotFound = fmt.Errorf("customer %w", httpx.ErrNotFound)

// Repository encapsulates customer persistence.
type Repository interface {
	List(ctx context.Context, search string) ([]Customer, error)
	Get(ctx context.Context, id int64) (Customer, error)
	FindByName(ctx context.Context, name string) (Customer, error)
	Create(ctx context.Context, c Customer) (Customer, error)
	Update(ctx context.Context, c Customer) (Customer, error)
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the pgx-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

const customerColumns = `id, name, email, phone, billing_address, is_placeholder, created_at, updated_at`

func (r *repository) List(ctx context.Context, search string) ([]Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers`
	var args []any
	if search != "" {
		args = append(args, "%"+search+"%")
		query += ` WHERE name ILIKE $1 OR email ILIKE $1`
	}
	query += ` ORDER BY name LIMIT 200`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		var c Customer
		if err := scanCustomer(rows, &c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Customer, error) {
	var c Customer
	err := scanCustomer(r.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id=$1`, id), &c)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, ErrNotFound
		}
		return Customer{}, err
	}
	return c, nil
}

// FindByName matches the exact name case-insensitively. When several rows
// match, the oldest wins so repeated postings resolve consistently.
func (r *repository) FindByName(ctx context.Context, name string) (Customer, error) {
	var c Customer
	err := scanCustomer(r.db.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE lower(name)=lower($1) ORDER BY id LIMIT 1`,
		strings.TrimSpace(name)), &c)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, ErrNotFound
		}
		return Customer{}, err
	}
	return c, nil
}

func (r *repository) Create(ctx context.Context, c Customer) (Customer, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO customers (name, email, phone, billing_address, is_placeholder)
VALUES ($1,$2,$3,$4,$5) RETURNING id, created_at, updated_at`,
		c.Name, c.Email, c.Phone, c.BillingAddress, c.IsPlaceholder).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Customer{}, err
	}
	return c, nil
}

// Update clears the placeholder flag since the record now carries
// user-provided data.
func (r *repository) Update(ctx context.Context, c Customer) (Customer, error) {
	err := r.db.QueryRow(ctx, `UPDATE customers
SET name=$2, email=$3, phone=$4, billing_address=$5, is_placeholder=FALSE, updated_at=now()
WHERE id=$1 RETURNING is_placeholder, created_at, updated_at`,
		c.ID, c.Name, c.Email, c.Phone, c.BillingAddress).
		Scan(&c.IsPlaceholder, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, ErrNotFound
		}
		return Customer{}, err
	}
	return c, nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM customers WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner, c *Customer) error {
	return row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.BillingAddress, &c.IsPlaceholder, &c.CreatedAt, &c.UpdatedAt)
}
