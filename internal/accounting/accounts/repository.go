package accounts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/keystone-pm/keystone/internal/accounting/shared"
	"github.com/keystone-pm/keystone/internal/platform/db"
)

// Repository encapsulates DB operations for the chart of accounts.
//
// Expected DDL:
//
//	CREATE TABLE accounts (
//	    id          BIGSERIAL PRIMARY KEY,
//	    number      TEXT NOT NULL UNIQUE,
//	    name        TEXT NOT NULL,
//	    type        TEXT NOT NULL,
//	    description TEXT NOT NULL DEFAULT '',
//	    is_active   BOOLEAN NOT NULL DEFAULT TRUE,
//	    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type Repository interface {
	List(ctx context.Context) ([]Account, error)
	Get(ctx context.Context, id int64) (Account, error)
	GetByNumber(ctx context.Context, number string) (Account, error)
	Insert(ctx context.Context, a Account) (Account, error)
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a pgx-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const accountColumns = `id, number, name, type, description, is_active, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Number, &a.Name, &a.Type, &a.Description, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

func (r *repository) List(ctx context.Context) ([]Account, error) {
	rows, err := db.QuerierFrom(ctx, r.pool).Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Number, &a.Name, &a.Type, &a.Description, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Account, error) {
	return scanAccount(db.QuerierFrom(ctx, r.pool).QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1`, id))
}

func (r *repository) GetByNumber(ctx context.Context, number string) (Account, error) {
	return scanAccount(db.QuerierFrom(ctx, r.pool).QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE number=$1`, number))
}

func (r *repository) Insert(ctx context.Context, a Account) (Account, error) {
	row := db.QuerierFrom(ctx, r.pool).QueryRow(ctx, `INSERT INTO accounts (number, name, type, description, is_active)
VALUES ($1,$2,$3,$4,$5) RETURNING id, created_at, updated_at`, a.Number, a.Name, a.Type, a.Description, a.IsActive)
	if err := row.Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return Account{}, err
	}
	return a, nil
}

func (r *repository) SetActive(ctx context.Context, id int64, active bool) error {
	cmd, err := db.QuerierFrom(ctx, r.pool).Exec(ctx, `UPDATE accounts SET is_active=$2, updated_at=NOW() WHERE id=$1`, id, active)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrAccountNotFound
	}
	return nil
}

// Delete removes an account. journal_lines.account_id is declared ON DELETE
// RESTRICT, so the database blocks removal while lines reference the account;
// the violation surfaces as ErrAccountInUse.
func (r *repository) Delete(ctx context.Context, id int64) error {
	cmd, err := db.QuerierFrom(ctx, r.pool).Exec(ctx, `DELETE FROM accounts WHERE id=$1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return shared.ErrAccountInUse
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrAccountNotFound
	}
	return nil
}
