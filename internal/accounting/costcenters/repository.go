package costcenters

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/keystone-pm/keystone/internal/accounting/shared"
	platformdb "github.com/keystone-pm/keystone/internal/platform/db"
)

// Repository encapsulates DB operations for cost centers.
//
// Expected DDL:
//
//	CREATE TABLE cost_centers (
//	    id         BIGSERIAL PRIMARY KEY,
//	    code       TEXT NOT NULL UNIQUE,
//	    name       TEXT NOT NULL,
//	    is_active  BOOLEAN NOT NULL DEFAULT TRUE,
//	    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type Repository interface {
	List(ctx context.Context) ([]CostCenter, error)
	Get(ctx context.Context, id int64) (CostCenter, error)
	// GetOrCreate returns the cost center with the given code, creating it
	// with the given name on first use. Concurrent first uses resolve to the
	// same row via the unique code.
	GetOrCreate(ctx context.Context, code, name string) (CostCenter, error)
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a pgx-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const costCenterColumns = `id, code, name, is_active, created_at, updated_at`

func (r *repository) List(ctx context.Context) ([]CostCenter, error) {
	rows, err := platformdb.QuerierFrom(ctx, r.pool).Query(ctx, `SELECT `+costCenterColumns+` FROM cost_centers ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CostCenter
	for rows.Next() {
		var cc CostCenter
		if err := rows.Scan(&cc.ID, &cc.Code, &cc.Name, &cc.IsActive, &cc.CreatedAt, &cc.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, cc)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (CostCenter, error) {
	var cc CostCenter
	err := platformdb.QuerierFrom(ctx, r.pool).QueryRow(ctx, `SELECT `+costCenterColumns+` FROM cost_centers WHERE id=$1`, id).
		Scan(&cc.ID, &cc.Code, &cc.Name, &cc.IsActive, &cc.CreatedAt, &cc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CostCenter{}, shared.ErrMissingCostCenter
		}
		return CostCenter{}, err
	}
	return cc, nil
}

func (r *repository) GetOrCreate(ctx context.Context, code, name string) (CostCenter, error) {
	var cc CostCenter
	// The no-op DO UPDATE makes RETURNING yield the existing row on conflict.
	err := platformdb.QuerierFrom(ctx, r.pool).QueryRow(ctx, `INSERT INTO cost_centers (code, name)
VALUES ($1,$2)
ON CONFLICT (code) DO UPDATE SET code = cost_centers.code
RETURNING `+costCenterColumns, code, name).
		Scan(&cc.ID, &cc.Code, &cc.Name, &cc.IsActive, &cc.CreatedAt, &cc.UpdatedAt)
	if err != nil {
		return CostCenter{}, err
	}
	return cc, nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	_, err := platformdb.QuerierFrom(ctx, r.pool).Exec(ctx, `DELETE FROM cost_centers WHERE id=$1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return shared.ErrCostCenterInUse
		}
		return err
	}
	return nil
}
