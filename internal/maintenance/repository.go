package maintenance

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	platformdb "github.com/keystone-pm/keystone/internal/platform/db"
)

// Repository encapsulates DB operations for maintenance contracts.
//
// Expected DDL:
//
//	CREATE TABLE maintenance_contracts (
//	    id                  BIGSERIAL PRIMARY KEY,
//	    number              TEXT NOT NULL UNIQUE,
//	    supplier_id         BIGINT NOT NULL,
//	    property_id         BIGINT NOT NULL,
//	    unit_id             BIGINT,
//	    start_date          DATE NOT NULL,
//	    end_date            DATE NOT NULL,
//	    total_amount        NUMERIC(15,2) NOT NULL,
//	    duration_months     INT NOT NULL,
//	    amortized_amount    NUMERIC(15,2) NOT NULL DEFAULT 0,
//	    status              TEXT NOT NULL DEFAULT 'draft',
//	    prepaid_account_id  BIGINT REFERENCES accounts(id),
//	    expense_account_id  BIGINT REFERENCES accounts(id),
//	    supplier_account_id BIGINT REFERENCES accounts(id),
//	    cost_center_id      BIGINT REFERENCES cost_centers(id),
//	    created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type Repository interface {
	InsertContract(ctx context.Context, c Contract) (Contract, error)
	GetContract(ctx context.Context, id int64) (Contract, error)
	MarkActivated(ctx context.Context, id, costCenterID int64) error
	ListActiveContracts(ctx context.Context, onDate time.Time) ([]Contract, error)
	RecordAmortization(ctx context.Context, id int64, amortized decimal.Decimal, status ContractStatus) error
	SetStatus(ctx context.Context, id int64, status ContractStatus) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a pgx-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const contractColumns = `id, number, supplier_id, property_id, unit_id, start_date, end_date,
total_amount, duration_months, amortized_amount, status, prepaid_account_id, expense_account_id,
supplier_account_id, cost_center_id, created_at, updated_at`

func (r *repository) InsertContract(ctx context.Context, c Contract) (Contract, error) {
	row := platformdb.QuerierFrom(ctx, r.pool).QueryRow(ctx, `INSERT INTO maintenance_contracts
(number, supplier_id, property_id, unit_id, start_date, end_date, total_amount, duration_months,
 amortized_amount, status, prepaid_account_id, expense_account_id, supplier_account_id, cost_center_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14) RETURNING id, created_at, updated_at`,
		c.Number, c.SupplierID, c.PropertyID, c.UnitID, c.StartDate, c.EndDate, c.TotalAmount,
		c.DurationMonths, c.AmortizedAmount, c.Status, c.PrepaidAccountID, c.ExpenseAccountID,
		c.SupplierAccountID, c.CostCenterID)
	if err := row.Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return Contract{}, err
	}
	return c, nil
}

func (r *repository) GetContract(ctx context.Context, id int64) (Contract, error) {
	var c Contract
	err := scanContract(platformdb.QuerierFrom(ctx, r.pool).QueryRow(ctx,
		`SELECT `+contractColumns+` FROM maintenance_contracts WHERE id=$1`, id), &c)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Contract{}, ErrContractNotFound
		}
		return Contract{}, err
	}
	return c, nil
}

func (r *repository) MarkActivated(ctx context.Context, id, costCenterID int64) error {
	cmd, err := platformdb.QuerierFrom(ctx, r.pool).Exec(ctx, `UPDATE maintenance_contracts
SET status='active', cost_center_id=$2, updated_at=NOW() WHERE id=$1`, id, costCenterID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrContractNotFound
	}
	return nil
}

func (r *repository) ListActiveContracts(ctx context.Context, onDate time.Time) ([]Contract, error) {
	rows, err := platformdb.QuerierFrom(ctx, r.pool).Query(ctx,
		`SELECT `+contractColumns+` FROM maintenance_contracts
WHERE status='active' AND start_date<=$1 AND end_date>=$1 ORDER BY id`, onDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Contract
	for rows.Next() {
		var c Contract
		if err := scanContract(rows, &c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repository) RecordAmortization(ctx context.Context, id int64, amortized decimal.Decimal, status ContractStatus) error {
	cmd, err := platformdb.QuerierFrom(ctx, r.pool).Exec(ctx, `UPDATE maintenance_contracts
SET amortized_amount=$2, status=$3, updated_at=NOW() WHERE id=$1`, id, amortized, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrContractNotFound
	}
	return nil
}

func (r *repository) SetStatus(ctx context.Context, id int64, status ContractStatus) error {
	cmd, err := platformdb.QuerierFrom(ctx, r.pool).Exec(ctx, `UPDATE maintenance_contracts
SET status=$2, updated_at=NOW() WHERE id=$1`, id, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrContractNotFound
	}
	return nil
}

func scanContract(row pgx.Row, c *Contract) error {
	return row.Scan(&c.ID, &c.Number, &c.SupplierID, &c.PropertyID, &c.UnitID, &c.StartDate,
		&c.EndDate, &c.TotalAmount, &c.DurationMonths, &c.AmortizedAmount, &c.Status,
		&c.PrepaidAccountID, &c.ExpenseAccountID, &c.SupplierAccountID, &c.CostCenterID,
		&c.CreatedAt, &c.UpdatedAt)
}
