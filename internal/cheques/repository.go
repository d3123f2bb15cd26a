package cheques

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	platformdb "github.com/keystone-pm/keystone/internal/platform/db"
)

// Repository encapsulates DB operations for the cheque register.
//
// Expected DDL:
//
//	CREATE TABLE cheque_registers (
//	    id                 BIGSERIAL PRIMARY KEY,
//	    number             TEXT NOT NULL,
//	    direction          TEXT NOT NULL,
//	    cheque_date        DATE NOT NULL,
//	    amount             NUMERIC(15,2) NOT NULL,
//	    bank_id            BIGINT NOT NULL,
//	    party_id           BIGINT NOT NULL,
//	    status             TEXT NOT NULL DEFAULT 'pending',
//	    bank_account_id    BIGINT REFERENCES accounts(id),
//	    cheques_account_id BIGINT REFERENCES accounts(id),
//	    cost_center_id     BIGINT REFERENCES cost_centers(id),
//	    cleared_on         DATE,
//	    created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    UNIQUE (number, bank_id, direction)
//	);
type Repository interface {
	Insert(ctx context.Context, c Cheque) (Cheque, error)
	Get(ctx context.Context, id int64) (Cheque, error)
	MarkCleared(ctx context.Context, id int64, clearedOn time.Time, costCenterID int64) error
	SetStatus(ctx context.Context, id int64, status Status) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a pgx-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const chequeColumns = `id, number, direction, cheque_date, amount, bank_id, party_id, status,
bank_account_id, cheques_account_id, cost_center_id, cleared_on, created_at, updated_at`

func (r *repository) Insert(ctx context.Context, c Cheque) (Cheque, error) {
	row := platformdb.QuerierFrom(ctx, r.pool).QueryRow(ctx, `INSERT INTO cheque_registers
(number, direction, cheque_date, amount, bank_id, party_id, status,
 bank_account_id, cheques_account_id, cost_center_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING id, created_at, updated_at`,
		c.Number, c.Direction, c.ChequeDate, c.Amount, c.BankID, c.PartyID, c.Status,
		c.BankAccountID, c.ChequesAccountID, c.CostCenterID)
	if err := row.Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return Cheque{}, err
	}
	return c, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Cheque, error) {
	var c Cheque
	err := platformdb.QuerierFrom(ctx, r.pool).QueryRow(ctx,
		`SELECT `+chequeColumns+` FROM cheque_registers WHERE id=$1`, id).
		Scan(&c.ID, &c.Number, &c.Direction, &c.ChequeDate, &c.Amount, &c.BankID, &c.PartyID,
			&c.Status, &c.BankAccountID, &c.ChequesAccountID, &c.CostCenterID, &c.ClearedOn,
			&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Cheque{}, ErrChequeNotFound
		}
		return Cheque{}, err
	}
	return c, nil
}

func (r *repository) MarkCleared(ctx context.Context, id int64, clearedOn time.Time, costCenterID int64) error {
	cmd, err := platformdb.QuerierFrom(ctx, r.pool).Exec(ctx, `UPDATE cheque_registers
SET status='cleared', cleared_on=$2, cost_center_id=$3, updated_at=NOW() WHERE id=$1`,
		id, clearedOn, costCenterID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrChequeNotFound
	}
	return nil
}

func (r *repository) SetStatus(ctx context.Context, id int64, status Status) error {
	cmd, err := platformdb.QuerierFrom(ctx, r.pool).Exec(ctx, `UPDATE cheque_registers
SET status=$2, updated_at=NOW() WHERE id=$1`, id, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrChequeNotFound
	}
	return nil
}
