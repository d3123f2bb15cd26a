package mappings

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/keystone-pm/keystone/internal/accounting/shared"
	platformdb "github.com/keystone-pm/keystone/internal/platform/db"
)

// Repository encapsulates DB operations for transaction account mappings.
//
// Expected DDL:
//
//	CREATE TABLE transaction_mappings (
//	    id                 BIGSERIAL PRIMARY KEY,
//	    transaction_type   TEXT NOT NULL UNIQUE,
//	    debit_account_id   BIGINT NOT NULL REFERENCES accounts(id),
//	    credit_account_id  BIGINT NOT NULL REFERENCES accounts(id),
//	    tax_account_id     BIGINT REFERENCES accounts(id),
//	    cash_account_id    BIGINT REFERENCES accounts(id),
//	    bank_account_id    BIGINT REFERENCES accounts(id),
//	    cheques_account_id BIGINT REFERENCES accounts(id),
//	    cost_center_id     BIGINT REFERENCES cost_centers(id),
//	    is_active          BOOLEAN NOT NULL DEFAULT TRUE,
//	    created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type Repository interface {
	GetByType(ctx context.Context, tt TransactionType) (Mapping, error)
	List(ctx context.Context) ([]Mapping, error)
	Upsert(ctx context.Context, m Mapping) (Mapping, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a pgx-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const mappingColumns = `id, transaction_type, debit_account_id, credit_account_id, tax_account_id, cash_account_id, bank_account_id, cheques_account_id, cost_center_id, is_active, created_at, updated_at`

func scanMapping(row pgx.Row) (Mapping, error) {
	var m Mapping
	err := row.Scan(&m.ID, &m.TransactionType, &m.DebitAccountID, &m.CreditAccountID, &m.TaxAccountID,
		&m.CashAccountID, &m.BankAccountID, &m.ChequesAccountID, &m.CostCenterID, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Mapping{}, shared.ErrMappingNotFound
		}
		return Mapping{}, err
	}
	return m, nil
}

func (r *repository) GetByType(ctx context.Context, tt TransactionType) (Mapping, error) {
	return scanMapping(platformdb.QuerierFrom(ctx, r.pool).QueryRow(ctx,
		`SELECT `+mappingColumns+` FROM transaction_mappings WHERE transaction_type=$1`, tt))
}

func (r *repository) List(ctx context.Context) ([]Mapping, error) {
	rows, err := platformdb.QuerierFrom(ctx, r.pool).Query(ctx, `SELECT `+mappingColumns+` FROM transaction_mappings ORDER BY transaction_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Mapping
	for rows.Next() {
		var m Mapping
		if err := rows.Scan(&m.ID, &m.TransactionType, &m.DebitAccountID, &m.CreditAccountID, &m.TaxAccountID,
			&m.CashAccountID, &m.BankAccountID, &m.ChequesAccountID, &m.CostCenterID, &m.IsActive, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *repository) Upsert(ctx context.Context, m Mapping) (Mapping, error) {
	return scanMapping(platformdb.QuerierFrom(ctx, r.pool).QueryRow(ctx, `INSERT INTO transaction_mappings
(transaction_type, debit_account_id, credit_account_id, tax_account_id, cash_account_id, bank_account_id, cheques_account_id, cost_center_id, is_active)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (transaction_type) DO UPDATE SET
    debit_account_id=EXCLUDED.debit_account_id,
    credit_account_id=EXCLUDED.credit_account_id,
    tax_account_id=EXCLUDED.tax_account_id,
    cash_account_id=EXCLUDED.cash_account_id,
    bank_account_id=EXCLUDED.bank_account_id,
    cheques_account_id=EXCLUDED.cheques_account_id,
    cost_center_id=EXCLUDED.cost_center_id,
    is_active=EXCLUDED.is_active,
    updated_at=NOW()
RETURNING `+mappingColumns,
		m.TransactionType, m.DebitAccountID, m.CreditAccountID, m.TaxAccountID,
		m.CashAccountID, m.BankAccountID, m.ChequesAccountID, m.CostCenterID, m.IsActive))
}
