package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	platformdb "github.com/keystone-pm/keystone/internal/platform/db"
)

// Repository reads aggregated ledger data for reporting.
type Repository interface {
	AccountBalances(ctx context.Context, from, to *time.Time) ([]AccountBalance, error)
	GeneralLedgerRows(ctx context.Context, f GeneralLedgerFilter) ([]GeneralLedgerRow, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a pgx-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) AccountBalances(ctx context.Context, from, to *time.Time) ([]AccountBalance, error) {
	query := `SELECT a.id, a.number, a.name, a.type,
    COALESCE(SUM(l.debit), 0) AS debit,
    COALESCE(SUM(l.credit), 0) AS credit
FROM accounts a
LEFT JOIN journal_lines l ON l.account_id = a.id
LEFT JOIN journal_entries e ON e.id = l.entry_id`
	args := make([]any, 0, 2)
	idx := 1
	if from != nil {
		query += fmt.Sprintf(" AND e.date >= $%d", idx)
		args = append(args, *from)
		idx++
	}
	if to != nil {
		query += fmt.Sprintf(" AND e.date <= $%d", idx)
		args = append(args, *to)
		idx++
	}
	query += `
WHERE a.is_active
GROUP BY a.id, a.number, a.name, a.type
ORDER BY a.number ASC`

	rows, err := platformdb.QuerierFrom(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AccountBalance
	for rows.Next() {
		var b AccountBalance
		if err := rows.Scan(&b.AccountID, &b.Number, &b.Name, &b.Type, &b.Debit, &b.Credit); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *repository) GeneralLedgerRows(ctx context.Context, f GeneralLedgerFilter) ([]GeneralLedgerRow, error) {
	query := `SELECT l.id, e.id, e.number, e.entry_type, e.date, e.description,
    a.id, a.number, a.name, c.id, c.code,
    l.debit, l.credit, l.reference_type, l.reference_id
FROM journal_lines l
JOIN journal_entries e ON e.id = l.entry_id
JOIN accounts a ON a.id = l.account_id
JOIN cost_centers c ON c.id = l.cost_center_id
WHERE 1=1`
	args := make([]any, 0, 6)
	idx := 1
	appendArg := func(clause string, value any) {
		query += fmt.Sprintf(" AND %s$%d", clause, idx)
		args = append(args, value)
		idx++
	}
	if f.AccountID != 0 {
		appendArg("l.account_id=", f.AccountID)
	}
	if f.CostCenterID != 0 {
		appendArg("l.cost_center_id=", f.CostCenterID)
	}
	if f.EntryType != "" {
		appendArg("e.entry_type=", f.EntryType)
	}
	if f.ReferenceType != "" {
		appendArg("l.reference_type=", f.ReferenceType)
	}
	if f.From != nil {
		appendArg("e.date>=", *f.From)
	}
	if f.To != nil {
		appendArg("e.date<=", *f.To)
	}
	query += ` ORDER BY e.date ASC, e.id ASC, l.id ASC`

	rows, err := platformdb.QuerierFrom(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []GeneralLedgerRow
	for rows.Next() {
		var row GeneralLedgerRow
		err := rows.Scan(&row.LineID, &row.EntryID, &row.EntryNumber, &row.EntryType, &row.Date, &row.Description,
			&row.AccountID, &row.AccountNumber, &row.AccountName, &row.CostCenterID, &row.CostCenterCode,
			&row.Debit, &row.Credit, &row.ReferenceType, &row.ReferenceID)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
