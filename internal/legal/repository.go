package legal

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	platformdb "github.com/keystone-pm/keystone/internal/platform/db"
)

var ErrCaseNotFound = errors.New("legal: case not found")

// Repository encapsulates DB operations for legal cases.
//
// Expected DDL:
//
//	CREATE TABLE legal_cases (
//	    id          BIGSERIAL PRIMARY KEY,
//	    number      TEXT NOT NULL UNIQUE,
//	    lease_id    BIGINT NOT NULL,
//	    tenant_id   BIGINT NOT NULL,
//	    unit_id     BIGINT NOT NULL,
//	    reason      TEXT NOT NULL DEFAULT '',
//	    status      TEXT NOT NULL DEFAULT 'filed',
//	    filed_on    DATE NOT NULL,
//	    resolved_on DATE,
//	    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
//
//	CREATE TABLE legal_case_status_changes (
//	    id          BIGSERIAL PRIMARY KEY,
//	    case_id     BIGINT NOT NULL REFERENCES legal_cases(id) ON DELETE CASCADE,
//	    from_status TEXT NOT NULL,
//	    to_status   TEXT NOT NULL,
//	    note        TEXT NOT NULL DEFAULT '',
//	    changed_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type Repository interface {
	Insert(ctx context.Context, c Case) (Case, error)
	Get(ctx context.Context, id int64) (Case, error)
	UpdateStatus(ctx context.Context, id int64, status CaseStatus, resolvedOn *time.Time) error
	AppendStatusChange(ctx context.Context, change StatusChange) error
	StatusHistory(ctx context.Context, caseID int64) ([]StatusChange, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a pgx-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Insert(ctx context.Context, c Case) (Case, error) {
	row := platformdb.QuerierFrom(ctx, r.pool).QueryRow(ctx, `INSERT INTO legal_cases
(number, lease_id, tenant_id, unit_id, reason, status, filed_on)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id, created_at, updated_at`,
		c.Number, c.LeaseID, c.TenantID, c.UnitID, c.Reason, c.Status, c.FiledOn)
	if err := row.Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return Case{}, err
	}
	return c, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Case, error) {
	var c Case
	err := platformdb.QuerierFrom(ctx, r.pool).QueryRow(ctx, `SELECT id, number, lease_id,
tenant_id, unit_id, reason, status, filed_on, resolved_on, created_at, updated_at
FROM legal_cases WHERE id=$1`, id).
		Scan(&c.ID, &c.Number, &c.LeaseID, &c.TenantID, &c.UnitID, &c.Reason, &c.Status,
			&c.FiledOn, &c.ResolvedOn, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Case{}, ErrCaseNotFound
		}
		return Case{}, err
	}
	return c, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, status CaseStatus, resolvedOn *time.Time) error {
	cmd, err := platformdb.QuerierFrom(ctx, r.pool).Exec(ctx, `UPDATE legal_cases
SET status=$2, resolved_on=COALESCE($3, resolved_on), updated_at=NOW() WHERE id=$1`,
		id, status, resolvedOn)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrCaseNotFound
	}
	return nil
}

func (r *repository) AppendStatusChange(ctx context.Context, change StatusChange) error {
	_, err := platformdb.QuerierFrom(ctx, r.pool).Exec(ctx, `INSERT INTO legal_case_status_changes
(case_id, from_status, to_status, note, changed_at) VALUES ($1,$2,$3,$4,$5)`,
		change.CaseID, change.From, change.To, change.Note, change.ChangedAt)
	return err
}

func (r *repository) StatusHistory(ctx context.Context, caseID int64) ([]StatusChange, error) {
	rows, err := platformdb.QuerierFrom(ctx, r.pool).Query(ctx, `SELECT id, case_id, from_status,
to_status, note, changed_at FROM legal_case_status_changes WHERE case_id=$1 ORDER BY id`, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StatusChange
	for rows.Next() {
		var ch StatusChange
		if err := rows.Scan(&ch.ID, &ch.CaseID, &ch.From, &ch.To, &ch.Note, &ch.ChangedAt); err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}
