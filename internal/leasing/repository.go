package leasing

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	platformdb "github.com/keystone-pm/keystone/internal/platform/db"
)

// Repository encapsulates DB operations for lease documents.
//
// Expected DDL:
//
//	CREATE TABLE leases (
//	    id                       BIGSERIAL PRIMARY KEY,
//	    number                   TEXT NOT NULL UNIQUE,
//	    unit_id                  BIGINT NOT NULL,
//	    tenant_id                BIGINT NOT NULL,
//	    property_id              BIGINT NOT NULL,
//	    start_date               DATE NOT NULL,
//	    end_date                 DATE NOT NULL,
//	    monthly_rent             NUMERIC(15,2) NOT NULL,
//	    security_deposit         NUMERIC(15,2) NOT NULL DEFAULT 0,
//	    other_charges            NUMERIC(15,2) NOT NULL DEFAULT 0,
//	    status                   TEXT NOT NULL DEFAULT 'draft',
//	    accounting_posted        BOOLEAN NOT NULL DEFAULT FALSE,
//	    receivable_account_id    BIGINT REFERENCES accounts(id),
//	    unearned_account_id      BIGINT REFERENCES accounts(id),
//	    deposit_account_id       BIGINT REFERENCES accounts(id),
//	    other_charges_account_id BIGINT REFERENCES accounts(id),
//	    rental_income_account_id BIGINT REFERENCES accounts(id),
//	    cost_center_id           BIGINT REFERENCES cost_centers(id),
//	    created_at               TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    updated_at               TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
//
//	CREATE TABLE lease_terminations (
//	    id                          BIGSERIAL PRIMARY KEY,
//	    number                      TEXT NOT NULL UNIQUE,
//	    lease_id                    BIGINT NOT NULL REFERENCES leases(id),
//	    kind                        TEXT NOT NULL,
//	    termination_date            DATE NOT NULL,
//	    refundable_amount           NUMERIC(15,2) NOT NULL DEFAULT 0,
//	    unearned_rent               NUMERIC(15,2) NOT NULL DEFAULT 0,
//	    penalty                     NUMERIC(15,2) NOT NULL DEFAULT 0,
//	    maintenance_charges         NUMERIC(15,2) NOT NULL DEFAULT 0,
//	    post_dated_cheques_adjusted BOOLEAN NOT NULL DEFAULT FALSE,
//	    status                      TEXT NOT NULL DEFAULT 'pending',
//	    accounting_posted           BOOLEAN NOT NULL DEFAULT FALSE,
//	    deposit_account_id          BIGINT REFERENCES accounts(id),
//	    tenant_account_id           BIGINT REFERENCES accounts(id),
//	    unearned_account_id         BIGINT REFERENCES accounts(id),
//	    penalty_account_id          BIGINT REFERENCES accounts(id),
//	    maintenance_account_id      BIGINT REFERENCES accounts(id),
//	    cheques_account_id          BIGINT REFERENCES accounts(id),
//	    cost_center_id              BIGINT REFERENCES cost_centers(id),
//	    created_at                  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    updated_at                  TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
//
//	CREATE TABLE lease_renewals (
//	    id                   BIGSERIAL PRIMARY KEY,
//	    number               TEXT NOT NULL UNIQUE,
//	    original_lease_id    BIGINT NOT NULL REFERENCES leases(id),
//	    new_start_date       DATE NOT NULL,
//	    new_end_date         DATE NOT NULL,
//	    new_monthly_rent     NUMERIC(15,2) NOT NULL,
//	    new_security_deposit NUMERIC(15,2),
//	    status               TEXT NOT NULL DEFAULT 'pending',
//	    activation_date      DATE,
//	    new_lease_id         BIGINT REFERENCES leases(id),
//	    created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type Repository interface {
	InsertLease(ctx context.Context, l Lease) (Lease, error)
	GetLease(ctx context.Context, id int64) (Lease, error)
	// ListActiveLeases returns active leases whose [start_date, end_date]
	// range covers onDate.
	ListActiveLeases(ctx context.Context, onDate time.Time) ([]Lease, error)
	MarkLeasePosted(ctx context.Context, id, costCenterID int64) error
	SetLeaseStatus(ctx context.Context, id int64, status LeaseStatus) error
	SetLeaseCostCenter(ctx context.Context, id, costCenterID int64) error

	InsertTermination(ctx context.Context, t Termination) (Termination, error)
	GetTermination(ctx context.Context, id int64) (Termination, error)
	CompleteTermination(ctx context.Context, id, costCenterID int64) error

	InsertRenewal(ctx context.Context, r Renewal) (Renewal, error)
	GetRenewal(ctx context.Context, id int64) (Renewal, error)
	ActivateRenewal(ctx context.Context, id, newLeaseID int64, activatedOn time.Time) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a pgx-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const leaseColumns = `id, number, unit_id, tenant_id, property_id, start_date, end_date,
monthly_rent, security_deposit, other_charges, status, accounting_posted,
receivable_account_id, unearned_account_id, deposit_account_id,
other_charges_account_id, rental_income_account_id, cost_center_id,
created_at, updated_at`

func scanLease(row pgx.Row) (Lease, error) {
	var l Lease
	err := row.Scan(&l.ID, &l.Number, &l.UnitID, &l.TenantID, &l.PropertyID, &l.StartDate, &l.EndDate,
		&l.MonthlyRent, &l.SecurityDeposit, &l.OtherCharges, &l.Status, &l.AccountingPosted,
		&l.ReceivableAccountID, &l.UnearnedAccountID, &l.DepositAccountID,
		&l.OtherChargesAccountID, &l.RentalIncomeAccountID, &l.CostCenterID,
		&l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lease{}, ErrLeaseNotFound
		}
		return Lease{}, err
	}
	return l, nil
}

func (r *repository) InsertLease(ctx context.Context, l Lease) (Lease, error) {
	row := platformdb.QuerierFrom(ctx, r.pool).QueryRow(ctx, `INSERT INTO leases
(number, unit_id, tenant_id, property_id, start_date, end_date, monthly_rent, security_deposit,
 other_charges, status, receivable_account_id, unearned_account_id, deposit_account_id,
 other_charges_account_id, rental_income_account_id, cost_center_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
RETURNING id, created_at, updated_at`,
		l.Number, l.UnitID, l.TenantID, l.PropertyID, l.StartDate, l.EndDate, l.MonthlyRent, l.SecurityDeposit,
		l.OtherCharges, l.Status, l.ReceivableAccountID, l.UnearnedAccountID, l.DepositAccountID,
		l.OtherChargesAccountID, l.RentalIncomeAccountID, l.CostCenterID)
	if err := row.Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return Lease{}, err
	}
	return l, nil
}

func (r *repository) GetLease(ctx context.Context, id int64) (Lease, error) {
	return scanLease(platformdb.QuerierFrom(ctx, r.pool).QueryRow(ctx,
		`SELECT `+leaseColumns+` FROM leases WHERE id=$1`, id))
}

func (r *repository) ListActiveLeases(ctx context.Context, onDate time.Time) ([]Lease, error) {
	rows, err := platformdb.QuerierFrom(ctx, r.pool).Query(ctx,
		`SELECT `+leaseColumns+` FROM leases
WHERE status='active' AND start_date <= $1 AND end_date >= $1 ORDER BY id`, onDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Lease
	for rows.Next() {
		var l Lease
		err := rows.Scan(&l.ID, &l.Number, &l.UnitID, &l.TenantID, &l.PropertyID, &l.StartDate, &l.EndDate,
			&l.MonthlyRent, &l.SecurityDeposit, &l.OtherCharges, &l.Status, &l.AccountingPosted,
			&l.ReceivableAccountID, &l.UnearnedAccountID, &l.DepositAccountID,
			&l.OtherChargesAccountID, &l.RentalIncomeAccountID, &l.CostCenterID,
			&l.CreatedAt, &l.UpdatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *repository) MarkLeasePosted(ctx context.Context, id, costCenterID int64) error {
	cmd, err := platformdb.QuerierFrom(ctx, r.pool).Exec(ctx,
		`UPDATE leases SET accounting_posted=TRUE, cost_center_id=$2, updated_at=NOW() WHERE id=$1`, id, costCenterID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrLeaseNotFound
	}
	return nil
}

func (r *repository) SetLeaseStatus(ctx context.Context, id int64, status LeaseStatus) error {
	cmd, err := platformdb.QuerierFrom(ctx, r.pool).Exec(ctx,
		`UPDATE leases SET status=$2, updated_at=NOW() WHERE id=$1`, id, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrLeaseNotFound
	}
	return nil
}

func (r *repository) SetLeaseCostCenter(ctx context.Context, id, costCenterID int64) error {
	cmd, err := platformdb.QuerierFrom(ctx, r.pool).Exec(ctx,
		`UPDATE leases SET cost_center_id=$2, updated_at=NOW() WHERE id=$1`, id, costCenterID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrLeaseNotFound
	}
	return nil
}

const terminationColumns = `id, number, lease_id, kind, termination_date, refundable_amount,
unearned_rent, penalty, maintenance_charges, post_dated_cheques_adjusted, status,
accounting_posted, deposit_account_id, tenant_account_id, unearned_account_id,
penalty_account_id, maintenance_account_id, cheques_account_id, cost_center_id,
created_at, updated_at`

func scanTermination(row pgx.Row) (Termination, error) {
	var t Termination
	err := row.Scan(&t.ID, &t.Number, &t.LeaseID, &t.Kind, &t.TerminationDate, &t.RefundableAmount,
		&t.UnearnedRent, &t.Penalty, &t.MaintenanceCharges, &t.PostDatedChequesAdjusted, &t.Status,
		&t.AccountingPosted, &t.DepositAccountID, &t.TenantAccountID, &t.UnearnedAccountID,
		&t.PenaltyAccountID, &t.MaintenanceAccountID, &t.ChequesAccountID, &t.CostCenterID,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Termination{}, ErrTerminationNotFound
		}
		return Termination{}, err
	}
	return t, nil
}

func (r *repository) InsertTermination(ctx context.Context, t Termination) (Termination, error) {
	row := platformdb.QuerierFrom(ctx, r.pool).QueryRow(ctx, `INSERT INTO lease_terminations
(number, lease_id, kind, termination_date, refundable_amount, unearned_rent, penalty,
 maintenance_charges, post_dated_cheques_adjusted, status, deposit_account_id, tenant_account_id,
 unearned_account_id, penalty_account_id, maintenance_account_id, cheques_account_id, cost_center_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
RETURNING id, created_at, updated_at`,
		t.Number, t.LeaseID, t.Kind, t.TerminationDate, t.RefundableAmount, t.UnearnedRent, t.Penalty,
		t.MaintenanceCharges, t.PostDatedChequesAdjusted, t.Status, t.DepositAccountID, t.TenantAccountID,
		t.UnearnedAccountID, t.PenaltyAccountID, t.MaintenanceAccountID, t.ChequesAccountID, t.CostCenterID)
	if err := row.Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return Termination{}, err
	}
	return t, nil
}

func (r *repository) GetTermination(ctx context.Context, id int64) (Termination, error) {
	return scanTermination(platformdb.QuerierFrom(ctx, r.pool).QueryRow(ctx,
		`SELECT `+terminationColumns+` FROM lease_terminations WHERE id=$1`, id))
}

func (r *repository) CompleteTermination(ctx context.Context, id, costCenterID int64) error {
	cmd, err := platformdb.QuerierFrom(ctx, r.pool).Exec(ctx, `UPDATE lease_terminations
SET status='completed', accounting_posted=TRUE, cost_center_id=$2, updated_at=NOW() WHERE id=$1`, id, costCenterID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrTerminationNotFound
	}
	return nil
}

const renewalColumns = `id, number, original_lease_id, new_start_date, new_end_date,
new_monthly_rent, new_security_deposit, status, activation_date, new_lease_id,
created_at, updated_at`

func (r *repository) InsertRenewal(ctx context.Context, re Renewal) (Renewal, error) {
	row := platformdb.QuerierFrom(ctx, r.pool).QueryRow(ctx, `INSERT INTO lease_renewals
(number, original_lease_id, new_start_date, new_end_date, new_monthly_rent, new_security_deposit, status)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id, created_at, updated_at`,
		re.Number, re.OriginalLeaseID, re.NewStartDate, re.NewEndDate, re.NewMonthlyRent, re.NewSecurityDeposit, re.Status)
	if err := row.Scan(&re.ID, &re.CreatedAt, &re.UpdatedAt); err != nil {
		return Renewal{}, err
	}
	return re, nil
}

func (r *repository) GetRenewal(ctx context.Context, id int64) (Renewal, error) {
	var re Renewal
	err := platformdb.QuerierFrom(ctx, r.pool).QueryRow(ctx,
		`SELECT `+renewalColumns+` FROM lease_renewals WHERE id=$1`, id).
		Scan(&re.ID, &re.Number, &re.OriginalLeaseID, &re.NewStartDate, &re.NewEndDate,
			&re.NewMonthlyRent, &re.NewSecurityDeposit, &re.Status, &re.ActivationDate, &re.NewLeaseID,
			&re.CreatedAt, &re.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Renewal{}, ErrRenewalNotFound
		}
		return Renewal{}, err
	}
	return re, nil
}

func (r *repository) ActivateRenewal(ctx context.Context, id, newLeaseID int64, activatedOn time.Time) error {
	cmd, err := platformdb.QuerierFrom(ctx, r.pool).Exec(ctx, `UPDATE lease_renewals
SET status='active', new_lease_id=$2, activation_date=$3, updated_at=NOW() WHERE id=$1`, id, newLeaseID, activatedOn)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrRenewalNotFound
	}
	return nil
}
