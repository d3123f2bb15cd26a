package ar

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	platformdb "github.com/keystone-pm/keystone/internal/platform/db"
)

// Repository encapsulates DB operations for receivable documents.
//
// Expected DDL:
//
//	CREATE TABLE receipt_vouchers (
//	    id                  BIGSERIAL PRIMARY KEY,
//	    number              TEXT NOT NULL UNIQUE,
//	    tenant_id           BIGINT NOT NULL,
//	    lease_id            BIGINT REFERENCES leases(id),
//	    date                DATE NOT NULL,
//	    amount              NUMERIC(15,2) NOT NULL,
//	    payment_method      TEXT NOT NULL,
//	    status              TEXT NOT NULL DEFAULT 'draft',
//	    accounting_posted   BOOLEAN NOT NULL DEFAULT FALSE,
//	    cash_account_id     BIGINT REFERENCES accounts(id),
//	    bank_account_id     BIGINT REFERENCES accounts(id),
//	    cheques_account_id  BIGINT REFERENCES accounts(id),
//	    tenant_account_id   BIGINT REFERENCES accounts(id),
//	    cost_center_id      BIGINT REFERENCES cost_centers(id),
//	    created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
//
//	CREATE TABLE customer_invoices (
//	    id                 BIGSERIAL PRIMARY KEY,
//	    number             TEXT NOT NULL UNIQUE,
//	    tenant_id          BIGINT NOT NULL,
//	    lease_id           BIGINT REFERENCES leases(id),
//	    date               DATE NOT NULL,
//	    amount             NUMERIC(15,2) NOT NULL,
//	    is_taxable         BOOLEAN NOT NULL DEFAULT FALSE,
//	    tax_rate           NUMERIC(5,2) NOT NULL DEFAULT 0,
//	    tax_amount         NUMERIC(15,2) NOT NULL DEFAULT 0,
//	    total_amount       NUMERIC(15,2) NOT NULL DEFAULT 0,
//	    status             TEXT NOT NULL DEFAULT 'draft',
//	    accounting_posted  BOOLEAN NOT NULL DEFAULT FALSE,
//	    tenant_account_id  BIGINT REFERENCES accounts(id),
//	    income_account_id  BIGINT REFERENCES accounts(id),
//	    tax_account_id     BIGINT REFERENCES accounts(id),
//	    cost_center_id     BIGINT REFERENCES cost_centers(id),
//	    created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type Repository interface {
	InsertReceipt(ctx context.Context, v ReceiptVoucher) (ReceiptVoucher, error)
	GetReceipt(ctx context.Context, id int64) (ReceiptVoucher, error)
	MarkReceiptPosted(ctx context.Context, id, tenantAccountID, costCenterID int64) error

	InsertInvoice(ctx context.Context, inv CustomerInvoice) (CustomerInvoice, error)
	GetInvoice(ctx context.Context, id int64) (CustomerInvoice, error)
	MarkInvoicePosted(ctx context.Context, id int64, taxAmount, totalAmount decimal.Decimal, costCenterID int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a pgx-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const receiptColumns = `id, number, tenant_id, lease_id, date, amount, payment_method, status,
accounting_posted, cash_account_id, bank_account_id, cheques_account_id, tenant_account_id,
cost_center_id, created_at, updated_at`

func (r *repository) InsertReceipt(ctx context.Context, v ReceiptVoucher) (ReceiptVoucher, error) {
	row := platformdb.QuerierFrom(ctx, r.pool).QueryRow(ctx, `INSERT INTO receipt_vouchers
(number, tenant_id, lease_id, date, amount, payment_method, status, cash_account_id,
 bank_account_id, cheques_account_id, tenant_account_id, cost_center_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12) RETURNING id, created_at, updated_at`,
		v.Number, v.TenantID, v.LeaseID, v.Date, v.Amount, v.PaymentMethod, v.Status,
		v.CashAccountID, v.BankAccountID, v.ChequesAccountID, v.TenantAccountID, v.CostCenterID)
	if err := row.Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return ReceiptVoucher{}, err
	}
	return v, nil
}

func (r *repository) GetReceipt(ctx context.Context, id int64) (ReceiptVoucher, error) {
	var v ReceiptVoucher
	err := platformdb.QuerierFrom(ctx, r.pool).QueryRow(ctx,
		`SELECT `+receiptColumns+` FROM receipt_vouchers WHERE id=$1`, id).
		Scan(&v.ID, &v.Number, &v.TenantID, &v.LeaseID, &v.Date, &v.Amount, &v.PaymentMethod, &v.Status,
			&v.AccountingPosted, &v.CashAccountID, &v.BankAccountID, &v.ChequesAccountID, &v.TenantAccountID,
			&v.CostCenterID, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ReceiptVoucher{}, ErrReceiptNotFound
		}
		return ReceiptVoucher{}, err
	}
	return v, nil
}

func (r *repository) MarkReceiptPosted(ctx context.Context, id, tenantAccountID, costCenterID int64) error {
	cmd, err := platformdb.QuerierFrom(ctx, r.pool).Exec(ctx, `UPDATE receipt_vouchers
SET accounting_posted=TRUE,
    status=CASE WHEN status='draft' THEN 'submitted' ELSE status END,
    tenant_account_id=$2, cost_center_id=$3, updated_at=NOW()
WHERE id=$1`, id, tenantAccountID, costCenterID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrReceiptNotFound
	}
	return nil
}

const invoiceColumns = `id, number, tenant_id, lease_id, date, amount, is_taxable, tax_rate,
tax_amount, total_amount, status, accounting_posted, tenant_account_id, income_account_id,
tax_account_id, cost_center_id, created_at, updated_at`

func (r *repository) InsertInvoice(ctx context.Context, inv CustomerInvoice) (CustomerInvoice, error) {
	row := platformdb.QuerierFrom(ctx, r.pool).QueryRow(ctx, `INSERT INTO customer_invoices
(number, tenant_id, lease_id, date, amount, is_taxable, tax_rate, tax_amount, total_amount,
 status, tenant_account_id, income_account_id, tax_account_id, cost_center_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14) RETURNING id, created_at, updated_at`,
		inv.Number, inv.TenantID, inv.LeaseID, inv.Date, inv.Amount, inv.IsTaxable, inv.TaxRate,
		inv.TaxAmount, inv.TotalAmount, inv.Status, inv.TenantAccountID, inv.IncomeAccountID,
		inv.TaxAccountID, inv.CostCenterID)
	if err := row.Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
		return CustomerInvoice{}, err
	}
	return inv, nil
}

func (r *repository) GetInvoice(ctx context.Context, id int64) (CustomerInvoice, error) {
	var inv CustomerInvoice
	err := platformdb.QuerierFrom(ctx, r.pool).QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM customer_invoices WHERE id=$1`, id).
		Scan(&inv.ID, &inv.Number, &inv.TenantID, &inv.LeaseID, &inv.Date, &inv.Amount, &inv.IsTaxable, &inv.TaxRate,
			&inv.TaxAmount, &inv.TotalAmount, &inv.Status, &inv.AccountingPosted, &inv.TenantAccountID,
			&inv.IncomeAccountID, &inv.TaxAccountID, &inv.CostCenterID, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CustomerInvoice{}, ErrInvoiceNotFound
		}
		return CustomerInvoice{}, err
	}
	return inv, nil
}

func (r *repository) MarkInvoicePosted(ctx context.Context, id int64, taxAmount, totalAmount decimal.Decimal, costCenterID int64) error {
	cmd, err := platformdb.QuerierFrom(ctx, r.pool).Exec(ctx, `UPDATE customer_invoices
SET accounting_posted=TRUE,
    status=CASE WHEN status='draft' THEN 'submitted' ELSE status END,
    tax_amount=$2, total_amount=$3, cost_center_id=$4, updated_at=NOW()
WHERE id=$1`, id, taxAmount, totalAmount, costCenterID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}
