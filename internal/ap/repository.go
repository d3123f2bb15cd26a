package ap

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	platformdb "github.com/keystone-pm/keystone/internal/platform/db"
)

// Repository encapsulates DB operations for payable documents.
//
// Expected DDL:
//
//	CREATE TABLE supplier_invoices (
//	    id                  BIGSERIAL PRIMARY KEY,
//	    number              TEXT NOT NULL UNIQUE,
//	    supplier_id         BIGINT NOT NULL,
//	    date                DATE NOT NULL,
//	    amount              NUMERIC(15,2) NOT NULL,
//	    is_taxable          BOOLEAN NOT NULL DEFAULT FALSE,
//	    tax_rate            NUMERIC(5,2) NOT NULL DEFAULT 0,
//	    tax_amount          NUMERIC(15,2) NOT NULL DEFAULT 0,
//	    total_amount        NUMERIC(15,2) NOT NULL DEFAULT 0,
//	    status              TEXT NOT NULL DEFAULT 'draft',
//	    accounting_posted   BOOLEAN NOT NULL DEFAULT FALSE,
//	    expense_account_id  BIGINT REFERENCES accounts(id),
//	    tax_account_id      BIGINT REFERENCES accounts(id),
//	    supplier_account_id BIGINT REFERENCES accounts(id),
//	    cost_center_id      BIGINT REFERENCES cost_centers(id),
//	    created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
//
//	CREATE TABLE payment_vouchers (
//	    id                  BIGSERIAL PRIMARY KEY,
//	    number              TEXT NOT NULL UNIQUE,
//	    supplier_id         BIGINT NOT NULL,
//	    date                DATE NOT NULL,
//	    amount              NUMERIC(15,2) NOT NULL,
//	    payment_method      TEXT NOT NULL,
//	    status              TEXT NOT NULL DEFAULT 'draft',
//	    accounting_posted   BOOLEAN NOT NULL DEFAULT FALSE,
//	    supplier_account_id BIGINT REFERENCES accounts(id),
//	    cash_account_id     BIGINT REFERENCES accounts(id),
//	    bank_account_id     BIGINT REFERENCES accounts(id),
//	    cheques_account_id  BIGINT REFERENCES accounts(id),
//	    cost_center_id      BIGINT REFERENCES cost_centers(id),
//	    created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type Repository interface {
	InsertInvoice(ctx context.Context, inv SupplierInvoice) (SupplierInvoice, error)
	GetInvoice(ctx context.Context, id int64) (SupplierInvoice, error)
	MarkInvoicePosted(ctx context.Context, id int64, taxAmount, totalAmount decimal.Decimal, supplierAccountID, costCenterID int64) error

	InsertVoucher(ctx context.Context, v PaymentVoucher) (PaymentVoucher, error)
	GetVoucher(ctx context.Context, id int64) (PaymentVoucher, error)
	MarkVoucherPosted(ctx context.Context, id, supplierAccountID, costCenterID int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a pgx-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const invoiceColumns = `id, number, supplier_id, date, amount, is_taxable, tax_rate, tax_amount,
total_amount, status, accounting_posted, expense_account_id, tax_account_id, supplier_account_id,
cost_center_id, created_at, updated_at`

func (r *repository) InsertInvoice(ctx context.Context, inv SupplierInvoice) (SupplierInvoice, error) {
	row := platformdb.QuerierFrom(ctx, r.pool).QueryRow(ctx, `INSERT INTO supplier_invoices
(number, supplier_id, date, amount, is_taxable, tax_rate, tax_amount, total_amount, status,
 expense_account_id, tax_account_id, supplier_account_id, cost_center_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13) RETURNING id, created_at, updated_at`,
		inv.Number, inv.SupplierID, inv.Date, inv.Amount, inv.IsTaxable, inv.TaxRate, inv.TaxAmount,
		inv.TotalAmount, inv.Status, inv.ExpenseAccountID, inv.TaxAccountID, inv.SupplierAccountID, inv.CostCenterID)
	if err := row.Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
		return SupplierInvoice{}, err
	}
	return inv, nil
}

func (r *repository) GetInvoice(ctx context.Context, id int64) (SupplierInvoice, error) {
	var inv SupplierInvoice
	err := platformdb.QuerierFrom(ctx, r.pool).QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM supplier_invoices WHERE id=$1`, id).
		Scan(&inv.ID, &inv.Number, &inv.SupplierID, &inv.Date, &inv.Amount, &inv.IsTaxable, &inv.TaxRate,
			&inv.TaxAmount, &inv.TotalAmount, &inv.Status, &inv.AccountingPosted, &inv.ExpenseAccountID,
			&inv.TaxAccountID, &inv.SupplierAccountID, &inv.CostCenterID, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SupplierInvoice{}, ErrInvoiceNotFound
		}
		return SupplierInvoice{}, err
	}
	return inv, nil
}

func (r *repository) MarkInvoicePosted(ctx context.Context, id int64, taxAmount, totalAmount decimal.Decimal, supplierAccountID, costCenterID int64) error {
	cmd, err := platformdb.QuerierFrom(ctx, r.pool).Exec(ctx, `UPDATE supplier_invoices
SET accounting_posted=TRUE,
    status=CASE WHEN status='draft' THEN 'submitted' ELSE status END,
    tax_amount=$2, total_amount=$3, supplier_account_id=$4, cost_center_id=$5, updated_at=NOW()
WHERE id=$1`, id, taxAmount, totalAmount, supplierAccountID, costCenterID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}

const voucherColumns = `id, number, supplier_id, date, amount, payment_method, status,
accounting_posted, supplier_account_id, cash_account_id, bank_account_id, cheques_account_id,
cost_center_id, created_at, updated_at`

func (r *repository) InsertVoucher(ctx context.Context, v PaymentVoucher) (PaymentVoucher, error) {
	row := platformdb.QuerierFrom(ctx, r.pool).QueryRow(ctx, `INSERT INTO payment_vouchers
(number, supplier_id, date, amount, payment_method, status, supplier_account_id,
 cash_account_id, bank_account_id, cheques_account_id, cost_center_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11) RETURNING id, created_at, updated_at`,
		v.Number, v.SupplierID, v.Date, v.Amount, v.PaymentMethod, v.Status, v.SupplierAccountID,
		v.CashAccountID, v.BankAccountID, v.ChequesAccountID, v.CostCenterID)
	if err := row.Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return PaymentVoucher{}, err
	}
	return v, nil
}

func (r *repository) GetVoucher(ctx context.Context, id int64) (PaymentVoucher, error) {
	var v PaymentVoucher
	err := platformdb.QuerierFrom(ctx, r.pool).QueryRow(ctx,
		`SELECT `+voucherColumns+` FROM payment_vouchers WHERE id=$1`, id).
		Scan(&v.ID, &v.Number, &v.SupplierID, &v.Date, &v.Amount, &v.PaymentMethod, &v.Status,
			&v.AccountingPosted, &v.SupplierAccountID, &v.CashAccountID, &v.BankAccountID, &v.ChequesAccountID,
			&v.CostCenterID, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PaymentVoucher{}, ErrVoucherNotFound
		}
		return PaymentVoucher{}, err
	}
	return v, nil
}

func (r *repository) MarkVoucherPosted(ctx context.Context, id, supplierAccountID, costCenterID int64) error {
	cmd, err := platformdb.QuerierFrom(ctx, r.pool).Exec(ctx, `UPDATE payment_vouchers
SET accounting_posted=TRUE,
    status=CASE WHEN status='draft' THEN 'submitted' ELSE status END,
    supplier_account_id=$2, cost_center_id=$3, updated_at=NOW()
WHERE id=$1`, id, supplierAccountID, costCenterID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrVoucherNotFound
	}
	return nil
}
