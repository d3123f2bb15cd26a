package ar

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod selects the asset account a receipt debits.
type PaymentMethod string

const (
	MethodCash            PaymentMethod = "cash"
	MethodBank            PaymentMethod = "bank"
	MethodCheque          PaymentMethod = "cheque"
	MethodPostDatedCheque PaymentMethod = "post_dated_cheque"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodBank, MethodCheque, MethodPostDatedCheque:
		return true
	}
	return false
}

// DocStatus tracks a voucher/invoice document lifecycle.
type DocStatus string

const (
	StatusDraft     DocStatus = "draft"
	StatusSubmitted DocStatus = "submitted"
	StatusCancelled DocStatus = "cancelled"
)

// ReceiptVoucher records money received from a tenant.
type ReceiptVoucher struct {
	ID               int64
	Number           string
	TenantID         int64
	LeaseID          *int64
	Date             time.Time
	Amount           decimal.Decimal
	PaymentMethod    PaymentMethod
	Status           DocStatus
	AccountingPosted bool

	CashAccountID    *int64
	BankAccountID    *int64
	ChequesAccountID *int64
	TenantAccountID  *int64
	CostCenterID     *int64
	UnitCostCenterID *int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CustomerInvoice bills a tenant. Tax is computed at posting time when the
// stored amount is absent.
type CustomerInvoice struct {
	ID               int64
	Number           string
	TenantID         int64
	LeaseID          *int64
	Date             time.Time
	Amount           decimal.Decimal
	IsTaxable        bool
	TaxRate          decimal.Decimal
	TaxAmount        decimal.Decimal
	TotalAmount      decimal.Decimal
	Status           DocStatus
	AccountingPosted bool

	TenantAccountID  *int64
	IncomeAccountID  *int64
	TaxAccountID     *int64
	CostCenterID     *int64
	UnitCostCenterID *int64

	CreatedAt time.Time
	UpdatedAt time.Time
}
