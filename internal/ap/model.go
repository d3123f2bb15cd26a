package ap

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod selects the account a payment voucher credits.
type PaymentMethod string

const (
	MethodCash   PaymentMethod = "cash"
	MethodBank   PaymentMethod = "bank"
	MethodCheque PaymentMethod = "cheque"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodBank, MethodCheque:
		return true
	}
	return false
}

// DocStatus tracks a payable document lifecycle.
type DocStatus string

const (
	StatusDraft     DocStatus = "draft"
	StatusSubmitted DocStatus = "submitted"
	StatusCancelled DocStatus = "cancelled"
)

// SupplierInvoice records a payable obligation toward a supplier.
type SupplierInvoice struct {
	ID               int64
	Number           string
	SupplierID       int64
	Date             time.Time
	Amount           decimal.Decimal
	IsTaxable        bool
	TaxRate          decimal.Decimal
	TaxAmount        decimal.Decimal
	TotalAmount      decimal.Decimal
	Status           DocStatus
	AccountingPosted bool

	ExpenseAccountID  *int64
	TaxAccountID      *int64
	SupplierAccountID *int64
	CostCenterID      *int64
	UnitCostCenterID  *int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PaymentVoucher settles a supplier payable.
type PaymentVoucher struct {
	ID               int64
	Number           string
	SupplierID       int64
	Date             time.Time
	Amount           decimal.Decimal
	PaymentMethod    PaymentMethod
	Status           DocStatus
	AccountingPosted bool

	SupplierAccountID *int64
	CashAccountID     *int64
	BankAccountID     *int64
	ChequesAccountID  *int64
	CostCenterID      *int64
	UnitCostCenterID  *int64

	CreatedAt time.Time
	UpdatedAt time.Time
}
