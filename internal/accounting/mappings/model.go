package mappings

import "time"

// TransactionType keys the account mapping for one posting rule.
type TransactionType string

const (
	TxLeaseCreation           TransactionType = "lease_creation"
	TxLeaseTermination        TransactionType = "lease_termination"
	TxReceiptVoucher          TransactionType = "receipt_voucher"
	TxCustomerInvoice         TransactionType = "customer_invoice"
	TxSupplierInvoice         TransactionType = "supplier_invoice"
	TxPaymentVoucher          TransactionType = "payment_voucher"
	TxChequeClearing          TransactionType = "cheque_clearing"
	TxRevenueRecognition      TransactionType = "revenue_recognition"
	TxMaintenanceAmortization TransactionType = "maintenance_amortization"
)

// All lists every transaction type the posting engine knows. Startup
// validation walks this list so a missing mapping fails the boot, not the
// first posting.
var All = []TransactionType{
	TxLeaseCreation,
	TxLeaseTermination,
	TxReceiptVoucher,
	TxCustomerInvoice,
	TxSupplierInvoice,
	TxPaymentVoucher,
	TxChequeClearing,
	TxRevenueRecognition,
	TxMaintenanceAmortization,
}

// Mapping binds a transaction type to the accounts its legs default to when
// the document does not carry explicit references. It replaces account-number
// literals in the posting rules.
type Mapping struct {
	ID              int64
	TransactionType TransactionType
	DebitAccountID  int64
	CreditAccountID int64
	TaxAccountID    *int64
	CashAccountID   *int64
	BankAccountID   *int64
	// ChequesAccountID defaults the post-dated-cheques (receipts) or
	// cheques-issued (payments) leg.
	ChequesAccountID *int64
	CostCenterID     *int64
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
