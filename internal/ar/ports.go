package ar

import (
	"context"
	"errors"

	"github.com/keystone-pm/keystone/internal/accounting/accounts"
	"github.com/keystone-pm/keystone/internal/accounting/costcenters"
	"github.com/keystone-pm/keystone/internal/accounting/journals"
	"github.com/keystone-pm/keystone/internal/accounting/mappings"
)

var (
	ErrReceiptNotFound = errors.New("ar: receipt voucher not found")
	ErrInvoiceNotFound = errors.New("ar: customer invoice not found")
)

// Ledger is the posting entry point the receivable rules write through.
type Ledger interface {
	Post(ctx context.Context, in journals.PostingInput) (journals.JournalEntry, bool, error)
}

// MappingSource supplies the account mapping for a transaction type.
type MappingSource interface {
	Require(ctx context.Context, t mappings.TransactionType) (mappings.Mapping, error)
}

// AccountSource reads chart-of-accounts rows for type validation.
type AccountSource interface {
	Get(ctx context.Context, id int64) (accounts.Account, error)
}

// CostCenterResolver derives the attribution cost center for an entity.
type CostCenterResolver interface {
	Resolve(ctx context.Context, ref costcenters.Ref) (costcenters.CostCenter, error)
}

// NumberSource issues document numbers.
type NumberSource interface {
	Next(ctx context.Context, docType string) (string, error)
}

// TxRunner executes a function inside one database transaction.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
