package ap

import (
	"context"
	"errors"

	"github.com/keystone-pm/keystone/internal/accounting/costcenters"
	"github.com/keystone-pm/keystone/internal/accounting/journals"
	"github.com/keystone-pm/keystone/internal/accounting/mappings"
)

var (
	ErrInvoiceNotFound = errors.New("ap: supplier invoice not found")
	ErrVoucherNotFound = errors.New("ap: payment voucher not found")
)

// Ledger is the posting entry point the payable rules write through.
type Ledger interface {
	Post(ctx context.Context, in journals.PostingInput) (journals.JournalEntry, bool, error)
}

// MappingSource supplies the account mapping for a transaction type.
type MappingSource interface {
	Require(ctx context.Context, t mappings.TransactionType) (mappings.Mapping, error)
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
