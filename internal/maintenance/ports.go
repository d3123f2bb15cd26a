package maintenance

import (
	"context"
	"errors"

	"github.com/keystone-pm/keystone/internal/accounting/costcenters"
	"github.com/keystone-pm/keystone/internal/accounting/journals"
	"github.com/keystone-pm/keystone/internal/accounting/mappings"
)

var (
	ErrContractNotFound  = errors.New("maintenance: contract not found")
	ErrContractNotActive = errors.New("maintenance: contract is not active")
)

// Ledger is the posting entry point the amortization rules write through.
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

// TxRunner executes a function inside one database transaction.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
