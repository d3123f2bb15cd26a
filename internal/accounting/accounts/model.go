package accounts

import (
	"time"

	"github.com/keystone-pm/keystone/internal/accounting/shared"
)

// AccountType enumerates CoA categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeIncome    AccountType = "income"
	AccountTypeExpense   AccountType = "expense"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeIncome, AccountTypeExpense:
		return true
	}
	return false
}

// Account models a chart of accounts node. Type is immutable after creation.
type Account struct {
	ID          int64
	Number      string
	Name        string
	Type        AccountType
	Description string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Is reports whether the account has the given type.
func (a Account) Is(t AccountType) bool {
	return a.Type == t
}

// RequireType checks the account carries the expected type. Posting rules use
// it to gate which accounts a leg may target.
func RequireType(a Account, want AccountType) error {
	if a.Type != want {
		return shared.ErrWrongAccountType
	}
	return nil
}
