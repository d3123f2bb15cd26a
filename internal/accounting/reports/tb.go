package reports

import (
	"sort"

	"github.com/shopspring/decimal"
)

// AccountBalance models one ledger account with its aggregated movement for
// the requested date range.
type AccountBalance struct {
	AccountID int64
	Number    string
	Name      string
	Type      string
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

// Balance computes debit minus credit for the account.
func (a AccountBalance) Balance() decimal.Decimal {
	return a.Debit.Sub(a.Credit)
}

// GroupKey returns the grouping prefix for trial balance rows. Accounts are
// numbered with the type in the leading digit, so two digits group by
// sub-ledger.
func (a AccountBalance) GroupKey() string {
	if len(a.Number) >= 2 {
		return a.Number[:2]
	}
	return a.Number
}

// TrialBalanceAccount is one row inside a trial balance group.
type TrialBalanceAccount struct {
	AccountID int64           `json:"account_id"`
	Number    string          `json:"number"`
	Name      string          `json:"name"`
	Type      string          `json:"type"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	Balance   decimal.Decimal `json:"balance"`
}

// TrialBalanceGroup aggregates accounts sharing a number prefix.
type TrialBalanceGroup struct {
	Key      string                `json:"key"`
	Accounts []TrialBalanceAccount `json:"accounts"`
	Debit    decimal.Decimal       `json:"debit"`
	Credit   decimal.Decimal       `json:"credit"`
	Balance  decimal.Decimal       `json:"balance"`
}

// TrialBalance is the rendered report. TotalDebit equals TotalCredit whenever
// the underlying ledger holds only balanced entries.
type TrialBalance struct {
	Groups      []TrialBalanceGroup `json:"groups"`
	TotalDebit  decimal.Decimal     `json:"total_debit"`
	TotalCredit decimal.Decimal     `json:"total_credit"`
}

// BuildTrialBalance converts per-account movement into the grouped trial
// balance. Accounts with no movement in the range are kept so the chart stays
// visible in the report.
func BuildTrialBalance(accounts []AccountBalance) TrialBalance {
	groups := make(map[string]*TrialBalanceGroup)
	keys := make([]string, 0)
	for _, acc := range accounts {
		key := acc.GroupKey()
		grp, ok := groups[key]
		if !ok {
			grp = &TrialBalanceGroup{Key: key, Debit: decimal.Zero, Credit: decimal.Zero, Balance: decimal.Zero}
			groups[key] = grp
			keys = append(keys, key)
		}
		row := TrialBalanceAccount{
			AccountID: acc.AccountID,
			Number:    acc.Number,
			Name:      acc.Name,
			Type:      acc.Type,
			Debit:     acc.Debit,
			Credit:    acc.Credit,
			Balance:   acc.Balance(),
		}
		grp.Accounts = append(grp.Accounts, row)
		grp.Debit = grp.Debit.Add(row.Debit)
		grp.Credit = grp.Credit.Add(row.Credit)
		grp.Balance = grp.Balance.Add(row.Balance)
	}

	sort.Strings(keys)
	result := TrialBalance{TotalDebit: decimal.Zero, TotalCredit: decimal.Zero}
	for _, key := range keys {
		grp := groups[key]
		sort.Slice(grp.Accounts, func(i, j int) bool {
			return grp.Accounts[i].Number < grp.Accounts[j].Number
		})
		result.Groups = append(result.Groups, *grp)
		result.TotalDebit = result.TotalDebit.Add(grp.Debit)
		result.TotalCredit = result.TotalCredit.Add(grp.Credit)
	}
	return result
}
