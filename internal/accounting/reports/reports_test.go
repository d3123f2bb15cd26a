package reports

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/keystone-pm/keystone/internal/accounting/journals"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestBuildTrialBalanceGroupsAndTotals(t *testing.T) {
	accounts := []AccountBalance{
		{AccountID: 1, Number: "1200", Name: "Cash", Type: "asset", Debit: dec("5000.00"), Credit: dec("1500.00")},
		{AccountID: 2, Number: "1210", Name: "Bank", Type: "asset", Debit: dec("2000.00"), Credit: dec("500.00")},
		{AccountID: 3, Number: "2400", Name: "Unearned Revenue", Type: "liability", Debit: dec("0"), Credit: dec("5000.00")},
	}

	tb := BuildTrialBalance(accounts)
	require.Len(t, tb.Groups, 2)
	require.Equal(t, "12", tb.Groups[0].Key)
	require.Equal(t, "24", tb.Groups[1].Key)
	require.True(t, tb.TotalDebit.Equal(dec("7000.00")), tb.TotalDebit.String())
	require.True(t, tb.TotalCredit.Equal(dec("7000.00")), tb.TotalCredit.String())
	require.True(t, tb.Groups[0].Balance.Equal(dec("5000.00")))
	require.True(t, tb.Groups[1].Balance.Equal(dec("-5000.00")))
}

func TestBuildTrialBalanceBalancedLedgerBalances(t *testing.T) {
	// Movement drawn from balanced entries must leave total debit equal to
	// total credit.
	accounts := []AccountBalance{
		{AccountID: 1, Number: "1300", Name: "Tenant Receivable", Debit: dec("1935.48"), Credit: dec("1935.48")},
		{AccountID: 2, Number: "4100", Name: "Rental Income", Debit: dec("0"), Credit: dec("1935.48")},
		{AccountID: 3, Number: "2400", Name: "Unearned Revenue", Debit: dec("1935.48"), Credit: dec("0")},
	}
	tb := BuildTrialBalance(accounts)
	require.True(t, tb.TotalDebit.Equal(tb.TotalCredit))
}

func TestBuildTrialBalanceOrdersAccountsWithinGroup(t *testing.T) {
	accounts := []AccountBalance{
		{AccountID: 2, Number: "1210", Name: "Bank"},
		{AccountID: 1, Number: "1200", Name: "Cash"},
	}
	tb := BuildTrialBalance(accounts)
	require.Len(t, tb.Groups, 1)
	require.Equal(t, "1200", tb.Groups[0].Accounts[0].Number)
	require.Equal(t, "1210", tb.Groups[0].Accounts[1].Number)
}

func TestBuildGeneralLedgerTotals(t *testing.T) {
	date := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	rows := []GeneralLedgerRow{
		{LineID: 1, EntryID: 1, EntryType: journals.EntryTypeRevenueRecognition, Date: date, Debit: dec("3000.00")},
		{LineID: 2, EntryID: 1, EntryType: journals.EntryTypeRevenueRecognition, Date: date, Credit: dec("3000.00")},
		{LineID: 3, EntryID: 2, EntryType: journals.EntryTypeReceipt, Date: date, Debit: dec("250.50")},
		{LineID: 4, EntryID: 2, EntryType: journals.EntryTypeReceipt, Date: date, Credit: dec("250.50")},
	}
	gl := BuildGeneralLedger(rows)
	require.True(t, gl.TotalDebit.Equal(dec("3250.50")))
	require.True(t, gl.TotalCredit.Equal(dec("3250.50")))
	require.Len(t, gl.Rows, 4)
}
