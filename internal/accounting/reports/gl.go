package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/keystone-pm/keystone/internal/accounting/journals"
)

// GeneralLedgerRow is one journal line joined with its entry header.
type GeneralLedgerRow struct {
	LineID         int64              `json:"line_id"`
	EntryID        int64              `json:"entry_id"`
	EntryNumber    int64              `json:"entry_number"`
	EntryType      journals.EntryType `json:"entry_type"`
	Date           time.Time          `json:"date"`
	Description    string             `json:"description"`
	AccountID      int64              `json:"account_id"`
	AccountNumber  string             `json:"account_number"`
	AccountName    string             `json:"account_name"`
	CostCenterID   int64              `json:"cost_center_id"`
	CostCenterCode string             `json:"cost_center_code"`
	Debit          decimal.Decimal    `json:"debit"`
	Credit         decimal.Decimal    `json:"credit"`
	ReferenceType  string             `json:"reference_type"`
	ReferenceID    int64              `json:"reference_id"`
}

// GeneralLedgerFilter narrows the listing. Zero values mean no restriction.
type GeneralLedgerFilter struct {
	AccountID     int64
	CostCenterID  int64
	EntryType     journals.EntryType
	ReferenceType string
	From          *time.Time
	To            *time.Time
}

// GeneralLedger is the listing plus running totals for the filtered slice.
type GeneralLedger struct {
	Rows        []GeneralLedgerRow `json:"rows"`
	TotalDebit  decimal.Decimal    `json:"total_debit"`
	TotalCredit decimal.Decimal    `json:"total_credit"`
}

// BuildGeneralLedger totals the rows; the repository supplies them ordered by
// date then entry id.
func BuildGeneralLedger(rows []GeneralLedgerRow) GeneralLedger {
	gl := GeneralLedger{Rows: rows, TotalDebit: decimal.Zero, TotalCredit: decimal.Zero}
	for _, row := range rows {
		gl.TotalDebit = gl.TotalDebit.Add(row.Debit)
		gl.TotalCredit = gl.TotalCredit.Add(row.Credit)
	}
	return gl
}
