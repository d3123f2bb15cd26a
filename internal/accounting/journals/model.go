package journals

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryType classifies the business event behind a journal entry.
type EntryType string

const (
	EntryTypePrepaid            EntryType = "prepaid"
	EntryTypeAmortization       EntryType = "amortization"
	EntryTypeReceipt            EntryType = "receipt"
	EntryTypeInvoice            EntryType = "invoice"
	EntryTypePayment            EntryType = "payment"
	EntryTypeRevenueRecognition EntryType = "revenue_recognition"
	EntryTypeCheque             EntryType = "cheque"
	EntryTypeManual             EntryType = "manual"
)

// Valid reports whether t is a known entry type.
func (t EntryType) Valid() bool {
	switch t {
	case EntryTypePrepaid, EntryTypeAmortization, EntryTypeReceipt, EntryTypeInvoice,
		EntryTypePayment, EntryTypeRevenueRecognition, EntryTypeCheque, EntryTypeManual:
		return true
	}
	return false
}

// JournalEntry is the header grouping a balanced set of lines for one business
// event. The tuple (reference_type, reference_id, entry_type, period) is the
// idempotency key; period is "" for non-periodic postings and YYYY-MM for
// recognition runs.
type JournalEntry struct {
	ID            int64
	Number        int64
	EntryType     EntryType
	ReferenceType string
	ReferenceID   int64
	Period        string
	Date          time.Time
	Description   string
	CreatedAt     time.Time
	Lines         []JournalLine
}

// JournalLine carries one debit or credit leg. Exactly one of Debit/Credit is
// non-zero; the reference tags duplicate the header's for line-level
// traceability.
type JournalLine struct {
	ID            int64
	EntryID       int64
	AccountID     int64
	CostCenterID  int64
	Debit         decimal.Decimal
	Credit        decimal.Decimal
	ReferenceType string
	ReferenceID   int64
}
