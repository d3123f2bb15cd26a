package journals

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/keystone-pm/keystone/internal/accounting/shared"
)

// LineInput describes one leg of a posting request.
type LineInput struct {
	AccountID    int64
	CostCenterID int64
	Debit        decimal.Decimal
	Credit       decimal.Decimal
}

// PostingInput groups fields required to create a journal entry.
type PostingInput struct {
	EntryType     EntryType
	ReferenceType string
	ReferenceID   int64
	Period        string
	Date          time.Time
	Description   string
	Lines         []LineInput
}

// Validate ensures the input forms a balanced double entry. Balance is checked
// at full decimal precision; callers round their amounts before building
// lines.
func (in PostingInput) Validate() error {
	if !in.EntryType.Valid() {
		return fmt.Errorf("journals: invalid entry type %q", in.EntryType)
	}
	if in.EntryType != EntryTypeManual {
		if in.ReferenceType == "" {
			return errors.New("journals: reference type required")
		}
		if in.ReferenceID == 0 {
			return errors.New("journals: reference id required")
		}
	}
	if in.Period != "" {
		if _, err := time.Parse("2006-01", in.Period); err != nil {
			return fmt.Errorf("journals: period must be YYYY-MM: %q", in.Period)
		}
	}
	if len(in.Lines) < 2 {
		return shared.ErrTooFewLines
	}
	debit := decimal.Zero
	credit := decimal.Zero
	for idx, line := range in.Lines {
		if line.AccountID == 0 {
			return fmt.Errorf("journals: line %d: %w", idx, shared.ErrMissingAccount)
		}
		if line.CostCenterID == 0 {
			return fmt.Errorf("journals: line %d: %w", idx, shared.ErrMissingCostCenter)
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return fmt.Errorf("journals: line %d: %w", idx, shared.ErrNegativeAmount)
		}
		if line.Debit.IsPositive() && line.Credit.IsPositive() {
			return fmt.Errorf("journals: line %d: %w", idx, shared.ErrLineBothSides)
		}
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	if !debit.Equal(credit) {
		return shared.ErrUnbalanced
	}
	if !debit.IsPositive() {
		return shared.ErrNonPositiveAmount
	}
	return nil
}

// Filter narrows journal listings.
type Filter struct {
	EntryType     EntryType
	ReferenceType string
	ReferenceID   int64
	Period        string
	From          *time.Time
	To            *time.Time
}
