package maintenance

import (
	"time"

	"github.com/shopspring/decimal"
)

// ContractStatus tracks a maintenance contract lifecycle.
type ContractStatus string

const (
	StatusDraft     ContractStatus = "draft"
	StatusActive    ContractStatus = "active"
	StatusCompleted ContractStatus = "completed"
	StatusCancelled ContractStatus = "cancelled"
)

// Contract is a prepaid maintenance agreement amortized to expense month by
// month over its duration.
type Contract struct {
	ID              int64
	Number          string
	SupplierID      int64
	PropertyID      int64
	UnitID          *int64
	StartDate       time.Time
	EndDate         time.Time
	TotalAmount     decimal.Decimal
	DurationMonths  int
	AmortizedAmount decimal.Decimal
	Status          ContractStatus

	PrepaidAccountID  *int64
	ExpenseAccountID  *int64
	SupplierAccountID *int64
	CostCenterID      *int64
	UnitCostCenterID  *int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Remaining returns the unamortized balance.
func (c Contract) Remaining() decimal.Decimal {
	return c.TotalAmount.Sub(c.AmortizedAmount)
}

// durationMonths counts calendar months covered by [start, end]. A partial
// trailing month counts as a full one once the end day reaches the start day.
// Never less than one.
func durationMonths(start, end time.Time) int {
	months := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
	if end.Day() >= start.Day() {
		months++
	}
	if months < 1 {
		return 1
	}
	return months
}
