package leasing

import (
	"time"

	"github.com/shopspring/decimal"
)

// LeaseStatus tracks the lease lifecycle.
type LeaseStatus string

const (
	LeaseStatusDraft      LeaseStatus = "draft"
	LeaseStatusActive     LeaseStatus = "active"
	LeaseStatusExpired    LeaseStatus = "expired"
	LeaseStatusTerminated LeaseStatus = "terminated"
)

// Lease is the rental agreement document. The account references are resolved
// at creation time; the posting rules read them instead of querying the chart
// by number.
type Lease struct {
	ID               int64
	Number           string
	UnitID           int64
	TenantID         int64
	PropertyID       int64
	StartDate        time.Time
	EndDate          time.Time
	MonthlyRent      decimal.Decimal
	SecurityDeposit  decimal.Decimal
	OtherCharges     decimal.Decimal
	Status           LeaseStatus
	AccountingPosted bool

	ReceivableAccountID   *int64
	UnearnedAccountID     *int64
	DepositAccountID      *int64
	OtherChargesAccountID *int64
	RentalIncomeAccountID *int64
	CostCenterID          *int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TerminationKind distinguishes the two termination posting rules.
type TerminationKind string

const (
	TerminationNormal TerminationKind = "normal"
	TerminationEarly  TerminationKind = "early"
)

// TerminationStatus tracks the termination document lifecycle.
type TerminationStatus string

const (
	TerminationStatusPending   TerminationStatus = "pending"
	TerminationStatusCompleted TerminationStatus = "completed"
)

// Termination settles a lease. Normal terminations refund the deposit net of
// maintenance; early terminations additionally reverse unearned rent and may
// charge a penalty or return post-dated cheques.
type Termination struct {
	ID                       int64
	Number                   string
	LeaseID                  int64
	Kind                     TerminationKind
	TerminationDate          time.Time
	RefundableAmount         decimal.Decimal
	UnearnedRent             decimal.Decimal
	Penalty                  decimal.Decimal
	MaintenanceCharges       decimal.Decimal
	PostDatedChequesAdjusted bool
	Status                   TerminationStatus
	AccountingPosted         bool

	DepositAccountID     *int64
	TenantAccountID      *int64
	UnearnedAccountID    *int64
	PenaltyAccountID     *int64
	MaintenanceAccountID *int64
	ChequesAccountID     *int64
	CostCenterID         *int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// RenewalStatus tracks the renewal document lifecycle.
type RenewalStatus string

const (
	RenewalStatusPending RenewalStatus = "pending"
	RenewalStatusActive  RenewalStatus = "active"
)

// Renewal extends a lease by spawning a successor lease with new terms. The
// original lease is expired when the renewal activates.
type Renewal struct {
	ID                 int64
	Number             string
	OriginalLeaseID    int64
	NewStartDate       time.Time
	NewEndDate         time.Time
	NewMonthlyRent     decimal.Decimal
	NewSecurityDeposit *decimal.Decimal
	Status             RenewalStatus
	ActivationDate     *time.Time
	NewLeaseID         *int64

	CreatedAt time.Time
	UpdatedAt time.Time
}
