package cheques

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction distinguishes cheques received from tenants and cheques issued to
// suppliers.
type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == DirectionIncoming || d == DirectionOutgoing
}

// Status tracks a registered cheque.
type Status string

const (
	StatusPending Status = "pending"
	StatusCleared Status = "cleared"
	StatusBounced Status = "bounced"
)

// Cheque is a registered cheque awaiting bank clearance. Until cleared the
// amount sits on a cheques holding account, clearance moves it to the bank.
type Cheque struct {
	ID         int64
	Number     string
	Direction  Direction
	ChequeDate time.Time
	Amount     decimal.Decimal
	BankID     int64
	PartyID    int64
	Status     Status

	BankAccountID    *int64
	ChequesAccountID *int64
	CostCenterID     *int64

	ClearedOn *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
