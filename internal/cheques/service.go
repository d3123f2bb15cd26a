package cheques

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/keystone-pm/keystone/internal/accounting/costcenters"
	"github.com/keystone-pm/keystone/internal/accounting/journals"
	"github.com/keystone-pm/keystone/internal/accounting/mappings"
	"github.com/keystone-pm/keystone/internal/accounting/shared"
)

// Service implements cheque registration and clearing.
type Service struct {
	repo     Repository
	ledger   Ledger
	resolver CostCenterResolver
	maps     MappingSource
	tx       TxRunner
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds a Service instance.
func NewService(repo Repository, ledger Ledger, resolver CostCenterResolver, maps MappingSource, tx TxRunner, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		ledger:   ledger,
		resolver: resolver,
		maps:     maps,
		tx:       tx,
		logger:   logger,
		now:      time.Now,
	}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// RegisterInput carries a cheque to put on the register.
type RegisterInput struct {
	Number     string
	Direction  Direction
	ChequeDate time.Time
	Amount     decimal.Decimal
	BankID     int64
	PartyID    int64

	BankAccountID    *int64
	ChequesAccountID *int64
	CostCenterID     *int64
}

// Register records a pending cheque.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Cheque, error) {
	if !in.Amount.IsPositive() {
		return Cheque{}, shared.ErrNonPositiveAmount
	}
	if !in.Direction.Valid() {
		return Cheque{}, fmt.Errorf("cheques: unknown direction %q", in.Direction)
	}
	return s.repo.Insert(ctx, Cheque{
		Number:           in.Number,
		Direction:        in.Direction,
		ChequeDate:       in.ChequeDate,
		Amount:           in.Amount,
		BankID:           in.BankID,
		PartyID:          in.PartyID,
		Status:           StatusPending,
		BankAccountID:    in.BankAccountID,
		ChequesAccountID: in.ChequesAccountID,
		CostCenterID:     in.CostCenterID,
	})
}

// MarkCleared posts the clearance entry and flips the cheque to cleared.
// Incoming cheques debit the bank against the cheques-received holding
// account, outgoing cheques debit cheques-issued against the bank. Clearing an
// already cleared cheque is a no-op.
func (s *Service) MarkCleared(ctx context.Context, id int64, clearedOn time.Time) (Cheque, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return Cheque{}, err
	}
	if c.Status == StatusCleared {
		return c, nil
	}
	if c.Status == StatusBounced {
		return Cheque{}, ErrChequeBounced
	}
	m, err := s.maps.Require(ctx, mappings.TxChequeClearing)
	if err != nil {
		return Cheque{}, err
	}
	bankID, err := pickAccount(c.BankAccountID, m.BankAccountID)
	if err != nil {
		return Cheque{}, fmt.Errorf("cheques: bank account: %w", err)
	}
	chequesID, err := pickAccount(c.ChequesAccountID, m.ChequesAccountID)
	if err != nil {
		return Cheque{}, fmt.Errorf("cheques: cheques holding account: %w", err)
	}

	var lines []journals.LineInput
	var description string
	build := func(ccID int64) {
		switch c.Direction {
		case DirectionIncoming:
			lines = []journals.LineInput{
				{AccountID: bankID, CostCenterID: ccID, Debit: c.Amount},
				{AccountID: chequesID, CostCenterID: ccID, Credit: c.Amount},
			}
			description = fmt.Sprintf("Cheque %s cleared - received from party %d", c.Number, c.PartyID)
		case DirectionOutgoing:
			lines = []journals.LineInput{
				{AccountID: chequesID, CostCenterID: ccID, Debit: c.Amount},
				{AccountID: bankID, CostCenterID: ccID, Credit: c.Amount},
			}
			description = fmt.Sprintf("Cheque %s cleared - issued to party %d", c.Number, c.PartyID)
		}
	}

	if clearedOn.IsZero() {
		clearedOn = s.now().UTC()
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		cc, err := s.resolver.Resolve(ctx, costcenters.Ref{
			Kind:       chequePartyKind(c.Direction),
			EntityID:   c.PartyID,
			Name:       fmt.Sprintf("Party %d", c.PartyID),
			ExplicitID: c.CostCenterID,
		})
		if err != nil {
			return err
		}
		build(cc.ID)
		if _, _, err := s.ledger.Post(ctx, journals.PostingInput{
			EntryType:     journals.EntryTypeCheque,
			ReferenceType: "cheque_register",
			ReferenceID:   c.ID,
			Date:          clearedOn,
			Description:   description,
			Lines:         lines,
		}); err != nil {
			return err
		}
		return s.repo.MarkCleared(ctx, c.ID, clearedOn, cc.ID)
	})
	if err != nil {
		return Cheque{}, err
	}
	c.Status = StatusCleared
	c.ClearedOn = &clearedOn
	return c, nil
}

// MarkBounced flips a pending cheque to bounced without posting.
func (s *Service) MarkBounced(ctx context.Context, id int64) (Cheque, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return Cheque{}, err
	}
	if c.Status == StatusBounced {
		return c, nil
	}
	if err := s.repo.SetStatus(ctx, c.ID, StatusBounced); err != nil {
		return Cheque{}, err
	}
	c.Status = StatusBounced
	return c, nil
}

func pickAccount(explicit, fallback *int64) (int64, error) {
	if explicit != nil && *explicit != 0 {
		return *explicit, nil
	}
	if fallback != nil && *fallback != 0 {
		return *fallback, nil
	}
	return 0, shared.ErrMissingAccount
}

func chequePartyKind(d Direction) costcenters.Kind {
	if d == DirectionOutgoing {
		return costcenters.KindSupplier
	}
	return costcenters.KindTenant
}
