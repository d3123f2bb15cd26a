package maintenance

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

// Service implements the maintenance contract posting rules and the monthly
// amortization run.
type Service struct {
	repo     Repository
	ledger   Ledger
	resolver CostCenterResolver
	maps     MappingSource
	tx       TxRunner
	logger   *slog.Logger
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
	}
}

// CreateContractInput carries the contract terms and account references.
type CreateContractInput struct {
	Number      string
	SupplierID  int64
	PropertyID  int64
	UnitID      *int64
	StartDate   time.Time
	EndDate     time.Time
	TotalAmount decimal.Decimal

	PrepaidAccountID  *int64
	ExpenseAccountID  *int64
	SupplierAccountID *int64
	CostCenterID      *int64
	UnitCostCenterID  *int64
}

// CreateContract records a draft contract. The amortization horizon is the
// calendar month count of the contract span.
func (s *Service) CreateContract(ctx context.Context, in CreateContractInput) (Contract, error) {
	if !in.TotalAmount.IsPositive() {
		return Contract{}, shared.ErrNonPositiveAmount
	}
	if in.EndDate.Before(in.StartDate) {
		return Contract{}, fmt.Errorf("maintenance: end date %s before start date %s",
			in.EndDate.Format("2006-01-02"), in.StartDate.Format("2006-01-02"))
	}
	return s.repo.InsertContract(ctx, Contract{
		Number:            in.Number,
		SupplierID:        in.SupplierID,
		PropertyID:        in.PropertyID,
		UnitID:            in.UnitID,
		StartDate:         in.StartDate,
		EndDate:           in.EndDate,
		TotalAmount:       in.TotalAmount,
		DurationMonths:    durationMonths(in.StartDate, in.EndDate),
		AmortizedAmount:   decimal.Zero,
		Status:            StatusDraft,
		PrepaidAccountID:  in.PrepaidAccountID,
		ExpenseAccountID:  in.ExpenseAccountID,
		SupplierAccountID: in.SupplierAccountID,
		CostCenterID:      in.CostCenterID,
		UnitCostCenterID:  in.UnitCostCenterID,
	})
}

// Activate posts the prepaid entry, Debit prepaid maintenance / Credit
// supplier payable for the full contract value, and marks the contract active.
// The ledger idempotency key makes re-activation a no-op.
func (s *Service) Activate(ctx context.Context, id int64) (Contract, error) {
	c, err := s.repo.GetContract(ctx, id)
	if err != nil {
		return Contract{}, err
	}
	m, err := s.maps.Require(ctx, mappings.TxMaintenanceAmortization)
	if err != nil {
		return Contract{}, err
	}
	prepaidID := m.CreditAccountID
	if c.PrepaidAccountID != nil && *c.PrepaidAccountID != 0 {
		prepaidID = *c.PrepaidAccountID
	}
	if prepaidID == 0 || c.SupplierAccountID == nil || *c.SupplierAccountID == 0 {
		return Contract{}, fmt.Errorf("maintenance: prepaid and supplier accounts: %w", shared.ErrMissingAccount)
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		cc, err := s.resolveContractCostCenter(ctx, c)
		if err != nil {
			return err
		}
		if _, _, err := s.ledger.Post(ctx, journals.PostingInput{
			EntryType:     journals.EntryTypePrepaid,
			ReferenceType: "maintenance_contract",
			ReferenceID:   c.ID,
			Date:          c.StartDate,
			Description:   fmt.Sprintf("Maintenance contract %s prepaid - supplier %d", c.Number, c.SupplierID),
			Lines: []journals.LineInput{
				{AccountID: prepaidID, CostCenterID: cc.ID, Debit: c.TotalAmount},
				{AccountID: *c.SupplierAccountID, CostCenterID: cc.ID, Credit: c.TotalAmount},
			},
		}); err != nil {
			return err
		}
		return s.repo.MarkActivated(ctx, c.ID, cc.ID)
	})
	if err != nil {
		return Contract{}, err
	}
	c.Status = StatusActive
	c.PrepaidAccountID = &prepaidID
	return c, nil
}

// AmortizationResult summarises one amortization run.
type AmortizationResult struct {
	Period    string `json:"period"`
	Contracts int    `json:"contracts"`
	Posted    int    `json:"posted"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
}

// RunMonthlyAmortization moves one monthly slice from prepaid to expense for
// every active contract, Debit expense / Credit prepaid. The last slice is
// clamped to the unamortized remainder, so rounding drift never over-amortizes.
// Each contract posts in its own transaction and the ledger idempotency key
// keyed on the period makes re-runs safe.
func (s *Service) RunMonthlyAmortization(ctx context.Context, runDate time.Time) (AmortizationResult, error) {
	m, err := s.maps.Require(ctx, mappings.TxMaintenanceAmortization)
	if err != nil {
		return AmortizationResult{}, err
	}
	period := runDate.Format("2006-01")
	contracts, err := s.repo.ListActiveContracts(ctx, runDate)
	if err != nil {
		return AmortizationResult{}, err
	}

	result := AmortizationResult{Period: period, Contracts: len(contracts)}
	for _, c := range contracts {
		expenseID := m.DebitAccountID
		if c.ExpenseAccountID != nil && *c.ExpenseAccountID != 0 {
			expenseID = *c.ExpenseAccountID
		}
		prepaidID := m.CreditAccountID
		if c.PrepaidAccountID != nil && *c.PrepaidAccountID != 0 {
			prepaidID = *c.PrepaidAccountID
		}
		if expenseID == 0 || prepaidID == 0 || c.DurationMonths <= 0 {
			result.Skipped++
			continue
		}

		remaining := c.Remaining()
		if !remaining.IsPositive() {
			result.Skipped++
			if err := s.repo.SetStatus(ctx, c.ID, StatusCompleted); err != nil {
				s.logger.Warn("marking contract completed failed",
					slog.Int64("contract_id", c.ID), slog.Any("error", err))
			}
			continue
		}
		monthly := c.TotalAmount.Div(decimal.NewFromInt(int64(c.DurationMonths))).Round(2)
		amount := decimal.Min(monthly, remaining)
		if !amount.IsPositive() {
			result.Skipped++
			continue
		}

		c := c
		err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
			cc, err := s.resolveContractCostCenter(ctx, c)
			if err != nil {
				return err
			}
			_, created, err := s.ledger.Post(ctx, journals.PostingInput{
				EntryType:     journals.EntryTypeAmortization,
				ReferenceType: "maintenance_contract",
				ReferenceID:   c.ID,
				Period:        period,
				Date:          runDate,
				Description:   fmt.Sprintf("Maintenance contract %s amortization %s", c.Number, period),
				Lines: []journals.LineInput{
					{AccountID: expenseID, CostCenterID: cc.ID, Debit: amount},
					{AccountID: prepaidID, CostCenterID: cc.ID, Credit: amount},
				},
			})
			if err != nil {
				return err
			}
			if !created {
				result.Skipped++
				return nil
			}
			amortized := c.AmortizedAmount.Add(amount)
			status := StatusActive
			if amortized.GreaterThanOrEqual(c.TotalAmount) {
				status = StatusCompleted
			}
			if err := s.repo.RecordAmortization(ctx, c.ID, amortized, status); err != nil {
				return err
			}
			result.Posted++
			return nil
		})
		if err != nil {
			result.Failed++
			s.logger.Warn("maintenance amortization contract failed",
				slog.Int64("contract_id", c.ID),
				slog.String("period", period),
				slog.Any("error", err))
		}
	}
	return result, nil
}

func (s *Service) resolveContractCostCenter(ctx context.Context, c Contract) (costcenters.CostCenter, error) {
	return s.resolver.Resolve(ctx, costcenters.Ref{
		Kind:             costcenters.KindProperty,
		EntityID:         c.PropertyID,
		Name:             fmt.Sprintf("Property %d", c.PropertyID),
		ExplicitID:       c.CostCenterID,
		UnitCostCenterID: c.UnitCostCenterID,
	})
}
