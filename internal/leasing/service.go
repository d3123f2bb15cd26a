package leasing

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
	sharedseq "github.com/keystone-pm/keystone/internal/shared"
)

// Service implements the lease posting rules and the monthly revenue
// recognition run.
type Service struct {
	repo     Repository
	ledger   Ledger
	resolver CostCenterResolver
	maps     MappingSource
	seq      NumberSource
	tx       TxRunner
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds a Service instance.
func NewService(repo Repository, ledger Ledger, resolver CostCenterResolver, maps MappingSource, seq NumberSource, tx TxRunner, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		ledger:   ledger,
		resolver: resolver,
		maps:     maps,
		seq:      seq,
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

// CreateLeaseInput carries the lease terms plus the account references and
// cost center candidates chosen at document creation.
type CreateLeaseInput struct {
	Number          string
	UnitID          int64
	TenantID        int64
	PropertyID      int64
	StartDate       time.Time
	EndDate         time.Time
	MonthlyRent     decimal.Decimal
	SecurityDeposit decimal.Decimal
	OtherCharges    decimal.Decimal

	ReceivableAccountID   *int64
	UnearnedAccountID     *int64
	DepositAccountID      *int64
	OtherChargesAccountID *int64
	RentalIncomeAccountID *int64

	CostCenterID               *int64
	UnitCostCenterID           *int64
	ClassificationCostCenterID *int64
	CostCenterName             string
}

// CreateLease persists the lease and posts its opening entry: the tenant
// receivable is debited for the full obligation, credited against unearned
// revenue, the deposit liability and other-charges income.
func (s *Service) CreateLease(ctx context.Context, in CreateLeaseInput) (Lease, error) {
	if !in.MonthlyRent.IsPositive() {
		return Lease{}, shared.ErrNonPositiveAmount
	}
	if in.SecurityDeposit.IsNegative() || in.OtherCharges.IsNegative() {
		return Lease{}, shared.ErrNegativeAmount
	}
	if in.EndDate.Before(in.StartDate) {
		return Lease{}, ErrInvalidDateRange
	}
	if in.UnearnedAccountID == nil || in.DepositAccountID == nil {
		return Lease{}, fmt.Errorf("leasing: unearned revenue and deposit accounts: %w", shared.ErrMissingAccount)
	}
	m, err := s.maps.Require(ctx, mappings.TxLeaseCreation)
	if err != nil {
		return Lease{}, err
	}
	receivableID := m.DebitAccountID
	if in.ReceivableAccountID != nil {
		receivableID = *in.ReceivableAccountID
	}
	if receivableID == 0 {
		return Lease{}, fmt.Errorf("leasing: tenant receivable account: %w", shared.ErrMissingAccount)
	}

	var lease Lease
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		cc, err := s.resolver.Resolve(ctx, costcenters.Ref{
			Kind:                    costcenters.KindUnit,
			EntityID:                in.UnitID,
			Name:                    in.CostCenterName,
			ExplicitID:              in.CostCenterID,
			UnitCostCenterID:        in.UnitCostCenterID,
			ClassificationDefaultID: in.ClassificationCostCenterID,
		})
		if err != nil {
			return err
		}

		lease, err = s.repo.InsertLease(ctx, Lease{
			Number:                in.Number,
			UnitID:                in.UnitID,
			TenantID:              in.TenantID,
			PropertyID:            in.PropertyID,
			StartDate:             in.StartDate,
			EndDate:               in.EndDate,
			MonthlyRent:           in.MonthlyRent,
			SecurityDeposit:       in.SecurityDeposit,
			OtherCharges:          in.OtherCharges,
			Status:                LeaseStatusActive,
			ReceivableAccountID:   &receivableID,
			UnearnedAccountID:     in.UnearnedAccountID,
			DepositAccountID:      in.DepositAccountID,
			OtherChargesAccountID: in.OtherChargesAccountID,
			RentalIncomeAccountID: in.RentalIncomeAccountID,
			CostCenterID:          &cc.ID,
		})
		if err != nil {
			return err
		}

		total := in.MonthlyRent.Add(in.SecurityDeposit)
		lines := []journals.LineInput{
			{AccountID: *in.UnearnedAccountID, CostCenterID: cc.ID, Credit: in.MonthlyRent},
		}
		if in.SecurityDeposit.IsPositive() {
			lines = append(lines, journals.LineInput{AccountID: *in.DepositAccountID, CostCenterID: cc.ID, Credit: in.SecurityDeposit})
		}
		if in.OtherCharges.IsPositive() && in.OtherChargesAccountID != nil {
			total = total.Add(in.OtherCharges)
			lines = append(lines, journals.LineInput{AccountID: *in.OtherChargesAccountID, CostCenterID: cc.ID, Credit: in.OtherCharges})
		}
		lines = append([]journals.LineInput{
			{AccountID: receivableID, CostCenterID: cc.ID, Debit: total},
		}, lines...)

		if _, _, err := s.ledger.Post(ctx, journals.PostingInput{
			EntryType:     journals.EntryTypePrepaid,
			ReferenceType: "lease",
			ReferenceID:   lease.ID,
			Date:          in.StartDate,
			Description:   fmt.Sprintf("Lease %s creation - tenant receivable", lease.Number),
			Lines:         lines,
		}); err != nil {
			return err
		}
		if err := s.repo.MarkLeasePosted(ctx, lease.ID, cc.ID); err != nil {
			return err
		}
		lease.AccountingPosted = true
		return nil
	})
	if err != nil {
		return Lease{}, err
	}
	return lease, nil
}

// CreateTerminationInput carries the settlement figures for a termination.
type CreateTerminationInput struct {
	LeaseID                  int64
	Kind                     TerminationKind
	TerminationDate          time.Time
	RefundableAmount         decimal.Decimal
	UnearnedRent             decimal.Decimal
	Penalty                  decimal.Decimal
	MaintenanceCharges       decimal.Decimal
	PostDatedChequesAdjusted bool

	DepositAccountID     *int64
	TenantAccountID      *int64
	UnearnedAccountID    *int64
	PenaltyAccountID     *int64
	MaintenanceAccountID *int64
	ChequesAccountID     *int64
	CostCenterID         *int64
}

// CreateTermination records a pending termination with a TERM-xxxxx number.
// Posting happens on CompleteTermination.
func (s *Service) CreateTermination(ctx context.Context, in CreateTerminationInput) (Termination, error) {
	if in.Kind != TerminationNormal && in.Kind != TerminationEarly {
		return Termination{}, fmt.Errorf("leasing: unknown termination kind %q", in.Kind)
	}
	if _, err := s.repo.GetLease(ctx, in.LeaseID); err != nil {
		return Termination{}, err
	}
	number, err := s.seq.Next(ctx, sharedseq.SeqLeaseTermination)
	if err != nil {
		return Termination{}, err
	}
	return s.repo.InsertTermination(ctx, Termination{
		Number:                   number,
		LeaseID:                  in.LeaseID,
		Kind:                     in.Kind,
		TerminationDate:          in.TerminationDate,
		RefundableAmount:         in.RefundableAmount,
		UnearnedRent:             in.UnearnedRent,
		Penalty:                  in.Penalty,
		MaintenanceCharges:       in.MaintenanceCharges,
		PostDatedChequesAdjusted: in.PostDatedChequesAdjusted,
		Status:                   TerminationStatusPending,
		DepositAccountID:         in.DepositAccountID,
		TenantAccountID:          in.TenantAccountID,
		UnearnedAccountID:        in.UnearnedAccountID,
		PenaltyAccountID:         in.PenaltyAccountID,
		MaintenanceAccountID:     in.MaintenanceAccountID,
		ChequesAccountID:         in.ChequesAccountID,
		CostCenterID:             in.CostCenterID,
	})
}

type earlyAllocation struct {
	Tenant      decimal.Decimal
	Cheques     decimal.Decimal
	Penalty     decimal.Decimal
	Maintenance decimal.Decimal
}

// allocateEarlyCredits splits the total debits of an early termination across
// the credit legs. Maintenance is served in full, then penalty clamped to what
// remains, so charges exceeding the debits shrink the penalty leg before the
// maintenance leg and no line goes negative. The tenant receives the
// remainder; when post-dated cheques are returned instead of cash, up to the
// unearned rent moves from the tenant leg to the cheques leg.
func allocateEarlyCredits(t Termination) earlyAllocation {
	total := t.UnearnedRent.Add(t.RefundableAmount)
	maintenance := decimal.Min(t.MaintenanceCharges, total)
	penalty := decimal.Min(t.Penalty, total.Sub(maintenance))
	tenant := total.Sub(maintenance).Sub(penalty)

	cheques := decimal.Zero
	if t.PostDatedChequesAdjusted && t.ChequesAccountID != nil {
		cheques = decimal.Min(t.UnearnedRent, tenant)
		tenant = tenant.Sub(cheques)
	}
	return earlyAllocation{Tenant: tenant, Cheques: cheques, Penalty: penalty, Maintenance: maintenance}
}

// CompleteTermination posts the settlement entry for a pending termination and
// marks it completed. Re-invoking on a posted termination is a no-op through
// the ledger idempotency key.
func (s *Service) CompleteTermination(ctx context.Context, id int64) (Termination, error) {
	t, err := s.repo.GetTermination(ctx, id)
	if err != nil {
		return Termination{}, err
	}
	lease, err := s.repo.GetLease(ctx, t.LeaseID)
	if err != nil {
		return Termination{}, err
	}
	if _, err := s.maps.Require(ctx, mappings.TxLeaseTermination); err != nil {
		return Termination{}, err
	}

	var lines []journals.LineInput
	var description string
	buildLines := func(ccID int64) error {
		switch t.Kind {
		case TerminationNormal:
			if t.DepositAccountID == nil || t.TenantAccountID == nil {
				return fmt.Errorf("leasing: deposit and tenant accounts: %w", shared.ErrMissingAccount)
			}
			tenantCredit := t.RefundableAmount.Sub(t.MaintenanceCharges)
			if tenantCredit.IsNegative() {
				return shared.ErrNegativeAmount
			}
			lines = []journals.LineInput{
				{AccountID: *t.DepositAccountID, CostCenterID: ccID, Debit: t.RefundableAmount},
			}
			if tenantCredit.IsPositive() {
				lines = append(lines, journals.LineInput{AccountID: *t.TenantAccountID, CostCenterID: ccID, Credit: tenantCredit})
			}
			if t.MaintenanceCharges.IsPositive() {
				if t.MaintenanceAccountID == nil {
					return fmt.Errorf("leasing: maintenance charges account: %w", shared.ErrMissingAccount)
				}
				lines = append(lines, journals.LineInput{AccountID: *t.MaintenanceAccountID, CostCenterID: ccID, Credit: t.MaintenanceCharges})
			}
			description = fmt.Sprintf("Lease %s normal termination - security deposit refund", lease.Number)
		case TerminationEarly:
			if t.UnearnedAccountID == nil || t.DepositAccountID == nil || t.TenantAccountID == nil || t.PenaltyAccountID == nil {
				return fmt.Errorf("leasing: unearned, deposit, tenant and penalty accounts: %w", shared.ErrMissingAccount)
			}
			alloc := allocateEarlyCredits(t)
			if t.UnearnedRent.IsPositive() {
				lines = append(lines, journals.LineInput{AccountID: *t.UnearnedAccountID, CostCenterID: ccID, Debit: t.UnearnedRent})
			}
			if t.RefundableAmount.IsPositive() {
				lines = append(lines, journals.LineInput{AccountID: *t.DepositAccountID, CostCenterID: ccID, Debit: t.RefundableAmount})
			}
			if alloc.Tenant.IsPositive() {
				lines = append(lines, journals.LineInput{AccountID: *t.TenantAccountID, CostCenterID: ccID, Credit: alloc.Tenant})
			}
			if alloc.Cheques.IsPositive() {
				lines = append(lines, journals.LineInput{AccountID: *t.ChequesAccountID, CostCenterID: ccID, Credit: alloc.Cheques})
			}
			if alloc.Penalty.IsPositive() {
				lines = append(lines, journals.LineInput{AccountID: *t.PenaltyAccountID, CostCenterID: ccID, Credit: alloc.Penalty})
			}
			if alloc.Maintenance.IsPositive() {
				if t.MaintenanceAccountID == nil {
					return fmt.Errorf("leasing: maintenance charges account: %w", shared.ErrMissingAccount)
				}
				lines = append(lines, journals.LineInput{AccountID: *t.MaintenanceAccountID, CostCenterID: ccID, Credit: alloc.Maintenance})
			}
			description = fmt.Sprintf("Lease %s early termination - unearned revenue reversal", lease.Number)
		}
		return nil
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		cc, err := s.resolveLeaseCostCenter(ctx, lease, t.CostCenterID)
		if err != nil {
			return err
		}
		if err := buildLines(cc.ID); err != nil {
			return err
		}
		if _, _, err := s.ledger.Post(ctx, journals.PostingInput{
			EntryType:     journals.EntryTypePrepaid,
			ReferenceType: "lease_termination",
			ReferenceID:   t.ID,
			Date:          t.TerminationDate,
			Description:   description,
			Lines:         lines,
		}); err != nil {
			return err
		}
		if err := s.repo.CompleteTermination(ctx, t.ID, cc.ID); err != nil {
			return err
		}
		return s.repo.SetLeaseStatus(ctx, lease.ID, LeaseStatusTerminated)
	})
	if err != nil {
		return Termination{}, err
	}
	t.Status = TerminationStatusCompleted
	t.AccountingPosted = true
	return t, nil
}

// CreateRenewalInput carries the successor terms for a renewal.
type CreateRenewalInput struct {
	OriginalLeaseID    int64
	NewStartDate       time.Time
	NewEndDate         time.Time
	NewMonthlyRent     decimal.Decimal
	NewSecurityDeposit *decimal.Decimal
}

// CreateRenewal records a pending renewal with a REN-xxxxx number.
func (s *Service) CreateRenewal(ctx context.Context, in CreateRenewalInput) (Renewal, error) {
	if in.NewEndDate.Before(in.NewStartDate) {
		return Renewal{}, ErrInvalidDateRange
	}
	if _, err := s.repo.GetLease(ctx, in.OriginalLeaseID); err != nil {
		return Renewal{}, err
	}
	number, err := s.seq.Next(ctx, sharedseq.SeqLeaseRenewal)
	if err != nil {
		return Renewal{}, err
	}
	return s.repo.InsertRenewal(ctx, Renewal{
		Number:             number,
		OriginalLeaseID:    in.OriginalLeaseID,
		NewStartDate:       in.NewStartDate,
		NewEndDate:         in.NewEndDate,
		NewMonthlyRent:     in.NewMonthlyRent,
		NewSecurityDeposit: in.NewSecurityDeposit,
		Status:             RenewalStatusPending,
	})
}

// RenewalAccounts supplies the account references for the successor lease.
type RenewalAccounts struct {
	ReceivableAccountID   *int64
	UnearnedAccountID     *int64
	DepositAccountID      *int64
	OtherChargesAccountID *int64
	RentalIncomeAccountID *int64
}

// ActivateRenewal creates the successor lease through the same posting rule as
// an initial lease, expires the original and stamps the renewal active.
func (s *Service) ActivateRenewal(ctx context.Context, renewalID int64, accounts RenewalAccounts) (Lease, error) {
	renewal, err := s.repo.GetRenewal(ctx, renewalID)
	if err != nil {
		return Lease{}, err
	}
	if renewal.Status == RenewalStatusActive {
		return Lease{}, ErrRenewalAlreadyActive
	}
	original, err := s.repo.GetLease(ctx, renewal.OriginalLeaseID)
	if err != nil {
		return Lease{}, err
	}

	deposit := original.SecurityDeposit
	if renewal.NewSecurityDeposit != nil {
		deposit = *renewal.NewSecurityDeposit
	}

	var lease Lease
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		lease, err = s.CreateLease(ctx, CreateLeaseInput{
			Number:                fmt.Sprintf("%s-REN-%d", original.Number, renewal.ID),
			UnitID:                original.UnitID,
			TenantID:              original.TenantID,
			PropertyID:            original.PropertyID,
			StartDate:             renewal.NewStartDate,
			EndDate:               renewal.NewEndDate,
			MonthlyRent:           renewal.NewMonthlyRent,
			SecurityDeposit:       deposit,
			ReceivableAccountID:   accounts.ReceivableAccountID,
			UnearnedAccountID:     accounts.UnearnedAccountID,
			DepositAccountID:      accounts.DepositAccountID,
			OtherChargesAccountID: accounts.OtherChargesAccountID,
			RentalIncomeAccountID: accounts.RentalIncomeAccountID,
			CostCenterID:          original.CostCenterID,
		})
		if err != nil {
			return err
		}
		if err := s.repo.SetLeaseStatus(ctx, original.ID, LeaseStatusExpired); err != nil {
			return err
		}
		return s.repo.ActivateRenewal(ctx, renewal.ID, lease.ID, s.now())
	})
	if err != nil {
		return Lease{}, err
	}
	return lease, nil
}

// RecognitionResult summarises one revenue recognition run.
type RecognitionResult struct {
	Period  string `json:"period"`
	Leases  int    `json:"leases"`
	Posted  int    `json:"posted"`
	Skipped int    `json:"skipped"`
	Failed  int    `json:"failed"`
}

// RunMonthlyRecognition posts the prorated rent for every active lease
// overlapping runDate's month. Each lease posts in its own transaction so one
// failure does not abort the batch; the ledger idempotency key makes re-runs
// safe after partial completion.
func (s *Service) RunMonthlyRecognition(ctx context.Context, runDate time.Time) (RecognitionResult, error) {
	if _, err := s.maps.Require(ctx, mappings.TxRevenueRecognition); err != nil {
		return RecognitionResult{}, err
	}
	period := periodOf(runDate)
	leases, err := s.repo.ListActiveLeases(ctx, runDate)
	if err != nil {
		return RecognitionResult{}, err
	}

	result := RecognitionResult{Period: period, Leases: len(leases)}
	for _, lease := range leases {
		if lease.UnearnedAccountID == nil || lease.RentalIncomeAccountID == nil {
			result.Skipped++
			continue
		}
		amount := proratedRent(lease, runDate)
		if !amount.IsPositive() {
			result.Skipped++
			continue
		}

		lease := lease
		err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
			cc, err := s.resolveLeaseCostCenter(ctx, lease, nil)
			if err != nil {
				return err
			}
			if lease.CostCenterID == nil || *lease.CostCenterID != cc.ID {
				if err := s.repo.SetLeaseCostCenter(ctx, lease.ID, cc.ID); err != nil {
					return err
				}
			}
			_, created, err := s.ledger.Post(ctx, journals.PostingInput{
				EntryType:     journals.EntryTypeRevenueRecognition,
				ReferenceType: "lease",
				ReferenceID:   lease.ID,
				Period:        period,
				Date:          runDate,
				Description:   fmt.Sprintf("Lease %s revenue recognition %s", lease.Number, period),
				Lines: []journals.LineInput{
					{AccountID: *lease.UnearnedAccountID, CostCenterID: cc.ID, Debit: amount},
					{AccountID: *lease.RentalIncomeAccountID, CostCenterID: cc.ID, Credit: amount},
				},
			})
			if err != nil {
				return err
			}
			if created {
				result.Posted++
			} else {
				result.Skipped++
			}
			return nil
		})
		if err != nil {
			result.Failed++
			s.logger.Warn("revenue recognition lease failed",
				slog.Int64("lease_id", lease.ID),
				slog.String("period", period),
				slog.Any("error", err))
		}
	}
	return result, nil
}

func (s *Service) resolveLeaseCostCenter(ctx context.Context, lease Lease, explicit *int64) (costcenters.CostCenter, error) {
	if explicit == nil {
		explicit = lease.CostCenterID
	}
	return s.resolver.Resolve(ctx, costcenters.Ref{
		Kind:       costcenters.KindUnit,
		EntityID:   lease.UnitID,
		Name:       fmt.Sprintf("Unit %d", lease.UnitID),
		ExplicitID: explicit,
	})
}
