package leasing

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/keystone-pm/keystone/internal/accounting/costcenters"
	"github.com/keystone-pm/keystone/internal/accounting/journals"
	"github.com/keystone-pm/keystone/internal/accounting/mappings"
	"github.com/keystone-pm/keystone/internal/accounting/shared"
)

type nopTxRunner struct{}

func (nopTxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeLedger struct {
	entries []journals.JournalEntry
	byKey   map[string]int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{byKey: make(map[string]int)}
}

func (f *fakeLedger) Post(ctx context.Context, in journals.PostingInput) (journals.JournalEntry, bool, error) {
	if err := in.Validate(); err != nil {
		return journals.JournalEntry{}, false, err
	}
	key := fmt.Sprintf("%s|%d|%s|%s", in.ReferenceType, in.ReferenceID, in.EntryType, in.Period)
	if in.EntryType != journals.EntryTypeManual {
		if idx, ok := f.byKey[key]; ok {
			return f.entries[idx], false, nil
		}
	}
	entry := journals.JournalEntry{
		ID:            int64(len(f.entries) + 1),
		Number:        int64(len(f.entries) + 1),
		EntryType:     in.EntryType,
		ReferenceType: in.ReferenceType,
		ReferenceID:   in.ReferenceID,
		Period:        in.Period,
		Date:          in.Date,
		Description:   in.Description,
	}
	for _, line := range in.Lines {
		entry.Lines = append(entry.Lines, journals.JournalLine{
			EntryID:       entry.ID,
			AccountID:     line.AccountID,
			CostCenterID:  line.CostCenterID,
			Debit:         line.Debit,
			Credit:        line.Credit,
			ReferenceType: in.ReferenceType,
			ReferenceID:   in.ReferenceID,
		})
	}
	f.entries = append(f.entries, entry)
	f.byKey[key] = len(f.entries) - 1
	return entry, true, nil
}

func (f *fakeLedger) lastEntry(t *testing.T) journals.JournalEntry {
	t.Helper()
	require.NotEmpty(t, f.entries)
	return f.entries[len(f.entries)-1]
}

type stubResolver struct {
	cc       costcenters.CostCenter
	resolved int
}

func (s *stubResolver) Resolve(ctx context.Context, ref costcenters.Ref) (costcenters.CostCenter, error) {
	s.resolved++
	return s.cc, nil
}

type stubMappings struct {
	mapping mappings.Mapping
	missing map[mappings.TransactionType]bool
}

func (s *stubMappings) Require(ctx context.Context, t mappings.TransactionType) (mappings.Mapping, error) {
	if s.missing[t] {
		return mappings.Mapping{}, shared.ErrMappingNotFound
	}
	return s.mapping, nil
}

type stubSequences struct {
	next int64
}

func (s *stubSequences) Next(ctx context.Context, docType string) (string, error) {
	s.next++
	return fmt.Sprintf("DOC-%05d", s.next), nil
}

type memoryLeaseRepo struct {
	leases       map[int64]Lease
	terminations map[int64]Termination
	renewals     map[int64]Renewal
	nextID       int64
}

func newMemoryLeaseRepo() *memoryLeaseRepo {
	return &memoryLeaseRepo{
		leases:       make(map[int64]Lease),
		terminations: make(map[int64]Termination),
		renewals:     make(map[int64]Renewal),
	}
}

func (r *memoryLeaseRepo) InsertLease(ctx context.Context, l Lease) (Lease, error) {
	r.nextID++
	l.ID = r.nextID
	r.leases[l.ID] = l
	return l, nil
}

func (r *memoryLeaseRepo) GetLease(ctx context.Context, id int64) (Lease, error) {
	l, ok := r.leases[id]
	if !ok {
		return Lease{}, ErrLeaseNotFound
	}
	return l, nil
}

func (r *memoryLeaseRepo) ListActiveLeases(ctx context.Context, onDate time.Time) ([]Lease, error) {
	var out []Lease
	for _, l := range r.leases {
		if l.Status == LeaseStatusActive && !l.StartDate.After(onDate) && !l.EndDate.Before(onDate) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *memoryLeaseRepo) MarkLeasePosted(ctx context.Context, id, costCenterID int64) error {
	l, ok := r.leases[id]
	if !ok {
		return ErrLeaseNotFound
	}
	l.AccountingPosted = true
	l.CostCenterID = &costCenterID
	r.leases[id] = l
	return nil
}

func (r *memoryLeaseRepo) SetLeaseStatus(ctx context.Context, id int64, status LeaseStatus) error {
	l, ok := r.leases[id]
	if !ok {
		return ErrLeaseNotFound
	}
	l.Status = status
	r.leases[id] = l
	return nil
}

func (r *memoryLeaseRepo) SetLeaseCostCenter(ctx context.Context, id, costCenterID int64) error {
	l, ok := r.leases[id]
	if !ok {
		return ErrLeaseNotFound
	}
	l.CostCenterID = &costCenterID
	r.leases[id] = l
	return nil
}

func (r *memoryLeaseRepo) InsertTermination(ctx context.Context, t Termination) (Termination, error) {
	r.nextID++
	t.ID = r.nextID
	r.terminations[t.ID] = t
	return t, nil
}

func (r *memoryLeaseRepo) GetTermination(ctx context.Context, id int64) (Termination, error) {
	t, ok := r.terminations[id]
	if !ok {
		return Termination{}, ErrTerminationNotFound
	}
	return t, nil
}

func (r *memoryLeaseRepo) CompleteTermination(ctx context.Context, id, costCenterID int64) error {
	t, ok := r.terminations[id]
	if !ok {
		return ErrTerminationNotFound
	}
	t.Status = TerminationStatusCompleted
	t.AccountingPosted = true
	t.CostCenterID = &costCenterID
	r.terminations[id] = t
	return nil
}

func (r *memoryLeaseRepo) InsertRenewal(ctx context.Context, re Renewal) (Renewal, error) {
	r.nextID++
	re.ID = r.nextID
	r.renewals[re.ID] = re
	return re, nil
}

func (r *memoryLeaseRepo) GetRenewal(ctx context.Context, id int64) (Renewal, error) {
	re, ok := r.renewals[id]
	if !ok {
		return Renewal{}, ErrRenewalNotFound
	}
	return re, nil
}

func (r *memoryLeaseRepo) ActivateRenewal(ctx context.Context, id, newLeaseID int64, activatedOn time.Time) error {
	re, ok := r.renewals[id]
	if !ok {
		return ErrRenewalNotFound
	}
	re.Status = RenewalStatusActive
	re.NewLeaseID = &newLeaseID
	re.ActivationDate = &activatedOn
	r.renewals[id] = re
	return nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func id(v int64) *int64 {
	return &v
}

func newTestService(repo *memoryLeaseRepo, ledger *fakeLedger) (*Service, *stubResolver) {
	resolver := &stubResolver{cc: costcenters.CostCenter{ID: 77, Code: "CC-UNIT-0012", IsActive: true}}
	maps := &stubMappings{mapping: mappings.Mapping{DebitAccountID: 10, IsActive: true}}
	svc := NewService(repo, ledger, resolver, maps, &stubSequences{}, nopTxRunner{}, slog.Default())
	return svc, resolver
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func entryBalance(t *testing.T, entry journals.JournalEntry) (decimal.Decimal, decimal.Decimal) {
	t.Helper()
	debit := decimal.Zero
	credit := decimal.Zero
	for _, line := range entry.Lines {
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	return debit, credit
}

func TestCreateLeasePostsOpeningEntry(t *testing.T) {
	repo := newMemoryLeaseRepo()
	ledger := newFakeLedger()
	svc, _ := newTestService(repo, ledger)

	lease, err := svc.CreateLease(context.Background(), CreateLeaseInput{
		Number:                "L-2025-001",
		UnitID:                12,
		TenantID:              3,
		PropertyID:            1,
		StartDate:             date(2025, 6, 1),
		EndDate:               date(2026, 5, 31),
		MonthlyRent:           dec("3000.00"),
		SecurityDeposit:       dec("5000.00"),
		OtherCharges:          dec("200.00"),
		UnearnedAccountID:     id(20),
		DepositAccountID:      id(21),
		OtherChargesAccountID: id(22),
		RentalIncomeAccountID: id(23),
	})
	require.NoError(t, err)
	require.True(t, lease.AccountingPosted)

	entry := ledger.lastEntry(t)
	require.Equal(t, journals.EntryTypePrepaid, entry.EntryType)
	require.Equal(t, "lease", entry.ReferenceType)
	require.Len(t, entry.Lines, 4)

	debit, credit := entryBalance(t, entry)
	require.True(t, debit.Equal(dec("8200.00")), debit.String())
	require.True(t, debit.Equal(credit))
	// Receivable debit comes from the mapping default.
	require.Equal(t, int64(10), entry.Lines[0].AccountID)
	require.Equal(t, int64(77), entry.Lines[0].CostCenterID)
}

func TestCreateLeaseRequiresUnearnedAndDepositAccounts(t *testing.T) {
	svc, _ := newTestService(newMemoryLeaseRepo(), newFakeLedger())

	_, err := svc.CreateLease(context.Background(), CreateLeaseInput{
		Number:      "L-2025-002",
		UnitID:      12,
		TenantID:    3,
		PropertyID:  1,
		StartDate:   date(2025, 6, 1),
		EndDate:     date(2026, 5, 31),
		MonthlyRent: dec("3000.00"),
	})
	require.ErrorIs(t, err, shared.ErrMissingAccount)
}

func TestProratedRentFullMonth(t *testing.T) {
	lease := Lease{
		StartDate:   date(2025, 1, 1),
		EndDate:     date(2026, 1, 1),
		MonthlyRent: dec("3000.00"),
	}
	// June 2025 has 30 days and the lease covers all of them.
	amount := proratedRent(lease, date(2025, 6, 15))
	require.True(t, amount.Equal(dec("3000.00")), amount.String())
}

func TestProratedRentMidMonthStart(t *testing.T) {
	lease := Lease{
		StartDate:   date(2025, 7, 12),
		EndDate:     date(2026, 7, 11),
		MonthlyRent: dec("3000.00"),
	}
	// 20 active days in 31-day July: 3000/31*20 rounded half-up.
	amount := proratedRent(lease, date(2025, 7, 20))
	require.True(t, amount.Equal(dec("1935.48")), amount.String())
}

func TestRunMonthlyRecognitionPostsOncePerPeriod(t *testing.T) {
	repo := newMemoryLeaseRepo()
	ledger := newFakeLedger()
	svc, _ := newTestService(repo, ledger)

	lease := Lease{
		Number:                "L-2025-003",
		UnitID:                12,
		TenantID:              3,
		StartDate:             date(2025, 1, 1),
		EndDate:               date(2025, 12, 31),
		MonthlyRent:           dec("3000.00"),
		Status:                LeaseStatusActive,
		UnearnedAccountID:     id(20),
		RentalIncomeAccountID: id(23),
		CostCenterID:          id(77),
	}
	_, err := repo.InsertLease(context.Background(), lease)
	require.NoError(t, err)

	result, err := svc.RunMonthlyRecognition(context.Background(), date(2025, 6, 1))
	require.NoError(t, err)
	require.Equal(t, 1, result.Posted)
	require.Equal(t, "2025-06", result.Period)

	entry := ledger.lastEntry(t)
	require.Equal(t, journals.EntryTypeRevenueRecognition, entry.EntryType)
	debit, credit := entryBalance(t, entry)
	require.True(t, debit.Equal(dec("3000.00")))
	require.True(t, debit.Equal(credit))

	// Second run for the same period is a no-op.
	again, err := svc.RunMonthlyRecognition(context.Background(), date(2025, 6, 28))
	require.NoError(t, err)
	require.Equal(t, 0, again.Posted)
	require.Equal(t, 1, again.Skipped)
	require.Len(t, ledger.entries, 1)
}

func TestRunMonthlyRecognitionSkipsLeaseWithoutAccounts(t *testing.T) {
	repo := newMemoryLeaseRepo()
	ledger := newFakeLedger()
	svc, _ := newTestService(repo, ledger)

	_, err := repo.InsertLease(context.Background(), Lease{
		Number:      "L-2025-004",
		UnitID:      12,
		StartDate:   date(2025, 1, 1),
		EndDate:     date(2025, 12, 31),
		MonthlyRent: dec("3000.00"),
		Status:      LeaseStatusActive,
	})
	require.NoError(t, err)

	result, err := svc.RunMonthlyRecognition(context.Background(), date(2025, 6, 1))
	require.NoError(t, err)
	require.Equal(t, 1, result.Skipped)
	require.Zero(t, result.Posted)
	require.Empty(t, ledger.entries)
}

func TestAllocateEarlyCredits(t *testing.T) {
	alloc := allocateEarlyCredits(Termination{
		RefundableAmount:   dec("5000.00"),
		UnearnedRent:       dec("1500.00"),
		Penalty:            dec("500.00"),
		MaintenanceCharges: dec("300.00"),
	})
	require.True(t, alloc.Tenant.Equal(dec("5700.00")), alloc.Tenant.String())
	require.True(t, alloc.Penalty.Equal(dec("500.00")))
	require.True(t, alloc.Maintenance.Equal(dec("300.00")))
	require.True(t, alloc.Cheques.IsZero())

	total := alloc.Tenant.Add(alloc.Cheques).Add(alloc.Penalty).Add(alloc.Maintenance)
	require.True(t, total.Equal(dec("6500.00")), total.String())
}

func TestAllocateEarlyCreditsClampsExcessCharges(t *testing.T) {
	// Charges exceed the debits: penalty absorbs the shortfall first.
	alloc := allocateEarlyCredits(Termination{
		RefundableAmount:   dec("100.00"),
		UnearnedRent:       dec("50.00"),
		Penalty:            dec("120.00"),
		MaintenanceCharges: dec("80.00"),
	})
	require.True(t, alloc.Maintenance.Equal(dec("80.00")))
	require.True(t, alloc.Penalty.Equal(dec("70.00")), alloc.Penalty.String())
	require.True(t, alloc.Tenant.IsZero())

	total := alloc.Tenant.Add(alloc.Cheques).Add(alloc.Penalty).Add(alloc.Maintenance)
	require.True(t, total.Equal(dec("150.00")))
}

func TestAllocateEarlyCreditsMovesChequeLegFromTenant(t *testing.T) {
	ccID := id(30)
	alloc := allocateEarlyCredits(Termination{
		RefundableAmount:         dec("5000.00"),
		UnearnedRent:             dec("1500.00"),
		Penalty:                  dec("500.00"),
		MaintenanceCharges:       dec("300.00"),
		PostDatedChequesAdjusted: true,
		ChequesAccountID:         ccID,
	})
	require.True(t, alloc.Cheques.Equal(dec("1500.00")))
	require.True(t, alloc.Tenant.Equal(dec("4200.00")), alloc.Tenant.String())

	total := alloc.Tenant.Add(alloc.Cheques).Add(alloc.Penalty).Add(alloc.Maintenance)
	require.True(t, total.Equal(dec("6500.00")))
}

func newLeaseForTermination(t *testing.T, repo *memoryLeaseRepo) Lease {
	t.Helper()
	lease, err := repo.InsertLease(context.Background(), Lease{
		Number:       "L-2025-010",
		UnitID:       12,
		TenantID:     3,
		Status:       LeaseStatusActive,
		StartDate:    date(2025, 1, 1),
		EndDate:      date(2025, 12, 31),
		MonthlyRent:  dec("3000.00"),
		CostCenterID: id(77),
	})
	require.NoError(t, err)
	return lease
}

func TestCompleteNormalTermination(t *testing.T) {
	repo := newMemoryLeaseRepo()
	ledger := newFakeLedger()
	svc, _ := newTestService(repo, ledger)
	lease := newLeaseForTermination(t, repo)

	termination, err := svc.CreateTermination(context.Background(), CreateTerminationInput{
		LeaseID:              lease.ID,
		Kind:                 TerminationNormal,
		TerminationDate:      date(2025, 9, 30),
		RefundableAmount:     dec("5000.00"),
		MaintenanceCharges:   dec("300.00"),
		DepositAccountID:     id(21),
		TenantAccountID:      id(10),
		MaintenanceAccountID: id(40),
	})
	require.NoError(t, err)

	completed, err := svc.CompleteTermination(context.Background(), termination.ID)
	require.NoError(t, err)
	require.Equal(t, TerminationStatusCompleted, completed.Status)

	entry := ledger.lastEntry(t)
	require.Equal(t, "lease_termination", entry.ReferenceType)
	require.Len(t, entry.Lines, 3)
	debit, credit := entryBalance(t, entry)
	require.True(t, debit.Equal(dec("5000.00")))
	require.True(t, debit.Equal(credit))

	stored, err := repo.GetLease(context.Background(), lease.ID)
	require.NoError(t, err)
	require.Equal(t, LeaseStatusTerminated, stored.Status)
}

func TestCompleteEarlyTerminationBalances(t *testing.T) {
	repo := newMemoryLeaseRepo()
	ledger := newFakeLedger()
	svc, _ := newTestService(repo, ledger)
	lease := newLeaseForTermination(t, repo)

	termination, err := svc.CreateTermination(context.Background(), CreateTerminationInput{
		LeaseID:                  lease.ID,
		Kind:                     TerminationEarly,
		TerminationDate:          date(2025, 9, 30),
		RefundableAmount:         dec("5000.00"),
		UnearnedRent:             dec("1500.00"),
		Penalty:                  dec("500.00"),
		MaintenanceCharges:       dec("300.00"),
		PostDatedChequesAdjusted: true,
		DepositAccountID:         id(21),
		TenantAccountID:          id(10),
		UnearnedAccountID:        id(20),
		PenaltyAccountID:         id(41),
		MaintenanceAccountID:     id(40),
		ChequesAccountID:         id(42),
	})
	require.NoError(t, err)

	_, err = svc.CompleteTermination(context.Background(), termination.ID)
	require.NoError(t, err)

	entry := ledger.lastEntry(t)
	debit, credit := entryBalance(t, entry)
	require.True(t, debit.Equal(dec("6500.00")), debit.String())
	require.True(t, debit.Equal(credit))
}

func TestCompleteTerminationTwiceDoesNotDoublePost(t *testing.T) {
	repo := newMemoryLeaseRepo()
	ledger := newFakeLedger()
	svc, _ := newTestService(repo, ledger)
	lease := newLeaseForTermination(t, repo)

	termination, err := svc.CreateTermination(context.Background(), CreateTerminationInput{
		LeaseID:          lease.ID,
		Kind:             TerminationNormal,
		TerminationDate:  date(2025, 9, 30),
		RefundableAmount: dec("5000.00"),
		DepositAccountID: id(21),
		TenantAccountID:  id(10),
	})
	require.NoError(t, err)

	_, err = svc.CompleteTermination(context.Background(), termination.ID)
	require.NoError(t, err)
	_, err = svc.CompleteTermination(context.Background(), termination.ID)
	require.NoError(t, err)
	require.Len(t, ledger.entries, 1)
}

func TestActivateRenewalExpiresOriginal(t *testing.T) {
	repo := newMemoryLeaseRepo()
	ledger := newFakeLedger()
	svc, _ := newTestService(repo, ledger)
	original := newLeaseForTermination(t, repo)

	renewal, err := svc.CreateRenewal(context.Background(), CreateRenewalInput{
		OriginalLeaseID: original.ID,
		NewStartDate:    date(2026, 1, 1),
		NewEndDate:      date(2026, 12, 31),
		NewMonthlyRent:  dec("3200.00"),
	})
	require.NoError(t, err)

	successor, err := svc.ActivateRenewal(context.Background(), renewal.ID, RenewalAccounts{
		UnearnedAccountID:     id(20),
		DepositAccountID:      id(21),
		RentalIncomeAccountID: id(23),
	})
	require.NoError(t, err)
	require.Contains(t, successor.Number, "-REN-")
	require.True(t, successor.AccountingPosted)

	orig, err := repo.GetLease(context.Background(), original.ID)
	require.NoError(t, err)
	require.Equal(t, LeaseStatusExpired, orig.Status)

	stored, err := repo.GetRenewal(context.Background(), renewal.ID)
	require.NoError(t, err)
	require.Equal(t, RenewalStatusActive, stored.Status)
	require.NotNil(t, stored.NewLeaseID)

	_, err = svc.ActivateRenewal(context.Background(), renewal.ID, RenewalAccounts{
		UnearnedAccountID: id(20),
		DepositAccountID:  id(21),
	})
	require.ErrorIs(t, err, ErrRenewalAlreadyActive)
}
