package ar

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/keystone-pm/keystone/internal/accounting/accounts"
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
	if idx, ok := f.byKey[key]; ok {
		return f.entries[idx], false, nil
	}
	entry := journals.JournalEntry{
		ID:            int64(len(f.entries) + 1),
		EntryType:     in.EntryType,
		ReferenceType: in.ReferenceType,
		ReferenceID:   in.ReferenceID,
		Period:        in.Period,
		Date:          in.Date,
		Description:   in.Description,
	}
	for _, line := range in.Lines {
		entry.Lines = append(entry.Lines, journals.JournalLine{
			EntryID:      entry.ID,
			AccountID:    line.AccountID,
			CostCenterID: line.CostCenterID,
			Debit:        line.Debit,
			Credit:       line.Credit,
		})
	}
	f.entries = append(f.entries, entry)
	f.byKey[key] = len(f.entries) - 1
	return entry, true, nil
}

type stubAccounts struct {
	accounts map[int64]accounts.Account
}

func (s *stubAccounts) Get(ctx context.Context, id int64) (accounts.Account, error) {
	a, ok := s.accounts[id]
	if !ok {
		return accounts.Account{}, shared.ErrAccountNotFound
	}
	return a, nil
}

type stubResolver struct {
	cc costcenters.CostCenter
}

func (s *stubResolver) Resolve(ctx context.Context, ref costcenters.Ref) (costcenters.CostCenter, error) {
	return s.cc, nil
}

type stubMappings struct {
	mapping mappings.Mapping
}

func (s *stubMappings) Require(ctx context.Context, t mappings.TransactionType) (mappings.Mapping, error) {
	return s.mapping, nil
}

type stubSequences struct {
	next int64
}

func (s *stubSequences) Next(ctx context.Context, docType string) (string, error) {
	s.next++
	return fmt.Sprintf("RV-%05d", s.next), nil
}

type memoryRepo struct {
	receipts map[int64]ReceiptVoucher
	invoices map[int64]CustomerInvoice
	nextID   int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{receipts: make(map[int64]ReceiptVoucher), invoices: make(map[int64]CustomerInvoice)}
}

func (r *memoryRepo) InsertReceipt(ctx context.Context, v ReceiptVoucher) (ReceiptVoucher, error) {
	r.nextID++
	v.ID = r.nextID
	r.receipts[v.ID] = v
	return v, nil
}

func (r *memoryRepo) GetReceipt(ctx context.Context, id int64) (ReceiptVoucher, error) {
	v, ok := r.receipts[id]
	if !ok {
		return ReceiptVoucher{}, ErrReceiptNotFound
	}
	return v, nil
}

func (r *memoryRepo) MarkReceiptPosted(ctx context.Context, id, tenantAccountID, costCenterID int64) error {
	v, ok := r.receipts[id]
	if !ok {
		return ErrReceiptNotFound
	}
	v.AccountingPosted = true
	if v.Status == StatusDraft {
		v.Status = StatusSubmitted
	}
	v.TenantAccountID = &tenantAccountID
	v.CostCenterID = &costCenterID
	r.receipts[id] = v
	return nil
}

func (r *memoryRepo) InsertInvoice(ctx context.Context, inv CustomerInvoice) (CustomerInvoice, error) {
	r.nextID++
	inv.ID = r.nextID
	r.invoices[inv.ID] = inv
	return inv, nil
}

func (r *memoryRepo) GetInvoice(ctx context.Context, id int64) (CustomerInvoice, error) {
	inv, ok := r.invoices[id]
	if !ok {
		return CustomerInvoice{}, ErrInvoiceNotFound
	}
	return inv, nil
}

func (r *memoryRepo) MarkInvoicePosted(ctx context.Context, id int64, taxAmount, totalAmount decimal.Decimal, costCenterID int64) error {
	inv, ok := r.invoices[id]
	if !ok {
		return ErrInvoiceNotFound
	}
	inv.AccountingPosted = true
	if inv.Status == StatusDraft {
		inv.Status = StatusSubmitted
	}
	inv.TaxAmount = taxAmount
	inv.TotalAmount = totalAmount
	inv.CostCenterID = &costCenterID
	r.invoices[id] = inv
	return nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func id(v int64) *int64 {
	return &v
}

func newTestService(repo *memoryRepo, ledger *fakeLedger, accountsByID map[int64]accounts.Account, mapping mappings.Mapping) *Service {
	return NewService(
		repo,
		ledger,
		&stubAccounts{accounts: accountsByID},
		&stubResolver{cc: costcenters.CostCenter{ID: 55, Code: "CC-TENANT-0003", IsActive: true}},
		&stubMappings{mapping: mapping},
		&stubSequences{},
		nopTxRunner{},
		slog.Default(),
	)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPostReceiptDebitsMethodAccount(t *testing.T) {
	repo := newMemoryRepo()
	ledger := newFakeLedger()
	svc := newTestService(repo, ledger, nil, mappings.Mapping{
		CreditAccountID: 11,
		CashAccountID:   id(12),
		BankAccountID:   id(13),
		IsActive:        true,
	})

	voucher, err := svc.CreateReceipt(context.Background(), CreateReceiptInput{
		TenantID:      3,
		Date:          date(2025, 6, 10),
		Amount:        dec("2500.00"),
		PaymentMethod: MethodBank,
	})
	require.NoError(t, err)
	require.Equal(t, StatusDraft, voucher.Status)
	require.Equal(t, "RV-00001", voucher.Number)

	posted, err := svc.PostReceipt(context.Background(), voucher.ID)
	require.NoError(t, err)
	require.True(t, posted.AccountingPosted)
	require.Equal(t, StatusSubmitted, posted.Status)

	entry := ledger.entries[0]
	require.Equal(t, journals.EntryTypeReceipt, entry.EntryType)
	require.Len(t, entry.Lines, 2)
	require.Equal(t, int64(13), entry.Lines[0].AccountID)
	require.True(t, entry.Lines[0].Debit.Equal(dec("2500.00")))
	require.Equal(t, int64(11), entry.Lines[1].AccountID)
	require.True(t, entry.Lines[1].Credit.Equal(dec("2500.00")))
}

func TestPostReceiptPrefersDocumentAccount(t *testing.T) {
	repo := newMemoryRepo()
	ledger := newFakeLedger()
	svc := newTestService(repo, ledger, nil, mappings.Mapping{
		CreditAccountID: 11,
		CashAccountID:   id(12),
		IsActive:        true,
	})

	voucher, err := svc.CreateReceipt(context.Background(), CreateReceiptInput{
		TenantID:      3,
		Date:          date(2025, 6, 10),
		Amount:        dec("100.00"),
		PaymentMethod: MethodCash,
		CashAccountID: id(99),
	})
	require.NoError(t, err)

	_, err = svc.PostReceipt(context.Background(), voucher.ID)
	require.NoError(t, err)
	require.Equal(t, int64(99), ledger.entries[0].Lines[0].AccountID)
}

func TestPostReceiptFailsWithoutMethodAccount(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, newFakeLedger(), nil, mappings.Mapping{CreditAccountID: 11, IsActive: true})

	voucher, err := svc.CreateReceipt(context.Background(), CreateReceiptInput{
		TenantID:      3,
		Date:          date(2025, 6, 10),
		Amount:        dec("100.00"),
		PaymentMethod: MethodCheque,
	})
	require.NoError(t, err)

	_, err = svc.PostReceipt(context.Background(), voucher.ID)
	require.ErrorIs(t, err, shared.ErrMissingAccount)
}

func TestPostReceiptTwiceIsNoOp(t *testing.T) {
	repo := newMemoryRepo()
	ledger := newFakeLedger()
	svc := newTestService(repo, ledger, nil, mappings.Mapping{
		CreditAccountID: 11,
		CashAccountID:   id(12),
		IsActive:        true,
	})

	voucher, err := svc.CreateReceipt(context.Background(), CreateReceiptInput{
		TenantID:      3,
		Date:          date(2025, 6, 10),
		Amount:        dec("100.00"),
		PaymentMethod: MethodCash,
	})
	require.NoError(t, err)

	_, err = svc.PostReceipt(context.Background(), voucher.ID)
	require.NoError(t, err)
	_, err = svc.PostReceipt(context.Background(), voucher.ID)
	require.NoError(t, err)
	require.Len(t, ledger.entries, 1)
}

func TestCreateReceiptRejectsUnknownMethod(t *testing.T) {
	svc := newTestService(newMemoryRepo(), newFakeLedger(), nil, mappings.Mapping{IsActive: true})
	_, err := svc.CreateReceipt(context.Background(), CreateReceiptInput{
		TenantID:      3,
		Date:          date(2025, 6, 10),
		Amount:        dec("100.00"),
		PaymentMethod: "barter",
	})
	require.ErrorIs(t, err, shared.ErrUnknownPaymentMethod)
}

func taxableInvoiceAccounts() map[int64]accounts.Account {
	return map[int64]accounts.Account{
		30: {ID: 30, Number: "2300", Name: "VAT Payable", Type: accounts.AccountTypeLiability, IsActive: true},
		31: {ID: 31, Number: "4100", Name: "Rental Income", Type: accounts.AccountTypeIncome, IsActive: true},
	}
}

func TestPostInvoiceComputesTax(t *testing.T) {
	repo := newMemoryRepo()
	ledger := newFakeLedger()
	svc := newTestService(repo, ledger, taxableInvoiceAccounts(), mappings.Mapping{
		DebitAccountID:  10,
		CreditAccountID: 31,
		TaxAccountID:    id(30),
		IsActive:        true,
	})

	invoice, err := svc.CreateInvoice(context.Background(), CreateInvoiceInput{
		TenantID:  3,
		Date:      date(2025, 6, 1),
		Amount:    dec("1000.00"),
		IsTaxable: true,
		TaxRate:   dec("5"),
	})
	require.NoError(t, err)

	posted, err := svc.PostInvoice(context.Background(), invoice.ID)
	require.NoError(t, err)
	require.True(t, posted.TaxAmount.Equal(dec("50.00")), posted.TaxAmount.String())
	require.True(t, posted.TotalAmount.Equal(dec("1050.00")))

	entry := ledger.entries[0]
	require.Len(t, entry.Lines, 3)
	require.True(t, entry.Lines[0].Debit.Equal(dec("1050.00")))
	require.True(t, entry.Lines[1].Credit.Equal(dec("1000.00")))
	require.True(t, entry.Lines[2].Credit.Equal(dec("50.00")))
}

func TestPostInvoiceTaxRoundsHalfUp(t *testing.T) {
	// 333.33 * 5% = 16.6665 which rounds half-up to 16.67.
	require.True(t, shared.TaxAmount(dec("333.33"), dec("5")).Equal(dec("16.67")))
}

func TestPostInvoiceRejectsNonLiabilityTaxAccount(t *testing.T) {
	repo := newMemoryRepo()
	accountsByID := map[int64]accounts.Account{
		31: {ID: 31, Number: "4100", Name: "Rental Income", Type: accounts.AccountTypeIncome, IsActive: true},
	}
	svc := newTestService(repo, newFakeLedger(), accountsByID, mappings.Mapping{
		DebitAccountID:  10,
		CreditAccountID: 31,
		TaxAccountID:    id(31),
		IsActive:        true,
	})

	invoice, err := svc.CreateInvoice(context.Background(), CreateInvoiceInput{
		TenantID:  3,
		Date:      date(2025, 6, 1),
		Amount:    dec("1000.00"),
		IsTaxable: true,
		TaxRate:   dec("5"),
	})
	require.NoError(t, err)

	_, err = svc.PostInvoice(context.Background(), invoice.ID)
	require.ErrorIs(t, err, shared.ErrWrongAccountType)
}

func TestPostInvoiceNonTaxableSkipsTaxLeg(t *testing.T) {
	repo := newMemoryRepo()
	ledger := newFakeLedger()
	svc := newTestService(repo, ledger, nil, mappings.Mapping{
		DebitAccountID:  10,
		CreditAccountID: 31,
		IsActive:        true,
	})

	invoice, err := svc.CreateInvoice(context.Background(), CreateInvoiceInput{
		TenantID: 3,
		Date:     date(2025, 6, 1),
		Amount:   dec("1000.00"),
	})
	require.NoError(t, err)

	posted, err := svc.PostInvoice(context.Background(), invoice.ID)
	require.NoError(t, err)
	require.True(t, posted.TaxAmount.IsZero())
	require.True(t, posted.TotalAmount.Equal(dec("1000.00")))
	require.Len(t, ledger.entries[0].Lines, 2)
}

func TestCreateInvoiceRejectsNonPositiveAmount(t *testing.T) {
	svc := newTestService(newMemoryRepo(), newFakeLedger(), nil, mappings.Mapping{IsActive: true})
	_, err := svc.CreateInvoice(context.Background(), CreateInvoiceInput{
		TenantID: 3,
		Date:     date(2025, 6, 1),
		Amount:   dec("0"),
	})
	require.ErrorIs(t, err, shared.ErrNonPositiveAmount)
}
