package ap

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
	return fmt.Sprintf("%s-%05d", docType, s.next), nil
}

type memoryRepo struct {
	invoices map[int64]SupplierInvoice
	vouchers map[int64]PaymentVoucher
	nextID   int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{invoices: make(map[int64]SupplierInvoice), vouchers: make(map[int64]PaymentVoucher)}
}

func (r *memoryRepo) InsertInvoice(ctx context.Context, inv SupplierInvoice) (SupplierInvoice, error) {
	r.nextID++
	inv.ID = r.nextID
	r.invoices[inv.ID] = inv
	return inv, nil
}

func (r *memoryRepo) GetInvoice(ctx context.Context, id int64) (SupplierInvoice, error) {
	inv, ok := r.invoices[id]
	if !ok {
		return SupplierInvoice{}, ErrInvoiceNotFound
	}
	return inv, nil
}

func (r *memoryRepo) MarkInvoicePosted(ctx context.Context, id int64, taxAmount, totalAmount decimal.Decimal, supplierAccountID, costCenterID int64) error {
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
	inv.SupplierAccountID = &supplierAccountID
	inv.CostCenterID = &costCenterID
	r.invoices[id] = inv
	return nil
}

func (r *memoryRepo) InsertVoucher(ctx context.Context, v PaymentVoucher) (PaymentVoucher, error) {
	r.nextID++
	v.ID = r.nextID
	r.vouchers[v.ID] = v
	return v, nil
}

func (r *memoryRepo) GetVoucher(ctx context.Context, id int64) (PaymentVoucher, error) {
	v, ok := r.vouchers[id]
	if !ok {
		return PaymentVoucher{}, ErrVoucherNotFound
	}
	return v, nil
}

func (r *memoryRepo) MarkVoucherPosted(ctx context.Context, id, supplierAccountID, costCenterID int64) error {
	v, ok := r.vouchers[id]
	if !ok {
		return ErrVoucherNotFound
	}
	v.AccountingPosted = true
	if v.Status == StatusDraft {
		v.Status = StatusSubmitted
	}
	v.SupplierAccountID = &supplierAccountID
	v.CostCenterID = &costCenterID
	r.vouchers[id] = v
	return nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func id(v int64) *int64 {
	return &v
}

func newTestService(repo *memoryRepo, ledger *fakeLedger, mapping mappings.Mapping) *Service {
	return NewService(
		repo,
		ledger,
		&stubResolver{cc: costcenters.CostCenter{ID: 88, Code: "CC-SUPPLIER-0005", IsActive: true}},
		&stubMappings{mapping: mapping},
		&stubSequences{},
		nopTxRunner{},
		slog.Default(),
	)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPostInvoiceDebitsExpenseAndTax(t *testing.T) {
	repo := newMemoryRepo()
	ledger := newFakeLedger()
	svc := newTestService(repo, ledger, mappings.Mapping{
		DebitAccountID:  40,
		CreditAccountID: 21,
		TaxAccountID:    id(30),
		IsActive:        true,
	})

	invoice, err := svc.CreateInvoice(context.Background(), CreateInvoiceInput{
		SupplierID: 7,
		Date:       date(2025, 6, 1),
		Amount:     dec("2000.00"),
		IsTaxable:  true,
		TaxRate:    dec("5"),
	})
	require.NoError(t, err)
	require.Equal(t, StatusDraft, invoice.Status)

	posted, err := svc.PostInvoice(context.Background(), invoice.ID)
	require.NoError(t, err)
	require.True(t, posted.AccountingPosted)
	require.True(t, posted.TaxAmount.Equal(dec("100.00")))
	require.True(t, posted.TotalAmount.Equal(dec("2100.00")))

	entry := ledger.entries[0]
	require.Equal(t, journals.EntryTypeInvoice, entry.EntryType)
	require.Equal(t, "supplier_invoice", entry.ReferenceType)
	require.Len(t, entry.Lines, 3)
	require.Equal(t, int64(40), entry.Lines[0].AccountID)
	require.True(t, entry.Lines[0].Debit.Equal(dec("2000.00")))
	require.Equal(t, int64(30), entry.Lines[1].AccountID)
	require.True(t, entry.Lines[1].Debit.Equal(dec("100.00")))
	require.Equal(t, int64(21), entry.Lines[2].AccountID)
	require.True(t, entry.Lines[2].Credit.Equal(dec("2100.00")))
}

func TestPostInvoiceNonTaxableSkipsTaxLeg(t *testing.T) {
	repo := newMemoryRepo()
	ledger := newFakeLedger()
	svc := newTestService(repo, ledger, mappings.Mapping{
		DebitAccountID:  40,
		CreditAccountID: 21,
		IsActive:        true,
	})

	invoice, err := svc.CreateInvoice(context.Background(), CreateInvoiceInput{
		SupplierID: 7,
		Date:       date(2025, 6, 1),
		Amount:     dec("500.00"),
	})
	require.NoError(t, err)

	posted, err := svc.PostInvoice(context.Background(), invoice.ID)
	require.NoError(t, err)
	require.True(t, posted.TaxAmount.IsZero())
	require.True(t, posted.TotalAmount.Equal(dec("500.00")))
	require.Len(t, ledger.entries[0].Lines, 2)
}

func TestPostInvoicePrefersDocumentAccounts(t *testing.T) {
	repo := newMemoryRepo()
	ledger := newFakeLedger()
	svc := newTestService(repo, ledger, mappings.Mapping{
		DebitAccountID:  40,
		CreditAccountID: 21,
		IsActive:        true,
	})

	invoice, err := svc.CreateInvoice(context.Background(), CreateInvoiceInput{
		SupplierID:        7,
		Date:              date(2025, 6, 1),
		Amount:            dec("500.00"),
		ExpenseAccountID:  id(41),
		SupplierAccountID: id(22),
	})
	require.NoError(t, err)

	_, err = svc.PostInvoice(context.Background(), invoice.ID)
	require.NoError(t, err)
	require.Equal(t, int64(41), ledger.entries[0].Lines[0].AccountID)
	require.Equal(t, int64(22), ledger.entries[0].Lines[1].AccountID)
}

func TestPostInvoiceFailsWithoutTaxAccount(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, newFakeLedger(), mappings.Mapping{
		DebitAccountID:  40,
		CreditAccountID: 21,
		IsActive:        true,
	})

	invoice, err := svc.CreateInvoice(context.Background(), CreateInvoiceInput{
		SupplierID: 7,
		Date:       date(2025, 6, 1),
		Amount:     dec("500.00"),
		IsTaxable:  true,
		TaxRate:    dec("5"),
	})
	require.NoError(t, err)

	_, err = svc.PostInvoice(context.Background(), invoice.ID)
	require.ErrorIs(t, err, shared.ErrMissingAccount)
}

func TestPostInvoiceTwiceIsNoOp(t *testing.T) {
	repo := newMemoryRepo()
	ledger := newFakeLedger()
	svc := newTestService(repo, ledger, mappings.Mapping{
		DebitAccountID:  40,
		CreditAccountID: 21,
		IsActive:        true,
	})

	invoice, err := svc.CreateInvoice(context.Background(), CreateInvoiceInput{
		SupplierID: 7,
		Date:       date(2025, 6, 1),
		Amount:     dec("500.00"),
	})
	require.NoError(t, err)

	_, err = svc.PostInvoice(context.Background(), invoice.ID)
	require.NoError(t, err)
	_, err = svc.PostInvoice(context.Background(), invoice.ID)
	require.NoError(t, err)
	require.Len(t, ledger.entries, 1)
}

func TestPostVoucherCreditsMethodAccount(t *testing.T) {
	repo := newMemoryRepo()
	ledger := newFakeLedger()
	svc := newTestService(repo, ledger, mappings.Mapping{
		DebitAccountID: 21,
		BankAccountID:  id(13),
		IsActive:       true,
	})

	voucher, err := svc.CreateVoucher(context.Background(), CreateVoucherInput{
		SupplierID:    7,
		Date:          date(2025, 6, 10),
		Amount:        dec("750.00"),
		PaymentMethod: MethodBank,
	})
	require.NoError(t, err)

	posted, err := svc.PostVoucher(context.Background(), voucher.ID)
	require.NoError(t, err)
	require.True(t, posted.AccountingPosted)
	require.Equal(t, StatusSubmitted, posted.Status)

	entry := ledger.entries[0]
	require.Equal(t, journals.EntryTypePayment, entry.EntryType)
	require.Equal(t, "payment_voucher", entry.ReferenceType)
	require.Len(t, entry.Lines, 2)
	require.Equal(t, int64(21), entry.Lines[0].AccountID)
	require.True(t, entry.Lines[0].Debit.Equal(dec("750.00")))
	require.Equal(t, int64(13), entry.Lines[1].AccountID)
	require.True(t, entry.Lines[1].Credit.Equal(dec("750.00")))
}

func TestPostVoucherFailsWithoutMethodAccount(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, newFakeLedger(), mappings.Mapping{DebitAccountID: 21, IsActive: true})

	voucher, err := svc.CreateVoucher(context.Background(), CreateVoucherInput{
		SupplierID:    7,
		Date:          date(2025, 6, 10),
		Amount:        dec("750.00"),
		PaymentMethod: MethodCheque,
	})
	require.NoError(t, err)

	_, err = svc.PostVoucher(context.Background(), voucher.ID)
	require.ErrorIs(t, err, shared.ErrMissingAccount)
}

func TestCreateVoucherRejectsPostDatedCheques(t *testing.T) {
	svc := newTestService(newMemoryRepo(), newFakeLedger(), mappings.Mapping{IsActive: true})
	_, err := svc.CreateVoucher(context.Background(), CreateVoucherInput{
		SupplierID:    7,
		Date:          date(2025, 6, 10),
		Amount:        dec("100.00"),
		PaymentMethod: "post_dated_cheque",
	})
	require.ErrorIs(t, err, shared.ErrUnknownPaymentMethod)
}
