package ar

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/keystone-pm/keystone/internal/accounting/accounts"
	"github.com/keystone-pm/keystone/internal/accounting/costcenters"
	"github.com/keystone-pm/keystone/internal/accounting/journals"
	"github.com/keystone-pm/keystone/internal/accounting/mappings"
	"github.com/keystone-pm/keystone/internal/accounting/shared"
	sharedseq "github.com/keystone-pm/keystone/internal/shared"
)

// Service implements the receivable posting rules.
type Service struct {
	repo     Repository
	ledger   Ledger
	accounts AccountSource
	resolver CostCenterResolver
	maps     MappingSource
	seq      NumberSource
	tx       TxRunner
	logger   *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo Repository, ledger Ledger, accountSrc AccountSource, resolver CostCenterResolver, maps MappingSource, seq NumberSource, tx TxRunner, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		ledger:   ledger,
		accounts: accountSrc,
		resolver: resolver,
		maps:     maps,
		seq:      seq,
		tx:       tx,
		logger:   logger,
	}
}

// CreateReceiptInput carries a new receipt voucher.
type CreateReceiptInput struct {
	TenantID      int64
	LeaseID       *int64
	Date          time.Time
	Amount        decimal.Decimal
	PaymentMethod PaymentMethod

	CashAccountID    *int64
	BankAccountID    *int64
	ChequesAccountID *int64
	TenantAccountID  *int64
	CostCenterID     *int64
	UnitCostCenterID *int64
}

// CreateReceipt records a draft voucher with an RV-xxxxx number.
func (s *Service) CreateReceipt(ctx context.Context, in CreateReceiptInput) (ReceiptVoucher, error) {
	if !in.Amount.IsPositive() {
		return ReceiptVoucher{}, shared.ErrNonPositiveAmount
	}
	if !in.PaymentMethod.Valid() {
		return ReceiptVoucher{}, fmt.Errorf("%w: %q", shared.ErrUnknownPaymentMethod, in.PaymentMethod)
	}
	number, err := s.seq.Next(ctx, sharedseq.SeqReceiptVoucher)
	if err != nil {
		return ReceiptVoucher{}, err
	}
	return s.repo.InsertReceipt(ctx, ReceiptVoucher{
		Number:           number,
		TenantID:         in.TenantID,
		LeaseID:          in.LeaseID,
		Date:             in.Date,
		Amount:           in.Amount,
		PaymentMethod:    in.PaymentMethod,
		Status:           StatusDraft,
		CashAccountID:    in.CashAccountID,
		BankAccountID:    in.BankAccountID,
		ChequesAccountID: in.ChequesAccountID,
		TenantAccountID:  in.TenantAccountID,
		CostCenterID:     in.CostCenterID,
		UnitCostCenterID: in.UnitCostCenterID,
	})
}

// receiptDebitAccount picks the asset account by payment method, falling back
// to the mapping defaults when the document carries no explicit reference.
func receiptDebitAccount(v ReceiptVoucher, m mappings.Mapping) (int64, error) {
	var explicit, fallback *int64
	switch v.PaymentMethod {
	case MethodCash:
		explicit, fallback = v.CashAccountID, m.CashAccountID
	case MethodBank:
		explicit, fallback = v.BankAccountID, m.BankAccountID
	case MethodCheque, MethodPostDatedCheque:
		explicit, fallback = v.ChequesAccountID, m.ChequesAccountID
	default:
		return 0, fmt.Errorf("%w: %q", shared.ErrUnknownPaymentMethod, v.PaymentMethod)
	}
	if explicit != nil && *explicit != 0 {
		return *explicit, nil
	}
	if fallback != nil && *fallback != 0 {
		return *fallback, nil
	}
	return 0, fmt.Errorf("ar: no account for payment method %q: %w", v.PaymentMethod, shared.ErrMissingAccount)
}

// PostReceipt posts Debit cash/bank/cheques, Credit tenant receivable and
// advances the voucher from draft to submitted. Re-posting an already posted
// voucher is a no-op through the ledger idempotency key.
func (s *Service) PostReceipt(ctx context.Context, id int64) (ReceiptVoucher, error) {
	v, err := s.repo.GetReceipt(ctx, id)
	if err != nil {
		return ReceiptVoucher{}, err
	}
	m, err := s.maps.Require(ctx, mappings.TxReceiptVoucher)
	if err != nil {
		return ReceiptVoucher{}, err
	}
	debitID, err := receiptDebitAccount(v, m)
	if err != nil {
		return ReceiptVoucher{}, err
	}
	tenantID := m.CreditAccountID
	if v.TenantAccountID != nil && *v.TenantAccountID != 0 {
		tenantID = *v.TenantAccountID
	}
	if tenantID == 0 {
		return ReceiptVoucher{}, fmt.Errorf("ar: tenant receivable account: %w", shared.ErrMissingAccount)
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		cc, err := s.resolver.Resolve(ctx, costcenters.Ref{
			Kind:             costcenters.KindTenant,
			EntityID:         v.TenantID,
			Name:             fmt.Sprintf("Tenant %d", v.TenantID),
			ExplicitID:       v.CostCenterID,
			UnitCostCenterID: v.UnitCostCenterID,
		})
		if err != nil {
			return err
		}
		if _, _, err := s.ledger.Post(ctx, journals.PostingInput{
			EntryType:     journals.EntryTypeReceipt,
			ReferenceType: "receipt_voucher",
			ReferenceID:   v.ID,
			Date:          v.Date,
			Description:   fmt.Sprintf("Receipt %s - tenant %d", v.Number, v.TenantID),
			Lines: []journals.LineInput{
				{AccountID: debitID, CostCenterID: cc.ID, Debit: v.Amount},
				{AccountID: tenantID, CostCenterID: cc.ID, Credit: v.Amount},
			},
		}); err != nil {
			return err
		}
		return s.repo.MarkReceiptPosted(ctx, v.ID, tenantID, cc.ID)
	})
	if err != nil {
		return ReceiptVoucher{}, err
	}
	v.AccountingPosted = true
	if v.Status == StatusDraft {
		v.Status = StatusSubmitted
	}
	v.TenantAccountID = &tenantID
	return v, nil
}

// CreateInvoiceInput carries a new customer invoice.
type CreateInvoiceInput struct {
	TenantID  int64
	LeaseID   *int64
	Date      time.Time
	Amount    decimal.Decimal
	IsTaxable bool
	TaxRate   decimal.Decimal
	TaxAmount decimal.Decimal

	TenantAccountID  *int64
	IncomeAccountID  *int64
	TaxAccountID     *int64
	CostCenterID     *int64
	UnitCostCenterID *int64
}

// CreateInvoice records a draft invoice with an INV-xxxxx number.
func (s *Service) CreateInvoice(ctx context.Context, in CreateInvoiceInput) (CustomerInvoice, error) {
	if !in.Amount.IsPositive() {
		return CustomerInvoice{}, shared.ErrNonPositiveAmount
	}
	number, err := s.seq.Next(ctx, sharedseq.SeqCustomerInvoice)
	if err != nil {
		return CustomerInvoice{}, err
	}
	return s.repo.InsertInvoice(ctx, CustomerInvoice{
		Number:           number,
		TenantID:         in.TenantID,
		LeaseID:          in.LeaseID,
		Date:             in.Date,
		Amount:           in.Amount,
		IsTaxable:        in.IsTaxable,
		TaxRate:          in.TaxRate,
		TaxAmount:        in.TaxAmount,
		Status:           StatusDraft,
		TenantAccountID:  in.TenantAccountID,
		IncomeAccountID:  in.IncomeAccountID,
		TaxAccountID:     in.TaxAccountID,
		CostCenterID:     in.CostCenterID,
		UnitCostCenterID: in.UnitCostCenterID,
	})
}

// PostInvoice posts Debit tenant receivable for the tax-inclusive total,
// Credit income and tax payable. The tax account must be liability-typed.
func (s *Service) PostInvoice(ctx context.Context, id int64) (CustomerInvoice, error) {
	inv, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return CustomerInvoice{}, err
	}
	if !inv.Amount.IsPositive() {
		return CustomerInvoice{}, shared.ErrNonPositiveAmount
	}
	m, err := s.maps.Require(ctx, mappings.TxCustomerInvoice)
	if err != nil {
		return CustomerInvoice{}, err
	}

	tenantID := m.DebitAccountID
	if inv.TenantAccountID != nil && *inv.TenantAccountID != 0 {
		tenantID = *inv.TenantAccountID
	}
	incomeID := m.CreditAccountID
	if inv.IncomeAccountID != nil && *inv.IncomeAccountID != 0 {
		incomeID = *inv.IncomeAccountID
	}
	if tenantID == 0 || incomeID == 0 {
		return CustomerInvoice{}, fmt.Errorf("ar: tenant and income accounts: %w", shared.ErrMissingAccount)
	}

	tax := inv.TaxAmount
	if inv.IsTaxable && !tax.IsPositive() {
		tax = shared.TaxAmount(inv.Amount, inv.TaxRate)
	}
	if !inv.IsTaxable {
		tax = decimal.Zero
	}
	total := inv.Amount.Add(tax)

	var taxAccountID int64
	if tax.IsPositive() {
		if inv.TaxAccountID != nil && *inv.TaxAccountID != 0 {
			taxAccountID = *inv.TaxAccountID
		} else if m.TaxAccountID != nil {
			taxAccountID = *m.TaxAccountID
		}
		if taxAccountID == 0 {
			return CustomerInvoice{}, fmt.Errorf("ar: tax account: %w", shared.ErrMissingAccount)
		}
		taxAccount, err := s.accounts.Get(ctx, taxAccountID)
		if err != nil {
			return CustomerInvoice{}, err
		}
		if err := accounts.RequireType(taxAccount, accounts.AccountTypeLiability); err != nil {
			return CustomerInvoice{}, err
		}
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		cc, err := s.resolver.Resolve(ctx, costcenters.Ref{
			Kind:             costcenters.KindTenant,
			EntityID:         inv.TenantID,
			Name:             fmt.Sprintf("Tenant %d", inv.TenantID),
			ExplicitID:       inv.CostCenterID,
			UnitCostCenterID: inv.UnitCostCenterID,
		})
		if err != nil {
			return err
		}
		lines := []journals.LineInput{
			{AccountID: tenantID, CostCenterID: cc.ID, Debit: total},
			{AccountID: incomeID, CostCenterID: cc.ID, Credit: inv.Amount},
		}
		if tax.IsPositive() {
			lines = append(lines, journals.LineInput{AccountID: taxAccountID, CostCenterID: cc.ID, Credit: tax})
		}
		if _, _, err := s.ledger.Post(ctx, journals.PostingInput{
			EntryType:     journals.EntryTypeInvoice,
			ReferenceType: "customer_invoice",
			ReferenceID:   inv.ID,
			Date:          inv.Date,
			Description:   fmt.Sprintf("Customer invoice %s - tenant %d", inv.Number, inv.TenantID),
			Lines:         lines,
		}); err != nil {
			return err
		}
		return s.repo.MarkInvoicePosted(ctx, inv.ID, tax, total, cc.ID)
	})
	if err != nil {
		return CustomerInvoice{}, err
	}
	inv.TaxAmount = tax
	inv.TotalAmount = total
	inv.AccountingPosted = true
	if inv.Status == StatusDraft {
		inv.Status = StatusSubmitted
	}
	return inv, nil
}
