package ap

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

// Service implements the payable posting rules.
type Service struct {
	repo     Repository
	ledger   Ledger
	resolver CostCenterResolver
	maps     MappingSource
	seq      NumberSource
	tx       TxRunner
	logger   *slog.Logger
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
	}
}

// CreateInvoiceInput carries a new supplier invoice.
type CreateInvoiceInput struct {
	SupplierID int64
	Date       time.Time
	Amount     decimal.Decimal
	IsTaxable  bool
	TaxRate    decimal.Decimal
	TaxAmount  decimal.Decimal

	ExpenseAccountID  *int64
	TaxAccountID      *int64
	SupplierAccountID *int64
	CostCenterID      *int64
	UnitCostCenterID  *int64
}

// CreateInvoice records a draft supplier invoice with a SINV-xxxxx number.
func (s *Service) CreateInvoice(ctx context.Context, in CreateInvoiceInput) (SupplierInvoice, error) {
	if !in.Amount.IsPositive() {
		return SupplierInvoice{}, shared.ErrNonPositiveAmount
	}
	number, err := s.seq.Next(ctx, sharedseq.SeqSupplierInvoice)
	if err != nil {
		return SupplierInvoice{}, err
	}
	return s.repo.InsertInvoice(ctx, SupplierInvoice{
		Number:            number,
		SupplierID:        in.SupplierID,
		Date:              in.Date,
		Amount:            in.Amount,
		IsTaxable:         in.IsTaxable,
		TaxRate:           in.TaxRate,
		TaxAmount:         in.TaxAmount,
		Status:            StatusDraft,
		ExpenseAccountID:  in.ExpenseAccountID,
		TaxAccountID:      in.TaxAccountID,
		SupplierAccountID: in.SupplierAccountID,
		CostCenterID:      in.CostCenterID,
		UnitCostCenterID:  in.UnitCostCenterID,
	})
}

// PostInvoice posts Debit expense (and tax when taxable), Credit supplier
// payable for the tax-inclusive total.
func (s *Service) PostInvoice(ctx context.Context, id int64) (SupplierInvoice, error) {
	inv, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return SupplierInvoice{}, err
	}
	if !inv.Amount.IsPositive() {
		return SupplierInvoice{}, shared.ErrNonPositiveAmount
	}
	m, err := s.maps.Require(ctx, mappings.TxSupplierInvoice)
	if err != nil {
		return SupplierInvoice{}, err
	}

	expenseID := m.DebitAccountID
	if inv.ExpenseAccountID != nil && *inv.ExpenseAccountID != 0 {
		expenseID = *inv.ExpenseAccountID
	}
	supplierID := m.CreditAccountID
	if inv.SupplierAccountID != nil && *inv.SupplierAccountID != 0 {
		supplierID = *inv.SupplierAccountID
	}
	if expenseID == 0 || supplierID == 0 {
		return SupplierInvoice{}, fmt.Errorf("ap: expense and supplier accounts: %w", shared.ErrMissingAccount)
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
			return SupplierInvoice{}, fmt.Errorf("ap: tax account: %w", shared.ErrMissingAccount)
		}
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		cc, err := s.resolveSupplierCostCenter(ctx, inv.SupplierID, inv.CostCenterID, inv.UnitCostCenterID)
		if err != nil {
			return err
		}
		lines := []journals.LineInput{
			{AccountID: expenseID, CostCenterID: cc.ID, Debit: inv.Amount},
		}
		if tax.IsPositive() {
			lines = append(lines, journals.LineInput{AccountID: taxAccountID, CostCenterID: cc.ID, Debit: tax})
		}
		lines = append(lines, journals.LineInput{AccountID: supplierID, CostCenterID: cc.ID, Credit: total})

		if _, _, err := s.ledger.Post(ctx, journals.PostingInput{
			EntryType:     journals.EntryTypeInvoice,
			ReferenceType: "supplier_invoice",
			ReferenceID:   inv.ID,
			Date:          inv.Date,
			Description:   fmt.Sprintf("Supplier invoice %s - supplier %d", inv.Number, inv.SupplierID),
			Lines:         lines,
		}); err != nil {
			return err
		}
		return s.repo.MarkInvoicePosted(ctx, inv.ID, tax, total, supplierID, cc.ID)
	})
	if err != nil {
		return SupplierInvoice{}, err
	}
	inv.TaxAmount = tax
	inv.TotalAmount = total
	inv.AccountingPosted = true
	if inv.Status == StatusDraft {
		inv.Status = StatusSubmitted
	}
	return inv, nil
}

// CreateVoucherInput carries a new payment voucher.
type CreateVoucherInput struct {
	SupplierID    int64
	Date          time.Time
	Amount        decimal.Decimal
	PaymentMethod PaymentMethod

	SupplierAccountID *int64
	CashAccountID     *int64
	BankAccountID     *int64
	ChequesAccountID  *int64
	CostCenterID      *int64
	UnitCostCenterID  *int64
}

// CreateVoucher records a draft payment voucher with a PV-xxxxx number.
func (s *Service) CreateVoucher(ctx context.Context, in CreateVoucherInput) (PaymentVoucher, error) {
	if !in.Amount.IsPositive() {
		return PaymentVoucher{}, shared.ErrNonPositiveAmount
	}
	if !in.PaymentMethod.Valid() {
		return PaymentVoucher{}, fmt.Errorf("%w: %q", shared.ErrUnknownPaymentMethod, in.PaymentMethod)
	}
	number, err := s.seq.Next(ctx, sharedseq.SeqPaymentVoucher)
	if err != nil {
		return PaymentVoucher{}, err
	}
	return s.repo.InsertVoucher(ctx, PaymentVoucher{
		Number:            number,
		SupplierID:        in.SupplierID,
		Date:              in.Date,
		Amount:            in.Amount,
		PaymentMethod:     in.PaymentMethod,
		Status:            StatusDraft,
		SupplierAccountID: in.SupplierAccountID,
		CashAccountID:     in.CashAccountID,
		BankAccountID:     in.BankAccountID,
		ChequesAccountID:  in.ChequesAccountID,
		CostCenterID:      in.CostCenterID,
		UnitCostCenterID:  in.UnitCostCenterID,
	})
}

// paymentCreditAccount picks the settlement account by payment method, falling
// back to the mapping defaults.
func paymentCreditAccount(v PaymentVoucher, m mappings.Mapping) (int64, error) {
	var explicit, fallback *int64
	switch v.PaymentMethod {
	case MethodCash:
		explicit, fallback = v.CashAccountID, m.CashAccountID
	case MethodBank:
		explicit, fallback = v.BankAccountID, m.BankAccountID
	case MethodCheque:
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
	return 0, fmt.Errorf("ap: no account for payment method %q: %w", v.PaymentMethod, shared.ErrMissingAccount)
}

// PostVoucher posts Debit supplier payable, Credit cash/bank/cheques-issued.
func (s *Service) PostVoucher(ctx context.Context, id int64) (PaymentVoucher, error) {
	v, err := s.repo.GetVoucher(ctx, id)
	if err != nil {
		return PaymentVoucher{}, err
	}
	m, err := s.maps.Require(ctx, mappings.TxPaymentVoucher)
	if err != nil {
		return PaymentVoucher{}, err
	}
	creditID, err := paymentCreditAccount(v, m)
	if err != nil {
		return PaymentVoucher{}, err
	}
	supplierID := m.DebitAccountID
	if v.SupplierAccountID != nil && *v.SupplierAccountID != 0 {
		supplierID = *v.SupplierAccountID
	}
	if supplierID == 0 {
		return PaymentVoucher{}, fmt.Errorf("ap: supplier payable account: %w", shared.ErrMissingAccount)
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		cc, err := s.resolveSupplierCostCenter(ctx, v.SupplierID, v.CostCenterID, v.UnitCostCenterID)
		if err != nil {
			return err
		}
		if _, _, err := s.ledger.Post(ctx, journals.PostingInput{
			EntryType:     journals.EntryTypePayment,
			ReferenceType: "payment_voucher",
			ReferenceID:   v.ID,
			Date:          v.Date,
			Description:   fmt.Sprintf("Payment voucher %s - supplier %d", v.Number, v.SupplierID),
			Lines: []journals.LineInput{
				{AccountID: supplierID, CostCenterID: cc.ID, Debit: v.Amount},
				{AccountID: creditID, CostCenterID: cc.ID, Credit: v.Amount},
			},
		}); err != nil {
			return err
		}
		return s.repo.MarkVoucherPosted(ctx, v.ID, supplierID, cc.ID)
	})
	if err != nil {
		return PaymentVoucher{}, err
	}
	v.AccountingPosted = true
	if v.Status == StatusDraft {
		v.Status = StatusSubmitted
	}
	v.SupplierAccountID = &supplierID
	return v, nil
}

func (s *Service) resolveSupplierCostCenter(ctx context.Context, supplierID int64, explicit, unitCC *int64) (costcenters.CostCenter, error) {
	return s.resolver.Resolve(ctx, costcenters.Ref{
		Kind:             costcenters.KindSupplier,
		EntityID:         supplierID,
		Name:             fmt.Sprintf("Supplier %d", supplierID),
		ExplicitID:       explicit,
		UnitCostCenterID: unitCC,
	})
}
