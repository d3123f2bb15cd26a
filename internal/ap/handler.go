package ap

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/keystone-pm/keystone/internal/accounting/shared"
	"github.com/keystone-pm/keystone/internal/platform/httpx"
)

// Handler exposes payable document endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers payable routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/invoices", h.CreateInvoice)
	r.Post("/invoices/{id}/post", h.PostInvoice)
	r.Post("/vouchers", h.CreateVoucher)
	r.Post("/vouchers/{id}/post", h.PostVoucher)
}

type createInvoiceRequest struct {
	SupplierID int64  `json:"supplier_id" validate:"required"`
	Date       string `json:"date" validate:"required,datetime=2006-01-02"`
	Amount     string `json:"amount" validate:"required"`
	IsTaxable  bool   `json:"is_taxable"`
	TaxRate    string `json:"tax_rate"`
	TaxAmount  string `json:"tax_amount"`

	ExpenseAccountID  *int64 `json:"expense_account_id"`
	TaxAccountID      *int64 `json:"tax_account_id"`
	SupplierAccountID *int64 `json:"supplier_account_id"`
	CostCenterID      *int64 `json:"cost_center_id"`
	UnitCostCenterID  *int64 `json:"unit_cost_center_id"`
}

func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req createInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
		return
	}
	in := CreateInvoiceInput{
		SupplierID:        req.SupplierID,
		Date:              date,
		IsTaxable:         req.IsTaxable,
		ExpenseAccountID:  req.ExpenseAccountID,
		TaxAccountID:      req.TaxAccountID,
		SupplierAccountID: req.SupplierAccountID,
		CostCenterID:      req.CostCenterID,
		UnitCostCenterID:  req.UnitCostCenterID,
	}
	if in.Amount, err = decimal.NewFromString(req.Amount); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "amount must be a decimal amount")
		return
	}
	if in.TaxRate, err = parseOptionalAmount(req.TaxRate); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "tax_rate must be a decimal amount")
		return
	}
	if in.TaxAmount, err = parseOptionalAmount(req.TaxAmount); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "tax_amount must be a decimal amount")
		return
	}
	invoice, err := h.service.CreateInvoice(r.Context(), in)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, invoice)
}

func (h *Handler) PostInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	invoice, err := h.service.PostInvoice(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoice)
}

type createVoucherRequest struct {
	SupplierID    int64  `json:"supplier_id" validate:"required"`
	Date          string `json:"date" validate:"required,datetime=2006-01-02"`
	Amount        string `json:"amount" validate:"required"`
	PaymentMethod string `json:"payment_method" validate:"required,oneof=cash bank cheque"`

	SupplierAccountID *int64 `json:"supplier_account_id"`
	CashAccountID     *int64 `json:"cash_account_id"`
	BankAccountID     *int64 `json:"bank_account_id"`
	ChequesAccountID  *int64 `json:"cheques_account_id"`
	CostCenterID      *int64 `json:"cost_center_id"`
	UnitCostCenterID  *int64 `json:"unit_cost_center_id"`
}

func (h *Handler) CreateVoucher(w http.ResponseWriter, r *http.Request) {
	var req createVoucherRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "amount must be a decimal amount")
		return
	}
	voucher, err := h.service.CreateVoucher(r.Context(), CreateVoucherInput{
		SupplierID:        req.SupplierID,
		Date:              date,
		Amount:            amount,
		PaymentMethod:     PaymentMethod(req.PaymentMethod),
		SupplierAccountID: req.SupplierAccountID,
		CashAccountID:     req.CashAccountID,
		BankAccountID:     req.BankAccountID,
		ChequesAccountID:  req.ChequesAccountID,
		CostCenterID:      req.CostCenterID,
		UnitCostCenterID:  req.UnitCostCenterID,
	})
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, voucher)
}

func (h *Handler) PostVoucher(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	voucher, err := h.service.PostVoucher(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, voucher)
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvoiceNotFound), errors.Is(err, ErrVoucherNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrMissingAccount),
		errors.Is(err, shared.ErrUnknownPaymentMethod),
		errors.Is(err, shared.ErrMappingNotFound),
		errors.Is(err, shared.ErrNonPositiveAmount):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
	default:
		h.logger.Error("ap request failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be an integer")
		return 0, false
	}
	return id, true
}

func parseOptionalAmount(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}
