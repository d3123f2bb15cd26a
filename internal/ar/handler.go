package ar

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

// Handler exposes receivable document endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers receivable routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/receipts", h.CreateReceipt)
	r.Post("/receipts/{id}/post", h.PostReceipt)
	r.Post("/invoices", h.CreateInvoice)
	r.Post("/invoices/{id}/post", h.PostInvoice)
}

type createReceiptRequest struct {
	TenantID      int64  `json:"tenant_id" validate:"required"`
	LeaseID       *int64 `json:"lease_id"`
	Date          string `json:"date" validate:"required,datetime=2006-01-02"`
	Amount        string `json:"amount" validate:"required"`
	PaymentMethod string `json:"payment_method" validate:"required,oneof=cash bank cheque post_dated_cheque"`

	CashAccountID    *int64 `json:"cash_account_id"`
	BankAccountID    *int64 `json:"bank_account_id"`
	ChequesAccountID *int64 `json:"cheques_account_id"`
	TenantAccountID  *int64 `json:"tenant_account_id"`
	CostCenterID     *int64 `json:"cost_center_id"`
	UnitCostCenterID *int64 `json:"unit_cost_center_id"`
}

func (h *Handler) CreateReceipt(w http.ResponseWriter, r *http.Request) {
	var req createReceiptRequest
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
	voucher, err := h.service.CreateReceipt(r.Context(), CreateReceiptInput{
		TenantID:         req.TenantID,
		LeaseID:          req.LeaseID,
		Date:             date,
		Amount:           amount,
		PaymentMethod:    PaymentMethod(req.PaymentMethod),
		CashAccountID:    req.CashAccountID,
		BankAccountID:    req.BankAccountID,
		ChequesAccountID: req.ChequesAccountID,
		TenantAccountID:  req.TenantAccountID,
		CostCenterID:     req.CostCenterID,
		UnitCostCenterID: req.UnitCostCenterID,
	})
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, voucher)
}

func (h *Handler) PostReceipt(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	voucher, err := h.service.PostReceipt(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, voucher)
}

type createInvoiceRequest struct {
	TenantID  int64  `json:"tenant_id" validate:"required"`
	LeaseID   *int64 `json:"lease_id"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Amount    string `json:"amount" validate:"required"`
	IsTaxable bool   `json:"is_taxable"`
	TaxRate   string `json:"tax_rate"`
	TaxAmount string `json:"tax_amount"`

	TenantAccountID  *int64 `json:"tenant_account_id"`
	IncomeAccountID  *int64 `json:"income_account_id"`
	TaxAccountID     *int64 `json:"tax_account_id"`
	CostCenterID     *int64 `json:"cost_center_id"`
	UnitCostCenterID *int64 `json:"unit_cost_center_id"`
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
		TenantID:         req.TenantID,
		LeaseID:          req.LeaseID,
		Date:             date,
		IsTaxable:        req.IsTaxable,
		TenantAccountID:  req.TenantAccountID,
		IncomeAccountID:  req.IncomeAccountID,
		TaxAccountID:     req.TaxAccountID,
		CostCenterID:     req.CostCenterID,
		UnitCostCenterID: req.UnitCostCenterID,
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

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrReceiptNotFound), errors.Is(err, ErrInvoiceNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrMissingAccount),
		errors.Is(err, shared.ErrWrongAccountType),
		errors.Is(err, shared.ErrUnknownPaymentMethod),
		errors.Is(err, shared.ErrMappingNotFound),
		errors.Is(err, shared.ErrNonPositiveAmount):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
	default:
		h.logger.Error("ar request failed", slog.Any("error", err))
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
