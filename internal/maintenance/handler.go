package maintenance

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

// Handler exposes maintenance contract endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers maintenance routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/contracts", h.CreateContract)
	r.Post("/contracts/{id}/activate", h.Activate)
	r.Post("/amortization/run", h.RunAmortization)
}

type createContractRequest struct {
	Number      string `json:"number" validate:"required"`
	SupplierID  int64  `json:"supplier_id" validate:"required"`
	PropertyID  int64  `json:"property_id" validate:"required"`
	UnitID      *int64 `json:"unit_id"`
	StartDate   string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate     string `json:"end_date" validate:"required,datetime=2006-01-02"`
	TotalAmount string `json:"total_amount" validate:"required"`

	PrepaidAccountID  *int64 `json:"prepaid_account_id"`
	ExpenseAccountID  *int64 `json:"expense_account_id"`
	SupplierAccountID *int64 `json:"supplier_account_id"`
	CostCenterID      *int64 `json:"cost_center_id"`
	UnitCostCenterID  *int64 `json:"unit_cost_center_id"`
}

func (h *Handler) CreateContract(w http.ResponseWriter, r *http.Request) {
	var req createContractRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "start_date must be YYYY-MM-DD")
		return
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "end_date must be YYYY-MM-DD")
		return
	}
	total, err := decimal.NewFromString(req.TotalAmount)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "total_amount must be a decimal amount")
		return
	}
	contract, err := h.service.CreateContract(r.Context(), CreateContractInput{
		Number:            req.Number,
		SupplierID:        req.SupplierID,
		PropertyID:        req.PropertyID,
		UnitID:            req.UnitID,
		StartDate:         start,
		EndDate:           end,
		TotalAmount:       total,
		PrepaidAccountID:  req.PrepaidAccountID,
		ExpenseAccountID:  req.ExpenseAccountID,
		SupplierAccountID: req.SupplierAccountID,
		CostCenterID:      req.CostCenterID,
		UnitCostCenterID:  req.UnitCostCenterID,
	})
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, contract)
}

func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be an integer")
		return
	}
	contract, err := h.service.Activate(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, contract)
}

type runAmortizationRequest struct {
	RunDate string `json:"run_date" validate:"omitempty,datetime=2006-01-02"`
}

func (h *Handler) RunAmortization(w http.ResponseWriter, r *http.Request) {
	var req runAmortizationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	runDate := time.Now().UTC()
	if req.RunDate != "" {
		var err error
		if runDate, err = time.Parse("2006-01-02", req.RunDate); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "run_date must be YYYY-MM-DD")
			return
		}
	}
	result, err := h.service.RunMonthlyAmortization(r.Context(), runDate)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrContractNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrMissingAccount),
		errors.Is(err, shared.ErrMappingNotFound),
		errors.Is(err, shared.ErrNonPositiveAmount):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
	default:
		h.logger.Error("maintenance request failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
