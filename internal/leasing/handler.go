package leasing

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

// Handler exposes lease lifecycle endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers lease routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.CreateLease)
	r.Post("/terminations", h.CreateTermination)
	r.Post("/terminations/{id}/complete", h.CompleteTermination)
	r.Post("/renewals", h.CreateRenewal)
	r.Post("/renewals/{id}/activate", h.ActivateRenewal)
	r.Post("/recognition/run", h.RunRecognition)
}

type createLeaseRequest struct {
	Number          string `json:"number" validate:"required"`
	UnitID          int64  `json:"unit_id" validate:"required"`
	TenantID        int64  `json:"tenant_id" validate:"required"`
	PropertyID      int64  `json:"property_id" validate:"required"`
	StartDate       string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate         string `json:"end_date" validate:"required,datetime=2006-01-02"`
	MonthlyRent     string `json:"monthly_rent" validate:"required"`
	SecurityDeposit string `json:"security_deposit" validate:"omitempty"`
	OtherCharges    string `json:"other_charges" validate:"omitempty"`

	ReceivableAccountID   *int64 `json:"receivable_account_id"`
	UnearnedAccountID     *int64 `json:"unearned_account_id"`
	DepositAccountID      *int64 `json:"deposit_account_id"`
	OtherChargesAccountID *int64 `json:"other_charges_account_id"`
	RentalIncomeAccountID *int64 `json:"rental_income_account_id"`

	CostCenterID               *int64 `json:"cost_center_id"`
	UnitCostCenterID           *int64 `json:"unit_cost_center_id"`
	ClassificationCostCenterID *int64 `json:"classification_cost_center_id"`
	CostCenterName             string `json:"cost_center_name"`
}

func (h *Handler) CreateLease(w http.ResponseWriter, r *http.Request) {
	var req createLeaseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	in := CreateLeaseInput{
		Number:                     req.Number,
		UnitID:                     req.UnitID,
		TenantID:                   req.TenantID,
		PropertyID:                 req.PropertyID,
		ReceivableAccountID:        req.ReceivableAccountID,
		UnearnedAccountID:          req.UnearnedAccountID,
		DepositAccountID:           req.DepositAccountID,
		OtherChargesAccountID:      req.OtherChargesAccountID,
		RentalIncomeAccountID:      req.RentalIncomeAccountID,
		CostCenterID:               req.CostCenterID,
		UnitCostCenterID:           req.UnitCostCenterID,
		ClassificationCostCenterID: req.ClassificationCostCenterID,
		CostCenterName:             req.CostCenterName,
	}
	var err error
	if in.StartDate, err = time.Parse("2006-01-02", req.StartDate); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "start_date must be YYYY-MM-DD")
		return
	}
	if in.EndDate, err = time.Parse("2006-01-02", req.EndDate); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "end_date must be YYYY-MM-DD")
		return
	}
	if in.MonthlyRent, err = decimal.NewFromString(req.MonthlyRent); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "monthly_rent must be a decimal amount")
		return
	}
	if in.SecurityDeposit, err = parseOptionalAmount(req.SecurityDeposit); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "security_deposit must be a decimal amount")
		return
	}
	if in.OtherCharges, err = parseOptionalAmount(req.OtherCharges); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "other_charges must be a decimal amount")
		return
	}

	lease, err := h.service.CreateLease(r.Context(), in)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, lease)
}

type createTerminationRequest struct {
	LeaseID                  int64  `json:"lease_id" validate:"required"`
	Kind                     string `json:"kind" validate:"required,oneof=normal early"`
	TerminationDate          string `json:"termination_date" validate:"required,datetime=2006-01-02"`
	RefundableAmount         string `json:"refundable_amount"`
	UnearnedRent             string `json:"unearned_rent"`
	Penalty                  string `json:"penalty"`
	MaintenanceCharges       string `json:"maintenance_charges"`
	PostDatedChequesAdjusted bool   `json:"post_dated_cheques_adjusted"`

	DepositAccountID     *int64 `json:"deposit_account_id"`
	TenantAccountID      *int64 `json:"tenant_account_id"`
	UnearnedAccountID    *int64 `json:"unearned_account_id"`
	PenaltyAccountID     *int64 `json:"penalty_account_id"`
	MaintenanceAccountID *int64 `json:"maintenance_account_id"`
	ChequesAccountID     *int64 `json:"cheques_account_id"`
	CostCenterID         *int64 `json:"cost_center_id"`
}

func (h *Handler) CreateTermination(w http.ResponseWriter, r *http.Request) {
	var req createTerminationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	in := CreateTerminationInput{
		LeaseID:                  req.LeaseID,
		Kind:                     TerminationKind(req.Kind),
		PostDatedChequesAdjusted: req.PostDatedChequesAdjusted,
		DepositAccountID:         req.DepositAccountID,
		TenantAccountID:          req.TenantAccountID,
		UnearnedAccountID:        req.UnearnedAccountID,
		PenaltyAccountID:         req.PenaltyAccountID,
		MaintenanceAccountID:     req.MaintenanceAccountID,
		ChequesAccountID:         req.ChequesAccountID,
		CostCenterID:             req.CostCenterID,
	}
	var err error
	if in.TerminationDate, err = time.Parse("2006-01-02", req.TerminationDate); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "termination_date must be YYYY-MM-DD")
		return
	}
	for _, field := range []struct {
		raw  string
		dst  *decimal.Decimal
		name string
	}{
		{req.RefundableAmount, &in.RefundableAmount, "refundable_amount"},
		{req.UnearnedRent, &in.UnearnedRent, "unearned_rent"},
		{req.Penalty, &in.Penalty, "penalty"},
		{req.MaintenanceCharges, &in.MaintenanceCharges, "maintenance_charges"},
	} {
		if *field.dst, err = parseOptionalAmount(field.raw); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", field.name+" must be a decimal amount")
			return
		}
	}

	termination, err := h.service.CreateTermination(r.Context(), in)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, termination)
}

func (h *Handler) CompleteTermination(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	termination, err := h.service.CompleteTermination(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, termination)
}

type createRenewalRequest struct {
	OriginalLeaseID    int64   `json:"original_lease_id" validate:"required"`
	NewStartDate       string  `json:"new_start_date" validate:"required,datetime=2006-01-02"`
	NewEndDate         string  `json:"new_end_date" validate:"required,datetime=2006-01-02"`
	NewMonthlyRent     string  `json:"new_monthly_rent" validate:"required"`
	NewSecurityDeposit *string `json:"new_security_deposit"`
}

func (h *Handler) CreateRenewal(w http.ResponseWriter, r *http.Request) {
	var req createRenewalRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	in := CreateRenewalInput{OriginalLeaseID: req.OriginalLeaseID}
	var err error
	if in.NewStartDate, err = time.Parse("2006-01-02", req.NewStartDate); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "new_start_date must be YYYY-MM-DD")
		return
	}
	if in.NewEndDate, err = time.Parse("2006-01-02", req.NewEndDate); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "new_end_date must be YYYY-MM-DD")
		return
	}
	if in.NewMonthlyRent, err = decimal.NewFromString(req.NewMonthlyRent); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "new_monthly_rent must be a decimal amount")
		return
	}
	if req.NewSecurityDeposit != nil {
		deposit, err := decimal.NewFromString(*req.NewSecurityDeposit)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "new_security_deposit must be a decimal amount")
			return
		}
		in.NewSecurityDeposit = &deposit
	}

	renewal, err := h.service.CreateRenewal(r.Context(), in)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, renewal)
}

type activateRenewalRequest struct {
	ReceivableAccountID   *int64 `json:"receivable_account_id"`
	UnearnedAccountID     *int64 `json:"unearned_account_id"`
	DepositAccountID      *int64 `json:"deposit_account_id"`
	OtherChargesAccountID *int64 `json:"other_charges_account_id"`
	RentalIncomeAccountID *int64 `json:"rental_income_account_id"`
}

func (h *Handler) ActivateRenewal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req activateRenewalRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	lease, err := h.service.ActivateRenewal(r.Context(), id, RenewalAccounts{
		ReceivableAccountID:   req.ReceivableAccountID,
		UnearnedAccountID:     req.UnearnedAccountID,
		DepositAccountID:      req.DepositAccountID,
		OtherChargesAccountID: req.OtherChargesAccountID,
		RentalIncomeAccountID: req.RentalIncomeAccountID,
	})
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, lease)
}

type runRecognitionRequest struct {
	RunDate string `json:"run_date" validate:"omitempty,datetime=2006-01-02"`
}

func (h *Handler) RunRecognition(w http.ResponseWriter, r *http.Request) {
	var req runRecognitionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	runDate := time.Now().UTC()
	if req.RunDate != "" {
		parsed, err := time.Parse("2006-01-02", req.RunDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "run_date must be YYYY-MM-DD")
			return
		}
		runDate = parsed
	}
	result, err := h.service.RunMonthlyRecognition(r.Context(), runDate)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrLeaseNotFound),
		errors.Is(err, ErrTerminationNotFound),
		errors.Is(err, ErrRenewalNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrRenewalAlreadyActive):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrInvalidDateRange),
		errors.Is(err, shared.ErrMissingAccount),
		errors.Is(err, shared.ErrMappingNotFound),
		errors.Is(err, shared.ErrNonPositiveAmount),
		errors.Is(err, shared.ErrNegativeAmount),
		errors.Is(err, shared.ErrUnbalanced):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
	default:
		h.logger.Error("leasing request failed", slog.Any("error", err))
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
