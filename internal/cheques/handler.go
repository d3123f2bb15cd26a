package cheques

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

// Handler exposes cheque register endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers cheque routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.Register)
	r.Post("/{id}/clear", h.MarkCleared)
	r.Post("/{id}/bounce", h.MarkBounced)
}

type registerRequest struct {
	Number     string `json:"number" validate:"required"`
	Direction  string `json:"direction" validate:"required,oneof=incoming outgoing"`
	ChequeDate string `json:"cheque_date" validate:"required,datetime=2006-01-02"`
	Amount     string `json:"amount" validate:"required"`
	BankID     int64  `json:"bank_id" validate:"required"`
	PartyID    int64  `json:"party_id" validate:"required"`

	BankAccountID    *int64 `json:"bank_account_id"`
	ChequesAccountID *int64 `json:"cheques_account_id"`
	CostCenterID     *int64 `json:"cost_center_id"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	chequeDate, err := time.Parse("2006-01-02", req.ChequeDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "cheque_date must be YYYY-MM-DD")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "amount must be a decimal amount")
		return
	}
	cheque, err := h.service.Register(r.Context(), RegisterInput{
		Number:           req.Number,
		Direction:        Direction(req.Direction),
		ChequeDate:       chequeDate,
		Amount:           amount,
		BankID:           req.BankID,
		PartyID:          req.PartyID,
		BankAccountID:    req.BankAccountID,
		ChequesAccountID: req.ChequesAccountID,
		CostCenterID:     req.CostCenterID,
	})
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, cheque)
}

type clearRequest struct {
	ClearedOn string `json:"cleared_on" validate:"omitempty,datetime=2006-01-02"`
}

func (h *Handler) MarkCleared(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req clearRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	var clearedOn time.Time
	if req.ClearedOn != "" {
		var err error
		if clearedOn, err = time.Parse("2006-01-02", req.ClearedOn); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "cleared_on must be YYYY-MM-DD")
			return
		}
	}
	cheque, err := h.service.MarkCleared(r.Context(), id, clearedOn)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, cheque)
}

func (h *Handler) MarkBounced(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	cheque, err := h.service.MarkBounced(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, cheque)
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrChequeNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrChequeBounced):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrMissingAccount),
		errors.Is(err, shared.ErrMappingNotFound),
		errors.Is(err, shared.ErrNonPositiveAmount):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
	default:
		h.logger.Error("cheques request failed", slog.Any("error", err))
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
