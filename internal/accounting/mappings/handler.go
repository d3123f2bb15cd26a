package mappings

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/keystone-pm/keystone/internal/accounting/shared"
	"github.com/keystone-pm/keystone/internal/platform/httpx"
)

// Handler exposes transaction mapping endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers mapping routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Put("/{type}", h.Upsert)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("mappings list failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

type upsertMappingRequest struct {
	DebitAccountID   int64  `json:"debit_account_id" validate:"required"`
	CreditAccountID  int64  `json:"credit_account_id" validate:"required"`
	TaxAccountID     *int64 `json:"tax_account_id"`
	CashAccountID    *int64 `json:"cash_account_id"`
	BankAccountID    *int64 `json:"bank_account_id"`
	ChequesAccountID *int64 `json:"cheques_account_id"`
	CostCenterID     *int64 `json:"cost_center_id"`
	IsActive         *bool  `json:"is_active"`
}

func (h *Handler) Upsert(w http.ResponseWriter, r *http.Request) {
	tt := TransactionType(chi.URLParam(r, "type"))
	if !knownType(tt) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown transaction type")
		return
	}
	var req upsertMappingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	mapping, err := h.service.Upsert(r.Context(), Mapping{
		TransactionType:  tt,
		DebitAccountID:   req.DebitAccountID,
		CreditAccountID:  req.CreditAccountID,
		TaxAccountID:     req.TaxAccountID,
		CashAccountID:    req.CashAccountID,
		BankAccountID:    req.BankAccountID,
		ChequesAccountID: req.ChequesAccountID,
		CostCenterID:     req.CostCenterID,
		IsActive:         active,
	})
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrMissingAccount):
			httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		default:
			h.logger.Error("mappings upsert failed", slog.Any("error", err))
			httpx.RespondError(w, err)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, mapping)
}

func knownType(tt TransactionType) bool {
	for _, t := range All {
		if t == tt {
			return true
		}
	}
	return false
}
