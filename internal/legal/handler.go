package legal

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/keystone-pm/keystone/internal/platform/httpx"
)

// Handler exposes legal case endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers legal case routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.FileCase)
	r.Post("/{id}/status", h.AdvanceStatus)
	r.Get("/{id}/history", h.History)
}

type fileCaseRequest struct {
	Number   string `json:"number" validate:"required"`
	LeaseID  int64  `json:"lease_id" validate:"required"`
	TenantID int64  `json:"tenant_id" validate:"required"`
	UnitID   int64  `json:"unit_id" validate:"required"`
	Reason   string `json:"reason"`
	FiledOn  string `json:"filed_on" validate:"required,datetime=2006-01-02"`
}

func (h *Handler) FileCase(w http.ResponseWriter, r *http.Request) {
	var req fileCaseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	filedOn, err := time.Parse("2006-01-02", req.FiledOn)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "filed_on must be YYYY-MM-DD")
		return
	}
	c, err := h.service.FileCase(r.Context(), FileCaseInput{
		Number:   req.Number,
		LeaseID:  req.LeaseID,
		TenantID: req.TenantID,
		UnitID:   req.UnitID,
		Reason:   req.Reason,
		FiledOn:  filedOn,
	})
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

type advanceStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=in_progress judgment_passed closed_tenant_won closed_owner_won"`
	Note   string `json:"note"`
}

func (h *Handler) AdvanceStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req advanceStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	c, err := h.service.AdvanceStatus(r.Context(), id, CaseStatus(req.Status), req.Note)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	history, err := h.service.History(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, history)
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrCaseNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidTransition):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error("legal request failed", slog.Any("error", err))
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
