package journals

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

// Handler exposes journal read endpoints and manual journal creation.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

type manualLineRequest struct {
	AccountID    int64  `json:"account_id" validate:"required"`
	CostCenterID int64  `json:"cost_center_id" validate:"required"`
	Debit        string `json:"debit" validate:"omitempty,numeric"`
	Credit       string `json:"credit" validate:"omitempty,numeric"`
}

type manualJournalRequest struct {
	Date        string              `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Description string              `json:"description" validate:"required"`
	Lines       []manualLineRequest `json:"lines" validate:"required,min=2,dive"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	f := Filter{
		EntryType:     EntryType(r.URL.Query().Get("entry_type")),
		ReferenceType: r.URL.Query().Get("reference_type"),
		Period:        r.URL.Query().Get("period"),
	}
	if raw := r.URL.Query().Get("reference_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "reference_id must be an integer")
			return
		}
		f.ReferenceID = id
	}
	entries, err := h.service.List(r.Context(), f)
	if err != nil {
		h.logger.Error("list journals", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be an integer")
		return
	}
	entry, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrEntryNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Error("get journal", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

// CreateManual posts a caller-supplied balanced entry. Unlike document
// postings there is no idempotency key; every accepted request creates a new
// numbered entry.
func (h *Handler) CreateManual(w http.ResponseWriter, r *http.Request) {
	var req manualJournalRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	in := PostingInput{
		EntryType:   EntryTypeManual,
		Description: req.Description,
		Lines:       make([]LineInput, 0, len(req.Lines)),
	}
	if req.Date != "" {
		date, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
			return
		}
		in.Date = date
	}
	for _, line := range req.Lines {
		debit, err := parseAmount(line.Debit)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "debit must be a decimal amount")
			return
		}
		credit, err := parseAmount(line.Credit)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "credit must be a decimal amount")
			return
		}
		in.Lines = append(in.Lines, LineInput{
			AccountID:    line.AccountID,
			CostCenterID: line.CostCenterID,
			Debit:        debit,
			Credit:       credit,
		})
	}

	entry, _, err := h.service.Post(r.Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrUnbalanced),
			errors.Is(err, shared.ErrTooFewLines),
			errors.Is(err, shared.ErrLineBothSides),
			errors.Is(err, shared.ErrNegativeAmount),
			errors.Is(err, shared.ErrNonPositiveAmount),
			errors.Is(err, shared.ErrMissingAccount),
			errors.Is(err, shared.ErrMissingCostCenter):
			httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		default:
			h.logger.Error("post manual journal", slog.Any("error", err))
			httpx.RespondError(w, err)
		}
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func parseAmount(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}
