package reports

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/keystone-pm/keystone/internal/accounting/journals"
	"github.com/keystone-pm/keystone/internal/platform/httpx"
)

// Handler exposes the reporting endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers report routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/trial-balance", h.TrialBalance)
	r.Get("/general-ledger", h.GeneralLedger)
}

func (h *Handler) TrialBalance(w http.ResponseWriter, r *http.Request) {
	from, ok := parseDate(w, r, "from")
	if !ok {
		return
	}
	to, ok := parseDate(w, r, "to")
	if !ok {
		return
	}
	key := "tb"
	if from != nil {
		key += ":" + from.Format("2006-01-02")
	}
	if to != nil {
		key += ":" + to.Format("2006-01-02")
	}
	tb, err, _ := singleflightBuild(r.Context(), key, func(ctx context.Context) (interface{}, error) {
		return h.service.TrialBalance(ctx, from, to)
	})
	if err != nil {
		h.logger.Error("trial balance", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tb)
}

func (h *Handler) GeneralLedger(w http.ResponseWriter, r *http.Request) {
	f := GeneralLedgerFilter{
		EntryType:     journals.EntryType(r.URL.Query().Get("entry_type")),
		ReferenceType: r.URL.Query().Get("reference_type"),
	}
	var ok bool
	if f.AccountID, ok = parseID(w, r, "account_id"); !ok {
		return
	}
	if f.CostCenterID, ok = parseID(w, r, "cost_center_id"); !ok {
		return
	}
	if f.From, ok = parseDate(w, r, "from"); !ok {
		return
	}
	if f.To, ok = parseDate(w, r, "to"); !ok {
		return
	}
	gl, err := h.service.GeneralLedger(r.Context(), f)
	if err != nil {
		h.logger.Error("general ledger", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, gl)
}

func parseDate(w http.ResponseWriter, r *http.Request, name string) (*time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", name+" must be YYYY-MM-DD")
		return nil, false
	}
	return &t, true
}

func parseID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", name+" must be an integer")
		return 0, false
	}
	return id, true
}
