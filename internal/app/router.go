package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/keystone-pm/keystone/internal/accounting/accounts"
	"github.com/keystone-pm/keystone/internal/accounting/journals"
	"github.com/keystone-pm/keystone/internal/accounting/mappings"
	"github.com/keystone-pm/keystone/internal/accounting/reports"
	"github.com/keystone-pm/keystone/internal/ap"
	"github.com/keystone-pm/keystone/internal/ar"
	"github.com/keystone-pm/keystone/internal/cheques"
	"github.com/keystone-pm/keystone/internal/leasing"
	"github.com/keystone-pm/keystone/internal/legal"
	"github.com/keystone-pm/keystone/internal/maintenance"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config
	Pool   *pgxpool.Pool

	AccountsHandler    *accounts.Handler
	MappingsHandler    *mappings.Handler
	JournalsHandler    *journals.Handler
	ReportsHandler     *reports.Handler
	LeasingHandler     *leasing.Handler
	ARHandler          *ar.Handler
	APHandler          *ap.Handler
	MaintenanceHandler *maintenance.Handler
	ChequesHandler     *cheques.Handler
	LegalHandler       *legal.Handler
}

// NewRouter constructs the chi.Router with Keystone defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if params.Pool != nil {
			if err := params.Pool.Ping(req.Context()); err != nil {
				http.Error(w, "database unreachable", http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(api chi.Router) {
		mount(api, "/accounts", params.AccountsHandler)
		mount(api, "/mappings", params.MappingsHandler)
		mount(api, "/journals", params.JournalsHandler)
		mount(api, "/reports", params.ReportsHandler)
		mount(api, "/leases", params.LeasingHandler)
		mount(api, "/ar", params.ARHandler)
		mount(api, "/ap", params.APHandler)
		mount(api, "/maintenance", params.MaintenanceHandler)
		mount(api, "/cheques", params.ChequesHandler)
		mount(api, "/legal-cases", params.LegalHandler)
	})

	return r
}

type routeMounter interface {
	MountRoutes(r chi.Router)
}

func mount(r chi.Router, pattern string, h routeMounter) {
	if h == nil {
		return
	}
	r.Route(pattern, h.MountRoutes)
}
