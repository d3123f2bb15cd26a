package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/keystone-pm/keystone/internal/accounting/accounts"
	"github.com/keystone-pm/keystone/internal/accounting/costcenters"
	"github.com/keystone-pm/keystone/internal/accounting/journals"
	"github.com/keystone-pm/keystone/internal/accounting/mappings"
	"github.com/keystone-pm/keystone/internal/accounting/reports"
	"github.com/keystone-pm/keystone/internal/ap"
	"github.com/keystone-pm/keystone/internal/app"
	"github.com/keystone-pm/keystone/internal/ar"
	"github.com/keystone-pm/keystone/internal/cheques"
	"github.com/keystone-pm/keystone/internal/leasing"
	"github.com/keystone-pm/keystone/internal/legal"
	"github.com/keystone-pm/keystone/internal/maintenance"
	"github.com/keystone-pm/keystone/internal/platform/db"
	"github.com/keystone-pm/keystone/internal/shared"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping server startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	runner := db.NewRunner(pool)

	accountsService := accounts.NewService(accounts.NewRepository(pool))
	mappingsService := mappings.NewService(mappings.NewRepository(pool))
	resolver := costcenters.NewResolver(costcenters.NewRepository(pool))
	journalsService := journals.NewService(journals.NewRepository(pool), runner)
	reportsService := reports.NewService(reports.NewRepository(pool))
	sequences := shared.NewSequenceStore(pool)

	// A mapping missing for any posting rule fails the boot, not the first
	// document.
	if err := mappingsService.ValidateStartup(ctx, mappings.All...); err != nil {
		logger.Error("transaction mappings incomplete", slog.Any("error", err))
		os.Exit(1)
	}

	leasingService := leasing.NewService(leasing.NewRepository(pool), journalsService,
		resolver, mappingsService, sequences, runner, logger)
	arService := ar.NewService(ar.NewRepository(pool), journalsService, accountsService,
		resolver, mappingsService, sequences, runner, logger)
	apService := ap.NewService(ap.NewRepository(pool), journalsService,
		resolver, mappingsService, sequences, runner, logger)
	maintenanceService := maintenance.NewService(maintenance.NewRepository(pool),
		journalsService, resolver, mappingsService, runner, logger)
	chequesService := cheques.NewService(cheques.NewRepository(pool), journalsService,
		resolver, mappingsService, runner, logger)
	legalService := legal.NewService(legal.NewRepository(pool), nil, runner, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Pool:               pool,
		AccountsHandler:    accounts.NewHandler(logger, accountsService),
		MappingsHandler:    mappings.NewHandler(logger, mappingsService),
		JournalsHandler:    journals.NewHandler(logger, journalsService),
		ReportsHandler:     reports.NewHandler(logger, reportsService),
		LeasingHandler:     leasing.NewHandler(logger, leasingService),
		ARHandler:          ar.NewHandler(logger, arService),
		APHandler:          ap.NewHandler(logger, apService),
		MaintenanceHandler: maintenance.NewHandler(logger, maintenanceService),
		ChequesHandler:     cheques.NewHandler(logger, chequesService),
		LegalHandler:       legal.NewHandler(logger, legalService),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
