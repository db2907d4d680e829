package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/harrypeter07/billsync/api/routes"
	customersvc "github.com/harrypeter07/billsync/internal/customers"
	"github.com/harrypeter07/billsync/internal/datapath"
	employeesvc "github.com/harrypeter07/billsync/internal/employees"
	invoicesvc "github.com/harrypeter07/billsync/internal/invoices"
	"github.com/harrypeter07/billsync/internal/localstore"
	productsvc "github.com/harrypeter07/billsync/internal/products"
	"github.com/harrypeter07/billsync/internal/remote"
	"github.com/harrypeter07/billsync/internal/sequence"
	"github.com/harrypeter07/billsync/internal/session"
	"github.com/harrypeter07/billsync/internal/stores"
	"github.com/harrypeter07/billsync/internal/syncqueue"
	"github.com/harrypeter07/billsync/pkg/config"
	"github.com/harrypeter07/billsync/pkg/db"
	"github.com/harrypeter07/billsync/pkg/logger"
	"github.com/harrypeter07/billsync/pkg/migrate"
	"github.com/harrypeter07/billsync/pkg/render"
	"github.com/harrypeter07/billsync/pkg/storage"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "server"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "server",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.LocalDB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to open local database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing local database", err)
		}
	}()

	if err := migrate.MaybeRun(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run migrations", err)
		os.Exit(1)
	}

	remoteStore, err := remote.Dial(cfg.Remote)
	if err != nil {
		logg.Error(context.Background(), "failed to dial remote store", err)
		os.Exit(1)
	}

	store, err := stores.Ensure(context.Background(), dbClient.DB(), cfg.Store)
	if err != nil {
		logg.Error(context.Background(), "failed to resolve store identity", err)
		os.Exit(1)
	}

	sessions := session.NewManager(dbClient.DB(), cfg.Session.TTL)
	queue := syncqueue.NewRepository(dbClient.DB())
	local := localstore.New(dbClient.DB())

	writer, err := datapath.NewWriter(datapath.WriterParams{
		Logger:   logg,
		DB:       dbClient.DB(),
		Local:    local,
		Queue:    queue,
		Remote:   remoteStore,
		Sessions: sessions,
		Mode:     cfg.FeatureFlags.Mode(),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to build write path", err)
		os.Exit(1)
	}

	var renderer render.Renderer
	if cfg.Render.BaseURL != "" {
		renderer, err = render.NewClient(cfg.Render.BaseURL, cfg.Render.Timeout)
		if err != nil {
			logg.Error(context.Background(), "failed to build render client", err)
			os.Exit(1)
		}
	}
	var uploader storage.Uploader
	if cfg.Storage.UploadURL != "" {
		uploader, err = storage.NewClient(cfg.Storage.UploadURL, cfg.Storage.APIKey, cfg.Storage.Timeout)
		if err != nil {
			logg.Error(context.Background(), "failed to build storage client", err)
			os.Exit(1)
		}
	}

	productService, err := productsvc.NewService(writer)
	if err != nil {
		logg.Error(context.Background(), "failed to build product service", err)
		os.Exit(1)
	}
	customerService, err := customersvc.NewService(writer)
	if err != nil {
		logg.Error(context.Background(), "failed to build customer service", err)
		os.Exit(1)
	}
	invoiceService, err := invoicesvc.NewService(invoicesvc.ServiceParams{
		Logger:   logg,
		Writer:   writer,
		Numbers:  sequence.NewInvoiceNumberGenerator(dbClient.DB()),
		Renderer: renderer,
		Uploader: uploader,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to build invoice service", err)
		os.Exit(1)
	}
	employeeService, err := employeesvc.NewService(employeesvc.ServiceParams{
		DB:       dbClient.DB(),
		Codes:    sequence.NewEmployeeCodeGenerator(dbClient.DB()),
		Sessions: sessions,
		Password: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to build employee service", err)
		os.Exit(1)
	}

	addr := ":" + cfg.App.Port
	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:    cfg,
			Logger:    logg,
			DB:        dbClient,
			Store:     *store,
			Sessions:  sessions,
			Queue:     queue,
			Products:  productService,
			Customers: customerService,
			Invoices:  invoiceService,
			Employees: employeeService,
		}),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":        cfg.App.Env,
		"addr":       addr,
		"store_code": store.Code,
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(context.Background(), "server shutdown failed", err)
		}
	}()

	logg.Info(ctx, "starting server")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "server stopped unexpectedly", err)
		os.Exit(1)
	}
}
