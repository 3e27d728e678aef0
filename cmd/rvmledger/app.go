package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ekosetor/rvmledger/internal/db"
	"github.com/ekosetor/rvmledger/internal/handlers"
	"github.com/ekosetor/rvmledger/internal/logger"
	"github.com/ekosetor/rvmledger/internal/machine"
	"github.com/ekosetor/rvmledger/internal/repository/postgres"
	"github.com/ekosetor/rvmledger/internal/service/dashboard"
	"github.com/ekosetor/rvmledger/internal/service/harvest"
	"github.com/ekosetor/rvmledger/internal/service/verify"
)

type App struct {
	ListenAddr string
	Handler    http.Handler

	harvester *harvest.Harvester
	verifier  *verify.Verifier
	logger    logger.Logger
}

func NewApp(ctx context.Context, c *Config) (*App, error) {
	// Initialize logger
	log, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	// Initialize repositories
	storage := postgres.NewStorage(pool)

	// Initialize vendor client and services
	machineClient := machine.NewClient(c.MachineAddr, log)
	harvester := harvest.New(storage, machineClient, log, harvest.WithPageSize(c.HarvestPageSize))
	verifier := verify.New(storage, machineClient, log)
	dashboards := dashboard.NewService(storage, log)

	mux := handlers.NewRouter(
		harvester,
		verifier,
		dashboards,
		storage.User(),
		log,
	)

	return &App{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
		harvester:  harvester,
		verifier:   verifier,
		logger:     log,
	}, nil
}

// RunOnce performs a single harvest followed by a verification sweep.
// This is the manual-trigger/cron entry point.
func (a *App) RunOnce(ctx context.Context) error {
	report, err := a.harvester.Run(ctx)
	if err != nil {
		return fmt.Errorf("harvest: %w", err)
	}

	a.logger.Info("Harvest report",
		"users", report.Users,
		"inserted", report.Inserted,
		"skipped", report.Skipped,
		"failed", report.Failed,
	)

	return a.verifier.VerifyAll(ctx)
}

// RunServer starts the http server and closes gracefully on context cancellation
func (a *App) RunServer(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    a.ListenAddr,
		Handler: a.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err == context.DeadlineExceeded {
			slog.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		slog.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	slog.Info("Starting server", "addr", a.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}
