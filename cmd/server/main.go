package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Harshitk-cp/axiom/internal/api"
	"github.com/Harshitk-cp/axiom/internal/buildconfig"
	"github.com/Harshitk-cp/axiom/internal/config"
	"github.com/Harshitk-cp/axiom/internal/logging"
	"github.com/Harshitk-cp/axiom/internal/service"
	"github.com/Harshitk-cp/axiom/internal/store"
	"go.uber.org/zap"
)

func main() {
	if err := config.Load(); err != nil {
		panic(err)
	}

	logger, err := logging.New(config.LogLevel())
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting", zap.String("build", buildconfig.String()))

	ctx := context.Background()

	stores, err := store.Open(ctx, config.StoreDriver(), config.StoreDSN(), logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.String("driver", config.StoreDriver()), zap.Error(err))
	}
	defer stores.Close()

	app := api.NewApp(stores, nil, logger)
	app.Pipeline.Warm(ctx)

	sweepCtx, cancelSweep := context.WithCancel(ctx)
	defer cancelSweep()
	if config.BootSweepEnabled() {
		service.StartBootSweep(sweepCtx, app.Monitor, app.Dashboard, app.Journal, logger, service.BootOptions{
			FastMode: config.BootSweepFastMode(),
			Safety:   service.DefaultSafetyLimits(),
		})
	}

	// Start background services
	app.Worker.Start()

	addr := config.ServerAddr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", zap.String("addr", addr), zap.String("store", stores.Driver))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down server")

	cancelSweep()
	app.Worker.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
