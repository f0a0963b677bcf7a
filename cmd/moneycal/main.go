package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"moneycal/internal/amqp"
	"moneycal/internal/backend"
	"moneycal/internal/config"
	apphttp "moneycal/internal/http"
	applog "moneycal/internal/log"
	"moneycal/internal/services"
)

func main() {
	_ = godotenv.Load()

	logger := applog.New(slog.LevelInfo, "moneycal")
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	store, err := backend.Open(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer store.Close()

	var events *amqp.Client
	if cfg.AMQPURL != "" {
		events, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			defer events.Close()
			logger.Info("Initialized AMQP client",
				"exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	srv := apphttp.New(":"+cfg.Port, apphttp.Services{
		Transactions:  services.NewTransactionService(store, events, logger),
		FixedExpenses: services.NewFixedExpenseService(store, events, logger),
		Savings:       services.NewSavingsService(store, logger),
		Summary:       services.NewSummaryService(store, logger),
		Categories:    services.NewCategoryService(store, logger),
	}, logger, cfg.RateLimitPerMinute)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	logger.Info("Server running", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
