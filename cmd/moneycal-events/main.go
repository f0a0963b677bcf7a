package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"moneycal/internal/amqp"
	"moneycal/internal/config"
	applog "moneycal/internal/log"
)

// moneycal-events tails the ledger event queue, mainly for operational
// debugging of downstream consumers.
func main() {
	_ = godotenv.Load()

	logger := applog.New(slog.LevelInfo, "events")
	applog.SetDefault(logger)

	cfg := config.Load()
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the event consumer")
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to connect to AMQP", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = client.Consume(ctx, func(event *amqp.LedgerEvent) error {
		logger.Info("Ledger event",
			"event", event.Event,
			"id", event.ID,
			"timestamp", event.Timestamp)
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Consumer stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("Consumer stopped gracefully")
}
