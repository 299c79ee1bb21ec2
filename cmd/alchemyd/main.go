// Command alchemyd runs the alchemy daemon: the progress bus, the
// campaign runner, the asset store, and the HTTP API.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"alchemy/internal/assets"
	"alchemy/internal/config"
	"alchemy/internal/logging"
	"alchemy/internal/progress"
	"alchemy/internal/server"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Vendor keys may live in a local .env during development.
	_ = godotenv.Load()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := assets.Open(cfg)
	if err != nil {
		logger.Error("open asset store", logging.Error(err))
		return
	}

	bus := progress.NewBus(logging.NewComponentLogger(logger, "progress-bus"))
	runner, err := buildRunner(ctx, cfg, bus, store, logger)
	if err != nil {
		logger.Error("wire campaign runner", logging.Error(err))
		_ = store.Close()
		return
	}

	d, err := server.New(cfg, logger, bus, runner, store)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		_ = store.Close()
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("alchemyd shutting down")
}
