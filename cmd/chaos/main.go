// cmd/chaos/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"storefront/internal/catalog"
	"storefront/internal/chaos"
	"storefront/internal/clients"
	"storefront/internal/config"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var base catalog.Source = catalog.StaticSource{{ID: "1", Title: "Game Day Product"}}
	if cfg.CatalogSource == config.SourceHTTP {
		base = clients.NewCatalogClient(cfg.CatalogServiceURL, clients.WithClientLogger(logger.Named("catalog_client")))
	}

	runner := chaos.NewRunner(base, logger.Named("chaos"), uint64(time.Now().UnixNano()))
	results, err := runner.Execute(ctx, chaos.DefaultGameDay())

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(results)

	if err != nil {
		if errors.Is(err, chaos.ErrHypothesisViolated) {
			logger.Error("chaos game day failed", zap.Error(err))
			os.Exit(1)
		}
		logger.Fatal("chaos game day aborted", zap.Error(err))
	}
}
