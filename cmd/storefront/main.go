package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/api"
	"storefront/internal/catalog"
	"storefront/internal/chaos"
	"storefront/internal/clients"
	"storefront/internal/config"
	"storefront/internal/metrics"
	"storefront/internal/session"
	"storefront/internal/store"
	"storefront/internal/telemetry"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		logger.Fatal("failed to set up tracing", zap.Error(err))
	}

	source, closeSource, err := newSource(cfg, logger)
	if err != nil {
		logger.Fatal("failed to open catalog source", zap.Error(err))
	}
	defer closeSource()

	source = chaos.Wrap(source, chaos.Experiment{
		Name:        "catalog-faults",
		Latency:     cfg.FaultLatency,
		FailureRate: cfg.FaultRate,
	})

	reg := metrics.NewRegistry()
	loader := catalog.NewLoader(source,
		catalog.WithFetchTimeout(cfg.FetchTimeout),
		catalog.WithLoaderLogger(logger.Named("loader")))
	st := store.New(loader, store.WithLogger(logger.Named("store")), store.WithMetrics(reg))

	storeDone := make(chan error, 1)
	go func() { storeDone <- st.Run(ctx) }()
	go logSnapshots(st, logger.Named("snapshots"))

	if _, err := st.Dispatch(ctx, store.LoadCatalog()); err != nil {
		logger.Error("initial catalog load", zap.Error(err))
	}

	sessionCfg := session.DefaultConfig()
	sessionCfg.TTL = cfg.SessionTTL
	sessions := session.NewService(sessionCfg, logger.Named("session"), reg)
	if cfg.DemoEmail != "" {
		if _, err := sessions.Register(ctx, cfg.DemoEmail, "Demo Shopper", cfg.DemoPassword); err != nil {
			logger.Warn("seed demo account", zap.Error(err))
		}
	}

	handler := api.NewHandler(st, session.NewHandler(sessions), reg, logger.Named("api"))
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting storefront", zap.String("port", cfg.Port), zap.String("catalog_source", cfg.CatalogSource))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	st.Close()
	<-storeDone
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("tracing shutdown", zap.Error(err))
	}
}

func newSource(cfg *config.Config, logger *zap.Logger) (catalog.Source, func(), error) {
	switch cfg.CatalogSource {
	case config.SourcePostgres:
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return catalog.NewPostgresSource(db), func() { db.Close() }, nil
	case config.SourceStatic:
		return demoProducts, func() {}, nil
	default:
		client := clients.NewCatalogClient(cfg.CatalogServiceURL,
			clients.WithClientLogger(logger.Named("catalog_client")))
		return client, func() {}, nil
	}
}

// logSnapshots follows the store until it shuts down.
func logSnapshots(st *store.Store, logger *zap.Logger) {
	updates, cancel := st.Subscribe()
	defer cancel()
	for snap := range updates {
		logger.Debug("snapshot",
			zap.Uint64("version", snap.Version()),
			zap.Stringer("load_status", snap.LoadStatus()),
			zap.Int("cart_lines", len(snap.CartLines())),
			zap.Stringer("total", snap.TotalPrice()))
	}
}

var demoProducts = catalog.StaticSource{
	{ID: "1", Title: "Essence Mascara Lash Princess", Price: decimal.RequireFromString("9.99"),
		Images: []string{"https://cdn.dummyjson.com/products/images/beauty/Essence%20Mascara%20Lash%20Princess/1.png"}},
	{ID: "2", Title: "Eyeshadow Palette with Mirror", Price: decimal.RequireFromString("19.99"),
		Images: []string{"https://cdn.dummyjson.com/products/images/beauty/Eyeshadow%20Palette%20with%20Mirror/1.png"}},
	{ID: "3", Title: "Powder Canister", Price: decimal.RequireFromString("14.99"),
		Images: []string{"https://cdn.dummyjson.com/products/images/beauty/Powder%20Canister/1.png"}},
	{ID: "4", Title: "Red Lipstick", Price: decimal.RequireFromString("12.99"),
		Images: []string{"https://cdn.dummyjson.com/products/images/beauty/Red%20Lipstick/1.png"}},
}
