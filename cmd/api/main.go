package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aurelhart/scoreline-backend/api/controllers"
	"github.com/aurelhart/scoreline-backend/api/routes"
	"github.com/aurelhart/scoreline-backend/internal/assets"
	"github.com/aurelhart/scoreline-backend/internal/catalog"
	"github.com/aurelhart/scoreline-backend/internal/extledger"
	"github.com/aurelhart/scoreline-backend/internal/identity"
	"github.com/aurelhart/scoreline-backend/internal/notifications"
	"github.com/aurelhart/scoreline-backend/internal/orders"
	stripewebhook "github.com/aurelhart/scoreline-backend/internal/webhooks/stripe"
	"github.com/aurelhart/scoreline-backend/pkg/config"
	"github.com/aurelhart/scoreline-backend/pkg/db"
	"github.com/aurelhart/scoreline-backend/pkg/logger"
	"github.com/aurelhart/scoreline-backend/pkg/metrics"
	"github.com/aurelhart/scoreline-backend/pkg/migrate"
	"github.com/aurelhart/scoreline-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	pipeline := metrics.NewPipelineMetrics(prometheus.DefaultRegisterer)

	ordersSvc, err := orders.NewService(orders.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	var catalogClient *catalog.Client
	if cfg.Catalog.APIKey != "" && cfg.Catalog.DatabaseID != "" {
		catalogClient, err = catalog.NewClient(cfg.Catalog)
		if err != nil {
			logg.Error(context.Background(), "failed to create catalog client", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "catalog credentials missing, product lookups disabled")
	}

	var identityResolver *identity.Resolver
	if catalogClient != nil {
		identityResolver, err = identity.NewResolver(catalogClient, logg)
	} else {
		identityResolver, err = identity.NewResolver(nil, logg)
	}
	if err != nil {
		logg.Error(context.Background(), "failed to create identity resolver", err)
		os.Exit(1)
	}

	assetResolver, err := assets.NewResolver(cfg.Assets, logg, pipeline)
	if err != nil {
		logg.Error(context.Background(), "failed to create asset resolver", err)
		os.Exit(1)
	}

	transport, err := notifications.ResolveTransport(cfg.Mail)
	if err != nil {
		logg.Error(context.Background(), "failed to resolve mail transport", err)
		os.Exit(1)
	}
	ctx := logg.WithField(context.Background(), "transport", transport.Kind().String())
	logg.Info(ctx, "mail transport resolved")

	notifSvc, err := notifications.NewService(notifications.ServiceParams{
		Transport: transport,
		Repo:      notifications.NewRepository(dbClient.DB()),
		Mail:      cfg.Mail,
		Links:     cfg.Links,
		Logger:    logg,
		Pipeline:  pipeline,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notification dispatcher", err)
		os.Exit(1)
	}

	ledgerParams := extledger.ServiceParams{
		Orders:   ordersSvc,
		Logger:   logg,
		Pipeline: pipeline,
	}
	var ledgerClient *extledger.Client
	if cfg.ExtLedger.APIKey != "" && cfg.ExtLedger.DatabaseID != "" {
		ledgerClient, err = extledger.NewClient(cfg.ExtLedger)
		if err != nil {
			logg.Error(context.Background(), "failed to create external ledger client", err)
			os.Exit(1)
		}
		ledgerParams.Client = ledgerClient
	} else {
		logg.Warn(context.Background(), "external ledger credentials missing, mirroring disabled")
	}
	ledgerSvc, err := extledger.NewService(ledgerParams)
	if err != nil {
		logg.Error(context.Background(), "failed to create external ledger service", err)
		os.Exit(1)
	}

	guard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Stripe.IdempotencyTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create idempotency guard", err)
		os.Exit(1)
	}

	verifier, err := stripewebhook.NewVerifier(cfg.Stripe)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook verifier", err)
		os.Exit(1)
	}

	webhookSvc, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Identity:      identityResolver,
		Orders:        ordersSvc,
		Assets:        assetResolver,
		Notifications: notifSvc,
		Ledger:        ledgerSvc,
		Guard:         guard,
		Logger:        logg,
		Pipeline:      pipeline,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	probes := controllers.ReadinessProbes{
		DB:    dbClient,
		Redis: redisClient,
	}
	if catalogClient != nil {
		probes.Catalog = catalogClient
	}
	if ledgerClient != nil {
		probes.Ledger = ledgerClient
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(context.Background(), map[string]any{
		"env":        cfg.App.Env,
		"addr":       addr,
		"stripe_env": cfg.Stripe.Environment(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:        cfg,
			Logger:        logg,
			Probes:        probes,
			Redis:         redisClient,
			Verifier:      verifier,
			Webhook:       webhookSvc,
			Orders:        ordersSvc,
			Notifications: notifSvc,
			Ledger:        ledgerSvc,
			AssetCache:    assetResolver,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
