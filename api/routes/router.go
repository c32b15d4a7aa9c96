package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stripe/stripe-go/v84"

	"github.com/aurelhart/scoreline-backend/api/controllers"
	ordercontrollers "github.com/aurelhart/scoreline-backend/api/controllers/orders"
	webhookcontrollers "github.com/aurelhart/scoreline-backend/api/controllers/webhooks"
	"github.com/aurelhart/scoreline-backend/api/middleware"
	"github.com/aurelhart/scoreline-backend/internal/extledger"
	"github.com/aurelhart/scoreline-backend/internal/notifications"
	"github.com/aurelhart/scoreline-backend/internal/orders"
	stripewebhook "github.com/aurelhart/scoreline-backend/internal/webhooks/stripe"
	"github.com/aurelhart/scoreline-backend/pkg/config"
	"github.com/aurelhart/scoreline-backend/pkg/logger"
	"github.com/aurelhart/scoreline-backend/pkg/redis"
)

type webhookHandler interface {
	HandleEvent(ctx context.Context, event *stripe.Event) stripewebhook.Outcome
	ResendConfirmation(ctx context.Context, orderID string) (notifications.AttemptDTO, error)
}

type assetCacheReader interface {
	CacheStats() (count int, totalBytes int64, err error)
}

// RouterParams carries everything the HTTP surface needs.
type RouterParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	Probes        controllers.ReadinessProbes
	Redis         *redis.Client
	Verifier      *stripewebhook.Verifier
	Webhook       webhookHandler
	Orders        orders.Service
	Notifications notifications.Service
	Ledger        extledger.Service
	AssetCache    assetCacheReader
}

func NewRouter(p RouterParams) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(p.Logger),
		middleware.RequestID(p.Logger),
		middleware.Logging(p.Logger),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(p.Config))
		r.Get("/ready", controllers.HealthReady(p.Config, p.Probes, p.Logger))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.With(middleware.WebhookRateLimit(p.Config.WebhookLimit, p.Redis, p.Logger)).
			Post("/stripe", webhookcontrollers.Stripe(p.Verifier, p.Webhook, p.Logger))
	})

	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Get("/", ordercontrollers.ListByCustomer(p.Orders, p.Logger))
		r.Get("/stats", ordercontrollers.Stats(p.Orders, p.AssetCache, p.Logger))
		r.Route("/{orderID}", func(r chi.Router) {
			r.Get("/", ordercontrollers.Get(p.Orders, p.Logger))
			r.Patch("/status", ordercontrollers.UpdateStatus(p.Orders, p.Ledger, p.Logger))
			r.Post("/resend-confirmation", ordercontrollers.ResendConfirmation(p.Webhook, p.Logger))
			r.Get("/attempts", ordercontrollers.ListAttempts(p.Orders, p.Notifications, p.Logger))
		})
	})

	return r
}
