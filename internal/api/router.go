package api

import (
	"github.com/ayo6706/prepaid-recharge/internal/api/handler"
	"github.com/ayo6706/prepaid-recharge/internal/api/middleware"
	"github.com/ayo6706/prepaid-recharge/internal/api/spec"
	"github.com/ayo6706/prepaid-recharge/internal/config"
	"github.com/ayo6706/prepaid-recharge/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Router wires the HTTP surface: the storefront webhook, the operator job
// API and the operational endpoints.
type Router struct {
	cfg        *config.Config
	logger     *zap.Logger
	webhookSvc *service.OrderWebhookService
	jobs       handler.JobReader
	db         *pgxpool.Pool
	redis      *redis.Client
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	webhookSvc *service.OrderWebhookService,
	jobs handler.JobReader,
	db *pgxpool.Pool,
	redisClient *redis.Client,
) *Router {
	return &Router{
		cfg:        cfg,
		logger:     logger,
		webhookSvc: webhookSvc,
		jobs:       jobs,
		db:         db,
		redis:      redisClient,
	}
}

func (api *Router) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware)
	r.Use(middleware.RecoverMiddleware(api.logger))
	r.Use(middleware.LoggingMiddleware(api.logger))
	r.Use(middleware.MetricsMiddleware)

	webhookHandler := handler.NewWebhookHandler(api.webhookSvc)
	jobsHandler := handler.NewJobsHandler(api.jobs)
	healthHandler := handler.NewHealthHandler(api.db, api.redis)

	// Operational endpoints
	r.Get("/healthz", healthHandler.Live)
	r.Get("/readyz", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/openapi.yaml", spec.OpenAPIHandler())

	// Storefront webhook (HMAC-authenticated, rate limited per IP)
	r.Group(func(r chi.Router) {
		r.Use(middleware.WebhookRateLimiter(api.cfg.WebhookRateLimitRPS))
		r.Post("/v1/webhooks/order-completed", webhookHandler.HandleOrderCompleted)
	})

	// Operator job API
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware)
		r.Use(middleware.OperatorRateLimiter(api.cfg.OperatorRateLimitRPS))

		r.Get("/v1/jobs", jobsHandler.ListJobs)
		r.Get("/v1/jobs/{id}", jobsHandler.GetJob)
	})

	return r
}
