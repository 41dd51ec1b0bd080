package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ayo6706/prepaid-recharge/internal/api"
	"github.com/ayo6706/prepaid-recharge/internal/api/middleware"
	"github.com/ayo6706/prepaid-recharge/internal/apigee"
	"github.com/ayo6706/prepaid-recharge/internal/cache"
	"github.com/ayo6706/prepaid-recharge/internal/config"
	"github.com/ayo6706/prepaid-recharge/internal/currency"
	"github.com/ayo6706/prepaid-recharge/internal/db"
	"github.com/ayo6706/prepaid-recharge/internal/job"
	"github.com/ayo6706/prepaid-recharge/internal/notify"
	"github.com/ayo6706/prepaid-recharge/internal/observability"
	"github.com/ayo6706/prepaid-recharge/internal/repository"
	"github.com/ayo6706/prepaid-recharge/internal/service"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Run bootstraps the HTTP server and the job executor, blocking until
// shutdown.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	observability.Init()
	middleware.SetJWTSecret(cfg.JWTSecret)
	middleware.SetJWTValidation(cfg.JWTIssuer, cfg.JWTAudience)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	redisClient, err := newRedisClient(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()

	jobStore := repository.NewJobStore(pool)
	if err := jobStore.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate job store: %w", err)
	}

	apigeeClient := apigee.NewClient(cfg.MonetizationBaseURL, cfg.MonetizationOrg, cfg.MonetizationToken)
	billingCache := cache.NewBilling(redisClient)
	formatter := currency.NewFormatter()

	mailer := notify.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom)
	notifier := notify.NewAdminNotifier(mailer, cfg.MailOnError, cfg.AdminEmail, cfg.SiteName, formatter, logger)

	executor := job.NewExecutor(jobStore, notifier, logger).
		WithWorkers(cfg.JobWorkers).
		WithQueueDepth(cfg.JobQueueDepth)
	stopExecutor := executor.Run(ctx)
	logger.Info("job executor started", zap.Int("workers", cfg.JobWorkers))

	aggregator := service.NewAggregatorService(apigeeClient, executor, apigeeClient, billingCache, formatter, logger)
	webhookSvc := service.NewOrderWebhookService(aggregator, cfg.WebhookHMACKey, cfg.WebhookSkipSignature)

	router := api.NewRouter(cfg, logger, webhookSvc, jobStore, pool, redisClient)

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("port", cfg.HTTPPort))
		serverErr <- server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("stopping job executor")
	stopExecutor()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	switch strings.ToLower(level) {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info", "":
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

func newRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
