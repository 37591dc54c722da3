// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"paypal-billing/internal/config"
	"paypal-billing/internal/domain/ports/adapter"
	pg "paypal-billing/internal/infra/db/postgres"
	"paypal-billing/internal/infra/email"
	"paypal-billing/internal/infra/logging"
	"paypal-billing/internal/infra/metrics"
	"paypal-billing/internal/infra/paypal"
	red "paypal-billing/internal/infra/redis"
	"paypal-billing/internal/infra/web"
	"paypal-billing/internal/infra/worker"
	"paypal-billing/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, sandbox defaults)")
	flag.Parse()

	// Secrets may live in a local .env in development.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("developer mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	eventCache := red.NewEventDedupe(redisClient, cfg.Redis.EventTTL)

	// ---- Repositories ----
	txManager := pg.NewTxManager(pool)
	paymentRepo := pg.NewPaymentRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool)
	userRepo := pg.NewUserRepo(pool)

	// ---- Gateway ----
	gateway, err := paypal.NewClient(cfg.PayPal, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("paypal client")
	}

	// ---- Notifier ----
	workerPool := worker.NewPool(cfg.Worker.Workers, logger)
	workerPool.Start(ctx)
	defer workerPool.Stop()

	var delivery adapter.Notifier
	switch cfg.Notifier.Mode {
	case "amqp":
		amqpNotifier, err := email.NewAMQPNotifier(cfg.AMQP, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("amqp notifier")
		}
		defer amqpNotifier.Close()
		delivery = amqpNotifier
	case "noop":
		delivery = email.NewNoopNotifier(logger)
	default:
		delivery = email.NewSMTPNotifier(cfg.SMTP, logger)
	}
	notifier := email.NewAsyncNotifier(delivery, workerPool, logger)

	// ---- Use cases ----
	paymentUC := usecase.NewPaymentUseCase(paymentRepo, gateway, logger)
	subUC := usecase.NewSubscriptionUseCase(subRepo, userRepo, paymentUC, gateway, notifier, logger)
	webhookUC := usecase.NewWebhookUseCase(
		gateway, subRepo, paymentRepo, userRepo, notifier,
		txManager, eventCache, cfg.PayPal.WebhookID, logger,
	)

	// ---- HTTP server ----
	auth := web.NewAuthManager(cfg.Auth.JWTSecret, cfg.Auth.TTL)
	srv := web.NewServer(paymentUC, subUC, webhookUC, auth, logger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	cancel()
}
