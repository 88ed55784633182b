package main

import (
	"ai-build-shop/internal/client"
	"ai-build-shop/internal/config"
	"ai-build-shop/internal/logger"
	"ai-build-shop/internal/repository"
	"ai-build-shop/internal/server"
	"ai-build-shop/internal/service"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()

	db, err := client.InitDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("init database", zap.Error(err))
	}

	catalogRepo := repository.NewCatalogRepository(db)
	if cfg.Database.Seed {
		if err := catalogRepo.Seed(ctx); err != nil {
			log.Fatal("seed catalog", zap.Error(err))
		}
	}

	cache, err := client.InitRedis(ctx, &cfg.Redis, log)
	if err != nil {
		// the catalog cache is optional
		log.Warn("redis unavailable, catalog cache disabled", zap.Error(err))
		cache = nil
	}
	if cache != nil {
		defer cache.Close()
	}

	producer, err := client.InitKafkaProducer(&cfg.Kafka, log)
	if err != nil {
		log.Fatal("init kafka producer", zap.Error(err))
	}
	var publisher client.EventPublisher
	if producer != nil {
		publisher = client.NewEventPublisher(producer, cfg.Kafka.OrderTopic, log)
		defer publisher.Close()
	}

	mailer := client.NewMailer(cfg.SMTP)
	if mailer == nil {
		log.Warn("SMTP not configured, payment confirmation emails disabled")
	}

	gateway := client.NewStripeGateway(&cfg.Stripe, log)

	userRepo := repository.NewUserRepository(db)
	authSessionRepo := repository.NewAuthSessionRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	webhookEventRepo := repository.NewWebhookEventRepository(db)

	catalogService := service.NewCatalogService(catalogRepo, cache, cfg.Redis.CatalogTTL, log)
	checkoutService, err := service.NewCheckoutService(gateway, catalogService, orderRepo, service.CheckoutConfig{
		BaseURL:         cfg.BaseURL,
		Currency:        cfg.Stripe.Currency,
		ReuseWindow:     cfg.Checkout.ReuseWindow,
		ItemDescription: cfg.Checkout.ItemDescription,
	}, log)
	if err != nil {
		log.Fatal("init checkout service", zap.Error(err))
	}
	notificationService := service.NewNotificationService(userRepo, mailer, publisher, log)
	reconcileService := service.NewReconcileService(db, gateway, orderRepo, webhookEventRepo, notificationService, log)

	srv := server.NewServer(cfg, &server.Services{
		Auth:      service.NewAuthService(userRepo, authSessionRepo, cfg.Auth, log),
		Catalog:   catalogService,
		Checkout:  checkoutService,
		Reconcile: reconcileService,
		Order:     service.NewOrderService(orderRepo),
	}, log)

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port

	log.Info("starting HTTP server", zap.String("addr", serverAddr), zap.String("environment", cfg.Environment.Name))
	go func() {
		if err := srv.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	<-sigChan
	log.Info("signal received, starting graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}

	// let queued confirmation emails go out
	notificationService.Wait()
}
