package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/auth"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/events"
	"storefront/internal/handler"
	"storefront/internal/pricing"
	"storefront/internal/repository"
	"storefront/internal/router"
	"storefront/internal/service"
	"storefront/internal/validation"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting storefront API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(cfg.Database.ConnectionString(), logger); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	// Initialize database connection pool
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	// Initialize repositories
	productRepo := repository.NewProductRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	deliveryRepo := repository.NewDeliveryMethodRepository(pool, logger)
	outboxRepo := repository.NewOutboxRepository(pool, logger)

	// Initialize services
	productService := service.NewProductService(productRepo, logger)
	deliveryService := service.NewDeliveryService(deliveryRepo, logger)
	orderService := service.NewOrderService(
		service.Repositories{
			Orders:   orderRepo,
			Products: productRepo,
			Delivery: deliveryRepo,
			Outbox:   outboxRepo,
		},
		service.PricingPolicy{
			Rules: pricing.NewRules(cfg.Checkout.TaxRate, cfg.Checkout.CODFee),
			Mode:  cfg.Checkout.PricingMode,
		},
		validation.New(),
		logger,
	)

	var verifier *auth.Verifier
	if cfg.Auth.JWTSecret != "" {
		verifier = auth.NewVerifier(cfg.Auth.JWTSecret)
	} else {
		logger.Info().Msg("bearer auth disabled, all orders are placed as guests")
	}

	// Initialize router
	mux := router.New(
		router.Handlers{
			Products: handler.NewProductHandler(productService, logger),
			Orders:   handler.NewOrderHandler(orderService, logger),
			Delivery: handler.NewDeliveryHandler(deliveryService, logger),
		},
		router.Options{
			APIKey:         cfg.Auth.APIKey,
			Verifier:       verifier,
			RequestTimeout: 10 * time.Second,
		},
		logger,
	)

	publisherDone := make(chan error, 1)
	if cfg.Kafka.Enabled {
		publisher := events.NewPublisher(
			outboxRepo,
			events.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic),
			cfg.Kafka.PollInterval,
			cfg.Kafka.BatchSize,
			logger,
		)
		go func() { publisherDone <- publisher.Run(ctx) }()
	} else {
		close(publisherDone)
		logger.Info().Msg("kafka disabled, order events stay in the outbox")
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// Create a context with timeout for shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			// Force close
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		// Stop the publisher after in-flight orders have committed their events.
		cancel()
		if err := <-publisherDone; err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("failed to stop outbox publisher")
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}
