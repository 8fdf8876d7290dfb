// Command shopctl is a terminal storefront: it keeps a cart between invocations and places
// orders against the storefront API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/cart"
	"storefront/internal/client"
	"storefront/internal/config"
	"storefront/internal/pricing"
	"storefront/internal/validation"

	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadClient()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Command output owns stdout.
	logger := config.NewLogger(cfg.Logger).Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api, err := client.New(cfg.Client.BaseURL, client.Options{
		Token:   cfg.Client.Token,
		APIKey:  cfg.Client.APIKey,
		Timeout: cfg.Client.Timeout,
	}, logger)
	if err != nil {
		return err
	}

	storage, closeStorage, err := cart.NewStorage(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open cart storage: %w", err)
	}
	defer func() {
		if err := closeStorage(); err != nil {
			logger.Warn().Err(err).Msg("failed to close cart storage")
		}
	}()

	store := cart.New(ctx, storage,
		cart.WithKey(cfg.Cart.Key),
		cart.WithRetention(cfg.Cart.Retention),
		cart.WithLimits(cart.Limits{
			MaxItems:           cfg.Cart.MaxItems,
			MaxQuantityPerItem: cfg.Cart.MaxQuantityPerItem,
		}),
		cart.WithLogger(logger),
	)

	a := &app{
		api:      api,
		cart:     store,
		rules:    pricing.NewRules(cfg.Checkout.TaxRate, cfg.Checkout.CODFee),
		validate: validation.New(),
		out:      os.Stdout,
		logger:   logger,
	}
	runErr := a.run(ctx, os.Args[1:])

	// The cart must reach storage before the process exits.
	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Close(closeCtx); err != nil && runErr == nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return runErr
}
