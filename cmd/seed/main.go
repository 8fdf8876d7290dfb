// Command seed applies the database migrations and loads the demo catalogue.
package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/model"
)

//go:embed catalog.json
var defaultCatalog []byte

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	catalogPath := flag.String("catalog", "", "JSON product catalogue (defaults to the built-in demo catalogue)")
	resetStock := flag.Bool("reset-stock", false, "overwrite stock levels of existing products")
	down := flag.Bool("down", false, "roll back every migration and exit")
	skipProducts := flag.Bool("migrate-only", false, "apply migrations without seeding products")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := config.NewLogger(cfg.Logger)

	connString := cfg.Database.ConnectionString()
	if *down {
		if err := database.MigrateDown(connString); err != nil {
			return err
		}
		logger.Info().Msg("database migrations rolled back")
		return nil
	}

	if err := database.Migrate(connString, logger); err != nil {
		return err
	}
	if *skipProducts {
		return nil
	}

	products, err := loadCatalog(*catalogPath)
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if err := database.SeedProducts(ctx, pool, products, *resetStock); err != nil {
		return err
	}

	var dbName string
	if err := pool.QueryRow(ctx, "SELECT current_database()").Scan(&dbName); err != nil {
		return fmt.Errorf("failed to read database name: %w", err)
	}

	logger.Info().
		Str("database", dbName).
		Int("products", len(products)).
		Bool("reset_stock", *resetStock).
		Msg("catalogue seeded")
	return nil
}

func loadCatalog(path string) ([]model.Product, error) {
	data := defaultCatalog
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("failed to read catalogue: %w", err)
		}
	}

	var products []model.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("failed to parse catalogue: %w", err)
	}
	for i, p := range products {
		if p.ID == "" || p.Name == "" {
			return nil, fmt.Errorf("catalogue entry %d: id and name are required", i)
		}
		if p.Price.IsNegative() || p.Stock < 0 {
			return nil, fmt.Errorf("catalogue entry %s: price and stock must not be negative", p.ID)
		}
	}
	return products, nil
}
