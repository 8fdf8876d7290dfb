// Package integration runs the storefront against a real PostgreSQL container.
package integration

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/internal/auth"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/handler"
	"storefront/internal/model"
	"storefront/internal/pricing"
	"storefront/internal/repository"
	"storefront/internal/router"
	"storefront/internal/service"
	"storefront/internal/validation"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	testAPIKey    = "test-api-key"
	testJWTSecret = "test-jwt-secret"
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB creates a migrated PostgreSQL test container and connection pool.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	// Create PostgreSQL container
	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	t.Cleanup(func() {
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	// Get connection string
	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	if err := database.Migrate(connStr, zerolog.Nop()); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	host, err := postgresContainer.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := postgresContainer.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("failed to get container port: %v", err)
	}

	// Create connection pool
	dbConfig := config.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		User:            "testuser",
		Password:        "testpass",
		Database:        "testdb",
		MaxConnections:  20,
		MinConnections:  2,
		MaxConnLifetime: 300,
	}

	pool, err := database.NewPool(ctx, dbConfig, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}
	t.Cleanup(pool.Close)

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// testProducts is the catalogue every test starts from.
func testProducts() []model.Product {
	return []model.Product{
		{ID: "P001", Name: "Classic Widget", Price: decimal.RequireFromString("50.00"), Stock: 5, Category: "tools", ImageURL: "https://img.test/widget.png"},
		{ID: "P002", Name: "Deluxe Gadget", Price: decimal.RequireFromString("20.00"), Stock: 10, Category: "tools"},
		{ID: "P003", Name: "Enamel Mug", Price: decimal.RequireFromString("12.00"), Stock: 1, Category: "kitchen"},
	}
}

// SeedProducts resets the catalogue to testProducts.
func SeedProducts(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	if err := database.SeedProducts(context.Background(), pool, testProducts(), true); err != nil {
		t.Fatalf("failed to seed products: %v", err)
	}
}

// CleanupDB removes orders, events and products. Delivery methods keep their seeded rows.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	tables := []string{"outbox_events", "payments", "order_items", "orders", "shipping_addresses", "products"}
	for _, table := range tables {
		_, err := pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}
}

// newOrderService wires the order service to the database the way cmd/api does.
func newOrderService(pool *pgxpool.Pool) service.OrderService {
	logger := zerolog.Nop()
	return service.NewOrderService(
		service.Repositories{
			Orders:   repository.NewOrderRepository(pool, logger),
			Products: repository.NewProductRepository(pool, logger),
			Delivery: repository.NewDeliveryMethodRepository(pool, logger),
			Outbox:   repository.NewOutboxRepository(pool, logger),
		},
		service.PricingPolicy{Rules: testRules(), Mode: service.PricingVerify},
		validation.New(),
		logger,
	)
}

func testRules() pricing.Rules {
	return pricing.NewRules(0.08, 2.00)
}

// StartServer serves the full API over HTTP.
func StartServer(t *testing.T, testDB *TestDB) *httptest.Server {
	t.Helper()

	logger := zerolog.Nop()
	productRepo := repository.NewProductRepository(testDB.Pool, logger)
	deliveryRepo := repository.NewDeliveryMethodRepository(testDB.Pool, logger)

	mux := router.New(
		router.Handlers{
			Products: handler.NewProductHandler(service.NewProductService(productRepo, logger), logger),
			Orders:   handler.NewOrderHandler(newOrderService(testDB.Pool), logger),
			Delivery: handler.NewDeliveryHandler(service.NewDeliveryService(deliveryRepo, logger), logger),
		},
		router.Options{
			APIKey:         testAPIKey,
			Verifier:       auth.NewVerifier(testJWTSecret),
			RequestTimeout: 10 * time.Second,
		},
		logger,
	)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}
