package repository

import (
	"context"
	"time"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ProductRepository defines the interface for product data access operations.
type ProductRepository interface {
	// List returns one page of the catalogue ordered by name, filtered by q.
	List(ctx context.Context, q model.ProductQuery) ([]model.Product, error)

	// GetByID retrieves a single product by its ID. It returns nil when the product does
	// not exist.
	GetByID(ctx context.Context, id string) (*model.Product, error)

	// GetByIDs retrieves multiple products by their IDs.
	GetByIDs(ctx context.Context, ids []string) ([]model.Product, error)

	// ValidateProductsExist checks if all provided product IDs exist in the database.
	// Returns error if any product ID does not exist.
	ValidateProductsExist(ctx context.Context, ids []string) error

	// DecrementStock atomically removes qty units of stock within tx. It fails with
	// ErrInsufficientStock when fewer than qty units remain and with ErrProductNotFound
	// when the product does not exist.
	DecrementStock(ctx context.Context, tx pgx.Tx, productID string, qty int) error
}

// DeliveryMethodRepository reads the delivery method catalogue.
type DeliveryMethodRepository interface {
	// GetActive returns active delivery methods in display order.
	GetActive(ctx context.Context) ([]model.DeliveryMethod, error)

	// GetByID returns the delivery method with id, or nil when it does not exist.
	GetByID(ctx context.Context, id string) (*model.DeliveryMethod, error)
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// CreateAddress inserts the order's shipping address within the provided transaction.
	CreateAddress(ctx context.Context, tx pgx.Tx, address *model.ShippingAddress) error

	// CreateOrder inserts a new order within the provided transaction.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// CreateOrderItems inserts multiple order items within the provided transaction.
	CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error

	// CreatePayment inserts the payment record within the provided transaction.
	CreatePayment(ctx context.Context, tx pgx.Tx, payment *model.Payment) error

	// GetByID retrieves an order with its address, items, delivery method and payment.
	// It returns nil when the order does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*model.OrderDetail, error)

	// GetStatusForUpdate reads and row-locks the order's status within tx.
	GetStatusForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (model.OrderStatus, error)

	// UpdateStatus moves the order from one status to another. It reports false when the
	// order was no longer in status from.
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to model.OrderStatus, at time.Time) (bool, error)
}

// OutboxRepository stores order events for asynchronous publication.
type OutboxRepository interface {
	// Enqueue records event within tx so it commits or rolls back with the change it describes.
	Enqueue(ctx context.Context, tx pgx.Tx, event *model.OutboxEvent) error

	// FetchUnpublished returns up to limit unpublished events, oldest first.
	FetchUnpublished(ctx context.Context, limit int) ([]model.OutboxEvent, error)

	// MarkPublished stamps the given events as published.
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
}
