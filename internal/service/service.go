package service

import (
	"context"

	"storefront/internal/model"

	"github.com/google/uuid"
)

// ProductService serves the storefront catalogue.
type ProductService interface {
	// List returns one catalogue page filtered by category and availability.
	List(ctx context.Context, q model.ProductQuery) ([]model.Product, error)

	// Get returns a single product, or ErrProductNotFound.
	Get(ctx context.Context, id string) (*model.Product, error)
}

// DeliveryService lists the delivery methods offered at checkout.
type DeliveryService interface {
	// List returns the active delivery methods, or the built-in defaults when the catalogue
	// is unavailable or empty.
	List(ctx context.Context) ([]model.DeliveryMethod, error)
}

// OrderService defines operations for order management.
type OrderService interface {
	// CreateOrder commits a checkout as one transaction. userID is nil for guest checkout.
	CreateOrder(ctx context.Context, req *model.OrderRequest, userID *uuid.UUID) (*model.OrderConfirmation, error)

	// GetByID retrieves an order with its address, items, delivery method and payment.
	GetByID(ctx context.Context, id uuid.UUID) (*model.OrderDetail, error)

	// UpdateStatus moves an order to a new status if the transition is allowed.
	UpdateStatus(ctx context.Context, id uuid.UUID, to model.OrderStatus) (*model.StatusChange, error)
}
