package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (r *orderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// CreateAddress inserts the order's shipping address within the provided transaction.
func (r *orderRepository) CreateAddress(ctx context.Context, tx pgx.Tx, a *model.ShippingAddress) error {
	query := `
		INSERT INTO shipping_addresses
			(id, full_name, phone, email, address_line1, address_line2, city, state, postal_code, country)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := tx.Exec(ctx, query,
		a.ID, a.FullName, a.Phone, a.Email, a.AddressLine1, a.AddressLine2,
		a.City, a.State, a.PostalCode, a.Country,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("address_id", a.ID.String()).Msg("failed to create shipping address")
		return fmt.Errorf("failed to create shipping address: %w", err)
	}
	return nil
}

// CreateOrder inserts a new order within the provided transaction.
func (r *orderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		INSERT INTO orders (
			id, user_id, customer_email, status, subtotal, shipping_cost, tax_amount,
			cod_fee, total, payment_method, notes, address_id, delivery_method_id,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := tx.Exec(ctx, query,
		order.ID,
		order.UserID,
		order.CustomerEmail,
		string(order.Status),
		order.Subtotal,
		order.ShippingCost,
		order.TaxAmount,
		order.CODFee,
		order.Total,
		string(order.PaymentMethod),
		order.Notes,
		order.AddressID,
		order.DeliveryMethodID,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Msg("order created successfully")

	return nil
}

// CreateOrderItems inserts multiple order items within the provided transaction.
func (r *orderRepository) CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO order_items (id, order_id, product_id, quantity, unit_price, position)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	batch := &pgx.Batch{}
	for i, item := range items {
		batch.Queue(query, item.ID, item.OrderID, item.ProductID, item.Quantity, item.UnitPrice, i)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(items); i++ {
		_, err := results.Exec()
		if err != nil {
			r.logger.Error().
				Err(err).
				Str("order_id", items[i].OrderID.String()).
				Str("product_id", items[i].ProductID).
				Msg("failed to create order item")
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	r.logger.Debug().
		Int("count", len(items)).
		Msg("order items created successfully")

	return nil
}

// CreatePayment inserts the payment record within the provided transaction.
func (r *orderRepository) CreatePayment(ctx context.Context, tx pgx.Tx, p *model.Payment) error {
	query := `
		INSERT INTO payments (id, order_id, amount, provider, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := tx.Exec(ctx, query, p.ID, p.OrderID, p.Amount, p.Provider, p.Status, p.CreatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", p.OrderID.String()).Msg("failed to create payment")
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// GetByID retrieves an order by its ID along with its address, delivery method, items and
// payment.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.OrderDetail, error) {
	orderQuery := `
		SELECT
			o.id, o.user_id, o.customer_email, o.status, o.subtotal, o.shipping_cost,
			o.tax_amount, o.cod_fee, o.total, o.payment_method, o.notes, o.address_id,
			o.delivery_method_id, o.created_at, o.updated_at,
			a.id, a.full_name, a.phone, a.email, a.address_line1, a.address_line2,
			a.city, a.state, a.postal_code, a.country,
			d.id, d.name, d.description, d.price, d.min_days, d.max_days, d.active
		FROM orders o
		JOIN shipping_addresses a ON a.id = o.address_id
		JOIN delivery_methods d ON d.id = o.delivery_method_id
		WHERE o.id = $1
	`

	var (
		detail model.OrderDetail
		status string
		method string
	)
	o := &detail.Order
	a := &detail.ShippingAddress
	d := &detail.DeliveryMethod
	err := r.pool.QueryRow(ctx, orderQuery, id).Scan(
		&o.ID, &o.UserID, &o.CustomerEmail, &status, &o.Subtotal, &o.ShippingCost,
		&o.TaxAmount, &o.CODFee, &o.Total, &method, &o.Notes, &o.AddressID,
		&o.DeliveryMethodID, &o.CreatedAt, &o.UpdatedAt,
		&a.ID, &a.FullName, &a.Phone, &a.Email, &a.AddressLine1, &a.AddressLine2,
		&a.City, &a.State, &a.PostalCode, &a.Country,
		&d.ID, &d.Name, &d.Description, &d.Price, &d.MinDays, &d.MaxDays, &d.Active,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("order_id", id.String()).Msg("order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}
	o.Status = model.OrderStatus(status)
	o.PaymentMethod = model.PaymentMethod(method)
	detail.OrderNumber = o.OrderNumber()
	detail.EstimatedDelivery = d.EstimatedDelivery(o.CreatedAt)

	items, err := r.getItems(ctx, id)
	if err != nil {
		return nil, err
	}
	detail.Items = items

	payment, err := r.getPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	detail.Payment = payment

	return &detail, nil
}

func (r *orderRepository) getItems(ctx context.Context, orderID uuid.UUID) ([]model.OrderItem, error) {
	itemsQuery := `
		SELECT i.id, i.order_id, i.product_id, i.quantity, i.unit_price, p.name, p.image_url
		FROM order_items i
		JOIN products p ON p.id = i.product_id
		WHERE i.order_id = $1
		ORDER BY i.position
	`

	rows, err := r.pool.Query(ctx, itemsQuery, orderID)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", orderID.String()).
			Msg("failed to query order items")
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	items := []model.OrderItem{}
	for rows.Next() {
		var item model.OrderItem
		err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity,
			&item.UnitPrice, &item.ProductName, &item.ProductImage)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order item row")
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order item rows")
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return items, nil
}

func (r *orderRepository) getPayment(ctx context.Context, orderID uuid.UUID) (*model.Payment, error) {
	query := `
		SELECT id, order_id, amount, provider, status, created_at
		FROM payments
		WHERE order_id = $1
	`

	var p model.Payment
	err := r.pool.QueryRow(ctx, query, orderID).Scan(&p.ID, &p.OrderID, &p.Amount, &p.Provider, &p.Status, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query payment: %w", err)
	}
	return &p, nil
}

// GetStatusForUpdate reads and row-locks the order's status within tx.
func (r *orderRepository) GetStatusForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (model.OrderStatus, error) {
	var status string
	err := tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", model.ErrOrderNotFound
	}
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to lock order")
		return "", fmt.Errorf("failed to lock order: %w", err)
	}
	return model.OrderStatus(status), nil
}

// UpdateStatus moves the order from one status to another, guarded on the current status.
func (r *orderRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to model.OrderStatus, at time.Time) (bool, error) {
	query := `
		UPDATE orders
		SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
	`

	tag, err := tx.Exec(ctx, query, id, string(from), string(to), at)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", id.String()).
			Str("from", string(from)).
			Str("to", string(to)).
			Msg("failed to update order status")
		return false, fmt.Errorf("failed to update order status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
