package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/model"
	"storefront/internal/pricing"
	"storefront/internal/repository"
	"storefront/internal/validation"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// Pricing modes for submitted order totals.
const (
	// PricingVerify recomputes every figure from live prices and rejects mismatches.
	PricingVerify = "verify"
	// PricingTrust stores the client's figures as long as they add up.
	PricingTrust = "trust"
)

// Repositories groups the data access the order service needs.
type Repositories struct {
	Orders   repository.OrderRepository
	Products repository.ProductRepository
	Delivery repository.DeliveryMethodRepository
	Outbox   repository.OutboxRepository
}

// PricingPolicy controls how submitted totals are checked.
type PricingPolicy struct {
	Rules pricing.Rules
	Mode  string
}

// orderService implements OrderService.
type orderService struct {
	orderRepo    repository.OrderRepository
	productRepo  repository.ProductRepository
	deliveryRepo repository.DeliveryMethodRepository
	outboxRepo   repository.OutboxRepository
	policy       PricingPolicy
	validate     *validator.Validate
	now          func() time.Time
	logger       zerolog.Logger
}

// NewOrderService creates a new order service. v may be nil, in which case
// validation.New() is used.
func NewOrderService(repos Repositories, policy PricingPolicy, v *validator.Validate, logger zerolog.Logger) OrderService {
	if v == nil {
		v = validation.New()
	}
	if policy.Mode == "" {
		policy.Mode = PricingVerify
	}
	return &orderService{
		orderRepo:    repos.Orders,
		productRepo:  repos.Products,
		deliveryRepo: repos.Delivery,
		outboxRepo:   repos.Outbox,
		policy:       policy,
		validate:     v,
		now:          func() time.Time { return time.Now().UTC() },
		logger:       logger.With().Str("service", "order").Logger(),
	}
}

// CreateOrder validates the request and commits address, order, items, stock, payment and
// the order.created event in one transaction. Domain errors are returned as is; anything
// else is logged and reported as ORDER_CREATION_FAILED.
func (s *orderService) CreateOrder(ctx context.Context, req *model.OrderRequest, userID *uuid.UUID) (*model.OrderConfirmation, error) {
	if req == nil {
		return nil, model.NewValidationError(map[string]string{"items": "is required"})
	}

	confirmation, err := s.createOrder(ctx, req, userID)
	if err == nil {
		return confirmation, nil
	}

	var de *model.DomainError
	if errors.As(err, &de) {
		return nil, err
	}
	s.logger.Error().Err(err).Msg("order creation failed")
	return nil, model.ErrOrderCreationFailed
}

func (s *orderService) createOrder(ctx context.Context, req *model.OrderRequest, userID *uuid.UUID) (*model.OrderConfirmation, error) {
	if err := validation.Struct(s.validate, req); err != nil {
		s.logger.Debug().Err(err).Msg("order request rejected")
		return nil, err
	}

	method, err := s.resolveDelivery(ctx, req.DeliveryMethodID)
	if err != nil {
		return nil, err
	}

	if err := s.checkPricing(ctx, req, method); err != nil {
		return nil, err
	}

	// Start transaction
	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			s.rollback(ctx, tx)
		}
	}()

	now := s.now()
	address := newShippingAddress(req.ShippingAddress)
	if err := s.orderRepo.CreateAddress(ctx, tx, address); err != nil {
		return nil, err
	}

	order := &model.Order{
		ID:               uuid.New(),
		UserID:           userID,
		CustomerEmail:    req.CustomerEmail,
		Status:           model.OrderStatusPending,
		Subtotal:         req.Subtotal,
		ShippingCost:     req.ShippingCost,
		TaxAmount:        req.TaxAmount,
		CODFee:           req.CODFee,
		Total:            req.Total,
		PaymentMethod:    req.PaymentMethod,
		Notes:            req.OrderNotes,
		AddressID:        address.ID,
		DeliveryMethodID: method.ID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
		return nil, err
	}

	orderItems := make([]model.OrderItem, len(req.Items))
	for i, item := range req.Items {
		orderItems[i] = model.OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
	}
	if err := s.orderRepo.CreateOrderItems(ctx, tx, orderItems); err != nil {
		return nil, err
	}

	for _, item := range orderItems {
		if err := s.productRepo.DecrementStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
			s.logger.Info().
				Err(err).
				Str("order_id", order.ID.String()).
				Str("product_id", item.ProductID).
				Msg("stock reservation failed")
			return nil, err
		}
	}

	payment := &model.Payment{
		ID:        uuid.New(),
		OrderID:   order.ID,
		Amount:    order.Total,
		Provider:  string(order.PaymentMethod),
		Status:    model.PaymentStatusInitiated,
		CreatedAt: now,
	}
	if err := s.orderRepo.CreatePayment(ctx, tx, payment); err != nil {
		return nil, err
	}

	confirmation := newConfirmation(order, req, method, payment)
	event, err := model.NewOutboxEvent(order.ID, model.EventOrderCreated, confirmation)
	if err != nil {
		return nil, fmt.Errorf("failed to build order event: %w", err)
	}
	if err := s.outboxRepo.Enqueue(ctx, tx, event); err != nil {
		return nil, err
	}

	// Commit transaction
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("order_number", confirmation.OrderNumber).
		Int("item_count", len(orderItems)).
		Str("total", order.Total.StringFixed(2)).
		Bool("guest", userID == nil).
		Msg("order created successfully")

	return confirmation, nil
}

func (s *orderService) resolveDelivery(ctx context.Context, id string) (*model.DeliveryMethod, error) {
	method, err := s.deliveryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve delivery method: %w", err)
	}
	if method == nil || !method.Active {
		s.logger.Warn().Str("delivery_method_id", id).Msg("unknown or inactive delivery method")
		return nil, model.ErrDeliveryMethodNotFound
	}
	return method, nil
}

// checkPricing enforces the pricing policy. Both modes require the submitted figures to be
// non-negative and to add up; verify mode additionally recomputes them from live prices.
func (s *orderService) checkPricing(ctx context.Context, req *model.OrderRequest, method *model.DeliveryMethod) error {
	if fields := pricing.NegativeAmounts(*req); len(fields) > 0 {
		s.logger.Warn().Str("total", req.Total.String()).Msg("order carries negative amounts")
		return model.NewValidationError(fields)
	}
	if !pricing.Balanced(*req) {
		s.logger.Warn().Str("total", req.Total.String()).Msg("order total does not equal the sum of its parts")
		return model.NewDomainError(model.ErrCodeTotalsMismatch, "order total does not equal subtotal + shipping + tax + fees")
	}

	productIDs := make([]string, len(req.Items))
	for i, item := range req.Items {
		productIDs[i] = item.ProductID
	}

	if s.policy.Mode == PricingTrust {
		return s.productRepo.ValidateProductsExist(ctx, productIDs)
	}

	products, err := s.productRepo.GetByIDs(ctx, productIDs)
	if err != nil {
		return fmt.Errorf("failed to load products: %w", err)
	}
	live := make(map[string]model.Product, len(products))
	for _, p := range products {
		live[p.ID] = p
	}

	current := make([]model.OrderItemRequest, len(req.Items))
	for i, item := range req.Items {
		p, ok := live[item.ProductID]
		if !ok {
			return model.NewDomainError(model.ErrCodeProductNotFound, fmt.Sprintf("product %s not found", item.ProductID))
		}
		if !p.Price.Equal(item.UnitPrice) {
			s.logger.Info().
				Str("product_id", p.ID).
				Str("submitted", item.UnitPrice.String()).
				Str("current", p.Price.String()).
				Msg("stale unit price")
			return model.NewDomainError(model.ErrCodeTotalsMismatch,
				fmt.Sprintf("price of %s changed to %s", p.Name, p.Price.StringFixed(2)))
		}
		current[i] = item
		current[i].UnitPrice = p.Price
	}

	expected := s.policy.Rules.Compute(pricing.Subtotal(current), method.Price, req.PaymentMethod)
	if !expected.Matches(*req) {
		s.logger.Info().
			Str("submitted_total", req.Total.String()).
			Str("expected_total", expected.Total.String()).
			Msg("order totals mismatch")
		return model.ErrTotalsMismatch
	}
	return nil
}

func (s *orderService) rollback(ctx context.Context, tx pgx.Tx) {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		s.logger.Error().Err(err).Msg("failed to rollback transaction")
	}
}

// GetByID retrieves an order with everything needed to render it.
func (s *orderService) GetByID(ctx context.Context, id uuid.UUID) (*model.OrderDetail, error) {
	detail, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if detail == nil {
		s.logger.Debug().Str("order_id", id.String()).Msg("order not found")
		return nil, model.ErrOrderNotFound
	}

	return detail, nil
}

// UpdateStatus locks the order, checks the transition and writes it with a compare-and-set
// on the previous status, recording an order.status_changed event in the same transaction.
// Cancelling an order does not restock.
func (s *orderService) UpdateStatus(ctx context.Context, id uuid.UUID, to model.OrderStatus) (*model.StatusChange, error) {
	if !to.Valid() {
		return nil, model.ErrInvalidStatus
	}

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			s.rollback(ctx, tx)
		}
	}()

	from, err := s.orderRepo.GetStatusForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if !from.CanTransitionTo(to) {
		s.logger.Info().
			Str("order_id", id.String()).
			Str("from", from.String()).
			Str("to", to.String()).
			Msg("illegal status transition")
		return nil, transitionError(from, to)
	}

	change := &model.StatusChange{OrderID: id, From: from, To: to, ChangedAt: s.now()}
	ok, err := s.orderRepo.UpdateStatus(ctx, tx, id, from, to, change.ChangedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	if !ok {
		return nil, transitionError(from, to)
	}

	event, err := model.NewOutboxEvent(id, model.EventOrderStatusChanged, change)
	if err != nil {
		return nil, fmt.Errorf("failed to build status event: %w", err)
	}
	if err := s.outboxRepo.Enqueue(ctx, tx, event); err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	committed = true

	s.logger.Info().
		Str("order_id", id.String()).
		Str("from", from.String()).
		Str("to", to.String()).
		Msg("order status updated")

	return change, nil
}

func transitionError(from, to model.OrderStatus) error {
	return model.NewDomainError(model.ErrCodeInvalidStatusTransition,
		fmt.Sprintf("cannot change order status from %s to %s", from, to))
}

func newShippingAddress(r model.ShippingAddressRequest) *model.ShippingAddress {
	return &model.ShippingAddress{
		ID:           uuid.New(),
		FullName:     r.FullName,
		Phone:        r.Phone,
		Email:        r.Email,
		AddressLine1: r.AddressLine1,
		AddressLine2: r.AddressLine2,
		City:         r.City,
		State:        r.State,
		PostalCode:   r.PostalCode,
		Country:      r.Country,
	}
}

func newConfirmation(order *model.Order, req *model.OrderRequest, method *model.DeliveryMethod, payment *model.Payment) *model.OrderConfirmation {
	items := make([]model.OrderItemRequest, len(req.Items))
	copy(items, req.Items)
	return &model.OrderConfirmation{
		OrderID:           order.ID,
		OrderNumber:       order.OrderNumber(),
		Status:            order.Status,
		EstimatedDelivery: method.EstimatedDelivery(order.CreatedAt),
		ShippingAddress:   req.ShippingAddress,
		PaymentMethod:     order.PaymentMethod,
		PaymentStatus:     payment.Status,
		Items:             items,
		Subtotal:          order.Subtotal,
		ShippingCost:      order.ShippingCost,
		TaxAmount:         order.TaxAmount,
		CODFee:            order.CODFee,
		Total:             order.Total,
		CreatedAt:         order.CreatedAt,
	}
}
