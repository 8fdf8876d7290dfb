package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod labels how the customer intends to pay.
type PaymentMethod string

const (
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodCOD          PaymentMethod = "cod"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
)

// Valid reports whether m is a supported payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCard, PaymentMethodCOD, PaymentMethodBankTransfer:
		return true
	}
	return false
}

// PaymentStatusInitiated is the only payment status this system produces.
const PaymentStatusInitiated = "initiated"

// ShippingAddress is the destination recorded for a single order.
type ShippingAddress struct {
	ID           uuid.UUID `json:"id" db:"id"`
	FullName     string    `json:"fullName" db:"full_name"`
	Phone        string    `json:"phone" db:"phone"`
	Email        string    `json:"email" db:"email"`
	AddressLine1 string    `json:"addressLine1" db:"address_line1"`
	AddressLine2 string    `json:"addressLine2,omitempty" db:"address_line2"`
	City         string    `json:"city" db:"city"`
	State        string    `json:"state" db:"state"`
	PostalCode   string    `json:"postalCode" db:"postal_code"`
	Country      string    `json:"country" db:"country"`
}

// Order represents a customer order header.
type Order struct {
	ID               uuid.UUID        `json:"id" db:"id"`
	UserID           *uuid.UUID       `json:"userId,omitempty" db:"user_id"`
	CustomerEmail    string           `json:"customerEmail" db:"customer_email"`
	Status           OrderStatus      `json:"status" db:"status"`
	Subtotal         decimal.Decimal  `json:"subtotal" db:"subtotal"`
	ShippingCost     decimal.Decimal  `json:"shippingCost" db:"shipping_cost"`
	TaxAmount        decimal.Decimal  `json:"taxAmount" db:"tax_amount"`
	CODFee           *decimal.Decimal `json:"codFee,omitempty" db:"cod_fee"`
	Total            decimal.Decimal  `json:"total" db:"total"`
	PaymentMethod    PaymentMethod    `json:"paymentMethod" db:"payment_method"`
	Notes            *string          `json:"notes,omitempty" db:"notes"`
	AddressID        uuid.UUID        `json:"-" db:"address_id"`
	DeliveryMethodID string           `json:"deliveryMethodId" db:"delivery_method_id"`
	CreatedAt        time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time        `json:"updatedAt" db:"updated_at"`
}

// TotalsBalanced reports whether total == subtotal + shipping + tax + codFee.
func (o *Order) TotalsBalanced() bool {
	sum := o.Subtotal.Add(o.ShippingCost).Add(o.TaxAmount)
	if o.CODFee != nil {
		sum = sum.Add(*o.CODFee)
	}
	return sum.Equal(o.Total)
}

// OrderNumber is the human-readable reference printed on confirmations.
func (o *Order) OrderNumber() string {
	return OrderNumber(o.ID)
}

// OrderNumber derives the human-readable order reference from an order id.
func OrderNumber(id uuid.UUID) string {
	return "ORD-" + strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8])
}

// OrderItem represents a line item in an order.
type OrderItem struct {
	ID           uuid.UUID       `json:"-" db:"id"`
	OrderID      uuid.UUID       `json:"-" db:"order_id"`
	ProductID    string          `json:"productId" db:"product_id"`
	Quantity     int             `json:"quantity" db:"quantity"`
	UnitPrice    decimal.Decimal `json:"unitPrice" db:"unit_price"`
	ProductName  string          `json:"name,omitempty" db:"product_name"`
	ProductImage string          `json:"image,omitempty" db:"product_image"`
}

// LineTotal returns unit price times quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Payment is the recorded intent to pay for an order.
type Payment struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	OrderID   uuid.UUID       `json:"-" db:"order_id"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	Provider  string          `json:"provider" db:"provider"`
	Status    string          `json:"status" db:"status"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
}

// OrderRequest represents the request payload for committing a checkout.
type OrderRequest struct {
	Items            []OrderItemRequest     `json:"items" validate:"required,min=1,dive"`
	ShippingAddress  ShippingAddressRequest `json:"shippingAddress"`
	DeliveryMethodID string                 `json:"deliveryMethodId" validate:"required"`
	PaymentMethod    PaymentMethod          `json:"paymentMethod" validate:"required,oneof=card cod bank_transfer"`
	Subtotal         decimal.Decimal        `json:"subtotal"`
	ShippingCost     decimal.Decimal        `json:"shippingCost"`
	TaxAmount        decimal.Decimal        `json:"taxAmount"`
	CODFee           *decimal.Decimal       `json:"codFee,omitempty"`
	Total            decimal.Decimal        `json:"total"`
	OrderNotes       *string                `json:"orderNotes,omitempty" validate:"omitempty,max=1000"`
	CustomerEmail    string                 `json:"customerEmail" validate:"required,email"`
}

// OrderItemRequest represents a single cart line in an order request.
type OrderItemRequest struct {
	ProductID string          `json:"productId" validate:"required"`
	Quantity  int             `json:"quantity" validate:"min=1"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Name      string          `json:"name"`
}

// ShippingAddressRequest is the shipping form as submitted by the client.
type ShippingAddressRequest struct {
	FullName     string `json:"fullName" validate:"required"`
	Phone        string `json:"phone" validate:"required,phone"`
	Email        string `json:"email" validate:"required,email"`
	AddressLine1 string `json:"addressLine1" validate:"required"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city" validate:"required"`
	State        string `json:"state" validate:"required"`
	PostalCode   string `json:"postalCode" validate:"required"`
	Country      string `json:"country" validate:"required"`
}

// OrderConfirmation is returned after a successful commit.
type OrderConfirmation struct {
	OrderID           uuid.UUID              `json:"orderId"`
	OrderNumber       string                 `json:"orderNumber"`
	Status            OrderStatus            `json:"status"`
	EstimatedDelivery time.Time              `json:"estimatedDelivery"`
	ShippingAddress   ShippingAddressRequest `json:"shippingAddress"`
	PaymentMethod     PaymentMethod          `json:"paymentMethod"`
	PaymentStatus     string                 `json:"paymentStatus"`
	Items             []OrderItemRequest     `json:"items"`
	Subtotal          decimal.Decimal        `json:"subtotal"`
	ShippingCost      decimal.Decimal        `json:"shippingCost"`
	TaxAmount         decimal.Decimal        `json:"taxAmount"`
	CODFee            *decimal.Decimal       `json:"codFee,omitempty"`
	Total             decimal.Decimal        `json:"total"`
	CreatedAt         time.Time              `json:"createdAt"`
}

// OrderDetail is the full read model of a stored order.
type OrderDetail struct {
	Order
	OrderNumber       string          `json:"orderNumber"`
	ShippingAddress   ShippingAddress `json:"shippingAddress"`
	Items             []OrderItem     `json:"items"`
	DeliveryMethod    DeliveryMethod  `json:"deliveryMethod"`
	Payment           *Payment        `json:"payment,omitempty"`
	EstimatedDelivery time.Time       `json:"estimatedDelivery"`
}

// StatusUpdateRequest is the body of an admin status change.
type StatusUpdateRequest struct {
	Status string `json:"status"`
}
