// Package pricing computes checkout totals. The checkout client and the order service share
// it so that both sides agree on rounding.
package pricing

import (
	"fmt"

	"storefront/internal/model"

	"github.com/shopspring/decimal"
)

// Rules are the store-wide pricing parameters.
type Rules struct {
	TaxRate decimal.Decimal
	CODFee  decimal.Decimal
}

// NewRules converts configuration values to Rules.
func NewRules(taxRate, codFee float64) Rules {
	return Rules{
		TaxRate: decimal.NewFromFloat(taxRate),
		CODFee:  decimal.NewFromFloat(codFee),
	}
}

// Totals are the four components of an order total and their sum.
type Totals struct {
	Subtotal     decimal.Decimal  `json:"subtotal"`
	ShippingCost decimal.Decimal  `json:"shippingCost"`
	TaxAmount    decimal.Decimal  `json:"taxAmount"`
	CODFee       *decimal.Decimal `json:"codFee,omitempty"`
	Total        decimal.Decimal  `json:"total"`
}

// Compute derives totals for a cart subtotal, a delivery price and a payment method.
// Tax is rounded to cents; the COD fee only applies to cash on delivery.
func (r Rules) Compute(subtotal, shipping decimal.Decimal, method model.PaymentMethod) Totals {
	t := Totals{
		Subtotal:     subtotal,
		ShippingCost: shipping,
		TaxAmount:    subtotal.Mul(r.TaxRate).Round(2),
	}
	t.Total = t.Subtotal.Add(t.ShippingCost).Add(t.TaxAmount)
	if method == model.PaymentMethodCOD && r.CODFee.IsPositive() {
		fee := r.CODFee
		t.CODFee = &fee
		t.Total = t.Total.Add(fee)
	}
	return t
}

// Subtotal sums unit price times quantity over items.
func Subtotal(items []model.OrderItemRequest) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return sum
}

// Matches reports whether the submitted figures equal t. A missing COD fee equals zero.
func (t Totals) Matches(req model.OrderRequest) bool {
	return t.Subtotal.Equal(req.Subtotal) &&
		t.ShippingCost.Equal(req.ShippingCost) &&
		t.TaxAmount.Equal(req.TaxAmount) &&
		feeOrZero(t.CODFee).Equal(feeOrZero(req.CODFee)) &&
		t.Total.Equal(req.Total)
}

// NegativeAmounts returns a message for every submitted money field below zero, keyed by
// its json path. It is empty when all amounts are zero or positive.
func NegativeAmounts(req model.OrderRequest) map[string]string {
	const msg = "must not be negative"
	fields := map[string]string{}
	for i, item := range req.Items {
		if item.UnitPrice.IsNegative() {
			fields[fmt.Sprintf("items[%d].unitPrice", i)] = msg
		}
	}
	for name, amount := range map[string]decimal.Decimal{
		"subtotal":     req.Subtotal,
		"shippingCost": req.ShippingCost,
		"taxAmount":    req.TaxAmount,
		"codFee":       feeOrZero(req.CODFee),
		"total":        req.Total,
	} {
		if amount.IsNegative() {
			fields[name] = msg
		}
	}
	return fields
}

// Balanced reports whether the submitted total equals the sum of its submitted components.
func Balanced(req model.OrderRequest) bool {
	sum := req.Subtotal.Add(req.ShippingCost).Add(req.TaxAmount).Add(feeOrZero(req.CODFee))
	return sum.Equal(req.Total)
}

func feeOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
