// Package checkout turns the client-held cart and the checkout form into one order
// request and submits it.
package checkout

import (
	"context"
	"errors"
	"sync"

	"storefront/internal/cart"
	"storefront/internal/model"
	"storefront/internal/pricing"
	"storefront/internal/validation"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Submitter sends a committed order request to the order service.
type Submitter interface {
	SubmitOrder(ctx context.Context, req model.OrderRequest) (*model.OrderConfirmation, error)
}

// Status is the lifecycle of a checkout submission.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusSubmitting Status = "submitting"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
)

// ErrSubmitInProgress is returned when Submit is called while another submission is in flight.
var ErrSubmitInProgress = errors.New("checkout: submission already in progress")

var errEmptyConfirmation = errors.New("checkout: order service returned no confirmation")

// Coordinator assembles the order request from the cart and the form, validates it and
// submits it exactly once per call.
type Coordinator struct {
	cart      *cart.Store
	submitter Submitter
	rules     pricing.Rules
	validate  *validator.Validate
	logger    zerolog.Logger

	mu           sync.Mutex
	form         Form
	status       Status
	lastErr      error
	confirmation *model.OrderConfirmation
}

// NewCoordinator creates a coordinator over store. v may be nil, in which case
// validation.New() is used.
func NewCoordinator(store *cart.Store, submitter Submitter, rules pricing.Rules, v *validator.Validate, logger zerolog.Logger) *Coordinator {
	if v == nil {
		v = validation.New()
	}
	return &Coordinator{
		cart:      store,
		submitter: submitter,
		rules:     rules,
		validate:  v,
		logger:    logger.With().Str("component", "checkout").Logger(),
		status:    StatusIdle,
	}
}

// SetShipping replaces the shipping form.
func (c *Coordinator) SetShipping(s ShippingForm) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form.Shipping = s
}

// SelectDelivery selects the delivery method.
func (c *Coordinator) SelectDelivery(m model.DeliveryMethod) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form.DeliveryMethod = &m
}

// SelectPayment selects the payment method.
func (c *Coordinator) SelectPayment(m model.PaymentMethod) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form.PaymentMethod = m
}

// SetCard sets the card details used when paying by card.
func (c *Coordinator) SetCard(d CardDetails) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form.Card = &d
}

// SetNotes sets the free-text order notes.
func (c *Coordinator) SetNotes(notes string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form.Notes = notes
}

// SetCustomerEmail overrides the contact email recorded on the order.
func (c *Coordinator) SetCustomerEmail(email string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form.CustomerEmail = email
}

// Form returns the current form.
func (c *Coordinator) Form() Form {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form
}

// Status returns the submission status and the error of the last failed submission.
func (c *Coordinator) Status() (Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status, c.lastErr
}

// Confirmation returns the confirmation of the last successful submission.
func (c *Coordinator) Confirmation() *model.OrderConfirmation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.confirmation
}

// Validate checks the cart and the form. It returns nil or a VALIDATION_FAILED error whose
// Fields name every invalid input.
func (c *Coordinator) Validate() error {
	c.mu.Lock()
	form := c.form
	c.mu.Unlock()
	return c.validateForm(form, c.cart.State())
}

func (c *Coordinator) validateForm(form Form, state cart.State) error {
	fields := map[string]string{}

	checked, extra := form.forValidation()
	for k, v := range extra {
		fields[k] = v
	}
	if err := validation.Struct(c.validate, checked); err != nil {
		var de *model.DomainError
		if !errors.As(err, &de) {
			return err
		}
		for k, v := range de.Fields {
			fields[k] = v
		}
	}
	if state.IsEmpty() {
		fields["items"] = "cart is empty"
	}

	if len(fields) > 0 {
		return model.NewValidationError(fields)
	}
	return nil
}

// Totals computes the order totals from the current cart and form. Shipping is zero until
// a delivery method is selected.
func (c *Coordinator) Totals() pricing.Totals {
	c.mu.Lock()
	form := c.form
	c.mu.Unlock()
	return c.totals(form, c.cart.State())
}

func (c *Coordinator) totals(form Form, state cart.State) pricing.Totals {
	shipping := decimal.Zero
	if form.DeliveryMethod != nil {
		shipping = form.DeliveryMethod.Price
	}
	return c.rules.Compute(state.TotalPrice, shipping, form.PaymentMethod)
}

// BuildRequest validates the checkout and returns the request Submit would send.
func (c *Coordinator) BuildRequest() (model.OrderRequest, error) {
	c.mu.Lock()
	form := c.form
	c.mu.Unlock()
	return c.buildRequest(form, c.cart.State())
}

func (c *Coordinator) buildRequest(form Form, state cart.State) (model.OrderRequest, error) {
	if err := c.validateForm(form, state); err != nil {
		return model.OrderRequest{}, err
	}

	items := make([]model.OrderItemRequest, len(state.Items))
	for i, line := range state.Items {
		items[i] = model.OrderItemRequest{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.Price,
			Name:      line.Name,
		}
	}

	totals := c.totals(form, state)
	req := model.OrderRequest{
		Items:            items,
		ShippingAddress:  form.shippingRequest(),
		DeliveryMethodID: form.DeliveryMethod.ID,
		PaymentMethod:    form.PaymentMethod,
		Subtotal:         totals.Subtotal,
		ShippingCost:     totals.ShippingCost,
		TaxAmount:        totals.TaxAmount,
		CODFee:           totals.CODFee,
		Total:            totals.Total,
		CustomerEmail:    form.customerEmail(),
	}
	if form.Notes != "" {
		notes := form.Notes
		req.OrderNotes = &notes
	}
	return req, nil
}

// Submit validates the checkout and sends a single order request. On success the cart is
// cleared and the confirmation returned; on failure the cart is left untouched and the
// submitter's error is returned as is.
func (c *Coordinator) Submit(ctx context.Context) (*model.OrderConfirmation, error) {
	c.mu.Lock()
	if c.status == StatusSubmitting {
		c.mu.Unlock()
		return nil, ErrSubmitInProgress
	}
	form := c.form
	state := c.cart.State()

	req, err := c.buildRequest(form, state)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.status = StatusSubmitting
	c.lastErr = nil
	c.mu.Unlock()

	c.logger.Info().
		Int("lines", len(req.Items)).
		Str("total", req.Total.StringFixed(2)).
		Str("payment_method", string(req.PaymentMethod)).
		Msg("submitting order")

	confirmation, err := c.submitter.SubmitOrder(ctx, req)
	if err == nil && confirmation == nil {
		err = errEmptyConfirmation
	}

	c.mu.Lock()
	if err != nil {
		c.status = StatusFailed
		c.lastErr = err
		c.mu.Unlock()
		c.logger.Warn().Err(err).Str("code", model.ErrorCode(err)).Msg("order submission failed")
		return nil, err
	}
	c.status = StatusSucceeded
	c.confirmation = confirmation
	c.form.Card = nil
	c.mu.Unlock()

	// Cleared outside c.mu: cart listeners may call back into the coordinator.
	if err := c.cart.Clear(); err != nil {
		c.logger.Error().Err(err).Msg("failed to clear cart after order")
	}

	c.logger.Info().
		Str("order_id", confirmation.OrderID.String()).
		Str("order_number", confirmation.OrderNumber).
		Msg("order placed")

	return confirmation, nil
}

// Reset returns the coordinator to idle, keeping the form.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != StatusSubmitting {
		c.status = StatusIdle
		c.lastErr = nil
	}
}
