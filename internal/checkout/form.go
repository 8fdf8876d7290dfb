package checkout

import (
	"strings"

	"storefront/internal/model"
)

// ShippingForm is the shipping-address form filled in at checkout.
type ShippingForm struct {
	FullName     string `json:"fullName" validate:"required,max=100"`
	Phone        string `json:"phone" validate:"required,phone"`
	Email        string `json:"email" validate:"required,email"`
	AddressLine1 string `json:"addressLine1" validate:"required,max=200"`
	AddressLine2 string `json:"addressLine2" validate:"max=200"`
	City         string `json:"city" validate:"required,max=100"`
	State        string `json:"state" validate:"required,max=100"`
	PostalCode   string `json:"postalCode" validate:"required,max=20"`
	Country      string `json:"country" validate:"required,max=100"`
}

// CardDetails are only collected and checked when paying by card. They are never sent to
// the server.
type CardDetails struct {
	Holder string `json:"holder" validate:"required"`
	Number string `json:"number" validate:"required,cardnumber"`
	Expiry string `json:"expiry" validate:"required,cardexpiry"`
	CVV    string `json:"cvv" validate:"required,number,min=3,max=4"`
}

// Form is everything the customer enters at checkout besides the cart itself.
type Form struct {
	Shipping       ShippingForm          `json:"shipping"`
	DeliveryMethod *model.DeliveryMethod `json:"deliveryMethod" validate:"required"`
	PaymentMethod  model.PaymentMethod   `json:"paymentMethod" validate:"required,oneof=card cod bank_transfer"`
	Card           *CardDetails          `json:"card" validate:"omitempty"`
	Notes          string                `json:"notes" validate:"max=1000"`
	// CustomerEmail defaults to the shipping email when empty.
	CustomerEmail string `json:"customerEmail" validate:"omitempty,email"`
}

// forValidation returns the form as it should be validated: card details are dropped
// unless paying by card, and a missing card is reported when they are required.
func (f Form) forValidation() (Form, map[string]string) {
	out := f
	extra := map[string]string{}
	if f.PaymentMethod != model.PaymentMethodCard {
		out.Card = nil
	} else if f.Card == nil {
		extra["card"] = "is required"
	}
	return out, extra
}

func (f Form) customerEmail() string {
	if e := strings.TrimSpace(f.CustomerEmail); e != "" {
		return e
	}
	return strings.TrimSpace(f.Shipping.Email)
}

func (f Form) shippingRequest() model.ShippingAddressRequest {
	s := f.Shipping
	return model.ShippingAddressRequest{
		FullName:     strings.TrimSpace(s.FullName),
		Phone:        strings.TrimSpace(s.Phone),
		Email:        strings.TrimSpace(s.Email),
		AddressLine1: strings.TrimSpace(s.AddressLine1),
		AddressLine2: strings.TrimSpace(s.AddressLine2),
		City:         strings.TrimSpace(s.City),
		State:        strings.TrimSpace(s.State),
		PostalCode:   strings.TrimSpace(s.PostalCode),
		Country:      strings.TrimSpace(s.Country),
	}
}
