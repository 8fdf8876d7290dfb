package model

import (
	"errors"
	"sort"
	"strings"
)

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Code    string            `json:"code,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Standard error codes for API responses and cart/checkout errors.
const (
	ErrCodeInvalidJSON             = "INVALID_JSON"
	ErrCodeMissingField            = "MISSING_FIELD"
	ErrCodeItemNotFound            = "ITEM_NOT_FOUND"
	ErrCodeInsufficientStock       = "INSUFFICIENT_STOCK"
	ErrCodeInvalidQuantity         = "INVALID_QUANTITY"
	ErrCodeInvalidPrice            = "INVALID_PRICE"
	ErrCodeCartFull                = "CART_FULL"
	ErrCodeStorageError            = "STORAGE_ERROR"
	ErrCodeValidationFailed        = "VALIDATION_FAILED"
	ErrCodeProductNotFound         = "PRODUCT_NOT_FOUND"
	ErrCodeDeliveryMethodNotFound  = "DELIVERY_METHOD_NOT_FOUND"
	ErrCodeTotalsMismatch          = "TOTALS_MISMATCH"
	ErrCodeOrderCreationFailed     = "ORDER_CREATION_FAILED"
	ErrCodeOrderNotFound           = "ORDER_NOT_FOUND"
	ErrCodeInvalidStatus           = "INVALID_STATUS"
	ErrCodeInvalidStatusTransition = "INVALID_STATUS_TRANSITION"
	ErrCodeUnauthorised            = "UNAUTHORIZED"
	ErrCodeForbidden               = "FORBIDDEN"
	ErrCodeInternalError           = "INTERNAL_ERROR"
)

// DomainError is a business error carrying a machine-readable code.
type DomainError struct {
	Code    string
	Message string
	// Fields holds per-field messages for VALIDATION_FAILED errors.
	Fields map[string]string
}

func (e *DomainError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return e.Message + " (" + strings.Join(parts, "; ") + ")"
}

// Is matches domain errors by code so that errors.Is(err, ErrInsufficientStock)
// holds for any error carrying the same code.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a VALIDATION_FAILED error with per-field messages.
func NewValidationError(fields map[string]string) *DomainError {
	return &DomainError{
		Code:    ErrCodeValidationFailed,
		Message: "validation failed",
		Fields:  fields,
	}
}

// ErrorCode returns the domain code carried by err, or "" when err is not a domain error.
func ErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Common domain errors
var (
	ErrItemNotFound            = NewDomainError(ErrCodeItemNotFound, "Cart item not found")
	ErrInsufficientStock       = NewDomainError(ErrCodeInsufficientStock, "Requested quantity exceeds available stock")
	ErrInvalidQuantity         = NewDomainError(ErrCodeInvalidQuantity, "Quantity must be between 1 and the per-item maximum")
	ErrInvalidPrice            = NewDomainError(ErrCodeInvalidPrice, "Price must not be negative")
	ErrCartFull                = NewDomainError(ErrCodeCartFull, "Cart has reached the maximum number of items")
	ErrStorage                 = NewDomainError(ErrCodeStorageError, "Cart storage failed")
	ErrProductNotFound         = NewDomainError(ErrCodeProductNotFound, "One or more products not found")
	ErrDeliveryMethodNotFound  = NewDomainError(ErrCodeDeliveryMethodNotFound, "Delivery method not found")
	ErrTotalsMismatch          = NewDomainError(ErrCodeTotalsMismatch, "Order totals do not match current prices")
	ErrOrderCreationFailed     = NewDomainError(ErrCodeOrderCreationFailed, "failed to create order")
	ErrOrderNotFound           = NewDomainError(ErrCodeOrderNotFound, "Order not found")
	ErrInvalidStatus           = NewDomainError(ErrCodeInvalidStatus, "Unknown order status")
	ErrInvalidStatusTransition = NewDomainError(ErrCodeInvalidStatusTransition, "Order status transition not allowed")
)
