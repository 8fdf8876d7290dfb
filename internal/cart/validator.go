package cart

import (
	"fmt"
	"strings"

	"storefront/internal/model"
)

// The checks below are preconditions only; they never touch storage or the network.

// ValidateItemInput checks an item before it is added to the cart.
func ValidateItemInput(in ItemInput, limits Limits) error {
	if strings.TrimSpace(in.ProductID) == "" {
		return model.NewDomainError(model.ErrCodeMissingField, "product ID is required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return model.NewDomainError(model.ErrCodeMissingField, "product name is required")
	}
	if in.Price.IsNegative() {
		return model.ErrInvalidPrice
	}
	return ValidateQuantity(in.Quantity, in.MaxStock, limits)
}

// ValidateQuantity checks qty against the stock snapshot and the per-item ceiling.
// Stock is checked before the global ceiling, so a quantity above both reports
// INSUFFICIENT_STOCK.
func ValidateQuantity(qty, maxStock int, limits Limits) error {
	if qty < 1 {
		return model.ErrInvalidQuantity
	}
	if qty > maxStock {
		if maxStock <= 0 {
			return model.NewDomainError(model.ErrCodeInsufficientStock, "product is out of stock")
		}
		return model.NewDomainError(model.ErrCodeInsufficientStock,
			fmt.Sprintf("only %d available", maxStock))
	}
	if limits.MaxQuantityPerItem > 0 && qty > limits.MaxQuantityPerItem {
		return model.NewDomainError(model.ErrCodeInvalidQuantity,
			fmt.Sprintf("at most %d per item", limits.MaxQuantityPerItem))
	}
	return nil
}

// ValidateCapacity checks that one more line fits in a cart holding lines lines.
func ValidateCapacity(lines int, limits Limits) error {
	if limits.MaxItems > 0 && lines >= limits.MaxItems {
		return model.ErrCartFull
	}
	return nil
}

// validateLine checks a persisted line during rehydration.
func validateLine(item LineItem, limits Limits) error {
	if item.ID != LineID(item.ProductID, item.Options) {
		return model.NewDomainError(model.ErrCodeValidationFailed, "line id does not match its product")
	}
	return ValidateItemInput(ItemInput{
		ProductID: item.ProductID,
		Name:      item.Name,
		Price:     item.Price,
		Quantity:  item.Quantity,
		MaxStock:  item.MaxStock,
	}, limits)
}
