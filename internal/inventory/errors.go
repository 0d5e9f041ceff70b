package inventory

import "errors"

var (
	ErrItemNotFound             = errors.New("inventory: item not found")
	ErrMissingName              = errors.New("inventory: name is required")
	ErrNegativeStock            = errors.New("inventory: stock cannot be negative")
	ErrMissingInventoryID       = errors.New("inventory: inventoryId is required")
	ErrInvalidQuantity          = errors.New("inventory: quantity must be positive")
	ErrReorderNotFound          = errors.New("inventory: reorder request not found")
	ErrInvalidReorderStatus     = errors.New("inventory: unknown reorder status")
	ErrInvalidReorderTransition = errors.New("inventory: reorder status cannot move backward")
)
