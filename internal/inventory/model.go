package inventory

import (
	"strings"
	"time"
)

// Reorder request statuses. Transitions are forward-only:
// PENDING → ORDERED → RECEIVED.
const (
	ReorderPending  = "PENDING"
	ReorderOrdered  = "ORDERED"
	ReorderReceived = "RECEIVED"
)

// Defaults applied when an item is first registered without explicit values.
const (
	defaultUnit      = "units"
	defaultThreshold = 10
)

// InventoryItem is one medication line in the pharmacy ledger. Names are
// unique; prescriptions match against them exactly.
type InventoryItem struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Stock            int       `json:"stock"`
	Unit             string    `json:"unit"`
	ReorderThreshold int       `json:"reorderThreshold"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// ReorderRequest tracks a restock order through its lifecycle. ItemName is
// joined in on reads for display.
type ReorderRequest struct {
	ID          string    `json:"id"`
	InventoryID string    `json:"inventoryId"`
	ItemName    string    `json:"itemName,omitempty"`
	Quantity    int       `json:"quantity"`
	Status      string    `json:"status"`
	RequestedBy string    `json:"requestedBy,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// UpsertItemRequest is the body for POST /inventory/update. Nil fields keep
// their current value on update and fall back to defaults on create.
type UpsertItemRequest struct {
	Name             string  `json:"name"`
	Stock            *int    `json:"stock,omitempty"`
	Unit             *string `json:"unit,omitempty"`
	ReorderThreshold *int    `json:"reorderThreshold,omitempty"`
}

// Validate validates the upsert request.
func (r *UpsertItemRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrMissingName
	}
	if r.Stock != nil && *r.Stock < 0 {
		return ErrNegativeStock
	}
	return nil
}

// CreateReorderRequest is the body for POST /inventory/reorder.
type CreateReorderRequest struct {
	InventoryID string `json:"inventoryId"`
	Quantity    int    `json:"quantity"`
}

// Validate validates the manual reorder request.
func (r *CreateReorderRequest) Validate() error {
	if strings.TrimSpace(r.InventoryID) == "" {
		return ErrMissingInventoryID
	}
	if r.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	return nil
}

// ValidReorderStatus reports whether s names a known reorder status.
func ValidReorderStatus(s string) bool {
	switch s {
	case ReorderPending, ReorderOrdered, ReorderReceived:
		return true
	}
	return false
}

// CanAdvanceReorder reports whether the status change moves forward in the
// lifecycle. Backward moves and repeats are rejected so a RECEIVED order can
// never replenish stock twice.
func CanAdvanceReorder(from, to string) bool {
	switch from {
	case ReorderPending:
		return to == ReorderOrdered || to == ReorderReceived
	case ReorderOrdered:
		return to == ReorderReceived
	}
	return false
}
