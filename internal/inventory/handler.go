package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/janjeevan/telehealth/internal/http/middleware"
	"github.com/janjeevan/telehealth/internal/observability/metrics"
	"github.com/janjeevan/telehealth/pkg/logging"
)

// Repository is the storage contract the handler depends on.
type Repository interface {
	Upsert(ctx context.Context, req *UpsertItemRequest) (*InventoryItem, error)
	List(ctx context.Context) ([]*InventoryItem, error)
	LowStock(ctx context.Context) ([]*InventoryItem, error)
	CreateReorder(ctx context.Context, req *CreateReorderRequest, requestedBy string) (*ReorderRequest, error)
	ListReorders(ctx context.Context) ([]*ReorderRequest, error)
	AdvanceReorder(ctx context.Context, id, next string) (*ReorderRequest, error)
}

// Handler handles HTTP requests for the pharmacy ledger.
type Handler struct {
	repo    Repository
	metrics *metrics.WorkflowMetrics
	logger  *logging.Logger
}

// NewHandler creates a new inventory handler.
func NewHandler(repo Repository, m *metrics.WorkflowMetrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, metrics: m, logger: logger}
}

// Upsert handles POST /inventory/update requests.
func (h *Handler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req UpsertItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.repo.Upsert(r.Context(), &req)
	if err != nil {
		if errors.Is(err, ErrMissingName) || errors.Is(err, ErrNegativeStock) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to upsert inventory item", "error", err, "name", req.Name)
		writeError(w, http.StatusInternalServerError, "failed to update inventory")
		return
	}

	h.logger.Info("inventory item upserted", "id", item.ID, "name", item.Name, "stock", item.Stock)
	writeJSON(w, http.StatusOK, item)
}

// List handles GET /inventory requests.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list inventory", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list inventory")
		return
	}
	if items == nil {
		items = []*InventoryItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

// LowStock handles GET /inventory/low-stock requests.
func (h *Handler) LowStock(w http.ResponseWriter, r *http.Request) {
	items, err := h.repo.LowStock(r.Context())
	if err != nil {
		h.logger.Error("failed to list low-stock items", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list low-stock items")
		return
	}
	if items == nil {
		items = []*InventoryItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

// CreateReorder handles POST /inventory/reorder requests.
func (h *Handler) CreateReorder(w http.ResponseWriter, r *http.Request) {
	var req CreateReorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var requestedBy string
	if identity, ok := middleware.IdentityFromContext(r.Context()); ok {
		requestedBy = identity.ProfileID
	}

	reorder, err := h.repo.CreateReorder(r.Context(), &req, requestedBy)
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingInventoryID), errors.Is(err, ErrInvalidQuantity):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrItemNotFound):
			writeError(w, http.StatusNotFound, "inventory item not found")
		default:
			h.logger.Error("failed to create reorder", "error", err, "inventory_id", req.InventoryID)
			writeError(w, http.StatusInternalServerError, "failed to create reorder")
		}
		return
	}

	h.metrics.ObserveReorder("manual")
	h.logger.Info("reorder requested", "id", reorder.ID, "item", reorder.ItemName, "quantity", reorder.Quantity)
	writeJSON(w, http.StatusCreated, reorder)
}

// ListReorders handles GET /inventory/reorders requests.
func (h *Handler) ListReorders(w http.ResponseWriter, r *http.Request) {
	reorders, err := h.repo.ListReorders(r.Context())
	if err != nil {
		h.logger.Error("failed to list reorders", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list reorders")
		return
	}
	if reorders == nil {
		reorders = []*ReorderRequest{}
	}
	writeJSON(w, http.StatusOK, reorders)
}

// AdvanceReorder handles PUT /inventory/reorder/{id} requests.
func (h *Handler) AdvanceReorder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reorder, err := h.repo.AdvanceReorder(r.Context(), id, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidReorderStatus):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrReorderNotFound):
			writeError(w, http.StatusNotFound, "reorder request not found")
		case errors.Is(err, ErrInvalidReorderTransition):
			writeError(w, http.StatusConflict, err.Error())
		default:
			h.logger.Error("failed to advance reorder", "error", err, "id", id)
			writeError(w, http.StatusInternalServerError, "failed to update reorder")
		}
		return
	}

	h.logger.Info("reorder advanced", "id", reorder.ID, "status", reorder.Status)
	writeJSON(w, http.StatusOK, reorder)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
