package prescriptions

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
	Create(ctx context.Context, req *CreatePrescriptionRequest) (*Prescription, error)
	GetByID(ctx context.Context, id string) (*Prescription, error)
	Fulfill(ctx context.Context, id, actor string) (*FulfillmentResult, error)
	ListForIdentity(ctx context.Context, identity middleware.Identity) ([]*Prescription, error)
}

// Handler handles HTTP requests for prescriptions.
type Handler struct {
	repo    Repository
	metrics *metrics.WorkflowMetrics
	logger  *logging.Logger
}

// NewHandler creates a new prescriptions handler.
func NewHandler(repo Repository, m *metrics.WorkflowMetrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, metrics: m, logger: logger}
}

// Create handles POST /prescriptions requests. Writing a prescription closes
// the appointment, so the response carries only the prescription.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePrescriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.repo.Create(r.Context(), &req)
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to create prescription", "error", err, "appointment_id", req.AppointmentID)
		writeError(w, http.StatusInternalServerError, "failed to create prescription")
		return
	}

	h.logger.Info("prescription created", "id", p.ID, "appointment_id", p.AppointmentID, "medications", len(p.Medications))
	writeJSON(w, http.StatusCreated, p)
}

// Fulfill handles PUT /prescriptions/{id}/fulfill requests.
func (h *Handler) Fulfill(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var actor string
	if identity, ok := middleware.IdentityFromContext(r.Context()); ok {
		actor = identity.ProfileID
	}

	result, err := h.repo.Fulfill(r.Context(), id, actor)
	if err != nil {
		switch {
		case errors.Is(err, ErrPrescriptionNotFound):
			h.metrics.ObserveFulfillment("not_found")
			writeError(w, http.StatusNotFound, "prescription not found")
		case errors.Is(err, ErrAlreadyDispensed):
			h.metrics.ObserveFulfillment("already_dispensed")
			writeError(w, http.StatusConflict, "prescription already dispensed")
		case errors.Is(err, ErrInsufficientStock):
			h.metrics.ObserveFulfillment("insufficient_stock")
			writeError(w, http.StatusConflict, "insufficient stock")
		default:
			h.metrics.ObserveFulfillment("error")
			h.logger.Error("failed to fulfill prescription", "error", err, "id", id)
			writeError(w, http.StatusInternalServerError, "failed to fulfill prescription")
		}
		return
	}

	h.metrics.ObserveFulfillment("dispensed")
	for range result.Reordered {
		h.metrics.ObserveReorder("auto")
	}
	h.logger.Info("prescription dispensed",
		"id", id,
		"by", actor,
		"decremented", len(result.Decremented),
		"unmatched", len(result.Unmatched),
		"reordered", len(result.Reordered),
	)

	writeJSON(w, http.StatusOK, result)
}

// List handles GET /prescriptions requests, filtered by requester role.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing identity")
		return
	}

	list, err := h.repo.ListForIdentity(r.Context(), identity)
	if err != nil {
		h.logger.Error("failed to list prescriptions", "error", err, "role", identity.Role)
		writeError(w, http.StatusInternalServerError, "failed to list prescriptions")
		return
	}
	if list == nil {
		list = []*Prescription{}
	}

	writeJSON(w, http.StatusOK, list)
}

// Get handles GET /prescriptions/{id} requests.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrPrescriptionNotFound) {
			writeError(w, http.StatusNotFound, "prescription not found")
			return
		}
		h.logger.Error("failed to fetch prescription", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "failed to fetch prescription")
		return
	}

	writeJSON(w, http.StatusOK, p)
}

func isValidationError(err error) bool {
	return errors.Is(err, ErrMissingAppointmentID) ||
		errors.Is(err, ErrMissingPatientID) ||
		errors.Is(err, ErrMissingMedications)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
