package followups

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/janjeevan/telehealth/pkg/logging"
)

// Repository is the storage contract the handler depends on.
type Repository interface {
	Create(ctx context.Context, req *CreateFollowUpRequest) (*FollowUp, error)
	Update(ctx context.Context, id string, req *UpdateFollowUpRequest) (*FollowUp, error)
	List(ctx context.Context) ([]*FollowUp, error)
}

// Handler handles HTTP requests for follow-ups.
type Handler struct {
	repo   Repository
	logger *logging.Logger
}

// NewHandler creates a new follow-ups handler.
func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

// Create handles POST /followups requests.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateFollowUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	f, err := h.repo.Create(r.Context(), &req)
	if err != nil {
		if errors.Is(err, ErrMissingAppointmentID) || errors.Is(err, ErrMissingScheduledDate) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to create follow-up", "error", err, "appointment_id", req.AppointmentID)
		writeError(w, http.StatusInternalServerError, "failed to create follow-up")
		return
	}

	h.logger.Info("follow-up scheduled", "id", f.ID, "appointment_id", f.AppointmentID, "scheduled_date", f.ScheduledDate)
	writeJSON(w, http.StatusCreated, f)
}

// Update handles PUT /followups/{id} requests.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateFollowUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	f, err := h.repo.Update(r.Context(), id, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidStatus):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrFollowUpNotFound):
			writeError(w, http.StatusNotFound, "follow-up not found")
		default:
			h.logger.Error("failed to update follow-up", "error", err, "id", id)
			writeError(w, http.StatusInternalServerError, "failed to update follow-up")
		}
		return
	}

	writeJSON(w, http.StatusOK, f)
}

// List handles GET /followups requests.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list follow-ups", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list follow-ups")
		return
	}
	if list == nil {
		list = []*FollowUp{}
	}
	writeJSON(w, http.StatusOK, list)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
