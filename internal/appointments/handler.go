package appointments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/janjeevan/telehealth/internal/http/middleware"
	"github.com/janjeevan/telehealth/internal/notify"
	"github.com/janjeevan/telehealth/internal/observability/metrics"
	"github.com/janjeevan/telehealth/internal/triage"
	"github.com/janjeevan/telehealth/pkg/logging"
)

// UrgentNotifier alerts the on-call doctor about high-urgency cases.
type UrgentNotifier interface {
	UrgentCase(ctx context.Context, alert notify.UrgentCaseAlert)
}

// Broadcaster pushes appointment lifecycle events to connected dashboards.
type Broadcaster interface {
	Broadcast(eventType string, payload any)
}

// Handler handles HTTP requests for appointments.
type Handler struct {
	repo     Repository
	notifier UrgentNotifier
	events   Broadcaster
	metrics  *metrics.WorkflowMetrics
	logger   *logging.Logger
}

// NewHandler creates a new appointments handler. notifier and events may be
// nil; both are best-effort side channels.
func NewHandler(repo Repository, notifier UrgentNotifier, events Broadcaster, m *metrics.WorkflowMetrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		repo:     repo,
		notifier: notifier,
		events:   events,
		metrics:  m,
		logger:   logger,
	}
}

// Create handles POST /appointments requests.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	appt, err := h.repo.Create(r.Context(), &req)
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to create appointment", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create appointment")
		return
	}

	h.logger.Info("appointment created", "id", appt.ID, "patient_id", appt.PatientID, "status", appt.Status)

	// High-urgency cases alert the on-call doctor. Best effort: a failed or
	// missing notifier never fails the create.
	if appt.Verdict != nil && appt.Verdict.Urgency == triage.UrgencyHigh && h.notifier != nil {
		h.metrics.ObserveUrgentAlert()
		h.notifier.UrgentCase(r.Context(), notify.UrgentCaseAlert{
			AppointmentID:   appt.ID,
			Symptoms:        appt.Symptoms,
			Urgency:         appt.Verdict.Urgency,
			Recommendations: appt.Verdict.Recommendations,
			MeetingLink:     appt.VideoCallURL,
		})
	}

	if h.events != nil {
		h.events.Broadcast("appointment.created", appt)
	}

	writeJSON(w, http.StatusCreated, appt)
}

// Update handles PUT /appointments/{id} requests.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	upd := Update{
		Status:       req.Status,
		Diagnosis:    req.Diagnosis,
		Notes:        req.Notes,
		VideoCallURL: req.VideoCallURL,
		Verdict:      req.Verdict,
	}

	// A doctor approving a case takes it: the approval binds (or rebinds)
	// the appointment to them.
	if req.Status != nil && *req.Status == StatusApproved {
		if identity, ok := middleware.IdentityFromContext(r.Context()); ok && identity.Role == middleware.RoleDoctor {
			doctorID := identity.ProfileID
			upd.DoctorID = &doctorID
		}
	}

	appt, err := h.repo.Update(r.Context(), id, upd)
	if err != nil {
		switch {
		case errors.Is(err, ErrAppointmentNotFound):
			writeError(w, http.StatusNotFound, "appointment not found")
		case errors.Is(err, ErrInvalidStatus):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrInvalidTransition):
			writeError(w, http.StatusConflict, err.Error())
		default:
			h.logger.Error("failed to update appointment", "error", err, "id", id)
			writeError(w, http.StatusInternalServerError, "failed to update appointment")
		}
		return
	}

	if h.events != nil {
		h.events.Broadcast("appointment.updated", appt)
	}

	writeJSON(w, http.StatusOK, appt)
}

// List handles GET /appointments requests, filtered by requester role.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing identity")
		return
	}

	appts, err := h.repo.ListForIdentity(r.Context(), identity)
	if err != nil {
		h.logger.Error("failed to list appointments", "error", err, "role", identity.Role)
		writeError(w, http.StatusInternalServerError, "failed to list appointments")
		return
	}
	if appts == nil {
		appts = []*Appointment{}
	}

	writeJSON(w, http.StatusOK, appts)
}

// Get handles GET /appointments/{id} requests.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	appt, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			writeError(w, http.StatusNotFound, "appointment not found")
			return
		}
		h.logger.Error("failed to fetch appointment", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "failed to fetch appointment")
		return
	}

	writeJSON(w, http.StatusOK, appt)
}

// SendUrgentNotification handles POST /appointments/urgent-notification.
// Clients call this after triage flags a HIGH urgency case; the response is
// always success as long as the request parses (delivery is best effort).
func (h *Handler) SendUrgentNotification(w http.ResponseWriter, r *http.Request) {
	var alert notify.UrgentCaseAlert
	if err := json.NewDecoder(r.Body).Decode(&alert); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if h.notifier != nil {
		h.metrics.ObserveUrgentAlert()
		h.notifier.UrgentCase(r.Context(), alert)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "urgent notification processed",
	})
}

func isValidationError(err error) bool {
	return errors.Is(err, ErrMissingPatientID) ||
		errors.Is(err, ErrMissingSymptoms) ||
		errors.Is(err, ErrInvalidStatus)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
