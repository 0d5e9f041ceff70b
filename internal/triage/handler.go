package triage

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/janjeevan/telehealth/pkg/logging"
)

// Handler handles HTTP requests for symptom analysis.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a new triage handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// AnalyzeRequest is the request body for symptom analysis.
type AnalyzeRequest struct {
	Symptoms string `json:"symptoms"`
}

// AnalyzeSymptoms handles POST /ai/analyze-symptoms requests.
func (h *Handler) AnalyzeSymptoms(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	verdict, err := h.service.Analyze(r.Context(), req.Symptoms)
	if err != nil {
		if errors.Is(err, ErrSymptomsRequired) {
			writeError(w, http.StatusBadRequest, "symptoms are required")
			return
		}
		h.logger.Error("symptom analysis failed", "error", err)
		writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(verdict)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
