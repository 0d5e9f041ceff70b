package appointments

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/janjeevan/telehealth/internal/triage"
)

// Appointment statuses. The lifecycle is PENDING → APPROVED → COMPLETED,
// with PENDING/APPROVED → CANCELLED. COMPLETED and CANCELLED are terminal.
const (
	StatusPending   = "PENDING"
	StatusApproved  = "APPROVED"
	StatusCompleted = "COMPLETED"
	StatusCancelled = "CANCELLED"
)

// Appointment is a care episode from symptom report to clinical decision.
// Rows are never hard-deleted; they are the patient's history.
type Appointment struct {
	ID           string          `json:"id"`
	PatientID    string          `json:"patientId"`
	DoctorID     *string         `json:"doctorId,omitempty"`
	Status       string          `json:"status"`
	Symptoms     string          `json:"symptoms"`
	Verdict      *triage.Verdict `json:"aiAnalysis,omitempty"`
	Diagnosis    string          `json:"diagnosis,omitempty"`
	Notes        string          `json:"notes,omitempty"`
	VideoCallURL string          `json:"videoCallUrl,omitempty"`
	ScheduledAt  time.Time       `json:"scheduledAt"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// CreateAppointmentRequest is the request body for creating an appointment.
// Symptoms may arrive as free text or as a structured record; either way it
// is normalized to text at this boundary.
type CreateAppointmentRequest struct {
	PatientID   string          `json:"patientId"`
	Symptoms    json.RawMessage `json:"symptoms"`
	Status      string          `json:"status,omitempty"`
	Verdict     *triage.Verdict `json:"aiAnalysis,omitempty"`
	ScheduledAt *time.Time      `json:"scheduledAt,omitempty"`
}

// SymptomsText returns the symptom payload as text. A JSON string is
// unwrapped; any other JSON value is kept verbatim.
func (r *CreateAppointmentRequest) SymptomsText() string {
	if len(r.Symptoms) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(r.Symptoms, &s); err == nil {
		return s
	}
	return string(r.Symptoms)
}

// Validate validates the create request.
func (r *CreateAppointmentRequest) Validate() error {
	if strings.TrimSpace(r.PatientID) == "" {
		return ErrMissingPatientID
	}
	if strings.TrimSpace(r.SymptomsText()) == "" {
		return ErrMissingSymptoms
	}
	switch r.Status {
	case "", StatusPending, StatusCompleted:
		// COMPLETED at creation is the ASHA minor-case shortcut: the worker
		// dispenses locally and closes the episode without a doctor.
	default:
		return ErrInvalidStatus
	}
	return nil
}

// Update describes a partial appointment update. Nil fields are untouched.
type Update struct {
	Status       *string
	DoctorID     *string
	Diagnosis    *string
	Notes        *string
	VideoCallURL *string
	Verdict      *triage.Verdict
}

// UpdateAppointmentRequest is the request body for PUT /appointments/{id}.
type UpdateAppointmentRequest struct {
	Status       *string         `json:"status,omitempty"`
	Diagnosis    *string         `json:"diagnosis,omitempty"`
	Notes        *string         `json:"notes,omitempty"`
	VideoCallURL *string         `json:"videoCallUrl,omitempty"`
	Verdict      *triage.Verdict `json:"aiAnalysis,omitempty"`
}

// ValidStatus reports whether s names a known appointment status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusApproved, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether the status change is allowed by the
// lifecycle. APPROVED → APPROVED is permitted: a second doctor re-approving
// silently takes over the case.
func CanTransition(from, to string) bool {
	switch from {
	case StatusPending:
		return to == StatusApproved || to == StatusCompleted || to == StatusCancelled
	case StatusApproved:
		return to == StatusApproved || to == StatusCompleted || to == StatusCancelled
	}
	return false
}
