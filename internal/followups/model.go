package followups

import (
	"strings"
	"time"
)

// Follow-up statuses.
const (
	StatusPending   = "PENDING"
	StatusCompleted = "COMPLETED"
	StatusCancelled = "CANCELLED"
)

// FollowUp is a scheduled check-in on a care episode. CompletedAt is stamped
// when the visit happens and cleared if the status moves off COMPLETED.
type FollowUp struct {
	ID            string     `json:"id"`
	AppointmentID string     `json:"appointmentId"`
	ScheduledDate time.Time  `json:"scheduledDate"`
	Notes         string     `json:"notes,omitempty"`
	Status        string     `json:"status"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// CreateFollowUpRequest is the request body for POST /followups.
type CreateFollowUpRequest struct {
	AppointmentID string    `json:"appointmentId"`
	ScheduledDate time.Time `json:"scheduledDate"`
	Notes         string    `json:"notes,omitempty"`
}

// Validate validates the create request.
func (r *CreateFollowUpRequest) Validate() error {
	if strings.TrimSpace(r.AppointmentID) == "" {
		return ErrMissingAppointmentID
	}
	if r.ScheduledDate.IsZero() {
		return ErrMissingScheduledDate
	}
	return nil
}

// UpdateFollowUpRequest is the request body for PUT /followups/{id}.
type UpdateFollowUpRequest struct {
	Status *string `json:"status,omitempty"`
	Notes  *string `json:"notes,omitempty"`
}

// ValidStatus reports whether s names a known follow-up status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}
