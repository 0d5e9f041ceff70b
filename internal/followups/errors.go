package followups

import "errors"

var (
	ErrFollowUpNotFound     = errors.New("followups: follow-up not found")
	ErrMissingAppointmentID = errors.New("followups: appointmentId is required")
	ErrMissingScheduledDate = errors.New("followups: scheduledDate is required")
	ErrInvalidStatus        = errors.New("followups: unknown status")
)
