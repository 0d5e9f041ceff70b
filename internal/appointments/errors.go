package appointments

import "errors"

var (
	// ErrAppointmentNotFound indicates the appointment does not exist.
	ErrAppointmentNotFound = errors.New("appointments: appointment not found")

	// ErrMissingPatientID indicates a create request without a patient.
	ErrMissingPatientID = errors.New("appointments: patientId is required")

	// ErrMissingSymptoms indicates a create request without symptoms.
	ErrMissingSymptoms = errors.New("appointments: symptoms are required")

	// ErrInvalidStatus indicates an unrecognized or disallowed status value.
	ErrInvalidStatus = errors.New("appointments: invalid status")

	// ErrInvalidTransition indicates a status change the lifecycle forbids.
	ErrInvalidTransition = errors.New("appointments: invalid status transition")
)
