package prescriptions

import "errors"

var (
	ErrPrescriptionNotFound = errors.New("prescriptions: prescription not found")
	ErrMissingAppointmentID = errors.New("prescriptions: appointmentId is required")
	ErrMissingPatientID     = errors.New("prescriptions: patientId is required")
	ErrMissingMedications   = errors.New("prescriptions: at least one medication with a name is required")
	ErrAlreadyDispensed     = errors.New("prescriptions: prescription already dispensed")
	ErrInsufficientStock    = errors.New("prescriptions: insufficient stock")
)
