package prescriptions

import (
	"strings"
	"time"
)

// Prescription statuses. PENDING prescriptions await a pharmacist; DISPENSED
// is terminal.
const (
	StatusPending   = "PENDING"
	StatusDispensed = "DISPENSED"
)

// Medication is one line of a prescription. Quantity is the number of stock
// units to dispense; zero or negative means one.
type Medication struct {
	Name     string `json:"name"`
	Dosage   string `json:"dosage,omitempty"`
	Quantity int    `json:"quantity,omitempty"`
}

// Units returns the stock units this line consumes when dispensed.
func (m Medication) Units() int {
	if m.Quantity <= 0 {
		return 1
	}
	return m.Quantity
}

// Prescription is a doctor's medication order for a care episode.
type Prescription struct {
	ID            string       `json:"id"`
	AppointmentID string       `json:"appointmentId"`
	PatientID     string       `json:"patientId"`
	Medications   []Medication `json:"medications"`
	Status        string       `json:"status"`
	DispensedBy   *string      `json:"dispensedBy,omitempty"`
	DispensedAt   *time.Time   `json:"dispensedAt,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// CreatePrescriptionRequest is the request body for POST /prescriptions.
type CreatePrescriptionRequest struct {
	AppointmentID string       `json:"appointmentId"`
	PatientID     string       `json:"patientId"`
	Medications   []Medication `json:"medications"`
}

// Validate validates the create request.
func (r *CreatePrescriptionRequest) Validate() error {
	if strings.TrimSpace(r.AppointmentID) == "" {
		return ErrMissingAppointmentID
	}
	if strings.TrimSpace(r.PatientID) == "" {
		return ErrMissingPatientID
	}
	if len(r.Medications) == 0 {
		return ErrMissingMedications
	}
	for _, m := range r.Medications {
		if strings.TrimSpace(m.Name) == "" {
			return ErrMissingMedications
		}
	}
	return nil
}

// FulfillmentResult describes what a dispensing pass actually did. Unmatched
// names are reported so the pharmacist can source them elsewhere.
type FulfillmentResult struct {
	Prescription *Prescription `json:"prescription"`
	Decremented  []string      `json:"decremented"`
	Unmatched    []string      `json:"unmatched,omitempty"`
	Reordered    []string      `json:"reordered,omitempty"`
}
