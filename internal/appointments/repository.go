package appointments

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/janjeevan/telehealth/internal/http/middleware"
)

// Repository defines the interface for appointment storage.
type Repository interface {
	Create(ctx context.Context, req *CreateAppointmentRequest) (*Appointment, error)
	GetByID(ctx context.Context, id string) (*Appointment, error)
	Update(ctx context.Context, id string, upd Update) (*Appointment, error)
	ListForIdentity(ctx context.Context, identity middleware.Identity) ([]*Appointment, error)
}

// InMemoryRepository is a stub implementation of Repository using in-memory
// storage. Used in tests and local development without Postgres.
type InMemoryRepository struct {
	mu           sync.RWMutex
	appointments map[string]*Appointment
}

// NewInMemoryRepository creates a new in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		appointments: make(map[string]*Appointment),
	}
}

// Create creates a new appointment in memory.
func (r *InMemoryRepository) Create(ctx context.Context, req *CreateAppointmentRequest) (*Appointment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = StatusPending
	}
	now := time.Now().UTC()
	scheduledAt := now
	if req.ScheduledAt != nil {
		scheduledAt = req.ScheduledAt.UTC()
	}

	appt := &Appointment{
		ID:          uuid.New().String(),
		PatientID:   req.PatientID,
		Status:      status,
		Symptoms:    req.SymptomsText(),
		Verdict:     req.Verdict,
		ScheduledAt: scheduledAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	r.mu.Lock()
	r.appointments[appt.ID] = appt
	r.mu.Unlock()

	return appt, nil
}

// GetByID retrieves an appointment by ID.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	appt, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	copy := *appt
	return &copy, nil
}

// Update applies a partial update, enforcing the status lifecycle.
func (r *InMemoryRepository) Update(ctx context.Context, id string, upd Update) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	appt, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}

	if upd.Status != nil {
		if !ValidStatus(*upd.Status) {
			return nil, ErrInvalidStatus
		}
		if !CanTransition(appt.Status, *upd.Status) {
			return nil, ErrInvalidTransition
		}
		appt.Status = *upd.Status
	}
	if upd.DoctorID != nil {
		appt.DoctorID = upd.DoctorID
	}
	if upd.Diagnosis != nil {
		appt.Diagnosis = *upd.Diagnosis
	}
	if upd.Notes != nil {
		appt.Notes = *upd.Notes
	}
	if upd.VideoCallURL != nil {
		appt.VideoCallURL = *upd.VideoCallURL
	}
	if upd.Verdict != nil {
		appt.Verdict = upd.Verdict
	}
	appt.UpdatedAt = time.Now().UTC()

	copy := *appt
	return &copy, nil
}

// ListForIdentity returns the appointments visible to the requester. A
// doctor's queue is their assigned cases plus every PENDING case; a patient
// sees only their own; ASHA workers and pharmacists see all.
func (r *InMemoryRepository) ListForIdentity(ctx context.Context, identity middleware.Identity) ([]*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Appointment
	for _, appt := range r.appointments {
		switch identity.Role {
		case middleware.RoleDoctor:
			assigned := appt.DoctorID != nil && *appt.DoctorID == identity.ProfileID
			if !assigned && appt.Status != StatusPending {
				continue
			}
		case middleware.RolePatient:
			if appt.PatientID != identity.ProfileID {
				continue
			}
		}
		copy := *appt
		out = append(out, &copy)
	}

	if identity.Role == middleware.RoleDoctor {
		sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	} else {
		sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.After(out[j].ScheduledAt) })
	}
	return out, nil
}
