package appointments

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/janjeevan/telehealth/internal/http/middleware"
	"github.com/janjeevan/telehealth/internal/triage"
)

// DB is the subset of pgxpool.Pool the repository needs.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores appointments in the relational database.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository initializes a repo backed by pgx.
func NewPostgresRepository(db DB) *PostgresRepository {
	if db == nil {
		panic("appointments: pgx pool required")
	}
	return &PostgresRepository{db: db}
}

const appointmentColumns = `id, patient_id, doctor_id, status, symptoms, ai_analysis, diagnosis, notes, video_call_url, scheduled_at, created_at, updated_at`

// Create inserts a new appointment row.
func (r *PostgresRepository) Create(ctx context.Context, req *CreateAppointmentRequest) (*Appointment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = StatusPending
	}
	scheduledAt := time.Now().UTC()
	if req.ScheduledAt != nil {
		scheduledAt = req.ScheduledAt.UTC()
	}

	verdictJSON, err := marshalVerdict(req.Verdict)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	query := `
		INSERT INTO appointments (id, patient_id, status, symptoms, ai_analysis, scheduled_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`
	var createdAt, updatedAt time.Time
	if err := r.db.QueryRow(ctx, query,
		id,
		req.PatientID,
		status,
		req.SymptomsText(),
		verdictJSON,
		scheduledAt,
	).Scan(&createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("appointments: insert failed: %w", err)
	}

	return &Appointment{
		ID:          id.String(),
		PatientID:   req.PatientID,
		Status:      status,
		Symptoms:    req.SymptomsText(),
		Verdict:     req.Verdict,
		ScheduledAt: scheduledAt,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, nil
}

// GetByID fetches a single appointment.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	appt, err := scanAppointment(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("appointments: select failed: %w", err)
	}
	return appt, nil
}

// Update applies a partial update inside a transaction. The current status is
// read under a row lock so the lifecycle check and the write are atomic with
// respect to concurrent updates of the same appointment.
func (r *PostgresRepository) Update(ctx context.Context, id string, upd Update) (*Appointment, error) {
	if upd.Status != nil && !ValidStatus(*upd.Status) {
		return nil, ErrInvalidStatus
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("appointments: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var current string
	if err := tx.QueryRow(ctx, `SELECT status FROM appointments WHERE id = $1 FOR UPDATE`, id).Scan(&current); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("appointments: lock row: %w", err)
	}

	if upd.Status != nil && !CanTransition(current, *upd.Status) {
		return nil, ErrInvalidTransition
	}

	verdictJSON, err := marshalVerdict(upd.Verdict)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE appointments SET
			status = COALESCE($2, status),
			doctor_id = COALESCE($3, doctor_id),
			diagnosis = COALESCE($4, diagnosis),
			notes = COALESCE($5, notes),
			video_call_url = COALESCE($6, video_call_url),
			ai_analysis = COALESCE($7, ai_analysis),
			updated_at = now()
		WHERE id = $1
		RETURNING ` + appointmentColumns
	appt, err := scanAppointment(tx.QueryRow(ctx, query,
		id,
		upd.Status,
		upd.DoctorID,
		upd.Diagnosis,
		upd.Notes,
		upd.VideoCallURL,
		verdictJSON,
	))
	if err != nil {
		return nil, fmt.Errorf("appointments: update failed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("appointments: commit: %w", err)
	}
	return appt, nil
}

// ListForIdentity returns the appointments visible to the requester.
func (r *PostgresRepository) ListForIdentity(ctx context.Context, identity middleware.Identity) ([]*Appointment, error) {
	var (
		query string
		args  []any
	)
	switch identity.Role {
	case middleware.RoleDoctor:
		// Assigned cases plus the shared PENDING queue.
		query = `SELECT ` + appointmentColumns + `
			FROM appointments
			WHERE doctor_id = $1 OR status = 'PENDING'
			ORDER BY scheduled_at ASC`
		args = []any{identity.ProfileID}
	case middleware.RolePatient:
		query = `SELECT ` + appointmentColumns + `
			FROM appointments
			WHERE patient_id = $1
			ORDER BY scheduled_at DESC`
		args = []any{identity.ProfileID}
	default:
		query = `SELECT ` + appointmentColumns + `
			FROM appointments
			ORDER BY scheduled_at DESC`
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("appointments: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan failed: %w", err)
		}
		out = append(out, appt)
	}
	return out, rows.Err()
}

func marshalVerdict(v *triage.Verdict) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("appointments: marshal verdict: %w", err)
	}
	return data, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		appt        Appointment
		verdictJSON []byte
	)
	if err := row.Scan(
		&appt.ID,
		&appt.PatientID,
		&appt.DoctorID,
		&appt.Status,
		&appt.Symptoms,
		&verdictJSON,
		&appt.Diagnosis,
		&appt.Notes,
		&appt.VideoCallURL,
		&appt.ScheduledAt,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(verdictJSON) > 0 {
		var verdict triage.Verdict
		if err := json.Unmarshal(verdictJSON, &verdict); err != nil {
			return nil, fmt.Errorf("appointments: decode verdict: %w", err)
		}
		appt.Verdict = &verdict
	}
	return &appt, nil
}
