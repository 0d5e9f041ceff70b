package followups

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the repository needs.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores follow-ups in the relational database.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository initializes a repo backed by pgx.
func NewPostgresRepository(db DB) *PostgresRepository {
	if db == nil {
		panic("followups: pgx pool required")
	}
	return &PostgresRepository{db: db}
}

const followUpColumns = `id, appointment_id, scheduled_date, notes, status, completed_at, created_at, updated_at`

// Create schedules a new follow-up.
func (r *PostgresRepository) Create(ctx context.Context, req *CreateFollowUpRequest) (*FollowUp, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	id := uuid.New()
	f := &FollowUp{
		ID:            id.String(),
		AppointmentID: req.AppointmentID,
		ScheduledDate: req.ScheduledDate.UTC(),
		Notes:         req.Notes,
		Status:        StatusPending,
	}
	query := `
		INSERT INTO followups (id, appointment_id, scheduled_date, notes, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	if err := r.db.QueryRow(ctx, query, id, req.AppointmentID, f.ScheduledDate, req.Notes, StatusPending).
		Scan(&f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, fmt.Errorf("followups: insert failed: %w", err)
	}
	return f, nil
}

// Update applies a status/notes change. Moving to COMPLETED stamps
// completedAt; any other status clears it.
func (r *PostgresRepository) Update(ctx context.Context, id string, req *UpdateFollowUpRequest) (*FollowUp, error) {
	if req.Status != nil && !ValidStatus(*req.Status) {
		return nil, ErrInvalidStatus
	}

	query := `
		UPDATE followups SET
			status = COALESCE($2, status),
			notes = COALESCE($3, notes),
			completed_at = CASE
				WHEN $2 = 'COMPLETED' THEN now()
				WHEN $2 IS NOT NULL THEN NULL
				ELSE completed_at
			END,
			updated_at = now()
		WHERE id = $1
		RETURNING ` + followUpColumns
	f, err := scanFollowUp(r.db.QueryRow(ctx, query, id, req.Status, req.Notes))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrFollowUpNotFound
		}
		return nil, fmt.Errorf("followups: update failed: %w", err)
	}
	return f, nil
}

// List returns all follow-ups ordered by scheduled date, soonest first.
func (r *PostgresRepository) List(ctx context.Context) ([]*FollowUp, error) {
	query := `SELECT ` + followUpColumns + ` FROM followups ORDER BY scheduled_date ASC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("followups: list failed: %w", err)
	}
	defer rows.Close()

	var out []*FollowUp
	for rows.Next() {
		f, err := scanFollowUp(rows)
		if err != nil {
			return nil, fmt.Errorf("followups: scan failed: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func scanFollowUp(row pgx.Row) (*FollowUp, error) {
	var f FollowUp
	if err := row.Scan(
		&f.ID,
		&f.AppointmentID,
		&f.ScheduledDate,
		&f.Notes,
		&f.Status,
		&f.CompletedAt,
		&f.CreatedAt,
		&f.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &f, nil
}
