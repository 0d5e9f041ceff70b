package prescriptions

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/janjeevan/telehealth/internal/http/middleware"
)

// DB is the subset of pgxpool.Pool the repository needs.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores prescriptions and runs the dispensing
// transaction against the inventory ledger.
type PostgresRepository struct {
	db           DB
	reorderBatch int
}

// NewPostgresRepository initializes a repo backed by pgx.
func NewPostgresRepository(db DB) *PostgresRepository {
	if db == nil {
		panic("prescriptions: pgx pool required")
	}
	return &PostgresRepository{db: db, reorderBatch: defaultReorderQuantity}
}

// defaultReorderQuantity is the batch size for automatic restock requests
// raised when dispensing pushes an item to its threshold.
const defaultReorderQuantity = 50

const prescriptionColumns = `id, appointment_id, patient_id, medications, status, dispensed_by, dispensed_at, created_at, updated_at`

// Create inserts a prescription and closes its appointment in the same
// transaction. A prescription is the clinical decision, so the episode
// completes with it; an already-terminal appointment is left untouched.
func (r *PostgresRepository) Create(ctx context.Context, req *CreatePrescriptionRequest) (*Prescription, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	medsJSON, err := json.Marshal(req.Medications)
	if err != nil {
		return nil, fmt.Errorf("prescriptions: marshal medications: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("prescriptions: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	id := uuid.New()
	p := &Prescription{
		ID:            id.String(),
		AppointmentID: req.AppointmentID,
		PatientID:     req.PatientID,
		Medications:   req.Medications,
		Status:        StatusPending,
	}
	query := `
		INSERT INTO prescriptions (id, appointment_id, patient_id, medications, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	if err := tx.QueryRow(ctx, query, id, req.AppointmentID, req.PatientID, medsJSON, StatusPending).
		Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, fmt.Errorf("prescriptions: insert failed: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE appointments SET status = 'COMPLETED', updated_at = now()
		WHERE id = $1 AND status IN ('PENDING', 'APPROVED')
	`, req.AppointmentID); err != nil {
		return nil, fmt.Errorf("prescriptions: complete appointment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("prescriptions: commit: %w", err)
	}
	return p, nil
}

// GetByID fetches a single prescription.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Prescription, error) {
	query := `SELECT ` + prescriptionColumns + ` FROM prescriptions WHERE id = $1`
	p, err := scanPrescription(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrPrescriptionNotFound
		}
		return nil, fmt.Errorf("prescriptions: select failed: %w", err)
	}
	return p, nil
}

// Fulfill dispenses a prescription in one transaction: flip the status,
// decrement matched inventory lines, and raise restock requests for items the
// dispensing pushed to their threshold. The status flip doubles as the
// concurrency guard, so a second pharmacist racing on the same prescription
// gets ErrAlreadyDispensed instead of double-decrementing stock.
func (r *PostgresRepository) Fulfill(ctx context.Context, id, actor string) (*FulfillmentResult, error) {
	ctx, span := otel.Tracer("prescriptions").Start(ctx, "prescriptions.fulfill")
	defer span.End()
	span.SetAttributes(attribute.String("prescription.id", id))

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("prescriptions: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	p, err := scanPrescription(tx.QueryRow(ctx, `
		UPDATE prescriptions
		SET status = 'DISPENSED', dispensed_by = $2, dispensed_at = now(), updated_at = now()
		WHERE id = $1 AND status = 'PENDING'
		RETURNING `+prescriptionColumns, id, actor))
	if err != nil {
		if err != pgx.ErrNoRows {
			return nil, fmt.Errorf("prescriptions: dispense flip: %w", err)
		}
		// Zero rows: the prescription is either absent or already dispensed.
		var status string
		if err := tx.QueryRow(ctx, `SELECT status FROM prescriptions WHERE id = $1`, id).Scan(&status); err != nil {
			if err == pgx.ErrNoRows {
				return nil, ErrPrescriptionNotFound
			}
			return nil, fmt.Errorf("prescriptions: status check: %w", err)
		}
		return nil, ErrAlreadyDispensed
	}

	result := &FulfillmentResult{Prescription: p}
	for _, med := range p.Medications {
		var (
			itemID    string
			threshold int
		)
		err := tx.QueryRow(ctx, `SELECT id, reorder_threshold FROM inventory_items WHERE name = $1`, med.Name).
			Scan(&itemID, &threshold)
		if err == pgx.ErrNoRows {
			// Not stocked here; the pharmacist sources it elsewhere.
			result.Unmatched = append(result.Unmatched, med.Name)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("prescriptions: inventory lookup: %w", err)
		}

		// One-statement conditional decrement: stock can never go negative,
		// and two concurrent dispensings cannot both pass the check.
		var remaining int
		err = tx.QueryRow(ctx, `
			UPDATE inventory_items
			SET stock = stock - $1, updated_at = now()
			WHERE id = $2 AND stock >= $1
			RETURNING stock
		`, med.Units(), itemID).Scan(&remaining)
		if err == pgx.ErrNoRows {
			return nil, ErrInsufficientStock
		}
		if err != nil {
			return nil, fmt.Errorf("prescriptions: decrement stock: %w", err)
		}
		result.Decremented = append(result.Decremented, med.Name)

		if remaining <= threshold {
			if _, err := tx.Exec(ctx, `
				INSERT INTO reorder_requests (id, inventory_id, quantity, status, requested_by)
				VALUES ($1, $2, $3, 'PENDING', $4)
			`, uuid.New(), itemID, r.reorderBatch, actor); err != nil {
				return nil, fmt.Errorf("prescriptions: raise reorder: %w", err)
			}
			result.Reordered = append(result.Reordered, med.Name)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("prescriptions: commit: %w", err)
	}
	span.SetAttributes(
		attribute.Int("fulfillment.decremented", len(result.Decremented)),
		attribute.Int("fulfillment.reordered", len(result.Reordered)),
	)
	return result, nil
}

// ListForIdentity returns the prescriptions visible to the requester,
// newest first. Patients see their own; pharmacists and staff see all.
func (r *PostgresRepository) ListForIdentity(ctx context.Context, identity middleware.Identity) ([]*Prescription, error) {
	var (
		query string
		args  []any
	)
	if identity.Role == middleware.RolePatient {
		query = `SELECT ` + prescriptionColumns + `
			FROM prescriptions
			WHERE patient_id = $1
			ORDER BY created_at DESC`
		args = []any{identity.ProfileID}
	} else {
		query = `SELECT ` + prescriptionColumns + `
			FROM prescriptions
			ORDER BY created_at DESC`
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("prescriptions: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Prescription
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, fmt.Errorf("prescriptions: scan failed: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var (
		p        Prescription
		medsJSON []byte
	)
	if err := row.Scan(
		&p.ID,
		&p.AppointmentID,
		&p.PatientID,
		&medsJSON,
		&p.Status,
		&p.DispensedBy,
		&p.DispensedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(medsJSON) > 0 {
		if err := json.Unmarshal(medsJSON, &p.Medications); err != nil {
			return nil, fmt.Errorf("prescriptions: decode medications: %w", err)
		}
	}
	return &p, nil
}
