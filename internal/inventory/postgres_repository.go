package inventory

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

// PostgresRepository stores the pharmacy ledger and its reorder queue.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository initializes a repo backed by pgx.
func NewPostgresRepository(db DB) *PostgresRepository {
	if db == nil {
		panic("inventory: pgx pool required")
	}
	return &PostgresRepository{db: db}
}

const itemColumns = `id, name, stock, unit, reorder_threshold, created_at, updated_at`

// Upsert registers or updates an item keyed by its unique name. On create,
// missing fields get defaults; on update, missing fields keep their current
// values.
func (r *PostgresRepository) Upsert(ctx context.Context, req *UpsertItemRequest) (*InventoryItem, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO inventory_items (id, name, stock, unit, reorder_threshold)
		VALUES ($1, $2, COALESCE($3, 0), COALESCE($4, 'units'), COALESCE($5, 10))
		ON CONFLICT (name) DO UPDATE SET
			stock = COALESCE($3, inventory_items.stock),
			unit = COALESCE($4, inventory_items.unit),
			reorder_threshold = COALESCE($5, inventory_items.reorder_threshold),
			updated_at = now()
		RETURNING ` + itemColumns
	item, err := scanItem(r.db.QueryRow(ctx, query,
		uuid.New(),
		req.Name,
		req.Stock,
		req.Unit,
		req.ReorderThreshold,
	))
	if err != nil {
		return nil, fmt.Errorf("inventory: upsert failed: %w", err)
	}
	return item, nil
}

// List returns the full ledger ordered by name.
func (r *PostgresRepository) List(ctx context.Context) ([]*InventoryItem, error) {
	query := `SELECT ` + itemColumns + ` FROM inventory_items ORDER BY name ASC`
	return r.queryItems(ctx, query)
}

// LowStock returns items at or below their reorder threshold.
func (r *PostgresRepository) LowStock(ctx context.Context) ([]*InventoryItem, error) {
	query := `SELECT ` + itemColumns + `
		FROM inventory_items
		WHERE stock <= reorder_threshold
		ORDER BY name ASC`
	return r.queryItems(ctx, query)
}

func (r *PostgresRepository) queryItems(ctx context.Context, query string, args ...any) ([]*InventoryItem, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("inventory: list failed: %w", err)
	}
	defer rows.Close()

	var out []*InventoryItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("inventory: scan failed: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// CreateReorder records a manual restock request against an existing item.
func (r *PostgresRepository) CreateReorder(ctx context.Context, req *CreateReorderRequest, requestedBy string) (*ReorderRequest, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var itemName string
	if err := r.db.QueryRow(ctx, `SELECT name FROM inventory_items WHERE id = $1`, req.InventoryID).Scan(&itemName); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("inventory: item lookup: %w", err)
	}

	id := uuid.New()
	reorder := &ReorderRequest{
		ID:          id.String(),
		InventoryID: req.InventoryID,
		ItemName:    itemName,
		Quantity:    req.Quantity,
		Status:      ReorderPending,
		RequestedBy: requestedBy,
	}
	query := `
		INSERT INTO reorder_requests (id, inventory_id, quantity, status, requested_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	if err := r.db.QueryRow(ctx, query, id, req.InventoryID, req.Quantity, ReorderPending, requestedBy).
		Scan(&reorder.CreatedAt, &reorder.UpdatedAt); err != nil {
		return nil, fmt.Errorf("inventory: insert reorder: %w", err)
	}
	return reorder, nil
}

const reorderColumns = `r.id, r.inventory_id, i.name, r.quantity, r.status, r.requested_by, r.created_at, r.updated_at`

// ListReorders returns all restock requests, newest first.
func (r *PostgresRepository) ListReorders(ctx context.Context) ([]*ReorderRequest, error) {
	query := `SELECT ` + reorderColumns + `
		FROM reorder_requests r
		JOIN inventory_items i ON i.id = r.inventory_id
		ORDER BY r.created_at DESC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("inventory: list reorders: %w", err)
	}
	defer rows.Close()

	var out []*ReorderRequest
	for rows.Next() {
		req, err := scanReorder(rows)
		if err != nil {
			return nil, fmt.Errorf("inventory: scan reorder: %w", err)
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// AdvanceReorder moves a restock request forward in its lifecycle. Marking it
// RECEIVED adds the ordered quantity to the item's stock in the same
// transaction, and the forward-only guard makes the replenishment happen at
// most once.
func (r *PostgresRepository) AdvanceReorder(ctx context.Context, id, next string) (*ReorderRequest, error) {
	if !ValidReorderStatus(next) {
		return nil, ErrInvalidReorderStatus
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("inventory: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		current     string
		inventoryID string
		quantity    int
	)
	if err := tx.QueryRow(ctx, `
		SELECT status, inventory_id, quantity FROM reorder_requests WHERE id = $1 FOR UPDATE
	`, id).Scan(&current, &inventoryID, &quantity); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrReorderNotFound
		}
		return nil, fmt.Errorf("inventory: lock reorder: %w", err)
	}

	if !CanAdvanceReorder(current, next) {
		return nil, ErrInvalidReorderTransition
	}

	if _, err := tx.Exec(ctx, `
		UPDATE reorder_requests SET status = $2, updated_at = now() WHERE id = $1
	`, id, next); err != nil {
		return nil, fmt.Errorf("inventory: update reorder: %w", err)
	}

	if next == ReorderReceived {
		if _, err := tx.Exec(ctx, `
			UPDATE inventory_items SET stock = stock + $2, updated_at = now() WHERE id = $1
		`, inventoryID, quantity); err != nil {
			return nil, fmt.Errorf("inventory: replenish stock: %w", err)
		}
	}

	reorder, err := scanReorder(tx.QueryRow(ctx, `
		SELECT `+reorderColumns+`
		FROM reorder_requests r
		JOIN inventory_items i ON i.id = r.inventory_id
		WHERE r.id = $1
	`, id))
	if err != nil {
		return nil, fmt.Errorf("inventory: reload reorder: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("inventory: commit: %w", err)
	}
	return reorder, nil
}

func scanItem(row pgx.Row) (*InventoryItem, error) {
	var item InventoryItem
	if err := row.Scan(
		&item.ID,
		&item.Name,
		&item.Stock,
		&item.Unit,
		&item.ReorderThreshold,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &item, nil
}

func scanReorder(row pgx.Row) (*ReorderRequest, error) {
	var req ReorderRequest
	if err := row.Scan(
		&req.ID,
		&req.InventoryID,
		&req.ItemName,
		&req.Quantity,
		&req.Status,
		&req.RequestedBy,
		&req.CreatedAt,
		&req.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &req, nil
}
