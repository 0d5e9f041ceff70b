package inventory

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func itemRow(item *InventoryItem) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "name", "stock", "unit", "reorder_threshold", "created_at", "updated_at",
	}).AddRow(item.ID, item.Name, item.Stock, item.Unit, item.ReorderThreshold, item.CreatedAt, item.UpdatedAt)
}

func reorderRow(req *ReorderRequest) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "inventory_id", "name", "quantity", "status", "requested_by", "created_at", "updated_at",
	}).AddRow(req.ID, req.InventoryID, req.ItemName, req.Quantity, req.Status, req.RequestedBy, req.CreatedAt, req.UpdatedAt)
}

func TestUpsertAppliesDefaults(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := NewPostgresRepository(mock)

	now := time.Now().UTC()
	created := &InventoryItem{
		ID: "item-1", Name: "Paracetamol", Stock: 0, Unit: "units",
		ReorderThreshold: 10, CreatedAt: now, UpdatedAt: now,
	}
	mock.ExpectQuery("INSERT INTO inventory_items").
		WithArgs(pgxmock.AnyArg(), "Paracetamol", (*int)(nil), (*string)(nil), (*int)(nil)).
		WillReturnRows(itemRow(created))

	item, err := repo.Upsert(context.Background(), &UpsertItemRequest{Name: "Paracetamol"})
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if item.Stock != 0 || item.Unit != "units" || item.ReorderThreshold != 10 {
		t.Errorf("expected defaults, got %+v", item)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpsertValidation(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := NewPostgresRepository(mock)

	if _, err := repo.Upsert(context.Background(), &UpsertItemRequest{Name: "  "}); err != ErrMissingName {
		t.Errorf("expected ErrMissingName, got %v", err)
	}
	negative := -5
	if _, err := repo.Upsert(context.Background(), &UpsertItemRequest{Name: "X", Stock: &negative}); err != ErrNegativeStock {
		t.Errorf("expected ErrNegativeStock, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateReorderUnknownItem(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := NewPostgresRepository(mock)

	mock.ExpectQuery("SELECT name FROM inventory_items").
		WithArgs("item-x").
		WillReturnRows(pgxmock.NewRows([]string{"name"}))

	_, err = repo.CreateReorder(context.Background(), &CreateReorderRequest{InventoryID: "item-x", Quantity: 20}, "pharm-1")
	if err != ErrItemNotFound {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateReorder(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := NewPostgresRepository(mock)

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT name FROM inventory_items").
		WithArgs("item-1").
		WillReturnRows(pgxmock.NewRows([]string{"name"}).AddRow("Paracetamol"))
	mock.ExpectQuery("INSERT INTO reorder_requests").
		WithArgs(pgxmock.AnyArg(), "item-1", 20, ReorderPending, "pharm-1").
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	reorder, err := repo.CreateReorder(context.Background(), &CreateReorderRequest{InventoryID: "item-1", Quantity: 20}, "pharm-1")
	if err != nil {
		t.Fatalf("create reorder failed: %v", err)
	}
	if reorder.Status != ReorderPending || reorder.ItemName != "Paracetamol" {
		t.Errorf("unexpected reorder: %+v", reorder)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAdvanceReorderReceivedReplenishesStock(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := NewPostgresRepository(mock)

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status, inventory_id, quantity FROM reorder_requests").
		WithArgs("ro-1").
		WillReturnRows(pgxmock.NewRows([]string{"status", "inventory_id", "quantity"}).
			AddRow(ReorderOrdered, "item-1", 50))
	mock.ExpectExec("UPDATE reorder_requests").
		WithArgs("ro-1", ReorderReceived).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE inventory_items").
		WithArgs("item-1", 50).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery("SELECT (.+) FROM reorder_requests").
		WithArgs("ro-1").
		WillReturnRows(reorderRow(&ReorderRequest{
			ID: "ro-1", InventoryID: "item-1", ItemName: "Paracetamol",
			Quantity: 50, Status: ReorderReceived, RequestedBy: "pharm-1",
			CreatedAt: now, UpdatedAt: now,
		}))
	mock.ExpectCommit()

	reorder, err := repo.AdvanceReorder(context.Background(), "ro-1", ReorderReceived)
	if err != nil {
		t.Fatalf("advance failed: %v", err)
	}
	if reorder.Status != ReorderReceived {
		t.Errorf("expected RECEIVED, got %s", reorder.Status)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// A RECEIVED order can never be received again; otherwise stock would be
// double-counted.
func TestAdvanceReorderRepeatReceiveRejected(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := NewPostgresRepository(mock)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status, inventory_id, quantity FROM reorder_requests").
		WithArgs("ro-1").
		WillReturnRows(pgxmock.NewRows([]string{"status", "inventory_id", "quantity"}).
			AddRow(ReorderReceived, "item-1", 50))
	mock.ExpectRollback()

	_, err = repo.AdvanceReorder(context.Background(), "ro-1", ReorderReceived)
	if err != ErrInvalidReorderTransition {
		t.Fatalf("expected ErrInvalidReorderTransition, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAdvanceReorderBackwardRejected(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := NewPostgresRepository(mock)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status, inventory_id, quantity FROM reorder_requests").
		WithArgs("ro-1").
		WillReturnRows(pgxmock.NewRows([]string{"status", "inventory_id", "quantity"}).
			AddRow(ReorderOrdered, "item-1", 50))
	mock.ExpectRollback()

	_, err = repo.AdvanceReorder(context.Background(), "ro-1", ReorderPending)
	if err != ErrInvalidReorderTransition {
		t.Fatalf("expected ErrInvalidReorderTransition, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAdvanceReorderUnknownStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := NewPostgresRepository(mock)

	_, err = repo.AdvanceReorder(context.Background(), "ro-1", "SHIPPED")
	if err != ErrInvalidReorderStatus {
		t.Fatalf("expected ErrInvalidReorderStatus, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLowStock(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := NewPostgresRepository(mock)

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT (.+) FROM inventory_items").
		WillReturnRows(itemRow(&InventoryItem{
			ID: "item-1", Name: "ORS", Stock: 3, Unit: "packets",
			ReorderThreshold: 10, CreatedAt: now, UpdatedAt: now,
		}))

	items, err := repo.LowStock(context.Background())
	if err != nil {
		t.Fatalf("low stock failed: %v", err)
	}
	if len(items) != 1 || items[0].Name != "ORS" {
		t.Fatalf("unexpected items: %+v", items)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
