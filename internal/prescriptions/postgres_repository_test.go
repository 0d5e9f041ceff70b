package prescriptions

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"

	"github.com/janjeevan/telehealth/internal/http/middleware"
)

func prescriptionRow(t *testing.T, p *Prescription) *pgxmock.Rows {
	t.Helper()
	medsJSON, err := json.Marshal(p.Medications)
	if err != nil {
		t.Fatalf("marshal medications: %v", err)
	}
	return pgxmock.NewRows([]string{
		"id", "appointment_id", "patient_id", "medications", "status",
		"dispensed_by", "dispensed_at", "created_at", "updated_at",
	}).AddRow(p.ID, p.AppointmentID, p.PatientID, medsJSON, p.Status,
		p.DispensedBy, p.DispensedAt, p.CreatedAt, p.UpdatedAt)
}

func TestCreateClosesAppointment(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := NewPostgresRepository(mock)

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO prescriptions").
		WithArgs(pgxmock.AnyArg(), "appt-1", "pat-1", pgxmock.AnyArg(), StatusPending).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectExec("UPDATE appointments SET status = 'COMPLETED'").
		WithArgs("appt-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	p, err := repo.Create(context.Background(), &CreatePrescriptionRequest{
		AppointmentID: "appt-1",
		PatientID:     "pat-1",
		Medications:   []Medication{{Name: "Paracetamol", Dosage: "500mg", Quantity: 10}},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if p.Status != StatusPending {
		t.Errorf("expected PENDING, got %s", p.Status)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := NewPostgresRepository(mock)

	cases := []struct {
		name string
		req  CreatePrescriptionRequest
		want error
	}{
		{"no appointment", CreatePrescriptionRequest{PatientID: "pat-1", Medications: []Medication{{Name: "X"}}}, ErrMissingAppointmentID},
		{"no patient", CreatePrescriptionRequest{AppointmentID: "appt-1", Medications: []Medication{{Name: "X"}}}, ErrMissingPatientID},
		{"no medications", CreatePrescriptionRequest{AppointmentID: "appt-1", PatientID: "pat-1"}, ErrMissingMedications},
		{"blank name", CreatePrescriptionRequest{AppointmentID: "appt-1", PatientID: "pat-1", Medications: []Medication{{Name: "  "}}}, ErrMissingMedications},
	}
	for _, tc := range cases {
		if _, err := repo.Create(context.Background(), &tc.req); err != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// Stock 100, threshold 20, dispense 90: stock lands at 10 and one automatic
// restock request is raised.
func TestFulfillDecrementsAndReorders(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := NewPostgresRepository(mock)

	now := time.Now().UTC()
	actor := "pharm-1"
	p := &Prescription{
		ID:            "rx-1",
		AppointmentID: "appt-1",
		PatientID:     "pat-1",
		Medications:   []Medication{{Name: "Paracetamol", Dosage: "500mg", Quantity: 90}},
		Status:        StatusDispensed,
		DispensedBy:   &actor,
		DispensedAt:   &now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE prescriptions").
		WithArgs("rx-1", actor).
		WillReturnRows(prescriptionRow(t, p))
	mock.ExpectQuery("SELECT id, reorder_threshold FROM inventory_items").
		WithArgs("Paracetamol").
		WillReturnRows(pgxmock.NewRows([]string{"id", "reorder_threshold"}).AddRow("item-1", 20))
	mock.ExpectQuery("UPDATE inventory_items").
		WithArgs(90, "item-1").
		WillReturnRows(pgxmock.NewRows([]string{"stock"}).AddRow(10))
	mock.ExpectExec("INSERT INTO reorder_requests").
		WithArgs(pgxmock.AnyArg(), "item-1", 50, actor).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	result, err := repo.Fulfill(context.Background(), "rx-1", actor)
	if err != nil {
		t.Fatalf("fulfill failed: %v", err)
	}
	if len(result.Decremented) != 1 || result.Decremented[0] != "Paracetamol" {
		t.Errorf("unexpected decremented: %v", result.Decremented)
	}
	if len(result.Reordered) != 1 || result.Reordered[0] != "Paracetamol" {
		t.Errorf("expected automatic reorder, got %v", result.Reordered)
	}
	if len(result.Unmatched) != 0 {
		t.Errorf("expected no unmatched, got %v", result.Unmatched)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFulfillSkipsUnmatchedNames(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := NewPostgresRepository(mock)

	now := time.Now().UTC()
	actor := "pharm-1"
	p := &Prescription{
		ID:            "rx-1",
		AppointmentID: "appt-1",
		PatientID:     "pat-1",
		Medications:   []Medication{{Name: "Obscurol"}},
		Status:        StatusDispensed,
		DispensedBy:   &actor,
		DispensedAt:   &now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE prescriptions").
		WithArgs("rx-1", actor).
		WillReturnRows(prescriptionRow(t, p))
	mock.ExpectQuery("SELECT id, reorder_threshold FROM inventory_items").
		WithArgs("Obscurol").
		WillReturnRows(pgxmock.NewRows([]string{"id", "reorder_threshold"}))
	mock.ExpectCommit()

	result, err := repo.Fulfill(context.Background(), "rx-1", actor)
	if err != nil {
		t.Fatalf("fulfill failed: %v", err)
	}
	if len(result.Unmatched) != 1 || result.Unmatched[0] != "Obscurol" {
		t.Errorf("expected Obscurol unmatched, got %v", result.Unmatched)
	}
	if len(result.Decremented) != 0 {
		t.Errorf("expected nothing decremented, got %v", result.Decremented)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFulfillInsufficientStockAborts(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := NewPostgresRepository(mock)

	now := time.Now().UTC()
	actor := "pharm-1"
	p := &Prescription{
		ID:            "rx-1",
		AppointmentID: "appt-1",
		PatientID:     "pat-1",
		Medications:   []Medication{{Name: "Amoxicillin", Quantity: 30}},
		Status:        StatusDispensed,
		DispensedBy:   &actor,
		DispensedAt:   &now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE prescriptions").
		WithArgs("rx-1", actor).
		WillReturnRows(prescriptionRow(t, p))
	mock.ExpectQuery("SELECT id, reorder_threshold FROM inventory_items").
		WithArgs("Amoxicillin").
		WillReturnRows(pgxmock.NewRows([]string{"id", "reorder_threshold"}).AddRow("item-2", 10))
	// Conditional decrement matches no row: only 5 in stock.
	mock.ExpectQuery("UPDATE inventory_items").
		WithArgs(30, "item-2").
		WillReturnRows(pgxmock.NewRows([]string{"stock"}))
	mock.ExpectRollback()

	_, err = repo.Fulfill(context.Background(), "rx-1", actor)
	if err != ErrInsufficientStock {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFulfillAlreadyDispensed(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := NewPostgresRepository(mock)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE prescriptions").
		WithArgs("rx-1", "pharm-2").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "appointment_id", "patient_id", "medications", "status",
			"dispensed_by", "dispensed_at", "created_at", "updated_at",
		}))
	mock.ExpectQuery("SELECT status FROM prescriptions").
		WithArgs("rx-1").
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow(StatusDispensed))
	mock.ExpectRollback()

	_, err = repo.Fulfill(context.Background(), "rx-1", "pharm-2")
	if err != ErrAlreadyDispensed {
		t.Fatalf("expected ErrAlreadyDispensed, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFulfillNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := NewPostgresRepository(mock)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE prescriptions").
		WithArgs("missing", "pharm-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "appointment_id", "patient_id", "medications", "status",
			"dispensed_by", "dispensed_at", "created_at", "updated_at",
		}))
	mock.ExpectQuery("SELECT status FROM prescriptions").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"status"}))
	mock.ExpectRollback()

	_, err = repo.Fulfill(context.Background(), "missing", "pharm-1")
	if err != ErrPrescriptionNotFound {
		t.Fatalf("expected ErrPrescriptionNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListForPatient(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := NewPostgresRepository(mock)

	now := time.Now().UTC()
	p := &Prescription{
		ID:            "rx-1",
		AppointmentID: "appt-1",
		PatientID:     "pat-1",
		Medications:   []Medication{{Name: "Paracetamol"}},
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	mock.ExpectQuery("SELECT (.+) FROM prescriptions").
		WithArgs("pat-1").
		WillReturnRows(prescriptionRow(t, p))

	list, err := repo.ListForIdentity(context.Background(), middleware.Identity{
		Role:      middleware.RolePatient,
		ProfileID: "pat-1",
	})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 1 || list[0].ID != "rx-1" {
		t.Fatalf("unexpected list: %+v", list)
	}
	if len(list[0].Medications) != 1 || list[0].Medications[0].Name != "Paracetamol" {
		t.Errorf("expected medications decoded, got %+v", list[0].Medications)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
