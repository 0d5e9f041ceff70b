package followups

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func followUpRow(f *FollowUp) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "appointment_id", "scheduled_date", "notes", "status", "completed_at", "created_at", "updated_at",
	}).AddRow(f.ID, f.AppointmentID, f.ScheduledDate, f.Notes, f.Status, f.CompletedAt, f.CreatedAt, f.UpdatedAt)
}

func TestCreateFollowUp(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := NewPostgresRepository(mock)

	now := time.Now().UTC()
	scheduled := now.Add(72 * time.Hour)
	mock.ExpectQuery("INSERT INTO followups").
		WithArgs(pgxmock.AnyArg(), "appt-1", scheduled, "check temperature", StatusPending).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	f, err := repo.Create(context.Background(), &CreateFollowUpRequest{
		AppointmentID: "appt-1",
		ScheduledDate: scheduled,
		Notes:         "check temperature",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if f.Status != StatusPending {
		t.Errorf("expected PENDING, got %s", f.Status)
	}
	if f.CompletedAt != nil {
		t.Error("expected no completedAt on create")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateFollowUpValidation(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := NewPostgresRepository(mock)

	if _, err := repo.Create(context.Background(), &CreateFollowUpRequest{ScheduledDate: time.Now()}); err != ErrMissingAppointmentID {
		t.Errorf("expected ErrMissingAppointmentID, got %v", err)
	}
	if _, err := repo.Create(context.Background(), &CreateFollowUpRequest{AppointmentID: "appt-1"}); err != ErrMissingScheduledDate {
		t.Errorf("expected ErrMissingScheduledDate, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateCompletedStampsTimestamp(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := NewPostgresRepository(mock)

	now := time.Now().UTC()
	status := StatusCompleted
	mock.ExpectQuery("UPDATE followups SET").
		WithArgs("fu-1", &status, (*string)(nil)).
		WillReturnRows(followUpRow(&FollowUp{
			ID: "fu-1", AppointmentID: "appt-1", ScheduledDate: now,
			Status: StatusCompleted, CompletedAt: &now, CreatedAt: now, UpdatedAt: now,
		}))

	f, err := repo.Update(context.Background(), "fu-1", &UpdateFollowUpRequest{Status: &status})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if f.Status != StatusCompleted || f.CompletedAt == nil {
		t.Errorf("expected COMPLETED with timestamp, got %+v", f)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateUnknownStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := NewPostgresRepository(mock)

	status := "SNOOZED"
	_, err = repo.Update(context.Background(), "fu-1", &UpdateFollowUpRequest{Status: &status})
	if err != ErrInvalidStatus {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := NewPostgresRepository(mock)

	notes := "n"
	mock.ExpectQuery("UPDATE followups SET").
		WithArgs("missing", (*string)(nil), &notes).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "appointment_id", "scheduled_date", "notes", "status", "completed_at", "created_at", "updated_at",
		}))

	_, err = repo.Update(context.Background(), "missing", &UpdateFollowUpRequest{Notes: &notes})
	if err != ErrFollowUpNotFound {
		t.Fatalf("expected ErrFollowUpNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListOrdersBySchedule(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := NewPostgresRepository(mock)

	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{
		"id", "appointment_id", "scheduled_date", "notes", "status", "completed_at", "created_at", "updated_at",
	}).
		AddRow("fu-1", "appt-1", now.Add(24*time.Hour), "", StatusPending, nil, now, now).
		AddRow("fu-2", "appt-2", now.Add(48*time.Hour), "", StatusPending, nil, now, now)
	mock.ExpectQuery("SELECT (.+) FROM followups").WillReturnRows(rows)

	list, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 2 || list[0].ID != "fu-1" {
		t.Fatalf("unexpected list: %+v", list)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
