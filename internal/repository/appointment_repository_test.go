package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindwell-health/mindwell-api/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func appointmentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "user_id", "therapist_id", "date", "type", "status", "notes", "medication",
		"therapist_name", "therapist_email", "created_at", "updated_at",
	})
}

func TestAppointmentRepositoryListByUser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAppointmentRepository(db)

	now := time.Now().UTC()
	rows := appointmentRows().
		AddRow("apt-1", "user-1", "th-1", now.Add(48*time.Hour), "Video Call", "pending", nil, nil,
			"Dr. Sarah Mitchell", "sarah@mindwell.example", now, now).
		AddRow("apt-2", "user-1", "th-2", now.Add(24*time.Hour), "In-Person", "accepted", nil, nil,
			"Dr. James Chen", "james@mindwell.example", now, now)

	mock.ExpectQuery(`SELECT .+ FROM appointments a\s+JOIN therapists t ON t\.id = a\.therapist_id\s+WHERE a\.user_id = \$1 ORDER BY a\.date DESC`).
		WithArgs("user-1").
		WillReturnRows(rows)

	appointments, err := repo.ListByUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, appointments, 2)
	assert.Equal(t, "apt-1", appointments[0].ID)
	assert.Equal(t, "Dr. Sarah Mitchell", appointments[0].TherapistName)
	assert.Equal(t, models.AppointmentAccepted, appointments[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryListByTherapist(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAppointmentRepository(db)

	now := time.Now().UTC()
	rows := appointmentRows().
		AddRow("apt-3", "user-2", "th-1", now, "Phone Call", "pending", nil, nil,
			"Dr. Sarah Mitchell", "sarah@mindwell.example", now, now)

	mock.ExpectQuery(`WHERE a\.therapist_id = \$1 ORDER BY a\.date DESC`).
		WithArgs("th-1").
		WillReturnRows(rows)

	appointments, err := repo.ListByTherapist(context.Background(), "th-1")
	require.NoError(t, err)
	require.Len(t, appointments, 1)
	assert.Equal(t, "user-2", appointments[0].UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryCreate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAppointmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO appointments`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	appointment := &models.Appointment{
		UserID:      "user-1",
		TherapistID: "th-1",
		Date:        time.Now().Add(72 * time.Hour),
		Type:        models.SessionVideoCall,
	}
	err := repo.Create(context.Background(), appointment)
	require.NoError(t, err)
	assert.NotEmpty(t, appointment.ID)
	assert.Equal(t, models.AppointmentPending, appointment.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryUpdateStatus(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAppointmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE appointments SET status = $2, updated_at = $3 WHERE id = $1`)).
		WithArgs("apt-1", models.AppointmentAccepted, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), "apt-1", models.AppointmentAccepted)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryUpdateNotes(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAppointmentRepository(db)

	notes := "Patient responding well to CBT."
	medication := "None prescribed"
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE appointments SET notes = $2, medication = $3, updated_at = $4 WHERE id = $1`)).
		WithArgs("apt-1", &notes, &medication, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateNotes(context.Background(), "apt-1", &notes, &medication)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
