package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindwell-health/mindwell-api/internal/availability"
	"github.com/mindwell-health/mindwell-api/internal/models"
)

func therapistRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "email", "phone", "specialization", "address", "active", "created_at", "updated_at",
	})
}

func TestTherapistRepositoryListActiveAttachesSchedules(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTherapistRepository(db)

	now := time.Now().UTC()
	spec := "Anxiety"
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, email, phone, specialization, address, active, created_at, updated_at FROM therapists WHERE active = TRUE ORDER BY name ASC`)).
		WillReturnRows(therapistRows().
			AddRow("th-1", "Dr. Sarah Mitchell", "sarah@mindwell.example", nil, &spec, nil, true, now, now).
			AddRow("th-2", "Dr. James Chen", "james@mindwell.example", nil, nil, nil, true, now, now))

	mock.ExpectQuery(`SELECT therapist_id, day, start_time, end_time\s+FROM therapist_availability WHERE therapist_id IN \(.+\) ORDER BY therapist_id, position ASC`).
		WillReturnRows(sqlmock.NewRows([]string{"therapist_id", "day", "start_time", "end_time"}).
			AddRow("th-1", "Monday", "09:00", "17:00").
			AddRow("th-1", "Wednesday", "14:00", "18:00"))

	therapists, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, therapists, 2)

	require.Len(t, therapists[0].Availability, 2)
	assert.Equal(t, availability.Monday, therapists[0].Availability[0].Day)
	assert.Equal(t, "09:00", therapists[0].Availability[0].Start.String())
	assert.Empty(t, therapists[1].Availability)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTherapistRepositoryScheduleForKeepsPositionOrder(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTherapistRepository(db)

	mock.ExpectQuery(`FROM therapist_availability WHERE therapist_id = \$1 ORDER BY position ASC`).
		WithArgs("th-1").
		WillReturnRows(sqlmock.NewRows([]string{"therapist_id", "day", "start_time", "end_time"}).
			AddRow("th-1", "Friday", "14:00", "16:00").
			AddRow("th-1", "Monday", "09:00", "12:00"))

	schedule, err := repo.ScheduleFor(context.Background(), "th-1")
	require.NoError(t, err)
	require.Len(t, schedule, 2)
	assert.Equal(t, availability.Friday, schedule[0].Day)
	assert.Equal(t, availability.Monday, schedule[1].Day)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTherapistRepositoryCreateInsertsSchedule(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTherapistRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO therapists`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO therapist_availability`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	therapist := &models.Therapist{
		Name:         "Dr. Sarah Mitchell",
		Email:        "sarah@mindwell.example",
		Active:       true,
		Availability: availability.Schedule{availability.DefaultInterval()},
	}
	err := repo.Create(context.Background(), therapist)
	require.NoError(t, err)
	assert.NotEmpty(t, therapist.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTherapistRepositoryReplaceSchedule(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTherapistRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM therapist_availability WHERE therapist_id = $1`)).
		WithArgs("th-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO therapist_availability`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE therapists SET updated_at = $2 WHERE id = $1`)).
		WithArgs("th-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.ReplaceSchedule(context.Background(), "th-1", availability.Schedule{availability.DefaultInterval()})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTherapistRepositoryExistsByEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTherapistRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM therapists WHERE LOWER(email) = LOWER($1) LIMIT 1`)).
		WithArgs("sarah@mindwell.example").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsByEmail(context.Background(), "sarah@mindwell.example", "")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}
