package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mindwell-health/mindwell-api/internal/availability"
	"github.com/mindwell-health/mindwell-api/internal/booking"
	"github.com/mindwell-health/mindwell-api/internal/models"
	appErrors "github.com/mindwell-health/mindwell-api/pkg/errors"
)

type mockScheduleSource struct {
	schedules map[string]availability.Schedule
}

func (m *mockScheduleSource) ScheduleFor(ctx context.Context, therapistID string) (availability.Schedule, error) {
	return m.schedules[therapistID], nil
}

type mockAppointmentCreator struct {
	created []models.Appointment
	err     error
}

func (m *mockAppointmentCreator) CreateAppointment(ctx context.Context, userID, therapistID string, date time.Time, sessionType models.SessionType) (*models.Appointment, error) {
	if m.err != nil {
		return nil, m.err
	}
	appt := models.Appointment{
		ID:          "apt-1",
		UserID:      userID,
		TherapistID: therapistID,
		Date:        date,
		Type:        sessionType,
		Status:      models.AppointmentPending,
	}
	m.created = append(m.created, appt)
	return &appt, nil
}

func bookingFixture(store *mockAppointmentCreator) *BookingService {
	schedules := &mockScheduleSource{schedules: map[string]availability.Schedule{
		"th-1": {
			{Day: availability.Monday, Start: availability.TimeOfDay{Hour: 9}, End: availability.TimeOfDay{Hour: 10}},
		},
	}}
	svc := NewBookingService(schedules, store, zap.NewNop())
	svc.now = func() time.Time {
		// Wednesday.
		return time.Date(2024, 6, 12, 15, 0, 0, 0, time.UTC)
	}
	return svc
}

func weekdayPtr(d availability.Weekday) *availability.Weekday { return &d }

func timePtr(t availability.TimeOfDay) *availability.TimeOfDay { return &t }

func TestBookingServiceSessionStartsIdle(t *testing.T) {
	svc := bookingFixture(&mockAppointmentCreator{})
	snap := svc.Session(context.Background(), "user-1")
	assert.Equal(t, booking.StateIdle, snap.State)
	assert.Equal(t, models.SessionVideoCall, snap.Selection.SessionType)
}

func TestBookingServiceUpdateCascade(t *testing.T) {
	svc := bookingFixture(&mockAppointmentCreator{})
	ctx := context.Background()

	therapist := "th-1"
	snap, err := svc.Update(ctx, "user-1", UpdateSessionRequest{TherapistID: &therapist})
	require.NoError(t, err)
	assert.Equal(t, booking.StateTherapistChosen, snap.State)
	assert.Equal(t, []availability.Weekday{availability.Monday}, snap.OfferedDays)

	snap, err = svc.Update(ctx, "user-1", UpdateSessionRequest{Day: weekdayPtr(availability.Monday)})
	require.NoError(t, err)
	assert.Equal(t, booking.StateDayChosen, snap.State)
	require.Len(t, snap.OfferedTimes, 2)

	snap, err = svc.Update(ctx, "user-1", UpdateSessionRequest{Time: timePtr(availability.TimeOfDay{Hour: 9, Minute: 30})})
	require.NoError(t, err)
	assert.Equal(t, booking.StateTimeChosen, snap.State)
}

func TestBookingServiceUpdateRejectsUnofferedDay(t *testing.T) {
	svc := bookingFixture(&mockAppointmentCreator{})
	ctx := context.Background()

	therapist := "th-1"
	_, err := svc.Update(ctx, "user-1", UpdateSessionRequest{TherapistID: &therapist})
	require.NoError(t, err)

	_, err = svc.Update(ctx, "user-1", UpdateSessionRequest{Day: weekdayPtr(availability.Sunday)})
	assert.ErrorIs(t, err, appErrors.ErrDayNotOffered)
}

func TestBookingServiceSubmitIncomplete(t *testing.T) {
	store := &mockAppointmentCreator{}
	svc := bookingFixture(store)

	_, _, err := svc.Submit(context.Background(), "user-1")
	assert.ErrorIs(t, err, appErrors.ErrSelectionIncomplete)
	assert.Empty(t, store.created)
}

func TestBookingServiceFullFlow(t *testing.T) {
	store := &mockAppointmentCreator{}
	svc := bookingFixture(store)
	ctx := context.Background()

	therapist := "th-1"
	sessionType := models.SessionInPerson
	_, err := svc.Update(ctx, "user-1", UpdateSessionRequest{
		TherapistID: &therapist,
		Day:         weekdayPtr(availability.Monday),
		Time:        timePtr(availability.TimeOfDay{Hour: 9}),
		SessionType: &sessionType,
	})
	require.NoError(t, err)

	appt, snap, err := svc.Submit(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, booking.StateIdle, snap.State)
	assert.Equal(t, models.SessionInPerson, appt.Type)
	// Next Monday after Wednesday 2024-06-12.
	assert.Equal(t, time.Date(2024, 6, 17, 9, 0, 0, 0, time.UTC), appt.Date)
}

func TestBookingServiceFailedSubmitKeepsSelection(t *testing.T) {
	store := &mockAppointmentCreator{err: errors.New("network down")}
	svc := bookingFixture(store)
	ctx := context.Background()

	therapist := "th-1"
	_, err := svc.Update(ctx, "user-1", UpdateSessionRequest{
		TherapistID: &therapist,
		Day:         weekdayPtr(availability.Monday),
		Time:        timePtr(availability.TimeOfDay{Hour: 9}),
	})
	require.NoError(t, err)

	_, snap, err := svc.Submit(ctx, "user-1")
	require.Error(t, err)
	assert.Equal(t, booking.StateTimeChosen, snap.State)
	assert.Equal(t, "th-1", snap.Selection.TherapistID)
	require.NotNil(t, snap.Selection.Time)

	store.err = nil
	appt, snap, err := svc.Submit(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, booking.StateIdle, snap.State)
	assert.NotNil(t, appt)
}

func TestBookingServiceSessionsAreIsolatedPerUser(t *testing.T) {
	svc := bookingFixture(&mockAppointmentCreator{})
	ctx := context.Background()

	therapist := "th-1"
	_, err := svc.Update(ctx, "user-1", UpdateSessionRequest{TherapistID: &therapist})
	require.NoError(t, err)

	snap := svc.Session(ctx, "user-2")
	assert.Equal(t, booking.StateIdle, snap.State)
}

func TestBookingServiceReset(t *testing.T) {
	svc := bookingFixture(&mockAppointmentCreator{})
	ctx := context.Background()

	therapist := "th-1"
	_, err := svc.Update(ctx, "user-1", UpdateSessionRequest{TherapistID: &therapist})
	require.NoError(t, err)

	snap := svc.Reset(ctx, "user-1")
	assert.Equal(t, booking.StateIdle, snap.State)
	assert.Empty(t, snap.Selection.TherapistID)
}
