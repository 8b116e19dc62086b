package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindwell-health/mindwell-api/internal/availability"
	"github.com/mindwell-health/mindwell-api/internal/models"
	appErrors "github.com/mindwell-health/mindwell-api/pkg/errors"
)

type scheduleSourceMock struct {
	schedules map[string]availability.Schedule
	err       error
}

func (m *scheduleSourceMock) ScheduleFor(ctx context.Context, therapistID string) (availability.Schedule, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.schedules[therapistID], nil
}

type appointmentStoreMock struct {
	created []models.Appointment
	err     error
}

func (m *appointmentStoreMock) CreateAppointment(ctx context.Context, userID, therapistID string, date time.Time, sessionType models.SessionType) (*models.Appointment, error) {
	if m.err != nil {
		return nil, m.err
	}
	appt := models.Appointment{
		ID:          "appt-1",
		UserID:      userID,
		TherapistID: therapistID,
		Date:        date,
		Type:        sessionType,
		Status:      models.AppointmentPending,
	}
	m.created = append(m.created, appt)
	return &appt, nil
}

func mustTime(t *testing.T, s string) availability.TimeOfDay {
	t.Helper()
	tod, err := availability.ParseTimeOfDay(s)
	require.NoError(t, err)
	return tod
}

func mondaySchedule(t *testing.T) availability.Schedule {
	return availability.Schedule{
		{Day: availability.Monday, Start: mustTime(t, "09:00"), End: mustTime(t, "10:00")},
	}
}

func newTestWorkflow(t *testing.T, schedules *scheduleSourceMock, store *appointmentStoreMock) *Workflow {
	// 2024-06-12 is a Wednesday.
	now := func() time.Time { return time.Date(2024, 6, 12, 15, 0, 0, 0, time.UTC) }
	return NewWorkflow("user-1", schedules, store, now)
}

func TestWorkflowCascade(t *testing.T) {
	schedules := &scheduleSourceMock{schedules: map[string]availability.Schedule{
		"t1": mondaySchedule(t),
	}}
	wf := newTestWorkflow(t, schedules, &appointmentStoreMock{})

	require.NoError(t, wf.ChooseTherapist(context.Background(), "t1"))
	snap := wf.Snapshot()
	assert.Equal(t, StateTherapistChosen, snap.State)
	assert.Equal(t, []availability.Weekday{availability.Monday}, snap.OfferedDays)

	require.NoError(t, wf.ChooseDay(availability.Monday))
	snap = wf.Snapshot()
	assert.Equal(t, StateDayChosen, snap.State)
	require.Len(t, snap.OfferedTimes, 2)
	assert.Equal(t, "09:00", snap.OfferedTimes[0].String())
	assert.Equal(t, "09:30", snap.OfferedTimes[1].String())

	require.NoError(t, wf.ChooseTime(mustTime(t, "09:30")))
	assert.Equal(t, StateTimeChosen, wf.Snapshot().State)
}

func TestWorkflowChangingTherapistClearsDayAndTime(t *testing.T) {
	schedules := &scheduleSourceMock{schedules: map[string]availability.Schedule{
		"t1": mondaySchedule(t),
		"t2": {
			{Day: availability.Friday, Start: mustTime(t, "13:00"), End: mustTime(t, "15:00")},
		},
	}}
	wf := newTestWorkflow(t, schedules, &appointmentStoreMock{})

	require.NoError(t, wf.ChooseTherapist(context.Background(), "t1"))
	require.NoError(t, wf.ChooseDay(availability.Monday))
	require.NoError(t, wf.ChooseTime(mustTime(t, "09:00")))

	require.NoError(t, wf.ChooseTherapist(context.Background(), "t2"))
	snap := wf.Snapshot()
	assert.Equal(t, StateTherapistChosen, snap.State)
	assert.Empty(t, snap.Selection.Day)
	assert.Nil(t, snap.Selection.Time)
	assert.Equal(t, []availability.Weekday{availability.Friday}, snap.OfferedDays)
	assert.Empty(t, snap.OfferedTimes)
}

func TestWorkflowChangingDayClearsTime(t *testing.T) {
	schedules := &scheduleSourceMock{schedules: map[string]availability.Schedule{
		"t1": {
			{Day: availability.Monday, Start: mustTime(t, "09:00"), End: mustTime(t, "10:00")},
			{Day: availability.Tuesday, Start: mustTime(t, "11:00"), End: mustTime(t, "12:00")},
		},
	}}
	wf := newTestWorkflow(t, schedules, &appointmentStoreMock{})

	require.NoError(t, wf.ChooseTherapist(context.Background(), "t1"))
	require.NoError(t, wf.ChooseDay(availability.Monday))
	require.NoError(t, wf.ChooseTime(mustTime(t, "09:30")))

	require.NoError(t, wf.ChooseDay(availability.Tuesday))
	snap := wf.Snapshot()
	assert.Nil(t, snap.Selection.Time)
	assert.Equal(t, "11:00", snap.OfferedTimes[0].String())
}

func TestWorkflowRejectsUnofferedDayAndTime(t *testing.T) {
	schedules := &scheduleSourceMock{schedules: map[string]availability.Schedule{
		"t1": mondaySchedule(t),
	}}
	wf := newTestWorkflow(t, schedules, &appointmentStoreMock{})

	require.NoError(t, wf.ChooseTherapist(context.Background(), "t1"))
	err := wf.ChooseDay(availability.Sunday)
	assert.ErrorIs(t, err, appErrors.ErrDayNotOffered)

	require.NoError(t, wf.ChooseDay(availability.Monday))
	err = wf.ChooseTime(mustTime(t, "10:30"))
	assert.ErrorIs(t, err, appErrors.ErrTimeNotOffered)
}

func TestWorkflowSubmitIncompleteSkipsStore(t *testing.T) {
	schedules := &scheduleSourceMock{schedules: map[string]availability.Schedule{
		"t1": mondaySchedule(t),
	}}
	store := &appointmentStoreMock{}
	wf := newTestWorkflow(t, schedules, store)

	_, err := wf.Submit(context.Background())
	assert.ErrorIs(t, err, appErrors.ErrSelectionIncomplete)
	assert.Empty(t, store.created)

	require.NoError(t, wf.ChooseTherapist(context.Background(), "t1"))
	require.NoError(t, wf.ChooseDay(availability.Monday))
	_, err = wf.Submit(context.Background())
	assert.ErrorIs(t, err, appErrors.ErrSelectionIncomplete)
	assert.Empty(t, store.created)
}

func TestWorkflowSubmitResolvesNextMonday(t *testing.T) {
	schedules := &scheduleSourceMock{schedules: map[string]availability.Schedule{
		"t1": mondaySchedule(t),
	}}
	store := &appointmentStoreMock{}
	wf := newTestWorkflow(t, schedules, store)

	require.NoError(t, wf.ChooseTherapist(context.Background(), "t1"))
	require.NoError(t, wf.ChooseDay(availability.Monday))
	require.NoError(t, wf.ChooseTime(mustTime(t, "09:30")))

	appt, err := wf.Submit(context.Background())
	require.NoError(t, err)
	require.Len(t, store.created, 1)

	// Next Monday after Wednesday 2024-06-12 is 2024-06-17.
	want := time.Date(2024, 6, 17, 9, 30, 0, 0, time.UTC)
	assert.Equal(t, want, appt.Date)
	assert.Equal(t, models.SessionVideoCall, appt.Type)
	assert.Equal(t, "user-1", appt.UserID)
	assert.Equal(t, "t1", appt.TherapistID)

	// Success resets to idle and clears the selection.
	snap := wf.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Empty(t, snap.Selection.TherapistID)
	assert.Empty(t, snap.OfferedDays)
}

func TestWorkflowSubmitFailureKeepsSelection(t *testing.T) {
	schedules := &scheduleSourceMock{schedules: map[string]availability.Schedule{
		"t1": mondaySchedule(t),
	}}
	store := &appointmentStoreMock{err: errors.New("store unavailable")}
	wf := newTestWorkflow(t, schedules, store)

	require.NoError(t, wf.ChooseTherapist(context.Background(), "t1"))
	require.NoError(t, wf.ChooseDay(availability.Monday))
	require.NoError(t, wf.ChooseTime(mustTime(t, "09:00")))

	_, err := wf.Submit(context.Background())
	require.Error(t, err)

	snap := wf.Snapshot()
	assert.Equal(t, StateTimeChosen, snap.State)
	assert.Equal(t, "t1", snap.Selection.TherapistID)
	assert.Equal(t, availability.Monday, snap.Selection.Day)
	require.NotNil(t, snap.Selection.Time)
	assert.Equal(t, "09:00", snap.Selection.Time.String())

	// Retry succeeds once the store recovers.
	store.err = nil
	_, err = wf.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateIdle, wf.Snapshot().State)
}

func TestWorkflowSessionTypeValidation(t *testing.T) {
	wf := newTestWorkflow(t, &scheduleSourceMock{}, &appointmentStoreMock{})
	require.NoError(t, wf.SetSessionType(models.SessionInPerson))
	err := wf.SetSessionType(models.SessionType("Telegram"))
	require.Error(t, err)
	assert.Equal(t, models.SessionInPerson, wf.Snapshot().Selection.SessionType)
}
