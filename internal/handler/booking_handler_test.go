package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindwell-health/mindwell-api/internal/availability"
	"github.com/mindwell-health/mindwell-api/internal/booking"
	"github.com/mindwell-health/mindwell-api/internal/middleware"
	"github.com/mindwell-health/mindwell-api/internal/models"
	"github.com/mindwell-health/mindwell-api/internal/service"
	appErrors "github.com/mindwell-health/mindwell-api/pkg/errors"
)

type bookingServiceMock struct {
	snapshot     booking.Snapshot
	updateErr    error
	submitAppt   *models.Appointment
	submitErr    error
	lastUserID   string
	lastUpdate   service.UpdateSessionRequest
	updateCalled bool
	submitCalled bool
	resetCalled  bool
}

func (m *bookingServiceMock) Session(ctx context.Context, userID string) booking.Snapshot {
	m.lastUserID = userID
	return m.snapshot
}

func (m *bookingServiceMock) Update(ctx context.Context, userID string, req service.UpdateSessionRequest) (booking.Snapshot, error) {
	m.updateCalled = true
	m.lastUserID = userID
	m.lastUpdate = req
	return m.snapshot, m.updateErr
}

func (m *bookingServiceMock) Submit(ctx context.Context, userID string) (*models.Appointment, booking.Snapshot, error) {
	m.submitCalled = true
	m.lastUserID = userID
	return m.submitAppt, m.snapshot, m.submitErr
}

func (m *bookingServiceMock) Reset(ctx context.Context, userID string) booking.Snapshot {
	m.resetCalled = true
	m.lastUserID = userID
	return m.snapshot
}

func bookingTestContext(t *testing.T, method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(method, target, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleUser})
	return c, w
}

func TestBookingHandlerSession(t *testing.T) {
	mockSvc := &bookingServiceMock{snapshot: booking.Snapshot{State: booking.StateIdle}}
	h := NewBookingHandler(mockSvc, nil)

	c, w := bookingTestContext(t, http.MethodGet, "/booking/session", nil)
	h.Session(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-1", mockSvc.lastUserID)
	assert.Contains(t, w.Body.String(), string(booking.StateIdle))
}

func TestBookingHandlerSessionRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewBookingHandler(&bookingServiceMock{}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/booking/session", nil)
	c.Request = req

	h.Session(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBookingHandlerUpdate(t *testing.T) {
	mockSvc := &bookingServiceMock{snapshot: booking.Snapshot{
		State:       booking.StateTherapistChosen,
		OfferedDays: []availability.Weekday{availability.Monday},
	}}
	h := NewBookingHandler(mockSvc, nil)

	c, w := bookingTestContext(t, http.MethodPut, "/booking/session", []byte(`{"therapist_id":"th-1"}`))
	h.Update(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, mockSvc.updateCalled)
	require.NotNil(t, mockSvc.lastUpdate.TherapistID)
	assert.Equal(t, "th-1", *mockSvc.lastUpdate.TherapistID)
	assert.Contains(t, w.Body.String(), "Monday")
}

func TestBookingHandlerUpdateInvalidBody(t *testing.T) {
	mockSvc := &bookingServiceMock{}
	h := NewBookingHandler(mockSvc, nil)

	c, w := bookingTestContext(t, http.MethodPut, "/booking/session", []byte(`{"day":`))
	h.Update(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, mockSvc.updateCalled)
}

func TestBookingHandlerUpdateRejectedDay(t *testing.T) {
	mockSvc := &bookingServiceMock{updateErr: appErrors.ErrDayNotOffered}
	h := NewBookingHandler(mockSvc, nil)

	c, w := bookingTestContext(t, http.MethodPut, "/booking/session", []byte(`{"day":"Sunday"}`))
	h.Update(c)

	require.Equal(t, appErrors.ErrDayNotOffered.Status, w.Code)
}

func TestBookingHandlerSubmit(t *testing.T) {
	mockSvc := &bookingServiceMock{
		snapshot:   booking.Snapshot{State: booking.StateIdle},
		submitAppt: &models.Appointment{ID: "appt-1", Status: models.AppointmentPending},
	}
	h := NewBookingHandler(mockSvc, nil)

	c, w := bookingTestContext(t, http.MethodPost, "/booking/session/submit", nil)
	h.Submit(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.True(t, mockSvc.submitCalled)
	assert.Contains(t, w.Body.String(), "appt-1")
	// The refreshed session rides along as meta next to the appointment.
	assert.Contains(t, w.Body.String(), `"session"`)
}

func TestBookingHandlerSubmitIncomplete(t *testing.T) {
	mockSvc := &bookingServiceMock{submitErr: appErrors.ErrSelectionIncomplete}
	h := NewBookingHandler(mockSvc, nil)

	c, w := bookingTestContext(t, http.MethodPost, "/booking/session/submit", nil)
	h.Submit(c)

	require.Equal(t, appErrors.ErrSelectionIncomplete.Status, w.Code)
}

func TestBookingHandlerReset(t *testing.T) {
	mockSvc := &bookingServiceMock{snapshot: booking.Snapshot{State: booking.StateIdle}}
	h := NewBookingHandler(mockSvc, nil)

	c, w := bookingTestContext(t, http.MethodDelete, "/booking/session", nil)
	h.Reset(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.resetCalled)
}
