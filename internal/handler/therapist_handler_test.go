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
	"github.com/mindwell-health/mindwell-api/internal/models"
	"github.com/mindwell-health/mindwell-api/internal/service"
	appErrors "github.com/mindwell-health/mindwell-api/pkg/errors"
)

type therapistServiceMock struct {
	listResp     []models.Therapist
	listErr      error
	getResp      *models.Therapist
	getErr       error
	slotsResp    []availability.TimeOfDay
	slotsErr     error
	scheduleResp availability.Schedule
	scheduleErr  error
	lastFilter   models.TherapistFilter
	lastDay      availability.Weekday
	lastIndex    int
	listCalled   bool
	slotsCalled  bool
}

func (m *therapistServiceMock) List(ctx context.Context, filter models.TherapistFilter) ([]models.Therapist, error) {
	m.listCalled = true
	m.lastFilter = filter
	return m.listResp, m.listErr
}

func (m *therapistServiceMock) Get(ctx context.Context, id string) (*models.Therapist, error) {
	return m.getResp, m.getErr
}

func (m *therapistServiceMock) Slots(ctx context.Context, therapistID string, day availability.Weekday) ([]availability.TimeOfDay, error) {
	m.slotsCalled = true
	m.lastDay = day
	return m.slotsResp, m.slotsErr
}

func (m *therapistServiceMock) Create(ctx context.Context, req service.CreateTherapistRequest) (*models.Therapist, error) {
	return m.getResp, m.getErr
}

func (m *therapistServiceMock) Update(ctx context.Context, id string, req service.UpdateTherapistRequest) (*models.Therapist, error) {
	return m.getResp, m.getErr
}

func (m *therapistServiceMock) Delete(ctx context.Context, id string) error {
	return m.getErr
}

func (m *therapistServiceMock) AddInterval(ctx context.Context, therapistID string, iv availability.Interval) (availability.Schedule, error) {
	return m.scheduleResp, m.scheduleErr
}

func (m *therapistServiceMock) RemoveInterval(ctx context.Context, therapistID string, index int) (availability.Schedule, error) {
	m.lastIndex = index
	return m.scheduleResp, m.scheduleErr
}

func (m *therapistServiceMock) ReplaceSchedule(ctx context.Context, therapistID string, schedule availability.Schedule) (availability.Schedule, error) {
	return m.scheduleResp, m.scheduleErr
}

func therapistTestContext(t *testing.T, method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(method, target, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func TestTherapistHandlerListParsesFilters(t *testing.T) {
	mockSvc := &therapistServiceMock{
		listResp: []models.Therapist{{ID: "th-1", Name: "Dr. Sarah Mitchell"}},
	}
	h := NewTherapistHandler(mockSvc)

	c, w := therapistTestContext(t, http.MethodGet, "/therapists?specialization=Anxiety&day=Monday&search=sarah", nil)
	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, mockSvc.listCalled)
	assert.Equal(t, "Anxiety", mockSvc.lastFilter.Specialization)
	assert.Equal(t, availability.Monday, mockSvc.lastFilter.Day)
	assert.Equal(t, "sarah", mockSvc.lastFilter.Search)
	assert.Contains(t, w.Body.String(), "Dr. Sarah Mitchell")
}

func TestTherapistHandlerListRejectsUnknownDay(t *testing.T) {
	mockSvc := &therapistServiceMock{}
	h := NewTherapistHandler(mockSvc)

	c, w := therapistTestContext(t, http.MethodGet, "/therapists?day=Someday", nil)
	h.List(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, mockSvc.listCalled)
}

func TestTherapistHandlerGetNotFound(t *testing.T) {
	mockSvc := &therapistServiceMock{getErr: appErrors.ErrNotFound}
	h := NewTherapistHandler(mockSvc)

	c, w := therapistTestContext(t, http.MethodGet, "/therapists/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	h.Get(c)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestTherapistHandlerSlots(t *testing.T) {
	mockSvc := &therapistServiceMock{
		slotsResp: []availability.TimeOfDay{{Hour: 9}, {Hour: 9, Minute: 30}, {Hour: 10}},
	}
	h := NewTherapistHandler(mockSvc)

	c, w := therapistTestContext(t, http.MethodGet, "/therapists/th-1/slots?day=Friday", nil)
	c.Params = gin.Params{{Key: "id", Value: "th-1"}}
	h.Slots(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, mockSvc.slotsCalled)
	assert.Equal(t, availability.Friday, mockSvc.lastDay)
	assert.Contains(t, w.Body.String(), "09:30")
}

func TestTherapistHandlerSlotsRequiresDay(t *testing.T) {
	mockSvc := &therapistServiceMock{}
	h := NewTherapistHandler(mockSvc)

	c, w := therapistTestContext(t, http.MethodGet, "/therapists/th-1/slots", nil)
	c.Params = gin.Params{{Key: "id", Value: "th-1"}}
	h.Slots(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, mockSvc.slotsCalled)
}

func TestTherapistHandlerCreateInvalidBody(t *testing.T) {
	h := NewTherapistHandler(&therapistServiceMock{})

	c, w := therapistTestContext(t, http.MethodPost, "/therapists", []byte(`{"name":`))
	h.Create(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTherapistHandlerRemoveIntervalParsesIndex(t *testing.T) {
	mockSvc := &therapistServiceMock{
		scheduleResp: availability.Schedule{{Day: availability.Monday, Start: availability.TimeOfDay{Hour: 9}, End: availability.TimeOfDay{Hour: 17}}},
	}
	h := NewTherapistHandler(mockSvc)

	c, w := therapistTestContext(t, http.MethodDelete, "/therapists/th-1/availability/2", nil)
	c.Params = gin.Params{{Key: "id", Value: "th-1"}, {Key: "index", Value: "2"}}
	h.RemoveInterval(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, mockSvc.lastIndex)
}

func TestTherapistHandlerRemoveIntervalBadIndex(t *testing.T) {
	h := NewTherapistHandler(&therapistServiceMock{})

	c, w := therapistTestContext(t, http.MethodDelete, "/therapists/th-1/availability/one", nil)
	c.Params = gin.Params{{Key: "id", Value: "th-1"}, {Key: "index", Value: "one"}}
	h.RemoveInterval(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTherapistHandlerRemoveLastInterval(t *testing.T) {
	mockSvc := &therapistServiceMock{scheduleErr: appErrors.ErrLastInterval}
	h := NewTherapistHandler(mockSvc)

	c, w := therapistTestContext(t, http.MethodDelete, "/therapists/th-1/availability/0", nil)
	c.Params = gin.Params{{Key: "id", Value: "th-1"}, {Key: "index", Value: "0"}}
	h.RemoveInterval(c)

	require.Equal(t, appErrors.ErrLastInterval.Status, w.Code)
}
