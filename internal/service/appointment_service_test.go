package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mindwell-health/mindwell-api/internal/models"
	"github.com/mindwell-health/mindwell-api/internal/repository"
	appErrors "github.com/mindwell-health/mindwell-api/pkg/errors"
)

// The wiring in cmd/api hands the repository straight to the service.
var _ appointmentTherapistSource = (*repository.TherapistRepository)(nil)

type mockAppointmentRepo struct {
	items     map[string]*models.Appointment
	created   []*models.Appointment
	createErr error
	statuses  map[string]models.AppointmentStatus
}

func (m *mockAppointmentRepo) ListByUser(ctx context.Context, userID string) ([]models.Appointment, error) {
	var out []models.Appointment
	for _, a := range m.items {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *mockAppointmentRepo) ListByTherapist(ctx context.Context, therapistID string) ([]models.Appointment, error) {
	var out []models.Appointment
	for _, a := range m.items {
		if a.TherapistID == therapistID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *mockAppointmentRepo) ListAll(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, int, error) {
	var out []models.Appointment
	for _, a := range m.items {
		out = append(out, *a)
	}
	return out, len(out), nil
}

func (m *mockAppointmentRepo) FindByID(ctx context.Context, id string) (*models.Appointment, error) {
	if a, ok := m.items[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAppointmentRepo) Create(ctx context.Context, appointment *models.Appointment) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.items == nil {
		m.items = make(map[string]*models.Appointment)
	}
	if appointment.ID == "" {
		appointment.ID = "generated"
	}
	if appointment.Status == "" {
		appointment.Status = models.AppointmentPending
	}
	cp := *appointment
	m.items[appointment.ID] = &cp
	m.created = append(m.created, &cp)
	return nil
}

func (m *mockAppointmentRepo) UpdateStatus(ctx context.Context, id string, status models.AppointmentStatus) error {
	if m.statuses == nil {
		m.statuses = make(map[string]models.AppointmentStatus)
	}
	m.statuses[id] = status
	if a, ok := m.items[id]; ok {
		a.Status = status
	}
	return nil
}

func (m *mockAppointmentRepo) UpdateNotes(ctx context.Context, id string, notes, medication *string) error {
	if a, ok := m.items[id]; ok {
		a.Notes = notes
		a.Medication = medication
	}
	return nil
}

type mockTherapistSource struct {
	items map[string]*models.Therapist
}

func (m *mockTherapistSource) FindByID(ctx context.Context, id string) (*models.Therapist, error) {
	if t, ok := m.items[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

type mockAuditor struct {
	logs []*models.AuditLog
}

func (m *mockAuditor) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.logs = append(m.logs, log)
	return nil
}

func activeTherapistSource() *mockTherapistSource {
	return &mockTherapistSource{items: map[string]*models.Therapist{
		"th-1": {ID: "th-1", Name: "Dr. Sarah Mitchell", Email: "sarah@mindwell.example", Active: true},
		"th-2": {ID: "th-2", Name: "Dr. James Chen", Email: "james@mindwell.example", Active: false},
	}}
}

func TestAppointmentServiceCreate(t *testing.T) {
	repo := &mockAppointmentRepo{}
	audit := &mockAuditor{}
	service := NewAppointmentService(repo, activeTherapistSource(), audit, validator.New(), zap.NewNop())

	appointment, err := service.Create(context.Background(), CreateAppointmentRequest{
		UserID:      "user-1",
		TherapistID: "th-1",
		Date:        time.Now().Add(48 * time.Hour),
		Type:        models.SessionVideoCall,
	})
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentPending, appointment.Status)
	assert.Equal(t, "Dr. Sarah Mitchell", appointment.TherapistName)
	assert.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionBookingCreate, audit.logs[0].Action)
}

func TestAppointmentServiceCreateRejectsInactiveTherapist(t *testing.T) {
	repo := &mockAppointmentRepo{}
	service := NewAppointmentService(repo, activeTherapistSource(), nil, validator.New(), zap.NewNop())

	_, err := service.Create(context.Background(), CreateAppointmentRequest{
		UserID:      "user-1",
		TherapistID: "th-2",
		Date:        time.Now().Add(48 * time.Hour),
		Type:        models.SessionVideoCall,
	})
	require.Error(t, err)
	assert.Empty(t, repo.created)
}

func TestAppointmentServiceCreateRejectsUnknownType(t *testing.T) {
	repo := &mockAppointmentRepo{}
	service := NewAppointmentService(repo, activeTherapistSource(), nil, validator.New(), zap.NewNop())

	_, err := service.Create(context.Background(), CreateAppointmentRequest{
		UserID:      "user-1",
		TherapistID: "th-1",
		Date:        time.Now().Add(48 * time.Hour),
		Type:        models.SessionType("Telepathy"),
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestAppointmentServiceStatusTransitions(t *testing.T) {
	cases := []struct {
		name    string
		from    models.AppointmentStatus
		to      models.AppointmentStatus
		allowed bool
	}{
		{"pending to accepted", models.AppointmentPending, models.AppointmentAccepted, true},
		{"pending to rejected", models.AppointmentPending, models.AppointmentRejected, true},
		{"pending to completed", models.AppointmentPending, models.AppointmentCompleted, false},
		{"accepted to completed", models.AppointmentAccepted, models.AppointmentCompleted, true},
		{"accepted to rejected", models.AppointmentAccepted, models.AppointmentRejected, true},
		{"completed is terminal", models.AppointmentCompleted, models.AppointmentPending, false},
		{"rejected is terminal", models.AppointmentRejected, models.AppointmentAccepted, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &mockAppointmentRepo{items: map[string]*models.Appointment{
				"apt-1": {ID: "apt-1", UserID: "user-1", TherapistID: "th-1", Status: tc.from},
			}}
			service := NewAppointmentService(repo, activeTherapistSource(), &mockAuditor{}, validator.New(), zap.NewNop())

			updated, err := service.UpdateStatus(context.Background(), "apt-1", tc.to, "th-1")
			if tc.allowed {
				require.NoError(t, err)
				assert.Equal(t, tc.to, updated.Status)
			} else {
				require.Error(t, err)
				appErr := appErrors.FromError(err)
				assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
			}
		})
	}
}

func TestAppointmentServiceUpdateNotes(t *testing.T) {
	repo := &mockAppointmentRepo{items: map[string]*models.Appointment{
		"apt-1": {ID: "apt-1", UserID: "user-1", TherapistID: "th-1", Status: models.AppointmentCompleted},
	}}
	service := NewAppointmentService(repo, activeTherapistSource(), nil, validator.New(), zap.NewNop())

	notes := "Good progress on exposure exercises."
	medication := "None"
	updated, err := service.UpdateNotes(context.Background(), "apt-1", UpdateNotesRequest{Notes: &notes, Medication: &medication})
	require.NoError(t, err)
	require.NotNil(t, updated.Notes)
	assert.Equal(t, notes, *updated.Notes)
}

func TestAppointmentServiceCreateSurfacesStoreError(t *testing.T) {
	repo := &mockAppointmentRepo{createErr: errors.New("connection reset")}
	service := NewAppointmentService(repo, activeTherapistSource(), nil, validator.New(), zap.NewNop())

	_, err := service.Create(context.Background(), CreateAppointmentRequest{
		UserID:      "user-1",
		TherapistID: "th-1",
		Date:        time.Now().Add(48 * time.Hour),
		Type:        models.SessionInPerson,
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErr.Code)
}
