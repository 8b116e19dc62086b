package service

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mindwell-health/mindwell-api/internal/models"
	appErrors "github.com/mindwell-health/mindwell-api/pkg/errors"
	"github.com/mindwell-health/mindwell-api/pkg/jobs"
	"github.com/mindwell-health/mindwell-api/pkg/storage"
)

type mockExportRepo struct {
	items map[string]*models.ExportJob
}

func (m *mockExportRepo) Create(ctx context.Context, job *models.ExportJob) error {
	if m.items == nil {
		m.items = make(map[string]*models.ExportJob)
	}
	if job.ID == "" {
		job.ID = "job-1"
	}
	job.Status = models.ExportJobQueued
	cp := *job
	m.items[job.ID] = &cp
	return nil
}

func (m *mockExportRepo) FindByID(ctx context.Context, id string) (*models.ExportJob, error) {
	if job, ok := m.items[id]; ok {
		cp := *job
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockExportRepo) MarkProcessing(ctx context.Context, id string) error {
	m.items[id].Status = models.ExportJobProcessing
	return nil
}

func (m *mockExportRepo) MarkCompleted(ctx context.Context, id, filePath string) error {
	m.items[id].Status = models.ExportJobCompleted
	m.items[id].FilePath = &filePath
	return nil
}

func (m *mockExportRepo) MarkFailed(ctx context.Context, id, errText string) error {
	m.items[id].Status = models.ExportJobFailed
	m.items[id].ErrorText = &errText
	return nil
}

type mockExportAppointments struct {
	appointments []models.Appointment
}

func (m *mockExportAppointments) ListByUser(ctx context.Context, userID string) ([]models.Appointment, error) {
	return m.appointments, nil
}

type mockExportStorage struct {
	saved map[string][]byte
}

func (m *mockExportStorage) Save(filename string, data []byte) (string, error) {
	if m.saved == nil {
		m.saved = make(map[string][]byte)
	}
	m.saved[filename] = data
	return filename, nil
}

func (m *mockExportStorage) Open(filename string) (*os.File, error) {
	return nil, os.ErrNotExist
}

func (m *mockExportStorage) CleanupOlderThan(ttl time.Duration) ([]string, error) {
	return nil, nil
}

type mockExportQueue struct {
	enqueued []jobs.Job
}

func (m *mockExportQueue) Enqueue(job jobs.Job) error {
	m.enqueued = append(m.enqueued, job)
	return nil
}

func exportFixture() (*ExportService, *mockExportRepo, *mockExportStorage, *mockExportQueue) {
	repo := &mockExportRepo{}
	appointments := &mockExportAppointments{appointments: []models.Appointment{
		{ID: "apt-1", UserID: "user-1", Date: time.Date(2024, 6, 17, 9, 30, 0, 0, time.UTC),
			TherapistName: "Dr. Sarah Mitchell", Type: models.SessionVideoCall, Status: models.AppointmentAccepted},
	}}
	store := &mockExportStorage{}
	queue := &mockExportQueue{}
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	svc := NewExportService(repo, appointments, store, signer, ExportConfig{APIPrefix: "/api"}, zap.NewNop())
	svc.SetQueue(queue)
	return svc, repo, store, queue
}

func TestExportServiceRequestEnqueuesJob(t *testing.T) {
	svc, repo, _, queue := exportFixture()

	job, err := svc.Request(context.Background(), "user-1", models.ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, models.ExportJobQueued, job.Status)
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, job.ID, queue.enqueued[0].Payload)
	assert.Contains(t, repo.items, job.ID)
}

func TestExportServiceRequestRejectsUnknownFormat(t *testing.T) {
	svc, _, _, queue := exportFixture()

	_, err := svc.Request(context.Background(), "user-1", models.ExportFormat("xlsx"))
	require.Error(t, err)
	assert.Empty(t, queue.enqueued)
}

func TestExportServiceProcessRendersCSV(t *testing.T) {
	svc, repo, store, _ := exportFixture()
	ctx := context.Background()

	job, err := svc.Request(ctx, "user-1", models.ExportFormatCSV)
	require.NoError(t, err)

	err = svc.Process(ctx, jobs.Job{ID: job.ID, Kind: "appointment_history", Payload: job.ID})
	require.NoError(t, err)

	stored := repo.items[job.ID]
	assert.Equal(t, models.ExportJobCompleted, stored.Status)
	require.NotNil(t, stored.FilePath)

	payload, ok := store.saved[*stored.FilePath]
	require.True(t, ok)
	assert.Contains(t, string(payload), "Dr. Sarah Mitchell")
	assert.Contains(t, string(payload), "Video Call")
}

func TestExportServiceProcessRendersPDF(t *testing.T) {
	svc, repo, store, _ := exportFixture()
	ctx := context.Background()

	job, err := svc.Request(ctx, "user-1", models.ExportFormatPDF)
	require.NoError(t, err)

	err = svc.Process(ctx, jobs.Job{ID: job.ID, Payload: job.ID})
	require.NoError(t, err)

	stored := repo.items[job.ID]
	assert.Equal(t, models.ExportJobCompleted, stored.Status)
	require.NotNil(t, stored.FilePath)
	assert.NotEmpty(t, store.saved[*stored.FilePath])
}

func TestExportServiceStatusSignsCompletedJobs(t *testing.T) {
	svc, _, _, _ := exportFixture()
	ctx := context.Background()

	job, err := svc.Request(ctx, "user-1", models.ExportFormatCSV)
	require.NoError(t, err)
	require.NoError(t, svc.Process(ctx, jobs.Job{ID: job.ID, Payload: job.ID}))

	status, err := svc.Status(ctx, job.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExportJobCompleted, status.Job.Status)
	assert.Contains(t, status.DownloadURL, "/api/exports/download/")
	require.NotNil(t, status.ExpiresAt)
}

func TestExportServiceStatusForbidsOtherUsers(t *testing.T) {
	svc, _, _, _ := exportFixture()
	ctx := context.Background()

	job, err := svc.Request(ctx, "user-1", models.ExportFormatCSV)
	require.NoError(t, err)

	_, err = svc.Status(ctx, job.ID, "user-2")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}
