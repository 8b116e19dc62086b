package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mindwell-health/mindwell-api/internal/models"
	appErrors "github.com/mindwell-health/mindwell-api/pkg/errors"
	"github.com/mindwell-health/mindwell-api/pkg/export"
	"github.com/mindwell-health/mindwell-api/pkg/jobs"
	"github.com/mindwell-health/mindwell-api/pkg/storage"
)

const exportJobKind = "appointment_history"

type exportRepository interface {
	Create(ctx context.Context, job *models.ExportJob) error
	FindByID(ctx context.Context, id string) (*models.ExportJob, error)
	MarkProcessing(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id, filePath string) error
	MarkFailed(ctx context.Context, id, errText string) error
}

type exportAppointmentSource interface {
	ListByUser(ctx context.Context, userID string) ([]models.Appointment, error)
}

type exportFileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type exportQueue interface {
	Enqueue(job jobs.Job) error
}

type tableRenderer interface {
	Render(table export.Table) ([]byte, error)
}

// ExportConfig tunes the export pipeline.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportStatus is the job status response, with a signed download URL once
// the file is ready.
type ExportStatus struct {
	Job         *models.ExportJob `json:"job"`
	DownloadURL string            `json:"download_url,omitempty"`
	ExpiresAt   *time.Time        `json:"expires_at,omitempty"`
}

// ExportService renders a user's appointment history to CSV or PDF in the
// background and serves the result through signed download tokens.
type ExportService struct {
	repo         exportRepository
	appointments exportAppointmentSource
	storage      exportFileStorage
	queue        exportQueue
	signer       *storage.SignedURLSigner
	csv          tableRenderer
	pdf          tableRenderer
	logger       *zap.Logger
	cfg          ExportConfig
}

// NewExportService constructs an ExportService. The queue is attached later
// via SetQueue because the queue handler needs the service.
func NewExportService(repo exportRepository, appointments exportAppointmentSource, store exportFileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		repo:         repo,
		appointments: appointments,
		storage:      store,
		signer:       signer,
		csv:          export.NewCSVExporter(),
		pdf:          export.NewPDFExporter(),
		logger:       logger,
		cfg:          cfg,
	}
}

// SetQueue wires the background queue used for processing.
func (s *ExportService) SetQueue(queue exportQueue) {
	s.queue = queue
}

// Request queues an appointment-history export for the user.
func (s *ExportService) Request(ctx context.Context, userID string, format models.ExportFormat) (*models.ExportJob, error) {
	if !format.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "export queue is not running")
	}

	job := &models.ExportJob{UserID: userID, Format: format}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create export job")
	}

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Kind: exportJobKind, Payload: job.ID}); err != nil {
		if markErr := s.repo.MarkFailed(ctx, job.ID, "failed to enqueue"); markErr != nil {
			s.logger.Warn("failed to mark export job failed", zap.Error(markErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue export")
	}

	return job, nil
}

// Status returns the job state plus a signed download URL when completed.
// Only the owning user may see the job.
func (s *ExportService) Status(ctx context.Context, jobID, requesterID string) (*ExportStatus, error) {
	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	if job.UserID != requesterID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "export job belongs to another user")
	}

	status := &ExportStatus{Job: job}
	if job.Status == models.ExportJobCompleted && job.FilePath != nil {
		token, expiresAt, err := s.signer.Generate(job.ID, *job.FilePath)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
		}
		prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
		if prefix == "" {
			prefix = "/api"
		}
		status.DownloadURL = fmt.Sprintf("%s/exports/download/%s", prefix, token)
		status.ExpiresAt = &expiresAt
	}
	return status, nil
}

// Download validates a signed token and opens the export file.
func (s *ExportService) Download(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export file no longer available")
	}
	return file, relPath, nil
}

// Process is the queue handler rendering one export job.
func (s *ExportService) Process(ctx context.Context, job jobs.Job) error {
	stored, err := s.repo.FindByID(ctx, job.Payload)
	if err != nil {
		return fmt.Errorf("load export job %s: %w", job.Payload, err)
	}
	if stored.Status == models.ExportJobCompleted {
		return nil
	}
	if err := s.repo.MarkProcessing(ctx, stored.ID); err != nil {
		return fmt.Errorf("mark export processing: %w", err)
	}

	relPath, err := s.render(ctx, stored)
	if err != nil {
		if markErr := s.repo.MarkFailed(ctx, stored.ID, err.Error()); markErr != nil {
			s.logger.Warn("failed to mark export job failed", zap.Error(markErr))
		}
		return err
	}

	if err := s.repo.MarkCompleted(ctx, stored.ID, relPath); err != nil {
		return fmt.Errorf("mark export completed: %w", err)
	}
	s.logger.Info("export completed",
		zap.String("job_id", stored.ID),
		zap.String("user_id", stored.UserID),
		zap.String("format", string(stored.Format)))
	return nil
}

// Cleanup removes rendered files older than the result TTL.
func (s *ExportService) Cleanup() ([]string, error) {
	return s.storage.CleanupOlderThan(s.cfg.ResultTTL)
}

func (s *ExportService) render(ctx context.Context, job *models.ExportJob) (string, error) {
	appointments, err := s.appointments.ListByUser(ctx, job.UserID)
	if err != nil {
		return "", fmt.Errorf("load appointments: %w", err)
	}

	table := buildHistoryTable(appointments)

	var payload []byte
	switch job.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(table)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(table)
	default:
		err = fmt.Errorf("unsupported format %s", job.Format)
	}
	if err != nil {
		return "", err
	}

	filename := fmt.Sprintf("%s/history_%s.%s", job.UserID, time.Now().UTC().Format("20060102_150405"), job.Format)
	return s.storage.Save(filename, payload)
}

func buildHistoryTable(appointments []models.Appointment) export.Table {
	rows := make([][]string, 0, len(appointments))
	for _, appt := range appointments {
		notes := ""
		if appt.Notes != nil {
			notes = *appt.Notes
		}
		rows = append(rows, []string{
			appt.Date.UTC().Format(time.RFC3339),
			appt.TherapistName,
			string(appt.Type),
			string(appt.Status),
			notes,
		})
	}
	return export.Table{
		Title:   "Appointment History",
		Headers: []string{"Date", "Therapist", "Type", "Status", "Notes"},
		Rows:    rows,
	}
}
