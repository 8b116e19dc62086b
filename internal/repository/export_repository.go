package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mindwell-health/mindwell-api/internal/models"
)

// ExportRepository persists appointment-history export jobs.
type ExportRepository struct {
	db *sqlx.DB
}

// NewExportRepository constructs an ExportRepository.
func NewExportRepository(db *sqlx.DB) *ExportRepository {
	return &ExportRepository{db: db}
}

const exportColumns = "id, user_id, format, status, file_path, error_text, created_at, completed_at"

// Create inserts a queued export job.
func (r *ExportRepository) Create(ctx context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	if job.Status == "" {
		job.Status = models.ExportJobQueued
	}
	const query = `INSERT INTO export_jobs (id, user_id, format, status, created_at)
		VALUES (:id, :user_id, :format, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create export job: %w", err)
	}
	return nil
}

// FindByID fetches one export job.
func (r *ExportRepository) FindByID(ctx context.Context, id string) (*models.ExportJob, error) {
	query := fmt.Sprintf("SELECT %s FROM export_jobs WHERE id = $1", exportColumns)
	var job models.ExportJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, err
	}
	return &job, nil
}

// MarkProcessing flags the job as picked up by a worker.
func (r *ExportRepository) MarkProcessing(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE export_jobs SET status = $2 WHERE id = $1`,
		id, models.ExportJobProcessing); err != nil {
		return fmt.Errorf("mark export processing: %w", err)
	}
	return nil
}

// MarkCompleted stores the rendered file location.
func (r *ExportRepository) MarkCompleted(ctx context.Context, id, filePath string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE export_jobs SET status = $2, file_path = $3, completed_at = $4 WHERE id = $1`,
		id, models.ExportJobCompleted, filePath, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark export completed: %w", err)
	}
	return nil
}

// MarkFailed records a terminal failure.
func (r *ExportRepository) MarkFailed(ctx context.Context, id, errText string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE export_jobs SET status = $2, error_text = $3, completed_at = $4 WHERE id = $1`,
		id, models.ExportJobFailed, errText, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark export failed: %w", err)
	}
	return nil
}
