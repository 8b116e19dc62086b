package models

import "time"

// ExportFormat selects the rendering for an appointment-history export.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// Valid returns true when the format is supported.
func (f ExportFormat) Valid() bool {
	return f == ExportFormatCSV || f == ExportFormatPDF
}

// ExportJobStatus tracks an export job through the worker queue.
type ExportJobStatus string

const (
	ExportJobQueued     ExportJobStatus = "queued"
	ExportJobProcessing ExportJobStatus = "processing"
	ExportJobCompleted  ExportJobStatus = "completed"
	ExportJobFailed     ExportJobStatus = "failed"
)

// ExportJob represents a persisted appointment-history export request.
type ExportJob struct {
	ID          string          `db:"id" json:"id"`
	UserID      string          `db:"user_id" json:"user_id"`
	Format      ExportFormat    `db:"format" json:"format"`
	Status      ExportJobStatus `db:"status" json:"status"`
	FilePath    *string         `db:"file_path" json:"-"`
	ErrorText   *string         `db:"error_text" json:"error,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	CompletedAt *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
}
