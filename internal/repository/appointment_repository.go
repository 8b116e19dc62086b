package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mindwell-health/mindwell-api/internal/models"
)

// AppointmentRepository manages persistence for appointments.
type AppointmentRepository struct {
	db *sqlx.DB
}

// NewAppointmentRepository constructs an AppointmentRepository.
func NewAppointmentRepository(db *sqlx.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

const appointmentColumns = `a.id, a.user_id, a.therapist_id, a.date, a.type, a.status, a.notes, a.medication,
		t.name AS therapist_name, t.email AS therapist_email, a.created_at, a.updated_at`

// ListByUser returns a user's appointments newest first.
func (r *AppointmentRepository) ListByUser(ctx context.Context, userID string) ([]models.Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointments a
		JOIN therapists t ON t.id = a.therapist_id
		WHERE a.user_id = $1 ORDER BY a.date DESC`, appointmentColumns)
	var appointments []models.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, userID); err != nil {
		return nil, fmt.Errorf("list appointments for user: %w", err)
	}
	return appointments, nil
}

// ListByTherapist returns a therapist's appointment requests newest first.
func (r *AppointmentRepository) ListByTherapist(ctx context.Context, therapistID string) ([]models.Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointments a
		JOIN therapists t ON t.id = a.therapist_id
		WHERE a.therapist_id = $1 ORDER BY a.date DESC`, appointmentColumns)
	var appointments []models.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, therapistID); err != nil {
		return nil, fmt.Errorf("list appointments for therapist: %w", err)
	}
	return appointments, nil
}

// ListAll returns appointments across all users with pagination, for admins.
func (r *AppointmentRepository) ListAll(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, int, error) {
	base := `FROM appointments a JOIN therapists t ON t.id = a.therapist_id WHERE 1=1`
	var args []interface{}

	if filter.Status != "" {
		base += fmt.Sprintf(" AND a.status = $%d", len(args)+1)
		args = append(args, filter.Status)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY a.date DESC LIMIT %d OFFSET %d", appointmentColumns, base, size, offset)
	var appointments []models.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list appointments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count appointments: %w", err)
	}

	return appointments, total, nil
}

// FindByID fetches one appointment.
func (r *AppointmentRepository) FindByID(ctx context.Context, id string) (*models.Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointments a
		JOIN therapists t ON t.id = a.therapist_id
		WHERE a.id = $1`, appointmentColumns)
	var appointment models.Appointment
	if err := r.db.GetContext(ctx, &appointment, query, id); err != nil {
		return nil, err
	}
	return &appointment, nil
}

// Create inserts a new appointment row.
func (r *AppointmentRepository) Create(ctx context.Context, appointment *models.Appointment) error {
	if appointment.ID == "" {
		appointment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if appointment.CreatedAt.IsZero() {
		appointment.CreatedAt = now
	}
	appointment.UpdatedAt = now
	if appointment.Status == "" {
		appointment.Status = models.AppointmentPending
	}

	const query = `INSERT INTO appointments (id, user_id, therapist_id, date, type, status, notes, medication, created_at, updated_at)
		VALUES (:id, :user_id, :therapist_id, :date, :type, :status, :notes, :medication, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, appointment); err != nil {
		return fmt.Errorf("create appointment: %w", err)
	}
	return nil
}

// UpdateStatus transitions an appointment's lifecycle status.
func (r *AppointmentRepository) UpdateStatus(ctx context.Context, id string, status models.AppointmentStatus) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE appointments SET status = $2, updated_at = $3 WHERE id = $1`,
		id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update appointment status: %w", err)
	}
	return nil
}

// UpdateNotes records therapist notes and medication for an appointment.
func (r *AppointmentRepository) UpdateNotes(ctx context.Context, id string, notes, medication *string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE appointments SET notes = $2, medication = $3, updated_at = $4 WHERE id = $1`,
		id, notes, medication, time.Now().UTC()); err != nil {
		return fmt.Errorf("update appointment notes: %w", err)
	}
	return nil
}
