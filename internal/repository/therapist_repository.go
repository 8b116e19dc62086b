package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mindwell-health/mindwell-api/internal/availability"
	"github.com/mindwell-health/mindwell-api/internal/models"
)

// TherapistRepository manages persistence for therapists and their weekly
// availability intervals. Intervals live in their own table keyed by
// therapist and ordered by position so insertion order survives round trips.
type TherapistRepository struct {
	db *sqlx.DB
}

// NewTherapistRepository constructs a TherapistRepository.
func NewTherapistRepository(db *sqlx.DB) *TherapistRepository {
	return &TherapistRepository{db: db}
}

const therapistColumns = "id, name, email, phone, specialization, address, active, created_at, updated_at"

type intervalRow struct {
	TherapistID string                 `db:"therapist_id"`
	Day         availability.Weekday   `db:"day"`
	Start       availability.TimeOfDay `db:"start_time"`
	End         availability.TimeOfDay `db:"end_time"`
}

// ListActive returns every active therapist with availability attached. The
// directory is small and fetched in full; filtering happens in the service.
func (r *TherapistRepository) ListActive(ctx context.Context) ([]models.Therapist, error) {
	query := fmt.Sprintf("SELECT %s FROM therapists WHERE active = TRUE ORDER BY name ASC", therapistColumns)
	var therapists []models.Therapist
	if err := r.db.SelectContext(ctx, &therapists, query); err != nil {
		return nil, fmt.Errorf("list therapists: %w", err)
	}

	if err := r.attachSchedules(ctx, therapists); err != nil {
		return nil, err
	}
	return therapists, nil
}

// FindByID fetches one therapist with availability attached.
func (r *TherapistRepository) FindByID(ctx context.Context, id string) (*models.Therapist, error) {
	query := fmt.Sprintf("SELECT %s FROM therapists WHERE id = $1", therapistColumns)
	var therapist models.Therapist
	if err := r.db.GetContext(ctx, &therapist, query, id); err != nil {
		return nil, err
	}

	schedule, err := r.ScheduleFor(ctx, id)
	if err != nil {
		return nil, err
	}
	therapist.Availability = schedule
	return &therapist, nil
}

// ScheduleFor loads one therapist's weekly availability in position order.
func (r *TherapistRepository) ScheduleFor(ctx context.Context, therapistID string) (availability.Schedule, error) {
	const query = `SELECT therapist_id, day, start_time, end_time
		FROM therapist_availability WHERE therapist_id = $1 ORDER BY position ASC`
	var rows []intervalRow
	if err := r.db.SelectContext(ctx, &rows, query, therapistID); err != nil {
		return nil, fmt.Errorf("load schedule for therapist %s: %w", therapistID, err)
	}

	schedule := make(availability.Schedule, 0, len(rows))
	for _, row := range rows {
		schedule = append(schedule, availability.Interval{Day: row.Day, Start: row.Start, End: row.End})
	}
	return schedule, nil
}

// ExistsByEmail checks whether another therapist already owns the email.
func (r *TherapistRepository) ExistsByEmail(ctx context.Context, email string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM therapists WHERE LOWER(email) = LOWER($1)"
	args := []interface{}{email}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check therapist email: %w", err)
	}
	return true, nil
}

// Create inserts a therapist together with the initial schedule.
func (r *TherapistRepository) Create(ctx context.Context, therapist *models.Therapist) error {
	if therapist.ID == "" {
		therapist.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if therapist.CreatedAt.IsZero() {
		therapist.CreatedAt = now
	}
	therapist.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create therapist: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insert = `INSERT INTO therapists (id, name, email, phone, specialization, address, active, created_at, updated_at)
		VALUES (:id, :name, :email, :phone, :specialization, :address, :active, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insert, therapist); err != nil {
		return fmt.Errorf("create therapist: %w", err)
	}

	if err := insertSchedule(ctx, tx, therapist.ID, therapist.Availability); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create therapist: %w", err)
	}
	return nil
}

// Update modifies the therapist profile fields, leaving the schedule alone.
func (r *TherapistRepository) Update(ctx context.Context, therapist *models.Therapist) error {
	therapist.UpdatedAt = time.Now().UTC()
	const query = `UPDATE therapists SET name = :name, email = :email, phone = :phone,
		specialization = :specialization, address = :address, active = :active, updated_at = :updated_at
		WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, therapist); err != nil {
		return fmt.Errorf("update therapist: %w", err)
	}
	return nil
}

// ReplaceSchedule swaps the full availability list in one transaction.
func (r *TherapistRepository) ReplaceSchedule(ctx context.Context, therapistID string, schedule availability.Schedule) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace schedule: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM therapist_availability WHERE therapist_id = $1`, therapistID); err != nil {
		return fmt.Errorf("clear schedule: %w", err)
	}
	if err := insertSchedule(ctx, tx, therapistID, schedule); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE therapists SET updated_at = $2 WHERE id = $1`, therapistID, time.Now().UTC()); err != nil {
		return fmt.Errorf("stamp therapist: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace schedule: %w", err)
	}
	return nil
}

// Delete removes a therapist and, via cascade, its availability rows.
func (r *TherapistRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM therapists WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete therapist: %w", err)
	}
	return nil
}

func insertSchedule(ctx context.Context, tx *sqlx.Tx, therapistID string, schedule availability.Schedule) error {
	const insert = `INSERT INTO therapist_availability (id, therapist_id, position, day, start_time, end_time)
		VALUES ($1, $2, $3, $4, $5, $6)`
	for i, iv := range schedule {
		if _, err := tx.ExecContext(ctx, insert, uuid.NewString(), therapistID, i, iv.Day, iv.Start, iv.End); err != nil {
			return fmt.Errorf("insert availability interval %d: %w", i, err)
		}
	}
	return nil
}

func (r *TherapistRepository) attachSchedules(ctx context.Context, therapists []models.Therapist) error {
	if len(therapists) == 0 {
		return nil
	}

	ids := make([]string, len(therapists))
	for i, t := range therapists {
		ids[i] = t.ID
	}

	query, args, err := sqlx.In(`SELECT therapist_id, day, start_time, end_time
		FROM therapist_availability WHERE therapist_id IN (?) ORDER BY therapist_id, position ASC`, ids)
	if err != nil {
		return fmt.Errorf("build schedule query: %w", err)
	}
	query = r.db.Rebind(query)

	var rows []intervalRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return fmt.Errorf("load schedules: %w", err)
	}

	byTherapist := make(map[string]availability.Schedule, len(therapists))
	for _, row := range rows {
		byTherapist[row.TherapistID] = append(byTherapist[row.TherapistID], availability.Interval{
			Day:   row.Day,
			Start: row.Start,
			End:   row.End,
		})
	}
	for i := range therapists {
		therapists[i].Availability = byTherapist[therapists[i].ID]
	}
	return nil
}
