package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mindwell-health/mindwell-api/internal/models"
	appErrors "github.com/mindwell-health/mindwell-api/pkg/errors"
)

type appointmentRepository interface {
	ListByUser(ctx context.Context, userID string) ([]models.Appointment, error)
	ListByTherapist(ctx context.Context, therapistID string) ([]models.Appointment, error)
	ListAll(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, int, error)
	FindByID(ctx context.Context, id string) (*models.Appointment, error)
	Create(ctx context.Context, appointment *models.Appointment) error
	UpdateStatus(ctx context.Context, id string, status models.AppointmentStatus) error
	UpdateNotes(ctx context.Context, id string, notes, medication *string) error
}

type appointmentTherapistSource interface {
	FindByID(ctx context.Context, id string) (*models.Therapist, error)
}

type appointmentAuditor interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// CreateAppointmentRequest is the direct booking payload.
type CreateAppointmentRequest struct {
	UserID      string             `json:"user" validate:"required"`
	TherapistID string             `json:"therapist" validate:"required"`
	Date        time.Time          `json:"date" validate:"required"`
	Type        models.SessionType `json:"type" validate:"required"`
}

// UpdateNotesRequest carries the therapist's session notes.
type UpdateNotesRequest struct {
	Notes      *string `json:"notes" validate:"omitempty,max=5000"`
	Medication *string `json:"medication" validate:"omitempty,max=2000"`
}

// AppointmentService orchestrates appointment lifecycle operations.
type AppointmentService struct {
	repo       appointmentRepository
	therapists appointmentTherapistSource
	audit      appointmentAuditor
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewAppointmentService constructs an AppointmentService.
func NewAppointmentService(repo appointmentRepository, therapists appointmentTherapistSource, audit appointmentAuditor, validate *validator.Validate, logger *zap.Logger) *AppointmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AppointmentService{repo: repo, therapists: therapists, audit: audit, validator: validate, logger: logger}
}

// ListByUser returns a user's appointments newest first.
func (s *AppointmentService) ListByUser(ctx context.Context, userID string) ([]models.Appointment, error) {
	appointments, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list appointments")
	}
	return appointments, nil
}

// ListByTherapist returns the requests addressed to one therapist.
func (s *AppointmentService) ListByTherapist(ctx context.Context, therapistID string) ([]models.Appointment, error) {
	appointments, err := s.repo.ListByTherapist(ctx, therapistID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list appointments")
	}
	return appointments, nil
}

// ListAll returns appointments across the platform, for admins.
func (s *AppointmentService) ListAll(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, *models.Pagination, error) {
	appointments, total, err := s.repo.ListAll(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list appointments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return appointments, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one appointment.
func (s *AppointmentService) Get(ctx context.Context, id string) (*models.Appointment, error) {
	appointment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appointment")
	}
	return appointment, nil
}

// Create books an appointment directly. The therapist must exist and be
// active; new appointments always start pending.
func (s *AppointmentService) Create(ctx context.Context, req CreateAppointmentRequest) (*models.Appointment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid appointment payload")
	}
	if !req.Type.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported session type")
	}

	therapist, err := s.therapists.FindByID(ctx, req.TherapistID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "therapist not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load therapist")
	}
	if !therapist.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "therapist is not accepting bookings")
	}

	appointment := &models.Appointment{
		UserID:      req.UserID,
		TherapistID: req.TherapistID,
		Date:        req.Date,
		Type:        req.Type,
		Status:      models.AppointmentPending,
	}
	if err := s.repo.Create(ctx, appointment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create appointment")
	}

	appointment.TherapistName = therapist.Name
	appointment.TherapistEmail = therapist.Email

	if s.audit != nil {
		if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     &appointment.UserID,
			Action:     models.AuditActionBookingCreate,
			Resource:   "appointments",
			ResourceID: &appointment.ID,
			NewValues:  []byte(`{"status":"pending"}`),
		}); err != nil {
			s.logger.Warn("failed to record booking audit log", zap.Error(err))
		}
	}

	return appointment, nil
}

// CreateAppointment adapts Create to the booking workflow's submit call.
func (s *AppointmentService) CreateAppointment(ctx context.Context, userID, therapistID string, date time.Time, sessionType models.SessionType) (*models.Appointment, error) {
	return s.Create(ctx, CreateAppointmentRequest{
		UserID:      userID,
		TherapistID: therapistID,
		Date:        date,
		Type:        sessionType,
	})
}

// UpdateStatus transitions an appointment. Completed and rejected are
// terminal; pending requests may be accepted or rejected, accepted ones
// completed or rejected.
func (s *AppointmentService) UpdateStatus(ctx context.Context, id string, status models.AppointmentStatus, actorID string) (*models.Appointment, error) {
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown appointment status")
	}

	appointment, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !statusTransitionAllowed(appointment.Status, status) {
		return nil, appErrors.Clone(appErrors.ErrConflict, "status transition not allowed")
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update status")
	}
	appointment.Status = status

	if s.audit != nil {
		if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     &actorID,
			Action:     models.AuditActionStatusChange,
			Resource:   "appointments",
			ResourceID: &appointment.ID,
			NewValues:  []byte(`{"status":"` + string(status) + `"}`),
		}); err != nil {
			s.logger.Warn("failed to record status audit log", zap.Error(err))
		}
	}

	return appointment, nil
}

// UpdateNotes records session notes, only for the owning therapist.
func (s *AppointmentService) UpdateNotes(ctx context.Context, id string, req UpdateNotesRequest) (*models.Appointment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid notes payload")
	}

	appointment, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateNotes(ctx, id, req.Notes, req.Medication); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update notes")
	}
	appointment.Notes = req.Notes
	appointment.Medication = req.Medication
	return appointment, nil
}

func statusTransitionAllowed(from, to models.AppointmentStatus) bool {
	if from == to {
		return true
	}
	switch from {
	case models.AppointmentPending:
		return to == models.AppointmentAccepted || to == models.AppointmentRejected
	case models.AppointmentAccepted:
		return to == models.AppointmentCompleted || to == models.AppointmentRejected
	default:
		return false
	}
}
