package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mindwell-health/mindwell-api/internal/availability"
	"github.com/mindwell-health/mindwell-api/internal/booking"
	"github.com/mindwell-health/mindwell-api/internal/models"
	appErrors "github.com/mindwell-health/mindwell-api/pkg/errors"
)

// BookingService keeps one in-memory booking workflow per user. Sessions are
// transient; restarting the server abandons them, which is acceptable because
// an unfinished selection carries no committed state.
type BookingService struct {
	mu        sync.Mutex
	sessions  map[string]*booking.Workflow
	schedules booking.ScheduleSource
	store     booking.AppointmentCreator
	now       func() time.Time
	logger    *zap.Logger
}

// NewBookingService constructs a BookingService.
func NewBookingService(schedules booking.ScheduleSource, store booking.AppointmentCreator, logger *zap.Logger) *BookingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingService{
		sessions:  make(map[string]*booking.Workflow),
		schedules: schedules,
		store:     store,
		now:       time.Now,
		logger:    logger,
	}
}

// UpdateSessionRequest mutates the selection. Fields are applied in cascade
// order; each provided field resets everything downstream of it.
type UpdateSessionRequest struct {
	TherapistID *string                 `json:"therapist_id"`
	Day         *availability.Weekday   `json:"day"`
	Time        *availability.TimeOfDay `json:"time"`
	SessionType *models.SessionType     `json:"type"`
}

// Session returns the user's current workflow snapshot, creating an idle
// session on first access.
func (s *BookingService) Session(ctx context.Context, userID string) booking.Snapshot {
	return s.workflow(userID).Snapshot()
}

// Update applies selection changes in therapist, day, time order.
func (s *BookingService) Update(ctx context.Context, userID string, req UpdateSessionRequest) (booking.Snapshot, error) {
	w := s.workflow(userID)

	if req.TherapistID != nil {
		if *req.TherapistID == "" {
			return w.Snapshot(), appErrors.Clone(appErrors.ErrValidation, "therapist id must not be empty")
		}
		if err := w.ChooseTherapist(ctx, *req.TherapistID); err != nil {
			return w.Snapshot(), err
		}
	}
	if req.Day != nil {
		if err := w.ChooseDay(*req.Day); err != nil {
			return w.Snapshot(), err
		}
	}
	if req.Time != nil {
		if err := w.ChooseTime(*req.Time); err != nil {
			return w.Snapshot(), err
		}
	}
	if req.SessionType != nil {
		if err := w.SetSessionType(*req.SessionType); err != nil {
			return w.Snapshot(), err
		}
	}

	return w.Snapshot(), nil
}

// Submit finalises the selection into an appointment. The session survives a
// failed submission so the user can retry.
func (s *BookingService) Submit(ctx context.Context, userID string) (*models.Appointment, booking.Snapshot, error) {
	w := s.workflow(userID)
	appointment, err := w.Submit(ctx)
	if err != nil {
		s.logger.Info("booking submission rejected",
			zap.String("user_id", userID),
			zap.Error(err))
		return nil, w.Snapshot(), err
	}
	return appointment, w.Snapshot(), nil
}

// Reset abandons the user's session.
func (s *BookingService) Reset(ctx context.Context, userID string) booking.Snapshot {
	w := s.workflow(userID)
	w.Reset()
	return w.Snapshot()
}

func (s *BookingService) workflow(userID string) *booking.Workflow {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.sessions[userID]
	if !ok {
		w = booking.NewWorkflow(userID, s.schedules, s.store, s.now)
		s.sessions[userID] = w
	}
	return w
}
