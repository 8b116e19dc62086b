package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mindwell-health/mindwell-api/internal/availability"
	"github.com/mindwell-health/mindwell-api/internal/models"
	appErrors "github.com/mindwell-health/mindwell-api/pkg/errors"
)

const directoryCacheKey = "therapists:directory"

type therapistRepository interface {
	ListActive(ctx context.Context) ([]models.Therapist, error)
	FindByID(ctx context.Context, id string) (*models.Therapist, error)
	ScheduleFor(ctx context.Context, therapistID string) (availability.Schedule, error)
	ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error)
	Create(ctx context.Context, therapist *models.Therapist) error
	Update(ctx context.Context, therapist *models.Therapist) error
	ReplaceSchedule(ctx context.Context, therapistID string, schedule availability.Schedule) error
	Delete(ctx context.Context, id string) error
}

type directoryCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// CreateTherapistRequest represents payload for registering therapists.
type CreateTherapistRequest struct {
	Name           string                  `json:"name" validate:"required,max=200"`
	Email          string                  `json:"email" validate:"required,email"`
	Phone          *string                 `json:"phone" validate:"omitempty,max=50"`
	Specialization *string                 `json:"specialization" validate:"omitempty,max=200"`
	Address        *string                 `json:"address" validate:"omitempty,max=500"`
	Availability   []availability.Interval `json:"availability"`
}

// UpdateTherapistRequest represents payload for updating therapist profiles.
type UpdateTherapistRequest struct {
	Name           string  `json:"name" validate:"required,max=200"`
	Email          string  `json:"email" validate:"required,email"`
	Phone          *string `json:"phone" validate:"omitempty,max=50"`
	Specialization *string `json:"specialization" validate:"omitempty,max=200"`
	Address        *string `json:"address" validate:"omitempty,max=500"`
	Active         *bool   `json:"active"`
}

// TherapistService serves the public directory, composable filtering and the
// weekly availability editor.
type TherapistService struct {
	repo      therapistRepository
	cache     directoryCache
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
}

// SetMetrics attaches the optional cache instrumentation.
func (s *TherapistService) SetMetrics(m *MetricsService) {
	s.metrics = m
}

// NewTherapistService constructs a TherapistService. The cache is optional.
func NewTherapistService(repo therapistRepository, cache directoryCache, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *TherapistService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TherapistService{repo: repo, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

// List returns the active directory with the filter applied. The unfiltered
// directory is fetched (or served from cache) in full; filters narrow it in
// memory so they compose without touching the database again.
func (s *TherapistService) List(ctx context.Context, filter models.TherapistFilter) ([]models.Therapist, error) {
	therapists, err := s.directory(ctx)
	if err != nil {
		return nil, err
	}
	return FilterTherapists(therapists, filter), nil
}

// Get returns one therapist with availability attached.
func (s *TherapistService) Get(ctx context.Context, id string) (*models.Therapist, error) {
	therapist, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "therapist not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load therapist")
	}
	return therapist, nil
}

// ScheduleFor exposes one therapist's weekly availability. It satisfies the
// booking workflow's schedule source.
func (s *TherapistService) ScheduleFor(ctx context.Context, therapistID string) (availability.Schedule, error) {
	schedule, err := s.repo.ScheduleFor(ctx, therapistID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	if len(schedule) == 0 {
		if _, err := s.Get(ctx, therapistID); err != nil {
			return nil, err
		}
	}
	return schedule, nil
}

// Slots returns the bookable half-hour start times for one therapist on one
// weekday, in interval list order.
func (s *TherapistService) Slots(ctx context.Context, therapistID string, day availability.Weekday) ([]availability.TimeOfDay, error) {
	if !day.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown weekday")
	}
	schedule, err := s.ScheduleFor(ctx, therapistID)
	if err != nil {
		return nil, err
	}
	return schedule.SlotsForDay(day), nil
}

// Create registers a new therapist. An empty availability list is seeded with
// the default Monday window.
func (s *TherapistService) Create(ctx context.Context, req CreateTherapistRequest) (*models.Therapist, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid therapist payload")
	}

	schedule := availability.Schedule(req.Availability)
	if len(schedule) == 0 {
		schedule = availability.Schedule{availability.DefaultInterval()}
	}
	if err := validateSchedule(schedule); err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByEmail(ctx, req.Email, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already used")
	}

	therapist := &models.Therapist{
		Name:           strings.TrimSpace(req.Name),
		Email:          strings.TrimSpace(req.Email),
		Phone:          normalizeOptional(req.Phone),
		Specialization: normalizeOptional(req.Specialization),
		Address:        normalizeOptional(req.Address),
		Active:         true,
		Availability:   schedule,
	}
	if err := s.repo.Create(ctx, therapist); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create therapist")
	}

	s.invalidateDirectory(ctx)
	return therapist, nil
}

// Update modifies the therapist profile, leaving availability alone.
func (s *TherapistService) Update(ctx context.Context, id string, req UpdateTherapistRequest) (*models.Therapist, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid therapist payload")
	}

	therapist, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByEmail(ctx, req.Email, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already used")
	}

	therapist.Name = strings.TrimSpace(req.Name)
	therapist.Email = strings.TrimSpace(req.Email)
	therapist.Phone = normalizeOptional(req.Phone)
	therapist.Specialization = normalizeOptional(req.Specialization)
	therapist.Address = normalizeOptional(req.Address)
	if req.Active != nil {
		therapist.Active = *req.Active
	}

	if err := s.repo.Update(ctx, therapist); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update therapist")
	}

	s.invalidateDirectory(ctx)
	return therapist, nil
}

// AddInterval appends one availability interval. A zero-value interval falls
// back to the default Monday window.
func (s *TherapistService) AddInterval(ctx context.Context, therapistID string, iv availability.Interval) (availability.Schedule, error) {
	if iv == (availability.Interval{}) {
		iv = availability.DefaultInterval()
	}
	if err := validateInterval(iv); err != nil {
		return nil, err
	}

	schedule, err := s.loadScheduleChecked(ctx, therapistID)
	if err != nil {
		return nil, err
	}

	schedule = schedule.Add(iv)
	if err := s.repo.ReplaceSchedule(ctx, therapistID, schedule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save schedule")
	}

	s.invalidateDirectory(ctx)
	return schedule, nil
}

// RemoveInterval deletes the interval at the given index. The last remaining
// interval is kept so a therapist never ends up with an empty schedule.
func (s *TherapistService) RemoveInterval(ctx context.Context, therapistID string, index int) (availability.Schedule, error) {
	schedule, err := s.loadScheduleChecked(ctx, therapistID)
	if err != nil {
		return nil, err
	}

	updated, err := schedule.Remove(index)
	if err != nil {
		if len(schedule) == 1 {
			return nil, appErrors.Clone(appErrors.ErrLastInterval, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid interval index")
	}

	if err := s.repo.ReplaceSchedule(ctx, therapistID, updated); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save schedule")
	}

	s.invalidateDirectory(ctx)
	return updated, nil
}

// ReplaceSchedule swaps a therapist's full weekly availability.
func (s *TherapistService) ReplaceSchedule(ctx context.Context, therapistID string, schedule availability.Schedule) (availability.Schedule, error) {
	if len(schedule) == 0 {
		return nil, appErrors.Clone(appErrors.ErrLastInterval, "schedule must keep at least one interval")
	}
	if err := validateSchedule(schedule); err != nil {
		return nil, err
	}
	if _, err := s.loadScheduleChecked(ctx, therapistID); err != nil {
		return nil, err
	}

	if err := s.repo.ReplaceSchedule(ctx, therapistID, schedule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save schedule")
	}

	s.invalidateDirectory(ctx)
	return schedule, nil
}

// Delete removes a therapist and its availability.
func (s *TherapistService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete therapist")
	}
	s.invalidateDirectory(ctx)
	return nil
}

// FilterTherapists applies the directory filters in memory. Each filter is
// independent: specialization matches exactly, day keeps therapists with at
// least one interval on that weekday, search matches name or specialization
// case-insensitively. Empty filter fields keep everything.
func FilterTherapists(therapists []models.Therapist, filter models.TherapistFilter) []models.Therapist {
	out := therapists
	if filter.Specialization != "" {
		out = filterBy(out, func(t models.Therapist) bool {
			return t.Specialization != nil && *t.Specialization == filter.Specialization
		})
	}
	if filter.Day != "" {
		out = filterBy(out, func(t models.Therapist) bool {
			return t.Availability.HasDay(filter.Day)
		})
	}
	if filter.Search != "" {
		needle := strings.ToLower(filter.Search)
		out = filterBy(out, func(t models.Therapist) bool {
			if strings.Contains(strings.ToLower(t.Name), needle) {
				return true
			}
			return t.Specialization != nil && strings.Contains(strings.ToLower(*t.Specialization), needle)
		})
	}
	return out
}

func filterBy(therapists []models.Therapist, keep func(models.Therapist) bool) []models.Therapist {
	out := make([]models.Therapist, 0, len(therapists))
	for _, t := range therapists {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

func (s *TherapistService) directory(ctx context.Context) ([]models.Therapist, error) {
	if s.cache != nil {
		var cached []models.Therapist
		if err := s.cache.Get(ctx, directoryCacheKey, &cached); err == nil {
			s.metrics.RecordCacheLookup(true)
			return cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("directory cache read failed", zap.Error(err))
		}
		s.metrics.RecordCacheLookup(false)
	}

	therapists, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list therapists")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, directoryCacheKey, therapists, s.cacheTTL); err != nil {
			s.logger.Warn("directory cache write failed", zap.Error(err))
		}
	}
	return therapists, nil
}

func (s *TherapistService) invalidateDirectory(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, directoryCacheKey); err != nil {
		s.logger.Warn("directory cache invalidation failed", zap.Error(err))
	}
}

func (s *TherapistService) loadScheduleChecked(ctx context.Context, therapistID string) (availability.Schedule, error) {
	if _, err := s.Get(ctx, therapistID); err != nil {
		return nil, err
	}
	schedule, err := s.repo.ScheduleFor(ctx, therapistID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	return schedule, nil
}

func validateSchedule(schedule availability.Schedule) error {
	for _, iv := range schedule {
		if err := validateInterval(iv); err != nil {
			return err
		}
	}
	return nil
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func validateInterval(iv availability.Interval) error {
	if !iv.Day.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unknown weekday")
	}
	if !iv.Start.Before(iv.End) {
		return appErrors.Clone(appErrors.ErrValidation, "interval start must precede end")
	}
	return nil
}
