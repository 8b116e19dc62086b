package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mindwell-health/mindwell-api/internal/availability"
	"github.com/mindwell-health/mindwell-api/internal/models"
	"github.com/mindwell-health/mindwell-api/internal/service"
	appErrors "github.com/mindwell-health/mindwell-api/pkg/errors"
	"github.com/mindwell-health/mindwell-api/pkg/response"
)

type therapistService interface {
	List(ctx context.Context, filter models.TherapistFilter) ([]models.Therapist, error)
	Get(ctx context.Context, id string) (*models.Therapist, error)
	Slots(ctx context.Context, therapistID string, day availability.Weekday) ([]availability.TimeOfDay, error)
	Create(ctx context.Context, req service.CreateTherapistRequest) (*models.Therapist, error)
	Update(ctx context.Context, id string, req service.UpdateTherapistRequest) (*models.Therapist, error)
	Delete(ctx context.Context, id string) error
	AddInterval(ctx context.Context, therapistID string, iv availability.Interval) (availability.Schedule, error)
	RemoveInterval(ctx context.Context, therapistID string, index int) (availability.Schedule, error)
	ReplaceSchedule(ctx context.Context, therapistID string, schedule availability.Schedule) (availability.Schedule, error)
}

// TherapistHandler serves the public directory and the admin-facing
// availability editor.
type TherapistHandler struct {
	service therapistService
}

// NewTherapistHandler creates a new handler.
func NewTherapistHandler(svc therapistService) *TherapistHandler {
	return &TherapistHandler{service: svc}
}

// List godoc
// @Summary List therapists
// @Description Returns active therapists with their weekly availability. Filters compose.
// @Tags Therapists
// @Produce json
// @Param specialization query string false "Exact specialization match"
// @Param day query string false "Weekday name, e.g. Monday"
// @Param search query string false "Name or specialization substring"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /therapists [get]
func (h *TherapistHandler) List(c *gin.Context) {
	filter := models.TherapistFilter{
		Specialization: c.Query("specialization"),
		Search:         c.Query("search"),
	}
	if day := c.Query("day"); day != "" {
		weekday := availability.Weekday(day)
		if !weekday.Valid() {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown weekday: "+day))
			return
		}
		filter.Day = weekday
	}

	therapists, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, therapists, nil)
}

// Get godoc
// @Summary Get therapist
// @Description Returns one therapist with availability attached
// @Tags Therapists
// @Produce json
// @Param id path string true "Therapist ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /therapists/{id} [get]
func (h *TherapistHandler) Get(c *gin.Context) {
	therapist, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, therapist, nil)
}

// Slots godoc
// @Summary List bookable time slots
// @Description Returns the 30-minute slot starts for a therapist on a weekday
// @Tags Therapists
// @Produce json
// @Param id path string true "Therapist ID"
// @Param day query string true "Weekday name, e.g. Monday"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /therapists/{id}/slots [get]
func (h *TherapistHandler) Slots(c *gin.Context) {
	day := availability.Weekday(c.Query("day"))
	if !day.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "day query parameter is required and must be a weekday name"))
		return
	}

	slots, err := h.service.Slots(c.Request.Context(), c.Param("id"), day)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"day": day, "slots": slots}, nil)
}

// Create godoc
// @Summary Create therapist
// @Description Registers a therapist; an empty availability seeds the default Monday 09:00-17:00 interval
// @Tags Therapists
// @Accept json
// @Produce json
// @Param payload body service.CreateTherapistRequest true "Therapist payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /therapists [post]
func (h *TherapistHandler) Create(c *gin.Context) {
	var req service.CreateTherapistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid therapist payload"))
		return
	}

	therapist, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, therapist)
}

// Update godoc
// @Summary Update therapist
// @Description Updates therapist profile fields
// @Tags Therapists
// @Accept json
// @Produce json
// @Param id path string true "Therapist ID"
// @Param payload body service.UpdateTherapistRequest true "Therapist payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /therapists/{id} [put]
func (h *TherapistHandler) Update(c *gin.Context) {
	var req service.UpdateTherapistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid therapist payload"))
		return
	}

	therapist, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, therapist, nil)
}

// Delete godoc
// @Summary Delete therapist
// @Description Deactivates a therapist
// @Tags Therapists
// @Produce json
// @Param id path string true "Therapist ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /therapists/{id} [delete]
func (h *TherapistHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddInterval godoc
// @Summary Add availability interval
// @Description Appends an interval to the therapist's weekly schedule. An empty body adds the default interval.
// @Tags Therapists
// @Accept json
// @Produce json
// @Param id path string true "Therapist ID"
// @Param payload body availability.Interval true "Interval"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /therapists/{id}/availability [post]
func (h *TherapistHandler) AddInterval(c *gin.Context) {
	var iv availability.Interval
	if err := c.ShouldBindJSON(&iv); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid interval payload"))
		return
	}

	schedule, err := h.service.AddInterval(c.Request.Context(), c.Param("id"), iv)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, schedule, nil)
}

// RemoveInterval godoc
// @Summary Remove availability interval
// @Description Removes the interval at the given position. The last remaining interval cannot be removed.
// @Tags Therapists
// @Produce json
// @Param id path string true "Therapist ID"
// @Param index path int true "Interval position"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /therapists/{id}/availability/{index} [delete]
func (h *TherapistHandler) RemoveInterval(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "interval index must be a number"))
		return
	}

	schedule, err := h.service.RemoveInterval(c.Request.Context(), c.Param("id"), index)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, schedule, nil)
}

// ReplaceSchedule godoc
// @Summary Replace weekly schedule
// @Description Replaces the therapist's full weekly schedule
// @Tags Therapists
// @Accept json
// @Produce json
// @Param id path string true "Therapist ID"
// @Param payload body availability.Schedule true "Schedule"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /therapists/{id}/availability [put]
func (h *TherapistHandler) ReplaceSchedule(c *gin.Context) {
	var schedule availability.Schedule
	if err := c.ShouldBindJSON(&schedule); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid schedule payload"))
		return
	}

	updated, err := h.service.ReplaceSchedule(c.Request.Context(), c.Param("id"), schedule)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, updated, nil)
}
