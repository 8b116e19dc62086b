package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mindwell-health/mindwell-api/internal/booking"
	"github.com/mindwell-health/mindwell-api/internal/models"
	"github.com/mindwell-health/mindwell-api/internal/service"
	appErrors "github.com/mindwell-health/mindwell-api/pkg/errors"
	"github.com/mindwell-health/mindwell-api/pkg/response"
)

type bookingService interface {
	Session(ctx context.Context, userID string) booking.Snapshot
	Update(ctx context.Context, userID string, req service.UpdateSessionRequest) (booking.Snapshot, error)
	Submit(ctx context.Context, userID string) (*models.Appointment, booking.Snapshot, error)
	Reset(ctx context.Context, userID string) booking.Snapshot
}

// BookingHandler exposes the guided booking session. Each authenticated user
// has at most one in-progress session.
type BookingHandler struct {
	service bookingService
	metrics *service.MetricsService
}

// NewBookingHandler creates a new handler.
func NewBookingHandler(svc bookingService, metrics *service.MetricsService) *BookingHandler {
	return &BookingHandler{service: svc, metrics: metrics}
}

// Session godoc
// @Summary Get booking session
// @Description Returns the current session snapshot, creating an idle session on first access
// @Tags Booking
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /booking/session [get]
func (h *BookingHandler) Session(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	snapshot := h.service.Session(c.Request.Context(), claims.UserID)
	response.JSON(c, http.StatusOK, snapshot, nil)
}

// Update godoc
// @Summary Advance booking session
// @Description Applies therapist, day, time and session-type choices in order. Changing an earlier choice resets the later ones.
// @Tags Booking
// @Accept json
// @Produce json
// @Param payload body service.UpdateSessionRequest true "Session choices"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /booking/session [put]
func (h *BookingHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.UpdateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid session payload"))
		return
	}

	snapshot, err := h.service.Update(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, snapshot, nil)
}

// Submit godoc
// @Summary Submit booking session
// @Description Validates the selection locally, books the appointment and resets the session. A failed submission keeps the selection.
// @Tags Booking
// @Produce json
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /booking/session/submit [post]
func (h *BookingHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	appointment, snapshot, err := h.service.Submit(c.Request.Context(), claims.UserID)
	h.metrics.RecordBookingSubmission(err == nil)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusCreated, appointment, nil, map[string]interface{}{"session": snapshot})
}

// Reset godoc
// @Summary Reset booking session
// @Description Discards the current selection and returns the session to idle
// @Tags Booking
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /booking/session [delete]
func (h *BookingHandler) Reset(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	snapshot := h.service.Reset(c.Request.Context(), claims.UserID)
	response.JSON(c, http.StatusOK, snapshot, nil)
}
