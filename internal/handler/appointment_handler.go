package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mindwell-health/mindwell-api/internal/models"
	"github.com/mindwell-health/mindwell-api/internal/service"
	appErrors "github.com/mindwell-health/mindwell-api/pkg/errors"
	"github.com/mindwell-health/mindwell-api/pkg/response"
)

// AppointmentHandler serves the appointment lifecycle endpoints.
type AppointmentHandler struct {
	service *service.AppointmentService
}

// NewAppointmentHandler creates a new handler.
func NewAppointmentHandler(svc *service.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{service: svc}
}

// ListByUser godoc
// @Summary List user appointments
// @Description Returns a user's appointments newest first
// @Tags Appointments
// @Produce json
// @Param userId path string true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /appointments/user/{userId} [get]
func (h *AppointmentHandler) ListByUser(c *gin.Context) {
	appointments, err := h.service.ListByUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appointments, nil)
}

// ListByTherapist godoc
// @Summary List therapist appointments
// @Description Returns appointments assigned to a therapist
// @Tags Appointments
// @Produce json
// @Param therapistId path string true "Therapist ID"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /appointments/therapist/{therapistId} [get]
func (h *AppointmentHandler) ListByTherapist(c *gin.Context) {
	appointments, err := h.service.ListByTherapist(c.Request.Context(), c.Param("therapistId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appointments, nil)
}

// ListAll godoc
// @Summary List all appointments
// @Description Admin listing with optional status filter and pagination
// @Tags Appointments
// @Produce json
// @Param status query string false "Status filter"
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /appointments [get]
func (h *AppointmentHandler) ListAll(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	filter := models.AppointmentFilter{
		Status:   models.AppointmentStatus(c.Query("status")),
		Page:     page,
		PageSize: pageSize,
	}

	appointments, pagination, err := h.service.ListAll(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, appointments, pagination)
}

// Get godoc
// @Summary Get appointment
// @Tags Appointments
// @Produce json
// @Param id path string true "Appointment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /appointments/{id} [get]
func (h *AppointmentHandler) Get(c *gin.Context) {
	appointment, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appointment, nil)
}

// Create godoc
// @Summary Book appointment
// @Description Books an appointment with an active therapist. Status starts as pending.
// @Tags Appointments
// @Accept json
// @Produce json
// @Param payload body service.CreateAppointmentRequest true "Appointment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /appointments [post]
func (h *AppointmentHandler) Create(c *gin.Context) {
	var req service.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid appointment payload"))
		return
	}

	// Non-admin callers can only book for themselves.
	if claims := claimsFromContext(c); claims != nil && claims.Role != models.RoleAdmin {
		req.UserID = claims.UserID
	}

	appointment, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, appointment)
}

// UpdateStatus godoc
// @Summary Update appointment status
// @Description Moves an appointment through pending, accepted, rejected, completed
// @Tags Appointments
// @Accept json
// @Produce json
// @Param id path string true "Appointment ID"
// @Param payload body map[string]string true "New status"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /appointments/{id}/status [put]
func (h *AppointmentHandler) UpdateStatus(c *gin.Context) {
	var payload struct {
		Status models.AppointmentStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "status is required"))
		return
	}

	actorID := ""
	if claims := claimsFromContext(c); claims != nil {
		actorID = claims.UserID
	}

	appointment, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), payload.Status, actorID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, appointment, nil)
}

// UpdateNotes godoc
// @Summary Update session notes
// @Description Sets the therapist's notes and medication for an appointment
// @Tags Appointments
// @Accept json
// @Produce json
// @Param id path string true "Appointment ID"
// @Param payload body service.UpdateNotesRequest true "Notes payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /appointments/{id}/notes [put]
func (h *AppointmentHandler) UpdateNotes(c *gin.Context) {
	var req service.UpdateNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid notes payload"))
		return
	}

	appointment, err := h.service.UpdateNotes(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, appointment, nil)
}
