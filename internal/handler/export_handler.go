package handler

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/mindwell-health/mindwell-api/internal/models"
	"github.com/mindwell-health/mindwell-api/internal/service"
	appErrors "github.com/mindwell-health/mindwell-api/pkg/errors"
	"github.com/mindwell-health/mindwell-api/pkg/response"
)

// ExportHandler serves appointment-history export endpoints.
type ExportHandler struct {
	service *service.ExportService
	metrics *service.MetricsService
}

// NewExportHandler creates a new handler.
func NewExportHandler(svc *service.ExportService, metrics *service.MetricsService) *ExportHandler {
	return &ExportHandler{service: svc, metrics: metrics}
}

// Request godoc
// @Summary Request appointment-history export
// @Description Queues an export of the user's appointment history as CSV or PDF
// @Tags Exports
// @Accept json
// @Produce json
// @Param payload body map[string]string true "Export format"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /exports [post]
func (h *ExportHandler) Request(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload struct {
		Format models.ExportFormat `json:"format" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "format is required"))
		return
	}

	job, err := h.service.Request(c.Request.Context(), claims.UserID, payload.Format)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.metrics.RecordExportRequested(string(payload.Format))
	response.Accepted(c, job)
}

// Status godoc
// @Summary Get export status
// @Description Returns the job state plus a signed download URL once completed
// @Tags Exports
// @Produce json
// @Param id path string true "Export job ID"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exports/{id} [get]
func (h *ExportHandler) Status(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	status, err := h.service.Status(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, status, nil)
}

// Download godoc
// @Summary Download export file
// @Description Streams the export file for a valid signed token. The token authenticates the request.
// @Tags Exports
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} file
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exports/download/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	file, relPath, err := h.service.Download(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	name := filepath.Base(relPath)
	c.FileAttachment(file.Name(), name)
}
