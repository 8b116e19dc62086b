package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mindwell-health/mindwell-api/internal/service"
	appErrors "github.com/mindwell-health/mindwell-api/pkg/errors"
	"github.com/mindwell-health/mindwell-api/pkg/response"
)

// ChatHandler serves the scripted support-chat endpoints.
type ChatHandler struct {
	service *service.ChatService
}

// NewChatHandler creates a new handler.
func NewChatHandler(svc *service.ChatService) *ChatHandler {
	return &ChatHandler{service: svc}
}

// Send godoc
// @Summary Send chat message
// @Description Persists the user message and returns the scripted reply
// @Tags Chat
// @Accept json
// @Produce json
// @Param payload body service.ChatRequest true "Chat message"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /chat [post]
func (h *ChatHandler) Send(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid chat payload"))
		return
	}
	req.UserID = claims.UserID

	reply, err := h.service.Send(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, reply, nil)
}

// History godoc
// @Summary Get chat history
// @Description Returns the user's chat transcript oldest first
// @Tags Chat
// @Produce json
// @Param userId path string true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /chat/history/{userId} [get]
func (h *ChatHandler) History(c *gin.Context) {
	messages, err := h.service.History(c.Request.Context(), c.Param("userId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, messages, nil)
}
