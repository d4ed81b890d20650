package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/brightpost/brightpost-backend/internal/common"
	"github.com/brightpost/brightpost-backend/internal/service"
)

// NotificationHandler serves the operator notification feed
type NotificationHandler struct {
	service *service.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(service *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// GetList handles GET /api/v1/notifications
func (h *NotificationHandler) GetList(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	result, err := h.service.GetList(page, limit)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to list notifications", err)
		return
	}
	common.SuccessResponse(c, result, nil)
}

// MarkAsRead handles POST /api/v1/notifications/:id/read
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid notification id", nil)
		return
	}

	if err := h.service.MarkAsRead(id); err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to mark notification read", err)
		return
	}
	common.SuccessResponse(c, gin.H{"id": id, "read": true}, nil)
}
