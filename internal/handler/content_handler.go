package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/brightpost/brightpost-backend/internal/common"
	"github.com/brightpost/brightpost-backend/internal/domain"
	"github.com/brightpost/brightpost-backend/internal/service"
)

// ContentHandler handles content intake and lifecycle requests
type ContentHandler struct {
	pipeline *service.Pipeline
}

// NewContentHandler creates a new ContentHandler
func NewContentHandler(pipeline *service.Pipeline) *ContentHandler {
	return &ContentHandler{pipeline: pipeline}
}

// Intake handles POST /api/v1/intake/:token
func (h *ContentHandler) Intake(c *gin.Context) {
	token := c.Param("token")

	var sub domain.Submission
	if err := c.ShouldBindJSON(&sub); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid submission payload", err)
		return
	}

	content, err := h.pipeline.Intake(c.Request.Context(), token, sub)
	switch {
	case errors.Is(err, common.ErrClientNotFound):
		common.ErrorResponse(c, http.StatusNotFound, "unknown intake token", nil)
		return
	case errors.Is(err, common.ErrClientInactive):
		common.ErrorResponse(c, http.StatusForbidden, "this account is inactive", nil)
		return
	case err != nil:
		// The record exists and carries its failure state
		if content != nil {
			common.SuccessResponse(c, content, nil)
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "intake failed", err)
		return
	}

	c.JSON(http.StatusCreated, common.APIResponse{Data: content})
}

// Get handles GET /api/v1/content/:id
func (h *ContentHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid content id", nil)
		return
	}

	content, err := h.pipeline.Get(id)
	if err != nil {
		common.ErrorResponse(c, http.StatusNotFound, "content not found", nil)
		return
	}
	common.SuccessResponse(c, content, nil)
}

// List handles GET /api/v1/clients/:id/content
func (h *ContentHandler) List(c *gin.Context) {
	clientID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid client id", nil)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	items, total, err := h.pipeline.List(clientID, page, limit)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to list content", err)
		return
	}
	common.SuccessResponse(c, items, &common.Meta{
		ClientID: clientID,
		Page:     page,
		Limit:    limit,
		Total:    total,
	})
}

// Approve handles POST /api/v1/content/:id/approve
func (h *ContentHandler) Approve(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid content id", nil)
		return
	}

	// The body is optional; an empty one means publish right away
	var body struct {
		ScheduledAt *time.Time `json:"scheduled_at"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			common.ErrorResponse(c, http.StatusBadRequest, "invalid approval payload", err)
			return
		}
	}

	content, err := h.pipeline.Approve(c.Request.Context(), id, body.ScheduledAt)
	if err != nil {
		respondDecisionError(c, content, err)
		return
	}
	common.SuccessResponse(c, content, nil)
}

// Reject handles POST /api/v1/content/:id/reject
func (h *ContentHandler) Reject(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid content id", nil)
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid rejection payload", err)
		return
	}

	content, err := h.pipeline.Reject(c.Request.Context(), id, body.Reason)
	if err != nil {
		respondDecisionError(c, content, err)
		return
	}
	common.SuccessResponse(c, content, nil)
}

func respondDecisionError(c *gin.Context, content *domain.Content, err error) {
	switch {
	case errors.Is(err, common.ErrContentNotFound):
		common.ErrorResponse(c, http.StatusNotFound, "content not found", nil)
	case errors.Is(err, common.ErrReasonRequired):
		common.ErrorResponse(c, http.StatusBadRequest, "a rejection reason is required", nil)
	case errors.Is(err, common.ErrInvalidTransition):
		common.ErrorResponse(c, http.StatusConflict, "content is not awaiting review", err)
	case errors.Is(err, common.ErrQuotaExhausted):
		common.ErrorResponse(c, http.StatusConflict, "monthly post quota exhausted", nil)
	default:
		// Generation or dispatch trouble: the record reflects it
		if content != nil {
			common.SuccessResponse(c, content, nil)
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "decision processing failed", err)
	}
}
