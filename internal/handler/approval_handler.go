package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/brightpost/brightpost-backend/internal/common"
	"github.com/brightpost/brightpost-backend/internal/service"
	"github.com/brightpost/brightpost-backend/pkg/jwt"
)

// ApprovalHandler serves the signed approve/reject links mailed to
// reviewers. The token authenticates the decision, no session needed.
type ApprovalHandler struct {
	pipeline *service.Pipeline
	tokens   *jwt.Manager
}

// NewApprovalHandler creates a new ApprovalHandler
func NewApprovalHandler(pipeline *service.Pipeline, tokens *jwt.Manager) *ApprovalHandler {
	return &ApprovalHandler{pipeline: pipeline, tokens: tokens}
}

// Link handles GET /api/v1/content/:id/approval-link
func (h *ApprovalHandler) Link(c *gin.Context) {
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

	token, err := h.tokens.GenerateApprovalToken(content.ID)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to mint approval token", err)
		return
	}
	common.SuccessResponse(c, gin.H{
		"content_id": content.ID,
		"token":      token,
	}, nil)
}

// Approve handles GET /approval/:token/approve. A scheduled_at query
// parameter (RFC 3339) schedules the post instead of publishing now.
func (h *ApprovalHandler) Approve(c *gin.Context) {
	claims, ok := h.verify(c)
	if !ok {
		return
	}

	var scheduledAt *time.Time
	if raw := c.Query("scheduled_at"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			common.ErrorResponse(c, http.StatusBadRequest, "scheduled_at must be an RFC 3339 timestamp", nil)
			return
		}
		scheduledAt = &ts
	}

	content, err := h.pipeline.Approve(c.Request.Context(), claims.ContentID, scheduledAt)
	if err != nil {
		respondDecisionError(c, content, err)
		return
	}
	common.SuccessResponse(c, content, nil)
}

// Reject handles POST /approval/:token/reject
func (h *ApprovalHandler) Reject(c *gin.Context) {
	claims, ok := h.verify(c)
	if !ok {
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid rejection payload", err)
		return
	}

	content, err := h.pipeline.Reject(c.Request.Context(), claims.ContentID, body.Reason)
	if err != nil {
		respondDecisionError(c, content, err)
		return
	}
	common.SuccessResponse(c, content, nil)
}

func (h *ApprovalHandler) verify(c *gin.Context) (*jwt.ApprovalClaims, bool) {
	claims, err := h.tokens.VerifyApprovalToken(c.Param("token"))
	if err != nil {
		if errors.Is(err, jwt.ErrExpiredToken) {
			common.ErrorResponse(c, http.StatusUnauthorized, "this approval link has expired", nil)
			return nil, false
		}
		common.ErrorResponse(c, http.StatusUnauthorized, "invalid approval link", nil)
		return nil, false
	}
	return claims, true
}
