package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/brightpost/brightpost-backend/internal/common"
	"github.com/brightpost/brightpost-backend/internal/domain"
	"github.com/brightpost/brightpost-backend/internal/service"
)

// ClientHandler handles tenant management requests
type ClientHandler struct {
	service *service.ClientService
}

// NewClientHandler creates a new ClientHandler
func NewClientHandler(service *service.ClientService) *ClientHandler {
	return &ClientHandler{service: service}
}

// Create handles POST /api/v1/clients
func (h *ClientHandler) Create(c *gin.Context) {
	var client domain.Client
	if err := c.ShouldBindJSON(&client); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid client payload", err)
		return
	}

	if err := h.service.Create(c.Request.Context(), &client); err != nil {
		if errors.Is(err, common.ErrInvalidInput) {
			common.ErrorResponse(c, http.StatusBadRequest, err.Error(), nil)
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to create client", err)
		return
	}
	c.JSON(http.StatusCreated, common.APIResponse{Data: client})
}

// Get handles GET /api/v1/clients/:id
func (h *ClientHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid client id", nil)
		return
	}

	client, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		common.ErrorResponse(c, http.StatusNotFound, "client not found", nil)
		return
	}
	common.SuccessResponse(c, client, nil)
}

// List handles GET /api/v1/clients
func (h *ClientHandler) List(c *gin.Context) {
	clients, err := h.service.ListActive(c.Request.Context())
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to list clients", err)
		return
	}
	common.SuccessResponse(c, clients, nil)
}

// Update handles PUT /api/v1/clients/:id
func (h *ClientHandler) Update(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid client id", nil)
		return
	}

	existing, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		common.ErrorResponse(c, http.StatusNotFound, "client not found", nil)
		return
	}

	var client domain.Client
	if err := c.ShouldBindJSON(&client); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid client payload", err)
		return
	}
	client.ID = id
	client.IntakeToken = existing.IntakeToken
	client.PostsThisMonth = existing.PostsThisMonth

	if err := h.service.Update(c.Request.Context(), &client); err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to update client", err)
		return
	}
	common.SuccessResponse(c, client, nil)
}

// RotateToken handles POST /api/v1/clients/:id/rotate-token
func (h *ClientHandler) RotateToken(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid client id", nil)
		return
	}

	client, err := h.service.RotateIntakeToken(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, common.ErrClientNotFound) {
			common.ErrorResponse(c, http.StatusNotFound, "client not found", nil)
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to rotate intake token", err)
		return
	}
	common.SuccessResponse(c, gin.H{"intake_token": client.IntakeToken}, nil)
}
