package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brightpost/brightpost-backend/internal/handler"
)

// Setup configures all API routes
func Setup(
	router *gin.Engine,
	contentHandler *handler.ContentHandler,
	approvalHandler *handler.ApprovalHandler,
	clientHandler *handler.ClientHandler,
	notificationHandler *handler.NotificationHandler,
) {
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")

	// Client intake, keyed by the per-tenant token
	api.POST("/intake/:token", contentHandler.Intake)

	// Content lifecycle
	content := api.Group("/content")
	{
		content.GET("/:id", contentHandler.Get)
		content.POST("/:id/approve", contentHandler.Approve)
		content.POST("/:id/reject", contentHandler.Reject)
		content.GET("/:id/approval-link", approvalHandler.Link)
	}

	// Tokenized approve/reject links, no session required
	approval := router.Group("/approval")
	{
		approval.GET("/:token/approve", approvalHandler.Approve)
		approval.POST("/:token/reject", approvalHandler.Reject)
	}

	// Tenant management
	clients := api.Group("/clients")
	{
		clients.GET("", clientHandler.List)
		clients.POST("", clientHandler.Create)
		clients.GET("/:id", clientHandler.Get)
		clients.PUT("/:id", clientHandler.Update)
		clients.POST("/:id/rotate-token", clientHandler.RotateToken)
		clients.GET("/:id/content", contentHandler.List)
	}

	// Operator notification feed
	notifications := api.Group("/notifications")
	{
		notifications.GET("", notificationHandler.GetList)
		notifications.POST("/:id/read", notificationHandler.MarkAsRead)
	}
}
