package events

import (
	"ticketing/internal/shared/config"
	"ticketing/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupEventRoutes(router *gin.RouterGroup, cfg *config.Config, controller Controller) {
	// Public routes
	publicEvents := router.Group("/events")
	{
		publicEvents.GET("/:id", controller.GetEvent) // GET /api/v1/events/:id
	}

	// Organizer routes
	organizerEvents := router.Group("/events")
	organizerEvents.Use(middleware.JWTAuth(cfg), middleware.RequireOrganizer())
	{
		organizerEvents.POST("", controller.CreateEvent)              // POST /api/v1/events
		organizerEvents.POST("/:id/publish", controller.PublishEvent) // POST /api/v1/events/:id/publish
	}
}
