package waitlist

import (
	"ticketing/internal/shared/config"
	"ticketing/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupWaitlistRoutes sets up the waitlist routes
func SetupWaitlistRoutes(router *gin.RouterGroup, cfg *config.Config, controller Controller) {
	public := router.Group("/events")
	{
		public.GET("/:id/waitlist-tickets", controller.ListWaitlistTickets) // GET /api/v1/events/:id/waitlist-tickets
	}

	organizer := router.Group("/events")
	organizer.Use(middleware.JWTAuth(cfg), middleware.RequireOrganizer())
	{
		organizer.POST("/:id/waitlist-tickets", controller.OpenWaitlist) // POST /api/v1/events/:id/waitlist-tickets
	}

	users := router.Group("/events")
	users.Use(middleware.JWTAuth(cfg))
	{
		users.POST("/:id/waitlist/join", controller.JoinWaitlist)    // POST /api/v1/events/:id/waitlist/join
		users.DELETE("/:id/waitlist/join", controller.LeaveWaitlist) // DELETE /api/v1/events/:id/waitlist/join
	}
}
