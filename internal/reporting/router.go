package reporting

import (
	"github.com/gin-gonic/gin"

	"ticketing/internal/shared/config"
	"ticketing/internal/shared/middleware"
)

func SetupReportRoutes(router *gin.RouterGroup, cfg *config.Config, controller Controller) {
	reports := router.Group("/reports")
	reports.Use(middleware.JWTAuth(cfg), middleware.RequireAdmin())
	{
		reports.GET("/events/:id/occupancy", controller.GetEventOccupancy)  // GET /api/v1/reports/events/:id/occupancy
		reports.GET("/utilization", controller.GetUtilization)              // GET /api/v1/reports/utilization?date=YYYY-MM-DD
		reports.POST("/utilization/rebuild", controller.RebuildUtilization) // POST /api/v1/reports/utilization/rebuild?date=YYYY-MM-DD
	}
}
