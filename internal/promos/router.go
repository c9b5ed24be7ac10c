package promos

import "github.com/gin-gonic/gin"

func SetupPromoRoutes(router *gin.RouterGroup, controller Controller) {
	eventPromos := router.Group("/events")
	{
		eventPromos.GET("/:id/promos/:code", controller.PreviewPromo) // GET /api/v1/events/:id/promos/:code?amount=
	}
}
