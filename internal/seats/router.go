package seats

import "github.com/gin-gonic/gin"

func SetupSeatRoutes(router *gin.RouterGroup, controller Controller) {
	ticketTypes := router.Group("/ticket-types")
	{
		ticketTypes.GET("/:id/seats", controller.GetSeatMap) // GET /api/v1/ticket-types/:id/seats
	}
}
