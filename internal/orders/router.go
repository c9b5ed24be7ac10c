package orders

import (
	"ticketing/internal/shared/config"
	"ticketing/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupOrderRoutes(router *gin.RouterGroup, cfg *config.Config, controller *Controller) {
	orders := router.Group("/orders")
	orders.Use(middleware.JWTAuth(cfg))
	{
		orders.POST("", controller.CreateOrder)            // POST /api/v1/orders
		orders.GET("/:id", controller.GetOrder)            // GET /api/v1/orders/:id
		orders.POST("/:id/cancel", controller.CancelOrder) // POST /api/v1/orders/:id/cancel
	}

	userOrders := router.Group("/users")
	userOrders.Use(middleware.JWTAuth(cfg))
	{
		userOrders.GET("/orders", controller.ListUserOrders) // GET /api/v1/users/orders
	}
}
