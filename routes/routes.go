package routes

import (
	"time"

	"ordering-service/controllers"
	"ordering-service/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes wires the HTTP surface. Customers order and track through
// /orders; staff run the floor through /admin and /inventory.
func RegisterRoutes(
	r *gin.Engine,
	orders *controllers.OrderController,
	inventory *controllers.InventoryController,
	allowedOrigins []string,
) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-User-ID", "X-User-Role", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	orderRoutes := r.Group("/orders")
	orderRoutes.Use(middleware.Identity())
	orderRoutes.POST("", orders.CreateOrder)
	orderRoutes.GET("", middleware.RequireUser(), orders.GetOrders)
	orderRoutes.GET("/:id", middleware.RequireUser(), orders.GetOrderByID)
	orderRoutes.POST("/:id/cancel", middleware.RequireUser(), orders.CancelOrder)

	adminRoutes := r.Group("/admin")
	adminRoutes.Use(middleware.Identity(), middleware.StaffOnly())
	adminRoutes.GET("/orders", orders.GetAllOrders)
	adminRoutes.GET("/orders/:id", orders.GetOrderByID)
	adminRoutes.PATCH("/orders/:id/status", orders.UpdateOrderStatus)
	adminRoutes.POST("/orders/:id/cancel", orders.CancelOrder)

	inventoryRoutes := r.Group("/inventory")
	inventoryRoutes.Use(middleware.Identity(), middleware.StaffOnly())
	inventoryRoutes.GET("", inventory.ListItems)
	inventoryRoutes.GET("/low-stock", inventory.ListLowStock)
	inventoryRoutes.GET("/:id", inventory.GetItem)
	inventoryRoutes.POST("", middleware.AdminOnly(), inventory.UpsertItem)
}
