package routes

import (
	"github.com/stackforge/orderhub-backend/pkg/api/handlers"
	"github.com/stackforge/orderhub-backend/pkg/api/servers"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(server *servers.Server) {
	apiV1 := server.Router.Group("/api/v1")
	setupV1Routes(apiV1, server)

	healthGroup := server.Router.Group("/health")
	setupHealthRoutes(healthGroup, server)
}

func setupV1Routes(router *gin.RouterGroup, server *servers.Server) {
	setupOrderRoutes(router.Group("/orders"), server)
	setupServiceRoutes(router.Group("/services"), server)
	setupWebhookRoutes(router.Group("/webhooks"), server)
}

func setupHealthRoutes(router *gin.RouterGroup, server *servers.Server) {
	handler := handlers.NewHealthHandler(server)
	router.GET("", handler.GetHealth)
}

func setupOrderRoutes(router *gin.RouterGroup, server *servers.Server) {
	handler := handlers.NewOrderHandler(server)
	router.POST("", handler.CreateOrder)
	router.GET("/:orderId", handler.GetOrder)
}

func setupServiceRoutes(router *gin.RouterGroup, server *servers.Server) {
	serviceHandler := handlers.NewServiceHandler(server)
	orderHandler := handlers.NewOrderHandler(server)
	router.GET("", serviceHandler.GetAllServices)
	router.GET("/:id", serviceHandler.GetService)
	router.GET("/:id/orders", orderHandler.GetServiceOrders)
	router.PUT("/:id/lock", serviceHandler.UpdateLock)
}

func setupWebhookRoutes(router *gin.RouterGroup, server *servers.Server) {
	handler := handlers.NewWebhookHandler(server)
	router.POST("/deployers/:token", handler.Callback)
}
