package routes

import (
	"github.com/gin-gonic/gin"

	"lawdesk_backend/internal/handlers"
	"lawdesk_backend/internal/middleware"
	"lawdesk_backend/internal/realtime"
	"lawdesk_backend/ws"
)

// RegisterRoutes wires all HTTP and websocket routes.
func RegisterRoutes(
	ginRouter *gin.Engine,
	appHandlers *handlers.AppHandlers,
	wsHandler *ws.Handler,
) {
	api := ginRouter.Group("/api/v1")
	{
		appHandlers.AuthHandler.RegisterRoutes(api)
		appHandlers.CaseHandler.RegisterRoutes(api)
		appHandlers.ChatHandler.RegisterRoutes(api)
		appHandlers.NotificationHandler.RegisterRoutes(api)
		appHandlers.RealtimeAuthHandler.RegisterRoutes(api)
	}

	wsGroup := ginRouter.Group("/ws")
	wsGroup.Use(middleware.AuthMiddleware())
	{
		wsGroup.GET("", wsHandler.ServeWS)
	}

	ginRouter.GET("/metrics", gin.WrapH(realtime.MetricsHandler()))
	ginRouter.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
}
