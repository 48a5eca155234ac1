package routes

import (
	"cakeday-bot/internal/handlers"
	"cakeday-bot/internal/middleware"

	"github.com/gin-gonic/gin"
)

// Setup builds the status/admin router around an injected handler set.
func Setup(h *handlers.Handlers) *gin.Engine {
	ginRouter := gin.Default()

	// CORS middleware (for dashboard integration)
	ginRouter.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Health check endpoint
	ginRouter.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Cake day bot is running",
		})
	})

	// Public routes (no authentication required)
	api := ginRouter.Group("/api")
	{
		api.POST("/login", h.Login)
	}

	// Protected routes (authentication required)
	protectedRoutes := api.Group("")
	protectedRoutes.Use(middleware.JWTAuthMiddleware())
	{
		protectedRoutes.GET("/wished", h.GetWishedUsers)
		protectedRoutes.GET("/subreddits", h.GetSubreddits)
		protectedRoutes.GET("/metrics", h.GetMetrics)
		protectedRoutes.POST("/scan/:subreddit", h.TriggerScan)
		protectedRoutes.GET("/events", h.WebSocketHandler)
	}

	return ginRouter
}
