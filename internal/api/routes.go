package api

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/playtombola/backend/internal/api/handlers"
	"github.com/playtombola/backend/internal/config"
	"github.com/playtombola/backend/internal/ws"
	"github.com/redis/go-redis/v9"
)

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, db *sqlx.DB, rdb *redis.Client, cfg *config.Config) {
	// No-cache headers outside production
	if cfg.Environment != "production" {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
		})
		log.Println("[DEV MODE] No-cache headers enabled for all routes")
	}

	// API v1 group
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck)

		// Draw endpoints
		draws := v1.Group("/draws")
		{
			draws.POST("", handlers.CreateDraw(db, rdb, cfg))
			draws.GET("/:token", handlers.GetDraw(rdb))
			draws.GET("/:token/winners", handlers.GetWinners(db))
			draws.POST("/:token/host-token", handlers.RecoverHostToken(db, cfg))
			draws.POST("/:token/entries", handlers.HostAuthMiddleware(cfg), handlers.AddEntries(db, cfg))
		}
	}

	// WebSocket endpoint for viewers and hosts
	router.GET("/ws", ws.HandleWebSocket)
}
