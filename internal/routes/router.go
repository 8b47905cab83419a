package routes

import (
	"net/http"

	"intent-orchestrator/internal/config"
	"intent-orchestrator/internal/delivery/http/handler"
	"intent-orchestrator/internal/logger"
	"intent-orchestrator/internal/middleware"

	"github.com/gin-gonic/gin"
)

// Dependencies are the services the HTTP surface is built on.
type Dependencies struct {
	Troubleshoot handler.Troubleshooter
	Orchestrator handler.Orchestrator
	// Health returns failing dependency checks keyed by name.
	Health  func() map[string]string
	Limiter *middleware.RateLimiter
}

func SetupRoutes(cfg *config.Config, deps Dependencies) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(gin.Recovery())
	// request ID before the rest so every later middleware can log it
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.CORSMiddleware(&cfg.CORS))
	router.Use(middleware.RequestSizeLimitMiddleware(middleware.DefaultMaxRequestSize))
	if deps.Limiter != nil {
		router.Use(middleware.RateLimitMiddleware(deps.Limiter))
	}

	router.GET("/health", func(c *gin.Context) {
		var failed map[string]string
		if deps.Health != nil {
			failed = deps.Health()
		}
		if len(failed) > 0 {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"checks": failed,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "Service is running",
		})
	})

	troubleshootHandler := handler.NewTroubleshootHandler(deps.Troubleshoot)
	chatHandler := handler.NewChatHandler(deps.Orchestrator)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.AuthMiddleware(&cfg.JWT))
	{
		troubleshootHandler.RegisterRoutes(v1)
		chatHandler.RegisterRoutes(v1)

		operator := v1.Group("")
		if middleware.AuthEnabled(&cfg.JWT) {
			operator.Use(middleware.OperatorOnly())
		}
		chatHandler.RegisterOperatorRoutes(operator)
	}

	logger.Info("All routes initialized")
	return router
}
