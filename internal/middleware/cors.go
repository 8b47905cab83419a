package middleware

import (
	"slices"
	"time"

	"intent-orchestrator/internal/config"
	"intent-orchestrator/internal/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func CORSMiddleware(cfg *config.CORSConfig) gin.HandlerFunc {
	corsConfig := cors.Config{
		AllowMethods:     cfg.AllowedMethods,
		AllowHeaders:     cfg.AllowedHeaders,
		ExposeHeaders:    cfg.ExposedHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           time.Duration(cfg.MaxAge) * time.Second,
	}

	origins := slices.DeleteFunc(slices.Clone(cfg.AllowedOrigins), func(o string) bool { return o == "*" })
	wildcard := len(origins) < len(cfg.AllowedOrigins) || len(cfg.AllowedOrigins) == 0

	switch {
	case len(origins) > 0:
		corsConfig.AllowOrigins = origins
	case wildcard && !cfg.AllowCredentials:
		corsConfig.AllowAllOrigins = true
	default:
		// a wildcard origin cannot be combined with credentials
		logger.Warn("CORS disabled: credentials require explicit CORS_ALLOWED_ORIGINS")
		return func(c *gin.Context) { c.Next() }
	}

	return cors.New(corsConfig)
}
