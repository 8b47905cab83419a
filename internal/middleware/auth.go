package middleware

import (
	"net/http"
	"strings"

	"intent-orchestrator/internal/config"
	appErrors "intent-orchestrator/pkg/errors"
	"intent-orchestrator/pkg/utils"

	"github.com/gin-gonic/gin"
)

const (
	SubjectKey = "subject"
	RoleKey    = "role"
)

// AuthEnabled reports whether bearer tokens are checked at all.
func AuthEnabled(cfg *config.JWTConfig) bool {
	return cfg.Secret != ""
}

// AuthMiddleware requires a valid HS256 bearer token and stores its subject and
// role on the context. Without a configured secret every request passes.
func AuthMiddleware(cfg *config.JWTConfig) gin.HandlerFunc {
	if !AuthEnabled(cfg) {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.ErrorResponseWithCode(c, http.StatusUnauthorized, appErrors.CodeUnauthorized, "Authorization header required")
			c.Abort()
			return
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			utils.ErrorResponseWithCode(c, http.StatusUnauthorized, appErrors.CodeUnauthorized, "Invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(strings.TrimSpace(token), cfg.Secret)
		if err != nil {
			utils.ErrorResponseWithCode(c, http.StatusUnauthorized, appErrors.CodeUnauthorized, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set(SubjectKey, claims.Subject)
		c.Set(RoleKey, claims.Role)
		c.Next()
	}
}
