package middleware

import (
	"net/http"

	appErrors "intent-orchestrator/pkg/errors"
	"intent-orchestrator/pkg/utils"

	"github.com/gin-gonic/gin"
)

const RoleOperator = "operator"

func RoleMiddleware(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(RoleKey)
		if role == "" {
			utils.ErrorResponseWithCode(c, http.StatusForbidden, appErrors.CodeUnauthorized, "Role not found in token")
			c.Abort()
			return
		}

		for _, allowed := range allowedRoles {
			if role == allowed {
				c.Next()
				return
			}
		}

		utils.ErrorResponseWithCode(c, http.StatusForbidden, appErrors.CodeUnauthorized, "Insufficient permissions")
		c.Abort()
	}
}

func OperatorOnly() gin.HandlerFunc {
	return RoleMiddleware(RoleOperator)
}
