package middleware

import (
	"github.com/gin-gonic/gin"

	"mindbridge/utils"
)

// RequireRole admits only identities holding one of roles. It must run
// after JWTAuthMiddleware.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := IdentityFrom(c)
		if !ok {
			utils.JSONError(c, utils.UnauthorizedError("Insufficient authorization"))
			return
		}
		for _, role := range roles {
			if identity.Role == role {
				c.Next()
				return
			}
		}
		utils.JSONError(c, utils.ForbiddenError("You do not have access to this resource."))
	}
}
