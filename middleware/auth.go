// middleware/auth.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"mindbridge/models"
	"mindbridge/utils"
)

const identityKey = "identity"

// JWTAuthMiddleware resolves the bearer token into a models.Identity and
// stores it on the context.
func JWTAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			utils.JSONError(c, utils.UnauthorizedError("Missing or invalid Authorization header"))
			return
		}
		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))

		identity, err := utils.ParseIdentity(tokenString)
		if err != nil {
			utils.JSONError(c, utils.UnauthorizedError("Invalid token"))
			return
		}
		if !identity.IsActive {
			utils.JSONError(c, utils.ForbiddenError("Account is inactive."))
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// IdentityFrom returns the identity set by JWTAuthMiddleware.
func IdentityFrom(c *gin.Context) (models.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return models.Identity{}, false
	}
	identity, ok := v.(models.Identity)
	return identity, ok
}
