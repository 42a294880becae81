package handlers

import (
	"github.com/gin-gonic/gin"

	"mindbridge/middleware"
	"mindbridge/models"
	"mindbridge/utils"
)

// identity returns the authenticated caller or writes a 401.
func identity(c *gin.Context) (models.Identity, bool) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		utils.JSONError(c, utils.UnauthorizedError("Insufficient authorization"))
		return models.Identity{}, false
	}
	return id, true
}

// bindJSON decodes the body into dst or writes the invalid-payload error.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		utils.JSONError(c, utils.ValidationError("Invalid payload."))
		return false
	}
	return true
}
