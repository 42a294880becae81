package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse is the failure half of the JSON envelope.
type ErrorResponse struct {
	Success   bool      `json:"success"`
	Error     string    `json:"error"`
	ErrorType ErrorType `json:"error_type"`
}

// ErrorHandler is a middleware to catch panics and return structured errors
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				GetLogger().Error("Unhandled panic", zap.Any("error", err), zap.String("path", c.FullPath()))
				c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
					Success:   false,
					Error:     "An unexpected error occurred. Please try again later.",
					ErrorType: ErrInternal,
				})
			}
		}()
		c.Next()
	}
}

// JSONError translates err into the envelope and writes it with the matching status.
func JSONError(c *gin.Context, err error) {
	appErr := AsAppError(err)
	logger := GetLogger()
	fields := []zap.Field{
		zap.String("path", c.FullPath()),
		zap.String("error_type", string(appErr.Type)),
		zap.Error(err),
	}
	switch appErr.Type {
	case ErrSignatureInvalid:
		logger.Warn(appErr.Message, append(fields, zap.Bool("audit", true))...)
	case ErrInternal, ErrGatewayService:
		logger.Error(appErr.Message, fields...)
	default:
		logger.Info(appErr.Message, fields...)
	}
	c.AbortWithStatusJSON(appErr.Status(), ErrorResponse{
		Success:   false,
		Error:     appErr.Message,
		ErrorType: appErr.Type,
	})
}

// JSONSuccess writes {"success": true} merged with data.
func JSONSuccess(c *gin.Context, data gin.H) {
	body := gin.H{"success": true}
	for k, v := range data {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}
