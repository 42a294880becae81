// File: mindbridge/handlers/handlerBundle.go
package handlers

import (
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers and the per-route middleware
// the router needs.
type HandlerBundle struct {
	// Booking endpoints
	CreateBookingHandler gin.HandlerFunc
	Idempotency          gin.HandlerFunc

	// Payment endpoints
	VerifyPaymentHandler  gin.HandlerFunc
	PaymentFailedHandler  gin.HandlerFunc
	PaymentWebhookHandler gin.HandlerFunc

	// Availability endpoints
	GetMyAvailabilityHandler   gin.HandlerFunc
	PublishAvailabilityHandler gin.HandlerFunc
	PublicAvailabilityHandler  gin.HandlerFunc

	// Admin endpoints
	OverridePaymentHandler gin.HandlerFunc

	HealthHandler gin.HandlerFunc
}
