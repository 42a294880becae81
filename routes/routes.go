package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"mindbridge/handlers"
	"mindbridge/middleware"
	"mindbridge/models"
)

// RegisterBookingRoutes registers the client booking endpoint.
func RegisterBookingRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	bookingGroup := r.Group("/api/bookings")
	{
		bookingGroup.Use(middleware.JWTAuthMiddleware(), middleware.RequireRole(models.RoleClient))
		if hb.Idempotency != nil {
			bookingGroup.POST("", hb.Idempotency, hb.CreateBookingHandler)
		} else {
			bookingGroup.POST("", hb.CreateBookingHandler)
		}
	}
}

// RegisterPaymentRoutes registers checkout outcome endpoints. The webhook
// authenticates with the gateway signature instead of a bearer token.
func RegisterPaymentRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/payments")
	{
		api.POST("/webhook", hb.PaymentWebhookHandler)

		protected := api.Group("")
		protected.Use(middleware.JWTAuthMiddleware(), middleware.RequireRole(models.RoleClient))
		protected.POST("/verify", hb.VerifyPaymentHandler)
		protected.POST("/failed", hb.PaymentFailedHandler)
	}
}

// RegisterAvailabilityRoutes registers counsellor and public availability endpoints.
func RegisterAvailabilityRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	counsellor := r.Group("/api/counsellor")
	{
		counsellor.Use(middleware.JWTAuthMiddleware(), middleware.RequireRole(models.RoleCounsellor))
		counsellor.GET("/availability", hb.GetMyAvailabilityHandler)
		counsellor.POST("/availability", hb.PublishAvailabilityHandler)
	}

	r.GET("/api/counsellors/:id/availability", hb.PublicAvailabilityHandler)
}

// RegisterAdminRoutes sets up endpoints for admin operations.
func RegisterAdminRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	adminGroup := r.Group("/api/admin")
	{
		adminGroup.Use(middleware.JWTAuthMiddleware(), middleware.RequireRole(models.RoleAdmin))
		adminGroup.POST("/bookings/:reference/payment", hb.OverridePaymentHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/health", hb.HealthHandler)
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Authorization", "Content-Type", middleware.IdempotencyHeader},
		ExposeHeaders: []string{"Content-Length", middleware.ReplayedHeader},
		MaxAge:        12 * time.Hour,
	}))

	RegisterHealthRoute(r, hb)
	RegisterBookingRoutes(r, hb)
	RegisterPaymentRoutes(r, hb)
	RegisterAvailabilityRoutes(r, hb)
	RegisterAdminRoutes(r, hb)
}
