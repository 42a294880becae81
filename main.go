// File: mindbridge/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/mongo"

	"mindbridge/config"
	"mindbridge/cron"
	"mindbridge/database"
	"mindbridge/database/repository"
	"mindbridge/handlers"
	"mindbridge/middleware"
	"mindbridge/routes"
	"mindbridge/services/availability"
	"mindbridge/services/booking"
	"mindbridge/services/notification"
	"mindbridge/services/payment"
	"mindbridge/services/reconciliation"
	"mindbridge/services/tasks"
	"mindbridge/utils"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()
	defer logger.Sync()
	cfg := config.AppConfig

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	var mongoClient *mongo.Client
	if cfg.StoreDriver != "memory" {
		database.InitDB()
		mongoClient = database.MongoClient
	}
	cacheClient := utils.GetCacheClient()
	queueOpt := utils.QueueRedisOpt()
	queueRedis := redis.NewClient(&redis.Options{Addr: queueOpt.Addr, Password: queueOpt.Password, DB: queueOpt.DB})

	fcm, err := utils.FirebaseInit(rootCtx)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize firebase: %v", err)
	}

	// repositories.
	stores := repository.NewStores()

	// services.
	gateway := payment.NewStripeGateway(payment.StripeConfig{
		SecretKey:      cfg.StripeSecretKey,
		PublishableKey: cfg.StripePublishableKey,
		WebhookSecret:  cfg.StripeWebhookSecret,
		SigningSecret:  cfg.PaymentSigningSecret,
	}, logger)

	asynqClient := asynq.NewClient(queueOpt)
	defer asynqClient.Close()
	queue := tasks.NewQueue(asynqClient, cfg.CheckoutHoldTTL, logger)

	var sender notification.Sender
	if fcm != nil {
		sender = fcm
	}
	notificationService, err := notification.NewDefaultNotificationService(stores.Accounts, sender, logger)
	if err != nil {
		logger.Sugar().Fatalf("main: %v", err)
	}

	registry := availability.NewRegistry(stores.TimeSlots, stores.Accounts, cfg.BookingLeadDays, logger)
	coordinator := &booking.DefaultReservationCoordinator{
		Scheduler:      stores.Scheduler,
		Accounts:       stores.Accounts,
		Gateway:        gateway,
		Holds:          queue,
		Logger:         logger,
		LeadDays:       cfg.BookingLeadDays,
		Currency:       cfg.PaymentCurrency,
		GatewayTimeout: cfg.GatewayTimeout,
	}
	engine := &reconciliation.DefaultReconciliationEngine{
		Scheduler: stores.Scheduler,
		Gateway:   gateway,
		Notifier:  queue,
		Logger:    logger,
	}

	worker := cron.NewWorker(queueOpt, engine, notificationService, logger)
	worker.Start()
	go cron.MonitorRedisConnection(rootCtx, queueRedis, logger)
	utils.StartHealthMonitor(rootCtx, time.Minute, []*redis.Client{cacheClient, queueRedis}, mongoClient)

	// handlers.
	bookingHandler := handlers.NewBookingHandler(coordinator)
	paymentHandler := handlers.NewPaymentHandler(engine, gateway, logger)
	availabilityHandler := handlers.NewAvailabilityHandler(registry)
	adminHandler := handlers.NewAdminHandler(engine)

	handlerBundle := &handlers.HandlerBundle{
		// Booking endpoints.
		CreateBookingHandler: bookingHandler.CreateBookingHandler,
		Idempotency: middleware.IdempotencyMiddleware(
			utils.NewRedisIdempotencyStore(cacheClient), cfg.IdempotencyTTL, logger),

		// Payment endpoints.
		VerifyPaymentHandler:  paymentHandler.VerifyPaymentHandler,
		PaymentFailedHandler:  paymentHandler.PaymentFailedHandler,
		PaymentWebhookHandler: paymentHandler.PaymentWebhookHandler,

		// Availability endpoints.
		GetMyAvailabilityHandler:   availabilityHandler.GetMyAvailabilityHandler,
		PublishAvailabilityHandler: availabilityHandler.PublishAvailabilityHandler,
		PublicAvailabilityHandler:  availabilityHandler.PublicAvailabilityHandler,

		// Admin endpoints.
		OverridePaymentHandler: adminHandler.OverridePaymentHandler,

		HealthHandler: handlers.HealthHandler,
	}

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware(cfg.MaxRequestsPerMin))

	// Register routes with the assembled handler bundle.
	routes.RegisterRoutes(router, handlerBundle)

	// Start the HTTP server.
	port := cfg.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:              "0.0.0.0:" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Errorf("main: server forced to shutdown: %v", err)
	}
	worker.Shutdown()
	stop()
	if err := database.CloseDB(ctx); err != nil {
		logger.Sugar().Errorf("main: failed to close database: %v", err)
	}
	_ = queueRedis.Close()
	_ = cacheClient.Close()

	logger.Sugar().Info("main: server stopped gracefully")
}
