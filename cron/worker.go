package cron

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"mindbridge/models"
	"mindbridge/services/tasks"
)

// HoldExpirer fails checkouts whose hold lapsed.
type HoldExpirer interface {
	Expire(ctx context.Context, bookingReference string) error
}

// ConfirmationNotifier delivers booking-confirmed pushes.
type ConfirmationNotifier interface {
	NotifyBookingConfirmed(ctx context.Context, payload models.BookingConfirmedPayload) error
}

// Worker runs the booking background tasks.
type Worker struct {
	srv    *asynq.Server
	mux    *asynq.ServeMux
	logger *zap.Logger
}

// NewWorker wires the task handlers onto an asynq server.
func NewWorker(redisOpts asynq.RedisClientOpt, expirer HoldExpirer, notifier ConfirmationNotifier, logger *zap.Logger) *Worker {
	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
			Logger: logger.Sugar(),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeHoldExpiry, handleHoldExpiry(expirer, logger))
	mux.HandleFunc(tasks.TypeBookingConfirmed, handleBookingConfirmed(notifier, logger))

	return &Worker{srv: srv, mux: mux, logger: logger}
}

// Start runs the worker in the background, retrying startup with backoff.
func (w *Worker) Start() {
	go func() {
		w.logger.Info("Starting task worker")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			err := w.srv.Start(w.mux)
			if err == nil {
				return
			}
			w.logger.Error("Task worker failed to start",
				zap.Int("attempt", attempts),
				zap.Int("max", maxAttempts),
				zap.Error(err))
			if attempts == maxAttempts {
				w.logger.Fatal("Max retry attempts reached for task worker")
			}
			time.Sleep(time.Duration(attempts*2) * time.Second)
		}
	}()
}

// Shutdown waits for in-flight tasks and stops the worker.
func (w *Worker) Shutdown() {
	w.srv.Shutdown()
}

func handleHoldExpiry(expirer HoldExpirer, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p models.HoldExpiryPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil || p.BookingReference == "" {
			logger.Error("Invalid hold expiry payload", zap.ByteString("payload", task.Payload()))
			return fmt.Errorf("invalid hold expiry payload: %w", asynq.SkipRetry)
		}
		if err := expirer.Expire(ctx, p.BookingReference); err != nil {
			logger.Warn("Hold expiry failed; will retry", zap.String("booking", p.BookingReference), zap.Error(err))
			return err
		}
		return nil
	}
}

func handleBookingConfirmed(notifier ConfirmationNotifier, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p models.BookingConfirmedPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			logger.Error("Invalid confirmation payload", zap.ByteString("payload", task.Payload()))
			return fmt.Errorf("invalid confirmation payload: %w", asynq.SkipRetry)
		}
		if err := notifier.NotifyBookingConfirmed(ctx, p); err != nil {
			logger.Warn("Failed to send confirmation notification", zap.String("booking", p.BookingReference), zap.Error(err))
			return err
		}
		return nil
	}
}

// MonitorRedisConnection pings the queue database until ctx ends.
func MonitorRedisConnection(ctx context.Context, client *redis.Client, logger *zap.Logger) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := client.Ping(ctx).Err(); err != nil && ctx.Err() == nil {
				logger.Warn("Task queue Redis connection lost", zap.Error(err))
			}
		}
	}
}
