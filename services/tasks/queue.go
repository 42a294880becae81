package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"mindbridge/models"
)

// Enqueuer is the part of *asynq.Client the queue uses.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Queue schedules booking background work on asynq.
type Queue struct {
	client  Enqueuer
	holdTTL time.Duration
	logger  *zap.Logger
}

func NewQueue(client Enqueuer, holdTTL time.Duration, logger *zap.Logger) *Queue {
	return &Queue{client: client, holdTTL: holdTTL, logger: logger}
}

// ScheduleHoldExpiry releases an unpaid reservation once the checkout hold lapses.
func (q *Queue) ScheduleHoldExpiry(ctx context.Context, bookingReference string) error {
	task, opts, err := NewHoldExpiryTask(models.HoldExpiryPayload{BookingReference: bookingReference}, q.holdTTL)
	if err != nil {
		return fmt.Errorf("build hold expiry task: %w", err)
	}
	return q.enqueue(ctx, task, opts)
}

// BookingConfirmed queues the confirmation pushes.
func (q *Queue) BookingConfirmed(ctx context.Context, payload models.BookingConfirmedPayload) error {
	task, opts, err := NewBookingConfirmedTask(payload)
	if err != nil {
		return fmt.Errorf("build confirmation task: %w", err)
	}
	return q.enqueue(ctx, task, opts)
}

func (q *Queue) enqueue(ctx context.Context, task *asynq.Task, opts []asynq.Option) error {
	info, err := q.client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		q.logger.Debug("Task already queued", zap.String("type", task.Type()))
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", task.Type(), err)
	}
	q.logger.Debug("Task queued", zap.String("type", task.Type()), zap.String("id", info.ID))
	return nil
}
