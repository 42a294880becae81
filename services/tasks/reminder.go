package tasks

import (
	"encoding/json"
	"time"

	"mindbridge/models"

	"github.com/hibiken/asynq"
)

const (
	TypeHoldExpiry       = "booking:hold_expiry"
	TypeBookingConfirmed = "booking:confirmed"
)

// NewHoldExpiryTask fires after ttl; the task id keeps one pending expiry per booking.
func NewHoldExpiryTask(payload models.HoldExpiryPayload, ttl time.Duration) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeHoldExpiry, b)
	opts := []asynq.Option{
		asynq.ProcessIn(ttl),
		asynq.TaskID("hold:" + payload.BookingReference),
		asynq.MaxRetry(5),
	}

	return task, opts, nil
}

func NewBookingConfirmedTask(payload models.BookingConfirmedPayload) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeBookingConfirmed, b)
	opts := []asynq.Option{
		asynq.TaskID("confirmed:" + payload.BookingReference),
		asynq.MaxRetry(3),
	}

	return task, opts, nil
}
