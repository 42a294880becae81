package cron

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mindbridge/models"
	"mindbridge/services/tasks"
)

type expirerFunc func(ctx context.Context, ref string) error

func (f expirerFunc) Expire(ctx context.Context, ref string) error { return f(ctx, ref) }

type notifierFunc func(ctx context.Context, p models.BookingConfirmedPayload) error

func (f notifierFunc) NotifyBookingConfirmed(ctx context.Context, p models.BookingConfirmedPayload) error {
	return f(ctx, p)
}

func TestHoldExpiryHandler(t *testing.T) {
	var got []string
	h := handleHoldExpiry(expirerFunc(func(_ context.Context, ref string) error {
		got = append(got, ref)
		return nil
	}), zap.NewNop())

	task, _, err := tasks.NewHoldExpiryTask(models.HoldExpiryPayload{BookingReference: "MBK-1"}, 0)
	require.NoError(t, err)
	require.NoError(t, h(context.Background(), task))
	assert.Equal(t, []string{"MBK-1"}, got)

	err = h(context.Background(), asynq.NewTask(tasks.TypeHoldExpiry, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	err = h(context.Background(), asynq.NewTask(tasks.TypeHoldExpiry, []byte("{}")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHoldExpiryHandlerRetriesOnError(t *testing.T) {
	boom := errors.New("store down")
	h := handleHoldExpiry(expirerFunc(func(context.Context, string) error { return boom }), zap.NewNop())
	task, _, err := tasks.NewHoldExpiryTask(models.HoldExpiryPayload{BookingReference: "MBK-1"}, 0)
	require.NoError(t, err)

	err = h(context.Background(), task)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestBookingConfirmedHandler(t *testing.T) {
	var got models.BookingConfirmedPayload
	h := handleBookingConfirmed(notifierFunc(func(_ context.Context, p models.BookingConfirmedPayload) error {
		got = p
		return nil
	}), zap.NewNop())

	want := models.BookingConfirmedPayload{BookingReference: "MBK-2", ClientID: "u1", CounsellorID: "c1", SessionDate: "2030-01-10", SessionTime: "10:00"}
	b, err := json.Marshal(want)
	require.NoError(t, err)
	require.NoError(t, h(context.Background(), asynq.NewTask(tasks.TypeBookingConfirmed, b)))
	assert.Equal(t, want, got)
}
