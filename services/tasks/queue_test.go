package tasks

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mindbridge/models"
)

type recordingEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (r *recordingEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.tasks = append(r.tasks, task)
	return &asynq.TaskInfo{ID: "t1", Type: task.Type()}, nil
}

func TestScheduleHoldExpiry(t *testing.T) {
	rec := &recordingEnqueuer{}
	q := NewQueue(rec, 15*time.Minute, zap.NewNop())

	require.NoError(t, q.ScheduleHoldExpiry(context.Background(), "MBK-0000000001"))
	require.Len(t, rec.tasks, 1)
	assert.Equal(t, TypeHoldExpiry, rec.tasks[0].Type())

	var p models.HoldExpiryPayload
	require.NoError(t, json.Unmarshal(rec.tasks[0].Payload(), &p))
	assert.Equal(t, "MBK-0000000001", p.BookingReference)
}

func TestDuplicateTaskIsNotAnError(t *testing.T) {
	q := NewQueue(&recordingEnqueuer{err: asynq.ErrTaskIDConflict}, time.Minute, zap.NewNop())
	assert.NoError(t, q.BookingConfirmed(context.Background(), models.BookingConfirmedPayload{BookingReference: "MBK-1"}))
}
