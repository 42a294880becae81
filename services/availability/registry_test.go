package availability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mindbridge/database/repository/memory"
	schedulerRepo "mindbridge/database/repository/scheduler"
	"mindbridge/models"
	"mindbridge/utils"
)

var counsellorID = models.Identity{UserID: "c1", Role: models.RoleCounsellor, IsActive: true, IsApproved: true}

func newRegistry(t *testing.T) (*Registry, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	store.PutCounsellor(models.Counsellor{ID: "c1", Name: "Dr. Rao", IsActive: true, IsApproved: true, SessionFeeMinor: 150000})
	r := NewRegistry(store, store, 3, zap.NewNop())
	r.Now = func() time.Time { return time.Date(2030, 1, 1, 8, 0, 0, 0, time.UTC) }
	return r, store
}

func publish(t *testing.T, r *Registry, slots ...models.DesiredSlot) *models.AvailabilityResponse {
	t.Helper()
	res, err := r.Publish(context.Background(), counsellorID, models.PublishAvailabilityRequest{
		Slots:      slots,
		RangeStart: "2030-01-01",
		RangeEnd:   "2030-01-31",
	})
	require.NoError(t, err)
	return res
}

func TestPublishCreatesSlotsWithDefaults(t *testing.T) {
	r, store := newRegistry(t)

	res := publish(t, r,
		models.DesiredSlot{Date: "2030-01-10", StartTime: "10:00"},
		models.DesiredSlot{Date: "2030-01-10", StartTime: "11:00:00", EndTime: "11:30"},
	)

	require.Len(t, res.Slots, 2)
	assert.Equal(t, "10:45", res.Slots[0].EndTime)
	assert.Equal(t, "11:00", res.Slots[1].StartTime)
	assert.Equal(t, "11:30", res.Slots[1].EndTime)
	assert.Equal(t, DefaultSessionDuration, res.SessionDuration)
	assert.Equal(t, DefaultBreakDuration, res.BreakDuration)
	assert.True(t, res.ProfileVisible)
	assert.Equal(t, "10:00", res.StartTime)
	assert.Equal(t, "11:30", res.EndTime)

	c, _ := store.GetCounsellor(context.Background(), "c1")
	assert.True(t, c.IsAvailable)
	assert.Equal(t, "10:00", c.AvailableFrom)
}

func TestPublishDropsPastAndMalformedEntries(t *testing.T) {
	r, _ := newRegistry(t)

	res := publish(t, r,
		models.DesiredSlot{Date: "2029-12-31", StartTime: "10:00"},
		models.DesiredSlot{Date: "not-a-date", StartTime: "10:00"},
		models.DesiredSlot{Date: "2030-01-10", StartTime: "25:00"},
		models.DesiredSlot{Date: "2030-01-10", StartTime: "09:00"},
	)

	require.Len(t, res.Slots, 1)
	assert.Equal(t, "09:00", res.Slots[0].StartTime)
}

func TestPublishUpdatesMatchesAndDeletesUnbooked(t *testing.T) {
	r, _ := newRegistry(t)
	publish(t, r,
		models.DesiredSlot{Date: "2030-01-10", StartTime: "10:00"},
		models.DesiredSlot{Date: "2030-01-10", StartTime: "11:00"},
	)

	res := publish(t, r, models.DesiredSlot{Date: "2030-01-10", StartTime: "10:00", EndTime: "10:50"})

	require.Len(t, res.Slots, 1)
	assert.Equal(t, "10:50", res.Slots[0].EndTime)
}

func TestPublishKeepsBookedSlot(t *testing.T) {
	r, store := newRegistry(t)
	res := publish(t, r, models.DesiredSlot{Date: "2030-01-10", StartTime: "10:00"})
	bookedID := res.Slots[0].ID
	require.NoError(t, store.RunInTransaction(context.Background(), func(ctx context.Context, tx schedulerRepo.SchedulerTx) error {
		return tx.SetSlotBooked(ctx, bookedID, true)
	}))

	res = publish(t, r, models.DesiredSlot{Date: "2030-01-11", StartTime: "09:00"})

	require.Len(t, res.Slots, 2)
	assert.Equal(t, bookedID, res.Slots[0].ID)
	assert.True(t, res.Slots[0].IsBooked)
}

func TestPublishHiddenProfileIsUnavailable(t *testing.T) {
	r, _ := newRegistry(t)
	hidden := false
	res, err := r.Publish(context.Background(), counsellorID, models.PublishAvailabilityRequest{
		ProfileVisible: &hidden,
		Slots:          []models.DesiredSlot{{Date: "2030-01-10", StartTime: "10:00"}},
	})
	require.NoError(t, err)
	assert.False(t, res.ProfileVisible)
}

func TestPublishRequiresCounsellor(t *testing.T) {
	r, _ := newRegistry(t)
	_, err := r.Publish(context.Background(), models.Identity{UserID: "u1", Role: models.RoleClient}, models.PublishAvailabilityRequest{})
	assert.True(t, utils.IsType(err, utils.ErrForbidden))
}

func TestQueryOrdersByDateThenStart(t *testing.T) {
	r, _ := newRegistry(t)
	publish(t, r,
		models.DesiredSlot{Date: "2030-01-11", StartTime: "09:00"},
		models.DesiredSlot{Date: "2030-01-10", StartTime: "14:00"},
		models.DesiredSlot{Date: "2030-01-10", StartTime: "10:00"},
	)

	res, err := r.Query(context.Background(), counsellorID, "", "")
	require.NoError(t, err)
	require.Len(t, res.Slots, 3)
	assert.Equal(t, "2030-01-10 10:00", res.Slots[0].Date+" "+res.Slots[0].StartTime)
	assert.Equal(t, "2030-01-10 14:00", res.Slots[1].Date+" "+res.Slots[1].StartTime)
	assert.Equal(t, "2030-01-11 09:00", res.Slots[2].Date+" "+res.Slots[2].StartTime)
}

func TestPublicQuery(t *testing.T) {
	r, store := newRegistry(t)
	res := publish(t, r,
		models.DesiredSlot{Date: "2030-01-10", StartTime: "10:00"},
		models.DesiredSlot{Date: "2030-01-10", StartTime: "11:00"},
	)
	require.NoError(t, store.RunInTransaction(context.Background(), func(ctx context.Context, tx schedulerRepo.SchedulerTx) error {
		return tx.SetSlotBooked(ctx, res.Slots[0].ID, true)
	}))

	open, err := r.PublicQuery(context.Background(), "c1", "2030-01-10")
	require.NoError(t, err)
	require.Len(t, open.Slots, 1)
	assert.Equal(t, "11:00", open.Slots[0].StartTime)
	assert.Equal(t, "2030-01-04", open.MinBookingDate)

	_, err = r.PublicQuery(context.Background(), "c1", "2030-01-03")
	assert.True(t, utils.IsType(err, utils.ErrValidation))

	_, err = r.PublicQuery(context.Background(), "c1", "soon")
	assert.True(t, utils.IsType(err, utils.ErrValidation))

	_, err = r.PublicQuery(context.Background(), "nobody", "2030-01-10")
	assert.True(t, utils.IsType(err, utils.ErrNotFound))
}

func TestPublicQueryHidesUnapprovedCounsellor(t *testing.T) {
	r, store := newRegistry(t)
	store.PutCounsellor(models.Counsellor{ID: "c2", IsActive: true})

	_, err := r.PublicQuery(context.Background(), "c2", "2030-01-10")
	assert.True(t, utils.IsType(err, utils.ErrNotFound))
}
