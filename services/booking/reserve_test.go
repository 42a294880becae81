package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mindbridge/database/repository/memory"
	"mindbridge/models"
	"mindbridge/services/payment/paymenttest"
	"mindbridge/utils"
)

type recordingHolds struct {
	mu   sync.Mutex
	refs []string
}

func (h *recordingHolds) ScheduleHoldExpiry(_ context.Context, ref string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.refs = append(h.refs, ref)
	return nil
}

type fixture struct {
	store   *memory.Store
	gateway *paymenttest.Gateway
	holds   *recordingHolds
	coord   *DefaultReservationCoordinator
	slot    models.AvailabilitySlot
}

func client(id string) models.Identity {
	return models.Identity{UserID: id, Role: models.RoleClient, IsActive: true}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	store.PutCounsellor(models.Counsellor{
		ID: "c1", Name: "Dr. Rao", IsActive: true, IsApproved: true,
		SessionFeeMinor: 150000, GoogleMeetLink: "https://meet.example/abc",
	})
	store.PutClient(models.Client{ID: "u1", Name: "Asha", Email: "asha@example.com", Phone: "999"})
	store.PutClient(models.Client{ID: "u2", Name: "Ben"})
	ids, err := store.CreateMany(context.Background(), []models.AvailabilitySlot{{
		CounsellorID: "c1", Date: "2030-01-10", StartTime: "10:00", EndTime: "10:45", DurationMinutes: 45,
	}})
	require.NoError(t, err)
	slot, _ := store.GetSlot(ids[0])

	gw := paymenttest.NewGateway()
	holds := &recordingHolds{}
	return &fixture{
		store:   store,
		gateway: gw,
		holds:   holds,
		slot:    slot,
		coord: &DefaultReservationCoordinator{
			Scheduler:      store,
			Accounts:       store,
			Gateway:        gw,
			Holds:          holds,
			Logger:         zap.NewNop(),
			LeadDays:       3,
			Currency:       "INR",
			GatewayTimeout: time.Second,
			Now:            func() time.Time { return time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC) },
		},
	}
}

func validRequest() models.ReserveRequest {
	return models.ReserveRequest{CounsellorID: "c1", SessionDate: "2030-01-10", SessionTime: "10:00", ClientNotes: "  first visit "}
}

func TestReserveHoldsSlotAndOpensOrder(t *testing.T) {
	f := newFixture(t)

	res, err := f.coord.Reserve(context.Background(), client("u1"), validRequest())
	require.NoError(t, err)

	slot, _ := f.store.GetSlot(f.slot.ID)
	assert.True(t, slot.IsBooked)

	booking, err := f.store.GetBooking(context.Background(), res.Summary.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, booking.Status)
	assert.Equal(t, models.PaymentStatusPending, booking.PaymentStatus)
	assert.Equal(t, f.slot.ID, booking.SlotID)
	assert.Equal(t, 45, booking.SessionDuration)
	assert.Equal(t, "first visit", booking.ClientNotes)
	assert.Equal(t, "https://meet.example/abc", booking.GoogleMeetLink)
	assert.Regexp(t, `^MBK-[0-9A-F]{10}$`, booking.Reference)

	pay, err := f.store.GetPaymentByBooking(context.Background(), booking.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentInitiated, pay.Status)
	assert.Equal(t, int64(150000), pay.AmountMinor)
	assert.Equal(t, res.Order.ID, pay.GatewayOrderID)
	assert.Regexp(t, `^PAY-[0-9A-F]{12}$`, pay.PaymentID)

	assert.Equal(t, "1500.00", res.Summary.SessionFee)
	assert.Equal(t, int64(150000), res.Order.Amount)
	assert.Equal(t, "pk_test", res.GatewayKey)
	assert.Equal(t, "asha@example.com", res.Client.Email)
	assert.Equal(t, booking.Reference, f.gateway.Orders[0].Metadata["booking_reference"])
	assert.Equal(t, []string{booking.Reference}, f.holds.refs)
}

func TestConcurrentReservationsHaveOneWinner(t *testing.T) {
	f := newFixture(t)
	f.gateway.Delay = 5 * time.Millisecond

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []string{"u1", "u2"} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = f.coord.Reserve(context.Background(), client(id), validRequest())
		}(i, id)
	}
	wg.Wait()

	successes, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case utils.IsType(err, utils.ErrConflict):
			conflicts++
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, conflicts)
	assert.Equal(t, 1, f.gateway.OrderCount())
}

func TestReserveAfterCommitConflicts(t *testing.T) {
	f := newFixture(t)
	_, err := f.coord.Reserve(context.Background(), client("u1"), validRequest())
	require.NoError(t, err)

	_, err = f.coord.Reserve(context.Background(), client("u2"), validRequest())
	require.Error(t, err)
	assert.True(t, utils.IsType(err, utils.ErrConflict))
	assert.Equal(t, slotTakenMessage, utils.AsAppError(err).Message)
	assert.Equal(t, 1, f.gateway.OrderCount())
}

func TestFeeSnapshotSurvivesFeeChange(t *testing.T) {
	f := newFixture(t)
	res, err := f.coord.Reserve(context.Background(), client("u1"), validRequest())
	require.NoError(t, err)

	c, _ := f.store.GetCounsellor(context.Background(), "c1")
	c.SessionFeeMinor = 999900
	f.store.PutCounsellor(*c)

	booking, err := f.store.GetBooking(context.Background(), res.Summary.Reference)
	require.NoError(t, err)
	assert.Equal(t, int64(150000), booking.SessionFeeMinor)
	assert.Equal(t, "1500.00", booking.SessionFee())
}

func TestReserveValidation(t *testing.T) {
	tests := []struct {
		name     string
		identity models.Identity
		mutate   func(*models.ReserveRequest)
		want     utils.ErrorType
	}{
		{"counsellor cannot book", models.Identity{UserID: "c1", Role: models.RoleCounsellor}, nil, utils.ErrForbidden},
		{"unknown client", client("ghost"), nil, utils.ErrNotFound},
		{"bad date", client("u1"), func(r *models.ReserveRequest) { r.SessionDate = "10/01/2030" }, utils.ErrValidation},
		{"bad time", client("u1"), func(r *models.ReserveRequest) { r.SessionTime = "ten" }, utils.ErrValidation},
		{"inside lead time", client("u1"), func(r *models.ReserveRequest) { r.SessionDate = "2030-01-03" }, utils.ErrValidation},
		{"unknown counsellor", client("u1"), func(r *models.ReserveRequest) { r.CounsellorID = "c9" }, utils.ErrNotFound},
		{"no such slot", client("u1"), func(r *models.ReserveRequest) { r.SessionTime = "12:00" }, utils.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			req := validRequest()
			if tt.mutate != nil {
				tt.mutate(&req)
			}
			_, err := f.coord.Reserve(context.Background(), tt.identity, req)
			require.Error(t, err)
			assert.True(t, utils.IsType(err, tt.want), "got %v", err)

			slot, _ := f.store.GetSlot(f.slot.ID)
			assert.False(t, slot.IsBooked)
		})
	}
}

func TestGatewayFailureRollsBack(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*fixture)
		want  utils.ErrorType
	}{
		{"rejected", func(f *fixture) { f.gateway.Err = utils.GatewayBadRequestError("bad", nil) }, utils.ErrGatewayBadRequest},
		{"unavailable", func(f *fixture) { f.gateway.Err = utils.GatewayServiceError("down", nil) }, utils.ErrGatewayService},
		{"timeout", func(f *fixture) {
			f.gateway.Delay = time.Second
			f.coord.GatewayTimeout = 10 * time.Millisecond
		}, utils.ErrGatewayService},
		{"below minimum", func(f *fixture) {
			f.store.PutCounsellor(models.Counsellor{ID: "c1", IsActive: true, IsApproved: true, SessionFeeMinor: 50})
		}, utils.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(f)

			_, err := f.coord.Reserve(context.Background(), client("u1"), validRequest())
			require.Error(t, err)
			assert.True(t, utils.IsType(err, tt.want), "got %v", err)

			slot, _ := f.store.GetSlot(f.slot.ID)
			assert.False(t, slot.IsBooked)
			assert.Empty(t, f.holds.refs)

			// The slot is immediately bookable again.
			f.gateway.Err, f.gateway.Delay = nil, 0
			f.coord.GatewayTimeout = time.Second
			f.store.PutCounsellor(models.Counsellor{ID: "c1", IsActive: true, IsApproved: true, SessionFeeMinor: 150000})
			_, err = f.coord.Reserve(context.Background(), client("u2"), validRequest())
			assert.NoError(t, err)
		})
	}
}
