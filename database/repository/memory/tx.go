package memory

import (
	"context"
	"fmt"
	"time"

	accountRepo "mindbridge/database/repository/account"
	schedulerRepo "mindbridge/database/repository/scheduler"
	timeslotRepo "mindbridge/database/repository/timeslot"

	"mindbridge/database"
	"mindbridge/models"
)

var (
	_ timeslotRepo.TimeSlotRepository   = (*Store)(nil)
	_ accountRepo.AccountRepository     = (*Store)(nil)
	_ schedulerRepo.SchedulerRepository = (*Store)(nil)
	_ schedulerRepo.SchedulerTx         = (*tx)(nil)
)

type clientDelta struct {
	sessions int
	last     time.Time
}

type counsellorDelta struct {
	sessions int
	clients  int
}

// tx stages writes over the committed maps. Reads see staged documents first.
type tx struct {
	s    *Store
	held []string
	has  map[string]bool

	slots           map[string]models.AvailabilitySlot
	bookings        map[string]models.Booking
	payments        map[string]models.Payment
	paymentRefs     map[string]string
	clientDeltas    map[string]*clientDelta
	counsellorDelta map[string]*counsellorDelta
}

// RunInTransaction runs fn with slot, payment and pair locks held until it
// returns. Staged writes are applied only when fn succeeds.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx schedulerRepo.SchedulerTx) error) error {
	t := &tx{
		s:               s,
		has:             make(map[string]bool),
		slots:           make(map[string]models.AvailabilitySlot),
		bookings:        make(map[string]models.Booking),
		payments:        make(map[string]models.Payment),
		paymentRefs:     make(map[string]string),
		clientDeltas:    make(map[string]*clientDelta),
		counsellorDelta: make(map[string]*counsellorDelta),
	}
	defer t.releaseAll()

	if err := fn(ctx, t); err != nil {
		return err
	}
	t.commit()
	return nil
}

func (t *tx) lock(ctx context.Context, key string) error {
	if t.has[key] {
		return nil
	}
	if err := t.s.locks.acquire(ctx, key); err != nil {
		return err
	}
	t.has[key] = true
	t.held = append(t.held, key)
	return nil
}

func (t *tx) releaseAll() {
	for i := len(t.held) - 1; i >= 0; i-- {
		t.s.locks.release(t.held[i])
	}
	t.held = nil
}

func (t *tx) commit() {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, slot := range t.slots {
		if _, ok := s.slots[id]; ok {
			s.slots[id] = slot
		}
	}
	for ref, b := range t.bookings {
		s.bookings[ref] = b
	}
	for id, p := range t.payments {
		s.payments[id] = p
	}
	for ref, id := range t.paymentRefs {
		s.paymentRefs[ref] = id
	}
	now := time.Now()
	for id, d := range t.clientDeltas {
		c := s.clients[id]
		c.TotalSessions += d.sessions
		last := d.last
		c.LastSessionDate = &last
		c.UpdatedAt = now
		s.clients[id] = c
	}
	for id, d := range t.counsellorDelta {
		c := s.counsellors[id]
		c.TotalSessions += d.sessions
		c.TotalClients += d.clients
		c.UpdatedAt = now
		s.counsellors[id] = c
	}
}

func (t *tx) slot(id string) (models.AvailabilitySlot, bool) {
	if slot, ok := t.slots[id]; ok {
		return slot, true
	}
	return t.s.GetSlot(id)
}

func (t *tx) booking(ref string) (models.Booking, bool) {
	if b, ok := t.bookings[ref]; ok {
		return b, true
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	b, ok := t.s.bookings[ref]
	return b, ok
}

func (t *tx) payment(id string) (models.Payment, bool) {
	if p, ok := t.payments[id]; ok {
		return p, true
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	p, ok := t.s.payments[id]
	return p, ok
}

func (t *tx) paymentIDFor(ref string) (string, bool) {
	if id, ok := t.paymentRefs[ref]; ok {
		return id, true
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	id, ok := t.s.paymentRefs[ref]
	return id, ok
}

// eachBooking visits the staged view of every booking.
func (t *tx) eachBooking(visit func(models.Booking) bool) {
	for _, b := range t.bookings {
		if !visit(b) {
			return
		}
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	for ref, b := range t.s.bookings {
		if _, staged := t.bookings[ref]; staged {
			continue
		}
		if !visit(b) {
			return
		}
	}
}

func (t *tx) LockSlot(ctx context.Context, key models.SlotKey) (*models.AvailabilitySlot, error) {
	t.s.mu.RLock()
	id, ok := t.s.slotKeys[key]
	t.s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("lock slot %s %s: %w", key.Date, key.StartTime, database.ErrNotFound)
	}
	return t.LockSlotByID(ctx, id)
}

func (t *tx) LockSlotByID(ctx context.Context, slotID string) (*models.AvailabilitySlot, error) {
	if err := t.lock(ctx, slotLockKey(slotID)); err != nil {
		return nil, fmt.Errorf("lock slot %s: %w", slotID, err)
	}
	slot, ok := t.slot(slotID)
	if !ok {
		return nil, fmt.Errorf("lock slot %s: %w", slotID, database.ErrNotFound)
	}
	return &slot, nil
}

func (t *tx) SetSlotBooked(_ context.Context, slotID string, booked bool) error {
	slot, ok := t.slot(slotID)
	if !ok {
		return fmt.Errorf("slot %s: %w", slotID, database.ErrNotFound)
	}
	slot.IsBooked = booked
	slot.UpdatedAt = time.Now()
	t.slots[slotID] = slot
	return nil
}

func (t *tx) InsertBooking(_ context.Context, booking *models.Booking) error {
	if _, exists := t.booking(booking.Reference); exists {
		return fmt.Errorf("booking %s: %w", booking.Reference, database.ErrDuplicate)
	}
	if booking.SlotID != "" {
		if holder, _ := t.SlotHolder(context.Background(), booking.SlotID); holder != "" {
			return fmt.Errorf("slot %s held by %s: %w", booking.SlotID, holder, database.ErrDuplicate)
		}
	}
	t.bookings[booking.Reference] = *booking
	return nil
}

func (t *tx) UpdateBooking(_ context.Context, reference string, upd models.BookingUpdate) error {
	b, ok := t.booking(reference)
	if !ok {
		return fmt.Errorf("booking %s: %w", reference, database.ErrNotFound)
	}
	if upd.Status != nil {
		b.Status = *upd.Status
	}
	if upd.PaymentStatus != nil {
		b.PaymentStatus = *upd.PaymentStatus
	}
	if upd.SlotID != nil {
		b.SlotID = *upd.SlotID
	}
	if upd.DetachSlot {
		b.SlotID = ""
	}
	if upd.CancellationReason != nil {
		b.CancellationReason = *upd.CancellationReason
	}
	if upd.ConfirmedAt != nil {
		at := *upd.ConfirmedAt
		b.ConfirmedAt = &at
	}
	if upd.CancelledAt != nil {
		at := *upd.CancelledAt
		b.CancelledAt = &at
	}
	b.UpdatedAt = time.Now()
	t.bookings[reference] = b
	return nil
}

func (t *tx) SlotHolder(_ context.Context, slotID string) (string, error) {
	holder := ""
	t.eachBooking(func(b models.Booking) bool {
		if b.SlotID == slotID {
			holder = b.Reference
			return false
		}
		return true
	})
	return holder, nil
}

func (t *tx) InsertPayment(_ context.Context, payment *models.Payment) error {
	if _, exists := t.payment(payment.PaymentID); exists {
		return fmt.Errorf("payment %s: %w", payment.PaymentID, database.ErrDuplicate)
	}
	if _, exists := t.paymentIDFor(payment.BookingReference); exists {
		return fmt.Errorf("payment for booking %s: %w", payment.BookingReference, database.ErrDuplicate)
	}
	t.payments[payment.PaymentID] = *payment
	t.paymentRefs[payment.BookingReference] = payment.PaymentID
	return nil
}

func (t *tx) updatePayment(paymentID string, mutate func(*models.Payment)) error {
	p, ok := t.payment(paymentID)
	if !ok {
		return fmt.Errorf("payment %s: %w", paymentID, database.ErrNotFound)
	}
	mutate(&p)
	p.UpdatedAt = time.Now()
	t.payments[paymentID] = p
	return nil
}

func (t *tx) SetPaymentOrder(_ context.Context, paymentID, orderID string) error {
	return t.updatePayment(paymentID, func(p *models.Payment) {
		p.GatewayOrderID = orderID
	})
}

func (t *tx) LockPayment(ctx context.Context, bookingReference string) (*models.Payment, *models.Booking, error) {
	if err := t.lock(ctx, paymentLockKey(bookingReference)); err != nil {
		return nil, nil, fmt.Errorf("lock payment for %s: %w", bookingReference, err)
	}
	id, ok := t.paymentIDFor(bookingReference)
	if !ok {
		return nil, nil, fmt.Errorf("lock payment for %s: %w", bookingReference, database.ErrNotFound)
	}
	p, _ := t.payment(id)
	b, ok := t.booking(bookingReference)
	if !ok {
		return nil, nil, fmt.Errorf("booking %s: %w", bookingReference, database.ErrNotFound)
	}
	return &p, &b, nil
}

func (t *tx) MarkPaymentSuccess(_ context.Context, paymentID string, success models.PaymentSuccess) error {
	return t.updatePayment(paymentID, func(p *models.Payment) {
		paidAt := success.PaidAt
		p.Status = models.PaymentSucceeded
		p.GatewayPaymentID = success.GatewayPaymentID
		p.GatewaySignature = success.Signature
		p.GatewayPayload = success.Payload
		p.PaidAt = &paidAt
		p.ErrorMessage = ""
	})
}

func (t *tx) MarkPaymentFailed(_ context.Context, paymentID, message string) error {
	return t.updatePayment(paymentID, func(p *models.Payment) {
		p.Status = models.PaymentFailed
		p.ErrorMessage = message
	})
}

func (t *tx) HasOtherPaidBooking(ctx context.Context, clientID, counsellorID, excludeReference string) (bool, error) {
	if err := t.lock(ctx, pairLockKey(clientID, counsellorID)); err != nil {
		return false, fmt.Errorf("lock client pair: %w", err)
	}
	found := false
	t.eachBooking(func(b models.Booking) bool {
		if b.ClientID == clientID && b.CounsellorID == counsellorID &&
			b.PaymentStatus == models.PaymentStatusPaid && b.Status != models.BookingCancelled &&
			b.Reference != excludeReference {
			found = true
			return false
		}
		return true
	})
	return found, nil
}

func (t *tx) IncClientSessions(ctx context.Context, clientID string, lastSession time.Time) error {
	if _, err := t.s.GetClient(ctx, clientID); err != nil {
		return err
	}
	d, ok := t.clientDeltas[clientID]
	if !ok {
		d = &clientDelta{}
		t.clientDeltas[clientID] = d
	}
	d.sessions++
	d.last = lastSession
	return nil
}

func (t *tx) IncCounsellorCounters(ctx context.Context, counsellorID string, sessions, clients int) error {
	if _, err := t.s.GetCounsellor(ctx, counsellorID); err != nil {
		return err
	}
	d, ok := t.counsellorDelta[counsellorID]
	if !ok {
		d = &counsellorDelta{}
		t.counsellorDelta[counsellorID] = d
	}
	d.sessions += sessions
	d.clients += clients
	return nil
}
