package schedulerRepo

import (
	"context"
	"time"

	"mindbridge/models"
)

// SchedulerRepository owns the booking, payment and slot writes that must
// happen atomically. All mutations go through RunInTransaction.
type SchedulerRepository interface {
	// RunInTransaction executes fn inside one storage transaction. Locks taken
	// through the SchedulerTx are held until fn returns; a non-nil error rolls
	// every write back.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx SchedulerTx) error) error
	GetBooking(ctx context.Context, reference string) (*models.Booking, error)
	GetPaymentByBooking(ctx context.Context, reference string) (*models.Payment, error)
}

// SchedulerTx is the transactional view handed to RunInTransaction callbacks.
type SchedulerTx interface {
	// LockSlot acquires the exclusive lock on the slot identified by key.
	// Returns database.ErrNotFound when absent and database.ErrLockConflict
	// when a concurrent transaction holds it.
	LockSlot(ctx context.Context, key models.SlotKey) (*models.AvailabilitySlot, error)
	LockSlotByID(ctx context.Context, slotID string) (*models.AvailabilitySlot, error)
	SetSlotBooked(ctx context.Context, slotID string, booked bool) error

	InsertBooking(ctx context.Context, booking *models.Booking) error
	UpdateBooking(ctx context.Context, reference string, update models.BookingUpdate) error
	// SlotHolder returns the reference of the booking currently attached to slotID, or "".
	SlotHolder(ctx context.Context, slotID string) (string, error)

	InsertPayment(ctx context.Context, payment *models.Payment) error
	SetPaymentOrder(ctx context.Context, paymentID, orderID string) error
	// LockPayment locks the payment of a booking and returns both documents.
	LockPayment(ctx context.Context, bookingReference string) (*models.Payment, *models.Booking, error)
	MarkPaymentSuccess(ctx context.Context, paymentID string, success models.PaymentSuccess) error
	MarkPaymentFailed(ctx context.Context, paymentID, message string) error

	// HasOtherPaidBooking reports whether the pair has a paid, non-cancelled
	// booking other than excludeReference. It serializes concurrent callers for the same pair.
	HasOtherPaidBooking(ctx context.Context, clientID, counsellorID, excludeReference string) (bool, error)
	IncClientSessions(ctx context.Context, clientID string, lastSession time.Time) error
	IncCounsellorCounters(ctx context.Context, counsellorID string, sessions, clients int) error
}
