package reconciliation

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"mindbridge/database"
	schedulerRepo "mindbridge/database/repository/scheduler"
	"mindbridge/models"
	"mindbridge/services/payment"
	"mindbridge/utils"
)

// ReconciliationService applies payment outcomes to booking, payment, slot
// and counter state. Every outcome path goes through it.
type ReconciliationService interface {
	Confirm(ctx context.Context, identity models.Identity, req models.VerifyPaymentRequest, payload map[string]any) (*models.Booking, error)
	ConfirmFromGateway(ctx context.Context, bookingReference, gatewayPaymentID string, payload map[string]any) (*models.Booking, error)
	Fail(ctx context.Context, identity *models.Identity, req models.PaymentFailedRequest) error
	Expire(ctx context.Context, bookingReference string) error
	Override(ctx context.Context, identity models.Identity, bookingReference string, req models.PaymentOverrideRequest) (*models.Booking, error)
}

// Notifier is told about bookings that just became confirmed.
type Notifier interface {
	BookingConfirmed(ctx context.Context, payload models.BookingConfirmedPayload) error
}

// DefaultReconciliationEngine implements ReconciliationService.
type DefaultReconciliationEngine struct {
	Scheduler schedulerRepo.SchedulerRepository
	Gateway   payment.Gateway
	Notifier  Notifier // optional
	Logger    *zap.Logger

	// Location interprets session dates and times; defaults to time.Local.
	Location *time.Location
	Now      func() time.Time
}

func (e *DefaultReconciliationEngine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *DefaultReconciliationEngine) location() *time.Location {
	if e.Location != nil {
		return e.Location
	}
	return time.Local
}

const (
	paymentNotFoundMessage = "Payment record not found."
	verificationFailed     = "Payment verification failed. Please contact support."
	slotReassignedReason   = "slot reassigned after payment failure; refund required"
)

// ErrSlotReassigned marks a success that arrived after the slot went to
// another booking. Redelivering it cannot change the outcome.
var ErrSlotReassigned = errors.New("slot reassigned after payment failure")

func translateTxError(err error) error {
	var appErr *utils.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, database.ErrNotFound):
		return utils.NotFoundError(paymentNotFoundMessage)
	case errors.Is(err, database.ErrLockConflict):
		return utils.ConflictError("This payment is already being processed. Please retry shortly.")
	default:
		return utils.InternalError("Unable to update payment. Please try again later.", err)
	}
}

// cause returns the underlying reason of an AppError, or its message.
func cause(err error) string {
	if inner := errors.Unwrap(err); inner != nil {
		return inner.Error()
	}
	return err.Error()
}

func ptr[T any](v T) *T { return &v }
