package reconciliation

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"mindbridge/database"
	schedulerRepo "mindbridge/database/repository/scheduler"
	"mindbridge/models"
	"mindbridge/utils"
)

const (
	defaultFailureMessage = "Payment failed."
	expiredMessage        = "Checkout expired before payment completed."
)

// Fail records a failed checkout and returns the slot to the pool. A nil
// identity marks a trusted caller (webhook, worker). Failures reported
// after a payment succeeded are ignored.
func (e *DefaultReconciliationEngine) Fail(ctx context.Context, identity *models.Identity, req models.PaymentFailedRequest) error {
	if req.BookingReference == "" {
		return utils.ValidationError("Missing booking reference.")
	}
	msg := strings.TrimSpace(req.Error.Description)
	if msg == "" {
		msg = defaultFailureMessage
	}
	return e.fail(ctx, identity, req.BookingReference, msg, false, gatewayFields(req.Error)...)
}

// gatewayFields keeps the checkout widget's error details for support follow-up.
func gatewayFields(ge models.GatewayError) []zap.Field {
	var fields []zap.Field
	for _, f := range []struct{ key, val string }{
		{"code", ge.Code},
		{"source", ge.Source},
		{"step", ge.Step},
		{"gateway_reason", ge.Reason},
	} {
		if f.val != "" {
			fields = append(fields, zap.String(f.key, f.val))
		}
	}
	return fields
}

// Expire fails a checkout that is still initiated once its hold has lapsed.
func (e *DefaultReconciliationEngine) Expire(ctx context.Context, bookingReference string) error {
	err := e.fail(ctx, nil, bookingReference, expiredMessage, true)
	if utils.IsType(err, utils.ErrNotFound) {
		e.Logger.Warn("Hold expired for unknown booking", zap.String("booking", bookingReference))
		return nil
	}
	return err
}

func (e *DefaultReconciliationEngine) fail(ctx context.Context, identity *models.Identity, ref, msg string, onlyInitiated bool, details ...zap.Field) error {
	var (
		skipped  bool
		released string
	)
	err := e.Scheduler.RunInTransaction(ctx, func(ctx context.Context, tx schedulerRepo.SchedulerTx) error {
		pay, booking, err := tx.LockPayment(ctx, ref)
		if err != nil {
			return err
		}
		if identity != nil && !identity.IsAdmin() && booking.ClientID != identity.UserID {
			return utils.NotFoundError(paymentNotFoundMessage)
		}
		if pay.Status == models.PaymentSucceeded || booking.PaymentStatus == models.PaymentStatusPaid {
			skipped = true
			return nil
		}
		if onlyInitiated && pay.Status != models.PaymentInitiated {
			skipped = true
			return nil
		}

		if err := tx.MarkPaymentFailed(ctx, pay.PaymentID, msg); err != nil {
			return err
		}
		update := models.BookingUpdate{PaymentStatus: ptr(models.PaymentStatusFailed)}
		if booking.SlotID != "" {
			if _, err := tx.LockSlotByID(ctx, booking.SlotID); err != nil && !errors.Is(err, database.ErrNotFound) {
				return err
			} else if err == nil {
				if err := tx.SetSlotBooked(ctx, booking.SlotID, false); err != nil {
					return err
				}
			}
			update.DetachSlot = true
			released = booking.SlotID
		}
		return tx.UpdateBooking(ctx, ref, update)
	})
	if err != nil {
		return translateTxError(err)
	}

	fields := append([]zap.Field{zap.String("booking", ref), zap.String("reason", msg)}, details...)
	if skipped {
		e.Logger.Info("Payment failure ignored", fields...)
		return nil
	}
	e.Logger.Info("Payment failed; slot released", append(fields, zap.String("slot", released))...)
	return nil
}
