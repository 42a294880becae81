package reconciliation

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"mindbridge/database"
	schedulerRepo "mindbridge/database/repository/scheduler"
	"mindbridge/models"
	"mindbridge/utils"
)

type outcome int

const (
	outcomeConfirmed outcome = iota
	outcomeReplay
	outcomeRejected
	outcomeReassigned
)

// Confirm applies a client-reported checkout completion. The signature is the
// trust boundary: an invalid one marks the payment failed but keeps the slot.
func (e *DefaultReconciliationEngine) Confirm(ctx context.Context, identity models.Identity, req models.VerifyPaymentRequest, payload map[string]any) (*models.Booking, error) {
	if !identity.IsClient() {
		return nil, utils.ForbiddenError("Only clients can verify payments.")
	}
	if req.BookingReference == "" || req.OrderID == "" || req.PaymentID == "" || req.Signature == "" {
		return nil, utils.ValidationError("Incomplete payment details.")
	}

	var (
		result *models.Booking
		state  outcome
		sigErr error
	)
	err := e.Scheduler.RunInTransaction(ctx, func(ctx context.Context, tx schedulerRepo.SchedulerTx) error {
		pay, booking, err := tx.LockPayment(ctx, req.BookingReference)
		if err != nil {
			return err
		}
		if booking.ClientID != identity.UserID {
			return utils.NotFoundError(paymentNotFoundMessage)
		}

		sigErr = e.verify(pay, req)
		if pay.Status == models.PaymentSucceeded {
			if sigErr != nil {
				state = outcomeRejected
				return nil
			}
			result, state = booking, settled(booking)
			return nil
		}

		if sigErr != nil {
			state = outcomeRejected
			if err := tx.MarkPaymentFailed(ctx, pay.PaymentID, "Signature verification failed: "+cause(sigErr)); err != nil {
				return err
			}
			return tx.UpdateBooking(ctx, booking.Reference, models.BookingUpdate{PaymentStatus: ptr(models.PaymentStatusFailed)})
		}

		result, state, err = e.applySuccess(ctx, tx, pay, booking, models.PaymentSuccess{
			GatewayPaymentID: req.PaymentID,
			Signature:        req.Signature,
			Payload:          payload,
			PaidAt:           e.now(),
		})
		return err
	})
	if err != nil {
		return nil, translateTxError(err)
	}
	return e.finish(ctx, req.BookingReference, result, state, sigErr)
}

// ConfirmFromGateway applies a success already authenticated by the caller
// (a signed webhook or an administrator).
func (e *DefaultReconciliationEngine) ConfirmFromGateway(ctx context.Context, bookingReference, gatewayPaymentID string, payload map[string]any) (*models.Booking, error) {
	var (
		result *models.Booking
		state  outcome
	)
	err := e.Scheduler.RunInTransaction(ctx, func(ctx context.Context, tx schedulerRepo.SchedulerTx) error {
		pay, booking, err := tx.LockPayment(ctx, bookingReference)
		if err != nil {
			return err
		}
		if pay.Status == models.PaymentSucceeded {
			result, state = booking, settled(booking)
			return nil
		}
		result, state, err = e.applySuccess(ctx, tx, pay, booking, models.PaymentSuccess{
			GatewayPaymentID: gatewayPaymentID,
			Payload:          payload,
			PaidAt:           e.now(),
		})
		return err
	})
	if err != nil {
		return nil, translateTxError(err)
	}
	return e.finish(ctx, bookingReference, result, state, nil)
}

// settled reports how an already-paid booking ended up: confirmed, or
// cancelled because its slot went to someone else.
func settled(booking *models.Booking) outcome {
	if booking.Status == models.BookingCancelled {
		return outcomeReassigned
	}
	return outcomeReplay
}

func (e *DefaultReconciliationEngine) verify(pay *models.Payment, req models.VerifyPaymentRequest) error {
	if pay.GatewayOrderID == "" || pay.GatewayOrderID != req.OrderID {
		return utils.SignatureInvalidError(verificationFailed, fmt.Errorf("order id %q does not match payment order %q", req.OrderID, pay.GatewayOrderID))
	}
	return e.Gateway.VerifySignature(req.OrderID, req.PaymentID, req.Signature)
}

// applySuccess stamps the payment, confirms the booking and credits the
// counters. A booking whose slot was released by an earlier failure takes
// the slot back if it is still free.
func (e *DefaultReconciliationEngine) applySuccess(
	ctx context.Context,
	tx schedulerRepo.SchedulerTx,
	pay *models.Payment,
	booking *models.Booking,
	success models.PaymentSuccess,
) (*models.Booking, outcome, error) {
	now := e.now()

	if booking.SlotID == "" {
		slotID, free, err := e.reclaimSlot(ctx, tx, booking)
		if err != nil {
			return nil, 0, err
		}
		if !free {
			if err := tx.MarkPaymentSuccess(ctx, pay.PaymentID, success); err != nil {
				return nil, 0, err
			}
			update := models.BookingUpdate{
				Status:             ptr(models.BookingCancelled),
				PaymentStatus:      ptr(models.PaymentStatusPaid),
				CancellationReason: ptr(slotReassignedReason),
				CancelledAt:        &now,
			}
			if err := tx.UpdateBooking(ctx, booking.Reference, update); err != nil {
				return nil, 0, err
			}
			booking.Status, booking.PaymentStatus = models.BookingCancelled, models.PaymentStatusPaid
			booking.CancellationReason, booking.CancelledAt = slotReassignedReason, &now
			return booking, outcomeReassigned, nil
		}
		booking.SlotID = slotID
	}

	if err := tx.MarkPaymentSuccess(ctx, pay.PaymentID, success); err != nil {
		return nil, 0, err
	}
	update := models.BookingUpdate{
		Status:        ptr(models.BookingConfirmed),
		PaymentStatus: ptr(models.PaymentStatusPaid),
		SlotID:        ptr(booking.SlotID),
		ConfirmedAt:   &now,
	}
	if err := tx.UpdateBooking(ctx, booking.Reference, update); err != nil {
		return nil, 0, err
	}

	sessionStart, err := booking.SessionStart(e.location())
	if err != nil {
		return nil, 0, fmt.Errorf("booking %s has unparseable session time: %w", booking.Reference, err)
	}
	if err := tx.IncClientSessions(ctx, booking.ClientID, sessionStart); err != nil {
		return nil, 0, err
	}
	returning, err := tx.HasOtherPaidBooking(ctx, booking.ClientID, booking.CounsellorID, booking.Reference)
	if err != nil {
		return nil, 0, err
	}
	newClients := 1
	if returning {
		newClients = 0
	}
	if err := tx.IncCounsellorCounters(ctx, booking.CounsellorID, 1, newClients); err != nil {
		return nil, 0, err
	}

	booking.Status, booking.PaymentStatus, booking.ConfirmedAt = models.BookingConfirmed, models.PaymentStatusPaid, &now
	return booking, outcomeConfirmed, nil
}

// reclaimSlot re-locks the booking's original slot. It reports free=false
// when the slot is gone or held by another booking.
func (e *DefaultReconciliationEngine) reclaimSlot(ctx context.Context, tx schedulerRepo.SchedulerTx, booking *models.Booking) (string, bool, error) {
	key := models.SlotKey{CounsellorID: booking.CounsellorID, Date: booking.SessionDate, StartTime: booking.SessionTime}
	slot, err := tx.LockSlot(ctx, key)
	if errors.Is(err, database.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	holder, err := tx.SlotHolder(ctx, slot.ID)
	if err != nil {
		return "", false, err
	}
	if slot.IsBooked || holder != "" {
		return "", false, nil
	}
	if err := tx.SetSlotBooked(ctx, slot.ID, true); err != nil {
		return "", false, err
	}
	return slot.ID, true, nil
}

func (e *DefaultReconciliationEngine) finish(ctx context.Context, ref string, booking *models.Booking, state outcome, sigErr error) (*models.Booking, error) {
	switch state {
	case outcomeRejected:
		e.Logger.Warn("Payment signature rejected",
			zap.String("booking", ref),
			zap.Bool("audit", true),
			zap.Error(sigErr))
		return nil, sigErr
	case outcomeReplay:
		e.Logger.Info("Payment already confirmed; replay ignored", zap.String("booking", ref))
		return booking, nil
	case outcomeReassigned:
		e.Logger.Error("Paid booking lost its slot; refund required",
			zap.String("booking", ref),
			zap.Bool("audit", true))
		return nil, &utils.AppError{
			Type:    utils.ErrConflict,
			Message: "This slot was released before your payment completed. Your payment will be refunded.",
			Err:     ErrSlotReassigned,
		}
	}

	e.Logger.Info("Payment confirmed", zap.String("booking", ref))
	if e.Notifier != nil {
		err := e.Notifier.BookingConfirmed(ctx, models.BookingConfirmedPayload{
			BookingReference: booking.Reference,
			ClientID:         booking.ClientID,
			CounsellorID:     booking.CounsellorID,
			SessionDate:      booking.SessionDate,
			SessionTime:      booking.SessionTime,
		})
		if err != nil {
			e.Logger.Error("Failed to queue confirmation notification", zap.String("booking", ref), zap.Error(err))
		}
	}
	return booking, nil
}
