package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"mindbridge/database"
	schedulerRepo "mindbridge/database/repository/scheduler"
	"mindbridge/models"
	"mindbridge/services/payment"
	"mindbridge/utils"
)

const fallbackSessionDuration = 50

// Reserve locks the requested slot, records a pending booking and its
// payment, and opens a gateway order, all in one transaction. Any failure
// leaves the slot free and nothing persisted.
func (c *DefaultReservationCoordinator) Reserve(ctx context.Context, identity models.Identity, req models.ReserveRequest) (*models.Reservation, error) {
	if !identity.IsClient() {
		return nil, utils.ForbiddenError("Only clients can book sessions.")
	}
	client, err := c.Accounts.GetClient(ctx, identity.UserID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, utils.NotFoundError("Client profile not found.")
	}
	if err != nil {
		return nil, utils.InternalError("Failed to load client profile.", err)
	}

	date, clock, err := c.validateSchedule(req)
	if err != nil {
		return nil, err
	}

	counsellor, err := c.Accounts.GetCounsellor(ctx, req.CounsellorID)
	if errors.Is(err, database.ErrNotFound) || (err == nil && !counsellor.Bookable()) {
		return nil, utils.NotFoundError("Counsellor not found or inactive.")
	}
	if err != nil {
		return nil, utils.InternalError("Failed to load counsellor.", err)
	}

	res := &models.Reservation{
		GatewayKey: c.Gateway.PublicKey(),
		Client:     models.ClientContact{Name: client.Name, Email: client.Email, Phone: client.Phone},
	}

	err = c.Scheduler.RunInTransaction(ctx, func(ctx context.Context, tx schedulerRepo.SchedulerTx) error {
		return c.reserveLocked(ctx, tx, res, client, counsellor, req, date, clock)
	})
	if err != nil {
		err = translateTxError(err)
		c.Logger.Info("Reservation rejected",
			zap.String("client", client.ID),
			zap.String("counsellor", counsellor.ID),
			zap.String("date", date),
			zap.String("time", clock),
			zap.Error(err))
		return nil, err
	}

	c.Logger.Info("Slot reserved",
		zap.String("booking", res.Booking.Reference),
		zap.String("order", res.Order.ID),
		zap.Int64("amount", res.Order.Amount))

	if c.Holds != nil {
		if err := c.Holds.ScheduleHoldExpiry(ctx, res.Booking.Reference); err != nil {
			c.Logger.Error("Failed to schedule checkout hold expiry",
				zap.String("booking", res.Booking.Reference), zap.Error(err))
		}
	}
	return res, nil
}

func (c *DefaultReservationCoordinator) validateSchedule(req models.ReserveRequest) (string, string, error) {
	invalid := utils.ValidationError("Please select a valid date and time for your session.")
	if strings.TrimSpace(req.CounsellorID) == "" {
		return "", "", invalid
	}
	day, err := utils.ParseDate(req.SessionDate)
	if err != nil {
		return "", "", invalid
	}
	clock, err := utils.ParseClock(req.SessionTime)
	if err != nil {
		return "", "", invalid
	}
	date := day.Format(utils.DateLayout)
	minDate, _ := utils.AddDays(utils.Today(c.now()), c.LeadDays)
	if date < minDate {
		return "", "", utils.ValidationError(fmt.Sprintf("Appointments must be booked at least %d days in advance.", c.LeadDays))
	}
	return date, clock, nil
}

func (c *DefaultReservationCoordinator) reserveLocked(
	ctx context.Context,
	tx schedulerRepo.SchedulerTx,
	res *models.Reservation,
	client *models.Client,
	counsellor *models.Counsellor,
	req models.ReserveRequest,
	date, clock string,
) error {
	// Step 1: lock the slot.
	slot, err := tx.LockSlot(ctx, models.SlotKey{CounsellorID: counsellor.ID, Date: date, StartTime: clock})
	if errors.Is(err, database.ErrNotFound) {
		return utils.NotFoundError("This counsellor is not available at the selected time.")
	}
	if err != nil {
		return err
	}

	// Step 2: double-booking guard, only meaningful under the lock.
	if slot.IsBooked {
		return utils.ConflictError(slotTakenMessage)
	}

	// Step 3: booking with the fee snapshot, and its payment.
	now := c.now()
	duration := req.SessionDuration
	if slot.DurationMinutes > 0 {
		duration = slot.DurationMinutes
	}
	if duration <= 0 {
		duration = fallbackSessionDuration
	}
	booking := models.Booking{
		Reference:       utils.NewBookingReference(),
		ClientID:        client.ID,
		CounsellorID:    counsellor.ID,
		SlotID:          slot.ID,
		SessionDate:     date,
		SessionTime:     clock,
		SessionDuration: duration,
		SessionFeeMinor: counsellor.SessionFeeMinor,
		Currency:        c.Currency,
		GoogleMeetLink:  counsellor.GoogleMeetLink,
		Status:          models.BookingPending,
		PaymentStatus:   models.PaymentStatusPending,
		ClientNotes:     strings.TrimSpace(req.ClientNotes),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	pay := models.Payment{
		PaymentID:        utils.NewPaymentID(),
		BookingReference: booking.Reference,
		AmountMinor:      booking.SessionFeeMinor,
		Currency:         c.Currency,
		Method:           models.PaymentMethodGateway,
		Status:           models.PaymentInitiated,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := tx.InsertBooking(ctx, &booking); err != nil {
		return err
	}
	if err := tx.InsertPayment(ctx, &pay); err != nil {
		return err
	}

	// Step 4
	if err := tx.SetSlotBooked(ctx, slot.ID, true); err != nil {
		return err
	}

	// Step 5: remote order, bounded so a slow gateway cannot pin the lock.
	if pay.AmountMinor < payment.MinimumAmountMinor {
		return utils.ValidationError(fmt.Sprintf("Minimum payment amount is %s.", models.FormatMinor(payment.MinimumAmountMinor)))
	}
	gctx, cancel := context.WithTimeout(ctx, c.gatewayTimeout())
	defer cancel()
	order, err := c.Gateway.CreateOrder(gctx, payment.OrderRequest{
		AmountMinor: pay.AmountMinor,
		Currency:    c.Currency,
		Receipt:     booking.Reference,
		Metadata: map[string]string{
			"booking_reference": booking.Reference,
			"client":            client.Name,
			"counsellor":        counsellor.Name,
		},
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !utils.IsType(err, utils.ErrGatewayService) {
			return utils.GatewayServiceError("Payment service timed out. Please try again.", err)
		}
		return err
	}

	// Step 6
	if err := tx.SetPaymentOrder(ctx, pay.PaymentID, order.ID); err != nil {
		return err
	}
	pay.GatewayOrderID = order.ID

	res.Booking = booking
	res.Payment = pay
	res.Order = *order
	res.Summary = models.BookingSummary{
		Reference:   booking.Reference,
		SessionDate: booking.SessionDate,
		SessionTime: booking.SessionTime,
		SessionFee:  booking.SessionFee(),
	}
	return nil
}

func (c *DefaultReservationCoordinator) gatewayTimeout() time.Duration {
	if c.GatewayTimeout > 0 {
		return c.GatewayTimeout
	}
	return 10 * time.Second
}
