package booking

import (
	"context"
	"time"

	accountRepo "mindbridge/database/repository/account"
	schedulerRepo "mindbridge/database/repository/scheduler"
	"mindbridge/models"
	"mindbridge/services/payment"

	"go.uber.org/zap"
)

// ReservationService turns a client's slot request into a held booking with a gateway order.
type ReservationService interface {
	Reserve(ctx context.Context, identity models.Identity, req models.ReserveRequest) (*models.Reservation, error)
}

// HoldScheduler arranges for an unpaid reservation to be released later.
type HoldScheduler interface {
	ScheduleHoldExpiry(ctx context.Context, bookingReference string) error
}

// DefaultReservationCoordinator implements ReservationService.
type DefaultReservationCoordinator struct {
	Scheduler schedulerRepo.SchedulerRepository
	Accounts  accountRepo.AccountRepository
	Gateway   payment.Gateway
	Holds     HoldScheduler // optional
	Logger    *zap.Logger

	LeadDays       int
	Currency       string
	GatewayTimeout time.Duration
	Now            func() time.Time
}

func (c *DefaultReservationCoordinator) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}
