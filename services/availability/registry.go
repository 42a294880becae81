package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mindbridge/database"
	accountRepo "mindbridge/database/repository/account"
	timeslotRepo "mindbridge/database/repository/timeslot"
	"mindbridge/models"
	"mindbridge/utils"
)

const (
	DefaultSessionDuration = 45
	DefaultBreakDuration   = 5
	DefaultWorkdayStart    = "09:00"
	DefaultWorkdayEnd      = "18:00"

	defaultPublishWindowDays = 7
)

// AvailabilityService is the counsellor-facing and public availability API.
type AvailabilityService interface {
	Publish(ctx context.Context, identity models.Identity, req models.PublishAvailabilityRequest) (*models.AvailabilityResponse, error)
	Query(ctx context.Context, identity models.Identity, start, end string) (*models.AvailabilityResponse, error)
	PublicQuery(ctx context.Context, counsellorID, date string) (*models.PublicAvailabilityResponse, error)
}

var _ AvailabilityService = (*Registry)(nil)

// Registry owns the slots a counsellor has published as free.
type Registry struct {
	slots    timeslotRepo.TimeSlotRepository
	accounts accountRepo.AccountRepository
	leadDays int
	logger   *zap.Logger

	// Now is the clock used for "today"; replaced in tests.
	Now func() time.Time
}

func NewRegistry(slots timeslotRepo.TimeSlotRepository, accounts accountRepo.AccountRepository, leadDays int, logger *zap.Logger) *Registry {
	return &Registry{
		slots:    slots,
		accounts: accounts,
		leadDays: leadDays,
		logger:   logger,
		Now:      time.Now,
	}
}

func (r *Registry) counsellorFor(ctx context.Context, identity models.Identity) (*models.Counsellor, error) {
	if !identity.IsCounsellor() {
		return nil, utils.ForbiddenError("Only counsellors can manage availability.")
	}
	c, err := r.accounts.GetCounsellor(ctx, identity.UserID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, utils.NotFoundError("Counsellor profile not found.")
	}
	if err != nil {
		return nil, utils.InternalError("Failed to load counsellor profile.", err)
	}
	return c, nil
}

// Query returns the counsellor's own slots in [start, end] with the current
// defaults. Bounds that do not parse are ignored.
func (r *Registry) Query(ctx context.Context, identity models.Identity, start, end string) (*models.AvailabilityResponse, error) {
	c, err := r.counsellorFor(ctx, identity)
	if err != nil {
		return nil, err
	}
	slots, err := r.slots.ListRange(ctx, c.ID, validDateOrEmpty(start), validDateOrEmpty(end))
	if err != nil {
		return nil, utils.InternalError("Failed to load availability.", err)
	}
	return buildResponse(slots, *c), nil
}

// PublicQuery lists the open slots of a bookable counsellor on one date.
func (r *Registry) PublicQuery(ctx context.Context, counsellorID, date string) (*models.PublicAvailabilityResponse, error) {
	c, err := r.accounts.GetCounsellor(ctx, counsellorID)
	if errors.Is(err, database.ErrNotFound) || (err == nil && !c.Bookable()) {
		return nil, utils.NotFoundError("Counsellor not found or inactive.")
	}
	if err != nil {
		return nil, utils.InternalError("Failed to load counsellor.", err)
	}

	day, err := utils.ParseDate(date)
	if err != nil {
		return nil, utils.ValidationError("Please provide a valid date.")
	}
	minDate, _ := utils.AddDays(utils.Today(r.Now()), r.leadDays)
	selected := day.Format(utils.DateLayout)
	if selected < minDate {
		return nil, utils.ValidationError(fmt.Sprintf("Appointments must be booked at least %d days in advance.", r.leadDays))
	}

	slots, err := r.slots.ListOpenByDate(ctx, c.ID, selected)
	if err != nil {
		return nil, utils.InternalError("Failed to load availability.", err)
	}
	views := make([]models.SlotView, 0, len(slots))
	for _, s := range slots {
		views = append(views, models.NewSlotView(s))
	}
	return &models.PublicAvailabilityResponse{
		Slots:           views,
		SessionDuration: firstPositive(c.DefaultSessionDuration, DefaultSessionDuration),
		MinBookingDate:  minDate,
	}, nil
}

func buildResponse(slots []models.AvailabilitySlot, c models.Counsellor) *models.AvailabilityResponse {
	views := make([]models.SlotView, 0, len(slots))
	for _, s := range slots {
		views = append(views, models.NewSlotView(s))
	}
	return &models.AvailabilityResponse{
		Slots:           views,
		SessionDuration: firstPositive(c.DefaultSessionDuration, DefaultSessionDuration),
		BreakDuration:   firstPositive(c.DefaultBreakDuration, DefaultBreakDuration),
		ProfileVisible:  c.IsAvailable,
		StartTime:       firstNonEmpty(c.AvailableFrom, DefaultWorkdayStart),
		EndTime:         firstNonEmpty(c.AvailableTo, DefaultWorkdayEnd),
	}
}

func validDateOrEmpty(value string) string {
	t, err := utils.ParseDate(value)
	if err != nil {
		return ""
	}
	return t.Format(utils.DateLayout)
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
