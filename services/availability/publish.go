package availability

import (
	"context"

	"go.uber.org/zap"

	"mindbridge/models"
	"mindbridge/utils"
)

type desired struct {
	date  string
	start string
	end   string
}

// Publish reconciles the counsellor's slots in the requested range against
// req.Slots. Entries with an unparseable date or start time, and entries
// dated before today, are dropped. Booked slots are never deleted.
func (r *Registry) Publish(ctx context.Context, identity models.Identity, req models.PublishAvailabilityRequest) (*models.AvailabilityResponse, error) {
	c, err := r.counsellorFor(ctx, identity)
	if err != nil {
		return nil, err
	}

	sessionDuration := firstPositive(req.SessionDuration, c.DefaultSessionDuration, DefaultSessionDuration)
	breakDuration := firstPositive(req.BreakDuration, c.DefaultBreakDuration, DefaultBreakDuration)
	profileVisible := req.ProfileVisible == nil || *req.ProfileVisible
	today := utils.Today(r.Now())

	rangeStart, rangeEnd := r.publishRange(req, today)
	wanted, order := desiredSlots(req.Slots, c.ID, sessionDuration, today)

	// Look up matches across the range and every wanted date.
	lookupFrom, lookupTo := rangeStart, rangeEnd
	for _, key := range order {
		if key.Date < lookupFrom {
			lookupFrom = key.Date
		}
		if key.Date > lookupTo {
			lookupTo = key.Date
		}
	}
	existing, err := r.slots.ListRange(ctx, c.ID, lookupFrom, lookupTo)
	if err != nil {
		return nil, utils.InternalError("Failed to load availability.", err)
	}
	existingByKey := make(map[models.SlotKey]models.AvailabilitySlot, len(existing))
	for _, s := range existing {
		existingByKey[s.Key()] = s
	}

	var toCreate []models.AvailabilitySlot
	updated := 0
	for _, key := range order {
		d := wanted[key]
		if cur, ok := existingByKey[key]; ok {
			if cur.EndTime != d.end || cur.DurationMinutes != sessionDuration {
				if err := r.slots.UpdateShape(ctx, cur.ID, d.end, sessionDuration); err != nil {
					return nil, utils.InternalError("Failed to update availability.", err)
				}
				updated++
			}
			continue
		}
		toCreate = append(toCreate, models.AvailabilitySlot{
			CounsellorID:    c.ID,
			Date:            d.date,
			StartTime:       d.start,
			EndTime:         d.end,
			DurationMinutes: sessionDuration,
		})
	}
	if _, err := r.slots.CreateMany(ctx, toCreate); err != nil {
		return nil, utils.InternalError("Failed to create availability.", err)
	}

	var stale []string
	for key, cur := range existingByKey {
		if _, keep := wanted[key]; keep || cur.IsBooked {
			continue
		}
		if cur.Date >= rangeStart && cur.Date <= rangeEnd {
			stale = append(stale, cur.ID)
		}
	}
	deleted, err := r.slots.DeleteUnbooked(ctx, c.ID, stale)
	if err != nil {
		return nil, utils.InternalError("Failed to remove availability.", err)
	}

	update, err := r.visibility(ctx, c.ID, today, profileVisible)
	if err != nil {
		return nil, err
	}
	update.DefaultSessionDuration = sessionDuration
	update.DefaultBreakDuration = breakDuration
	if err := r.accounts.UpdateCounsellorAvailability(ctx, c.ID, update); err != nil {
		return nil, utils.InternalError("Failed to update counsellor availability.", err)
	}

	r.logger.Info("Availability published",
		zap.String("counsellor", c.ID),
		zap.String("from", rangeStart),
		zap.String("to", rangeEnd),
		zap.Int("created", len(toCreate)),
		zap.Int("updated", updated),
		zap.Int64("deleted", deleted))

	refreshed, err := r.slots.ListRange(ctx, c.ID, rangeStart, rangeEnd)
	if err != nil {
		return nil, utils.InternalError("Failed to load availability.", err)
	}
	c.DefaultSessionDuration = sessionDuration
	c.DefaultBreakDuration = breakDuration
	c.IsAvailable = update.IsAvailable
	if update.AvailableFrom != "" {
		c.AvailableFrom, c.AvailableTo = update.AvailableFrom, update.AvailableTo
	}
	return buildResponse(refreshed, *c), nil
}

// publishRange uses the explicit range when both ends parse, otherwise the
// span of the parseable incoming dates, otherwise a week from today.
func (r *Registry) publishRange(req models.PublishAvailabilityRequest, today string) (string, string) {
	start, end := validDateOrEmpty(req.RangeStart), validDateOrEmpty(req.RangeEnd)
	if start != "" && end != "" {
		return start, end
	}
	var lo, hi string
	for _, s := range req.Slots {
		d := validDateOrEmpty(s.Date)
		if d == "" {
			continue
		}
		if lo == "" || d < lo {
			lo = d
		}
		if hi == "" || d > hi {
			hi = d
		}
	}
	if lo != "" {
		return lo, hi
	}
	weekOut, _ := utils.AddDays(today, defaultPublishWindowDays)
	return today, weekOut
}

func desiredSlots(in []models.DesiredSlot, counsellorID string, sessionDuration int, today string) (map[models.SlotKey]desired, []models.SlotKey) {
	wanted := make(map[models.SlotKey]desired, len(in))
	var order []models.SlotKey
	for _, s := range in {
		date := validDateOrEmpty(s.Date)
		start, err := utils.ParseClock(s.StartTime)
		if date == "" || err != nil || date < today {
			continue
		}
		end, err := utils.ParseClock(s.EndTime)
		if err != nil {
			end, _ = utils.AddMinutes(start, sessionDuration)
		}
		key := models.SlotKey{CounsellorID: counsellorID, Date: date, StartTime: start}
		if _, seen := wanted[key]; !seen {
			order = append(order, key)
		}
		wanted[key] = desired{date: date, start: start, end: end}
	}
	return wanted, order
}

// visibility derives is_available and the displayed working hours from the
// counsellor's future slots.
func (r *Registry) visibility(ctx context.Context, counsellorID, today string, profileVisible bool) (models.CounsellorAvailabilityUpdate, error) {
	future, err := r.slots.ListRange(ctx, counsellorID, today, "")
	if err != nil {
		return models.CounsellorAvailabilityUpdate{}, utils.InternalError("Failed to load availability.", err)
	}
	hasOpen := false
	for _, s := range future {
		if !s.IsBooked {
			hasOpen = true
			break
		}
	}
	update := models.CounsellorAvailabilityUpdate{IsAvailable: profileVisible && hasOpen}
	if len(future) > 0 {
		update.AvailableFrom = future[0].StartTime
		update.AvailableTo = future[len(future)-1].EndTime
	}
	return update, nil
}
