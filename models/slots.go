package models

import "time"

// AvailabilitySlot is a single bookable (counsellor, date, start time) unit of capacity.
type AvailabilitySlot struct {
	ID              string    `bson:"id" json:"id"`
	CounsellorID    string    `bson:"counsellorId" json:"counsellor_id"`
	Date            string    `bson:"date" json:"date"`            // "2025-12-01"
	StartTime       string    `bson:"startTime" json:"start_time"` // "10:00"
	EndTime         string    `bson:"endTime" json:"end_time"`     // "10:45"
	DurationMinutes int       `bson:"durationMinutes" json:"duration_minutes"`
	IsBooked        bool      `bson:"isBooked" json:"is_booked"`
	LockOwner       string    `bson:"lockOwner,omitempty" json:"-"`
	LockedAt        time.Time `bson:"lockedAt,omitempty" json:"-"`
	CreatedAt       time.Time `bson:"createdAt" json:"-"`
	UpdatedAt       time.Time `bson:"updatedAt" json:"-"`
}

// SlotKey identifies a slot by its natural key.
type SlotKey struct {
	CounsellorID string
	Date         string
	StartTime    string
}

func (s AvailabilitySlot) Key() SlotKey {
	return SlotKey{CounsellorID: s.CounsellorID, Date: s.Date, StartTime: s.StartTime}
}

// DesiredSlot is one entry of a counsellor's publish payload.
type DesiredSlot struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time,omitempty"`
}

// PublishAvailabilityRequest is the counsellor-facing availability payload.
type PublishAvailabilityRequest struct {
	SessionDuration int           `json:"session_duration"`
	BreakDuration   int           `json:"break_duration"`
	ProfileVisible  *bool         `json:"profile_visible"`
	Slots           []DesiredSlot `json:"slots"`
	RangeStart      string        `json:"range_start"`
	RangeEnd        string        `json:"range_end"`
}

// SlotView is the serialized form of a slot returned to callers.
type SlotView struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	IsBooked  bool   `json:"is_booked"`
}

func NewSlotView(s AvailabilitySlot) SlotView {
	return SlotView{
		ID:        s.ID,
		Date:      s.Date,
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		IsBooked:  s.IsBooked,
	}
}

// AvailabilityResponse is returned by both the publish and the query operations.
type AvailabilityResponse struct {
	Slots           []SlotView `json:"slots"`
	SessionDuration int        `json:"session_duration"`
	BreakDuration   int        `json:"break_duration"`
	ProfileVisible  bool       `json:"profile_visible"`
	StartTime       string     `json:"start_time"`
	EndTime         string     `json:"end_time"`
}

// PublicAvailabilityResponse lists a counsellor's open slots for one date.
type PublicAvailabilityResponse struct {
	Slots           []SlotView `json:"slots"`
	SessionDuration int        `json:"session_duration"`
	MinBookingDate  string     `json:"min_booking_date"`
}
