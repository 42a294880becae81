package models

import "time"

const (
	RoleClient     = "client"
	RoleCounsellor = "counsellor"
	RoleAdmin      = "admin"
)

// Identity is the authenticated caller as asserted by the accounts service token.
type Identity struct {
	UserID     string `json:"user_id"`
	Role       string `json:"role"`
	IsActive   bool   `json:"is_active"`
	IsApproved bool   `json:"is_approved"`
}

func (i Identity) IsClient() bool     { return i.Role == RoleClient }
func (i Identity) IsCounsellor() bool { return i.Role == RoleCounsellor }
func (i Identity) IsAdmin() bool      { return i.Role == RoleAdmin }

// Counsellor is the slice of the counsellor profile the booking core reads and maintains.
type Counsellor struct {
	ID                     string    `bson:"id" json:"id"`
	Name                   string    `bson:"name" json:"name"`
	Email                  string    `bson:"email" json:"email"`
	IsActive               bool      `bson:"isActive" json:"is_active"`
	IsApproved             bool      `bson:"isApproved" json:"is_approved"`
	SessionFeeMinor        int64     `bson:"sessionFeeMinor" json:"session_fee_minor"`
	GoogleMeetLink         string    `bson:"googleMeetLink" json:"google_meet_link"`
	DefaultSessionDuration int       `bson:"defaultSessionDuration" json:"default_session_duration"`
	DefaultBreakDuration   int       `bson:"defaultBreakDuration" json:"default_break_duration"`
	IsAvailable            bool      `bson:"isAvailable" json:"is_available"`
	AvailableFrom          string    `bson:"availableFrom,omitempty" json:"available_from,omitempty"`
	AvailableTo            string    `bson:"availableTo,omitempty" json:"available_to,omitempty"`
	TotalSessions          int       `bson:"totalSessions" json:"total_sessions"`
	TotalClients           int       `bson:"totalClients" json:"total_clients"`
	DeviceToken            string    `bson:"deviceToken,omitempty" json:"-"`
	UpdatedAt              time.Time `bson:"updatedAt" json:"-"`
}

// Bookable reports whether clients may reserve sessions with this counsellor.
func (c Counsellor) Bookable() bool {
	return c.IsActive && c.IsApproved
}

// Client is the slice of the client profile the booking core reads and maintains.
type Client struct {
	ID              string     `bson:"id" json:"id"`
	Name            string     `bson:"name" json:"name"`
	Email           string     `bson:"email" json:"email"`
	Phone           string     `bson:"phone" json:"phone"`
	IsActive        bool       `bson:"isActive" json:"is_active"`
	TotalSessions   int        `bson:"totalSessions" json:"total_sessions"`
	LastSessionDate *time.Time `bson:"lastSessionDate,omitempty" json:"last_session_date,omitempty"`
	DeviceToken     string     `bson:"deviceToken,omitempty" json:"-"`
	UpdatedAt       time.Time  `bson:"updatedAt" json:"-"`
}

// CounsellorAvailabilityUpdate carries the profile fields recomputed by a publish.
type CounsellorAvailabilityUpdate struct {
	DefaultSessionDuration int
	DefaultBreakDuration   int
	IsAvailable            bool
	AvailableFrom          string // empty leaves the stored bound untouched
	AvailableTo            string
}
