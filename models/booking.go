package models

import (
	"fmt"
	"time"
)

const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCompleted = "completed"
	BookingCancelled = "cancelled"
	BookingNoShow    = "no_show"

	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

// Booking is a client's reservation of one counsellor session.
type Booking struct {
	Reference          string     `bson:"reference" json:"reference"`
	ClientID           string     `bson:"clientId" json:"client_id"`
	CounsellorID       string     `bson:"counsellorId" json:"counsellor_id"`
	SlotID             string     `bson:"slotId,omitempty" json:"slot_id,omitempty"`
	SessionDate        string     `bson:"sessionDate" json:"session_date"`
	SessionTime        string     `bson:"sessionTime" json:"session_time"`
	SessionDuration    int        `bson:"sessionDuration" json:"session_duration"`
	SessionFeeMinor    int64      `bson:"sessionFeeMinor" json:"-"`
	Currency           string     `bson:"currency" json:"currency"`
	GoogleMeetLink     string     `bson:"googleMeetLink,omitempty" json:"google_meet_link,omitempty"`
	Status             string     `bson:"status" json:"status"`
	PaymentStatus      string     `bson:"paymentStatus" json:"payment_status"`
	ClientNotes        string     `bson:"clientNotes,omitempty" json:"client_notes,omitempty"`
	CancellationReason string     `bson:"cancellationReason,omitempty" json:"cancellation_reason,omitempty"`
	ConfirmedAt        *time.Time `bson:"confirmedAt,omitempty" json:"confirmed_at,omitempty"`
	CancelledAt        *time.Time `bson:"cancelledAt,omitempty" json:"cancelled_at,omitempty"`
	CreatedAt          time.Time  `bson:"createdAt" json:"created_at"`
	UpdatedAt          time.Time  `bson:"updatedAt" json:"updated_at"`
}

// SessionFee renders the fee snapshot as a decimal string, e.g. "1500.00".
func (b Booking) SessionFee() string {
	return FormatMinor(b.SessionFeeMinor)
}

// SessionStart combines the session date and time in the given location.
func (b Booking) SessionStart(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04", b.SessionDate+" "+b.SessionTime, loc)
}

// FormatMinor renders an amount in minor units with two decimals.
func FormatMinor(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}

// ReserveRequest is the create-booking payload.
type ReserveRequest struct {
	CounsellorID    string `json:"counsellor_id"`
	SessionDate     string `json:"session_date"`
	SessionTime     string `json:"session_time"`
	SessionDuration int    `json:"session_duration"`
	ClientNotes     string `json:"client_notes"`
}

// BookingSummary is the booking block of the create-booking response.
type BookingSummary struct {
	Reference   string `json:"reference"`
	SessionDate string `json:"session_date"`
	SessionTime string `json:"session_time"`
	SessionFee  string `json:"session_fee"`
}

// ClientContact prefills the gateway checkout form.
type ClientContact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Reservation is the outcome of a successful reserve.
type Reservation struct {
	Booking    Booking        `json:"-"`
	Payment    Payment        `json:"-"`
	Summary    BookingSummary `json:"booking"`
	Order      GatewayOrder   `json:"order"`
	GatewayKey string         `json:"gateway_key"`
	Client     ClientContact  `json:"client"`
}

// BookingUpdate is a partial update of a booking; nil fields are left untouched.
type BookingUpdate struct {
	Status             *string
	PaymentStatus      *string
	SlotID             *string
	DetachSlot         bool
	CancellationReason *string
	ConfirmedAt        *time.Time
	CancelledAt        *time.Time
}
