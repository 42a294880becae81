package models

// BookingConfirmedPayload is queued after a payment is reconciled as successful.
type BookingConfirmedPayload struct {
	BookingReference string `json:"bookingReference"`
	ClientID         string `json:"clientId"`
	CounsellorID     string `json:"counsellorId"`
	SessionDate      string `json:"sessionDate"`
	SessionTime      string `json:"sessionTime"`
}

// HoldExpiryPayload is queued when a slot is reserved pending payment.
type HoldExpiryPayload struct {
	BookingReference string `json:"bookingReference"`
}
