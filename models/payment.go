package models

import (
	"bytes"
	"encoding/json"
	"time"
)

const (
	PaymentInitiated = "initiated"
	PaymentSucceeded = "success"
	PaymentFailed    = "failed"
	PaymentRefunded  = "refunded"

	PaymentMethodGateway = "gateway"
)

// Payment tracks the gateway side of a booking; one per booking.
type Payment struct {
	PaymentID         string         `bson:"paymentId" json:"payment_id"`
	BookingReference  string         `bson:"bookingReference" json:"booking_reference"`
	GatewayOrderID    string         `bson:"gatewayOrderId,omitempty" json:"gateway_order_id,omitempty"`
	GatewayPaymentID  string         `bson:"gatewayPaymentId,omitempty" json:"gateway_payment_id,omitempty"`
	GatewaySignature  string         `bson:"gatewaySignature,omitempty" json:"-"`
	AmountMinor       int64          `bson:"amountMinor" json:"amount_minor"`
	Currency          string         `bson:"currency" json:"currency"`
	Method            string         `bson:"method" json:"method"`
	Status            string         `bson:"status" json:"status"`
	GatewayPayload    map[string]any `bson:"gatewayPayload,omitempty" json:"gateway_payload,omitempty"`
	ErrorMessage      string         `bson:"errorMessage,omitempty" json:"error_message,omitempty"`
	RefundAmountMinor int64          `bson:"refundAmountMinor" json:"refund_amount_minor"`
	RefundID          string         `bson:"refundId,omitempty" json:"refund_id,omitempty"`
	RefundReason      string         `bson:"refundReason,omitempty" json:"refund_reason,omitempty"`
	RefundedAt        *time.Time     `bson:"refundedAt,omitempty" json:"refunded_at,omitempty"`
	PaidAt            *time.Time     `bson:"paidAt,omitempty" json:"paid_at,omitempty"`
	LockOwner         string         `bson:"lockOwner,omitempty" json:"-"`
	CreatedAt         time.Time      `bson:"createdAt" json:"created_at"`
	UpdatedAt         time.Time      `bson:"updatedAt" json:"updated_at"`
}

// PaymentSuccess is what a verified confirmation stamps on a payment.
type PaymentSuccess struct {
	GatewayPaymentID string
	Signature        string
	Payload          map[string]any
	PaidAt           time.Time
}

// GatewayOrder is the remote order returned to the checkout front-end.
type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// VerifyPaymentRequest is the client-side payment confirmation payload.
type VerifyPaymentRequest struct {
	BookingReference string `json:"booking_reference"`
	OrderID          string `json:"order_id"`
	PaymentID        string `json:"payment_id"`
	Signature        string `json:"signature"`
}

// GatewayError is the error block a checkout widget reports on failure.
type GatewayError struct {
	Description string `json:"description"`
	Code        string `json:"code"`
	Source      string `json:"source"`
	Step        string `json:"step"`
	Reason      string `json:"reason"`
}

// UnmarshalJSON accepts either the error object or a bare message string.
func (e *GatewayError) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		return json.Unmarshal(data, &e.Description)
	}
	type plain GatewayError
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*e = GatewayError(p)
	return nil
}

// PaymentFailedRequest is the client-side payment failure payload.
type PaymentFailedRequest struct {
	BookingReference string       `json:"booking_reference"`
	Error            GatewayError `json:"error"`
}

// PaymentOverrideRequest is the administrative reconciliation payload.
type PaymentOverrideRequest struct {
	Outcome   string `json:"outcome"` // "success" or "failed"
	PaymentID string `json:"payment_id"`
	Reason    string `json:"reason"`
}
