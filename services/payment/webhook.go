package payment

import (
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"mindbridge/utils"
)

type WebhookOutcome string

const (
	WebhookSucceeded WebhookOutcome = "succeeded"
	WebhookFailed    WebhookOutcome = "failed"
	WebhookIgnored   WebhookOutcome = "ignored"
)

// WebhookEvent is a verified gateway notification about one booking.
type WebhookEvent struct {
	ID               string
	Type             string
	Outcome          WebhookOutcome
	BookingReference string
	OrderID          string
	GatewayPaymentID string
	FailureMessage   string
	FailureCode      string
	Payload          map[string]any
}

// ParseWebhook verifies the Stripe-Signature header and extracts the booking outcome.
func (g *StripeGateway) ParseWebhook(payload []byte, signatureHeader string) (*WebhookEvent, error) {
	return parseStripeWebhook(payload, signatureHeader, g.webhookSecret)
}

func parseStripeWebhook(payload []byte, signatureHeader, secret string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, utils.SignatureInvalidError("Invalid webhook signature.", err)
	}

	out := &WebhookEvent{ID: event.ID, Type: string(event.Type), Outcome: WebhookIgnored}
	switch string(event.Type) {
	case "payment_intent.succeeded":
		out.Outcome = WebhookSucceeded
	case "payment_intent.payment_failed":
		out.Outcome = WebhookFailed
	default:
		return out, nil
	}

	if event.Data == nil {
		return nil, utils.ValidationError("Webhook event has no data.")
	}
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, utils.ValidationError(fmt.Sprintf("Malformed payment intent: %v", err))
	}
	if err := json.Unmarshal(event.Data.Raw, &out.Payload); err != nil {
		out.Payload = nil
	}

	out.OrderID = intent.ID
	out.GatewayPaymentID = intent.ID
	if intent.LatestCharge != nil && intent.LatestCharge.ID != "" {
		out.GatewayPaymentID = intent.LatestCharge.ID
	}
	out.BookingReference = intent.Metadata["booking_reference"]
	if intent.LastPaymentError != nil {
		out.FailureMessage = intent.LastPaymentError.Msg
		out.FailureCode = string(intent.LastPaymentError.Code)
	}
	if out.BookingReference == "" {
		return nil, utils.ValidationError("Webhook payment intent carries no booking reference.")
	}
	return out, nil
}
