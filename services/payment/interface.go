package payment

import (
	"context"

	"mindbridge/models"
)

// MinimumAmountMinor is the smallest order the gateway accepts, in minor units.
const MinimumAmountMinor int64 = 100

// OrderRequest describes a remote order to create for a booking.
type OrderRequest struct {
	AmountMinor int64
	Currency    string
	Receipt     string
	Metadata    map[string]string
}

// Gateway is the payment provider as seen by the booking core.
type Gateway interface {
	// CreateOrder registers an order for AmountMinor. Errors are *utils.AppError
	// of type gateway_bad_request or gateway_error.
	CreateOrder(ctx context.Context, req OrderRequest) (*models.GatewayOrder, error)
	// VerifySignature checks a checkout completion. Returns a signature_invalid AppError on mismatch.
	VerifySignature(orderID, paymentID, signature string) error
	PublicKey() string
}
