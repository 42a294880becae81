package reconciliation

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"mindbridge/models"
	"mindbridge/utils"
)

// Override lets an administrator settle a payment whose outcome never
// arrived. It runs the same transitions as the gateway paths.
func (e *DefaultReconciliationEngine) Override(ctx context.Context, identity models.Identity, bookingReference string, req models.PaymentOverrideRequest) (*models.Booking, error) {
	if !identity.IsAdmin() {
		return nil, utils.ForbiddenError("Only administrators can reconcile payments.")
	}
	if bookingReference == "" {
		return nil, utils.ValidationError("Missing booking reference.")
	}

	e.Logger.Info("Manual payment reconciliation",
		zap.String("booking", bookingReference),
		zap.String("admin", identity.UserID),
		zap.String("outcome", req.Outcome),
		zap.String("reason", req.Reason),
		zap.Bool("audit", true))

	payload := map[string]any{"source": "admin", "admin_id": identity.UserID, "reason": req.Reason}
	switch strings.ToLower(req.Outcome) {
	case models.PaymentSucceeded:
		return e.ConfirmFromGateway(ctx, bookingReference, req.PaymentID, payload)
	case models.PaymentFailed:
		msg := strings.TrimSpace(req.Reason)
		if msg == "" {
			msg = defaultFailureMessage
		}
		if err := e.fail(ctx, &identity, bookingReference, msg, false); err != nil {
			return nil, err
		}
		return e.Scheduler.GetBooking(ctx, bookingReference)
	default:
		return nil, utils.ValidationError("Outcome must be either 'success' or 'failed'.")
	}
}
