package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mindbridge/models"
	"mindbridge/services/payment"
	"mindbridge/services/reconciliation"
	"mindbridge/utils"
)

const maxWebhookBytes = 64 << 10

// WebhookParser authenticates and decodes a gateway notification.
type WebhookParser interface {
	ParseWebhook(payload []byte, signatureHeader string) (*payment.WebhookEvent, error)
}

type PaymentHandler struct {
	Reconciler reconciliation.ReconciliationService
	Webhooks   WebhookParser
	Logger     *zap.Logger
}

func NewPaymentHandler(reconciler reconciliation.ReconciliationService, webhooks WebhookParser, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{Reconciler: reconciler, Webhooks: webhooks, Logger: logger}
}

// VerifyPaymentHandler confirms a checkout reported by the client.
func (h *PaymentHandler) VerifyPaymentHandler(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}
	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		utils.JSONError(c, utils.ValidationError("Invalid payload."))
		return
	}
	req := models.VerifyPaymentRequest{
		BookingReference: stringField(raw, "booking_reference"),
		OrderID:          stringField(raw, "order_id"),
		PaymentID:        stringField(raw, "payment_id"),
		Signature:        stringField(raw, "signature"),
	}

	b, err := h.Reconciler.Confirm(c.Request.Context(), caller, req, raw)
	if err != nil {
		utils.JSONError(c, err)
		return
	}
	utils.JSONSuccess(c, gin.H{
		"message": "Payment verified successfully.",
		"booking": gin.H{
			"reference":      b.Reference,
			"status":         b.Status,
			"payment_status": b.PaymentStatus,
		},
	})
}

// PaymentFailedHandler records a checkout the client saw fail.
func (h *PaymentHandler) PaymentFailedHandler(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}
	var req models.PaymentFailedRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.Reconciler.Fail(c.Request.Context(), &caller, req); err != nil {
		utils.JSONError(c, err)
		return
	}
	utils.JSONSuccess(c, nil)
}

// PaymentWebhookHandler applies gateway-signed payment events.
func (h *PaymentHandler) PaymentWebhookHandler(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		utils.JSONError(c, utils.ValidationError("Unable to read webhook body."))
		return
	}
	event, err := h.Webhooks.ParseWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		utils.JSONError(c, err)
		return
	}

	ctx := c.Request.Context()
	logger := h.Logger.With(zap.String("event", event.ID), zap.String("type", event.Type))
	switch event.Outcome {
	case payment.WebhookSucceeded:
		_, err = h.Reconciler.ConfirmFromGateway(ctx, event.BookingReference, event.GatewayPaymentID, event.Payload)
	case payment.WebhookFailed:
		err = h.Reconciler.Fail(ctx, nil, models.PaymentFailedRequest{
			BookingReference: event.BookingReference,
			Error:            models.GatewayError{Description: event.FailureMessage, Code: event.FailureCode, Source: "webhook"},
		})
	default:
		logger.Debug("Ignoring webhook event")
	}

	if errors.Is(err, reconciliation.ErrSlotReassigned) {
		logger.Error("Paid webhook for a reassigned slot; refund required",
			zap.String("booking", event.BookingReference),
			zap.Bool("audit", true))
		err = nil
	}
	if err != nil {
		// Non-2xx makes the gateway redeliver the event.
		if appErr := utils.AsAppError(err); appErr.Type == utils.ErrConflict || appErr.Type == utils.ErrInternal {
			utils.JSONError(c, err)
			return
		}
		logger.Warn("Webhook event not applied", zap.String("booking", event.BookingReference), zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "received": true})
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
