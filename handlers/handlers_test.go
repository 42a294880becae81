package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"mindbridge/models"
	"mindbridge/services/payment"
	"mindbridge/services/reconciliation"
	"mindbridge/utils"
)

type fakeParser struct {
	event *payment.WebhookEvent
	err   error
}

func (p fakeParser) ParseWebhook([]byte, string) (*payment.WebhookEvent, error) {
	return p.event, p.err
}

type fakeReconciler struct {
	confirmed []string
	failed    []models.PaymentFailedRequest
	err       error
}

func (f *fakeReconciler) Confirm(context.Context, models.Identity, models.VerifyPaymentRequest, map[string]any) (*models.Booking, error) {
	return nil, f.err
}

func (f *fakeReconciler) ConfirmFromGateway(_ context.Context, ref, paymentID string, _ map[string]any) (*models.Booking, error) {
	f.confirmed = append(f.confirmed, ref+"/"+paymentID)
	return &models.Booking{Reference: ref}, f.err
}

func (f *fakeReconciler) Fail(_ context.Context, identity *models.Identity, req models.PaymentFailedRequest) error {
	f.failed = append(f.failed, req)
	return f.err
}

func (f *fakeReconciler) Expire(context.Context, string) error { return f.err }

func (f *fakeReconciler) Override(context.Context, models.Identity, string, models.PaymentOverrideRequest) (*models.Booking, error) {
	return nil, f.err
}

func postWebhook(h *PaymentHandler) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/webhook", h.PaymentWebhookHandler)
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhookDispatch(t *testing.T) {
	rec := &fakeReconciler{}
	h := NewPaymentHandler(rec, fakeParser{event: &payment.WebhookEvent{
		ID: "evt_1", Outcome: payment.WebhookSucceeded, BookingReference: "MBK-1", GatewayPaymentID: "ch_1",
	}}, zap.NewNop())
	w := postWebhook(h)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"MBK-1/ch_1"}, rec.confirmed)

	h.Webhooks = fakeParser{event: &payment.WebhookEvent{
		ID: "evt_2", Outcome: payment.WebhookFailed, BookingReference: "MBK-2", FailureMessage: "Card declined",
	}}
	w = postWebhook(h)
	assert.Equal(t, http.StatusOK, w.Code)
	if assert.Len(t, rec.failed, 1) {
		assert.Equal(t, "MBK-2", rec.failed[0].BookingReference)
		assert.Equal(t, "Card declined", rec.failed[0].Error.Description)
	}

	h.Webhooks = fakeParser{event: &payment.WebhookEvent{ID: "evt_3", Outcome: payment.WebhookIgnored}}
	w = postWebhook(h)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, rec.confirmed, 1)
}

func TestWebhookErrors(t *testing.T) {
	h := NewPaymentHandler(&fakeReconciler{}, fakeParser{err: utils.SignatureInvalidError("Invalid webhook signature.", nil)}, zap.NewNop())
	w := postWebhook(h)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	event := &payment.WebhookEvent{ID: "evt_4", Outcome: payment.WebhookSucceeded, BookingReference: "MBK-4"}

	h = NewPaymentHandler(&fakeReconciler{err: utils.ConflictError("busy")}, fakeParser{event: event}, zap.NewNop())
	w = postWebhook(h)
	assert.Equal(t, http.StatusConflict, w.Code)

	h = NewPaymentHandler(&fakeReconciler{err: utils.NotFoundError("Payment record not found.")}, fakeParser{event: event}, zap.NewNop())
	w = postWebhook(h)
	assert.Equal(t, http.StatusOK, w.Code)

	reassigned := &utils.AppError{Type: utils.ErrConflict, Message: "refund", Err: reconciliation.ErrSlotReassigned}
	h = NewPaymentHandler(&fakeReconciler{err: reassigned}, fakeParser{event: event}, zap.NewNop())
	w = postWebhook(h)
	assert.Equal(t, http.StatusOK, w.Code)
}
