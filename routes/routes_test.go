package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mindbridge/config"
	"mindbridge/database/repository/memory"
	"mindbridge/handlers"
	"mindbridge/middleware"
	"mindbridge/models"
	"mindbridge/services/availability"
	"mindbridge/services/booking"
	"mindbridge/services/payment/paymenttest"
	"mindbridge/services/reconciliation"
	"mindbridge/utils"
)

type idemStore struct {
	mu   sync.Mutex
	recs map[string]utils.IdempotencyRecord
}

func (s *idemStore) Reserve(_ context.Context, key, fp string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recs[key]; ok {
		return false, nil
	}
	s.recs[key] = utils.IdempotencyRecord{Fingerprint: fp}
	return true, nil
}

func (s *idemStore) Get(_ context.Context, key string) (*utils.IdempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[key]
	if !ok {
		return nil, utils.ErrIdempotencyMiss
	}
	return &rec, nil
}

func (s *idemStore) Complete(_ context.Context, key string, rec utils.IdempotencyRecord, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[key] = rec
	return nil
}

func (s *idemStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.recs, key)
	return nil
}

type noHolds struct{}

func (noHolds) ScheduleHoldExpiry(context.Context, string) error { return nil }

type server struct {
	router  *gin.Engine
	store   *memory.Store
	gateway *paymenttest.Gateway
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	prev := config.AppConfig.JWTSecret
	config.AppConfig.JWTSecret = "routes-secret"
	t.Cleanup(func() { config.AppConfig.JWTSecret = prev })

	store := memory.NewStore()
	store.PutCounsellor(models.Counsellor{ID: "c1", Name: "Dr. Rao", IsActive: true, IsApproved: true, SessionFeeMinor: 150000})
	store.PutClient(models.Client{ID: "u1", Name: "Asha", Email: "asha@example.com"})

	now := func() time.Time { return time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC) }
	logger := zap.NewNop()
	gw := paymenttest.NewGateway()

	registry := availability.NewRegistry(store, store, 3, logger)
	registry.Now = now
	coord := &booking.DefaultReservationCoordinator{
		Scheduler: store, Accounts: store, Gateway: gw, Holds: noHolds{}, Logger: logger,
		LeadDays: 3, Currency: "INR", GatewayTimeout: time.Second, Now: now,
	}
	engine := &reconciliation.DefaultReconciliationEngine{
		Scheduler: store, Gateway: gw, Logger: logger, Location: time.UTC, Now: now,
	}

	bookingHandler := handlers.NewBookingHandler(coord)
	paymentHandler := handlers.NewPaymentHandler(engine, nil, logger)
	availabilityHandler := handlers.NewAvailabilityHandler(registry)
	adminHandler := handlers.NewAdminHandler(engine)

	r := gin.New()
	RegisterRoutes(r, &handlers.HandlerBundle{
		CreateBookingHandler:       bookingHandler.CreateBookingHandler,
		Idempotency:                middleware.IdempotencyMiddleware(&idemStore{recs: map[string]utils.IdempotencyRecord{}}, time.Hour, logger),
		VerifyPaymentHandler:       paymentHandler.VerifyPaymentHandler,
		PaymentFailedHandler:       paymentHandler.PaymentFailedHandler,
		PaymentWebhookHandler:      paymentHandler.PaymentWebhookHandler,
		GetMyAvailabilityHandler:   availabilityHandler.GetMyAvailabilityHandler,
		PublishAvailabilityHandler: availabilityHandler.PublishAvailabilityHandler,
		PublicAvailabilityHandler:  availabilityHandler.PublicAvailabilityHandler,
		OverridePaymentHandler:     adminHandler.OverridePaymentHandler,
		HealthHandler:              handlers.HealthHandler,
	})
	return &server{router: r, store: store, gateway: gw}
}

func (s *server) do(t *testing.T, method, path string, who *models.Identity, body any, headers ...string) (int, map[string]any, string) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if who != nil {
		token, err := utils.GenerateToken(*who, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w.Code, out, w.Body.String()
}

var (
	counsellor = &models.Identity{UserID: "c1", Role: models.RoleCounsellor, IsActive: true, IsApproved: true}
	client     = &models.Identity{UserID: "u1", Role: models.RoleClient, IsActive: true}
	admin      = &models.Identity{UserID: "a1", Role: models.RoleAdmin, IsActive: true}
)

func TestBookingFlowOverHTTP(t *testing.T) {
	s := newServer(t)

	code, body, _ := s.do(t, http.MethodPost, "/api/counsellor/availability", counsellor, gin.H{
		"slots": []gin.H{{"date": "2030-01-10", "start_time": "10:00"}},
	})
	require.Equal(t, http.StatusOK, code, body)

	code, body, _ = s.do(t, http.MethodGet, "/api/counsellors/c1/availability?date=2030-01-10", nil, nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Len(t, body["slots"], 1)

	reserve := gin.H{"counsellor_id": "c1", "session_date": "2030-01-10", "session_time": "10:00"}
	code, body, raw := s.do(t, http.MethodPost, "/api/bookings", client, reserve, middleware.IdempotencyHeader, "abc")
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, true, body["success"])
	bookingBlock := body["booking"].(map[string]any)
	ref := bookingBlock["reference"].(string)
	assert.Equal(t, "1500.00", bookingBlock["session_fee"])
	orderID := body["order"].(map[string]any)["id"].(string)
	assert.Equal(t, "pk_test", body["gateway_key"])

	code, _, replayed := s.do(t, http.MethodPost, "/api/bookings", client, reserve, middleware.IdempotencyHeader, "abc")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, raw, replayed)
	assert.Equal(t, 1, s.gateway.OrderCount())

	code, body, _ = s.do(t, http.MethodPost, "/api/bookings", client, reserve)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "conflict", body["error_type"])

	code, body, _ = s.do(t, http.MethodPost, "/api/payments/verify", client, gin.H{
		"booking_reference": ref,
		"order_id":          orderID,
		"payment_id":        "pay_1",
		"signature":         s.gateway.Sign(orderID, "pay_1"),
	})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "Payment verified successfully.", body["message"])

	code, body, _ = s.do(t, http.MethodGet, "/api/counsellors/c1/availability?date=2030-01-10", nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["slots"])

	code, body, _ = s.do(t, http.MethodGet, "/api/counsellor/availability?start=2030-01-01&end=2030-01-31", counsellor, nil)
	require.Equal(t, http.StatusOK, code)
	slots := body["availability"].(map[string]any)["slots"].([]any)
	require.Len(t, slots, 1)
	assert.Equal(t, true, slots[0].(map[string]any)["is_booked"])
}

func TestVerifyWithForgedSignatureOverHTTP(t *testing.T) {
	s := newServer(t)
	_, err := s.store.CreateMany(context.Background(), []models.AvailabilitySlot{{
		CounsellorID: "c1", Date: "2030-01-10", StartTime: "10:00", EndTime: "10:45", DurationMinutes: 45,
	}})
	require.NoError(t, err)

	code, body, _ := s.do(t, http.MethodPost, "/api/bookings", client, gin.H{"counsellor_id": "c1", "session_date": "2030-01-10", "session_time": "10:00"})
	require.Equal(t, http.StatusOK, code, body)
	ref := body["booking"].(map[string]any)["reference"].(string)
	orderID := body["order"].(map[string]any)["id"].(string)

	code, body, _ = s.do(t, http.MethodPost, "/api/payments/verify", client, gin.H{
		"booking_reference": ref, "order_id": orderID, "payment_id": "pay_1", "signature": "forged",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "signature_invalid", body["error_type"])
	assert.Equal(t, "Payment verification failed. Please contact support.", body["error"])

	code, body, _ = s.do(t, http.MethodPost, "/api/payments/verify", client, gin.H{"booking_reference": ref})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Incomplete payment details.", body["error"])

	code, body, _ = s.do(t, http.MethodPost, "/api/payments/failed", client, gin.H{
		"booking_reference": ref, "error": gin.H{"description": "Card declined"},
	})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])
}

func TestPaymentFailedAcceptsPlainErrorString(t *testing.T) {
	s := newServer(t)
	_, err := s.store.CreateMany(context.Background(), []models.AvailabilitySlot{{
		CounsellorID: "c1", Date: "2030-01-10", StartTime: "10:00", EndTime: "10:45", DurationMinutes: 45,
	}})
	require.NoError(t, err)

	code, body, _ := s.do(t, http.MethodPost, "/api/bookings", client, gin.H{"counsellor_id": "c1", "session_date": "2030-01-10", "session_time": "10:00"})
	require.Equal(t, http.StatusOK, code, body)
	ref := body["booking"].(map[string]any)["reference"].(string)

	code, body, _ = s.do(t, http.MethodPost, "/api/payments/failed", client, gin.H{
		"booking_reference": ref, "error": "Payment cancelled by user",
	})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, true, body["success"])

	pay, err := s.store.GetPaymentByBooking(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, pay.Status)
	assert.Equal(t, "Payment cancelled by user", pay.ErrorMessage)

	code, body, _ = s.do(t, http.MethodGet, "/api/counsellors/c1/availability?date=2030-01-10", nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["slots"], 1)
}

func TestRouteGuards(t *testing.T) {
	s := newServer(t)

	code, _, _ := s.do(t, http.MethodPost, "/api/bookings", nil, gin.H{})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _, _ = s.do(t, http.MethodPost, "/api/bookings", counsellor, gin.H{})
	assert.Equal(t, http.StatusForbidden, code)

	code, _, _ = s.do(t, http.MethodPost, "/api/counsellor/availability", client, gin.H{})
	assert.Equal(t, http.StatusForbidden, code)

	code, _, _ = s.do(t, http.MethodPost, "/api/admin/bookings/MBK-0000000000/payment", client, gin.H{"outcome": "success"})
	assert.Equal(t, http.StatusForbidden, code)

	code, body, _ := s.do(t, http.MethodPost, "/api/admin/bookings/MBK-0000000000/payment", admin, gin.H{"outcome": "success"})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", body["error_type"])

	code, _, _ = s.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, code)
}
