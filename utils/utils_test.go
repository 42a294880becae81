package utils

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindbridge/config"
	"mindbridge/models"
)

func withSecret(t *testing.T, secret string) {
	t.Helper()
	prev := config.AppConfig.JWTSecret
	config.AppConfig.JWTSecret = secret
	t.Cleanup(func() { config.AppConfig.JWTSecret = prev })
}

func TestTokenRoundTrip(t *testing.T) {
	withSecret(t, "s3cret")
	want := models.Identity{UserID: "c1", Role: models.RoleCounsellor, IsActive: true, IsApproved: true}

	token, err := GenerateToken(want, time.Hour)
	require.NoError(t, err)

	got, err := ParseIdentity(token)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestParseIdentityRejects(t *testing.T) {
	withSecret(t, "s3cret")
	expired, err := GenerateToken(models.Identity{UserID: "u1", Role: models.RoleClient}, -time.Minute)
	require.NoError(t, err)
	unknownRole, err := GenerateToken(models.Identity{UserID: "u1", Role: "root"}, time.Hour)
	require.NoError(t, err)

	config.AppConfig.JWTSecret = "other"
	foreign, err := GenerateToken(models.Identity{UserID: "u1", Role: models.RoleClient}, time.Hour)
	require.NoError(t, err)
	config.AppConfig.JWTSecret = "s3cret"

	for name, token := range map[string]string{
		"expired":      expired,
		"unknown role": unknownRole,
		"wrong secret": foreign,
		"garbage":      "not.a.token",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseIdentity(token)
			assert.Error(t, err)
		})
	}
}

func TestAppErrorStatus(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{ValidationError("x"), http.StatusBadRequest},
		{SignatureInvalidError("x", nil), http.StatusBadRequest},
		{NotFoundError("x"), http.StatusNotFound},
		{ConflictError("x"), http.StatusConflict},
		{GatewayServiceError("x", nil), http.StatusBadGateway},
		{ForbiddenError("x"), http.StatusForbidden},
		{UnauthorizedError("x"), http.StatusUnauthorized},
		{InternalError("x", nil), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.Status(), string(tt.err.Type))
	}

	wrapped := fmt.Errorf("reserve: %w", ConflictError("taken"))
	assert.True(t, IsType(wrapped, ErrConflict))
	assert.Equal(t, "taken", AsAppError(wrapped).Message)
	assert.Equal(t, ErrInternal, AsAppError(fmt.Errorf("boom")).Type)
}

func TestClockHelpers(t *testing.T) {
	got, err := ParseClock("09:30:00")
	require.NoError(t, err)
	assert.Equal(t, "09:30", got)

	end, err := AddMinutes("23:40", 45)
	require.NoError(t, err)
	assert.Equal(t, "00:25", end)

	next, err := AddDays("2030-02-28", 1)
	require.NoError(t, err)
	assert.Equal(t, "2030-03-01", next)

	_, err = ParseDate("28/02/2030")
	assert.Error(t, err)
}

func TestReferenceFormats(t *testing.T) {
	assert.Regexp(t, `^MBK-[0-9A-F]{10}$`, NewBookingReference())
	assert.Regexp(t, `^PAY-[0-9A-F]{12}$`, NewPaymentID())
}
