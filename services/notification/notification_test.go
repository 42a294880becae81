package notification

import (
	"context"
	"errors"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mindbridge/database/repository/memory"
	"mindbridge/models"
)

type fakeSender struct {
	sent []*messaging.Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, m *messaging.Message) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, m)
	return "projects/x/messages/1", nil
}

func seededStore() *memory.Store {
	s := memory.NewStore()
	s.PutClient(models.Client{ID: "u1", Name: "Asha", DeviceToken: "tok-client"})
	s.PutCounsellor(models.Counsellor{ID: "c1", Name: "Dr. Rao"})
	return s
}

var payload = models.BookingConfirmedPayload{
	BookingReference: "MBK-1", ClientID: "u1", CounsellorID: "c1",
	SessionDate: "2030-01-10", SessionTime: "10:00",
}

func TestNotifyBookingConfirmedSkipsMissingTokens(t *testing.T) {
	sender := &fakeSender{}
	svc, err := NewDefaultNotificationService(seededStore(), sender, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, svc.NotifyBookingConfirmed(context.Background(), payload))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "tok-client", sender.sent[0].Token)
	assert.Equal(t, models.RoleClient, sender.sent[0].Data["role"])
	assert.Equal(t, "MBK-1", sender.sent[0].Data["bookingReference"])
}

func TestNotifyBookingConfirmedReturnsSendErrors(t *testing.T) {
	svc, err := NewDefaultNotificationService(seededStore(), &fakeSender{err: errors.New("unavailable")}, zap.NewNop())
	require.NoError(t, err)

	assert.Error(t, svc.NotifyBookingConfirmed(context.Background(), payload))
}

func TestNotifyWithoutSenderLogsOnly(t *testing.T) {
	svc, err := NewDefaultNotificationService(seededStore(), nil, zap.NewNop())
	require.NoError(t, err)
	assert.NoError(t, svc.NotifyBookingConfirmed(context.Background(), payload))
}
