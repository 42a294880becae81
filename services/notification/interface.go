package notification

import (
	"context"
	"fmt"

	accountRepo "mindbridge/database/repository/account"
	"mindbridge/models"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

// NotificationService sends booking pushes over FCM.
type NotificationService interface {
	NotifyBookingConfirmed(ctx context.Context, payload models.BookingConfirmedPayload) error
}

// Sender is satisfied by *messaging.Client.
type Sender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// DefaultNotificationService is the production implementation. A nil sender
// turns every push into a log line.
type DefaultNotificationService struct {
	accounts accountRepo.AccountRepository
	sender   Sender
	logger   *zap.Logger
}

func NewDefaultNotificationService(accounts accountRepo.AccountRepository, sender Sender, logger *zap.Logger) (*DefaultNotificationService, error) {
	if accounts == nil {
		return nil, fmt.Errorf("notification service initialization error: account repository is nil")
	}
	return &DefaultNotificationService{accounts: accounts, sender: sender, logger: logger}, nil
}

// NotifyBookingConfirmed pushes to both parties. A party without a device
// token is skipped; a send failure is returned so the task retries.
func (s *DefaultNotificationService) NotifyBookingConfirmed(ctx context.Context, p models.BookingConfirmedPayload) error {
	data := map[string]string{
		"type":             "booking_confirmed",
		"bookingReference": p.BookingReference,
		"sessionDate":      p.SessionDate,
		"sessionTime":      p.SessionTime,
	}

	client, err := s.accounts.GetClient(ctx, p.ClientID)
	if err != nil {
		return fmt.Errorf("NotifyBookingConfirmed: could not find client %s: %w", p.ClientID, err)
	}
	counsellor, err := s.accounts.GetCounsellor(ctx, p.CounsellorID)
	if err != nil {
		return fmt.Errorf("NotifyBookingConfirmed: could not find counsellor %s: %w", p.CounsellorID, err)
	}

	clientBody := fmt.Sprintf("Your session with %s on %s at %s is confirmed.", counsellor.Name, p.SessionDate, p.SessionTime)
	if err := s.push(ctx, client.DeviceToken, "Booking confirmed", clientBody, withRole(data, models.RoleClient)); err != nil {
		return err
	}
	counsellorBody := fmt.Sprintf("%s booked a session on %s at %s.", client.Name, p.SessionDate, p.SessionTime)
	return s.push(ctx, counsellor.DeviceToken, "New session booked", counsellorBody, withRole(data, models.RoleCounsellor))
}

func (s *DefaultNotificationService) push(ctx context.Context, token, title, body string, data map[string]string) error {
	if token == "" {
		s.logger.Debug("No device token, push skipped", zap.String("role", data["role"]))
		return nil
	}
	if s.sender == nil {
		s.logger.Info("Push (FCM disabled)", zap.String("title", title), zap.String("body", body))
		return nil
	}

	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: "high_priority",
				Sound:     "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority":  "10",
				"apns-push-type": "alert",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{Sound: "default"},
			},
		},
	}

	if _, err := s.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("push %q: failed to send FCM message: %w", title, err)
	}
	return nil
}

func withRole(data map[string]string, role string) map[string]string {
	out := make(map[string]string, len(data)+1)
	for k, v := range data {
		out[k] = v
	}
	out["role"] = role
	return out
}
