package notification

import (
	"context"
	"fmt"
	"log"

	directorydomain "shifttask-backend/internal/directory/domain"
	"shifttask-backend/pkg/fcm"
)

// TokenStore is the part of the push-token repository the in-app sender needs
type TokenStore interface {
	GetTokensByUserID(userID string) ([]directorydomain.PushToken, error)
	DeleteToken(userID, token string) error
}

// Pusher delivers a push to device tokens and reports the rejected ones
type Pusher interface {
	SendToDevices(ctx context.Context, tokens []string, n fcm.Notification) ([]string, error)
}

// InAppSender records an Activity for the user and, when FCM is configured, pushes it to their devices.
type InAppSender struct {
	activities ActivityRepository
	tokens     TokenStore
	pusher     Pusher
}

// NewInAppSender creates an in-app sender. tokens and pusher may be nil to disable push.
func NewInAppSender(activities ActivityRepository, tokens TokenStore, pusher Pusher) *InAppSender {
	return &InAppSender{activities: activities, tokens: tokens, pusher: pusher}
}

func (s *InAppSender) Channel() Channel { return ChannelInApp }

func (s *InAppSender) Send(ctx context.Context, to Recipient, msg Message) error {
	if to.UserID == "" {
		return fmt.Errorf("employee %s: %w", to.EmployeeID, ErrNoAddress)
	}

	activity := &Activity{
		UserID:     to.UserID,
		EmployeeID: to.EmployeeID,
		Kind:       msg.Kind,
		ResourceID: msg.ResourceID,
		Summary:    msg.Subject,
		Note:       msg.Body,
	}
	if err := s.activities.Create(activity); err != nil {
		return fmt.Errorf("create activity: %w", err)
	}

	if s.pusher == nil || s.tokens == nil {
		return nil
	}
	s.push(ctx, to, msg)
	return nil
}

// push is best effort; the activity is already recorded.
func (s *InAppSender) push(ctx context.Context, to Recipient, msg Message) {
	tokens, err := s.tokens.GetTokensByUserID(to.UserID)
	if err != nil {
		log.Printf("[FCM] Error getting tokens for user %s: %v", to.UserID, err)
		return
	}
	if len(tokens) == 0 {
		return
	}

	tokenStrings := make([]string, 0, len(tokens))
	for _, t := range tokens {
		tokenStrings = append(tokenStrings, t.Token)
	}

	failed, err := s.pusher.SendToDevices(ctx, tokenStrings, fcm.Notification{
		Title: msg.Subject,
		Body:  msg.Body,
		Data: map[string]string{
			"type":         string(msg.Kind),
			"resource_id":  msg.ResourceID,
			"click_action": "/tasks",
		},
	})
	if err != nil {
		log.Printf("[FCM] Error sending %s to user %s: %v", msg.Kind, to.UserID, err)
		return
	}
	for _, token := range failed {
		if err := s.tokens.DeleteToken(to.UserID, token); err != nil {
			log.Printf("[FCM] Error deleting stale token: %v", err)
		}
	}
}

// Mailer sends a single plain-text email
type Mailer interface {
	Send(ctx context.Context, toAddress, toName, subject, body string) error
}

// EmailSender delivers notifications to the employee's work email
type EmailSender struct {
	mailer Mailer
}

func NewEmailSender(mailer Mailer) *EmailSender {
	return &EmailSender{mailer: mailer}
}

func (s *EmailSender) Channel() Channel { return ChannelEmail }

func (s *EmailSender) Send(ctx context.Context, to Recipient, msg Message) error {
	if to.Email == "" {
		return fmt.Errorf("employee %s: %w", to.EmployeeID, ErrNoAddress)
	}
	return s.mailer.Send(ctx, to.Email, to.Name, msg.Subject, msg.Body)
}

// TextMessenger sends a single SMS
type TextMessenger interface {
	Send(ctx context.Context, to, text string) error
}

// SMSSender delivers notifications to the employee's work phone
type SMSSender struct {
	messenger TextMessenger
}

func NewSMSSender(messenger TextMessenger) *SMSSender {
	return &SMSSender{messenger: messenger}
}

func (s *SMSSender) Channel() Channel { return ChannelSMS }

func (s *SMSSender) Send(ctx context.Context, to Recipient, msg Message) error {
	if to.Phone == "" {
		return fmt.Errorf("employee %s: %w", to.EmployeeID, ErrNoAddress)
	}
	return s.messenger.Send(ctx, to.Phone, msg.Subject+": "+msg.Body)
}
