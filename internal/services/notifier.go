package services

import (
	"context"
	"log"
)

// Notifier sends short text messages to a phone number
type Notifier interface {
	SendSMS(ctx context.Context, to, body string) error
	SendWhatsApp(ctx context.Context, to, body string) error
}

// LogNotifier writes messages to the log instead of sending them. Used when
// Twilio is not configured.
type LogNotifier struct{}

func (LogNotifier) SendSMS(_ context.Context, to, body string) error {
	log.Printf("📱 [sms to %s] %s", to, body)
	return nil
}

func (LogNotifier) SendWhatsApp(_ context.Context, to, body string) error {
	log.Printf("💬 [whatsapp to %s] %s", to, body)
	return nil
}

// notify delivers best-effort: a failed message never fails the operation
// that triggered it.
func notify(ctx context.Context, n Notifier, to, body string) {
	if n == nil || to == "" || body == "" {
		return
	}
	if err := n.SendSMS(ctx, to, body); err != nil {
		log.Printf("⚠️  Notification to %s failed: %v", to, err)
	}
}
