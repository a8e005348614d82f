package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/yoonbi/yoonbi-backend/internal/config"
)

// TwilioNotifier delivers SMS and WhatsApp messages through the Twilio REST API
type TwilioNotifier struct {
	client       *twilio.RestClient
	from         string
	whatsappFrom string
}

// NewTwilioNotifier creates a notifier from the Twilio settings
func NewTwilioNotifier(cfg config.TwilioConfig) (*TwilioNotifier, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.From == "" {
		return nil, fmt.Errorf("missing Twilio credentials in environment variables")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})

	whatsappFrom := cfg.WhatsAppFrom
	if whatsappFrom != "" && !strings.HasPrefix(whatsappFrom, "whatsapp:") {
		whatsappFrom = "whatsapp:" + whatsappFrom
	}

	return &TwilioNotifier{
		client:       client,
		from:         cfg.From,
		whatsappFrom: whatsappFrom,
	}, nil
}

// SendSMS sends a plain text message
func (t *TwilioNotifier) SendSMS(ctx context.Context, to, body string) error {
	return t.send(ctx, t.from, to, body)
}

// SendWhatsApp sends a WhatsApp message, falling back to SMS when no
// WhatsApp sender is configured
func (t *TwilioNotifier) SendWhatsApp(ctx context.Context, to, body string) error {
	if t.whatsappFrom == "" {
		return t.SendSMS(ctx, to, body)
	}
	return t.send(ctx, t.whatsappFrom, "whatsapp:"+to, body)
}

func (t *TwilioNotifier) send(ctx context.Context, from, to, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(from)
	params.SetTo(to)
	params.SetBody(body)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		log.Printf("❌ Failed to send message to %s: %v", to, err)
		return fmt.Errorf("twilio: %w", err)
	}
	if resp.ErrorCode != nil && *resp.ErrorCode != 0 {
		msg := ""
		if resp.ErrorMessage != nil {
			msg = *resp.ErrorMessage
		}
		return fmt.Errorf("twilio error %d: %s", *resp.ErrorCode, msg)
	}

	if resp.Sid != nil {
		log.Printf("✅ Message sent! SID: %s", *resp.Sid)
	}
	return nil
}
