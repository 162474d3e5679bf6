package services

import (
	"fmt"
	"log"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/drawmart/drawmart-backend/internal/config"
)

// SMSSender delivers a verification code to a phone number.
type SMSSender interface {
	Send(phone, code string) error
}

// TwilioSender sends verification codes through the Twilio SMS API.
type TwilioSender struct {
	client *twilio.RestClient
	from   string
}

// NewTwilioSender creates a new Twilio-backed sender
func NewTwilioSender(cfg config.TwilioConfig) (*TwilioSender, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.FromNumber == "" {
		return nil, fmt.Errorf("missing Twilio credentials in environment variables")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})

	return &TwilioSender{
		client: client,
		from:   cfg.FromNumber,
	}, nil
}

// Send sends the verification code as an SMS via Twilio
func (t *TwilioSender) Send(phone, code string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.from)
	params.SetTo(phone)
	params.SetBody(fmt.Sprintf("Your DrawMart verification code is %s. It expires in 5 minutes.", code))

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		log.Printf("❌ Failed to send verification SMS: %v", err)
		return fmt.Errorf("send sms: %w", err)
	}

	log.Printf("✅ Verification SMS sent! SID: %s", *resp.Sid)
	return nil
}

// ConsoleSender logs codes instead of sending them. Development only.
type ConsoleSender struct{}

func (ConsoleSender) Send(phone, code string) error {
	log.Printf("[sms][dev] verification code for %s: %s", phone, code)
	return nil
}
