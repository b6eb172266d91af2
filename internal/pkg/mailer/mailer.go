package mailer

import (
	"context"
	"log"
)

// Delivery purposes the auth core hands to the sender. Message formatting is
// the sender's concern, not the core's.
const (
	PurposePasswordReset     = "password_reset"
	PurposeEmailVerification = "email_verification"
)

type Sender interface {
	Deliver(ctx context.Context, address, purpose, payload string) error
}

// DevConsoleSender prints deliveries to the process log instead of sending
// real mail. Enabled in dev environments only.
type DevConsoleSender struct {
	enabled bool
}

func NewDevConsoleSender(enabled bool) *DevConsoleSender {
	return &DevConsoleSender{enabled: enabled}
}

func (m *DevConsoleSender) Deliver(_ context.Context, address, purpose, payload string) error {
	if m.enabled {
		log.Printf("[DEV-MAIL] purpose=%s to=%s payload=%s", purpose, address, payload)
	}
	return nil
}
