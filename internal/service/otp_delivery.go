package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// LogOTPDelivery is a basic provider that logs issued codes. It stands in for
// a real mail integration in development and tests.
type LogOTPDelivery struct {
	logger zerolog.Logger
}

// NewLogOTPDelivery constructs a logging provider.
func NewLogOTPDelivery(logger zerolog.Logger) *LogOTPDelivery {
	return &LogOTPDelivery{logger: logger.With().Str("component", "otp_delivery").Logger()}
}

// Deliver logs the code and returns nil to indicate success.
func (l *LogOTPDelivery) Deliver(_ context.Context, email, code string) error {
	l.logger.Info().Str("email", email).Str("code", code).Msg("verification code issued")
	return nil
}

// otpMailEvent is the payload published for the mailer worker.
type otpMailEvent struct {
	Email    string    `json:"email"`
	Code     string    `json:"code"`
	IssuedAt time.Time `json:"issued_at"`
}

// NATSOTPDelivery publishes issued codes as mail events. The actual email
// transport is a separate consumer of the subject.
type NATSOTPDelivery struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
}

// NewNATSOTPDelivery constructs a NATS-backed provider.
func NewNATSOTPDelivery(conn *nats.Conn, subject string, logger zerolog.Logger) *NATSOTPDelivery {
	if subject == "" {
		subject = "skillcert.mail.otp"
	}

	return &NATSOTPDelivery{
		conn:    conn,
		subject: subject,
		logger:  logger.With().Str("component", "otp_delivery").Logger(),
	}
}

// Deliver publishes the mail event. The code itself is never logged here.
func (n *NATSOTPDelivery) Deliver(_ context.Context, email, code string) error {
	payload, err := json.Marshal(otpMailEvent{Email: email, Code: code, IssuedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to encode mail event: %w", err)
	}

	if err := n.conn.Publish(n.subject, payload); err != nil {
		return fmt.Errorf("failed to publish mail event: %w", err)
	}

	n.logger.Debug().Str("email", email).Str("subject", n.subject).Msg("mail event published")
	return nil
}
