package email

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

const ProviderNone = "none"

type Message struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers one message. ProviderID identifies the backend in logs and
// reports ProviderNone for the explicit unconfigured state.
type Sender interface {
	Send(ctx context.Context, msg Message) error
	ProviderID() string
}

type Config struct {
	Provider       string
	FromEmail      string
	FromName       string
	SendGridAPIKey string
	SMTPHost       string
	SMTPPort       string
	SES            SESAPI
}

// New picks a sender from cfg. An empty or "auto" provider uses the first
// backend with credentials: SendGrid, then SES, then SMTP.
func New(cfg Config, logger *slog.Logger) (Sender, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FromEmail == "" {
		cfg.FromEmail = "noreply@bookingsaas.dev"
	}
	if cfg.FromName == "" {
		cfg.FromName = "Bookings"
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "auto":
		switch {
		case cfg.SendGridAPIKey != "":
			return NewSendGridSender(SendGridConfig{APIKey: cfg.SendGridAPIKey, FromEmail: cfg.FromEmail, FromName: cfg.FromName}, logger), nil
		case cfg.SES != nil:
			return NewSESSender(cfg.SES, cfg.FromEmail, cfg.FromName, logger), nil
		case cfg.SMTPHost != "":
			return NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.FromEmail), nil
		}
		return Disabled{}, nil
	case "sendgrid":
		if cfg.SendGridAPIKey == "" {
			return nil, fmt.Errorf("email: sendgrid selected but SENDGRID_API_KEY is empty")
		}
		return NewSendGridSender(SendGridConfig{APIKey: cfg.SendGridAPIKey, FromEmail: cfg.FromEmail, FromName: cfg.FromName}, logger), nil
	case "ses":
		if cfg.SES == nil {
			return nil, fmt.Errorf("email: ses selected but no SES client")
		}
		return NewSESSender(cfg.SES, cfg.FromEmail, cfg.FromName, logger), nil
	case "smtp":
		if cfg.SMTPHost == "" {
			return nil, fmt.Errorf("email: smtp selected but SMTP_HOST is empty")
		}
		return NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.FromEmail), nil
	case ProviderNone:
		return Disabled{}, nil
	}
	return nil, fmt.Errorf("email: unknown provider %q", cfg.Provider)
}

// Disabled is the unconfigured state. Callers check ProviderID before sending.
type Disabled struct{}

func (Disabled) Send(context.Context, Message) error {
	return fmt.Errorf("email: no provider configured")
}

func (Disabled) ProviderID() string { return ProviderNone }

// Configured reports whether s can actually deliver mail.
func Configured(s Sender) bool {
	return s != nil && s.ProviderID() != ProviderNone
}
