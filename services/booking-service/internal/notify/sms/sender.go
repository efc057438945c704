package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const ProviderNone = "none"

type Sender interface {
	Send(ctx context.Context, to string, body string) error
	ProviderID() string
}

type Config struct {
	Provider         string
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
	WebhookURL       string
	WebhookToken     string
}

// New picks a sender from cfg. An empty or "auto" provider prefers Twilio
// when all three credentials are present, then the webhook relay.
func New(cfg Config) (Sender, error) {
	twilioReady := cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" && cfg.TwilioFromNumber != ""
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "auto":
		switch {
		case twilioReady:
			return NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber), nil
		case cfg.WebhookURL != "":
			return NewWebhookSender(cfg.WebhookURL, cfg.WebhookToken), nil
		}
		return Disabled{}, nil
	case "twilio":
		if !twilioReady {
			return nil, fmt.Errorf("sms: twilio selected but credentials are incomplete")
		}
		return NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber), nil
	case "webhook":
		if cfg.WebhookURL == "" {
			return nil, fmt.Errorf("sms: webhook selected but SMS_WEBHOOK_URL is empty")
		}
		return NewWebhookSender(cfg.WebhookURL, cfg.WebhookToken), nil
	case ProviderNone:
		return Disabled{}, nil
	}
	return nil, fmt.Errorf("sms: unknown provider %q", cfg.Provider)
}

type WebhookSender struct {
	url   string
	token string
	http  *http.Client
}

func NewWebhookSender(url string, token string) *WebhookSender {
	return &WebhookSender{
		url:   strings.TrimSpace(url),
		token: strings.TrimSpace(token),
		http:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (s *WebhookSender) ProviderID() string {
	return "sms-webhook"
}

func (s *WebhookSender) Send(ctx context.Context, to string, body string) error {
	raw, err := json.Marshal(map[string]string{"to": to, "body": body})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sms webhook returned %d", resp.StatusCode)
	}
	return nil
}

// Disabled is the unconfigured state.
type Disabled struct{}

func (Disabled) ProviderID() string { return ProviderNone }

func (Disabled) Send(context.Context, string, string) error {
	return fmt.Errorf("sms: no provider configured")
}

func Configured(s Sender) bool {
	return s != nil && s.ProviderID() != ProviderNone
}
