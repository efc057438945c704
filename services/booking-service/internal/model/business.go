package model

import "time"

const (
	DefaultCurrency     = "usd"
	DefaultTimezone     = "UTC"
	DefaultPrimaryColor = "#4f46e5"
	DefaultAccentColor  = "#06b6d4"
	DefaultHeroTitle    = "Book your appointment"
	DefaultHeroSubtitle = "Fast, simple scheduling"
)

type Branding struct {
	LogoURL      string `json:"logo_url,omitempty"`
	PrimaryColor string `json:"primary_color"`
	AccentColor  string `json:"accent_color"`
	HeroTitle    string `json:"hero_title"`
	HeroSubtitle string `json:"hero_subtitle"`
}

func DefaultBranding() Branding {
	return Branding{
		PrimaryColor: DefaultPrimaryColor,
		AccentColor:  DefaultAccentColor,
		HeroTitle:    DefaultHeroTitle,
		HeroSubtitle: DefaultHeroSubtitle,
	}
}

// Business is a tenant. The ICS token is never stored in the clear; only its
// hash lives here and the plaintext is handed out once at creation.
type Business struct {
	ID                    string    `json:"id"`
	OwnerID               string    `json:"owner_id,omitempty"`
	Name                  string    `json:"name"`
	Slug                  string    `json:"slug"`
	Timezone              string    `json:"timezone"`
	Currency              string    `json:"currency"`
	ICSTokenHash          string    `json:"-"`
	DepositPercentDefault int       `json:"deposit_percent_default"`
	RemindersEnabled      bool      `json:"reminders_enabled"`
	RemindersEmailEnabled bool      `json:"reminders_email_enabled"`
	RemindersSMSEnabled   bool      `json:"reminders_sms_enabled"`
	Branding              Branding  `json:"branding"`
	CreatedAt             time.Time `json:"created_at"`
}

type Staff struct {
	ID         string    `json:"id"`
	BusinessID string    `json:"business_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}

type Service struct {
	ID                     string    `json:"id"`
	BusinessID             string    `json:"business_id"`
	Name                   string    `json:"name"`
	PriceCents             int64     `json:"price_cents"`
	DurationMin            int       `json:"duration_min"`
	BufferBeforeMin        int       `json:"buffer_before_min"`
	BufferAfterMin         int       `json:"buffer_after_min"`
	DepositPercentOverride *int      `json:"deposit_percent_override"`
	CreatedAt              time.Time `json:"created_at"`
}

// TotalMinutes is how long a booking of this service occupies the staff member.
func (s Service) TotalMinutes() int {
	return s.DurationMin + s.BufferBeforeMin + s.BufferAfterMin
}

// DepositPercent is the override when set, otherwise the business default.
func (s Service) DepositPercent(b Business) int {
	if s.DepositPercentOverride != nil {
		return *s.DepositPercentOverride
	}
	return b.DepositPercentDefault
}
