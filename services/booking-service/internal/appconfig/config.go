package appconfig

import (
	"fmt"
	"time"

	"github.com/md-rashed-zaman/bookingsaas/libs/config"
)

// Config is read once at startup. Nothing below cmd/ looks at the environment.
type Config struct {
	Service  string
	LogLevel string
	Port     string
	GRPCPort string

	DatabaseURL string
	Migrate     bool
	DBMaxConns  int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	KafkaBrokers []string

	Stripe Stripe
	Email  Email
	SMS    SMS

	AdminJWTSecret       string
	BookingLockEnabled   bool
	BookingLockTTL       time.Duration
	ReminderDedupEnabled bool
	ReminderBatchSize    int
	RateLimitPerMinute   int
	CORSAllowedOrigins   []string
	MaxBodyBytes         int64
}

type Stripe struct {
	SecretKey        string
	WebhookSecret    string
	WebhookTolerance time.Duration
	FrontendURL      string
}

type Email struct {
	Provider       string
	SendGridAPIKey string
	From           string
	FromName       string
	SMTPHost       string
	SMTPPort       string
	AWSRegion      string
}

type SMS struct {
	Provider         string
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
	WebhookURL       string
	WebhookToken     string
}

func Load() (Config, error) {
	port, err := config.Port("PORT", "8000")
	if err != nil {
		return Config{}, err
	}
	grpcPort := config.String("GRPC_PORT", "")
	if grpcPort != "" {
		if grpcPort, err = config.Port("GRPC_PORT", ""); err != nil {
			return Config{}, err
		}
	}
	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Service:       config.String("SERVICE_NAME", "booking-service"),
		LogLevel:      config.String("LOG_LEVEL", "info"),
		Port:          port,
		GRPCPort:      grpcPort,
		DatabaseURL:   dbURL,
		Migrate:       config.Bool("DB_MIGRATE", true),
		DBMaxConns:    config.Int("DB_MAX_CONNS", 10),
		RedisAddr:     config.String("REDIS_ADDR", ""),
		RedisPassword: config.String("REDIS_PASSWORD", ""),
		RedisDB:       config.Int("REDIS_DB", 0),
		KafkaBrokers:  config.List("KAFKA_BROKERS", nil),
		Stripe: Stripe{
			SecretKey:        config.String("STRIPE_SECRET", ""),
			WebhookSecret:    config.String("STRIPE_WEBHOOK_SECRET", ""),
			WebhookTolerance: time.Duration(config.Int("STRIPE_WEBHOOK_TOLERANCE_SECONDS", 300)) * time.Second,
			FrontendURL:      config.String("FRONTEND_URL", "http://localhost:3000"),
		},
		Email: Email{
			Provider:       config.String("EMAIL_PROVIDER", "auto"),
			SendGridAPIKey: config.String("SENDGRID_API_KEY", ""),
			From:           config.String("EMAIL_FROM", "noreply@bookingsaas.dev"),
			FromName:       config.String("EMAIL_FROM_NAME", "Bookings"),
			SMTPHost:       config.String("SMTP_HOST", ""),
			SMTPPort:       config.String("SMTP_PORT", "1025"),
			AWSRegion:      config.String("AWS_REGION", ""),
		},
		SMS: SMS{
			Provider:         config.String("SMS_PROVIDER", "auto"),
			TwilioAccountSID: config.String("TWILIO_ACCOUNT_SID", ""),
			TwilioAuthToken:  config.String("TWILIO_AUTH_TOKEN", ""),
			TwilioFromNumber: config.String("TWILIO_FROM_NUMBER", ""),
			WebhookURL:       config.String("SMS_WEBHOOK_URL", ""),
			WebhookToken:     config.String("SMS_WEBHOOK_TOKEN", ""),
		},
		AdminJWTSecret:       config.String("ADMIN_JWT_SECRET", ""),
		BookingLockEnabled:   config.Bool("BOOKING_LOCK_ENABLED", false),
		BookingLockTTL:       config.Duration("BOOKING_LOCK_TTL", 10*time.Second),
		ReminderDedupEnabled: config.Bool("REMINDER_DEDUP_ENABLED", false),
		ReminderBatchSize:    config.Int("REMINDER_BATCH_SIZE", 50),
		RateLimitPerMinute:   config.Int("RATE_LIMIT_PER_MINUTE", 120),
		CORSAllowedOrigins:   config.List("CORS_ALLOWED_ORIGINS", []string{"*"}),
		MaxBodyBytes:         int64(config.Int("MAX_BODY_BYTES", 1<<20)),
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if (c.BookingLockEnabled || c.ReminderDedupEnabled) && c.RedisAddr == "" {
		return fmt.Errorf("BOOKING_LOCK_ENABLED and REMINDER_DEDUP_ENABLED require REDIS_ADDR")
	}
	if c.ReminderBatchSize <= 0 {
		return fmt.Errorf("REMINDER_BATCH_SIZE must be positive (got %d)", c.ReminderBatchSize)
	}
	if c.Email.Provider == "ses" && c.Email.AWSRegion == "" {
		return fmt.Errorf("EMAIL_PROVIDER=ses requires AWS_REGION")
	}
	return nil
}

// EventsEnabled reports whether domain events are written to the outbox.
func (c Config) EventsEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// UseSES is true when SES should be constructed for email delivery.
func (c Config) UseSES() bool {
	switch c.Email.Provider {
	case "ses":
		return true
	case "", "auto":
		return c.Email.SendGridAPIKey == "" && c.Email.AWSRegion != ""
	}
	return false
}
