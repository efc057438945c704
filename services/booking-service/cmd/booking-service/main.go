package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/md-rashed-zaman/bookingsaas/libs/config"
	"github.com/md-rashed-zaman/bookingsaas/libs/db"
	"github.com/md-rashed-zaman/bookingsaas/libs/grpcx"
	"github.com/md-rashed-zaman/bookingsaas/libs/httpx"
	"github.com/md-rashed-zaman/bookingsaas/libs/kafkax"
	otelx "github.com/md-rashed-zaman/bookingsaas/libs/otel"
	"github.com/md-rashed-zaman/bookingsaas/libs/redisx"
	"github.com/md-rashed-zaman/bookingsaas/libs/runtime"
	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/appconfig"
	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/handlers"
	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/notify/email"
	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/notify/sms"
	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/payments"
	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/reminders"
	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		runtime.NewLogger("booking-service", "info").Warn("dotenv load failed", "err", err)
	}
	cfg, err := appconfig.Load()
	if err != nil {
		runtime.NewLogger("booking-service", "info").Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	logger := runtime.NewLogger(cfg.Service, cfg.LogLevel)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(cfg.Service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	pool, err := db.Open(ctx, cfg.DatabaseURL, db.PoolConfig{MaxConns: int32(cfg.DBMaxConns)})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()
	if cfg.Migrate {
		if err := db.Migrate(ctx, pool, logger); err != nil {
			logger.Error("migrations failed", "err", err)
			os.Exit(1)
		}
	}

	rdb, err := redisx.Open(ctx, redisx.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Error("redis connection failed", "err", err)
		os.Exit(1)
	}
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	store := storage.NewStore(pool, storage.Options{RecordEvents: cfg.EventsEnabled()})

	provider := payments.NewProvider(payments.StripeConfig{
		SecretKey:   cfg.Stripe.SecretKey,
		FrontendURL: cfg.Stripe.FrontendURL,
	})
	if !provider.Configured() {
		logger.Warn("STRIPE_SECRET not set; bookings are created without checkout")
	}

	engineOpts := []booking.Option{booking.WithMetrics(m)}
	if cfg.BookingLockEnabled {
		engineOpts = append(engineOpts, booking.WithLocker(booking.NewRedisLocker(rdb, cfg.BookingLockTTL)))
	}
	engine := booking.NewEngine(store, provider, logger, engineOpts...)

	var dedup reminders.Deduper
	if cfg.ReminderDedupEnabled {
		dedup = reminders.NewRedisDedup(rdb, reminders.DefaultDedupTTL)
	}
	scheduler := reminders.NewScheduler(store, dedup, m, logger)

	emailCfg := email.Config{
		Provider:       cfg.Email.Provider,
		FromEmail:      cfg.Email.From,
		FromName:       cfg.Email.FromName,
		SendGridAPIKey: cfg.Email.SendGridAPIKey,
		SMTPHost:       cfg.Email.SMTPHost,
		SMTPPort:       cfg.Email.SMTPPort,
	}
	if cfg.UseSES() {
		ses, err := email.NewSESClient(ctx, cfg.Email.AWSRegion)
		if err != nil {
			logger.Error("ses client init failed", "err", err)
			os.Exit(1)
		}
		emailCfg.SES = ses
	}
	emailSender, err := email.New(emailCfg, logger)
	if err != nil {
		logger.Error("email provider init failed", "err", err)
		os.Exit(1)
	}
	smsSender, err := sms.New(sms.Config{
		Provider:         cfg.SMS.Provider,
		TwilioAccountSID: cfg.SMS.TwilioAccountSID,
		TwilioAuthToken:  cfg.SMS.TwilioAuthToken,
		TwilioFromNumber: cfg.SMS.TwilioFromNumber,
		WebhookURL:       cfg.SMS.WebhookURL,
		WebhookToken:     cfg.SMS.WebhookToken,
	})
	if err != nil {
		logger.Error("sms provider init failed", "err", err)
		os.Exit(1)
	}
	logger.Info("reminder providers", "email", emailSender.ProviderID(), "sms", smsSender.ProviderID())
	dispatcher := reminders.NewDispatcher(store, reminders.DispatcherConfig{
		BatchSize: cfg.ReminderBatchSize,
		Email:     emailSender,
		SMS:       smsSender,
	}, m, logger)

	if cfg.EventsEnabled() {
		writer := kafkax.NewWriter(cfg.KafkaBrokers)
		defer func() { _ = writer.Close() }()
		go outbox.NewPublisher(pool, writer, logger, outbox.PublisherConfig{
			PollEvery: 2 * time.Second,
			BatchSize: 50,
		}).Run(ctx)
	}

	checks := []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}}
	if rdb != nil {
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: redisx.ReadyCheck(rdb)})
	}
	if check := kafkax.ReadyCheck(cfg.KafkaBrokers); check != nil {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: check})
	}

	var limiter httpx.Limiter
	if cfg.RateLimitPerMinute > 0 {
		if rdb != nil {
			limiter = httpx.NewRedisRateLimiter(rdb, cfg.RateLimitPerMinute, time.Minute, "ratelimit:public:")
		} else {
			limiter = httpx.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
		}
	}
	if cfg.AdminJWTSecret == "" {
		logger.Warn("ADMIN_JWT_SECRET not set; dashboard and cron routes are unauthenticated")
	}

	api := handlers.NewAPI(handlers.Deps{
		Store:      store,
		Engine:     engine,
		Scheduler:  scheduler,
		Dispatcher: dispatcher,
		Webhooks:   payments.NewWebhookVerifier(cfg.Stripe.WebhookSecret, cfg.Stripe.WebhookTolerance),
		Metrics:    m,
		Logger:     logger,
	})
	router := api.Routes(handlers.RouterConfig{
		AdminJWTSecret: cfg.AdminJWTSecret,
		Limiter:        limiter,
		ReadyChecks:    checks,
	})

	var httpHandler http.Handler = httpx.Chain(router,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		httpx.WithBodyLimit(cfg.MaxBodyBytes),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", "Stripe-Signature", "X-Request-Id"},
			MaxAge:         10 * time.Minute,
		}),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")

	if cfg.GRPCPort != "" {
		health := grpcx.NewHealthServer(cfg.Service, logger, checks...)
		go func() {
			if err := health.Serve(ctx, ":"+cfg.GRPCPort, 10*time.Second); err != nil {
				logger.Error("grpc health server error", "err", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	runtime.ServeHTTP(ctx, srv, logger, 10*time.Second)
}
