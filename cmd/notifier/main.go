// cmd/notifier/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"school-notify/internal/common/config"
	"school-notify/internal/common/database"
	"school-notify/internal/common/logger"
	"school-notify/internal/common/observability"
	"school-notify/internal/engine/channel"
	"school-notify/internal/engine/directory"
	"school-notify/internal/engine/dispatch"
	"school-notify/internal/engine/ledger"
	"school-notify/internal/engine/preference"
	"school-notify/internal/engine/template"
	"school-notify/internal/engine/trigger"
	"school-notify/internal/models"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting notification engine...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	// Rebuild the logger with the configured level and format.
	zapLog = logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log = logger.NewZapAdapter(zapLog)

	obs := observability.New("school-notify")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Channel Adapters ---
	adapters := buildAdapters(ctx, cfg, zapLog, log)

	// --- Engine Components ---
	templates := template.NewRepository(pg.DB, log)
	preferences := preference.NewStore(pg.DB, log)
	ledgerStore := ledger.NewStore(pg.DB, log)
	dir := directory.NewSQLDirectory(pg.DB, log)

	dispatcher := dispatch.NewService(
		dir, preferences, templates, ledgerStore,
		adapters,
		config.GetDuration(cfg.Notifications.AdapterTimeout),
		obs, log,
	)

	// --- Trigger Layer ---
	var evaluator *trigger.Evaluator
	var scheduler *trigger.Scheduler
	if cfg.Triggers.Enabled {
		guard := trigger.NewRedisGuard(
			redis,
			time.Duration(cfg.Triggers.DedupeTTLHours)*time.Hour,
			log,
		)
		evaluator = trigger.NewEvaluator(
			trigger.NewStore(pg.DB, log),
			trigger.NewSQLMetricsSource(pg.DB, log),
			templates,
			dispatcher,
			guard,
			log,
		)

		scheduler, err = trigger.NewScheduler(cfg.Triggers, evaluator, log)
		if err != nil {
			zapLog.Fatal("trigger scheduler setup failed", zap.Error(err))
		}
		scheduler.Start()
		defer scheduler.Stop()
	} else {
		zapLog.Info("Trigger evaluation disabled by configuration")
	}

	// --- HTTP API ---
	api := &apiServer{
		dispatcher: dispatcher,
		history:    ledgerStore,
		evaluator:  evaluator,
		pg:         pg,
		redis:      redis,
		logger:     log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/notifications", api.handleNotifications)
	mux.HandleFunc("/api/notifications/bulk", api.handleBulk)
	mux.HandleFunc("/api/triggers/run", api.handleTriggerRun)
	mux.HandleFunc("/healthz", api.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:    cfg.HTTP.ListenAddress,
		Handler: mux,
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.HTTP.ListenAddress))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}

	zapLog.Info("Notification engine stopped gracefully")
}

// buildAdapters wires the transport adapters the configuration enables. A
// channel without a configured provider gets no adapter entry at all, except
// sms, which keeps an explicit unconfigured adapter so attempts fail with a
// recorded reason instead of being silently dropped.
func buildAdapters(ctx context.Context, cfg *config.Config, zapLog *zap.Logger, log logger.Logger) map[models.Channel]channel.Adapter {
	adapters := map[models.Channel]channel.Adapter{}

	if cfg.Notifications.Email.Enabled {
		switch cfg.Notifications.Email.Provider {
		case "smtp":
			adapters[models.ChannelEmail] = channel.NewSMTPEmailAdapter(channel.SMTPConfig{
				Host:     cfg.Integrations.SMTP.Host,
				Port:     cfg.Integrations.SMTP.Port,
				Username: cfg.Integrations.SMTP.Username,
				Password: cfg.Integrations.SMTP.Password,
				UseTLS:   cfg.Integrations.SMTP.UseTLS,
				From:     cfg.Notifications.Email.FromEmail,
			}, log)
			zapLog.Info("Email adapter configured", zap.String("provider", "smtp"))
		default:
			adapter, err := channel.NewSESEmailAdapter(ctx, cfg.Integrations.AWS.Region, cfg.Notifications.Email.FromEmail, log)
			if err != nil {
				zapLog.Fatal("SES adapter setup failed", zap.Error(err))
			}
			adapters[models.ChannelEmail] = adapter
			zapLog.Info("Email adapter configured", zap.String("provider", "ses"))
		}
	}

	if cfg.Notifications.SMS.Enabled {
		adapter, err := channel.NewSNSSMSAdapter(ctx, cfg.Integrations.AWS.Region, cfg.Notifications.SMS.SenderID, log)
		if err != nil {
			zapLog.Fatal("SNS adapter setup failed", zap.Error(err))
		}
		adapters[models.ChannelSMS] = adapter
		zapLog.Info("SMS adapter configured", zap.String("provider", "sns"))
	} else {
		adapters[models.ChannelSMS] = channel.UnconfiguredSMSAdapter{}
		zapLog.Info("SMS adapter not configured; sms attempts will be recorded as failed")
	}

	return adapters
}
