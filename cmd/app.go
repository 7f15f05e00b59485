package main

import (
	"fmt"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"autocheckout/internal/cache"
	"autocheckout/internal/checkout"
	"autocheckout/internal/clock"
	"autocheckout/internal/config"
	"autocheckout/internal/notify"
	"autocheckout/internal/pkg/httpclient"
	"autocheckout/internal/pkg/telegram"
	"autocheckout/internal/repository"
)

// app is the wired engine shared by every subcommand.
type app struct {
	cfg        *config.Config
	logger     *zap.Logger
	db         *gorm.DB
	settings   *repository.SystemSettingRepository
	executions *repository.ExecutionLogRepository
	history    *repository.CheckoutLogRepository
	executor   *checkout.Executor
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func newApp() (*app, error) {
	// --- Config ---
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// --- Logger ---
	logger, err := newLogger(cfg.Server.Env)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	// --- Database ---
	db, err := config.NewDatabase(&cfg.Database, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	a := &app{
		cfg:        cfg,
		logger:     logger,
		db:         db,
		settings:   repository.NewSystemSettingRepository(db),
		executions: repository.NewExecutionLogRepository(db),
		history:    repository.NewCheckoutLogRepository(db),
	}

	deps := checkout.Deps{
		Bookings: repository.NewBookingRepository(db),
		History:  a.history,
		Ledger:   a.executions,
		Settings: a.settings,
		Clock:    clock.System(),
	}

	// --- Run marker (Redis with in-memory fallback) ---
	marker, markerErr := cache.NewRunMarker(cfg.Redis.Addr, cfg.Redis.Pass, cfg.Redis.DB, cache.DefaultMarkerTTL)
	if markerErr != nil {
		logger.Warn("Redis unavailable for run marker, using in-memory fallback", zap.Error(markerErr))
	}
	deps.Marker = marker

	if n := buildNotifier(cfg, logger); len(n) > 0 {
		deps.Notifier = n
	}

	if cfg.Bot.Token != "" && cfg.Bot.ReportChat != "" {
		deps.Reporter = notify.NewTelegramReporter(telegram.NewBotAPI(cfg.Bot.Token), cfg.Bot.ReportChat, cfg.Notify.HotelName)
	}

	a.executor = checkout.New(deps, checkout.Options{
		Location:       cfg.Checkout.Location,
		Grace:          cfg.Checkout.Grace,
		BookingTimeout: cfg.Checkout.BookingTimeout,
		ClaimTTL:       cfg.Checkout.ClaimTTL,
	}, logger)
	return a, nil
}

func buildNotifier(cfg *config.Config, logger *zap.Logger) notify.Multi {
	var channels notify.Multi
	if cfg.Notify.SMSGatewayURL != "" {
		channels = append(channels, notify.NewSMSNotifier(httpclient.New().WithTimeout(cfg.Checkout.BookingTimeout/3), notify.SMSConfig{
			GatewayURL: cfg.Notify.SMSGatewayURL,
			APIKey:     cfg.Notify.SMSAPIKey,
			Sender:     cfg.Notify.SMSSender,
			HotelName:  cfg.Notify.HotelName,
		}, logger))
	}
	if cfg.Notify.ResendAPIKey != "" && cfg.Notify.EmailFrom != "" {
		channels = append(channels, notify.NewEmailNotifier(
			resend.NewClient(cfg.Notify.ResendAPIKey), cfg.Notify.EmailFrom, cfg.Notify.HotelName, logger))
	}
	if len(channels) == 0 {
		logger.Info("No notification channel configured, guests will not be notified")
	}
	return channels
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.logger.Sync()
}
