package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"daybook/internal/bot"
	"daybook/internal/config"
	"daybook/internal/logger"
	"daybook/internal/outbox"
	"daybook/internal/prayer"
	"daybook/internal/repository"
	"daybook/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config", zap.Error(err))
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding})
	defer func() { _ = log.Sync() }()

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	box, err := outbox.Open(cfg.OutboxPath, outbox.WithLogger(log))
	if err != nil {
		log.Fatal("open outbox", zap.Error(err))
	}
	defer box.Close()

	store := service.NewStore(service.Repositories{
		Tasks:       repository.NewTaskRepository(db),
		Events:      repository.NewEventRepository(db),
		Notes:       repository.NewNoteRepository(db),
		Preferences: repository.NewPreferencesRepository(db),
	},
		service.WithLocation(cfg.Location),
		service.WithLogger(log),
		service.WithPrayerSource(prayer.NewCalculator(prayer.Coordinates{Latitude: cfg.Latitude, Longitude: cfg.Longitude})),
		service.WithOutbox(box),
		service.WithRetryDelay(cfg.RetryDelay),
	)

	processor := service.NewOutboxProcessor(store, log, service.ProcessorConfig{MaxRetries: cfg.MaxRetryAttempts})
	if err := processor.Drain(ctx); err != nil {
		log.Warn("replay queued writes", zap.Error(err), zap.Int("pending", processor.Pending()))
	}
	if err := store.Load(ctx); err != nil {
		log.Fatal("load store", zap.Error(err))
	}

	scheduler := service.NewSchedulerService(cfg.Location, log, 30*time.Second)
	if _, err := scheduler.ScheduleDaily("reconcile", cfg.ReconcileAt, store.Reconcile); err != nil {
		log.Fatal("schedule reconcile", zap.Error(err))
	}
	if _, err := scheduler.ScheduleInterval("drain-outbox", cfg.SyncInterval, processor.Drain); err != nil {
		log.Fatal("schedule outbox drain", zap.Error(err))
	}

	var telegramBot *bot.Bot
	if cfg.BotEnabled() {
		telegramBot, err = bot.New(cfg.TelegramToken, cfg.OwnerChatID, store, service.NewReminderService(store), log)
		if err != nil {
			log.Fatal("create bot", zap.Error(err))
		}
		defer telegramBot.Close()

		if cfg.ReportAt != "" {
			if _, err := scheduler.ScheduleDaily("daily-summary", cfg.ReportAt, telegramBot.SendDailySummary); err != nil {
				log.Fatal("schedule daily summary", zap.Error(err))
			}
		}
	}

	scheduler.Start()
	log.Info("daybook started", zap.Bool("bot", telegramBot != nil), zap.String("timezone", cfg.Location.String()))

	if telegramBot != nil {
		if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("bot stopped", zap.Error(err))
		}
	}
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	scheduler.Stop(shutdownCtx)
	if err := processor.Drain(shutdownCtx); err != nil {
		log.Warn("final outbox drain", zap.Error(err), zap.Int("pending", processor.Pending()))
	}
	log.Info("shutdown complete")
}
