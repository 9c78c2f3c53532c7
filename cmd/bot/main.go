package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"juice_subscription_bot/internal/app"
	"juice_subscription_bot/internal/domain/delivery"
	"juice_subscription_bot/internal/infra/config"
	idb "juice_subscription_bot/internal/infra/database"
	"juice_subscription_bot/internal/infra/logger"
	"juice_subscription_bot/internal/infra/metrics"
	"juice_subscription_bot/internal/infra/scheduler"
	"juice_subscription_bot/internal/infra/telegram"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Could not load application configuration: %v", err)
	}

	logger.Init(cfg)
	mainLogger := logger.ForComponent("main")
	mainLogger.WithFields(logrus.Fields{
		"admin_id":   cfg.AdminTelegramID,
		"manager_id": cfg.ManagerTelegramID,
		"timezone":   cfg.DeliveryTimezone,
	}).Info("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := idb.NewPostgresConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not connect to database")
	}
	defer db.Close()
	mainLogger.Info("Database connection established successfully")

	subscriptionRepo := idb.NewPostgresSubscriptionRepository(db)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	sink := metrics.NewPrometheusSink(registry, logger.ForComponent("metrics"))
	metricsServer := startMetricsServer(cfg.MetricsAddr, registry, mainLogger)

	pref := telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) {
			errLog := logger.ForComponent("telebot").WithError(err)
			if c != nil && c.Sender() != nil && c.Chat() != nil {
				errLog = errLog.WithFields(logrus.Fields{
					"sender_id": c.Sender().ID,
					"chat_id":   c.Chat().ID,
					"text":      c.Text(),
				})
			}
			errLog.Error("Telebot error")
		},
	}
	bot, err := telebot.NewBot(pref)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not create Telegram bot")
	}

	notifier := telegram.NewTelebotAdapter(bot)
	clock := delivery.SystemClock{Location: cfg.DeliveryLocation}

	subscriptionService := app.NewSubscriptionService(subscriptionRepo, notifier, clock, sink, logger.ForComponent("subscription_service"))
	reminderService := app.NewReminderService(subscriptionRepo, notifier, clock, sink, logger.ForComponent("reminder_service"), cfg.ManagerTelegramID)

	deliveryScheduler := scheduler.NewDeliveryScheduler(
		reminderService,
		logger.ForComponent("scheduler"),
		cfg.DeliveryLocation,
		cfg.CronSpecNextDayReminder,
		cfg.CronSpecDispatchSummary,
	)
	if err := deliveryScheduler.Start(); err != nil {
		mainLogger.WithError(err).Fatal("Could not start delivery scheduler")
	}

	telegramLogger := logger.ForComponent("telegram")
	telegram.RegisterBotCommands(ctx, bot, subscriptionService, cfg.AdminTelegramID, telegramLogger)
	telegram.RegisterAdminHandlers(ctx, bot, subscriptionService, cfg.AdminTelegramID, cfg.DeliveryLocation, telegramLogger)
	telegram.RegisterCustomerResponseHandlers(ctx, bot, subscriptionService, telegramLogger)
	mainLogger.Info("Telegram handlers registered")

	go bot.Start()
	mainLogger.Info("Application setup complete, bot and scheduler are running")

	<-ctx.Done()

	mainLogger.Info("Shutting down application...")
	bot.Stop()
	deliveryScheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		mainLogger.WithError(err).Warn("Metrics server did not shut down cleanly")
	}
	mainLogger.Info("Application shut down gracefully")
}

func startMetricsServer(addr string, registry *prometheus.Registry, log *logrus.Entry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.WithField("addr", addr).Info("Serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Metrics server stopped")
		}
	}()
	return srv
}
