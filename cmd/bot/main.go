package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/api/http/handlers"
	"github.com/spec-kit/complaint-service/internal/bot"
	"github.com/spec-kit/complaint-service/internal/config"
	"github.com/spec-kit/complaint-service/internal/intake"
	"github.com/spec-kit/complaint-service/internal/observability"
	"github.com/spec-kit/complaint-service/internal/persistence"
	"github.com/spec-kit/complaint-service/internal/submission"
	"github.com/spec-kit/complaint-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, "complaint-bot")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.Bot.TelegramToken == "" {
		logger.Fatal("TELEGRAM_BOT_TOKEN is required")
	}
	if cfg.Bot.BackendURL == "" {
		logger.Warn("BOT_BACKEND_URL not set, complaints will receive placeholder ids")
	}

	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pingers := map[string]handlers.Pinger{}
	var sessions intake.SessionStore
	switch cfg.Bot.SessionStore {
	case "redis":
		redis := persistence.NewRedis(ctx, cfg.Redis, logger)
		defer redis.Close()
		pingers["redis"] = redis
		sessions = intake.NewRedisStore(redis.Client, cfg.Bot.SessionTTL())
	default:
		memory := intake.NewMemoryStore(cfg.Bot.SessionTTL())
		go worker.RunSessionSweeper(ctx, memory, time.Minute, logger)
		sessions = memory
	}

	client := submission.NewClient(submission.Config{
		BaseURL:           cfg.Bot.BackendURL,
		ServiceToken:      cfg.Bot.ServiceToken,
		ServiceEmail:      cfg.Bot.ServiceEmail,
		ServicePassword:   cfg.Bot.ServicePassword,
		MaxAttempts:       cfg.Bot.MaxAttempts,
		BaseDelay:         cfg.Bot.BaseDelay(),
		Timeout:           cfg.Bot.RequestTimeout(),
		AllowMockFallback: cfg.Bot.AllowMockFallback,
	}, logger, metrics)

	api, err := tgbotapi.NewBotAPI(cfg.Bot.TelegramToken)
	if err != nil {
		logger.Fatal("failed to connect telegram", zap.Error(err))
	}
	logger.Info("telegram bot authorized", zap.String("username", api.Self.UserName))

	engine := intake.NewEngine(intake.Dependencies{
		Store:     sessions,
		Submitter: client,
		Uploader:  client,
		Media:     bot.NewMediaFetcher(api, cfg.Bot.RequestTimeout()),
		Status:    client,
		Logger:    logger,
		Metrics:   metrics,
	})

	app := fiber.New(fiber.Config{AppName: "complaint-bot", DisableStartupMessage: true})
	health := handlers.NewHealthHandler("complaint-bot", cfg.App.Version, pingers)
	app.Get("/health/live", health.Live)
	app.Get("/health/ready", health.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	go func() {
		if err := app.Listen(cfg.Bot.MetricsAddr); err != nil {
			logger.Error("metrics listener stopped", zap.Error(err))
		}
	}()

	bot.New(api, engine, logger).Run(ctx, cfg.Bot.PollTimeoutSeconds)

	logger.Info("shutting down")
	_ = app.Shutdown()
}
