package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/complaint-service/internal/api/http"
	"github.com/spec-kit/complaint-service/internal/api/http/handlers"
	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/bot"
	"github.com/spec-kit/complaint-service/internal/config"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/observability"
	"github.com/spec-kit/complaint-service/internal/persistence"
	"github.com/spec-kit/complaint-service/internal/realtime"
	"github.com/spec-kit/complaint-service/internal/repository"
	"github.com/spec-kit/complaint-service/internal/service"
	"github.com/spec-kit/complaint-service/internal/storage"
	"github.com/spec-kit/complaint-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, "complaint-api")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	metrics := observability.NewMetrics()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	pool := pg.PoolHandle()
	repos := repository.NewRepositories(pool)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL())
	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		PorterRepo: repos.Porters,
		Tokens:     tokens,
		Logger:     logger,
	})
	if _, err := authService.EnsureBootstrapAdmin(ctx, cfg.Auth); err != nil {
		logger.Fatal("failed to bootstrap admin", zap.Error(err))
	}
	authMiddleware := auth.NewAuthMiddleware(tokens, repos.Porters, cfg.Auth.ServiceToken)

	store, err := storage.New(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal("failed to init photo storage", zap.Error(err))
	}
	photoService := service.NewPhotoService(service.PhotoDependencies{
		TicketRepo:     repos.Tickets,
		PhotoRepo:      repos.Photos,
		Store:          store,
		MaxUploadBytes: cfg.Storage.MaxUploadBytes,
		Logger:         logger,
	})

	hub := realtime.NewHub(cfg.Realtime.WriteTimeout(), logger, metrics)
	dispatcher := events.NewInMemoryDispatcher(logger)

	var publisher *events.NATSPublisher
	if cfg.Notification.NATSURL != "" {
		nc, err := nats.Connect(cfg.Notification.NATSURL, nats.Name(cfg.App.Name))
		if err != nil {
			logger.Warn("nats unavailable, event fan-out disabled", zap.Error(err))
		} else {
			defer nc.Drain() //nolint:errcheck
			publisher = events.NewNATSPublisher(nc, cfg.Notification.NATSSubjectPrefix, logger)
		}
	}

	var sender service.AlertSender
	if cfg.Notification.TelegramBotToken != "" {
		api, err := tgbotapi.NewBotAPI(cfg.Notification.TelegramBotToken)
		if err != nil {
			logger.Warn("telegram unavailable, admin alerts disabled", zap.Error(err))
		} else {
			sender = bot.NewAlertSender(api)
		}
	}

	notificationService := service.NewNotificationService(cfg.Notification, service.NotificationDependencies{
		Dispatcher: dispatcher,
		Sender:     sender,
		TicketRepo: repos.Tickets,
		Metrics:    metrics,
		Logger:     logger,
	})
	worker.StartNotificationWorker(dispatcher, notificationService, publisher)

	effects := service.NewEffectRunner(hub, dispatcher, logger)
	complaintService := service.NewComplaintService(service.ComplaintDependencies{
		Repos:      repos,
		UnitOfWork: repository.NewUnitOfWork(pool),
		Effects:    effects,
		Logger:     logger,
	})

	app := fiber.New(fiber.Config{
		AppName:   cfg.App.Name,
		BodyLimit: int(cfg.Storage.MaxUploadBytes) + 1<<20,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	routes := httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{"postgres": pg}),
		Auth:           handlers.NewAuthHandler(authService),
		Complaints:     handlers.NewComplaintsHandler(complaintService),
		Photos:         handlers.NewPhotosHandler(photoService),
		Realtime:       handlers.NewRealtimeHandler(hub, logger),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
	}
	if local, ok := store.(*storage.LocalStore); ok {
		routes.UploadsDir = local.Root()
	}
	httptransport.RegisterRoutes(app, routes)

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	hub.Close()
	_ = app.Shutdown()
	effects.Close()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
