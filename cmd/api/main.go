package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/request-desk/internal/api/http"
	"github.com/spec-kit/request-desk/internal/api/http/handlers"
	"github.com/spec-kit/request-desk/internal/auth"
	"github.com/spec-kit/request-desk/internal/config"
	"github.com/spec-kit/request-desk/internal/events"
	"github.com/spec-kit/request-desk/internal/observability"
	"github.com/spec-kit/request-desk/internal/schema"
	"github.com/spec-kit/request-desk/internal/service"
	"github.com/spec-kit/request-desk/internal/store"
	"github.com/spec-kit/request-desk/internal/worker"
)

func main() {
	var (
		envFiles   []string
		backend    string
		sessions   string
		port       string
		schemaFile string
	)
	pflag.StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load before reading the environment")
	pflag.StringVar(&backend, "store", "", "ticket store backend: memory, sqlite, postgres or s3")
	pflag.StringVar(&sessions, "sessions", "", "session backend: memory or redis")
	pflag.StringVar(&port, "port", "", "HTTP listen port")
	pflag.StringVar(&schemaFile, "schema", "", "category schema YAML file")
	pflag.Parse()

	cfg, err := config.Load(envFiles...)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if backend != "" {
		cfg.Store.Backend = backend
	}
	if sessions != "" {
		cfg.Store.SessionBackend = sessions
	}
	if port != "" {
		cfg.App.Port = port
	}
	if schemaFile != "" {
		cfg.Store.SchemaFile = schemaFile
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry, err := loadRegistry(cfg.Store.SchemaFile)
	if err != nil {
		logger.Fatal("failed to load category schemas", zap.Error(err))
	}

	stores, err := openBackends(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open storage", zap.Error(err))
	}
	defer stores.Close()

	ticketStore, err := store.NewTicketStore(ctx, stores.Tickets, registry, store.Options{Logger: logger})
	if err != nil {
		logger.Fatal("failed to load tickets", zap.Error(err))
	}
	logger.Info("ticket store ready", zap.String("backend", cfg.Store.Backend), zap.Int("tickets", ticketStore.Len()))

	dispatcher := events.NewInMemoryDispatcher(logger)
	metrics := observability.NewMetrics(true)

	userService := service.NewUserService(service.UserDependencies{
		UserRepo:   stores.Users,
		BcryptCost: cfg.Auth.BcryptCost,
		SeedSecret: cfg.Auth.SeedSecret,
		Logger:     logger,
	})
	if cfg.Auth.SeedUsers {
		if err := userService.Seed(ctx, service.DefaultUsers); err != nil {
			logger.Fatal("failed to seed users", zap.Error(err))
		}
	}

	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo:     stores.Users,
		SessionRepo:  stores.Sessions,
		TokenManager: auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL()),
		Logger:       logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		Store:      ticketStore,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	lifecycleService := service.NewLifecycleService(service.LifecycleDependencies{
		Store:      ticketStore,
		UserRepo:   stores.Users,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartEventSubscribers(dispatcher, notificationService, metrics)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, stores.Checkers...),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService, lifecycleService),
		Categories:     handlers.NewCategoriesHandler(registry),
		Users:          handlers.NewUsersHandler(userService),
		AuthMiddleware: auth.NewAuthMiddleware(authService),
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func loadRegistry(path string) (*schema.Registry, error) {
	if path == "" {
		return schema.NewDefaultRegistry()
	}
	return schema.LoadFile(path)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
