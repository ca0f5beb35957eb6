package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-service/internal/api/http"
	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/mq"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/repository/memory"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger, err := observability.NewLogger(cfg.Logger)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer logger.Sync() //nolint:errcheck

		return serve(cmd.Context(), cfg, logger)
	},
}

type stores struct {
	users    repository.UserRepository
	tickets  repository.TicketRepository
	accounts repository.AccountRepository
	counters repository.CounterRepository
}

func serve(parent context.Context, cfg *config.Config, logger *zap.Logger) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	deps := map[string]handlers.Pinger{}

	var st stores
	if cfg.Postgres.DSN != "" {
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pg.Close()

		if cfg.Postgres.RunMigrations {
			if _, err := persistence.RunMigrations(ctx, pg.PoolHandle(), persistence.DefaultMigrationsDir, logger); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
		}
		pool := pg.PoolHandle()
		st = stores{
			users:    repository.NewUserRepository(pool),
			tickets:  repository.NewTicketRepository(pool),
			accounts: repository.NewAccountRepository(pool),
			counters: repository.NewCounterRepository(pool),
		}
		deps["postgres"] = pg
	} else {
		logger.Warn("POSTGRES_DSN not provided; using in-memory store")
		mem := memory.NewStore()
		st = stores{users: mem.Users(), tickets: mem.Tickets(), accounts: mem.Accounts(), counters: mem.Counters()}
	}

	var limiter httptransport.RateLimiter
	if cfg.Redis.Addr != "" {
		rdb := persistence.NewRedis(ctx, cfg.Redis, logger)
		defer rdb.Close()
		limiter = httptransport.NewRedisRateLimiter(rdb.Client, cfg.RateLimit.RequestsPerWindow, cfg.RateLimit.Window())
		deps["redis"] = rdb
	}

	var publisher mq.Publisher = mq.NoopPublisher{}
	if cfg.AMQP.URL != "" {
		rmq, err := mq.NewRabbitMQPublisher(cfg.AMQP)
		if err != nil {
			logger.Warn("rabbitmq unavailable; events stay in process", zap.Error(err))
		} else {
			publisher = rmq
		}
	}
	defer publisher.Close() //nolint:errcheck

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartNotificationWorker(
		service.NewNotificationService(dispatcher, publisher, logger, cfg.Notification).WithMetrics(metrics),
	)

	identity := auth.NewLocalIdentity(st.accounts, auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes), cfg.Auth.BcryptCost)
	ids := service.NewIdentifierService(service.IdentifierDependencies{
		UserRepo:    st.users,
		TicketRepo:  st.tickets,
		CounterRepo: st.counters,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  st.tickets,
		UserRepo:    st.users,
		Identifiers: ids,
		Assignment:  service.NewAssignmentService(st.users),
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	authService := service.NewAuthService(service.AuthDependencies{
		Identity:    identity,
		UserRepo:    st.users,
		Identifiers: ids,
		Logger:      logger,
	})
	userService := service.NewUserService(service.UserDependencies{
		Identity:    identity,
		UserRepo:    st.users,
		Identifiers: ids,
		Logger:      logger,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, deps),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService, nil),
		Users:          handlers.NewUsersHandler(userService),
		Reports:        handlers.NewReportsHandler(service.NewSLAService(st.tickets, nil)),
		AuthMiddleware: auth.NewAuthMiddleware(identity, st.users),
		RateLimiter:    limiter,
		Metrics:        metrics,
		Logger:         logger,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))
		errCh <- app.Listen(cfg.App.Addr())
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("fiber listen: %w", err)
	case sig := <-waitForShutdown():
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}
	return app.Shutdown()
}

func waitForShutdown() <-chan os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	return sigCh
}
