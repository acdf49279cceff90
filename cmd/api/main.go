package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/printops/servicedesk/internal/api/http"
	"github.com/printops/servicedesk/internal/api/http/handlers"
	"github.com/printops/servicedesk/internal/auth"
	"github.com/printops/servicedesk/internal/config"
	"github.com/printops/servicedesk/internal/events"
	"github.com/printops/servicedesk/internal/lifecycle"
	"github.com/printops/servicedesk/internal/observability"
	"github.com/printops/servicedesk/internal/persistence"
	"github.com/printops/servicedesk/internal/repository"
	"github.com/printops/servicedesk/internal/repository/memory"
	"github.com/printops/servicedesk/internal/service"
	"github.com/printops/servicedesk/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var runner repository.Runner
	if pool := pg.PoolHandle(); pool != nil {
		runner = repository.NewPgxRunner(pool)
	} else {
		logger.Warn("running with in-memory store; data is not durable")
		runner = memory.NewStore()
	}

	dispatcher := events.NewRedisDispatcher(redis.Client, logger)
	synchronizer := lifecycle.New()

	ticketService := service.NewTicketService(runner, synchronizer, dispatcher)
	workOrderService := service.NewWorkOrderService(runner, synchronizer, dispatcher)
	quoteService := service.NewQuoteService(runner, synchronizer, dispatcher)
	assignmentService := service.NewAssignmentService(runner, synchronizer, dispatcher)
	notificationService := service.NewNotificationService(runner, dispatcher)
	slaService := service.NewSLAService(runner, cfg.SLA.OutlierThresholdBusinessDays)

	reportWorker := worker.NewReportWorker(cfg.Report, slaService, nil, logger)
	if err := reportWorker.Start(); err != nil {
		logger.Fatal("failed to start report worker", zap.Error(err))
	}
	defer reportWorker.Stop()

	verifier := auth.NewTokenVerifier(cfg.Auth.JWTSecret)
	authMiddleware := auth.NewMiddleware(verifier)
	metrics := observability.NewMetrics()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		AdminTickets:   handlers.NewAdminTicketsHandler(ticketService, assignmentService),
		WorkOrders:     handlers.NewWorkOrdersHandler(workOrderService),
		Quotes:         handlers.NewQuotesHandler(quoteService),
		Notifications:  handlers.NewNotificationsHandler(notificationService),
		Reports:        handlers.NewReportsHandler(slaService, metrics),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
