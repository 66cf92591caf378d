package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpAdapter "github.com/veilflow/veilflow/internal/adapter/http"
	"github.com/veilflow/veilflow/internal/adapter/http/handler"
	postgresRepo "github.com/veilflow/veilflow/internal/adapter/repository/postgres"
	redisRepo "github.com/veilflow/veilflow/internal/adapter/repository/redis"
	"github.com/veilflow/veilflow/internal/engine"
	"github.com/veilflow/veilflow/internal/infrastructure/config"
	"github.com/veilflow/veilflow/internal/infrastructure/eventpublisher"
	"github.com/veilflow/veilflow/internal/infrastructure/logger"
	"github.com/veilflow/veilflow/internal/infrastructure/metrics"
	"github.com/veilflow/veilflow/internal/infrastructure/postgres"
	"github.com/veilflow/veilflow/internal/infrastructure/redis"
	"github.com/veilflow/veilflow/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	// Connect to Redis
	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	m := metrics.New()

	// Initialize repositories
	txManager := postgresRepo.NewTxManager(pool)
	entityRepo := postgresRepo.NewEntityRepository(pool)
	accountRepo := postgresRepo.NewAccountRepository(pool)
	transactionRepo := postgresRepo.NewTransactionRepository(pool)
	ledgerRepo := postgresRepo.NewLedgerRepository(pool)
	idempotencyRepo := postgresRepo.NewIdempotencyRepository(pool)
	workflowRepo := postgresRepo.NewWorkflowRepository(pool)
	executionRepo := postgresRepo.NewExecutionRepository(pool)
	auditRepo := postgresRepo.NewAuditRepository(pool)
	outboxRepo := postgresRepo.NewOutboxRepository(pool)
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)
	cache := redisRepo.NewCache(redisClient)
	idGen := postgresRepo.NewULIDGenerator()

	// Initialize use cases
	accountUC := usecase.NewAccountUseCase(entityRepo, accountRepo, idGen)
	ledgerUC := usecase.NewLedgerUseCase(
		txManager, entityRepo, accountRepo, transactionRepo,
		idempotencyRepo, auditRepo, outboxRepo, ledgerRepo, idGen,
	)
	workflowUC := usecase.NewWorkflowUseCase(workflowRepo, cache, idGen)

	// Initialize the execution engine
	runner := engine.NewRunner(
		workflowRepo, workflowUC, executionRepo, accountRepo, ledgerUC,
		auditRepo, outboxRepo, idGen, m, log.With().Str("component", "runner").Logger(),
	)
	dispatcher := engine.NewDispatcher(
		runner, workflowRepo, executionRepo, idGen, m,
		log.With().Str("component", "dispatcher").Logger(),
		cfg.EngineWorkers, cfg.EngineQueueSize,
	)
	dispatcher.Start(ctx)

	if cfg.SchedulerEnabled {
		scheduler := engine.NewScheduler(
			workflowRepo, workflowUC, dispatcher,
			log.With().Str("component", "scheduler").Logger(),
			cfg.SchedulerRefresh,
		)
		go scheduler.Run(ctx)
	}

	// Outbox publisher
	publisher := eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: outboxRepo,
		Publisher:  eventpublisher.NewLogPublisher(log.With().Str("component", "publisher").Logger()),
		Retrier:    postgresRepo.NewRetrier(log.With().Str("component", "retrier").Logger()),
		Logger:     log.With().Str("component", "publisher").Logger(),
		BatchSize:  cfg.OutboxBatchSize,
		Interval:   cfg.OutboxPollInterval,
	})
	go publisher.Start(ctx)

	// Initialize handlers
	entityHandler := handler.NewEntityHandler(accountUC)
	accountHandler := handler.NewAccountHandler(accountUC, ledgerUC)
	transferHandler := handler.NewTransferHandler(ledgerUC)
	workflowHandler := handler.NewWorkflowHandler(workflowUC)
	executionHandler := handler.NewExecutionHandler(dispatcher, executionRepo, ledgerUC)
	auditHandler := handler.NewAuditHandler(auditRepo)
	healthHandler := handler.NewHealthHandler(pool, redisClient)

	// Create router
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		EntityHandler:    entityHandler,
		AccountHandler:   accountHandler,
		TransferHandler:  transferHandler,
		WorkflowHandler:  workflowHandler,
		ExecutionHandler: executionHandler,
		AuditHandler:     auditHandler,
		HealthHandler:    healthHandler,
		IdempotencyStore: idempotencyStore,
		IdempotencyTTL:   cfg.IdempotencyTTL,
		Metrics:          m,
	})

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()

	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	// Let in-flight executions finish their current node
	dispatcher.Wait()

	log.Info().Msg("server stopped")
}
